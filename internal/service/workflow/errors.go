package workflow

import (
	"errors"
	"fmt"

	"github.com/intoglo/shipment-pipeline/internal/domain"
)

// ErrUnknownState is returned when a requested state code isn't present
// in the configured state table.
var ErrUnknownState = errors.New("workflow: unknown state code")

// ErrShipmentNotFound is returned when the target shipment doesn't exist.
var ErrShipmentNotFound = errors.New("workflow: shipment not found")

// TransitionError is returned for a rejected transition, carrying enough
// detail for the caller to explain the rejection.
type TransitionError struct {
	ShipmentID   string
	CurrentState domain.WorkflowStateCode
	Requested    domain.WorkflowStateCode
	NextStates   []domain.WorkflowStateCode
	Reason       string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("workflow: invalid transition for shipment %s from %s to %s (%s); allowed: %v",
		e.ShipmentID, e.CurrentState, e.Requested, e.Reason, e.NextStates)
}
