package workflow

import (
	"context"

	"github.com/intoglo/shipment-pipeline/internal/domain"
)

// ConfigSource loads the data-driven state table and transition table.
// Results are wrapped in a TTL cache by the caller, refreshed at most
// every 10 minutes.
type ConfigSource interface {
	WorkflowStates(ctx context.Context) ([]domain.WorkflowState, error)
	// DocumentTypeTransitions maps (documentType, direction) -> target state.
	DocumentTypeTransitions(ctx context.Context) (map[DocumentTransitionKey]domain.WorkflowStateCode, error)
	// EmailTypeTransitions maps emailType -> target state.
	EmailTypeTransitions(ctx context.Context) (map[domain.EmailType]domain.WorkflowStateCode, error)
}

// DocumentTransitionKey is the composite key for the document-type
// transition table.
type DocumentTransitionKey struct {
	DocumentType domain.DocumentType
	Direction    domain.Direction
}

// Repository is the persistence boundary for shipment state reads and
// transactional transition writes.
type Repository interface {
	GetShipment(ctx context.Context, shipmentID string) (*domain.Shipment, error)

	// ApplyTransition writes transition as a history row and updates the
	// shipment's WorkflowState/WorkflowPhase to newState/newPhase in a
	// single atomic unit: the history row is written before the shipment
	// is mutated, and rolled back if that mutation fails, so a transition
	// never leaves a history row with no matching state change.
	ApplyTransition(ctx context.Context, transition *domain.WorkflowTransition, newPhase domain.WorkflowPhase) error
}
