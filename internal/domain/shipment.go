package domain

import "time"

// ShipmentStatus is the coarse, near-terminal status surfaced to users.
// It is derived from, but coarser than, WorkflowState.
type ShipmentStatus string

const (
	StatusBooked     ShipmentStatus = "booked"
	StatusInTransit  ShipmentStatus = "in_transit"
	StatusArrived    ShipmentStatus = "arrived"
	StatusDelivered  ShipmentStatus = "delivered"
	StatusCancelled  ShipmentStatus = "cancelled"
)

// RevisionEntry records one field-level change made by a booking amendment;
// older values are retained, never silently dropped.
type RevisionEntry struct {
	Field     string
	OldValue  string
	NewValue  string
	EmailID   string
	OccurredAt time.Time
}

// Shipment is the root aggregate of the pipeline's output model. It owns
// its container list, cutoffs, party denormalizations, workflow state, and
// revision history exclusively — nothing else writes to these fields.
type Shipment struct {
	ID             string
	BookingNumber  string // unique, I1
	MBLNumber      string
	HBLNumber      string
	CarrierCode    string

	VesselName   string
	VoyageNumber string

	PortOfLoading       string
	PortOfLoadingCode   string
	PortOfDischarge     string
	PortOfDischargeCode string

	ETD *time.Time
	ETA *time.Time

	SICutoff    *time.Time
	VGMCutoff   *time.Time
	CargoCutoff *time.Time
	GateCutoff  *time.Time
	DocCutoff   *time.Time

	ShipperName        string
	ShipperAddress     string
	ConsigneeName      string
	ConsigneeAddress   string
	NotifyPartyName    string
	NotifyPartyAddress string

	ContainerNumberPrimary string
	ContainerNumbers       []string // ordered set, primary first

	WorkflowState WorkflowStateCode
	WorkflowPhase WorkflowPhase
	Status        ShipmentStatus

	IsDirectCarrierConfirmed bool
	CreatedFromEmailID       string
	BookingRevisionCount     int
	Revisions                []RevisionEntry

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsTerminal reports whether the shipment has reached a state from which
// the workflow no longer advances.
func (s *Shipment) IsTerminal() bool {
	return s.WorkflowState == StatePODReceived || s.WorkflowState == StateBookingCancelled
}

// HasContainer reports whether n is the primary container or a member of
// the ordered container set.
func (s *Shipment) HasContainer(n string) bool {
	if n == "" {
		return false
	}
	if s.ContainerNumberPrimary == n {
		return true
	}
	for _, c := range s.ContainerNumbers {
		if c == n {
			return true
		}
	}
	return false
}
