package domain

import "time"

// WorkflowPhase groups workflow states into the four coarse lifecycle
// phases surfaced to users.
type WorkflowPhase string

const (
	PhasePreDeparture WorkflowPhase = "pre_departure"
	PhaseInTransit    WorkflowPhase = "in_transit"
	PhaseArrival      WorkflowPhase = "arrival"
	PhaseDelivery     WorkflowPhase = "delivery"
)

// WorkflowStateCode is the closed-ish set of configured states a Shipment
// can occupy. The set is data-driven (loaded from shipment_workflow_states)
// but these constants name the states every seed configuration carries, so
// that named transitions in code compile against a concrete value.
type WorkflowStateCode string

const (
	StateBookingConfirmationReceived WorkflowStateCode = "booking_confirmation_received"
	StateSIPending                   WorkflowStateCode = "si_pending"
	StateSISubmitted                 WorkflowStateCode = "si_submitted"
	StateSIConfirmed                 WorkflowStateCode = "si_confirmed"
	StateVGMSubmitted                WorkflowStateCode = "vgm_submitted"
	StateVGMConfirmed                WorkflowStateCode = "vgm_confirmed"
	StateHBLDraftIssued              WorkflowStateCode = "hbl_draft_issued"
	StateHBLIssued                   WorkflowStateCode = "hbl_issued"
	StateInTransit                   WorkflowStateCode = "in_transit"
	StateArrivalNoticeReceived       WorkflowStateCode = "arrival_notice_received"
	StateCustomsEntryFiled           WorkflowStateCode = "customs_entry_filed"
	StateDeliveryOrderIssued         WorkflowStateCode = "delivery_order_issued"
	StatePODReceived                 WorkflowStateCode = "pod_received"
	StateBookingCancelled            WorkflowStateCode = "booking_cancelled"
)

// WorkflowState is the configuration row for one state in the DAG.
type WorkflowState struct {
	Code                  WorkflowStateCode
	Phase                 WorkflowPhase
	StateOrder            int // monotonic
	IsOptional            bool
	IsMilestone           bool
	NextStates            []WorkflowStateCode
	RequiresDocumentTypes []DocumentType
}

// TransitionTrigger records what kind of signal caused a transition.
type TransitionTrigger string

const (
	TriggerDocumentType TransitionTrigger = "documentType"
	TriggerEmailType    TransitionTrigger = "emailType"
	TriggerUser         TransitionTrigger = "user"
)

// WorkflowTransition is one append-only row in a shipment's history. The
// sequence of these, ordered by OccurredAt, must have non-decreasing
// StateOrder except for transitions into booking_cancelled, which can
// happen from any state.
type WorkflowTransition struct {
	ID              string
	ShipmentID      string
	FromState       WorkflowStateCode
	ToState         WorkflowStateCode
	TriggeredBy     TransitionTrigger
	TriggeringEmailID string
	OccurredAt      time.Time
	Notes           string
}
