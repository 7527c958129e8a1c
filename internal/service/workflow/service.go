package workflow

import (
	"context"
	"time"

	"github.com/intoglo/shipment-pipeline/internal/cache"
	"github.com/intoglo/shipment-pipeline/internal/domain"
	"github.com/intoglo/shipment-pipeline/internal/pkg/distlock"
	"github.com/intoglo/shipment-pipeline/internal/pkg/logger"
)

// ConfigTTL is how long the state/transition tables are cached before
// being reloaded from ConfigSource.
const ConfigTTL = 10 * time.Minute

type workflowConfig struct {
	states        map[domain.WorkflowStateCode]domain.WorkflowState
	ordered       []domain.WorkflowState
	docTransition map[DocumentTransitionKey]domain.WorkflowStateCode
	emailTransition map[domain.EmailType]domain.WorkflowStateCode
}

// TransitionOptions controls validation relaxations for a single
// transitionTo call.
type TransitionOptions struct {
	SkipValidation bool
	TriggeredBy    domain.TransitionTrigger
	TriggeringEmailID string
	Notes             string
}

// Service implements the configured state DAG and its transition rules.
type Service struct {
	repo        Repository
	config      *cache.TTLCache[workflowConfig]
	lockFactory func(key string) distlock.DistLock
}

// NewService builds a workflow service. lockFactory may be nil (acceptable
// for single-process/test use; production wiring serializes concurrent
// transitions per shipment via distlock.WorkflowKey).
func NewService(repo Repository, source ConfigSource, lockFactory func(key string) distlock.DistLock) *Service {
	loader := func(ctx context.Context) (workflowConfig, error) {
		states, err := source.WorkflowStates(ctx)
		if err != nil {
			return workflowConfig{}, err
		}
		docT, err := source.DocumentTypeTransitions(ctx)
		if err != nil {
			return workflowConfig{}, err
		}
		emailT, err := source.EmailTypeTransitions(ctx)
		if err != nil {
			return workflowConfig{}, err
		}
		cfg := workflowConfig{
			states:          make(map[domain.WorkflowStateCode]domain.WorkflowState, len(states)),
			ordered:         states,
			docTransition:   docT,
			emailTransition: emailT,
		}
		for _, st := range states {
			cfg.states[st.Code] = st
		}
		return cfg, nil
	}
	return &Service{repo: repo, config: cache.New(ConfigTTL, loader), lockFactory: lockFactory}
}

// TransitionTo validates and applies a transition, serialized per
// shipment so two concurrent emails can't race each other's state writes.
func (s *Service) TransitionTo(ctx context.Context, shipmentID string, newState domain.WorkflowStateCode, opts TransitionOptions) (*domain.Shipment, error) {
	lock := s.acquireLock(ctx, shipmentID)
	if lock != nil {
		defer lock.Release(ctx)
	}

	shipment, err := s.repo.GetShipment(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if shipment == nil {
		return nil, ErrShipmentNotFound
	}

	cfg, err := s.config.Get(ctx)
	if err != nil {
		return nil, err
	}

	target, ok := cfg.states[newState]
	if !ok {
		return nil, ErrUnknownState
	}
	current, ok := cfg.states[shipment.WorkflowState]
	if !ok {
		return nil, ErrUnknownState
	}

	if !opts.SkipValidation {
		if err := validateTransition(cfg, current, target, shipment.ID); err != nil {
			return nil, err
		}
	}

	transition := &domain.WorkflowTransition{
		ShipmentID:        shipmentID,
		FromState:         shipment.WorkflowState,
		ToState:           newState,
		TriggeredBy:       opts.TriggeredBy,
		TriggeringEmailID: opts.TriggeringEmailID,
		OccurredAt:        time.Now().UTC(),
		Notes:             opts.Notes,
	}
	if transition.TriggeredBy == "" {
		transition.TriggeredBy = domain.TriggerUser
	}

	if err := s.repo.ApplyTransition(ctx, transition, target.Phase); err != nil {
		return nil, err
	}

	shipment.WorkflowState = newState
	shipment.WorkflowPhase = target.Phase
	return shipment, nil
}

// validateTransition enforces that newState must be in current.NextStates,
// or every intermediate state (by stateOrder) must be optional. Backward
// transitions are always rejected here (callers
// that need to move backward, e.g. into booking_cancelled, must pass
// SkipValidation).
func validateTransition(cfg workflowConfig, current, target domain.WorkflowState, shipmentID string) error {
	if target.StateOrder < current.StateOrder {
		return &TransitionError{
			ShipmentID: shipmentID, CurrentState: current.Code, Requested: target.Code,
			NextStates: current.NextStates, Reason: "backward transition requires skipValidation",
		}
	}
	for _, next := range current.NextStates {
		if next == target.Code {
			return nil
		}
	}
	if allIntermediateOptional(cfg, current, target) {
		return nil
	}
	return &TransitionError{
		ShipmentID: shipmentID, CurrentState: current.Code, Requested: target.Code,
		NextStates: current.NextStates, Reason: "not in nextStates and an intermediate state is mandatory",
	}
}

func allIntermediateOptional(cfg workflowConfig, current, target domain.WorkflowState) bool {
	for _, st := range cfg.ordered {
		if st.StateOrder > current.StateOrder && st.StateOrder < target.StateOrder {
			if !st.IsOptional {
				return false
			}
		}
	}
	return true
}

// AutoTransitionFromDocument runs the document-triggered auto-transition:
// finds states requiring documentType whose stateOrder
// exceeds the current one, picks the lowest such order, and transitions
// there with SkipValidation set (document triggers are trusted).
func (s *Service) AutoTransitionFromDocument(ctx context.Context, shipmentID string, documentType domain.DocumentType, emailID string) (*domain.Shipment, error) {
	shipment, err := s.repo.GetShipment(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if shipment == nil {
		return nil, ErrShipmentNotFound
	}
	cfg, err := s.config.Get(ctx)
	if err != nil {
		return nil, err
	}
	current, ok := cfg.states[shipment.WorkflowState]
	if !ok {
		return nil, ErrUnknownState
	}

	target, found := lowestQualifyingState(cfg, current, documentType)
	if !found {
		return shipment, nil
	}

	return s.TransitionTo(ctx, shipmentID, target.Code, TransitionOptions{
		SkipValidation: true, TriggeredBy: domain.TriggerDocumentType, TriggeringEmailID: emailID,
	})
}

func lowestQualifyingState(cfg workflowConfig, current domain.WorkflowState, documentType domain.DocumentType) (domain.WorkflowState, bool) {
	var best domain.WorkflowState
	found := false
	for _, st := range cfg.ordered {
		if st.StateOrder <= current.StateOrder {
			continue
		}
		if !requiresDocType(st, documentType) {
			continue
		}
		if !found || st.StateOrder < best.StateOrder {
			best = st
			found = true
		}
	}
	return best, found
}

func requiresDocType(st domain.WorkflowState, documentType domain.DocumentType) bool {
	for _, d := range st.RequiresDocumentTypes {
		if d == documentType {
			return true
		}
	}
	return false
}

// TransitionFromClassification implements the dual-trigger variant:
// consults both the documentType and emailType transition
// tables; when both map to a target, the higher stateOrder wins. Records
// which trigger fired via TriggeredBy.
func (s *Service) TransitionFromClassification(ctx context.Context, shipmentID string, documentType domain.DocumentType, direction domain.Direction, emailType domain.EmailType, emailID string) (*domain.Shipment, error) {
	cfg, err := s.config.Get(ctx)
	if err != nil {
		return nil, err
	}

	docTarget, docOK := cfg.docTransition[DocumentTransitionKey{DocumentType: documentType, Direction: direction}]
	emailTarget, emailOK := cfg.emailTransition[emailType]

	switch {
	case docOK && emailOK:
		docState, dok := cfg.states[docTarget]
		emailState, eok := cfg.states[emailTarget]
		if dok && eok {
			if docState.StateOrder >= emailState.StateOrder {
				return s.TransitionTo(ctx, shipmentID, docTarget, TransitionOptions{TriggeredBy: domain.TriggerDocumentType, TriggeringEmailID: emailID})
			}
			return s.TransitionTo(ctx, shipmentID, emailTarget, TransitionOptions{TriggeredBy: domain.TriggerEmailType, TriggeringEmailID: emailID})
		}
		fallthrough
	case docOK:
		return s.TransitionTo(ctx, shipmentID, docTarget, TransitionOptions{TriggeredBy: domain.TriggerDocumentType, TriggeringEmailID: emailID})
	case emailOK:
		return s.TransitionTo(ctx, shipmentID, emailTarget, TransitionOptions{TriggeredBy: domain.TriggerEmailType, TriggeringEmailID: emailID})
	default:
		return s.repo.GetShipment(ctx, shipmentID)
	}
}

// Progress maps a shipment's current stateOrder linearly onto [0, 100],
// reporting 100 for terminal states.
func (s *Service) Progress(ctx context.Context, shipment *domain.Shipment) (int, error) {
	if shipment.IsTerminal() {
		return 100, nil
	}
	cfg, err := s.config.Get(ctx)
	if err != nil {
		return 0, err
	}
	if len(cfg.ordered) == 0 {
		return 0, nil
	}
	maxOrder := 0
	for _, st := range cfg.ordered {
		if st.StateOrder > maxOrder {
			maxOrder = st.StateOrder
		}
	}
	current, ok := cfg.states[shipment.WorkflowState]
	if !ok || maxOrder == 0 {
		return 0, nil
	}
	pct := current.StateOrder * 100 / maxOrder
	if pct > 100 {
		pct = 100
	}
	return pct, nil
}

func (s *Service) acquireLock(ctx context.Context, shipmentID string) distlock.DistLock {
	if s.lockFactory == nil {
		return nil
	}
	lock := s.lockFactory(distlock.WorkflowKey(shipmentID))
	ok, err := lock.Acquire(ctx)
	if err != nil || !ok {
		logger.Warn("workflow: lock acquisition failed, proceeding unserialized", "shipment_id", shipmentID)
		return nil
	}
	return lock
}
