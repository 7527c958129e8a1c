package workflow_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intoglo/shipment-pipeline/internal/domain"
	"github.com/intoglo/shipment-pipeline/internal/service/workflow"
)

func seedStates() []domain.WorkflowState {
	return []domain.WorkflowState{
		{Code: domain.StateBookingConfirmationReceived, Phase: domain.PhasePreDeparture, StateOrder: 10, NextStates: []domain.WorkflowStateCode{domain.StateSIPending}},
		{Code: domain.StateSIPending, Phase: domain.PhasePreDeparture, StateOrder: 20, IsOptional: true, NextStates: []domain.WorkflowStateCode{domain.StateSISubmitted}},
		{Code: domain.StateSISubmitted, Phase: domain.PhasePreDeparture, StateOrder: 30, NextStates: []domain.WorkflowStateCode{domain.StateVGMSubmitted}, RequiresDocumentTypes: []domain.DocumentType{domain.DocSIConfirmation}},
		{Code: domain.StateVGMSubmitted, Phase: domain.PhasePreDeparture, StateOrder: 40, NextStates: []domain.WorkflowStateCode{domain.StateInTransit}},
		{Code: domain.StateInTransit, Phase: domain.PhaseInTransit, StateOrder: 50, NextStates: []domain.WorkflowStateCode{domain.StatePODReceived, domain.StateBookingCancelled}},
		{Code: domain.StatePODReceived, Phase: domain.PhaseDelivery, StateOrder: 100, NextStates: nil},
		{Code: domain.StateBookingCancelled, Phase: domain.PhaseDelivery, StateOrder: 5, NextStates: nil},
	}
}

type stubConfigSource struct{}

func (stubConfigSource) WorkflowStates(context.Context) ([]domain.WorkflowState, error) {
	return seedStates(), nil
}
func (stubConfigSource) DocumentTypeTransitions(context.Context) (map[workflow.DocumentTransitionKey]domain.WorkflowStateCode, error) {
	return map[workflow.DocumentTransitionKey]domain.WorkflowStateCode{
		{DocumentType: domain.DocSIConfirmation, Direction: domain.DirectionInbound}: domain.StateSISubmitted,
	}, nil
}
func (stubConfigSource) EmailTypeTransitions(context.Context) (map[domain.EmailType]domain.WorkflowStateCode, error) {
	return map[domain.EmailType]domain.WorkflowStateCode{
		domain.EmailCorrespondence: domain.StateSIPending,
	}, nil
}

type memRepo struct {
	mu         sync.Mutex
	shipments  map[string]*domain.Shipment
	transitions []*domain.WorkflowTransition
	failApply  bool
}

func newMemRepo() *memRepo {
	return &memRepo{shipments: make(map[string]*domain.Shipment)}
}

func (m *memRepo) GetShipment(_ context.Context, shipmentID string) (*domain.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shipments[shipmentID], nil
}

func (m *memRepo) ApplyTransition(_ context.Context, transition *domain.WorkflowTransition, newPhase domain.WorkflowPhase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failApply {
		return assertErr
	}
	m.transitions = append(m.transitions, transition)
	if sh, ok := m.shipments[transition.ShipmentID]; ok {
		sh.WorkflowState = transition.ToState
		sh.WorkflowPhase = newPhase
	}
	return nil
}

var assertErr = &testApplyError{}

type testApplyError struct{}

func (*testApplyError) Error() string { return "apply failed" }

func TestTransitionTo_FollowsNextStates(t *testing.T) {
	repo := newMemRepo()
	repo.shipments["s1"] = &domain.Shipment{ID: "s1", WorkflowState: domain.StateBookingConfirmationReceived}
	svc := workflow.NewService(repo, stubConfigSource{}, nil)

	shipment, err := svc.TransitionTo(context.Background(), "s1", domain.StateSIPending, workflow.TransitionOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.StateSIPending, shipment.WorkflowState)
	require.Len(t, repo.transitions, 1)
	assert.Equal(t, domain.StateBookingConfirmationReceived, repo.transitions[0].FromState)
}

func TestTransitionTo_RejectsSkipOverMandatoryIntermediate(t *testing.T) {
	repo := newMemRepo()
	repo.shipments["s2"] = &domain.Shipment{ID: "s2", WorkflowState: domain.StateBookingConfirmationReceived}
	svc := workflow.NewService(repo, stubConfigSource{}, nil)

	_, err := svc.TransitionTo(context.Background(), "s2", domain.StateVGMSubmitted, workflow.TransitionOptions{})
	require.Error(t, err)
	var tErr *workflow.TransitionError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, domain.StateBookingConfirmationReceived, tErr.CurrentState)
}

func TestTransitionTo_RejectsBackwardWithoutSkipValidation(t *testing.T) {
	repo := newMemRepo()
	repo.shipments["s3"] = &domain.Shipment{ID: "s3", WorkflowState: domain.StateInTransit}
	svc := workflow.NewService(repo, stubConfigSource{}, nil)

	_, err := svc.TransitionTo(context.Background(), "s3", domain.StateBookingConfirmationReceived, workflow.TransitionOptions{})
	require.Error(t, err)
}

func TestTransitionTo_AllowsBackwardToBookingCancelledWithSkipValidation(t *testing.T) {
	repo := newMemRepo()
	repo.shipments["s4"] = &domain.Shipment{ID: "s4", WorkflowState: domain.StateInTransit}
	svc := workflow.NewService(repo, stubConfigSource{}, nil)

	shipment, err := svc.TransitionTo(context.Background(), "s4", domain.StateBookingCancelled, workflow.TransitionOptions{SkipValidation: true})
	require.NoError(t, err)
	assert.Equal(t, domain.StateBookingCancelled, shipment.WorkflowState)
}

func TestAutoTransitionFromDocument_PicksLowestQualifyingState(t *testing.T) {
	repo := newMemRepo()
	repo.shipments["s5"] = &domain.Shipment{ID: "s5", WorkflowState: domain.StateBookingConfirmationReceived}
	svc := workflow.NewService(repo, stubConfigSource{}, nil)

	shipment, err := svc.AutoTransitionFromDocument(context.Background(), "s5", domain.DocSIConfirmation, "email-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateSISubmitted, shipment.WorkflowState)
	assert.Equal(t, domain.TriggerDocumentType, repo.transitions[0].TriggeredBy)
}

func TestTransitionFromClassification_HigherStateOrderWins(t *testing.T) {
	repo := newMemRepo()
	repo.shipments["s6"] = &domain.Shipment{ID: "s6", WorkflowState: domain.StateBookingConfirmationReceived}
	svc := workflow.NewService(repo, stubConfigSource{}, nil)

	shipment, err := svc.TransitionFromClassification(context.Background(), "s6", domain.DocSIConfirmation, domain.DirectionInbound, domain.EmailCorrespondence, "email-2")
	require.NoError(t, err)
	assert.Equal(t, domain.StateSISubmitted, shipment.WorkflowState)
}

func TestProgress_TerminalStateReportsFull(t *testing.T) {
	repo := newMemRepo()
	svc := workflow.NewService(repo, stubConfigSource{}, nil)
	shipment := &domain.Shipment{WorkflowState: domain.StatePODReceived}
	pct, err := svc.Progress(context.Background(), shipment)
	require.NoError(t, err)
	assert.Equal(t, 100, pct)
}

func TestProgress_LinearBetweenStates(t *testing.T) {
	repo := newMemRepo()
	svc := workflow.NewService(repo, stubConfigSource{}, nil)
	shipment := &domain.Shipment{WorkflowState: domain.StateVGMSubmitted}
	pct, err := svc.Progress(context.Background(), shipment)
	require.NoError(t, err)
	assert.Equal(t, 40, pct)
}
