package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intoglo/shipment-pipeline/internal/domain"
	"github.com/intoglo/shipment-pipeline/internal/service/workflow"
)

func TestWorkflowRepo_ApplyTransition_HistoryThenMutate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWorkflowRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO shipment_workflow_transitions`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE shipments SET workflow_state = \$1, workflow_phase = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ApplyTransition(context.Background(), &domain.WorkflowTransition{
		ShipmentID:  "ship-1",
		FromState:   domain.StateBookingConfirmationReceived,
		ToState:     domain.StateSISubmitted,
		TriggeredBy: domain.TriggerDocumentType,
	}, domain.PhasePreDeparture)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet(), "history insert must precede the shipment update in one transaction")
}

func TestWorkflowRepo_ApplyTransition_MissingShipmentRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWorkflowRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO shipment_workflow_transitions`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE shipments SET workflow_state`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.ApplyTransition(context.Background(), &domain.WorkflowTransition{
		ShipmentID: "ghost",
		ToState:    domain.StateSISubmitted,
	}, domain.PhasePreDeparture)
	require.ErrorIs(t, err, workflow.ErrShipmentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet(), "a zero-row shipment update must roll the history row back")
}

func TestWorkflowRepo_ApplyTransition_MutationFailureRollsBackHistory(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWorkflowRepo(db)

	boom := errors.New("disk full")
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO shipment_workflow_transitions`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE shipments SET workflow_state`).
		WillReturnError(boom)
	mock.ExpectRollback()

	err := repo.ApplyTransition(context.Background(), &domain.WorkflowTransition{
		ShipmentID: "ship-1",
		ToState:    domain.StateSISubmitted,
	}, domain.PhasePreDeparture)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkflowConfigRepo_WorkflowStates(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWorkflowConfigRepo(db)

	mock.ExpectQuery(`FROM shipment_workflow_states`).
		WillReturnRows(sqlmock.NewRows([]string{
			"code", "phase", "state_order", "is_optional", "is_milestone", "next_states", "requires_document_types",
		}).
			AddRow("booking_confirmation_received", "pre_departure", 1, false, true,
				[]byte("{si_submitted,booking_cancelled}"), []byte("{booking_confirmation}")).
			AddRow("si_submitted", "pre_departure", 2, false, false,
				[]byte("{si_confirmed}"), []byte("{si_submission,shipping_instruction}")))

	states, err := repo.WorkflowStates(context.Background())
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, domain.StateBookingConfirmationReceived, states[0].Code)
	assert.Equal(t, []domain.WorkflowStateCode{domain.StateSISubmitted, domain.StateBookingCancelled}, states[0].NextStates)
	assert.Equal(t, []domain.DocumentType{domain.DocSISubmission, domain.DocShippingInstruction}, states[1].RequiresDocumentTypes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkflowConfigRepo_DocumentTypeTransitions(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWorkflowConfigRepo(db)

	mock.ExpectQuery(`FROM shipment_document_type_transitions`).
		WillReturnRows(sqlmock.NewRows([]string{"document_type", "direction", "target_state"}).
			AddRow("si_submission", "outbound", "si_submitted").
			AddRow("arrival_notice", "inbound", "arrival_notice_received"))

	transitions, err := repo.DocumentTypeTransitions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StateSISubmitted, transitions[workflow.DocumentTransitionKey{
		DocumentType: domain.DocSISubmission, Direction: domain.DirectionOutbound,
	}])
	assert.Equal(t, domain.StateArrivalNoticeReceived, transitions[workflow.DocumentTransitionKey{
		DocumentType: domain.DocArrivalNotice, Direction: domain.DirectionInbound,
	}])
	assert.NoError(t, mock.ExpectationsWereMet())
}
