package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intoglo/shipment-pipeline/internal/domain"
)

func TestOrchestratorRepo_EmailsNeedingProcessing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrchestratorRepo(db)

	mock.ExpectQuery(`processing_status IN \('pending', 'classified'\)`).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("email-1").AddRow("email-2"))

	ids, err := repo.EmailsNeedingProcessing(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"email-1", "email-2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrchestratorRepo_SetProcessingStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrchestratorRepo(db)

	mock.ExpectExec(`UPDATE emails SET processing_status = \$1`).
		WithArgs(string(domain.ProcessingManualReview), "classification confidence below manual-review floor", "email-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetProcessingStatus(context.Background(), "email-1",
		domain.ProcessingManualReview, "classification confidence below manual-review floor")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrchestratorRepo_ExistingClassification_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrchestratorRepo(db)

	mock.ExpectQuery(`FROM document_classifications WHERE email_id = \$1`).
		WithArgs("email-1").
		WillReturnRows(sqlmock.NewRows([]string{"document_type"}))

	c, found, err := repo.ExistingClassification(context.Background(), "email-1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, c)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrchestratorRepo_ExistingClassification_Found(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrchestratorRepo(db)

	mock.ExpectQuery(`FROM document_classifications WHERE email_id = \$1`).
		WithArgs("email-7").
		WillReturnRows(sqlmock.NewRows([]string{
			"document_type", "document_confidence", "classification_method", "email_type",
			"email_type_confidence", "direction", "sender_category", "sentiment", "is_urgent", "needs_manual_review",
		}).AddRow("booking_confirmation", 90, "subject", "confirmation", 85, "inbound", "carrier", "neutral", false, false))

	c, found, err := repo.ExistingClassification(context.Background(), "email-7")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "email-7", c.EmailID)
	assert.Equal(t, domain.DocBookingConfirmation, c.DocumentType)
	assert.Equal(t, 90, c.DocumentConfidence)
	assert.Equal(t, domain.DirectionInbound, c.Direction)
	assert.NoError(t, mock.ExpectationsWereMet())
}
