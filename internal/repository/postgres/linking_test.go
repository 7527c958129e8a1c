package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intoglo/shipment-pipeline/internal/domain"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var shipmentRowColumns = []string{
	"id", "booking_number", "mbl_number", "hbl_number", "carrier_code",
	"vessel_name", "voyage_number",
	"port_of_loading", "port_of_loading_code", "port_of_discharge", "port_of_discharge_code",
	"etd", "eta", "si_cutoff", "vgm_cutoff", "cargo_cutoff", "gate_cutoff", "doc_cutoff",
	"shipper_name", "shipper_address", "consignee_name", "consignee_address",
	"notify_party_name", "notify_party_address",
	"container_number_primary", "container_numbers",
	"workflow_state", "workflow_phase", "status",
	"is_direct_carrier_confirmed", "created_from_email_id", "booking_revision_count",
	"revisions", "created_at", "updated_at",
}

func shipmentRow(t *testing.T, bookingNumber string) *sqlmock.Rows {
	t.Helper()
	now := time.Now().UTC()
	return sqlmock.NewRows(shipmentRowColumns).AddRow(
		"ship-1", bookingNumber, "MAEU123456789", "SE1025002852", "HLCU",
		"RESILIENT", "25W",
		"Savannah", "USSAV", "Nhava Sheva", "INNSA",
		nil, nil, nil, nil, nil, nil, nil,
		"Acme Exports", "", "Beta Imports", "", "", "",
		"HLXU1234567", []byte("{HLXU1234567}"),
		string(domain.StateBookingConfirmationReceived), string(domain.PhasePreDeparture), string(domain.StatusBooked),
		true, "email-1", 0,
		[]byte("[]"), now, now,
	)
}

func TestLinkingRepo_FindShipmentByBookingNumber(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLinkingRepo(db)

	mock.ExpectQuery(`FROM shipments WHERE booking_number = \$1`).
		WithArgs("22970937").
		WillReturnRows(shipmentRow(t, "22970937"))

	s, err := repo.FindShipmentByBookingNumber(context.Background(), "22970937")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "22970937", s.BookingNumber)
	assert.Equal(t, []string{"HLXU1234567"}, s.ContainerNumbers)
	assert.Equal(t, domain.StateBookingConfirmationReceived, s.WorkflowState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkingRepo_FindShipmentByBookingNumber_NoMatch(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLinkingRepo(db)

	mock.ExpectQuery(`FROM shipments WHERE booking_number = \$1`).
		WithArgs("99999999").
		WillReturnRows(sqlmock.NewRows(shipmentRowColumns))

	s, err := repo.FindShipmentByBookingNumber(context.Background(), "99999999")
	require.NoError(t, err)
	assert.Nil(t, s, "no-rows lookup must return nil, not an error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkingRepo_FindShipmentBy_EmptyValueSkipsQuery(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLinkingRepo(db)

	s, err := repo.FindShipmentByMBLNumber(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.NoError(t, mock.ExpectationsWereMet(), "empty key must not hit the database")
}

func TestLinkingRepo_FindShipmentByContainer_MatchesMemberSet(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLinkingRepo(db)

	mock.ExpectQuery(`container_number_primary = \$1 OR \$1 = ANY\(container_numbers\)`).
		WithArgs("HLXU1234567").
		WillReturnRows(shipmentRow(t, "22970937"))

	s, err := repo.FindShipmentByContainer(context.Background(), "HLXU1234567")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.True(t, s.HasContainer("HLXU1234567"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkingRepo_UpsertShipment_KeyedOnBookingNumber(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLinkingRepo(db)

	mock.ExpectQuery(`INSERT INTO shipments(.+)ON CONFLICT \(booking_number\) DO UPDATE SET`).
		WillReturnRows(shipmentRow(t, "263815227"))

	stored, err := repo.UpsertShipment(context.Background(), &domain.Shipment{
		BookingNumber: "263815227",
		CarrierCode:   "HLCU",
		WorkflowState: domain.StateBookingConfirmationReceived,
		WorkflowPhase: domain.PhasePreDeparture,
		Status:        domain.StatusBooked,
	})
	require.NoError(t, err)
	assert.Equal(t, "263815227", stored.BookingNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkingRepo_UpsertShipment_AssignsIDWhenMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLinkingRepo(db)

	mock.ExpectQuery(`INSERT INTO shipments`).WillReturnRows(shipmentRow(t, "263815227"))

	shipment := &domain.Shipment{BookingNumber: "263815227"}
	_, err := repo.UpsertShipment(context.Background(), shipment)
	require.NoError(t, err)
	assert.NotEmpty(t, shipment.ID, "upsert must mint an ID for a new shipment")
}

func TestLinkingRepo_SaveLink_Orphan(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLinkingRepo(db)

	mock.ExpectExec(`INSERT INTO shipment_document_links`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	link := &domain.ShipmentDocumentLink{
		EmailID:                "email-9",
		DocumentType:           domain.DocHBL,
		LinkMethod:             domain.LinkOrphan,
		BookingNumberExtracted: "263815227",
	}
	require.NoError(t, repo.SaveLink(context.Background(), link))
	assert.NotEmpty(t, link.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkingRepo_OrphanLinksForEntities_EmptyInput(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLinkingRepo(db)

	links, err := repo.OrphanLinksForEntities(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, links)
	assert.NoError(t, mock.ExpectationsWereMet(), "no identifiers must mean no query")
}

func TestLinkingRepo_RecordAction(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLinkingRepo(db)

	mock.ExpectExec(`UPDATE shipment_document_links SET action_required`).
		WithArgs(true, 80, "lookup", "link-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RecordAction(context.Background(), "link-1", true, 80, "lookup"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
