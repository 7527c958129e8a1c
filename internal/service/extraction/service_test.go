package extraction_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intoglo/shipment-pipeline/internal/domain"
	"github.com/intoglo/shipment-pipeline/internal/service/extraction"
)

type memRepo struct {
	mu       sync.Mutex
	entities map[string][]domain.ExtractedEntity
}

func newMemRepo() *memRepo {
	return &memRepo{entities: make(map[string][]domain.ExtractedEntity)}
}

func (m *memRepo) ReplaceEntities(_ context.Context, emailID string, entities []domain.ExtractedEntity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities[emailID] = entities
	return nil
}

func TestExtract_DirectCarrierBookingConfirmation(t *testing.T) {
	repo := newMemRepo()
	svc := extraction.NewService(repo)

	result, err := svc.Extract(context.Background(), extraction.Input{
		EmailID:  "e1",
		Subject:  "HL-22970937 USSAV RESILIENT",
		BodyText: "SI closing: 25-Dec-2025 10:00\nVGM cut-off: 26-Dec-2025\nFCL delivery cut-off: 27-Dec-2025",
	})
	require.NoError(t, err)

	assert.Equal(t, "22970937", result.BookingNumber)
	assert.Equal(t, "USSAV", result.PortOfDischargeCode)
	assert.Equal(t, "RESILIENT", result.VesselName)
	require.NotNil(t, result.SICutoff)
	assert.Equal(t, time.Date(2025, 12, 25, 10, 0, 0, 0, time.UTC), *result.SICutoff)
	require.NotNil(t, result.VGMCutoff)
	assert.Equal(t, time.Date(2025, 12, 26, 0, 0, 0, 0, time.UTC), *result.VGMCutoff)
	require.NotNil(t, result.CargoCutoff)
	assert.Equal(t, time.Date(2025, 12, 27, 0, 0, 0, 0, time.UTC), *result.CargoCutoff)

	assert.NotEmpty(t, repo.entities["e1"])
}

func TestExtract_ForwardedBookingConfirmationFromSubject(t *testing.T) {
	svc := extraction.NewService(newMemRepo())

	result, err := svc.Extract(context.Background(), extraction.Input{
		EmailID: "e2",
		Subject: "Booking Confirmation : 263815227",
	})
	require.NoError(t, err)
	assert.Equal(t, "263815227", result.BookingNumber)
}

func TestExtract_IntogloDealIDPreferredOverGenericSubjectNumber(t *testing.T) {
	svc := extraction.NewService(newMemRepo())

	result, err := svc.Extract(context.Background(), extraction.Input{
		EmailID: "e3",
		Subject: "Re: Shipment update INTOGL12345678_I booking 9988776",
	})
	require.NoError(t, err)
	assert.Equal(t, "INTOGL12345678_I", result.BookingNumber)
}

func TestExtract_ContainerAndBLNumbersFromBody(t *testing.T) {
	svc := extraction.NewService(newMemRepo())

	result, err := svc.Extract(context.Background(), extraction.Input{
		EmailID:  "e4",
		BodyText: "MBL No: MAEU123456789\nHBL No: SE1234567890\nContainer: MSCU1234567 and TCLU7654321",
	})
	require.NoError(t, err)
	assert.Equal(t, "MAEU123456789", result.MBLNumber)
	assert.Equal(t, "SE1234567890", result.HBLNumber)
	assert.ElementsMatch(t, []string{"MSCU1234567", "TCLU7654321"}, result.ContainerNumbers)
}

func TestExtract_PartyBlocksOnlyForSIAndHBLDocuments(t *testing.T) {
	body := "Shipper:\nAcme Exports Pvt Ltd\n123 Harbor Road, Mumbai\n\nConsignee:\nGlobal Imports Inc\n456 Dock Street, Savannah"

	svc := extraction.NewService(newMemRepo())

	withoutGate, err := svc.Extract(context.Background(), extraction.Input{
		EmailID:      "e5",
		BodyText:     body,
		DocumentType: domain.DocBookingConfirmation,
	})
	require.NoError(t, err)
	assert.Nil(t, withoutGate.Shipper)

	withGate, err := svc.Extract(context.Background(), extraction.Input{
		EmailID:      "e6",
		BodyText:     body,
		DocumentType: domain.DocSIDraft,
	})
	require.NoError(t, err)
	require.NotNil(t, withGate.Shipper)
	assert.Equal(t, "Acme Exports Pvt Ltd", withGate.Shipper.Name)
	require.NotNil(t, withGate.Consignee)
	assert.Equal(t, "Global Imports Inc", withGate.Consignee.Name)
}

func TestExtract_PartyBlockExcludesForwarderOwnName(t *testing.T) {
	body := "Shipper:\nIntoglo Logistics Pvt Ltd\n123 Harbor Road, Mumbai"

	svc := extraction.NewService(newMemRepo())

	result, err := svc.Extract(context.Background(), extraction.Input{
		EmailID:       "e7",
		BodyText:      body,
		DocumentType:  domain.DocHBLDraft,
		ForwarderName: "Intoglo",
	})
	require.NoError(t, err)
	assert.Nil(t, result.Shipper)
}

func TestExtract_IsIdempotent(t *testing.T) {
	svc := extraction.NewService(newMemRepo())
	in := extraction.Input{
		EmailID:  "e8",
		Subject:  "HL-22970937 USSAV RESILIENT",
		BodyText: "SI closing: 25-Dec-2025 10:00",
	}

	r1, err := svc.Extract(context.Background(), in)
	require.NoError(t, err)
	r2, err := svc.Extract(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, r1.BookingNumber, r2.BookingNumber)
	assert.Equal(t, r1.SICutoff, r2.SICutoff)
}

func TestExtract_NoMatchesLeavesFieldsNil(t *testing.T) {
	svc := extraction.NewService(newMemRepo())

	result, err := svc.Extract(context.Background(), extraction.Input{EmailID: "e9", BodyText: "hello, just checking in"})
	require.NoError(t, err)
	assert.Empty(t, result.BookingNumber)
	assert.Nil(t, result.SICutoff)
	assert.Nil(t, result.Shipper)
}
