package linking_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intoglo/shipment-pipeline/internal/domain"
	"github.com/intoglo/shipment-pipeline/internal/service/linking"
)

type memRepo struct {
	mu        sync.Mutex
	shipments map[string]*domain.Shipment // keyed by bookingNumber
	byID      map[string]*domain.Shipment
	links     []*domain.ShipmentDocumentLink
	entities  map[string]map[domain.EntityType][]string // emailID -> type -> values
	nextID    int
}

func newMemRepo() *memRepo {
	return &memRepo{
		shipments: make(map[string]*domain.Shipment),
		byID:      make(map[string]*domain.Shipment),
		entities:  make(map[string]map[domain.EntityType][]string),
	}
}

func (m *memRepo) FindShipmentByBookingNumber(_ context.Context, bookingNumber string) (*domain.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shipments[bookingNumber], nil
}

func (m *memRepo) FindShipmentByMBLNumber(_ context.Context, v string) (*domain.Shipment, error) {
	return m.findBy(func(s *domain.Shipment) bool { return v != "" && s.MBLNumber == v })
}
func (m *memRepo) FindShipmentByHBLNumber(_ context.Context, v string) (*domain.Shipment, error) {
	return m.findBy(func(s *domain.Shipment) bool { return v != "" && s.HBLNumber == v })
}
func (m *memRepo) FindShipmentByContainer(_ context.Context, v string) (*domain.Shipment, error) {
	return m.findBy(func(s *domain.Shipment) bool { return s.HasContainer(v) })
}

func (m *memRepo) findBy(pred func(*domain.Shipment) bool) (*domain.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.shipments {
		if pred(s) {
			return s, nil
		}
	}
	return nil, nil
}

func (m *memRepo) UpsertShipment(_ context.Context, shipment *domain.Shipment) (*domain.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if shipment.ID == "" {
		m.nextID++
		shipment.ID = "sh" + itoa(m.nextID)
	}
	cp := *shipment
	m.shipments[shipment.BookingNumber] = &cp
	m.byID[cp.ID] = &cp
	return &cp, nil
}

func (m *memRepo) SaveLink(_ context.Context, link *domain.ShipmentDocumentLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if link.ID == "" {
		m.nextID++
		link.ID = "lk" + itoa(m.nextID)
	}
	cp := *link
	for i, l := range m.links {
		if l.ID == cp.ID {
			m.links[i] = &cp
			return nil
		}
	}
	m.links = append(m.links, &cp)
	return nil
}

func (m *memRepo) RecordAction(_ context.Context, linkID string, hasAction bool, confidence int, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.links {
		if l.ID == linkID {
			l.ActionRequired = hasAction
			l.ActionConfidence = confidence
			l.ActionSource = source
		}
	}
	return nil
}

func (m *memRepo) LinksForEmail(_ context.Context, emailID string) ([]*domain.ShipmentDocumentLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ShipmentDocumentLink
	for _, l := range m.links {
		if l.EmailID == emailID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memRepo) OrphanLinksForEntities(_ context.Context, identifiers []string) ([]*domain.ShipmentDocumentLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := make(map[string]struct{}, len(identifiers))
	for _, id := range identifiers {
		set[id] = struct{}{}
	}
	var out []*domain.ShipmentDocumentLink
	for _, l := range m.links {
		if l.IsOrphan() {
			if _, ok := set[l.BookingNumberExtracted]; ok {
				out = append(out, l)
			}
		}
	}
	return out, nil
}

func (m *memRepo) EntityValuesForEmail(_ context.Context, emailID string, entityTypes []domain.EntityType) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, t := range entityTypes {
		out = append(out, m.entities[emailID][t]...)
	}
	return out, nil
}

func (m *memRepo) EmailsWithEntityValue(_ context.Context, entityTypes []domain.EntityType, value string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for emailID, byType := range m.entities {
		for _, t := range entityTypes {
			for _, v := range byType[t] {
				if v == value {
					out = append(out, emailID)
				}
			}
		}
	}
	return out, nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func TestLinkEmail_CreatesShipmentFromDirectCarrierBooking(t *testing.T) {
	repo := newMemRepo()
	svc := linking.NewService(repo, nil)

	siCutoff := time.Date(2025, 12, 25, 10, 0, 0, 0, time.UTC)
	vgmCutoff := time.Date(2025, 12, 26, 0, 0, 0, 0, time.UTC)
	cargoCutoff := time.Date(2025, 12, 27, 0, 0, 0, 0, time.UTC)

	link, shipment, err := svc.LinkEmail(context.Background(), linking.ShipmentCreationInput{
		EmailID:            "e1",
		DocumentType:       domain.DocBookingConfirmation,
		DocumentConfidence: 92,
		CarrierAttested:    true,
		CarrierCode:        "HLCU",
		Extracted: &domain.ExtractedDocumentData{
			BookingNumber:       "22970937",
			PortOfDischargeCode: "USSAV",
			VesselName:          "RESILIENT",
			SICutoff:            &siCutoff,
			VGMCutoff:           &vgmCutoff,
			CargoCutoff:         &cargoCutoff,
		},
	})
	require.NoError(t, err)
	require.NotNil(t, shipment)
	assert.Equal(t, "22970937", shipment.BookingNumber)
	assert.Equal(t, "USSAV", shipment.PortOfDischargeCode)
	assert.Equal(t, "RESILIENT", shipment.VesselName)
	assert.Equal(t, domain.StateBookingConfirmationReceived, shipment.WorkflowState)
	assert.True(t, link.IsPrimary)
	assert.Equal(t, domain.DocBookingConfirmation, link.DocumentType)
	assert.False(t, link.IsOrphan())
}

func TestLinkEmail_RejectsCreationBelowConfidenceFloor(t *testing.T) {
	repo := newMemRepo()
	svc := linking.NewService(repo, nil)

	link, shipment, err := svc.LinkEmail(context.Background(), linking.ShipmentCreationInput{
		EmailID:            "e2",
		DocumentType:       domain.DocBookingConfirmation,
		DocumentConfidence: 60,
		CarrierAttested:    true,
		Extracted:          &domain.ExtractedDocumentData{BookingNumber: "99999999"},
	})
	require.NoError(t, err)
	assert.Nil(t, shipment)
	assert.True(t, link.IsOrphan())
	assert.Equal(t, "99999999", link.BookingNumberExtracted)
}

func TestLinkEmail_RejectsCreationWithoutCarrierAttestation(t *testing.T) {
	repo := newMemRepo()
	svc := linking.NewService(repo, nil)

	_, shipment, err := svc.LinkEmail(context.Background(), linking.ShipmentCreationInput{
		EmailID:            "e3",
		DocumentType:       domain.DocBookingConfirmation,
		DocumentConfidence: 92,
		CarrierAttested:    false,
		Extracted:          &domain.ExtractedDocumentData{BookingNumber: "12345678"},
	})
	require.NoError(t, err)
	assert.Nil(t, shipment)
}

func TestCreateOrUpdateShipment_AmendmentRecordsRevision(t *testing.T) {
	repo := newMemRepo()
	svc := linking.NewService(repo, nil)

	oldETD := time.Date(2025, 12, 30, 0, 0, 0, 0, time.UTC)
	created, err := svc.CreateOrUpdateShipment(context.Background(), linking.ShipmentCreationInput{
		EmailID:            "e4",
		DocumentType:       domain.DocBookingConfirmation,
		DocumentConfidence: 90,
		CarrierAttested:    true,
		Extracted:          &domain.ExtractedDocumentData{BookingNumber: "263815227", ETD: &oldETD},
	})
	require.NoError(t, err)
	require.NotNil(t, created)

	newETD := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	amended, err := svc.CreateOrUpdateShipment(context.Background(), linking.ShipmentCreationInput{
		EmailID:            "e5",
		DocumentType:       domain.DocBookingConfirmation,
		DocumentConfidence: 90,
		CarrierAttested:    true,
		Extracted:          &domain.ExtractedDocumentData{BookingNumber: "263815227", ETD: &newETD},
	})
	require.NoError(t, err)
	require.NotNil(t, amended)
	assert.Equal(t, newETD, *amended.ETD)
	assert.Equal(t, 1, amended.BookingRevisionCount)
	require.Len(t, amended.Revisions, 1)
	assert.Equal(t, "etd", amended.Revisions[0].Field)
	assert.Equal(t, "2025-12-30T00:00:00Z", amended.Revisions[0].OldValue)
	assert.Equal(t, "2026-01-05T00:00:00Z", amended.Revisions[0].NewValue)
}

func TestCreateOrUpdateShipment_RejectsMissingBookingNumber(t *testing.T) {
	repo := newMemRepo()
	svc := linking.NewService(repo, nil)

	_, err := svc.CreateOrUpdateShipment(context.Background(), linking.ShipmentCreationInput{
		DocumentType:       domain.DocBookingConfirmation,
		DocumentConfidence: 90,
		CarrierAttested:    true,
		Extracted:          &domain.ExtractedDocumentData{},
	})
	assert.ErrorIs(t, err, linking.ErrMissingBookingNumber)
}

func TestLinkEmail_OrphanHBLPromotedWhenShipmentLaterCreated(t *testing.T) {
	repo := newMemRepo()
	svc := linking.NewService(repo, nil)

	link, shipment, err := svc.LinkEmail(context.Background(), linking.ShipmentCreationInput{
		EmailID:      "e6",
		DocumentType: domain.DocHBLDraft,
		Extracted:    &domain.ExtractedDocumentData{HBLNumber: "SE1025002852"},
	})
	require.NoError(t, err)
	assert.Nil(t, shipment)
	require.True(t, link.IsOrphan())
	assert.Equal(t, "SE1025002852", link.BookingNumberExtracted)

	_, created, err := svc.LinkEmail(context.Background(), linking.ShipmentCreationInput{
		EmailID:            "e7",
		DocumentType:       domain.DocBookingConfirmation,
		DocumentConfidence: 92,
		CarrierAttested:    true,
		Extracted:          &domain.ExtractedDocumentData{BookingNumber: "263815227", HBLNumber: "SE1025002852"},
	})
	require.NoError(t, err)
	require.NotNil(t, created)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	var promoted bool
	for _, l := range repo.links {
		if l.EmailID == "e6" && l.ShipmentID == created.ID {
			promoted = true
		}
	}
	assert.True(t, promoted, "orphan HBL link should be promoted once the shipment is created")
}

func TestLinkEmail_ReprocessingDoesNotDuplicateLinks(t *testing.T) {
	repo := newMemRepo()
	svc := linking.NewService(repo, nil)

	in := linking.ShipmentCreationInput{
		EmailID:            "e8",
		DocumentType:       domain.DocBookingConfirmation,
		DocumentConfidence: 92,
		CarrierAttested:    true,
		Extracted:          &domain.ExtractedDocumentData{BookingNumber: "22970937"},
	}

	first, shipment, err := svc.LinkEmail(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, shipment)

	second, _, err := svc.LinkEmail(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "re-processing must reuse the existing link row")

	links, err := repo.LinksForEmail(context.Background(), "e8")
	require.NoError(t, err)
	assert.Len(t, links, 1, "at most one link per (email, shipment)")
}

func TestLinkEmail_ReprocessingReusesOrphanRow(t *testing.T) {
	repo := newMemRepo()
	svc := linking.NewService(repo, nil)

	in := linking.ShipmentCreationInput{
		EmailID:      "e9",
		DocumentType: domain.DocHBL,
		Extracted:    &domain.ExtractedDocumentData{HBLNumber: "SE1025009999"},
	}

	first, shipment, err := svc.LinkEmail(context.Background(), in)
	require.NoError(t, err)
	require.Nil(t, shipment)
	require.True(t, first.IsOrphan())

	second, _, err := svc.LinkEmail(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	links, err := repo.LinksForEmail(context.Background(), "e9")
	require.NoError(t, err)
	assert.Len(t, links, 1, "re-processing an unmatched email must not stack orphan rows")
}

func TestDedupeLinks_PrefersCreatedFromEmail(t *testing.T) {
	links := []*domain.ShipmentDocumentLink{
		{ShipmentID: "s1", LinkConfidence: 90},
		{ShipmentID: "s2", LinkConfidence: 50},
	}
	best := linking.DedupeLinks(links, "s2", "subject text")
	assert.Equal(t, "s2", best.ShipmentID)
}

func TestDedupeLinks_FallsBackToHighestConfidence(t *testing.T) {
	links := []*domain.ShipmentDocumentLink{
		{ShipmentID: "s1", LinkConfidence: 90},
		{ShipmentID: "s2", LinkConfidence: 95},
	}
	best := linking.DedupeLinks(links, "", "irrelevant")
	assert.Equal(t, "s2", best.ShipmentID)
}
