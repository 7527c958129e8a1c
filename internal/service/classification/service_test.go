package classification_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intoglo/shipment-pipeline/internal/domain"
	"github.com/intoglo/shipment-pipeline/internal/llm"
	"github.com/intoglo/shipment-pipeline/internal/service/classification"
)

type memRepo struct {
	mu              sync.Mutex
	authoritative   map[string]domain.DocumentType
	classifications map[string]*domain.DocumentClassification
}

func newMemRepo() *memRepo {
	return &memRepo{authoritative: make(map[string]domain.DocumentType), classifications: make(map[string]*domain.DocumentClassification)}
}

func (m *memRepo) ThreadAuthoritativeType(_ context.Context, threadID string) (domain.DocumentType, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dt, ok := m.authoritative[threadID]
	return dt, ok, nil
}

func (m *memRepo) SaveClassification(_ context.Context, c *domain.DocumentClassification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.classifications[c.EmailID] = &cp
	return nil
}

type stubCarrierDomains struct{ domains []string }

func (s stubCarrierDomains) CarrierDomains(context.Context) ([]string, error) { return s.domains, nil }

func TestClassify_BookingConfirmationBySubjectPattern(t *testing.T) {
	repo := newMemRepo()
	svc := classification.NewService(repo, stubCarrierDomains{}, []string{"intoglo.com"}, nil)

	email := &domain.RawEmail{ID: "e1", ThreadID: "t1", SenderEmail: "digital-business@hlag.com", BodyText: "SI closing: 25-Dec-2025 10:00"}
	flagged := &domain.FlaggedEmail{EmailID: "e1", CleanSubject: "HL-22970937 USSAV RESILIENT", Direction: domain.DirectionInbound}

	result, err := svc.Classify(context.Background(), classification.Input{Email: email, Flagged: flagged})
	require.NoError(t, err)
	assert.Equal(t, domain.DocBookingConfirmation, result.DocumentType)
	assert.Equal(t, domain.MethodSubject, result.ClassificationMethod)
	assert.GreaterOrEqual(t, result.DocumentConfidence, 70)
	assert.Equal(t, domain.SenderCarrier, result.SenderCategory)
}

func TestClassify_AttachmentFilenameWinsOverSubject(t *testing.T) {
	repo := newMemRepo()
	svc := classification.NewService(repo, stubCarrierDomains{}, nil, nil)

	email := &domain.RawEmail{ID: "e2", SenderEmail: "ops@carrier.com"}
	flagged := &domain.FlaggedEmail{EmailID: "e2", CleanSubject: "documents attached", Direction: domain.DirectionInbound}

	result, err := svc.Classify(context.Background(), classification.Input{
		Email: email, Flagged: flagged,
		AttachmentFilenames: []string{"Booking_Confirmation_12345.pdf"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DocBookingConfirmation, result.DocumentType)
	assert.Equal(t, domain.MethodAttachmentFilename, result.ClassificationMethod)
	assert.Equal(t, 95, result.DocumentConfidence)
}

func TestClassify_UnmatchedCascadeMarksManualReview(t *testing.T) {
	repo := newMemRepo()
	svc := classification.NewService(repo, stubCarrierDomains{}, nil, nil)

	email := &domain.RawEmail{ID: "e3", SenderEmail: "random@example.com"}
	flagged := &domain.FlaggedEmail{EmailID: "e3", CleanSubject: "hello there", Direction: domain.DirectionInbound}

	result, err := svc.Classify(context.Background(), classification.Input{Email: email, Flagged: flagged})
	require.NoError(t, err)
	assert.Equal(t, domain.DocUnknown, result.DocumentType)
	assert.True(t, result.NeedsManualReview)
}

func TestClassify_ThreadAuthorityOverridesDisagreeingResponse(t *testing.T) {
	repo := newMemRepo()
	repo.authoritative["t1"] = domain.DocBookingConfirmation
	svc := classification.NewService(repo, stubCarrierDomains{}, nil, nil)

	email := &domain.RawEmail{ID: "e4", ThreadID: "t1", SenderEmail: "ops@carrier.com"}
	flagged := &domain.FlaggedEmail{EmailID: "e4", CleanSubject: "vgm cut-off reminder", Direction: domain.DirectionInbound, IsResponse: true}

	result, err := svc.Classify(context.Background(), classification.Input{Email: email, Flagged: flagged, HasNewBusinessDoc: false})
	require.NoError(t, err)
	assert.Equal(t, domain.DocGeneralCorrespondence, result.DocumentType)
}

func TestClassify_ThreadAuthorityDoesNotOverrideWithNewBusinessDoc(t *testing.T) {
	repo := newMemRepo()
	repo.authoritative["t1"] = domain.DocBookingConfirmation
	svc := classification.NewService(repo, stubCarrierDomains{}, nil, nil)

	email := &domain.RawEmail{ID: "e5", ThreadID: "t1", SenderEmail: "ops@carrier.com"}
	flagged := &domain.FlaggedEmail{EmailID: "e5", CleanSubject: "vgm cut-off reminder", Direction: domain.DirectionInbound, IsResponse: true}

	result, err := svc.Classify(context.Background(), classification.Input{
		Email: email, Flagged: flagged, HasNewBusinessDoc: true,
		AttachmentFilenames: []string{"vgm_confirmation.pdf"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DocVGMConfirmation, result.DocumentType)
}

type stubAIClassifier struct {
	result llm.ClassificationResult
	err    error
}

func (s stubAIClassifier) ClassifyDocument(context.Context, llm.ClassificationRequest) (llm.ClassificationResult, error) {
	return s.result, s.err
}

func TestClassify_AIFallbackInvokedWhenCascadeExhausted(t *testing.T) {
	repo := newMemRepo()
	ai := stubAIClassifier{result: llm.ClassificationResult{DocumentType: "exception_notice", Confidence: 95}}
	svc := classification.NewService(repo, stubCarrierDomains{}, nil, ai)

	email := &domain.RawEmail{ID: "e6", SenderEmail: "ops@example.com"}
	flagged := &domain.FlaggedEmail{EmailID: "e6", CleanSubject: "unclear subject line", Direction: domain.DirectionInbound}

	result, err := svc.Classify(context.Background(), classification.Input{Email: email, Flagged: flagged})
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentType("exception_notice"), result.DocumentType)
	assert.Equal(t, domain.MethodAIFallback, result.ClassificationMethod)
	assert.Equal(t, 80, result.DocumentConfidence, "AI fallback confidence must be capped at 80")
}

func TestClassify_IsIdempotentOnIdenticalInput(t *testing.T) {
	repo := newMemRepo()
	svc := classification.NewService(repo, stubCarrierDomains{}, nil, nil)

	email := &domain.RawEmail{ID: "e7", SenderEmail: "digital-business@hlag.com"}
	flagged := &domain.FlaggedEmail{EmailID: "e7", CleanSubject: "HL-22970937 USSAV RESILIENT", Direction: domain.DirectionInbound}
	input := classification.Input{Email: email, Flagged: flagged}

	r1, err := svc.Classify(context.Background(), input)
	require.NoError(t, err)
	r2, err := svc.Classify(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, r1.DocumentType, r2.DocumentType)
	assert.Equal(t, r1.DocumentConfidence, r2.DocumentConfidence)
}
