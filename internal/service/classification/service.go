package classification

import (
	"context"
	"strings"

	"github.com/intoglo/shipment-pipeline/internal/domain"
	"github.com/intoglo/shipment-pipeline/internal/llm"
	"github.com/intoglo/shipment-pipeline/internal/pkg/logger"
)

// Input bundles everything the classification stage needs about one email.
type Input struct {
	Email               *domain.RawEmail
	Flagged             *domain.FlaggedEmail
	AttachmentFilenames []string
	AttachmentText      string
	HasNewBusinessDoc   bool // true if this email carries an attachment not seen earlier in the thread
}

// Service implements the classification cascade.
type Service struct {
	repo            Repository
	carrierDomains  CarrierDomainSource
	ownDomains      map[string]struct{}
	aiFallback      llm.Classifier
}

// NewService builds a classification service. aiFallback may be
// llm.NoopCapability{} when no LLM is configured; the cascade checks
// availability itself rather than assuming presence.
func NewService(repo Repository, carrierDomains CarrierDomainSource, ownDomains []string, aiFallback llm.Classifier) *Service {
	set := make(map[string]struct{}, len(ownDomains))
	for _, d := range ownDomains {
		set[strings.ToLower(d)] = struct{}{}
	}
	if aiFallback == nil {
		aiFallback = llm.NoopCapability{}
	}
	return &Service{repo: repo, carrierDomains: carrierDomains, ownDomains: set, aiFallback: aiFallback}
}

// Classify runs the full cascade plus emailType/senderCategory derivation,
// applies the Thread Authority Rule, and persists the result. It never
// returns an error for a malformed input — only a repository failure on
// save surfaces one, and even then the computed classification is
// returned alongside it so callers can still act on in-memory data.
func (s *Service) Classify(ctx context.Context, in Input) (*domain.DocumentClassification, error) {
	carrierDomains := s.resolveCarrierDomains(ctx)

	in2 := cascadeInput{
		Subject:             in.Flagged.CleanSubject,
		Body:                in.Email.BodyText,
		AttachmentFilenames: in.AttachmentFilenames,
		AttachmentText:      in.AttachmentText,
		SenderEmail:         in.Email.SenderEmail,
		TrueSenderEmail:     in.Flagged.TrueSenderEmail,
	}

	result := classifyDocument(in2)
	method := result.Method

	if result.Confidence < minConfidenceForCascadeSufficiency() {
		if aiResult, ok := s.tryAIFallback(ctx, in); ok {
			result = aiResult
			method = domain.MethodAIFallback
		}
	}

	emailType, emailTypeConfidence := classifyEmailType(in.Flagged.CleanSubject, in.Email.BodyText)

	category := senderCategory(in.Email.SenderEmail, in.Flagged.TrueSenderEmail, carrierDomains, s.ownDomains)

	result.DocumentType, result.Confidence = s.applyThreadAuthorityRule(ctx, in, result.DocumentType, result.Confidence)

	classification := &domain.DocumentClassification{
		EmailID:              in.Email.ID,
		DocumentType:         result.DocumentType,
		DocumentConfidence:   result.Confidence,
		ClassificationMethod: method,
		EmailType:            emailType,
		EmailTypeConfidence:  emailTypeConfidence,
		Direction:            in.Flagged.Direction,
		SenderCategory:       category,
		Sentiment:            domain.SentimentNeutral,
		IsUrgent:             detectUrgency(in.Flagged.CleanSubject, in.Email.BodyText),
		NeedsManualReview:    result.Confidence < domain.LowConfidenceThreshold,
	}

	if s.repo != nil {
		if err := s.repo.SaveClassification(ctx, classification); err != nil {
			return classification, err
		}
	}

	return classification, nil
}

// IsCarrierAttested reports whether this email's sender domain or display
// name attests direct carrier origin; the subject and body are not
// consulted. Linking's shipment-creation gate reuses this same signal.
func (s *Service) IsCarrierAttested(ctx context.Context, email *domain.RawEmail, flagged *domain.FlaggedEmail) bool {
	carrierDomains := s.resolveCarrierDomains(ctx)
	return isCarrierAttested(email.SenderEmail, flagged.TrueSenderEmail, email.SenderDisplayName, flagged.CleanSubject, email.BodyText, carrierDomains)
}

func (s *Service) resolveCarrierDomains(ctx context.Context) []string {
	if s.carrierDomains == nil {
		return nil
	}
	domains, err := s.carrierDomains.CarrierDomains(ctx)
	if err != nil {
		logger.Warn("classification: carrier domain lookup failed, using hardcoded fallback", "error", err.Error())
		return nil
	}
	return domains
}

func (s *Service) tryAIFallback(ctx context.Context, in Input) (cascadeResult, bool) {
	result, err := s.aiFallback.ClassifyDocument(ctx, llm.ClassificationRequest{
		Subject:        in.Flagged.CleanSubject,
		Body:           in.Email.BodyText,
		AttachmentText: in.AttachmentText,
	})
	if err != nil {
		logger.Debug("classification: AI fallback unavailable or failed", "email_id", in.Email.ID, "error", err.Error())
		return cascadeResult{}, false
	}
	if result.DocumentType == "" || result.Confidence == 0 {
		return cascadeResult{}, false
	}
	confidence := result.Confidence
	if confidence > 80 {
		confidence = 80
	}
	return cascadeResult{DocumentType: domain.DocumentType(result.DocumentType), Confidence: confidence}, true
}

// applyThreadAuthorityRule implements the Thread Authority Rule:
// a response email's workflow-significant documentType is overridden to
// general_correspondence when it disagrees with the thread's authoritative
// type, unless it carries a new business-document attachment.
func (s *Service) applyThreadAuthorityRule(ctx context.Context, in Input, docType domain.DocumentType, confidence int) (domain.DocumentType, int) {
	if !in.Flagged.IsResponse || s.repo == nil || in.Email.ThreadID == "" {
		return docType, confidence
	}
	if in.HasNewBusinessDoc {
		return docType, confidence
	}

	authoritative, found, err := s.repo.ThreadAuthoritativeType(ctx, in.Email.ThreadID)
	if err != nil {
		logger.Warn("classification: thread authority lookup failed", "email_id", in.Email.ID, "error", err.Error())
		return docType, confidence
	}
	if !found || authoritative == docType {
		return docType, confidence
	}

	return domain.DocGeneralCorrespondence, confidence
}

var urgentPhrases = []string{"urgent", "asap", "immediately", "time sensitive", "action required"}

func detectUrgency(subject, body string) bool {
	lower := strings.ToLower(subject + " " + body)
	for _, p := range urgentPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
