package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/intoglo/shipment-pipeline/internal/config"
	"github.com/intoglo/shipment-pipeline/internal/domain"
	"github.com/intoglo/shipment-pipeline/internal/embedding"
	"github.com/intoglo/shipment-pipeline/internal/pipeline"
	"github.com/intoglo/shipment-pipeline/internal/pkg/logger"
	"github.com/intoglo/shipment-pipeline/internal/service/classification"
	"github.com/intoglo/shipment-pipeline/internal/service/extraction"
	"github.com/intoglo/shipment-pipeline/internal/service/flagging"
	"github.com/intoglo/shipment-pipeline/internal/service/insight"
	"github.com/intoglo/shipment-pipeline/internal/service/linking"
	"github.com/intoglo/shipment-pipeline/internal/service/workflow"
)

// Service sequences the six pipeline stages for one email at a time and
// drives a bounded worker pool across a batch of emails.
type Service struct {
	repo           Repository
	flagging       *flagging.Service
	classification *classification.Service
	extraction     *extraction.Service
	linking        *linking.Service
	workflow       *workflow.Service
	insight        *insight.Service
	forwarderName  string
	batch          config.BatchConfig
	actionRepo     insight.ActionRepository
	embedder       embedding.Embedder
}

// NewService wires the six stage services behind the orchestrator's own
// Repository for raw email/attachment reads and status writes. actionRepo
// and embedder may be nil: action determination then falls back to the
// phrase-matching and nearest-neighbor cascade steps only.
func NewService(
	repo Repository,
	flaggingSvc *flagging.Service,
	classificationSvc *classification.Service,
	extractionSvc *extraction.Service,
	linkingSvc *linking.Service,
	workflowSvc *workflow.Service,
	insightSvc *insight.Service,
	forwarderName string,
	batch config.BatchConfig,
	actionRepo insight.ActionRepository,
	embedder embedding.Embedder,
) *Service {
	return &Service{
		repo: repo, flagging: flaggingSvc, classification: classificationSvc,
		extraction: extractionSvc, linking: linkingSvc, workflow: workflowSvc,
		insight: insightSvc, forwarderName: forwarderName, batch: batch,
		actionRepo: actionRepo, embedder: embedder,
	}
}

// ProcessEmail runs the full per-email pipeline. It never panics or
// returns an error out of the top-level call; every
// failure mode is folded into the returned ProcessingResult.
func (s *Service) ProcessEmail(ctx context.Context, emailID string) (result ProcessingResult) {
	result = ProcessingResult{EmailID: emailID}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("orchestrator: panic processing email", "email_id", emailID, "panic", fmt.Sprintf("%v", r))
			result.Success = false
			result.Error = fmt.Sprintf("panic: %v", r)
			_ = s.repo.SetProcessingStatus(ctx, emailID, domain.ProcessingFailed, result.Error)
		}
	}()

	email, err := s.repo.GetEmail(ctx, emailID)
	if err != nil {
		return s.fail(ctx, result, "", err)
	}
	if email == nil {
		return s.fail(ctx, result, "", ErrEmailNotFound)
	}

	attachments, err := s.repo.GetAttachments(ctx, emailID)
	if err != nil {
		return s.fail(ctx, result, pipeline.StageFlagging, err)
	}

	flagged, err := s.flagging.FlagEmail(ctx, email)
	if err != nil {
		return s.fail(ctx, result, pipeline.StageFlagging, err)
	}
	flaggedAttachments, err := s.flagging.FlagAttachments(ctx, emailID, attachments)
	if err != nil {
		logger.Warn("orchestrator: attachment flagging failed, continuing", "email_id", emailID, "error", err.Error())
	}

	docClassification, err := s.classify(ctx, email, flagged, attachments, flaggedAttachments)
	if err != nil {
		return s.fail(ctx, result, pipeline.StageClassification, err)
	}
	result.Stage = pipeline.StageClassification

	if docClassification.DocumentConfidence < domain.LowConfidenceThreshold {
		_ = s.repo.SetProcessingStatus(ctx, emailID, domain.ProcessingManualReview, "classification confidence below manual-review floor")
		result.Success = true
		return result
	}

	attachmentText := concatAttachmentText(attachments)
	extracted, err := s.extraction.Extract(ctx, extraction.Input{
		EmailID: emailID, Subject: email.Subject, BodyText: email.BodyText,
		AttachmentText: attachmentText, DocumentType: docClassification.DocumentType,
		ForwarderName: s.forwarderName,
	})
	if err != nil {
		return s.fail(ctx, result, pipeline.StageExtraction, err)
	}
	result.Stage = pipeline.StageExtraction
	result.FieldsExtracted = len(extracted.Entities)

	// A mid-confidence booking confirmation keeps its extracted entities
	// but skips shipment creation; needs_review is its terminal status, so
	// nothing past this point may overwrite it with processed.
	if docClassification.DocumentType == domain.DocBookingConfirmation &&
		docClassification.DocumentConfidence < linking.CreateConfidenceFloor {
		_ = s.repo.SetProcessingStatus(ctx, emailID, domain.ProcessingNeedsReview, "booking confirmation below shipment-creation confidence floor")
		result.Success = true
		return result
	}

	carrierAttested := s.classification.IsCarrierAttested(ctx, email, flagged)
	carrierCode := classification.DetectCarrierCode(email.SenderEmail, flagged.TrueSenderEmail, email.BodyText)

	link, shipment, err := s.linking.LinkEmail(ctx, linking.ShipmentCreationInput{
		EmailID: emailID, DocumentType: docClassification.DocumentType,
		DocumentConfidence: docClassification.DocumentConfidence, CarrierAttested: carrierAttested,
		Extracted: extracted, CarrierCode: carrierCode,
	})
	if err != nil {
		return s.fail(ctx, result, pipeline.StageLinking, err)
	}
	result.Stage = pipeline.StageLinking

	if link != nil && link.ID != "" && docClassification.Direction == domain.DirectionInbound {
		actionResult := insight.DetermineAction(ctx, s.actionRepo, insight.ActionRequest{
			DocumentType: docClassification.DocumentType, SenderCategory: docClassification.SenderCategory,
			BodyText: email.BodyText, Embedder: s.embedder,
		})
		if err := s.linking.RecordAction(ctx, link.ID, actionResult.HasAction, actionResult.Confidence, actionResult.Source); err != nil {
			logger.Warn("orchestrator: recording action determination failed", "email_id", emailID, "error", err.Error())
		}
	}

	if shipment == nil {
		_ = s.repo.SetProcessingStatus(ctx, emailID, domain.ProcessingProcessed, "")
		result.Success = true
		return result
	}
	result.ShipmentID = shipment.ID

	if _, err := s.workflow.TransitionFromClassification(ctx, shipment.ID, docClassification.DocumentType, docClassification.Direction, docClassification.EmailType, emailID); err != nil {
		logger.Warn("orchestrator: workflow transition failed, shipment link still recorded", "email_id", emailID, "shipment_id", shipment.ID, "error", err.Error())
	} else {
		result.Stage = pipeline.StageWorkflow
	}

	if _, err := s.insight.RefreshInsights(ctx, shipment.ID, false); err != nil {
		logger.Warn("orchestrator: insight refresh failed", "email_id", emailID, "shipment_id", shipment.ID, "error", err.Error())
	} else {
		result.Stage = pipeline.StageInsight
	}

	_ = s.repo.SetProcessingStatus(ctx, emailID, domain.ProcessingProcessed, "")
	result.Success = true
	return result
}

// classify returns a prior classification when one already exists for
// emailID, otherwise runs the cascade.
func (s *Service) classify(ctx context.Context, email *domain.RawEmail, flagged *domain.FlaggedEmail, attachments []*domain.RawAttachment, flaggedAttachments []*domain.FlaggedAttachment) (*domain.DocumentClassification, error) {
	if existing, found, err := s.repo.ExistingClassification(ctx, email.ID); err != nil {
		return nil, err
	} else if found {
		return existing, nil
	}

	in := classification.Input{
		Email: email, Flagged: flagged,
		AttachmentFilenames: attachmentFilenames(attachments),
		AttachmentText:      concatAttachmentText(attachments),
		HasNewBusinessDoc:   hasNewBusinessDoc(flaggedAttachments),
	}
	return s.classification.Classify(ctx, in)
}

func (s *Service) fail(ctx context.Context, result ProcessingResult, stage pipeline.Stage, err error) ProcessingResult {
	result.Success = false
	result.Error = err.Error()
	if stage != "" {
		result.Stage = stage
	}
	_ = s.repo.SetProcessingStatus(ctx, result.EmailID, domain.ProcessingFailed, err.Error())
	return result
}

func attachmentFilenames(attachments []*domain.RawAttachment) []string {
	names := make([]string, 0, len(attachments))
	for _, a := range attachments {
		names = append(names, a.Filename)
	}
	return names
}

func concatAttachmentText(attachments []*domain.RawAttachment) string {
	var b strings.Builder
	for _, a := range attachments {
		if a.ExtractedText == "" {
			continue
		}
		b.WriteString(a.ExtractedText)
		b.WriteString("\n")
	}
	return b.String()
}

func hasNewBusinessDoc(flaggedAttachments []*domain.FlaggedAttachment) bool {
	for _, f := range flaggedAttachments {
		if f.IsBusinessDoc {
			return true
		}
	}
	return false
}

// GetEmailsNeedingProcessing returns up to limit email IDs with
// ProcessingStatus in {pending, classified}.
func (s *Service) GetEmailsNeedingProcessing(ctx context.Context, limit int) ([]string, error) {
	return s.repo.EmailsNeedingProcessing(ctx, limit)
}

// ProcessBatch runs ProcessEmail across emailIDs with a bounded worker
// pool, each worker pacing itself by at least config.BatchConfig's
// inter-email delay between consecutive emails.
// onProgress, when non-nil, is invoked once per completed email from
// whichever worker goroutine finished it.
func (s *Service) ProcessBatch(ctx context.Context, emailIDs []string, onProgress func(ProcessingResult)) []ProcessingResult {
	workers := s.batch.WorkerPoolSize
	if workers <= 0 {
		workers = 1
	}
	if workers > len(emailIDs) {
		workers = len(emailIDs)
	}
	if workers == 0 {
		return nil
	}

	jobs := make(chan string)
	results := make([]ProcessingResult, len(emailIDs))

	var wg sync.WaitGroup
	var mu sync.Mutex
	indexByID := make(map[string]int, len(emailIDs))
	for i, id := range emailIDs {
		indexByID[id] = i
	}

	delay := s.batch.InterEmailDelay()
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for emailID := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				result := s.ProcessEmail(ctx, emailID)
				mu.Lock()
				results[indexByID[emailID]] = result
				mu.Unlock()
				if onProgress != nil {
					onProgress(result)
				}
				time.Sleep(delay)
			}
		}()
	}

	for _, id := range emailIDs {
		jobs <- id
	}
	close(jobs)
	wg.Wait()

	return results
}
