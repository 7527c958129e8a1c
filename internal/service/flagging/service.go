package flagging

import (
	"context"
	"strings"
	"time"

	"github.com/intoglo/shipment-pipeline/internal/config"
	"github.com/intoglo/shipment-pipeline/internal/domain"
	"github.com/intoglo/shipment-pipeline/internal/pkg/logger"
)

// Service implements the flagging stage: cheap deterministic triage over a
// RawEmail and its RawAttachments, run once per email on first pipeline
// entry.
type Service struct {
	repo       Repository
	content    ContentSource
	ownDomains map[string]struct{}
	batch      config.BatchConfig
}

// NewService builds a flagging service. ownDomains are lowercased and
// matched against the sender's domain to resolve Direction. content may be
// nil, in which case signature-image detection relies on filename/size
// heuristics alone. batch paces attachment flag writes; a zero value uses
// the defaults.
func NewService(repo Repository, content ContentSource, ownDomains []string, batch config.BatchConfig) *Service {
	set := make(map[string]struct{}, len(ownDomains))
	for _, d := range ownDomains {
		set[strings.ToLower(d)] = struct{}{}
	}
	return &Service{repo: repo, content: content, ownDomains: set, batch: batch}
}

// FlagEmail computes and persists a FlaggedEmail. It never returns an error
// for recognizable shapes; only a repository failure on save surfaces one.
func (s *Service) FlagEmail(ctx context.Context, email *domain.RawEmail) (*domain.FlaggedEmail, error) {
	cleanSubject, subjectStripped := stripReplyForwardPrefixes(email.Subject)

	_, hasInReplyTo := email.Headers["In-Reply-To"]
	if !hasInReplyTo && email.InReplyTo != "" {
		hasInReplyTo = true
	}

	isResponse := subjectStripped || hasInReplyTo || bodyLeadsWithQuotedHeader(email.BodyText)

	direction := domain.DirectionInbound
	if s.isOwnDomain(email.SenderEmail) {
		direction = domain.DirectionOutbound
	}

	trueSender := ""
	if isResponse {
		trueSender = extractTrueSender(email.BodyText)
	}

	threadPosition := 1
	if email.ThreadID != "" && s.repo != nil {
		count, err := s.repo.CountPriorInThread(ctx, email.ThreadID, email.ID)
		if err != nil {
			logger.Warn("flagging: thread position lookup failed", "email_id", email.ID, "error", err.Error())
		} else {
			threadPosition = count + 1
		}
	}

	flagged := &domain.FlaggedEmail{
		EmailID:         email.ID,
		IsResponse:      isResponse,
		CleanSubject:    cleanSubject,
		Direction:       direction,
		ThreadPosition:  threadPosition,
		TrueSenderEmail: trueSender,
		ContentHash:     contentHash(cleanSubject, email.BodyText),
		FlaggedAt:       time.Now(),
	}

	if s.repo != nil {
		if err := s.repo.SaveFlaggedEmail(ctx, flagged); err != nil {
			return flagged, err
		}
	}

	return flagged, nil
}

// ClassifyAttachment computes and persists a FlaggedAttachment.
func (s *Service) ClassifyAttachment(ctx context.Context, att *domain.RawAttachment) (*domain.FlaggedAttachment, error) {
	signature := isSignatureImage(att.MimeType, att.Filename, att.SizeBytes)
	if !signature && s.content != nil && att.StorageRef != "" && strings.HasPrefix(strings.ToLower(att.MimeType), imageMimePrefix) {
		data, err := s.content.FetchAttachmentBytes(ctx, att.StorageRef)
		if err != nil {
			logger.Warn("flagging: attachment content fetch failed, skipping image-dimension signal", "attachment_id", att.ID, "error", err.Error())
		} else if isSmallDecodedImage(data) {
			signature = true
		}
	}

	flagged := &domain.FlaggedAttachment{
		AttachmentID:     att.ID,
		IsBusinessDoc:    isBusinessDocument(att.MimeType, att.Filename),
		IsSignatureImage: signature,
		FlaggedAt:        time.Now(),
	}

	if s.repo != nil {
		if err := s.repo.SaveFlaggedAttachment(ctx, flagged); err != nil {
			return flagged, err
		}
	}

	return flagged, nil
}

// FlagAttachments classifies every attachment, recomputes the business
// attachment count, and persists it on the owning email. Writes are
// chunked into batch-sized groups with a pause between groups to smooth
// load on the store.
func (s *Service) FlagAttachments(ctx context.Context, emailID string, attachments []*domain.RawAttachment) ([]*domain.FlaggedAttachment, error) {
	flagged := make([]*domain.FlaggedAttachment, 0, len(attachments))
	businessCount := 0

	batchSize := s.batch.AttachmentBatch()
	for start := 0; start < len(attachments); start += batchSize {
		end := start + batchSize
		if end > len(attachments) {
			end = len(attachments)
		}
		for _, att := range attachments[start:end] {
			f, err := s.ClassifyAttachment(ctx, att)
			if err != nil {
				logger.Warn("flagging: attachment classification failed", "attachment_id", att.ID, "error", err.Error())
				continue
			}
			flagged = append(flagged, f)
			if f.IsBusinessDoc {
				businessCount++
			}
		}
		if end < len(attachments) {
			time.Sleep(s.batch.AttachmentBatchPause())
		}
	}

	if s.repo != nil {
		if err := s.repo.SetBusinessAttachmentCount(ctx, emailID, businessCount); err != nil {
			return flagged, err
		}
	}

	return flagged, nil
}

func (s *Service) isOwnDomain(senderEmail string) bool {
	at := strings.LastIndex(senderEmail, "@")
	if at < 0 {
		return false
	}
	domain := strings.ToLower(senderEmail[at+1:])
	_, ok := s.ownDomains[domain]
	return ok
}
