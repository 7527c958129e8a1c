package orchestrator

import (
	"context"

	"github.com/intoglo/shipment-pipeline/internal/domain"
)

// Repository is the orchestrator's own persistence boundary: reading raw
// emails/attachments and writing back ProcessingStatus. Every other
// persistence concern belongs to the stage service that owns it.
type Repository interface {
	GetEmail(ctx context.Context, emailID string) (*domain.RawEmail, error)
	GetAttachments(ctx context.Context, emailID string) ([]*domain.RawAttachment, error)

	// SetProcessingStatus records the email's terminal (or intermediate)
	// status plus an optional reason, e.g. for manual_review/failed.
	SetProcessingStatus(ctx context.Context, emailID string, status domain.ProcessingStatus, reason string) error

	// ExistingClassification returns a prior classification for emailID, if
	// the orchestrator is re-entering an already-classified email: a prior
	// classification is reused rather than re-running the cascade.
	ExistingClassification(ctx context.Context, emailID string) (*domain.DocumentClassification, bool, error)

	// EmailsNeedingProcessing selects up to limit emails with
	// ProcessingStatus in {pending, classified}.
	EmailsNeedingProcessing(ctx context.Context, limit int) ([]string, error)
}
