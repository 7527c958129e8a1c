package flagging

import (
	"context"

	"github.com/intoglo/shipment-pipeline/internal/domain"
)

// Repository defines the data access contract flagging needs: counting
// prior thread messages for ThreadPosition, and persisting the computed
// flags back onto their owning rows.
type Repository interface {
	// CountPriorInThread returns the number of emails in threadID whose
	// receivedAt is strictly before the given email's receivedAt.
	CountPriorInThread(ctx context.Context, threadID, beforeEmailID string) (int, error)

	// SaveFlaggedEmail persists the computed flags for an email.
	SaveFlaggedEmail(ctx context.Context, f *domain.FlaggedEmail) error

	// SaveFlaggedAttachment persists the computed flags for an attachment.
	SaveFlaggedAttachment(ctx context.Context, f *domain.FlaggedAttachment) error

	// SetBusinessAttachmentCount recomputes and stores the business
	// attachment count on the owning email.
	SetBusinessAttachmentCount(ctx context.Context, emailID string, count int) error
}

// ContentSource fetches an attachment's raw bytes by StorageRef, so
// ClassifyAttachment can decode image dimensions for the signature-image
// heuristic. Optional: a nil ContentSource (or a fetch failure) just
// leaves that signal out, falling back to the filename/size heuristics
// alone.
type ContentSource interface {
	FetchAttachmentBytes(ctx context.Context, storageRef string) ([]byte, error)
}
