package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/intoglo/shipment-pipeline/internal/domain"
)

// FlaggingRepo implements flagging.Repository against PostgreSQL.
type FlaggingRepo struct{ db *sql.DB }

// NewFlaggingRepo creates a Postgres-backed flagging repository.
func NewFlaggingRepo(db *sql.DB) *FlaggingRepo { return &FlaggingRepo{db: db} }

func (r *FlaggingRepo) CountPriorInThread(ctx context.Context, threadID, beforeEmailID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM emails e1
		WHERE e1.thread_id = $1
		  AND e1.received_at < (SELECT received_at FROM emails WHERE id = $2)
	`, threadID, beforeEmailID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count prior in thread: %w", err)
	}
	return count, nil
}

func (r *FlaggingRepo) SaveFlaggedEmail(ctx context.Context, f *domain.FlaggedEmail) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO flagged_emails
			(email_id, is_response, clean_subject, direction, thread_position,
			 responds_to_email_id, true_sender_email, content_hash, flagged_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (email_id) DO UPDATE SET
			is_response = EXCLUDED.is_response,
			clean_subject = EXCLUDED.clean_subject,
			direction = EXCLUDED.direction,
			thread_position = EXCLUDED.thread_position,
			responds_to_email_id = EXCLUDED.responds_to_email_id,
			true_sender_email = EXCLUDED.true_sender_email,
			content_hash = EXCLUDED.content_hash,
			flagged_at = EXCLUDED.flagged_at
	`, f.EmailID, f.IsResponse, f.CleanSubject, f.Direction, f.ThreadPosition,
		nullString(f.RespondsToEmailID), nullString(f.TrueSenderEmail), f.ContentHash, f.FlaggedAt)
	if err != nil {
		return fmt.Errorf("save flagged email: %w", err)
	}
	return nil
}

func (r *FlaggingRepo) SaveFlaggedAttachment(ctx context.Context, f *domain.FlaggedAttachment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO flagged_attachments (attachment_id, is_signature_image, is_business_doc, flagged_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (attachment_id) DO UPDATE SET
			is_signature_image = EXCLUDED.is_signature_image,
			is_business_doc = EXCLUDED.is_business_doc,
			flagged_at = EXCLUDED.flagged_at
	`, f.AttachmentID, f.IsSignatureImage, f.IsBusinessDoc, f.FlaggedAt)
	if err != nil {
		return fmt.Errorf("save flagged attachment: %w", err)
	}
	return nil
}

func (r *FlaggingRepo) SetBusinessAttachmentCount(ctx context.Context, emailID string, count int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE emails SET business_attachment_count = $1 WHERE id = $2
	`, count, emailID)
	if err != nil {
		return fmt.Errorf("set business attachment count: %w", err)
	}
	return nil
}
