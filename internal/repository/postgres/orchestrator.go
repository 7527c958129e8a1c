package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/intoglo/shipment-pipeline/internal/domain"
)

// OrchestratorRepo implements orchestrator.Repository against PostgreSQL.
type OrchestratorRepo struct{ db *sql.DB }

// NewOrchestratorRepo creates a Postgres-backed orchestrator repository.
func NewOrchestratorRepo(db *sql.DB) *OrchestratorRepo { return &OrchestratorRepo{db: db} }

func (r *OrchestratorRepo) GetEmail(ctx context.Context, emailID string) (*domain.RawEmail, error) {
	var e domain.RawEmail
	var recipients, labels pq.StringArray
	err := r.db.QueryRowContext(ctx, `
		SELECT id, thread_id, subject, sender_email, COALESCE(sender_display_name,''),
		       COALESCE(true_sender_email,''), recipients, body_text,
		       labels, received_at, COALESCE(in_reply_to,''), has_attachments, processing_status
		FROM emails WHERE id = $1
	`, emailID).Scan(
		&e.ID, &e.ThreadID, &e.Subject, &e.SenderEmail, &e.SenderDisplayName,
		&e.TrueSenderEmail, &recipients, &e.BodyText,
		&labels, &e.ReceivedAt, &e.InReplyTo, &e.HasAttachments, &e.ProcessingStatus,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get email: %w", err)
	}
	e.Recipients = []string(recipients)
	e.Labels = []string(labels)

	e.Headers = map[string][]string{}
	headerRows, err := r.db.QueryContext(ctx, `SELECT key, value FROM email_headers WHERE email_id = $1`, emailID)
	if err != nil {
		return nil, fmt.Errorf("get email headers: %w", err)
	}
	defer headerRows.Close()
	for headerRows.Next() {
		var k, v string
		if err := headerRows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan email header: %w", err)
		}
		e.Headers[k] = append(e.Headers[k], v)
	}

	return &e, headerRows.Err()
}

func (r *OrchestratorRepo) GetAttachments(ctx context.Context, emailID string) ([]*domain.RawAttachment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email_id, filename, mime_type, size_bytes, COALESCE(storage_ref,''), COALESCE(extracted_text,'')
		FROM attachments WHERE email_id = $1
	`, emailID)
	if err != nil {
		return nil, fmt.Errorf("get attachments: %w", err)
	}
	defer rows.Close()

	var out []*domain.RawAttachment
	for rows.Next() {
		var a domain.RawAttachment
		if err := rows.Scan(&a.ID, &a.EmailID, &a.Filename, &a.MimeType, &a.SizeBytes, &a.StorageRef, &a.ExtractedText); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (r *OrchestratorRepo) SetProcessingStatus(ctx context.Context, emailID string, status domain.ProcessingStatus, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE emails SET processing_status = $1, processing_status_reason = $2, processed_at = NOW()
		WHERE id = $3
	`, status, nullString(reason), emailID)
	if err != nil {
		return fmt.Errorf("set processing status: %w", err)
	}
	return nil
}

func (r *OrchestratorRepo) ExistingClassification(ctx context.Context, emailID string) (*domain.DocumentClassification, bool, error) {
	var c domain.DocumentClassification
	c.EmailID = emailID
	err := r.db.QueryRowContext(ctx, `
		SELECT document_type, document_confidence, classification_method, email_type,
		       email_type_confidence, direction, sender_category, sentiment, is_urgent, needs_manual_review
		FROM document_classifications WHERE email_id = $1
	`, emailID).Scan(
		&c.DocumentType, &c.DocumentConfidence, &c.ClassificationMethod, &c.EmailType,
		&c.EmailTypeConfidence, &c.Direction, &c.SenderCategory, &c.Sentiment, &c.IsUrgent, &c.NeedsManualReview,
	)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("existing classification: %w", err)
	}
	return &c, true, nil
}

func (r *OrchestratorRepo) EmailsNeedingProcessing(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM emails
		WHERE processing_status IN ('pending', 'classified')
		ORDER BY received_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("emails needing processing: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan email id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
