package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/intoglo/shipment-pipeline/internal/domain"
)

// ExtractionRepo implements extraction.Repository against PostgreSQL.
type ExtractionRepo struct{ db *sql.DB }

// NewExtractionRepo creates a Postgres-backed extraction repository.
func NewExtractionRepo(db *sql.DB) *ExtractionRepo { return &ExtractionRepo{db: db} }

// ReplaceEntities deletes any prior entities for emailID, then inserts the
// new set, inside one transaction so a crash mid-write never leaves the
// email with a half-replaced entity set.
func (r *ExtractionRepo) ReplaceEntities(ctx context.Context, emailID string, entities []domain.ExtractedEntity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace entities: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM extracted_entities WHERE email_id = $1`, emailID); err != nil {
		return fmt.Errorf("delete prior entities: %w", err)
	}

	for _, e := range entities {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO extracted_entities
				(email_id, attachment_id, entity_type, value, confidence,
				 extraction_method, source_field, extracted_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, e.EmailID, nullString(e.AttachmentID), e.EntityType, e.Value, e.Confidence,
			e.ExtractionMethod, e.SourceField, e.ExtractedAt)
		if err != nil {
			return fmt.Errorf("insert entity %s: %w", e.EntityType, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace entities: %w", err)
	}
	return nil
}
