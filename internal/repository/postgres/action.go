package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/intoglo/shipment-pipeline/internal/domain"
	"github.com/intoglo/shipment-pipeline/internal/service/insight"
)

// ActionRepo implements insight.ActionRepository against the
// document_type_action_rules, action_completion_keywords, and
// action_lookup tables.
type ActionRepo struct{ db *sql.DB }

// NewActionRepo creates a Postgres-backed action-determination repository.
func NewActionRepo(db *sql.DB) *ActionRepo { return &ActionRepo{db: db} }

func (r *ActionRepo) LookupExact(ctx context.Context, documentType domain.DocumentType, category domain.SenderCategory) (insight.ActionRule, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT has_action, confidence FROM action_lookup
		WHERE document_type = $1 AND sender_category = $2
	`, documentType, category)

	var rule insight.ActionRule
	err := row.Scan(&rule.HasAction, &rule.Confidence)
	if err == sql.ErrNoRows {
		return insight.ActionRule{}, false, nil
	}
	if err != nil {
		return insight.ActionRule{}, false, fmt.Errorf("lookup exact action: %w", err)
	}
	return rule, true, nil
}

func (r *ActionRepo) DefaultForDocumentType(ctx context.Context, documentType domain.DocumentType) (insight.ActionRule, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT has_action, confidence FROM document_type_action_rules WHERE document_type = $1
	`, documentType)

	var rule insight.ActionRule
	err := row.Scan(&rule.HasAction, &rule.Confidence)
	if err == sql.ErrNoRows {
		return insight.ActionRule{}, false, nil
	}
	if err != nil {
		return insight.ActionRule{}, false, fmt.Errorf("default action for document type: %w", err)
	}
	return rule, true, nil
}

func (r *ActionRepo) CompletionKeywords(ctx context.Context, documentType domain.DocumentType) ([]string, []string, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT flip_to_action, flip_to_no_action FROM action_completion_keywords WHERE document_type = $1
	`, documentType)

	var flipToAction, flipToNoAction pq.StringArray
	err := row.Scan(&flipToAction, &flipToNoAction)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("completion keywords: %w", err)
	}
	return flipToAction, flipToNoAction, nil
}

func (r *ActionRepo) HistoricalActions(ctx context.Context, documentType domain.DocumentType, limit int) ([]insight.HistoricalActionSample, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.body_text, l.action_required
		FROM shipment_document_links l
		JOIN document_classifications c ON c.email_id = l.email_id
		JOIN raw_emails e ON e.id = l.email_id
		WHERE c.document_type = $1 AND l.action_source IS NOT NULL
		ORDER BY l.created_at DESC
		LIMIT $2
	`, documentType, limit)
	if err != nil {
		return nil, fmt.Errorf("historical actions: %w", err)
	}
	defer rows.Close()

	var out []insight.HistoricalActionSample
	for rows.Next() {
		var s insight.HistoricalActionSample
		if err := rows.Scan(&s.Text, &s.HasAction); err != nil {
			return nil, fmt.Errorf("scan historical action: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
