package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/intoglo/shipment-pipeline/internal/cache"
	"github.com/intoglo/shipment-pipeline/internal/domain"
)

// ClassificationRepo implements classification.Repository against
// PostgreSQL.
type ClassificationRepo struct{ db *sql.DB }

// NewClassificationRepo creates a Postgres-backed classification
// repository.
func NewClassificationRepo(db *sql.DB) *ClassificationRepo { return &ClassificationRepo{db: db} }

func (r *ClassificationRepo) ThreadAuthoritativeType(ctx context.Context, threadID string) (domain.DocumentType, bool, error) {
	var docType string
	err := r.db.QueryRowContext(ctx, `
		SELECT dc.document_type
		FROM document_classifications dc
		JOIN emails e ON e.id = dc.email_id
		JOIN flagged_emails fe ON fe.email_id = e.id
		WHERE e.thread_id = $1 AND fe.is_response = false
		ORDER BY e.received_at ASC
		LIMIT 1
	`, threadID).Scan(&docType)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("thread authoritative type: %w", err)
	}
	return domain.DocumentType(docType), true, nil
}

func (r *ClassificationRepo) SaveClassification(ctx context.Context, c *domain.DocumentClassification) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO document_classifications
			(email_id, document_type, document_confidence, classification_method,
			 email_type, email_type_confidence, direction, sender_category,
			 sentiment, is_urgent, needs_manual_review)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (email_id) DO UPDATE SET
			document_type = EXCLUDED.document_type,
			document_confidence = EXCLUDED.document_confidence,
			classification_method = EXCLUDED.classification_method,
			email_type = EXCLUDED.email_type,
			email_type_confidence = EXCLUDED.email_type_confidence,
			direction = EXCLUDED.direction,
			sender_category = EXCLUDED.sender_category,
			sentiment = EXCLUDED.sentiment,
			is_urgent = EXCLUDED.is_urgent,
			needs_manual_review = EXCLUDED.needs_manual_review
	`, c.EmailID, c.DocumentType, c.DocumentConfidence, c.ClassificationMethod,
		c.EmailType, c.EmailTypeConfidence, c.Direction, c.SenderCategory,
		c.Sentiment, c.IsUrgent, c.NeedsManualReview)
	if err != nil {
		return fmt.Errorf("save classification: %w", err)
	}
	return nil
}

// CarrierDomainRepo implements classification.CarrierDomainSource, reading
// the operator-maintained carrier_domains table. The caller wraps this in
// a TTL cache; on a query failure it's the wrapper's choice whether to
// serve a stale cached value or let DetectCarrierCode's own hardcoded
// fallback take over.
type CarrierDomainRepo struct{ db *sql.DB }

// NewCarrierDomainRepo creates a Postgres-backed carrier domain source.
func NewCarrierDomainRepo(db *sql.DB) *CarrierDomainRepo { return &CarrierDomainRepo{db: db} }

func (r *CarrierDomainRepo) CarrierDomains(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT domain FROM carrier_domains WHERE active = true`)
	if err != nil {
		return nil, fmt.Errorf("list carrier domains: %w", err)
	}
	defer rows.Close()

	var domains []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan carrier domain: %w", err)
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}

// CachedCarrierDomainSource wraps CarrierDomainRepo in a TTL cache, since
// classification.Service calls CarrierDomains on every email rather than
// caching it itself.
type CachedCarrierDomainSource struct {
	cache *cache.TTLCache[[]string]
}

// NewCachedCarrierDomainSource builds a TTL-cached carrier domain source
// backed by db.
func NewCachedCarrierDomainSource(db *sql.DB, ttl time.Duration) *CachedCarrierDomainSource {
	repo := NewCarrierDomainRepo(db)
	return &CachedCarrierDomainSource{cache: cache.New(ttl, repo.CarrierDomains)}
}

func (c *CachedCarrierDomainSource) CarrierDomains(ctx context.Context) ([]string, error) {
	return c.cache.Get(ctx)
}
