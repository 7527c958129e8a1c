package classification

import (
	"context"

	"github.com/intoglo/shipment-pipeline/internal/domain"
)

// Repository defines the data access contract classification needs: the
// Thread Authority Rule's lookup of the thread's first non-response
// classification, and persisting the 1:1 classification result.
type Repository interface {
	// ThreadAuthoritativeType returns the documentType set by the first
	// non-response email in threadID, if any has been classified yet.
	ThreadAuthoritativeType(ctx context.Context, threadID string) (domain.DocumentType, bool, error)

	// SaveClassification persists the classification result for an email,
	// replacing any prior result (classification is 1:1 with email).
	SaveClassification(ctx context.Context, c *domain.DocumentClassification) error
}

// CarrierDomainSource resolves the configured carrier domain list, backed
// by a TTL cache in production with a hardcoded fallback.
type CarrierDomainSource interface {
	CarrierDomains(ctx context.Context) ([]string, error)
}
