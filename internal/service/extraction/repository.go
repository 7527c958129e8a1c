package extraction

import (
	"context"

	"github.com/intoglo/shipment-pipeline/internal/domain"
)

// Repository persists extracted entities. Storage is replace-atomic per
// email: ReplaceEntities deletes any prior entities for the same emailID
// and entityType before inserting the new set, so a re-extraction never
// leaves stale entities from a previous pass mixed in with new ones.
type Repository interface {
	ReplaceEntities(ctx context.Context, emailID string, entities []domain.ExtractedEntity) error
}
