package linking

import (
	"context"

	"github.com/intoglo/shipment-pipeline/internal/domain"
)

// Repository is the persistence boundary for shipment resolution, creation,
// and link bookkeeping.
type Repository interface {
	FindShipmentByBookingNumber(ctx context.Context, bookingNumber string) (*domain.Shipment, error)
	FindShipmentByMBLNumber(ctx context.Context, mblNumber string) (*domain.Shipment, error)
	FindShipmentByHBLNumber(ctx context.Context, hblNumber string) (*domain.Shipment, error)
	FindShipmentByContainer(ctx context.Context, containerNumber string) (*domain.Shipment, error)

	// UpsertShipment creates a new shipment or updates the existing one
	// keyed on BookingNumber, returning the stored row. Callers diff
	// against the previous state themselves and pass the full desired
	// shipment plus any revisions to append.
	UpsertShipment(ctx context.Context, shipment *domain.Shipment) (*domain.Shipment, error)

	SaveLink(ctx context.Context, link *domain.ShipmentDocumentLink) error
	LinksForEmail(ctx context.Context, emailID string) ([]*domain.ShipmentDocumentLink, error)

	// RecordAction persists the action-determination verdict for an
	// already-saved link, invoked per inbound document email once
	// classification and linking have completed.
	RecordAction(ctx context.Context, linkID string, hasAction bool, confidence int, source string) error

	// OrphanLinksForEntities returns orphan links whose recorded booking
	// number extraction matches one of the given candidate identifiers,
	// for the backfill sweep.
	OrphanLinksForEntities(ctx context.Context, identifiers []string) ([]*domain.ShipmentDocumentLink, error)

	// EntityValuesForEmail returns the distinct extracted values of the
	// given entity types recorded for this email. The mbl/hbl/container
	// lookup steps consult stored extractions this way, not only whatever
	// the current pass just extracted.
	EntityValuesForEmail(ctx context.Context, emailID string, entityTypes []domain.EntityType) ([]string, error)

	// EmailsWithEntityValue finds emails whose stored extractions contain
	// value for one of the given entity types, used by the backfill sweep
	// to gather candidates for a newly created shipment.
	EmailsWithEntityValue(ctx context.Context, entityTypes []domain.EntityType, value string) ([]string, error)
}
