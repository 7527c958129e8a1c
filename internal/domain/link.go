package domain

import "time"

// LinkMethod records which lookup key resolved an email to a shipment,
// or "orphan" when none did yet.
type LinkMethod string

const (
	LinkByBookingNumber LinkMethod = "booking_number"
	LinkByMBLNumber     LinkMethod = "mbl_number"
	LinkByHBLNumber     LinkMethod = "hbl_number"
	LinkByContainer     LinkMethod = "container_number"
	LinkOrphan          LinkMethod = "orphan"
)

// ShipmentDocumentLink is the many-to-many bridge between emails and
// shipments. ShipmentID is empty for orphan links awaiting resolution;
// once a link is resolved to a shipment, its ShipmentID never changes.
type ShipmentDocumentLink struct {
	ID                     string
	ShipmentID             string // empty for orphans
	EmailID                string
	DocumentType           DocumentType
	IsPrimary              bool
	LinkMethod             LinkMethod
	LinkConfidence         int
	BookingNumberExtracted string // recorded on orphans for later backfill
	CreatedAt              time.Time

	// Action determination result, recorded for inbound document emails
	// only; zero-valued for outbound/unclassified links.
	ActionRequired   bool
	ActionConfidence int
	ActionSource     string
}

// IsOrphan reports whether this link has not yet been resolved to a
// shipment.
func (l *ShipmentDocumentLink) IsOrphan() bool {
	return l.ShipmentID == ""
}
