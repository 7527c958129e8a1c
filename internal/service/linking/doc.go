// Package linking resolves an email to a Shipment via the multi-key
// lookup order: bookingNumber, then mbl/hbl number, then container
// number, falling back to an orphan link when nothing matches.
// It also owns shipment creation/upsert from booking_confirmation emails,
// amendment diffing into revision history, and the backfill sweep that
// elevates orphan links once a matching shipment appears.
package linking
