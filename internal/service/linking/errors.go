package linking

import "errors"

var (
	// ErrMissingBookingNumber is returned when shipment creation is
	// attempted without a bookingNumber; bookingNumber is the upsert key
	// and is mandatory.
	ErrMissingBookingNumber = errors.New("linking: booking number required to create or update a shipment")

	// ErrNotCarrierAttested is returned when a booking_confirmation email
	// fails the carrier-origin gate for shipment creation.
	ErrNotCarrierAttested = errors.New("linking: booking confirmation not attested as carrier-origin")

	// ErrLowConfidence is returned when a booking_confirmation's
	// documentConfidence is below the shipment-creation floor.
	ErrLowConfidence = errors.New("linking: booking confirmation confidence below creation threshold")

	// ErrShipmentNotFound is returned by AmendShipment when none of the
	// amendment's extracted identifiers resolve to an existing shipment.
	ErrShipmentNotFound = errors.New("linking: no existing shipment to amend")
)
