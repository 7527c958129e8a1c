package insight

import "errors"

// ErrShipmentNotFound is returned when the engine is asked to refresh
// insights for a shipment that does not exist.
var ErrShipmentNotFound = errors.New("insight: shipment not found")
