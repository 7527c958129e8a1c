package analytics

// Config holds Snowflake connection settings for the analytics warehouse.
type Config struct {
	Account   string
	User      string
	Password  string
	Database  string
	Schema    string
	Warehouse string
	Enabled   bool
}

// ShipperStats summarizes a shipper's historical SI-submission behavior,
// used by the insight engine to judge whether a current delay is routine
// or anomalous for that shipper.
type ShipperStats struct {
	ShipperName          string
	AvgSIDelayHours      float64
	SampleSize           int64
	IsHighTier           bool
}

// CarrierStats summarizes a carrier's historical rollover behavior across
// all of its voyages; it is not broken down by route.
type CarrierStats struct {
	CarrierCode     string
	RolloverRatePct float64
	SampleSize      int64
}

// RouteStats summarizes historical transit delay for a POL/POD pair.
type RouteStats struct {
	PortOfLoadingCode   string
	PortOfDischargeCode string
	AvgDelayDays        float64
	SampleSize          int64
}

// HistoricalAverages bundles the three averages the context gatherer pulls
// per shipment.
type HistoricalAverages struct {
	Shipper ShipperStats
	Carrier CarrierStats
	Route   RouteStats
}
