package insight

import (
	"context"
	"time"

	"github.com/intoglo/shipment-pipeline/internal/domain"
)

// Communication is a recent inbound/outbound email touching a shipment, as
// surfaced to the context gatherer.
type Communication struct {
	EmailID        string
	SenderCategory domain.SenderCategory
	DocumentType   domain.DocumentType
	Direction      domain.Direction
	ReceivedAt     time.Time
	Sentiment      domain.Sentiment
}

// StakeholderStats denormalizes reliability signals about one counterparty
// (shipper, consignee, or carrier) onto the gathered context, so detectors
// never have to reach back into a live party record.
type StakeholderStats struct {
	Name                string
	Category            domain.SenderCategory
	LastRespondedAt      time.Time
	IsHighTier          bool
	AvgResponseHours    float64
}

// RelatedShipment is a lightweight summary of another active shipment
// sharing a shipper/consignee or an arrival week. ShouldRunAIAnalyzer
// counts them; no built-in detector reads them.
type RelatedShipment struct {
	ShipmentID    string
	BookingNumber string
	Relation      string // "same_shipper" | "same_consignee" | "same_week_arrival"
}

// Notification is a prior notification already sent to a stakeholder
// about a shipment. It is carried on the Context; neither the built-in
// detectors nor the synthesizer read it.
type Notification struct {
	Kind     string
	SentAt   time.Time
}

// Context bundles everything the pattern detectors and the optional AI
// analyzer read.
type Context struct {
	Shipment          *domain.Shipment
	Documents         []*domain.ShipmentDocumentLink
	Stakeholders      map[string]StakeholderStats // keyed by role: "shipper", "consignee", "carrier"
	RelatedShipments  []RelatedShipment
	Communications    []Communication
	Notifications     []Notification
	Historical        HistoricalAverages
	Now               time.Time
}

// HistoricalAverages mirrors internal/analytics.HistoricalAverages without
// importing it directly, keeping this package's dependency surface to
// domain + the repository it's given (the analytics client is wired by
// the caller via ContextSource).
type HistoricalAverages struct {
	ShipperAvgSIDelayHours float64
	ShipperIsHighTier      bool
	CarrierRolloverRatePct float64
	RouteAvgDelayDays      float64
}

// ContextSource assembles the Context for one shipment. Implementations
// fan out to the shipment store, the communications log, and the
// analytics collector.
type ContextSource interface {
	Gather(ctx context.Context, shipmentID string) (*Context, error)
}

// Repository is the persistence boundary for insight rows.
type Repository interface {
	// ExistingActiveToday returns the shipment's current active insights whose
	// CreatedAt falls on the same day as now, keyed by DedupKey, so a
	// non-forced refresh can dedupe additions against them.
	ExistingActiveToday(ctx context.Context, shipmentID string, now time.Time) (map[string]*domain.Insight, error)
	SaveInsights(ctx context.Context, shipmentID string, insights []*domain.Insight) error
}

// Rule describes one entry in the pattern-detector catalog. Detect returns
// zero or more candidate insights; most rules return at most one.
type Rule struct {
	Code          string
	Category      domain.InsightType
	Severity      domain.Severity
	PriorityBoost int
	Confidence    int
	Detect        func(ctx *Context) []Candidate
}

// Candidate is a rule/AI-produced insight before synthesis assigns it a
// final Source and DedupKey.
type Candidate struct {
	Title         string
	Description   string
	Type          domain.InsightType
	Severity      domain.Severity
	Confidence    int
	PriorityBoost int
	Action        domain.RecommendedAction
	ActionText    string
	SupportingData map[string]string
	FromRule      bool
}
