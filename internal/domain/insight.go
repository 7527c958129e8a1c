package domain

import "time"

// InsightType categorizes what kind of signal an Insight represents.
type InsightType string

const (
	InsightRisk           InsightType = "risk"
	InsightPattern        InsightType = "pattern"
	InsightPrediction     InsightType = "prediction"
	InsightRecommendation InsightType = "recommendation"
)

// Severity ranks an Insight for display ordering and priority boosting.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// SeverityWeight orders severities for ranking. Higher wins.
var SeverityWeight = map[Severity]int{
	SeverityCritical: 4,
	SeverityHigh:     3,
	SeverityMedium:   2,
	SeverityLow:      1,
}

// InsightSource records whether a rule, the optional AI analyzer, or both
// (after dedup) produced an Insight.
type InsightSource string

const (
	SourceRules  InsightSource = "rules"
	SourceAI     InsightSource = "ai"
	SourceHybrid InsightSource = "hybrid"
)

// InsightStatus tracks operator handling of a surfaced Insight.
type InsightStatus string

const (
	InsightActive       InsightStatus = "active"
	InsightAcknowledged InsightStatus = "acknowledged"
	InsightResolved     InsightStatus = "resolved"
	InsightDismissed    InsightStatus = "dismissed"
)

// ActionUrgency ranks how soon the recommended action should be taken.
type ActionUrgency string

const (
	UrgencyImmediate ActionUrgency = "immediate"
	UrgencySoon      ActionUrgency = "soon"
	UrgencyRoutine   ActionUrgency = "routine"
)

// RecommendedAction is the structured counterpart to an Insight's human
// text, naming who should do what by when.
type RecommendedAction struct {
	Target  string // e.g. "ops_team", "shipper", "carrier"
	Type    string // e.g. "follow_up", "escalate", "submit_document"
	Urgency ActionUrgency
}

// MaxTotalPriorityBoost caps how much ranking priority boosts from all
// sources may add up to for a single shipment's insights combined.
const MaxTotalPriorityBoost = 50

// MaxAIPriorityBoost bounds what the optional AI analyzer may contribute
// to a single insight.
const MaxAIPriorityBoost = 30

// Insight is a ranked, de-duplicated, actionable signal surfaced for one
// Shipment.
type Insight struct {
	ID             string
	ShipmentID     string
	Type           InsightType
	Severity       Severity
	Title          string
	Description    string
	Action         RecommendedAction
	ActionText     string
	Source         InsightSource
	Confidence     int
	PriorityBoost  int
	SupportingData map[string]string
	Status         InsightStatus
	DedupKey       string
	CreatedAt      time.Time
}
