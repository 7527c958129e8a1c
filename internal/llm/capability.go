package llm

import "context"

// ClassificationRequest carries the text available to the AI fallback stage
// of the classification cascade: subject, body, and any attachment-extracted
// text, plus an optional carrier hint.
type ClassificationRequest struct {
	Subject        string
	Body           string
	AttachmentText string
	CarrierHint    string
}

// ClassificationResult is the AI fallback's verdict. Confidence is capped at
// 80 by the caller regardless of what the model reports, per the
// classification cascade's AI-fallback ceiling.
type ClassificationResult struct {
	DocumentType string
	Confidence   int
}

// Classifier is the capability the classification cascade's AI fallback
// stage depends on. A nil Classifier (no LLM configured) means the cascade
// simply never reaches this stage.
type Classifier interface {
	ClassifyDocument(ctx context.Context, req ClassificationRequest) (ClassificationResult, error)
}

// InsightContext is the subset of the gathered shipment context relevant to
// the optional AI analyzer stage of the insight engine.
type InsightContext struct {
	ShipmentSummary      string
	RecentCommunications []string
	HistoricalAverages    string
	ExistingRuleInsights []string
}

// SuggestedInsight is one AI-produced insight candidate, prior to
// synthesis/dedup against rule-engine output.
type SuggestedInsight struct {
	Title         string
	Description   string
	Severity      string
	Confidence    int
	PriorityBoost int
}

// Analyzer is the capability the insight engine's optional AI stage depends
// on. It must return at most 5 insights with PriorityBoost capped at 30 by
// the caller.
type Analyzer interface {
	AnalyzeShipment(ctx context.Context, ic InsightContext) ([]SuggestedInsight, error)
}
