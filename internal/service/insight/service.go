package insight

import (
	"context"
	"fmt"
	"time"

	"github.com/intoglo/shipment-pipeline/internal/domain"
	"github.com/intoglo/shipment-pipeline/internal/llm"
	"github.com/intoglo/shipment-pipeline/internal/pkg/logger"
)

// Service implements the full Action/Insight engine: context gathering,
// rule-based pattern detection, the optional AI analyzer, synthesis, and
// persistence.
type Service struct {
	context    ContextSource
	repo       Repository
	rules      []Rule
	aiAnalyzer llm.Analyzer
}

// NewService builds an insight engine. aiAnalyzer may be
// llm.NoopCapability{} when no LLM is configured.
func NewService(contextSource ContextSource, repo Repository, rules []Rule, aiAnalyzer llm.Analyzer) *Service {
	if rules == nil {
		rules = DefaultRules()
	}
	if aiAnalyzer == nil {
		aiAnalyzer = llm.NoopCapability{}
	}
	return &Service{context: contextSource, repo: repo, rules: rules, aiAnalyzer: aiAnalyzer}
}

// RefreshInsights runs the full pipeline for one shipment and persists
// the result. When force is false, same-day
// existing insights with an identical DedupKey are kept and new
// candidates are deduped against them rather than re-synthesized from
// scratch.
func (s *Service) RefreshInsights(ctx context.Context, shipmentID string, force bool) ([]*domain.Insight, error) {
	sctx, err := s.context.Gather(ctx, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("insight: gather context: %w", err)
	}
	if sctx == nil || sctx.Shipment == nil {
		return nil, ErrShipmentNotFound
	}
	if sctx.Now.IsZero() {
		sctx.Now = time.Now().UTC()
	}

	var ruleCandidates []Candidate
	for _, rule := range s.rules {
		ruleCandidates = append(ruleCandidates, rule.Detect(sctx)...)
	}

	var aiCandidates []Candidate
	if ShouldRunAIAnalyzer(sctx, ruleCandidates) {
		suggestions, err := s.aiAnalyzer.AnalyzeShipment(ctx, buildInsightContext(sctx, ruleCandidates))
		if err != nil {
			logger.Warn("insight: AI analyzer failed, proceeding with rule insights only", "shipment_id", shipmentID, "error", err.Error())
		} else {
			aiCandidates = toCandidates(suggestions)
		}
	}

	synthesized := Synthesize(ruleCandidates, aiCandidates)
	for _, ins := range synthesized {
		ins.ShipmentID = shipmentID
		ins.CreatedAt = sctx.Now
	}

	if !force {
		existing, err := s.repo.ExistingActiveToday(ctx, shipmentID, sctx.Now)
		if err != nil {
			logger.Warn("insight: failed to load existing insights, proceeding without dedup", "shipment_id", shipmentID, "error", err.Error())
		} else {
			synthesized = dedupeAgainstExisting(synthesized, existing)
		}
	}

	if len(synthesized) == 0 {
		return synthesized, nil
	}

	if err := s.repo.SaveInsights(ctx, shipmentID, synthesized); err != nil {
		return synthesized, fmt.Errorf("insight: save: %w", err)
	}
	return synthesized, nil
}

func dedupeAgainstExisting(fresh []*domain.Insight, existing map[string]*domain.Insight) []*domain.Insight {
	out := make([]*domain.Insight, 0, len(fresh))
	for _, ins := range fresh {
		if _, ok := existing[ins.DedupKey]; ok {
			continue
		}
		out = append(out, ins)
	}
	return out
}

func buildInsightContext(sctx *Context, ruleCandidates []Candidate) llm.InsightContext {
	ic := llm.InsightContext{
		ShipmentSummary: fmt.Sprintf("booking=%s state=%s pol=%s pod=%s",
			sctx.Shipment.BookingNumber, sctx.Shipment.WorkflowState, sctx.Shipment.PortOfLoadingCode, sctx.Shipment.PortOfDischargeCode),
		HistoricalAverages: fmt.Sprintf("shipper_si_delay_hrs=%.1f carrier_rollover_pct=%.1f route_delay_days=%.1f",
			sctx.Historical.ShipperAvgSIDelayHours, sctx.Historical.CarrierRolloverRatePct, sctx.Historical.RouteAvgDelayDays),
	}
	for _, c := range sctx.Communications {
		ic.RecentCommunications = append(ic.RecentCommunications, fmt.Sprintf("%s from %s at %s", c.DocumentType, c.SenderCategory, c.ReceivedAt.Format(time.RFC3339)))
	}
	for _, c := range ruleCandidates {
		ic.ExistingRuleInsights = append(ic.ExistingRuleInsights, c.Title)
	}
	return ic
}

func toCandidates(suggestions []llm.SuggestedInsight) []Candidate {
	out := make([]Candidate, 0, len(suggestions))
	for i, s := range suggestions {
		if i >= 5 {
			break
		}
		boost := s.PriorityBoost
		if boost > domain.MaxAIPriorityBoost {
			boost = domain.MaxAIPriorityBoost
		}
		out = append(out, Candidate{
			Title: s.Title, Description: s.Description,
			Type:       domain.InsightPrediction,
			Severity:   domain.Severity(s.Severity),
			Confidence: s.Confidence, PriorityBoost: boost,
		})
	}
	return out
}
