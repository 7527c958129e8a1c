package insight

import (
	"sort"
	"strings"

	"github.com/intoglo/shipment-pipeline/internal/domain"
)

// TopN is how many insights the synthesizer keeps after ranking.
const TopN = 5

// AIGateMaxRelatedShipments gates the optional AI analyzer (condition c):
// "many related active shipments".
const AIGateMaxRelatedShipments = 3

// AIGateCutoffWindow gates the optional AI analyzer (condition d): "any
// cutoff within 7 days".
const AIGateCutoffWindow = ApproachingCutoffWindow

// ShouldRunAIAnalyzer decides whether the optional AI analyzer stage
// should run, based on four gating conditions (any one suffices).
func ShouldRunAIAnalyzer(ctx *Context, ruleInsights []Candidate) bool {
	if len(ruleInsights) > 0 {
		return true
	}
	for _, s := range ctx.Stakeholders {
		if s.IsHighTier {
			return true
		}
	}
	if len(ctx.RelatedShipments) > AIGateMaxRelatedShipments {
		return true
	}
	for _, cf := range cutoffFields(ctx.Shipment) {
		if cf.value == nil {
			continue
		}
		until := cf.value.Sub(ctx.Now)
		if until > 0 && until <= AIGateCutoffWindow {
			return true
		}
	}
	return false
}

// dedupKey is the dedup key used to merge overlapping candidates:
// (severity, normalized-title prefix).
func dedupKey(c Candidate) string {
	title := strings.ToLower(strings.TrimSpace(c.Title))
	words := strings.Fields(title)
	if len(words) > 3 {
		words = words[:3]
	}
	return string(c.Severity) + "|" + strings.Join(words, " ")
}

// Synthesize merges rule-engine and AI candidates: dedupes by
// (severity, normalized-title prefix) marking overlaps hybrid, ranks by
// severity weight -> confidence -> prefer-rules -> priorityBoost, takes
// the top TopN, and caps the total priority boost at
// domain.MaxTotalPriorityBoost.
func Synthesize(ruleCandidates, aiCandidates []Candidate) []*domain.Insight {
	merged := make(map[string]*mergedCandidate)
	var order []string

	add := func(c Candidate, fromRule bool) {
		key := dedupKey(c)
		if existing, ok := merged[key]; ok {
			existing.hybrid = true
			if fromRule {
				existing.hasRule = true
			} else {
				existing.hasAI = true
			}
			if c.Confidence > existing.candidate.Confidence {
				existing.candidate = c
			}
			return
		}
		mc := &mergedCandidate{candidate: c, hasRule: fromRule, hasAI: !fromRule}
		merged[key] = mc
		order = append(order, key)
	}

	for _, c := range ruleCandidates {
		add(c, true)
	}
	for _, c := range aiCandidates {
		add(c, false)
	}

	list := make([]*mergedCandidate, 0, len(order))
	for _, key := range order {
		list = append(list, merged[key])
	}

	sort.SliceStable(list, func(i, j int) bool {
		wi, wj := domain.SeverityWeight[list[i].candidate.Severity], domain.SeverityWeight[list[j].candidate.Severity]
		if wi != wj {
			return wi > wj
		}
		if list[i].candidate.Confidence != list[j].candidate.Confidence {
			return list[i].candidate.Confidence > list[j].candidate.Confidence
		}
		if list[i].hasRule != list[j].hasRule {
			return list[i].hasRule
		}
		return list[i].candidate.PriorityBoost > list[j].candidate.PriorityBoost
	})

	if len(list) > TopN {
		list = list[:TopN]
	}

	totalBoost := 0
	out := make([]*domain.Insight, 0, len(list))
	for _, mc := range list {
		source := domain.SourceRules
		switch {
		case mc.hybrid:
			source = domain.SourceHybrid
		case mc.hasAI && !mc.hasRule:
			source = domain.SourceAI
		}

		boost := mc.candidate.PriorityBoost
		if totalBoost+boost > domain.MaxTotalPriorityBoost {
			boost = domain.MaxTotalPriorityBoost - totalBoost
			if boost < 0 {
				boost = 0
			}
		}
		totalBoost += boost

		out = append(out, &domain.Insight{
			Type:           mc.candidate.Type,
			Severity:       mc.candidate.Severity,
			Title:          mc.candidate.Title,
			Description:    mc.candidate.Description,
			Action:         mc.candidate.Action,
			ActionText:     mc.candidate.ActionText,
			Source:         source,
			Confidence:     mc.candidate.Confidence,
			PriorityBoost:  boost,
			SupportingData: mc.candidate.SupportingData,
			Status:         domain.InsightActive,
			DedupKey:       dedupKey(mc.candidate),
		})
	}
	return out
}

type mergedCandidate struct {
	candidate Candidate
	hasRule   bool
	hasAI     bool
	hybrid    bool
}
