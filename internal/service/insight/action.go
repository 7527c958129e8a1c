package insight

import (
	"context"
	"strings"

	"github.com/intoglo/shipment-pipeline/internal/domain"
	"github.com/intoglo/shipment-pipeline/internal/embedding"
)

// ActionMinConfidence is the floor every action-determination path must
// clear; nothing below it is ever returned.
const ActionMinConfidence = 50

// ActionRule is one row of the action_lookup / per-documentType default
// table.
type ActionRule struct {
	HasAction  bool
	Confidence int
}

// HistoricalActionSample is one previously classified email plus the
// action an operator recorded for it, used by the nearest-neighbor
// learning path.
type HistoricalActionSample struct {
	Text      string
	HasAction bool
}

// ActionRepository is the persistence boundary for action determination.
type ActionRepository interface {
	// LookupExact implements priority (a): an exact (documentType,
	// senderCategory) row in action_lookup.
	LookupExact(ctx context.Context, documentType domain.DocumentType, category domain.SenderCategory) (ActionRule, bool, error)
	// DefaultForDocumentType implements priority (b)'s base rule, before
	// the keyword flip lists are applied.
	DefaultForDocumentType(ctx context.Context, documentType domain.DocumentType) (ActionRule, bool, error)
	// CompletionKeywords returns the flip-to-action and flip-to-no-action
	// keyword lists for documentType.
	CompletionKeywords(ctx context.Context, documentType domain.DocumentType) (flipToAction, flipToNoAction []string, err error)
	// HistoricalActions returns a sample of previously recorded
	// (text, hasAction) pairs for documentType, for priority (e).
	HistoricalActions(ctx context.Context, documentType domain.DocumentType, limit int) ([]HistoricalActionSample, error)
}

// phraseFlipToAction and phraseFlipToNoAction implement priority (c): simple phrase matching
// independent of documentType.
var phraseFlipToAction = []string{"please respond", "please confirm", "kindly advise", "awaiting your", "need your approval"}
var phraseFlipToNoAction = []string{"confirmed", "no further action", "fyi only", "for your records", "thank you, all set"}

// ActionRequest bundles what action determination needs about one inbound
// document email.
type ActionRequest struct {
	DocumentType   domain.DocumentType
	SenderCategory domain.SenderCategory
	BodyText       string
	Embedder       embedding.Embedder // optional; nil disables priority (d)
	AnchorVector   embedding.Vector   // pre-embedded query vector for BodyText, if Embedder is set
	Anchors        []embedding.Anchor // pre-embedded intent anchors
}

// ActionResult is action determination's verdict.
type ActionResult struct {
	HasAction   bool
	Confidence  int
	Source      string
	FlipKeyword string
	Reason      string
}

// DetermineAction runs the priority cascade: exact
// lookup, per-documentType default with keyword flips, phrase matching,
// optional vector-intent check, optional nearest-neighbor learning, and
// a final "no action" fallback at exactly ActionMinConfidence.
func DetermineAction(ctx context.Context, repo ActionRepository, req ActionRequest) ActionResult {
	if repo != nil {
		if rule, ok, err := repo.LookupExact(ctx, req.DocumentType, req.SenderCategory); err == nil && ok {
			return bound(ActionResult{HasAction: rule.HasAction, Confidence: rule.Confidence, Source: "action_lookup", Reason: "exact documentType/senderCategory match"})
		}
	}

	lowerBody := strings.ToLower(req.BodyText)

	if repo != nil {
		if def, ok, err := repo.DefaultForDocumentType(ctx, req.DocumentType); err == nil && ok {
			flipToAction, flipToNoAction, _ := repo.CompletionKeywords(ctx, req.DocumentType)
			if kw, hit := firstMatch(lowerBody, flipToNoAction); hit {
				return bound(ActionResult{HasAction: false, Confidence: def.Confidence, Source: "documentType_default", FlipKeyword: kw, Reason: "flip-to-no-action keyword matched"})
			}
			if kw, hit := firstMatch(lowerBody, flipToAction); hit {
				return bound(ActionResult{HasAction: true, Confidence: def.Confidence, Source: "documentType_default", FlipKeyword: kw, Reason: "flip-to-action keyword matched"})
			}
			return bound(ActionResult{HasAction: def.HasAction, Confidence: def.Confidence, Source: "documentType_default", Reason: "no flip keyword matched"})
		}
	}

	if kw, hit := firstMatch(lowerBody, phraseFlipToNoAction); hit {
		return bound(ActionResult{HasAction: false, Confidence: 65, Source: "phrase_match", FlipKeyword: kw, Reason: "generic no-action phrase matched"})
	}
	if kw, hit := firstMatch(lowerBody, phraseFlipToAction); hit {
		return bound(ActionResult{HasAction: true, Confidence: 65, Source: "phrase_match", FlipKeyword: kw, Reason: "generic action phrase matched"})
	}

	if req.Embedder != nil && len(req.Anchors) > 0 && len(req.AnchorVector) > 0 {
		if label, sim, ok := embedding.BestAnchorMatch(req.AnchorVector, req.Anchors); ok {
			confidence := int(sim * 100)
			return bound(ActionResult{HasAction: label == "flip_to_action", Confidence: confidence, Source: "vector_intent", Reason: "anchor similarity above floor and margin"})
		}
	}

	if repo != nil {
		if samples, err := repo.HistoricalActions(ctx, req.DocumentType, 25); err == nil && len(samples) > 0 {
			if result, ok := nearestNeighborVote(lowerBody, samples); ok {
				return bound(result)
			}
		}
	}

	return ActionResult{HasAction: false, Confidence: ActionMinConfidence, Source: "fallback", Reason: "no cascade path matched"}
}

func firstMatch(lowerBody string, keywords []string) (string, bool) {
	for _, k := range keywords {
		if strings.Contains(lowerBody, strings.ToLower(k)) {
			return k, true
		}
	}
	return "", false
}

// nearestNeighborVote implements priority (e): majority vote among the
// samples with the highest word-overlap with the query body. Keyword
// overlap stands in for a trained classifier here; it is explicitly the
// weakest-confidence path in the cascade.
func nearestNeighborVote(lowerBody string, samples []HistoricalActionSample) (ActionResult, bool) {
	queryWords := wordSet(lowerBody)
	if len(queryWords) == 0 {
		return ActionResult{}, false
	}

	var scoredSamples []scoredSample
	for _, s := range samples {
		overlap := overlapScore(queryWords, wordSet(strings.ToLower(s.Text)))
		if overlap > 0 {
			scoredSamples = append(scoredSamples, scoredSample{s, overlap})
		}
	}
	if len(scoredSamples) == 0 {
		return ActionResult{}, false
	}

	const k = 5
	if len(scoredSamples) > k {
		topKByScore(scoredSamples, k)
		scoredSamples = scoredSamples[:k]
	}

	actionVotes, total := 0, 0
	for _, s := range scoredSamples {
		total++
		if s.sample.HasAction {
			actionVotes++
		}
	}
	hasAction := actionVotes*2 >= total
	confidence := 50 + (maxInt(actionVotes, total-actionVotes)*40)/maxInt(total, 1)
	return ActionResult{HasAction: hasAction, Confidence: confidence, Source: "nearest_neighbor", Reason: "historical action majority vote"}, true
}

func wordSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len(f) > 3 {
			set[f] = struct{}{}
		}
	}
	return set
}

func overlapScore(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	hits := 0
	for w := range a {
		if _, ok := b[w]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(a))
}

type scoredSample struct {
	sample HistoricalActionSample
	score  float64
}

func topKByScore(s []scoredSample, k int) {
	for i := 0; i < k && i < len(s); i++ {
		best := i
		for j := i + 1; j < len(s); j++ {
			if s[j].score > s[best].score {
				best = j
			}
		}
		s[i], s[best] = s[best], s[i]
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func bound(r ActionResult) ActionResult {
	if r.Confidence < ActionMinConfidence {
		r.Confidence = ActionMinConfidence
	}
	if r.Confidence > 100 {
		r.Confidence = 100
	}
	return r
}
