package insight

import (
	"fmt"
	"time"

	"github.com/intoglo/shipment-pipeline/internal/domain"
)

// NonResponseThreshold is how long a stakeholder may go without a reply
// before the non-response detector fires.
const NonResponseThreshold = 72 * time.Hour

// ApproachingCutoffWindow is how far ahead a cutoff may be and still trigger
// the "approaching cutoff with missing input" detector; cutoffs further out
// do not trigger it.
const ApproachingCutoffWindow = 7 * 24 * time.Hour

// RepeatedAmendmentThreshold is the revision count at or above which the
// repeated-amendments detector fires.
const RepeatedAmendmentThreshold = 2

// DefaultRules returns the built-in detector catalog: approaching cutoffs
// with missing inputs, overdue cutoffs, missing upstream documents,
// stakeholder non-response, repeated amendments, customs-hold signals.
func DefaultRules() []Rule {
	return []Rule{
		{
			Code: "cutoff_approaching_missing_input", Category: domain.InsightRisk,
			Severity: domain.SeverityHigh, PriorityBoost: 15, Confidence: 85,
			Detect: detectApproachingCutoffMissingInput,
		},
		{
			Code: "cutoff_overdue", Category: domain.InsightRisk,
			Severity: domain.SeverityCritical, PriorityBoost: 25, Confidence: 95,
			Detect: detectOverdueCutoff,
		},
		{
			Code: "missing_upstream_document", Category: domain.InsightRisk,
			Severity: domain.SeverityMedium, PriorityBoost: 10, Confidence: 75,
			Detect: detectMissingUpstreamDocument,
		},
		{
			Code: "stakeholder_non_response", Category: domain.InsightPattern,
			Severity: domain.SeverityMedium, PriorityBoost: 10, Confidence: 70,
			Detect: detectStakeholderNonResponse,
		},
		{
			Code: "repeated_amendments", Category: domain.InsightPattern,
			Severity: domain.SeverityLow, PriorityBoost: 5, Confidence: 65,
			Detect: detectRepeatedAmendments,
		},
		{
			Code: "customs_hold_signal", Category: domain.InsightRisk,
			Severity: domain.SeverityHigh, PriorityBoost: 20, Confidence: 80,
			Detect: detectCustomsHoldSignal,
		},
	}
}

type cutoffField struct {
	name       string
	value      *time.Time
	requiresDoc domain.DocumentType
}

func cutoffFields(s *domain.Shipment) []cutoffField {
	return []cutoffField{
		{"SI cutoff", s.SICutoff, domain.DocSIConfirmation},
		{"VGM cutoff", s.VGMCutoff, domain.DocVGMConfirmation},
		{"cargo cutoff", s.CargoCutoff, domain.DocBillOfLading},
		{"gate cutoff", s.GateCutoff, domain.DocBillOfLading},
		{"doc cutoff", s.DocCutoff, domain.DocHBL},
	}
}

func hasDocumentType(docs []*domain.ShipmentDocumentLink, dt domain.DocumentType) bool {
	for _, d := range docs {
		if d.DocumentType == dt {
			return true
		}
	}
	return false
}

func detectApproachingCutoffMissingInput(ctx *Context) []Candidate {
	var out []Candidate
	for _, cf := range cutoffFields(ctx.Shipment) {
		if cf.value == nil {
			continue
		}
		until := cf.value.Sub(ctx.Now)
		if until <= 0 || until > ApproachingCutoffWindow {
			continue
		}
		if hasDocumentType(ctx.Documents, cf.requiresDoc) {
			continue
		}
		out = append(out, Candidate{
			Title: fmt.Sprintf("%s approaching without required input", cf.name),
			Description: fmt.Sprintf("The %s for booking %s is on %s and the required %s has not been received yet.",
				cf.name, ctx.Shipment.BookingNumber, cf.value.Format("2006-01-02"), cf.requiresDoc),
			Type: domain.InsightRisk, Severity: domain.SeverityHigh, Confidence: 85,
			Action: domain.RecommendedAction{Target: "ops_team", Type: "follow_up", Urgency: domain.UrgencySoon},
			ActionText: fmt.Sprintf("Chase the missing %s before %s.", cf.requiresDoc, cf.name),
			SupportingData: map[string]string{"cutoff": cf.name, "cutoff_at": cf.value.Format(time.RFC3339)},
		})
	}
	return out
}

func detectOverdueCutoff(ctx *Context) []Candidate {
	var out []Candidate
	for _, cf := range cutoffFields(ctx.Shipment) {
		if cf.value == nil || !cf.value.Before(ctx.Now) {
			continue
		}
		if hasDocumentType(ctx.Documents, cf.requiresDoc) {
			continue
		}
		out = append(out, Candidate{
			Title: fmt.Sprintf("%s passed with no %s on file", cf.name, cf.requiresDoc),
			Description: fmt.Sprintf("The %s for booking %s was %s and no %s has been recorded.",
				cf.name, ctx.Shipment.BookingNumber, cf.value.Format("2006-01-02"), cf.requiresDoc),
			Type: domain.InsightRisk, Severity: domain.SeverityCritical, Confidence: 95,
			Action: domain.RecommendedAction{Target: "ops_team", Type: "escalate", Urgency: domain.UrgencyImmediate},
			ActionText: fmt.Sprintf("Escalate missing %s, cutoff already passed.", cf.requiresDoc),
			SupportingData: map[string]string{"cutoff": cf.name},
		})
	}
	return out
}

func detectMissingUpstreamDocument(ctx *Context) []Candidate {
	s := ctx.Shipment
	if s.WorkflowState == domain.StateSIPending && s.ETD != nil {
		if s.ETD.Sub(ctx.Now) < ApproachingCutoffWindow && s.ETD.After(ctx.Now) {
			if !hasDocumentType(ctx.Documents, domain.DocShippingInstruction) {
				return []Candidate{{
					Title:       "Shipping instruction still outstanding",
					Description: fmt.Sprintf("Booking %s is approaching ETD with no shipping instruction received.", s.BookingNumber),
					Type:        domain.InsightRisk, Severity: domain.SeverityMedium, Confidence: 75,
					Action:     domain.RecommendedAction{Target: "shipper", Type: "request_document", Urgency: domain.UrgencySoon},
					ActionText: "Request shipping instruction from shipper.",
				}}
			}
		}
	}
	return nil
}

func detectStakeholderNonResponse(ctx *Context) []Candidate {
	var out []Candidate
	for role, stats := range ctx.Stakeholders {
		if stats.LastRespondedAt.IsZero() {
			continue
		}
		silence := ctx.Now.Sub(stats.LastRespondedAt)
		if silence < NonResponseThreshold {
			continue
		}
		out = append(out, Candidate{
			Title:       fmt.Sprintf("%s has not responded in %d hours", stats.Name, int(silence.Hours())),
			Description: fmt.Sprintf("No response from %s (%s) on booking %s since %s.", stats.Name, role, ctx.Shipment.BookingNumber, stats.LastRespondedAt.Format("2006-01-02")),
			Type:        domain.InsightPattern, Severity: domain.SeverityMedium, Confidence: 70,
			Action:     domain.RecommendedAction{Target: role, Type: "follow_up", Urgency: domain.UrgencySoon},
			ActionText: fmt.Sprintf("Send a follow-up to %s.", stats.Name),
			SupportingData: map[string]string{"role": role, "silence_hours": fmt.Sprintf("%d", int(silence.Hours()))},
		})
	}
	return out
}

func detectRepeatedAmendments(ctx *Context) []Candidate {
	if ctx.Shipment.BookingRevisionCount < RepeatedAmendmentThreshold {
		return nil
	}
	return []Candidate{{
		Title:       "Repeated booking amendments",
		Description: fmt.Sprintf("Booking %s has been amended %d times, higher than usual.", ctx.Shipment.BookingNumber, ctx.Shipment.BookingRevisionCount),
		Type:        domain.InsightPattern, Severity: domain.SeverityLow, Confidence: 65,
		Action:     domain.RecommendedAction{Target: "ops_team", Type: "review", Urgency: domain.UrgencyRoutine},
		ActionText: "Review amendment history for stability.",
		SupportingData: map[string]string{"revision_count": fmt.Sprintf("%d", ctx.Shipment.BookingRevisionCount)},
	}}
}

func detectCustomsHoldSignal(ctx *Context) []Candidate {
	if ctx.Shipment.WorkflowState != domain.StateCustomsEntryFiled {
		return nil
	}
	for _, c := range ctx.Communications {
		if c.SenderCategory == domain.SenderCustoms && c.Direction == domain.DirectionInbound &&
			(c.DocumentType == domain.DocExceptionNotice || c.Sentiment == domain.SentimentNegative) {
			return []Candidate{{
				Title:       "Possible customs hold",
				Description: fmt.Sprintf("Customs correspondence on booking %s carries an exception/negative signal after entry filing.", ctx.Shipment.BookingNumber),
				Type:        domain.InsightRisk, Severity: domain.SeverityHigh, Confidence: 80,
				Action:     domain.RecommendedAction{Target: "broker", Type: "escalate", Urgency: domain.UrgencyImmediate},
				ActionText: "Contact broker to confirm customs hold status.",
			}}
		}
	}
	return nil
}
