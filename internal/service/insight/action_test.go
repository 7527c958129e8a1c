package insight_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intoglo/shipment-pipeline/internal/domain"
	"github.com/intoglo/shipment-pipeline/internal/service/insight"
)

type stubActionRepo struct {
	exact       insight.ActionRule
	exactOK     bool
	def         insight.ActionRule
	defOK       bool
	flipAction  []string
	flipNoAction []string
	history     []insight.HistoricalActionSample
}

func (r stubActionRepo) LookupExact(context.Context, domain.DocumentType, domain.SenderCategory) (insight.ActionRule, bool, error) {
	return r.exact, r.exactOK, nil
}
func (r stubActionRepo) DefaultForDocumentType(context.Context, domain.DocumentType) (insight.ActionRule, bool, error) {
	return r.def, r.defOK, nil
}
func (r stubActionRepo) CompletionKeywords(context.Context, domain.DocumentType) ([]string, []string, error) {
	return r.flipAction, r.flipNoAction, nil
}
func (r stubActionRepo) HistoricalActions(context.Context, domain.DocumentType, int) ([]insight.HistoricalActionSample, error) {
	return r.history, nil
}

func TestDetermineAction_ExactLookupWins(t *testing.T) {
	repo := stubActionRepo{exact: insight.ActionRule{HasAction: true, Confidence: 90}, exactOK: true}
	res := insight.DetermineAction(context.Background(), repo, insight.ActionRequest{
		DocumentType: domain.DocArrivalNotice, SenderCategory: domain.SenderCarrier, BodyText: "whatever",
	})
	assert.Equal(t, "action_lookup", res.Source)
	assert.True(t, res.HasAction)
	assert.Equal(t, 90, res.Confidence)
}

func TestDetermineAction_DefaultWithFlipKeyword(t *testing.T) {
	repo := stubActionRepo{
		def: insight.ActionRule{HasAction: false, Confidence: 70}, defOK: true,
		flipAction: []string{"please respond"},
	}
	res := insight.DetermineAction(context.Background(), repo, insight.ActionRequest{
		DocumentType: domain.DocExceptionNotice, BodyText: "Please respond with the updated HBL.",
	})
	assert.Equal(t, "documentType_default", res.Source)
	assert.True(t, res.HasAction)
	assert.Equal(t, "please respond", res.FlipKeyword)
}

func TestDetermineAction_PhraseMatchFallback(t *testing.T) {
	res := insight.DetermineAction(context.Background(), stubActionRepo{}, insight.ActionRequest{
		DocumentType: domain.DocGeneralCorrespondence, BodyText: "Confirmed, all set on our end.",
	})
	assert.Equal(t, "phrase_match", res.Source)
	assert.False(t, res.HasAction)
}

func TestDetermineAction_UltimateFallbackAt50(t *testing.T) {
	res := insight.DetermineAction(context.Background(), stubActionRepo{}, insight.ActionRequest{
		DocumentType: domain.DocGeneralCorrespondence, BodyText: "no signal here at all",
	})
	require.Equal(t, "fallback", res.Source)
	assert.Equal(t, insight.ActionMinConfidence, res.Confidence)
	assert.False(t, res.HasAction)
}

func TestDetermineAction_NearestNeighborVote(t *testing.T) {
	repo := stubActionRepo{
		history: []insight.HistoricalActionSample{
			{Text: "please review the updated container manifest urgently", HasAction: true},
			{Text: "please review the updated container manifest soon", HasAction: true},
			{Text: "unrelated text about nothing important", HasAction: false},
		},
	}
	res := insight.DetermineAction(context.Background(), repo, insight.ActionRequest{
		DocumentType: domain.DocGeneralCorrespondence, BodyText: "please review the updated container manifest",
	})
	assert.Equal(t, "nearest_neighbor", res.Source)
	assert.True(t, res.HasAction)
	assert.GreaterOrEqual(t, res.Confidence, insight.ActionMinConfidence)
}
