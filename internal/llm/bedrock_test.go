package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseClassificationReply(t *testing.T) {
	text := "document_type: arrival_notice\nconfidence: 72\n"
	docType, confidence := parseClassificationReply(text)
	assert.Equal(t, "arrival_notice", docType)
	assert.Equal(t, 72, confidence)
}

func TestParseClassificationReply_MissingFields(t *testing.T) {
	docType, confidence := parseClassificationReply("not the expected format")
	assert.Equal(t, "unknown", docType)
	assert.Equal(t, 0, confidence)
}

func TestParseInsightReply_MultipleBlocks(t *testing.T) {
	text := `title: SI cutoff at risk
description: Shipping instructions have not been submitted and the cutoff is in 2 days.
severity: high
confidence: 82
priority_boost: 15

title: Consignee non-responsive
description: No reply to the arrival notice in 4 days.
severity: medium
confidence: 70
priority_boost: 35
`
	insights := parseInsightReply(text)
	assert.Len(t, insights, 2)
	assert.Equal(t, "SI cutoff at risk", insights[0].Title)
	assert.Equal(t, 82, insights[0].Confidence)
	assert.Equal(t, "Consignee non-responsive", insights[1].Title)
	assert.Equal(t, 35, insights[1].PriorityBoost)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "he", truncate("hello", 2))
}

func TestNoopCapability_ClassifyDocument(t *testing.T) {
	var c NoopCapability
	result, err := c.ClassifyDocument(context.Background(), ClassificationRequest{Subject: "x"})
	assert.NoError(t, err)
	assert.Equal(t, "unknown", result.DocumentType)
	assert.Equal(t, 0, result.Confidence)
}

func TestNoopCapability_AnalyzeShipment(t *testing.T) {
	var c NoopCapability
	insights, err := c.AnalyzeShipment(context.Background(), InsightContext{})
	assert.NoError(t, err)
	assert.Nil(t, insights)
}
