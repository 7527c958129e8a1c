package llm

import "context"

// NoopCapability satisfies both Classifier and Analyzer without making any
// external call. It is the default when no Bedrock configuration is
// supplied, so the pipeline behaves identically to "LLM not configured"
// without nil checks scattered through the service layer.
type NoopCapability struct{}

func (NoopCapability) ClassifyDocument(ctx context.Context, req ClassificationRequest) (ClassificationResult, error) {
	return ClassificationResult{DocumentType: "unknown", Confidence: 0}, nil
}

func (NoopCapability) AnalyzeShipment(ctx context.Context, ic InsightContext) ([]SuggestedInsight, error) {
	return nil, nil
}
