package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// BedrockEmbedder embeds text using an AWS Bedrock Titan embeddings model.
type BedrockEmbedder struct {
	client  *bedrockruntime.Client
	modelID string
	timeout time.Duration
}

type titanEmbedRequest struct {
	InputText string `json:"inputText"`
}

type titanEmbedResponse struct {
	Embedding           []float64 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

// NewBedrockEmbedder builds an embedder from an already-resolved AWS config.
func NewBedrockEmbedder(cfg aws.Config, modelID string, timeout time.Duration) *BedrockEmbedder {
	if modelID == "" {
		modelID = "amazon.titan-embed-text-v2:0"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &BedrockEmbedder{
		client:  bedrockruntime.NewFromConfig(cfg),
		modelID: modelID,
		timeout: timeout,
	}
}

func (e *BedrockEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	body, err := json.Marshal(titanEmbedRequest{InputText: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	out, err := e.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(e.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("invoke titan embed model: %w", err)
	}

	var resp titanEmbedResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal embed response: %w", err)
	}

	return Vector(resp.Embedding), nil
}
