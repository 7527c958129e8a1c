package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/intoglo/shipment-pipeline/internal/pkg/logger"
)

// BedrockCapability is a Classifier and Analyzer backed by AWS Bedrock
// (Claude via the Converse-style InvokeModel API). All data stays within
// AWS; no external API calls are made.
type BedrockCapability struct {
	client  *bedrockruntime.Client
	modelID string
	timeout time.Duration
}

// bedrockMessage mirrors the Anthropic-on-Bedrock message shape.
type bedrockMessage struct {
	Role    string                `json:"role"`
	Content []bedrockContentBlock `json:"content"`
}

type bedrockContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type bedrockRequest struct {
	AnthropicVersion string            `json:"anthropic_version"`
	MaxTokens        int               `json:"max_tokens"`
	System           string            `json:"system,omitempty"`
	Messages         []bedrockMessage  `json:"messages"`
	Temperature      float64           `json:"temperature,omitempty"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewBedrockCapability builds a capability from an already-resolved AWS SDK
// config and model ID. Callers construct the aws.Config once at startup
// (internal/config loads the region) and share it across capabilities.
func NewBedrockCapability(cfg aws.Config, modelID string, timeout time.Duration) *BedrockCapability {
	if modelID == "" {
		modelID = "anthropic.claude-3-sonnet-20240229-v1:0"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BedrockCapability{
		client:  bedrockruntime.NewFromConfig(cfg),
		modelID: modelID,
		timeout: timeout,
	}
}

// ClassifyDocument asks the model to pick a documentType for text the
// filename/body/subject/keyword cascade could not classify.
func (b *BedrockCapability) ClassifyDocument(ctx context.Context, req ClassificationRequest) (ClassificationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	system := classificationSystemPrompt()
	userMsg := fmt.Sprintf("Subject: %s\n\nBody:\n%s\n\nAttachment text:\n%s\n\nCarrier hint: %s",
		req.Subject, truncate(req.Body, 4000), truncate(req.AttachmentText, 4000), req.CarrierHint)

	text, err := b.invoke(ctx, system, userMsg, 500)
	if err != nil {
		return ClassificationResult{}, fmt.Errorf("bedrock classify: %w", err)
	}

	docType, confidence := parseClassificationReply(text)
	if confidence > 80 {
		confidence = 80
	}
	return ClassificationResult{DocumentType: docType, Confidence: confidence}, nil
}

// AnalyzeShipment asks the model for up to 5 supplemental insights given
// gathered shipment context.
func (b *BedrockCapability) AnalyzeShipment(ctx context.Context, ic InsightContext) ([]SuggestedInsight, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	system := insightSystemPrompt()
	var sb strings.Builder
	sb.WriteString("Shipment summary:\n")
	sb.WriteString(ic.ShipmentSummary)
	sb.WriteString("\n\nHistorical averages:\n")
	sb.WriteString(ic.HistoricalAverages)
	sb.WriteString("\n\nRule-engine insights already found:\n")
	for _, r := range ic.ExistingRuleInsights {
		sb.WriteString("- " + r + "\n")
	}
	sb.WriteString("\n\nRecent communications:\n")
	for _, c := range ic.RecentCommunications {
		sb.WriteString("- " + truncate(c, 400) + "\n")
	}

	text, err := b.invoke(ctx, system, sb.String(), 1200)
	if err != nil {
		return nil, fmt.Errorf("bedrock analyze: %w", err)
	}

	insights := parseInsightReply(text)
	if len(insights) > 5 {
		insights = insights[:5]
	}
	for i := range insights {
		if insights[i].PriorityBoost > 30 {
			insights[i].PriorityBoost = 30
		}
	}
	return insights, nil
}

func (b *BedrockCapability) invoke(ctx context.Context, system, userMsg string, maxTokens int) (string, error) {
	request := bedrockRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        maxTokens,
		System:           system,
		Messages: []bedrockMessage{
			{Role: "user", Content: []bedrockContentBlock{{Type: "text", Text: userMsg}}},
		},
		Temperature: 0.2,
	}

	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	output, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("invoke model: %w", err)
	}

	var resp bedrockResponse
	if err := json.Unmarshal(output.Body, &resp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	var text strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}

	logger.Debug("bedrock: invoked model", "model", b.modelID, "in_tokens", resp.Usage.InputTokens, "out_tokens", resp.Usage.OutputTokens)
	return text.String(), nil
}

func classificationSystemPrompt() string {
	return `You classify freight-forwarding emails and attachments into one of a fixed set of document types: booking_confirmation, booking_amendment, shipping_instruction, si_confirmation, vgm_confirmation, bill_of_lading_draft, bill_of_lading_final, arrival_notice, customs_entry, delivery_order, invoice, credit_note, certificate_of_origin, packing_list, commercial_invoice, customs_declaration, insurance_certificate, rate_confirmation, container_release, demurrage_notice, general_correspondence, unknown.

Respond with exactly two lines:
document_type: <one of the types above>
confidence: <integer 0-100>`
}

func insightSystemPrompt() string {
	return `You are a freight operations analyst. Given a shipment's context, surface up to 5 additional operational insights not already covered by the rules already found. For each insight, respond as a block:

title: <short title>
description: <one or two sentences>
severity: <critical|high|medium|low>
confidence: <integer 0-100>
priority_boost: <integer 0-30>

Separate each insight block with a blank line. Do not repeat insights already listed as rule-engine insights.`
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func parseClassificationReply(text string) (string, int) {
	docType := "unknown"
	confidence := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(strings.ToLower(line), "document_type:"):
			docType = strings.TrimSpace(line[strings.Index(line, ":")+1:])
		case strings.HasPrefix(strings.ToLower(line), "confidence:"):
			fmt.Sscanf(strings.TrimSpace(line[strings.Index(line, ":")+1:]), "%d", &confidence)
		}
	}
	return docType, confidence
}

func parseInsightReply(text string) []SuggestedInsight {
	var insights []SuggestedInsight
	var cur SuggestedInsight
	flush := func() {
		if cur.Title != "" {
			insights = append(insights, cur)
		}
		cur = SuggestedInsight{}
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		lower := strings.ToLower(trimmed)
		idx := strings.Index(trimmed, ":")
		if idx < 0 {
			continue
		}
		value := strings.TrimSpace(trimmed[idx+1:])
		switch {
		case strings.HasPrefix(lower, "title:"):
			cur.Title = value
		case strings.HasPrefix(lower, "description:"):
			cur.Description = value
		case strings.HasPrefix(lower, "severity:"):
			cur.Severity = value
		case strings.HasPrefix(lower, "confidence:"):
			fmt.Sscanf(value, "%d", &cur.Confidence)
		case strings.HasPrefix(lower, "priority_boost:"):
			fmt.Sscanf(value, "%d", &cur.PriorityBoost)
		}
	}
	flush()
	return insights
}
