package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient asks the model for a price adjustment and its reasoning.
type GeminiClient struct {
	model *genai.GenerativeModel
}

func NewGeminiClient(apiKey string) (*GeminiClient, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("models/gemini-1.5-flash")
	model.ResponseMIMEType = "application/json"
	return &GeminiClient{model: model}, nil
}

type adjustmentResponse struct {
	Adjustment float64 `json:"adjustment"`
	Reasoning  string  `json:"reasoning"`
}

// EstimateAdjustment returns the model's additive adjustment factor for the
// request, in [0, 0.30], with a one-line justification.
func (g *GeminiClient) EstimateAdjustment(ctx context.Context, category, description string) (float64, string, error) {
	prompt := fmt.Sprintf(`You are a cost estimator for %s home services in India.
Problem description: %q
Respond with JSON {"adjustment": <number between 0 and 0.30 reflecting job complexity above the base rate>, "reasoning": <one sentence>}.`,
		category, description)

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return 0, "", fmt.Errorf("gemini generate error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return 0, "", fmt.Errorf("empty response from gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			sb.WriteString(string(textPart))
		}
	}

	var parsed adjustmentResponse
	if err := json.Unmarshal([]byte(sb.String()), &parsed); err != nil {
		return 0, "", fmt.Errorf("failed to parse gemini response: %w", err)
	}
	return parsed.Adjustment, parsed.Reasoning, nil
}

type checklistResponse struct {
	Items []string `json:"items"`
}

// GenerateChecklist proposes the work items a client can tick for the job,
// which later feed the fallback estimator.
func (g *GeminiClient) GenerateChecklist(ctx context.Context, category, description string) ([]string, error) {
	prompt := fmt.Sprintf(`You are planning a %s home service job in India.
Problem description: %q
Respond with JSON {"items": [<4 to 8 short checklist items covering the likely work>]}.`,
		category, description)

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generate error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty response from gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			sb.WriteString(string(textPart))
		}
	}

	var parsed checklistResponse
	if err := json.Unmarshal([]byte(sb.String()), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse gemini response: %w", err)
	}
	return parsed.Items, nil
}
