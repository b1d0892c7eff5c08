package ocr

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiRecognizer reads images with a Gemini model.
type GeminiRecognizer struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

func NewGeminiRecognizer(ctx context.Context, apiKey, baseURL, model string) (*GeminiRecognizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	var temperature float32
	return &GeminiRecognizer{
		client: client,
		model:  model,
		config: &genai.GenerateContentConfig{
			Temperature:       &temperature,
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: Instruction}}},
		},
	}, nil
}

func (r *GeminiRecognizer) Recognize(ctx context.Context, image []byte, mimeType string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromBytes(image, mimeType)}, genai.RoleUser),
	}
	resp, err := r.client.Models.GenerateContent(ctx, r.model, contents, r.config)
	if err != nil {
		return "", fmt.Errorf("gemini vision: %w", err)
	}
	if resp.PromptFeedback != nil {
		// feedback often carries only safety ratings, with no block reason
		if reason := resp.PromptFeedback.BlockReason; reason != "" && reason != genai.BlockedReasonUnspecified {
			return "", fmt.Errorf("gemini vision blocked: %v", reason)
		}
	}
	return resp.Text(), nil
}
