package ocr

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIRecognizer reads images with an OpenAI compatible vision model.
type OpenAIRecognizer struct {
	client    *openai.Client
	model     string
	maxTokens int
}

func NewOpenAIRecognizer(client *openai.Client, model string, maxTokens int) *OpenAIRecognizer {
	return &OpenAIRecognizer{client: client, model: model, maxTokens: maxTokens}
}

func (r *OpenAIRecognizer) Recognize(ctx context.Context, image []byte, mimeType string) (string, error) {
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     r.model,
		MaxTokens: r.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: Instruction},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai vision: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai vision: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
