package scorer

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"

	"github.com/xaenox/band-bot/internal/models"
)

// SchemaName identifies the structured output contract sent to the model.
const SchemaName = "ielts_scoring"

const systemPrompt = `You are a certified IELTS Writing examiner. Assess the candidate's IELTS Writing Task 2 essay using the official public band descriptors.

Score each criterion on the 0-9 band scale in steps of 0.5:
- task_response: how fully the essay addresses every part of the prompt, with a clear position and well supported ideas.
- coherence: logical organisation, paragraphing, progression and the use of cohesive devices.
- lexical: range, precision and appropriacy of vocabulary, spelling and word formation.
- grammar: range and accuracy of grammatical structures and punctuation.

Set overall to the mean of the four bands rounded to the nearest 0.5.
Each criterion's notes must be 1-3 short sentences of concrete feedback addressed to the candidate.
If the essay would benefit from it, put an improved version of the essay in rewrite; otherwise return an empty string for rewrite.
Return only JSON that matches the provided schema.`

func criterionSchema(description string) jsonschema.Definition {
	return jsonschema.Definition{
		Type:        jsonschema.Object,
		Description: description,
		Properties: map[string]jsonschema.Definition{
			"band":  {Type: jsonschema.Number, Description: "Band score from 0 to 9"},
			"notes": {Type: jsonschema.String, Description: "Short feedback for this criterion"},
		},
		Required:             []string{"band", "notes"},
		AdditionalProperties: false,
	}
}

// ScoringSchema is the JSON schema of the structured output.
func ScoringSchema() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"overall": {Type: jsonschema.Number, Description: "Overall band score from 0 to 9"},
			"criteria": {
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"task_response": criterionSchema("Task Response"),
					"coherence":     criterionSchema("Coherence and Cohesion"),
					"lexical":       criterionSchema("Lexical Resource"),
					"grammar":       criterionSchema("Grammatical Range and Accuracy"),
				},
				Required:             []string{"task_response", "coherence", "lexical", "grammar"},
				AdditionalProperties: false,
			},
			"rewrite": {Type: jsonschema.String, Description: "Improved version of the essay, or an empty string"},
		},
		// strict mode requires every declared property to be listed
		Required:             []string{"overall", "criteria", "rewrite"},
		AdditionalProperties: false,
	}
}

// GPTScorer scores essays through an OpenAI compatible chat completion
// endpoint using structured outputs.
type GPTScorer struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	logger      *zap.Logger
}

func NewGPTScorer(client *openai.Client, model string, maxTokens int, temperature float64, logger *zap.Logger) *GPTScorer {
	return &GPTScorer{
		client:      client,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}
}

func (s *GPTScorer) Score(ctx context.Context, essay string) (models.ScoringResult, error) {
	schema := ScoringSchema()
	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: essay,
				},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
				JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
					Name:   SchemaName,
					Schema: &schema,
					Strict: true,
				},
			},
			MaxTokens:   s.maxTokens,
			Temperature: float32(s.temperature),
		},
	)
	if err != nil {
		s.logger.Error("Failed to get scoring response", zap.Error(err))
		return models.ScoringResult{}, &ScoringError{Stage: "request", Err: err}
	}
	if len(resp.Choices) == 0 {
		return models.ScoringResult{}, &ScoringError{Stage: "request", Err: errors.New("empty choices")}
	}

	content := resp.Choices[0].Message.Content
	if refusal := resp.Choices[0].Message.Refusal; refusal != "" {
		return models.ScoringResult{}, &ScoringError{Stage: "request", Err: errors.New("model refused: " + refusal)}
	}

	result, err := ParseResult(content, resp.Usage.TotalTokens)
	if err != nil {
		s.logger.Error("Failed to parse scoring response",
			zap.Error(err),
			zap.String("response", content))
		return models.ScoringResult{}, err
	}

	s.logger.Debug("Essay scored",
		zap.Float64("overall", result.Overall),
		zap.Int("total_tokens", resp.Usage.TotalTokens))
	return result, nil
}
