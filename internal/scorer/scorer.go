package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/xaenox/band-bot/internal/models"
)

// Scorer assesses an essay against the IELTS writing rubric.
type Scorer interface {
	Score(ctx context.Context, essay string) (models.ScoringResult, error)
}

// ScoringError is returned for every failed scoring attempt. Callers must not
// persist or show anything from a failed attempt.
type ScoringError struct {
	Stage string
	Err   error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring failed at %s: %v", e.Stage, e.Err)
}

func (e *ScoringError) Unwrap() error { return e.Err }

// wire types use pointers so that absent fields can be told apart from zero
type wireCriterion struct {
	Band  *float64 `json:"band" validate:"required,gte=0,lte=9"`
	Notes *string  `json:"notes" validate:"required"`
}

type wireCriteria struct {
	TaskResponse *wireCriterion `json:"task_response" validate:"required"`
	Coherence    *wireCriterion `json:"coherence" validate:"required"`
	Lexical      *wireCriterion `json:"lexical" validate:"required"`
	Grammar      *wireCriterion `json:"grammar" validate:"required"`
}

type wireResult struct {
	Overall  *float64      `json:"overall" validate:"required,gte=0,lte=9"`
	Criteria *wireCriteria `json:"criteria" validate:"required"`
	Rewrite  *string       `json:"rewrite"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseResult decodes and validates model output. tokens is the reported
// total usage, zero or negative when the endpoint did not report it.
func ParseResult(content string, tokens int) (models.ScoringResult, error) {
	var w wireResult
	if err := json.Unmarshal([]byte(stripCodeFences(content)), &w); err != nil {
		return models.ScoringResult{}, &ScoringError{Stage: "decode", Err: err}
	}
	if err := validate.Struct(w); err != nil {
		return models.ScoringResult{}, &ScoringError{Stage: "validate", Err: err}
	}

	res := models.ScoringResult{
		Overall: *w.Overall,
		Criteria: models.Criteria{
			TaskResponse: w.Criteria.TaskResponse.toModel(),
			Coherence:    w.Criteria.Coherence.toModel(),
			Lexical:      w.Criteria.Lexical.toModel(),
			Grammar:      w.Criteria.Grammar.toModel(),
		},
	}
	if w.Rewrite != nil {
		res.Rewrite = strings.TrimSpace(*w.Rewrite)
	}
	if tokens > 0 {
		res.TokensUsed = &tokens
	}
	return res, nil
}

func (c *wireCriterion) toModel() models.Criterion {
	return models.Criterion{Band: *c.Band, Notes: strings.TrimSpace(*c.Notes)}
}

// stripCodeFences removes a ```json ... ``` wrapper some models add even in
// structured output mode.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
