package models

// Intake is the essay-bearing content extracted from one inbound update.
type Intake struct {
	ChatID         int64
	SenderID       int64
	SenderUsername string
	SenderLanguage string
	Text           string
	PhotoRef       string
}

// HasPhoto reports whether the update carried a photo.
func (i Intake) HasPhoto() bool {
	return i.PhotoRef != ""
}

// Criterion is one rubric line of a scored essay.
type Criterion struct {
	Band  float64 `json:"band"`
	Notes string  `json:"notes"`
}

// Criteria holds the four IELTS writing criteria.
type Criteria struct {
	TaskResponse Criterion `json:"task_response"`
	Coherence    Criterion `json:"coherence"`
	Lexical      Criterion `json:"lexical"`
	Grammar      Criterion `json:"grammar"`
}

// ScoringResult represents an accepted assessment of an essay
type ScoringResult struct {
	Overall    float64  `json:"overall"`
	Criteria   Criteria `json:"criteria"`
	Rewrite    string   `json:"rewrite,omitempty"`
	TokensUsed *int     `json:"tokens_used,omitempty"`
}

// HasRewrite reports whether the model offered a rewritten essay.
func (r ScoringResult) HasRewrite() bool {
	return r.Rewrite != ""
}
