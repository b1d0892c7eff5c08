package models

import (
	"time"
)

// Essay is one persisted, successfully scored submission.
type Essay struct {
	ID         string        `json:"id" db:"id"`
	UserID     int64         `json:"user_id" db:"user_id"`
	Text       string        `json:"text" db:"essay_text"`
	TokensUsed *int          `json:"tokens_used,omitempty" db:"tokens_used"`
	Result     ScoringResult `json:"result" db:"-"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
}
