package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xaenox/band-bot/internal/models"
)

func scoredEssay(userID int64, text string, overall float64) *models.Essay {
	return &models.Essay{
		UserID: userID,
		Text:   text,
		Result: models.ScoringResult{
			Overall: overall,
			Criteria: models.Criteria{
				TaskResponse: models.Criterion{Band: overall, Notes: "addresses the task"},
				Coherence:    models.Criterion{Band: overall},
				Lexical:      models.Criterion{Band: overall},
				Grammar:      models.Criterion{Band: overall},
			},
		},
	}
}

func TestMemoryStorage_UpsertUserKeepsFirstRecord(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	if err := s.UpsertUser(ctx, models.User{ID: 7, Username: "first", LanguageCode: "en"}); err != nil {
		t.Fatalf("UpsertUser() error = %v", err)
	}
	if err := s.UpsertUser(ctx, models.User{ID: 7, Username: "second", LanguageCode: "ru"}); err != nil {
		t.Fatalf("UpsertUser() error = %v", err)
	}

	user, ok := s.GetUser(ctx, 7)
	if !ok {
		t.Fatal("user 7 not found")
	}
	if user.Username != "first" || user.LanguageCode != "en" {
		t.Errorf("user = %+v, want the first record untouched", user)
	}
	if user.CreatedAt.IsZero() {
		t.Error("CreatedAt was not set")
	}
}

func TestMemoryStorage_RecordEssayRequiresUser(t *testing.T) {
	s := NewMemoryStorage()
	err := s.RecordEssay(context.Background(), scoredEssay(1, "text", 6))
	if !errors.Is(err, ErrNoUser) {
		t.Fatalf("RecordEssay() error = %v, want ErrNoUser", err)
	}
}

func TestMemoryStorage_RecentEssays(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	for _, id := range []int64{1, 2} {
		if err := s.UpsertUser(ctx, models.User{ID: id}); err != nil {
			t.Fatal(err)
		}
	}

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, band := range []float64{5, 5.5, 6, 6.5} {
		e := scoredEssay(1, "essay", band)
		e.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		if err := s.RecordEssay(ctx, e); err != nil {
			t.Fatalf("RecordEssay() error = %v", err)
		}
		if e.ID == "" {
			t.Fatal("RecordEssay() did not assign an ID")
		}
	}
	if err := s.RecordEssay(ctx, scoredEssay(2, "other user", 9)); err != nil {
		t.Fatal(err)
	}

	got, err := s.RecentEssays(ctx, 1, 3)
	if err != nil {
		t.Fatalf("RecentEssays() error = %v", err)
	}
	want := []float64{6.5, 6, 5.5}
	if len(got) != len(want) {
		t.Fatalf("RecentEssays() returned %d essays, want %d", len(got), len(want))
	}
	for i, e := range got {
		if e.Result.Overall != want[i] {
			t.Errorf("essay %d overall = %v, want %v", i, e.Result.Overall, want[i])
		}
		if e.UserID != 1 {
			t.Errorf("essay %d belongs to user %d", i, e.UserID)
		}
	}

	none, err := s.RecentEssays(ctx, 3, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("RecentEssays() for unknown user = %d essays, want 0", len(none))
	}
}
