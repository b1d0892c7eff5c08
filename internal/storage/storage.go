package storage

import (
	"context"
	"errors"

	"github.com/xaenox/band-bot/internal/models"
)

// ErrNoUser is returned when an essay references a user that was never stored.
var ErrNoUser = errors.New("user does not exist")

// Storage persists users and their scored essays.
type Storage interface {
	// UpsertUser inserts the user if absent. Existing records are left untouched.
	UpsertUser(ctx context.Context, user models.User) error
	// RecordEssay appends one scored essay. ID and CreatedAt are filled in when empty.
	RecordEssay(ctx context.Context, essay *models.Essay) error
	// RecentEssays returns up to limit essays of a user, newest first.
	RecentEssays(ctx context.Context, userID int64, limit int) ([]models.Essay, error)

	Ping(ctx context.Context) error
	Close() error
}
