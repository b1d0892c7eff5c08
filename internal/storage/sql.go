package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" //revive:disable:blank-imports

	"github.com/xaenox/band-bot/internal/models"
	"github.com/xaenox/band-bot/internal/storage/migrations"
)

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// SQLStorage implements Storage on top of PostgreSQL or SQLite.
type SQLStorage struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewPostgresStorage(config DatabaseConfig, logger *zap.Logger) (*SQLStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create postgres migration driver: %w", err)
	}
	if err := applyMigrations(migrations.Postgres, "postgres", driver, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Connected to PostgreSQL",
		zap.String("host", config.Host),
		zap.Int("port", config.Port),
		zap.String("dbname", config.DBName))
	return &SQLStorage{db: db, logger: logger}, nil
}

// NewSQLiteStorage opens (or creates) a SQLite database at path. ":memory:"
// gives a private in-memory database.
func NewSQLiteStorage(path string, logger *zap.Logger) (*SQLStorage, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening sqlite database: %w", err)
	}
	// SQLite does not handle concurrent writers; one connection also keeps
	// an in-memory database alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sqlite migration driver: %w", err)
	}
	if err := applyMigrations(migrations.SQLite, "sqlite", driver, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Opened SQLite database", zap.String("path", path))
	return &SQLStorage{db: db, logger: logger}, nil
}

func applyMigrations(fsys fs.FS, dir string, driver database.Driver, logger *zap.Logger) error {
	source, err := iofs.New(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to read embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, dir, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Debug("No database migrations to apply")
			return nil
		}
		return fmt.Errorf("error executing migrations: %w", err)
	}
	logger.Info("Database migrations applied")
	return nil
}

func (s *SQLStorage) UpsertUser(ctx context.Context, user models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	query := s.db.Rebind(`
		INSERT INTO users (id, username, language_code, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`)

	if _, err := s.db.ExecContext(ctx, query, user.ID, user.Username, user.LanguageCode, user.CreatedAt); err != nil {
		return fmt.Errorf("error upserting user: %w", err)
	}
	return nil
}

func (s *SQLStorage) RecordEssay(ctx context.Context, essay *models.Essay) error {
	if essay.ID == "" {
		essay.ID = uuid.New().String()
	}
	if essay.CreatedAt.IsZero() {
		essay.CreatedAt = time.Now().UTC()
	}
	resultJSON, err := json.Marshal(essay.Result)
	if err != nil {
		return fmt.Errorf("error encoding scoring result: %w", err)
	}

	var tokens sql.NullInt64
	if essay.TokensUsed != nil {
		tokens = sql.NullInt64{Int64: int64(*essay.TokensUsed), Valid: true}
	}

	c := essay.Result.Criteria
	query := s.db.Rebind(`
		INSERT INTO essays (
			id, user_id, essay_text, tokens_used, overall_band,
			task_response_band, coherence_band, lexical_band, grammar_band,
			result_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err = s.db.ExecContext(ctx, query,
		essay.ID,
		essay.UserID,
		essay.Text,
		tokens,
		essay.Result.Overall,
		c.TaskResponse.Band,
		c.Coherence.Band,
		c.Lexical.Band,
		c.Grammar.Band,
		string(resultJSON),
		essay.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error recording essay: %w", err)
	}
	return nil
}

type essayRow struct {
	ID         string        `db:"id"`
	UserID     int64         `db:"user_id"`
	Text       string        `db:"essay_text"`
	TokensUsed sql.NullInt64 `db:"tokens_used"`
	ResultJSON string        `db:"result_json"`
	CreatedAt  time.Time     `db:"created_at"`
}

func (s *SQLStorage) RecentEssays(ctx context.Context, userID int64, limit int) ([]models.Essay, error) {
	query := s.db.Rebind(`
		SELECT id, user_id, essay_text, tokens_used, result_json, created_at
		FROM essays
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`)

	var rows []essayRow
	if err := s.db.SelectContext(ctx, &rows, query, userID, limit); err != nil {
		return nil, fmt.Errorf("error querying essays: %w", err)
	}

	essays := make([]models.Essay, 0, len(rows))
	for _, r := range rows {
		e := models.Essay{
			ID:        r.ID,
			UserID:    r.UserID,
			Text:      r.Text,
			CreatedAt: r.CreatedAt,
		}
		if r.TokensUsed.Valid {
			n := int(r.TokensUsed.Int64)
			e.TokensUsed = &n
		}
		if err := json.Unmarshal([]byte(r.ResultJSON), &e.Result); err != nil {
			s.logger.Warn("Skipping essay with unreadable result",
				zap.Error(err),
				zap.String("essay_id", r.ID))
			continue
		}
		essays = append(essays, e)
	}
	return essays, nil
}

func (s *SQLStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStorage) Close() error {
	return s.db.Close()
}
