// Package bot runs the essay pipeline for each Telegram update: normalize,
// transcribe photos, score, persist and reply.
package bot

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaenox/band-bot/internal/intake"
	"github.com/xaenox/band-bot/internal/models"
	"github.com/xaenox/band-bot/internal/ocr"
	"github.com/xaenox/band-bot/internal/scorer"
	"github.com/xaenox/band-bot/internal/storage"
)

// MinEssayLength is the number of characters an essay must exceed to be scored.
const MinEssayLength = 80

const historyLimit = 5

// Sender is the part of *tgbotapi.BotAPI the bot needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Route is the terminal state of a pipeline run.
type Route int

const (
	RouteNoTarget Route = iota
	RouteStart
	RouteHistory
	RouteInsufficient
	RouteScored
	RouteScoreFailed
)

func (r Route) String() string {
	switch r {
	case RouteNoTarget:
		return "no_target"
	case RouteStart:
		return "start"
	case RouteHistory:
		return "history"
	case RouteInsufficient:
		return "insufficient"
	case RouteScored:
		return "scored"
	case RouteScoreFailed:
		return "score_failed"
	default:
		return "unknown"
	}
}

// Outcome describes how an update was handled.
type Outcome struct {
	Route   Route
	UsedOCR bool
}

type Bot struct {
	sender      Sender
	transcriber ocr.Transcriber
	scorer      scorer.Scorer
	storage     storage.Storage
	logger      *zap.Logger
}

func New(sender Sender, transcriber ocr.Transcriber, sc scorer.Scorer, store storage.Storage, logger *zap.Logger) *Bot {
	return &Bot{
		sender:      sender,
		transcriber: transcriber,
		scorer:      sc,
		storage:     store,
		logger:      logger,
	}
}

// Poll handles updates from a long polling channel until ctx is done or the
// channel closes. Each update runs in its own goroutine; Poll waits for
// in-flight runs before returning.
func (b *Bot) Poll(ctx context.Context, updates <-chan tgbotapi.Update) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.HandleUpdate(context.WithoutCancel(ctx), update)
			}()
		}
	}
}

// HandleUpdate runs the whole pipeline for one update. It never fails: every
// internal error ends in a fixed reply or, without a chat, in silence.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) Outcome {
	logger := b.logger.With(
		zap.String("run_id", uuid.NewString()),
		zap.Int("update_id", update.UpdateID))

	in, ok := intake.Normalize(update)
	if !ok {
		logger.Debug("Dropping update without chat")
		return Outcome{Route: RouteNoTarget}
	}
	logger = logger.With(zap.Int64("chat_id", in.ChatID), zap.Int64("user_id", in.SenderID))

	out := b.route(ctx, logger, in)
	logger.Info("Update handled",
		zap.Stringer("route", out.Route),
		zap.Bool("ocr", out.UsedOCR))
	return out
}

func (b *Bot) route(ctx context.Context, logger *zap.Logger, in models.Intake) Outcome {
	if strings.HasPrefix(in.Text, "/start") {
		b.upsertUser(ctx, logger, in)
		b.sendMessage(logger, in.ChatID, onboardingText)
		return Outcome{Route: RouteStart}
	}
	if isCommand(in.Text, "history") {
		b.handleHistory(ctx, logger, in)
		return Outcome{Route: RouteHistory}
	}

	var out Outcome
	text := in.Text
	if strings.TrimSpace(text) == "" && in.HasPhoto() {
		out.UsedOCR = true
		transcribed, err := b.transcriber.Transcribe(ctx, in.PhotoRef)
		if err != nil {
			logger.Warn("Failed to transcribe photo",
				zap.Error(err),
				zap.String("file_id", in.PhotoRef))
			transcribed = ""
		}
		text = transcribed
	}

	// length is measured after trimming surrounding whitespace
	if utf8.RuneCountInString(strings.TrimSpace(text)) <= MinEssayLength {
		b.sendMessage(logger, in.ChatID, insufficientText)
		out.Route = RouteInsufficient
		return out
	}

	result, err := b.scorer.Score(ctx, text)
	if err != nil {
		logger.Error("Failed to score essay", zap.Error(err))
		b.sendMessage(logger, in.ChatID, apologyText)
		out.Route = RouteScoreFailed
		return out
	}

	b.persist(ctx, logger, in, text, result)

	b.sendMessage(logger, in.ChatID, formatSummary(result))
	if result.HasRewrite() {
		b.sendMessage(logger, in.ChatID, formatRewrite(result))
	}
	out.Route = RouteScored
	return out
}

// persist stores the user and the essay. Failures are logged and do not
// affect the reply.
func (b *Bot) persist(ctx context.Context, logger *zap.Logger, in models.Intake, text string, result models.ScoringResult) {
	b.upsertUser(ctx, logger, in)

	essay := &models.Essay{
		UserID:     in.SenderID,
		Text:       text,
		TokensUsed: result.TokensUsed,
		Result:     result,
	}
	if err := b.storage.RecordEssay(ctx, essay); err != nil {
		logger.Error("Failed to record essay", zap.Error(err))
		return
	}
	logger.Debug("Essay recorded", zap.String("essay_id", essay.ID))
}

func (b *Bot) upsertUser(ctx context.Context, logger *zap.Logger, in models.Intake) {
	user := models.User{
		ID:           in.SenderID,
		Username:     in.SenderUsername,
		LanguageCode: in.SenderLanguage,
	}
	if err := b.storage.UpsertUser(ctx, user); err != nil {
		logger.Error("Failed to upsert user", zap.Error(err))
	}
}

func (b *Bot) handleHistory(ctx context.Context, logger *zap.Logger, in models.Intake) {
	essays, err := b.storage.RecentEssays(ctx, in.SenderID, historyLimit)
	if err != nil {
		logger.Error("Failed to get recent essays", zap.Error(err))
		b.sendMessage(logger, in.ChatID, apologyText)
		return
	}
	b.sendMessage(logger, in.ChatID, formatHistory(essays))
}

func (b *Bot) sendMessage(logger *zap.Logger, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.sender.Send(msg); err != nil {
		logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

// isCommand reports whether text is /name, optionally addressed as
// /name@botname and followed by arguments.
func isCommand(text, name string) bool {
	cmd, _, _ := strings.Cut(text, " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return cmd == "/"+name
}
