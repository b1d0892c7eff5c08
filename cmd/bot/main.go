package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xaenox/band-bot/internal/bot"
	"github.com/xaenox/band-bot/internal/logger"
	"github.com/xaenox/band-bot/internal/ocr"
	"github.com/xaenox/band-bot/internal/scorer"
	"github.com/xaenox/band-bot/internal/server"
	"github.com/xaenox/band-bot/internal/storage"
	"github.com/xaenox/band-bot/pkg/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("Bot error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	store, err := newStorage(cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}
	log.Info("Authorized on Telegram", zap.String("username", api.Self.UserName))

	openaiConfig := openai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		openaiConfig.BaseURL = cfg.OpenAI.BaseURL
	}
	openaiClient := openai.NewClientWithConfig(openaiConfig)

	sc := scorer.NewGPTScorer(openaiClient, cfg.OpenAI.Model, cfg.OpenAI.MaxTokens, cfg.OpenAI.Temperature, log.Named("scorer"))

	recognizer, err := newRecognizer(ctx, cfg, openaiClient)
	if err != nil {
		return fmt.Errorf("failed to initialize OCR: %w", err)
	}
	transcriber := ocr.NewPipeline(ocr.NewTelegramFiles(api, cfg.Telegram.Token, cfg.Telegram.FileEndpoint), recognizer)

	b := bot.New(api, transcriber, sc, store, log.Named("bot"))
	srv := server.NewServer(cfg.Server.Addr(), b, store, cfg.Telegram.WebhookSecret, log.Named("http"))

	var updates tgbotapi.UpdatesChannel
	if cfg.Telegram.WebhookURL != "" {
		if err := registerWebhook(api, cfg.Telegram); err != nil {
			return err
		}
		log.Info("Webhook registered", zap.String("url", cfg.Telegram.WebhookURL))
	} else {
		if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			return fmt.Errorf("failed to delete webhook: %w", err)
		}
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates = api.GetUpdatesChan(u)
		log.Info("Long polling for updates")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if updates != nil {
		g.Go(func() error {
			<-gctx.Done()
			api.StopReceivingUpdates()
			return nil
		})
		g.Go(func() error {
			return b.Poll(gctx, updates)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Bot stopped")
	return nil
}

func newStorage(cfg config.DatabaseConfig, log *zap.Logger) (storage.Storage, error) {
	switch cfg.Driver {
	case "postgres":
		log.Info("Using PostgreSQL storage")
		return storage.NewPostgresStorage(storage.DatabaseConfig{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
			DBName:   cfg.DBName,
			SSLMode:  cfg.SSLMode,
		}, log.Named("storage"))
	case "sqlite":
		log.Info("Using SQLite storage", zap.String("path", cfg.Path))
		return storage.NewSQLiteStorage(cfg.Path, log.Named("storage"))
	default:
		log.Info("Using in-memory storage")
		return storage.NewMemoryStorage(), nil
	}
}

func newRecognizer(ctx context.Context, cfg *config.Config, client *openai.Client) (ocr.Recognizer, error) {
	switch cfg.OCR.Provider {
	case "gemini":
		return ocr.NewGeminiRecognizer(ctx, cfg.Gemini.APIKey, cfg.Gemini.BaseURL, cfg.Gemini.Model)
	default:
		model := cfg.OpenAI.VisionModel
		if model == "" {
			model = cfg.OpenAI.Model
		}
		return ocr.NewOpenAIRecognizer(client, model, cfg.OCR.MaxTokens), nil
	}
}

// registerWebhook points Telegram at <webhook_url>/webhook, carrying the
// secret as a query parameter.
func registerWebhook(api *tgbotapi.BotAPI, cfg config.TelegramConfig) error {
	target := strings.TrimRight(cfg.WebhookURL, "/") + "/webhook"
	if cfg.WebhookSecret != "" {
		target += "?secret=" + url.QueryEscape(cfg.WebhookSecret)
	}
	wh, err := tgbotapi.NewWebhook(target)
	if err != nil {
		return fmt.Errorf("failed to build webhook config: %w", err)
	}
	if _, err := api.Request(wh); err != nil {
		return fmt.Errorf("failed to register webhook: %w", err)
	}
	return nil
}
