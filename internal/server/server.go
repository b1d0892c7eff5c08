// Package server exposes the Telegram webhook and a health check over HTTP.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/band-bot/internal/bot"
	"github.com/xaenox/band-bot/internal/intake"
)

// maxBodyBytes caps webhook payloads. Telegram updates are a few KiB.
const maxBodyBytes = 1 << 20

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateHandler runs the pipeline for one update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update) bot.Outcome
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	handler    UpdateHandler
	pinger     Pinger
	secret     string
	logger     *zap.Logger
}

// NewServer builds and wires all routes. An empty secret disables the
// webhook secret check.
func NewServer(addr string, handler UpdateHandler, pinger Pinger, secret string, logger *zap.Logger) *Server {
	s := &Server{
		handler: handler,
		pinger:  pinger,
		secret:  secret,
		logger:  logger,
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/webhook", s.handleWebhook)
	r.NotFound(s.handleAlive)
	r.MethodNotAllowed(s.handleAlive)
	return r
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.pinger.Ping(r.Context()); err != nil {
		s.logger.Warn("Health check failed", zap.Error(err))
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	writeText(w, "ok")
}

// handleWebhook always answers 200 so Telegram does not redeliver.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		s.logger.Warn("Ignoring webhook call with wrong secret",
			zap.String("request_id", middleware.GetReqID(r.Context())))
		writeText(w, "ok")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.logger.Warn("Failed to read webhook body", zap.Error(err))
		body = nil
	}

	update := intake.Decode(body)
	s.handler.HandleUpdate(context.WithoutCancel(r.Context()), update)
	writeText(w, "ok")
}

func (s *Server) handleAlive(w http.ResponseWriter, r *http.Request) {
	writeText(w, "worker alive")
}

func (s *Server) authorized(r *http.Request) bool {
	if s.secret == "" {
		return true
	}
	got := r.URL.Query().Get("secret")
	if got == "" {
		got = r.Header.Get(secretHeader)
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.secret)) == 1
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Debug("HTTP request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)))
		}()
		next.ServeHTTP(ww, r)
	})
}

func writeText(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, text)
}
