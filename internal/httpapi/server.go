// Package httpapi exposes the wallet-facing HTTP surface: the session
// lookup used by the connect web app and the reconciliation webhooks.
package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/rampforge/sellbot/core/logger"
	"github.com/rampforge/sellbot/internal/handoff"
	"github.com/rampforge/sellbot/internal/reconcile"
	"github.com/rampforge/sellbot/internal/store"
)

// SignatureHeader carries the shared webhook secret when one is configured.
const SignatureHeader = "X-Ramp-Signature"

// Config holds HTTP API settings.
type Config struct {
	Listen string `yaml:"listen" envconfig:"API_LISTEN"`
	Port   int    `yaml:"port" envconfig:"API_PORT"`
	// WebhookSecret, when set, must match the X-Ramp-Signature header on
	// every webhook POST.
	WebhookSecret string `yaml:"webhook_secret" envconfig:"API_WEBHOOK_SECRET"`
}

// Server serves session lookups and webhook reconciliation.
type Server struct {
	sessions   store.Sessions
	reconciler *reconcile.Reconciler
	secret     string
	handoffTTL time.Duration
}

// NewServer builds the HTTP surface. handoffTTL of zero disables link expiry.
func NewServer(sessions store.Sessions, rec *reconcile.Reconciler, secret string, handoffTTL time.Duration) *Server {
	return &Server{
		sessions:   sessions,
		reconciler: rec,
		secret:     secret,
		handoffTTL: handoffTTL,
	}
}

// Router assembles the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/session", s.handleGetSession)

	r.Route("/webhook", func(r chi.Router) {
		r.Use(s.requireSignature)
		r.Post("/wallet-connected", s.handleWalletConnected)
		r.Post("/approval-confirmed", s.handleApprovalConfirmed)
		r.Post("/deposit-confirmed", s.handleDepositConfirmed)
		r.Post("/error", s.handleError)
	})

	return r
}

// Run serves the API until ctx is cancelled.
func (s *Server) Run(ctx context.Context, cfg Config) error {
	addr := fmt.Sprintf("%s:%d", cfg.Listen, cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.API.Info("http api listening",
			slog.String("event", "api.listen"),
			slog.String("addr", addr),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("httpapi: shutdown: %w", err)
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error body.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requireSignature enforces the shared webhook secret when configured.
func (s *Server) requireSignature(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.secret != "" {
			got := r.Header.Get(SignatureHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(s.secret)) != 1 {
				logger.API.Warn("webhook signature rejected",
					slog.String("event", "api.auth"),
					slog.String("path", r.URL.Path),
				)
				Error(w, http.StatusUnauthorized, "invalid signature")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, err := handoff.ParseConnectParams(r.URL.Query())
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := s.sessions.GetSessionForUser(r.Context(), sessionID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			Error(w, http.StatusNotFound, "session not found")
			return
		}
		s.serverError(w, r, err)
		return
	}
	if handoff.Expired(sess, s.handoffTTL, time.Now()) {
		Error(w, http.StatusNotFound, "session not found")
		return
	}

	JSON(w, http.StatusOK, sess)
}

func decode[T any](r *http.Request) (T, error) {
	var v T
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<16))
	if err := dec.Decode(&v); err != nil {
		return v, fmt.Errorf("invalid json body: %w", err)
	}
	return v, nil
}

func (s *Server) handleWalletConnected(w http.ResponseWriter, r *http.Request) {
	ev, err := decode[reconcile.WalletConnectedEvent](r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := s.reconciler.WalletConnected(r.Context(), ev)
	s.writeReconcileResult(w, r, sess, err)
}

func (s *Server) handleApprovalConfirmed(w http.ResponseWriter, r *http.Request) {
	ev, err := decode[reconcile.ApprovalConfirmedEvent](r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := s.reconciler.ApprovalConfirmed(r.Context(), ev)
	s.writeReconcileResult(w, r, sess, err)
}

func (s *Server) handleDepositConfirmed(w http.ResponseWriter, r *http.Request) {
	ev, err := decode[reconcile.DepositConfirmedEvent](r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := s.reconciler.DepositConfirmed(r.Context(), ev)
	s.writeReconcileResult(w, r, sess, err)
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request) {
	ev, err := decode[reconcile.ErrorEvent](r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := s.reconciler.Errored(r.Context(), ev)
	s.writeReconcileResult(w, r, sess, err)
}

// writeReconcileResult maps reconciler errors onto the webhook status
// contract: 400 malformed, 404 unknown session, 409 out-of-order.
func (s *Server) writeReconcileResult(w http.ResponseWriter, r *http.Request, sess any, err error) {
	switch {
	case err == nil:
		JSON(w, http.StatusOK, sess)
	case errors.Is(err, reconcile.ErrInvalidEvent):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		Error(w, http.StatusNotFound, "session not found")
	case errors.Is(err, store.ErrStatusConflict):
		Error(w, http.StatusConflict, "event out of order for current session status")
	default:
		s.serverError(w, r, err)
	}
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	logger.API.Error("request failed",
		slog.String("event", "api.error"),
		slog.String("path", r.URL.Path),
		slog.String("err", err.Error()),
	)
	Error(w, http.StatusInternalServerError, "internal error")
}
