package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rampforge/sellbot/core/logger"
	"github.com/rampforge/sellbot/internal/domain"
	"github.com/rampforge/sellbot/internal/store"
)

// ErrInvalidEvent marks a webhook payload missing required fields.
var ErrInvalidEvent = errors.New("reconcile: invalid event")

// Notifier delivers lifecycle notifications back to the user. A nil
// notifier is allowed; delivery failures never fail reconciliation.
type Notifier interface {
	NotifyCompleted(ctx context.Context, s *domain.SellSession)
	NotifyErrored(ctx context.Context, s *domain.SellSession)
}

// WalletConnectedEvent reports that the user connected a wallet on the web side.
type WalletConnectedEvent struct {
	UserID        int64  `json:"userId"`
	WalletAddress string `json:"walletAddress"`
}

// ApprovalConfirmedEvent reports an on-chain token approval.
type ApprovalConfirmedEvent struct {
	UserID        int64  `json:"userId"`
	WalletAddress string `json:"walletAddress"`
	TxHash        string `json:"txHash"`
}

// DepositConfirmedEvent reports the deposit transaction landing on-chain.
type DepositConfirmedEvent struct {
	UserID        int64  `json:"userId"`
	WalletAddress string `json:"walletAddress"`
	TxHash        string `json:"txHash"`
	Amount        int64  `json:"amount"`
	ChainID       int64  `json:"chainId"`
}

// ErrorEvent reports a failure anywhere in the web/on-chain flow.
type ErrorEvent struct {
	UserID int64  `json:"userId"`
	Error  string `json:"error"`
}

// Reconciler applies webhook events to the user's latest session with
// compare-and-set status transitions. Duplicate or out-of-order events
// surface as store.ErrStatusConflict and never mutate anything.
type Reconciler struct {
	sessions store.Sessions
	notifier Notifier
}

// New builds a reconciler. notifier may be nil.
func New(sessions store.Sessions, notifier Notifier) *Reconciler {
	return &Reconciler{sessions: sessions, notifier: notifier}
}

// target finds the session a user event addresses: the user's most
// recently created session.
func (r *Reconciler) target(ctx context.Context, userID int64) (*domain.SellSession, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: missing userId", ErrInvalidEvent)
	}
	return r.sessions.LatestSessionByUser(ctx, userID)
}

// WalletConnected moves pending -> wallet_connected. Re-delivery of the
// same wallet address on an already connected session is a no-op success.
func (r *Reconciler) WalletConnected(ctx context.Context, ev WalletConnectedEvent) (*domain.SellSession, error) {
	wallet := strings.TrimSpace(ev.WalletAddress)
	if wallet == "" {
		return nil, fmt.Errorf("%w: missing walletAddress", ErrInvalidEvent)
	}

	s, err := r.target(ctx, ev.UserID)
	if err != nil {
		return nil, err
	}

	if s.Status == domain.StatusWalletConnected && strings.EqualFold(s.WalletAddress, wallet) {
		logger.SVCReconcile.Info("duplicate wallet connect ignored",
			slog.String("event", "reconcile.wallet_connected"),
			slog.String("session_id", s.ID),
			slog.String("outcome", "noop"),
		)
		return s, nil
	}

	updated, err := r.sessions.AdvanceStatus(ctx, s.ID,
		domain.StatusPending, domain.StatusWalletConnected,
		store.Patch{WalletAddress: &wallet})
	if err != nil {
		return nil, err
	}
	r.logAdvance(updated, domain.StatusPending)
	return updated, nil
}

// ApprovalConfirmed moves wallet_connected -> approval_confirmed and
// records the approval transaction hash.
func (r *Reconciler) ApprovalConfirmed(ctx context.Context, ev ApprovalConfirmedEvent) (*domain.SellSession, error) {
	txHash := strings.TrimSpace(ev.TxHash)
	if txHash == "" {
		return nil, fmt.Errorf("%w: missing txHash", ErrInvalidEvent)
	}

	s, err := r.target(ctx, ev.UserID)
	if err != nil {
		return nil, err
	}
	if wallet := strings.TrimSpace(ev.WalletAddress); wallet != "" && s.WalletAddress != "" && !strings.EqualFold(wallet, s.WalletAddress) {
		return nil, store.ErrStatusConflict
	}

	updated, err := r.sessions.AdvanceStatus(ctx, s.ID,
		domain.StatusWalletConnected, domain.StatusApprovalConfirmed,
		store.Patch{TxHash: &txHash})
	if err != nil {
		return nil, err
	}
	r.logAdvance(updated, domain.StatusWalletConnected)
	return updated, nil
}

// DepositConfirmed moves approval_confirmed -> deposit_confirmed and then
// immediately deposit_confirmed -> completed, recording the deposit hash
// and notifying the user. A crash between the two steps leaves the session
// at deposit_confirmed; a redelivery carrying the same hash skips the first
// step and resumes the completion, so the event stays at-least-once safe.
func (r *Reconciler) DepositConfirmed(ctx context.Context, ev DepositConfirmedEvent) (*domain.SellSession, error) {
	txHash := strings.TrimSpace(ev.TxHash)
	if txHash == "" {
		return nil, fmt.Errorf("%w: missing txHash", ErrInvalidEvent)
	}

	s, err := r.target(ctx, ev.UserID)
	if err != nil {
		return nil, err
	}
	if ev.Amount > 0 && ev.Amount != s.Amount {
		logger.SVCReconcile.Warn("deposit amount mismatch",
			slog.String("event", "reconcile.deposit_confirmed"),
			slog.String("session_id", s.ID),
			slog.Int64("amount_units", ev.Amount),
		)
	}

	resume := s.Status == domain.StatusDepositConfirmed && strings.EqualFold(s.TxHash, txHash)
	if resume {
		logger.SVCReconcile.Info("resuming interrupted deposit completion",
			slog.String("event", "reconcile.deposit_confirmed"),
			slog.String("session_id", s.ID),
		)
	} else {
		if _, err := r.sessions.AdvanceStatus(ctx, s.ID,
			domain.StatusApprovalConfirmed, domain.StatusDepositConfirmed,
			store.Patch{TxHash: &txHash}); err != nil {
			return nil, err
		}
	}

	updated, err := r.sessions.AdvanceStatus(ctx, s.ID,
		domain.StatusDepositConfirmed, domain.StatusCompleted, store.Patch{})
	if err != nil {
		return nil, err
	}
	r.logAdvance(updated, domain.StatusApprovalConfirmed)

	if r.notifier != nil {
		r.notifier.NotifyCompleted(ctx, updated)
	}
	return updated, nil
}

// Errored moves any non-terminal session to errored, records the message
// and notifies the user. Terminal sessions yield a conflict.
func (r *Reconciler) Errored(ctx context.Context, ev ErrorEvent) (*domain.SellSession, error) {
	msg := strings.TrimSpace(ev.Error)
	if msg == "" {
		return nil, fmt.Errorf("%w: missing error message", ErrInvalidEvent)
	}

	s, err := r.target(ctx, ev.UserID)
	if err != nil {
		return nil, err
	}
	if s.Status.IsTerminal() {
		return nil, store.ErrStatusConflict
	}

	updated, err := r.sessions.AdvanceStatus(ctx, s.ID,
		s.Status, domain.StatusErrored,
		store.Patch{ErrorMessage: &msg})
	if err != nil {
		return nil, err
	}
	r.logAdvance(updated, s.Status)

	if r.notifier != nil {
		r.notifier.NotifyErrored(ctx, updated)
	}
	return updated, nil
}

func (r *Reconciler) logAdvance(s *domain.SellSession, from domain.Status) {
	logger.SVCReconcile.Info("session reconciled",
		slog.String("event", "reconcile.advance"),
		slog.String("session_id", s.ID),
		slog.Int64("user_id", s.UserID),
		slog.String("from_status", string(from)),
		slog.String("to_status", string(s.Status)),
	)
}
