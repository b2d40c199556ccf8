package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/rampforge/sellbot/internal/domain"
	"github.com/rampforge/sellbot/internal/store"
)

type recordingNotifier struct {
	completed []string
	errored   []string
}

func (n *recordingNotifier) NotifyCompleted(_ context.Context, s *domain.SellSession) {
	n.completed = append(n.completed, s.ID)
}

func (n *recordingNotifier) NotifyErrored(_ context.Context, s *domain.SellSession) {
	n.errored = append(n.errored, s.ID)
}

func strPtr(s string) *string { return &s }

func seedSession(t *testing.T, m *store.Memory, userID int64) *domain.SellSession {
	t.Helper()
	s := &domain.SellSession{
		ID:      uuid.NewString(),
		UserID:  userID,
		Amount:  10_000_000,
		Asset:   "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		ChainID: 8453,
		Network: "BASE",
		Status:  domain.StatusPending,
	}
	if err := m.CreateSession(context.Background(), s); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestWalletConnected(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	r := New(m, nil)
	s := seedSession(t, m, 42)

	got, err := r.WalletConnected(ctx, WalletConnectedEvent{UserID: 42, WalletAddress: "0xabc"})
	if err != nil {
		t.Fatalf("WalletConnected: %v", err)
	}
	if got.Status != domain.StatusWalletConnected || got.WalletAddress != "0xabc" {
		t.Errorf("unexpected session: %+v", got)
	}
	if got.ID != s.ID {
		t.Errorf("wrong session addressed")
	}
}

func TestWalletConnectedIdempotent(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	r := New(m, nil)
	seedSession(t, m, 42)

	first, err := r.WalletConnected(ctx, WalletConnectedEvent{UserID: 42, WalletAddress: "0xabc"})
	if err != nil {
		t.Fatal(err)
	}

	// Same wallet again: no-op success, no mutation.
	second, err := r.WalletConnected(ctx, WalletConnectedEvent{UserID: 42, WalletAddress: "0xabc"})
	if err != nil {
		t.Fatalf("duplicate delivery must succeed: %v", err)
	}
	if second.Status != domain.StatusWalletConnected {
		t.Errorf("unexpected status %s", second.Status)
	}
	if !second.UpdatedAt.Equal(first.UpdatedAt) {
		t.Error("duplicate delivery mutated the session")
	}

	// A different wallet on the connected session is a conflict.
	if _, err := r.WalletConnected(ctx, WalletConnectedEvent{UserID: 42, WalletAddress: "0xother"}); !errors.Is(err, store.ErrStatusConflict) {
		t.Errorf("expected ErrStatusConflict, got %v", err)
	}
}

func TestWalletConnectedUnknownUser(t *testing.T) {
	r := New(store.NewMemory(), nil)
	if _, err := r.WalletConnected(context.Background(), WalletConnectedEvent{UserID: 7, WalletAddress: "0xabc"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestWalletConnectedValidation(t *testing.T) {
	r := New(store.NewMemory(), nil)
	if _, err := r.WalletConnected(context.Background(), WalletConnectedEvent{UserID: 42}); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("expected ErrInvalidEvent, got %v", err)
	}
	if _, err := r.WalletConnected(context.Background(), WalletConnectedEvent{WalletAddress: "0xabc"}); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestApprovalConfirmed(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	r := New(m, nil)
	seedSession(t, m, 42)

	if _, err := r.WalletConnected(ctx, WalletConnectedEvent{UserID: 42, WalletAddress: "0xabc"}); err != nil {
		t.Fatal(err)
	}

	got, err := r.ApprovalConfirmed(ctx, ApprovalConfirmedEvent{UserID: 42, WalletAddress: "0xabc", TxHash: "0xaaa"})
	if err != nil {
		t.Fatalf("ApprovalConfirmed: %v", err)
	}
	if got.Status != domain.StatusApprovalConfirmed || got.TxHash != "0xaaa" {
		t.Errorf("unexpected session: %+v", got)
	}

	// Duplicate approval is out of order now.
	if _, err := r.ApprovalConfirmed(ctx, ApprovalConfirmedEvent{UserID: 42, WalletAddress: "0xabc", TxHash: "0xaaa"}); !errors.Is(err, store.ErrStatusConflict) {
		t.Errorf("expected ErrStatusConflict, got %v", err)
	}
}

func TestApprovalConfirmedWalletMismatch(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	r := New(m, nil)
	seedSession(t, m, 42)

	if _, err := r.WalletConnected(ctx, WalletConnectedEvent{UserID: 42, WalletAddress: "0xabc"}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.ApprovalConfirmed(ctx, ApprovalConfirmedEvent{UserID: 42, WalletAddress: "0xevil", TxHash: "0xaaa"}); !errors.Is(err, store.ErrStatusConflict) {
		t.Errorf("expected ErrStatusConflict for wallet mismatch, got %v", err)
	}
}

func TestDepositConfirmedCompletesAndNotifies(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	n := &recordingNotifier{}
	r := New(m, n)
	s := seedSession(t, m, 42)

	if _, err := r.WalletConnected(ctx, WalletConnectedEvent{UserID: 42, WalletAddress: "0xabc"}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.ApprovalConfirmed(ctx, ApprovalConfirmedEvent{UserID: 42, TxHash: "0xaaa"}); err != nil {
		t.Fatal(err)
	}

	got, err := r.DepositConfirmed(ctx, DepositConfirmedEvent{
		UserID: 42, WalletAddress: "0xabc", TxHash: "0xbbb", Amount: 10_000_000, ChainID: 8453,
	})
	if err != nil {
		t.Fatalf("DepositConfirmed: %v", err)
	}
	if got.Status != domain.StatusCompleted {
		t.Errorf("expected completed, got %s", got.Status)
	}
	if got.TxHash != "0xbbb" {
		t.Errorf("deposit hash not recorded: %+v", got)
	}
	if len(n.completed) != 1 || n.completed[0] != s.ID {
		t.Errorf("completion not notified: %v", n.completed)
	}
}

func TestDepositConfirmedRedeliveryResumesCompletion(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	n := &recordingNotifier{}
	r := New(m, n)
	s := seedSession(t, m, 42)

	if _, err := r.WalletConnected(ctx, WalletConnectedEvent{UserID: 42, WalletAddress: "0xabc"}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.ApprovalConfirmed(ctx, ApprovalConfirmedEvent{UserID: 42, TxHash: "0xaaa"}); err != nil {
		t.Fatal(err)
	}
	// First half of the advance landed, then the process died before the
	// completion step.
	if _, err := m.AdvanceStatus(ctx, s.ID,
		domain.StatusApprovalConfirmed, domain.StatusDepositConfirmed,
		store.Patch{TxHash: strPtr("0xbbb")}); err != nil {
		t.Fatal(err)
	}

	got, err := r.DepositConfirmed(ctx, DepositConfirmedEvent{UserID: 42, TxHash: "0xbbb"})
	if err != nil {
		t.Fatalf("redelivery must resume the completion: %v", err)
	}
	if got.Status != domain.StatusCompleted {
		t.Errorf("expected completed, got %s", got.Status)
	}
	if len(n.completed) != 1 || n.completed[0] != s.ID {
		t.Errorf("resumed completion not notified: %v", n.completed)
	}

	// A different deposit hash does not qualify as a resume.
	s2 := seedSession(t, m, 43)
	if _, err := r.WalletConnected(ctx, WalletConnectedEvent{UserID: 43, WalletAddress: "0xdef"}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.ApprovalConfirmed(ctx, ApprovalConfirmedEvent{UserID: 43, TxHash: "0xaaa"}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AdvanceStatus(ctx, s2.ID,
		domain.StatusApprovalConfirmed, domain.StatusDepositConfirmed,
		store.Patch{TxHash: strPtr("0xbbb")}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.DepositConfirmed(ctx, DepositConfirmedEvent{UserID: 43, TxHash: "0xccc"}); !errors.Is(err, store.ErrStatusConflict) {
		t.Errorf("expected ErrStatusConflict for mismatched hash, got %v", err)
	}
}

func TestDepositConfirmedOutOfOrder(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	n := &recordingNotifier{}
	r := New(m, n)
	seedSession(t, m, 42)

	// Deposit while still pending: strict DAG, no skips.
	if _, err := r.DepositConfirmed(ctx, DepositConfirmedEvent{UserID: 42, TxHash: "0xbbb"}); !errors.Is(err, store.ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got %v", err)
	}

	cur, _ := m.LatestSessionByUser(ctx, 42)
	if cur.Status != domain.StatusPending {
		t.Errorf("out-of-order event mutated the session: %+v", cur)
	}
	if len(n.completed) != 0 {
		t.Error("out-of-order event must not notify")
	}
}

func TestErrored(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	n := &recordingNotifier{}
	r := New(m, n)
	s := seedSession(t, m, 42)

	got, err := r.Errored(ctx, ErrorEvent{UserID: 42, Error: "user rejected signature"})
	if err != nil {
		t.Fatalf("Errored: %v", err)
	}
	if got.Status != domain.StatusErrored || got.ErrorMessage != "user rejected signature" {
		t.Errorf("unexpected session: %+v", got)
	}
	if len(n.errored) != 1 || n.errored[0] != s.ID {
		t.Errorf("failure not notified: %v", n.errored)
	}

	// Errored is terminal.
	if _, err := r.Errored(ctx, ErrorEvent{UserID: 42, Error: "again"}); !errors.Is(err, store.ErrStatusConflict) {
		t.Errorf("expected ErrStatusConflict, got %v", err)
	}
	if _, err := r.WalletConnected(ctx, WalletConnectedEvent{UserID: 42, WalletAddress: "0xabc"}); !errors.Is(err, store.ErrStatusConflict) {
		t.Errorf("expected ErrStatusConflict, got %v", err)
	}
}

func TestErroredFromMidFlow(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	r := New(m, nil)
	seedSession(t, m, 42)

	if _, err := r.WalletConnected(ctx, WalletConnectedEvent{UserID: 42, WalletAddress: "0xabc"}); err != nil {
		t.Fatal(err)
	}
	got, err := r.Errored(ctx, ErrorEvent{UserID: 42, Error: "approval reverted"})
	if err != nil {
		t.Fatalf("Errored from wallet_connected: %v", err)
	}
	if got.Status != domain.StatusErrored {
		t.Errorf("expected errored, got %s", got.Status)
	}
	// The wallet recorded earlier stays on the session.
	if got.WalletAddress != "0xabc" {
		t.Errorf("wallet lost on error: %+v", got)
	}
}
