package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rampforge/sellbot/internal/domain"
)

func newSession(userID int64) *domain.SellSession {
	return &domain.SellSession{
		ID:      uuid.NewString(),
		UserID:  userID,
		Amount:  10_000_000,
		Asset:   "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		ChainID: 8453,
		Network: "BASE",
		Bank: domain.BankDetails{
			BankName:      "Guaranty Trust Bank",
			BankCode:      "058",
			AccountNumber: "0123456789",
			AccountName:   "Jane Doe",
		},
		Status: domain.StatusPending,
	}
}

func strPtr(s string) *string { return &s }

func TestMemoryCreateAndGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	s := newSession(42)

	if err := m.CreateSession(ctx, s); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	got, err := m.GetSession(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Amount != 10_000_000 || got.Status != domain.StatusPending {
		t.Errorf("unexpected session: %+v", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not set on create")
	}

	if _, err := m.GetSession(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryGetSessionForUser(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	s := newSession(42)
	if err := m.CreateSession(ctx, s); err != nil {
		t.Fatal(err)
	}

	if _, err := m.GetSessionForUser(ctx, s.ID, 42); err != nil {
		t.Errorf("owner lookup failed: %v", err)
	}
	if _, err := m.GetSessionForUser(ctx, s.ID, 43); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign user must not see the session, got %v", err)
	}
}

func TestMemoryLatestSessionByUser(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	first := newSession(42)
	if err := m.CreateSession(ctx, first); err != nil {
		t.Fatal(err)
	}
	// Creation timestamps must differ for ordering.
	time.Sleep(2 * time.Millisecond)
	second := newSession(42)
	if err := m.CreateSession(ctx, second); err != nil {
		t.Fatal(err)
	}
	if err := m.CreateSession(ctx, newSession(99)); err != nil {
		t.Fatal(err)
	}

	got, err := m.LatestSessionByUser(ctx, 42)
	if err != nil {
		t.Fatalf("LatestSessionByUser: %v", err)
	}
	if got.ID != second.ID {
		t.Errorf("expected latest session %s, got %s", second.ID, got.ID)
	}

	if _, err := m.LatestSessionByUser(ctx, 7); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryAdvanceStatus(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	s := newSession(42)
	if err := m.CreateSession(ctx, s); err != nil {
		t.Fatal(err)
	}

	got, err := m.AdvanceStatus(ctx, s.ID, domain.StatusPending, domain.StatusWalletConnected,
		Patch{WalletAddress: strPtr("0xabc")})
	if err != nil {
		t.Fatalf("AdvanceStatus: %v", err)
	}
	if got.Status != domain.StatusWalletConnected || got.WalletAddress != "0xabc" {
		t.Errorf("unexpected session after advance: %+v", got)
	}

	// Stale expected status: no mutation, conflict error.
	if _, err := m.AdvanceStatus(ctx, s.ID, domain.StatusPending, domain.StatusWalletConnected, Patch{}); !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got %v", err)
	}
	cur, _ := m.GetSession(ctx, s.ID)
	if cur.Status != domain.StatusWalletConnected {
		t.Errorf("conflicting advance mutated the session: %+v", cur)
	}

	if _, err := m.AdvanceStatus(ctx, uuid.NewString(), domain.StatusPending, domain.StatusWalletConnected, Patch{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryAdvanceRejectsInvalidEdge(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	s := newSession(42)
	if err := m.CreateSession(ctx, s); err != nil {
		t.Fatal(err)
	}

	// Edges that skip steps or run backwards never reach the row, even
	// when the expected status matches the stored one.
	bad := []struct{ from, to domain.Status }{
		{domain.StatusPending, domain.StatusCompleted},
		{domain.StatusPending, domain.StatusDepositConfirmed},
		{domain.StatusWalletConnected, domain.StatusPending},
		{domain.StatusCompleted, domain.StatusErrored},
	}
	for _, e := range bad {
		if _, err := m.AdvanceStatus(ctx, s.ID, e.from, e.to, Patch{}); !errors.Is(err, ErrStatusConflict) {
			t.Errorf("%s -> %s: expected ErrStatusConflict, got %v", e.from, e.to, err)
		}
	}
	cur, err := m.GetSession(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if cur.Status != domain.StatusPending {
		t.Errorf("rejected advance mutated the session: %+v", cur)
	}
}

func TestMemoryAdvancePatchKeepsUnsetFields(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	s := newSession(42)
	if err := m.CreateSession(ctx, s); err != nil {
		t.Fatal(err)
	}

	if _, err := m.AdvanceStatus(ctx, s.ID, domain.StatusPending, domain.StatusWalletConnected,
		Patch{WalletAddress: strPtr("0xabc")}); err != nil {
		t.Fatal(err)
	}
	got, err := m.AdvanceStatus(ctx, s.ID, domain.StatusWalletConnected, domain.StatusApprovalConfirmed,
		Patch{TxHash: strPtr("0xdeadbeef")})
	if err != nil {
		t.Fatal(err)
	}
	if got.WalletAddress != "0xabc" {
		t.Errorf("nil patch field must keep stored value, got %q", got.WalletAddress)
	}
	if got.TxHash != "0xdeadbeef" {
		t.Errorf("tx hash not recorded: %+v", got)
	}
}

func TestMemoryRecentSessions(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for i := 0; i < 5; i++ {
		if err := m.CreateSession(ctx, newSession(int64(i))); err != nil {
			t.Fatal(err)
		}
		time.Sleep(time.Millisecond)
	}

	got, err := m.RecentSessions(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(got))
	}
	if got[0].CreatedAt.Before(got[1].CreatedAt) {
		t.Error("sessions not ordered newest first")
	}
}

func TestMemoryBankAccounts(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.GetBankAccount(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	acc := domain.BankAccount{
		UserID:        42,
		BankName:      "Zenith Bank",
		BankCode:      "057",
		AccountNumber: "0123456789",
		AccountName:   "Jane Doe",
	}
	if err := m.SaveBankAccount(ctx, acc); err != nil {
		t.Fatal(err)
	}

	got, err := m.GetBankAccount(ctx, 42)
	if err != nil {
		t.Fatal(err)
	}
	if got.BankCode != "057" || got.AccountName != "Jane Doe" {
		t.Errorf("unexpected account: %+v", got)
	}

	// Overwrite keeps one account per user.
	acc.BankName = "Access Bank"
	acc.BankCode = "044"
	if err := m.SaveBankAccount(ctx, acc); err != nil {
		t.Fatal(err)
	}
	got, _ = m.GetBankAccount(ctx, 42)
	if got.BankCode != "044" {
		t.Errorf("expected overwritten account, got %+v", got)
	}
}
