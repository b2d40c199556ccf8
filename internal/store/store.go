package store

import (
	"context"
	"errors"

	"github.com/rampforge/sellbot/internal/domain"
)

var (
	// ErrNotFound is returned when no row matches the lookup.
	ErrNotFound = errors.New("store: not found")
	// ErrStatusConflict is returned by AdvanceStatus when the stored
	// status differs from the expected one. Nothing is mutated.
	ErrStatusConflict = errors.New("store: status conflict")
)

// Patch carries optional fields applied together with a status advance.
// Nil pointers leave the stored value untouched.
type Patch struct {
	WalletAddress *string
	TxHash        *string
	ErrorMessage  *string
}

// Sessions persists sell sessions.
type Sessions interface {
	// CreateSession inserts a new session with status pending.
	CreateSession(ctx context.Context, s *domain.SellSession) error
	// GetSession fetches a session by id.
	GetSession(ctx context.Context, id string) (*domain.SellSession, error)
	// GetSessionForUser fetches a session only when both id and owner match.
	GetSessionForUser(ctx context.Context, id string, userID int64) (*domain.SellSession, error)
	// LatestSessionByUser returns the user's most recently created session.
	LatestSessionByUser(ctx context.Context, userID int64) (*domain.SellSession, error)
	// AdvanceStatus compares-and-sets the status from -> to, applying the
	// patch and refreshing UpdatedAt atomically. Returns the updated
	// session, ErrStatusConflict on a stale expected status, or
	// ErrNotFound when the id does not exist.
	AdvanceStatus(ctx context.Context, id string, from, to domain.Status, patch Patch) (*domain.SellSession, error)
	// RecentSessions lists the newest sessions across all users.
	RecentSessions(ctx context.Context, limit int) ([]domain.SellSession, error)
}

// BankAccounts persists each user's last-used payout account.
type BankAccounts interface {
	SaveBankAccount(ctx context.Context, acc domain.BankAccount) error
	GetBankAccount(ctx context.Context, userID int64) (*domain.BankAccount, error)
}

// Store aggregates the persistence interfaces backed by one database.
type Store interface {
	Sessions
	BankAccounts
}
