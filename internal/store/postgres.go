package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rampforge/sellbot/core/logger"
	"github.com/rampforge/sellbot/internal/domain"
)

// Postgres implements Store on top of sqlx.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres wraps an established connection pool.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// sessionRow is the flat scan target for sell_sessions.
type sessionRow struct {
	ID            string    `db:"id"`
	UserID        int64     `db:"user_id"`
	Amount        int64     `db:"amount"`
	Asset         string    `db:"asset"`
	ChainID       int64     `db:"chain_id"`
	Network       string    `db:"network"`
	BankName      string    `db:"bank_name"`
	BankCode      string    `db:"bank_code"`
	AccountNumber string    `db:"account_number"`
	AccountName   string    `db:"account_name"`
	Status        string    `db:"status"`
	WalletAddress string    `db:"wallet_address"`
	TxHash        string    `db:"tx_hash"`
	ErrorMessage  string    `db:"error_message"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r sessionRow) toDomain() *domain.SellSession {
	return &domain.SellSession{
		ID:      r.ID,
		UserID:  r.UserID,
		Amount:  r.Amount,
		Asset:   r.Asset,
		ChainID: r.ChainID,
		Network: r.Network,
		Bank: domain.BankDetails{
			BankName:      r.BankName,
			BankCode:      r.BankCode,
			AccountNumber: r.AccountNumber,
			AccountName:   r.AccountName,
		},
		Status:        domain.Status(r.Status),
		WalletAddress: r.WalletAddress,
		TxHash:        r.TxHash,
		ErrorMessage:  r.ErrorMessage,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

const sessionColumns = `id, user_id, amount, asset, chain_id, network,
	bank_name, bank_code, account_number, account_name,
	status, wallet_address, tx_hash, error_message, created_at, updated_at`

// CreateSession inserts a new session. CreatedAt/UpdatedAt are set here.
func (p *Postgres) CreateSession(ctx context.Context, s *domain.SellSession) error {
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	if s.Status == "" {
		s.Status = domain.StatusPending
	}

	const q = `
		INSERT INTO sell_sessions (
			id, user_id, amount, asset, chain_id, network,
			bank_name, bank_code, account_number, account_name,
			status, wallet_address, tx_hash, error_message, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16
		)`

	_, err := p.db.ExecContext(ctx, q,
		s.ID, s.UserID, s.Amount, s.Asset, s.ChainID, s.Network,
		s.Bank.BankName, s.Bank.BankCode, s.Bank.AccountNumber, s.Bank.AccountName,
		string(s.Status), s.WalletAddress, s.TxHash, s.ErrorMessage, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	logger.DB.Info("session created",
		slog.String("event", "session.create"),
		slog.String("session_id", s.ID),
		slog.Int64("user_id", s.UserID),
		slog.Int64("amount_units", s.Amount),
		slog.String("network", s.Network),
	)
	return nil
}

func (p *Postgres) GetSession(ctx context.Context, id string) (*domain.SellSession, error) {
	var row sessionRow
	q := `SELECT ` + sessionColumns + ` FROM sell_sessions WHERE id = $1`
	if err := p.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return row.toDomain(), nil
}

func (p *Postgres) GetSessionForUser(ctx context.Context, id string, userID int64) (*domain.SellSession, error) {
	var row sessionRow
	q := `SELECT ` + sessionColumns + ` FROM sell_sessions WHERE id = $1 AND user_id = $2`
	if err := p.db.GetContext(ctx, &row, q, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session for user: %w", err)
	}
	return row.toDomain(), nil
}

func (p *Postgres) LatestSessionByUser(ctx context.Context, userID int64) (*domain.SellSession, error) {
	var row sessionRow
	q := `SELECT ` + sessionColumns + `
		FROM sell_sessions WHERE user_id = $1
		ORDER BY created_at DESC LIMIT 1`
	if err := p.db.GetContext(ctx, &row, q, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("latest session by user: %w", err)
	}
	return row.toDomain(), nil
}

// AdvanceStatus rejects edges outside the status graph, then performs the
// compare-and-set in a single UPDATE guarded by both id and the expected
// status. Zero rows updated means either a stale status or a missing
// session; a follow-up read disambiguates.
func (p *Postgres) AdvanceStatus(ctx context.Context, id string, from, to domain.Status, patch Patch) (*domain.SellSession, error) {
	if !domain.CanTransition(from, to) {
		return nil, ErrStatusConflict
	}

	const q = `
		UPDATE sell_sessions SET
			status = $1,
			wallet_address = COALESCE($2, wallet_address),
			tx_hash = COALESCE($3, tx_hash),
			error_message = COALESCE($4, error_message),
			updated_at = $5
		WHERE id = $6 AND status = $7
		RETURNING ` + sessionColumns

	var row sessionRow
	err := p.db.GetContext(ctx, &row, q,
		string(to), patch.WalletAddress, patch.TxHash, patch.ErrorMessage,
		time.Now().UTC(), id, string(from),
	)
	if err == nil {
		logger.DB.Info("session status advanced",
			slog.String("event", "session.advance"),
			slog.String("session_id", id),
			slog.String("from_status", string(from)),
			slog.String("to_status", string(to)),
		)
		return row.toDomain(), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("advance status: %w", err)
	}

	// No row updated. Distinguish conflict from missing session.
	if _, getErr := p.GetSession(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrStatusConflict
}

func (p *Postgres) RecentSessions(ctx context.Context, limit int) ([]domain.SellSession, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []sessionRow
	q := `SELECT ` + sessionColumns + `
		FROM sell_sessions ORDER BY created_at DESC LIMIT $1`
	if err := p.db.SelectContext(ctx, &rows, q, limit); err != nil {
		return nil, fmt.Errorf("recent sessions: %w", err)
	}
	out := make([]domain.SellSession, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r.toDomain())
	}
	return out, nil
}

// SaveBankAccount upserts the user's last-used payout account.
func (p *Postgres) SaveBankAccount(ctx context.Context, acc domain.BankAccount) error {
	const q = `
		INSERT INTO bank_accounts (user_id, bank_name, bank_code, account_number, account_name, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			bank_name = EXCLUDED.bank_name,
			bank_code = EXCLUDED.bank_code,
			account_number = EXCLUDED.account_number,
			account_name = EXCLUDED.account_name,
			updated_at = EXCLUDED.updated_at`

	_, err := p.db.ExecContext(ctx, q,
		acc.UserID, acc.BankName, acc.BankCode, acc.AccountNumber, acc.AccountName, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save bank account: %w", err)
	}
	return nil
}

func (p *Postgres) GetBankAccount(ctx context.Context, userID int64) (*domain.BankAccount, error) {
	var acc domain.BankAccount
	const q = `
		SELECT user_id, bank_name, bank_code, account_number, account_name, updated_at
		FROM bank_accounts WHERE user_id = $1`
	if err := p.db.GetContext(ctx, &acc, q, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get bank account: %w", err)
	}
	return &acc, nil
}
