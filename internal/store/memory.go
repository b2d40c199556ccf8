package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rampforge/sellbot/internal/domain"
)

// Memory is an in-process Store used by tests and local development.
// Semantics mirror the Postgres implementation, including the
// compare-and-set behaviour of AdvanceStatus.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*domain.SellSession
	accounts map[int64]*domain.BankAccount
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]*domain.SellSession),
		accounts: make(map[int64]*domain.BankAccount),
	}
}

func (m *Memory) CreateSession(_ context.Context, s *domain.SellSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	if s.Status == "" {
		s.Status = domain.StatusPending
	}
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *Memory) GetSession(_ context.Context, id string) (*domain.SellSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *Memory) GetSessionForUser(_ context.Context, id string, userID int64) (*domain.SellSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *Memory) LatestSessionByUser(_ context.Context, userID int64) (*domain.SellSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *domain.SellSession
	for _, s := range m.sessions {
		if s.UserID != userID {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *Memory) AdvanceStatus(_ context.Context, id string, from, to domain.Status, patch Patch) (*domain.SellSession, error) {
	if !domain.CanTransition(from, to) {
		return nil, ErrStatusConflict
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.Status != from {
		return nil, ErrStatusConflict
	}

	s.Status = to
	if patch.WalletAddress != nil {
		s.WalletAddress = *patch.WalletAddress
	}
	if patch.TxHash != nil {
		s.TxHash = *patch.TxHash
	}
	if patch.ErrorMessage != nil {
		s.ErrorMessage = *patch.ErrorMessage
	}
	s.UpdatedAt = time.Now().UTC()

	cp := *s
	return &cp, nil
}

func (m *Memory) RecentSessions(_ context.Context, limit int) ([]domain.SellSession, error) {
	if limit <= 0 {
		limit = 10
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.SellSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) SaveBankAccount(_ context.Context, acc domain.BankAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc.UpdatedAt = time.Now().UTC()
	cp := acc
	m.accounts[acc.UserID] = &cp
	return nil
}

func (m *Memory) GetBankAccount(_ context.Context, userID int64) (*domain.BankAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acc, ok := m.accounts[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *acc
	return &cp, nil
}
