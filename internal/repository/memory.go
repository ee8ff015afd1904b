// Package repository memory store
package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gmcfx/GM-Capital/internal/model"

	"github.com/shopspring/decimal"
)

type memTxKey struct{}

// memTx undo journal of one in-memory transaction
type memTx struct {
	undo []func()
}

func extractMemTx(ctx context.Context) *memTx {
	if tx, ok := ctx.Value(memTxKey{}).(*memTx); ok {
		return tx
	}
	return nil
}

// Memory process-local store for positions and accounts
type Memory struct {
	mu        sync.RWMutex
	positions map[string]*model.Position
	byAccount map[string][]string
	accounts  map[string]*model.Account
}

// NewMemory constructor
func NewMemory() *Memory {
	return &Memory{
		positions: make(map[string]*model.Position),
		byAccount: make(map[string][]string),
		accounts:  make(map[string]*model.Account),
	}
}

// Positions position store view
func (m *Memory) Positions() *MemoryPositions {
	return &MemoryPositions{m: m}
}

// Accounts account store view
func (m *Memory) Accounts() *MemoryAccounts {
	return &MemoryAccounts{m: m}
}

// Transactor transactor over this store
func (m *Memory) Transactor() *MemoryTransactor {
	return &MemoryTransactor{m: m}
}

// record must be called with m.mu held
func (m *Memory) record(ctx context.Context, undo func()) {
	if tx := extractMemTx(ctx); tx != nil {
		tx.undo = append(tx.undo, undo)
	}
}

// MemoryTransactor reverts every mutation of a failed unit of work
type MemoryTransactor struct {
	m *Memory
}

// WithinTransaction runs txFunc, on error undoes its mutations in reverse order
func (t *MemoryTransactor) WithinTransaction(ctx context.Context, txFunc func(context.Context) error) error {
	if extractMemTx(ctx) != nil {
		return txFunc(ctx)
	}
	tx := &memTx{}
	err := txFunc(context.WithValue(ctx, memTxKey{}, tx))
	if err != nil {
		t.m.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		t.m.mu.Unlock()
	}
	return err
}

// MemoryPositions in-memory position store
type MemoryPositions struct {
	m *Memory
}

// Insert stores a new position
func (r *MemoryPositions) Insert(ctx context.Context, position *model.Position) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("memory - Insert: %w", model.Deadline(err))
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.positions[position.ID]; ok {
		return fmt.Errorf("memory - Insert: %w: position %s already exists", model.ErrStorage, position.ID)
	}
	if _, ok := r.m.accounts[position.AccountID]; !ok {
		return fmt.Errorf("memory - Insert: account %s: %w", position.AccountID, model.ErrNotFound)
	}
	r.m.positions[position.ID] = position.Clone()
	r.m.byAccount[position.AccountID] = append(r.m.byAccount[position.AccountID], position.ID)
	r.m.record(ctx, func() {
		delete(r.m.positions, position.ID)
		ids := r.m.byAccount[position.AccountID]
		for i := len(ids) - 1; i >= 0; i-- {
			if ids[i] == position.ID {
				r.m.byAccount[position.AccountID] = append(ids[:i:i], ids[i+1:]...)
				break
			}
		}
	})
	return nil
}

// Get position by id
func (r *MemoryPositions) Get(ctx context.Context, id string) (*model.Position, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	p, ok := r.m.positions[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return p.Clone(), nil
}

// MarkClosed closes an open position, fails with model.ErrAlreadyClosed otherwise
func (r *MemoryPositions) MarkClosed(ctx context.Context, id string, closedAt time.Time, realizedPnL decimal.Decimal, reason model.CloseReason) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("memory - MarkClosed: %w", model.Deadline(err))
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	p, ok := r.m.positions[id]
	if !ok {
		return model.ErrNotFound
	}
	if !p.IsOpen() {
		return model.ErrAlreadyClosed
	}
	previous := p.Clone()
	p.Status = model.StatusClosed
	p.ClosedAt = &closedAt
	p.RealizedPnL = &realizedPnL
	p.CloseReason = reason
	r.m.record(ctx, func() {
		r.m.positions[id] = previous
	})
	return nil
}

// ListOpen open positions of an account in insertion order
func (r *MemoryPositions) ListOpen(ctx context.Context, accountID string) ([]*model.Position, error) {
	return r.list(accountID, true), nil
}

// ListByAccount all positions of an account in insertion order
func (r *MemoryPositions) ListByAccount(ctx context.Context, accountID string) ([]*model.Position, error) {
	return r.list(accountID, false), nil
}

// OpenAccounts accounts with open positions
func (r *MemoryPositions) OpenAccounts(ctx context.Context) ([]string, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var accounts []string
	for accountID, ids := range r.m.byAccount {
		for _, id := range ids {
			if r.m.positions[id].IsOpen() {
				accounts = append(accounts, accountID)
				break
			}
		}
	}
	return accounts, nil
}

func (r *MemoryPositions) list(accountID string, openOnly bool) []*model.Position {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	ids := r.m.byAccount[accountID]
	result := make([]*model.Position, 0, len(ids))
	for _, id := range ids {
		p := r.m.positions[id]
		if openOnly && !p.IsOpen() {
			continue
		}
		result = append(result, p.Clone())
	}
	return result
}

// MemoryAccounts in-memory account store
type MemoryAccounts struct {
	m *Memory
}

// Create stores a new account
func (r *MemoryAccounts) Create(ctx context.Context, account *model.Account) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.accounts[account.ID]; ok {
		return model.Validationf("account %s already exists", account.ID)
	}
	a := *account
	r.m.accounts[account.ID] = &a
	r.m.record(ctx, func() {
		delete(r.m.accounts, account.ID)
	})
	return nil
}

// Get account by id
func (r *MemoryAccounts) Get(ctx context.Context, id string) (*model.Account, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	a, ok := r.m.accounts[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	account := *a
	return &account, nil
}

// Adjust atomic add to balance, returns the new balance
func (r *MemoryAccounts) Adjust(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("memory - Adjust: %w", model.Deadline(err))
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	a, ok := r.m.accounts[id]
	if !ok {
		return decimal.Zero, model.ErrNotFound
	}
	previous := a.Balance
	a.Balance = a.Balance.Add(delta)
	r.m.record(ctx, func() {
		a.Balance = previous
	})
	return a.Balance, nil
}
