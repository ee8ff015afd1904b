// Package ledger authoritative position set and account balances.
//
// Ledger and Balances validate and apply state transitions on top of an
// injected store. They never log; every failure is returned to the caller.
// Callers are expected to serialize mutations per account and to run
// related mutations inside one store transaction.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gmcfx/GM-Capital/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PositionStore durable position records
type PositionStore interface {
	Insert(ctx context.Context, position *model.Position) error
	Get(ctx context.Context, id string) (*model.Position, error)
	MarkClosed(ctx context.Context, id string, closedAt time.Time, realizedPnL decimal.Decimal, reason model.CloseReason) error
	ListOpen(ctx context.Context, accountID string) ([]*model.Position, error)
	ListByAccount(ctx context.Context, accountID string) ([]*model.Position, error)
	OpenAccounts(ctx context.Context) ([]string, error)
}

// Instruments instrument lookup
type Instruments interface {
	Lookup(symbol string) (model.Instrument, bool)
}

// OpenRequest fields of a new position, price and margin are resolved by the caller
type OpenRequest struct {
	AccountID  string
	Instrument string
	Side       model.Side
	Volume     decimal.Decimal
	OpenPrice  decimal.Decimal
	Margin     decimal.Decimal
	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal
}

// Ledger position ledger
type Ledger struct {
	store       PositionStore
	instruments Instruments
	now         func() time.Time
	newID       func() string
}

// Option ledger option
type Option func(*Ledger)

// WithClock overrides time source
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithIDs overrides id generator
func WithIDs(newID func() string) Option {
	return func(l *Ledger) {
		l.newID = newID
	}
}

// New ledger constructor
func New(store PositionStore, instruments Instruments, opts ...Option) *Ledger {
	l := &Ledger{
		store:       store,
		instruments: instruments,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Validate checks an open request without touching the store
func (l *Ledger) Validate(req OpenRequest) error {
	if req.AccountID == "" {
		return model.Validationf("account id is required")
	}
	if _, ok := l.instruments.Lookup(req.Instrument); !ok {
		return model.Validationf("unknown instrument %q", req.Instrument)
	}
	if req.Side != model.SideLong && req.Side != model.SideShort {
		return model.Validationf("invalid side %q", req.Side)
	}
	if !req.Volume.IsPositive() {
		return model.Validationf("volume must be positive, got %s", req.Volume)
	}
	if req.StopLoss != nil && !req.StopLoss.IsPositive() {
		return model.Validationf("stop loss must be positive, got %s", req.StopLoss)
	}
	if req.TakeProfit != nil && !req.TakeProfit.IsPositive() {
		return model.Validationf("take profit must be positive, got %s", req.TakeProfit)
	}
	return nil
}

// Open creates an open position. Margin is not checked here.
func (l *Ledger) Open(ctx context.Context, req OpenRequest) (*model.Position, error) {
	if err := l.Validate(req); err != nil {
		return nil, err
	}
	if !req.OpenPrice.IsPositive() {
		return nil, model.Validationf("open price must be positive, got %s", req.OpenPrice)
	}

	position := &model.Position{
		ID:         l.newID(),
		AccountID:  req.AccountID,
		Instrument: req.Instrument,
		Side:       req.Side,
		Volume:     req.Volume,
		OpenPrice:  req.OpenPrice,
		Margin:     req.Margin,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		Status:     model.StatusOpen,
		OpenedAt:   l.now(),
	}
	if err := l.store.Insert(ctx, position); err != nil {
		return nil, fmt.Errorf("ledger - Open - Insert: %w", err)
	}
	return position.Clone(), nil
}

// Close moves an open position to the terminal closed state.
// A second close of the same position fails with model.ErrAlreadyClosed.
func (l *Ledger) Close(ctx context.Context, id string, realizedPnL decimal.Decimal, reason model.CloseReason) (*model.Position, error) {
	position, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !position.IsOpen() {
		return nil, fmt.Errorf("ledger - Close: position %s: %w", id, model.ErrAlreadyClosed)
	}
	if reason == "" {
		reason = model.CloseManual
	}

	closedAt := l.now()
	if err = l.store.MarkClosed(ctx, id, closedAt, realizedPnL, reason); err != nil {
		return nil, fmt.Errorf("ledger - Close - MarkClosed: %w", err)
	}

	position.Status = model.StatusClosed
	position.ClosedAt = &closedAt
	position.RealizedPnL = &realizedPnL
	position.CloseReason = reason
	return position, nil
}

// Get position by id
func (l *Ledger) Get(ctx context.Context, id string) (*model.Position, error) {
	if id == "" {
		return nil, model.Validationf("position id is required")
	}
	position, err := l.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ledger - Get: position %s: %w", id, err)
	}
	return position, nil
}

// ListOpen open positions of an account, oldest first. Calling it never mutates state.
func (l *Ledger) ListOpen(ctx context.Context, accountID string) ([]*model.Position, error) {
	positions, err := l.store.ListOpen(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("ledger - ListOpen: account %s: %w", accountID, err)
	}
	sortByOpened(positions)
	return positions, nil
}

// History every position of an account, oldest first
func (l *Ledger) History(ctx context.Context, accountID string) ([]*model.Position, error) {
	positions, err := l.store.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("ledger - History: account %s: %w", accountID, err)
	}
	sortByOpened(positions)
	return positions, nil
}

// OpenAccounts ids of accounts holding at least one open position
func (l *Ledger) OpenAccounts(ctx context.Context) ([]string, error) {
	ids, err := l.store.OpenAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger - OpenAccounts: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func sortByOpened(positions []*model.Position) {
	sort.SliceStable(positions, func(i, j int) bool {
		if positions[i].OpenedAt.Equal(positions[j].OpenedAt) {
			return positions[i].ID < positions[j].ID
		}
		return positions[i].OpenedAt.Before(positions[j].OpenedAt)
	})
}
