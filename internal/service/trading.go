// Package service position service
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gmcfx/GM-Capital/internal/ledger"
	"github.com/gmcfx/GM-Capital/internal/margin"
	"github.com/gmcfx/GM-Capital/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// QuoteFeed latest bid/ask per instrument
//
//go:generate mockery --name=QuoteFeed --case=underscore --output=./mocks
type QuoteFeed interface {
	GetQuote(ctx context.Context, symbol string) (model.Quote, error)
}

// Transactor runs a unit of work atomically
//
//go:generate mockery --name=Transactor --case=underscore --output=./mocks
type Transactor interface {
	WithinTransaction(ctx context.Context, txFunc func(ctx context.Context) error) error
}

// EventPublisher receives events after commit
//
//go:generate mockery --name=EventPublisher --case=underscore --output=./mocks
type EventPublisher interface {
	Publish(ctx context.Context, event *model.Event) error
}

// Metrics service instrumentation
type Metrics interface {
	ObserveOp(op string, duration time.Duration, err error)
	PositionOpened(instrument string, side model.Side)
	PositionClosed(instrument string, reason model.CloseReason)
	MarkRun(result string)
	EventPublished(publisher string, err error)
}

// Timeouts bounded waits of every operation
type Timeouts struct {
	Quote time.Duration
	Store time.Duration
	Lock  time.Duration
}

// DefaultTimeouts used for zero fields
var DefaultTimeouts = Timeouts{
	Quote: 2 * time.Second,
	Store: 5 * time.Second,
	Lock:  5 * time.Second,
}

type namedPublisher struct {
	name      string
	publisher EventPublisher
}

// Trading position service
type Trading struct {
	ledger      *ledger.Ledger
	balances    *ledger.Balances
	engine      *margin.Engine
	instruments ledger.Instruments
	quotes      QuoteFeed
	tx          Transactor
	locks       *accountLocks
	publishers  []namedPublisher
	metrics     Metrics
	timeouts    Timeouts
	now         func() time.Time
}

// Option service option
type Option func(*Trading)

// WithPublisher adds an event publisher
func WithPublisher(name string, publisher EventPublisher) Option {
	return func(t *Trading) {
		t.publishers = append(t.publishers, namedPublisher{name: name, publisher: publisher})
	}
}

// WithMetrics sets instrumentation
func WithMetrics(metrics Metrics) Option {
	return func(t *Trading) {
		t.metrics = metrics
	}
}

// WithTimeouts overrides bounded waits, zero fields keep defaults
func WithTimeouts(timeouts Timeouts) Option {
	return func(t *Trading) {
		if timeouts.Quote > 0 {
			t.timeouts.Quote = timeouts.Quote
		}
		if timeouts.Store > 0 {
			t.timeouts.Store = timeouts.Store
		}
		if timeouts.Lock > 0 {
			t.timeouts.Lock = timeouts.Lock
		}
	}
}

// NewTrading constructor
func NewTrading(l *ledger.Ledger, b *ledger.Balances, engine *margin.Engine, instruments ledger.Instruments,
	quotes QuoteFeed, tx Transactor, opts ...Option) *Trading {
	t := &Trading{
		ledger:      l,
		balances:    b,
		engine:      engine,
		instruments: instruments,
		quotes:      quotes,
		tx:          tx,
		locks:       newAccountLocks(),
		metrics:     nopMetrics{},
		timeouts:    DefaultTimeouts,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// OpenPositionRequest open position input
type OpenPositionRequest struct {
	AccountID  string
	Instrument string
	Side       model.Side
	Volume     decimal.Decimal
	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal
}

// OpenPosition opens a position at the entry side of the current quote and reserves its margin
func (t *Trading) OpenPosition(ctx context.Context, req OpenPositionRequest) (position *model.Position, err error) {
	defer t.observe("open", time.Now(), &err)

	openReq := ledger.OpenRequest{
		AccountID:  req.AccountID,
		Instrument: req.Instrument,
		Side:       req.Side,
		Volume:     req.Volume,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
	}
	if err = t.ledger.Validate(openReq); err != nil {
		return nil, fmt.Errorf("trading - OpenPosition - Validate: %w", err)
	}
	instrument, _ := t.instruments.Lookup(req.Instrument)

	quote, err := t.quote(ctx, req.Instrument)
	if err != nil {
		return nil, fmt.Errorf("trading - OpenPosition: %w", err)
	}
	openReq.OpenPrice = quote.EntryPrice(req.Side)
	openReq.Margin = t.engine.RequiredMargin(req.Volume, instrument)

	release, err := t.locks.Lock(ctx, req.AccountID, t.timeouts.Lock)
	if err != nil {
		return nil, fmt.Errorf("trading - OpenPosition - Lock: %w", err)
	}

	var opened *model.Position
	err = t.run(ctx, release, func(ctx context.Context) error {
		balance, err := t.balances.Balance(ctx, req.AccountID)
		if err != nil {
			return err
		}
		if openReq.Margin.GreaterThan(balance) {
			return fmt.Errorf("%w: required %s, balance %s", model.ErrInsufficientMargin, openReq.Margin, balance)
		}
		if _, err = t.balances.Adjust(ctx, req.AccountID, openReq.Margin.Neg()); err != nil {
			return err
		}
		opened, err = t.ledger.Open(ctx, openReq)
		return err
	}, func() {
		t.metrics.PositionOpened(opened.Instrument, opened.Side)
		t.emit(model.PositionOpened, opened)
	})
	if err != nil {
		return nil, fmt.Errorf("trading - OpenPosition: account %s: %w", req.AccountID, err)
	}
	return opened.Clone(), nil
}

// ClosePosition books the P&L at the exit side of the current quote and releases the reserved margin
func (t *Trading) ClosePosition(ctx context.Context, positionID string, reason model.CloseReason) (position *model.Position, err error) {
	defer t.observe("close", time.Now(), &err)

	current, err := t.GetPosition(ctx, positionID)
	if err != nil {
		return nil, fmt.Errorf("trading - ClosePosition: %w", err)
	}
	if !current.IsOpen() {
		return nil, fmt.Errorf("trading - ClosePosition: position %s: %w", positionID, model.ErrAlreadyClosed)
	}
	instrument, ok := t.instruments.Lookup(current.Instrument)
	if !ok {
		return nil, fmt.Errorf("trading - ClosePosition: %w", model.Validationf("unknown instrument %q", current.Instrument))
	}

	quote, err := t.quote(ctx, current.Instrument)
	if err != nil {
		return nil, fmt.Errorf("trading - ClosePosition: position %s: %w", positionID, err)
	}
	realized := margin.UnrealizedPnL(current, instrument, quote)

	release, err := t.locks.Lock(ctx, current.AccountID, t.timeouts.Lock)
	if err != nil {
		return nil, fmt.Errorf("trading - ClosePosition - Lock: %w", err)
	}

	var closed *model.Position
	err = t.run(ctx, release, func(ctx context.Context) error {
		if _, err := t.balances.Account(ctx, current.AccountID); err != nil {
			return err
		}
		var err error
		if closed, err = t.ledger.Close(ctx, positionID, realized, reason); err != nil {
			return err
		}
		_, err = t.balances.Adjust(ctx, current.AccountID, closed.Margin.Add(realized))
		return err
	}, func() {
		t.metrics.PositionClosed(closed.Instrument, closed.CloseReason)
		t.emit(model.PositionClosed, closed)
	})
	if err != nil {
		return nil, fmt.Errorf("trading - ClosePosition: position %s: %w", positionID, err)
	}
	return closed.Clone(), nil
}

// MarkToMarket values every open position of the account against the latest quotes, never mutates
func (t *Trading) MarkToMarket(ctx context.Context, accountID string) (valuations []model.Valuation, err error) {
	defer t.observe("mark", time.Now(), &err)

	positions, err := t.snapshot(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("trading - MarkToMarket: %w", err)
	}

	quotes := make(map[string]model.Quote)
	valuations = make([]model.Valuation, 0, len(positions))
	for _, p := range positions {
		quote, ok := quotes[p.Instrument]
		if !ok {
			if quote, err = t.quote(ctx, p.Instrument); err != nil {
				return nil, fmt.Errorf("trading - MarkToMarket: position %s: %w", p.ID, err)
			}
			quotes[p.Instrument] = quote
		}
		valuation, err := t.valuate(p, quote)
		if err != nil {
			return nil, fmt.Errorf("trading - MarkToMarket: %w", err)
		}
		valuations = append(valuations, valuation)
	}
	return valuations, nil
}

// ListOpen open positions of an account, oldest first
func (t *Trading) ListOpen(ctx context.Context, accountID string) (positions []*model.Position, err error) {
	defer t.observe("list_open", time.Now(), &err)

	positions, err = t.snapshot(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("trading - ListOpen: %w", err)
	}
	return positions, nil
}

// GetBalance current balance
func (t *Trading) GetBalance(ctx context.Context, accountID string) (balance decimal.Decimal, err error) {
	defer t.observe("balance", time.Now(), &err)

	err = t.read(ctx, accountID, func(ctx context.Context) error {
		balance, err = t.balances.Balance(ctx, accountID)
		return err
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("trading - GetBalance: %w", err)
	}
	return balance, nil
}

// GetPosition position by id
func (t *Trading) GetPosition(ctx context.Context, positionID string) (position *model.Position, err error) {
	defer t.observe("get", time.Now(), &err)

	ctx, cancel := context.WithTimeout(ctx, t.timeouts.Store)
	defer cancel()
	position, err = t.ledger.Get(ctx, positionID)
	if err != nil {
		return nil, fmt.Errorf("trading - GetPosition: %w", model.Deadline(err))
	}
	return position, nil
}

// History every position of the account, oldest first
func (t *Trading) History(ctx context.Context, accountID string) (positions []*model.Position, err error) {
	defer t.observe("history", time.Now(), &err)

	err = t.read(ctx, accountID, func(ctx context.Context) error {
		if _, err := t.balances.Account(ctx, accountID); err != nil {
			return err
		}
		positions, err = t.ledger.History(ctx, accountID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("trading - History: %w", err)
	}
	return positions, nil
}

// snapshot open positions read under the shared account lock
func (t *Trading) snapshot(ctx context.Context, accountID string) (positions []*model.Position, err error) {
	err = t.read(ctx, accountID, func(ctx context.Context) error {
		if _, err := t.balances.Account(ctx, accountID); err != nil {
			return err
		}
		positions, err = t.ledger.ListOpen(ctx, accountID)
		return err
	})
	return positions, err
}

func (t *Trading) valuate(p *model.Position, quote model.Quote) (model.Valuation, error) {
	instrument, ok := t.instruments.Lookup(p.Instrument)
	if !ok {
		return model.Valuation{}, model.Validationf("unknown instrument %q", p.Instrument)
	}
	return model.Valuation{
		Position:      p,
		MarkPrice:     quote.ExitPrice(p.Side),
		UnrealizedPnL: margin.UnrealizedPnL(p, instrument, quote),
	}, nil
}

// quote fetches with the quote timeout, an expired wait is ErrTimeout
func (t *Trading) quote(ctx context.Context, symbol string) (model.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeouts.Quote)
	defer cancel()
	quote, err := t.quotes.GetQuote(ctx, symbol)
	if err != nil {
		return model.Quote{}, fmt.Errorf("quote %s: %w", symbol, model.Deadline(err))
	}
	if !quote.Bid.IsPositive() || !quote.Ask.IsPositive() {
		return model.Quote{}, fmt.Errorf("quote %s: %w: non-positive price", symbol, model.ErrQuoteUnavailable)
	}
	return quote, nil
}

// read runs fn under the shared account lock with the store timeout
func (t *Trading) read(ctx context.Context, accountID string, fn func(context.Context) error) error {
	release, err := t.locks.RLock(ctx, accountID, t.timeouts.Lock)
	if err != nil {
		return err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, t.timeouts.Store)
	defer cancel()
	return model.Deadline(fn(ctx))
}

// run executes txFunc in one transaction that outlives a cancelled caller.
// release is called once the transaction ends, committed runs after commit.
func (t *Trading) run(ctx context.Context, release func(), txFunc func(context.Context) error, committed func()) error {
	done := make(chan error, 1)
	go func() {
		txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeouts.Store)
		defer cancel()

		err := model.Deadline(t.tx.WithinTransaction(txCtx, txFunc))
		release()
		if err == nil && committed != nil {
			committed()
		}
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return model.Deadline(ctx.Err())
	}
}

// emit delivers event to every publisher, a failed publish is logged and counted
func (t *Trading) emit(eventType model.EventType, position *model.Position) {
	event := &model.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		AccountID:  position.AccountID,
		PositionID: position.ID,
		Position:   position.Clone(),
		OccurredAt: t.now(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), t.timeouts.Store)
	defer cancel()
	for _, p := range t.publishers {
		err := p.publisher.Publish(ctx, event)
		t.metrics.EventPublished(p.name, err)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"publisher": p.name,
				"event":     event.Type,
				"position":  event.PositionID,
			}).Errorf("trading - emit - Publish: %v", err)
		}
	}
}

func (t *Trading) observe(op string, start time.Time, err *error) {
	t.metrics.ObserveOp(op, time.Since(start), *err)
}

type nopMetrics struct{}

func (nopMetrics) ObserveOp(string, time.Duration, error)   {}
func (nopMetrics) PositionOpened(string, model.Side)        {}
func (nopMetrics) PositionClosed(string, model.CloseReason) {}
func (nopMetrics) MarkRun(string)                           {}
func (nopMetrics) EventPublished(string, error)             {}
