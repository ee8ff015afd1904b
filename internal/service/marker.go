package service

import (
	"context"
	"errors"
	"time"

	"github.com/gmcfx/GM-Capital/internal/margin"
	"github.com/gmcfx/GM-Capital/internal/model"

	"github.com/sirupsen/logrus"
)

// mark run results
const (
	MarkOK      = "ok"
	MarkPartial = "partial"
	MarkError   = "error"
)

// MarkSink receives the valuations of one account after every tick
type MarkSink func(accountID string, valuations []model.Valuation)

// Marker periodic mark-to-market of every account with open positions, closes positions whose stop loss or take profit is hit
type Marker struct {
	trading  *Trading
	interval time.Duration
	sink     MarkSink
}

// NewMarker constructor, sink may be nil
func NewMarker(trading *Trading, interval time.Duration, sink MarkSink) *Marker {
	return &Marker{trading: trading, interval: interval, sink: sink}
}

// Run ticks until ctx is done, a failed tick is logged and retried on the next one
func (m *Marker) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick one pass over all accounts with open positions
func (m *Marker) Tick(ctx context.Context) string {
	t := m.trading
	storeCtx, cancel := context.WithTimeout(ctx, t.timeouts.Store)
	accounts, err := t.ledger.OpenAccounts(storeCtx)
	cancel()
	if err != nil {
		logrus.Warnf("marker - Tick - OpenAccounts: %v", err)
		t.metrics.MarkRun(MarkError)
		return MarkError
	}

	result := MarkOK
	for _, accountID := range accounts {
		if ctx.Err() != nil {
			return result
		}
		if !m.markAccount(ctx, accountID) {
			result = MarkPartial
		}
	}
	t.metrics.MarkRun(result)
	return result
}

// markAccount values one account, false when any position could not be valued
func (m *Marker) markAccount(ctx context.Context, accountID string) bool {
	t := m.trading
	log := logrus.WithField("account", accountID)

	positions, err := t.snapshot(ctx, accountID)
	if err != nil {
		log.Warnf("marker - markAccount - snapshot: %v", err)
		return false
	}

	complete := true
	quotes := make(map[string]model.Quote)
	valuations := make([]model.Valuation, 0, len(positions))
	for _, p := range positions {
		quote, ok := quotes[p.Instrument]
		if !ok {
			if quote, err = t.quote(ctx, p.Instrument); err != nil {
				log.WithField("instrument", p.Instrument).Warnf("marker - markAccount - quote: %v", err)
				complete = false
				continue
			}
			quotes[p.Instrument] = quote
		}

		if reason, hit := margin.Triggered(p, quote); hit {
			m.trigger(ctx, p, reason)
			continue
		}

		valuation, err := t.valuate(p, quote)
		if err != nil {
			log.WithField("position", p.ID).Warnf("marker - markAccount - valuate: %v", err)
			complete = false
			continue
		}
		valuations = append(valuations, valuation)
	}

	if m.sink != nil {
		m.sink(accountID, valuations)
	}
	return complete
}

func (m *Marker) trigger(ctx context.Context, p *model.Position, reason model.CloseReason) {
	log := logrus.WithFields(logrus.Fields{
		"account":  p.AccountID,
		"position": p.ID,
		"reason":   reason,
	})
	closed, err := m.trading.ClosePosition(ctx, p.ID, reason)
	switch {
	case err == nil:
		log.WithField("realizedPnl", closed.RealizedPnL.String()).Info("marker - trigger: position closed")
	case errors.Is(err, model.ErrAlreadyClosed):
		log.Debugf("marker - trigger - ClosePosition: %v", err)
	default:
		log.Warnf("marker - trigger - ClosePosition: %v", err)
	}
}
