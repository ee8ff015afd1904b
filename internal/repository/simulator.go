// Package repository simulated quote feed
package repository

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/gmcfx/GM-Capital/internal/model"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DefaultBasePrices seed prices of the simulated feed
var DefaultBasePrices = map[string]decimal.Decimal{
	"EUR/USD": decimal.RequireFromString("1.0850"),
	"GBP/USD": decimal.RequireFromString("1.2650"),
	"USD/JPY": decimal.RequireFromString("151.50"),
	"USD/CHF": decimal.RequireFromString("0.9000"),
	"AUD/USD": decimal.RequireFromString("0.6550"),
	"USD/CAD": decimal.RequireFromString("1.3500"),
	"BTC/USD": decimal.RequireFromString("42000"),
	"ETH/USD": decimal.RequireFromString("2500"),
	"XAU/USD": decimal.RequireFromString("2150"),
}

// Simulator random walk quote feed, bid is the walked price and ask is bid plus a random spread
type Simulator struct {
	mu      sync.RWMutex
	rnd     *rand.Rand
	catalog model.Catalog
	base    map[string]decimal.Decimal
	quotes  map[string]model.Quote
	now     func() time.Time
}

// NewSimulator constructor, only catalog symbols with a base price are walked
func NewSimulator(catalog model.Catalog, base map[string]decimal.Decimal, seed uint64) *Simulator {
	b := make(map[string]decimal.Decimal, len(base))
	for symbol, price := range base {
		if _, ok := catalog.Lookup(symbol); ok {
			b[symbol] = price
		}
	}
	return &Simulator{
		rnd:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		catalog: catalog,
		base:    b,
		quotes:  make(map[string]model.Quote),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// GetQuote latest simulated quote
func (s *Simulator) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quote, ok := s.quotes[symbol]
	if !ok {
		return model.Quote{}, fmt.Errorf("simulator - GetQuote: %s: %w", symbol, model.ErrQuoteUnavailable)
	}
	return quote, nil
}

// Set installs an explicit quote, the walk continues from its bid
func (s *Simulator) Set(quote model.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quote.AsOf.IsZero() {
		quote.AsOf = s.now()
	}
	s.quotes[quote.Instrument] = quote
	s.base[quote.Instrument] = quote.Bid
}

// Step moves every base price by a uniform -0.5%..+0.5% and publishes new quotes
func (s *Simulator) Step() []model.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()

	asOf := s.now()
	quotes := make([]model.Quote, 0, len(s.base))
	for symbol, price := range s.base {
		instrument, _ := s.catalog.Lookup(symbol)
		fluctuation := decimal.NewFromFloat((s.rnd.Float64() - 0.5) * 0.01)
		price = price.Mul(decimal.NewFromInt(1).Add(fluctuation)).Round(instrument.Precision + 4)
		s.base[symbol] = price

		bid := price.Round(instrument.Precision)
		quote := model.Quote{
			Instrument: symbol,
			Bid:        bid,
			Ask:        bid.Add(s.spread(instrument)),
			AsOf:       asOf,
		}
		s.quotes[symbol] = quote
		quotes = append(quotes, quote)
	}
	return quotes
}

// Run steps every interval until ctx is done, each batch is handed to sink when set
func (s *Simulator) Run(ctx context.Context, interval time.Duration, sink func(context.Context, []model.Quote) error) error {
	s.Step()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			quotes := s.Step()
			if sink == nil {
				continue
			}
			if err := sink(ctx, quotes); err != nil {
				logrus.WithField("quotes", len(quotes)).Warnf("simulator - Run - sink: %v", err)
			}
		}
	}
}

func (s *Simulator) spread(instrument model.Instrument) decimal.Decimal {
	var spread decimal.Decimal
	if instrument.Class == model.Crypto {
		spread = decimal.NewFromFloat(5 + s.rnd.Float64()*10)
	} else {
		spread = decimal.NewFromFloat(0.0001 + s.rnd.Float64()*0.0002)
	}
	spread = spread.Round(instrument.Precision)
	tick := decimal.New(1, -instrument.Precision)
	if spread.LessThan(tick) {
		return tick
	}
	return spread
}
