// Package repository price service
package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gmcfx/GM-Capital/internal/model"

	psProto "github.com/OVantsevich/Price-Service/proto"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// PriceService quote feed over the upstream price stream, keeps the latest price per symbol
type PriceService struct {
	client  psProto.PriceServiceClient
	catalog model.Catalog

	mu     sync.RWMutex
	quotes map[string]model.Quote
	now    func() time.Time
}

// NewPriceServiceRepository price service repository constructor
func NewPriceServiceRepository(client psProto.PriceServiceClient, catalog model.Catalog) *PriceService {
	return &PriceService{
		client:  client,
		catalog: catalog,
		quotes:  make(map[string]model.Quote),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run subscribes for catalog symbols and consumes the stream until ctx is done
func (ps *PriceService) Run(ctx context.Context) error {
	stream, err := ps.client.GetPrices(ctx)
	if err != nil {
		return fmt.Errorf("priceService - Run - GetPrices: %w", err)
	}
	if err = stream.Send(&psProto.GetPricesRequest{Names: ps.catalog.Symbols()}); err != nil {
		return fmt.Errorf("priceService - Run - Send: %w", err)
	}
	for {
		response, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("priceService - Run - Recv: %w", err)
		}
		ps.apply(response.Prices)
	}
}

// GetQuote latest received quote
func (ps *PriceService) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	quote, ok := ps.quotes[symbol]
	if !ok {
		return model.Quote{}, fmt.Errorf("priceService - GetQuote: %s: %w", symbol, model.ErrQuoteUnavailable)
	}
	return quote, nil
}

func (ps *PriceService) apply(prices []*psProto.Price) {
	asOf := ps.now()
	ps.mu.Lock()
	defer ps.mu.Unlock()
	for _, p := range prices {
		quote, ok := fromGRPC(ps.catalog, p, asOf)
		if !ok {
			logrus.WithField("name", p.Name).Debug("priceService - apply: skipped price")
			continue
		}
		ps.quotes[quote.Instrument] = quote
	}
}

// fromGRPC selling price is the bid, purchase price is the ask
func fromGRPC(catalog model.Catalog, p *psProto.Price, asOf time.Time) (model.Quote, bool) {
	instrument, ok := catalog.Lookup(p.Name)
	if !ok || p.SellingPrice <= 0 || p.PurchasePrice <= 0 {
		return model.Quote{}, false
	}
	return model.Quote{
		Instrument: p.Name,
		Bid:        decimal.NewFromFloat(p.SellingPrice).Round(instrument.Precision),
		Ask:        decimal.NewFromFloat(p.PurchasePrice).Round(instrument.Precision),
		AsOf:       asOf,
	}, true
}
