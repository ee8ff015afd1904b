// Package model instrument and quote models
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetClass instrument class, margin rates are configured per class
type AssetClass string

const (
	// Forex currency pair
	Forex AssetClass = "forex"
	// Crypto crypto pair
	Crypto AssetClass = "crypto"
	// Commodity metals, energy
	Commodity AssetClass = "commodity"
	// Index equity index
	Index AssetClass = "index"
)

// Valid reports whether c is a known class
func (c AssetClass) Valid() bool {
	switch c {
	case Forex, Crypto, Commodity, Index:
		return true
	}
	return false
}

// Instrument traded symbol, immutable once defined
type Instrument struct {
	Symbol       string          `json:"symbol" yaml:"symbol"`
	Class        AssetClass      `json:"class" yaml:"class"`
	ContractSize decimal.Decimal `json:"contractSize" yaml:"contract_size"`
	Precision    int32           `json:"precision" yaml:"precision"`
}

// Quote latest bid/ask snapshot, never persisted
type Quote struct {
	Instrument string          `json:"instrument"`
	Bid        decimal.Decimal `json:"bid"`
	Ask        decimal.Decimal `json:"ask"`
	AsOf       time.Time       `json:"asOf"`
}

// EntryPrice buyer pays the ask, seller receives the bid
func (q Quote) EntryPrice(side Side) decimal.Decimal {
	if side == SideShort {
		return q.Bid
	}
	return q.Ask
}

// ExitPrice long exits on the bid, short exits on the ask
func (q Quote) ExitPrice(side Side) decimal.Decimal {
	if side == SideShort {
		return q.Ask
	}
	return q.Bid
}

// Catalog instruments by symbol
type Catalog map[string]Instrument

// NewCatalog builds catalog from a list
func NewCatalog(instruments []Instrument) Catalog {
	c := make(Catalog, len(instruments))
	for _, i := range instruments {
		c[i.Symbol] = i
	}
	return c
}

// Lookup find instrument by symbol
func (c Catalog) Lookup(symbol string) (Instrument, bool) {
	i, ok := c[symbol]
	return i, ok
}

// Symbols all symbols in the catalog
func (c Catalog) Symbols() []string {
	symbols := make([]string, 0, len(c))
	for s := range c {
		symbols = append(symbols, s)
	}
	return symbols
}
