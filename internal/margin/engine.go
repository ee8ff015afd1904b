// Package margin required margin and profit/loss arithmetic.
//
// All functions are pure and work on decimal values; nothing here rounds.
// Rounding happens only when values are rendered for a client.
package margin

import (
	"github.com/gmcfx/GM-Capital/internal/model"

	"github.com/shopspring/decimal"
)

// DefaultRate margin rate applied to classes without an explicit rate
var DefaultRate = decimal.RequireFromString("0.01")

// Engine margin and P&L calculator configured with per-class margin rates
type Engine struct {
	rates map[model.AssetClass]decimal.Decimal
}

// NewEngine constructor, classes missing from rates use DefaultRate
func NewEngine(rates map[model.AssetClass]decimal.Decimal) *Engine {
	r := make(map[model.AssetClass]decimal.Decimal, len(rates))
	for class, rate := range rates {
		r[class] = rate
	}
	return &Engine{rates: r}
}

// Rate margin rate for an asset class
func (e *Engine) Rate(class model.AssetClass) decimal.Decimal {
	if rate, ok := e.rates[class]; ok {
		return rate
	}
	return DefaultRate
}

// RequiredMargin volume * contractSize * marginRate
func (e *Engine) RequiredMargin(volume decimal.Decimal, instrument model.Instrument) decimal.Decimal {
	return volume.Mul(instrument.ContractSize).Mul(e.Rate(instrument.Class))
}

// UnrealizedPnL marks a long on the bid and a short on the ask
func UnrealizedPnL(position *model.Position, instrument model.Instrument, quote model.Quote) decimal.Decimal {
	exit := quote.ExitPrice(position.Side)
	diff := exit.Sub(position.OpenPrice)
	if position.Side == model.SideShort {
		diff = position.OpenPrice.Sub(exit)
	}
	return diff.Mul(position.Volume).Mul(instrument.ContractSize)
}

// Triggered reports which protective threshold the exit-side price has crossed
func Triggered(position *model.Position, quote model.Quote) (model.CloseReason, bool) {
	mark := quote.ExitPrice(position.Side)
	if position.Side == model.SideShort {
		if position.StopLoss != nil && mark.GreaterThanOrEqual(*position.StopLoss) {
			return model.CloseStopLoss, true
		}
		if position.TakeProfit != nil && mark.LessThanOrEqual(*position.TakeProfit) {
			return model.CloseTakeProfit, true
		}
		return "", false
	}
	if position.StopLoss != nil && mark.LessThanOrEqual(*position.StopLoss) {
		return model.CloseStopLoss, true
	}
	if position.TakeProfit != nil && mark.GreaterThanOrEqual(*position.TakeProfit) {
		return model.CloseTakeProfit, true
	}
	return "", false
}
