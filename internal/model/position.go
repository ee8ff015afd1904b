// Package model position model
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side position direction
type Side string

const (
	// SideLong buy to open, sell to close
	SideLong Side = "long"
	// SideShort sell to open, buy to close
	SideShort Side = "short"
)

// ParseSide accepts long/short and the buy/sell aliases used by the UI
func ParseSide(s string) (Side, bool) {
	switch s {
	case "long", "buy":
		return SideLong, true
	case "short", "sell":
		return SideShort, true
	}
	return "", false
}

// Status position lifecycle state, closed is terminal
type Status string

const (
	// StatusOpen position is live
	StatusOpen Status = "open"
	// StatusClosed position is booked
	StatusClosed Status = "closed"
)

// CloseReason why a position was closed
type CloseReason string

const (
	// CloseManual closed by the account owner
	CloseManual CloseReason = "manual"
	// CloseStopLoss closed by the stop loss trigger
	CloseStopLoss CloseReason = "stop_loss"
	// CloseTakeProfit closed by the take profit trigger
	CloseTakeProfit CloseReason = "take_profit"
)

// Position model
type Position struct {
	ID          string           `json:"id"`
	AccountID   string           `json:"accountId"`
	Instrument  string           `json:"instrument"`
	Side        Side             `json:"side"`
	Volume      decimal.Decimal  `json:"volume"`
	OpenPrice   decimal.Decimal  `json:"openPrice"`
	Margin      decimal.Decimal  `json:"margin"`
	StopLoss    *decimal.Decimal `json:"stopLoss,omitempty"`
	TakeProfit  *decimal.Decimal `json:"takeProfit,omitempty"`
	Status      Status           `json:"status"`
	OpenedAt    time.Time        `json:"openedAt"`
	ClosedAt    *time.Time       `json:"closedAt,omitempty"`
	RealizedPnL *decimal.Decimal `json:"realizedPnl,omitempty"`
	CloseReason CloseReason      `json:"closeReason,omitempty"`
}

// IsOpen reports whether the position can still be closed
func (p *Position) IsOpen() bool {
	return p.Status == StatusOpen
}

// Clone deep copy, stores hand out clones so callers never alias stored state
func (p *Position) Clone() *Position {
	c := *p
	if p.StopLoss != nil {
		v := *p.StopLoss
		c.StopLoss = &v
	}
	if p.TakeProfit != nil {
		v := *p.TakeProfit
		c.TakeProfit = &v
	}
	if p.ClosedAt != nil {
		v := *p.ClosedAt
		c.ClosedAt = &v
	}
	if p.RealizedPnL != nil {
		v := *p.RealizedPnL
		c.RealizedPnL = &v
	}
	return &c
}

// Valuation open position marked against the latest quote
type Valuation struct {
	Position      *Position       `json:"position"`
	MarkPrice     decimal.Decimal `json:"markPrice"`
	UnrealizedPnL decimal.Decimal `json:"unrealizedPnl"`
}
