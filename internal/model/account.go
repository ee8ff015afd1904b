// Package model account model
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account cash account, balance is only changed through ledger operations
type Account struct {
	ID       string          `json:"id"`
	Currency string          `json:"currency"`
	Owner    string          `json:"owner"`
	Balance  decimal.Decimal `json:"balance"`
	Created  time.Time       `json:"created"`
}

// AccountStats trading summary for an account
type AccountStats struct {
	Balance         decimal.Decimal  `json:"balance"`
	TotalTrades     int              `json:"totalTrades"`
	WinRate         decimal.Decimal  `json:"winRate"`
	TotalPnL        decimal.Decimal  `json:"totalPnl"`
	ActivePositions int              `json:"activePositions"`
	BestTrade       *decimal.Decimal `json:"bestTrade,omitempty"`
	WorstTrade      *decimal.Decimal `json:"worstTrade,omitempty"`
}
