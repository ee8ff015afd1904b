package handler

import (
	"time"

	"github.com/gmcfx/GM-Capital/internal/model"

	"github.com/shopspring/decimal"
)

// moneyPlaces decimal places of rendered money amounts
const moneyPlaces = 2

// defaultPricePlaces used for instruments missing from the catalog
const defaultPricePlaces = 5

type accountResponse struct {
	ID       string    `json:"id"`
	Currency string    `json:"currency"`
	Owner    string    `json:"owner"`
	Balance  string    `json:"balance"`
	Created  time.Time `json:"created"`
}

type balanceResponse struct {
	AccountID string `json:"accountId"`
	Balance   string `json:"balance"`
}

type statsResponse struct {
	Balance         string  `json:"balance"`
	TotalTrades     int     `json:"totalTrades"`
	WinRate         string  `json:"winRate"`
	TotalPnL        string  `json:"totalPnl"`
	ActivePositions int     `json:"activePositions"`
	BestTrade       *string `json:"bestTrade,omitempty"`
	WorstTrade      *string `json:"worstTrade,omitempty"`
}

type positionResponse struct {
	ID          string     `json:"id"`
	AccountID   string     `json:"accountId"`
	Instrument  string     `json:"instrument"`
	Side        string     `json:"side"`
	Volume      string     `json:"volume"`
	OpenPrice   string     `json:"openPrice"`
	Margin      string     `json:"margin"`
	StopLoss    *string    `json:"stopLoss,omitempty"`
	TakeProfit  *string    `json:"takeProfit,omitempty"`
	Status      string     `json:"status"`
	OpenedAt    time.Time  `json:"openedAt"`
	ClosedAt    *time.Time `json:"closedAt,omitempty"`
	RealizedPnL *string    `json:"realizedPnl,omitempty"`
	CloseReason string     `json:"closeReason,omitempty"`
}

type valuationResponse struct {
	Position      positionResponse `json:"position"`
	MarkPrice     string           `json:"markPrice"`
	UnrealizedPnL string           `json:"unrealizedPnl"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(moneyPlaces)
}

func moneyPtr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := money(*d)
	return &s
}

func (t *Trading) places(symbol string) int32 {
	if i, ok := t.instruments.Lookup(symbol); ok {
		return i.Precision
	}
	return defaultPricePlaces
}

func pricePtr(d *decimal.Decimal, places int32) *string {
	if d == nil {
		return nil
	}
	s := d.StringFixed(places)
	return &s
}

func accountToResponse(a *model.Account) accountResponse {
	return accountResponse{
		ID:       a.ID,
		Currency: a.Currency,
		Owner:    a.Owner,
		Balance:  money(a.Balance),
		Created:  a.Created,
	}
}

func statsToResponse(s *model.AccountStats) statsResponse {
	return statsResponse{
		Balance:         money(s.Balance),
		TotalTrades:     s.TotalTrades,
		WinRate:         s.WinRate.StringFixed(4),
		TotalPnL:        money(s.TotalPnL),
		ActivePositions: s.ActivePositions,
		BestTrade:       moneyPtr(s.BestTrade),
		WorstTrade:      moneyPtr(s.WorstTrade),
	}
}

func (t *Trading) positionToResponse(p *model.Position) positionResponse {
	places := t.places(p.Instrument)
	return positionResponse{
		ID:          p.ID,
		AccountID:   p.AccountID,
		Instrument:  p.Instrument,
		Side:        string(p.Side),
		Volume:      p.Volume.String(),
		OpenPrice:   p.OpenPrice.StringFixed(places),
		Margin:      money(p.Margin),
		StopLoss:    pricePtr(p.StopLoss, places),
		TakeProfit:  pricePtr(p.TakeProfit, places),
		Status:      string(p.Status),
		OpenedAt:    p.OpenedAt,
		ClosedAt:    p.ClosedAt,
		RealizedPnL: moneyPtr(p.RealizedPnL),
		CloseReason: string(p.CloseReason),
	}
}

func (t *Trading) positionsToResponse(positions []*model.Position) []positionResponse {
	result := make([]positionResponse, len(positions))
	for i, p := range positions {
		result[i] = t.positionToResponse(p)
	}
	return result
}

func (t *Trading) valuationsToResponse(valuations []model.Valuation) []valuationResponse {
	result := make([]valuationResponse, len(valuations))
	for i, v := range valuations {
		result[i] = valuationResponse{
			Position:      t.positionToResponse(v.Position),
			MarkPrice:     v.MarkPrice.StringFixed(t.places(v.Position.Instrument)),
			UnrealizedPnL: money(v.UnrealizedPnL),
		}
	}
	return result
}
