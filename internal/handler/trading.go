// Package handler http handlers
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gmcfx/GM-Capital/internal/model"
	"github.com/gmcfx/GM-Capital/internal/service"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// maxBodySize request body limit
const maxBodySize = 1 << 20

// TradingService position service
//
//go:generate mockery --name=TradingService --case=underscore --output=./mocks
type TradingService interface {
	CreateAccount(ctx context.Context, req service.CreateAccountRequest) (*model.Account, error)
	GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error)
	Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error)
	Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error)
	Stats(ctx context.Context, accountID string) (*model.AccountStats, error)
	OpenPosition(ctx context.Context, req service.OpenPositionRequest) (*model.Position, error)
	ClosePosition(ctx context.Context, positionID string, reason model.CloseReason) (*model.Position, error)
	GetPosition(ctx context.Context, positionID string) (*model.Position, error)
	ListOpen(ctx context.Context, accountID string) ([]*model.Position, error)
	History(ctx context.Context, accountID string) ([]*model.Position, error)
	MarkToMarket(ctx context.Context, accountID string) ([]model.Valuation, error)
}

// Instruments instrument lookup
type Instruments interface {
	Lookup(symbol string) (model.Instrument, bool)
}

// Trading handler
type Trading struct {
	service     TradingService
	instruments Instruments
}

// NewTrading constructor
func NewTrading(s TradingService, instruments Instruments) *Trading {
	return &Trading{service: s, instruments: instruments}
}

type createAccountRequest struct {
	ID             string          `json:"id"`
	Currency       string          `json:"currency"`
	Owner          string          `json:"owner"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type openPositionRequest struct {
	Instrument string           `json:"instrument"`
	Side       string           `json:"side"`
	Volume     decimal.Decimal  `json:"volume"`
	StopLoss   *decimal.Decimal `json:"stopLoss"`
	TakeProfit *decimal.Decimal `json:"takeProfit"`
}

// CreateAccount POST /api/accounts
func (t *Trading) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if !decode(w, r, &req) {
		return
	}
	account, err := t.service.CreateAccount(r.Context(), service.CreateAccountRequest{
		ID:             req.ID,
		Currency:       req.Currency,
		Owner:          req.Owner,
		InitialBalance: req.InitialBalance,
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"id":       req.ID,
			"currency": req.Currency,
		}).Errorf("trading - CreateAccount - CreateAccount: %v", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, accountToResponse(account))
}

// GetBalance GET /api/accounts/{id}/balance
func (t *Trading) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("id")
	balance, err := t.service.GetBalance(r.Context(), accountID)
	if err != nil {
		logrus.WithField("account", accountID).Errorf("trading - GetBalance - GetBalance: %v", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{AccountID: accountID, Balance: money(balance)})
}

// Deposit POST /api/accounts/{id}/deposit
func (t *Trading) Deposit(w http.ResponseWriter, r *http.Request) {
	t.transfer(w, r, "Deposit", t.service.Deposit)
}

// Withdraw POST /api/accounts/{id}/withdraw
func (t *Trading) Withdraw(w http.ResponseWriter, r *http.Request) {
	t.transfer(w, r, "Withdraw", t.service.Withdraw)
}

func (t *Trading) transfer(w http.ResponseWriter, r *http.Request, op string,
	fn func(context.Context, string, decimal.Decimal) (decimal.Decimal, error)) {
	accountID := r.PathValue("id")
	var req amountRequest
	if !decode(w, r, &req) {
		return
	}
	balance, err := fn(r.Context(), accountID, req.Amount)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"account": accountID,
			"amount":  req.Amount.String(),
		}).Errorf("trading - %s - %s: %v", op, op, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{AccountID: accountID, Balance: money(balance)})
}

// Stats GET /api/accounts/{id}/stats
func (t *Trading) Stats(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("id")
	stats, err := t.service.Stats(r.Context(), accountID)
	if err != nil {
		logrus.WithField("account", accountID).Errorf("trading - Stats - Stats: %v", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statsToResponse(stats))
}

// OpenPosition POST /api/accounts/{id}/positions
func (t *Trading) OpenPosition(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("id")
	var req openPositionRequest
	if !decode(w, r, &req) {
		return
	}
	side, ok := model.ParseSide(req.Side)
	if !ok {
		writeError(w, model.Validationf("invalid side %q", req.Side))
		return
	}
	position, err := t.service.OpenPosition(r.Context(), service.OpenPositionRequest{
		AccountID:  accountID,
		Instrument: req.Instrument,
		Side:       side,
		Volume:     req.Volume,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"account":    accountID,
			"instrument": req.Instrument,
			"side":       req.Side,
			"volume":     req.Volume.String(),
		}).Errorf("trading - OpenPosition - OpenPosition: %v", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t.positionToResponse(position))
}

// ListOpen GET /api/accounts/{id}/positions
func (t *Trading) ListOpen(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("id")
	positions, err := t.service.ListOpen(r.Context(), accountID)
	if err != nil {
		logrus.WithField("account", accountID).Errorf("trading - ListOpen - ListOpen: %v", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t.positionsToResponse(positions))
}

// History GET /api/accounts/{id}/history
func (t *Trading) History(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("id")
	positions, err := t.service.History(r.Context(), accountID)
	if err != nil {
		logrus.WithField("account", accountID).Errorf("trading - History - History: %v", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t.positionsToResponse(positions))
}

// MarkToMarket GET /api/accounts/{id}/mark
func (t *Trading) MarkToMarket(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("id")
	valuations, err := t.service.MarkToMarket(r.Context(), accountID)
	if err != nil {
		logrus.WithField("account", accountID).Errorf("trading - MarkToMarket - MarkToMarket: %v", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t.valuationsToResponse(valuations))
}

// GetPosition GET /api/positions/{id}
func (t *Trading) GetPosition(w http.ResponseWriter, r *http.Request) {
	positionID := r.PathValue("id")
	position, err := t.service.GetPosition(r.Context(), positionID)
	if err != nil {
		logrus.WithField("position", positionID).Errorf("trading - GetPosition - GetPosition: %v", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t.positionToResponse(position))
}

// ClosePosition POST /api/positions/{id}/close
func (t *Trading) ClosePosition(w http.ResponseWriter, r *http.Request) {
	positionID := r.PathValue("id")
	position, err := t.service.ClosePosition(r.Context(), positionID, model.CloseManual)
	if err != nil {
		logrus.WithField("position", positionID).Errorf("trading - ClosePosition - ClosePosition: %v", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t.positionToResponse(position))
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, model.Validationf("invalid request body: %v", err))
		return false
	}
	return true
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusOf http status of an error kind
func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrAlreadyClosed):
		return http.StatusConflict
	case errors.Is(err, model.ErrInsufficientMargin), errors.Is(err, model.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrQuoteUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, model.ErrTimeout):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), errorResponse{Error: model.Kind(err), Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
