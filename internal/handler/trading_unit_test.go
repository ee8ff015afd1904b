package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gmcfx/GM-Capital/internal/handler/mocks"
	"github.com/gmcfx/GM-Capital/internal/model"
	"github.com/gmcfx/GM-Capital/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testCatalog = model.NewCatalog([]model.Instrument{
	{Symbol: "EUR/USD", Class: model.Forex, ContractSize: decimal.NewFromInt(100000), Precision: 5},
	{Symbol: "BTC/USD", Class: model.Crypto, ContractSize: decimal.NewFromInt(1), Precision: 2},
})

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestRouter(t *testing.T) (*mocks.TradingService, http.Handler) {
	s := mocks.NewTradingService(t)
	return s, NewRouter(NewTrading(s, testCatalog), nil, nil, nil)
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func openEURPosition() *model.Position {
	sl := dec("1.09")
	return &model.Position{
		ID:         "p1",
		AccountID:  "a1",
		Instrument: "EUR/USD",
		Side:       model.SideLong,
		Volume:     dec("0.1"),
		OpenPrice:  dec("1.1"),
		Margin:     dec("110"),
		StopLoss:   &sl,
		Status:     model.StatusOpen,
		OpenedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestOpenPosition(t *testing.T) {
	s, h := newTestRouter(t)
	s.On("OpenPosition", mock.Anything, mock.MatchedBy(func(req service.OpenPositionRequest) bool {
		return req.AccountID == "a1" && req.Instrument == "EUR/USD" && req.Side == model.SideLong &&
			req.Volume.Equal(dec("0.1")) && req.StopLoss != nil && req.StopLoss.Equal(dec("1.09")) && req.TakeProfit == nil
	})).Return(openEURPosition(), nil)

	rec := do(h, http.MethodPost, "/api/accounts/a1/positions",
		`{"instrument":"EUR/USD","side":"buy","volume":"0.1","stopLoss":"1.09"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp positionResponse
	decodeBody(t, rec, &resp)
	require.Equal(t, "p1", resp.ID)
	require.Equal(t, "long", resp.Side)
	require.Equal(t, "1.10000", resp.OpenPrice)
	require.Equal(t, "110.00", resp.Margin)
	require.NotNil(t, resp.StopLoss)
	require.Equal(t, "1.09000", *resp.StopLoss)
	require.Nil(t, resp.TakeProfit)
	require.Nil(t, resp.RealizedPnL)
}

func TestOpenPositionInvalidSide(t *testing.T) {
	_, h := newTestRouter(t)

	rec := do(h, http.MethodPost, "/api/accounts/a1/positions", `{"instrument":"EUR/USD","side":"up","volume":"1"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	decodeBody(t, rec, &resp)
	require.Equal(t, "validation", resp.Error)
}

func TestOpenPositionUnknownField(t *testing.T) {
	_, h := newTestRouter(t)

	rec := do(h, http.MethodPost, "/api/accounts/a1/positions", `{"instrument":"EUR/USD","side":"long","volume":"1","leverage":50}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{model.Validationf("volume must be positive"), http.StatusBadRequest, "validation"},
		{fmt.Errorf("ledger - Get - Get: %w", model.ErrNotFound), http.StatusNotFound, "not_found"},
		{model.ErrAlreadyClosed, http.StatusConflict, "already_closed"},
		{model.ErrInsufficientMargin, http.StatusUnprocessableEntity, "insufficient_margin"},
		{model.ErrInsufficientFunds, http.StatusUnprocessableEntity, "insufficient_funds"},
		{model.ErrQuoteUnavailable, http.StatusServiceUnavailable, "quote_unavailable"},
		{model.ErrTimeout, http.StatusGatewayTimeout, "timeout"},
		{fmt.Errorf("%w: connection reset", model.ErrStorage), http.StatusInternalServerError, "storage"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			s, h := newTestRouter(t)
			s.On("ClosePosition", mock.Anything, "p1", model.CloseManual).Return(nil, tt.err)

			rec := do(h, http.MethodPost, "/api/positions/p1/close", "")
			require.Equal(t, tt.status, rec.Code)

			var resp errorResponse
			decodeBody(t, rec, &resp)
			require.Equal(t, tt.code, resp.Error)
			require.Equal(t, tt.err.Error(), resp.Message)
		})
	}
}

func TestClosePosition(t *testing.T) {
	s, h := newTestRouter(t)
	closed := openEURPosition()
	closedAt := closed.OpenedAt.Add(time.Hour)
	pnl := dec("-12.345")
	closed.Status = model.StatusClosed
	closed.ClosedAt = &closedAt
	closed.RealizedPnL = &pnl
	closed.CloseReason = model.CloseManual
	s.On("ClosePosition", mock.Anything, "p1", model.CloseManual).Return(closed, nil)

	rec := do(h, http.MethodPost, "/api/positions/p1/close", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp positionResponse
	decodeBody(t, rec, &resp)
	require.Equal(t, "closed", resp.Status)
	require.Equal(t, "manual", resp.CloseReason)
	require.NotNil(t, resp.RealizedPnL)
	require.Equal(t, "-12.35", *resp.RealizedPnL)
	require.NotNil(t, resp.ClosedAt)
	require.True(t, resp.ClosedAt.Equal(closedAt))
}

func TestMarkToMarket(t *testing.T) {
	s, h := newTestRouter(t)
	btc := &model.Position{
		ID: "p2", AccountID: "a1", Instrument: "BTC/USD", Side: model.SideShort,
		Volume: dec("0.5"), OpenPrice: dec("60000"), Margin: dec("300"), Status: model.StatusOpen,
	}
	s.On("MarkToMarket", mock.Anything, "a1").Return([]model.Valuation{
		{Position: openEURPosition(), MarkPrice: dec("1.1048"), UnrealizedPnL: dec("48")},
		{Position: btc, MarkPrice: dec("60520.5"), UnrealizedPnL: dec("-260.25")},
	}, nil)

	rec := do(h, http.MethodGet, "/api/accounts/a1/mark", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []valuationResponse
	decodeBody(t, rec, &resp)
	require.Len(t, resp, 2)
	require.Equal(t, "1.10480", resp[0].MarkPrice)
	require.Equal(t, "48.00", resp[0].UnrealizedPnL)
	require.Equal(t, "60520.50", resp[1].MarkPrice)
	require.Equal(t, "-260.25", resp[1].UnrealizedPnL)
	require.Equal(t, "60000.00", resp[1].Position.OpenPrice)
}

func TestListOpenEmpty(t *testing.T) {
	s, h := newTestRouter(t)
	s.On("ListOpen", mock.Anything, "a1").Return([]*model.Position{}, nil)

	rec := do(h, http.MethodGet, "/api/accounts/a1/positions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())
}

func TestUnknownInstrumentPrecision(t *testing.T) {
	s, h := newTestRouter(t)
	p := openEURPosition()
	p.Instrument = "XAG/USD"
	p.StopLoss = nil
	s.On("GetPosition", mock.Anything, "p1").Return(p, nil)

	rec := do(h, http.MethodGet, "/api/positions/p1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp positionResponse
	decodeBody(t, rec, &resp)
	require.Equal(t, "1.10000", resp.OpenPrice)
}

func TestCreateAccount(t *testing.T) {
	s, h := newTestRouter(t)
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s.On("CreateAccount", mock.Anything, mock.MatchedBy(func(req service.CreateAccountRequest) bool {
		return req.ID == "" && req.Currency == "USD" && req.InitialBalance.Equal(dec("5000"))
	})).Return(&model.Account{ID: "a1", Currency: "USD", Owner: "ann", Balance: dec("5000"), Created: created}, nil)

	rec := do(h, http.MethodPost, "/api/accounts", `{"currency":"USD","owner":"ann","initialBalance":"5000"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp accountResponse
	decodeBody(t, rec, &resp)
	require.Equal(t, "a1", resp.ID)
	require.Equal(t, "5000.00", resp.Balance)
}

func TestDepositWithdraw(t *testing.T) {
	s, h := newTestRouter(t)
	s.On("Deposit", mock.Anything, "a1", mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(dec("250.5")) })).
		Return(dec("5250.5"), nil)
	s.On("Withdraw", mock.Anything, "a1", mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(dec("9000")) })).
		Return(decimal.Zero, model.ErrInsufficientFunds)

	rec := do(h, http.MethodPost, "/api/accounts/a1/deposit", `{"amount":"250.5"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp balanceResponse
	decodeBody(t, rec, &resp)
	require.Equal(t, "a1", resp.AccountID)
	require.Equal(t, "5250.50", resp.Balance)

	rec = do(h, http.MethodPost, "/api/accounts/a1/withdraw", `{"amount":"9000"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestStats(t *testing.T) {
	s, h := newTestRouter(t)
	best, worst := dec("480"), dec("-20")
	s.On("Stats", mock.Anything, "a1").Return(&model.AccountStats{
		Balance:         dec("5460"),
		TotalTrades:     3,
		WinRate:         dec("2").Div(dec("3")),
		TotalPnL:        dec("460"),
		ActivePositions: 1,
		BestTrade:       &best,
		WorstTrade:      &worst,
	}, nil)

	rec := do(h, http.MethodGet, "/api/accounts/a1/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp statsResponse
	decodeBody(t, rec, &resp)
	require.Equal(t, 3, resp.TotalTrades)
	require.Equal(t, "0.6667", resp.WinRate)
	require.Equal(t, "460.00", resp.TotalPnL)
	require.Equal(t, "480.00", *resp.BestTrade)
	require.Equal(t, "-20.00", *resp.WorstTrade)
}

func TestMethodNotAllowed(t *testing.T) {
	_, h := newTestRouter(t)

	rec := do(h, http.MethodDelete, "/api/positions/p1", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
