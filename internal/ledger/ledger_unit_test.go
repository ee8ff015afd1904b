package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gmcfx/GM-Capital/internal/model"
	"github.com/gmcfx/GM-Capital/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testCatalog = model.NewCatalog([]model.Instrument{
	{Symbol: "EUR/USD", Class: model.Forex, ContractSize: decimal.NewFromInt(100000), Precision: 5},
})

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	ledger   *Ledger
	balances *Balances
	clock    time.Time
}

func newFixture(t *testing.T, accounts ...string) *fixture {
	t.Helper()
	memory := repository.NewMemory()
	f := &fixture{clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	ids := 0
	f.ledger = New(memory.Positions(), testCatalog,
		WithClock(func() time.Time { return f.clock }),
		WithIDs(func() string { ids++; return fmt.Sprintf("p%02d", ids) }),
	)
	f.balances = NewBalances(memory.Accounts())
	for _, id := range accounts {
		_, err := f.balances.Create(context.Background(), &model.Account{ID: id, Currency: "USD", Balance: dec("1000")})
		require.NoError(t, err)
	}
	return f
}

func openRequest(accountID string) OpenRequest {
	return OpenRequest{
		AccountID:  accountID,
		Instrument: "EUR/USD",
		Side:       model.SideLong,
		Volume:     dec("0.1"),
		OpenPrice:  dec("1.1"),
		Margin:     dec("100"),
	}
}

func TestValidate(t *testing.T) {
	f := newFixture(t)
	negative := dec("-1")
	tests := map[string]func(*OpenRequest){
		"no account":           func(r *OpenRequest) { r.AccountID = "" },
		"unknown instrument":   func(r *OpenRequest) { r.Instrument = "DOGE/USD" },
		"bad side":             func(r *OpenRequest) { r.Side = "flat" },
		"zero volume":          func(r *OpenRequest) { r.Volume = decimal.Zero },
		"negative volume":      func(r *OpenRequest) { r.Volume = negative },
		"negative stop loss":   func(r *OpenRequest) { r.StopLoss = &negative },
		"negative take profit": func(r *OpenRequest) { r.TakeProfit = &negative },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			req := openRequest("a1")
			mutate(&req)
			require.ErrorIs(t, f.ledger.Validate(req), model.ErrValidation)
		})
	}
	require.NoError(t, f.ledger.Validate(openRequest("a1")))
}

func TestOpenAndGet(t *testing.T) {
	f := newFixture(t, "a1")
	ctx := context.Background()

	opened, err := f.ledger.Open(ctx, openRequest("a1"))
	require.NoError(t, err)
	require.Equal(t, "p01", opened.ID)
	require.Equal(t, model.StatusOpen, opened.Status)
	require.True(t, opened.OpenedAt.Equal(f.clock))

	got, err := f.ledger.Get(ctx, opened.ID)
	require.NoError(t, err)
	require.Equal(t, opened, got)

	got.Volume = dec("5")
	again, err := f.ledger.Get(ctx, opened.ID)
	require.NoError(t, err)
	require.True(t, dec("0.1").Equal(again.Volume))
}

func TestOpenRejectsBadPrice(t *testing.T) {
	f := newFixture(t, "a1")
	req := openRequest("a1")
	req.OpenPrice = decimal.Zero

	_, err := f.ledger.Open(context.Background(), req)
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestOpenUnknownAccount(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.Open(context.Background(), openRequest("ghost"))
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestGetMissing(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.Get(context.Background(), "nope")
	require.ErrorIs(t, err, model.ErrNotFound)
	_, err = f.ledger.Get(context.Background(), "")
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestCloseTwice(t *testing.T) {
	f := newFixture(t, "a1")
	ctx := context.Background()
	opened, err := f.ledger.Open(ctx, openRequest("a1"))
	require.NoError(t, err)

	f.clock = f.clock.Add(time.Minute)
	closed, err := f.ledger.Close(ctx, opened.ID, dec("-12.5"), "")
	require.NoError(t, err)
	require.Equal(t, model.StatusClosed, closed.Status)
	require.Equal(t, model.CloseManual, closed.CloseReason)
	require.True(t, dec("-12.5").Equal(*closed.RealizedPnL))
	require.True(t, closed.ClosedAt.Equal(f.clock))

	_, err = f.ledger.Close(ctx, opened.ID, dec("1"), model.CloseTakeProfit)
	require.ErrorIs(t, err, model.ErrAlreadyClosed)

	stored, err := f.ledger.Get(ctx, opened.ID)
	require.NoError(t, err)
	require.True(t, dec("-12.5").Equal(*stored.RealizedPnL))
	require.Equal(t, model.CloseManual, stored.CloseReason)
}

func TestListOpenOrderAndHistory(t *testing.T) {
	f := newFixture(t, "a1", "a2")
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		p, err := f.ledger.Open(ctx, openRequest("a1"))
		require.NoError(t, err)
		ids = append(ids, p.ID)
		f.clock = f.clock.Add(time.Second)
	}
	_, err := f.ledger.Open(ctx, openRequest("a2"))
	require.NoError(t, err)

	_, err = f.ledger.Close(ctx, ids[1], decimal.Zero, model.CloseManual)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		open, err := f.ledger.ListOpen(ctx, "a1")
		require.NoError(t, err)
		require.Len(t, open, 2)
		require.Equal(t, ids[0], open[0].ID)
		require.Equal(t, ids[2], open[1].ID)
	}

	history, err := f.ledger.History(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.Equal(t, model.StatusClosed, history[1].Status)

	accounts, err := f.ledger.OpenAccounts(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a1", "a2"}, accounts)
}

func TestBalances(t *testing.T) {
	f := newFixture(t, "a1")
	ctx := context.Background()

	balance, err := f.balances.Adjust(ctx, "a1", dec("-1200"))
	require.NoError(t, err)
	require.True(t, dec("-200").Equal(balance))

	balance, err = f.balances.Balance(ctx, "a1")
	require.NoError(t, err)
	require.True(t, dec("-200").Equal(balance))

	_, err = f.balances.Adjust(ctx, "ghost", dec("1"))
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestCreateAccountValidation(t *testing.T) {
	f := newFixture(t, "a1")
	ctx := context.Background()

	_, err := f.balances.Create(ctx, &model.Account{ID: " ", Currency: "USD"})
	require.ErrorIs(t, err, model.ErrValidation)
	_, err = f.balances.Create(ctx, &model.Account{ID: "a2"})
	require.ErrorIs(t, err, model.ErrValidation)
	_, err = f.balances.Create(ctx, &model.Account{ID: "a2", Currency: "USD", Balance: dec("-1")})
	require.ErrorIs(t, err, model.ErrValidation)
	_, err = f.balances.Create(ctx, &model.Account{ID: "a1", Currency: "USD"})
	require.ErrorIs(t, err, model.ErrValidation)
}
