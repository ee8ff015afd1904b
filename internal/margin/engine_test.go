package margin

import (
	"testing"

	"github.com/gmcfx/GM-Capital/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	eurusd = model.Instrument{Symbol: "EUR/USD", Class: model.Forex, ContractSize: decimal.NewFromInt(100000), Precision: 5}
	btcusd = model.Instrument{Symbol: "BTC/USD", Class: model.Crypto, ContractSize: decimal.NewFromInt(1), Precision: 2}
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func TestEngine_RequiredMargin(t *testing.T) {
	e := NewEngine(map[model.AssetClass]decimal.Decimal{model.Crypto: d("0.5")})

	require.True(t, d("1000").Equal(e.RequiredMargin(d("1"), eurusd)))
	require.True(t, d("250").Equal(e.RequiredMargin(d("0.25"), eurusd)))
	require.True(t, d("0.05").Equal(e.RequiredMargin(d("0.1"), btcusd)))
	require.True(t, DefaultRate.Equal(e.Rate(model.Index)))
}

func TestEngine_RequiredMarginDeterministic(t *testing.T) {
	e := NewEngine(nil)
	first := e.RequiredMargin(d("0.37"), eurusd)
	for i := 0; i < 100; i++ {
		require.True(t, first.Equal(e.RequiredMargin(d("0.37"), eurusd)))
	}
}

func TestUnrealizedPnL(t *testing.T) {
	tests := []struct {
		name     string
		side     model.Side
		open     string
		bid, ask string
		volume   string
		expected string
	}{
		{name: "long_profit", side: model.SideLong, open: "1.1002", bid: "1.1050", ask: "1.1052", volume: "1", expected: "480"},
		{name: "long_loss", side: model.SideLong, open: "1.1002", bid: "1.0902", ask: "1.0904", volume: "0.5", expected: "-500"},
		{name: "short_profit", side: model.SideShort, open: "1.1000", bid: "1.0948", ask: "1.0950", volume: "1", expected: "500"},
		{name: "short_loss", side: model.SideShort, open: "1.1000", bid: "1.1048", ask: "1.1050", volume: "2", expected: "-1000"},
		{name: "long_spread_cost", side: model.SideLong, open: "1.1002", bid: "1.1000", ask: "1.1002", volume: "1", expected: "-20"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			p := &model.Position{Side: tt.side, OpenPrice: d(tt.open), Volume: d(tt.volume)}
			q := model.Quote{Instrument: eurusd.Symbol, Bid: d(tt.bid), Ask: d(tt.ask)}
			got := UnrealizedPnL(p, eurusd, q)
			require.True(t, d(tt.expected).Equal(got), "got %s", got)
		})
	}
}

func TestUnrealizedPnL_NoDrift(t *testing.T) {
	p := &model.Position{Side: model.SideLong, OpenPrice: d("1.1"), Volume: d("0.1")}
	q := model.Quote{Bid: d("1.2"), Ask: d("1.2")}
	sum := decimal.Zero
	for i := 0; i < 1000; i++ {
		sum = sum.Add(UnrealizedPnL(p, eurusd, q))
	}
	require.True(t, d("1000000").Equal(sum), "got %s", sum)
}

func TestTriggered(t *testing.T) {
	long := &model.Position{Side: model.SideLong, OpenPrice: d("1.1"), StopLoss: dp("1.09"), TakeProfit: dp("1.12")}
	short := &model.Position{Side: model.SideShort, OpenPrice: d("1.1"), StopLoss: dp("1.11"), TakeProfit: dp("1.08")}

	reason, ok := Triggered(long, model.Quote{Bid: d("1.089"), Ask: d("1.2")})
	require.True(t, ok)
	require.Equal(t, model.CloseStopLoss, reason)

	reason, ok = Triggered(long, model.Quote{Bid: d("1.12"), Ask: d("1.1202")})
	require.True(t, ok)
	require.Equal(t, model.CloseTakeProfit, reason)

	_, ok = Triggered(long, model.Quote{Bid: d("1.1"), Ask: d("1.1")})
	require.False(t, ok)

	reason, ok = Triggered(short, model.Quote{Bid: d("1.0"), Ask: d("1.11")})
	require.True(t, ok)
	require.Equal(t, model.CloseStopLoss, reason)

	reason, ok = Triggered(short, model.Quote{Bid: d("1.0"), Ask: d("1.079")})
	require.True(t, ok)
	require.Equal(t, model.CloseTakeProfit, reason)

	_, ok = Triggered(&model.Position{Side: model.SideLong, OpenPrice: d("1.1")}, model.Quote{Bid: d("0.1"), Ask: d("9")})
	require.False(t, ok)
}
