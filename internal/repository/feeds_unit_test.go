package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/gmcfx/GM-Capital/internal/model"

	psProto "github.com/OVantsevich/Price-Service/proto"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testCatalog = model.NewCatalog([]model.Instrument{
	{Symbol: "EUR/USD", Class: model.Forex, ContractSize: decimal.NewFromInt(100000), Precision: 5},
	{Symbol: "USD/JPY", Class: model.Forex, ContractSize: decimal.NewFromInt(100000), Precision: 3},
	{Symbol: "BTC/USD", Class: model.Crypto, ContractSize: decimal.NewFromInt(1), Precision: 2},
})

func TestSimulator_GetQuote_BeforeStep(t *testing.T) {
	sim := NewSimulator(testCatalog, DefaultBasePrices, 1)
	_, err := sim.GetQuote(context.Background(), "EUR/USD")
	require.ErrorIs(t, err, model.ErrQuoteUnavailable)
}

func TestSimulator_Step(t *testing.T) {
	ctx := context.Background()
	sim := NewSimulator(testCatalog, DefaultBasePrices, 42)

	for i := 0; i < 100; i++ {
		quotes := sim.Step()
		require.Len(t, quotes, 3)
	}

	eur, err := sim.GetQuote(ctx, "EUR/USD")
	require.NoError(t, err)
	spread := eur.Ask.Sub(eur.Bid)
	require.True(t, spread.GreaterThanOrEqual(decimal.RequireFromString("0.0001")), spread.String())
	require.True(t, spread.LessThanOrEqual(decimal.RequireFromString("0.0003")), spread.String())
	require.LessOrEqual(t, -eur.Bid.Exponent(), int32(5))

	jpy, err := sim.GetQuote(ctx, "USD/JPY")
	require.NoError(t, err)
	require.True(t, jpy.Ask.GreaterThan(jpy.Bid))

	btc, err := sim.GetQuote(ctx, "BTC/USD")
	require.NoError(t, err)
	spread = btc.Ask.Sub(btc.Bid)
	require.True(t, spread.GreaterThanOrEqual(decimal.NewFromInt(5)), spread.String())
	require.True(t, spread.LessThanOrEqual(decimal.NewFromInt(15)), spread.String())

	_, err = sim.GetQuote(ctx, "XAU/USD")
	require.ErrorIs(t, err, model.ErrQuoteUnavailable)
}

func TestSimulator_Set(t *testing.T) {
	sim := NewSimulator(testCatalog, DefaultBasePrices, 7)
	sim.Set(model.Quote{
		Instrument: "EUR/USD",
		Bid:        decimal.RequireFromString("1.1048"),
		Ask:        decimal.RequireFromString("1.1050"),
	})

	quote, err := sim.GetQuote(context.Background(), "EUR/USD")
	require.NoError(t, err)
	require.True(t, quote.Bid.Equal(decimal.RequireFromString("1.1048")))
	require.False(t, quote.AsOf.IsZero())
}

func TestQuoteCache_Codec(t *testing.T) {
	asOf := time.Unix(0, 1700000000123456789).UTC()
	quote := model.Quote{
		Instrument: "EUR/USD",
		Bid:        decimal.RequireFromString("1.10480"),
		Ask:        decimal.RequireFromString("1.10500"),
		AsOf:       asOf,
	}
	require.Equal(t, "quote:EUR/USD", quoteKey("EUR/USD"))

	fields := encodeQuote(quote)
	vals := make(map[string]string, len(fields))
	for k, v := range fields {
		vals[k] = v.(string)
	}
	require.Equal(t, "1700000000123456789", vals["ts"])

	decoded, err := decodeQuote("EUR/USD", vals)
	require.NoError(t, err)
	require.True(t, decoded.Bid.Equal(quote.Bid))
	require.True(t, decoded.Ask.Equal(quote.Ask))
	require.True(t, decoded.AsOf.Equal(asOf))

	_, err = decodeQuote("EUR/USD", map[string]string{})
	require.ErrorIs(t, err, model.ErrQuoteUnavailable)

	vals["bid"] = "not a number"
	_, err = decodeQuote("EUR/USD", vals)
	require.ErrorIs(t, err, model.ErrQuoteUnavailable)
}

func TestPriceService_FromGRPC(t *testing.T) {
	asOf := time.Now()
	quote, ok := fromGRPC(testCatalog, &psProto.Price{Name: "EUR/USD", SellingPrice: 1.10481, PurchasePrice: 1.10502}, asOf)
	require.True(t, ok)
	require.True(t, quote.Bid.Equal(decimal.RequireFromString("1.10481")))
	require.True(t, quote.Ask.Equal(decimal.RequireFromString("1.10502")))

	_, ok = fromGRPC(testCatalog, &psProto.Price{Name: "DOGE/USD", SellingPrice: 1, PurchasePrice: 1}, asOf)
	require.False(t, ok)

	_, ok = fromGRPC(testCatalog, &psProto.Price{Name: "EUR/USD"}, asOf)
	require.False(t, ok)

	ps := NewPriceServiceRepository(nil, testCatalog)
	ps.apply([]*psProto.Price{{Name: "BTC/USD", SellingPrice: 42000.5, PurchasePrice: 42010.25}})
	got, err := ps.GetQuote(context.Background(), "BTC/USD")
	require.NoError(t, err)
	require.True(t, got.Ask.Equal(decimal.RequireFromString("42010.25")))

	_, err = ps.GetQuote(context.Background(), "EUR/USD")
	require.ErrorIs(t, err, model.ErrQuoteUnavailable)
}

func TestNATSPublisher_EventMessage(t *testing.T) {
	event := &model.Event{
		ID:         "event-id",
		Type:       model.PositionClosed,
		AccountID:  "account",
		PositionID: "position",
		OccurredAt: time.Now().UTC(),
	}
	require.Equal(t, "positions.events.positionclosed", EventSubject(event.Type))

	msg, err := EventMessage(event)
	require.NoError(t, err)
	require.Equal(t, "positions.events.positionclosed", msg.Subject)
	require.Equal(t, "event-id", msg.Header.Get(jetstream.MsgIDHeader))

	var decoded model.Event
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	require.Equal(t, event.PositionID, decoded.PositionID)
	require.Equal(t, event.Type, decoded.Type)
}
