// Package repository redis quote cache
package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gmcfx/GM-Capital/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// QuoteCache latest quotes in redis hashes "quote:{symbol}" with fields bid, ask and ts (unix nanos)
type QuoteCache struct {
	rdb redis.Cmdable
}

// NewQuoteCache constructor
func NewQuoteCache(rdb redis.Cmdable) *QuoteCache {
	return &QuoteCache{rdb: rdb}
}

// NewRedisClient connects and pings redis
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("quoteCache - NewRedisClient - Ping: %w", err)
	}
	return rdb, nil
}

func quoteKey(symbol string) string {
	return "quote:" + symbol
}

func encodeQuote(quote model.Quote) map[string]interface{} {
	return map[string]interface{}{
		"bid": quote.Bid.String(),
		"ask": quote.Ask.String(),
		"ts":  strconv.FormatInt(quote.AsOf.UnixNano(), 10),
	}
}

func decodeQuote(symbol string, vals map[string]string) (model.Quote, error) {
	bidStr, okBid := vals["bid"]
	askStr, okAsk := vals["ask"]
	tsStr, okTS := vals["ts"]
	if !okBid || !okAsk || !okTS {
		return model.Quote{}, fmt.Errorf("%s: %w", symbol, model.ErrQuoteUnavailable)
	}
	bid, err := decimal.NewFromString(bidStr)
	if err != nil {
		return model.Quote{}, fmt.Errorf("%s: parse bid: %w", symbol, model.ErrQuoteUnavailable)
	}
	ask, err := decimal.NewFromString(askStr)
	if err != nil {
		return model.Quote{}, fmt.Errorf("%s: parse ask: %w", symbol, model.ErrQuoteUnavailable)
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return model.Quote{}, fmt.Errorf("%s: parse ts: %w", symbol, model.ErrQuoteUnavailable)
	}
	return model.Quote{Instrument: symbol, Bid: bid, Ask: ask, AsOf: time.Unix(0, tsNano).UTC()}, nil
}

// SetQuote store quote
func (c *QuoteCache) SetQuote(ctx context.Context, quote model.Quote) error {
	if err := c.rdb.HSet(ctx, quoteKey(quote.Instrument), encodeQuote(quote)).Err(); err != nil {
		return fmt.Errorf("quoteCache - SetQuote - HSet: %s: %w", quote.Instrument, model.Deadline(err))
	}
	return nil
}

// SetQuotes store a batch of quotes in one pipeline
func (c *QuoteCache) SetQuotes(ctx context.Context, quotes []model.Quote) error {
	_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, quote := range quotes {
			pipe.HSet(ctx, quoteKey(quote.Instrument), encodeQuote(quote))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("quoteCache - SetQuotes - Pipelined: %w", model.Deadline(err))
	}
	return nil
}

// GetQuote latest quote, model.ErrQuoteUnavailable when the key does not exist
func (c *QuoteCache) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	vals, err := c.rdb.HGetAll(ctx, quoteKey(symbol)).Result()
	if err != nil {
		return model.Quote{}, fmt.Errorf("quoteCache - GetQuote - HGetAll: %s: %w: %w", symbol, model.ErrQuoteUnavailable, model.Deadline(err))
	}
	quote, err := decodeQuote(symbol, vals)
	if err != nil {
		return model.Quote{}, fmt.Errorf("quoteCache - GetQuote: %w", err)
	}
	return quote, nil
}
