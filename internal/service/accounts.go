package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gmcfx/GM-Capital/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateAccountRequest new account input, an empty id is generated
type CreateAccountRequest struct {
	ID             string
	Currency       string
	Owner          string
	InitialBalance decimal.Decimal
}

// CreateAccount registers an account
func (t *Trading) CreateAccount(ctx context.Context, req CreateAccountRequest) (account *model.Account, err error) {
	defer t.observe("create_account", time.Now(), &err)

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	release, err := t.locks.Lock(ctx, req.ID, t.timeouts.Lock)
	if err != nil {
		return nil, fmt.Errorf("trading - CreateAccount - Lock: %w", err)
	}

	var created *model.Account
	err = t.run(ctx, release, func(ctx context.Context) error {
		var err error
		created, err = t.balances.Create(ctx, &model.Account{
			ID:       req.ID,
			Currency: req.Currency,
			Owner:    req.Owner,
			Balance:  req.InitialBalance,
		})
		return err
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("trading - CreateAccount: %w", err)
	}
	return created, nil
}

// Deposit credits the balance
func (t *Trading) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (balance decimal.Decimal, err error) {
	defer t.observe("deposit", time.Now(), &err)

	balance, err = t.transfer(ctx, accountID, amount, false)
	if err != nil {
		return decimal.Zero, fmt.Errorf("trading - Deposit: %w", err)
	}
	return balance, nil
}

// Withdraw debits the balance, never below zero
func (t *Trading) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (balance decimal.Decimal, err error) {
	defer t.observe("withdraw", time.Now(), &err)

	balance, err = t.transfer(ctx, accountID, amount, true)
	if err != nil {
		return decimal.Zero, fmt.Errorf("trading - Withdraw: %w", err)
	}
	return balance, nil
}

func (t *Trading) transfer(ctx context.Context, accountID string, amount decimal.Decimal, withdraw bool) (decimal.Decimal, error) {
	if accountID == "" {
		return decimal.Zero, model.Validationf("account id is required")
	}
	if !amount.IsPositive() {
		return decimal.Zero, model.Validationf("amount must be positive, got %s", amount)
	}
	release, err := t.locks.Lock(ctx, accountID, t.timeouts.Lock)
	if err != nil {
		return decimal.Zero, err
	}

	var balance decimal.Decimal
	err = t.run(ctx, release, func(ctx context.Context) error {
		current, err := t.balances.Balance(ctx, accountID)
		if err != nil {
			return err
		}
		delta := amount
		if withdraw {
			if amount.GreaterThan(current) {
				return fmt.Errorf("%w: requested %s, balance %s", model.ErrInsufficientFunds, amount, current)
			}
			delta = amount.Neg()
		}
		balance, err = t.balances.Adjust(ctx, accountID, delta)
		return err
	}, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("account %s: %w", accountID, err)
	}
	return balance, nil
}

// Stats account statistics over closed positions
func (t *Trading) Stats(ctx context.Context, accountID string) (stats *model.AccountStats, err error) {
	defer t.observe("stats", time.Now(), &err)

	var (
		account   *model.Account
		positions []*model.Position
	)
	err = t.read(ctx, accountID, func(ctx context.Context) error {
		var err error
		if account, err = t.balances.Account(ctx, accountID); err != nil {
			return err
		}
		positions, err = t.ledger.History(ctx, accountID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("trading - Stats: %w", err)
	}
	return accountStats(account, positions), nil
}

func accountStats(account *model.Account, positions []*model.Position) *model.AccountStats {
	stats := &model.AccountStats{Balance: account.Balance, TotalPnL: decimal.Zero, WinRate: decimal.Zero}
	var wins int64
	for _, p := range positions {
		if p.IsOpen() {
			stats.ActivePositions++
			continue
		}
		realized := *p.RealizedPnL
		stats.TotalTrades++
		stats.TotalPnL = stats.TotalPnL.Add(realized)
		if realized.IsPositive() {
			wins++
		}
		if stats.BestTrade == nil || realized.GreaterThan(*stats.BestTrade) {
			best := realized
			stats.BestTrade = &best
		}
		if stats.WorstTrade == nil || realized.LessThan(*stats.WorstTrade) {
			worst := realized
			stats.WorstTrade = &worst
		}
	}
	if stats.TotalTrades > 0 {
		stats.WinRate = decimal.NewFromInt(wins).Div(decimal.NewFromInt(int64(stats.TotalTrades)))
	}
	return stats
}
