package repository

import (
	"context"
	"fmt"

	"github.com/gmcfx/GM-Capital/internal/model"

	"github.com/shopspring/decimal"
)

// Account postgres entity
type Account struct {
	runner *PgxWithinTransactionRunner
}

// NewAccountRepository creating new Account repository
func NewAccountRepository(runner *PgxWithinTransactionRunner) *Account {
	return &Account{runner: runner}
}

// Create create account
func (r *Account) Create(ctx context.Context, account *model.Account) error {
	_, err := r.runner.Exec(ctx,
		`insert into accounts (id, currency, owner, balance, created) values ($1, $2, $3, $4, $5)`,
		account.ID, account.Currency, account.Owner, account.Balance, account.Created)
	if err != nil {
		return fmt.Errorf("account - Create - Exec: %w", classify(err))
	}
	return nil
}

// Get get account by id, the row is locked when called inside a transaction
func (r *Account) Get(ctx context.Context, id string) (*model.Account, error) {
	sql := `select id, currency, owner, balance, created from accounts where id = $1`
	if r.runner.InTransaction(ctx) {
		sql += ` for update`
	}
	var account model.Account
	err := r.runner.QueryRow(ctx, sql, id).
		Scan(&account.ID, &account.Currency, &account.Owner, &account.Balance, &account.Created)
	if err != nil {
		return nil, fmt.Errorf("account - Get - QueryRow: %w", classify(err))
	}
	account.Created = account.Created.UTC()
	return &account, nil
}

// Adjust add delta to balance
func (r *Account) Adjust(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.runner.QueryRow(ctx,
		`update accounts set balance = balance + $1 where id = $2 returning balance`, delta, id).
		Scan(&balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("account - Adjust - QueryRow: %w", classify(err))
	}
	return balance, nil
}
