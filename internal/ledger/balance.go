package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gmcfx/GM-Capital/internal/model"

	"github.com/shopspring/decimal"
)

// AccountStore durable account records
type AccountStore interface {
	Create(ctx context.Context, account *model.Account) error
	Get(ctx context.Context, id string) (*model.Account, error)
	Adjust(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error)
}

// Balances account balance store
type Balances struct {
	store AccountStore
	now   func() time.Time
}

// NewBalances constructor
func NewBalances(store AccountStore) *Balances {
	return &Balances{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Create registers an account with its opening balance
func (b *Balances) Create(ctx context.Context, account *model.Account) (*model.Account, error) {
	if strings.TrimSpace(account.ID) == "" {
		return nil, model.Validationf("account id is required")
	}
	if strings.TrimSpace(account.Currency) == "" {
		return nil, model.Validationf("account currency is required")
	}
	if account.Balance.IsNegative() {
		return nil, model.Validationf("opening balance must not be negative, got %s", account.Balance)
	}

	created := *account
	created.Created = b.now()
	if err := b.store.Create(ctx, &created); err != nil {
		return nil, fmt.Errorf("balances - Create: account %s: %w", account.ID, err)
	}
	return &created, nil
}

// Account account by id
func (b *Balances) Account(ctx context.Context, id string) (*model.Account, error) {
	account, err := b.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("balances - Account: account %s: %w", id, err)
	}
	return account, nil
}

// Balance current balance
func (b *Balances) Balance(ctx context.Context, id string) (decimal.Decimal, error) {
	account, err := b.Account(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

// Adjust atomic add. The sign of the result is not checked here:
// a close with a loss is allowed to take the balance below zero.
func (b *Balances) Adjust(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	balance, err := b.store.Adjust(ctx, id, delta)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balances - Adjust: account %s: %w", id, err)
	}
	return balance, nil
}
