// Package repository position
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gmcfx/GM-Capital/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// unique_violation, foreign_key_violation, check_violation
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

const positionColumns = `id, account_id, instrument, side, volume, open_price, margin, stop_loss, take_profit,
	status, opened_at, closed_at, realized_pnl, close_reason`

// Position postgres entity
type Position struct {
	runner *PgxWithinTransactionRunner
}

// NewPositionRepository creating new Position repository
func NewPositionRepository(runner *PgxWithinTransactionRunner) *Position {
	return &Position{runner: runner}
}

// Insert create position
func (r *Position) Insert(ctx context.Context, position *model.Position) error {
	_, err := r.runner.Exec(ctx,
		`insert into positions (id, account_id, instrument, side, volume, open_price, margin, stop_loss, take_profit, status, opened_at)
			values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		position.ID, position.AccountID, position.Instrument, string(position.Side), position.Volume, position.OpenPrice,
		position.Margin, nullDecimal(position.StopLoss), nullDecimal(position.TakeProfit), string(position.Status), position.OpenedAt)
	if err != nil {
		return fmt.Errorf("position - Insert - Exec: %w", classify(err))
	}
	return nil
}

// Get get position by id
func (r *Position) Get(ctx context.Context, id string) (*model.Position, error) {
	row := r.runner.QueryRow(ctx, `select `+positionColumns+` from positions where id = $1`, id)
	position, err := scanPosition(row)
	if err != nil {
		return nil, fmt.Errorf("position - Get - QueryRow: %w", classify(err))
	}
	return position, nil
}

// MarkClosed close position, only an open position can be closed
func (r *Position) MarkClosed(ctx context.Context, id string, closedAt time.Time, realizedPnL decimal.Decimal, reason model.CloseReason) error {
	tag, err := r.runner.Exec(ctx,
		`update positions set status = $1, closed_at = $2, realized_pnl = $3, close_reason = $4
			where id = $5 and status = $6`,
		string(model.StatusClosed), closedAt, realizedPnL, string(reason), id, string(model.StatusOpen))
	if err != nil {
		return fmt.Errorf("position - MarkClosed - Exec: %w", classify(err))
	}
	if tag.RowsAffected() == 0 {
		if _, err = r.Get(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("position - MarkClosed: %w", model.ErrAlreadyClosed)
	}
	return nil
}

// ListOpen open positions of an account
func (r *Position) ListOpen(ctx context.Context, accountID string) ([]*model.Position, error) {
	return r.list(ctx, `select `+positionColumns+` from positions
		where account_id = $1 and status = 'open' order by opened_at, id`, accountID)
}

// ListByAccount every position of an account
func (r *Position) ListByAccount(ctx context.Context, accountID string) ([]*model.Position, error) {
	return r.list(ctx, `select `+positionColumns+` from positions
		where account_id = $1 order by opened_at, id`, accountID)
}

// OpenAccounts accounts with open positions
func (r *Position) OpenAccounts(ctx context.Context) ([]string, error) {
	rows, err := r.runner.Query(ctx, `select distinct account_id from positions where status = 'open'`)
	if err != nil {
		return nil, fmt.Errorf("position - OpenAccounts - Query: %w", classify(err))
	}
	defer rows.Close()

	var accounts []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("position - OpenAccounts - Scan: %w", classify(err))
		}
		accounts = append(accounts, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("position - OpenAccounts - Rows: %w", classify(err))
	}
	return accounts, nil
}

func (r *Position) list(ctx context.Context, sql, accountID string) ([]*model.Position, error) {
	rows, err := r.runner.Query(ctx, sql, accountID)
	if err != nil {
		return nil, fmt.Errorf("position - list - Query: %w", classify(err))
	}
	defer rows.Close()

	var positions []*model.Position
	for rows.Next() {
		position, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("position - list - Scan: %w", classify(err))
		}
		positions = append(positions, position)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("position - list - Rows: %w", classify(err))
	}
	return positions, nil
}

func scanPosition(row pgx.Row) (*model.Position, error) {
	var (
		p                              model.Position
		side, status                   string
		stopLoss, takeProfit, realized decimal.NullDecimal
		closedAt                       *time.Time
		reason                         *string
	)
	err := row.Scan(&p.ID, &p.AccountID, &p.Instrument, &side, &p.Volume, &p.OpenPrice, &p.Margin,
		&stopLoss, &takeProfit, &status, &p.OpenedAt, &closedAt, &realized, &reason)
	if err != nil {
		return nil, err
	}
	p.Side = model.Side(side)
	p.Status = model.Status(status)
	p.StopLoss = fromNullDecimal(stopLoss)
	p.TakeProfit = fromNullDecimal(takeProfit)
	p.RealizedPnL = fromNullDecimal(realized)
	if closedAt != nil {
		t := closedAt.UTC()
		p.ClosedAt = &t
	}
	p.OpenedAt = p.OpenedAt.UTC()
	if reason != nil {
		p.CloseReason = model.CloseReason(*reason)
	}
	return &p, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func fromNullDecimal(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

// classify maps driver errors onto the model error kinds
func classify(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgCheckViolation:
			return fmt.Errorf("%w: %s", model.ErrValidation, pgErr.Message)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", model.ErrNotFound, pgErr.Message)
		}
	}
	return fmt.Errorf("%w: %w", model.ErrStorage, model.Deadline(err))
}
