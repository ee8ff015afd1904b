// Package model error kinds
package model

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrValidation bad input
	ErrValidation = errors.New("validation error")
	// ErrNotFound unknown id
	ErrNotFound = errors.New("not found")
	// ErrAlreadyClosed position is in terminal state
	ErrAlreadyClosed = errors.New("position already closed")
	// ErrInsufficientMargin balance does not cover required margin
	ErrInsufficientMargin = errors.New("insufficient margin")
	// ErrInsufficientFunds withdrawal exceeds balance
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrQuoteUnavailable feed has no data for instrument
	ErrQuoteUnavailable = errors.New("quote unavailable")
	// ErrTimeout bounded wait exceeded
	ErrTimeout = errors.New("timeout")
	// ErrStorage persistence failure
	ErrStorage = errors.New("storage error")
)

var kinds = []struct {
	err  error
	code string
}{
	{ErrValidation, "validation"},
	{ErrNotFound, "not_found"},
	{ErrAlreadyClosed, "already_closed"},
	{ErrInsufficientMargin, "insufficient_margin"},
	{ErrInsufficientFunds, "insufficient_funds"},
	{ErrQuoteUnavailable, "quote_unavailable"},
	{ErrTimeout, "timeout"},
	{ErrStorage, "storage"},
}

// Kind stable code of the error kind carried by err, "internal" when none
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.code
		}
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "internal"
}

// Validationf builds ErrValidation with details
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Deadline maps an expired deadline to ErrTimeout, other errors pass through
func Deadline(err error) error {
	if err != nil && errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}
