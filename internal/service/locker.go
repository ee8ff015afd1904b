package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gmcfx/GM-Capital/internal/model"

	"golang.org/x/sync/semaphore"
)

// writerWeight full semaphore weight, a writer excludes every reader
const writerWeight = 1 << 20

type accountLock struct {
	sem  *semaphore.Weighted
	refs int
}

// accountLocks per-account reader/writer locks, waiters are served in arrival order
type accountLocks struct {
	mu    sync.Mutex
	locks map[string]*accountLock
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[string]*accountLock)}
}

// Lock exclusive lock for mutations
func (l *accountLocks) Lock(ctx context.Context, accountID string, timeout time.Duration) (func(), error) {
	return l.acquire(ctx, accountID, writerWeight, timeout)
}

// RLock shared lock for consistent reads
func (l *accountLocks) RLock(ctx context.Context, accountID string, timeout time.Duration) (func(), error) {
	return l.acquire(ctx, accountID, 1, timeout)
}

func (l *accountLocks) acquire(ctx context.Context, accountID string, weight int64, timeout time.Duration) (func(), error) {
	lock := l.ref(accountID)

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := lock.sem.Acquire(waitCtx, weight); err != nil {
		l.unref(accountID)
		if ctx.Err() == nil {
			return nil, fmt.Errorf("account %s lock: %w", accountID, model.ErrTimeout)
		}
		return nil, fmt.Errorf("account %s lock: %w", accountID, model.Deadline(ctx.Err()))
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			lock.sem.Release(weight)
			l.unref(accountID)
		})
	}, nil
}

func (l *accountLocks) ref(accountID string) *accountLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[accountID]
	if !ok {
		lock = &accountLock{sem: semaphore.NewWeighted(writerWeight)}
		l.locks[accountID] = lock
	}
	lock.refs++
	return lock
}

func (l *accountLocks) unref(accountID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock := l.locks[accountID]
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, accountID)
	}
}
