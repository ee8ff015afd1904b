// Package repository event bus
package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gmcfx/GM-Capital/internal/model"

	"github.com/google/uuid"
)

const (
	defaultListenerBuffer = 64
	defaultSendTimeout    = 100 * time.Millisecond
)

// EventBus in-process fan-out of position events to per-account listeners
type EventBus struct {
	mu          sync.RWMutex
	listeners   map[string]map[string]chan *model.Event
	buffer      int
	sendTimeout time.Duration
}

// NewEventBus constructor, non-positive values fall back to defaults
func NewEventBus(buffer int, sendTimeout time.Duration) *EventBus {
	if buffer <= 0 {
		buffer = defaultListenerBuffer
	}
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	return &EventBus{
		listeners:   make(map[string]map[string]chan *model.Event),
		buffer:      buffer,
		sendTimeout: sendTimeout,
	}
}

// Subscribe create listener for account events, returns listener id and its channel
func (b *EventBus) Subscribe(accountID string) (string, <-chan *model.Event) {
	id := uuid.NewString()
	channel := make(chan *model.Event, b.buffer)

	b.mu.Lock()
	lis, ok := b.listeners[accountID]
	if !ok {
		lis = make(map[string]chan *model.Event)
		b.listeners[accountID] = lis
	}
	lis[id] = channel
	b.mu.Unlock()
	return id, channel
}

// Unsubscribe remove listener and close its channel
func (b *EventBus) Unsubscribe(accountID, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	lis := b.listeners[accountID]
	channel, ok := lis[id]
	if !ok {
		return fmt.Errorf("eventBus - Unsubscribe: listener %s for account %s: %w", id, accountID, model.ErrNotFound)
	}
	close(channel)
	delete(lis, id)
	if len(lis) == 0 {
		delete(b.listeners, accountID)
	}
	return nil
}

// Publish deliver event to every listener of its account.
// Each send waits at most sendTimeout, a listener that stays full misses the event.
func (b *EventBus) Publish(ctx context.Context, event *model.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var dropped int
	for _, lis := range b.listeners[event.AccountID] {
		if !b.send(ctx, lis, event) {
			dropped++
		}
	}
	if dropped > 0 {
		return fmt.Errorf("eventBus - Publish: %s for position %s dropped by %d listeners: %w",
			event.Type, event.PositionID, dropped, model.ErrTimeout)
	}
	return nil
}

// Listeners number of listeners for an account
func (b *EventBus) Listeners(accountID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[accountID])
}

func (b *EventBus) send(ctx context.Context, lis chan *model.Event, event *model.Event) bool {
	select {
	case lis <- event:
		return true
	default:
	}
	timer := time.NewTimer(b.sendTimeout)
	defer timer.Stop()
	select {
	case lis <- event:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}
