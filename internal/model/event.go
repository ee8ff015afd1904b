// Package model event model
package model

import "time"

// EventType kind of position event
type EventType string

const (
	// PositionOpened emitted after an open commits
	PositionOpened EventType = "PositionOpened"
	// PositionClosed emitted after a close commits
	PositionClosed EventType = "PositionClosed"
)

// Event notification for UI and notification subscribers.
// Delivery is at-least-once, consumers dedupe on PositionID+Type.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	AccountID  string    `json:"accountId"`
	PositionID string    `json:"positionId"`
	Position   *Position `json:"position"`
	OccurredAt time.Time `json:"occurredAt"`
}
