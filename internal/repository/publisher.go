// Package repository nats publisher
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gmcfx/GM-Capital/internal/model"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventsStream jetstream stream holding position events
const EventsStream = "POSITION_EVENTS"

const eventsSubjectPrefix = "positions.events"

// NATSPublisher publishes committed position events to jetstream
type NATSPublisher struct {
	js jetstream.JetStream
}

// NewNATSPublisher constructor
func NewNATSPublisher(js jetstream.JetStream) *NATSPublisher {
	return &NATSPublisher{js: js}
}

// ConnectJetStream dials nats and opens a jetstream context
func ConnectJetStream(url string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url, nats.Name("gm-capital-positions"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, nil, fmt.Errorf("publisher - ConnectJetStream - Connect: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("publisher - ConnectJetStream - New: %w", err)
	}
	return nc, js, nil
}

// EnsureEventsStream creates or updates the events stream
func EnsureEventsStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       EventsStream,
		Subjects:   []string{eventsSubjectPrefix + ".>"},
		Storage:    jetstream.FileStorage,
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     72 * time.Hour,
		Duplicates: 10 * time.Minute,
		Replicas:   1,
	})
	if err != nil {
		return fmt.Errorf("publisher - EnsureEventsStream - CreateOrUpdateStream: %w", err)
	}
	return nil
}

// EventSubject positions.events.{type}
func EventSubject(eventType model.EventType) string {
	return eventsSubjectPrefix + "." + strings.ToLower(string(eventType))
}

// EventMessage builds the jetstream message, the event id is the dedupe key
func EventMessage(event *model.Event) (*nats.Msg, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("publisher - EventMessage - Marshal: %w", err)
	}
	msg := nats.NewMsg(EventSubject(event.Type))
	msg.Data = data
	msg.Header.Set(jetstream.MsgIDHeader, event.ID)
	return msg, nil
}

// Publish event
func (p *NATSPublisher) Publish(ctx context.Context, event *model.Event) error {
	msg, err := EventMessage(event)
	if err != nil {
		return err
	}
	if _, err = p.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("publisher - Publish - PublishMsg: %s %s: %w", event.Type, event.PositionID, model.Deadline(err))
	}
	return nil
}
