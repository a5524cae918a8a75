// Package events publishes workspace domain events to the message broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// Event types
const (
	ContactDisposed = "contact.disposed"
	ShiftStarted    = "shift.started"
	ShiftEnded      = "shift.ended"
	InvoiceCreated  = "invoice.created"
)

// Event is the envelope sent to the broker
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	AgentID    string    `json:"agentId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

// New stamps an event with an id
func New(eventType, agentID string, at time.Time, payload any) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		AgentID:    agentID,
		OccurredAt: at,
		Payload:    payload,
	}
}

// Publisher sends events somewhere
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Mode selects the publisher implementation
type Mode string

const (
	ModeAMQP Mode = "amqp"
	ModeNoop Mode = "noop"
)

// Config configures the publisher
type Config struct {
	Mode  Mode
	URL   string
	Queue string
}

// NewPublisher creates the publisher selected by cfg.Mode
func NewPublisher(cfg Config, logger zerolog.Logger) (Publisher, error) {
	if cfg.Mode != ModeAMQP {
		logger.Info().Msg("Event publishing disabled (EVENTS_MODE=noop)")
		return NoopPublisher{}, nil
	}
	return NewAMQPPublisher(cfg.URL, cfg.Queue, logger)
}

// AMQPPublisher publishes JSON events to a durable queue
type AMQPPublisher struct {
	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	queue  string
	logger zerolog.Logger
}

// NewAMQPPublisher dials the broker and declares the queue
func NewAMQPPublisher(url, queue string, logger zerolog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	logger.Info().Str("queue", q.Name).Msg("AMQP publisher connected")

	return &AMQPPublisher{
		conn:   conn,
		ch:     ch,
		queue:  q.Name,
		logger: logger.With().Str("component", "events").Logger(),
	}, nil
}

// Publish sends one event. Channels are not safe for concurrent publishing.
func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.Publish(
		"",      // exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.ID,
			Type:         ev.Type,
			Timestamp:    ev.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", ev.Type, err)
	}

	p.logger.Debug().Str("type", ev.Type).Str("event_id", ev.ID).Msg("Event published")
	return nil
}

// Close tears down the channel and connection
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}

// NoopPublisher drops events
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close() error                         { return nil }

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of what was published
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
