package outbox

import (
	"context"
	"time"
)

// Message is what a sink receives for one outbox row.
type Message struct {
	OutboxID      string
	EventID       string
	EventType     string
	AggregateType string
	AggregateID   string
	OccurredAt    time.Time
	Payload       []byte
}

// Attributes flattens the routing metadata for transports that carry
// string headers next to the body.
func (m Message) Attributes() map[string]string {
	return map[string]string{
		"outbox_id":      m.OutboxID,
		"event_id":       m.EventID,
		"event_type":     m.EventType,
		"aggregate_type": m.AggregateType,
		"aggregate_id":   m.AggregateID,
		"occurred_at":    m.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
}

// Sink delivers relayed rows to a broker.
type Sink interface {
	Name() string
	Publish(ctx context.Context, msg Message) error
	Ping(ctx context.Context) error
}

// NonRetryableError signals the relay should stop retrying a row.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

func NewNonRetryableError(err error) error {
	return NonRetryableError{Err: err}
}
