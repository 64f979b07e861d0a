package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/entityrepo/pkg/outbox"
	"github.com/angelmondragon/entityrepo/pkg/outbox/idempotency"
)

const sinkName = "redis"

type streamWriter interface {
	XAdd(ctx context.Context, stream string, maxLen int64, values map[string]any) (string, error)
	Ping(ctx context.Context) error
}

// StreamSink relays outbox rows onto a Redis stream. Each entry carries
// the routing attributes as fields plus the raw envelope under "payload".
type StreamSink struct {
	writer streamWriter
	stream string
	maxLen int64
	dedupe *idempotency.Manager
}

// NewStreamSink builds a sink appending to stream. When dedupe is set,
// an event already delivered to the stream is skipped.
func NewStreamSink(writer streamWriter, stream string, maxLen int64, dedupe *idempotency.Manager) (*StreamSink, error) {
	if writer == nil {
		return nil, errors.New("redis stream writer is required")
	}
	if stream == "" {
		return nil, errors.New("redis stream name is required")
	}
	return &StreamSink{writer: writer, stream: stream, maxLen: maxLen, dedupe: dedupe}, nil
}

func (s *StreamSink) Name() string { return sinkName }

func (s *StreamSink) Ping(ctx context.Context) error {
	return s.writer.Ping(ctx)
}

func (s *StreamSink) Publish(ctx context.Context, msg outbox.Message) error {
	if len(msg.Payload) == 0 {
		return outbox.NewNonRetryableError(errors.New("empty payload"))
	}

	var eventID uuid.UUID
	if s.dedupe != nil {
		parsed, err := uuid.Parse(msg.EventID)
		if err != nil {
			return outbox.NewNonRetryableError(fmt.Errorf("event id %q: %w", msg.EventID, err))
		}
		eventID = parsed
		delivered, err := s.dedupe.CheckAndMark(ctx, s.stream, eventID)
		if err != nil {
			return fmt.Errorf("dedupe check: %w", err)
		}
		if delivered {
			return nil
		}
	}

	values := make(map[string]any, 7)
	for k, v := range msg.Attributes() {
		values[k] = v
	}
	values["payload"] = string(msg.Payload)

	if _, err := s.writer.XAdd(ctx, s.stream, s.maxLen, values); err != nil {
		if s.dedupe != nil {
			if forgetErr := s.dedupe.Forget(ctx, s.stream, eventID); forgetErr != nil {
				return errors.Join(fmt.Errorf("xadd %s: %w", s.stream, err), forgetErr)
			}
		}
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}
