package pubsub

import (
	"context"
	"errors"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/entityrepo/pkg/outbox"
)

const sinkName = "pubsub"

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// Sink relays outbox rows to one Pub/Sub topic. The envelope is the
// message body and the routing metadata travels as attributes.
type Sink struct {
	pub  publisher
	ping func(context.Context) error
}

// NewSink publishes through the client's domain topic.
func NewSink(client *Client) (*Sink, error) {
	if client == nil {
		return nil, errors.New("pubsub client is required")
	}
	pub := client.EventsPublisher()
	if pub == nil {
		return nil, errNoTopic
	}
	return &Sink{pub: &gcpPublisher{Publisher: pub}, ping: client.Ping}, nil
}

func (s *Sink) Name() string { return sinkName }

func (s *Sink) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

func (s *Sink) Publish(ctx context.Context, msg outbox.Message) error {
	result := s.pub.Publish(ctx, &gcppubsub.Message{
		Data:       msg.Payload,
		Attributes: msg.Attributes(),
	})
	if result == nil {
		return outbox.NewNonRetryableError(errors.New("publisher returned nil result"))
	}
	if _, err := result.Get(ctx); err != nil {
		if isPermanent(err) {
			return outbox.NewNonRetryableError(err)
		}
		return fmt.Errorf("pubsub publish: %w", err)
	}
	return nil
}

// Stop flushes pending messages.
func (s *Sink) Stop() {
	if p, ok := s.pub.(*gcpPublisher); ok && p.Publisher != nil {
		p.Publisher.Stop()
	}
}

func isPermanent(err error) bool {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.NotFound, codes.PermissionDenied, codes.FailedPrecondition:
		return true
	default:
		return false
	}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
