package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/entityrepo/pkg/config"
	"github.com/angelmondragon/entityrepo/pkg/logger"
	"github.com/angelmondragon/entityrepo/pkg/outbox"
	"github.com/angelmondragon/entityrepo/pkg/outbox/idempotency"
	"github.com/angelmondragon/entityrepo/pkg/pubsub"
	"github.com/angelmondragon/entityrepo/pkg/redis"
)

const deliveredTTL = 7 * 24 * time.Hour

type closer func() error

// buildSink connects the sink named by cfg.Outbox.Sink. The returned closer
// releases every client the sink opened.
func buildSink(ctx context.Context, cfg *config.Config, logg *logger.Logger) (outbox.Sink, closer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Outbox.Sink)) {
	case config.OutboxSinkRedis:
		client, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap redis: %w", err)
		}
		dedupe, err := idempotency.NewManager(client, deliveredTTL)
		if err != nil {
			return nil, nil, multierr.Append(err, client.Close())
		}
		sink, err := redis.NewStreamSink(client, cfg.Outbox.Stream, cfg.Outbox.StreamMaxLen, dedupe)
		if err != nil {
			return nil, nil, multierr.Append(err, client.Close())
		}
		return sink, client.Close, nil

	case config.OutboxSinkPubSub:
		client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap pubsub: %w", err)
		}
		sink, err := pubsub.NewSink(client)
		if err != nil {
			return nil, nil, multierr.Append(err, client.Close())
		}
		return sink, func() error {
			sink.Stop()
			return client.Close()
		}, nil

	default:
		return nil, nil, fmt.Errorf("unknown outbox sink %q", cfg.Outbox.Sink)
	}
}
