package outbox

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/entityrepo/pkg/config"
	"github.com/angelmondragon/entityrepo/pkg/db/models"
	"github.com/angelmondragon/entityrepo/pkg/enums"
	"github.com/angelmondragon/entityrepo/pkg/logger"
	"github.com/angelmondragon/entityrepo/pkg/metrics"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond

	outcomePublished    = "published"
	outcomeFailed       = "failed"
	outcomeDeadLettered = "dead_lettered"
)

var (
	jitterMu     sync.Mutex
	jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type RelayParams struct {
	Config        config.OutboxConfig
	Logger        *logger.Logger
	DB            txRunner
	Sink          Sink
	Repository    outboxRepository
	DLQRepository dlqRepository
	Metrics       *metrics.RelayMetrics
}

// Relay moves committed outbox rows to a sink. Each batch is claimed,
// published and marked inside one transaction.
type Relay struct {
	logg         *logger.Logger
	db           txRunner
	sink         Sink
	repo         outboxRepository
	dlq          dlqRepository
	metrics      *metrics.RelayMetrics
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewRelay(params RelayParams) (*Relay, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Sink == nil {
		return nil, errors.New("outbox sink is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.DLQRepository == nil {
		return nil, errors.New("dlq repository is required")
	}

	batch := params.Config.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	interval := params.Config.PollInterval()
	if interval <= 0 {
		interval = time.Duration(defaultPollMs) * time.Millisecond
	}
	maxAttempts := params.Config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Relay{
		logg:         params.Logger,
		db:           params.DB,
		sink:         params.Sink,
		repo:         params.Repository,
		dlq:          params.DLQRepository,
		metrics:      params.Metrics,
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		pollInterval: interval,
	}, nil
}

// Ready pings the database and the sink and reports every failure.
func (r *Relay) Ready(ctx context.Context) error {
	var err error
	if pingErr := r.db.Ping(ctx); pingErr != nil {
		err = multierr.Append(err, fmt.Errorf("database ping failed: %w", pingErr))
	}
	if pingErr := r.sink.Ping(ctx); pingErr != nil {
		err = multierr.Append(err, fmt.Errorf("%s ping failed: %w", r.sink.Name(), pingErr))
	}
	if err != nil {
		r.logg.Error(ctx, "outbox relay dependencies not ready", err)
	}
	return err
}

// Run polls until ctx is cancelled. Busy batches are followed immediately
// by the next one; failing batches back off exponentially with jitter.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.Ready(ctx); err != nil {
		return err
	}

	backoff := r.pollInterval
	for {
		select {
		case <-ctx.Done():
			r.logg.Info(ctx, "outbox relay context canceled")
			return ctx.Err()
		default:
		}

		processed, err := r.ProcessBatch(ctx)
		if err != nil {
			r.logg.Error(ctx, "outbox relay batch error", err)
			backoff = nextBackoff(backoff, r.pollInterval, maxBackoff)
			if err := sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = r.pollInterval
		if processed {
			continue
		}
		if err := sleep(ctx, withJitter(r.pollInterval)); err != nil {
			return err
		}
	}
}

// ProcessBatch relays one batch and reports whether any row was claimed.
// A publish failure only affects its own row; the error return is
// reserved for store failures, which roll the whole batch back.
func (r *Relay) ProcessBatch(ctx context.Context) (bool, error) {
	processed := false
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := r.repo.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		processed = true
		r.metrics.IncBatch()

		for _, event := range events {
			if err := r.relayOne(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	return processed, err
}

func (r *Relay) relayOne(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	envelope, err := DecodeEnvelope(event.Payload)
	if err != nil {
		return r.handleTerminal(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, nil)
	}

	fields := r.eventFields(event, envelope)
	if err := r.publish(ctx, event, envelope); err != nil {
		var nonRetry NonRetryableError
		if errors.As(err, &nonRetry) {
			return r.handleTerminal(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, fields)
		}

		nextAttempt := event.AttemptCount + 1
		fields["attempt_count"] = nextAttempt
		if nextAttempt >= r.maxAttempts {
			fields["terminal_reason"] = "max_attempts"
			terminalErr := fmt.Errorf("max publish attempts reached: %w", err)
			return r.handleTerminal(ctx, tx, event, enums.OutboxDLQReasonMaxAttempts, terminalErr, fields)
		}

		ctxWithFields := r.logg.WithFields(ctx, fields)
		ctxWithFields = r.logg.WithField(ctxWithFields, "error", err.Error())
		r.logg.Warn(ctxWithFields, "outbox publish failed")
		if markErr := r.repo.MarkFailedTx(tx, event.ID, err); markErr != nil {
			return fmt.Errorf("mark failure %s: %w", event.ID, markErr)
		}
		r.metrics.IncEvent(r.sink.Name(), outcomeFailed)
		return nil
	}

	if markErr := r.repo.MarkPublishedTx(tx, event.ID); markErr != nil {
		return fmt.Errorf("mark published %s: %w", event.ID, markErr)
	}
	r.metrics.IncEvent(r.sink.Name(), outcomePublished)
	r.logg.Info(r.logg.WithFields(ctx, fields), "outbox event published")
	return nil
}

func (r *Relay) publish(ctx context.Context, event models.OutboxEvent, envelope Envelope) error {
	msg := Message{
		OutboxID:      event.ID.String(),
		EventID:       envelope.EventID,
		EventType:     string(event.EventType),
		AggregateType: string(event.AggregateType),
		AggregateID:   event.AggregateID,
		OccurredAt:    envelope.OccurredAt,
		Payload:       event.Payload,
	}
	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	return r.sink.Publish(publishCtx, msg)
}

func (r *Relay) handleTerminal(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, err error, fields map[string]any) error {
	if fields == nil {
		fields = r.eventFields(event, Envelope{})
	}
	fields["error_reason"] = reason
	ctxWithFields := r.logg.WithFields(ctx, fields)
	ctxWithFields = r.logg.WithField(ctxWithFields, "error", err.Error())
	r.logg.Warn(ctxWithFields, "outbox event will not be retried")

	msg := err.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if dlqErr := r.dlq.InsertTx(tx, entry); dlqErr != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, dlqErr)
	}
	if markErr := r.repo.MarkTerminalTx(tx, event.ID, err, r.maxAttempts); markErr != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, markErr)
	}
	r.metrics.IncEvent(r.sink.Name(), outcomeDeadLettered)
	return nil
}

func (r *Relay) eventFields(event models.OutboxEvent, envelope Envelope) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID,
		"batch_size":     r.batchSize,
		"attempt_count":  event.AttemptCount,
		"sink":           r.sink.Name(),
	}
	if envelope.EventID != "" {
		fields["event_id"] = envelope.EventID
		fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	jitterMu.Lock()
	jitter := time.Duration(jitterSource.Int63n(int64(jitterWindow)))
	jitterMu.Unlock()
	return d + jitter
}
