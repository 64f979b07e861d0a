package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/entityrepo/pkg/logger"
)

type requeuer interface {
	Requeue(ctx context.Context, eventID uuid.UUID) (bool, error)
}

// requeueEvent moves one dead-lettered event back to the pending queue.
func requeueEvent(ctx context.Context, dlq requeuer, logg *logger.Logger, rawID string) error {
	eventID, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid event id %q: %w", rawID, err)
	}
	ok, err := dlq.Requeue(ctx, eventID)
	if err != nil {
		return fmt.Errorf("requeue %s: %w", eventID, err)
	}
	if !ok {
		return fmt.Errorf("event %s is not dead-lettered", eventID)
	}
	logg.Info(logg.WithField(ctx, "outbox_id", eventID.String()), "outbox event requeued")
	return nil
}
