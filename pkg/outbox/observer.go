package outbox

import (
	"context"
	"errors"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/angelmondragon/entityrepo/pkg/enums"
	"github.com/angelmondragon/entityrepo/pkg/lifecycle"
)

// Binding maps an entity's completed mutations to outbox events.
type Binding[T any] struct {
	Aggregate enums.OutboxAggregateType
	Created   enums.OutboxEventType
	Updated   enums.OutboxEventType
	Removed   enums.OutboxEventType
	// ID renders the aggregate key.
	ID func(*T) string
	// Payload builds the event data. Defaults to the entity itself.
	Payload func(*T) any
}

// Attach registers observers on the after phases that record one outbox
// row per completed mutation. Rows are written through the event's handle,
// so they commit together with the mutation when it runs in a transaction.
// An empty event type leaves that phase unobserved.
func Attach[T any](hooks *lifecycle.Hooks[T], svc *Service, b Binding[T]) error {
	if hooks == nil || svc == nil {
		return errors.New("outbox: hooks and service are required")
	}
	if b.ID == nil {
		return errors.New("outbox: binding needs an ID func")
	}
	bindings := []struct {
		phase     lifecycle.Phase
		eventType enums.OutboxEventType
	}{
		{lifecycle.AfterPersist, b.Created},
		{lifecycle.AfterSave, b.Updated},
		{lifecycle.AfterRemove, b.Removed},
	}
	for _, binding := range bindings {
		if binding.eventType == "" {
			continue
		}
		if err := hooks.On(binding.phase, b.observer(svc, binding.eventType)); err != nil {
			return err
		}
	}
	return nil
}

func (b Binding[T]) observer(svc *Service, eventType enums.OutboxEventType) lifecycle.Observer[T] {
	return func(ctx context.Context, ev lifecycle.Event[T]) error {
		var data any = ev.Entity
		if b.Payload != nil {
			data = b.Payload(ev.Entity)
		}
		return svc.Emit(ctx, ev.DB, DomainEvent{
			EventType:     eventType,
			AggregateType: b.Aggregate,
			AggregateID:   b.ID(ev.Entity),
			RequestID:     middleware.GetReqID(ctx),
			Data:          data,
		})
	}
}
