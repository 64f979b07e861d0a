package lifecycle

import (
	"context"
	"sync"

	pkgerrors "github.com/angelmondragon/entityrepo/pkg/errors"
)

// Hooks holds ordered observer lists per phase. The zero value is ready to use.
type Hooks[T any] struct {
	mu        sync.RWMutex
	observers map[Phase][]Observer[T]
}

func NewHooks[T any]() *Hooks[T] {
	return &Hooks[T]{observers: map[Phase][]Observer[T]{}}
}

// On appends obs to the phase channel.
func (h *Hooks[T]) On(phase Phase, obs Observer[T]) error {
	if !phase.Valid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown lifecycle phase").
			WithDetails(map[string]any{"phase": string(phase)})
	}
	if obs == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "observer is required").
			WithDetails(map[string]any{"phase": string(phase)})
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.observers == nil {
		h.observers = map[Phase][]Observer[T]{}
	}
	h.observers[phase] = append(h.observers[phase], obs)
	return nil
}

func (h *Hooks[T]) OnBeforePersist(obs Observer[T]) error { return h.On(BeforePersist, obs) }
func (h *Hooks[T]) OnAfterPersist(obs Observer[T]) error { return h.On(AfterPersist, obs) }
func (h *Hooks[T]) OnBeforeSave(obs Observer[T]) error { return h.On(BeforeSave, obs) }
func (h *Hooks[T]) OnAfterSave(obs Observer[T]) error { return h.On(AfterSave, obs) }
func (h *Hooks[T]) OnBeforeRemove(obs Observer[T]) error { return h.On(BeforeRemove, obs) }
func (h *Hooks[T]) OnAfterRemove(obs Observer[T]) error { return h.On(AfterRemove, obs) }

// Len reports how many observers are registered for phase.
func (h *Hooks[T]) Len(phase Phase) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers[phase])
}

// Fire runs the observers of ev.Phase one after another in registration
// order. It stops at the first failure, or when ctx is done before an
// observer starts, and returns an OBSERVER_ERROR wrapping the cause.
func (h *Hooks[T]) Fire(ctx context.Context, ev Event[T]) error {
	h.mu.RLock()
	observers := append([]Observer[T](nil), h.observers[ev.Phase]...)
	h.mu.RUnlock()

	for i, obs := range observers {
		if err := ctx.Err(); err != nil {
			return observerError(ev.Phase, i, err)
		}
		if err := obs(ctx, ev); err != nil {
			return observerError(ev.Phase, i, err)
		}
	}
	return nil
}

func observerError(phase Phase, index int, cause error) error {
	return pkgerrors.Wrap(pkgerrors.CodeObserver, cause, "lifecycle observer failed").
		WithDetails(map[string]any{"phase": string(phase), "observer": index})
}
