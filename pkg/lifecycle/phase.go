package lifecycle

import (
	"context"

	"gorm.io/gorm"
)

// Phase identifies one point in the mutation pipeline.
type Phase string

const (
	BeforePersist Phase = "before_persist"
	AfterPersist  Phase = "after_persist"
	BeforeSave    Phase = "before_save"
	AfterSave     Phase = "after_save"
	BeforeRemove  Phase = "before_remove"
	AfterRemove   Phase = "after_remove"
)

// Phases lists every phase in pipeline order.
var Phases = []Phase{BeforePersist, AfterPersist, BeforeSave, AfterSave, BeforeRemove, AfterRemove}

func (p Phase) Valid() bool {
	for _, known := range Phases {
		if p == known {
			return true
		}
	}
	return false
}

func (p Phase) String() string { return string(p) }

// Event is handed to every observer of a phase. DB is the handle the
// mutation runs on, so observers writing through it join the same transaction.
type Event[T any] struct {
	Phase  Phase
	Entity *T
	DB     *gorm.DB
}

// Observer reacts to a lifecycle event. A non-nil error aborts the mutation.
type Observer[T any] func(ctx context.Context, event Event[T]) error
