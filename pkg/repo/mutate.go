package repo

import (
	"context"
	"fmt"
	"time"

	pkgerrors "github.com/angelmondragon/entityrepo/pkg/errors"
	"github.com/angelmondragon/entityrepo/pkg/lifecycle"
	"gorm.io/gorm"
)

// Add persists a new entity between the BeforePersist and AfterPersist
// phases. A failing BeforePersist observer prevents the insert.
func (r *Repository[T, K]) Add(ctx context.Context, entity *T) (_ *T, err error) {
	start := time.Now()
	defer func() { r.src.observe("add", start, err) }()
	if entity == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entity is required")
	}

	db := r.src.store.DB(ctx)
	if err := r.fire(ctx, lifecycle.BeforePersist, entity, db); err != nil {
		return nil, err
	}
	if err := db.Create(entity).Error; err != nil {
		return nil, err
	}
	if err := r.fire(ctx, lifecycle.AfterPersist, entity, db); err != nil {
		return nil, err
	}
	r.logMutation(ctx, "add")
	return entity, nil
}

// Update writes every column of an existing entity between the BeforeSave
// and AfterSave phases. Loaded associations are upserted with it. The store
// sees change tracking switched on for the duration of the write and off
// again on every exit path. An entity whose key matches no row fails with
// NOT_FOUND and AfterSave does not fire; Update never inserts.
func (r *Repository[T, K]) Update(ctx context.Context, entity *T) (_ *T, err error) {
	start := time.Now()
	defer func() { r.src.observe("update", start, err) }()
	if entity == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entity is required")
	}

	db := r.src.store.DB(ctx)
	if err := r.fire(ctx, lifecycle.BeforeSave, entity, db); err != nil {
		return nil, err
	}
	affected, err := r.saveTracked(db, entity)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "entity not found").
			WithDetails(map[string]any{"entity": r.src.entity})
	}
	if err := r.fire(ctx, lifecycle.AfterSave, entity, db); err != nil {
		return nil, err
	}
	r.logMutation(ctx, "update")
	return entity, nil
}

// saveTracked runs the UPDATE on a session of its own with
// FullSaveAssociations set, so other calls sharing the store are not
// affected. Unlike gorm's Save it never falls back to an insert.
func (r *Repository[T, K]) saveTracked(db *gorm.DB, entity *T) (int64, error) {
	r.src.store.SetChangeTracking(true)
	defer r.src.store.SetChangeTracking(false)
	res := db.Session(&gorm.Session{FullSaveAssociations: true}).
		Model(entity).
		Select("*").
		Updates(entity)
	return res.RowsAffected, res.Error
}

// Remove deletes the entity identified by key. When no entity matches it
// fails with NOT_FOUND before any observer runs or anything is written.
func (r *Repository[T, K]) Remove(ctx context.Context, key K) (bool, error) {
	entity, err := r.find(ctx, "find", key, nil)
	if err != nil {
		return false, err
	}
	if entity == nil {
		return false, pkgerrors.New(pkgerrors.CodeNotFound, "entity not found").
			WithDetails(map[string]any{"entity": r.src.entity, "key": fmt.Sprint(key)})
	}
	return r.RemoveEntity(ctx, entity)
}

// RemoveEntity deletes entity between the BeforeRemove and AfterRemove
// phases. It reports whether a row was deleted.
func (r *Repository[T, K]) RemoveEntity(ctx context.Context, entity *T) (_ bool, err error) {
	start := time.Now()
	defer func() { r.src.observe("remove", start, err) }()
	if entity == nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "entity is required")
	}

	db := r.src.store.DB(ctx)
	if err := r.fire(ctx, lifecycle.BeforeRemove, entity, db); err != nil {
		return false, err
	}
	res := db.Delete(entity)
	if res.Error != nil {
		return false, res.Error
	}
	if err := r.fire(ctx, lifecycle.AfterRemove, entity, db); err != nil {
		return false, err
	}
	r.logMutation(ctx, "remove")
	return res.RowsAffected > 0, nil
}

func (r *Repository[T, K]) fire(ctx context.Context, phase lifecycle.Phase, entity *T, db *gorm.DB) error {
	if r.hooks.Len(phase) == 0 {
		return nil
	}
	r.src.metrics.IncLifecycle(r.src.entity, phase.String())
	return r.hooks.Fire(ctx, lifecycle.Event[T]{Phase: phase, Entity: entity, DB: db})
}

func (r *Repository[T, K]) logMutation(ctx context.Context, operation string) {
	logg := r.src.logg
	logCtx := logg.WithFields(ctx, map[string]any{
		"entity":    r.src.entity,
		"operation": operation,
	})
	logg.Debug(logCtx, "repository mutation completed")
}
