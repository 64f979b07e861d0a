// Package repo provides a generic GORM-backed repository: key lookup,
// predicate queries, column projection, paged selection with path-based
// ordering, eager loading and lifecycle hooks around every mutation.
package repo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/entityrepo/pkg/lifecycle"
	"github.com/angelmondragon/entityrepo/pkg/logger"
	"github.com/angelmondragon/entityrepo/pkg/metrics"
	"github.com/angelmondragon/entityrepo/pkg/ordering"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Store is the data store collaborator. Implementations hand out handles
// bound to ctx and expose the change-tracking switch toggled around updates.
type Store interface {
	DB(ctx context.Context) *gorm.DB
	SetChangeTracking(enabled bool)
}

// Repository serves entities of type T keyed by K.
type Repository[T any, K comparable] struct {
	src   *source
	caps  Capabilities[K]
	hooks *lifecycle.Hooks[T]
}

// Option configures a Repository at construction time.
type Option[T any, K comparable] func(*Repository[T, K])

// WithCapabilities replaces the default primary-key lookup and the empty
// fixed conditions.
func WithCapabilities[T any, K comparable](caps Capabilities[K]) Option[T, K] {
	return func(r *Repository[T, K]) {
		if caps != nil {
			r.caps = caps
		}
	}
}

// WithHooks shares an existing observer set instead of a fresh one.
func WithHooks[T any, K comparable](hooks *lifecycle.Hooks[T]) Option[T, K] {
	return func(r *Repository[T, K]) {
		if hooks != nil {
			r.hooks = hooks
		}
	}
}

func WithLogger[T any, K comparable](logg *logger.Logger) Option[T, K] {
	return func(r *Repository[T, K]) {
		if logg != nil {
			r.src.logg = logg
		}
	}
}

func WithMetrics[T any, K comparable](m *metrics.RepositoryMetrics) Option[T, K] {
	return func(r *Repository[T, K]) {
		r.src.metrics = m
	}
}

// WithResolver swaps the shared ordering resolver, mostly for tests.
func WithResolver[T any, K comparable](resolver *ordering.Resolver) Option[T, K] {
	return func(r *Repository[T, K]) {
		if resolver != nil {
			r.src.resolver = resolver
		}
	}
}

var defaultResolver = ordering.NewResolver()

// New parses T's schema through the store's handle and returns a repository
// with default capabilities and its own observer set.
func New[T any, K comparable](store Store, opts ...Option[T, K]) (*Repository[T, K], error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	db := store.DB(context.Background())
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(new(T)); err != nil {
		return nil, fmt.Errorf("parse %T schema: %w", *new(T), err)
	}

	r := &Repository[T, K]{
		caps:  DefaultCapabilities[K]{},
		hooks: lifecycle.NewHooks[T](),
		src: &source{
			store:       store,
			schema:      stmt.Schema,
			namer:       db.NamingStrategy,
			newModel:    func() any { return new(T) },
			resolver:    defaultResolver,
			logg:        logger.Nop(),
			entity:      stmt.Schema.Table,
			projections: &sync.Map{},
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	caps := r.caps
	r.src.fixed = caps.FixedConditions
	return r, nil
}

// WithStore returns a repository bound to another store handle, typically a
// transaction, sharing this repository's capabilities and observers.
func (r *Repository[T, K]) WithStore(store Store) *Repository[T, K] {
	src := *r.src
	src.store = store
	return &Repository[T, K]{src: &src, caps: r.caps, hooks: r.hooks}
}

func (r *Repository[T, K]) Hooks() *lifecycle.Hooks[T] { return r.hooks }

// Schema exposes the parsed GORM schema of T.
func (r *Repository[T, K]) Schema() *schema.Schema { return r.src.schema }

func (r *Repository[T, K]) OnBeforePersist(obs lifecycle.Observer[T]) error {
	return r.hooks.OnBeforePersist(obs)
}

func (r *Repository[T, K]) OnAfterPersist(obs lifecycle.Observer[T]) error {
	return r.hooks.OnAfterPersist(obs)
}

func (r *Repository[T, K]) OnBeforeSave(obs lifecycle.Observer[T]) error {
	return r.hooks.OnBeforeSave(obs)
}

func (r *Repository[T, K]) OnAfterSave(obs lifecycle.Observer[T]) error {
	return r.hooks.OnAfterSave(obs)
}

func (r *Repository[T, K]) OnBeforeRemove(obs lifecycle.Observer[T]) error {
	return r.hooks.OnBeforeRemove(obs)
}

func (r *Repository[T, K]) OnAfterRemove(obs lifecycle.Observer[T]) error {
	return r.hooks.OnAfterRemove(obs)
}

// source is the type-erased half of a repository that queries over any
// result shape need: the store, T's schema and the fixed conditions.
type source struct {
	store    Store
	schema   *schema.Schema
	namer    schema.Namer
	newModel func() any
	fixed    func(tx *gorm.DB) *gorm.DB
	resolver *ordering.Resolver
	logg     *logger.Logger
	metrics  *metrics.RepositoryMetrics
	entity   string

	// projections caches projection target schemas parsed with namer.
	projections *sync.Map
}

// base is Model + fixed conditions + predicates, with nothing selected yet.
func (s *source) base(ctx context.Context, preds ...Predicate) *gorm.DB {
	tx := s.store.DB(ctx).Model(s.newModel())
	if s.fixed != nil {
		tx = s.fixed(tx)
	}
	for _, pred := range preds {
		if pred != nil {
			tx = pred(tx)
		}
	}
	return tx
}

func (s *source) observe(operation string, start time.Time, err error) {
	s.metrics.Observe(s.entity, operation, time.Since(start), err)
}
