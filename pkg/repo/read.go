package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/entityrepo/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Find looks an entity up through the key capability. It returns nil, nil
// when no row matches.
func (r *Repository[T, K]) Find(ctx context.Context, key K) (*T, error) {
	return r.find(ctx, "find", key, nil)
}

// FindWithInclude is Find with the named relations eager-loaded.
func (r *Repository[T, K]) FindWithInclude(ctx context.Context, key K, includes ...string) (*T, error) {
	paths, err := resolveIncludes(r.src.schema, includes)
	if err != nil {
		return nil, err
	}
	return r.find(ctx, "find", key, paths)
}

func (r *Repository[T, K]) find(ctx context.Context, operation string, key K, includes []string) (entity *T, err error) {
	start := time.Now()
	defer func() { r.src.observe(operation, start, err) }()

	tx := r.caps.KeyQuery(r.src.store.DB(ctx).Model(new(T)), key)
	for _, path := range includes {
		tx = tx.Preload(path)
	}
	var out T
	if err := tx.Take(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

// All returns every entity under the fixed conditions.
func (r *Repository[T, K]) All(ctx context.Context) ([]T, error) {
	return r.all(ctx, nil)
}

// AllWithInclude is All with the named relations eager-loaded. Paths are
// dotted relation names such as "Customer.Address".
func (r *Repository[T, K]) AllWithInclude(ctx context.Context, includes ...string) ([]T, error) {
	paths, err := resolveIncludes(r.src.schema, includes)
	if err != nil {
		return nil, err
	}
	return r.all(ctx, paths)
}

func (r *Repository[T, K]) all(ctx context.Context, includes []string) (out []T, err error) {
	start := time.Now()
	defer func() { r.src.observe("all", start, err) }()

	tx := r.src.base(ctx)
	for _, path := range includes {
		tx = tx.Preload(path)
	}
	out = []T{}
	if err := tx.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// SelectBy returns every entity matching pred.
func (r *Repository[T, K]) SelectBy(ctx context.Context, pred Predicate) ([]T, error) {
	return r.Query(pred).List(ctx)
}

// Query composes a lazy query over T. A nil pred matches every row.
func (r *Repository[T, K]) Query(pred Predicate) *Query[T] {
	return newQuery[T](r.src, allColumns(r.src.schema), nil, pred)
}

// Count returns how many entities match pred under the fixed conditions.
func (r *Repository[T, K]) Count(ctx context.Context, pred Predicate) (int64, error) {
	return r.Query(pred).Count(ctx)
}

// QueryAs composes a lazy query projected onto U.
func QueryAs[U any, T any, K comparable](r *Repository[T, K], proj Projection[U]) *Query[U] {
	return QueryByAs(r, nil, proj)
}

// QueryByAs composes a lazy query of rows matching pred projected onto U.
func QueryByAs[U any, T any, K comparable](r *Repository[T, K], pred Predicate, proj Projection[U]) *Query[U] {
	columns, err := proj.resolve(r.src)
	return newQuery[U](r.src, columns, err, pred)
}

// SelectAs returns every row projected onto U.
func SelectAs[U any, T any, K comparable](ctx context.Context, r *Repository[T, K], proj Projection[U]) ([]U, error) {
	return QueryAs(r, proj).List(ctx)
}

// SelectByAs returns rows matching pred projected onto U.
func SelectByAs[U any, T any, K comparable](ctx context.Context, r *Repository[T, K], pred Predicate, proj Projection[U]) ([]U, error) {
	return QueryByAs(r, pred, proj).List(ctx)
}

// resolveIncludes validates dotted relation paths and returns them with
// each segment spelled the way gorm's Preload expects.
func resolveIncludes(root *schema.Schema, includes []string) ([]string, error) {
	paths := make([]string, 0, len(includes))
	for _, include := range includes {
		if strings.TrimSpace(include) == "" {
			return nil, invalidInclude(include, "include path is empty")
		}
		current := root
		segments := strings.Split(include, ".")
		names := make([]string, 0, len(segments))
		for _, seg := range segments {
			rel := lookupRelation(current, seg)
			if rel == nil {
				return nil, invalidInclude(include, "unknown relation "+seg)
			}
			names = append(names, rel.Name)
			current = rel.FieldSchema
		}
		paths = append(paths, strings.Join(names, "."))
	}
	return paths, nil
}

func lookupRelation(s *schema.Schema, name string) *schema.Relationship {
	if rel, ok := s.Relationships.Relations[name]; ok {
		return rel
	}
	for relName, rel := range s.Relationships.Relations {
		if strings.EqualFold(relName, name) {
			return rel
		}
	}
	return nil
}

func invalidInclude(path, reason string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid include").WithDetails(map[string]any{
		"include": path,
		"reason":  reason,
	})
}
