package repo

import (
	"context"
	"time"

	"github.com/angelmondragon/entityrepo/pkg/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// selectPaged runs the fixed paging pipeline: validate settings, resolve the
// sort path, count under fixed conditions and predicate, then order,
// project, skip and take. Nothing reaches the store when settings or the
// sort path are invalid.
func selectPaged[E any](ctx context.Context, src *source, settings pagination.Settings, pred Predicate, columns []clause.Column) (result pagination.PagedResult[E], err error) {
	start := time.Now()
	defer func() { src.observe("select_paged", start, err) }()

	if err := settings.Validate(); err != nil {
		return pagination.PagedResult[E]{}, err
	}
	order, err := src.resolver.Resolve(src.schema, settings.OrderColumn, settings.OrderDirection)
	if err != nil {
		return pagination.PagedResult[E]{}, err
	}

	base := src.base(ctx, pred).Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return pagination.PagedResult[E]{}, err
	}

	data := []E{}
	err = order.Apply(base).
		Clauses(clause.Select{Columns: columns}).
		Offset(settings.Skip).
		Limit(settings.PageSize).
		Find(&data).Error
	if err != nil {
		return pagination.PagedResult[E]{}, err
	}
	return pagination.NewPagedResult(settings, total, data), nil
}

// SelectPaged returns one page of entities under the fixed conditions.
func (r *Repository[T, K]) SelectPaged(ctx context.Context, settings pagination.Settings) (pagination.PagedResult[T], error) {
	return selectPaged[T](ctx, r.src, settings, nil, allColumns(r.src.schema))
}

// SelectPagedBy returns one page of entities matching pred. A nil pred
// matches every row.
func (r *Repository[T, K]) SelectPagedBy(ctx context.Context, settings pagination.Settings, pred Predicate) (pagination.PagedResult[T], error) {
	return selectPaged[T](ctx, r.src, settings, pred, allColumns(r.src.schema))
}

// SelectPagedAs returns one page projected onto U.
func SelectPagedAs[U any, T any, K comparable](ctx context.Context, r *Repository[T, K], settings pagination.Settings, proj Projection[U]) (pagination.PagedResult[U], error) {
	return SelectPagedByAs(ctx, r, settings, nil, proj)
}

// SelectPagedByAs returns one page of rows matching pred, projected onto U.
func SelectPagedByAs[U any, T any, K comparable](ctx context.Context, r *Repository[T, K], settings pagination.Settings, pred Predicate, proj Projection[U]) (pagination.PagedResult[U], error) {
	if err := settings.Validate(); err != nil {
		return pagination.PagedResult[U]{}, err
	}
	columns, err := proj.resolve(r.src)
	if err != nil {
		return pagination.PagedResult[U]{}, err
	}
	return selectPaged[U](ctx, r.src, settings, pred, columns)
}
