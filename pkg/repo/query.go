package repo

import (
	"context"
	"iter"
	"time"

	"github.com/angelmondragon/entityrepo/pkg/ordering"
	"github.com/angelmondragon/entityrepo/pkg/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Query is a lazily evaluated selection of E rows. Composition methods
// return a new Query and never touch the store; each terminal call (List,
// First, Count, Iter) runs exactly one round trip with the given context.
type Query[E any] struct {
	src     *source
	preds   []Predicate
	columns []clause.Column
	order   *ordering.Ordering
	limit   int
	offset  int
	err     error
}

func newQuery[E any](src *source, columns []clause.Column, err error, preds ...Predicate) *Query[E] {
	q := &Query[E]{src: src, columns: columns, err: err}
	for _, pred := range preds {
		if pred != nil {
			q.preds = append(q.preds, pred)
		}
	}
	return q
}

func (q *Query[E]) clone() *Query[E] {
	c := *q
	c.preds = append([]Predicate(nil), q.preds...)
	return &c
}

// Where adds a predicate on top of the existing ones.
func (q *Query[E]) Where(pred Predicate) *Query[E] {
	c := q.clone()
	if pred != nil {
		c.preds = append(c.preds, pred)
	}
	return c
}

// OrderBy orders by a dotted property path. An invalid path is reported by
// the terminal call.
func (q *Query[E]) OrderBy(path string, dir pagination.Direction) *Query[E] {
	c := q.clone()
	if c.err != nil {
		return c
	}
	c.order, c.err = q.src.resolver.Resolve(q.src.schema, path, dir)
	return c
}

func (q *Query[E]) Limit(n int) *Query[E] {
	c := q.clone()
	c.limit = n
	return c
}

func (q *Query[E]) Offset(n int) *Query[E] {
	c := q.clone()
	c.offset = n
	return c
}

// Err reports a composition error (bad projection or sort path).
func (q *Query[E]) Err() error { return q.err }

func (q *Query[E]) build(ctx context.Context) *gorm.DB {
	tx := q.src.base(ctx, q.preds...)
	if q.order != nil {
		tx = q.order.Apply(tx)
	}
	tx = tx.Clauses(clause.Select{Columns: q.columns})
	if q.offset > 0 {
		tx = tx.Offset(q.offset)
	}
	if q.limit > 0 {
		tx = tx.Limit(q.limit)
	}
	return tx
}

func (q *Query[E]) List(ctx context.Context) (out []E, err error) {
	start := time.Now()
	defer func() { q.src.observe("list", start, err) }()
	if q.err != nil {
		return nil, q.err
	}
	out = []E{}
	if err := q.build(ctx).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// First returns the first row, or nil when nothing matches.
func (q *Query[E]) First(ctx context.Context) (*E, error) {
	rows, err := q.Limit(1).List(ctx)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

// Count returns how many rows match, ignoring ordering and paging.
func (q *Query[E]) Count(ctx context.Context) (total int64, err error) {
	start := time.Now()
	defer func() { q.src.observe("count", start, err) }()
	if q.err != nil {
		return 0, q.err
	}
	if err := q.src.base(ctx, q.preds...).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// Iter streams rows one at a time. Iteration stops at the first error,
// which is yielded with a zero value.
func (q *Query[E]) Iter(ctx context.Context) iter.Seq2[E, error] {
	return func(yield func(E, error) bool) {
		var zero E
		if q.err != nil {
			yield(zero, q.err)
			return
		}
		tx := q.build(ctx)
		rows, err := tx.Rows()
		if err != nil {
			yield(zero, err)
			return
		}
		defer rows.Close()

		structShape := isStructShape[E]()
		for rows.Next() {
			var item E
			if structShape {
				err = tx.ScanRows(rows, &item)
			} else {
				err = rows.Scan(&item)
			}
			if err != nil {
				yield(zero, err)
				return
			}
			if !yield(item, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(zero, err)
		}
	}
}
