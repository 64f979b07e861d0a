package repo

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Predicate narrows a query. It has the shape of a GORM scope, so any
// existing scope can be used directly.
type Predicate func(tx *gorm.DB) *gorm.DB

// Column qualifies a column of the queried entity with its table so that
// joins added for ordering never make it ambiguous.
func Column(name string) clause.Column {
	return clause.Column{Table: clause.CurrentTable, Name: name}
}

// Where wraps a raw GORM condition.
func Where(query any, args ...any) Predicate {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where(query, args...)
	}
}

func Eq(column string, value any) Predicate {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where(clause.Eq{Column: Column(column), Value: value})
	}
}

func Neq(column string, value any) Predicate {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where(clause.Neq{Column: Column(column), Value: value})
	}
}

// Like matches column against a LIKE pattern as given.
func Like(column, pattern string) Predicate {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where(clause.Like{Column: Column(column), Value: pattern})
	}
}

// Contains matches rows whose column contains term, case-insensitively.
func Contains(column, term string) Predicate {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where(clause.Expr{
			SQL:  "LOWER(?) LIKE ? ESCAPE '\\'",
			Vars: []any{Column(column), pattern},
		})
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// And applies every non-nil predicate.
func And(preds ...Predicate) Predicate {
	return func(tx *gorm.DB) *gorm.DB {
		for _, pred := range preds {
			if pred != nil {
				tx = pred(tx)
			}
		}
		return tx
	}
}

// Or matches rows satisfying at least one of preds. Each predicate is
// built on a fresh statement and its conditions grouped.
func Or(preds ...Predicate) Predicate {
	return func(tx *gorm.DB) *gorm.DB {
		var groups []clause.Expression
		for _, pred := range preds {
			if pred == nil {
				continue
			}
			sub := pred(tx.Session(&gorm.Session{NewDB: true}))
			where, ok := sub.Statement.Clauses["WHERE"].Expression.(clause.Where)
			if !ok || len(where.Exprs) == 0 {
				continue
			}
			groups = append(groups, clause.And(where.Exprs...))
		}
		if len(groups) == 0 {
			return tx
		}
		return tx.Where(clause.Or(groups...))
	}
}
