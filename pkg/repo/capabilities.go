package repo

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Capabilities are the per-entity extension points of a repository.
type Capabilities[K comparable] interface {
	// FixedConditions scopes every read, e.g. to exclude archived rows.
	FixedConditions(tx *gorm.DB) *gorm.DB
	// KeyQuery narrows tx to the row identified by key.
	KeyQuery(tx *gorm.DB, key K) *gorm.DB
}

// DefaultCapabilities applies no fixed conditions and looks rows up by
// their primary key. Entity capabilities usually embed it.
type DefaultCapabilities[K comparable] struct{}

func (DefaultCapabilities[K]) FixedConditions(tx *gorm.DB) *gorm.DB {
	return tx
}

func (DefaultCapabilities[K]) KeyQuery(tx *gorm.DB, key K) *gorm.DB {
	return tx.Where(clause.Eq{Column: clause.PrimaryColumn, Value: key})
}
