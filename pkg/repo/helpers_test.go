package repo

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/angelmondragon/entityrepo/pkg/db"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

type testCustomer struct {
	ID       uint   `gorm:"primaryKey"`
	Name     string `gorm:"not null"`
	Email    string `gorm:"uniqueIndex"`
	City     string
	Archived bool
	Orders   []testOrder `gorm:"foreignKey:CustomerID"`
}

type testOrder struct {
	ID         uint `gorm:"primaryKey"`
	Number     string
	CustomerID uint
	Customer   *testCustomer
	Total      int
	Lines      []testLine `gorm:"foreignKey:OrderID"`
}

type testLine struct {
	ID      uint `gorm:"primaryKey"`
	OrderID uint
	SKU     string
	Qty     int
}

type auditEntry struct {
	ID      uint `gorm:"primaryKey"`
	Message string
}

// activeOnly hides archived customers from every read.
type activeOnly struct {
	DefaultCapabilities[uint]
}

func (activeOnly) FixedConditions(tx *gorm.DB) *gorm.DB {
	return tx.Where(clause.Eq{Column: Column("archived"), Value: false})
}

// trackingStore records change-tracking toggles on top of a real client.
type trackingStore struct {
	*db.Client
	toggles []bool
}

func (s *trackingStore) SetChangeTracking(enabled bool) {
	s.toggles = append(s.toggles, enabled)
	s.Client.SetChangeTracking(enabled)
}

type queryCounter struct {
	queries atomic.Int64
	rows    atomic.Int64
	creates atomic.Int64
	deletes atomic.Int64
	updates atomic.Int64
}

func (c *queryCounter) total() int64 {
	return c.queries.Load() + c.rows.Load() + c.creates.Load() + c.deletes.Load() + c.updates.Load()
}

func newTestDB(t *testing.T) (*gorm.DB, *queryCounter) {
	t.Helper()
	return openTestDB(t, "", schema.NamingStrategy{})
}

// newPrefixedTestDB opens a second database whose tables carry prefix.
func newPrefixedTestDB(t *testing.T, prefix string) *gorm.DB {
	t.Helper()
	conn, _ := openTestDB(t, prefix, schema.NamingStrategy{TablePrefix: prefix})
	return conn
}

func openTestDB(t *testing.T, suffix string, namer schema.NamingStrategy) (*gorm.DB, *queryCounter) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + suffix
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		NamingStrategy:         namer,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&testCustomer{}, &testOrder{}, &testLine{}, &auditEntry{}))

	counter := &queryCounter{}
	require.NoError(t, conn.Callback().Query().Before("gorm:query").Register("test:count_query", func(*gorm.DB) { counter.queries.Add(1) }))
	require.NoError(t, conn.Callback().Row().Before("gorm:row").Register("test:count_row", func(*gorm.DB) { counter.rows.Add(1) }))
	require.NoError(t, conn.Callback().Create().Before("gorm:create").Register("test:count_create", func(*gorm.DB) { counter.creates.Add(1) }))
	require.NoError(t, conn.Callback().Delete().Before("gorm:delete").Register("test:count_delete", func(*gorm.DB) { counter.deletes.Add(1) }))
	require.NoError(t, conn.Callback().Update().Before("gorm:update").Register("test:count_update", func(*gorm.DB) { counter.updates.Add(1) }))

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn, counter
}

func newCustomerRepo(t *testing.T, opts ...Option[testCustomer, uint]) (*Repository[testCustomer, uint], *trackingStore, *queryCounter) {
	t.Helper()
	conn, counter := newTestDB(t)
	store := &trackingStore{Client: db.NewFromGorm(conn)}
	r, err := New[testCustomer, uint](store, opts...)
	require.NoError(t, err)
	return r, store, counter
}

func newOrderRepo(t *testing.T, store Store) *Repository[testOrder, uint] {
	t.Helper()
	r, err := New[testOrder, uint](store)
	require.NoError(t, err)
	return r
}

func seedCustomers(t *testing.T, r *Repository[testCustomer, uint], customers ...testCustomer) []testCustomer {
	t.Helper()
	out := make([]testCustomer, 0, len(customers))
	for i := range customers {
		c := customers[i]
		if c.Email == "" {
			c.Email = fmt.Sprintf("%s-%d@example.com", strings.ToLower(c.Name), i)
		}
		_, err := r.Add(context.Background(), &c)
		require.NoError(t, err)
		out = append(out, c)
	}
	return out
}
