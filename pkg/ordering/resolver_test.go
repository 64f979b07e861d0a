package ordering

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	pkgerrors "github.com/angelmondragon/entityrepo/pkg/errors"
	"github.com/angelmondragon/entityrepo/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

type address struct {
	ID   uint `gorm:"primaryKey"`
	City string
}

type profile struct {
	ID         uint `gorm:"primaryKey"`
	CustomerID uint
	Nickname   string
}

type customer struct {
	ID        uint `gorm:"primaryKey"`
	Name      string
	AddressID *uint
	Address   *address
	Profile   *profile
	Orders    []order
	Note      string `gorm:"-"`
}

type order struct {
	ID         uint `gorm:"primaryKey"`
	Number     string
	CustomerID uint
	Customer   *customer
}

func parse(t *testing.T, model any) *schema.Schema {
	t.Helper()
	s, err := schema.Parse(model, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)
	return s
}

func TestResolveRootColumn(t *testing.T) {
	r := NewResolver()
	ord, err := r.Resolve(parse(t, &order{}), "Number", pagination.Ascending)
	require.NoError(t, err)

	assert.Empty(t, ord.Joins)
	assert.Equal(t, clause.Column{Table: clause.CurrentTable, Name: "number"}, ord.Column)
	require.NotNil(t, ord.Tiebreak)
	assert.Equal(t, "id", ord.Tiebreak.Name)
}

func TestResolveByColumnName(t *testing.T) {
	r := NewResolver()
	ord, err := r.Resolve(parse(t, &order{}), "customer_id", pagination.Descending)
	require.NoError(t, err)
	assert.Equal(t, "customer_id", ord.Column.Name)
	assert.Equal(t, pagination.Descending, ord.Direction)
}

func TestResolvePrimaryKeyHasNoTiebreak(t *testing.T) {
	r := NewResolver()
	ord, err := r.Resolve(parse(t, &order{}), "ID", pagination.Ascending)
	require.NoError(t, err)
	assert.Nil(t, ord.Tiebreak)
}

func TestResolveNestedBelongsTo(t *testing.T) {
	r := NewResolver()
	ord, err := r.Resolve(parse(t, &order{}), "Customer.Address.City", pagination.Descending)
	require.NoError(t, err)

	require.Len(t, ord.Joins, 2)
	assert.Equal(t, clause.LeftJoin, ord.Joins[0].Type)
	assert.Equal(t, "Customer", ord.Joins[0].Table.Alias)
	assert.Equal(t, "customers", ord.Joins[0].Table.Name)
	assert.Equal(t, "Customer__Address", ord.Joins[1].Table.Alias)
	assert.Equal(t, "addresses", ord.Joins[1].Table.Name)
	assert.Equal(t, clause.Column{Table: "Customer__Address", Name: "city"}, ord.Column)
}

func TestResolveHasOne(t *testing.T) {
	r := NewResolver()
	ord, err := r.Resolve(parse(t, &customer{}), "Profile.Nickname", pagination.Ascending)
	require.NoError(t, err)

	require.Len(t, ord.Joins, 1)
	where := ord.Joins[0].ON
	require.Len(t, where.Exprs, 1)
	eq, ok := where.Exprs[0].(clause.Eq)
	require.True(t, ok)
	assert.Equal(t, clause.Column{Table: clause.CurrentTable, Name: "id"}, eq.Column)
	assert.Equal(t, clause.Column{Table: "Profile", Name: "customer_id"}, eq.Value)
}

func TestResolveRejectsInvalidPaths(t *testing.T) {
	cases := []struct {
		name  string
		model any
		path  string
	}{
		{name: "empty", model: &order{}, path: ""},
		{name: "blank", model: &order{}, path: "   "},
		{name: "empty segment", model: &order{}, path: "Customer..Name"},
		{name: "trailing dot", model: &order{}, path: "Customer."},
		{name: "unknown root member", model: &order{}, path: "Nope"},
		{name: "unknown nested member", model: &order{}, path: "Customer.Nope"},
		{name: "scalar hop", model: &order{}, path: "Number.Length"},
		{name: "collection hop", model: &customer{}, path: "Orders.Number"},
		{name: "relation as final", model: &order{}, path: "Customer"},
		{name: "ignored field", model: &customer{}, path: "Note"},
	}
	r := NewResolver()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.Resolve(parse(t, tc.model), tc.path, pagination.Ascending)
			require.Error(t, err)
			assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidSortPath), "got %v", err)
		})
	}
}

func TestResolveCachesPerPathAndDirection(t *testing.T) {
	r := NewResolver()
	s := parse(t, &order{})

	first, err := r.Resolve(s, "Customer.Name", pagination.Ascending)
	require.NoError(t, err)
	second, err := r.Resolve(s, "Customer.Name", pagination.Ascending)
	require.NoError(t, err)
	assert.Same(t, first, second)

	desc, err := r.Resolve(s, "Customer.Name", pagination.Descending)
	require.NoError(t, err)
	assert.NotSame(t, first, desc)
	assert.Equal(t, pagination.Descending, desc.Direction)
}

func TestResolveUnknownDirectionIsAscending(t *testing.T) {
	r := NewResolver()
	ord, err := r.Resolve(parse(t, &order{}), "Number", pagination.Direction("sideways"))
	require.NoError(t, err)
	assert.Equal(t, pagination.Ascending, ord.Direction)
}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&address{}, &customer{}, &profile{}, &order{}))
	return db
}

func TestApplyGeneratesLeftJoinChain(t *testing.T) {
	db := openDB(t)
	r := NewResolver()
	s, err := schema.Parse(&order{}, &sync.Map{}, db.NamingStrategy)
	require.NoError(t, err)
	ord, err := r.Resolve(s, "Customer.Address.City", pagination.Descending)
	require.NoError(t, err)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var out []order
		return ord.Apply(tx.Model(&order{})).Find(&out)
	})
	assert.Contains(t, sql, "LEFT JOIN `customers` `Customer` ON `orders`.`customer_id` = `Customer`.`id`")
	assert.Contains(t, sql, "LEFT JOIN `addresses` `Customer__Address` ON `Customer`.`address_id` = `Customer__Address`.`id`")
	assert.Contains(t, sql, "ORDER BY `Customer__Address`.`city` DESC,`orders`.`id` DESC")
}

func TestApplyOrdersThroughRelations(t *testing.T) {
	db := openDB(t)

	cities := []string{"Lisbon", "Austin", "Oslo"}
	for i, city := range cities {
		addr := address{City: city}
		require.NoError(t, db.Create(&addr).Error)
		c := customer{Name: fmt.Sprintf("c%d", i), AddressID: &addr.ID}
		require.NoError(t, db.Create(&c).Error)
		require.NoError(t, db.Create(&order{Number: fmt.Sprintf("o%d", i), CustomerID: c.ID}).Error)
	}

	s, err := schema.Parse(&order{}, &sync.Map{}, db.NamingStrategy)
	require.NoError(t, err)
	r := NewResolver()

	numbers := func(dir pagination.Direction) []string {
		ord, err := r.Resolve(s, "Customer.Address.City", dir)
		require.NoError(t, err)
		var out []string
		err = ord.Apply(db.Model(&order{})).
			Clauses(clause.Select{Columns: []clause.Column{{Table: clause.CurrentTable, Name: "number"}}}).
			Find(&out).Error
		require.NoError(t, err)
		return out
	}

	assert.Equal(t, []string{"o1", "o0", "o2"}, numbers(pagination.Ascending))
	assert.Equal(t, []string{"o2", "o0", "o1"}, numbers(pagination.Descending))
}

func TestResolveCachesPerSchema(t *testing.T) {
	r := NewResolver()
	plain := parse(t, &order{})
	prefixed, err := schema.Parse(&order{}, &sync.Map{}, schema.NamingStrategy{TablePrefix: "d_"})
	require.NoError(t, err)

	first, err := r.Resolve(plain, "Customer.Name", pagination.Ascending)
	require.NoError(t, err)
	second, err := r.Resolve(prefixed, "Customer.Name", pagination.Ascending)
	require.NoError(t, err)

	require.Len(t, first.Joins, 1)
	require.Len(t, second.Joins, 1)
	assert.Equal(t, "customers", first.Joins[0].Table.Name)
	assert.Equal(t, "d_customers", second.Joins[0].Table.Name)
}

func TestApplyReusesRelationsJoinedByTheQuery(t *testing.T) {
	db := openDB(t)
	s, err := schema.Parse(&order{}, &sync.Map{}, db.NamingStrategy)
	require.NoError(t, err)
	ord, err := NewResolver().Resolve(s, "Customer.Address.City", pagination.Ascending)
	require.NoError(t, err)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var out []order
		return ord.Apply(tx.Model(&order{}).Joins("Customer").Where("`Customer`.`name` <> ?", "x")).Find(&out)
	})
	assert.Equal(t, 1, strings.Count(sql, "JOIN `customers` `Customer`"), sql)
	assert.Equal(t, 1, strings.Count(sql, "JOIN `addresses` `Customer__Address`"), sql)
	assert.Less(t, strings.Index(sql, "`customers` `Customer`"), strings.Index(sql, "`addresses` `Customer__Address`"), sql)
	assert.Contains(t, sql, "ORDER BY `Customer__Address`.`city`")
	assert.Equal(t, []string{"Customer", "Customer.Address"}, ord.Relations)

	nested := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var out []order
		return ord.Apply(tx.Model(&order{}).Joins("Customer.Address")).Find(&out)
	})
	assert.Equal(t, 1, strings.Count(nested, "JOIN `customers` `Customer`"), nested)
	assert.Equal(t, 1, strings.Count(nested, "JOIN `addresses` `Customer__Address`"), nested)
}
