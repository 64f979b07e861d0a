package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/entityrepo/pkg/db"
	"github.com/angelmondragon/entityrepo/pkg/db/models"
	"github.com/angelmondragon/entityrepo/pkg/enums"
	"github.com/angelmondragon/entityrepo/pkg/logger"
	"github.com/angelmondragon/entityrepo/pkg/outbox"
)

type fixture struct {
	svc    Service
	repos  *Repositories
	client *db.Client
	events *outbox.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.Address{},
		&models.Customer{},
		&models.Order{},
		&models.OrderLine{},
		&models.OutboxEvent{},
		&models.OutboxDLQ{},
	))
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	client := db.NewFromGorm(conn)
	events := outbox.NewRepository(conn)
	repos, err := NewRepositories(client, outbox.NewService(events, logger.Nop()), logger.Nop(), nil)
	require.NoError(t, err)
	svc, err := NewService(repos, client, logger.Nop())
	require.NoError(t, err)
	return &fixture{svc: svc, repos: repos, client: client, events: events}
}

func (f *fixture) createCustomer(t *testing.T, name string) *models.Customer {
	t.Helper()
	c, err := f.svc.CreateCustomer(context.Background(), CreateCustomerInput{
		Name:  name,
		Email: strings.ToLower(name) + "@example.com",
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) createOrder(t *testing.T, number string, customerID uuid.UUID, prices ...string) *models.Order {
	t.Helper()
	lines := make([]OrderLineInput, 0, len(prices))
	for i, price := range prices {
		lines = append(lines, OrderLineInput{
			SKU:       fmt.Sprintf("SKU-%d", i),
			Quantity:  1,
			UnitPrice: decimal.RequireFromString(price),
		})
	}
	o, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		Number:     number,
		CustomerID: customerID,
		Lines:      lines,
	})
	require.NoError(t, err)
	return o
}

func (f *fixture) eventTypes(t *testing.T, aggregate enums.OutboxAggregateType, id uuid.UUID) []enums.OutboxEventType {
	t.Helper()
	rows, err := f.events.ListForAggregate(context.Background(), string(aggregate), id.String())
	require.NoError(t, err)
	out := make([]enums.OutboxEventType, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.EventType)
	}
	return out
}

func decodeData[T any](t *testing.T, row models.OutboxEvent) T {
	t.Helper()
	env, err := outbox.DecodeEnvelope(row.Payload)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func ptr[T any](v T) *T { return &v }
