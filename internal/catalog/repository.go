package catalog

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/entityrepo/pkg/db/models"
	"github.com/angelmondragon/entityrepo/pkg/enums"
	"github.com/angelmondragon/entityrepo/pkg/logger"
	"github.com/angelmondragon/entityrepo/pkg/metrics"
	"github.com/angelmondragon/entityrepo/pkg/outbox"
	"github.com/angelmondragon/entityrepo/pkg/repo"
)

type (
	CustomerRepository = repo.Repository[models.Customer, uuid.UUID]
	OrderRepository    = repo.Repository[models.Order, uuid.UUID]
)

// activeCustomers hides archived customers from listings and queries.
// Key lookups still reach them.
type activeCustomers struct {
	repo.DefaultCapabilities[uuid.UUID]
}

func (activeCustomers) FixedConditions(tx *gorm.DB) *gorm.DB {
	return tx.Where(clause.Eq{Column: repo.Column("archived"), Value: false})
}

// Repositories bundles the catalog repositories so they can be rebound to
// a transaction together.
type Repositories struct {
	Customers *CustomerRepository
	Orders    *OrderRepository
}

// NewRepositories builds the customer and order repositories on store. When
// events is non-nil every completed mutation also records an outbox row.
func NewRepositories(store repo.Store, events *outbox.Service, logg *logger.Logger, m *metrics.RepositoryMetrics) (*Repositories, error) {
	if logg == nil {
		logg = logger.Nop()
	}
	customers, err := repo.New[models.Customer, uuid.UUID](store,
		repo.WithCapabilities[models.Customer, uuid.UUID](activeCustomers{}),
		repo.WithLogger[models.Customer, uuid.UUID](logg),
		repo.WithMetrics[models.Customer, uuid.UUID](m),
	)
	if err != nil {
		return nil, fmt.Errorf("customer repository: %w", err)
	}
	orders, err := repo.New[models.Order, uuid.UUID](store,
		repo.WithLogger[models.Order, uuid.UUID](logg),
		repo.WithMetrics[models.Order, uuid.UUID](m),
	)
	if err != nil {
		return nil, fmt.Errorf("order repository: %w", err)
	}

	repos := &Repositories{Customers: customers, Orders: orders}
	if events != nil {
		if err := repos.attachOutbox(events); err != nil {
			return nil, err
		}
	}
	return repos, nil
}

// WithStore rebinds both repositories, sharing their observers.
func (r *Repositories) WithStore(store repo.Store) *Repositories {
	return &Repositories{
		Customers: r.Customers.WithStore(store),
		Orders:    r.Orders.WithStore(store),
	}
}

func (r *Repositories) attachOutbox(events *outbox.Service) error {
	err := outbox.Attach(r.Customers.Hooks(), events, outbox.Binding[models.Customer]{
		Aggregate: enums.AggregateCustomer,
		Created:   enums.EventCustomerCreated,
		Updated:   enums.EventCustomerUpdated,
		Removed:   enums.EventCustomerRemoved,
		ID:        func(c *models.Customer) string { return c.ID.String() },
		Payload:   func(c *models.Customer) any { return newCustomerEvent(c) },
	})
	if err != nil {
		return fmt.Errorf("attach customer outbox: %w", err)
	}
	err = outbox.Attach(r.Orders.Hooks(), events, outbox.Binding[models.Order]{
		Aggregate: enums.AggregateOrder,
		Created:   enums.EventOrderCreated,
		Updated:   enums.EventOrderUpdated,
		Removed:   enums.EventOrderRemoved,
		ID:        func(o *models.Order) string { return o.ID.String() },
		Payload:   func(o *models.Order) any { return newOrderEvent(o) },
	})
	if err != nil {
		return fmt.Errorf("attach order outbox: %w", err)
	}
	return nil
}
