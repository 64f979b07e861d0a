package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/entityrepo/pkg/db"
	"github.com/angelmondragon/entityrepo/pkg/db/models"
	"github.com/angelmondragon/entityrepo/pkg/enums"
	pkgerrors "github.com/angelmondragon/entityrepo/pkg/errors"
	"github.com/angelmondragon/entityrepo/pkg/logger"
	"github.com/angelmondragon/entityrepo/pkg/pagination"
	"github.com/angelmondragon/entityrepo/pkg/repo"
)

const (
	defaultCustomerOrder = "Name"
	defaultOrderOrder    = "Number"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the catalog operations used by the HTTP layer.
type Service interface {
	ListCustomers(ctx context.Context, settings pagination.Settings) (pagination.PagedResult[models.Customer], error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	CreateCustomer(ctx context.Context, input CreateCustomerInput) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, id uuid.UUID, input UpdateCustomerInput) (*models.Customer, error)
	RemoveCustomer(ctx context.Context, id uuid.UUID) error
	ListOrders(ctx context.Context, settings pagination.Settings) (pagination.PagedResult[OrderSummary], error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*models.Order, error)
}

type service struct {
	repos *Repositories
	tx    txRunner
	logg  *logger.Logger
}

// NewService wires the catalog service. Mutations run inside tx so the
// outbox rows written by observers commit with them.
func NewService(repos *Repositories, tx txRunner, logg *logger.Logger) (Service, error) {
	if repos == nil || repos.Customers == nil || repos.Orders == nil {
		return nil, fmt.Errorf("repositories required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repos: repos, tx: tx, logg: logg}, nil
}

func (s *service) ListCustomers(ctx context.Context, settings pagination.Settings) (pagination.PagedResult[models.Customer], error) {
	settings = withDefaultOrder(settings, defaultCustomerOrder)
	return s.repos.Customers.SelectPagedBy(ctx, settings, customerSearch(settings.Search))
}

func (s *service) GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	customer, err := s.repos.Customers.FindWithInclude(ctx, id, "Address")
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, notFound("customer", id)
	}
	return customer, nil
}

func (s *service) CreateCustomer(ctx context.Context, input CreateCustomerInput) (*models.Customer, error) {
	name := strings.TrimSpace(input.Name)
	email := normalizeEmail(input.Email)
	if name == "" || email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and email are required")
	}

	customer := &models.Customer{Name: name, Email: email}
	if input.Address != nil {
		customer.Address = newAddress(*input.Address)
	}
	err := s.inTx(ctx, func(repos *Repositories) error {
		_, err := repos.Customers.Add(ctx, customer)
		return err
	})
	if err != nil {
		return nil, writeError(err, "create customer")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"customer_id": customer.ID.String()}), "customer created")
	return customer, nil
}

func (s *service) UpdateCustomer(ctx context.Context, id uuid.UUID, input UpdateCustomerInput) (*models.Customer, error) {
	var updated *models.Customer
	err := s.inTx(ctx, func(repos *Repositories) error {
		customer, err := repos.Customers.FindWithInclude(ctx, id, "Address")
		if err != nil {
			return err
		}
		if customer == nil {
			return notFound("customer", id)
		}
		if err := applyCustomerUpdate(customer, input); err != nil {
			return err
		}
		updated, err = repos.Customers.Update(ctx, customer)
		return err
	})
	if err != nil {
		return nil, writeError(err, "update customer")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"customer_id": id.String()}), "customer updated")
	return updated, nil
}

func (s *service) RemoveCustomer(ctx context.Context, id uuid.UUID) error {
	err := s.inTx(ctx, func(repos *Repositories) error {
		_, err := repos.Customers.Remove(ctx, id)
		return err
	})
	if err != nil {
		return writeError(err, "remove customer")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"customer_id": id.String()}), "customer removed")
	return nil
}

func (s *service) ListOrders(ctx context.Context, settings pagination.Settings) (pagination.PagedResult[OrderSummary], error) {
	settings = withDefaultOrder(settings, defaultOrderOrder)
	return repo.SelectPagedByAs(ctx, s.repos.Orders, settings, orderSearch(settings.Search), repo.Project[OrderSummary]())
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repos.Orders.FindWithInclude(ctx, id, "Customer", "Lines")
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, notFound("order", id)
	}
	return order, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	number := strings.TrimSpace(input.Number)
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order needs at least one line")
	}
	status := input.Status
	if status == "" {
		status = enums.OrderStatusOpen
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
			WithDetails(map[string]string{"status": string(status)})
	}

	order := &models.Order{Number: number, CustomerID: input.CustomerID, Status: status}
	total := decimal.Zero
	for i, line := range input.Lines {
		if line.Quantity < 1 || line.UnitPrice.IsNegative() || strings.TrimSpace(line.SKU) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order line").
				WithDetails(map[string]any{"line": i})
		}
		l := models.OrderLine{SKU: strings.TrimSpace(line.SKU), Quantity: line.Quantity, UnitPrice: line.UnitPrice}
		total = total.Add(l.Subtotal())
		order.Lines = append(order.Lines, l)
	}
	order.Total = total

	err := s.inTx(ctx, func(repos *Repositories) error {
		customer, err := repos.Customers.Query(repo.Eq("id", input.CustomerID)).First(ctx)
		if err != nil {
			return err
		}
		if customer == nil {
			return notFound("customer", input.CustomerID)
		}
		_, err = repos.Orders.Add(ctx, order)
		return err
	})
	if err != nil {
		return nil, writeError(err, "create order")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":    order.ID.String(),
		"customer_id": order.CustomerID.String(),
	}), "order created")
	return order, nil
}

func (s *service) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
			WithDetails(map[string]string{"status": string(status)})
	}

	var updated *models.Order
	err := s.inTx(ctx, func(repos *Repositories) error {
		order, err := repos.Orders.Find(ctx, id)
		if err != nil {
			return err
		}
		if order == nil {
			return notFound("order", id)
		}
		order.Status = status
		updated, err = repos.Orders.Update(ctx, order)
		return err
	})
	if err != nil {
		return nil, writeError(err, "update order status")
	}
	return updated, nil
}

func (s *service) inTx(ctx context.Context, fn func(repos *Repositories) error) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return fn(s.repos.WithStore(db.NewTx(tx)))
	})
}

func applyCustomerUpdate(customer *models.Customer, input UpdateCustomerInput) error {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		customer.Name = name
	}
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if email == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "email cannot be empty")
		}
		customer.Email = email
	}
	if input.Archived != nil {
		customer.Archived = *input.Archived
	}
	if input.Address != nil {
		if customer.Address == nil {
			customer.Address = newAddress(*input.Address)
		} else {
			customer.Address.Street = strings.TrimSpace(input.Address.Street)
			customer.Address.City = strings.TrimSpace(input.Address.City)
			customer.Address.Country = strings.ToUpper(strings.TrimSpace(input.Address.Country))
		}
	}
	return nil
}

func newAddress(input AddressInput) *models.Address {
	return &models.Address{
		Street:  strings.TrimSpace(input.Street),
		City:    strings.TrimSpace(input.City),
		Country: strings.ToUpper(strings.TrimSpace(input.Country)),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func withDefaultOrder(settings pagination.Settings, column string) pagination.Settings {
	if strings.TrimSpace(settings.OrderColumn) == "" {
		settings.OrderColumn = column
	}
	return settings
}

func customerSearch(term string) repo.Predicate {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}
	return repo.Or(repo.Contains("name", term), repo.Contains("email", term))
}

func orderSearch(term string) repo.Predicate {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}
	return repo.Or(repo.Contains("number", term), repo.Contains("status", term))
}

func notFound(entity string, id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, entity+" not found").
		WithDetails(map[string]string{"id": id.String()})
}

// writeError keeps coded errors and maps constraint failures to CONFLICT.
func writeError(err error, action string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, action+": duplicate value")
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action)
}
