package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/entityrepo/pkg/enums"
)

// AddressInput carries the address fields accepted on create and update.
type AddressInput struct {
	Street  string `json:"street" validate:"required,max=255"`
	City    string `json:"city" validate:"required,max=128"`
	Country string `json:"country" validate:"required,len=2,alpha"`
}

type CreateCustomerInput struct {
	Name    string        `json:"name" validate:"required,max=255"`
	Email   string        `json:"email" validate:"required,email,max=320"`
	Address *AddressInput `json:"address,omitempty" validate:"omitempty"`
}

// UpdateCustomerInput only touches the fields that are set.
type UpdateCustomerInput struct {
	Name     *string       `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Email    *string       `json:"email,omitempty" validate:"omitempty,email,max=320"`
	Address  *AddressInput `json:"address,omitempty" validate:"omitempty"`
	Archived *bool         `json:"archived,omitempty"`
}

type OrderLineInput struct {
	SKU       string          `json:"sku" validate:"required,max=64"`
	Quantity  int             `json:"quantity" validate:"min=1"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type CreateOrderInput struct {
	Number     string            `json:"number" validate:"required,max=32"`
	CustomerID uuid.UUID         `json:"customerId" validate:"required"`
	Status     enums.OrderStatus `json:"status,omitempty"`
	Lines      []OrderLineInput  `json:"lines" validate:"required,min=1,dive"`
}

// OrderSummary is the row shape returned by order listings.
type OrderSummary struct {
	ID       uuid.UUID         `json:"id"`
	Number   string            `json:"number"`
	Status   enums.OrderStatus `json:"status"`
	Total    decimal.Decimal   `json:"total"`
	PlacedAt time.Time         `json:"placedAt"`
}
