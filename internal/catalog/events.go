package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/entityrepo/pkg/db/models"
	"github.com/angelmondragon/entityrepo/pkg/enums"
)

// CustomerEvent is the outbox payload for customer changes.
type CustomerEvent struct {
	CustomerID uuid.UUID `json:"customer_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Archived   bool      `json:"archived"`
}

// OrderEvent is the outbox payload for order changes.
type OrderEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	Number     string            `json:"number"`
	CustomerID uuid.UUID         `json:"customer_id"`
	Status     enums.OrderStatus `json:"status"`
	Total      decimal.Decimal   `json:"total"`
	LineCount  int               `json:"line_count"`
}

func newCustomerEvent(c *models.Customer) CustomerEvent {
	return CustomerEvent{
		CustomerID: c.ID,
		Name:       c.Name,
		Email:      c.Email,
		Archived:   c.Archived,
	}
}

func newOrderEvent(o *models.Order) OrderEvent {
	return OrderEvent{
		OrderID:    o.ID,
		Number:     o.Number,
		CustomerID: o.CustomerID,
		Status:     o.Status,
		Total:      o.Total,
		LineCount:  len(o.Lines),
	}
}
