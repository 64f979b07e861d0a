package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/entityrepo/pkg/enums"
)

// Order is a customer's purchase. Total is the sum of its lines.
type Order struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Number     string            `gorm:"column:number;type:varchar(32);not null;uniqueIndex:ux_orders_number" json:"number"`
	CustomerID uuid.UUID         `gorm:"column:customer_id;type:uuid;not null;index" json:"customerId"`
	Customer   *Customer         `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Status     enums.OrderStatus `gorm:"column:status;type:varchar(32);not null;default:'open'" json:"status"`
	Total      decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null;default:0" json:"total"`
	Lines      []OrderLine       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"lines,omitempty"`
	PlacedAt   time.Time         `gorm:"column:placed_at;not null" json:"placedAt"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Status == "" {
		o.Status = enums.OrderStatusOpen
	}
	if o.PlacedAt.IsZero() {
		o.PlacedAt = time.Now().UTC()
	}
	return nil
}

// OrderLine is one SKU on an order.
type OrderLine struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index" json:"orderId"`
	SKU       string          `gorm:"column:sku;type:varchar(64);not null" json:"sku"`
	Quantity  int             `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null" json:"unitPrice"`
}

func (OrderLine) TableName() string { return "order_lines" }

func (l *OrderLine) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Subtotal is quantity times unit price.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
