package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer owns orders and optionally references an address. Archived
// customers stay in the table but are hidden from listings.
type Customer struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name      string     `gorm:"column:name;not null;index" json:"name"`
	Email     string     `gorm:"column:email;not null;uniqueIndex:ux_customers_email" json:"email"`
	AddressID *uuid.UUID `gorm:"column:address_id;type:uuid" json:"addressId,omitempty"`
	Address   *Address   `gorm:"foreignKey:AddressID;constraint:OnDelete:SET NULL" json:"address,omitempty"`
	Archived  bool       `gorm:"column:archived;not null;default:false" json:"archived"`
	Orders    []Order    `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE" json:"orders,omitempty"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Customer) TableName() string { return "customers" }

func (c *Customer) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
