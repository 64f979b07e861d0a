package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Address is a postal address a customer may point at.
type Address struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Street    string    `gorm:"column:street;not null" json:"street"`
	City      string    `gorm:"column:city;not null;index" json:"city"`
	Country   string    `gorm:"column:country;type:varchar(2);not null" json:"country"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Address) TableName() string { return "addresses" }

func (a *Address) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
