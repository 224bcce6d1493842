package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Organization is the canonical tenant model.
type Organization struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Name             string     `gorm:"column:name;not null"`
	StripeCustomerID *string    `gorm:"column:stripe_customer_id;uniqueIndex"`
	OwnerID          uuid.UUID  `gorm:"column:owner_id;type:uuid;not null"`
	LastActiveAt     *time.Time `gorm:"column:last_active_at"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the id when the caller did not.
func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
