package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avilaromero/clientpulse-backend/pkg/enums"
)

// Client is a customer record owned by an organization.
type Client struct {
	ID        uuid.UUID          `gorm:"type:uuid;primaryKey"`
	OrgID     uuid.UUID          `gorm:"column:org_id;type:uuid;not null;index"`
	Name      string             `gorm:"column:name;not null"`
	Email     string             `gorm:"column:email;not null"`
	Phone     *string            `gorm:"column:phone"`
	Company   *string            `gorm:"column:company"`
	Status    enums.ClientStatus `gorm:"column:status;type:client_status;not null;default:'pending'"`
	CreatedBy uuid.UUID          `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the id when the caller did not.
func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
