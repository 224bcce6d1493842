package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avilaromero/clientpulse-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to organizations.
type Notification struct {
	ID        uuid.UUID              `gorm:"type:uuid;primaryKey"`
	OrgID     uuid.UUID              `gorm:"column:org_id;type:uuid;not null"`
	Type      enums.NotificationType `gorm:"type:notification_type;not null"`
	Title     string                 `gorm:"type:text;not null"`
	Message   string                 `gorm:"type:text;not null"`
	Link      *string                `gorm:"type:text"`
	ReadAt    *time.Time             `gorm:"type:timestamptz"`
	CreatedAt time.Time              `gorm:"type:timestamptz;autoCreateTime"`
}

// BeforeCreate assigns the id when the caller did not.
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
