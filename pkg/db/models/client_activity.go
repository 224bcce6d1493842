package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avilaromero/clientpulse-backend/pkg/enums"
)

// ClientActivity is an append-only feed entry recording what happened to a
// client and who did it.
type ClientActivity struct {
	ID          uuid.UUID          `gorm:"type:uuid;primaryKey"`
	ClientID    uuid.UUID          `gorm:"column:client_id;type:uuid;not null;index"`
	OrgID       uuid.UUID          `gorm:"column:org_id;type:uuid;not null;index"`
	ActorID     uuid.UUID          `gorm:"column:actor_id;type:uuid;not null"`
	Type        enums.ActivityType `gorm:"column:type;type:activity_type;not null"`
	Description string             `gorm:"column:description;type:text;not null"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate assigns the id when the caller did not.
func (a *ClientActivity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
