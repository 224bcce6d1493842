package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClientNote is free-form text attached to a client by a team member.
type ClientNote struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	ClientID   uuid.UUID `gorm:"column:client_id;type:uuid;not null;index"`
	OrgID      uuid.UUID `gorm:"column:org_id;type:uuid;not null;index"`
	AuthorID   uuid.UUID `gorm:"column:author_id;type:uuid;not null"`
	AuthorName string    `gorm:"column:author_name;not null"`
	Body       string    `gorm:"column:body;type:text;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the id when the caller did not.
func (n *ClientNote) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
