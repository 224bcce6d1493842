package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents the canonical identity entity. OrgID is nullable: freshly
// registered users have no organization linkage until onboarding completes.
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email        string     `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	FirstName    string     `gorm:"column:first_name;not null"`
	LastName     string     `gorm:"column:last_name;not null"`
	OrgID        *uuid.UUID `gorm:"column:org_id;type:uuid;index"`
	IsActive     bool       `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the id when the caller did not.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
