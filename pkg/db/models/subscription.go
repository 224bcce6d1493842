package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avilaromero/clientpulse-backend/pkg/enums"
)

// Subscription persists processor-side subscription state per organization.
// At most one row exists per StripeSubscriptionID; the webhook reconciler is
// the only writer and overwrites the full row on every event (last write
// wins, no ordering guarantee beyond arrival order).
type Subscription struct {
	ID                   uuid.UUID                `gorm:"type:uuid;primaryKey"`
	OrgID                uuid.UUID                `gorm:"column:org_id;type:uuid;not null;index"`
	StripeCustomerID     string                   `gorm:"column:stripe_customer_id;not null;index"`
	StripeSubscriptionID string                   `gorm:"column:stripe_subscription_id;not null;unique"`
	StripePriceID        *string                  `gorm:"column:stripe_price_id"`
	Status               enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null;default:'active'"`
	PlanAmount           int64                    `gorm:"column:plan_amount;not null;default:0"`
	Currency             string                   `gorm:"column:currency;not null;default:'usd'"`
	CurrentPeriodStart   *time.Time               `gorm:"column:current_period_start"`
	CurrentPeriodEnd     time.Time                `gorm:"column:current_period_end;not null"`
	CancelAtPeriodEnd    bool                     `gorm:"column:cancel_at_period_end;not null;default:false"`
	CanceledAt           *time.Time               `gorm:"column:canceled_at"`
	CreatedAt            time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the id when the caller did not.
func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
