package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/avilaromero/clientpulse-backend/pkg/db/models"
	"github.com/avilaromero/clientpulse-backend/pkg/enums"
	pkgerrors "github.com/avilaromero/clientpulse-backend/pkg/errors"
)

// Repository handles subscription persistence. The webhook reconciler is the
// only writer; billing API endpoints read through it.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	UpsertSubscription(ctx context.Context, subscription *models.Subscription) error
	MarkSubscriptionCanceled(ctx context.Context, stripeSubscriptionID string, canceledAt time.Time) (int64, error)
	FindSubscriptionByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error)
	ListSubscriptionsByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Subscription, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a billing repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// UpsertSubscription writes the full record keyed on the processor
// subscription id. Conflicts overwrite every reconciled column; last write
// wins, there is no cross-event ordering guarantee.
func (r *repository) UpsertSubscription(ctx context.Context, subscription *models.Subscription) error {
	if subscription == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "subscription is required")
	}
	if subscription.OrgID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription org id is required")
	}
	if subscription.StripeSubscriptionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe subscription id is required")
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "stripe_subscription_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"org_id",
			"stripe_customer_id",
			"stripe_price_id",
			"status",
			"plan_amount",
			"currency",
			"current_period_start",
			"current_period_end",
			"cancel_at_period_end",
			"canceled_at",
			"updated_at",
		}),
	}).Create(subscription).Error
}

// MarkSubscriptionCanceled flips the stored row to canceled. Zero affected
// rows means no record exists for the id, which callers treat as a no-op.
func (r *repository) MarkSubscriptionCanceled(ctx context.Context, stripeSubscriptionID string, canceledAt time.Time) (int64, error) {
	if stripeSubscriptionID == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "stripe subscription id is required")
	}
	result := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		Updates(map[string]any{
			"status":      enums.SubscriptionStatusCanceled,
			"canceled_at": canceledAt.UTC(),
			"updated_at":  time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repository) FindSubscriptionByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error) {
	if stripeSubscriptionID == "" {
		return nil, nil
	}
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repository) ListSubscriptionsByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Subscription, error) {
	var subs []models.Subscription
	if err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at DESC").
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}
