package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avilaromero/clientpulse-backend/pkg/db/models"
	"github.com/avilaromero/clientpulse-backend/pkg/enums"
)

// revenueEvent is a subscription start with its recurring amount in cents.
type revenueEvent struct {
	CreatedAt  time.Time
	PlanAmount int64
}

// Repository exposes the org-scoped aggregates the report service needs.
// Bucketing happens in the service so the queries stay portable.
type Repository interface {
	CountClients(ctx context.Context, orgID uuid.UUID) (int64, error)
	CountClientsByStatus(ctx context.Context, orgID uuid.UUID, status enums.ClientStatus) (int64, error)
	SumActivePlanAmount(ctx context.Context, orgID uuid.UUID) (int64, error)
	RecentClients(ctx context.Context, orgID uuid.UUID, limit int) ([]models.Client, error)
	ClientCreationTimes(ctx context.Context, orgID uuid.UUID, start, end time.Time) ([]time.Time, error)
	SubscriptionStarts(ctx context.Context, orgID uuid.UUID, start, end time.Time) ([]revenueEvent, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CountClients(ctx context.Context, orgID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Client{}).
		Where("org_id = ?", orgID).
		Count(&count).Error
	return count, err
}

func (r *repository) CountClientsByStatus(ctx context.Context, orgID uuid.UUID, status enums.ClientStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Client{}).
		Where("org_id = ? AND status = ?", orgID, status).
		Count(&count).Error
	return count, err
}

func (r *repository) SumActivePlanAmount(ctx context.Context, orgID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("org_id = ? AND status = ?", orgID, enums.SubscriptionStatusActive).
		Select("COALESCE(SUM(plan_amount), 0)").
		Scan(&total).Error
	return total, err
}

func (r *repository) RecentClients(ctx context.Context, orgID uuid.UUID, limit int) ([]models.Client, error) {
	var rows []models.Client
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) ClientCreationTimes(ctx context.Context, orgID uuid.UUID, start, end time.Time) ([]time.Time, error) {
	var times []time.Time
	err := r.db.WithContext(ctx).
		Model(&models.Client{}).
		Where("org_id = ? AND created_at >= ? AND created_at < ?", orgID, start, end).
		Order("created_at ASC").
		Pluck("created_at", &times).Error
	return times, err
}

func (r *repository) SubscriptionStarts(ctx context.Context, orgID uuid.UUID, start, end time.Time) ([]revenueEvent, error) {
	var rows []revenueEvent
	err := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("org_id = ? AND created_at >= ? AND created_at < ?", orgID, start, end).
		Order("created_at ASC").
		Select("created_at, plan_amount").
		Scan(&rows).Error
	return rows, err
}
