package clients

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avilaromero/clientpulse-backend/pkg/db/models"
	"github.com/avilaromero/clientpulse-backend/pkg/enums"
)

const activityFeedLimit = 50

// Repository exposes org-scoped client persistence. Every query filters on
// org_id so one tenant can never read or mutate another's rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, client *models.Client) error
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*models.Client, error)
	List(ctx context.Context, params listClientsParams) ([]models.Client, int64, error)
	Update(ctx context.Context, client *models.Client) error
	Delete(ctx context.Context, orgID, id uuid.UUID) (int64, error)
	UpdateStatus(ctx context.Context, orgID, id uuid.UUID, status enums.ClientStatus) (int64, error)
	CreateNote(ctx context.Context, note *models.ClientNote) error
	ListNotes(ctx context.Context, orgID, clientID uuid.UUID) ([]models.ClientNote, error)
	CreateActivity(ctx context.Context, activity *models.ClientActivity) error
	ListActivities(ctx context.Context, orgID, clientID uuid.UUID) ([]models.ClientActivity, error)
}

type listClientsParams struct {
	OrgID     uuid.UUID
	Page      int
	Limit     int
	Search    string
	Status    *enums.ClientStatus
	SortBy    string
	SortOrder string
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, client *models.Client) error {
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(client).Error
}

func (r *repository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*models.Client, error) {
	var client models.Client
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &client, nil
}

func (r *repository) List(ctx context.Context, params listClientsParams) ([]models.Client, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Client{}).
		Where("org_id = ?", params.OrgID)

	if search := strings.TrimSpace(params.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(company) LIKE ?",
			pattern, pattern, pattern,
		)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (params.Page - 1) * params.Limit
	var rows []models.Client
	err := query.
		Order(params.SortBy + " " + params.SortOrder).
		Limit(params.Limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) Update(ctx context.Context, client *models.Client) error {
	return r.db.WithContext(ctx).
		Model(&models.Client{}).
		Where("org_id = ? AND id = ?", client.OrgID, client.ID).
		Updates(map[string]any{
			"name":       client.Name,
			"email":      client.Email,
			"phone":      client.Phone,
			"company":    client.Company,
			"status":     client.Status,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *repository) Delete(ctx context.Context, orgID, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Delete(&models.Client{})
	return result.RowsAffected, result.Error
}

func (r *repository) UpdateStatus(ctx context.Context, orgID, id uuid.UUID, status enums.ClientStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Client{}).
		Where("org_id = ? AND id = ?", orgID, id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

func (r *repository) CreateNote(ctx context.Context, note *models.ClientNote) error {
	if note.ID == uuid.Nil {
		note.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(note).Error
}

func (r *repository) ListNotes(ctx context.Context, orgID, clientID uuid.UUID) ([]models.ClientNote, error) {
	var notes []models.ClientNote
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND client_id = ?", orgID, clientID).
		Order("created_at DESC").
		Find(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *repository) CreateActivity(ctx context.Context, activity *models.ClientActivity) error {
	if activity.ID == uuid.Nil {
		activity.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(activity).Error
}

func (r *repository) ListActivities(ctx context.Context, orgID, clientID uuid.UUID) ([]models.ClientActivity, error) {
	var activities []models.ClientActivity
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND client_id = ?", orgID, clientID).
		Order("created_at DESC").
		Limit(activityFeedLimit).
		Find(&activities).Error
	if err != nil {
		return nil, err
	}
	return activities, nil
}
