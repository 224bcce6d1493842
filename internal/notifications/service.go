package notifications

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avilaromero/clientpulse-backend/pkg/db/models"
	"github.com/avilaromero/clientpulse-backend/pkg/enums"
	pkgerrors "github.com/avilaromero/clientpulse-backend/pkg/errors"
	"github.com/avilaromero/clientpulse-backend/pkg/pagination"
)

// Service defines notification write/list/read operations.
type Service interface {
	Notify(ctx context.Context, params NotifyParams) error
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, orgID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, orgID uuid.UUID) (int64, error)
}

type service struct {
	repo Repository
}

// NotifyParams describes a notification to record for an org.
type NotifyParams struct {
	OrgID   uuid.UUID
	Type    enums.NotificationType
	Title   string
	Message string
	Link    string
}

// ListParams configures pagination for notifications.
type ListParams struct {
	OrgID      uuid.UUID
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// NewService wires notifications dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Notify(ctx context.Context, params NotifyParams) error {
	if params.OrgID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "org id required")
	}
	if strings.TrimSpace(params.Title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}

	notifType := params.Type
	if !notifType.IsValid() {
		notifType = enums.NotificationTypeInfo
	}

	record := &models.Notification{
		OrgID:   params.OrgID,
		Type:    notifType,
		Title:   strings.TrimSpace(params.Title),
		Message: strings.TrimSpace(params.Message),
	}
	if link := strings.TrimSpace(params.Link); link != "" {
		record.Link = &link
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
	}
	return nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.OrgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org id required")
	}

	query := listNotificationsParams{
		OrgID:      params.OrgID,
		Limit:      params.Limit,
		UnreadOnly: params.UnreadOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}

	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) MarkRead(ctx context.Context, orgID, notificationID uuid.UUID) error {
	if orgID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "org id required")
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, orgID, notificationID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, orgID uuid.UUID) (int64, error) {
	if orgID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "org id required")
	}

	count, err := s.repo.MarkAllRead(ctx, orgID, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}
