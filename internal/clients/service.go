package clients

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/avilaromero/clientpulse-backend/pkg/db/models"
	"github.com/avilaromero/clientpulse-backend/pkg/enums"
	pkgerrors "github.com/avilaromero/clientpulse-backend/pkg/errors"
	"github.com/avilaromero/clientpulse-backend/pkg/logger"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// sortableColumns whitelists the columns the list endpoint may order by.
var sortableColumns = map[string]struct{}{
	"name":       {},
	"email":      {},
	"company":    {},
	"status":     {},
	"created_at": {},
	"updated_at": {},
}

// ListQuery carries the raw listing parameters from the controller.
type ListQuery struct {
	Page      int
	Limit     int
	Search    string
	Status    string
	SortBy    string
	SortOrder string
}

// Service is the org-scoped client CRM surface.
type Service interface {
	Create(ctx context.Context, actor Actor, req CreateClientRequest) (*ClientDTO, error)
	List(ctx context.Context, orgID uuid.UUID, query ListQuery) (*ClientPage, error)
	Get(ctx context.Context, orgID, id uuid.UUID) (*ClientDTO, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, req UpdateClientRequest) (*ClientDTO, error)
	Delete(ctx context.Context, orgID, id uuid.UUID) error
	BulkOperation(ctx context.Context, actor Actor, req BulkOperationRequest) (*BulkOperationResult, error)
	AddNote(ctx context.Context, actor Actor, clientID uuid.UUID, req CreateNoteRequest) (*NoteDTO, error)
	ListNotes(ctx context.Context, orgID, clientID uuid.UUID) ([]NoteDTO, error)
	ListActivity(ctx context.Context, orgID, clientID uuid.UUID) ([]ActivityDTO, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "clients repo required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, actor Actor, req CreateClientRequest) (*ClientDTO, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	status := enums.ClientStatusPending
	if req.Status != "" {
		parsed, err := enums.ParseClientStatus(req.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		status = parsed
	}

	client := &models.Client{
		OrgID:     actor.OrgID,
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:     req.Phone,
		Company:   req.Company,
		Status:    status,
		CreatedBy: actor.UserID,
	}
	if client.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if client.Email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	if err := s.repo.Create(ctx, client); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create client")
	}

	s.recordActivity(ctx, actor, client.ID, enums.ActivityTypeClientCreated,
		fmt.Sprintf("Client %q created", client.Name))

	return clientFromModel(client), nil
}

func (s *service) List(ctx context.Context, orgID uuid.UUID, query ListQuery) (*ClientPage, error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org id required")
	}

	params, err := normalizeListQuery(orgID, query)
	if err != nil {
		return nil, err
	}

	rows, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list clients")
	}

	data := make([]ClientDTO, 0, len(rows))
	for i := range rows {
		data = append(data, *clientFromModel(&rows[i]))
	}

	totalPages := int((total + int64(params.Limit) - 1) / int64(params.Limit))
	return &ClientPage{
		Data:       data,
		Total:      total,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}, nil
}

func (s *service) Get(ctx context.Context, orgID, id uuid.UUID) (*ClientDTO, error) {
	client, err := s.findOwned(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	return clientFromModel(client), nil
}

func (s *service) Update(ctx context.Context, actor Actor, id uuid.UUID, req UpdateClientRequest) (*ClientDTO, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	client, err := s.findOwned(ctx, actor.OrgID, id)
	if err != nil {
		return nil, err
	}

	previousStatus := client.Status
	if req.Name != nil {
		client.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		client.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Phone != nil {
		client.Phone = req.Phone
	}
	if req.Company != nil {
		client.Company = req.Company
	}
	if req.Status != nil {
		parsed, err := enums.ParseClientStatus(*req.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		client.Status = parsed
	}

	if err := s.repo.Update(ctx, client); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update client")
	}

	if client.Status != previousStatus {
		s.recordActivity(ctx, actor, client.ID, enums.ActivityTypeStatusChanged,
			fmt.Sprintf("Status changed from %s to %s", previousStatus, client.Status))
	} else {
		s.recordActivity(ctx, actor, client.ID, enums.ActivityTypeClientUpdated,
			fmt.Sprintf("Client %q updated", client.Name))
	}

	return clientFromModel(client), nil
}

func (s *service) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	if orgID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "org id required")
	}
	rows, err := s.repo.Delete(ctx, orgID, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete client")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
	}
	return nil
}

// BulkOperation applies delete or update_status to each id, accounting
// successes and failures individually; one missing client never aborts the
// rest of the batch.
func (s *service) BulkOperation(ctx context.Context, actor Actor, req BulkOperationRequest) (*BulkOperationResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	operation, err := enums.ParseBulkOperation(req.Operation)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid operation")
	}

	var status enums.ClientStatus
	if operation == enums.BulkOperationUpdateStatus {
		status, err = enums.ParseClientStatus(req.Status)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "status is required for update_status")
		}
	}

	result := &BulkOperationResult{Errors: []string{}}
	for _, id := range req.IDs {
		var rows int64
		var opErr error
		switch operation {
		case enums.BulkOperationDelete:
			rows, opErr = s.repo.Delete(ctx, actor.OrgID, id)
		case enums.BulkOperationUpdateStatus:
			rows, opErr = s.repo.UpdateStatus(ctx, actor.OrgID, id, status)
		}
		switch {
		case opErr != nil:
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", id, opErr))
		case rows == 0:
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: client not found", id))
		default:
			result.Success++
			if operation == enums.BulkOperationUpdateStatus {
				s.recordActivity(ctx, actor, id, enums.ActivityTypeStatusChanged,
					fmt.Sprintf("Status changed to %s", status))
			}
		}
	}
	return result, nil
}

func (s *service) AddNote(ctx context.Context, actor Actor, clientID uuid.UUID, req CreateNoteRequest) (*NoteDTO, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "note body is required")
	}

	if _, err := s.findOwned(ctx, actor.OrgID, clientID); err != nil {
		return nil, err
	}

	note := &models.ClientNote{
		ClientID:   clientID,
		OrgID:      actor.OrgID,
		AuthorID:   actor.UserID,
		AuthorName: actor.Name,
		Body:       body,
	}
	if err := s.repo.CreateNote(ctx, note); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create note")
	}

	s.recordActivity(ctx, actor, clientID, enums.ActivityTypeNoteAdded,
		fmt.Sprintf("Note added: %s", truncate(body, 50)))

	return noteFromModel(note), nil
}

func (s *service) ListNotes(ctx context.Context, orgID, clientID uuid.UUID) ([]NoteDTO, error) {
	if _, err := s.findOwned(ctx, orgID, clientID); err != nil {
		return nil, err
	}
	notes, err := s.repo.ListNotes(ctx, orgID, clientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notes")
	}
	out := make([]NoteDTO, 0, len(notes))
	for i := range notes {
		out = append(out, *noteFromModel(&notes[i]))
	}
	return out, nil
}

func (s *service) ListActivity(ctx context.Context, orgID, clientID uuid.UUID) ([]ActivityDTO, error) {
	if _, err := s.findOwned(ctx, orgID, clientID); err != nil {
		return nil, err
	}
	activities, err := s.repo.ListActivities(ctx, orgID, clientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list activity")
	}
	out := make([]ActivityDTO, 0, len(activities))
	for i := range activities {
		out = append(out, *activityFromModel(&activities[i]))
	}
	return out, nil
}

func (s *service) findOwned(ctx context.Context, orgID, id uuid.UUID) (*models.Client, error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org id required")
	}
	client, err := s.repo.FindByID(ctx, orgID, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load client")
	}
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
	}
	return client, nil
}

// recordActivity appends a feed entry. Feed write failures are logged and
// never fail the primary operation.
func (s *service) recordActivity(ctx context.Context, actor Actor, clientID uuid.UUID, activityType enums.ActivityType, description string) {
	err := s.repo.CreateActivity(ctx, &models.ClientActivity{
		ClientID:    clientID,
		OrgID:       actor.OrgID,
		ActorID:     actor.UserID,
		Type:        activityType,
		Description: description,
	})
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "client_id", clientID.String()), "record client activity", err)
	}
}

func requireActor(actor Actor) error {
	if actor.OrgID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "org id required")
	}
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	return nil
}

func normalizeListQuery(orgID uuid.UUID, query ListQuery) (listClientsParams, error) {
	params := listClientsParams{
		OrgID:     orgID,
		Page:      query.Page,
		Limit:     query.Limit,
		Search:    query.Search,
		SortBy:    strings.TrimSpace(query.SortBy),
		SortOrder: strings.ToLower(strings.TrimSpace(query.SortOrder)),
	}
	if params.Page < 1 {
		params.Page = defaultPage
	}
	if params.Limit <= 0 {
		params.Limit = defaultLimit
	}
	if params.Limit > maxLimit {
		params.Limit = maxLimit
	}
	if params.SortBy == "" {
		params.SortBy = "created_at"
	}
	if _, ok := sortableColumns[params.SortBy]; !ok {
		return listClientsParams{}, pkgerrors.New(pkgerrors.CodeValidation, "unsupported sort column")
	}
	switch params.SortOrder {
	case "":
		params.SortOrder = "desc"
	case "asc", "desc":
	default:
		return listClientsParams{}, pkgerrors.New(pkgerrors.CodeValidation, "sort order must be asc or desc")
	}
	if query.Status != "" {
		status, err := enums.ParseClientStatus(query.Status)
		if err != nil {
			return listClientsParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		params.Status = &status
	}
	return params, nil
}

// truncate shortens on rune boundaries so multi-byte text is never split
// mid-character.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
