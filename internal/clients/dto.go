package clients

import (
	"time"

	"github.com/google/uuid"

	"github.com/avilaromero/clientpulse-backend/pkg/db/models"
	"github.com/avilaromero/clientpulse-backend/pkg/enums"
)

// Actor identifies who is performing a client operation. Activity feed
// entries are attributed to it.
type Actor struct {
	UserID uuid.UUID
	OrgID  uuid.UUID
	Name   string
}

// CreateClientRequest is the payload for creating a client record.
type CreateClientRequest struct {
	Name    string  `json:"name" validate:"required,max=200"`
	Email   string  `json:"email" validate:"required,email"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Company *string `json:"company,omitempty" validate:"omitempty,max=200"`
	Status  string  `json:"status,omitempty" validate:"omitempty,oneof=active inactive pending"`
}

// UpdateClientRequest carries partial updates; nil fields are left untouched.
type UpdateClientRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Company *string `json:"company,omitempty" validate:"omitempty,max=200"`
	Status  *string `json:"status,omitempty" validate:"omitempty,oneof=active inactive pending"`
}

// BulkOperationRequest applies one operation to a batch of clients.
type BulkOperationRequest struct {
	IDs       []uuid.UUID `json:"ids" validate:"required,min=1,max=100"`
	Operation string      `json:"operation" validate:"required,oneof=delete update_status"`
	Status    string      `json:"status,omitempty" validate:"omitempty,oneof=active inactive pending"`
}

// BulkOperationResult reports per-id accounting for a bulk operation.
type BulkOperationResult struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

// CreateNoteRequest is the payload for attaching a note to a client.
type CreateNoteRequest struct {
	Body string `json:"body" validate:"required,max=5000"`
}

// ClientDTO is the transport shape of a client record.
type ClientDTO struct {
	ID        uuid.UUID          `json:"id"`
	Name      string             `json:"name"`
	Email     string             `json:"email"`
	Phone     *string            `json:"phone,omitempty"`
	Company   *string            `json:"company,omitempty"`
	Status    enums.ClientStatus `json:"status"`
	CreatedBy uuid.UUID          `json:"created_by"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// ClientPage is an offset-paginated listing result.
type ClientPage struct {
	Data       []ClientDTO `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
	HasNext    bool        `json:"has_next"`
	HasPrev    bool        `json:"has_prev"`
}

// NoteDTO is the transport shape of a client note.
type NoteDTO struct {
	ID         uuid.UUID `json:"id"`
	ClientID   uuid.UUID `json:"client_id"`
	Body       string    `json:"body"`
	AuthorID   uuid.UUID `json:"author_id"`
	AuthorName string    `json:"author_name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ActivityDTO is the transport shape of a client activity feed entry.
type ActivityDTO struct {
	ID          uuid.UUID          `json:"id"`
	ClientID    uuid.UUID          `json:"client_id"`
	Type        enums.ActivityType `json:"type"`
	Description string             `json:"description"`
	ActorID     uuid.UUID          `json:"actor_id"`
	CreatedAt   time.Time          `json:"created_at"`
}

func clientFromModel(c *models.Client) *ClientDTO {
	if c == nil {
		return nil
	}
	return &ClientDTO{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Company:   c.Company,
		Status:    c.Status,
		CreatedBy: c.CreatedBy,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func noteFromModel(n *models.ClientNote) *NoteDTO {
	if n == nil {
		return nil
	}
	return &NoteDTO{
		ID:         n.ID,
		ClientID:   n.ClientID,
		Body:       n.Body,
		AuthorID:   n.AuthorID,
		AuthorName: n.AuthorName,
		CreatedAt:  n.CreatedAt,
		UpdatedAt:  n.UpdatedAt,
	}
}

func activityFromModel(a *models.ClientActivity) *ActivityDTO {
	if a == nil {
		return nil
	}
	return &ActivityDTO{
		ID:          a.ID,
		ClientID:    a.ClientID,
		Type:        a.Type,
		Description: a.Description,
		ActorID:     a.ActorID,
		CreatedAt:   a.CreatedAt,
	}
}
