package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/avilaromero/clientpulse-backend/pkg/db/models"
)

// RegisterRequest contains the payload required to onboard a new user and
// their organization.
type RegisterRequest struct {
	FirstName        string `json:"first_name" validate:"required,max=100"`
	LastName         string `json:"last_name" validate:"required,max=100"`
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required,min=8"`
	OrganizationName string `json:"organization_name" validate:"required,max=200"`
}

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse contains the token and user produced by a successful
// registration or login.
type AuthResponse struct {
	AccessToken string   `json:"access_token"`
	ExpiresIn   int      `json:"expires_in"`
	User        *UserDTO `json:"user"`
}

// UserDTO is the transport shape that omits credentials.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	OrgID       *uuid.UUID `json:"org_id,omitempty"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	OrgID        *uuid.UUID
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		OrgID:       u.OrgID,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		ID:           uuid.New(),
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		OrgID:        c.OrgID,
		IsActive:     true,
	}
}
