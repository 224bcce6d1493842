package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	OrgID  *uuid.UUID
	Email  string
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued to clients. OrgID is nil
// for accounts that have not joined an organization yet.
type AccessTokenClaims struct {
	UserID uuid.UUID  `json:"user_id"`
	OrgID  *uuid.UUID `json:"org_id,omitempty"`
	Email  string     `json:"email"`
	jwt.RegisteredClaims
}
