package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgauth "github.com/avilaromero/clientpulse-backend/pkg/auth"
	"github.com/avilaromero/clientpulse-backend/pkg/config"
	"github.com/avilaromero/clientpulse-backend/pkg/db"
	"github.com/avilaromero/clientpulse-backend/pkg/db/models"
	pkgerrors "github.com/avilaromero/clientpulse-backend/pkg/errors"
	"github.com/avilaromero/clientpulse-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Me(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	DB             *db.Client
	PasswordConfig config.PasswordConfig
	JWTConfig      config.JWTConfig
}

type service struct {
	db          *db.Client
	passwordCfg config.PasswordConfig
	jwtCfg      config.JWTConfig
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	return &service{
		db:          params.DB,
		passwordCfg: params.PasswordConfig,
		jwtCfg:      params.JWTConfig,
	}, nil
}

// Register onboards a user and their organization in one transaction. The
// caller becomes the organization owner and the minted token already carries
// the org claim.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	orgName := strings.TrimSpace(req.OrganizationName)
	if orgName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization name is required")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var user *models.User
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := NewUserRepository(tx)
		orgRepo := NewOrgRepository(tx)

		if _, err := userRepo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}

		created, err := userRepo.Create(ctx, CreateUserDTO{
			Email:        email,
			PasswordHash: passwordHash,
			FirstName:    strings.TrimSpace(req.FirstName),
			LastName:     strings.TrimSpace(req.LastName),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}

		org, err := orgRepo.Create(ctx, orgName, created.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create organization")
		}

		if err := userRepo.UpdateOrg(ctx, created.ID, org.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "link organization")
		}
		created.OrgID = &org.ID
		user = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.buildAuthResponse(user, time.Now().UTC())
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := NewUserRepository(s.db.DB()).UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now

	return s.buildAuthResponse(user, now)
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	user, err := NewUserRepository(s.db.DB()).FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	return FromModel(user), nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := strings.TrimSpace(email)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := NewUserRepository(s.db.DB()).FindByEmail(ctx, strings.ToLower(input))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

func (s *service) buildAuthResponse(user *models.User, now time.Time) (*AuthResponse, error) {
	accessToken, err := pkgauth.MintAccessToken(s.jwtCfg, now, pkgauth.AccessTokenPayload{
		UserID: user.ID,
		OrgID:  user.OrgID,
		Email:  user.Email,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &AuthResponse{
		AccessToken: accessToken,
		ExpiresIn:   s.jwtCfg.ExpirationMinutes * 60,
		User:        FromModel(user),
	}, nil
}
