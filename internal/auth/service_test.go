package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgauth "github.com/avilaromero/clientpulse-backend/pkg/auth"
	"github.com/avilaromero/clientpulse-backend/pkg/config"
	"github.com/avilaromero/clientpulse-backend/pkg/db"
	"github.com/avilaromero/clientpulse-backend/pkg/db/models"
	pkgerrors "github.com/avilaromero/clientpulse-backend/pkg/errors"
)

var testJWTConfig = config.JWTConfig{
	Secret:            "test-secret",
	Issuer:            "clientpulse-test",
	ExpirationMinutes: 15,
}

func newTestService(t *testing.T) Service {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}, &models.Organization{}); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	svc, err := NewService(ServiceParams{
		DB:        db.FromConn(conn),
		JWTConfig: testJWTConfig,
	})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	return svc
}

func registerFixture() RegisterRequest {
	return RegisterRequest{
		FirstName:        "Ada",
		LastName:         "Lovelace",
		Email:            "Ada@Example.com",
		Password:         "correct horse battery",
		OrganizationName: "Analytical Engines",
	}
}

func TestService_RegisterCreatesUserAndOrg(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.Register(context.Background(), registerFixture())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatal("expected access token")
	}
	if resp.User == nil || resp.User.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %+v", resp.User)
	}
	if resp.User.OrgID == nil {
		t.Fatal("expected org linkage on registered user")
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.OrgID == nil || *claims.OrgID != *resp.User.OrgID {
		t.Fatal("expected org claim in token")
	}
}

func TestService_RegisterDuplicateEmailConflicts(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Register(context.Background(), registerFixture()); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := svc.Register(context.Background(), registerFixture())
	if err == nil {
		t.Fatal("expected conflict for duplicate email")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestService_LoginRoundTrip(t *testing.T) {
	svc := newTestService(t)
	req := registerFixture()
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("register: %v", err)
	}

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatal("expected access token")
	}
	if resp.User.LastLoginAt == nil {
		t.Fatal("expected last login timestamp")
	}
}

func TestService_LoginWrongPasswordUnauthorized(t *testing.T) {
	svc := newTestService(t)
	req := registerFixture()
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    req.Email,
		Password: "not the password",
	})
	if err == nil {
		t.Fatal("expected unauthorized")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestService_LoginUnknownEmailUnauthorized(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever",
	})
	if err == nil {
		t.Fatal("expected unauthorized")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestService_Me(t *testing.T) {
	svc := newTestService(t)
	resp, err := svc.Register(context.Background(), registerFixture())
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	me, err := svc.Me(context.Background(), resp.User.ID)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.Email != resp.User.Email {
		t.Fatalf("expected %s, got %s", resp.User.Email, me.Email)
	}

	if _, err := svc.Me(context.Background(), uuid.New()); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.Me(context.Background(), uuid.Nil); pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
