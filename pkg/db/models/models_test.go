package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/avilaromero/clientpulse-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	err = conn.AutoMigrate(
		&Organization{},
		&User{},
		&Client{},
		&ClientNote{},
		&ClientActivity{},
		&Subscription{},
		&Notification{},
	)
	if err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestModels_MigrateOnSQLite(t *testing.T) {
	newTestDB(t)
}

func TestModels_BeforeCreateAssignsID(t *testing.T) {
	conn := newTestDB(t)

	client := &Client{
		OrgID:     uuid.New(),
		Name:      "Acme Corp",
		Email:     "ops@acme.test",
		Status:    enums.ClientStatusActive,
		CreatedBy: uuid.New(),
	}
	if err := conn.Create(client).Error; err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	if client.ID == uuid.Nil {
		t.Fatal("expected client id to be assigned on create")
	}

	sub := &Subscription{
		OrgID:                uuid.New(),
		StripeCustomerID:     "cus_123",
		StripeSubscriptionID: "sub_123",
		Status:               enums.SubscriptionStatusActive,
		PlanAmount:           4900,
		Currency:             "usd",
		CurrentPeriodEnd:     time.Now().UTC().Add(30 * 24 * time.Hour),
	}
	if err := conn.Create(sub).Error; err != nil {
		t.Fatalf("failed to create subscription: %v", err)
	}
	if sub.ID == uuid.Nil {
		t.Fatal("expected subscription id to be assigned on create")
	}
}

func TestModels_BeforeCreateKeepsProvidedID(t *testing.T) {
	conn := newTestDB(t)

	id := uuid.New()
	org := &Organization{
		ID:      id,
		Name:    "Acme",
		OwnerID: uuid.New(),
	}
	if err := conn.Create(org).Error; err != nil {
		t.Fatalf("failed to create organization: %v", err)
	}
	if org.ID != id {
		t.Fatalf("expected provided id %s to survive create, got %s", id, org.ID)
	}
}
