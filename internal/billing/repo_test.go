package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/avilaromero/clientpulse-backend/pkg/db/models"
	"github.com/avilaromero/clientpulse-backend/pkg/enums"
)

func newTestRepo(t *testing.T) Repository {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Subscription{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return NewRepository(conn)
}

func subscriptionFixture(orgID uuid.UUID, stripeID string) *models.Subscription {
	price := "price_123"
	return &models.Subscription{
		ID:                   uuid.New(),
		OrgID:                orgID,
		StripeCustomerID:     "cus_123",
		StripeSubscriptionID: stripeID,
		StripePriceID:        &price,
		Status:               enums.SubscriptionStatusActive,
		PlanAmount:           4900,
		Currency:             "usd",
		CurrentPeriodEnd:     time.Now().Add(30 * 24 * time.Hour).UTC(),
	}
}

func TestUpsertSubscription_CreatesThenOverwrites(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	orgID := uuid.New()

	first := subscriptionFixture(orgID, "sub_abc")
	if err := repo.UpsertSubscription(ctx, first); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	second := subscriptionFixture(orgID, "sub_abc")
	second.Status = enums.SubscriptionStatusPastDue
	second.PlanAmount = 9900
	if err := repo.UpsertSubscription(ctx, second); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	stored, err := repo.FindSubscriptionByStripeID(ctx, "sub_abc")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if stored == nil {
		t.Fatal("expected stored subscription")
	}
	if stored.Status != enums.SubscriptionStatusPastDue {
		t.Fatalf("expected last write to win, got status %s", stored.Status)
	}
	if stored.PlanAmount != 9900 {
		t.Fatalf("expected plan amount 9900, got %d", stored.PlanAmount)
	}

	subs, err := repo.ListSubscriptionsByOrg(ctx, orgID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected a single row after conflict, got %d", len(subs))
	}
}

func TestUpsertSubscription_RejectsMissingOrg(t *testing.T) {
	repo := newTestRepo(t)
	sub := subscriptionFixture(uuid.Nil, "sub_abc")
	if err := repo.UpsertSubscription(context.Background(), sub); err == nil {
		t.Fatal("expected error for missing org id")
	}
}

func TestMarkSubscriptionCanceled(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	orgID := uuid.New()

	if err := repo.UpsertSubscription(ctx, subscriptionFixture(orgID, "sub_abc")); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	canceledAt := time.Now().UTC()
	affected, err := repo.MarkSubscriptionCanceled(ctx, "sub_abc", canceledAt)
	if err != nil {
		t.Fatalf("mark canceled failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 affected row, got %d", affected)
	}

	stored, err := repo.FindSubscriptionByStripeID(ctx, "sub_abc")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if stored.Status != enums.SubscriptionStatusCanceled {
		t.Fatalf("expected canceled, got %s", stored.Status)
	}
	if stored.CanceledAt == nil {
		t.Fatal("expected canceled_at to be set")
	}
}

func TestMarkSubscriptionCanceled_NoRecordIsNoOp(t *testing.T) {
	repo := newTestRepo(t)
	affected, err := repo.MarkSubscriptionCanceled(context.Background(), "sub_missing", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected 0 affected rows, got %d", affected)
	}
}

func TestFindSubscriptionByStripeID_MissingReturnsNil(t *testing.T) {
	repo := newTestRepo(t)
	stored, err := repo.FindSubscriptionByStripeID(context.Background(), "sub_missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored != nil {
		t.Fatalf("expected nil, got %+v", stored)
	}
}

func TestListSubscriptionsByOrg_ScopesToOrg(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	orgA := uuid.New()
	orgB := uuid.New()

	if err := repo.UpsertSubscription(ctx, subscriptionFixture(orgA, "sub_a")); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := repo.UpsertSubscription(ctx, subscriptionFixture(orgB, "sub_b")); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	subs, err := repo.ListSubscriptionsByOrg(ctx, orgA)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(subs) != 1 || subs[0].StripeSubscriptionID != "sub_a" {
		t.Fatalf("unexpected result %+v", subs)
	}
}
