package reports

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/avilaromero/clientpulse-backend/pkg/db/models"
	"github.com/avilaromero/clientpulse-backend/pkg/enums"
	pkgerrors "github.com/avilaromero/clientpulse-backend/pkg/errors"
	"github.com/avilaromero/clientpulse-backend/pkg/logger"
)

var testNow = time.Date(2026, time.August, 27, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*service, *gorm.DB) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Client{}, &models.Subscription{}); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	svc := &service{
		repo: NewRepository(conn),
		logg: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		now:  func() time.Time { return testNow },
	}
	return svc, conn
}

func seedClient(t *testing.T, conn *gorm.DB, orgID uuid.UUID, status enums.ClientStatus, createdAt time.Time) {
	t.Helper()
	client := models.Client{
		ID:        uuid.New(),
		OrgID:     orgID,
		Name:      "Client " + uuid.NewString()[:8],
		Email:     uuid.NewString()[:8] + "@example.test",
		Status:    status,
		CreatedBy: uuid.New(),
		CreatedAt: createdAt,
	}
	if err := conn.Create(&client).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
}

func seedSubscription(t *testing.T, conn *gorm.DB, orgID uuid.UUID, status enums.SubscriptionStatus, amount int64, createdAt time.Time) {
	t.Helper()
	sub := models.Subscription{
		ID:                   uuid.New(),
		OrgID:                orgID,
		StripeCustomerID:     fmt.Sprintf("cus_%s", uuid.NewString()[:8]),
		StripeSubscriptionID: fmt.Sprintf("sub_%s", uuid.NewString()[:8]),
		Status:               status,
		PlanAmount:           amount,
		Currency:             "usd",
		CurrentPeriodEnd:     createdAt.AddDate(0, 1, 0),
		CreatedAt:            createdAt,
	}
	if err := conn.Create(&sub).Error; err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
}

func TestService_DashboardAggregates(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	orgID := uuid.New()

	seedClient(t, conn, orgID, enums.ClientStatusActive, time.Date(2026, time.July, 10, 9, 0, 0, 0, time.UTC))
	seedClient(t, conn, orgID, enums.ClientStatusActive, time.Date(2026, time.August, 5, 9, 0, 0, 0, time.UTC))
	seedClient(t, conn, orgID, enums.ClientStatusPending, time.Date(2026, time.August, 20, 9, 0, 0, 0, time.UTC))
	seedClient(t, conn, uuid.New(), enums.ClientStatusActive, testNow)

	seedSubscription(t, conn, orgID, enums.SubscriptionStatusActive, 4900, time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC))
	seedSubscription(t, conn, orgID, enums.SubscriptionStatusActive, 2900, time.Date(2026, time.August, 10, 0, 0, 0, 0, time.UTC))
	seedSubscription(t, conn, orgID, enums.SubscriptionStatusCanceled, 9900, time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC))
	seedSubscription(t, conn, uuid.New(), enums.SubscriptionStatusActive, 5000, testNow)

	stats, err := svc.Dashboard(ctx, orgID)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if stats.TotalClients != 3 {
		t.Fatalf("expected 3 clients, got %d", stats.TotalClients)
	}
	if stats.ActiveClients != 2 {
		t.Fatalf("expected 2 active clients, got %d", stats.ActiveClients)
	}
	if stats.TotalRevenue != 7800 {
		t.Fatalf("expected active revenue 7800, got %d", stats.TotalRevenue)
	}
	if len(stats.RecentClients) != 3 {
		t.Fatalf("expected 3 recent clients, got %d", len(stats.RecentClients))
	}
	if stats.RecentClients[0].Status != enums.ClientStatusPending {
		t.Fatalf("expected newest client first, got %s", stats.RecentClients[0].Status)
	}

	if len(stats.MonthlyStats) != dashboardMonthSpan {
		t.Fatalf("expected %d monthly buckets, got %d", dashboardMonthSpan, len(stats.MonthlyStats))
	}
	byMonth := make(map[string]MonthlyStat)
	for _, stat := range stats.MonthlyStats {
		byMonth[stat.Month] = stat
	}
	if byMonth["Jul"].Clients != 1 || byMonth["Aug"].Clients != 2 {
		t.Fatalf("unexpected monthly client counts: %+v", stats.MonthlyStats)
	}
	if byMonth["Jun"].Revenue != 4900 || byMonth["Jul"].Revenue != 9900 || byMonth["Aug"].Revenue != 2900 {
		t.Fatalf("unexpected monthly revenue: %+v", stats.MonthlyStats)
	}
}

func TestService_DashboardEmptyOrg(t *testing.T) {
	svc, _ := newTestService(t)

	stats, err := svc.Dashboard(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if stats.TotalClients != 0 || stats.ActiveClients != 0 || stats.TotalRevenue != 0 {
		t.Fatalf("expected zeroed summary, got %+v", stats)
	}
	if len(stats.RecentClients) != 0 {
		t.Fatalf("expected no recent clients, got %d", len(stats.RecentClients))
	}
	if len(stats.MonthlyStats) != dashboardMonthSpan {
		t.Fatalf("expected %d monthly buckets, got %d", dashboardMonthSpan, len(stats.MonthlyStats))
	}
	for _, stat := range stats.MonthlyStats {
		if stat.Clients != 0 || stat.Revenue != 0 {
			t.Fatalf("expected empty bucket, got %+v", stat)
		}
	}
}

func TestService_MetricsClientsDaily(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	orgID := uuid.New()

	seedClient(t, conn, orgID, enums.ClientStatusActive, time.Date(2026, time.August, 3, 8, 0, 0, 0, time.UTC))
	seedClient(t, conn, orgID, enums.ClientStatusActive, time.Date(2026, time.August, 3, 17, 0, 0, 0, time.UTC))
	seedClient(t, conn, orgID, enums.ClientStatusPending, time.Date(2026, time.August, 10, 9, 0, 0, 0, time.UTC))
	// Previous window (Jul 18 - Aug 1) holds two rows for the change baseline.
	seedClient(t, conn, orgID, enums.ClientStatusActive, time.Date(2026, time.July, 20, 9, 0, 0, 0, time.UTC))
	seedClient(t, conn, orgID, enums.ClientStatusActive, time.Date(2026, time.July, 25, 9, 0, 0, 0, time.UTC))

	report, err := svc.Metrics(ctx, orgID, MetricsQuery{
		Type:      "clients",
		Range:     "daily",
		StartDate: "2026-08-01",
		EndDate:   "2026-08-15",
	})
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if report.Type != enums.MetricTypeClients || report.Range != enums.TimeRangeDaily {
		t.Fatalf("unexpected report identity: %s/%s", report.Type, report.Range)
	}
	if report.Total != 3 {
		t.Fatalf("expected total 3, got %d", report.Total)
	}
	if report.Change != 50 {
		t.Fatalf("expected 50%% change, got %v", report.Change)
	}
	if len(report.Data) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(report.Data))
	}
	first := report.Data[0]
	if first.Date != "2026-08-03" || first.Value != 2 || first.Label != "Aug 3" {
		t.Fatalf("unexpected first bucket: %+v", first)
	}
}

func TestService_MetricsRevenueMonthly(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	orgID := uuid.New()

	seedSubscription(t, conn, orgID, enums.SubscriptionStatusActive, 1000, time.Date(2026, time.July, 10, 0, 0, 0, 0, time.UTC))
	seedSubscription(t, conn, orgID, enums.SubscriptionStatusActive, 2000, time.Date(2026, time.August, 5, 0, 0, 0, 0, time.UTC))
	seedSubscription(t, conn, orgID, enums.SubscriptionStatusTrialing, 3000, time.Date(2026, time.August, 10, 0, 0, 0, 0, time.UTC))
	// Lands in the previous window, so it only feeds the change baseline.
	seedSubscription(t, conn, orgID, enums.SubscriptionStatusActive, 2000, time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC))

	report, err := svc.Metrics(ctx, orgID, MetricsQuery{
		Range:     "monthly",
		StartDate: "2026-07-01",
		EndDate:   "2026-09-01",
	})
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if report.Type != enums.MetricTypeRevenue {
		t.Fatalf("expected revenue default, got %s", report.Type)
	}
	if report.Total != 6000 {
		t.Fatalf("expected total 6000, got %d", report.Total)
	}
	if report.Change != 200 {
		t.Fatalf("expected 200%% change, got %v", report.Change)
	}
	if len(report.Data) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(report.Data))
	}
	if report.Data[0].Value != 1000 || report.Data[0].Label != "July 2026" {
		t.Fatalf("unexpected july bucket: %+v", report.Data[0])
	}
	if report.Data[1].Value != 5000 || report.Data[1].Label != "August 2026" {
		t.Fatalf("unexpected august bucket: %+v", report.Data[1])
	}
}

func TestService_MetricsDefaultsAndZeroBaseline(t *testing.T) {
	svc, conn := newTestService(t)
	orgID := uuid.New()

	seedSubscription(t, conn, orgID, enums.SubscriptionStatusActive, 4900, testNow.AddDate(0, 0, -3))

	report, err := svc.Metrics(context.Background(), orgID, MetricsQuery{})
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if report.Type != enums.MetricTypeRevenue || report.Range != enums.TimeRangeMonthly {
		t.Fatalf("unexpected defaults: %s/%s", report.Type, report.Range)
	}
	if report.Total != 4900 {
		t.Fatalf("expected total 4900, got %d", report.Total)
	}
	if report.Change != 100 {
		t.Fatalf("expected 100%% change from empty baseline, got %v", report.Change)
	}
	if len(report.Data) != 1 {
		t.Fatalf("expected single bucket, got %d", len(report.Data))
	}
}

func TestService_MetricsValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	orgID := uuid.New()

	cases := []MetricsQuery{
		{Type: "projects"},
		{Range: "hourly"},
		{StartDate: "2026-08-01"},
		{StartDate: "2026-08-15", EndDate: "2026-08-01"},
		{StartDate: "not-a-date", EndDate: "2026-08-01"},
	}
	for _, query := range cases {
		if _, err := svc.Metrics(ctx, orgID, query); pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for %+v, got %v", query, err)
		}
	}
}
