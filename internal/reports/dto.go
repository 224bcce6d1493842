package reports

import (
	"time"

	"github.com/google/uuid"

	"github.com/avilaromero/clientpulse-backend/pkg/db/models"
	"github.com/avilaromero/clientpulse-backend/pkg/enums"
)

// DashboardStats is the aggregate view shown on the org landing page.
type DashboardStats struct {
	TotalClients  int64          `json:"total_clients"`
	ActiveClients int64          `json:"active_clients"`
	TotalRevenue  int64          `json:"total_revenue"`
	MonthlyStats  []MonthlyStat  `json:"monthly_stats"`
	RecentClients []RecentClient `json:"recent_clients"`
}

// MonthlyStat is one calendar month of client and revenue activity.
type MonthlyStat struct {
	Month   string `json:"month"`
	Clients int64  `json:"clients"`
	Revenue int64  `json:"revenue"`
}

// RecentClient is the trimmed client row embedded in dashboard responses.
type RecentClient struct {
	ID        uuid.UUID          `json:"id"`
	Name      string             `json:"name"`
	Email     string             `json:"email"`
	Status    enums.ClientStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
}

func recentClientFromModel(m models.Client) RecentClient {
	return RecentClient{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Status:    m.Status,
		CreatedAt: m.CreatedAt,
	}
}

// MetricsQuery carries the raw metrics parameters from the controller.
// Type defaults to revenue and Range to monthly when left empty; StartDate
// and EndDate must be provided together or not at all.
type MetricsQuery struct {
	Type      string
	Range     string
	StartDate string
	EndDate   string
}

// MetricPoint is one bucket of a metrics time series.
type MetricPoint struct {
	Date  string `json:"date"`
	Value int64  `json:"value"`
	Label string `json:"label"`
}

// MetricsReport is a bucketed time series with period-over-period change.
type MetricsReport struct {
	Type      enums.MetricType `json:"type"`
	Range     enums.TimeRange  `json:"range"`
	Total     int64            `json:"total"`
	Change    float64          `json:"change"`
	Data      []MetricPoint    `json:"data"`
	StartDate time.Time        `json:"start_date"`
	EndDate   time.Time        `json:"end_date"`
}
