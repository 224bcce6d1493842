package reports

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avilaromero/clientpulse-backend/pkg/enums"
	pkgerrors "github.com/avilaromero/clientpulse-backend/pkg/errors"
	"github.com/avilaromero/clientpulse-backend/pkg/logger"
)

const (
	recentClientCount   = 5
	dashboardMonthSpan  = 6
	defaultDailyDays    = 30
	defaultWeeklyDays   = 84
	defaultMonthlySpan  = 12
	metricsDateLayout   = "2006-01-02"
	monthlyStatLayout   = "Jan"
	monthlyBucketLayout = "January 2006"
)

// Service computes org-scoped dashboard and metrics reports.
type Service interface {
	Dashboard(ctx context.Context, orgID uuid.UUID) (*DashboardStats, error)
	Metrics(ctx context.Context, orgID uuid.UUID, query MetricsQuery) (*MetricsReport, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reports repo required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{repo: repo, logg: logg, now: time.Now}, nil
}

func (s *service) Dashboard(ctx context.Context, orgID uuid.UUID) (*DashboardStats, error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org id is required")
	}

	total, err := s.repo.CountClients(ctx, orgID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count clients")
	}
	active, err := s.repo.CountClientsByStatus(ctx, orgID, enums.ClientStatusActive)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active clients")
	}
	revenue, err := s.repo.SumActivePlanAmount(ctx, orgID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum subscription revenue")
	}

	recent, err := s.repo.RecentClients(ctx, orgID, recentClientCount)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list recent clients")
	}
	recentDTOs := make([]RecentClient, 0, len(recent))
	for _, row := range recent {
		recentDTOs = append(recentDTOs, recentClientFromModel(row))
	}

	monthly, err := s.monthlyStats(ctx, orgID)
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		TotalClients:  total,
		ActiveClients: active,
		TotalRevenue:  revenue,
		MonthlyStats:  monthly,
		RecentClients: recentDTOs,
	}, nil
}

// monthlyStats buckets the trailing window by calendar month, zero-filling
// months with no activity so the chart always spans the full window.
func (s *service) monthlyStats(ctx context.Context, orgID uuid.UUID) ([]MonthlyStat, error) {
	now := s.now().UTC()
	start := monthStart(now).AddDate(0, -(dashboardMonthSpan - 1), 0)
	end := now

	created, err := s.repo.ClientCreationTimes(ctx, orgID, start, end)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list client creation times")
	}
	starts, err := s.repo.SubscriptionStarts(ctx, orgID, start, end)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscription starts")
	}

	clientsByMonth := make(map[time.Time]int64)
	for _, ts := range created {
		clientsByMonth[monthStart(ts.UTC())]++
	}
	revenueByMonth := make(map[time.Time]int64)
	for _, event := range starts {
		revenueByMonth[monthStart(event.CreatedAt.UTC())] += event.PlanAmount
	}

	stats := make([]MonthlyStat, 0, dashboardMonthSpan)
	for month := start; !month.After(end); month = month.AddDate(0, 1, 0) {
		stats = append(stats, MonthlyStat{
			Month:   month.Format(monthlyStatLayout),
			Clients: clientsByMonth[month],
			Revenue: revenueByMonth[month],
		})
	}
	return stats, nil
}

func (s *service) Metrics(ctx context.Context, orgID uuid.UUID, query MetricsQuery) (*MetricsReport, error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org id is required")
	}

	metricType := enums.MetricTypeRevenue
	if query.Type != "" {
		parsed, err := enums.ParseMetricType(strings.ToLower(query.Type))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid metric type")
		}
		metricType = parsed
	}

	timeRange := enums.TimeRangeMonthly
	if query.Range != "" {
		parsed, err := enums.ParseTimeRange(strings.ToLower(query.Range))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid time range")
		}
		timeRange = parsed
	}

	start, end, err := s.resolveWindow(timeRange, query.StartDate, query.EndDate)
	if err != nil {
		return nil, err
	}

	var current, previous []revenueEvent
	prevStart := start.Add(-end.Sub(start))
	switch metricType {
	case enums.MetricTypeClients:
		current, err = s.clientEvents(ctx, orgID, start, end)
		if err == nil {
			previous, err = s.clientEvents(ctx, orgID, prevStart, start)
		}
	default:
		current, err = s.repo.SubscriptionStarts(ctx, orgID, start, end)
		if err == nil {
			previous, err = s.repo.SubscriptionStarts(ctx, orgID, prevStart, start)
		}
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load metric series")
	}

	data, total := bucketSeries(current, timeRange)
	var previousTotal int64
	for _, event := range previous {
		previousTotal += event.PlanAmount
	}

	return &MetricsReport{
		Type:      metricType,
		Range:     timeRange,
		Total:     total,
		Change:    percentChange(total, previousTotal),
		Data:      data,
		StartDate: start,
		EndDate:   end,
	}, nil
}

// clientEvents adapts client creation times to unit-weight events so the
// client series shares the revenue bucketing path.
func (s *service) clientEvents(ctx context.Context, orgID uuid.UUID, start, end time.Time) ([]revenueEvent, error) {
	times, err := s.repo.ClientCreationTimes(ctx, orgID, start, end)
	if err != nil {
		return nil, err
	}
	events := make([]revenueEvent, 0, len(times))
	for _, ts := range times {
		events = append(events, revenueEvent{CreatedAt: ts, PlanAmount: 1})
	}
	return events, nil
}

func (s *service) resolveWindow(timeRange enums.TimeRange, rawStart, rawEnd string) (time.Time, time.Time, error) {
	if (rawStart == "") != (rawEnd == "") {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "startDate and endDate must be provided together")
	}
	if rawStart != "" {
		start, err := parseMetricsDate(rawStart)
		if err != nil {
			return time.Time{}, time.Time{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid startDate")
		}
		end, err := parseMetricsDate(rawEnd)
		if err != nil {
			return time.Time{}, time.Time{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid endDate")
		}
		if !end.After(start) {
			return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "endDate must be after startDate")
		}
		return start, end, nil
	}

	end := s.now().UTC()
	switch timeRange {
	case enums.TimeRangeDaily:
		return end.AddDate(0, 0, -defaultDailyDays), end, nil
	case enums.TimeRangeWeekly:
		return end.AddDate(0, 0, -defaultWeeklyDays), end, nil
	default:
		return monthStart(end).AddDate(0, -(defaultMonthlySpan - 1), 0), end, nil
	}
}

func parseMetricsDate(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC(), nil
	}
	ts, err := time.Parse(metricsDateLayout, raw)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}

func bucketSeries(events []revenueEvent, timeRange enums.TimeRange) ([]MetricPoint, int64) {
	buckets := make(map[time.Time]int64)
	var total int64
	for _, event := range events {
		buckets[bucketStart(event.CreatedAt.UTC(), timeRange)] += event.PlanAmount
		total += event.PlanAmount
	}

	keys := make([]time.Time, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	points := make([]MetricPoint, 0, len(keys))
	for _, key := range keys {
		points = append(points, MetricPoint{
			Date:  key.Format(metricsDateLayout),
			Value: buckets[key],
			Label: bucketLabel(key, timeRange),
		})
	}
	return points, total
}

func bucketStart(ts time.Time, timeRange enums.TimeRange) time.Time {
	switch timeRange {
	case enums.TimeRangeDaily:
		return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	case enums.TimeRangeWeekly:
		day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		return day.AddDate(0, 0, -int(day.Weekday()))
	default:
		return monthStart(ts)
	}
}

func bucketLabel(start time.Time, timeRange enums.TimeRange) string {
	switch timeRange {
	case enums.TimeRangeDaily:
		return start.Format("Jan 2")
	case enums.TimeRangeWeekly:
		return "Week of " + start.Format("Jan 2")
	default:
		return start.Format(monthlyBucketLayout)
	}
}

func monthStart(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// percentChange compares the current window's total against the previous
// window of equal length. A zero previous total reports 100% growth when
// the current window has activity.
func percentChange(current, previous int64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	change := (float64(current-previous) / float64(previous)) * 100
	return math.Round(change*100) / 100
}
