package enums

import "fmt"

// MetricType selects which report series is computed.
type MetricType string

const (
	MetricTypeRevenue MetricType = "revenue"
	MetricTypeClients MetricType = "clients"
)

var validMetricTypes = []MetricType{
	MetricTypeRevenue,
	MetricTypeClients,
}

func (m MetricType) String() string {
	return string(m)
}

func (m MetricType) IsValid() bool {
	for _, candidate := range validMetricTypes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMetricType converts raw input into a MetricType.
func ParseMetricType(value string) (MetricType, error) {
	for _, candidate := range validMetricTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid metric type %q", value)
}

// TimeRange buckets report series by calendar unit.
type TimeRange string

const (
	TimeRangeDaily   TimeRange = "daily"
	TimeRangeWeekly  TimeRange = "weekly"
	TimeRangeMonthly TimeRange = "monthly"
)

var validTimeRanges = []TimeRange{
	TimeRangeDaily,
	TimeRangeWeekly,
	TimeRangeMonthly,
}

func (r TimeRange) String() string {
	return string(r)
}

func (r TimeRange) IsValid() bool {
	for _, candidate := range validTimeRanges {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseTimeRange converts raw input into a TimeRange.
func ParseTimeRange(value string) (TimeRange, error) {
	for _, candidate := range validTimeRanges {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid time range %q", value)
}
