package enums

import "fmt"

// ClientStatus tracks where a client sits in the relationship lifecycle.
type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "active"
	ClientStatusInactive ClientStatus = "inactive"
	ClientStatusPending  ClientStatus = "pending"
)

var validClientStatuses = []ClientStatus{
	ClientStatusActive,
	ClientStatusInactive,
	ClientStatusPending,
}

func (s ClientStatus) String() string {
	return string(s)
}

func (s ClientStatus) IsValid() bool {
	for _, candidate := range validClientStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseClientStatus converts raw input into a ClientStatus.
func ParseClientStatus(value string) (ClientStatus, error) {
	for _, candidate := range validClientStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid client status %q", value)
}
