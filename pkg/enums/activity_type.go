package enums

import "fmt"

// ActivityType labels entries on a client's activity feed.
type ActivityType string

const (
	ActivityTypeClientCreated ActivityType = "client_created"
	ActivityTypeClientUpdated ActivityType = "client_updated"
	ActivityTypeStatusChanged ActivityType = "status_changed"
	ActivityTypeNoteAdded     ActivityType = "note_added"
)

var validActivityTypes = []ActivityType{
	ActivityTypeClientCreated,
	ActivityTypeClientUpdated,
	ActivityTypeStatusChanged,
	ActivityTypeNoteAdded,
}

func (a ActivityType) String() string {
	return string(a)
}

func (a ActivityType) IsValid() bool {
	for _, candidate := range validActivityTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseActivityType converts raw input into an ActivityType.
func ParseActivityType(value string) (ActivityType, error) {
	for _, candidate := range validActivityTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid activity type %q", value)
}
