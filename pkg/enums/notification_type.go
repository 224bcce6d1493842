package enums

import "fmt"

// NotificationType severities mirror the frontend toast levels.
type NotificationType string

const (
	NotificationTypeInfo    NotificationType = "info"
	NotificationTypeSuccess NotificationType = "success"
	NotificationTypeWarning NotificationType = "warning"
	NotificationTypeError   NotificationType = "error"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeInfo,
	NotificationTypeSuccess,
	NotificationTypeWarning,
	NotificationTypeError,
}

func (n NotificationType) String() string {
	return string(n)
}

func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
