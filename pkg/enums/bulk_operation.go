package enums

import "fmt"

// BulkOperation identifies the mutation applied to a batch of clients.
type BulkOperation string

const (
	BulkOperationDelete       BulkOperation = "delete"
	BulkOperationUpdateStatus BulkOperation = "update_status"
)

var validBulkOperations = []BulkOperation{
	BulkOperationDelete,
	BulkOperationUpdateStatus,
}

func (b BulkOperation) String() string {
	return string(b)
}

func (b BulkOperation) IsValid() bool {
	for _, candidate := range validBulkOperations {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBulkOperation converts raw input into a BulkOperation.
func ParseBulkOperation(value string) (BulkOperation, error) {
	for _, candidate := range validBulkOperations {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bulk operation %q", value)
}
