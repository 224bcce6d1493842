package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/avilaromero/clientpulse-backend/pkg/errors"
)

func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// ParseQueryEnum returns the query value when it appears in allowed, the
// default when absent, and a validation error otherwise.
func ParseQueryEnum(r *http.Request, key, defaultVal string, allowed ...string) (string, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	for _, candidate := range allowed {
		if raw == candidate {
			return raw, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, "query parameter has an unsupported value").
		WithDetails(map[string]any{"field": key, "allowed": allowed})
}

// ParsePathUUID parses a URL parameter already extracted by the router.
func ParsePathUUID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "path parameter must be a valid uuid").
			WithDetails(map[string]any{"field": field})
	}
	return id, nil
}
