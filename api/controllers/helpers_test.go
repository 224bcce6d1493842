package controllers

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/avilaromero/clientpulse-backend/api/middleware"
	"github.com/avilaromero/clientpulse-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

// withIdentity seeds the context claims the auth middleware would add.
func withIdentity(req *http.Request, userID, orgID uuid.UUID) *http.Request {
	ctx := middleware.WithUserID(req.Context(), userID.String())
	if orgID != uuid.Nil {
		ctx = middleware.WithOrgID(ctx, orgID.String())
	}
	return req.WithContext(ctx)
}

func assertStatus(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Fatalf("expected status %d, got %d", want, got)
	}
}
