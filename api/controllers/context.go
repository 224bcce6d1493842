package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/avilaromero/clientpulse-backend/api/middleware"
	pkgerrors "github.com/avilaromero/clientpulse-backend/pkg/errors"
)

// orgFromRequest resolves the caller's org claim seeded by the auth
// middleware. Routes mounted behind RequireOrg always have it, but the
// controllers still refuse a missing claim rather than trust the mount.
func orgFromRequest(r *http.Request) (uuid.UUID, error) {
	orgID, err := uuid.Parse(middleware.OrgIDFromContext(r.Context()))
	if err != nil || orgID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "organization context missing")
	}
	return orgID, nil
}

func userFromRequest(r *http.Request) (uuid.UUID, error) {
	userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
	if err != nil || userID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return userID, nil
}
