package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/avilaromero/clientpulse-backend/api/middleware"
	"github.com/avilaromero/clientpulse-backend/api/responses"
	"github.com/avilaromero/clientpulse-backend/api/validators"
	"github.com/avilaromero/clientpulse-backend/internal/clients"
	pkgerrors "github.com/avilaromero/clientpulse-backend/pkg/errors"
	"github.com/avilaromero/clientpulse-backend/pkg/logger"
)

func clientActor(r *http.Request) (clients.Actor, error) {
	userID, err := userFromRequest(r)
	if err != nil {
		return clients.Actor{}, err
	}
	orgID, err := orgFromRequest(r)
	if err != nil {
		return clients.Actor{}, err
	}
	return clients.Actor{
		UserID: userID,
		OrgID:  orgID,
		Name:   middleware.EmailFromContext(r.Context()),
	}, nil
}

// CreateClient adds a client record to the caller's org.
func CreateClient(svc clients.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "clients service unavailable"))
			return
		}

		actor, err := clientActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body clients.CreateClientRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// ListClients returns the org's clients with pagination, search and sorting.
func ListClients(svc clients.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "clients service unavailable"))
			return
		}

		orgID, err := orgFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := validators.ParseQueryInt(r, "page", 0, 1, 1<<30)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := clients.ListQuery{
			Page:      page,
			Limit:     limit,
			Search:    strings.TrimSpace(r.URL.Query().Get("search")),
			Status:    strings.TrimSpace(r.URL.Query().Get("status")),
			SortBy:    strings.TrimSpace(r.URL.Query().Get("sortBy")),
			SortOrder: strings.TrimSpace(r.URL.Query().Get("sortOrder")),
		}

		resp, err := svc.List(r.Context(), orgID, query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// GetClient returns one client owned by the caller's org.
func GetClient(svc clients.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "clients service unavailable"))
			return
		}

		orgID, err := orgFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		clientID, err := validators.ParsePathUUID(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		client, err := svc.Get(r.Context(), orgID, clientID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, client)
	}
}

// UpdateClient applies a partial update to a client.
func UpdateClient(svc clients.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "clients service unavailable"))
			return
		}

		actor, err := clientActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		clientID, err := validators.ParsePathUUID(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body clients.UpdateClientRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), actor, clientID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// DeleteClient removes a client owned by the caller's org.
func DeleteClient(svc clients.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "clients service unavailable"))
			return
		}

		orgID, err := orgFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		clientID, err := validators.ParsePathUUID(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), orgID, clientID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

// BulkClientOperation runs delete or update_status over an id list with
// per-id failure accounting.
func BulkClientOperation(svc clients.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "clients service unavailable"))
			return
		}

		actor, err := clientActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body clients.BulkOperationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.BulkOperation(r.Context(), actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CreateClientNote records a note on a client with author attribution.
func CreateClientNote(svc clients.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "clients service unavailable"))
			return
		}

		actor, err := clientActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		clientID, err := validators.ParsePathUUID(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body clients.CreateNoteRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		note, err := svc.AddNote(r.Context(), actor, clientID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, note)
	}
}

// ListClientNotes returns a client's notes, newest first.
func ListClientNotes(svc clients.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "clients service unavailable"))
			return
		}

		orgID, err := orgFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		clientID, err := validators.ParsePathUUID(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		notes, err := svc.ListNotes(r.Context(), orgID, clientID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, notes)
	}
}

// ListClientActivity returns a client's recent activity feed.
func ListClientActivity(svc clients.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "clients service unavailable"))
			return
		}

		orgID, err := orgFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		clientID, err := validators.ParsePathUUID(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		activity, err := svc.ListActivity(r.Context(), orgID, clientID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, activity)
	}
}
