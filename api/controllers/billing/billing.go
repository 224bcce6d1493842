package billing

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/avilaromero/clientpulse-backend/api/middleware"
	"github.com/avilaromero/clientpulse-backend/api/responses"
	"github.com/avilaromero/clientpulse-backend/api/validators"
	billingsvc "github.com/avilaromero/clientpulse-backend/internal/billing"
	pkgerrors "github.com/avilaromero/clientpulse-backend/pkg/errors"
	"github.com/avilaromero/clientpulse-backend/pkg/logger"
)

type checkoutSessionRequest struct {
	PriceID    string `json:"price_id" validate:"required"`
	SuccessURL string `json:"success_url,omitempty"`
	CancelURL  string `json:"cancel_url,omitempty"`
}

type portalSessionRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
	ReturnURL  string `json:"return_url,omitempty"`
}

// CreateCheckoutSession builds a hosted checkout page for the caller's org.
func CreateCheckoutSession(svc *billingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		orgID, err := uuid.Parse(middleware.OrgIDFromContext(r.Context()))
		if err != nil || orgID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "organization context missing"))
			return
		}

		var body checkoutSessionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateCheckoutSession(r.Context(), billingsvc.CreateCheckoutSessionParams{
			OrgID:         orgID,
			UserID:        userID,
			PriceID:       body.PriceID,
			SuccessURL:    body.SuccessURL,
			CancelURL:     body.CancelURL,
			CustomerEmail: middleware.EmailFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CreatePortalSession builds a hosted billing portal page.
func CreatePortalSession(svc *billingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		var body portalSessionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreatePortalSession(r.Context(), billingsvc.CreatePortalSessionParams{
			CustomerID: body.CustomerID,
			ReturnURL:  body.ReturnURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ListSubscriptions returns the reconciled subscription records for the
// caller's org. A caller with no org linkage gets an empty array.
func ListSubscriptions(svc *billingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		// No org claim is not an error here: the frontend polls this
		// endpoint before onboarding completes.
		orgID, _ := uuid.Parse(middleware.OrgIDFromContext(r.Context()))

		subs, err := svc.ListSubscriptions(r.Context(), orgID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, subs)
	}
}

// ListPlans returns the purchasable prices.
func ListPlans(svc *billingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		plans, err := svc.ListPlans(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, plans)
	}
}
