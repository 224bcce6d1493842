package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/avilaromero/clientpulse-backend/api/responses"
	pkgerrors "github.com/avilaromero/clientpulse-backend/pkg/errors"
	"github.com/avilaromero/clientpulse-backend/pkg/logger"
)

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type stripeWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type stripeClient interface {
	SigningSecret() string
}

type receivedResponse struct {
	Received bool `json:"received"`
}

// StripeWebhook verifies and dispatches Stripe event deliveries. The raw
// body is verified against the Stripe-Signature header before anything else
// runs; an unverified payload never reaches the store.
func StripeWebhook(svc StripeWebhookService, client stripeClient, guard stripeWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe client unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		secret := client.SigningSecret()
		if secret == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook signing secret not configured"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}
		if len(payload) == 0 {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "request body required"))
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing"))
			return
		}

		event, err := webhook.ConstructEvent(payload, sigHeader, secret)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stripe signature"))
			return
		}

		alreadyProcessed, err := guard.CheckAndMark(ctx, event.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			responses.WriteSuccess(w, receivedResponse{Received: true})
			return
		}

		// Release the mark on any unsuccessful outcome, panics included,
		// so the processor's redelivery is not swallowed as a duplicate.
		handled := false
		defer func() {
			if handled {
				return
			}
			if delErr := guard.Delete(ctx, event.ID); delErr != nil && logg != nil {
				logg.Error(ctx, "release webhook idempotency mark", delErr)
			}
		}()

		if err := svc.HandleEvent(ctx, &event); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		handled = true

		responses.WriteSuccess(w, receivedResponse{Received: true})
	}
}
