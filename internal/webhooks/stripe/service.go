package stripewebhook

import (
	"context"
	"encoding/json"
	"time"

	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/avilaromero/clientpulse-backend/internal/billing"
	"github.com/avilaromero/clientpulse-backend/internal/notifications"
	"github.com/avilaromero/clientpulse-backend/internal/subscriptions"
	"github.com/avilaromero/clientpulse-backend/pkg/db/models"
	"github.com/avilaromero/clientpulse-backend/pkg/enums"
	pkgerrors "github.com/avilaromero/clientpulse-backend/pkg/errors"
	"github.com/avilaromero/clientpulse-backend/pkg/logger"
	"github.com/avilaromero/clientpulse-backend/pkg/metrics"
)

const (
	swallowReasonMissingOrg  = "missing_org_id"
	swallowReasonFetchFailed = "processor_fetch_failed"
	swallowReasonNoSub       = "no_subscription"
	swallowReasonUnknownSub  = "unknown_subscription"
	swallowReasonBadPayload  = "unmappable_payload"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Repo     billing.Repository
	Stripe   subscriptions.StripeBillingClient
	Notifier notifications.Service
	TxRunner txRunner
	Logger   *logger.Logger
	Metrics  *metrics.WebhookMetrics
}

// Service reconciles local subscription state from verified Stripe events.
// Recoverable conditions (attribution gaps, processor read failures on the
// invoice fallback path) are logged and acknowledged; store write and decode
// failures propagate so the processor redelivers.
type Service struct {
	repo     billing.Repository
	stripe   subscriptions.StripeBillingClient
	notifier notifications.Service
	txRunner txRunner
	logg     *logger.Logger
	metrics  *metrics.WebhookMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "billing repo required")
	}
	if params.Stripe == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	if params.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifier required")
	}
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	m := params.Metrics
	if m == nil {
		m = metrics.NewWebhookMetrics(nil)
	}
	return &Service{
		repo:     params.Repo,
		stripe:   params.Stripe,
		notifier: params.Notifier,
		txRunner: params.TxRunner,
		logg:     params.Logger,
		metrics:  m,
	}, nil
}

// HandleEvent routes a verified event to its reconciliation handler. The
// switch is deliberately explicit; unhandled types are acknowledged so the
// processor stops retrying them.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	eventType := string(event.Type)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"stripe_event_id":   event.ID,
		"stripe_event_type": eventType,
	})
	s.metrics.IncReceived(eventType)
	start := time.Now()
	defer func() {
		s.metrics.ObserveDuration(eventType, time.Since(start))
	}()

	var err error
	switch event.Type {
	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated:
		err = s.handleSubscriptionChange(ctx, event)
	case stripe.EventTypeCustomerSubscriptionDeleted:
		err = s.handleSubscriptionDeleted(ctx, event)
	case stripe.EventTypeInvoicePaymentSucceeded:
		err = s.handleInvoice(ctx, event, false)
	case stripe.EventTypeInvoicePaymentFailed:
		err = s.handleInvoice(ctx, event, true)
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCustomerSubscriptionTrialWillEnd,
		stripe.EventTypeInvoiceUpcoming:
		s.logg.Info(ctx, "webhook event acknowledged without action")
	default:
		s.logg.Info(ctx, "ignoring unhandled webhook event type")
	}

	if err != nil {
		s.metrics.IncFailure(eventType)
	}
	return err
}

func (s *Service) handleSubscriptionChange(ctx context.Context, event *stripe.Event) error {
	stripeSub, err := decodeSubscription(event)
	if err != nil {
		return err
	}
	_, err = s.upsertFromSubscription(ctx, string(event.Type), stripeSub)
	return err
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, event *stripe.Event) error {
	stripeSub, err := decodeSubscription(event)
	if err != nil {
		return err
	}

	canceledAt := time.Now().UTC()
	if stripeSub.CanceledAt > 0 {
		canceledAt = time.Unix(stripeSub.CanceledAt, 0).UTC()
	}

	rows, err := s.repo.MarkSubscriptionCanceled(ctx, stripeSub.ID, canceledAt)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark subscription canceled")
	}
	if rows == 0 {
		// Deletion for a subscription we never stored is an idempotent no-op.
		s.logg.Info(s.logg.WithField(ctx, "stripe_subscription_id", stripeSub.ID),
			"cancellation for unknown subscription acknowledged")
		s.metrics.IncSwallowed(string(event.Type), swallowReasonUnknownSub)
	}
	return nil
}

// handleInvoice reconciles indirectly: the invoice names a subscription, the
// full object comes from the processor. When the invoice carries no
// subscription id we fall back to reconciling every subscription on the
// customer. Failures reading from the processor on this path are swallowed.
func (s *Service) handleInvoice(ctx context.Context, event *stripe.Event, paymentFailed bool) error {
	eventType := string(event.Type)

	if subscriptionID := invoiceSubscriptionID(event); subscriptionID != "" {
		ctx := s.logg.WithField(ctx, "stripe_subscription_id", subscriptionID)
		stripeSub, err := s.stripe.GetSubscription(ctx, subscriptionID, &stripe.SubscriptionParams{})
		if err != nil {
			s.logg.Error(ctx, "fetch subscription for invoice event failed; swallowing", err)
			s.metrics.IncSwallowed(eventType, swallowReasonFetchFailed)
			return nil
		}
		record, err := s.upsertFromSubscription(ctx, eventType, stripeSub)
		if err != nil {
			return err
		}
		if paymentFailed && record != nil {
			s.notifyPaymentFailed(ctx, record)
		}
		return nil
	}

	customerID := stringField(event.Data.Object, "customer")
	if customerID == "" {
		s.logg.Warn(ctx, "invoice event without subscription or customer; swallowing")
		s.metrics.IncSwallowed(eventType, swallowReasonNoSub)
		return nil
	}

	ctx = s.logg.WithField(ctx, "stripe_customer_id", customerID)
	subs, err := s.stripe.ListSubscriptionsByCustomer(ctx, customerID)
	if err != nil {
		s.logg.Error(ctx, "list customer subscriptions for invoice event failed; swallowing", err)
		s.metrics.IncSwallowed(eventType, swallowReasonFetchFailed)
		return nil
	}
	if len(subs) == 0 {
		s.logg.Info(ctx, "invoice event for customer without subscriptions acknowledged")
		s.metrics.IncSwallowed(eventType, swallowReasonNoSub)
		return nil
	}

	for _, stripeSub := range subs {
		record, err := s.upsertFromSubscription(ctx, eventType, stripeSub)
		if err != nil {
			return err
		}
		if paymentFailed && record != nil {
			s.notifyPaymentFailed(ctx, record)
		}
	}
	return nil
}

// upsertFromSubscription writes the reconciled record. A nil record with a
// nil error means the event was swallowed (no org attribution).
func (s *Service) upsertFromSubscription(ctx context.Context, eventType string, stripeSub *stripe.Subscription) (*models.Subscription, error) {
	if stripeSub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stripe subscription is nil")
	}
	ctx = s.logg.WithField(ctx, "stripe_subscription_id", stripeSub.ID)

	orgID, metadataErr := subscriptions.OrgIDFromMetadata(stripeSub.Metadata)
	if metadataErr != nil {
		stored, findErr := s.repo.FindSubscriptionByStripeID(ctx, stripeSub.ID)
		if findErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load stored subscription")
		}
		if stored != nil {
			orgID = stored.OrgID
			metadataErr = nil
		}
	}
	if metadataErr != nil {
		s.logg.Warn(ctx, "subscription event has no org attribution; swallowing")
		s.metrics.IncSwallowed(eventType, swallowReasonMissingOrg)
		return nil, nil
	}

	record, err := subscriptions.BuildSubscriptionFromStripe(stripeSub, orgID)
	if err != nil {
		// A payload we cannot map (e.g. a subscription status outside the
		// canonical set) will not improve on redelivery; acknowledge it.
		if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeValidation {
			s.logg.Error(ctx, "subscription payload not mappable; swallowing", err)
			s.metrics.IncSwallowed(eventType, swallowReasonBadPayload)
			return nil, nil
		}
		return nil, err
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).UpsertSubscription(ctx, record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// notifyPaymentFailed records a warning for the owning organization. A
// notification write failure never fails the webhook.
func (s *Service) notifyPaymentFailed(ctx context.Context, record *models.Subscription) {
	err := s.notifier.Notify(ctx, notifications.NotifyParams{
		OrgID:   record.OrgID,
		Type:    enums.NotificationTypeWarning,
		Title:   "Payment failed",
		Message: "We could not collect the latest invoice for your subscription. Please update your payment method.",
		Link:    "/billing",
	})
	if err != nil {
		s.logg.Error(ctx, "record payment failure notification", err)
	}
}

func decodeSubscription(event *stripe.Event) (*stripe.Subscription, error) {
	var stripeSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode subscription event")
	}
	return &stripeSub, nil
}

// invoiceSubscriptionID reads the subscription id off an invoice payload.
// Recent processor API versions moved it under parent.subscription_details;
// older payloads carry it at the top level. Either location may be absent,
// so the lookup walks the raw object itself: stripe-go's GetObjectValue
// panics when asked to descend through a missing key.
func invoiceSubscriptionID(event *stripe.Event) string {
	obj := event.Data.Object
	if id := stringField(obj, "subscription"); id != "" {
		return id
	}
	parent, ok := obj["parent"].(map[string]any)
	if !ok {
		return ""
	}
	details, ok := parent["subscription_details"].(map[string]any)
	if !ok {
		return ""
	}
	return stringField(details, "subscription")
}

// stringField reads a field that may be a plain id or an expanded object.
func stringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return v
	case map[string]any:
		id, _ := v["id"].(string)
		return id
	default:
		return ""
	}
}
