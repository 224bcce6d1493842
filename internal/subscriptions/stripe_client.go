package subscriptions

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	portalsession "github.com/stripe/stripe-go/v84/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/price"
	"github.com/stripe/stripe-go/v84/subscription"

	pkgstripe "github.com/avilaromero/clientpulse-backend/pkg/stripe"
)

// StripeBillingClient exposes the subset of processor operations the billing
// service and the webhook reconciler need.
type StripeBillingClient interface {
	GetSubscription(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
	ListSubscriptionsByCustomer(ctx context.Context, customerID string) ([]*stripe.Subscription, error)
	NewCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	NewPortalSession(ctx context.Context, params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)
	ListActivePrices(ctx context.Context) ([]*stripe.Price, error)
}

type stripeClientWrapper struct{}

// NewStripeClient wraps the initialized Stripe client so services can be
// tested against a stub.
func NewStripeClient(api *pkgstripe.Client) StripeBillingClient {
	if api == nil {
		return nil
	}
	return &stripeClientWrapper{}
}

func (w *stripeClientWrapper) GetSubscription(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	if params == nil {
		params = &stripe.SubscriptionParams{}
	}
	params.Context = ctx
	return subscription.Get(id, params)
}

func (w *stripeClientWrapper) ListSubscriptionsByCustomer(ctx context.Context, customerID string) ([]*stripe.Subscription, error) {
	params := &stripe.SubscriptionListParams{Customer: stripe.String(customerID)}
	params.Context = ctx
	iter := subscription.List(params)

	var subs []*stripe.Subscription
	for iter.Next() {
		subs = append(subs, iter.Subscription())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}

func (w *stripeClientWrapper) NewCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if params == nil {
		params = &stripe.CheckoutSessionParams{}
	}
	params.Context = ctx
	return checkoutsession.New(params)
}

func (w *stripeClientWrapper) NewPortalSession(ctx context.Context, params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
	if params == nil {
		params = &stripe.BillingPortalSessionParams{}
	}
	params.Context = ctx
	return portalsession.New(params)
}

func (w *stripeClientWrapper) ListActivePrices(ctx context.Context) ([]*stripe.Price, error) {
	params := &stripe.PriceListParams{Active: stripe.Bool(true)}
	params.Context = ctx
	params.AddExpand("data.product")
	iter := price.List(params)

	var prices []*stripe.Price
	for iter.Next() {
		prices = append(prices, iter.Price())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return prices, nil
}
