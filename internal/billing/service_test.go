package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/avilaromero/clientpulse-backend/pkg/config"
	"github.com/avilaromero/clientpulse-backend/pkg/db/models"
	pkgerrors "github.com/avilaromero/clientpulse-backend/pkg/errors"
)

type stubRepo struct {
	subsByOrg map[uuid.UUID][]models.Subscription
	listErr   error
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }
func (s *stubRepo) UpsertSubscription(ctx context.Context, subscription *models.Subscription) error {
	return nil
}
func (s *stubRepo) MarkSubscriptionCanceled(ctx context.Context, stripeSubscriptionID string, canceledAt time.Time) (int64, error) {
	return 0, nil
}
func (s *stubRepo) FindSubscriptionByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error) {
	return nil, nil
}
func (s *stubRepo) ListSubscriptionsByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Subscription, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.subsByOrg[orgID], nil
}

type stubStripeClient struct {
	checkoutParams *stripe.CheckoutSessionParams
	checkoutErr    error
	portalParams   *stripe.BillingPortalSessionParams
	prices         []*stripe.Price
	pricesErr      error
}

func (s *stubStripeClient) GetSubscription(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	return nil, nil
}
func (s *stubStripeClient) ListSubscriptionsByCustomer(ctx context.Context, customerID string) ([]*stripe.Subscription, error) {
	return nil, nil
}
func (s *stubStripeClient) NewCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if s.checkoutErr != nil {
		return nil, s.checkoutErr
	}
	s.checkoutParams = params
	return &stripe.CheckoutSession{ID: "cs_123", URL: "https://checkout.stripe.com/pay/cs_123"}, nil
}
func (s *stubStripeClient) NewPortalSession(ctx context.Context, params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
	s.portalParams = params
	return &stripe.BillingPortalSession{URL: "https://billing.stripe.com/session/xyz"}, nil
}
func (s *stubStripeClient) ListActivePrices(ctx context.Context) ([]*stripe.Price, error) {
	if s.pricesErr != nil {
		return nil, s.pricesErr
	}
	return s.prices, nil
}

func newTestService(t *testing.T, repo Repository, client *stubStripeClient) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Stripe:   client,
		Frontend: config.FrontendConfig{BaseURL: "https://app.clientpulse.io"},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestCreateCheckoutSession_AttachesOrgMetadata(t *testing.T) {
	client := &stubStripeClient{}
	svc := newTestService(t, &stubRepo{}, client)
	orgID := uuid.New()
	userID := uuid.New()

	result, err := svc.CreateCheckoutSession(context.Background(), CreateCheckoutSessionParams{
		OrgID:   orgID,
		UserID:  userID,
		PriceID: "price_123",
	})
	if err != nil {
		t.Fatalf("create checkout session: %v", err)
	}
	if result.URL == "" || result.SessionID != "cs_123" {
		t.Fatalf("unexpected result %+v", result)
	}

	params := client.checkoutParams
	if params == nil || params.SubscriptionData == nil {
		t.Fatal("expected subscription data on checkout params")
	}
	if params.SubscriptionData.Metadata["org_id"] != orgID.String() {
		t.Fatalf("org_id metadata missing: %v", params.SubscriptionData.Metadata)
	}
	if params.SubscriptionData.Metadata["user_id"] != userID.String() {
		t.Fatalf("user_id metadata missing: %v", params.SubscriptionData.Metadata)
	}
	if *params.SuccessURL != "https://app.clientpulse.io/billing?checkout=success" {
		t.Fatalf("unexpected success url %s", *params.SuccessURL)
	}
	if *params.CancelURL != "https://app.clientpulse.io/billing?checkout=canceled" {
		t.Fatalf("unexpected cancel url %s", *params.CancelURL)
	}
}

func TestCreateCheckoutSession_Validation(t *testing.T) {
	svc := newTestService(t, &stubRepo{}, &stubStripeClient{})

	_, err := svc.CreateCheckoutSession(context.Background(), CreateCheckoutSessionParams{PriceID: "price_123"})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for missing org, got %v", err)
	}

	_, err = svc.CreateCheckoutSession(context.Background(), CreateCheckoutSessionParams{OrgID: uuid.New()})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for missing price, got %v", err)
	}
}

func TestCreatePortalSession(t *testing.T) {
	client := &stubStripeClient{}
	svc := newTestService(t, &stubRepo{}, client)

	result, err := svc.CreatePortalSession(context.Background(), CreatePortalSessionParams{CustomerID: "cus_123"})
	if err != nil {
		t.Fatalf("create portal session: %v", err)
	}
	if result.URL == "" {
		t.Fatal("expected portal url")
	}
	if *client.portalParams.ReturnURL != "https://app.clientpulse.io/billing" {
		t.Fatalf("unexpected return url %s", *client.portalParams.ReturnURL)
	}

	if _, err := svc.CreatePortalSession(context.Background(), CreatePortalSessionParams{}); err == nil {
		t.Fatal("expected validation error for missing customer")
	}
}

func TestListSubscriptions_NoOrgYieldsEmpty(t *testing.T) {
	svc := newTestService(t, &stubRepo{}, &stubStripeClient{})

	subs, err := svc.ListSubscriptions(context.Background(), uuid.Nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subs == nil || len(subs) != 0 {
		t.Fatalf("expected empty slice, got %v", subs)
	}
}

func TestListPlans_MapsPrices(t *testing.T) {
	client := &stubStripeClient{
		prices: []*stripe.Price{
			{
				ID:         "price_pro",
				UnitAmount: 9900,
				Currency:   stripe.CurrencyUSD,
				Recurring:  &stripe.PriceRecurring{Interval: stripe.PriceRecurringIntervalMonth},
				Product:    &stripe.Product{Name: "Pro", Description: "For growing teams"},
			},
			{
				ID:         "price_basic",
				UnitAmount: 2900,
				Currency:   stripe.CurrencyUSD,
				Nickname:   "Basic",
			},
		},
	}
	svc := newTestService(t, &stubRepo{}, client)

	plans, err := svc.ListPlans(context.Background())
	if err != nil {
		t.Fatalf("list plans: %v", err)
	}
	if len(plans) != 2 {
		t.Fatalf("expected 2 plans, got %d", len(plans))
	}
	if plans[0].ProductName != "Pro" || plans[0].Interval != "month" {
		t.Fatalf("unexpected plan %+v", plans[0])
	}
	if plans[1].ProductName != "Basic" {
		t.Fatalf("nickname fallback not applied: %+v", plans[1])
	}
}
