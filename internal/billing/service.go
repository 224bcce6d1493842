package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/avilaromero/clientpulse-backend/internal/subscriptions"
	"github.com/avilaromero/clientpulse-backend/pkg/config"
	"github.com/avilaromero/clientpulse-backend/pkg/db/models"
	pkgerrors "github.com/avilaromero/clientpulse-backend/pkg/errors"
)

// ServiceParams groups dependencies for the billing service.
type ServiceParams struct {
	Repo     Repository
	Stripe   subscriptions.StripeBillingClient
	Frontend config.FrontendConfig
}

// Service creates hosted billing sessions and reads reconciled subscriptions.
type Service struct {
	repo     Repository
	stripe   subscriptions.StripeBillingClient
	frontend config.FrontendConfig
}

// NewService builds a billing service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Stripe == nil {
		return nil, errors.New("stripe client is required")
	}
	return &Service{
		repo:     params.Repo,
		stripe:   params.Stripe,
		frontend: params.Frontend,
	}, nil
}

// CreateCheckoutSessionParams captures a checkout session request.
type CreateCheckoutSessionParams struct {
	OrgID         uuid.UUID
	UserID        uuid.UUID
	PriceID       string
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
}

// CheckoutSessionResult is the hosted page handed back to the frontend.
type CheckoutSessionResult struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// CreateCheckoutSession builds a hosted checkout page for the caller's org.
// The org and user ids ride on the subscription metadata so the webhook
// pipeline can attribute the resulting subscription.
func (s *Service) CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSessionResult, error) {
	if params.OrgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org id is required")
	}
	if strings.TrimSpace(params.PriceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price id is required")
	}

	successURL := params.SuccessURL
	if successURL == "" {
		successURL = s.frontend.BillingURL() + "?checkout=success"
	}
	cancelURL := params.CancelURL
	if cancelURL == "" {
		cancelURL = s.frontend.BillingURL() + "?checkout=canceled"
	}

	metadata := map[string]string{
		subscriptions.MetadataOrgKey: params.OrgID.String(),
		"user_id":                    params.UserID.String(),
	}

	sessionParams := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(params.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
		Metadata: metadata,
	}
	if email := strings.TrimSpace(params.CustomerEmail); email != "" {
		sessionParams.CustomerEmail = stripe.String(email)
	}

	session, err := s.stripe.NewCheckoutSession(ctx, sessionParams)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "create checkout session")
	}

	return &CheckoutSessionResult{SessionID: session.ID, URL: session.URL}, nil
}

// CreatePortalSessionParams captures a customer portal request.
type CreatePortalSessionParams struct {
	CustomerID string
	ReturnURL  string
}

// PortalSessionResult is the hosted portal page URL.
type PortalSessionResult struct {
	URL string `json:"url"`
}

// CreatePortalSession builds a hosted portal page for an existing customer.
func (s *Service) CreatePortalSession(ctx context.Context, params CreatePortalSessionParams) (*PortalSessionResult, error) {
	if strings.TrimSpace(params.CustomerID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}

	returnURL := params.ReturnURL
	if returnURL == "" {
		returnURL = s.frontend.BillingURL()
	}

	session, err := s.stripe.NewPortalSession(ctx, &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(params.CustomerID),
		ReturnURL: stripe.String(returnURL),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "create portal session")
	}

	return &PortalSessionResult{URL: session.URL}, nil
}

// ListSubscriptions returns the reconciled records for the caller's org. An
// org with no subscription history gets an empty slice, never an error.
func (s *Service) ListSubscriptions(ctx context.Context, orgID uuid.UUID) ([]models.Subscription, error) {
	if orgID == uuid.Nil {
		return []models.Subscription{}, nil
	}
	subs, err := s.repo.ListSubscriptionsByOrg(ctx, orgID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscriptions")
	}
	if subs == nil {
		subs = []models.Subscription{}
	}
	return subs, nil
}

// Plan is the DTO for a purchasable price.
type Plan struct {
	PriceID     string `json:"priceId"`
	ProductName string `json:"productName"`
	Description string `json:"description,omitempty"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Interval    string `json:"interval"`
}

// ListPlans returns the active processor prices mapped to plan DTOs.
func (s *Service) ListPlans(ctx context.Context) ([]Plan, error) {
	prices, err := s.stripe.ListActivePrices(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list prices")
	}

	plans := make([]Plan, 0, len(prices))
	for _, price := range prices {
		if price == nil {
			continue
		}
		plan := Plan{
			PriceID:  price.ID,
			Amount:   price.UnitAmount,
			Currency: string(price.Currency),
		}
		if price.Recurring != nil {
			plan.Interval = string(price.Recurring.Interval)
		}
		if price.Product != nil {
			plan.ProductName = price.Product.Name
			plan.Description = price.Product.Description
		}
		if plan.ProductName == "" {
			plan.ProductName = price.Nickname
		}
		if plan.ProductName == "" {
			plan.ProductName = fmt.Sprintf("Plan %s", price.ID)
		}
		plans = append(plans, plan)
	}
	return plans, nil
}
