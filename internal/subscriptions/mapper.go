package subscriptions

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/avilaromero/clientpulse-backend/pkg/db/models"
	"github.com/avilaromero/clientpulse-backend/pkg/enums"
	pkgerrors "github.com/avilaromero/clientpulse-backend/pkg/errors"
)

// MetadataOrgKey is the subscription metadata key carrying the owning
// organization. The checkout session factory writes it; the webhook
// reconciler reads it back.
const MetadataOrgKey = "org_id"

// BuildSubscriptionFromStripe maps a processor subscription into the
// canonical record written by the reconciler.
func BuildSubscriptionFromStripe(stripeSub *stripe.Subscription, orgID uuid.UUID) (*models.Subscription, error) {
	if stripeSub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stripe subscription is nil")
	}
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org id is required")
	}

	status, err := mapStripeStatus(stripeSub.Status)
	if err != nil {
		return nil, err
	}

	startTS, endTS := periodFromSubscription(stripeSub)
	amount, currency := planFromSubscription(stripeSub)

	record := &models.Subscription{
		OrgID:                orgID,
		StripeSubscriptionID: stripeSub.ID,
		Status:               status,
		PlanAmount:           amount,
		Currency:             currency,
		CurrentPeriodStart:   toTimePtr(startTS),
		CurrentPeriodEnd:     toTime(endTS),
		CancelAtPeriodEnd:    stripeSub.CancelAtPeriodEnd,
		CanceledAt:           toTimePtr(stripeSub.CanceledAt),
	}
	if stripeSub.Customer != nil {
		record.StripeCustomerID = stripeSub.Customer.ID
	}
	if priceID := DeterminePriceID(stripeSub); priceID != "" {
		record.StripePriceID = &priceID
	}
	return record, nil
}

// OrgIDFromMetadata extracts the organization attached to processor metadata.
func OrgIDFromMetadata(metadata map[string]string) (uuid.UUID, error) {
	if metadata == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription metadata is required")
	}
	raw, ok := metadata[MetadataOrgKey]
	if !ok || strings.TrimSpace(raw) == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "org_id missing from metadata")
	}
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid org_id metadata")
	}
	return id, nil
}

// IsActiveStatus reports whether the status keeps the subscription billable.
func IsActiveStatus(status enums.SubscriptionStatus) bool {
	switch status {
	case enums.SubscriptionStatusActive, enums.SubscriptionStatusTrialing, enums.SubscriptionStatusPastDue:
		return true
	default:
		return false
	}
}

// DeterminePriceID returns the price attached to the first subscription item.
func DeterminePriceID(sub *stripe.Subscription) string {
	if sub == nil || sub.Items == nil || len(sub.Items.Data) == 0 {
		return ""
	}
	if sub.Items.Data[0].Price != nil {
		return sub.Items.Data[0].Price.ID
	}
	return ""
}

// mapStripeStatus rejects statuses outside the canonical set (e.g. "paused")
// instead of guessing; collapsing an unknown status to active would count a
// non-billable subscription toward revenue.
func mapStripeStatus(raw stripe.SubscriptionStatus) (enums.SubscriptionStatus, error) {
	parsed, err := enums.ParseSubscriptionStatus(string(raw))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unmapped subscription status")
	}
	return parsed, nil
}

// Billing periods live on subscription items in recent processor API
// versions. The first item is authoritative for single-plan subscriptions.
func periodFromSubscription(sub *stripe.Subscription) (int64, int64) {
	if sub == nil || sub.Items == nil || len(sub.Items.Data) == 0 {
		return 0, 0
	}
	item := sub.Items.Data[0]
	return item.CurrentPeriodStart, item.CurrentPeriodEnd
}

func planFromSubscription(sub *stripe.Subscription) (int64, string) {
	if sub == nil || sub.Items == nil || len(sub.Items.Data) == 0 {
		return 0, "usd"
	}
	price := sub.Items.Data[0].Price
	if price == nil {
		return 0, "usd"
	}
	currency := string(price.Currency)
	if currency == "" {
		currency = "usd"
	}
	return price.UnitAmount, currency
}

func toTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}

func toTimePtr(ts int64) *time.Time {
	if ts == 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}
