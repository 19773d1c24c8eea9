package billing

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v74"
)

// ParseStripeEvent maps a verified Stripe event onto our internal variant.
// Event types we do not act on come back as EventUnknown with a nil error,
// so the webhook handler still acknowledges them. A non-nil error means the
// payload itself was malformed.
func ParseStripeEvent(event stripe.Event) (Event, error) {
	switch event.Type {
	case "checkout.session.completed":
		var session struct {
			Customer     string `json:"customer"`
			Subscription string `json:"subscription"`
			Metadata     struct {
				UserID string `json:"userId"`
			} `json:"metadata"`
		}
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return Event{}, fmt.Errorf("billing: malformed checkout session: %w", err)
		}

		userID, err := strconv.ParseUint(session.Metadata.UserID, 10, 32)
		if err != nil {
			return Event{}, fmt.Errorf("billing: checkout session has bad userId %q: %w", session.Metadata.UserID, err)
		}

		return Event{
			Kind:           EventCheckoutCompleted,
			UserID:         uint(userID),
			CustomerID:     session.Customer,
			SubscriptionID: session.Subscription,
		}, nil

	case "customer.subscription.created", "customer.subscription.updated":
		var sub struct {
			ID       string `json:"id"`
			Customer string `json:"customer"`
			Status   string `json:"status"`
		}
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return Event{}, fmt.Errorf("billing: malformed subscription payload: %w", err)
		}

		kind := EventSubscriptionCreated
		if event.Type == "customer.subscription.updated" {
			kind = EventSubscriptionUpdated
		}

		return Event{
			Kind:           kind,
			CustomerID:     sub.Customer,
			SubscriptionID: sub.ID,
			Status:         sub.Status,
		}, nil

	case "customer.subscription.deleted":
		var sub struct {
			ID       string `json:"id"`
			Customer string `json:"customer"`
		}
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return Event{}, fmt.Errorf("billing: malformed subscription payload: %w", err)
		}

		return Event{
			Kind:           EventSubscriptionDeleted,
			CustomerID:     sub.Customer,
			SubscriptionID: sub.ID,
		}, nil

	case "invoice.payment_succeeded":
		var invoice struct {
			Customer      string `json:"customer"`
			Subscription  string `json:"subscription"`
			CustomerEmail string `json:"customer_email"`
		}
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return Event{}, fmt.Errorf("billing: malformed invoice payload: %w", err)
		}

		return Event{
			Kind:           EventPaymentSucceeded,
			CustomerID:     invoice.Customer,
			SubscriptionID: invoice.Subscription,
			CustomerEmail:  invoice.CustomerEmail,
		}, nil

	case "invoice.payment_failed":
		var invoice struct {
			Customer      string `json:"customer"`
			Subscription  string `json:"subscription"`
			CustomerEmail string `json:"customer_email"`
		}
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return Event{}, fmt.Errorf("billing: malformed invoice payload: %w", err)
		}

		return Event{
			Kind:           EventPaymentFailed,
			CustomerID:     invoice.Customer,
			SubscriptionID: invoice.Subscription,
			CustomerEmail:  invoice.CustomerEmail,
		}, nil

	default:
		return Event{Kind: EventUnknown}, nil
	}
}
