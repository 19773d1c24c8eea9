package billing

// Billing lifecycle events, normalized from the processor's loosely-typed
// webhook payloads into one variant per kind. Fields not carried by a given
// kind stay zero.

type EventKind int

const (
	EventUnknown EventKind = iota
	EventCheckoutCompleted
	EventSubscriptionCreated
	EventSubscriptionUpdated
	EventSubscriptionDeleted
	EventPaymentSucceeded
	EventPaymentFailed
)

func (k EventKind) String() string {
	switch k {
	case EventCheckoutCompleted:
		return "checkout.completed"
	case EventSubscriptionCreated:
		return "subscription.created"
	case EventSubscriptionUpdated:
		return "subscription.updated"
	case EventSubscriptionDeleted:
		return "subscription.deleted"
	case EventPaymentSucceeded:
		return "payment.succeeded"
	case EventPaymentFailed:
		return "payment.failed"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind EventKind

	// Checkout: the user who paid plus both billing identifiers.
	UserID         uint
	CustomerID     string
	SubscriptionID string

	// Subscription lifecycle: the processor's status string, e.g. "active",
	// "trialing", "past_due".
	Status string

	// Payment events: customer email for the failure notice.
	CustomerEmail string
}
