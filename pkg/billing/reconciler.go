// Package billing reconciles asynchronous payment-processor events into the
// single subscription record each user owns. Events are applied with upsert
// semantics keyed by stable billing identifiers, so redelivered events are
// harmless; the last processed event wins when deliveries arrive out of order.
package billing

import (
	"fmt"
	"log"

	"querya_backend/internal/model"
	"querya_backend/pkg/subscription"
)

// Store is the persistence surface the reconciler needs.
type Store interface {
	UpsertByUserID(sub *model.Subscription) error
	FindByCustomerID(customerID string) (*model.Subscription, error)
	FindBySubscriptionID(subscriptionID string) (*model.Subscription, error)
	Update(sub *model.Subscription) error
}

// Notifier surfaces events that mutate nothing but still warrant a signal
// to the user, currently only payment failures.
type Notifier interface {
	NotifyPaymentFailed(email string) error
}

type Reconciler struct {
	store    Store
	notifier Notifier // optional
}

func NewReconciler(store Store, notifier Notifier) *Reconciler {
	return &Reconciler{store: store, notifier: notifier}
}

// Apply folds one verified billing event into the subscription table.
// A nil return acknowledges the event; a non-nil return tells the webhook
// boundary to respond non-2xx so the processor redelivers later.
//
// Events referencing a customer or subscription we have no row for are
// logged and dropped with a nil return: retrying cannot make the row appear.
func (r *Reconciler) Apply(event Event) error {
	switch event.Kind {
	case EventCheckoutCompleted:
		return r.applyCheckoutCompleted(event)
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		return r.applySubscriptionChange(event)
	case EventSubscriptionDeleted:
		return r.applySubscriptionDeleted(event)
	case EventPaymentSucceeded:
		return r.applyPaymentSucceeded(event)
	case EventPaymentFailed:
		log.Printf("billing: payment failed for customer %s", event.CustomerID)
		if r.notifier != nil && event.CustomerEmail != "" {
			if err := r.notifier.NotifyPaymentFailed(event.CustomerEmail); err != nil {
				log.Printf("billing: could not send payment failure notice: %v", err)
			}
		}
		return nil
	default:
		log.Printf("billing: ignoring event kind %s", event.Kind)
		return nil
	}
}

func (r *Reconciler) applyCheckoutCompleted(event Event) error {
	if event.UserID == 0 {
		log.Printf("billing: checkout event without user metadata, dropping")
		return nil
	}

	sub := &model.Subscription{
		UserID:               event.UserID,
		StripeCustomerID:     event.CustomerID,
		StripeSubscriptionID: event.SubscriptionID,
		Tier:                 string(subscription.TierPro),
		Status:               string(subscription.StatusActive),
	}
	if err := r.store.UpsertByUserID(sub); err != nil {
		return fmt.Errorf("billing: could not upsert subscription for user %d: %w", event.UserID, err)
	}
	return nil
}

func (r *Reconciler) applySubscriptionChange(event Event) error {
	sub, err := r.store.FindByCustomerID(event.CustomerID)
	if err != nil {
		return fmt.Errorf("billing: could not look up customer %s: %w", event.CustomerID, err)
	}
	if sub == nil {
		log.Printf("billing: no subscription row for customer %s, dropping %s", event.CustomerID, event.Kind)
		return nil
	}

	sub.Status = event.Status
	sub.Tier = string(subscription.TierForStatus(subscription.Status(event.Status)))
	if event.SubscriptionID != "" {
		sub.StripeSubscriptionID = event.SubscriptionID
	}
	if err := r.store.Update(sub); err != nil {
		return fmt.Errorf("billing: could not update subscription for customer %s: %w", event.CustomerID, err)
	}
	return nil
}

func (r *Reconciler) applySubscriptionDeleted(event Event) error {
	sub, err := r.store.FindBySubscriptionID(event.SubscriptionID)
	if err != nil {
		return fmt.Errorf("billing: could not look up subscription %s: %w", event.SubscriptionID, err)
	}
	if sub == nil {
		log.Printf("billing: no row for subscription %s, dropping delete", event.SubscriptionID)
		return nil
	}

	sub.Status = string(subscription.StatusCanceled)
	sub.Tier = string(subscription.TierFree)
	if err := r.store.Update(sub); err != nil {
		return fmt.Errorf("billing: could not cancel subscription %s: %w", event.SubscriptionID, err)
	}
	return nil
}

func (r *Reconciler) applyPaymentSucceeded(event Event) error {
	if event.SubscriptionID == "" {
		log.Printf("billing: payment succeeded without subscription reference, ignoring")
		return nil
	}

	sub, err := r.store.FindBySubscriptionID(event.SubscriptionID)
	if err != nil {
		return fmt.Errorf("billing: could not look up subscription %s: %w", event.SubscriptionID, err)
	}
	if sub == nil {
		log.Printf("billing: no row for subscription %s, dropping payment event", event.SubscriptionID)
		return nil
	}

	sub.Status = string(subscription.StatusActive)
	if err := r.store.Update(sub); err != nil {
		return fmt.Errorf("billing: could not activate subscription %s: %w", event.SubscriptionID, err)
	}
	return nil
}
