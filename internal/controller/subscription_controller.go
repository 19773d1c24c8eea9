package controller

import (
	"log"
	"strconv"

	"querya_backend/internal/model"
	"querya_backend/pkg/billing"
	"querya_backend/pkg/config"
	"querya_backend/pkg/database"
	"querya_backend/pkg/email"
	"querya_backend/pkg/subscription"
	"querya_backend/pkg/utils/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v74"
	portalsession "github.com/stripe/stripe-go/v74/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v74/checkout/session"
	"github.com/stripe/stripe-go/v74/webhook"
	"gorm.io/gorm"
)

type CheckoutInput struct {
	PriceID string `json:"price_id" validate:"required"`
}

var (
	stripeConfig           config.StripeConfig
	appURL                 string
	subscriptionReconciler *billing.Reconciler
)

func InitSubscriptionController(cfg *config.Config) {
	stripeConfig = cfg.Stripe
	appURL = cfg.Server.AppURL
	stripe.Key = cfg.Stripe.SecretKey

	var notifier billing.Notifier
	if email.GlobalEmailService != nil {
		notifier = email.GlobalEmailService
	}
	subscriptionReconciler = billing.NewReconciler(
		billing.NewGormStore(database.GetDB()),
		notifier,
	)
}

// CreateCheckoutSession starts a hosted Stripe checkout for the pro plan and
// returns the redirect URL. Our responsibility ends at the redirect; the
// subscription row is written later by the webhook.
func CreateCheckoutSession(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	input := new(CheckoutInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	if input.PriceID != stripeConfig.ProPriceID && input.PriceID != stripeConfig.ProYearlyPrice {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid price ID",
		})
	}

	params := &stripe.CheckoutSessionParams{
		CustomerEmail: stripe.String(claims.Email),
		Mode:          stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(input.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(appURL + "/api/subscriptions/payment-success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(appURL + "/api/subscriptions/payment-cancelled"),
	}
	params.AddMetadata("userId", strconv.FormatUint(uint64(claims.UserID), 10))
	params.SetIdempotencyKey(uuid.NewString())

	session, err := checkoutsession.New(params)
	if err != nil {
		log.Printf("Could not create checkout session: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create checkout session",
		})
	}

	return c.JSON(fiber.Map{
		"url": session.URL,
	})
}

// CreateBillingPortalSession returns a Stripe billing portal URL for users
// who already have a customer record.
func CreateBillingPortalSession(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var sub model.Subscription
	err := database.GetDB().Where("user_id = ?", claims.UserID).First(&sub).Error
	if err != nil || sub.StripeCustomerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No subscription found",
		})
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(sub.StripeCustomerID),
		ReturnURL: stripe.String(appURL + "/account"),
	}

	session, err := portalsession.New(params)
	if err != nil {
		log.Printf("Could not create portal session: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create portal session",
		})
	}

	return c.JSON(fiber.Map{
		"url": session.URL,
	})
}

// GetMySubscription returns the caller's tier and status. Users with no
// subscription row are implicitly on the free tier.
func GetMySubscription(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var sub model.Subscription
	if err := database.GetDB().Where("user_id = ?", claims.UserID).First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.JSON(fiber.Map{
				"tier":   subscription.TierFree,
				"status": nil,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch subscription",
		})
	}

	return c.JSON(fiber.Map{
		"tier":   sub.Tier,
		"status": sub.Status,
		"pro":    subscription.IsEntitled(subscription.Tier(sub.Tier), subscription.Status(sub.Status)),
	})
}

func HandleSubscriptionSuccess(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Payment successful. Your subscription will be active shortly.",
	})
}

func HandleSubscriptionCancel(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Checkout cancelled.",
	})
}

// HandleStripeWebhook verifies the event signature, normalizes the payload
// and hands it to the reconciler. A 2xx acknowledges the delivery; anything
// else makes Stripe redeliver.
func HandleStripeWebhook(c *fiber.Ctx) error {
	payload := c.Body()
	signatureHeader := c.Get("Stripe-Signature")

	stripeEvent, err := webhook.ConstructEvent(payload, signatureHeader, stripeConfig.WebhookSecret)
	if err != nil {
		log.Printf("Webhook signature verification failed: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook signature",
		})
	}

	event, err := billing.ParseStripeEvent(stripeEvent)
	if err != nil {
		log.Printf("Malformed webhook payload for %s: %v", stripeEvent.Type, err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Malformed event payload",
		})
	}

	if err := subscriptionReconciler.Apply(event); err != nil {
		// Non-2xx so Stripe retries once the store is reachable again.
		log.Printf("Could not apply %s event: %v", event.Kind, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not process event",
		})
	}

	return c.JSON(fiber.Map{
		"received": true,
	})
}
