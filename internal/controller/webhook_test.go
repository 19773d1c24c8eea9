package controller

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"querya_backend/internal/model"
	"querya_backend/pkg/billing"
	"querya_backend/pkg/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74/webhook"
)

const testWebhookSecret = "whsec_test_secret"

type memorySubscriptionStore struct {
	rows map[uint]*model.Subscription
}

func newMemorySubscriptionStore() *memorySubscriptionStore {
	return &memorySubscriptionStore{rows: make(map[uint]*model.Subscription)}
}

func (s *memorySubscriptionStore) UpsertByUserID(sub *model.Subscription) error {
	clone := *sub
	s.rows[sub.UserID] = &clone
	return nil
}

func (s *memorySubscriptionStore) FindByCustomerID(customerID string) (*model.Subscription, error) {
	for _, sub := range s.rows {
		if sub.StripeCustomerID == customerID {
			return sub, nil
		}
	}
	return nil, nil
}

func (s *memorySubscriptionStore) FindBySubscriptionID(subscriptionID string) (*model.Subscription, error) {
	for _, sub := range s.rows {
		if sub.StripeSubscriptionID == subscriptionID {
			return sub, nil
		}
	}
	return nil, nil
}

func (s *memorySubscriptionStore) Update(sub *model.Subscription) error {
	s.rows[sub.UserID] = sub
	return nil
}

func newWebhookTestApp(store billing.Store) *fiber.App {
	stripeConfig = config.StripeConfig{WebhookSecret: testWebhookSecret}
	subscriptionReconciler = billing.NewReconciler(store, nil)

	app := fiber.New()
	app.Post("/api/webhook", HandleStripeWebhook)
	return app
}

func signedWebhookRequest(t *testing.T, payload string, secret string) *http.Request {
	t.Helper()

	now := time.Now()
	signature := webhook.ComputeSignature(now, []byte(payload), secret)
	header := fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(signature))

	req := httptest.NewRequest(http.MethodPost, "/api/webhook", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", header)
	return req
}

func TestWebhookRejectsTamperedSignature(t *testing.T) {
	store := newMemorySubscriptionStore()
	app := newWebhookTestApp(store)

	payload := `{"api_version":"2022-11-15","type":"checkout.session.completed","data":{"object":{"customer":"cus_1","subscription":"sub_1","metadata":{"userId":"42"}}}}`
	req := signedWebhookRequest(t, payload, "whsec_wrong_secret")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, store.rows, "no row may be touched on signature failure")
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	store := newMemorySubscriptionStore()
	app := newWebhookTestApp(store)

	req := httptest.NewRequest(http.MethodPost, "/api/webhook", bytes.NewBufferString(`{}`))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebhookAppliesCheckoutCompleted(t *testing.T) {
	store := newMemorySubscriptionStore()
	app := newWebhookTestApp(store)

	payload := `{"api_version":"2022-11-15","type":"checkout.session.completed","data":{"object":{"customer":"cus_1","subscription":"sub_1","metadata":{"userId":"42"}}}}`
	resp, err := app.Test(signedWebhookRequest(t, payload, testWebhookSecret), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"received":true}`, string(body))

	sub := store.rows[42]
	require.NotNil(t, sub)
	assert.Equal(t, "pro", sub.Tier)
	assert.Equal(t, "active", sub.Status)
}

func TestWebhookAcknowledgesUnknownEventTypes(t *testing.T) {
	store := newMemorySubscriptionStore()
	app := newWebhookTestApp(store)

	payload := `{"api_version":"2022-11-15","type":"customer.created","data":{"object":{"id":"cus_1"}}}`
	resp, err := app.Test(signedWebhookRequest(t, payload, testWebhookSecret), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, store.rows)
}

type failingSubscriptionStore struct{}

func (failingSubscriptionStore) UpsertByUserID(*model.Subscription) error {
	return errors.New("store unavailable")
}

func (failingSubscriptionStore) FindByCustomerID(string) (*model.Subscription, error) {
	return nil, errors.New("store unavailable")
}

func (failingSubscriptionStore) FindBySubscriptionID(string) (*model.Subscription, error) {
	return nil, errors.New("store unavailable")
}

func (failingSubscriptionStore) Update(*model.Subscription) error {
	return errors.New("store unavailable")
}

func TestWebhookStoreFailureReturns500SoStripeRetries(t *testing.T) {
	app := newWebhookTestApp(failingSubscriptionStore{})

	payload := `{"api_version":"2022-11-15","type":"customer.subscription.updated","data":{"object":{"id":"sub_1","customer":"cus_1","status":"active"}}}`
	resp, err := app.Test(signedWebhookRequest(t, payload, testWebhookSecret), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode,
		"a store failure must not be acknowledged")
}

func TestWebhookSubscriptionUpdatedFlow(t *testing.T) {
	store := newMemorySubscriptionStore()
	store.rows[42] = &model.Subscription{
		UserID:               42,
		StripeCustomerID:     "cus_1",
		StripeSubscriptionID: "sub_1",
		Tier:                 "pro",
		Status:               "active",
	}
	app := newWebhookTestApp(store)

	payload := `{"api_version":"2022-11-15","type":"customer.subscription.updated","data":{"object":{"id":"sub_1","customer":"cus_1","status":"past_due"}}}`
	resp, err := app.Test(signedWebhookRequest(t, payload, testWebhookSecret), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "past_due", store.rows[42].Status)
	assert.Equal(t, "free", store.rows[42].Tier)
}
