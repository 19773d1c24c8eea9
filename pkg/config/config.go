package config

import (
	"os"
	"strconv"

	"querya_backend/pkg/subscription"

	"github.com/joho/godotenv"
)

type Config struct {
	Server ServerConfig
	JWT    JWTConfig
	Stripe StripeConfig
	Quota  QuotaConfig
}

type ServerConfig struct {
	Port   string
	AppURL string
}

type JWTConfig struct {
	Secret string
}

type StripeConfig struct {
	SecretKey      string
	WebhookSecret  string
	ProPriceID     string
	ProYearlyPrice string
}

type QuotaConfig struct {
	FreeDailyLimit int
}

func Load() *Config {
	godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:   getEnv("PORT", "3000"),
			AppURL: getEnv("APP_URL", "http://localhost:3000"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key"),
		},
		Stripe: StripeConfig{
			SecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret:  getEnv("STRIPE_WEBHOOK_SECRET", ""),
			ProPriceID:     getEnv("STRIPE_PRO_PRICE_ID", ""),
			ProYearlyPrice: getEnv("STRIPE_PRO_YEARLY_PRICE_ID", ""),
		},
		Quota: QuotaConfig{
			// Tier limits own the default; the env var is an operator override.
			FreeDailyLimit: getEnvInt("FREE_DAILY_QUERY_LIMIT",
				subscription.GetTierLimits(subscription.TierFree).DailyQueries),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
