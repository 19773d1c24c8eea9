package main

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"

	"querya_backend/internal/controller"
	"querya_backend/internal/middleware"
	"querya_backend/internal/model"
	"querya_backend/pkg/config"
	"querya_backend/pkg/cron"
	"querya_backend/pkg/database"
	"querya_backend/pkg/email"
	"querya_backend/pkg/trending"
	"querya_backend/pkg/utils/jwt"
)

func setupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Public routes first: everything registered after the protected group
	// below inherits its auth middleware.

	// Auth Routes
	auth := api.Group("/auth")
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)

	// Stripe webhook (signature-verified, Stripe sends no session token)
	api.Post("/webhook", controller.HandleStripeWebhook)

	// Stripe checkout redirect targets (tokenless browser redirects)
	subscriptions := api.Group("/subscriptions")
	subscriptions.Get("/payment-success", controller.HandleSubscriptionSuccess)
	subscriptions.Get("/payment-cancelled", controller.HandleSubscriptionCancel)

	// Trending feed
	api.Get("/trending", controller.GetTrending)

	// Protected Routes
	protected := api.Group("/", middleware.AuthMiddleware())
	protected.Get("/me", controller.GetMe)

	// Query routes (quota enforced inside the handler)
	query := protected.Group("/query")
	query.Post("/", controller.SubmitQuery)
	query.Get("/remaining", controller.GetRemainingQueries)
	query.Get("/history", controller.GetQueryHistory)

	subProtected := protected.Group("/subscriptions")
	subProtected.Post("/create-checkout-session", controller.CreateCheckoutSession)
	subProtected.Post("/create-portal-session", controller.CreateBillingPortalSession)
	subProtected.Get("/my", controller.GetMySubscription)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	cfg := config.Load()
	jwt.Init(cfg.JWT.Secret)

	if apiKey := os.Getenv("RESEND_API_KEY"); apiKey != "" {
		if err := email.InitEmailService(apiKey); err != nil {
			log.Printf("Could not initialize email service: %v", err)
		}
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set in .env")
	}

	database.InitDB(dbURL)
	err := database.MigrateDatabase(
		&model.User{},
		&model.Subscription{},
		&model.QueryLogEntry{},
	)
	if err != nil {
		log.Printf("Migration warning: %v", err)
	}

	controller.InitQueryController(cfg)
	controller.InitSubscriptionController(cfg)

	trendingService := trending.NewService()
	controller.InitDiscoverController(trendingService)
	cron.InitTrendingRefreshCron(trendingService)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New())

	setupRoutes(app)

	log.Printf("Server is running on port %s", cfg.Server.Port)
	log.Fatal(app.Listen(":" + cfg.Server.Port))
}
