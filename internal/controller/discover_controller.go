package controller

import (
	"querya_backend/pkg/trending"

	"github.com/gofiber/fiber/v2"
)

var trendingService *trending.Service

func InitDiscoverController(service *trending.Service) {
	trendingService = service
}

// GetTrending serves the cached trending-topics feed. The cache is refreshed
// out of band by the cron job, so this handler never blocks on upstream APIs.
func GetTrending(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"items": trendingService.Topics(),
	})
}
