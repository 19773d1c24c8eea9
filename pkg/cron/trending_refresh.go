package cron

import (
	"log"

	"querya_backend/pkg/trending"

	"github.com/robfig/cron/v3"
)

// InitTrendingRefreshCron warms the trending cache and keeps it fresh on an
// hourly schedule.
func InitTrendingRefreshCron(service *trending.Service) {
	if err := service.Refresh(); err != nil {
		log.Printf("Initial trending refresh failed: %v", err)
	}

	c := cron.New()

	_, err := c.AddFunc("0 * * * *", func() {
		if err := service.Refresh(); err != nil {
			log.Printf("Trending refresh failed: %v", err)
		}
	})

	if err != nil {
		log.Printf("Could not initialize trending refresh cron: %v", err)
		return
	}

	c.Start()
}
