package controller

import (
	"errors"

	"querya_backend/internal/model"
	"querya_backend/pkg/config"
	"querya_backend/pkg/database"
	"querya_backend/pkg/quota"
	"querya_backend/pkg/utils/jwt"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
)

var quotaEnforcer *quota.Enforcer

func InitQueryController(cfg *config.Config) {
	quotaEnforcer = quota.NewEnforcer(
		quota.NewGormStore(database.GetDB()),
		cfg.Quota.FreeDailyLimit,
	)
}

// SubmitQuery admits or rejects a search query against the user's daily
// quota. Admitted queries are recorded in the query log.
func SubmitQuery(c *fiber.Ctx) error {
	claims, ok := c.Locals("user").(*jwt.Claims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	queryDetails := datatypes.JSON(c.Body())
	if len(queryDetails) == 0 {
		queryDetails = datatypes.JSON([]byte("{}"))
	}

	if err := quotaEnforcer.CheckAndConsume(claims.UserID, queryDetails); err != nil {
		switch {
		case errors.Is(err, quota.ErrUnauthenticated):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		case errors.Is(err, quota.ErrQuotaExceeded):
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "Daily query limit exceeded. Please upgrade to continue.",
				"upgrade": true,
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not process query",
			})
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
	})
}

// GetRemainingQueries reports how many free-tier queries are left today.
// Pro users get remaining=-1 and unlimited=true.
func GetRemainingQueries(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	remaining, err := quotaEnforcer.Remaining(claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch query quota",
		})
	}

	return c.JSON(fiber.Map{
		"remaining": remaining,
		"unlimited": remaining < 0,
	})
}

// GetQueryHistory lists the user's most recent query log entries.
func GetQueryHistory(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var entries []model.QueryLogEntry
	if err := database.GetDB().
		Where("user_id = ?", claims.UserID).
		Order("created_at DESC").
		Limit(50).
		Find(&entries).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch query history",
		})
	}

	return c.JSON(fiber.Map{
		"queries": entries,
	})
}
