package middleware

import (
	"strings"

	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdminRequired admits a request when either:
// 1. the caller's email or id is in the configured admin lists
// 2. the caller's user row has the admin role
// On success it sets the "is_admin" local read by IsAdmin.
func AdminRequired(db *gorm.DB, cfg *config.Config) fiber.Handler {
	adminEmails := parseCSV(cfg.AdminEmails)
	adminUserIDs := parseCSV(cfg.AdminUserIDs)

	return func(c *fiber.Ctx) error {
		claims, err := getClaims(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		email, _ := claims["email"].(string)
		sub, _ := claims["sub"].(string)

		// Check config-based admin lists
		if contains(adminEmails, email) || contains(adminUserIDs, sub) {
			c.Locals("is_admin", true)
			return c.Next()
		}

		// Check DB-based role; the token's role claim may be stale.
		if userID, err := uuid.Parse(sub); err == nil {
			var user models.User
			if err := db.WithContext(c.UserContext()).First(&user, "id = ?", userID).Error; err == nil {
				if user.Role == models.RoleAdmin && user.IsActive {
					c.Locals("is_admin", true)
					return c.Next()
				}
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Admin access required",
		})
	}
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
