package middleware

import (
	"fmt"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	config "github.com/postpilothq/postpilot/configs"
	"github.com/postpilothq/postpilot/internal/service"
	"github.com/postpilothq/postpilot/pkg/utils"
)

type AuthMiddleware struct {
	cfg config.Config
	us  service.UserService
}

func NewAuthMiddleware(cfg config.Config, us service.UserService) *AuthMiddleware {
	return &AuthMiddleware{cfg: cfg, us: us}
}

func (m *AuthMiddleware) AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Cookies(m.cfg.CookieName)
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing session cookie",
			})
		}

		claims, err := utils.ValidateToken(m.cfg.SecretKey, tokenString)
		if err != nil {
			c.Cookie(&fiber.Cookie{
				Name:   m.cfg.CookieName,
				Value:  "",
				Path:   "/",
				MaxAge: -1, // Delete cookie
			})

			log.Printf("Token validation failed: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("user_id", claims.UserID)
		return c.Next()
	}
}

// AdminMiddleware gates admin routes; it runs after AuthMiddleware.
func (m *AuthMiddleware) AdminMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := strconv.ParseInt(fmt.Sprint(c.Locals("user_id")), 10, 64)

		user, err := m.us.GetUserInfo(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unknown user",
			})
		}
		if !user.IsAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Admin access required",
			})
		}
		return c.Next()
	}
}
