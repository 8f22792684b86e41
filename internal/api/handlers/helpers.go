package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/internal/service"
)

func GetUserID(c *fiber.Ctx) int64 {
	userID, _ := strconv.Atoi(c.Locals("user_id").(string))
	return int64(userID)
}

// RespondError maps service errors to HTTP statuses. Quota and credit
// denials carry their numbers so clients can render remaining capacity.
func RespondError(c *fiber.Ctx, err error) error {
	var quotaErr *service.QuotaError
	if errors.As(err, &quotaErr) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":    quotaErr.Check.Message,
			"category": quotaErr.Category,
			"limit":    quotaErr.Check.Limit,
			"current":  quotaErr.Check.Current,
		})
	}

	var creditErr *service.CreditError
	if errors.As(err, &creditErr) {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error":     creditErr.Error(),
			"required":  creditErr.Required,
			"available": creditErr.Available,
		})
	}

	switch {
	case errors.Is(err, service.ErrPostNotFound),
		errors.Is(err, service.ErrJobNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrAccountNotFound),
		errors.Is(err, service.ErrRuleNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNotOwner):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNotRetryable):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrInsufficientCredits):
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}
