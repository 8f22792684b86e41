package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/postpilothq/postpilot/internal/service"
	"github.com/postpilothq/postpilot/internal/transfer"
)

type PaymentHandler struct {
	s service.SubscriptionService
}

func NewPaymentHandler(s service.SubscriptionService) *PaymentHandler {
	return &PaymentHandler{s: s}
}

func (h *PaymentHandler) PaymentWebhook(c *fiber.Ctx) error {
	var event transfer.SubscriptionEvent
	if err := c.BodyParser(&event); err != nil {
		slog.Info(err.Error())
		return err
	}

	if err := h.s.HandleSubscription(c.Context(), &event); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
	}

	return c.SendStatus(fiber.StatusOK)
}
