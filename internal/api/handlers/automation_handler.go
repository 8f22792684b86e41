package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/service"
)

type AutomationHandler struct {
	as service.AutomationService
}

func NewAutomationHandler(as service.AutomationService) *AutomationHandler {
	return &AutomationHandler{as: as}
}

func (h *AutomationHandler) CreateRule(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req struct {
		Platform  string `json:"platform"`
		Topic     string `json:"topic"`
		Tone      string `json:"tone"`
		Frequency string `json:"frequency"`
	}
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	rule, err := h.as.CreateRule(c.Context(), userID, &models.AutomationRule{
		Platform:  req.Platform,
		Topic:     req.Topic,
		Tone:      req.Tone,
		Frequency: req.Frequency,
		IsActive:  true,
	})
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(rule)
}

func (h *AutomationHandler) ListRules(c *fiber.Ctx) error {
	userID := GetUserID(c)

	rules, err := h.as.ListRules(c.Context(), userID)
	if err != nil {
		return RespondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(rules)
}

func (h *AutomationHandler) SetRuleActive(c *fiber.Ctx) error {
	userID := GetUserID(c)
	ruleID := c.QueryInt("id", 0)

	var req struct {
		Active bool `json:"active"`
	}
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	if err := h.as.SetRuleActive(c.Context(), userID, int64(ruleID), req.Active); err != nil {
		return RespondError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *AutomationHandler) RemoveRule(c *fiber.Ctx) error {
	userID := GetUserID(c)
	ruleID := c.QueryInt("id", 0)

	if err := h.as.RemoveRule(c.Context(), userID, int64(ruleID)); err != nil {
		return RespondError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}
