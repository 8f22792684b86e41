package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/postpilothq/postpilot/internal/service"
)

type LimitsHandler struct {
	ls service.LimitsService
}

func NewLimitsHandler(ls service.LimitsService) *LimitsHandler {
	return &LimitsHandler{ls: ls}
}

func (h *LimitsHandler) GetLimits(c *fiber.Ctx) error {
	userID := GetUserID(c)

	overview, err := h.ls.Overview(c.Context(), userID)
	if err != nil {
		return RespondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(overview)
}
