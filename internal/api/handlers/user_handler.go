package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/postpilothq/postpilot/internal/service"
)

type UserHandler struct {
	us service.UserService
}

func NewUserHandler(us service.UserService) *UserHandler {
	return &UserHandler{us: us}
}

func (h *UserHandler) GetUserInfo(c *fiber.Ctx) error {
	userID := GetUserID(c)

	user, err := h.us.GetUserInfo(c.Context(), userID)
	if err != nil {
		return RespondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(user)
}
