package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/postpilothq/postpilot/internal/service"
)

type GenerationHandler struct {
	gs service.GenerationService
}

func NewGenerationHandler(gs service.GenerationService) *GenerationHandler {
	return &GenerationHandler{gs: gs}
}

func (h *GenerationHandler) GenerateContent(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req struct {
		Topic    string `json:"topic"`
		Platform string `json:"platform"`
		Tone     string `json:"tone"`
		Language string `json:"language"`
	}
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	post, err := h.gs.Generate(c.Context(), userID, service.GenerationParams{
		Topic:    req.Topic,
		Platform: req.Platform,
		Tone:     req.Tone,
		Language: req.Language,
	})
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}
