package handlers

import (
	"io"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/postpilothq/postpilot/internal/service"
)

type MediaHandler struct {
	ms service.MediaService
}

func NewMediaHandler(ms service.MediaService) *MediaHandler {
	return &MediaHandler{ms: ms}
}

func (h *MediaHandler) UploadImage(c *fiber.Ctx) error {
	userID := GetUserID(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file selected",
		})
	}

	f, err := fileHeader.Open()
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to read file",
		})
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to read file",
		})
	}

	url, err := h.ms.UploadImage(c.Context(), userID, data)
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"url": url,
	})
}
