package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/postpilothq/postpilot/internal/service"
)

type AdminHandler struct {
	as service.AdminService
}

func NewAdminHandler(as service.AdminService) *AdminHandler {
	return &AdminHandler{as: as}
}

func (h *AdminHandler) ListJobs(c *fiber.Ctx) error {
	status := c.Query("status")
	limit := c.QueryInt("limit", 100)

	jobs, err := h.as.ListJobs(c.Context(), status, limit)
	if err != nil {
		return RespondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(jobs)
}

func (h *AdminHandler) RetryJob(c *fiber.Ctx) error {
	jobID := c.Params("id")
	if jobID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing job id",
		})
	}

	if err := h.as.RetryJob(c.Context(), jobID); err != nil {
		return RespondError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *AdminHandler) AdjustCredits(c *fiber.Ctx) error {
	var req struct {
		UserID int64 `json:"user_id"`
		Amount int   `json:"amount"`
	}
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	// Positive amounts grant, negative amounts deduct.
	var err error
	if req.Amount >= 0 {
		err = h.as.AddCredits(c.Context(), req.UserID, req.Amount)
	} else {
		err = h.as.DeductCredits(c.Context(), req.UserID, -req.Amount)
	}
	if err != nil {
		return RespondError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *AdminHandler) UserReservations(c *fiber.Ctx) error {
	userID := c.QueryInt("user_id", 0)

	reservations, err := h.as.UserReservations(c.Context(), int64(userID))
	if err != nil {
		return RespondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(reservations)
}

func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.as.Stats(c.Context())
	if err != nil {
		return RespondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(stats)
}
