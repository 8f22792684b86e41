package handlers

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/postpilothq/postpilot/internal/service"
	"github.com/postpilothq/postpilot/internal/transfer"
)

type PostHandler struct {
	ps service.PostService
	ss service.ScheduleService
	pb service.PublishService
}

func NewPostHandler(ps service.PostService, ss service.ScheduleService, pb service.PublishService) *PostHandler {
	return &PostHandler{ps: ps, ss: ss, pb: pb}
}

func (h *PostHandler) CreateDraft(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var pc transfer.PostCreation
	if err := c.BodyParser(&pc); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	post, err := h.ps.CreateDraft(c.Context(), userID, &pc)
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)
	status := c.Query("status")

	if postID != 0 {
		post, err := h.ps.PostInfo(c.Context(), int64(postID), userID)
		if err != nil {
			return RespondError(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(post)
	}

	posts, err := h.ps.List(c.Context(), userID, status)
	if err != nil {
		return RespondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	if err := h.ps.Remove(c.Context(), userID, int64(postID)); err != nil {
		return RespondError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) SchedulePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	scheduledDate, err := time.Parse(time.RFC3339, req.ScheduledDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "scheduled_date must be RFC 3339",
		})
	}

	resp, err := h.ss.SchedulePost(c.Context(), userID, req.PostID, scheduledDate)
	if err != nil {
		return RespondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *PostHandler) CancelSchedule(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	if err := h.ss.CancelSchedule(c.Context(), userID, int64(postID)); err != nil {
		return RespondError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) PublishNow(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.PublishRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	resp, err := h.pb.PublishNow(c.Context(), userID, &req)
	if err != nil {
		return RespondError(c, err)
	}

	// Partial results are a first-class response, not an error.
	return c.Status(fiber.StatusOK).JSON(resp)
}
