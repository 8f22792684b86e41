package handlers

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	config "github.com/postpilothq/postpilot/configs"
	"github.com/postpilothq/postpilot/internal/service"
	"github.com/postpilothq/postpilot/pkg/utils"
)

type AccountHandler struct {
	as  service.AccountService
	cfg config.Config
}

func NewAccountHandler(as service.AccountService, cfg config.Config) *AccountHandler {
	return &AccountHandler{as: as, cfg: cfg}
}

// ConnectAccount redirects to the platform's consent screen. The state
// parameter is the caller's JWT so the callback can recover the user.
func (h *AccountHandler) ConnectAccount(c *fiber.Ctx) error {
	authURL, err := h.as.AuthURL(c.Params("platform"), c.Query("state"))
	if err != nil {
		return RespondError(c, err)
	}
	return c.Redirect(authURL)
}

func (h *AccountHandler) CallbackHandler(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	platform := c.Params("platform")

	claims, err := utils.ValidateToken(h.cfg.SecretKey, state)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to validate user",
		})
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to validate user",
		})
	}

	if _, err := h.as.Connect(c.Context(), userID, platform, code); err != nil {
		slog.Info("account connection failed", "platform", platform, "error", err.Error())
		return RespondError(c, err)
	}

	redirectURL := fmt.Sprintf("%s/dashboard/accounts", h.cfg.FrontendURL)
	return c.Redirect(redirectURL, fiber.StatusTemporaryRedirect)
}

func (h *AccountHandler) ListAccounts(c *fiber.Ctx) error {
	userID := GetUserID(c)

	accounts, err := h.as.List(c.Context(), userID)
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch connected accounts",
		})
	}
	return c.Status(fiber.StatusOK).JSON(accounts)
}

func (h *AccountHandler) DisconnectAccount(c *fiber.Ctx) error {
	userID := GetUserID(c)
	accountID := c.QueryInt("id", 0)

	if err := h.as.Disconnect(c.Context(), userID, int64(accountID)); err != nil {
		return RespondError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}
