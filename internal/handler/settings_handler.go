package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gatekeeper-api/internal/dto"
	"github.com/noah-isme/gatekeeper-api/internal/service"
	"github.com/noah-isme/gatekeeper-api/internal/utils"
)

// SettingsHandler manages per-guild admission configuration endpoints.
type SettingsHandler struct {
	settings service.SettingsService
	logger   zerolog.Logger
}

// NewSettingsHandler builds a settings handler instance.
func NewSettingsHandler(settings service.SettingsService, logger zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{
		settings: settings,
		logger:   logger.With().Str("component", "settings_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *SettingsHandler) Register(router fiber.Router) {
	router.Get("/:guildID/settings", h.get)
	router.Put("/:guildID/settings", h.update)
}

func (h *SettingsHandler) get(c *fiber.Ctx) error {
	settings, err := h.settings.Get(c.Context(), c.Params("guildID"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "guild settings retrieved", settings)
}

func (h *SettingsHandler) update(c *fiber.Ctx) error {
	var payload dto.GuildSettingsRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	settings, err := h.settings.Update(c.Context(), c.Params("guildID"), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "guild settings updated", settings)
}

func (h *SettingsHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors

	switch {
	case errors.Is(err, service.ErrInvalidQuestionSchema):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
