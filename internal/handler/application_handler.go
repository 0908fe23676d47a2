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

// ApplicationHandler manages applicant-side endpoints.
type ApplicationHandler struct {
	applications service.ApplicationService
	lookup       service.LookupService
	validator    *validator.Validate
	logger       zerolog.Logger
}

// NewApplicationHandler builds an application handler instance.
func NewApplicationHandler(applications service.ApplicationService, lookup service.LookupService, validator *validator.Validate, logger zerolog.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		applications: applications,
		lookup:       lookup,
		validator:    validator,
		logger:       logger.With().Str("component", "application_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ApplicationHandler) Register(router fiber.Router) {
	router.Post("", h.open)
	router.Get("/lookup", h.lookupApplication)
	router.Get("/:id", h.get)
	router.Post("/:id/submit", h.submit)
}

func (h *ApplicationHandler) open(c *fiber.Ctx) error {
	var payload dto.ApplicationOpenRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	// Applicants can only open applications for themselves.
	if userID := userIDFromContext(c); userID != "" {
		payload.UserID = userID
	}

	application, err := h.applications.Open(c.Context(), payload)
	if err != nil {
		if errors.Is(err, service.ErrApplicationActive) {
			return utils.SendSuccessWithStatus(c, fiber.StatusConflict, "an application is already in progress", application)
		}
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "application opened", application)
}

func (h *ApplicationHandler) submit(c *fiber.Ctx) error {
	var payload dto.ApplicationSubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	application, err := h.applications.Submit(c.Context(), c.Params("id"), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "application submitted", application)
}

func (h *ApplicationHandler) get(c *fiber.Ctx) error {
	application, err := h.applications.Get(c.Context(), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "application retrieved", application)
}

func (h *ApplicationHandler) lookupApplication(c *fiber.Ctx) error {
	req := dto.LookupRequest{
		GuildID:   c.Query("guild_id"),
		ShortCode: c.Query("short_code"),
		UserID:    c.Query("user_id"),
		RawID:     c.Query("id"),
	}

	application, err := h.lookup.Resolve(c.Context(), req)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "application resolved", dto.NewApplicationResponse(application))
}

func (h *ApplicationHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	var notEligible service.NotEligibleError
	var invalidAnswers service.InvalidAnswersError
	var cooldown service.ReapplyCooldownError

	switch {
	case errors.Is(err, service.ErrApplicationNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "application not found")
	case errors.Is(err, service.ErrAmbiguousLookup):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrMalformedLookupID):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotSubmittable):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.As(err, &notEligible):
		return utils.SendError(c, fiber.StatusConflict, notEligible.Error())
	case errors.As(err, &invalidAnswers):
		return utils.SendError(c, fiber.StatusBadRequest, invalidAnswers.Error())
	case errors.As(err, &cooldown):
		return utils.SendError(c, fiber.StatusConflict, cooldown.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
