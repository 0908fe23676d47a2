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

// ReviewHandler exposes the staff review pipeline: claims, decisions, the
// queue and the rendered card.
type ReviewHandler struct {
	review    service.ReviewService
	claims    service.ClaimService
	queue     service.QueueService
	cards     service.CardService
	audit     service.AuditService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewReviewHandler builds a review handler instance.
func NewReviewHandler(review service.ReviewService, claims service.ClaimService, queue service.QueueService, cards service.CardService, audit service.AuditService, validator *validator.Validate, logger zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{
		review:    review,
		claims:    claims,
		queue:     queue,
		cards:     cards,
		audit:     audit,
		validator: validator,
		logger:    logger.With().Str("component", "review_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ReviewHandler) Register(router fiber.Router) {
	router.Get("/queue", h.listQueue)
	router.Post("/:id/claim", h.claim)
	router.Delete("/:id/claim", h.unclaim)
	router.Post("/:id/decide", h.decide)
	router.Get("/:id/card", h.card)
	router.Get("/:id/actions", h.actions)
}

func (h *ReviewHandler) claim(c *fiber.Ctx) error {
	claim, err := h.claims.Claim(c.Context(), c.Params("id"), actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "application claimed", claim)
}

func (h *ReviewHandler) unclaim(c *fiber.Ctx) error {
	if err := h.claims.Clear(c.Context(), c.Params("id"), actorFromContext(c)); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "claim released", nil)
}

func (h *ReviewHandler) decide(c *fiber.Ctx) error {
	var payload dto.DecisionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.validator.Struct(payload); err != nil {
		return h.handleError(c, err)
	}

	kind, err := service.ParseDecisionKind(payload.Kind)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	actor := actorFromContext(c)
	applicationID := c.Params("id")

	// The claim guard is advisory; the decision transaction remains the
	// authoritative gate even when this check is bypassed.
	objection, err := h.claims.Guard(c.Context(), applicationID, actor.ID)
	if err != nil {
		return h.handleError(c, err)
	}
	if objection != "" {
		return utils.SendError(c, fiber.StatusConflict, objection)
	}

	decision, err := h.review.Decide(c.Context(), applicationID, kind, actor, payload.Reason)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, decision.Summary, decision)
}

func (h *ReviewHandler) listQueue(c *fiber.Ctx) error {
	guildID := c.Query("guild_id")
	if guildID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "guild_id is required")
	}

	queue, err := h.queue.Queue(c.Context(), guildID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "review queue retrieved", queue)
}

func (h *ReviewHandler) card(c *fiber.Ctx) error {
	card, err := h.cards.Render(c.Context(), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "review card rendered", card)
}

func (h *ReviewHandler) actions(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	actions, err := h.audit.Recent(c.Context(), c.Params("id"), limit)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "review actions retrieved", actions)
}

func (h *ReviewHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	var claimHeld service.ClaimHeldError
	var notEligible service.NotEligibleError

	switch {
	case errors.Is(err, service.ErrApplicationNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "application not found")
	case errors.Is(err, service.ErrReasonRequired):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnknownDecisionKind):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &claimHeld):
		return utils.SendError(c, fiber.StatusConflict, claimHeld.Error())
	case errors.As(err, &notEligible):
		return utils.SendError(c, fiber.StatusConflict, notEligible.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
