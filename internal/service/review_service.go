package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/gatekeeper-api/internal/dto"
	"github.com/noah-isme/gatekeeper-api/internal/models"
	"github.com/noah-isme/gatekeeper-api/internal/observability"
	"github.com/noah-isme/gatekeeper-api/internal/repository"
)

// DecisionKind is the closed set of terminal decisions a reviewer can take.
// Keeping it a typed constant forces exhaustive switches when a new kind is
// added, instead of scattering string comparisons.
type DecisionKind int

const (
	// DecisionApprove admits the applicant.
	DecisionApprove DecisionKind = iota
	// DecisionReject declines the application.
	DecisionReject
	// DecisionKick declines and removes the applicant from the guild.
	DecisionKick
)

// ErrUnknownDecisionKind indicates an unrecognised decision kind string.
var ErrUnknownDecisionKind = errors.New("unknown decision kind")

// ErrReasonRequired indicates a reject or kick decision without a reason.
var ErrReasonRequired = errors.New("a reason is required for this decision")

// ParseDecisionKind maps the wire representation onto the closed enum.
func ParseDecisionKind(value string) (DecisionKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "approve":
		return DecisionApprove, nil
	case "reject":
		return DecisionReject, nil
	case "kick":
		return DecisionKick, nil
	}
	return DecisionApprove, ErrUnknownDecisionKind
}

func (k DecisionKind) String() string {
	switch k {
	case DecisionApprove:
		return "approve"
	case DecisionReject:
		return "reject"
	case DecisionKick:
		return "kick"
	}
	return "unknown"
}

// TerminalStatus returns the application status this decision writes.
func (k DecisionKind) TerminalStatus() string {
	switch k {
	case DecisionApprove:
		return models.ApplicationStatusApproved
	case DecisionReject:
		return models.ApplicationStatusRejected
	case DecisionKick:
		return models.ApplicationStatusKicked
	}
	return ""
}

// RequiresReason reports whether the decision must carry a reason.
func (k DecisionKind) RequiresReason() bool {
	return k == DecisionReject || k == DecisionKick
}

// QueueInvalidator drops cached review queues after a state change.
type QueueInvalidator interface {
	Invalidate(ctx context.Context, guildID string) error
}

// ReviewService runs the decision pipeline: atomic terminal transition,
// primary audit entry, claim cleanup, then best-effort external effects.
type ReviewService interface {
	Decide(ctx context.Context, applicationID string, kind DecisionKind, actor Actor, reason string) (dto.DecisionResponse, error)
}

type reviewService struct {
	applications repository.ApplicationRepository
	settings     repository.GuildSettingsRepository
	claims       repository.ClaimRepository
	audit        AuditRecorder
	effects      EffectsOrchestrator
	queue        QueueInvalidator
	sanitizer    *bluemonday.Policy
	logger       zerolog.Logger
	tracer       trace.Tracer
	now          func() time.Time
}

// NewReviewService constructs the review decision service.
func NewReviewService(applications repository.ApplicationRepository, settings repository.GuildSettingsRepository, claims repository.ClaimRepository, audit AuditRecorder, effects EffectsOrchestrator, queue QueueInvalidator, logger zerolog.Logger) ReviewService {
	return &reviewService{
		applications: applications,
		settings:     settings,
		claims:       claims,
		audit:        audit,
		effects:      effects,
		queue:        queue,
		sanitizer:    bluemonday.StrictPolicy(),
		logger:       logger.With().Str("component", "review_service").Logger(),
		tracer:       otel.Tracer("github.com/noah-isme/gatekeeper-api/internal/service/review"),
		now:          time.Now,
	}
}

func (s *reviewService) Decide(ctx context.Context, applicationID string, kind DecisionKind, actor Actor, reason string) (dto.DecisionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "review.decide", trace.WithAttributes(
		attribute.String("review.application_id", applicationID),
		attribute.String("review.kind", kind.String()),
		attribute.String("review.actor_id", actor.ID),
	))
	defer span.End()

	reason = strings.TrimSpace(s.sanitizer.Sanitize(reason))
	if kind.RequiresReason() && reason == "" {
		span.SetStatus(codes.Error, "reason_required")
		return dto.DecisionResponse{}, ErrReasonRequired
	}

	result, application, err := s.applications.Resolve(ctx, applicationID, kind.TerminalStatus(), actor.ID, reason, s.now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve_failed")
		return dto.DecisionResponse{}, err
	}

	observability.Decisions().WithLabelValues(kind.String(), string(result)).Inc()
	span.SetAttributes(attribute.String("review.outcome", string(result)))

	switch result {
	case repository.DecisionApplied:
		return s.afterApplied(ctx, application, kind, actor, reason), nil

	case repository.DecisionAlready:
		return dto.DecisionResponse{
			Outcome:     string(result),
			Status:      application.Status,
			Summary:     fmt.Sprintf("Already %s.", application.Status),
			Application: dto.NewApplicationResponse(application),
		}, nil

	case repository.DecisionTerminal:
		// The losing attempt is still worth a trace in the history.
		if err := s.audit.Record(ctx, AuditEntry{
			ApplicationID: application.ID,
			ActorID:       actor.ID,
			Action:        models.ActionDecisionBlocked,
			Reason:        reason,
			Metadata:      map[string]interface{}{"attempted": kind.String(), "status": application.Status},
		}); err != nil {
			s.logger.Warn().Err(err).Str("application_id", application.ID).Msg("failed to audit blocked decision")
		}

		return dto.DecisionResponse{
			Outcome:     string(result),
			Status:      application.Status,
			Summary:     fmt.Sprintf("Already resolved: %s.", application.Status),
			Application: dto.NewApplicationResponse(application),
		}, nil

	default:
		if application.ID == "" {
			return dto.DecisionResponse{}, ErrApplicationNotFound
		}

		return dto.DecisionResponse{
			Outcome:     string(result),
			Status:      application.Status,
			Summary:     fmt.Sprintf("Application is %s and cannot be decided yet.", application.Status),
			Application: dto.NewApplicationResponse(application),
		}, nil
	}
}

func (s *reviewService) afterApplied(ctx context.Context, application models.Application, kind DecisionKind, actor Actor, reason string) dto.DecisionResponse {
	if err := s.audit.Record(ctx, AuditEntry{
		ApplicationID: application.ID,
		ActorID:       actor.ID,
		Action:        kind.String(),
		Reason:        reason,
	}); err != nil {
		s.logger.Warn().Err(err).Str("application_id", application.ID).Msg("failed to audit decision")
	}

	if err := s.claims.Delete(ctx, application.ID); err != nil {
		s.logger.Warn().Err(err).Str("application_id", application.ID).Msg("failed to clear claim after decision")
	}

	if s.queue != nil {
		if err := s.queue.Invalidate(ctx, application.GuildID); err != nil {
			s.logger.Warn().Err(err).Str("guild_id", application.GuildID).Msg("failed to invalidate review queue cache")
		}
	}

	settings, err := s.settings.GetByGuild(ctx, application.GuildID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Warn().Err(err).Str("guild_id", application.GuildID).Msg("failed to load guild settings for effects")
	}

	var results []EffectResult
	switch kind {
	case DecisionApprove:
		results = s.effects.AfterApprove(ctx, application, settings, actor)
	case DecisionReject:
		results = s.effects.AfterReject(ctx, application, settings, actor, reason)
	case DecisionKick:
		results = s.effects.AfterKick(ctx, application, settings, actor, reason)
	}

	return dto.DecisionResponse{
		Outcome:     string(repository.DecisionApplied),
		Status:      application.Status,
		Summary:     decisionSummary(kind),
		Warnings:    effectWarnings(results),
		Application: dto.NewApplicationResponse(application),
	}
}

func decisionSummary(kind DecisionKind) string {
	switch kind {
	case DecisionApprove:
		return "Application approved."
	case DecisionReject:
		return "Application rejected."
	case DecisionKick:
		return "Applicant kicked."
	}
	return "Decision applied."
}

// effectWarnings folds effect failures and informational notes into the lines
// appended after the authoritative summary.
func effectWarnings(results []EffectResult) []string {
	var lines []string
	for _, result := range results {
		if result.Err != nil {
			lines = append(lines, fmt.Sprintf("warning: %s failed: %v", result.Name, result.Err))
			continue
		}
		if result.Note != "" {
			lines = append(lines, fmt.Sprintf("note: %s: %s", result.Name, result.Note))
		}
	}
	return lines
}
