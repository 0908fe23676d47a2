package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gatekeeper-api/internal/dto"
	"github.com/noah-isme/gatekeeper-api/internal/models"
	"github.com/noah-isme/gatekeeper-api/internal/repository"
)

// ErrApplicationActive indicates the user already has a live application.
var ErrApplicationActive = errors.New("an application is already in progress")

// ErrNotSubmittable indicates the application is not in the pending status.
var ErrNotSubmittable = errors.New("application cannot be submitted in its current status")

// ReapplyCooldownError reports how long a rejected applicant must wait.
type ReapplyCooldownError struct {
	Until time.Time
}

func (e ReapplyCooldownError) Error() string {
	return fmt.Sprintf("reapplication allowed after %s", e.Until.UTC().Format(time.RFC3339))
}

// InvalidAnswersError wraps a questionnaire schema violation.
type InvalidAnswersError struct {
	Detail string
}

func (e InvalidAnswersError) Error() string {
	return fmt.Sprintf("answers do not match the questionnaire: %s", e.Detail)
}

// ApplicationService manages the applicant-side lifecycle up to submission.
// Terminal transitions belong to the review service alone.
type ApplicationService interface {
	Open(ctx context.Context, req dto.ApplicationOpenRequest) (dto.ApplicationResponse, error)
	Submit(ctx context.Context, applicationID string, req dto.ApplicationSubmitRequest) (dto.ApplicationResponse, error)
	Get(ctx context.Context, applicationID string) (dto.ApplicationResponse, error)
}

type applicationService struct {
	applications repository.ApplicationRepository
	settings     repository.GuildSettingsRepository
	audit        AuditRecorder
	queue        QueueInvalidator
	validator    *validator.Validate
	logger       zerolog.Logger
	now          func() time.Time
}

// NewApplicationService constructs the application lifecycle service.
func NewApplicationService(applications repository.ApplicationRepository, settings repository.GuildSettingsRepository, audit AuditRecorder, queue QueueInvalidator, validate *validator.Validate, logger zerolog.Logger) ApplicationService {
	return &applicationService{
		applications: applications,
		settings:     settings,
		audit:        audit,
		queue:        queue,
		validator:    validate,
		logger:       logger.With().Str("component", "application_service").Logger(),
		now:          time.Now,
	}
}

func (s *applicationService) Open(ctx context.Context, req dto.ApplicationOpenRequest) (dto.ApplicationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ApplicationResponse{}, err
	}

	if existing, err := s.applications.GetActiveByUser(ctx, req.GuildID, req.UserID); err == nil {
		return dto.NewApplicationResponse(existing), ErrApplicationActive
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.ApplicationResponse{}, err
	}

	if err := s.checkReapplyCooldown(ctx, req.GuildID, req.UserID); err != nil {
		return dto.ApplicationResponse{}, err
	}

	// A rejected history never blocks forever: reapplication creates a fresh
	// row and the terminal one stays terminal.
	application := models.NewApplication(req.GuildID, req.UserID)
	if err := s.applications.Create(ctx, &application); err != nil {
		return dto.ApplicationResponse{}, err
	}

	if err := s.audit.Record(ctx, AuditEntry{
		ApplicationID: application.ID,
		ActorID:       req.UserID,
		Action:        models.ActionOpen,
	}); err != nil {
		s.logger.Warn().Err(err).Str("application_id", application.ID).Msg("failed to audit application open")
	}

	return dto.NewApplicationResponse(application), nil
}

func (s *applicationService) Submit(ctx context.Context, applicationID string, req dto.ApplicationSubmitRequest) (dto.ApplicationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ApplicationResponse{}, err
	}

	application, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ApplicationResponse{}, ErrApplicationNotFound
		}
		return dto.ApplicationResponse{}, err
	}

	if application.Status != models.ApplicationStatusPending {
		return dto.ApplicationResponse{}, ErrNotSubmittable
	}

	if err := s.validateAnswers(ctx, application.GuildID, req.Answers); err != nil {
		return dto.ApplicationResponse{}, err
	}

	submitted, err := s.applications.MarkSubmitted(ctx, applicationID, datatypes.JSONMap(req.Answers), s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ApplicationResponse{}, ErrNotSubmittable
		}
		return dto.ApplicationResponse{}, err
	}

	if err := s.audit.Record(ctx, AuditEntry{
		ApplicationID: submitted.ID,
		ActorID:       submitted.UserID,
		Action:        models.ActionSubmit,
	}); err != nil {
		s.logger.Warn().Err(err).Str("application_id", submitted.ID).Msg("failed to audit submission")
	}

	if s.queue != nil {
		if err := s.queue.Invalidate(ctx, submitted.GuildID); err != nil {
			s.logger.Warn().Err(err).Str("guild_id", submitted.GuildID).Msg("failed to invalidate review queue cache")
		}
	}

	return dto.NewApplicationResponse(submitted), nil
}

func (s *applicationService) Get(ctx context.Context, applicationID string) (dto.ApplicationResponse, error) {
	application, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ApplicationResponse{}, ErrApplicationNotFound
		}
		return dto.ApplicationResponse{}, err
	}

	return dto.NewApplicationResponse(application), nil
}

func (s *applicationService) checkReapplyCooldown(ctx context.Context, guildID, userID string) error {
	settings, err := s.settings.GetByGuild(ctx, guildID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	cooldown := settings.ReapplyCooldown()
	if cooldown <= 0 {
		return nil
	}

	rejected, err := s.applications.GetLatestByUserAndStatus(ctx, guildID, userID, models.ApplicationStatusRejected)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	if rejected.ResolvedAt == nil {
		return nil
	}

	until := rejected.ResolvedAt.Add(cooldown)
	if s.now().Before(until) {
		return ReapplyCooldownError{Until: until}
	}

	return nil
}

// validateAnswers checks the submitted answers against the guild's question
// schema when one is configured.
func (s *applicationService) validateAnswers(ctx context.Context, guildID string, answers map[string]interface{}) error {
	settings, err := s.settings.GetByGuild(ctx, guildID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	raw := strings.TrimSpace(string(settings.QuestionSchema))
	if raw == "" {
		return nil
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("questions.json", strings.NewReader(raw)); err != nil {
		s.logger.Error().Err(err).Str("guild_id", guildID).Msg("guild question schema is unreadable")
		return nil
	}
	schema, err := compiler.Compile("questions.json")
	if err != nil {
		s.logger.Error().Err(err).Str("guild_id", guildID).Msg("guild question schema does not compile")
		return nil
	}

	normalized := make(map[string]interface{}, len(answers))
	for key, value := range answers {
		normalized[key] = value
	}

	if err := schema.Validate(normalized); err != nil {
		return InvalidAnswersError{Detail: err.Error()}
	}

	return nil
}
