package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gatekeeper-api/internal/dto"
	"github.com/noah-isme/gatekeeper-api/internal/models"
	"github.com/noah-isme/gatekeeper-api/internal/repository"
)

// ErrInvalidQuestionSchema indicates the submitted question schema does not compile.
var ErrInvalidQuestionSchema = errors.New("question schema is not a valid JSON Schema")

// SettingsService manages per-guild admission configuration.
type SettingsService interface {
	Get(ctx context.Context, guildID string) (dto.GuildSettingsResponse, error)
	Update(ctx context.Context, guildID string, req dto.GuildSettingsRequest) (dto.GuildSettingsResponse, error)
}

type settingsService struct {
	repo      repository.GuildSettingsRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewSettingsService constructs the guild settings service.
func NewSettingsService(repo repository.GuildSettingsRepository, validate *validator.Validate, logger zerolog.Logger) SettingsService {
	return &settingsService{
		repo:      repo,
		validator: validate,
		logger:    logger.With().Str("component", "settings_service").Logger(),
	}
}

func (s *settingsService) Get(ctx context.Context, guildID string) (dto.GuildSettingsResponse, error) {
	settings, err := s.repo.GetByGuild(ctx, guildID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.NewGuildSettingsResponse(models.GuildSettings{GuildID: guildID}), nil
		}
		return dto.GuildSettingsResponse{}, err
	}

	return dto.NewGuildSettingsResponse(settings), nil
}

func (s *settingsService) Update(ctx context.Context, guildID string, req dto.GuildSettingsRequest) (dto.GuildSettingsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.GuildSettingsResponse{}, err
	}

	schema := strings.TrimSpace(string(req.QuestionSchema))
	if schema != "" {
		// Catch broken schemas at write time instead of on every submission.
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("questions.json", strings.NewReader(schema)); err != nil {
			return dto.GuildSettingsResponse{}, ErrInvalidQuestionSchema
		}
		if _, err := compiler.Compile("questions.json"); err != nil {
			return dto.GuildSettingsResponse{}, ErrInvalidQuestionSchema
		}
	}

	settings := models.GuildSettings{
		GuildID:             guildID,
		AcceptedRoleID:      strings.TrimSpace(req.AcceptedRoleID),
		WelcomeChannelID:    strings.TrimSpace(req.WelcomeChannelID),
		GeneralChannelID:    strings.TrimSpace(req.GeneralChannelID),
		ReapplyCooldownSecs: req.ReapplyCooldownSecs,
		QuestionSchema:      datatypes.JSON(schema),
		WelcomeMessage:      strings.TrimSpace(req.WelcomeMessage),
	}

	if err := s.repo.Upsert(ctx, &settings); err != nil {
		return dto.GuildSettingsResponse{}, err
	}

	stored, err := s.repo.GetByGuild(ctx, guildID)
	if err != nil {
		return dto.GuildSettingsResponse{}, err
	}

	return dto.NewGuildSettingsResponse(stored), nil
}
