package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/gatekeeper-api/internal/models"
)

// GuildSettingsRequest updates the per-guild admission configuration.
type GuildSettingsRequest struct {
	AcceptedRoleID      string          `json:"accepted_role_id" validate:"omitempty,numeric"`
	WelcomeChannelID    string          `json:"welcome_channel_id" validate:"omitempty,numeric"`
	GeneralChannelID    string          `json:"general_channel_id" validate:"omitempty,numeric"`
	ReapplyCooldownSecs int             `json:"reapply_cooldown_secs" validate:"gte=0"`
	QuestionSchema      json.RawMessage `json:"question_schema"`
	WelcomeMessage      string          `json:"welcome_message" validate:"max=2000"`
}

// GuildSettingsResponse serializes the per-guild configuration.
type GuildSettingsResponse struct {
	GuildID             string          `json:"guild_id"`
	AcceptedRoleID      string          `json:"accepted_role_id"`
	WelcomeChannelID    string          `json:"welcome_channel_id"`
	GeneralChannelID    string          `json:"general_channel_id"`
	ReapplyCooldownSecs int             `json:"reapply_cooldown_secs"`
	QuestionSchema      json.RawMessage `json:"question_schema,omitempty"`
	WelcomeMessage      string          `json:"welcome_message"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// NewGuildSettingsResponse maps settings to their response shape.
func NewGuildSettingsResponse(settings models.GuildSettings) GuildSettingsResponse {
	return GuildSettingsResponse{
		GuildID:             settings.GuildID,
		AcceptedRoleID:      settings.AcceptedRoleID,
		WelcomeChannelID:    settings.WelcomeChannelID,
		GeneralChannelID:    settings.GeneralChannelID,
		ReapplyCooldownSecs: settings.ReapplyCooldownSecs,
		QuestionSchema:      json.RawMessage(settings.QuestionSchema),
		WelcomeMessage:      settings.WelcomeMessage,
		UpdatedAt:           settings.UpdatedAt,
	}
}
