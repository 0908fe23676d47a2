package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gatekeeper-api/internal/models"
)

// GuildSettingsRepository stores per-guild admission configuration.
type GuildSettingsRepository interface {
	GetByGuild(ctx context.Context, guildID string) (models.GuildSettings, error)
	Upsert(ctx context.Context, settings *models.GuildSettings) error
}

type guildSettingsRepository struct {
	db *gorm.DB
}

// NewGuildSettingsRepository constructs the guild settings repository.
func NewGuildSettingsRepository(db *gorm.DB) GuildSettingsRepository {
	return &guildSettingsRepository{db: db}
}

func (r *guildSettingsRepository) GetByGuild(ctx context.Context, guildID string) (models.GuildSettings, error) {
	var settings models.GuildSettings
	if err := r.db.WithContext(ctx).Where("guild_id = ?", guildID).First(&settings).Error; err != nil {
		return models.GuildSettings{}, err
	}

	return settings, nil
}

func (r *guildSettingsRepository) Upsert(ctx context.Context, settings *models.GuildSettings) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "guild_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"accepted_role_id", "welcome_channel_id", "general_channel_id",
			"reapply_cooldown_secs", "question_schema", "welcome_message", "updated_at",
		}),
	}).Create(settings).Error
}
