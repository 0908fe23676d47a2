package models

import (
	"time"

	"gorm.io/datatypes"
)

// GuildSettings holds the per-guild admission configuration.
type GuildSettings struct {
	ID                    uint           `gorm:"primaryKey" json:"id"`
	GuildID               string         `gorm:"size:32;uniqueIndex;not null" json:"guild_id"`
	AcceptedRoleID        string         `gorm:"size:32" json:"accepted_role_id"`
	WelcomeChannelID      string         `gorm:"size:32" json:"welcome_channel_id"`
	GeneralChannelID      string         `gorm:"size:32" json:"general_channel_id"`
	ReapplyCooldownSecs   int            `json:"reapply_cooldown_secs"`
	QuestionSchema        datatypes.JSON `gorm:"type:json" json:"question_schema"`
	WelcomeMessage        string         `gorm:"type:text" json:"welcome_message"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// ReapplyCooldown returns the cooldown applied between a rejection and a new application.
func (s GuildSettings) ReapplyCooldown() time.Duration {
	if s.ReapplyCooldownSecs <= 0 {
		return 0
	}
	return time.Duration(s.ReapplyCooldownSecs) * time.Second
}
