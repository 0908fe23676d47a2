package models

import "time"

// ModmailTicket tracks the support thread opened for an application.
type ModmailTicket struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	ApplicationID string     `gorm:"type:uuid;index;not null" json:"application_id"`
	GuildID       string     `gorm:"size:32;not null" json:"guild_id"`
	UserID        string     `gorm:"size:32;not null" json:"user_id"`
	ChannelID     string     `gorm:"size:32;not null" json:"channel_id"`
	Open          bool       `gorm:"not null;default:true" json:"open"`
	CreatedAt     time.Time  `json:"created_at"`
	ClosedAt      *time.Time `json:"closed_at"`
}
