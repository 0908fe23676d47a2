package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Application represents a single admission attempt by a user in a guild.
type Application struct {
	ID               string            `gorm:"type:uuid;primaryKey" json:"id"`
	ShortCode        string            `gorm:"size:6;index:idx_applications_guild_code;not null" json:"short_code"`
	GuildID          string            `gorm:"size:32;index:idx_applications_guild_code;index:idx_applications_guild_user;not null" json:"guild_id"`
	UserID           string            `gorm:"size:32;index:idx_applications_guild_user;not null" json:"user_id"`
	Status           string            `gorm:"size:16;not null" json:"status"`
	Answers          datatypes.JSONMap `gorm:"type:json" json:"answers"`
	ResolverID       *string           `gorm:"size:32" json:"resolver_id"`
	ResolutionReason *string           `gorm:"type:text" json:"resolution_reason"`
	CreatedAt        time.Time         `json:"created_at"`
	SubmittedAt      *time.Time        `json:"submitted_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	ResolvedAt       *time.Time        `json:"resolved_at"`
}

const (
	// ApplicationStatusPending indicates the applicant has not completed the questionnaire yet.
	ApplicationStatusPending = "pending"
	// ApplicationStatusSubmitted indicates the questionnaire is complete and the application awaits review.
	ApplicationStatusSubmitted = "submitted"
	// ApplicationStatusApproved is a terminal status granted by a reviewer.
	ApplicationStatusApproved = "approved"
	// ApplicationStatusRejected is a terminal status granted by a reviewer.
	ApplicationStatusRejected = "rejected"
	// ApplicationStatusKicked is a terminal status that additionally removes the applicant from the guild.
	ApplicationStatusKicked = "kicked"
)

// IsTerminal reports whether the application has reached a final decision.
func (a Application) IsTerminal() bool {
	switch a.Status {
	case ApplicationStatusApproved, ApplicationStatusRejected, ApplicationStatusKicked:
		return true
	}
	return false
}

// NewApplication builds a pending application with a fresh id and derived short code.
func NewApplication(guildID, userID string) Application {
	id := uuid.NewString()
	return Application{
		ID:        id,
		ShortCode: ShortCodeFromID(id),
		GuildID:   guildID,
		UserID:    userID,
		Status:    ApplicationStatusPending,
		Answers:   datatypes.JSONMap{},
	}
}

// ShortCodeFromID derives the stable human-typeable short code from an application id.
func ShortCodeFromID(id string) string {
	compact := strings.ReplaceAll(strings.ToLower(id), "-", "")
	if len(compact) < 6 {
		return compact
	}
	return compact[:6]
}
