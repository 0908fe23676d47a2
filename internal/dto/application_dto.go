package dto

import (
	"time"

	"github.com/noah-isme/gatekeeper-api/internal/models"
)

// ApplicationOpenRequest starts a new admission attempt.
type ApplicationOpenRequest struct {
	GuildID string `json:"guild_id" validate:"required,numeric"`
	UserID  string `json:"user_id" validate:"required,numeric"`
}

// ApplicationSubmitRequest carries the completed questionnaire answers.
type ApplicationSubmitRequest struct {
	Answers map[string]interface{} `json:"answers" validate:"required"`
}

// LookupRequest identifies an application by exactly one of the supported keys.
type LookupRequest struct {
	GuildID   string `json:"guild_id" validate:"required,numeric"`
	ShortCode string `json:"short_code"`
	UserID    string `json:"user_id"`
	RawID     string `json:"id"`
}

// ApplicationResponse serializes an application for API consumers.
type ApplicationResponse struct {
	ID               string                 `json:"id"`
	ShortCode        string                 `json:"short_code"`
	GuildID          string                 `json:"guild_id"`
	UserID           string                 `json:"user_id"`
	Status           string                 `json:"status"`
	Answers          map[string]interface{} `json:"answers,omitempty"`
	ResolverID       *string                `json:"resolver_id,omitempty"`
	ResolutionReason *string                `json:"resolution_reason,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	SubmittedAt      *time.Time             `json:"submitted_at,omitempty"`
	ResolvedAt       *time.Time             `json:"resolved_at,omitempty"`
}

// NewApplicationResponse maps an application model to its response shape.
func NewApplicationResponse(application models.Application) ApplicationResponse {
	return ApplicationResponse{
		ID:               application.ID,
		ShortCode:        application.ShortCode,
		GuildID:          application.GuildID,
		UserID:           application.UserID,
		Status:           application.Status,
		Answers:          application.Answers,
		ResolverID:       application.ResolverID,
		ResolutionReason: application.ResolutionReason,
		CreatedAt:        application.CreatedAt,
		SubmittedAt:      application.SubmittedAt,
		ResolvedAt:       application.ResolvedAt,
	}
}
