package dto

import (
	"time"

	"github.com/noah-isme/gatekeeper-api/internal/models"
)

// DecisionRequest is the staff request to decide an application.
type DecisionRequest struct {
	Kind   string `json:"kind" validate:"required,oneof=approve reject kick"`
	Reason string `json:"reason" validate:"max=1000"`
}

// DecisionResponse reports the authoritative outcome first, then any
// warnings produced by downstream effects.
type DecisionResponse struct {
	Outcome     string              `json:"outcome"`
	Status      string              `json:"status,omitempty"`
	Summary     string              `json:"summary"`
	Warnings    []string            `json:"warnings,omitempty"`
	Application ApplicationResponse `json:"application"`
}

// ClaimResponse describes who is currently working an application.
type ClaimResponse struct {
	ApplicationID string    `json:"application_id"`
	ReviewerID    string    `json:"reviewer_id"`
	ClaimedAt     time.Time `json:"claimed_at"`
}

// NewClaimResponse maps a claim model to its response shape.
func NewClaimResponse(claim models.ReviewClaim) ClaimResponse {
	return ClaimResponse{
		ApplicationID: claim.ApplicationID,
		ReviewerID:    claim.ReviewerID,
		ClaimedAt:     claim.ClaimedAt,
	}
}

// QueueEntry is one submitted application waiting for review.
type QueueEntry struct {
	Application ApplicationResponse `json:"application"`
	Claim       *ClaimResponse      `json:"claim,omitempty"`
}

// QueueResponse lists the review queue for a guild, oldest submission first.
type QueueResponse struct {
	GuildID string       `json:"guild_id"`
	Entries []QueueEntry `json:"entries"`
}

// CardResponse is the rendered staff-facing review card.
type CardResponse struct {
	Application   ApplicationResponse    `json:"application"`
	Claim         *ClaimResponse         `json:"claim,omitempty"`
	RecentActions []ReviewActionResponse `json:"recent_actions"`
	RenderedAt    time.Time              `json:"rendered_at"`
}
