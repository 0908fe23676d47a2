package models

import (
	"time"

	"gorm.io/datatypes"
)

// ReviewAction is one append-only audit entry in an application's history.
// Rows are never updated or deleted.
type ReviewAction struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	ApplicationID string            `gorm:"type:uuid;index:idx_review_actions_app_created;not null" json:"application_id"`
	ActorID       string            `gorm:"size:32;not null" json:"actor_id"`
	Action        string            `gorm:"size:64;not null" json:"action"`
	Reason        string            `gorm:"type:text" json:"reason"`
	Metadata      datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt     time.Time         `gorm:"index:idx_review_actions_app_created" json:"created_at"`
}

// Action kinds recorded by the review pipeline.
const (
	ActionOpen              = "open"
	ActionApprove           = "approve"
	ActionReject            = "reject"
	ActionKick              = "kick"
	ActionClaim             = "claim"
	ActionUnclaim           = "unclaim"
	ActionSubmit            = "submit"
	ActionRoleGrant         = "role_grant"
	ActionRoleGrantBlocked  = "role_grant_blocked"
	ActionDMSent            = "dm_sent"
	ActionDMFailed          = "dm_failed"
	ActionTicketClosed      = "ticket_closed"
	ActionWelcomePosted     = "welcome_posted"
	ActionWelcomeSuppressed = "welcome_suppressed"
	ActionKickFailed        = "kick_failed"
	ActionDecisionBlocked   = "decision_blocked"
	ActionEffectsSummary    = "effects_summary"
)
