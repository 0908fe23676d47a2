// Package gateway defines the clients for the chat-platform collaborators the
// review pipeline depends on. The service layer only sees these interfaces;
// the NATS implementations talk to the bot process that holds the platform
// session.
package gateway

import (
	"context"
	"errors"
)

// Classified failures surfaced by the collaborators.
var (
	// ErrMemberNotFound means the applicant is no longer present in the guild.
	ErrMemberNotFound = errors.New("guild member not found")
	// ErrMissingPermission means the bot lacks the permission for the action.
	ErrMissingPermission = errors.New("missing permission")
	// ErrRoleHierarchy means the target role sits above the bot's highest role.
	ErrRoleHierarchy = errors.New("role above bot hierarchy")
	// ErrDeliveryFailed means a direct message could not be delivered.
	ErrDeliveryFailed = errors.New("direct message delivery failed")
)

// Member is the guild member projection returned by the gateway.
type Member struct {
	GuildID  string   `json:"guild_id"`
	UserID   string   `json:"user_id"`
	Nickname string   `json:"nickname"`
	RoleIDs  []string `json:"role_ids"`
}

// HasRole reports whether the member already holds the given role.
func (m Member) HasRole(roleID string) bool {
	for _, id := range m.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// Role grant actions.
const (
	RoleActionAdd  = "add"
	RoleActionSkip = "skip"
)

// RoleGrantResult describes how a role grant concluded.
type RoleGrantResult struct {
	Action string `json:"action"`
}

// MemberClient resolves guild members.
type MemberClient interface {
	Get(ctx context.Context, guildID, userID string) (Member, error)
}

// RoleClient grants roles and removes members.
type RoleClient interface {
	Grant(ctx context.Context, guildID, userID, roleID, reasonTag, actorID string) (RoleGrantResult, error)
	Kick(ctx context.Context, guildID, userID, reason, actorID string) error
}

// DMClient delivers direct messages to applicants.
type DMClient interface {
	Send(ctx context.Context, userID, content string) error
}

// TicketClient closes support threads on the platform side.
type TicketClient interface {
	Close(ctx context.Context, guildID, userID, code, note string) error
}

// CardClient re-renders the staff-facing review card.
type CardClient interface {
	Refresh(ctx context.Context, applicationID string) error
}

// ChannelClient posts messages to guild channels.
type ChannelClient interface {
	Post(ctx context.Context, channelID, content string) error
}
