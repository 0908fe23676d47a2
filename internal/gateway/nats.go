package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Failure codes returned by the bot process in command replies.
const (
	codeMemberNotFound    = "member_not_found"
	codeMissingPermission = "missing_permission"
	codeRoleHierarchy     = "role_hierarchy"
	codeDeliveryFailed    = "delivery_failed"
)

type commandReply struct {
	OK     bool            `json:"ok"`
	Code   string          `json:"code,omitempty"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// Client issues gateway commands over NATS request/reply. One subject per
// command, all rooted at the configured base (e.g. "gatekeeper.gateway").
type Client struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewClient constructs a NATS-backed gateway client.
func NewClient(conn *nats.Conn, subjectBase string, logger zerolog.Logger) *Client {
	base := strings.TrimSuffix(subjectBase, ".")
	if base == "" {
		base = "gatekeeper.gateway"
	}

	return &Client{
		conn:    conn,
		subject: base,
		logger:  logger.With().Str("component", "gateway_client").Logger(),
	}
}

func (c *Client) request(ctx context.Context, op string, payload interface{}, result interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	msg, err := c.conn.RequestWithContext(ctx, c.subject+"."+op, data)
	if err != nil {
		return fmt.Errorf("gateway %s request failed: %w", op, err)
	}

	var reply commandReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return fmt.Errorf("gateway %s reply malformed: %w", op, err)
	}

	if !reply.OK {
		return classifyFailure(op, reply)
	}

	if result != nil && len(reply.Result) > 0 {
		if err := json.Unmarshal(reply.Result, result); err != nil {
			return fmt.Errorf("gateway %s result malformed: %w", op, err)
		}
	}

	return nil
}

func classifyFailure(op string, reply commandReply) error {
	switch reply.Code {
	case codeMemberNotFound:
		return ErrMemberNotFound
	case codeMissingPermission:
		return ErrMissingPermission
	case codeRoleHierarchy:
		return ErrRoleHierarchy
	case codeDeliveryFailed:
		return ErrDeliveryFailed
	}

	message := reply.Error
	if message == "" {
		message = "unknown failure"
	}
	return fmt.Errorf("gateway %s failed: %s", op, message)
}

// Get implements MemberClient.
func (c *Client) Get(ctx context.Context, guildID, userID string) (Member, error) {
	payload := map[string]string{"guild_id": guildID, "user_id": userID}

	var member Member
	if err := c.request(ctx, "member.get", payload, &member); err != nil {
		return Member{}, err
	}

	return member, nil
}

// Grant implements RoleClient.
func (c *Client) Grant(ctx context.Context, guildID, userID, roleID, reasonTag, actorID string) (RoleGrantResult, error) {
	payload := map[string]string{
		"guild_id":   guildID,
		"user_id":    userID,
		"role_id":    roleID,
		"reason_tag": reasonTag,
		"actor_id":   actorID,
	}

	var result RoleGrantResult
	if err := c.request(ctx, "role.grant", payload, &result); err != nil {
		return RoleGrantResult{}, err
	}

	if result.Action == "" {
		result.Action = RoleActionAdd
	}

	return result, nil
}

// Kick implements RoleClient.
func (c *Client) Kick(ctx context.Context, guildID, userID, reason, actorID string) error {
	payload := map[string]string{
		"guild_id": guildID,
		"user_id":  userID,
		"reason":   reason,
		"actor_id": actorID,
	}

	return c.request(ctx, "member.kick", payload, nil)
}

// Send implements DMClient.
func (c *Client) Send(ctx context.Context, userID, content string) error {
	payload := map[string]string{"user_id": userID, "content": content}

	return c.request(ctx, "dm.send", payload, nil)
}

// Close implements TicketClient.
func (c *Client) Close(ctx context.Context, guildID, userID, code, note string) error {
	payload := map[string]string{
		"guild_id": guildID,
		"user_id":  userID,
		"code":     code,
		"note":     note,
	}

	return c.request(ctx, "ticket.close", payload, nil)
}

// Refresh implements CardClient. Card refreshes are fire-and-forget: the bot
// re-renders from its own read of the store, so no reply is needed.
func (c *Client) Refresh(ctx context.Context, applicationID string) error {
	payload, err := json.Marshal(map[string]string{"application_id": applicationID})
	if err != nil {
		return err
	}

	if err := c.conn.Publish(c.subject+".card.refresh", payload); err != nil {
		return fmt.Errorf("gateway card.refresh publish failed: %w", err)
	}

	return nil
}

// Post implements ChannelClient.
func (c *Client) Post(ctx context.Context, channelID, content string) error {
	payload := map[string]string{"channel_id": channelID, "content": content}

	return c.request(ctx, "channel.post", payload, nil)
}
