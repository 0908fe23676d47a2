package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gatekeeper-api/internal/gateway"
	"github.com/noah-isme/gatekeeper-api/internal/models"
	"github.com/noah-isme/gatekeeper-api/internal/observability"
	"github.com/noah-isme/gatekeeper-api/internal/repository"
)

// Effect is one best-effort step executed after a committed decision. Effects
// never abort or reverse the decision; each runs with its own bounded timeout
// and reports back through an EffectResult.
type Effect struct {
	Name string
	Run  func(ctx context.Context) (string, error)
}

// EffectResult records how one effect concluded. Note carries informational
// detail for the caller-visible summary even when Err is nil.
type EffectResult struct {
	Name string
	Note string
	Err  error
}

// EffectsOrchestrator sequences the downstream effects of each decision kind.
type EffectsOrchestrator interface {
	AfterApprove(ctx context.Context, application models.Application, settings models.GuildSettings, actor Actor) []EffectResult
	AfterReject(ctx context.Context, application models.Application, settings models.GuildSettings, actor Actor, reason string) []EffectResult
	AfterKick(ctx context.Context, application models.Application, settings models.GuildSettings, actor Actor, reason string) []EffectResult
}

type effectsOrchestrator struct {
	members  gateway.MemberClient
	roles    gateway.RoleClient
	dms      gateway.DMClient
	tickets  gateway.TicketClient
	cards    gateway.CardClient
	channels gateway.ChannelClient
	modmail  repository.ModmailRepository
	audit    AuditRecorder
	timeout  time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// EffectsDeps groups the collaborators the orchestrator drives.
type EffectsDeps struct {
	Members  gateway.MemberClient
	Roles    gateway.RoleClient
	DMs      gateway.DMClient
	Tickets  gateway.TicketClient
	Cards    gateway.CardClient
	Channels gateway.ChannelClient
	Modmail  repository.ModmailRepository
	Audit    AuditRecorder
}

// NewEffectsOrchestrator constructs the orchestrator with a per-effect timeout.
func NewEffectsOrchestrator(deps EffectsDeps, timeout time.Duration, logger zerolog.Logger) EffectsOrchestrator {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &effectsOrchestrator{
		members:  deps.Members,
		roles:    deps.Roles,
		dms:      deps.DMs,
		tickets:  deps.Tickets,
		cards:    deps.Cards,
		channels: deps.Channels,
		modmail:  deps.Modmail,
		audit:    deps.Audit,
		timeout:  timeout,
		logger:   logger.With().Str("component", "effects_orchestrator").Logger(),
		now:      time.Now,
	}
}

func (o *effectsOrchestrator) run(ctx context.Context, applicationID string, effects []Effect) []EffectResult {
	results := make([]EffectResult, 0, len(effects))

	for _, effect := range effects {
		effectCtx, cancel := context.WithTimeout(ctx, o.timeout)
		note, err := effect.Run(effectCtx)
		cancel()

		if err != nil {
			observability.EffectFailures().WithLabelValues(effect.Name).Inc()
			o.logger.Warn().Err(err).
				Str("application_id", applicationID).
				Str("effect", effect.Name).
				Msg("decision effect failed")
		}

		results = append(results, EffectResult{Name: effect.Name, Note: note, Err: err})
	}

	return results
}

func (o *effectsOrchestrator) AfterApprove(ctx context.Context, application models.Application, settings models.GuildSettings, actor Actor) []EffectResult {
	var member *gateway.Member
	roleConfigured := settings.AcceptedRoleID != ""
	roleGranted := false

	effects := []Effect{
		{Name: "resolve_member", Run: func(ctx context.Context) (string, error) {
			resolved, err := o.members.Get(ctx, application.GuildID, application.UserID)
			if err != nil {
				if errors.Is(err, gateway.ErrMemberNotFound) {
					return "applicant is no longer in the guild", nil
				}
				return "", err
			}
			member = &resolved
			return "", nil
		}},
		{Name: "role_grant", Run: func(ctx context.Context) (string, error) {
			if !roleConfigured {
				return "no accepted role configured", nil
			}
			if member == nil {
				return "skipped, applicant absent", nil
			}
			if member.HasRole(settings.AcceptedRoleID) {
				roleGranted = true
				o.recordEffect(ctx, application, actor, models.ActionRoleGrant, map[string]interface{}{"action": gateway.RoleActionSkip})
				return "role already held", nil
			}

			result, err := o.roles.Grant(ctx, application.GuildID, application.UserID, settings.AcceptedRoleID, "application approved", actor.ID)
			if err != nil {
				o.recordEffect(ctx, application, actor, models.ActionRoleGrantBlocked, map[string]interface{}{"error": classifyRoleError(err)})
				return "", fmt.Errorf("role grant failed: %s", classifyRoleError(err))
			}

			roleGranted = true
			o.recordEffect(ctx, application, actor, models.ActionRoleGrant, map[string]interface{}{"action": result.Action})
			return "", nil
		}},
		o.closeTicketEffect(application, actor, "application approved"),
		o.refreshCardEffect(application),
		{Name: "notify_applicant", Run: func(ctx context.Context) (string, error) {
			content := "Your application has been approved. Welcome!"
			if err := o.dms.Send(ctx, application.UserID, content); err != nil {
				// Closed inboxes are routine, keep them off the warn level.
				o.logger.Debug().Err(err).Str("user_id", application.UserID).Msg("approval dm not delivered")
				o.recordEffect(ctx, application, actor, models.ActionDMFailed, nil)
				return "", gateway.ErrDeliveryFailed
			}
			o.recordEffect(ctx, application, actor, models.ActionDMSent, nil)
			return "", nil
		}},
		{Name: "welcome_post", Run: func(ctx context.Context) (string, error) {
			if settings.WelcomeChannelID == "" {
				return "no welcome destination configured", nil
			}
			if roleConfigured && !roleGranted {
				// Never announce a member whose role grant did not land.
				o.recordEffect(ctx, application, actor, models.ActionWelcomeSuppressed, nil)
				return "welcome suppressed because the role grant did not succeed", nil
			}

			content := settings.WelcomeMessage
			if content == "" {
				content = fmt.Sprintf("Welcome <@%s>!", application.UserID)
			}
			if err := o.channels.Post(ctx, settings.WelcomeChannelID, content); err != nil {
				return "", err
			}
			o.recordEffect(ctx, application, actor, models.ActionWelcomePosted, nil)
			return "", nil
		}},
	}

	results := o.run(ctx, application.ID, effects)
	o.recordSummary(ctx, application, actor, results)
	return results
}

func (o *effectsOrchestrator) AfterReject(ctx context.Context, application models.Application, settings models.GuildSettings, actor Actor, reason string) []EffectResult {
	effects := []Effect{
		{Name: "notify_applicant", Run: func(ctx context.Context) (string, error) {
			content := fmt.Sprintf("Your application was not accepted. Reason: %s", reason)
			if err := o.dms.Send(ctx, application.UserID, content); err != nil {
				o.logger.Debug().Err(err).Str("user_id", application.UserID).Msg("rejection dm not delivered")
				o.recordEffect(ctx, application, actor, models.ActionDMFailed, nil)
				return "", gateway.ErrDeliveryFailed
			}
			o.recordEffect(ctx, application, actor, models.ActionDMSent, nil)
			return "", nil
		}},
		o.closeTicketEffect(application, actor, "application rejected"),
		o.refreshCardEffect(application),
	}

	results := o.run(ctx, application.ID, effects)
	o.recordSummary(ctx, application, actor, results)
	return results
}

func (o *effectsOrchestrator) AfterKick(ctx context.Context, application models.Application, settings models.GuildSettings, actor Actor, reason string) []EffectResult {
	effects := []Effect{
		{Name: "notify_applicant", Run: func(ctx context.Context) (string, error) {
			content := fmt.Sprintf("You have been removed from the guild. Reason: %s", reason)
			if err := o.dms.Send(ctx, application.UserID, content); err != nil {
				o.logger.Debug().Err(err).Str("user_id", application.UserID).Msg("kick dm not delivered")
				o.recordEffect(ctx, application, actor, models.ActionDMFailed, nil)
				return "", gateway.ErrDeliveryFailed
			}
			o.recordEffect(ctx, application, actor, models.ActionDMSent, nil)
			return "", nil
		}},
		{Name: "remove_member", Run: func(ctx context.Context) (string, error) {
			if err := o.roles.Kick(ctx, application.GuildID, application.UserID, reason, actor.ID); err != nil {
				// The kicked status stands; the intent is recorded even when
				// execution lags behind.
				o.recordEffect(ctx, application, actor, models.ActionKickFailed, map[string]interface{}{"error": err.Error()})
				return "", err
			}
			return "", nil
		}},
		o.closeTicketEffect(application, actor, "applicant kicked"),
		o.refreshCardEffect(application),
	}

	results := o.run(ctx, application.ID, effects)
	o.recordSummary(ctx, application, actor, results)
	return results
}

func (o *effectsOrchestrator) closeTicketEffect(application models.Application, actor Actor, note string) Effect {
	return Effect{Name: "close_ticket", Run: func(ctx context.Context) (string, error) {
		ticket, err := o.modmail.FindOpenByApplication(ctx, application.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "no open ticket", nil
			}
			return "", err
		}

		if err := o.tickets.Close(ctx, application.GuildID, application.UserID, application.ShortCode, note); err != nil {
			return "", err
		}

		if err := o.modmail.Close(ctx, ticket.ID, o.now()); err != nil {
			return "", err
		}

		o.recordEffect(ctx, application, actor, models.ActionTicketClosed, map[string]interface{}{"channel_id": ticket.ChannelID})
		return "", nil
	}}
}

func (o *effectsOrchestrator) refreshCardEffect(application models.Application) Effect {
	return Effect{Name: "refresh_card", Run: func(ctx context.Context) (string, error) {
		return "", o.cards.Refresh(ctx, application.ID)
	}}
}

func (o *effectsOrchestrator) recordEffect(ctx context.Context, application models.Application, actor Actor, action string, metadata map[string]interface{}) {
	if err := o.audit.Record(ctx, AuditEntry{
		ApplicationID: application.ID,
		ActorID:       actor.ID,
		Action:        action,
		Metadata:      metadata,
	}); err != nil {
		o.logger.Warn().Err(err).Str("application_id", application.ID).Str("action", action).Msg("failed to audit effect")
	}
}

func (o *effectsOrchestrator) recordSummary(ctx context.Context, application models.Application, actor Actor, results []EffectResult) {
	outcomes := map[string]interface{}{}
	for _, result := range results {
		switch {
		case result.Err != nil:
			outcomes[result.Name] = "failed"
		case result.Note != "":
			outcomes[result.Name] = result.Note
		default:
			outcomes[result.Name] = "ok"
		}
	}

	o.recordEffect(ctx, application, actor, models.ActionEffectsSummary, outcomes)
}

func classifyRoleError(err error) string {
	switch {
	case errors.Is(err, gateway.ErrMissingPermission):
		return "bot is missing the Manage Roles permission"
	case errors.Is(err, gateway.ErrRoleHierarchy):
		return "role sits above the bot's highest role"
	default:
		return err.Error()
	}
}
