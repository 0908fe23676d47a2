package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/gatekeeper-api/internal/gateway"
	"github.com/noah-isme/gatekeeper-api/internal/models"
)

// fakeGateway implements every gateway client interface with scripted outcomes.
type fakeGateway struct {
	member       gateway.Member
	memberErr    error
	grantErr     error
	grantCalls   int
	kickErr      error
	kickCalls    int
	dmErr        error
	dmCalls      int
	closeCalls   int
	refreshCalls int
	postErr      error
	postCalls    int
	posted       []string
}

func (f *fakeGateway) Get(ctx context.Context, guildID, userID string) (gateway.Member, error) {
	if f.memberErr != nil {
		return gateway.Member{}, f.memberErr
	}
	return f.member, nil
}

func (f *fakeGateway) Grant(ctx context.Context, guildID, userID, roleID, reasonTag, actorID string) (gateway.RoleGrantResult, error) {
	f.grantCalls++
	if f.grantErr != nil {
		return gateway.RoleGrantResult{}, f.grantErr
	}
	return gateway.RoleGrantResult{Action: gateway.RoleActionAdd}, nil
}

func (f *fakeGateway) Kick(ctx context.Context, guildID, userID, reason, actorID string) error {
	f.kickCalls++
	return f.kickErr
}

func (f *fakeGateway) Send(ctx context.Context, userID, content string) error {
	f.dmCalls++
	return f.dmErr
}

func (f *fakeGateway) Close(ctx context.Context, guildID, userID, code, note string) error {
	f.closeCalls++
	return nil
}

func (f *fakeGateway) Refresh(ctx context.Context, applicationID string) error {
	f.refreshCalls++
	return nil
}

func (f *fakeGateway) Post(ctx context.Context, channelID, content string) error {
	f.postCalls++
	if f.postErr != nil {
		return f.postErr
	}
	f.posted = append(f.posted, content)
	return nil
}

type fakeModmailRepo struct {
	ticket     models.ModmailTicket
	found      bool
	closeCalls int
}

func (f *fakeModmailRepo) Create(ctx context.Context, ticket *models.ModmailTicket) error {
	return nil
}

func (f *fakeModmailRepo) FindOpenByApplication(ctx context.Context, applicationID string) (models.ModmailTicket, error) {
	if !f.found {
		return models.ModmailTicket{}, gorm.ErrRecordNotFound
	}
	return f.ticket, nil
}

func (f *fakeModmailRepo) Close(ctx context.Context, ticketID uint, at time.Time) error {
	f.closeCalls++
	return nil
}

func newTestOrchestrator(gw *fakeGateway, modmail *fakeModmailRepo, audit *memoryAudit) EffectsOrchestrator {
	return NewEffectsOrchestrator(EffectsDeps{
		Members:  gw,
		Roles:    gw,
		DMs:      gw,
		Tickets:  gw,
		Cards:    gw,
		Channels: gw,
		Modmail:  modmail,
		Audit:    audit,
	}, time.Second, testLogger())
}

func effectByName(t *testing.T, results []EffectResult, name string) EffectResult {
	t.Helper()
	for _, result := range results {
		if result.Name == name {
			return result
		}
	}
	t.Fatalf("effect %q not found in results", name)
	return EffectResult{}
}

func approveFixtures() (models.Application, models.GuildSettings) {
	app := models.NewApplication("100200300", "400500600")
	app.Status = models.ApplicationStatusApproved
	settings := models.GuildSettings{
		GuildID:          "100200300",
		AcceptedRoleID:   "555",
		WelcomeChannelID: "777",
	}
	return app, settings
}

func TestEffectsAfterApproveHappyPath(t *testing.T) {
	app, settings := approveFixtures()
	gw := &fakeGateway{member: gateway.Member{GuildID: app.GuildID, UserID: app.UserID}}
	modmail := &fakeModmailRepo{found: true, ticket: models.ModmailTicket{ID: 1, ApplicationID: app.ID, ChannelID: "888", Open: true}}
	audit := &memoryAudit{}

	results := newTestOrchestrator(gw, modmail, audit).AfterApprove(context.Background(), app, settings, Actor{ID: "900"})

	for _, result := range results {
		require.NoError(t, result.Err, result.Name)
	}
	require.Equal(t, 1, gw.grantCalls)
	require.Equal(t, 1, gw.dmCalls)
	require.Equal(t, 1, gw.postCalls)
	require.Equal(t, 1, gw.closeCalls)
	require.Equal(t, 1, gw.refreshCalls)
	require.Equal(t, 1, modmail.closeCalls)

	require.True(t, audit.has(models.ActionRoleGrant))
	require.True(t, audit.has(models.ActionDMSent))
	require.True(t, audit.has(models.ActionWelcomePosted))
	require.True(t, audit.has(models.ActionTicketClosed))
	require.True(t, audit.has(models.ActionEffectsSummary))
}

func TestEffectsWelcomeSuppressedWhenRoleGrantFails(t *testing.T) {
	app, settings := approveFixtures()
	gw := &fakeGateway{
		member:   gateway.Member{GuildID: app.GuildID, UserID: app.UserID},
		grantErr: gateway.ErrMissingPermission,
	}
	audit := &memoryAudit{}

	results := newTestOrchestrator(gw, &fakeModmailRepo{}, audit).AfterApprove(context.Background(), app, settings, Actor{ID: "900"})

	grant := effectByName(t, results, "role_grant")
	require.Error(t, grant.Err)
	require.Contains(t, grant.Err.Error(), "Manage Roles")

	welcome := effectByName(t, results, "welcome_post")
	require.NoError(t, welcome.Err)
	require.Contains(t, welcome.Note, "suppressed")
	require.Zero(t, gw.postCalls, "the welcome must not reach the channel when the role is missing")

	require.True(t, audit.has(models.ActionRoleGrantBlocked))
	require.True(t, audit.has(models.ActionWelcomeSuppressed))

	// The rest of the cascade keeps going.
	require.Equal(t, 1, gw.dmCalls)
	require.Equal(t, 1, gw.refreshCalls)
}

func TestEffectsAfterApproveMemberLeft(t *testing.T) {
	app, settings := approveFixtures()
	gw := &fakeGateway{memberErr: gateway.ErrMemberNotFound}
	audit := &memoryAudit{}

	results := newTestOrchestrator(gw, &fakeModmailRepo{}, audit).AfterApprove(context.Background(), app, settings, Actor{ID: "900"})

	resolve := effectByName(t, results, "resolve_member")
	require.NoError(t, resolve.Err)
	require.Contains(t, resolve.Note, "no longer in the guild")

	grant := effectByName(t, results, "role_grant")
	require.NoError(t, grant.Err)
	require.Contains(t, grant.Note, "absent")
	require.Zero(t, gw.grantCalls)

	// Without the role the welcome stays suppressed.
	welcome := effectByName(t, results, "welcome_post")
	require.Contains(t, welcome.Note, "suppressed")
}

func TestEffectsAfterApproveRoleAlreadyHeld(t *testing.T) {
	app, settings := approveFixtures()
	gw := &fakeGateway{member: gateway.Member{UserID: app.UserID, RoleIDs: []string{"555"}}}
	audit := &memoryAudit{}

	results := newTestOrchestrator(gw, &fakeModmailRepo{}, audit).AfterApprove(context.Background(), app, settings, Actor{ID: "900"})

	grant := effectByName(t, results, "role_grant")
	require.NoError(t, grant.Err)
	require.Contains(t, grant.Note, "already held")
	require.Zero(t, gw.grantCalls)
	require.Equal(t, 1, gw.postCalls, "an already held role still counts as granted for the welcome")
}

func TestEffectsAfterRejectContinuesPastDMFailure(t *testing.T) {
	app := models.NewApplication("100200300", "400500600")
	app.Status = models.ApplicationStatusRejected
	gw := &fakeGateway{dmErr: gateway.ErrDeliveryFailed}
	modmail := &fakeModmailRepo{found: true, ticket: models.ModmailTicket{ID: 2, Open: true}}
	audit := &memoryAudit{}

	results := newTestOrchestrator(gw, modmail, audit).AfterReject(context.Background(), app, models.GuildSettings{}, Actor{ID: "900"}, "spam")

	notify := effectByName(t, results, "notify_applicant")
	require.ErrorIs(t, notify.Err, gateway.ErrDeliveryFailed)
	require.True(t, audit.has(models.ActionDMFailed))

	require.Equal(t, 1, gw.closeCalls, "ticket close must run even when the dm fails")
	require.Equal(t, 1, gw.refreshCalls)
}

func TestEffectsAfterKickNotifiesBeforeRemoval(t *testing.T) {
	app := models.NewApplication("100200300", "400500600")
	app.Status = models.ApplicationStatusKicked
	gw := &fakeGateway{kickErr: gateway.ErrMissingPermission}
	audit := &memoryAudit{}

	results := newTestOrchestrator(gw, &fakeModmailRepo{}, audit).AfterKick(context.Background(), app, models.GuildSettings{}, Actor{ID: "900"}, "troll")

	require.Equal(t, "notify_applicant", results[0].Name, "the dm must go out before the member is removed")
	require.Equal(t, 1, gw.dmCalls)

	removal := effectByName(t, results, "remove_member")
	require.Error(t, removal.Err)
	require.True(t, audit.has(models.ActionKickFailed), "a failed removal leaves a trace but the decision stands")
}
