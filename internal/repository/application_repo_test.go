package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gatekeeper-api/internal/models"
)

func seedApplication(t *testing.T, db *gorm.DB, status string) models.Application {
	t.Helper()

	app := models.NewApplication("100200300", "400500600")
	app.Status = status
	if status != models.ApplicationStatusPending {
		now := time.Now()
		app.SubmittedAt = &now
	}
	require.NoError(t, db.Create(&app).Error)
	return app
}

func TestApplicationRepositoryResolveAppliesOnce(t *testing.T) {
	db := setupTestDB(t, &models.Application{})
	repo := NewApplicationRepository(db)

	app := seedApplication(t, db, models.ApplicationStatusSubmitted)
	at := time.Now()

	result, resolved, err := repo.Resolve(context.Background(), app.ID, models.ApplicationStatusApproved, "900", "good fit", at)
	require.NoError(t, err)
	require.Equal(t, DecisionApplied, result)
	require.Equal(t, models.ApplicationStatusApproved, resolved.Status)
	require.NotNil(t, resolved.ResolverID)
	require.Equal(t, "900", *resolved.ResolverID)
	require.NotNil(t, resolved.ResolvedAt)

	// Repeating the same decision is reported as already applied, not rewritten.
	result, resolved, err = repo.Resolve(context.Background(), app.ID, models.ApplicationStatusApproved, "901", "late duplicate", at.Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, DecisionAlready, result)
	require.Equal(t, "900", *resolved.ResolverID, "the first resolver must win")
}

func TestApplicationRepositoryResolveDifferentKindLoses(t *testing.T) {
	db := setupTestDB(t, &models.Application{})
	repo := NewApplicationRepository(db)

	app := seedApplication(t, db, models.ApplicationStatusSubmitted)

	result, _, err := repo.Resolve(context.Background(), app.ID, models.ApplicationStatusRejected, "900", "spam", time.Now())
	require.NoError(t, err)
	require.Equal(t, DecisionApplied, result)

	result, resolved, err := repo.Resolve(context.Background(), app.ID, models.ApplicationStatusApproved, "901", "", time.Now())
	require.NoError(t, err)
	require.Equal(t, DecisionTerminal, result)
	require.Equal(t, models.ApplicationStatusRejected, resolved.Status)
}

func TestApplicationRepositoryResolvePendingAndMissing(t *testing.T) {
	db := setupTestDB(t, &models.Application{})
	repo := NewApplicationRepository(db)

	pending := seedApplication(t, db, models.ApplicationStatusPending)

	result, resolved, err := repo.Resolve(context.Background(), pending.ID, models.ApplicationStatusApproved, "900", "", time.Now())
	require.NoError(t, err)
	require.Equal(t, DecisionInvalid, result)
	require.Equal(t, models.ApplicationStatusPending, resolved.Status)

	result, resolved, err = repo.Resolve(context.Background(), "4f8e6d6a-0000-0000-0000-000000000000", models.ApplicationStatusApproved, "900", "", time.Now())
	require.NoError(t, err)
	require.Equal(t, DecisionInvalid, result)
	require.Empty(t, resolved.ID)
}

func TestApplicationRepositoryMarkSubmittedGuardsStatus(t *testing.T) {
	db := setupTestDB(t, &models.Application{})
	repo := NewApplicationRepository(db)

	app := seedApplication(t, db, models.ApplicationStatusPending)
	answers := datatypes.JSONMap{"why": "friends play here"}

	submitted, err := repo.MarkSubmitted(context.Background(), app.ID, answers, time.Now())
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusSubmitted, submitted.Status)
	require.NotNil(t, submitted.SubmittedAt)
	require.Equal(t, "friends play here", submitted.Answers["why"])

	_, err = repo.MarkSubmitted(context.Background(), app.ID, answers, time.Now())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestApplicationRepositoryLookups(t *testing.T) {
	db := setupTestDB(t, &models.Application{})
	repo := NewApplicationRepository(db)

	app := seedApplication(t, db, models.ApplicationStatusSubmitted)

	byCode, err := repo.GetByShortCode(context.Background(), app.GuildID, app.ShortCode)
	require.NoError(t, err)
	require.Equal(t, app.ID, byCode.ID)

	active, err := repo.GetActiveByUser(context.Background(), app.GuildID, app.UserID)
	require.NoError(t, err)
	require.Equal(t, app.ID, active.ID)

	_, err = repo.GetActiveByUser(context.Background(), app.GuildID, "someone-else")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestApplicationRepositoryListByStatusOrdersBySubmission(t *testing.T) {
	db := setupTestDB(t, &models.Application{})
	repo := NewApplicationRepository(db)

	now := time.Now()
	for i, offset := range []time.Duration{2 * time.Hour, time.Hour, 3 * time.Hour} {
		app := models.NewApplication("100200300", fmt.Sprintf("user-%d", i))
		app.Status = models.ApplicationStatusSubmitted
		at := now.Add(-offset)
		app.SubmittedAt = &at
		require.NoError(t, db.Create(&app).Error)
	}

	apps, err := repo.ListByStatus(context.Background(), "100200300", models.ApplicationStatusSubmitted)
	require.NoError(t, err)
	require.Len(t, apps, 3)
	require.Equal(t, "user-2", apps[0].UserID, "oldest submission should be first in the queue")
	require.Equal(t, "user-1", apps[2].UserID)
}
