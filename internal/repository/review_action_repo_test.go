package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gatekeeper-api/internal/models"
)

func TestReviewActionRepositoryListRecentNewestFirst(t *testing.T) {
	db := setupTestDB(t, &models.ReviewAction{})
	repo := NewReviewActionRepository(db)

	base := time.Now().Add(-time.Hour)
	for i, action := range []string{models.ActionOpen, models.ActionSubmit, models.ActionClaim, models.ActionApprove} {
		entry := models.ReviewAction{
			ApplicationID: "app-1",
			ActorID:       "actor",
			Action:        action,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(context.Background(), &entry))
	}

	entries, err := repo.ListRecent(context.Background(), "app-1", 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, models.ActionApprove, entries[0].Action)
	require.Equal(t, models.ActionSubmit, entries[2].Action)
}

func TestReviewActionRepositoryListFiltersAndPaginates(t *testing.T) {
	db := setupTestDB(t, &models.ReviewAction{})
	repo := NewReviewActionRepository(db)

	base := time.Now().Add(-time.Hour)
	rows := []models.ReviewAction{
		{ApplicationID: "app-1", ActorID: "mod-1", Action: models.ActionClaim, CreatedAt: base},
		{ApplicationID: "app-1", ActorID: "mod-2", Action: models.ActionApprove, CreatedAt: base.Add(time.Minute)},
		{ApplicationID: "app-2", ActorID: "mod-1", Action: models.ActionReject, CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range rows {
		require.NoError(t, repo.Create(context.Background(), &rows[i]))
	}

	entries, total, err := repo.List(context.Background(), ReviewActionFilter{ApplicationID: "app-1"})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, entries, 2)

	entries, total, err = repo.List(context.Background(), ReviewActionFilter{ActorID: "mod-1", Page: 1, PageSize: 1})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, entries, 1)
	require.Equal(t, models.ActionReject, entries[0].Action, "newest entry comes first")
}
