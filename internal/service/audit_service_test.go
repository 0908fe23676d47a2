package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gatekeeper-api/internal/dto"
	"github.com/noah-isme/gatekeeper-api/internal/models"
	"github.com/noah-isme/gatekeeper-api/internal/repository"
)

type memoryActionRepo struct {
	entries []models.ReviewAction
}

func (f *memoryActionRepo) Create(ctx context.Context, entry *models.ReviewAction) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *memoryActionRepo) ListRecent(ctx context.Context, applicationID string, limit int) ([]models.ReviewAction, error) {
	if limit > len(f.entries) {
		limit = len(f.entries)
	}
	return f.entries[:limit], nil
}

func (f *memoryActionRepo) List(ctx context.Context, filter repository.ReviewActionFilter) ([]models.ReviewAction, int64, error) {
	return f.entries, int64(len(f.entries)), nil
}

func TestAuditServiceRecordNormalizesEntry(t *testing.T) {
	repo := &memoryActionRepo{}
	svc := NewAuditService(repo, testLogger())

	err := svc.Record(context.Background(), AuditEntry{
		ApplicationID: "app-1",
		Action:        "  APPROVE ",
		Reason:        "  solid answers ",
		Metadata: map[string]interface{}{
			"channel_id":  "888",
			"user_email":  "applicant@example.com",
			"reset_token": "abc123",
		},
	})
	require.NoError(t, err)
	require.Len(t, repo.entries, 1)

	entry := repo.entries[0]
	require.Equal(t, models.ActionApprove, entry.Action)
	require.Equal(t, "solid answers", entry.Reason)
	require.Equal(t, "system", entry.ActorID, "a missing actor falls back to system")
	require.Equal(t, "888", entry.Metadata["channel_id"])
	require.Equal(t, "***", entry.Metadata["user_email"])
	require.Equal(t, "***", entry.Metadata["reset_token"])
}

func TestAuditServiceRecordRequiresApplicationAndAction(t *testing.T) {
	repo := &memoryActionRepo{}
	svc := NewAuditService(repo, testLogger())

	require.Error(t, svc.Record(context.Background(), AuditEntry{Action: models.ActionClaim}))
	require.Error(t, svc.Record(context.Background(), AuditEntry{ApplicationID: "app-1"}))
	require.Empty(t, repo.entries)
}

func TestAuditServiceListPaginationMeta(t *testing.T) {
	repo := &memoryActionRepo{entries: []models.ReviewAction{
		{ApplicationID: "app-1", ActorID: "mod-1", Action: models.ActionClaim},
		{ApplicationID: "app-1", ActorID: "mod-1", Action: models.ActionApprove},
		{ApplicationID: "app-1", ActorID: "mod-1", Action: models.ActionEffectsSummary},
	}}
	svc := NewAuditService(repo, testLogger())

	response, err := svc.List(context.Background(), dto.ReviewActionListRequest{Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), response.Pagination.TotalItems)
	require.Equal(t, 2, response.Pagination.TotalPages)
}
