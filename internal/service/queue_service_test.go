package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gatekeeper-api/internal/models"
	"github.com/noah-isme/gatekeeper-api/internal/repository"
)

type queueAppRepo struct {
	submitted []models.Application
	listCalls int
}

func (f *queueAppRepo) GetByID(ctx context.Context, id string) (models.Application, error) {
	return models.Application{}, gorm.ErrRecordNotFound
}

func (f *queueAppRepo) GetByShortCode(ctx context.Context, guildID, code string) (models.Application, error) {
	return models.Application{}, gorm.ErrRecordNotFound
}

func (f *queueAppRepo) GetActiveByUser(ctx context.Context, guildID, userID string) (models.Application, error) {
	return models.Application{}, gorm.ErrRecordNotFound
}

func (f *queueAppRepo) GetLatestByUser(ctx context.Context, guildID, userID string) (models.Application, error) {
	return models.Application{}, gorm.ErrRecordNotFound
}

func (f *queueAppRepo) GetLatestByUserAndStatus(ctx context.Context, guildID, userID, status string) (models.Application, error) {
	return models.Application{}, gorm.ErrRecordNotFound
}

func (f *queueAppRepo) ListByStatus(ctx context.Context, guildID, status string) ([]models.Application, error) {
	f.listCalls++
	return f.submitted, nil
}

func (f *queueAppRepo) Create(ctx context.Context, application *models.Application) error {
	return nil
}

func (f *queueAppRepo) MarkSubmitted(ctx context.Context, id string, answers datatypes.JSONMap, at time.Time) (models.Application, error) {
	return models.Application{}, gorm.ErrRecordNotFound
}

func (f *queueAppRepo) Resolve(ctx context.Context, id, toStatus, actorID, reason string, at time.Time) (repository.DecisionResult, models.Application, error) {
	return repository.DecisionInvalid, models.Application{}, nil
}

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func submittedApplication(userID string) models.Application {
	app := models.NewApplication("100200300", userID)
	app.Status = models.ApplicationStatusSubmitted
	now := time.Now()
	app.SubmittedAt = &now
	return app
}

func TestQueueServiceAnnotatesLiveClaims(t *testing.T) {
	first := submittedApplication("400500600")
	second := submittedApplication("400500601")
	apps := &queueAppRepo{submitted: []models.Application{first, second}}

	claims := newMemoryClaimRepo()
	claims.claims[first.ID] = models.ReviewClaim{ApplicationID: first.ID, ReviewerID: "mod-1", ClaimedAt: time.Now()}
	claims.claims[second.ID] = models.ReviewClaim{ApplicationID: second.ID, ReviewerID: "mod-2", ClaimedAt: time.Now().Add(-time.Hour)}

	svc := NewQueueService(apps, claims, testRedis(t), time.Minute, 15*time.Minute, testLogger())

	queue, err := svc.Queue(context.Background(), "100200300")
	require.NoError(t, err)
	require.Len(t, queue.Entries, 2)

	require.NotNil(t, queue.Entries[0].Claim)
	require.Equal(t, "mod-1", queue.Entries[0].Claim.ReviewerID)
	require.Nil(t, queue.Entries[1].Claim, "an expired claim reads as unclaimed")
}

func TestQueueServiceCachesUntilInvalidated(t *testing.T) {
	apps := &queueAppRepo{submitted: []models.Application{submittedApplication("400500600")}}
	svc := NewQueueService(apps, newMemoryClaimRepo(), testRedis(t), time.Minute, 15*time.Minute, testLogger())

	_, err := svc.Queue(context.Background(), "100200300")
	require.NoError(t, err)
	require.Equal(t, 1, apps.listCalls)

	_, err = svc.Queue(context.Background(), "100200300")
	require.NoError(t, err)
	require.Equal(t, 1, apps.listCalls, "the second read must come from the cache")

	require.NoError(t, svc.Invalidate(context.Background(), "100200300"))

	_, err = svc.Queue(context.Background(), "100200300")
	require.NoError(t, err)
	require.Equal(t, 2, apps.listCalls)
}
