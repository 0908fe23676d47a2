package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gatekeeper-api/internal/dto"
	"github.com/noah-isme/gatekeeper-api/internal/models"
	"github.com/noah-isme/gatekeeper-api/internal/repository"
)

// QueueService lists submitted applications awaiting review, annotated with
// live claims. Results are cached per guild and invalidated on any state
// change that alters the queue.
type QueueService interface {
	QueueInvalidator
	Queue(ctx context.Context, guildID string) (dto.QueueResponse, error)
}

type queueService struct {
	applications repository.ApplicationRepository
	claims       repository.ClaimRepository
	cache        *redis.Client
	cacheTTL     time.Duration
	claimTTL     time.Duration
	logger       zerolog.Logger
	now          func() time.Time
}

// NewQueueService constructs the review queue service.
func NewQueueService(applications repository.ApplicationRepository, claims repository.ClaimRepository, cache *redis.Client, cacheTTL, claimTTL time.Duration, logger zerolog.Logger) QueueService {
	return &queueService{
		applications: applications,
		claims:       claims,
		cache:        cache,
		cacheTTL:     cacheTTL,
		claimTTL:     claimTTL,
		logger:       logger.With().Str("component", "queue_service").Logger(),
		now:          time.Now,
	}
}

func queueCacheKey(guildID string) string {
	return fmt.Sprintf("review:queue:%s", guildID)
}

func (s *queueService) Queue(ctx context.Context, guildID string) (dto.QueueResponse, error) {
	cacheKey := queueCacheKey(guildID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.QueueResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Str("guild_id", guildID).Msg("review queue cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read review queue cache")
		}
	}

	applications, err := s.applications.ListByStatus(ctx, guildID, models.ApplicationStatusSubmitted)
	if err != nil {
		return dto.QueueResponse{}, err
	}

	ids := make([]string, 0, len(applications))
	for _, application := range applications {
		ids = append(ids, application.ID)
	}

	claims, err := s.claims.ListByApplicationIDs(ctx, ids)
	if err != nil {
		return dto.QueueResponse{}, err
	}

	now := s.now()
	claimByApplication := make(map[string]models.ReviewClaim, len(claims))
	for _, claim := range claims {
		if claim.ExpiredAt(now, s.claimTTL) {
			continue
		}
		claimByApplication[claim.ApplicationID] = claim
	}

	entries := make([]dto.QueueEntry, 0, len(applications))
	for _, application := range applications {
		entry := dto.QueueEntry{Application: dto.NewApplicationResponse(application)}
		if claim, ok := claimByApplication[application.ID]; ok {
			response := dto.NewClaimResponse(claim)
			entry.Claim = &response
		}
		entries = append(entries, entry)
	}

	response := dto.QueueResponse{GuildID: guildID, Entries: entries}

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store review queue cache")
			}
		}
	}

	return response, nil
}

func (s *queueService) Invalidate(ctx context.Context, guildID string) error {
	if s.cache == nil {
		return nil
	}

	return s.cache.Del(ctx, queueCacheKey(guildID)).Err()
}
