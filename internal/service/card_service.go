package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gatekeeper-api/internal/dto"
	"github.com/noah-isme/gatekeeper-api/internal/gateway"
	"github.com/noah-isme/gatekeeper-api/internal/repository"
)

const cardRecentActions = 10

// CardService renders the staff-facing review card: the application, its live
// claim, and the most recent audit entries. Render reads through a redis
// cache; Refresh re-renders and nudges the gateway to redraw.
type CardService interface {
	Render(ctx context.Context, applicationID string) (dto.CardResponse, error)
	Refresh(ctx context.Context, applicationID string) error
}

type cardService struct {
	applications repository.ApplicationRepository
	claims       ClaimService
	audit        AuditService
	gateway      gateway.CardClient
	cache        *redis.Client
	cacheTTL     time.Duration
	logger       zerolog.Logger
	now          func() time.Time
}

// NewCardService constructs the review card service.
func NewCardService(applications repository.ApplicationRepository, claims ClaimService, audit AuditService, cardGateway gateway.CardClient, cache *redis.Client, cacheTTL time.Duration, logger zerolog.Logger) CardService {
	return &cardService{
		applications: applications,
		claims:       claims,
		audit:        audit,
		gateway:      cardGateway,
		cache:        cache,
		cacheTTL:     cacheTTL,
		logger:       logger.With().Str("component", "card_service").Logger(),
		now:          time.Now,
	}
}

func cardCacheKey(applicationID string) string {
	return fmt.Sprintf("review:card:%s", applicationID)
}

func (s *cardService) Render(ctx context.Context, applicationID string) (dto.CardResponse, error) {
	cacheKey := cardCacheKey(applicationID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.CardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read review card cache")
		}
	}

	response, err := s.render(ctx, applicationID)
	if err != nil {
		return dto.CardResponse{}, err
	}

	s.store(ctx, cacheKey, response)
	return response, nil
}

// Refresh re-renders the card, replaces the cached copy and asks the gateway
// to redraw the platform-side message.
func (s *cardService) Refresh(ctx context.Context, applicationID string) error {
	response, err := s.render(ctx, applicationID)
	if err != nil {
		return err
	}

	s.store(ctx, cardCacheKey(applicationID), response)

	if s.gateway != nil {
		if err := s.gateway.Refresh(ctx, applicationID); err != nil {
			return err
		}
	}

	return nil
}

func (s *cardService) render(ctx context.Context, applicationID string) (dto.CardResponse, error) {
	application, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CardResponse{}, ErrApplicationNotFound
		}
		return dto.CardResponse{}, err
	}

	claim, err := s.claims.Get(ctx, applicationID)
	if err != nil {
		return dto.CardResponse{}, err
	}

	actions, err := s.audit.Recent(ctx, applicationID, cardRecentActions)
	if err != nil {
		return dto.CardResponse{}, err
	}

	return dto.CardResponse{
		Application:   dto.NewApplicationResponse(application),
		Claim:         claim,
		RecentActions: actions,
		RenderedAt:    s.now().UTC(),
	}, nil
}

func (s *cardService) store(ctx context.Context, cacheKey string, response dto.CardResponse) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(response)
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store review card cache")
	}
}
