package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gatekeeper-api/internal/dto"
	"github.com/noah-isme/gatekeeper-api/internal/models"
	"github.com/noah-isme/gatekeeper-api/internal/observability"
	"github.com/noah-isme/gatekeeper-api/internal/repository"
)

// ClaimHeldError reports that another reviewer already holds the claim.
type ClaimHeldError struct {
	ReviewerID string
}

func (e ClaimHeldError) Error() string {
	return fmt.Sprintf("already claimed by %s", e.ReviewerID)
}

// ClaimService coordinates advisory exclusivity between reviewers. Claims are
// persisted rows so they survive restarts and multi-instance deployments; the
// decision transaction stays the final gate against double decisions.
type ClaimService interface {
	Claim(ctx context.Context, applicationID string, actor Actor) (dto.ClaimResponse, error)
	Get(ctx context.Context, applicationID string) (*dto.ClaimResponse, error)
	Guard(ctx context.Context, applicationID, actorID string) (string, error)
	Clear(ctx context.Context, applicationID string, actor Actor) error
	ReapExpired(ctx context.Context) (int64, error)
}

type claimService struct {
	claims       repository.ClaimRepository
	applications repository.ApplicationRepository
	audit        AuditRecorder
	ttl          time.Duration
	logger       zerolog.Logger
	now          func() time.Time
}

// NewClaimService constructs the claim service.
func NewClaimService(claims repository.ClaimRepository, applications repository.ApplicationRepository, audit AuditRecorder, ttl time.Duration, logger zerolog.Logger) ClaimService {
	return &claimService{
		claims:       claims,
		applications: applications,
		audit:        audit,
		ttl:          ttl,
		logger:       logger.With().Str("component", "claim_service").Logger(),
		now:          time.Now,
	}
}

func (s *claimService) Claim(ctx context.Context, applicationID string, actor Actor) (dto.ClaimResponse, error) {
	application, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ClaimResponse{}, ErrApplicationNotFound
		}
		return dto.ClaimResponse{}, err
	}

	if application.IsTerminal() {
		return dto.ClaimResponse{}, NotEligibleError{Status: application.Status}
	}

	now := s.now()
	claim, acquired, err := s.claims.Acquire(ctx, applicationID, actor.ID, now)
	if err != nil {
		return dto.ClaimResponse{}, err
	}

	if !acquired {
		if claim.ExpiredAt(now, s.ttl) {
			if err := s.claims.Delete(ctx, applicationID); err != nil {
				return dto.ClaimResponse{}, err
			}
			claim, acquired, err = s.claims.Acquire(ctx, applicationID, actor.ID, now)
			if err != nil {
				return dto.ClaimResponse{}, err
			}
		}
		if !acquired {
			observability.ClaimConflicts().Inc()
			return dto.ClaimResponse{}, ClaimHeldError{ReviewerID: claim.ReviewerID}
		}
	}

	if err := s.audit.Record(ctx, AuditEntry{
		ApplicationID: applicationID,
		ActorID:       actor.ID,
		Action:        models.ActionClaim,
	}); err != nil {
		s.logger.Warn().Err(err).Str("application_id", applicationID).Msg("failed to audit claim")
	}

	return dto.NewClaimResponse(claim), nil
}

// Get returns the live claim, treating expired rows as absent.
func (s *claimService) Get(ctx context.Context, applicationID string) (*dto.ClaimResponse, error) {
	claim, err := s.claims.Get(ctx, applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if claim.ExpiredAt(s.now(), s.ttl) {
		return nil, nil
	}

	response := dto.NewClaimResponse(claim)
	return &response, nil
}

// Guard returns a human-readable objection when a different reviewer holds the
// claim, and an empty string when the actor may proceed.
func (s *claimService) Guard(ctx context.Context, applicationID, actorID string) (string, error) {
	claim, err := s.Get(ctx, applicationID)
	if err != nil {
		return "", err
	}

	if claim == nil || claim.ReviewerID == actorID {
		return "", nil
	}

	return fmt.Sprintf("already claimed by %s", claim.ReviewerID), nil
}

func (s *claimService) Clear(ctx context.Context, applicationID string, actor Actor) error {
	if err := s.claims.Delete(ctx, applicationID); err != nil {
		return err
	}

	if actor.ID != "" {
		if err := s.audit.Record(ctx, AuditEntry{
			ApplicationID: applicationID,
			ActorID:       actor.ID,
			Action:        models.ActionUnclaim,
		}); err != nil {
			s.logger.Warn().Err(err).Str("application_id", applicationID).Msg("failed to audit unclaim")
		}
	}

	return nil
}

func (s *claimService) ReapExpired(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}

	reaped, err := s.claims.DeleteExpired(ctx, s.now().Add(-s.ttl))
	if err != nil {
		return 0, err
	}

	if reaped > 0 {
		s.logger.Info().Int64("reaped", reaped).Msg("expired review claims removed")
	}

	return reaped, nil
}
