package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gatekeeper-api/internal/dto"
	"github.com/noah-isme/gatekeeper-api/internal/models"
	"github.com/noah-isme/gatekeeper-api/internal/repository"
)

// ErrAmbiguousLookup indicates zero or multiple identifiers were supplied.
var ErrAmbiguousLookup = errors.New("exactly one of short_code, user_id or id must be supplied")

// ErrMalformedLookupID indicates the raw identifier is not syntactically valid.
var ErrMalformedLookupID = errors.New("malformed application id")

// ErrApplicationNotFound indicates no application matched the lookup.
var ErrApplicationNotFound = errors.New("application not found")

// NotEligibleError reports an application that exists but is not in a
// reviewable status; it carries the current status for the caller.
type NotEligibleError struct {
	Status string
}

func (e NotEligibleError) Error() string {
	return fmt.Sprintf("application is %s", e.Status)
}

// LookupService resolves an application from exactly one identifier.
type LookupService interface {
	Resolve(ctx context.Context, req dto.LookupRequest) (models.Application, error)
}

type lookupService struct {
	applications repository.ApplicationRepository
	logger       zerolog.Logger
}

// NewLookupService constructs the lookup service.
func NewLookupService(applications repository.ApplicationRepository, logger zerolog.Logger) LookupService {
	return &lookupService{
		applications: applications,
		logger:       logger.With().Str("component", "lookup_service").Logger(),
	}
}

func (s *lookupService) Resolve(ctx context.Context, req dto.LookupRequest) (models.Application, error) {
	shortCode := strings.ToLower(strings.TrimSpace(req.ShortCode))
	userID := strings.TrimSpace(req.UserID)
	rawID := strings.TrimSpace(req.RawID)

	supplied := 0
	for _, value := range []string{shortCode, userID, rawID} {
		if value != "" {
			supplied++
		}
	}
	if supplied != 1 {
		return models.Application{}, ErrAmbiguousLookup
	}

	switch {
	case shortCode != "":
		application, err := s.applications.GetByShortCode(ctx, req.GuildID, shortCode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.Application{}, ErrApplicationNotFound
			}
			return models.Application{}, err
		}
		return application, nil

	case rawID != "":
		// Reject malformed ids before touching the database.
		if _, err := uuid.Parse(rawID); err != nil {
			return models.Application{}, ErrMalformedLookupID
		}
		application, err := s.applications.GetByID(ctx, rawID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.Application{}, ErrApplicationNotFound
			}
			return models.Application{}, err
		}
		return application, nil

	default:
		application, err := s.applications.GetActiveByUser(ctx, req.GuildID, userID)
		if err == nil {
			return application, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Application{}, err
		}

		// No live application; a resolved one surfaces its status instead of
		// a generic miss.
		latest, latestErr := s.applications.GetLatestByUser(ctx, req.GuildID, userID)
		if latestErr != nil {
			if errors.Is(latestErr, gorm.ErrRecordNotFound) {
				return models.Application{}, ErrApplicationNotFound
			}
			return models.Application{}, latestErr
		}

		return models.Application{}, NotEligibleError{Status: latest.Status}
	}
}
