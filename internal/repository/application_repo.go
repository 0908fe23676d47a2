package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gatekeeper-api/internal/models"
)

// DecisionResult classifies the outcome of a decision transaction.
type DecisionResult string

const (
	// DecisionApplied means the terminal status was written by this call.
	DecisionApplied DecisionResult = "applied"
	// DecisionAlready means the same terminal status was already present.
	DecisionAlready DecisionResult = "already"
	// DecisionTerminal means a different terminal decision won earlier.
	DecisionTerminal DecisionResult = "terminal"
	// DecisionInvalid means the application is missing or not decidable.
	DecisionInvalid DecisionResult = "invalid"
)

// ApplicationRepository provides access to admission applications.
type ApplicationRepository interface {
	GetByID(ctx context.Context, id string) (models.Application, error)
	GetByShortCode(ctx context.Context, guildID, code string) (models.Application, error)
	GetActiveByUser(ctx context.Context, guildID, userID string) (models.Application, error)
	GetLatestByUser(ctx context.Context, guildID, userID string) (models.Application, error)
	GetLatestByUserAndStatus(ctx context.Context, guildID, userID, status string) (models.Application, error)
	ListByStatus(ctx context.Context, guildID, status string) ([]models.Application, error)
	Create(ctx context.Context, application *models.Application) error
	MarkSubmitted(ctx context.Context, id string, answers datatypes.JSONMap, at time.Time) (models.Application, error)
	Resolve(ctx context.Context, id, toStatus, actorID, reason string, at time.Time) (DecisionResult, models.Application, error)
}

type applicationRepository struct {
	db *gorm.DB
}

// NewApplicationRepository constructs the application repository.
func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) GetByID(ctx context.Context, id string) (models.Application, error) {
	var application models.Application
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&application).Error; err != nil {
		return models.Application{}, err
	}

	return application, nil
}

func (r *applicationRepository) GetByShortCode(ctx context.Context, guildID, code string) (models.Application, error) {
	var application models.Application
	if err := r.db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		Where("short_code = ?", code).
		Order("created_at DESC").
		First(&application).Error; err != nil {
		return models.Application{}, err
	}

	return application, nil
}

func (r *applicationRepository) GetActiveByUser(ctx context.Context, guildID, userID string) (models.Application, error) {
	var application models.Application
	if err := r.db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		Where("user_id = ?", userID).
		Where("status IN ?", []string{models.ApplicationStatusPending, models.ApplicationStatusSubmitted}).
		Order("created_at DESC").
		First(&application).Error; err != nil {
		return models.Application{}, err
	}

	return application, nil
}

func (r *applicationRepository) GetLatestByUser(ctx context.Context, guildID, userID string) (models.Application, error) {
	var application models.Application
	if err := r.db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&application).Error; err != nil {
		return models.Application{}, err
	}

	return application, nil
}

func (r *applicationRepository) GetLatestByUserAndStatus(ctx context.Context, guildID, userID, status string) (models.Application, error) {
	var application models.Application
	if err := r.db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		Where("user_id = ?", userID).
		Where("status = ?", status).
		Order("resolved_at DESC").
		First(&application).Error; err != nil {
		return models.Application{}, err
	}

	return application, nil
}

func (r *applicationRepository) ListByStatus(ctx context.Context, guildID, status string) ([]models.Application, error) {
	var applications []models.Application
	if err := r.db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		Where("status = ?", status).
		Order("submitted_at ASC").
		Find(&applications).Error; err != nil {
		return nil, err
	}

	return applications, nil
}

func (r *applicationRepository) Create(ctx context.Context, application *models.Application) error {
	return r.db.WithContext(ctx).Create(application).Error
}

func (r *applicationRepository) MarkSubmitted(ctx context.Context, id string, answers datatypes.JSONMap, at time.Time) (models.Application, error) {
	update := r.db.WithContext(ctx).Model(&models.Application{}).
		Where("id = ?", id).
		Where("status = ?", models.ApplicationStatusPending).
		Updates(map[string]interface{}{
			"status":       models.ApplicationStatusSubmitted,
			"answers":      answers,
			"submitted_at": at,
			"updated_at":   at,
		})
	if update.Error != nil {
		return models.Application{}, update.Error
	}

	if update.RowsAffected == 0 {
		return models.Application{}, gorm.ErrRecordNotFound
	}

	return r.GetByID(ctx, id)
}

// Resolve applies a terminal decision as a single compare-and-set write.
// The guarded UPDATE on the submitted status is the linearization point: when
// two decisions race, exactly one update matches a row and the loser falls
// through to classification against the live row.
func (r *applicationRepository) Resolve(ctx context.Context, id, toStatus, actorID, reason string, at time.Time) (DecisionResult, models.Application, error) {
	result := DecisionInvalid
	var resolved models.Application

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		update := tx.Model(&models.Application{}).
			Where("id = ?", id).
			Where("status = ?", models.ApplicationStatusSubmitted).
			Updates(map[string]interface{}{
				"status":            toStatus,
				"resolver_id":       actorID,
				"resolution_reason": reason,
				"resolved_at":       at,
				"updated_at":        at,
			})
		if update.Error != nil {
			return update.Error
		}

		if update.RowsAffected == 1 {
			result = DecisionApplied
			return tx.Where("id = ?", id).First(&resolved).Error
		}

		var current models.Application
		if err := tx.Where("id = ?", id).First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				result = DecisionInvalid
				return nil
			}
			return err
		}

		resolved = current
		switch {
		case current.Status == toStatus:
			result = DecisionAlready
		case current.IsTerminal():
			result = DecisionTerminal
		default:
			result = DecisionInvalid
		}

		return nil
	})
	if err != nil {
		return DecisionInvalid, models.Application{}, err
	}

	return result, resolved, nil
}
