package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gatekeeper-api/internal/models"
)

// ClaimRepository persists advisory review claims.
type ClaimRepository interface {
	Get(ctx context.Context, applicationID string) (models.ReviewClaim, error)
	ListByApplicationIDs(ctx context.Context, applicationIDs []string) ([]models.ReviewClaim, error)
	Acquire(ctx context.Context, applicationID, reviewerID string, at time.Time) (models.ReviewClaim, bool, error)
	Delete(ctx context.Context, applicationID string) error
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type claimRepository struct {
	db *gorm.DB
}

// NewClaimRepository constructs the claim repository.
func NewClaimRepository(db *gorm.DB) ClaimRepository {
	return &claimRepository{db: db}
}

func (r *claimRepository) Get(ctx context.Context, applicationID string) (models.ReviewClaim, error) {
	var claim models.ReviewClaim
	if err := r.db.WithContext(ctx).Where("application_id = ?", applicationID).First(&claim).Error; err != nil {
		return models.ReviewClaim{}, err
	}

	return claim, nil
}

func (r *claimRepository) ListByApplicationIDs(ctx context.Context, applicationIDs []string) ([]models.ReviewClaim, error) {
	if len(applicationIDs) == 0 {
		return nil, nil
	}

	var claims []models.ReviewClaim
	if err := r.db.WithContext(ctx).
		Where("application_id IN ?", applicationIDs).
		Find(&claims).Error; err != nil {
		return nil, err
	}

	return claims, nil
}

// Acquire attempts to insert the claim row. The unique index on application_id
// makes the insert the arbitration point; on conflict the existing holder wins
// unless it is the same reviewer, in which case the claim timestamp refreshes.
func (r *claimRepository) Acquire(ctx context.Context, applicationID, reviewerID string, at time.Time) (models.ReviewClaim, bool, error) {
	claim := models.ReviewClaim{
		ApplicationID: applicationID,
		ReviewerID:    reviewerID,
		ClaimedAt:     at,
	}

	insert := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "application_id"}},
		DoNothing: true,
	}).Create(&claim)
	if insert.Error != nil {
		return models.ReviewClaim{}, false, insert.Error
	}

	if insert.RowsAffected == 1 {
		return claim, true, nil
	}

	existing, err := r.Get(ctx, applicationID)
	if err != nil {
		return models.ReviewClaim{}, false, err
	}

	if existing.ReviewerID != reviewerID {
		return existing, false, nil
	}

	existing.ClaimedAt = at
	if err := r.db.WithContext(ctx).Model(&models.ReviewClaim{}).
		Where("application_id = ?", applicationID).
		Update("claimed_at", at).Error; err != nil {
		return models.ReviewClaim{}, false, err
	}

	return existing, true, nil
}

func (r *claimRepository) Delete(ctx context.Context, applicationID string) error {
	return r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Delete(&models.ReviewClaim{}).Error
}

func (r *claimRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("claimed_at < ?", cutoff).
		Delete(&models.ReviewClaim{})

	return result.RowsAffected, result.Error
}
