package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gatekeeper-api/internal/models"
)

// ReviewActionFilter narrows audit trail queries.
type ReviewActionFilter struct {
	Page          int
	PageSize      int
	ApplicationID string
	ActorID       string
	Action        string
}

// ReviewActionRepository persists the append-only audit trail.
type ReviewActionRepository interface {
	Create(ctx context.Context, entry *models.ReviewAction) error
	ListRecent(ctx context.Context, applicationID string, limit int) ([]models.ReviewAction, error)
	List(ctx context.Context, filter ReviewActionFilter) ([]models.ReviewAction, int64, error)
}

type reviewActionRepository struct {
	db *gorm.DB
}

// NewReviewActionRepository constructs the review action repository.
func NewReviewActionRepository(db *gorm.DB) ReviewActionRepository {
	return &reviewActionRepository{db: db}
}

func (r *reviewActionRepository) Create(ctx context.Context, entry *models.ReviewAction) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *reviewActionRepository) ListRecent(ctx context.Context, applicationID string, limit int) ([]models.ReviewAction, error) {
	if limit <= 0 {
		limit = 10
	}

	var entries []models.ReviewAction
	if err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *reviewActionRepository) List(ctx context.Context, filter ReviewActionFilter) ([]models.ReviewAction, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ReviewAction{})

	if filter.ApplicationID != "" {
		query = query.Where("application_id = ?", filter.ApplicationID)
	}

	if filter.ActorID != "" {
		query = query.Where("actor_id = ?", filter.ActorID)
	}

	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		offset := (page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	var entries []models.ReviewAction
	if err := query.Order("created_at DESC").Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
