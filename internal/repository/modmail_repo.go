package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/gatekeeper-api/internal/models"
)

// ModmailRepository tracks support threads tied to applications.
type ModmailRepository interface {
	Create(ctx context.Context, ticket *models.ModmailTicket) error
	FindOpenByApplication(ctx context.Context, applicationID string) (models.ModmailTicket, error)
	Close(ctx context.Context, ticketID uint, at time.Time) error
}

type modmailRepository struct {
	db *gorm.DB
}

// NewModmailRepository constructs the modmail repository.
func NewModmailRepository(db *gorm.DB) ModmailRepository {
	return &modmailRepository{db: db}
}

func (r *modmailRepository) Create(ctx context.Context, ticket *models.ModmailTicket) error {
	return r.db.WithContext(ctx).Create(ticket).Error
}

func (r *modmailRepository) FindOpenByApplication(ctx context.Context, applicationID string) (models.ModmailTicket, error) {
	var ticket models.ModmailTicket
	if err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Where("open = ?", true).
		Order("created_at DESC").
		First(&ticket).Error; err != nil {
		return models.ModmailTicket{}, err
	}

	return ticket, nil
}

func (r *modmailRepository) Close(ctx context.Context, ticketID uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.ModmailTicket{}).
		Where("id = ?", ticketID).
		Where("open = ?", true).
		Updates(map[string]interface{}{
			"open":      false,
			"closed_at": at,
		}).Error
}
