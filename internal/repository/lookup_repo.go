package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Eursukkul/guesthouse-booking/internal/models"
	"gorm.io/gorm"
)

// StatusLookupRepository has no transaction of its own; writes always ride
// on the booking transaction so the pair cannot diverge.
type StatusLookupRepository interface {
	Create(ctx context.Context, tx *gorm.DB, lookup *models.StatusLookup) error
	FindByID(ctx context.Context, applicationID string) (*models.StatusLookup, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, applicationID string, status models.BookingStatus, at time.Time) error
}

type statusLookupRepository struct {
	db *gorm.DB
}

func NewStatusLookupRepository(db *gorm.DB) StatusLookupRepository {
	return &statusLookupRepository{db: db}
}

func (r *statusLookupRepository) Create(ctx context.Context, tx *gorm.DB, lookup *models.StatusLookup) error {
	if err := tx.WithContext(ctx).Create(lookup).Error; err != nil {
		return fmt.Errorf("repository.StatusLookupRepository.Create: %w", translate(err))
	}
	return nil
}

func (r *statusLookupRepository) FindByID(ctx context.Context, applicationID string) (*models.StatusLookup, error) {
	var lookup models.StatusLookup
	if err := r.db.WithContext(ctx).First(&lookup, "application_id = ?", applicationID).Error; err != nil {
		return nil, fmt.Errorf("repository.StatusLookupRepository.FindByID: %w", translate(err))
	}
	return &lookup, nil
}

func (r *statusLookupRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, applicationID string, status models.BookingStatus, at time.Time) error {
	res := tx.WithContext(ctx).
		Model(&models.StatusLookup{}).
		Where("application_id = ?", applicationID).
		Updates(map[string]any{
			"status":     status,
			"updated_at": at,
		})
	if res.Error != nil {
		return fmt.Errorf("repository.StatusLookupRepository.UpdateStatus: %w", res.Error)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("repository.StatusLookupRepository.UpdateStatus: %w", models.ErrNotFound)
	}
	return nil
}
