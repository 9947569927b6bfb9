package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Eursukkul/guesthouse-booking/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookingRepository interface {
	// Transaction runs fn inside one database transaction. Every write made
	// through the tx handle commits together or not at all.
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	FindByID(ctx context.Context, applicationID string) (*models.Booking, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, applicationID string) (*models.Booking, error)
	FindAll(ctx context.Context) ([]models.Booking, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, applicationID string, status models.BookingStatus, reason *string, at time.Time) error
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *bookingRepository) Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	if err := tx.WithContext(ctx).Create(booking).Error; err != nil {
		return fmt.Errorf("repository.BookingRepository.Create: %w", translate(err))
	}
	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, applicationID string) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).First(&booking, "application_id = ?", applicationID).Error; err != nil {
		return nil, fmt.Errorf("repository.BookingRepository.FindByID: %w", translate(err))
	}
	return &booking, nil
}

// FindByIDForUpdate acquires a row-level lock on the booking within the given
// transaction, serializing concurrent status changes on the same id.
func (r *bookingRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, applicationID string) (*models.Booking, error) {
	var booking models.Booking
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&booking, "application_id = ?", applicationID).Error
	if err != nil {
		return nil, fmt.Errorf("repository.BookingRepository.FindByIDForUpdate: %w", translate(err))
	}
	return &booking, nil
}

// FindAll returns every booking. Ordering is left to the caller.
func (r *bookingRepository) FindAll(ctx context.Context) ([]models.Booking, error) {
	var bookings []models.Booking
	if err := r.db.WithContext(ctx).Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("repository.BookingRepository.FindAll: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, applicationID string, status models.BookingStatus, reason *string, at time.Time) error {
	res := tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("application_id = ?", applicationID).
		Updates(map[string]any{
			"status":           status,
			"rejection_reason": reason,
			"updated_at":       at,
		})
	if res.Error != nil {
		return fmt.Errorf("repository.BookingRepository.UpdateStatus: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("repository.BookingRepository.UpdateStatus: %w", models.ErrNotFound)
	}
	return nil
}

// translate maps gorm sentinels onto domain errors. The postgres dialector
// only reports ErrDuplicatedKey when the connection is opened with
// TranslateError enabled.
func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return models.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return models.ErrDuplicateID
	default:
		return err
	}
}
