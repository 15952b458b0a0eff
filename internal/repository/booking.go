package repository

import (
	"context"
	"time"

	"github.com/Kellia855/mindbridge/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BookingMutation changes a locked booking in place. Returning an error
// aborts the transaction and leaves the row untouched.
type BookingMutation func(ctx context.Context, b *models.Booking) error

// BookingRepository defines persistence operations for bookings.
type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id uint) (*models.Booking, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)
	// Mutate loads the booking under a row lock, applies fn and saves the
	// result in the same transaction.
	Mutate(ctx context.Context, id uint, fn BookingMutation) (*models.Booking, error)
	// MarkCompleted sets every listed booking to completed and returns the
	// bookings that were updated.
	MarkCompleted(ctx context.Context, ids []uint) ([]models.Booking, error)
}

type bookingRepository struct {
	db *gorm.DB
}

// NewBookingRepository returns a new BookingRepository implementation.
func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	if booking.Status == "" {
		booking.Status = models.BookingStatusPending
	}
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(booking).Error
	return dbError(err, "Booking", booking.ID)
}

func (r *bookingRepository) GetByID(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).Preload("Student").First(&booking, id).Error; err != nil {
		return nil, dbError(err, "Booking", id)
	}
	return &booking, nil
}

func (r *bookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	limit, offset := clampPage(filter.Limit, filter.Offset)

	q := r.db.WithContext(ctx).Model(&models.Booking{}).Preload("Student")
	if filter.StudentID != nil {
		q = q.Where("student_id = ?", *filter.StudentID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var bookings []models.Booking
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&bookings).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return bookings, nil
}

func (r *bookingRepository) Mutate(ctx context.Context, id uint, fn BookingMutation) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&booking, id).Error; err != nil {
			return dbError(err, "Booking", id)
		}

		// owner loaded separately; FOR UPDATE cannot be combined with a join
		var owner models.User
		if err := tx.First(&owner, booking.StudentID).Error; err == nil {
			booking.Student = &owner
		}

		if err := fn(ctx, &booking); err != nil {
			return err
		}
		if !booking.Status.Valid() {
			return models.NewValidationError("invalid booking status")
		}
		booking.UpdatedAt = time.Now()
		if err := tx.Omit(clause.Associations).Save(&booking).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) MarkCompleted(ctx context.Context, ids []uint) ([]models.Booking, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var updated []models.Booking
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", ids).Order("id ASC").Find(&updated).Error; err != nil {
			return models.NewInternalError(err)
		}
		if len(updated) == 0 {
			return nil
		}

		found := make([]uint, 0, len(updated))
		for i := range updated {
			found = append(found, updated[i].ID)
		}
		now := time.Now()
		if err := tx.Model(&models.Booking{}).Where("id IN ?", found).
			Updates(map[string]interface{}{"status": models.BookingStatusCompleted, "updated_at": now}).Error; err != nil {
			return models.NewInternalError(err)
		}
		for i := range updated {
			updated[i].Status = models.BookingStatusCompleted
			updated[i].UpdatedAt = now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
