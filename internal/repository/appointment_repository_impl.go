package repository

import (
	"context"
	"errors"
	"time"

	"clinic-queue/internal/domain/entity"
	domainRepo "clinic-queue/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type appointmentRepository struct{}

func NewAppointmentRepository() domainRepo.AppointmentRepository {
	return &appointmentRepository{}
}

func (r *appointmentRepository) Create(ctx context.Context, db *gorm.DB, appointment *entity.Appointment) error {
	return db.WithContext(ctx).Omit("QueuePosition", "SwapHistory").Create(appointment).Error
}

func (r *appointmentRepository) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := db.WithContext(ctx).Preload("QueuePosition").Where("id = ?", id).First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

// FindByIDForUpdate loads the appointment row and locks it until the surrounding transaction ends.
// The queue position is loaded separately by the caller under the doctor queue lock.
func (r *appointmentRepository) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := forUpdate(db.WithContext(ctx)).Where("id = ?", id).First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) FindByIDs(ctx context.Context, db *gorm.DB, ids []uuid.UUID) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	if len(ids) == 0 {
		return appointments, nil
	}
	err := db.WithContext(ctx).Where("id IN ?", ids).Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, db *gorm.DB, id uuid.UUID, status entity.AppointmentStatus) (int64, error) {
	result := db.WithContext(ctx).Model(&entity.Appointment{}).
		Where("id = ?", id).
		Update("status", status)
	return result.RowsAffected, result.Error
}

func (r *appointmentRepository) UpdateLocation(ctx context.Context, db *gorm.DB, id uuid.UUID, location entity.JSON) (int64, error) {
	result := db.WithContext(ctx).Model(&entity.Appointment{}).
		Where("id = ?", id).
		Update("location_info", location)
	return result.RowsAffected, result.Error
}

// FindOverdue returns routine appointments still expected (BOOKED or ON_WAY) whose
// scheduled time is before threshold, earliest first.
func (r *appointmentRepository) FindOverdue(ctx context.Context, db *gorm.DB, threshold time.Time) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := db.WithContext(ctx).
		Preload("QueuePosition").
		Where("scheduled_at < ? AND emergency = ? AND status IN ?",
			threshold, false, []entity.AppointmentStatus{entity.StatusBooked, entity.StatusOnWay}).
		Order("scheduled_at ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

// FindScheduledBetween returns BOOKED or ON_WAY appointments scheduled in [from, to).
func (r *appointmentRepository) FindScheduledBetween(ctx context.Context, db *gorm.DB, from, to time.Time) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := db.WithContext(ctx).
		Where("scheduled_at >= ? AND scheduled_at < ? AND status IN ?",
			from, to, []entity.AppointmentStatus{entity.StatusBooked, entity.StatusOnWay}).
		Order("scheduled_at ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

// FindActiveEmergencies returns emergency appointments not yet completed or absent, newest first.
func (r *appointmentRepository) FindActiveEmergencies(ctx context.Context, db *gorm.DB) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := db.WithContext(ctx).
		Preload("QueuePosition").
		Where("emergency = ? AND status IN ?", true, entity.ActiveQueueStates).
		Order("created_at DESC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}
