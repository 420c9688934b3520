package repository

import (
	"context"
	"time"

	"clinic-queue/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentRepository interface {
	Create(ctx context.Context, db *gorm.DB, appointment *entity.Appointment) error
	FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []uuid.UUID) ([]entity.Appointment, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id uuid.UUID, status entity.AppointmentStatus) (int64, error)
	UpdateLocation(ctx context.Context, db *gorm.DB, id uuid.UUID, location entity.JSON) (int64, error)
	FindOverdue(ctx context.Context, db *gorm.DB, threshold time.Time) ([]entity.Appointment, error)
	FindScheduledBetween(ctx context.Context, db *gorm.DB, from, to time.Time) ([]entity.Appointment, error)
	FindActiveEmergencies(ctx context.Context, db *gorm.DB) ([]entity.Appointment, error)
}
