package repository

import (
	"context"
	"time"

	"clinic-queue/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type QueuePositionRepository interface {
	Create(ctx context.Context, db *gorm.DB, appointmentID, doctorID uuid.UUID, emergency bool) (*entity.QueuePosition, error)
	FindByAppointment(ctx context.Context, db *gorm.DB, appointmentID uuid.UUID) (*entity.QueuePosition, error)
	UpdateState(ctx context.Context, db *gorm.DB, appointmentID uuid.UUID, state entity.AppointmentStatus, lastSeenAt, absentAt *time.Time) (int64, error)
	FindNextEligible(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, afterPosition int) (*entity.QueuePosition, error)
	SwapPositions(ctx context.Context, db *gorm.DB, a, b *entity.QueuePosition) error
	LockDoctorQueue(ctx context.Context, db *gorm.DB, doctorID uuid.UUID) ([]entity.QueuePosition, error)
	FindByFilter(ctx context.Context, db *gorm.DB, filter entity.QueueFilter) ([]entity.QueuePosition, error)
}
