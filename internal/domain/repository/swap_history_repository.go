package repository

import (
	"context"

	"clinic-queue/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SwapHistoryRepository interface {
	Append(ctx context.Context, db *gorm.DB, entries ...*entity.SwapHistoryEntry) error
	FindByAppointment(ctx context.Context, db *gorm.DB, appointmentID uuid.UUID) ([]entity.SwapHistoryEntry, error)
	CountByAppointment(ctx context.Context, db *gorm.DB, appointmentID uuid.UUID) (int64, error)
}
