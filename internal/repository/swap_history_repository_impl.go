package repository

import (
	"context"

	"clinic-queue/internal/domain/entity"
	domainRepo "clinic-queue/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type swapHistoryRepository struct{}

func NewSwapHistoryRepository() domainRepo.SwapHistoryRepository {
	return &swapHistoryRepository{}
}

func (r *swapHistoryRepository) Append(ctx context.Context, db *gorm.DB, entries ...*entity.SwapHistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(entries).Error
}

func (r *swapHistoryRepository) FindByAppointment(ctx context.Context, db *gorm.DB, appointmentID uuid.UUID) ([]entity.SwapHistoryEntry, error) {
	var entries []entity.SwapHistoryEntry
	err := db.WithContext(ctx).
		Where("appointment_id = ?", appointmentID).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *swapHistoryRepository) CountByAppointment(ctx context.Context, db *gorm.DB, appointmentID uuid.UUID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&entity.SwapHistoryEntry{}).
		Where("appointment_id = ?", appointmentID).
		Count(&count).Error
	return count, err
}
