package repository

import (
	"context"

	"clinic-queue/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(ctx context.Context, db *gorm.DB, notification *entity.Notification) error
	ExistsForAppointment(ctx context.Context, db *gorm.DB, templateKey string, appointmentID uuid.UUID) (bool, error)
}
