package service

import (
	"context"

	"clinic-queue/internal/domain/entity"
	"clinic-queue/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AuditActor identifies who performed an audited action.
// UserID is nil for system actors such as the absence scanner.
type AuditActor struct {
	Name   string
	UserID *uuid.UUID
}

// SystemActor is used for changes made without a user request
var SystemActor = AuditActor{Name: entity.AuditActorSystem}

type AuditService interface {
	LogCreate(ctx context.Context, tx *gorm.DB, actor AuditActor, action string, entityName string, entityID string, newValue interface{}) error
	LogUpdate(ctx context.Context, tx *gorm.DB, actor AuditActor, action string, entityName string, entityID string, oldValue, newValue interface{}) error
	LogEvent(ctx context.Context, tx *gorm.DB, actor AuditActor, action string, entityName string, entityID string, metadata entity.JSON) error
}

type auditService struct {
	log       *logrus.Logger
	auditRepo repository.AuditLogRepository
}

func NewAuditService(log *logrus.Logger, auditRepo repository.AuditLogRepository) AuditService {
	return &auditService{
		log:       log,
		auditRepo: auditRepo,
	}
}

// LogCreate logs a create action
func (s *auditService) LogCreate(ctx context.Context, tx *gorm.DB, actor AuditActor, action string, entityName string, entityID string, newValue interface{}) error {
	return s.LogEvent(ctx, tx, actor, action, entityName, entityID, entity.JSON{
		"old_value": nil,
		"new_value": newValue,
	})
}

// LogUpdate logs an update action with old and new values
func (s *auditService) LogUpdate(ctx context.Context, tx *gorm.DB, actor AuditActor, action string, entityName string, entityID string, oldValue, newValue interface{}) error {
	return s.LogEvent(ctx, tx, actor, action, entityName, entityID, entity.JSON{
		"old_value": oldValue,
		"new_value": newValue,
	})
}

// LogEvent writes an audit row inside tx, so it commits or rolls back with the change it describes.
func (s *auditService) LogEvent(ctx context.Context, tx *gorm.DB, actor AuditActor, action string, entityName string, entityID string, metadata entity.JSON) error {
	auditLog := &entity.AuditLog{
		UserID:     actor.UserID,
		Actor:      actor.Name,
		Action:     action,
		EntityType: entityName,
		EntityID:   entityID,
		Metadata:   metadata,
	}

	if err := s.auditRepo.Create(ctx, tx, auditLog); err != nil {
		s.log.Warnf("Failed to create audit log: %+v", err)
		return err
	}

	return nil
}
