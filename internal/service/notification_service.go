package service

import (
	"context"
	"encoding/json"
	"time"

	"clinic-queue/config"
	"clinic-queue/internal/domain/entity"
	"clinic-queue/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"gorm.io/gorm"
)

const notificationPublishTimeout = 5 * time.Second

// NotificationMessage is one outbound notification request.
type NotificationMessage struct {
	Channel       entity.NotificationChannel
	TemplateKey   string
	Payload       entity.JSON
	PatientID     *uuid.UUID
	AppointmentID *uuid.UUID
}

// Notifier hands notifications to the delivery workers. Failures are logged, never returned.
type Notifier interface {
	Emit(ctx context.Context, msg NotificationMessage)
}

// MessageWriter is the part of *kafka.Writer used by the notifier
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type notificationService struct {
	db               *gorm.DB
	log              *logrus.Logger
	notificationRepo repository.NotificationRepository
	writer           MessageWriter
	breaker          *gobreaker.CircuitBreaker[any]
}

// NewNotificationService persists every notification as PENDING and, when writer is non-nil,
// publishes it to Kafka for the delivery workers.
func NewNotificationService(
	db *gorm.DB,
	log *logrus.Logger,
	notificationRepo repository.NotificationRepository,
	writer MessageWriter,
	breakerCfg config.BreakerConfig,
) Notifier {
	return &notificationService{
		db:               db,
		log:              log,
		notificationRepo: notificationRepo,
		writer:           writer,
		breaker:          newBreaker("notification-publisher", breakerCfg, log),
	}
}

func (s *notificationService) Emit(ctx context.Context, msg NotificationMessage) {
	ctx = context.WithoutCancel(ctx)

	notification := &entity.Notification{
		Channel:       msg.Channel,
		TemplateKey:   msg.TemplateKey,
		Payload:       msg.Payload,
		PatientID:     msg.PatientID,
		AppointmentID: msg.AppointmentID,
		Status:        entity.NotificationStatusPending,
	}

	if err := s.notificationRepo.Create(ctx, s.db, notification); err != nil {
		s.log.Warnf("Failed to store notification %s: %+v", msg.TemplateKey, err)
		return
	}

	if s.writer == nil {
		return
	}

	body, err := json.Marshal(notification)
	if err != nil {
		s.log.Warnf("Failed to encode notification %d: %+v", notification.ID, err)
		return
	}

	key := notification.TemplateKey
	if notification.PatientID != nil {
		key = notification.PatientID.String()
	}

	pubCtx, cancel := context.WithTimeout(ctx, notificationPublishTimeout)
	defer cancel()

	_, err = s.breaker.Execute(func() (any, error) {
		return nil, s.writer.WriteMessages(pubCtx, kafka.Message{
			Key:   []byte(key),
			Value: body,
		})
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"notification_id": notification.ID,
			"template":        notification.TemplateKey,
		}).Warnf("Failed to publish notification: %+v", err)
	}
}
