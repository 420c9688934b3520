package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clinic-queue/internal/converter"
	"clinic-queue/internal/delivery/dto"
	"clinic-queue/internal/domain/entity"
	"clinic-queue/internal/domain/repository"
	"clinic-queue/internal/infrastructure/database"
	"clinic-queue/internal/service"
	"clinic-queue/pkg/clock"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrInvalidTransition = errors.New("appointment cannot move to the requested status")
)

type AppointmentUsecase interface {
	CreateAppointment(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error)
	RaiseEmergency(ctx context.Context, req *dto.RaiseEmergencyRequest) (*dto.AppointmentResponse, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	GetActiveEmergencies(ctx context.Context) (*dto.AppointmentListResponse, error)
	MarkArrived(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	MarkOnWay(ctx context.Context, id uuid.UUID, req *dto.OnWayRequest) (*dto.AppointmentResponse, error)
	StartTreatment(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	CompleteTreatment(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
}

type appointmentUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	clock           clock.Clock
	locks           *service.DoctorQueueLocks
	appointmentRepo repository.AppointmentRepository
	positionRepo    repository.QueuePositionRepository
	auditService    service.AuditService
	bridge          service.RealtimeBridge
	notifier        service.Notifier
}

func NewAppointmentUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	clk clock.Clock,
	locks *service.DoctorQueueLocks,
	appointmentRepo repository.AppointmentRepository,
	positionRepo repository.QueuePositionRepository,
	auditService service.AuditService,
	bridge service.RealtimeBridge,
	notifier service.Notifier,
) AppointmentUsecase {
	return &appointmentUsecase{
		db:              db,
		log:             log,
		clock:           clk,
		locks:           locks,
		appointmentRepo: appointmentRepo,
		positionRepo:    positionRepo,
		auditService:    auditService,
		bridge:          bridge,
		notifier:        notifier,
	}
}

func (u *appointmentUsecase) CreateAppointment(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	appointment := &entity.Appointment{
		PatientID:   req.PatientID,
		DoctorID:    req.DoctorID,
		Department:  req.Department,
		ScheduledAt: req.ScheduledAt.UTC(),
		Emergency:   req.Emergency,
		Notes:       req.Notes,
		Status:      entity.StatusBooked,
	}

	if err := u.book(ctx, appointment, entity.AuditActionAppointmentCreate); err != nil {
		return nil, err
	}

	u.bridge.NotifyQueueChanged(ctx, appointment.DoctorID)
	if appointment.Emergency {
		u.bridge.NotifyEmergencyChanged(ctx)
	}
	u.emit(ctx, appointment, entity.TemplateBookedConfirmation, entity.JSON{
		"doctor_id":    appointment.DoctorID.String(),
		"scheduled_at": appointment.ScheduledAt,
		"position":     appointment.QueuePosition.Position,
	})

	return converter.AppointmentToResponse(appointment), nil
}

// RaiseEmergency books an emergency visit scheduled now. Its priority puts it ahead of
// every routine patient regardless of its position number.
func (u *appointmentUsecase) RaiseEmergency(ctx context.Context, req *dto.RaiseEmergencyRequest) (*dto.AppointmentResponse, error) {
	appointment := &entity.Appointment{
		PatientID:   req.PatientID,
		DoctorID:    req.DoctorID,
		Department:  req.Department,
		ScheduledAt: u.clock.Now(),
		Emergency:   true,
		Notes:       req.Notes,
		Status:      entity.StatusBooked,
	}

	if err := u.book(ctx, appointment, entity.AuditActionEmergencyRaise); err != nil {
		return nil, err
	}

	u.bridge.NotifyQueueChanged(ctx, appointment.DoctorID)
	u.bridge.NotifyEmergencyChanged(ctx)
	u.emit(ctx, appointment, entity.TemplateEmergencyRaised, entity.JSON{
		"doctor_id": appointment.DoctorID.String(),
	})

	return converter.AppointmentToResponse(appointment), nil
}

// book inserts the appointment and appends it to the end of its doctor's queue.
//
// Lock Ordering:
// 1. doctor mutex
// 2. doctor queue rows (FOR UPDATE) inside the transaction
func (u *appointmentUsecase) book(ctx context.Context, appointment *entity.Appointment, action string) error {
	err := u.locks.WithLock(appointment.DoctorID, func() error {
		return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if _, err := u.positionRepo.LockDoctorQueue(ctx, tx, appointment.DoctorID); err != nil {
				return err
			}

			if err := u.appointmentRepo.Create(ctx, tx, appointment); err != nil {
				return err
			}

			position, err := u.positionRepo.Create(ctx, tx, appointment.ID, appointment.DoctorID, appointment.Emergency)
			if err != nil {
				return err
			}
			appointment.QueuePosition = position

			return u.auditService.LogCreate(ctx, tx, actorFromContext(ctx), action, entity.AuditEntityAppointment, appointment.ID.String(), entity.JSON{
				"doctor_id":    appointment.DoctorID.String(),
				"patient_id":   appointment.PatientID.String(),
				"scheduled_at": appointment.ScheduledAt,
				"emergency":    appointment.Emergency,
				"position":     position.Position,
				"priority":     position.Priority,
			})
		})
	})
	if err != nil {
		return u.wrapTxError(err, "book appointment for doctor %s", appointment.DoctorID)
	}
	return nil
}

func (u *appointmentUsecase) GetAppointment(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	appointment, err := u.appointmentRepo.FindByID(ctx, u.db, id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, service.ErrAppointmentNotFound
	}
	return converter.AppointmentToResponse(appointment), nil
}

func (u *appointmentUsecase) GetActiveEmergencies(ctx context.Context) (*dto.AppointmentListResponse, error) {
	appointments, err := u.appointmentRepo.FindActiveEmergencies(ctx, u.db)
	if err != nil {
		u.log.Warnf("Failed to find active emergencies: %+v", err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

func (u *appointmentUsecase) MarkArrived(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	return u.transition(ctx, id, statusChange{
		status:      entity.StatusArrived,
		action:      entity.AuditActionAppointmentArrive,
		template:    entity.TemplateArrivalAck,
		touchSeenAt: true,
	})
}

func (u *appointmentUsecase) MarkOnWay(ctx context.Context, id uuid.UUID, req *dto.OnWayRequest) (*dto.AppointmentResponse, error) {
	change := statusChange{
		status:      entity.StatusOnWay,
		action:      entity.AuditActionAppointmentOnWay,
		touchSeenAt: true,
	}
	if req != nil && req.Latitude != nil && req.Longitude != nil {
		change.location = entity.JSON{
			"latitude":  *req.Latitude,
			"longitude": *req.Longitude,
			"timestamp": u.clock.Now().Format(time.RFC3339),
		}
	}
	return u.transition(ctx, id, change)
}

func (u *appointmentUsecase) StartTreatment(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	return u.transition(ctx, id, statusChange{
		status:   entity.StatusBeingTreated,
		action:   entity.AuditActionAppointmentStart,
		template: entity.TemplateTreatmentStarted,
	})
}

func (u *appointmentUsecase) CompleteTreatment(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	return u.transition(ctx, id, statusChange{
		status:   entity.StatusCompleted,
		action:   entity.AuditActionAppointmentComplete,
		template: entity.TemplateTreatmentCompleted,
	})
}

type statusChange struct {
	status      entity.AppointmentStatus
	action      string
	template    string
	touchSeenAt bool
	location    entity.JSON
}

// transition moves the appointment and its queue slot to change.status in one transaction.
// The queue position itself never changes here.
func (u *appointmentUsecase) transition(ctx context.Context, id uuid.UUID, change statusChange) (*dto.AppointmentResponse, error) {
	appointment, err := u.appointmentRepo.FindByID(ctx, u.db, id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, service.ErrAppointmentNotFound
	}

	err = u.locks.WithLock(appointment.DoctorID, func() error {
		return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			current, err := u.appointmentRepo.FindByIDForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			if current == nil {
				return service.ErrAppointmentNotFound
			}
			if !current.CanTransitionTo(change.status) {
				return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, change.status)
			}

			position, err := u.positionRepo.FindByAppointment(ctx, tx, id)
			if err != nil {
				return err
			}
			if position == nil {
				return service.ErrQueuePositionNotFound
			}

			if _, err := u.appointmentRepo.UpdateStatus(ctx, tx, id, change.status); err != nil {
				return err
			}
			if change.location != nil {
				if _, err := u.appointmentRepo.UpdateLocation(ctx, tx, id, change.location); err != nil {
					return err
				}
			}

			var seenAt *time.Time
			if change.touchSeenAt {
				now := u.clock.Now()
				seenAt = &now
			}
			if _, err := u.positionRepo.UpdateState(ctx, tx, id, change.status, seenAt, nil); err != nil {
				return err
			}

			return u.auditService.LogUpdate(ctx, tx, actorFromContext(ctx), change.action, entity.AuditEntityAppointment, id.String(),
				entity.JSON{"status": current.Status},
				entity.JSON{"status": change.status},
			)
		})
	})
	if err != nil {
		return nil, u.wrapTxError(err, "move appointment %s to %s", id, change.status)
	}

	updated, err := u.appointmentRepo.FindByID(ctx, u.db, id)
	if err != nil {
		u.log.Warnf("Failed to reload appointment %s: %+v", id, err)
		return nil, err
	}

	u.bridge.NotifyQueueChanged(ctx, updated.DoctorID)
	if change.template != "" {
		u.emit(ctx, updated, change.template, nil)
	}

	return converter.AppointmentToResponse(updated), nil
}

func (u *appointmentUsecase) emit(ctx context.Context, appointment *entity.Appointment, template string, payload entity.JSON) {
	if payload == nil {
		payload = entity.JSON{}
	}
	payload["appointment_id"] = appointment.ID.String()

	appointmentID, patientID := appointment.ID, appointment.PatientID
	u.notifier.Emit(ctx, service.NotificationMessage{
		Channel:       entity.ChannelPush,
		TemplateKey:   template,
		Payload:       payload,
		PatientID:     &patientID,
		AppointmentID: &appointmentID,
	})
}

// wrapTxError passes domain errors through and turns lost races into ErrTransactionConflict.
func (u *appointmentUsecase) wrapTxError(err error, format string, args ...any) error {
	switch {
	case errors.Is(err, service.ErrAppointmentNotFound),
		errors.Is(err, service.ErrQueuePositionNotFound),
		errors.Is(err, ErrInvalidTransition):
		return err
	case database.IsTransactionConflict(err):
		u.log.Warnf("Failed to "+format+": %+v", append(args, err)...)
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), database.ErrTransactionConflict)
	default:
		u.log.Warnf("Failed to "+format+": %+v", append(args, err)...)
		return err
	}
}
