package service

import (
	"context"
	"errors"
	"fmt"

	"clinic-queue/internal/domain/entity"
	"clinic-queue/internal/domain/repository"
	"clinic-queue/internal/infrastructure/database"
	"clinic-queue/pkg/clock"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrAppointmentNotFound   = errors.New("appointment not found")
	ErrQueuePositionNotFound = errors.New("queue position not found")
)

// SwapResult describes the outcome of one swap attempt.
// Swapped is false when no later routine patient exists; that is not an error.
type SwapResult struct {
	Swapped       bool       `json:"swapped"`
	AppointmentID uuid.UUID  `json:"appointment_id"`
	DoctorID      uuid.UUID  `json:"doctor_id"`
	SwappedWith   *uuid.UUID `json:"swapped_with,omitempty"`
	FromPosition  int        `json:"from_position"`
	ToPosition    int        `json:"to_position"`
	MarkedAbsent  bool       `json:"marked_absent"`
}

type QueueSwapService interface {
	// SwapWithNext marks the appointment absent (unless already resolved) and exchanges its
	// position with the next routine appointment of the same doctor.
	SwapWithNext(ctx context.Context, appointmentID uuid.UUID) (*SwapResult, error)
}

type queueSwapService struct {
	db              *gorm.DB
	log             *logrus.Logger
	clock           clock.Clock
	locks           *DoctorQueueLocks
	appointmentRepo repository.AppointmentRepository
	positionRepo    repository.QueuePositionRepository
	historyRepo     repository.SwapHistoryRepository
	auditService    AuditService
	bridge          RealtimeBridge
	notifier        Notifier
}

func NewQueueSwapService(
	db *gorm.DB,
	log *logrus.Logger,
	clk clock.Clock,
	locks *DoctorQueueLocks,
	appointmentRepo repository.AppointmentRepository,
	positionRepo repository.QueuePositionRepository,
	historyRepo repository.SwapHistoryRepository,
	auditService AuditService,
	bridge RealtimeBridge,
	notifier Notifier,
) QueueSwapService {
	return &queueSwapService{
		db:              db,
		log:             log,
		clock:           clk,
		locks:           locks,
		appointmentRepo: appointmentRepo,
		positionRepo:    positionRepo,
		historyRepo:     historyRepo,
		auditService:    auditService,
		bridge:          bridge,
		notifier:        notifier,
	}
}

func (s *queueSwapService) SwapWithNext(ctx context.Context, appointmentID uuid.UUID) (*SwapResult, error) {
	// doctor id never changes, so it can be read before taking the doctor lock
	appointment, err := s.appointmentRepo.FindByID(ctx, s.db, appointmentID)
	if err != nil {
		s.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}

	var result *SwapResult
	var displacedPatient uuid.UUID

	err = s.locks.WithLock(appointment.DoctorID, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			current, err := s.appointmentRepo.FindByIDForUpdate(ctx, tx, appointmentID)
			if err != nil {
				return err
			}
			if current == nil {
				return ErrAppointmentNotFound
			}

			if _, err := s.positionRepo.LockDoctorQueue(ctx, tx, current.DoctorID); err != nil {
				return err
			}

			position, err := s.positionRepo.FindByAppointment(ctx, tx, appointmentID)
			if err != nil {
				return err
			}
			if position == nil {
				return ErrQueuePositionNotFound
			}

			now := s.clock.Now()
			result = &SwapResult{
				AppointmentID: current.ID,
				DoctorID:      current.DoctorID,
				FromPosition:  position.Position,
				ToPosition:    position.Position,
			}

			if !current.IsResolved() {
				if _, err := s.appointmentRepo.UpdateStatus(ctx, tx, current.ID, entity.StatusAbsent); err != nil {
					return err
				}
				if _, err := s.positionRepo.UpdateState(ctx, tx, current.ID, entity.StatusAbsent, nil, &now); err != nil {
					return err
				}
				result.MarkedAbsent = true
			}

			next, err := s.positionRepo.FindNextEligible(ctx, tx, current.DoctorID, position.Position)
			if err != nil {
				return err
			}
			if next == nil {
				return nil
			}

			fromPos, toPos := position.Position, next.Position
			if err := s.positionRepo.SwapPositions(ctx, tx, position, next); err != nil {
				return err
			}

			err = s.historyRepo.Append(ctx, tx,
				&entity.SwapHistoryEntry{
					AppointmentID:     current.ID,
					At:                now,
					FromPos:           fromPos,
					ToPos:             toPos,
					WithAppointmentID: next.AppointmentID,
					Reason:            entity.SwapReasonAbsentAutoSwap,
				},
				&entity.SwapHistoryEntry{
					AppointmentID:     next.AppointmentID,
					At:                now,
					FromPos:           toPos,
					ToPos:             fromPos,
					WithAppointmentID: current.ID,
					Reason:            entity.SwapReasonAbsentAutoSwap,
				},
			)
			if err != nil {
				return err
			}

			err = s.auditService.LogEvent(ctx, tx, SystemActor, entity.AuditActionQueueSwap, entity.AuditEntityAppointment, current.ID.String(), entity.JSON{
				"with":     next.AppointmentID.String(),
				"reason":   entity.SwapReasonAbsentAutoSwap,
				"from_pos": fromPos,
				"to_pos":   toPos,
			})
			if err != nil {
				return err
			}

			partner := next.AppointmentID
			result.Swapped = true
			result.SwappedWith = &partner
			result.ToPosition = toPos
			displacedPatient = current.PatientID
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) || errors.Is(err, ErrQueuePositionNotFound) {
			return nil, err
		}
		if database.IsTransactionConflict(err) {
			s.log.Warnf("Swap of appointment %s conflicted: %+v", appointmentID, err)
			return nil, fmt.Errorf("swap appointment %s: %w", appointmentID, database.ErrTransactionConflict)
		}
		s.log.Warnf("Failed to swap appointment %s: %+v", appointmentID, err)
		return nil, err
	}

	if result.Swapped || result.MarkedAbsent {
		s.bridge.NotifyQueueChanged(ctx, result.DoctorID)
	}

	if result.Swapped {
		s.notifier.Emit(ctx, NotificationMessage{
			Channel:     entity.ChannelPush,
			TemplateKey: entity.TemplateQueueSwapped,
			Payload: entity.JSON{
				"appointment_id": result.AppointmentID.String(),
				"swapped_with":   result.SwappedWith.String(),
				"new_position":   result.ToPosition,
			},
			PatientID:     &displacedPatient,
			AppointmentID: &result.AppointmentID,
		})
	}

	return result, nil
}
