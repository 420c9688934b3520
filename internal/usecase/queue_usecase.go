package usecase

import (
	"context"

	"clinic-queue/internal/converter"
	"clinic-queue/internal/delivery/dto"
	"clinic-queue/internal/domain/entity"
	"clinic-queue/internal/domain/ordering"
	"clinic-queue/internal/domain/repository"
	"clinic-queue/internal/service"
	"clinic-queue/pkg/clock"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AbsenceScanRunner runs one absence scan on demand
type AbsenceScanRunner interface {
	RunOnce(ctx context.Context) (*service.ScanReport, error)
}

type QueueUsecase interface {
	GetQueue(ctx context.Context, filter entity.QueueFilter) (*dto.QueueResponse, error)
	SwapWithNext(ctx context.Context, appointmentID uuid.UUID) (*dto.SwapResultResponse, error)
	RunAbsenceScan(ctx context.Context) (*dto.ScanReportResponse, error)
	GetSwapHistory(ctx context.Context, appointmentID uuid.UUID) (*dto.SwapHistoryResponse, error)
}

type queueUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	clock           clock.Clock
	appointmentRepo repository.AppointmentRepository
	positionRepo    repository.QueuePositionRepository
	historyRepo     repository.SwapHistoryRepository
	swapService     service.QueueSwapService
	scanner         AbsenceScanRunner
}

func NewQueueUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	clk clock.Clock,
	appointmentRepo repository.AppointmentRepository,
	positionRepo repository.QueuePositionRepository,
	historyRepo repository.SwapHistoryRepository,
	swapService service.QueueSwapService,
	scanner AbsenceScanRunner,
) QueueUsecase {
	return &queueUsecase{
		db:              db,
		log:             log,
		clock:           clk,
		appointmentRepo: appointmentRepo,
		positionRepo:    positionRepo,
		historyRepo:     historyRepo,
		swapService:     swapService,
		scanner:         scanner,
	}
}

// GetQueue loads the entries of the requested view and returns them in display order.
// The order is computed on every call from fresh rows.
func (u *queueUsecase) GetQueue(ctx context.Context, filter entity.QueueFilter) (*dto.QueueResponse, error) {
	positions, err := u.positionRepo.FindByFilter(ctx, u.db, filter)
	if err != nil {
		u.log.Warnf("Failed to load queue positions: %+v", err)
		return nil, err
	}

	ids := make([]uuid.UUID, len(positions))
	for i, p := range positions {
		ids[i] = p.AppointmentID
	}

	appointments, err := u.appointmentRepo.FindByIDs(ctx, u.db, ids)
	if err != nil {
		u.log.Warnf("Failed to load queue appointments: %+v", err)
		return nil, err
	}

	byID := make(map[uuid.UUID]entity.Appointment, len(appointments))
	for _, a := range appointments {
		byID[a.ID] = a
	}

	entries := make([]entity.QueueEntry, 0, len(positions))
	for _, p := range positions {
		appointment, ok := byID[p.AppointmentID]
		if !ok {
			continue
		}
		entries = append(entries, entity.QueueEntry{Position: p, Appointment: appointment})
	}

	now := u.clock.Now()
	return converter.QueueEntriesToResponse(ordering.Sort(entries, now), now), nil
}

func (u *queueUsecase) SwapWithNext(ctx context.Context, appointmentID uuid.UUID) (*dto.SwapResultResponse, error) {
	result, err := u.swapService.SwapWithNext(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	return converter.SwapResultToResponse(result), nil
}

func (u *queueUsecase) RunAbsenceScan(ctx context.Context) (*dto.ScanReportResponse, error) {
	report, err := u.scanner.RunOnce(ctx)
	if err != nil {
		return nil, err
	}
	return converter.ScanReportToResponse(report), nil
}

func (u *queueUsecase) GetSwapHistory(ctx context.Context, appointmentID uuid.UUID) (*dto.SwapHistoryResponse, error) {
	appointment, err := u.appointmentRepo.FindByID(ctx, u.db, appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if appointment == nil {
		return nil, service.ErrAppointmentNotFound
	}

	entries, err := u.historyRepo.FindByAppointment(ctx, u.db, appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find swap history for %s: %+v", appointmentID, err)
		return nil, err
	}

	return converter.SwapHistoryToResponse(appointmentID, entries), nil
}
