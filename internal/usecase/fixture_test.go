package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"clinic-queue/config"
	domainRepo "clinic-queue/internal/domain/repository"
	"clinic-queue/internal/repository"
	"clinic-queue/internal/service"
	"clinic-queue/internal/testutil"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var nineAM = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type recordingBridge struct {
	mu          sync.Mutex
	doctors     []uuid.UUID
	emergencies int
}

func (b *recordingBridge) NotifyQueueChanged(ctx context.Context, doctorID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.doctors = append(b.doctors, doctorID)
}

func (b *recordingBridge) NotifyEmergencyChanged(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.emergencies++
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []service.NotificationMessage
}

func (n *recordingNotifier) Emit(ctx context.Context, msg service.NotificationMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}

func (n *recordingNotifier) templates() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	keys := make([]string, 0, len(n.messages))
	for _, m := range n.messages {
		keys = append(keys, m.TemplateKey)
	}
	return keys
}

// gatedNotifier blocks Emit for one template until open is called.
type gatedNotifier struct {
	template string
	entered  chan struct{}
	release  chan struct{}
	enter    sync.Once
	done     sync.Once
}

func newGatedNotifier(t *testing.T, template string) *gatedNotifier {
	n := &gatedNotifier{
		template: template,
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	t.Cleanup(n.open)
	return n
}

func (n *gatedNotifier) Emit(ctx context.Context, msg service.NotificationMessage) {
	if msg.TemplateKey != n.template {
		return
	}
	n.enter.Do(func() { close(n.entered) })
	<-n.release
}

func (n *gatedNotifier) open() {
	n.done.Do(func() { close(n.release) })
}

type fixture struct {
	db              *gorm.DB
	clock           *testutil.Clock
	bridge          *recordingBridge
	notifier        *recordingNotifier
	appointmentRepo domainRepo.AppointmentRepository
	positionRepo    domainRepo.QueuePositionRepository
	auditRepo       domainRepo.AuditLogRepository
	appointments    AppointmentUsecase
	queue           QueueUsecase
	audit           AuditLogUsecase
	scanner         *service.AbsenceScanner

	// appointmentsWith builds an AppointmentUsecase sharing this fixture's state but emitting to notifier
	appointmentsWith func(notifier service.Notifier) AppointmentUsecase
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	log := testutil.NewLogger()
	clk := testutil.NewClock(now)
	locks := service.NewDoctorQueueLocks(log)
	t.Cleanup(locks.Stop)

	appointmentRepo := repository.NewAppointmentRepository()
	positionRepo := repository.NewQueuePositionRepository()
	historyRepo := repository.NewSwapHistoryRepository()
	auditRepo := repository.NewAuditLogRepository()

	bridge := &recordingBridge{}
	notifier := &recordingNotifier{}
	auditService := service.NewAuditService(log, auditRepo)

	swap := service.NewQueueSwapService(db, log, clk, locks, appointmentRepo, positionRepo, historyRepo, auditService, bridge, notifier)

	cfg := config.DefaultQueueConfig()
	cfg.ScanWorkers = 1
	scanner := service.NewAbsenceScanner(db, log, clk, appointmentRepo, swap, service.NewLocalScanLocker(), cfg)

	return &fixture{
		db:              db,
		clock:           clk,
		bridge:          bridge,
		notifier:        notifier,
		appointmentRepo: appointmentRepo,
		positionRepo:    positionRepo,
		auditRepo:       auditRepo,
		appointments:    NewAppointmentUsecase(db, log, clk, locks, appointmentRepo, positionRepo, auditService, bridge, notifier),
		queue:           NewQueueUsecase(db, log, clk, appointmentRepo, positionRepo, historyRepo, swap, scanner),
		audit:           NewAuditLogUsecase(db, log, auditRepo),
		scanner:         scanner,
		appointmentsWith: func(n service.Notifier) AppointmentUsecase {
			return NewAppointmentUsecase(db, log, clk, locks, appointmentRepo, positionRepo, auditService, bridge, n)
		},
	}
}
