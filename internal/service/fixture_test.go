package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"clinic-queue/config"
	"clinic-queue/internal/domain/entity"
	domainRepo "clinic-queue/internal/domain/repository"
	"clinic-queue/internal/repository"
	"clinic-queue/internal/testutil"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
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

func (b *recordingBridge) queueChanges() []uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]uuid.UUID(nil), b.doctors...)
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []NotificationMessage
}

func (n *recordingNotifier) Emit(ctx context.Context, msg NotificationMessage) {
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

func (n *gatedNotifier) Emit(ctx context.Context, msg NotificationMessage) {
	if msg.TemplateKey != n.template {
		return
	}
	n.enter.Do(func() { close(n.entered) })
	<-n.release
}

func (n *gatedNotifier) open() {
	n.done.Do(func() { close(n.release) })
}

var errStoreUnavailable = errors.New("store unavailable")

type failingHistoryRepo struct {
	domainRepo.SwapHistoryRepository
}

func (failingHistoryRepo) Append(ctx context.Context, db *gorm.DB, entries ...*entity.SwapHistoryEntry) error {
	return errStoreUnavailable
}

type failingAuditService struct {
	AuditService
}

func (failingAuditService) LogEvent(ctx context.Context, tx *gorm.DB, actor AuditActor, action string, entityName string, entityID string, metadata entity.JSON) error {
	return errStoreUnavailable
}

type swapFixture struct {
	db               *gorm.DB
	log              *logrus.Logger
	clock            *testutil.Clock
	locks            *DoctorQueueLocks
	appointmentRepo  domainRepo.AppointmentRepository
	positionRepo     domainRepo.QueuePositionRepository
	historyRepo      domainRepo.SwapHistoryRepository
	auditRepo        domainRepo.AuditLogRepository
	notificationRepo domainRepo.NotificationRepository
	bridge           *recordingBridge
	notifier         *recordingNotifier
	swap             QueueSwapService
}

func newSwapFixture(t *testing.T, now time.Time) *swapFixture {
	t.Helper()

	log := testutil.NewLogger()
	f := &swapFixture{
		db:               testutil.NewDB(t),
		log:              log,
		clock:            testutil.NewClock(now),
		locks:            NewDoctorQueueLocks(log),
		appointmentRepo:  repository.NewAppointmentRepository(),
		positionRepo:     repository.NewQueuePositionRepository(),
		historyRepo:      repository.NewSwapHistoryRepository(),
		auditRepo:        repository.NewAuditLogRepository(),
		notificationRepo: repository.NewNotificationRepository(),
		bridge:           &recordingBridge{},
		notifier:         &recordingNotifier{},
	}
	t.Cleanup(f.locks.Stop)

	f.swap = NewQueueSwapService(
		f.db, log, f.clock, f.locks,
		f.appointmentRepo, f.positionRepo, f.historyRepo,
		NewAuditService(log, f.auditRepo),
		f.bridge, f.notifier,
	)
	return f
}

func (f *swapFixture) book(t *testing.T, doctorID uuid.UUID, scheduledAt time.Time, emergency bool) *entity.Appointment {
	t.Helper()
	ctx := context.Background()

	appointment := &entity.Appointment{
		PatientID:   uuid.New(),
		DoctorID:    doctorID,
		Department:  "general",
		ScheduledAt: scheduledAt,
		Emergency:   emergency,
		Status:      entity.StatusBooked,
	}
	require.NoError(t, f.appointmentRepo.Create(ctx, f.db, appointment))

	_, err := f.positionRepo.Create(ctx, f.db, appointment.ID, doctorID, emergency)
	require.NoError(t, err)
	return appointment
}

func (f *swapFixture) setStatus(t *testing.T, appointmentID uuid.UUID, status entity.AppointmentStatus) {
	t.Helper()
	ctx := context.Background()

	_, err := f.appointmentRepo.UpdateStatus(ctx, f.db, appointmentID, status)
	require.NoError(t, err)
	_, err = f.positionRepo.UpdateState(ctx, f.db, appointmentID, status, nil, nil)
	require.NoError(t, err)
}

func (f *swapFixture) position(t *testing.T, appointmentID uuid.UUID) *entity.QueuePosition {
	t.Helper()
	position, err := f.positionRepo.FindByAppointment(context.Background(), f.db, appointmentID)
	require.NoError(t, err)
	require.NotNil(t, position)
	return position
}

func (f *swapFixture) appointment(t *testing.T, id uuid.UUID) *entity.Appointment {
	t.Helper()
	appointment, err := f.appointmentRepo.FindByID(context.Background(), f.db, id)
	require.NoError(t, err)
	require.NotNil(t, appointment)
	return appointment
}

func (f *swapFixture) historyCount(t *testing.T, appointmentID uuid.UUID) int64 {
	t.Helper()
	count, err := f.historyRepo.CountByAppointment(context.Background(), f.db, appointmentID)
	require.NoError(t, err)
	return count
}

func testQueueConfig() config.QueueConfig {
	cfg := config.DefaultQueueConfig()
	cfg.ScanWorkers = 1
	return cfg
}
