package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"clinic-queue/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScanner(f *swapFixture, swap QueueSwapService, locker ScanLocker, workers int) *AbsenceScanner {
	cfg := testQueueConfig()
	cfg.ScanWorkers = workers
	return NewAbsenceScanner(f.db, f.log, f.clock, f.appointmentRepo, swap, locker, cfg)
}

func TestAbsenceScanner_SwapsLatePatient(t *testing.T) {
	f := newSwapFixture(t, nineAM.Add(46*time.Minute))
	doctorID := uuid.New()

	e1 := f.book(t, doctorID, nineAM, false)
	e2 := f.book(t, doctorID, nineAM.Add(15*time.Minute), false)
	e3 := f.book(t, doctorID, nineAM.Add(30*time.Minute), false)
	e4 := f.book(t, doctorID, nineAM.Add(45*time.Minute), false)
	for _, id := range []uuid.UUID{e2.ID, e3.ID, e4.ID} {
		f.setStatus(t, id, entity.StatusArrived)
	}

	scanner := newTestScanner(f, f.swap, NewLocalScanLocker(), 1)
	report, err := scanner.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Candidates)
	assert.Equal(t, 1, report.Swapped)
	assert.Equal(t, 1, report.MarkedAbsent)
	assert.Equal(t, 0, report.Failed)

	assert.Equal(t, entity.StatusAbsent, f.appointment(t, e1.ID).Status)
	assert.Equal(t, 2, f.position(t, e1.ID).Position)
	assert.Equal(t, 1, f.position(t, e2.ID).Position)
	assert.Equal(t, 3, f.position(t, e3.ID).Position)
	assert.Equal(t, 4, f.position(t, e4.ID).Position)
}

func TestAbsenceScanner_RespectsGracePeriod(t *testing.T) {
	f := newSwapFixture(t, nineAM.Add(14*time.Minute))
	doctorID := uuid.New()

	a := f.book(t, doctorID, nineAM, false)
	f.book(t, doctorID, nineAM.Add(15*time.Minute), false)
	emergency := f.book(t, doctorID, nineAM.Add(-time.Hour), true)

	scanner := newTestScanner(f, f.swap, NewLocalScanLocker(), 1)
	report, err := scanner.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Candidates)
	assert.Equal(t, entity.StatusBooked, f.appointment(t, a.ID).Status)
	assert.Equal(t, entity.StatusBooked, f.appointment(t, emergency.ID).Status)
}

func TestAbsenceScanner_ProcessesDoctorsIndependently(t *testing.T) {
	f := newSwapFixture(t, nineAM.Add(time.Hour))
	doctors := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	late := make(map[uuid.UUID]uuid.UUID)
	for _, doctorID := range doctors {
		a := f.book(t, doctorID, nineAM, false)
		next := f.book(t, doctorID, nineAM.Add(50*time.Minute), false)
		late[a.ID] = next.ID
	}

	scanner := newTestScanner(f, f.swap, NewLocalScanLocker(), 3)
	report, err := scanner.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Candidates)
	assert.Equal(t, 3, report.Swapped)
	for absentID, nextID := range late {
		assert.Equal(t, 2, f.position(t, absentID).Position)
		assert.Equal(t, 1, f.position(t, nextID).Position)
	}
	assert.ElementsMatch(t, doctors, f.bridge.queueChanges())
}

type failingSwapService struct {
	failFor map[uuid.UUID]bool
	next    QueueSwapService
	calls   []uuid.UUID
}

func (s *failingSwapService) SwapWithNext(ctx context.Context, appointmentID uuid.UUID) (*SwapResult, error) {
	s.calls = append(s.calls, appointmentID)
	if s.failFor[appointmentID] {
		return nil, errors.New("boom")
	}
	return s.next.SwapWithNext(ctx, appointmentID)
}

func TestAbsenceScanner_FailureDoesNotAbortScan(t *testing.T) {
	f := newSwapFixture(t, nineAM.Add(time.Hour))
	doctorID := uuid.New()

	a := f.book(t, doctorID, nineAM, false)
	b := f.book(t, doctorID, nineAM.Add(10*time.Minute), false)
	f.book(t, doctorID, nineAM.Add(55*time.Minute), false)

	swap := &failingSwapService{failFor: map[uuid.UUID]bool{a.ID: true}, next: f.swap}
	scanner := newTestScanner(f, swap, NewLocalScanLocker(), 1)

	report, err := scanner.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, swap.calls)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Swapped)
	assert.Equal(t, entity.StatusBooked, f.appointment(t, a.ID).Status)
	assert.Equal(t, entity.StatusAbsent, f.appointment(t, b.ID).Status)
}

type panickingSwapService struct{}

func (panickingSwapService) SwapWithNext(ctx context.Context, appointmentID uuid.UUID) (*SwapResult, error) {
	panic("unexpected")
}

func TestAbsenceScanner_RecoversPanics(t *testing.T) {
	f := newSwapFixture(t, nineAM.Add(time.Hour))
	f.book(t, uuid.New(), nineAM, false)

	scanner := newTestScanner(f, panickingSwapService{}, NewLocalScanLocker(), 1)

	var report *ScanReport
	var err error
	require.NotPanics(t, func() {
		report, err = scanner.RunOnce(context.Background())
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
}

func TestAbsenceScanner_SkipsCandidateWithoutPosition(t *testing.T) {
	f := newSwapFixture(t, nineAM.Add(time.Hour))

	orphan := &entity.Appointment{
		PatientID:   uuid.New(),
		DoctorID:    uuid.New(),
		Department:  "general",
		ScheduledAt: nineAM,
		Status:      entity.StatusBooked,
	}
	require.NoError(t, f.appointmentRepo.Create(context.Background(), f.db, orphan))

	scanner := newTestScanner(f, f.swap, NewLocalScanLocker(), 1)
	report, err := scanner.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, entity.StatusBooked, f.appointment(t, orphan.ID).Status)
}

type heldLocker struct{}

func (heldLocker) Acquire(ctx context.Context, name string) (func(), error) {
	return nil, ErrScanLockHeld
}

func TestAbsenceScanner_SkipsWhenLockHeld(t *testing.T) {
	f := newSwapFixture(t, nineAM.Add(time.Hour))
	a := f.book(t, uuid.New(), nineAM, false)

	scanner := newTestScanner(f, f.swap, heldLocker{}, 1)
	_, err := scanner.RunOnce(context.Background())

	assert.ErrorIs(t, err, ErrScanLockHeld)
	assert.Equal(t, entity.StatusBooked, f.appointment(t, a.ID).Status)
}

type unreachableLocker struct{}

func (unreachableLocker) Acquire(ctx context.Context, name string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
}

func TestAbsenceScanner_RunsWhenLockerUnavailable(t *testing.T) {
	f := newSwapFixture(t, nineAM.Add(time.Hour))
	doctorID := uuid.New()

	a := f.book(t, doctorID, nineAM, false)
	b := f.book(t, doctorID, nineAM.Add(55*time.Minute), false)

	scanner := newTestScanner(f, f.swap, unreachableLocker{}, 1)
	report, err := scanner.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Swapped)
	assert.Equal(t, entity.StatusAbsent, f.appointment(t, a.ID).Status)
	assert.Equal(t, 1, f.position(t, b.ID).Position)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = scanner.RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAbsenceScanner_StartStop(t *testing.T) {
	f := newSwapFixture(t, nineAM)
	scanner := newTestScanner(f, f.swap, NewLocalScanLocker(), 1)

	assert.False(t, scanner.IsRunning())
	scanner.Start(context.Background())
	assert.True(t, scanner.IsRunning())
	scanner.Stop()
	scanner.Stop()
	assert.False(t, scanner.IsRunning())
}

func TestGroupByDoctor_KeepsScheduledOrder(t *testing.T) {
	d1, d2 := uuid.New(), uuid.New()
	appointments := []entity.Appointment{
		{ID: uuid.New(), DoctorID: d1, ScheduledAt: nineAM},
		{ID: uuid.New(), DoctorID: d2, ScheduledAt: nineAM.Add(time.Minute)},
		{ID: uuid.New(), DoctorID: d1, ScheduledAt: nineAM.Add(2 * time.Minute)},
	}

	groups := groupByDoctor(appointments)

	require.Len(t, groups, 2)
	assert.Equal(t, []uuid.UUID{appointments[0].ID, appointments[2].ID}, []uuid.UUID{groups[0][0].ID, groups[0][1].ID})
	assert.Equal(t, appointments[1].ID, groups[1][0].ID)
}
