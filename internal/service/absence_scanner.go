package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"clinic-queue/config"
	"clinic-queue/internal/domain/entity"
	"clinic-queue/internal/domain/repository"
	"clinic-queue/pkg/clock"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
	"gorm.io/gorm"
)

const absenceScanLockName = "absence"

// ScanReport summarizes one absence scan.
type ScanReport struct {
	Threshold    time.Time `json:"threshold"`
	Candidates   int       `json:"candidates"`
	Swapped      int       `json:"swapped"`
	MarkedAbsent int       `json:"marked_absent"`
	Skipped      int       `json:"skipped"`
	Failed       int       `json:"failed"`
}

// AbsenceScanner periodically finds routine appointments more than the grace period past
// their scheduled time and hands each one to the swap engine.
//
// Candidates of one doctor are processed in scheduled order by a single worker;
// different doctors run in parallel, bounded by the configured worker count.
type AbsenceScanner struct {
	db              *gorm.DB
	log             *logrus.Logger
	clock           clock.Clock
	appointmentRepo repository.AppointmentRepository
	swapService     QueueSwapService
	locker          ScanLocker
	grace           time.Duration
	workers         int
	job             *PeriodicJob
}

func NewAbsenceScanner(
	db *gorm.DB,
	log *logrus.Logger,
	clk clock.Clock,
	appointmentRepo repository.AppointmentRepository,
	swapService QueueSwapService,
	locker ScanLocker,
	cfg config.QueueConfig,
) *AbsenceScanner {
	workers := cfg.ScanWorkers
	if workers < 1 {
		workers = 1
	}

	s := &AbsenceScanner{
		db:              db,
		log:             log,
		clock:           clk,
		appointmentRepo: appointmentRepo,
		swapService:     swapService,
		locker:          locker,
		grace:           cfg.AbsenceGrace,
		workers:         workers,
	}
	s.job = NewPeriodicJob("Absence scanner", cfg.ScanInterval, s.tick, log)
	return s
}

func (s *AbsenceScanner) Start(ctx context.Context) {
	s.job.Start(ctx)
}

func (s *AbsenceScanner) Stop() {
	s.job.Stop()
}

func (s *AbsenceScanner) IsRunning() bool {
	return s.job.IsRunning()
}

func (s *AbsenceScanner) tick(ctx context.Context) {
	report, err := s.RunOnce(ctx)
	if err != nil {
		if errors.Is(err, ErrScanLockHeld) {
			s.log.Debug("Absence scan skipped: another instance holds the lock")
			return
		}
		s.log.Errorf("Absence scan failed: %+v", err)
		return
	}
	if report.Candidates > 0 {
		s.log.WithFields(logrus.Fields{
			"candidates":    report.Candidates,
			"swapped":       report.Swapped,
			"marked_absent": report.MarkedAbsent,
			"skipped":       report.Skipped,
			"failed":        report.Failed,
		}).Info("Absence scan finished")
	}
}

// RunOnce performs a single scan. Per-candidate failures are counted in the report,
// only failures to start the scan are returned.
func (s *AbsenceScanner) RunOnce(ctx context.Context) (*ScanReport, error) {
	release, err := acquireScanLock(ctx, s.locker, s.log, absenceScanLockName)
	if err != nil {
		return nil, err
	}
	defer release()

	threshold := s.clock.Now().Add(-s.grace)
	candidates, err := s.appointmentRepo.FindOverdue(ctx, s.db, threshold)
	if err != nil {
		return nil, fmt.Errorf("find overdue appointments: %w", err)
	}

	report := &ScanReport{Threshold: threshold, Candidates: len(candidates)}
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(s.workers)
	for _, group := range groupByDoctor(candidates) {
		p.Go(func() {
			for i := range group {
				if ctx.Err() != nil {
					return
				}
				outcome := s.process(ctx, &group[i])

				mu.Lock()
				outcome.addTo(report)
				mu.Unlock()
			}
		})
	}
	p.Wait()

	return report, nil
}

type candidateOutcome struct {
	swapped      bool
	markedAbsent bool
	skipped      bool
	failed       bool
}

func (o candidateOutcome) addTo(r *ScanReport) {
	switch {
	case o.failed:
		r.Failed++
	case o.skipped:
		r.Skipped++
	}
	if o.swapped {
		r.Swapped++
	}
	if o.markedAbsent {
		r.MarkedAbsent++
	}
}

func (s *AbsenceScanner) process(ctx context.Context, appointment *entity.Appointment) (outcome candidateOutcome) {
	fields := logrus.Fields{
		"appointment_id": appointment.ID,
		"doctor_id":      appointment.DoctorID,
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.WithFields(fields).Errorf("Absence swap panicked: %v", r)
			outcome = candidateOutcome{failed: true}
		}
	}()

	if appointment.QueuePosition == nil {
		return candidateOutcome{skipped: true}
	}

	result, err := s.swapService.SwapWithNext(ctx, appointment.ID)
	if err != nil {
		s.log.WithFields(fields).Warnf("Absence swap failed: %+v", err)
		return candidateOutcome{failed: true}
	}

	if result.Swapped {
		s.log.WithFields(fields).WithField("swapped_with", result.SwappedWith).Info("Absent appointment swapped")
	}
	return candidateOutcome{swapped: result.Swapped, markedAbsent: result.MarkedAbsent}
}

// groupByDoctor keeps the scheduled order inside each group and orders groups by
// their earliest candidate.
func groupByDoctor(appointments []entity.Appointment) [][]entity.Appointment {
	index := make(map[uuid.UUID]int)
	var groups [][]entity.Appointment

	for _, appointment := range appointments {
		i, ok := index[appointment.DoctorID]
		if !ok {
			i = len(groups)
			index[appointment.DoctorID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], appointment)
	}
	return groups
}
