package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clinic-queue/config"
	"clinic-queue/internal/domain/entity"
	"clinic-queue/internal/domain/repository"
	"clinic-queue/pkg/clock"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const reminderScanLockName = "reminder"

// ReminderScanner sends one reminder to every waiting patient whose appointment starts
// within the next lead window.
type ReminderScanner struct {
	db               *gorm.DB
	log              *logrus.Logger
	clock            clock.Clock
	appointmentRepo  repository.AppointmentRepository
	notificationRepo repository.NotificationRepository
	notifier         Notifier
	locker           ScanLocker
	lead             time.Duration
	window           time.Duration
	job              *PeriodicJob
}

func NewReminderScanner(
	db *gorm.DB,
	log *logrus.Logger,
	clk clock.Clock,
	appointmentRepo repository.AppointmentRepository,
	notificationRepo repository.NotificationRepository,
	notifier Notifier,
	locker ScanLocker,
	cfg config.QueueConfig,
) *ReminderScanner {
	s := &ReminderScanner{
		db:               db,
		log:              log,
		clock:            clk,
		appointmentRepo:  appointmentRepo,
		notificationRepo: notificationRepo,
		notifier:         notifier,
		locker:           locker,
		lead:             cfg.ReminderLead,
		window:           cfg.ScanInterval,
	}
	s.job = NewPeriodicJob("Reminder scanner", cfg.ScanInterval, s.tick, log)
	return s
}

func (s *ReminderScanner) Start(ctx context.Context) {
	s.job.Start(ctx)
}

func (s *ReminderScanner) Stop() {
	s.job.Stop()
}

func (s *ReminderScanner) tick(ctx context.Context) {
	sent, err := s.RunOnce(ctx)
	if err != nil {
		if !errors.Is(err, ErrScanLockHeld) {
			s.log.Errorf("Reminder scan failed: %+v", err)
		}
		return
	}
	if sent > 0 {
		s.log.Infof("Sent %d appointment reminders", sent)
	}
}

// RunOnce emits reminders for appointments scheduled in [now+lead, now+lead+window)
// and returns how many were sent. Appointments already reminded are skipped.
func (s *ReminderScanner) RunOnce(ctx context.Context) (int, error) {
	release, err := acquireScanLock(ctx, s.locker, s.log, reminderScanLockName)
	if err != nil {
		return 0, err
	}
	defer release()

	from := s.clock.Now().Add(s.lead)
	appointments, err := s.appointmentRepo.FindScheduledBetween(ctx, s.db, from, from.Add(s.window))
	if err != nil {
		return 0, fmt.Errorf("find upcoming appointments: %w", err)
	}

	sent := 0
	for _, appointment := range appointments {
		exists, err := s.notificationRepo.ExistsForAppointment(ctx, s.db, entity.TemplateReminder, appointment.ID)
		if err != nil {
			s.log.Warnf("Failed to check reminder for appointment %s: %+v", appointment.ID, err)
			continue
		}
		if exists {
			continue
		}

		appointmentID, patientID := appointment.ID, appointment.PatientID
		s.notifier.Emit(ctx, NotificationMessage{
			Channel:     entity.ChannelPush,
			TemplateKey: entity.TemplateReminder,
			Payload: entity.JSON{
				"appointment_id": appointmentID.String(),
				"doctor_id":      appointment.DoctorID.String(),
				"scheduled_at":   appointment.ScheduledAt,
			},
			PatientID:     &patientID,
			AppointmentID: &appointmentID,
		})
		sent++
	}
	return sent, nil
}
