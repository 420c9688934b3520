package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"clinic-queue/config"
	"clinic-queue/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu       sync.Mutex
	err      error
	messages []kafka.Message
	calls    int
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func TestNotificationService_PersistsAndPublishes(t *testing.T) {
	f := newSwapFixture(t, nineAM)
	writer := &fakeWriter{}
	notifier := NewNotificationService(f.db, f.log, f.notificationRepo, writer, config.BreakerConfig{FailureThreshold: 3, Timeout: time.Second})

	patientID, appointmentID := uuid.New(), uuid.New()
	notifier.Emit(context.Background(), NotificationMessage{
		Channel:       entity.ChannelSMS,
		TemplateKey:   entity.TemplateArrivalAck,
		Payload:       entity.JSON{"appointment_id": appointmentID.String()},
		PatientID:     &patientID,
		AppointmentID: &appointmentID,
	})

	exists, err := f.notificationRepo.ExistsForAppointment(context.Background(), f.db, entity.TemplateArrivalAck, appointmentID)
	require.NoError(t, err)
	assert.True(t, exists)

	require.Len(t, writer.messages, 1)
	assert.Equal(t, patientID.String(), string(writer.messages[0].Key))

	var published entity.Notification
	require.NoError(t, json.Unmarshal(writer.messages[0].Value, &published))
	assert.Equal(t, entity.TemplateArrivalAck, published.TemplateKey)
	assert.Equal(t, entity.NotificationStatusPending, published.Status)
	assert.Equal(t, entity.ChannelSMS, published.Channel)
}

func TestNotificationService_PublishFailureIsSwallowed(t *testing.T) {
	f := newSwapFixture(t, nineAM)
	writer := &fakeWriter{err: errors.New("broker down")}
	notifier := NewNotificationService(f.db, f.log, f.notificationRepo, writer, config.BreakerConfig{FailureThreshold: 2, Timeout: time.Minute})

	for i := 0; i < 4; i++ {
		appointmentID := uuid.New()
		notifier.Emit(context.Background(), NotificationMessage{
			Channel:       entity.ChannelPush,
			TemplateKey:   entity.TemplateQueueSwapped,
			AppointmentID: &appointmentID,
		})

		exists, err := f.notificationRepo.ExistsForAppointment(context.Background(), f.db, entity.TemplateQueueSwapped, appointmentID)
		require.NoError(t, err)
		assert.True(t, exists)
	}

	// breaker opens after two consecutive failures
	assert.Equal(t, 2, writer.calls)
}

func TestNotificationService_WithoutKafka(t *testing.T) {
	f := newSwapFixture(t, nineAM)
	notifier := NewNotificationService(f.db, f.log, f.notificationRepo, nil, config.BreakerConfig{})

	appointmentID := uuid.New()
	notifier.Emit(context.Background(), NotificationMessage{
		Channel:       entity.ChannelEmail,
		TemplateKey:   entity.TemplateBookedConfirmation,
		AppointmentID: &appointmentID,
	})

	exists, err := f.notificationRepo.ExistsForAppointment(context.Background(), f.db, entity.TemplateBookedConfirmation, appointmentID)
	require.NoError(t, err)
	assert.True(t, exists)
}
