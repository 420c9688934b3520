package service

import (
	"context"
	"encoding/json"
	"time"

	"clinic-queue/config"
	"clinic-queue/pkg/clock"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

const (
	RealtimeDoctorChannelPrefix = "doctor:"
	RealtimeEmergencyChannel    = "emergency"

	RealtimeEventQueueUpdate     = "queue:update"
	RealtimeEventEmergencyUpdate = "emergency:update"

	realtimePublishTimeout = 2 * time.Second
)

// RealtimeBridge tells connected displays that a queue changed. Calls never fail the caller.
type RealtimeBridge interface {
	NotifyQueueChanged(ctx context.Context, doctorID uuid.UUID)
	NotifyEmergencyChanged(ctx context.Context)
}

// RealtimeEvent is the message published on the realtime channels
type RealtimeEvent struct {
	Event    string     `json:"event"`
	DoctorID *uuid.UUID `json:"doctor_id,omitempty"`
	At       time.Time  `json:"at"`
}

type redisRealtimeBridge struct {
	redisClient *redis.Client
	log         *logrus.Logger
	clock       clock.Clock
	breaker     *gobreaker.CircuitBreaker[any]
}

// NewRealtimeBridge publishes queue events over Redis Pub/Sub.
// Without a Redis client the bridge only logs at debug level.
func NewRealtimeBridge(redisClient *redis.Client, log *logrus.Logger, clk clock.Clock, breakerCfg config.BreakerConfig) RealtimeBridge {
	if redisClient == nil {
		return &loggingRealtimeBridge{log: log}
	}
	return &redisRealtimeBridge{
		redisClient: redisClient,
		log:         log,
		clock:       clk,
		breaker:     newBreaker("realtime-bridge", breakerCfg, log),
	}
}

func RealtimeDoctorChannel(doctorID uuid.UUID) string {
	return RealtimeDoctorChannelPrefix + doctorID.String()
}

func (b *redisRealtimeBridge) NotifyQueueChanged(ctx context.Context, doctorID uuid.UUID) {
	b.publish(ctx, RealtimeDoctorChannel(doctorID), RealtimeEvent{
		Event:    RealtimeEventQueueUpdate,
		DoctorID: &doctorID,
		At:       b.clock.Now(),
	})
}

func (b *redisRealtimeBridge) NotifyEmergencyChanged(ctx context.Context) {
	b.publish(ctx, RealtimeEmergencyChannel, RealtimeEvent{
		Event: RealtimeEventEmergencyUpdate,
		At:    b.clock.Now(),
	})
}

func (b *redisRealtimeBridge) publish(ctx context.Context, channel string, event RealtimeEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		b.log.Warnf("Failed to encode realtime event: %+v", err)
		return
	}

	// detached from the request so a finished request does not cancel the publish
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), realtimePublishTimeout)
	defer cancel()

	_, err = b.breaker.Execute(func() (any, error) {
		return nil, b.redisClient.Publish(pubCtx, channel, payload).Err()
	})
	if err != nil {
		b.log.WithFields(logrus.Fields{
			"channel": channel,
			"event":   event.Event,
		}).Warnf("Failed to publish realtime event: %+v", err)
	}
}

type loggingRealtimeBridge struct {
	log *logrus.Logger
}

func (b *loggingRealtimeBridge) NotifyQueueChanged(ctx context.Context, doctorID uuid.UUID) {
	b.log.Debugf("Queue changed for doctor %s", doctorID)
}

func (b *loggingRealtimeBridge) NotifyEmergencyChanged(ctx context.Context) {
	b.log.Debug("Emergency queue changed")
}
