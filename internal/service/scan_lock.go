package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	// RedisScanLockKeyPrefix namespaces the lease keys of background scans
	RedisScanLockKeyPrefix = "queue:scan-lock:"

	// Timeout for individual Redis operations
	redisOpTimeout = 5 * time.Second
)

var ErrScanLockHeld = errors.New("scan lock is held by another instance")

// releaseLeaseScript deletes the lease only if this holder still owns it, so an expired
// lease taken over by another instance is never released by the old holder.
var releaseLeaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// ScanLocker makes sure only one service instance runs a given scan at a time.
type ScanLocker interface {
	// Acquire returns ErrScanLockHeld when another instance holds the lease.
	Acquire(ctx context.Context, name string) (release func(), err error)
}

type redisScanLocker struct {
	redisClient *redis.Client
	log         *logrus.Logger
	ttl         time.Duration
}

// NewRedisScanLocker uses a SET NX PX lease. ttl should be shorter than the scan interval
// so a crashed holder does not block the next tick.
func NewRedisScanLocker(redisClient *redis.Client, log *logrus.Logger, ttl time.Duration) ScanLocker {
	return &redisScanLocker{
		redisClient: redisClient,
		log:         log,
		ttl:         ttl,
	}
}

func (l *redisScanLocker) Acquire(ctx context.Context, name string) (func(), error) {
	key := RedisScanLockKeyPrefix + name
	token := uuid.NewString()

	ok, err := l.redisClient.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrScanLockHeld
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
		defer cancel()
		if err := releaseLeaseScript.Run(ctx, l.redisClient, []string{key}, token).Err(); err != nil {
			l.log.Warnf("Failed to release scan lock %s: %+v", key, err)
		}
	}
	return release, nil
}

// localScanLocker is used when no Redis is configured: a single instance needs no lease.
type localScanLocker struct{}

func NewLocalScanLocker() ScanLocker {
	return localScanLocker{}
}

func (localScanLocker) Acquire(ctx context.Context, name string) (func(), error) {
	return func() {}, nil
}

// acquireScanLock returns ErrScanLockHeld when another instance owns the lease.
// Any other locker failure is logged and the scan runs without a lease: swaps still
// serialize on the doctor's queue rows and processed candidates leave the overdue set.
func acquireScanLock(ctx context.Context, locker ScanLocker, log *logrus.Logger, name string) (func(), error) {
	release, err := locker.Acquire(ctx, name)
	if err == nil {
		return release, nil
	}
	if errors.Is(err, ErrScanLockHeld) || ctx.Err() != nil {
		return nil, err
	}

	log.WithField("scan_lock", name).Errorf("Scan lock unavailable, scanning without it: %+v", err)
	return func() {}, nil
}
