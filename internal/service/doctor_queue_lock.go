package service

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// Interval for cleaning up stale mutexes
	mutexCleanupInterval = 10 * time.Minute

	// How long a mutex must be unused before cleanup
	mutexStaleThreshold = 10 * time.Minute
)

// DoctorQueueLocks serializes queue mutations per doctor inside this process.
//
// Row locks in the database already serialize writers across processes; this lock keeps
// concurrent requests in the same process from queueing up on the database and lets the
// absence scanner work on different doctors in parallel without interleaving one doctor's swaps.
//
// Lock Ordering (to prevent deadlocks):
// 1. Acquire doctor mutex FIRST
// 2. Then open the DB transaction
type DoctorQueueLocks struct {
	log *logrus.Logger

	doctorMu sync.Map // map[uuid.UUID]*mutexWithTimestamp

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

// mutexWithTimestamp tracks mutex usage for cleanup
type mutexWithTimestamp struct {
	mu       sync.Mutex
	lastUsed atomic.Int64 // Unix timestamp
}

// NewDoctorQueueLocks starts the background cleanup of unused mutexes.
// Call Stop() during graceful shutdown.
func NewDoctorQueueLocks(log *logrus.Logger) *DoctorQueueLocks {
	l := &DoctorQueueLocks{
		log:      log,
		stopChan: make(chan struct{}),
	}

	l.wg.Add(1)
	go l.cleanupLoop()

	return l
}

// Lock blocks until the doctor's queue is free and returns the unlock function.
func (l *DoctorQueueLocks) Lock(doctorID uuid.UUID) func() {
	for {
		mt, _ := l.doctorMu.LoadOrStore(doctorID, &mutexWithTimestamp{})
		m := mt.(*mutexWithTimestamp)
		m.mu.Lock()

		// cleanupStale may have dropped m between LoadOrStore and Lock
		if cur, ok := l.doctorMu.Load(doctorID); !ok || cur != mt {
			m.mu.Unlock()
			continue
		}

		m.lastUsed.Store(time.Now().Unix())
		return m.mu.Unlock
	}
}

// WithLock runs fn while holding the doctor's queue lock.
// Realtime events and notifications are published after it returns, never inside fn.
func (l *DoctorQueueLocks) WithLock(doctorID uuid.UUID, fn func() error) error {
	unlock := l.Lock(doctorID)
	defer unlock()
	return fn()
}

// Stop ends the cleanup goroutine. Safe to call multiple times.
func (l *DoctorQueueLocks) Stop() {
	if l.stopped.CompareAndSwap(false, true) {
		close(l.stopChan)
		l.wg.Wait()
	}
}

func (l *DoctorQueueLocks) cleanupLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(mutexCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.cleanupStale(time.Now().Add(-mutexStaleThreshold))
		}
	}
}

// cleanupStale removes mutexes unused since cutoff. TryLock skips mutexes in use;
// lastUsed is checked while holding the lock so a concurrent Lock cannot be lost.
func (l *DoctorQueueLocks) cleanupStale(cutoff time.Time) int {
	cutoffUnix := cutoff.Unix()
	var cleaned int

	l.doctorMu.Range(func(key, value any) bool {
		mt, ok := value.(*mutexWithTimestamp)
		if !ok {
			return true
		}

		if mt.mu.TryLock() {
			if mt.lastUsed.Load() < cutoffUnix {
				l.doctorMu.Delete(key)
				cleaned++
			}
			mt.mu.Unlock()
		}
		return true
	})

	if cleaned > 0 {
		l.log.Debugf("Cleaned up %d stale doctor queue mutexes", cleaned)
	}
	return cleaned
}
