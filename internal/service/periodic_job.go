package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// PeriodicJob runs a function on a fixed interval until Stop is called or the start context ends.
// A panic inside one run is recovered and logged; the next tick runs normally.
type PeriodicJob struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context)
	log      *logrus.Logger

	stopChan chan struct{}
	wg       sync.WaitGroup
	started  atomic.Bool
	stopped  atomic.Bool
}

func NewPeriodicJob(name string, interval time.Duration, run func(ctx context.Context), log *logrus.Logger) *PeriodicJob {
	return &PeriodicJob{
		name:     name,
		interval: interval,
		run:      run,
		log:      log,
		stopChan: make(chan struct{}),
	}
}

// Start launches the loop. Calling Start more than once has no effect.
func (j *PeriodicJob) Start(ctx context.Context) {
	if !j.started.CompareAndSwap(false, true) {
		return
	}

	j.wg.Add(1)
	go j.loop(ctx)

	j.log.Infof("%s started (interval %s)", j.name, j.interval)
}

// Stop ends the loop and waits for an in-flight run to finish. Safe to call multiple times.
func (j *PeriodicJob) Stop() {
	if j.stopped.CompareAndSwap(false, true) {
		close(j.stopChan)
		j.wg.Wait()
		j.log.Infof("%s stopped", j.name)
	}
}

// IsRunning reports whether the loop has been started and not yet stopped.
func (j *PeriodicJob) IsRunning() bool {
	return j.started.Load() && !j.stopped.Load()
}

func (j *PeriodicJob) loop(ctx context.Context) {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-j.stopChan:
			return
		case <-ticker.C:
			j.runSafely(ctx)
		}
	}
}

func (j *PeriodicJob) runSafely(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			j.log.Errorf("%s panicked: %v", j.name, r)
		}
	}()
	j.run(ctx)
}
