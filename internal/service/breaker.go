package service

import (
	"clinic-queue/config"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

// newBreaker guards a fire-and-forget collaborator. After FailureThreshold consecutive
// failures calls are rejected immediately until Timeout has passed.
func newBreaker(name string, cfg config.BreakerConfig, log *logrus.Logger) *gobreaker.CircuitBreaker[any] {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    name,
		Timeout: cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
}
