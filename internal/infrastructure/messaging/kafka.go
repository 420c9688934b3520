package messaging

import (
	"time"

	"clinic-queue/config"

	"github.com/segmentio/kafka-go"
)

// NewKafkaWriter builds the writer used to fan notifications out to the delivery workers.
// Messages are keyed by patient so one patient's notifications stay ordered.
func NewKafkaWriter(cfg config.NotifierConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
	}
}
