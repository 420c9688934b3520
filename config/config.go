package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Queue    QueueConfig
	Notifier NotifierConfig
	Breaker  BreakerConfig
}

type AppConfig struct {
	Port       string
	Env        string
	CORSOrigin string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

// QueueConfig controls the absence scanner and the reminder scanner.
type QueueConfig struct {
	ScanInterval time.Duration
	AbsenceGrace time.Duration
	ScanWorkers  int
	ScanLockTTL  time.Duration
	ReminderLead time.Duration
}

type NotifierConfig struct {
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

type BreakerConfig struct {
	FailureThreshold uint32
	Timeout          time.Duration
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	return fromViper(), nil
}

// DefaultQueueConfig returns the queue timings used when the environment leaves them unset.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		ScanInterval: time.Minute,
		AbsenceGrace: 15 * time.Minute,
		ScanWorkers:  4,
		ScanLockTTL:  50 * time.Second,
		ReminderLead: 30 * time.Minute,
	}
}

func fromViper() *Config {
	defaults := DefaultQueueConfig()

	config := &Config{
		App: AppConfig{
			Port:       viper.GetString("APP_PORT"),
			Env:        viper.GetString("APP_ENV"),
			CORSOrigin: viper.GetString("CORS_ALLOWED_ORIGIN"),
		},
		DB: DBConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Name:     viper.GetString("DB_NAME"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("JWT_SECRET"),
		},
		Queue: QueueConfig{
			ScanInterval: durationOr("QUEUE_SCAN_INTERVAL", defaults.ScanInterval),
			AbsenceGrace: durationOr("QUEUE_ABSENCE_GRACE", defaults.AbsenceGrace),
			ScanWorkers:  intOr("QUEUE_SCAN_WORKERS", defaults.ScanWorkers),
			ScanLockTTL:  durationOr("QUEUE_SCAN_LOCK_TTL", defaults.ScanLockTTL),
			ReminderLead: durationOr("QUEUE_REMINDER_LEAD", defaults.ReminderLead),
		},
		Notifier: NotifierConfig{
			KafkaEnabled: viper.GetBool("NOTIFIER_KAFKA_ENABLED"),
			KafkaBrokers: splitList(viper.GetString("KAFKA_BROKERS")),
			KafkaTopic:   viper.GetString("KAFKA_TOPIC"),
		},
		Breaker: BreakerConfig{
			FailureThreshold: uint32(intOr("BREAKER_FAILURE_THRESHOLD", 5)),
			Timeout:          durationOr("BREAKER_TIMEOUT", 30*time.Second),
		},
	}

	if config.Notifier.KafkaTopic == "" {
		config.Notifier.KafkaTopic = "clinic.notifications"
	}

	return config
}

func durationOr(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func intOr(key string, fallback int) int {
	if !viper.IsSet(key) {
		return fallback
	}
	v := viper.GetInt(key)
	if v <= 0 {
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
