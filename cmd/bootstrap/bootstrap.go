package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinic-queue/config"
	deliveryHttp "clinic-queue/internal/delivery/http"
	"clinic-queue/internal/delivery/http/handler"
	"clinic-queue/internal/delivery/http/middleware"
	"clinic-queue/internal/infrastructure/cache"
	"clinic-queue/internal/infrastructure/database"
	"clinic-queue/internal/infrastructure/messaging"
	"clinic-queue/internal/repository"
	"clinic-queue/internal/service"
	"clinic-queue/internal/usecase"
	"clinic-queue/pkg/clock"
	"clinic-queue/pkg/jwt"
	"clinic-queue/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds all dependencies for the application
type App struct {
	Config          *config.Config
	Log             *logrus.Logger
	DB              *gorm.DB
	RedisClient     *redis.Client
	KafkaWriter     *kafka.Writer
	JWTService      *jwt.JWTService
	Locks           *service.DoctorQueueLocks
	AbsenceScanner  *service.AbsenceScanner
	ReminderScanner *service.ReminderScanner
	Server          *http.Server

	cancelJobs context.CancelFunc
}

// New connects to every backing service and wires all layers. Nothing runs until Run is called.
func New(cfg *config.Config, log *logrus.Logger) (*App, error) {
	app := &App{Config: cfg, Log: log}

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DB, cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	log.Info("Database connected successfully")

	// Redis carries realtime events, the scan lease and token revocation; without it the service runs single-instance
	if cfg.Redis.Host != "" {
		redisClient, err := cache.NewRedisClient(cfg.Redis, log)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		app.RedisClient = redisClient
	} else {
		log.Warn("REDIS_HOST not set, running without realtime events and distributed scan lock")
	}

	if cfg.Notifier.KafkaEnabled {
		if len(cfg.Notifier.KafkaBrokers) == 0 {
			app.Close()
			return nil, fmt.Errorf("NOTIFIER_KAFKA_ENABLED is set but KAFKA_BROKERS is empty")
		}
		app.KafkaWriter = messaging.NewKafkaWriter(cfg.Notifier)
		log.Infof("Publishing notifications to Kafka topic %s", cfg.Notifier.KafkaTopic)
	}

	app.JWTService = jwt.NewJWTService(cfg.JWT)
	app.Server = app.initializeServer()

	return app, nil
}

// SetupLogger configures the logrus logger
func SetupLogger(env string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)
	if env == "development" {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// initializeServer builds repositories, services, usecases and the HTTP server
func (app *App) initializeServer() *http.Server {
	cfg := app.Config
	log := app.Log
	clk := clock.New()

	// Initialize validator
	customValidator := validator.NewValidator()

	// Initialize repositories
	appointmentRepo := repository.NewAppointmentRepository()
	positionRepo := repository.NewQueuePositionRepository()
	historyRepo := repository.NewSwapHistoryRepository()
	auditLogRepo := repository.NewAuditLogRepository()
	notificationRepo := repository.NewNotificationRepository()

	// Initialize services
	app.Locks = service.NewDoctorQueueLocks(log)
	auditService := service.NewAuditService(log, auditLogRepo)
	bridge := service.NewRealtimeBridge(app.RedisClient, log, clk, cfg.Breaker)

	var writer service.MessageWriter
	if app.KafkaWriter != nil {
		writer = app.KafkaWriter
	}
	notifier := service.NewNotificationService(app.DB, log, notificationRepo, writer, cfg.Breaker)

	locker := service.NewLocalScanLocker()
	if app.RedisClient != nil {
		locker = service.NewRedisScanLocker(app.RedisClient, log, cfg.Queue.ScanLockTTL)
	}

	swapService := service.NewQueueSwapService(app.DB, log, clk, app.Locks, appointmentRepo, positionRepo, historyRepo, auditService, bridge, notifier)
	app.AbsenceScanner = service.NewAbsenceScanner(app.DB, log, clk, appointmentRepo, swapService, locker, cfg.Queue)
	app.ReminderScanner = service.NewReminderScanner(app.DB, log, clk, appointmentRepo, notificationRepo, notifier, locker, cfg.Queue)

	// Initialize usecases
	appointmentUsecase := usecase.NewAppointmentUsecase(app.DB, log, clk, app.Locks, appointmentRepo, positionRepo, auditService, bridge, notifier)
	queueUsecase := usecase.NewQueueUsecase(app.DB, log, clk, appointmentRepo, positionRepo, historyRepo, swapService, app.AbsenceScanner)
	auditLogUsecase := usecase.NewAuditLogUsecase(app.DB, log, auditLogRepo)

	// Initialize handlers
	appointmentHandler := handler.NewAppointmentHandler(appointmentUsecase, customValidator)
	queueHandler := handler.NewQueueHandler(queueUsecase)
	auditLogHandler := handler.NewAuditLogHandler(auditLogUsecase)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(app.JWTService, app.RedisClient, log)
	corsMiddleware := middleware.NewCORSMiddleware(cfg.App.CORSOrigin)

	// Initialize router
	router := deliveryHttp.NewRouter(appointmentHandler, queueHandler, auditLogHandler, authMiddleware, corsMiddleware)
	httpRouter := router.Setup()

	// Create server
	serverAddr := fmt.Sprintf(":%s", cfg.App.Port)
	return &http.Server{
		Addr:              serverAddr,
		Handler:           httpRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Run starts the background scanners and the HTTP server, then blocks until shutdown
func (app *App) Run() {
	jobsCtx, cancel := context.WithCancel(context.Background())
	app.cancelJobs = cancel
	app.AbsenceScanner.Start(jobsCtx)
	app.ReminderScanner.Start(jobsCtx)

	// Start server in goroutine
	go func() {
		app.Log.Infof("Server starting on port %s", app.Config.App.Port)
		app.Log.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Log.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server gracefully
	if err := app.Server.Shutdown(ctx); err != nil {
		app.Log.Errorf("Server forced to shutdown: %v", err)
	}

	// Scanners finish their current tick before returning
	app.AbsenceScanner.Stop()
	app.ReminderScanner.Stop()
	if app.cancelJobs != nil {
		app.cancelJobs()
	}

	// Close connections
	app.Close()

	app.Log.Info("Server shutdown complete")
}

// Close closes all connections (database, redis, kafka)
func (app *App) Close() {
	if app.Locks != nil {
		app.Locks.Stop()
	}

	// Close Kafka writer, flushing pending messages
	if app.KafkaWriter != nil {
		if err := app.KafkaWriter.Close(); err != nil {
			app.Log.Warnf("Failed to close Kafka writer: %v", err)
		}
	}

	// Close database connection
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
