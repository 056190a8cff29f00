package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	acknowledgeAlertHandler "github.com/m04kA/SMC-QueueService/internal/api/handlers/acknowledge_alert"
	getDepartureHandler "github.com/m04kA/SMC-QueueService/internal/api/handlers/get_departure"
	getPredictionHandler "github.com/m04kA/SMC-QueueService/internal/api/handlers/get_prediction"
	getQueueStatusHandler "github.com/m04kA/SMC-QueueService/internal/api/handlers/get_queue_status"
	"github.com/m04kA/SMC-QueueService/internal/api/middleware"
	"github.com/m04kA/SMC-QueueService/internal/config"
	accuracyRepo "github.com/m04kA/SMC-QueueService/internal/infra/storage/accuracy"
	alertRepo "github.com/m04kA/SMC-QueueService/internal/infra/storage/alert"
	analyticsRepo "github.com/m04kA/SMC-QueueService/internal/infra/storage/analytics"
	bookingRepo "github.com/m04kA/SMC-QueueService/internal/infra/storage/booking"
	configRepo "github.com/m04kA/SMC-QueueService/internal/infra/storage/config"
	customerRepo "github.com/m04kA/SMC-QueueService/internal/infra/storage/customer"
	jobRecordRepo "github.com/m04kA/SMC-QueueService/internal/infra/storage/jobrecord"
	notificationRepo "github.com/m04kA/SMC-QueueService/internal/infra/storage/notification"
	queueStatusRepo "github.com/m04kA/SMC-QueueService/internal/infra/storage/queuestatus"
	salonRepo "github.com/m04kA/SMC-QueueService/internal/infra/storage/salon"
	staffRepo "github.com/m04kA/SMC-QueueService/internal/infra/storage/staff"
	"github.com/m04kA/SMC-QueueService/internal/integrations/gateway"
	"github.com/m04kA/SMC-QueueService/internal/integrations/realtime"
	"github.com/m04kA/SMC-QueueService/internal/integrations/subscription"
	"github.com/m04kA/SMC-QueueService/internal/scheduler"
	alertsService "github.com/m04kA/SMC-QueueService/internal/service/alerts"
	departureService "github.com/m04kA/SMC-QueueService/internal/service/departure"
	performanceService "github.com/m04kA/SMC-QueueService/internal/service/performance"
	queueService "github.com/m04kA/SMC-QueueService/internal/service/queue"
	"github.com/m04kA/SMC-QueueService/pkg/dbmetrics"
	"github.com/m04kA/SMC-QueueService/pkg/joblock"
	"github.com/m04kA/SMC-QueueService/pkg/logger"
	"github.com/m04kA/SMC-QueueService/pkg/metrics"
	"github.com/m04kA/SMC-QueueService/pkg/txmanager"
)

// app собранные зависимости процесса
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	db        *sql.DB
	rdb       *goredis.Client
	scheduler *scheduler.Scheduler
	router    *mux.Router

	stopMetricsCh chan struct{}
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	// Загружаем конфигурацию
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &app{cfg: cfg, log: log, stopMetricsCh: make(chan struct{})}
	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) build(ctx context.Context) error {
	cfg := a.cfg
	log := a.log
	log.Info("Starting SMC-QueueService %s, config=%+v", version, cfg.Server)

	// Метрики (nil если выключены, методы nil-safe)
	var metricsCollector *metrics.Metrics
	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// База данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.db = db
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	var wrappedDB *dbmetrics.DB
	if cfg.Metrics.Enabled {
		wrappedDB = dbmetrics.WrapWithDefault(db, metricsCollector, a.stopMetricsCh)
		log.Info("Database metrics collection started")
	} else {
		wrappedDB = dbmetrics.Wrap(db, nil)
	}

	// Репозитории
	bookings := bookingRepo.NewRepository(wrappedDB)
	staff := staffRepo.NewRepository(wrappedDB)
	salons := salonRepo.NewRepository(wrappedDB)
	jobRecords := jobRecordRepo.NewRepository(wrappedDB)
	queueStatuses := queueStatusRepo.NewRepository(wrappedDB)
	analytics := analyticsRepo.NewRepository(wrappedDB)
	customers := customerRepo.NewRepository(wrappedDB)
	settings := configRepo.NewRepository(wrappedDB)
	alerts := alertRepo.NewRepository(wrappedDB)
	notifications := notificationRepo.NewRepository(wrappedDB)
	accuracy := accuracyRepo.NewRepository(wrappedDB)
	txMgr := txmanager.NewTransactionManager(wrappedDB)

	// Интеграции
	subscriptionClient := subscription.NewClient(
		cfg.SubscriptionService.URL,
		time.Duration(cfg.SubscriptionService.Timeout)*time.Second,
		log,
	)
	log.Info("Subscription client initialized (url=%s timeout=%ds)", cfg.SubscriptionService.URL, cfg.SubscriptionService.Timeout)

	var notificationGateway alertsService.Gateway
	if cfg.Gateway.Enabled {
		notificationGateway = gateway.NewClient(
			cfg.Gateway.URL,
			cfg.Gateway.Token,
			time.Duration(cfg.Gateway.Timeout)*time.Second,
			cfg.Gateway.RatePerSecond,
			cfg.Gateway.Burst,
		)
		log.Info("Notification gateway enabled (url=%s rate=%.1f/s burst=%d)",
			cfg.Gateway.URL, cfg.Gateway.RatePerSecond, cfg.Gateway.Burst)
	} else {
		notificationGateway = gateway.NewLogGateway(log)
		log.Warn("Notification gateway disabled, external messages are only logged")
	}

	var publisher alertsService.Publisher = realtime.NewLogPublisher(log)
	var locker scheduler.Locker = joblock.NewLocal()
	if cfg.Redis.Enabled {
		rdb, err := realtime.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		a.rdb = rdb
		publisher = realtime.NewRedisPublisher(rdb, cfg.Redis.Channel)
		log.Info("Realtime events published to redis (addr=%s channel=%s:<customer>)", cfg.Redis.Addr, cfg.Redis.Channel)

		if cfg.Redis.Distributed {
			locker = joblock.NewRedis(rdb, cfg.Redis.LockPrefix, time.Duration(cfg.Redis.LockTTL)*time.Second)
			log.Info("Distributed job locks enabled (prefix=%s ttl=%ds)", cfg.Redis.LockPrefix, cfg.Redis.LockTTL)
		}
	} else if cfg.Redis.Distributed {
		log.Warn("redis.distributed_locks requires redis.enabled, falling back to in-process locks")
	}

	// Сервисы
	policy := cfg.Policy.ToDomain()

	queueSvc := queueService.NewService(staff, salons, bookings, jobRecords, queueStatuses, policy, log)
	performanceSvc := performanceService.NewService(subscriptionClient, analytics, customers, jobRecords, alerts, accuracy, policy, log)
	departureSvc := departureService.NewService(
		bookings,
		salons,
		settings,
		customers,
		alerts,
		queueSvc,
		performanceSvc,
		subscriptionClient,
		txMgr,
		policy,
		log,
	)
	alertsSvc := alertsService.NewService(
		alerts,
		bookings,
		salons,
		staff,
		settings,
		notifications,
		departureSvc,
		notificationGateway,
		publisher,
		metricsCollector,
		policy,
		log,
	)

	// Планировщик
	a.scheduler = scheduler.New(locker, metricsCollector, log)
	a.scheduler.RegisterDefaultJobs(
		queueSvc,
		alertsSvc,
		performanceSvc,
		salons,
		scheduler.Intervals{
			Queues:    cfg.Scheduler.QueueInterval(),
			Alerts:    cfg.Scheduler.AlertsInterval(),
			Analytics: cfg.Scheduler.AnalyticsInterval(),
			Prune:     cfg.Scheduler.PruneInterval(),
		},
		cfg.Scheduler.SalonBatchSize,
		&scheduler.RealTimeProvider{},
	)

	// Handlers
	getPrediction := getPredictionHandler.NewHandler(queueSvc, log)
	getQueueStatus := getQueueStatusHandler.NewHandler(queueSvc, log)
	getDeparture := getDepartureHandler.NewHandler(departureSvc, log)
	acknowledgeAlert := acknowledgeAlertHandler.NewHandler(alertsSvc, log)

	r := mux.NewRouter()

	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware(metricsCollector))
		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PUBLIC ROUTES (без аутентификации)
	// ============================================================

	// Прогноз начала приёма
	api.HandleFunc("/bookings/{bookingId}/prediction", getPrediction.Handle).Methods(http.MethodGet)

	// Состояние очереди салона
	api.HandleFunc("/salons/{salonId}/queue-status", getQueueStatus.Handle).Methods(http.MethodGet)

	// ============================================================
	// PROTECTED ROUTES (требуют X-User-ID header)
	// ============================================================

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth)

	// Рекомендация времени выхода для бронирования клиента
	protected.HandleFunc("/bookings/{bookingId}/departure", getDeparture.Handle).Methods(http.MethodGet)

	// Ответ клиента на уведомление
	protected.HandleFunc("/departure-alerts/{alertId}/acknowledge", acknowledgeAlert.Handle).Methods(http.MethodPost)

	a.router = r
	return nil
}

// Close освобождает ресурсы в обратном порядке
func (a *app) Close() {
	close(a.stopMetricsCh)
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.log.Error("Failed to close redis: %v", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Error("Failed to close database: %v", err)
		}
	}
	a.log.Info("Resources released")
	_ = a.log.Close()
}
