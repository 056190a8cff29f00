package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/m04kA/SMC-QueueService/internal/domain"
)

var (
	ErrReadConfig    = errors.New("config: failed to read config file")
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// Config конфигурация сервиса
type Config struct {
	Server              ServerConfig              `toml:"server"`
	Database            DatabaseConfig            `toml:"database"`
	Logs                LogsConfig                `toml:"logs"`
	Metrics             MetricsConfig             `toml:"metrics"`
	Redis               RedisConfig               `toml:"redis"`
	SubscriptionService SubscriptionServiceConfig `toml:"subscription_service"`
	Gateway             GatewayConfig             `toml:"gateway"`
	Scheduler           SchedulerConfig           `toml:"scheduler"`
	Policy              PolicyConfig              `toml:"policy"`
}

// ServerConfig настройки HTTP сервера (таймауты в секундах)
type ServerConfig struct {
	HTTPPort        int `toml:"http_port"`
	ReadTimeout     int `toml:"read_timeout"`
	WriteTimeout    int `toml:"write_timeout"`
	IdleTimeout     int `toml:"idle_timeout"`
	ShutdownTimeout int `toml:"shutdown_timeout"`
}

// DatabaseConfig настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	DBName          string `toml:"dbname"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime"`
}

// DSN строка подключения для lib/pq
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// LogsConfig настройки логгера
type LogsConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

// MetricsConfig настройки prometheus
type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	ServiceName string `toml:"service_name"`
	Path        string `toml:"path"`
}

// RedisConfig настройки Redis (realtime события и распределённые локи)
type RedisConfig struct {
	Enabled     bool   `toml:"enabled"`
	Addr        string `toml:"addr"`
	Password    string `toml:"password"`
	DB          int    `toml:"db"`
	Channel     string `toml:"channel"`
	LockPrefix  string `toml:"lock_prefix"`
	LockTTL     int    `toml:"lock_ttl"` // секунды
	Distributed bool   `toml:"distributed_locks"`
}

// SubscriptionServiceConfig клиент сервиса подписок (премиум-тариф салона)
type SubscriptionServiceConfig struct {
	URL     string `toml:"url"`
	Timeout int    `toml:"timeout"`
}

// GatewayConfig шлюз push/SMS уведомлений
type GatewayConfig struct {
	Enabled       bool    `toml:"enabled"`
	URL           string  `toml:"url"`
	Token         string  `toml:"token"`
	Timeout       int     `toml:"timeout"`
	RatePerSecond float64 `toml:"rate_per_second"`
	Burst         int     `toml:"burst"`
}

// SchedulerConfig интервалы периодических задач
type SchedulerConfig struct {
	Enabled              bool `toml:"enabled"`
	QueueIntervalSec     int  `toml:"queue_interval"`
	AlertsIntervalSec    int  `toml:"alerts_interval"`
	AnalyticsIntervalSec int  `toml:"analytics_interval"`
	PruneIntervalSec     int  `toml:"prune_interval"`
	SalonBatchSize       int  `toml:"salon_batch_size"`
}

// PolicyConfig пороги движка прогнозов
type PolicyConfig struct {
	SignificantChangeMinutes   int     `toml:"significant_change_minutes"`
	DelayHighMinutes           int     `toml:"delay_high_minutes"`
	DelayUrgentMinutes         int     `toml:"delay_urgent_minutes"`
	SalonSlightDelayMinutes    int     `toml:"salon_slight_delay_minutes"`
	SalonRunningBehindMinutes  int     `toml:"salon_running_behind_minutes"`
	EnhancementConfidenceFloor float64 `toml:"enhancement_confidence_floor"`
	SampleSaturation           int     `toml:"sample_saturation"`
	PendingAlertLateWindow     int     `toml:"pending_alert_late_window"`
	RecalculationHorizon       int     `toml:"recalculation_horizon"`
	AccuracyRetentionDays      int     `toml:"accuracy_retention_days"`
	DefaultTravelMinutes       int     `toml:"default_travel_minutes"`
	DefaultBufferMinutes       int     `toml:"default_buffer_minutes"`
}

// ToDomain возвращает политику домена
func (p PolicyConfig) ToDomain() domain.Policy {
	return domain.Policy{
		SignificantChangeMinutes:   p.SignificantChangeMinutes,
		DelayHighMinutes:           p.DelayHighMinutes,
		DelayUrgentMinutes:         p.DelayUrgentMinutes,
		SalonSlightDelayMinutes:    p.SalonSlightDelayMinutes,
		SalonRunningBehindMinutes:  p.SalonRunningBehindMinutes,
		EnhancementConfidenceFloor: p.EnhancementConfidenceFloor,
		SampleSaturation:           p.SampleSaturation,
		PendingAlertLateWindow:     p.PendingAlertLateWindow,
		RecalculationHorizon:       p.RecalculationHorizon,
		AccuracyRetentionDays:      p.AccuracyRetentionDays,
		DefaultTravelMinutes:       p.DefaultTravelMinutes,
		DefaultBufferMinutes:       p.DefaultBufferMinutes,
	}
}

// Interval helpers
func (s SchedulerConfig) QueueInterval() time.Duration {
	return time.Duration(s.QueueIntervalSec) * time.Second
}

func (s SchedulerConfig) AlertsInterval() time.Duration {
	return time.Duration(s.AlertsIntervalSec) * time.Second
}

func (s SchedulerConfig) AnalyticsInterval() time.Duration {
	return time.Duration(s.AnalyticsIntervalSec) * time.Second
}

func (s SchedulerConfig) PruneInterval() time.Duration {
	return time.Duration(s.PruneIntervalSec) * time.Second
}

// Default конфигурация по умолчанию, поверх неё декодируется файл
func Default() *Config {
	p := domain.DefaultPolicy()
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8083,
			ReadTimeout:     15,
			WriteTimeout:    15,
			IdleTimeout:     60,
			ShutdownTimeout: 30,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			DBName:          "smc_queueservice",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
		},
		Logs: LogsConfig{
			File:  "logs/queueservice.log",
			Level: "info",
		},
		Metrics: MetricsConfig{
			ServiceName: "queueservice",
			Path:        "/metrics",
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			Channel:    "departure:customer",
			LockPrefix: "queueservice",
			LockTTL:    300,
		},
		SubscriptionService: SubscriptionServiceConfig{
			Timeout: 5,
		},
		Gateway: GatewayConfig{
			Timeout:       5,
			RatePerSecond: 10,
			Burst:         5,
		},
		Scheduler: SchedulerConfig{
			Enabled:              true,
			QueueIntervalSec:     300,
			AlertsIntervalSec:    300,
			AnalyticsIntervalSec: 86400,
			PruneIntervalSec:     604800,
			SalonBatchSize:       50,
		},
		Policy: PolicyConfig{
			SignificantChangeMinutes:   p.SignificantChangeMinutes,
			DelayHighMinutes:           p.DelayHighMinutes,
			DelayUrgentMinutes:         p.DelayUrgentMinutes,
			SalonSlightDelayMinutes:    p.SalonSlightDelayMinutes,
			SalonRunningBehindMinutes:  p.SalonRunningBehindMinutes,
			EnhancementConfidenceFloor: p.EnhancementConfidenceFloor,
			SampleSaturation:           p.SampleSaturation,
			PendingAlertLateWindow:     p.PendingAlertLateWindow,
			RecalculationHorizon:       p.RecalculationHorizon,
			AccuracyRetentionDays:      p.AccuracyRetentionDays,
			DefaultTravelMinutes:       p.DefaultTravelMinutes,
			DefaultBufferMinutes:       p.DefaultBufferMinutes,
		},
	}
}

// Load читает config.toml, затем применяет переменные окружения (в т.ч. из .env)
func Load(path string) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReadConfig, path, err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет согласованность конфигурации
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 {
		return fmt.Errorf("%w: server.http_port must be positive", ErrInvalidConfig)
	}
	if c.Scheduler.Enabled {
		if c.Scheduler.QueueIntervalSec <= 0 || c.Scheduler.AlertsIntervalSec <= 0 ||
			c.Scheduler.AnalyticsIntervalSec <= 0 || c.Scheduler.PruneIntervalSec <= 0 {
			return fmt.Errorf("%w: scheduler intervals must be positive", ErrInvalidConfig)
		}
		if c.Scheduler.SalonBatchSize <= 0 {
			return fmt.Errorf("%w: scheduler.salon_batch_size must be positive", ErrInvalidConfig)
		}
	}
	p := c.Policy
	if p.DelayHighMinutes >= p.DelayUrgentMinutes {
		return fmt.Errorf("%w: policy.delay_high_minutes must be below delay_urgent_minutes", ErrInvalidConfig)
	}
	if p.SalonSlightDelayMinutes >= p.SalonRunningBehindMinutes {
		return fmt.Errorf("%w: policy.salon_slight_delay_minutes must be below salon_running_behind_minutes", ErrInvalidConfig)
	}
	if p.EnhancementConfidenceFloor < 0 || p.EnhancementConfidenceFloor > 1 {
		return fmt.Errorf("%w: policy.enhancement_confidence_floor must be in [0,1]", ErrInvalidConfig)
	}
	if p.SignificantChangeMinutes <= 0 || p.SampleSaturation <= 0 {
		return fmt.Errorf("%w: policy thresholds must be positive", ErrInvalidConfig)
	}
	if c.Gateway.Enabled && c.Gateway.URL == "" {
		return fmt.Errorf("%w: gateway.url is required when gateway is enabled", ErrInvalidConfig)
	}
	return nil
}

// applyEnv секреты и адреса из окружения перекрывают значения файла
func applyEnv(c *Config) {
	c.Database.Host = envOr("DB_HOST", c.Database.Host)
	c.Database.Port = envInt("DB_PORT", c.Database.Port)
	c.Database.User = envOr("DB_USER", c.Database.User)
	c.Database.Password = envOr("DB_PASSWORD", c.Database.Password)
	c.Database.DBName = envOr("DB_NAME", c.Database.DBName)
	c.Redis.Addr = envOr("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = envOr("REDIS_PASSWORD", c.Redis.Password)
	c.Gateway.Token = envOr("GATEWAY_TOKEN", c.Gateway.Token)
	c.SubscriptionService.URL = envOr("SUBSCRIPTION_SERVICE_URL", c.SubscriptionService.URL)
	c.Logs.Level = envOr("LOG_LEVEL", c.Logs.Level)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
