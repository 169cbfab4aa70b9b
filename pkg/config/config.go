package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// DefaultTimezone is the local zone used for slot days and same-day filtering.
const DefaultTimezone = "Asia/Kolkata"

type Config struct {
	Env       string
	Port      int
	APIPrefix string
	Timezone  string

	Database      DatabaseConfig
	Redis         RedisConfig
	CORS          CORSConfig
	Log           LogConfig
	Slots         SlotsConfig
	Integrations  IntegrationsConfig
	FollowUp      FollowUpConfig
	Referral      ReferralConfig
	Notifications NotificationsConfig
	Jobs          JobsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int

	// Namespace prefixes every cache key.
	Namespace string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SlotsConfig tunes availability lookups.
type SlotsConfig struct {
	EquivalentSchoolCacheTTL time.Duration
}

// IntegrationsConfig points at the outbound collaborators.
type IntegrationsConfig struct {
	MDMBaseURL          string
	FinanceBaseURL      string
	WorkflowBaseURL     string
	NotificationBaseURL string
	TransportBaseURL    string
	APIKey              string
	Timeout             time.Duration
	RetryMax            int
}

// FollowUpConfig governs follow-up task TAT and escalation.
type FollowUpConfig struct {
	TAT            time.Duration
	SweepInterval  time.Duration
	MaxEscalations int
}

// ReferralConfig governs referral reminder cadence.
type ReferralConfig struct {
	ReminderCount    int
	ReminderInterval time.Duration
	DeliveryInterval time.Duration
}

// NotificationsConfig configures the in-process notification bus.
type NotificationsConfig struct {
	Topic  string
	Buffer int
}

// JobsConfig sizes the background worker pool.
type JobsConfig struct {
	Workers int
	Retries int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.Timezone = v.GetString("TIMEZONE")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:   v.GetBool("REDIS_ENABLED"),
		Host:      v.GetString("REDIS_HOST"),
		Port:      v.GetInt("REDIS_PORT"),
		Password:  v.GetString("REDIS_PASSWORD"),
		DB:        v.GetInt("REDIS_DB"),
		Namespace: v.GetString("REDIS_NAMESPACE"),
	}

	cfg.CORS = CORSConfig{
		AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Slots = SlotsConfig{
		EquivalentSchoolCacheTTL: parseDuration(v.GetString("SLOTS_EQUIVALENT_SCHOOL_CACHE_TTL"), time.Hour),
	}

	cfg.Integrations = IntegrationsConfig{
		MDMBaseURL:          strings.TrimRight(v.GetString("MDM_BASE_URL"), "/"),
		FinanceBaseURL:      strings.TrimRight(v.GetString("FINANCE_BASE_URL"), "/"),
		WorkflowBaseURL:     strings.TrimRight(v.GetString("WORKFLOW_BASE_URL"), "/"),
		NotificationBaseURL: strings.TrimRight(v.GetString("NOTIFICATION_BASE_URL"), "/"),
		TransportBaseURL:    strings.TrimRight(v.GetString("TRANSPORT_BASE_URL"), "/"),
		APIKey:              v.GetString("INTEGRATION_API_KEY"),
		Timeout:             parseDuration(v.GetString("INTEGRATION_TIMEOUT"), 10*time.Second),
		RetryMax:            v.GetInt("INTEGRATION_RETRY_MAX"),
	}

	cfg.FollowUp = FollowUpConfig{
		TAT:            parseDuration(v.GetString("FOLLOW_UP_TAT"), 48*time.Hour),
		SweepInterval:  parseDuration(v.GetString("FOLLOW_UP_SWEEP_INTERVAL"), 15*time.Minute),
		MaxEscalations: v.GetInt("FOLLOW_UP_MAX_ESCALATIONS"),
	}

	cfg.Referral = ReferralConfig{
		ReminderCount:    v.GetInt("REFERRAL_REMINDER_COUNT"),
		ReminderInterval: parseDuration(v.GetString("REFERRAL_REMINDER_INTERVAL"), 72*time.Hour),
		DeliveryInterval: parseDuration(v.GetString("REFERRAL_DELIVERY_INTERVAL"), 5*time.Minute),
	}

	cfg.Notifications = NotificationsConfig{
		Topic:  v.GetString("NOTIFICATION_TOPIC"),
		Buffer: v.GetInt("NOTIFICATION_BUFFER"),
	}

	cfg.Jobs = JobsConfig{
		Workers: v.GetInt("JOBS_WORKERS"),
		Retries: v.GetInt("JOBS_RETRIES"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("TIMEZONE", DefaultTimezone)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "admissions")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_NAMESPACE", "admissions")

	v.SetDefault("CORS_ALLOWED_ORIGINS", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SLOTS_EQUIVALENT_SCHOOL_CACHE_TTL", "1h")

	v.SetDefault("MDM_BASE_URL", "http://localhost:4001")
	v.SetDefault("FINANCE_BASE_URL", "http://localhost:4002")
	v.SetDefault("WORKFLOW_BASE_URL", "http://localhost:4003")
	v.SetDefault("NOTIFICATION_BASE_URL", "http://localhost:4004")
	v.SetDefault("TRANSPORT_BASE_URL", "http://localhost:4005")
	v.SetDefault("INTEGRATION_API_KEY", "")
	v.SetDefault("INTEGRATION_TIMEOUT", "10s")
	v.SetDefault("INTEGRATION_RETRY_MAX", 2)

	v.SetDefault("FOLLOW_UP_TAT", "48h")
	v.SetDefault("FOLLOW_UP_SWEEP_INTERVAL", "15m")
	v.SetDefault("FOLLOW_UP_MAX_ESCALATIONS", 3)

	v.SetDefault("REFERRAL_REMINDER_COUNT", 3)
	v.SetDefault("REFERRAL_REMINDER_INTERVAL", "72h")
	v.SetDefault("REFERRAL_DELIVERY_INTERVAL", "5m")

	v.SetDefault("NOTIFICATION_TOPIC", "admissions.notifications")
	v.SetDefault("NOTIFICATION_BUFFER", 100)

	v.SetDefault("JOBS_WORKERS", 2)
	v.SetDefault("JOBS_RETRIES", 3)
}

// IsProduction reports whether the service runs with production semantics.
func (c *Config) IsProduction() bool {
	return c != nil && c.Env == EnvProduction
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
