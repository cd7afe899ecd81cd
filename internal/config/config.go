package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	AccessSecret string
}

type PushConfig struct {
	URL     string
	Timeout string
}

// AlertDefaults are the hard fallbacks used when the alert_settings row is
// missing entirely. Per-vehicle overrides and stored global settings both take
// precedence over these.
type AlertDefaults struct {
	InspectionDaysBefore  int
	MaintenanceDaysBefore int
	MaintenanceKmBefore   int
	FuelThresholdL100     float64
	NoFillDays            int
	DocumentDaysBefore    int
	ReminderDaysBefore    int
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Redis       RedisConfig
	Auth        AuthConfig
	Push        PushConfig
	Alerts      AlertDefaults
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")

	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetString("DB_CONN_MAX_LIFETIME"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Push: PushConfig{
			URL:     v.GetString("PUSH_URL"),
			Timeout: v.GetString("PUSH_TIMEOUT"),
		},
		Alerts: AlertDefaults{
			InspectionDaysBefore:  v.GetInt("ALERT_INSPECTION_DAYS_BEFORE"),
			MaintenanceDaysBefore: v.GetInt("ALERT_MAINTENANCE_DAYS_BEFORE"),
			MaintenanceKmBefore:   v.GetInt("ALERT_MAINTENANCE_KM_BEFORE"),
			FuelThresholdL100:     v.GetFloat64("ALERT_FUEL_THRESHOLD_L100"),
			NoFillDays:            v.GetInt("ALERT_NO_FILL_DAYS"),
			DocumentDaysBefore:    v.GetInt("ALERT_DOCUMENT_DAYS_BEFORE"),
			ReminderDaysBefore:    v.GetInt("ALERT_REMINDER_DAYS_BEFORE"),
		},
	}

	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 7090
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Push.URL == "" {
		cfg.Push.URL = "https://exp.host/--/api/v2/push/send"
	}
	if cfg.Push.Timeout == "" {
		cfg.Push.Timeout = "10s"
	}
	if cfg.Alerts.InspectionDaysBefore <= 0 {
		cfg.Alerts.InspectionDaysBefore = 30
	}
	if cfg.Alerts.MaintenanceDaysBefore <= 0 {
		cfg.Alerts.MaintenanceDaysBefore = 14
	}
	if cfg.Alerts.MaintenanceKmBefore <= 0 {
		cfg.Alerts.MaintenanceKmBefore = 500
	}
	if cfg.Alerts.FuelThresholdL100 <= 0 {
		cfg.Alerts.FuelThresholdL100 = 12.0
	}
	if cfg.Alerts.NoFillDays <= 0 {
		cfg.Alerts.NoFillDays = 7
	}
	if cfg.Alerts.DocumentDaysBefore <= 0 {
		cfg.Alerts.DocumentDaysBefore = 30
	}
	if cfg.Alerts.ReminderDaysBefore <= 0 {
		cfg.Alerts.ReminderDaysBefore = 14
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	return nil
}
