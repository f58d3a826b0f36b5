// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

// PaymentConfig configures the outbound client for the payment microservice.
type PaymentConfig struct {
	BaseURL       string        `yaml:"base_url"`
	AppID         string        `yaml:"app_id"` // sent as x-app-id on every call
	Timeout       time.Duration `yaml:"timeout"`
	WebhookSecret string        `yaml:"webhook_secret"` // HMAC secret for gateway signatures
}

// M2MConfig configures service-to-service token minting and verification.
type M2MConfig struct {
	Secret          string        `yaml:"secret"`
	ServiceName     string        `yaml:"service_name"`     // our issuer name
	PaymentAudience string        `yaml:"payment_audience"` // audience for outbound tokens
	TTL             time.Duration `yaml:"ttl"`
}

// PlansConfig feeds the static plan catalog.
type PlansConfig struct {
	MonthlyRemoteID string `yaml:"monthly_remote_id"`
	YearlyRemoteID  string `yaml:"yearly_remote_id"`
	MonthlyPrice    int64  `yaml:"monthly_price"` // minor units
	YearlyPrice     int64  `yaml:"yearly_price"`
	Currency        string `yaml:"currency"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Payment  PaymentConfig  `yaml:"payment"`
	M2M      M2MConfig      `yaml:"m2m"`
	Plans    PlansConfig    `yaml:"plans"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 30 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Redis.LockTTL <= 0 {
		cfg.Redis.LockTTL = 15 * time.Second
	}
	if cfg.Payment.Timeout <= 0 {
		cfg.Payment.Timeout = 10 * time.Second
	}
	if cfg.M2M.TTL <= 0 {
		cfg.M2M.TTL = 60 * time.Second
	}
	if cfg.M2M.ServiceName == "" {
		cfg.M2M.ServiceName = "kids-content-billing"
	}
	if cfg.M2M.PaymentAudience == "" {
		cfg.M2M.PaymentAudience = "payment-service"
	}
	if cfg.Plans.Currency == "" {
		cfg.Plans.Currency = "INR"
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Payment.BaseURL == "" {
		return nil, errors.New("payment.base_url is required")
	}
	if cfg.Payment.AppID == "" {
		return nil, errors.New("payment.app_id is required")
	}
	if cfg.M2M.Secret == "" {
		return nil, errors.New("m2m.secret is required")
	}
	if cfg.Plans.MonthlyRemoteID == "" || cfg.Plans.YearlyRemoteID == "" {
		return nil, errors.New("plans.monthly_remote_id and plans.yearly_remote_id are required")
	}
	if cfg.Plans.MonthlyPrice <= 0 || cfg.Plans.YearlyPrice <= 0 {
		return nil, errors.New("plan prices must be positive")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
