// Package config loads alertcored's configuration from a JSON file and
// applies environment variable overrides, adapted from the teacher's
// cmd/main.go loadConfig/applyEnvOverrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the full process configuration. Durations are expressed as
// whole numbers of milliseconds, seconds, minutes, hours or days in the
// JSON/env surface (the field name says which unit) and converted to
// time.Duration at the call site.
type Config struct {
	Server struct {
		Host         string `json:"host"`
		Port         int    `json:"port"`
		ReadTimeout  int    `json:"readTimeoutSeconds"`
		WriteTimeout int    `json:"writeTimeoutSeconds"`
	} `json:"server"`

	Auth struct {
		JWTSecret       string `json:"jwtSecret"`
		TokenExpiration int    `json:"tokenExpirationSeconds"`
		RequireAuth     bool   `json:"requireAuth"`
	} `json:"auth"`

	NATS struct {
		URL               string `json:"url"`
		PredictionSubject string `json:"predictionSubject"`
		MaxReconnects     int    `json:"maxReconnects"`
		ReconnectWaitMS   int    `json:"reconnectWaitMs"`
	} `json:"nats"`

	Alerts struct {
		DefaultThresholdLow    float64 `json:"defaultThresholdLow"`
		DefaultThresholdMedium float64 `json:"defaultThresholdMedium"`
		DefaultThresholdHigh   float64 `json:"defaultThresholdHigh"`
		ReAlertWindowSeconds   int     `json:"reAlertWindowSeconds"`
	} `json:"alerts"`

	Connections struct {
		HeartbeatIntervalSeconds int `json:"heartbeatIntervalSeconds"`
		ReaperIntervalSeconds    int `json:"reaperIntervalSeconds"`
		IdleTimeoutSeconds       int `json:"idleTimeoutSeconds"`
	} `json:"connections"`

	OfflineQueue struct {
		Capacity   int `json:"capacity"`
		TTLDays    int `json:"ttlDays"`
		GCInterval int `json:"gcIntervalMinutes"`
	} `json:"offlineQueue"`

	Delivery struct {
		TTLHours int `json:"ttlHours"`
	} `json:"delivery"`

	Webhook struct {
		TimeoutSeconds int `json:"timeoutSeconds"`
		Concurrency    int `json:"concurrency"`
	} `json:"webhook"`

	Cleanup struct {
		IntervalMinutes int `json:"intervalMinutes"`
	} `json:"cleanup"`

	Metrics struct {
		EnablePrometheus bool `json:"enablePrometheus"`
	} `json:"metrics"`

	LogLevel string `json:"logLevel"`
}

const defaultConfig = `{
  "server": {"host": "0.0.0.0", "port": 8090, "readTimeoutSeconds": 10, "writeTimeoutSeconds": 10},
  "auth": {"jwtSecret": "change-me-in-production", "tokenExpirationSeconds": 3600, "requireAuth": false},
  "nats": {"url": "nats://localhost:4222", "predictionSubject": "solar.predictions.>", "maxReconnects": 10, "reconnectWaitMs": 1000},
  "alerts": {"defaultThresholdLow": 0.3, "defaultThresholdMedium": 0.6, "defaultThresholdHigh": 0.8, "reAlertWindowSeconds": 3600},
  "connections": {"heartbeatIntervalSeconds": 30, "reaperIntervalSeconds": 60, "idleTimeoutSeconds": 300},
  "offlineQueue": {"capacity": 100, "ttlDays": 7, "gcIntervalMinutes": 60},
  "delivery": {"ttlHours": 24},
  "webhook": {"timeoutSeconds": 10, "concurrency": 32},
  "cleanup": {"intervalMinutes": 60},
  "metrics": {"enablePrometheus": true},
  "logLevel": "info"
}`

// Load reads configuration from configPath if non-empty, otherwise uses
// the built-in default, then layers environment variable overrides on
// top (ALERTCORE_* variables take precedence over file values).
func Load(configPath string) (*Config, error) {
	raw := []byte(defaultConfig)
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		raw = data
	}

	raw = []byte(os.ExpandEnv(string(raw)))

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ALERTCORE_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("ALERTCORE_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("ALERTCORE_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("ALERTCORE_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("ALERTCORE_REQUIRE_AUTH"); v != "" {
		cfg.Auth.RequireAuth = v == "true"
	}
	if v := os.Getenv("ALERTCORE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// HeartbeatInterval returns the configured heartbeat period as a Duration.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Connections.HeartbeatIntervalSeconds) * time.Second
}

// ReaperInterval returns the configured reaper sweep period as a Duration.
func (c *Config) ReaperInterval() time.Duration {
	return time.Duration(c.Connections.ReaperIntervalSeconds) * time.Second
}

// IdleTimeout returns the configured connection idle timeout as a Duration.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Connections.IdleTimeoutSeconds) * time.Second
}

// WebhookTimeout returns the configured per-webhook-request timeout.
func (c *Config) WebhookTimeout() time.Duration {
	return time.Duration(c.Webhook.TimeoutSeconds) * time.Second
}

// DeliveryTTL returns the configured delivery-tracker retention window.
func (c *Config) DeliveryTTL() time.Duration {
	return time.Duration(c.Delivery.TTLHours) * time.Hour
}

// OfflineQueueTTL returns the configured offline-message retention window.
func (c *Config) OfflineQueueTTL() time.Duration {
	return time.Duration(c.OfflineQueue.TTLDays) * 24 * time.Hour
}

// CleanupInterval returns the configured periodic_cleanup scheduling period.
func (c *Config) CleanupInterval() time.Duration {
	return time.Duration(c.Cleanup.IntervalMinutes) * time.Minute
}

// ReAlertWindow returns the configured HIGH re-alert suppression window.
func (c *Config) ReAlertWindow() time.Duration {
	return time.Duration(c.Alerts.ReAlertWindowSeconds) * time.Second
}
