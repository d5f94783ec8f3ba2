package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for VitaLink
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Bluetooth BluetoothConfig `yaml:"bluetooth"`
	Detection DetectionConfig `yaml:"detection"`
	History   HistoryConfig   `yaml:"history"`
	Alerts    AlertsConfig    `yaml:"alerts"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        int    `yaml:"port"`
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
}

// BluetoothConfig holds transport configuration
type BluetoothConfig struct {
	NamePrefix     string        `yaml:"name_prefix"`
	ScanTimeout    time.Duration `yaml:"scan_timeout"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// DetectionConfig holds per-kind session tuning. Auto-stop delays run
// from the first physiologically valid reading; the fallback timeout is
// how long a session waits for any valid data before prompting for
// manual entry.
type DetectionConfig struct {
	ECGDuration       time.Duration `yaml:"ecg_duration"`
	OxygenStopDelay   time.Duration `yaml:"oxygen_stop_delay"`
	PressureStopDelay time.Duration `yaml:"pressure_stop_delay"`
	GlucoseStopDelay  time.Duration `yaml:"glucose_stop_delay"`
	TempStopDelay     time.Duration `yaml:"temp_stop_delay"`
	FallbackTimeout   time.Duration `yaml:"fallback_timeout"`
}

// HistoryConfig holds the recent-readings buffer configuration
type HistoryConfig struct {
	Size int `yaml:"size"`
}

// AlertsConfig holds vitals alerting configuration
type AlertsConfig struct {
	Enabled      bool          `yaml:"enabled"`
	MaxActive    int           `yaml:"max_active"`
	DedupeWindow time.Duration `yaml:"dedupe_window"`
	Webhook      WebhookConfig `yaml:"webhook"`
}

// WebhookConfig holds webhook notifier configuration
type WebhookConfig struct {
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := LoadFromEnv()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables with
// defaults matching the HC03 device behavior
func LoadFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        getEnvInt("PORT", 3010),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Bluetooth: BluetoothConfig{
			NamePrefix:     getEnv("BLE_NAME_PREFIX", "HC03"),
			ScanTimeout:    getEnvDuration("BLE_SCAN_TIMEOUT", 15*time.Second),
			ConnectTimeout: getEnvDuration("BLE_CONNECT_TIMEOUT", 30*time.Second),
		},
		Detection: DetectionConfig{
			ECGDuration:       getEnvDuration("DETECT_ECG_DURATION", 30*time.Second),
			OxygenStopDelay:   getEnvDuration("DETECT_OXYGEN_STOP_DELAY", 2*time.Second),
			PressureStopDelay: getEnvDuration("DETECT_PRESSURE_STOP_DELAY", 2*time.Second),
			GlucoseStopDelay:  getEnvDuration("DETECT_GLUCOSE_STOP_DELAY", 2*time.Second),
			TempStopDelay:     getEnvDuration("DETECT_TEMP_STOP_DELAY", time.Second),
			FallbackTimeout:   getEnvDuration("DETECT_FALLBACK_TIMEOUT", 10*time.Second),
		},
		History: HistoryConfig{
			Size: getEnvInt("HISTORY_SIZE", 10),
		},
		Alerts: AlertsConfig{
			Enabled:      getEnvBool("ALERTS_ENABLED", true),
			MaxActive:    getEnvInt("MAX_ACTIVE_ALERTS", 100),
			DedupeWindow: getEnvDuration("ALERT_DEDUPE_WINDOW", 5*time.Minute),
			Webhook: WebhookConfig{
				URL: getEnv("ALERT_WEBHOOK_URL", ""),
			},
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
