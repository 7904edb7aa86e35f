// Package config loads process-level bootstrap settings from the
// environment (optionally via a .env file), mirroring gpt-load's own
// environment-driven config manager (PORT/HOST/LOG_LEVEL-style keys,
// godotenv.Load() best-effort before reading os.Getenv) trimmed to the
// handful of settings this proxy needs before ConfigService can load
// its own persisted document.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Silver-Larry/droid-byok-unleashed/internal/utils"
)

// Config holds everything needed to bring the process up before
// ConfigService takes over profile/proxy-settings ownership.
type Config struct {
	Host                    string
	Port                    int
	ConfigPath              string
	EncryptionKey           string
	LogLevel                string
	LogFormat               string
	UpstreamTimeout         time.Duration
	GracefulShutdownTimeout time.Duration
}

// Load reads .env (if present, ignored if absent) and then the
// environment, applying defaults for anything unset.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("config: failed to load .env file")
	}

	port, err := intEnv("PORT", 8080)
	if err != nil {
		return nil, err
	}
	upstreamTimeout, err := durationEnv("UPSTREAM_TIMEOUT", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := durationEnv("GRACEFUL_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	return &Config{
		Host:                    stringEnv("HOST", "0.0.0.0"),
		Port:                    port,
		ConfigPath:              stringEnv("CONFIG_PATH", "./proxy_config.json"),
		EncryptionKey:           stringEnv("ENCRYPTION_KEY", ""),
		LogLevel:                stringEnv("LOG_LEVEL", "info"),
		LogFormat:               stringEnv("LOG_FORMAT", "text"),
		UpstreamTimeout:         upstreamTimeout,
		GracefulShutdownTimeout: shutdownTimeout,
	}, nil
}

// LogConfig adapts Config to utils.SetupLogger's input shape.
func (c *Config) LogConfig() utils.LogConfig {
	return utils.LogConfig{Level: c.LogLevel, Format: c.LogFormat}
}

func stringEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
