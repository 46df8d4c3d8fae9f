// Package config содержит логику чтения конфигурации консоли управления доставкой.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации консоли.
type Config struct {
	RunAddress     string `env:"RUN_ADDRESS"`
	BackendAddress string `env:"BACKEND_ADDRESS"`

	DatabaseURI   string `env:"DATABASE_URI"`
	RedisAddress  string `env:"REDIS_ADDRESS"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`

	AMQPURL   string `env:"AMQP_URL"`
	AMQPQueue string `env:"AMQP_QUEUE"`

	CookieSecret string `env:"COOKIE_SECRET"`
	SecureCookie bool   `env:"SECURE_COOKIE"`

	PageSize             int           `env:"PAGE_SIZE"`
	BackendRetryMax      int           `env:"BACKEND_RETRY_MAX"`
	BackendTimeout       time.Duration `env:"BACKEND_TIMEOUT"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL"`
}

// ErrNoBackend возвращается, если не задан адрес бэкенда.
var ErrNoBackend = errors.New("backend address is required")

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.BackendAddress, "b", "", "shipping backend address")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI for the session store")
	flag.StringVar(&cfg.RedisAddress, "r", "", "redis address for the session store")
	flag.StringVar(&cfg.AMQPURL, "q", "", "RabbitMQ URL for order events")
	flag.StringVar(&cfg.CookieSecret, "s", "", "session cookie signing secret")
	flag.IntVar(&cfg.PageSize, "p", 10, "default orders page size")
	flag.BoolVar(&cfg.SecureCookie, "secure-cookie", false, "mark the session cookie as Secure")

	flag.Parse()

	cfg.BackendRetryMax = 2
	cfg.BackendTimeout = 15 * time.Second
	cfg.SessionSweepInterval = time.Minute

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", cfg.PageSize)
	}
	if cfg.BackendTimeout <= 0 {
		return nil, fmt.Errorf("backend timeout must be positive, got %s", cfg.BackendTimeout)
	}
	if cfg.SessionSweepInterval <= 0 {
		return nil, fmt.Errorf("session sweep interval must be positive, got %s", cfg.SessionSweepInterval)
	}
	if cfg.BackendRetryMax < 0 {
		cfg.BackendRetryMax = 0
	}
	if cfg.BackendAddress == "" {
		return nil, ErrNoBackend
	}

	return cfg, nil
}
