// Package config содержит логику чтения конфигурации сервиса выставления счетов.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zapcore"

	"github.com/mmeshcher/invoice-service/internal/invoice"
	"github.com/mmeshcher/invoice-service/internal/money"
	"github.com/mmeshcher/invoice-service/internal/pagination"
)

const (
	defaultRunAddress = "localhost:8080"
	minJWTSecretBytes = 32
)

// ErrInvalidConfig возвращается Validate для недопустимых значений.
var ErrInvalidConfig = errors.New("invalid config")

// Config содержит параметры конфигурации сервиса выставления счетов.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`

	JWTSecret         string `env:"JWT_SECRET"`
	JWTIssuer         string `env:"JWT_ISSUER" envDefault:"invoice-service"`
	JWTExpiresInHours int    `env:"JWT_EXPIRES_IN_HOURS" envDefault:"24"`

	LogLevel zapcore.Level `env:"LOG_LEVEL" envDefault:"info"`

	FeeRate          decimal.Decimal `env:"FEE_RATE" envDefault:"0.04"`
	TaxRate          decimal.Decimal `env:"TAX_RATE" envDefault:"0.10"`
	MaxPaymentAmount decimal.Decimal `env:"MAX_PAYMENT_AMOUNT" envDefault:"9999999999999.99"`

	DefaultPageSize int `env:"DEFAULT_PAGE_SIZE" envDefault:"20"`
	MaxPageSize     int `env:"MAX_PAGE_SIZE" envDefault:"100"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envJWTSecret := cfg.JWTSecret

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI, in-memory storage if empty")
	flag.StringVar(&cfg.JWTSecret, "s", "", "secret for signing access tokens")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envJWTSecret != "" {
		cfg.JWTSecret = envJWTSecret
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет ставки, лимиты и секрет токенов.
func (c *Config) Validate() error {
	if len(c.JWTSecret) < minJWTSecretBytes {
		return fmt.Errorf("%w: JWT_SECRET must be at least %d bytes", ErrInvalidConfig, minJWTSecretBytes)
	}
	if c.JWTExpiresInHours <= 0 {
		return fmt.Errorf("%w: JWT_EXPIRES_IN_HOURS must be positive, got %d", ErrInvalidConfig, c.JWTExpiresInHours)
	}
	if !c.FeeRate.IsPositive() {
		return fmt.Errorf("%w: FEE_RATE must be positive, got %s", ErrInvalidConfig, c.FeeRate)
	}
	if !c.TaxRate.IsPositive() {
		return fmt.Errorf("%w: TAX_RATE must be positive, got %s", ErrInvalidConfig, c.TaxRate)
	}
	if !c.MaxPaymentAmount.IsPositive() {
		return fmt.Errorf("%w: MAX_PAYMENT_AMOUNT must be positive, got %s", ErrInvalidConfig, c.MaxPaymentAmount)
	}
	if c.MaxPageSize < 1 || c.MaxPageSize > pagination.MaxSize {
		return fmt.Errorf("%w: MAX_PAGE_SIZE must be between 1 and %d, got %d", ErrInvalidConfig, pagination.MaxSize, c.MaxPageSize)
	}
	if c.DefaultPageSize < 1 || c.DefaultPageSize > c.MaxPageSize {
		return fmt.Errorf("%w: DEFAULT_PAGE_SIZE must be between 1 and %d, got %d", ErrInvalidConfig, c.MaxPageSize, c.DefaultPageSize)
	}
	return nil
}

// Invoice возвращает настройки фабрики счетов.
func (c *Config) Invoice() invoice.Config {
	cfg := invoice.DefaultConfig()
	cfg.FeeRate = c.FeeRate
	cfg.TaxRate = c.TaxRate
	cfg.MaxPaymentAmount = money.FromDecimal(c.MaxPaymentAmount)
	return cfg
}

// Pagination возвращает настройки постраничной выборки.
func (c *Config) Pagination() pagination.Config {
	return pagination.Config{
		DefaultSize: c.DefaultPageSize,
		MaxSize:     c.MaxPageSize,
	}
}

// TokenTTL возвращает срок действия токена доступа.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTExpiresInHours) * time.Hour
}
