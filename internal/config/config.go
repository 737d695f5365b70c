// Package config загружает конфигурацию сервиса: config.toml, затем
// переопределения из переменных окружения с префиксом SMC_.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/m04kA/SMC-BookingEngine/internal/domain"
)

// EnvPrefix префикс переменных окружения
const EnvPrefix = "SMC_"

// Драйверы хранилища
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// ErrInvalidConfig возвращается при некорректной конфигурации
var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Server        ServerConfig        `toml:"server" envPrefix:"SERVER_"`
	Storage       StorageConfig       `toml:"storage" envPrefix:"STORAGE_"`
	Database      DatabaseConfig      `toml:"database" envPrefix:"DATABASE_"`
	Booking       BookingConfig       `toml:"booking" envPrefix:"BOOKING_"`
	SellerService SellerServiceConfig `toml:"seller_service" envPrefix:"SELLER_SERVICE_"`
	Metrics       MetricsConfig       `toml:"metrics" envPrefix:"METRICS_"`
	Logs          LogsConfig          `toml:"logs" envPrefix:"LOGS_"`
}

type ServerConfig struct {
	HTTPPort        int `toml:"http_port" env:"HTTP_PORT"`
	ReadTimeout     int `toml:"read_timeout" env:"READ_TIMEOUT"`         // секунды
	WriteTimeout    int `toml:"write_timeout" env:"WRITE_TIMEOUT"`       // секунды
	IdleTimeout     int `toml:"idle_timeout" env:"IDLE_TIMEOUT"`         // секунды
	ShutdownTimeout int `toml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"` // секунды
}

type StorageConfig struct {
	Driver string `toml:"driver" env:"DRIVER"` // postgres | memory
}

type DatabaseConfig struct {
	Host            string `toml:"host" env:"HOST"`
	Port            int    `toml:"port" env:"PORT"`
	User            string `toml:"user" env:"USER"`
	Password        string `toml:"password" env:"PASSWORD"`
	DBName          string `toml:"dbname" env:"NAME"`
	SSLMode         string `toml:"sslmode" env:"SSLMODE"`
	MaxOpenConns    int    `toml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int    `toml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"` // секунды
	MaxTxRetries    int    `toml:"max_tx_retries" env:"MAX_TX_RETRIES"`
	TxRetryDelay    int    `toml:"tx_retry_delay" env:"TX_RETRY_DELAY"` // миллисекунды, удваивается с каждой попыткой
	AutoMigrate     bool   `toml:"auto_migrate" env:"AUTO_MIGRATE"`
}

// DSN строка подключения для lib/pq
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type BookingConfig struct {
	ConflictScope   string `toml:"conflict_scope" env:"CONFLICT_SCOPE"`     // business | staff
	DefaultTimezone string `toml:"default_timezone" env:"DEFAULT_TIMEZONE"` // IANA, для бизнесов без своего часового пояса
}

type SellerServiceConfig struct {
	URL         string `toml:"url" env:"URL"`
	Timeout     int    `toml:"timeout" env:"TIMEOUT"`           // секунды
	CatalogPath string `toml:"catalog_path" env:"CATALOG_PATH"` // TOML каталог вместо HTTP клиента
}

type MetricsConfig struct {
	Enabled     bool   `toml:"enabled" env:"ENABLED"`
	ServiceName string `toml:"service_name" env:"SERVICE_NAME"`
	Path        string `toml:"path" env:"PATH"`
}

type LogsConfig struct {
	File  string `toml:"file" env:"FILE"`
	Level string `toml:"level" env:"LEVEL"`
}

// Load читает конфигурацию из файла (если он существует), применяет
// переменные окружения, значения по умолчанию и валидирует результат
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	setDefault(&c.Server.HTTPPort, 8080)
	setDefault(&c.Server.ReadTimeout, 10)
	setDefault(&c.Server.WriteTimeout, 10)
	setDefault(&c.Server.IdleTimeout, 60)
	setDefault(&c.Server.ShutdownTimeout, 15)

	setDefault(&c.Storage.Driver, StorageDriverPostgres)

	setDefault(&c.Database.Host, "localhost")
	setDefault(&c.Database.Port, 5432)
	setDefault(&c.Database.SSLMode, "disable")
	setDefault(&c.Database.MaxOpenConns, 25)
	setDefault(&c.Database.MaxIdleConns, 5)
	setDefault(&c.Database.ConnMaxLifetime, 300)
	setDefault(&c.Database.MaxTxRetries, 3)
	setDefault(&c.Database.TxRetryDelay, 20)

	setDefault(&c.Booking.ConflictScope, string(domain.ConflictScopeBusiness))
	setDefault(&c.Booking.DefaultTimezone, "UTC")

	setDefault(&c.SellerService.Timeout, 5)

	setDefault(&c.Metrics.ServiceName, "smc-booking-engine")
	setDefault(&c.Metrics.Path, "/metrics")

	setDefault(&c.Logs.Level, "info")
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}

// Validate проверяет согласованность конфигурации
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageDriverPostgres:
		if c.Database.DBName == "" || c.Database.User == "" {
			return fmt.Errorf("%w: database.dbname and database.user are required for postgres storage", ErrInvalidConfig)
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("%w: unknown storage.driver %q", ErrInvalidConfig, c.Storage.Driver)
	}

	if _, err := c.ConflictScope(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: booking.default_timezone: %v", ErrInvalidConfig, err)
	}

	if c.SellerService.URL == "" && c.SellerService.CatalogPath == "" {
		return fmt.Errorf("%w: either seller_service.url or seller_service.catalog_path is required", ErrInvalidConfig)
	}

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("%w: server.http_port out of range", ErrInvalidConfig)
	}
	return nil
}

// ConflictScope возвращает область конфликтов бронирований
func (c *Config) ConflictScope() (domain.ConflictScope, error) {
	return domain.ParseConflictScope(c.Booking.ConflictScope)
}

// Location возвращает часовой пояс по умолчанию
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Booking.DefaultTimezone)
}

// Duration переводит секунды из конфигурации в time.Duration
func Duration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
