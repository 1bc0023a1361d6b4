package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server       ServerConfig
	App          AppConfig
	Database     DatabaseConfig
	Cache        CacheConfig
	Ingest       IngestConfig
	Retention    RetentionConfig
	ExchangeRate ExchangeRateConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"cardvault-price-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// DatabaseConfig holds price store settings.
type DatabaseConfig struct {
	Type string `envconfig:"PRICE_DB_TYPE" default:"sqlite"` // sqlite, postgres, or mysql
	Path string `envconfig:"PRICE_DB_PATH" default:"./data/prices.db"`
	// PostgreSQL / MySQL settings
	Host     string `envconfig:"PRICE_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"PRICE_DB_PORT" default:"5432"`
	Name     string `envconfig:"PRICE_DB_NAME" default:"cardvault"`
	User     string `envconfig:"PRICE_DB_USER" default:"postgres"`
	Password string `envconfig:"PRICE_DB_PASS" default:""`
	SSLMode  string `envconfig:"PRICE_DB_SSLMODE" default:"disable"`
}

// CacheConfig holds rate-limiter backend settings.
type CacheConfig struct {
	Type string `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// IngestConfig holds price ingestion settings.
type IngestConfig struct {
	FeedBaseURL     string        `envconfig:"INGEST_FEED_BASE_URL" default:"https://tcgcsv.com"`
	CategoryID      int           `envconfig:"INGEST_CATEGORY_ID" default:"68"`
	SetIDs          []int         `envconfig:"INGEST_SET_IDS"`
	LookupChunkSize int           `envconfig:"INGEST_LOOKUP_CHUNK_SIZE" default:"500"`
	InsertBatchSize int           `envconfig:"INGEST_INSERT_BATCH_SIZE" default:"100"`
	SkipIfUnchanged bool          `envconfig:"INGEST_SKIP_IF_UNCHANGED" default:"false"`
	HTTPTimeout     time.Duration `envconfig:"INGEST_HTTP_TIMEOUT" default:"30s"`
	// Scheduler settings; the HTTP job endpoint stays available either way.
	ScheduleEnabled  bool          `envconfig:"INGEST_SCHEDULE_ENABLED" default:"false"`
	ScheduleInterval time.Duration `envconfig:"INGEST_SCHEDULE_INTERVAL" default:"6h"`
}

// RetentionConfig holds snapshot retention settings.
type RetentionConfig struct {
	Window           time.Duration `envconfig:"RETENTION_WINDOW" default:"336h"` // 14 days
	ScheduleEnabled  bool          `envconfig:"RETENTION_SCHEDULE_ENABLED" default:"false"`
	ScheduleInterval time.Duration `envconfig:"RETENTION_SCHEDULE_INTERVAL" default:"24h"`
}

// ExchangeRateConfig holds exchange-rate cache settings.
type ExchangeRateConfig struct {
	APIURL      string        `envconfig:"EXCHANGE_RATE_API_URL" default:"https://api.exchangerate-api.com/v4/latest/USD"`
	CacheKey    string        `envconfig:"EXCHANGE_RATE_CACHE_KEY" default:"CURRENT_USD_BRL_RATE"`
	HTTPTimeout time.Duration `envconfig:"EXCHANGE_RATE_HTTP_TIMEOUT" default:"15s"`

	RateLimit       int           `envconfig:"EXCHANGE_RATE_LIMIT" default:"30"`
	RateLimitWindow time.Duration `envconfig:"EXCHANGE_RATE_LIMIT_WINDOW" default:"60s"`
}

// defaultSetIDs is the tracked tcgplayer group list for the card catalog's
// category. Override with INGEST_SET_IDS when the tracked sets change.
var defaultSetIDs = []int{
	3188, 3189, 3190, 3335, 3336, 3337, 3462, 3463, 3464, 3465,
	17658, 17659, 17660, 17661, 17687, 17698, 17699, 17700, 22890, 22930,
	22934, 23024, 23213, 23232, 23243, 23272, 23297, 23304, 23333, 23348,
	23349, 23368, 23387, 23424, 23462, 23489, 23490, 23491, 23512, 23589,
	23590, 23651, 23766, 23834, 23835, 23879, 23907, 23991, 24068, 24069,
	24147, 24179, 24241, 24282, 24283, 24326, 24380, 24381,
}

// PostgresDSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// MySQLDSN returns the MySQL data source name.
func (d *DatabaseConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if len(cfg.Ingest.SetIDs) == 0 {
		cfg.Ingest.SetIDs = defaultSetIDs
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
