package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type (
	Config struct {
		HTTP      HTTP      `envPrefix:"HTTP_"`
		Logger    Logger    `envPrefix:"LOGGER_"`
		Telemetry Telemetry `envPrefix:"TELEMETRY_"`
		Cache     Cache     `envPrefix:"CACHE_"`
		Upstream  Upstream  `envPrefix:"UPSTREAM_"`
		Missions  Missions  `envPrefix:"MISSIONS_"`
		Warmup    Warmup    `envPrefix:"WARMUP_"`
	}

	HTTP struct {
		Server Server `envPrefix:"SERVER_"`
		CORS   CORS   `envPrefix:"CORS_"`
	}

	Server struct {
		Port            string        `env:"PORT" envDefault:"8484"`
		ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
		WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
		ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}

	CORS struct {
		AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
		MaxAge         int      `env:"MAX_AGE" envDefault:"300"`
	}

	Logger struct {
		Level string `env:"LEVEL" envDefault:"info"`
	}

	Telemetry struct {
		Enabled        bool   `env:"ENABLED" envDefault:"false"`
		ServiceName    string `env:"SERVICE_NAME" envDefault:"guide-helper-gcs"`
		ServiceVersion string `env:"SERVICE_VERSION" envDefault:"1.0.0"`
		Environment    string `env:"ENVIRONMENT" envDefault:"production"`
		OTLPEndpoint   string `env:"OTLP_ENDPOINT" envDefault:"otel-collector.observability.svc.cluster.local:4317"`
	}

	Cache struct {
		Backend    string `env:"BACKEND" envDefault:"filesystem"`
		Root       string `env:"ROOT" envDefault:"./Tiles"`
		SQLitePath string `env:"SQLITE_PATH" envDefault:"./tiles.db"`
		BadgerDir  string `env:"BADGER_DIR" envDefault:"./tiles.badger"`
		Redis      Redis  `envPrefix:"REDIS_"`
	}

	Redis struct {
		Addr     string `env:"ADDR" envDefault:"localhost:6379"`
		Password string `env:"PASSWORD" envDefault:""`
		DB       int    `env:"DB" envDefault:"0"`
	}

	Upstream struct {
		OSMURL       string        `env:"OSM_URL" envDefault:"https://a.tile.openstreetmap.org/{z}/{x}/{y}.png"`
		SatelliteURL string        `env:"SATELLITE_URL" envDefault:"https://mt0.google.com/vt?lyrs=s&x={x}&s=&y={y}&z={z}"`
		UserAgent    string        `env:"USER_AGENT" envDefault:"GuideHelperGCS/1.0 (https://github.com/jaennil/guide_helper)"`
		Referer      string        `env:"REFERER" envDefault:""`
		Timeout      time.Duration `env:"TIMEOUT" envDefault:"10s"`
		RateLimit    float64       `env:"RATE_LIMIT" envDefault:"16"`
		RateBurst    int           `env:"RATE_BURST" envDefault:"32"`
		Breaker      Breaker       `envPrefix:"BREAKER_"`
	}

	Breaker struct {
		Enabled      bool          `env:"ENABLED" envDefault:"true"`
		MaxRequests  uint32        `env:"MAX_REQUESTS" envDefault:"3"`
		Interval     time.Duration `env:"INTERVAL" envDefault:"1m"`
		Timeout      time.Duration `env:"TIMEOUT" envDefault:"30s"`
		MinRequests  uint32        `env:"MIN_REQUESTS" envDefault:"10"`
		FailureRatio float64       `env:"FAILURE_RATIO" envDefault:"0.6"`
	}

	Missions struct {
		Dir           string `env:"DIR" envDefault:"./missions"`
		BackupCorrupt bool   `env:"BACKUP_CORRUPT" envDefault:"true"`
	}

	Warmup struct {
		Enabled bool         `env:"ENABLED" envDefault:"true"`
		Ranges  WarmupRanges `env:"RANGES" envDefault:"osm:0-0:0-0:0-0;gsat:0-0:0-0:0-0"`
	}
)

func New() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Printf("NOTICE: .env file not found or cannot be loaded: %v\n", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

const redacted = "[REDACTED]"

// Redacted returns a copy with secrets masked, fit for logging.
func (c Config) Redacted() Config {
	if c.Cache.Redis.Password != "" {
		c.Cache.Redis.Password = redacted
	}
	return c
}
