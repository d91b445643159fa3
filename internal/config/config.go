package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the FieldSight server and worker.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Queue     QueueConfig
	Satellite SatelliteConfig
	Tiler     TilerConfig
	Weather   WeatherConfig
	Pipeline  PipelineConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type QueueConfig struct {
	URL       string
	QueueName string
	Prefetch  int
}

type SatelliteConfig struct {
	PrimaryURL        string
	SecondaryURL      string
	Timeout           time.Duration
	OpticalCollection string
	RadarCollection   string
	DEMCollection     string
	MaxCloudCover     float64
	FailureThreshold  int
	RecoveryTimeout   time.Duration
	SceneCacheTTL     time.Duration
}

type TilerConfig struct {
	BaseURL     string
	Timeout     time.Duration
	WarmZoom    int
	WarmWorkers int
}

type WeatherConfig struct {
	BaseURL string
	Timeout time.Duration
}

type PipelineConfig struct {
	Version          string
	WindowSize       int
	ChangeThreshold  float64
	PersistenceWeeks int
	AnomalyFloor     float64
	BaselineWeeks    int
}

// Load reads configuration from environment variables and returns a validated
// Config. Returns an error with a descriptive message if any required value is
// missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("FIELDSIGHT_PORT", 8080),
			Env:  envString("FIELDSIGHT_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Queue: QueueConfig{
			URL:       os.Getenv("RABBITMQ_URL"),
			QueueName: envString("JOB_QUEUE_NAME", "fieldsight.jobs"),
			Prefetch:  envInt("JOB_QUEUE_PREFETCH", 1),
		},
		Satellite: SatelliteConfig{
			PrimaryURL:        os.Getenv("STAC_PRIMARY_URL"),
			SecondaryURL:      envString("STAC_SECONDARY_URL", ""),
			Timeout:           envDuration("STAC_TIMEOUT", 30*time.Second),
			OpticalCollection: envString("STAC_OPTICAL_COLLECTION", "sentinel-2-l2a"),
			RadarCollection:   envString("STAC_RADAR_COLLECTION", "sentinel-1-grd"),
			DEMCollection:     envString("STAC_DEM_COLLECTION", "cop-dem-glo-30"),
			MaxCloudCover:     envFloat("STAC_MAX_CLOUD_COVER", 60),
			FailureThreshold:  envInt("BREAKER_FAILURE_THRESHOLD", 5),
			RecoveryTimeout:   envDurationSecs("BREAKER_RECOVERY_TIMEOUT_SECS", 300*time.Second),
			SceneCacheTTL:     envDuration("SCENE_CACHE_TTL", 72*time.Hour),
		},
		Tiler: TilerConfig{
			BaseURL:     os.Getenv("TILER_BASE_URL"),
			Timeout:     envDuration("TILER_TIMEOUT", 60*time.Second),
			WarmZoom:    envInt("TILE_WARM_ZOOM", 14),
			WarmWorkers: envInt("TILE_WARM_WORKERS", 10),
		},
		Weather: WeatherConfig{
			BaseURL: envString("WEATHER_BASE_URL", "https://archive-api.open-meteo.com"),
			Timeout: envDuration("WEATHER_TIMEOUT", 30*time.Second),
		},
		Pipeline: PipelineConfig{
			Version:          envString("PIPELINE_VERSION", "v1"),
			WindowSize:       envInt("CHANGE_WINDOW_SIZE", 4),
			ChangeThreshold:  envFloat("CHANGE_THRESHOLD", 0.08),
			PersistenceWeeks: envInt("CHANGE_PERSISTENCE_WEEKS", 2),
			AnomalyFloor:     envFloat("ALERT_ANOMALY_FLOOR", -0.15),
			BaselineWeeks:    envInt("BASELINE_WEEKS", 52),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Queue.URL == "" {
		return fmt.Errorf("RABBITMQ_URL is required")
	}

	if c.Satellite.PrimaryURL == "" {
		return fmt.Errorf("STAC_PRIMARY_URL is required")
	}
	if !strings.HasPrefix(c.Satellite.PrimaryURL, "http://") && !strings.HasPrefix(c.Satellite.PrimaryURL, "https://") {
		return fmt.Errorf("STAC_PRIMARY_URL must start with http:// or https://, got %q", c.Satellite.PrimaryURL)
	}

	if c.Tiler.BaseURL == "" {
		return fmt.Errorf("TILER_BASE_URL is required")
	}

	if c.Satellite.FailureThreshold < 1 {
		return fmt.Errorf("BREAKER_FAILURE_THRESHOLD must be at least 1, got %d", c.Satellite.FailureThreshold)
	}

	if c.Pipeline.WindowSize < 2 {
		return fmt.Errorf("CHANGE_WINDOW_SIZE must be at least 2, got %d", c.Pipeline.WindowSize)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
