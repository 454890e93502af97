// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/campwatch/campground-ingest/pkg/dyrt"
	"github.com/campwatch/campground-ingest/pkg/logging"
)

// Config holds the full service configuration.
type Config struct {
	// Bounding box corners of the catalog search area.
	Longitude1 float64
	Latitude1  float64
	Longitude2 float64
	Latitude2  float64

	// SearchEndpoint is the catalog search URL.
	SearchEndpoint string

	// MaxConcurrency caps parallel page fetches per window.
	MaxConcurrency int

	// PageSize is the fixed page size requested from the API.
	PageSize int

	// Postgres connection parameters.
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// RedisAddr enables the geocode cache when non-empty.
	RedisAddr string

	// HTTPPort is the trigger surface listen port.
	HTTPPort string

	// Recurring schedule: interval between runs and the delay before the
	// first scheduled run after a manual start.
	ScheduleInterval     time.Duration
	ScheduleInitialDelay time.Duration

	// Logging.
	LogLevel logging.LogLevel
	LogFile  string
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		SearchEndpoint:       os.Getenv("DYRT_SEARCH_ENDPOINT"),
		MaxConcurrency:       getEnvInt("MAX_CONCURRENT_REQUESTS", 10),
		PageSize:             getEnvInt("PAGE_SIZE", 500),
		DBHost:               getEnv("DB_HOST", "localhost"),
		DBPort:               getEnv("DB_PORT", "5432"),
		DBUser:               os.Getenv("DB_USERNAME"),
		DBPassword:           os.Getenv("DB_PASSWORD"),
		DBName:               os.Getenv("DB_NAME"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		HTTPPort:             getEnv("PORT", "8080"),
		ScheduleInterval:     time.Duration(getEnvInt("SCRAPE_INTERVAL_HOURS", 24)) * time.Hour,
		ScheduleInitialDelay: time.Duration(getEnvInt("SCRAPE_INITIAL_DELAY_MINUTES", 5)) * time.Minute,
		LogLevel:             logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		LogFile:              os.Getenv("LOG_FILE"),
	}

	if cfg.SearchEndpoint == "" {
		return Config{}, fmt.Errorf("DYRT_SEARCH_ENDPOINT is required")
	}
	if _, err := url.ParseRequestURI(cfg.SearchEndpoint); err != nil {
		return Config{}, fmt.Errorf("DYRT_SEARCH_ENDPOINT: %w", err)
	}
	if cfg.DBUser == "" || cfg.DBName == "" {
		return Config{}, fmt.Errorf("DB_USERNAME and DB_NAME are required")
	}

	var err error
	if cfg.Longitude1, err = getEnvFloat("LONGITUDE_1"); err != nil {
		return Config{}, err
	}
	if cfg.Latitude1, err = getEnvFloat("LATITUDE_1"); err != nil {
		return Config{}, err
	}
	if cfg.Longitude2, err = getEnvFloat("LONGITUDE_2"); err != nil {
		return Config{}, err
	}
	if cfg.Latitude2, err = getEnvFloat("LATITUDE_2"); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// BoundingBox returns the search area as a fetcher bounding box.
func (c Config) BoundingBox() dyrt.BoundingBox {
	return dyrt.BoundingBox{
		MinLongitude: c.Longitude1,
		MinLatitude:  c.Latitude1,
		MaxLongitude: c.Longitude2,
		MaxLatitude:  c.Latitude2,
	}
}

// DatabaseURL renders the Postgres connection string.
func (c Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		url.QueryEscape(c.DBUser), url.QueryEscape(c.DBPassword),
		c.DBHost, c.DBPort, c.DBName)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}
