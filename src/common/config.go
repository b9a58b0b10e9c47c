package common

import (
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Logging   LoggingConfig   `toml:"logging"`
	Auth      AuthConfig      `toml:"auth"`
	Search    SearchConfig    `toml:"search"`
	StaticMap StaticMapConfig `toml:"static_map"`
	Storage   StorageConfig   `toml:"storage"`
	Images    ImagesConfig    `toml:"images"`
	Uploads   UploadsConfig   `toml:"uploads"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type LoggingConfig struct {
	Level string `toml:"level"` // "debug", "info", "warn", "error"
}

type AuthConfig struct {
	SigningKey string            `toml:"signing_key"`
	TokenTTL   string            `toml:"token_ttl"` // e.g. "1h"
	Users      map[string]string `toml:"users"`     // username -> bcrypt hash
}

// SearchConfig configures the place-search provider and its cache.
type SearchConfig struct {
	Endpoint      string  `toml:"endpoint"`
	OperationName string  `toml:"operation_name"`
	Timeout       string  `toml:"timeout"`    // hard timeout per provider call
	CacheTTL      string  `toml:"cache_ttl"`  // lifetime of a cached result set
	RateLimit     float64 `toml:"rate_limit"` // provider requests per second
	Burst         int     `toml:"burst"`
	UserAgent     string  `toml:"user_agent"`
	Referer       string  `toml:"referer"`
	Origin        string  `toml:"origin"`
}

type StaticMapConfig struct {
	Endpoint     string `toml:"endpoint"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	Timeout      string `toml:"timeout"`
}

type StorageConfig struct {
	Backend string        `toml:"backend"` // "elastic" or "badger"
	Elastic ElasticConfig `toml:"elastic"`
	Badger  BadgerConfig  `toml:"badger"`
}

type ElasticConfig struct {
	URL            string `toml:"url"`
	PlacesIndex    string `toml:"places_index"`
	ReviewsIndex   string `toml:"reviews_index"`
	FavoritesIndex string `toml:"favorites_index"`
}

type BadgerConfig struct {
	Path string `toml:"path"`
}

type ImagesConfig struct {
	ReviewWidth int `toml:"review_width"`
}

// UploadsConfig points at S3-compatible object storage for review images.
type UploadsConfig struct {
	Endpoint      string `toml:"endpoint"`
	AccessKey     string `toml:"access_key"`
	SecretKey     string `toml:"secret_key"`
	Bucket        string `toml:"bucket"`
	UseSSL        bool   `toml:"use_ssl"`
	PublicBaseURL string `toml:"public_base_url"`
	MaxDimension  int    `toml:"max_dimension"`
	Quality       int    `toml:"quality"`
	MaxBytes      int    `toml:"max_bytes"`
}

// NewDefaultConfig returns the configuration used when no file overrides a value
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8888,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Auth: AuthConfig{
			TokenTTL: "1h",
			Users:    map[string]string{},
		},
		Search: SearchConfig{
			Endpoint:      "https://pcmap-api.place.naver.com/graphql",
			OperationName: "getPlacesList",
			Timeout:       "5s",
			CacheTTL:      "300s",
			RateLimit:     5,
			Burst:         5,
			UserAgent:     "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			Referer:       "https://m.place.naver.com/",
			Origin:        "https://m.place.naver.com",
		},
		StaticMap: StaticMapConfig{
			Endpoint: "https://naveropenapi.apigw.ntruss.com/map-static/v2/raster",
			Timeout:  "5s",
		},
		Storage: StorageConfig{
			Backend: "elastic",
			Elastic: ElasticConfig{
				URL:            "http://localhost:9200",
				PlacesIndex:    "places",
				ReviewsIndex:   "reviews",
				FavoritesIndex: "favorites",
			},
			Badger: BadgerConfig{
				Path: "./data/placefinder",
			},
		},
		Images: ImagesConfig{
			ReviewWidth: 480,
		},
		Uploads: UploadsConfig{
			Bucket:       "review-images",
			UseSSL:       true,
			MaxDimension: 1920,
			Quality:      80,
			MaxBytes:     1 << 20,
		},
	}
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
// An empty path skips the file step.
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, errors.Wrapf(err, "failed to parse config file %s", path)
		}
	}

	applyEnvOverrides(config)
	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if host := os.Getenv("PLACES_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("PLACES_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if level := os.Getenv("PLACES_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if key := os.Getenv("MY_SIGNING_KEY"); key != "" {
		config.Auth.SigningKey = key
	}
	if url := os.Getenv("ELASTIC_URL"); url != "" {
		config.Storage.Elastic.URL = url
	}
	if backend := os.Getenv("PLACES_STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = backend
	}
	if id := os.Getenv("STATIC_MAP_CLIENT_ID"); id != "" {
		config.StaticMap.ClientID = id
	}
	if secret := os.Getenv("STATIC_MAP_CLIENT_SECRET"); secret != "" {
		config.StaticMap.ClientSecret = secret
	}
	if key := os.Getenv("UPLOADS_ACCESS_KEY"); key != "" {
		config.Uploads.AccessKey = key
	}
	if secret := os.Getenv("UPLOADS_SECRET_KEY"); secret != "" {
		config.Uploads.SecretKey = secret
	}
}

// ApplyFlagOverrides applies command-line overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int) {
	if port > 0 {
		config.Server.Port = port
	}
}

// ParseDuration parses a config duration string, returning fallback when the
// value is empty, malformed, or not positive.
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
