package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/hupe1980/neighbors"
	"github.com/hupe1980/neighbors/distance"
	"github.com/hupe1980/neighbors/index"
	"github.com/hupe1980/neighbors/persist"
)

// envPrefix prefixes every configuration variable.
const envPrefix = "NNQUERY"

// Config validation errors
var (
	ErrNoInput         = errors.New("either points or index must be set")
	ErrInvalidMode     = errors.New("mode must be 'knn' or 'range'")
	ErrInvalidK        = errors.New("k must be positive")
	ErrInvalidRadius   = errors.New("threshold must be non-negative")
	ErrInvalidWorkers  = errors.New("workers and chunk_size must be non-negative")
	ErrInvalidLogFmt   = errors.New("log_format must be 'json' or 'text'")
	ErrInvalidLogLevel = errors.New("log_level must be debug, info, warn, or error")
)

// Config is read from NNQUERY_* environment variables.
type Config struct {
	// PointsPath is a Parquet points file to build the index from.
	PointsPath string `envconfig:"POINTS"`
	// IndexPath is a persisted index to load instead of building one.
	IndexPath string `envconfig:"INDEX"`
	// QueriesPath switches to cross queries against the points in this file.
	QueriesPath string `envconfig:"QUERIES"`
	// OutputPath receives the results as Parquet. Empty skips writing.
	OutputPath string `envconfig:"OUTPUT" default:"results.parquet"`

	// SaveIndexPath persists the built index.
	SaveIndexPath    string `envconfig:"SAVE_INDEX"`
	IndexCompression string `envconfig:"INDEX_COMPRESSION" default:"zstd"`

	Kind      string  `envconfig:"KIND" default:"vptree"`
	Metric    string  `envconfig:"METRIC" default:"euclidean"`
	Seed      int64   `envconfig:"SEED" default:"42"`
	Mode      string  `envconfig:"MODE" default:"knn"`
	K         int     `envconfig:"K" default:"10"`
	Threshold float64 `envconfig:"THRESHOLD" default:"1"`
	CountOnly bool    `envconfig:"COUNT_ONLY" default:"false"`
	RawIndex  bool    `envconfig:"RAW_INDEX" default:"false"`
	Workers   int     `envconfig:"WORKERS" default:"0"`
	ChunkSize int     `envconfig:"CHUNK_SIZE" default:"0"`

	Timeout     time.Duration `envconfig:"TIMEOUT" default:"0"`
	MetricsAddr string        `envconfig:"METRICS_ADDR"`
	LogFormat   string        `envconfig:"LOG_FORMAT" default:"text"`
	LogLevel    string        `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig reads envFiles (".env" if none are given) into the environment
// and then processes the NNQUERY_* variables. Missing env files are ignored;
// variables already set take precedence over the files.
func LoadConfig(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, err
	}
	if err := ValidateConfig(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ValidateConfig validates the configuration and returns an error if invalid
func ValidateConfig(cfg *Config) error {
	if cfg.PointsPath == "" && cfg.IndexPath == "" {
		return ErrNoInput
	}
	if _, err := index.ParseKind(cfg.Kind); err != nil {
		return err
	}
	if _, err := distance.ParseMetric(cfg.Metric); err != nil {
		return err
	}
	if _, err := persist.ParseCompression(cfg.IndexCompression); err != nil {
		return err
	}
	switch strings.ToLower(cfg.Mode) {
	case "knn":
		if cfg.K < 1 {
			return ErrInvalidK
		}
	case "range":
		if cfg.Threshold < 0 {
			return ErrInvalidRadius
		}
	default:
		return ErrInvalidMode
	}
	if cfg.Workers < 0 || cfg.ChunkSize < 0 {
		return ErrInvalidWorkers
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return ErrInvalidLogFmt
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return err
	}
	return nil
}

// NewLogger creates the logger selected by LogFormat and LogLevel.
func NewLogger(cfg *Config) *neighbors.Logger {
	level, _ := parseLevel(cfg.LogLevel)
	if cfg.LogFormat == "json" {
		return neighbors.NewJSONLogger(level)
	}
	return neighbors.NewTextLogger(level)
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, ErrInvalidLogLevel
	}
}
