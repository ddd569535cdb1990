package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/riftluck/stats-api/internal/logic"
	"github.com/riftluck/stats-api/internal/models"
)

type Config struct {
	// Server
	Port int
	Env  string

	// CORS
	AllowedOrigins []string

	// Store URLs. Empty disables the store.
	PostgresURL   string
	ClickHouseURL string
	RedisURL      string

	PostgresMaxConns int
	PostgresMinConns int
	RunCacheTTL      time.Duration

	// Export worker pool
	WorkerCount   int
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration

	// Pipeline
	PipelineConfigPath string
	Weights            models.ImpactWeights
	Folds              int
	Seed               uint64
	MinPerClass        int
	Features           []models.Feature
	Thresholds         models.Thresholds
	PipelineWorkers    int

	// Reporting
	FocusPlayer string
	ReportTopN  int
}

// PipelineFile is the optional YAML overlay named by PIPELINE_CONFIG.
type PipelineFile struct {
	Weights     models.ImpactWeights `yaml:"weights"`
	Folds       int                  `yaml:"folds"`
	Seed        *uint64              `yaml:"seed"`
	MinPerClass int                  `yaml:"min_per_class"`
	Features    []string             `yaml:"features"`
	Thresholds  *models.Thresholds   `yaml:"thresholds"`
	Workers     int                  `yaml:"workers"`
	FocusPlayer string               `yaml:"focus_player"`
}

// Load reads an optional .env, then the YAML overlay, then the environment.
// Later sources win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	est := logic.DefaultEstimatorConfig()
	cfg := &Config{
		Port: getEnvInt("PORT", 8080),
		Env:  getEnv("ENV", "development"),

		PostgresURL:   getEnv("POSTGRES_URL", ""),
		ClickHouseURL: getEnv("CLICKHOUSE_URL", ""),
		RedisURL:      getEnv("REDIS_URL", ""),

		PostgresMaxConns: getEnvInt("POSTGRES_MAX_CONNS", 10),
		PostgresMinConns: getEnvInt("POSTGRES_MIN_CONNS", 2),
		RunCacheTTL:      getEnvDuration("RUN_CACHE_TTL", 24*time.Hour),

		WorkerCount:   getEnvInt("WORKER_COUNT", 2),
		QueueSize:     getEnvInt("QUEUE_SIZE", 10000),
		BatchSize:     getEnvInt("BATCH_SIZE", 500),
		FlushInterval: getEnvDuration("FLUSH_INTERVAL", 1*time.Second),

		PipelineConfigPath: getEnv("PIPELINE_CONFIG", ""),
		Weights:            models.DefaultImpactWeights(),
		Folds:              est.Folds,
		Seed:               est.Seed,
		MinPerClass:        est.MinPerClass,
		Features:           est.Features,
		Thresholds:         models.DefaultThresholds(),
		PipelineWorkers:    4,

		ReportTopN: getEnvInt("REPORT_TOP_N", 10),
	}

	// CORS
	origins := getEnv("ALLOWED_ORIGINS", "http://localhost:3000")
	for _, o := range strings.Split(origins, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	if cfg.PipelineConfigPath != "" {
		file, err := LoadPipelineFile(cfg.PipelineConfigPath)
		if err != nil {
			return nil, err
		}
		if err := cfg.apply(file); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadPipelineFile(path string) (*PipelineFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline config: %w", err)
	}
	var file PipelineFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse pipeline config: %w", err)
	}
	return &file, nil
}

func (c *Config) apply(f *PipelineFile) error {
	if len(f.Weights) > 0 {
		if err := f.Weights.Validate(); err != nil {
			return fmt.Errorf("pipeline config: %w", err)
		}
		c.Weights = f.Weights
	}
	if f.Folds > 0 {
		c.Folds = f.Folds
	}
	if f.Seed != nil {
		c.Seed = *f.Seed
	}
	if f.MinPerClass > 0 {
		c.MinPerClass = f.MinPerClass
	}
	if len(f.Features) > 0 {
		feats, err := models.ParseFeatures(strings.Join(f.Features, ","))
		if err != nil {
			return fmt.Errorf("pipeline config: %w", err)
		}
		c.Features = feats
	}
	if f.Thresholds != nil {
		c.Thresholds = *f.Thresholds
	}
	if f.Workers > 0 {
		c.PipelineWorkers = f.Workers
	}
	if f.FocusPlayer != "" {
		c.FocusPlayer = f.FocusPlayer
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("IMPACT_WEIGHTS"); v != "" {
		w, err := models.ParseImpactWeights(v)
		if err != nil {
			return err
		}
		c.Weights = w
	}
	if v := os.Getenv("WP_FEATURES"); v != "" {
		feats, err := models.ParseFeatures(v)
		if err != nil {
			return fmt.Errorf("WP_FEATURES: %w", err)
		}
		c.Features = feats
	}

	c.Folds = getEnvInt("CV_FOLDS", c.Folds)
	c.Seed = getEnvUint("CV_SEED", c.Seed)
	c.MinPerClass = getEnvInt("CV_MIN_PER_CLASS", c.MinPerClass)
	c.PipelineWorkers = getEnvInt("PIPELINE_WORKERS", c.PipelineWorkers)
	c.FocusPlayer = getEnv("FOCUS_PLAYER", c.FocusPlayer)

	c.Thresholds.HighP = getEnvFloat("THRESHOLD_HIGH_P", c.Thresholds.HighP)
	c.Thresholds.LowP = getEnvFloat("THRESHOLD_LOW_P", c.Thresholds.LowP)
	c.Thresholds.HighImpact = getEnvFloat("THRESHOLD_HIGH_IMPACT", c.Thresholds.HighImpact)
	c.Thresholds.LowImpact = getEnvFloat("THRESHOLD_LOW_IMPACT", c.Thresholds.LowImpact)
	return nil
}

// Options converts the pipeline settings for logic.NewScoringService, which
// performs the validation.
func (c *Config) Options() logic.Options {
	opts := logic.DefaultOptions()
	opts.Weights = c.Weights
	opts.Thresholds = c.Thresholds
	opts.Workers = c.PipelineWorkers
	opts.Estimator.Folds = c.Folds
	opts.Estimator.Seed = c.Seed
	opts.Estimator.MinPerClass = c.MinPerClass
	opts.Estimator.Features = c.Features
	return opts
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvUint(key string, fallback uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if u, err := strconv.ParseUint(value, 10, 64); err == nil {
			return u
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
