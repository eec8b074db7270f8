package main

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"colstats_worker/colstats"
)

type Config struct {
	Postgres    PostgresConfig `envconfig:"POSTGRES"`
	DatabaseURL string         `envconfig:"DATABASE_URL"`
	Redis       RedisConfig    `envconfig:"REDIS"`
	Worker      WorkerConfig   `envconfig:"WORKER"`
	Stats       StatsConfig    `envconfig:"STATS"`
	Logging     LogConfig      `envconfig:"LOG"`
	MetricsAddr string         `envconfig:"METRICS_ADDR"`
}

// Nested fields carry no envconfig tag: a tagged field would fall back to
// the bare tag name (PORT, HOST, ...) when the prefixed key is unset.
type PostgresConfig struct {
	Host     string `split_words:"true" default:"localhost"`
	Port     string `split_words:"true" default:"5432"`
	User     string `split_words:"true"`
	Password string `split_words:"true"`
	DB       string `split_words:"true"`
}

type RedisConfig struct {
	URL string `split_words:"true" default:"redis://localhost:6379/0"`
}

type WorkerConfig struct {
	Queue      string   `split_words:"true" default:"default"`
	JobClasses []string `split_words:"true" default:"ColumnStatsWorker,GoWorker"`
}

type StatsConfig struct {
	Parallelism int    `split_words:"true" default:"1"`
	NonFinite   string `split_words:"true" default:"reject"`
}

type LogConfig struct {
	Level string `split_words:"true" default:"info"`
	Dev   bool   `split_words:"true" default:"false"`
}

// loadConfig reads .env files for local development, then the environment.
func loadConfig() (*Config, error) {
	// Prefer the Rails app .env if present.
	_ = godotenv.Load("../benchmark_ui/.env")
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) DSN() (string, error) {
	p := c.Postgres
	if p.DB == "" {
		if c.DatabaseURL != "" {
			return c.DatabaseURL, nil
		}
		return "", errors.New("POSTGRES_DB not set; set env vars or DATABASE_URL")
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		p.Host, p.Port, p.User, p.Password, p.DB), nil
}

func (c *Config) StatsOptions() ([]colstats.Option, error) {
	policy, err := colstats.ParseNonFinitePolicy(c.Stats.NonFinite)
	if err != nil {
		return nil, err
	}
	return []colstats.Option{
		colstats.WithNonFinite(policy),
		colstats.WithParallelism(c.Stats.Parallelism),
	}, nil
}
