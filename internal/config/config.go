// Package config loads pipeline configuration from a YAML file with
// environment-variable overrides: one root Config struct, nested
// per-concern structs, and a LoadFromEnv entrypoint that layers
// .env/os.Getenv on top of the YAML defaults for secrets.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the shipment pipeline.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Storage    StorageConfig    `yaml:"storage"`
	Bedrock    BedrockConfig    `yaml:"bedrock"`
	Snowflake  SnowflakeConfig  `yaml:"snowflake"`
	Own        OwnDomainConfig  `yaml:"own_domain"`
	Batch      BatchConfig      `yaml:"batch"`
	Cache      CacheConfig      `yaml:"cache"`
	Forwarder  ForwarderConfig  `yaml:"forwarder"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifeMins int    `yaml:"conn_max_life_minutes"`
}

// RedisConfig holds connection settings for the distributed lock and
// config-cache backend. Addr empty means Redis is unavailable and the
// pipeline falls back to Postgres advisory locks and in-process caches.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// StorageConfig holds the S3 bucket used to resolve RawAttachment
// StorageRef pointers into bytes.
type StorageConfig struct {
	Bucket     string `yaml:"bucket"`
	Region     string `yaml:"region"`
	AWSProfile string `yaml:"aws_profile"`
}

// BedrockConfig configures the optional LLM/embedding capability. Enabled
// false means every caller must treat AI fallbacks as unavailable.
type BedrockConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Region         string `yaml:"region"`
	ClassifierModel string `yaml:"classifier_model"`
	EmbeddingModel  string `yaml:"embedding_model"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured Bedrock call timeout.
func (c BedrockConfig) Timeout() time.Duration {
	if c.TimeoutSeconds == 0 {
		return 20 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SnowflakeConfig configures the analytics warehouse used for historical
// averages in the Action/Insight engine's context gatherer.
type SnowflakeConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Account   string `yaml:"account"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	Database  string `yaml:"database"`
	Schema    string `yaml:"schema"`
	Warehouse string `yaml:"warehouse"`
}

// OwnDomainConfig lists the forwarder's own mail domains, used by Flagging
// to decide email Direction.
type OwnDomainConfig struct {
	Domains []string `yaml:"domains"`
}

// BatchConfig controls the batch driver's pacing against the Postgres and
// downstream AI/storage backends it calls per email.
type BatchConfig struct {
	InterEmailDelayMillis int `yaml:"inter_email_delay_millis"`
	WorkerPoolSize        int `yaml:"worker_pool_size"`
	SoftDeadlineSeconds   int `yaml:"soft_deadline_seconds"`
	AttachmentBatchSize   int `yaml:"attachment_batch_size"`
	AttachmentBatchPauseMillis int `yaml:"attachment_batch_pause_millis"`
}

// InterEmailDelay returns the configured per-email pacing delay, floored
// at 200ms so a misconfigured value can't hammer the LLM and storage
// backends back to back.
func (c BatchConfig) InterEmailDelay() time.Duration {
	ms := c.InterEmailDelayMillis
	if ms < 200 {
		ms = 200
	}
	return time.Duration(ms) * time.Millisecond
}

// AttachmentBatch returns the group size attachment flag writes are
// chunked into.
func (c BatchConfig) AttachmentBatch() int {
	if c.AttachmentBatchSize <= 0 {
		return 100
	}
	return c.AttachmentBatchSize
}

// AttachmentBatchPause returns the pause inserted between attachment flag
// groups.
func (c BatchConfig) AttachmentBatchPause() time.Duration {
	if c.AttachmentBatchPauseMillis <= 0 {
		return 50 * time.Millisecond
	}
	return time.Duration(c.AttachmentBatchPauseMillis) * time.Millisecond
}

// SoftDeadline returns the per-email processing deadline; a worker that
// exceeds it logs a warning but is not killed mid-stage.
func (c BatchConfig) SoftDeadline() time.Duration {
	if c.SoftDeadlineSeconds == 0 {
		return 60 * time.Second
	}
	return time.Duration(c.SoftDeadlineSeconds) * time.Second
}

// CacheConfig controls TTL for process-wide read-mostly configuration
// caches (workflow states, action rules, carrier domains, classification
// tables).
type CacheConfig struct {
	TTLMinutes int `yaml:"ttl_minutes"`
}

// TTL returns the configured cache TTL, clamped to a 5-10 minute window:
// long enough to absorb read traffic, short enough that an admin edit to
// the underlying table surfaces without a process restart.
func (c CacheConfig) TTL() time.Duration {
	m := c.TTLMinutes
	if m < 5 {
		m = 5
	}
	if m > 10 {
		m = 10
	}
	return time.Duration(m) * time.Minute
}

// ForwarderConfig names the forwarder's own company, used by party
// extraction and I5 to reject self-referential shipper/consignee values.
type ForwarderConfig struct {
	CompanyName string `yaml:"company_name"`
}

// Load reads and parses a YAML config file, applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 20
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifeMins == 0 {
		cfg.Database.ConnMaxLifeMins = 5
	}
	if cfg.Bedrock.ClassifierModel == "" {
		cfg.Bedrock.ClassifierModel = "anthropic.claude-3-sonnet-20240229-v1:0"
	}
	if cfg.Bedrock.EmbeddingModel == "" {
		cfg.Bedrock.EmbeddingModel = "amazon.titan-embed-text-v2:0"
	}
	if cfg.Bedrock.Region == "" {
		cfg.Bedrock.Region = "us-east-1"
	}
	if cfg.Batch.WorkerPoolSize == 0 {
		cfg.Batch.WorkerPoolSize = 8
	}
	if cfg.Batch.InterEmailDelayMillis == 0 {
		cfg.Batch.InterEmailDelayMillis = 200
	}
	if cfg.Batch.AttachmentBatchSize == 0 {
		cfg.Batch.AttachmentBatchSize = 100
	}
	if cfg.Batch.AttachmentBatchPauseMillis == 0 {
		cfg.Batch.AttachmentBatchPauseMillis = 50
	}
	if cfg.Cache.TTLMinutes == 0 {
		cfg.Cache.TTLMinutes = 10
	}
}

// LoadFromEnv loads .env (if present) then the YAML file at path, then
// overrides secrets from the environment.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Bedrock.Region = v
		if cfg.Storage.Region == "" {
			cfg.Storage.Region = v
		}
	}
	if v := os.Getenv("SNOWFLAKE_PASSWORD"); v != "" {
		cfg.Snowflake.Password = v
	}
	return cfg, nil
}
