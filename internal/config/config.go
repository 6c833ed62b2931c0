// Package config assembles the process configuration from an optional TOML
// file and the environment. Environment variables win over file values.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/OFFIS-RIT/parversion/internal/util"
)

type Config struct {
	Debug bool `toml:"debug"`

	Analysis AnalysisConfig `toml:"analysis"`
	Store    StoreConfig    `toml:"store"`
	Cache    CacheConfig    `toml:"cache"`
	AI       AIConfig       `toml:"ai"`
	Server   ServerConfig   `toml:"server"`
	Queue    QueueConfig    `toml:"queue"`
	S3       S3Config       `toml:"s3"`
}

type AnalysisConfig struct {
	ParallelNodes    int `toml:"parallel_nodes"`
	ParallelNetworks int `toml:"parallel_networks"`
}

// StoreConfig selects the Provider. Backend is one of memory, file or
// postgres; the file backend picks YAML or JSON by the extension of Path.
type StoreConfig struct {
	Backend     string `toml:"backend"`
	Path        string `toml:"path"`
	DatabaseURL string `toml:"database_url"`
	Migrate     bool   `toml:"migrate"`
}

// CacheConfig selects the oracle response cache: none, badger or redis.
type CacheConfig struct {
	Backend  string   `toml:"backend"`
	Path     string   `toml:"path"`
	RedisURL string   `toml:"redis_url"`
	Prefix   string   `toml:"prefix"`
	TTL      Duration `toml:"ttl"`
}

type AIConfig struct {
	Adapter       string   `toml:"adapter"`
	Model         string   `toml:"model"`
	Temperature   float64  `toml:"temperature"`
	Thinking      string   `toml:"thinking"`
	ChatURL       string   `toml:"chat_url"`
	ChatKey       string   `toml:"chat_key"`
	MaxRetries    int      `toml:"max_retries"`
	RetryDelay    Duration `toml:"retry_delay"`
	SnippetTokens int      `toml:"snippet_tokens"`
	MaxConcurrent int      `toml:"max_concurrent"`
}

type ServerConfig struct {
	Port        int      `toml:"port"`
	AuthURL     string   `toml:"auth_url"`
	CORSOrigins []string `toml:"cors_origins"`
	BodyLimit   string   `toml:"body_limit"`
}

type QueueConfig struct {
	URL          string   `toml:"url"`
	AnalyzeQueue string   `toml:"analyze_queue"`
	ResultsQueue string   `toml:"results_queue"`
	MaxRetries   int      `toml:"max_retries"`
	RetryTTL     Duration `toml:"retry_ttl"`
}

// S3Config configures the bucket used for s3:// inputs and job results.
// PublicEndpoint, when set, is the host baked into presigned download links.
type S3Config struct {
	Bucket         string `toml:"bucket"`
	Endpoint       string `toml:"endpoint"`
	PublicEndpoint string `toml:"public_endpoint"`
	Region         string `toml:"region"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
}

// Duration decodes TOML strings like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when neither file nor environment
// set a value.
func Default() Config {
	return Config{
		Analysis: AnalysisConfig{
			ParallelNodes:    8,
			ParallelNetworks: 8,
		},
		Store: StoreConfig{
			Backend: "memory",
			Migrate: true,
		},
		Cache: CacheConfig{
			Backend: "none",
			Path:    ".parversion/cache",
			Prefix:  "parversion",
			TTL:     Duration{7 * 24 * time.Hour},
		},
		AI: AIConfig{
			Adapter:       "openai",
			Model:         "gpt-4o",
			MaxRetries:    3,
			RetryDelay:    Duration{time.Second},
			SnippetTokens: 2048,
			MaxConcurrent: 4,
		},
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"*"},
			BodyLimit:   "10M",
		},
		Queue: QueueConfig{
			AnalyzeQueue: "analyze_queue",
			ResultsQueue: "results_queue",
			MaxRetries:   10,
			RetryTTL:     Duration{10 * time.Second},
		},
		S3: S3Config{
			Region: "us-east-1",
		},
	}
}

// Load reads path (when not empty) over the defaults and applies the
// environment on top.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.Debug = util.GetEnvBool("DEBUG", c.Debug)

	c.Analysis.ParallelNodes = util.GetEnvInt("PARALLEL_NODES", c.Analysis.ParallelNodes)
	c.Analysis.ParallelNetworks = util.GetEnvInt("PARALLEL_NETWORKS", c.Analysis.ParallelNetworks)

	c.Store.Backend = util.GetEnvString("STORE_BACKEND", c.Store.Backend)
	c.Store.Path = util.GetEnvString("STORE_PATH", c.Store.Path)
	c.Store.DatabaseURL = util.GetEnvString("DATABASE_URL", c.Store.DatabaseURL)
	c.Store.Migrate = util.GetEnvBool("STORE_MIGRATE", c.Store.Migrate)

	c.Cache.Backend = util.GetEnvString("CACHE_BACKEND", c.Cache.Backend)
	c.Cache.Path = util.GetEnvString("CACHE_PATH", c.Cache.Path)
	c.Cache.RedisURL = util.GetEnvString("REDIS_URL", c.Cache.RedisURL)
	c.Cache.Prefix = util.GetEnvString("CACHE_PREFIX", c.Cache.Prefix)
	c.Cache.TTL.Duration = util.GetEnvDuration("CACHE_TTL", c.Cache.TTL.Duration)

	c.AI.Adapter = util.GetEnvString("AI_ADAPTER", c.AI.Adapter)
	c.AI.Model = util.GetEnvString("AI_CHAT_MODEL", c.AI.Model)
	c.AI.Temperature = util.GetEnvNumeric("AI_TEMPERATURE", c.AI.Temperature)
	c.AI.Thinking = util.GetEnvString("AI_THINKING", c.AI.Thinking)
	c.AI.ChatURL = util.GetEnvString("AI_CHAT_URL", c.AI.ChatURL)
	c.AI.ChatKey = util.GetEnvString("AI_CHAT_KEY", util.GetEnvString("OPENAI_API_KEY", c.AI.ChatKey))
	c.AI.MaxRetries = util.GetEnvInt("AI_MAX_RETRIES", c.AI.MaxRetries)
	c.AI.RetryDelay.Duration = util.GetEnvDuration("AI_RETRY_DELAY", c.AI.RetryDelay.Duration)
	c.AI.SnippetTokens = util.GetEnvInt("AI_SNIPPET_TOKENS", c.AI.SnippetTokens)
	c.AI.MaxConcurrent = util.GetEnvInt("AI_MAX_CONCURRENT", c.AI.MaxConcurrent)

	c.Server.Port = util.GetEnvInt("PORT", c.Server.Port)
	c.Server.AuthURL = util.GetEnvString("AUTH_URL", c.Server.AuthURL)
	c.Server.BodyLimit = util.GetEnvString("BODY_LIMIT", c.Server.BodyLimit)

	c.Queue.URL = util.GetEnvString("RABBITMQ_URL", c.Queue.URL)
	if c.Queue.URL == "" && util.GetEnv("RABBITMQ_HOST") != "" {
		c.Queue.URL = fmt.Sprintf("amqp://%s:%s@%s:%s/",
			util.GetEnv("RABBITMQ_USER"),
			util.GetEnv("RABBITMQ_PASSWORD"),
			util.GetEnv("RABBITMQ_HOST"),
			util.GetEnvString("RABBITMQ_PORT", "5672"),
		)
	}
	c.Queue.MaxRetries = util.GetEnvInt("QUEUE_MAX_RETRIES", c.Queue.MaxRetries)

	c.S3.Bucket = util.GetEnvString("AWS_BUCKET", c.S3.Bucket)
	c.S3.Endpoint = util.GetEnvString("AWS_ENDPOINT", c.S3.Endpoint)
	c.S3.PublicEndpoint = util.GetEnvString("AWS_PUBLIC_ENDPOINT", c.S3.PublicEndpoint)
	c.S3.Region = util.GetEnvString("AWS_REGION", c.S3.Region)
	c.S3.AccessKey = util.GetEnvString("AWS_ACCESS_KEY", c.S3.AccessKey)
	c.S3.SecretKey = util.GetEnvString("AWS_SECRET_KEY", c.S3.SecretKey)
}

// Validate rejects unknown backends and missing settings the selected
// backends require.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "memory":
	case "file":
		if c.Store.Path == "" {
			return fmt.Errorf("store backend file requires a path")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("store backend postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	switch c.Cache.Backend {
	case "none", "badger", "redis":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}

	switch c.AI.Adapter {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unknown ai adapter %q", c.AI.Adapter)
	}

	if c.Analysis.ParallelNodes <= 0 || c.Analysis.ParallelNetworks <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	return nil
}

// Exists reports whether path names a readable config file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
