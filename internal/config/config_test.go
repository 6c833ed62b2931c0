package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parversion.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Analysis.ParallelNodes != 8 || cfg.Analysis.ParallelNetworks != 8 {
		t.Fatalf("parallelism got = %+v", cfg.Analysis)
	}
	if cfg.Store.Backend != "memory" || cfg.Cache.Backend != "none" {
		t.Fatalf("backends got = %s/%s", cfg.Store.Backend, cfg.Cache.Backend)
	}
	if cfg.AI.Adapter != "openai" || cfg.AI.Model != "gpt-4o" || cfg.AI.Temperature != 0 {
		t.Fatalf("ai got = %+v", cfg.AI)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("port got = %d, want 8080", cfg.Server.Port)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
[analysis]
parallel_nodes = 2

[store]
backend = "file"
path = "basis.yaml"

[cache]
backend = "badger"
ttl = "1h"

[ai]
model = "gpt-4o-mini"
retry_delay = "250ms"
thinking = "low"
`)
	t.Setenv("PARALLEL_NODES", "3")
	t.Setenv("AI_ADAPTER", "ollama")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Analysis.ParallelNodes != 3 {
		t.Fatalf("ParallelNodes got = %d, want 3", cfg.Analysis.ParallelNodes)
	}
	if cfg.Analysis.ParallelNetworks != 8 {
		t.Fatalf("ParallelNetworks got = %d, want 8", cfg.Analysis.ParallelNetworks)
	}
	if cfg.Store.Backend != "file" || cfg.Store.Path != "basis.yaml" {
		t.Fatalf("store got = %+v", cfg.Store)
	}
	if cfg.Cache.TTL.Duration != time.Hour {
		t.Fatalf("cache ttl got = %v, want 1h", cfg.Cache.TTL)
	}
	if cfg.AI.Adapter != "ollama" || cfg.AI.Model != "gpt-4o-mini" || cfg.AI.RetryDelay.Duration != 250*time.Millisecond || cfg.AI.Thinking != "low" {
		t.Fatalf("ai got = %+v", cfg.AI)
	}
}

func TestLoad_ChatKeyFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-openai")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AI.ChatKey != "sk-openai" {
		t.Fatalf("ChatKey got = %q, want sk-openai", cfg.AI.ChatKey)
	}

	t.Setenv("AI_CHAT_KEY", "sk-chat")
	cfg, _ = Load("")
	if cfg.AI.ChatKey != "sk-chat" {
		t.Fatalf("ChatKey got = %q, want sk-chat", cfg.AI.ChatKey)
	}
}

func TestLoad_RabbitMQParts(t *testing.T) {
	t.Setenv("RABBITMQ_USER", "guest")
	t.Setenv("RABBITMQ_PASSWORD", "secret")
	t.Setenv("RABBITMQ_HOST", "mq")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Queue.URL != "amqp://guest:secret@mq:5672/" {
		t.Fatalf("Queue.URL got = %q", cfg.Queue.URL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown store", func(c *Config) { c.Store.Backend = "sqlite" }},
		{"file without path", func(c *Config) { c.Store.Backend = "file" }},
		{"postgres without url", func(c *Config) { c.Store.Backend = "postgres" }},
		{"unknown cache", func(c *Config) { c.Cache.Backend = "memcached" }},
		{"unknown adapter", func(c *Config) { c.AI.Adapter = "claude" }},
		{"zero parallelism", func(c *Config) { c.Analysis.ParallelNodes = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("Validate() expected error")
			}
		})
	}

	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestLoad_BadFile(t *testing.T) {
	path := writeConfig(t, "analysis = [")
	if _, err := Load(path); err == nil {
		t.Fatal("Load() expected error")
	}
}
