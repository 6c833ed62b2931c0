// Package app builds the analysis stack from a Config. The CLI, the server
// and the worker share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/OFFIS-RIT/parversion/internal/config"
	"github.com/OFFIS-RIT/parversion/internal/metrics"
	"github.com/OFFIS-RIT/parversion/internal/storage"
	"github.com/OFFIS-RIT/parversion/pkg/ai"
	oai "github.com/OFFIS-RIT/parversion/pkg/ai/ollama"
	gai "github.com/OFFIS-RIT/parversion/pkg/ai/openai"
	"github.com/OFFIS-RIT/parversion/pkg/analysis"
	"github.com/OFFIS-RIT/parversion/pkg/cache"
	"github.com/OFFIS-RIT/parversion/pkg/document"
	"github.com/OFFIS-RIT/parversion/pkg/loader"
	ioloader "github.com/OFFIS-RIT/parversion/pkg/loader/io"
	s3loader "github.com/OFFIS-RIT/parversion/pkg/loader/s3"
	"github.com/OFFIS-RIT/parversion/pkg/loader/web"
	"github.com/OFFIS-RIT/parversion/pkg/logger"
	"github.com/OFFIS-RIT/parversion/pkg/oracle"
	"github.com/OFFIS-RIT/parversion/pkg/store"
	"github.com/OFFIS-RIT/parversion/pkg/store/file"
	"github.com/OFFIS-RIT/parversion/pkg/store/memory"
	"github.com/OFFIS-RIT/parversion/pkg/store/pgx"
)

// App holds the long-lived clients of one process.
type App struct {
	Config   *config.Config
	Provider store.Provider
	Cache    cache.Cache
	AI       ai.Client
	Analysis *analysis.Client
	Loader   *loader.Router
	Metrics  *metrics.Recorder
	Registry *prometheus.Registry

	// S3 and Results are nil unless a bucket or endpoint is configured.
	S3      *s3.Client
	Results *storage.ResultStore
}

// Options override parts of the stack built from the Config.
type Options struct {
	// Provider replaces the configured store.
	Provider store.Provider
	// Oracle replaces the LLM oracle; AI client and cache are then skipped.
	Oracle analysis.Oracle
	// Registry receives the collectors. A fresh registry is used when nil.
	Registry *prometheus.Registry
}

func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg, Registry: opts.Registry}
	if a.Registry == nil {
		a.Registry = prometheus.NewRegistry()
	}
	a.Metrics = metrics.New(a.Registry)

	var err error
	a.Provider = opts.Provider
	if a.Provider == nil {
		a.Provider, err = NewProvider(ctx, cfg.Store)
		if err != nil {
			return nil, err
		}
	}

	orc := opts.Oracle
	if orc == nil {
		a.Cache, err = NewCache(ctx, cfg.Cache)
		if err != nil {
			a.Close()
			return nil, err
		}

		inner, err := NewAIClient(cfg.AI)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.AI = ai.NewCachingClient(ai.NewCachingClientParams{
			Client: inner,
			Cache:  a.Cache,
			TTL:    cfg.Cache.TTL.Duration,
		})

		orc, err = oracle.NewOracle(oracle.NewOracleParams{
			Client:        a.AI,
			Model:         cfg.AI.Model,
			Temperature:   cfg.AI.Temperature,
			Thinking:      cfg.AI.Thinking,
			MaxRetries:    cfg.AI.MaxRetries,
			RetryDelay:    cfg.AI.RetryDelay.Duration,
			SnippetTokens: cfg.AI.SnippetTokens,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	a.Analysis, err = analysis.NewAnalysisClient(analysis.NewAnalysisClientParams{
		Provider:         a.Provider,
		Oracle:           orc,
		Metrics:          a.Metrics,
		ParallelNodes:    cfg.Analysis.ParallelNodes,
		ParallelNetworks: cfg.Analysis.ParallelNetworks,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	routes := loader.NewRouterParams{
		File: ioloader.NewIOLoader(),
		Web:  web.NewWebLoader(),
	}
	if cfg.S3.Bucket != "" || cfg.S3.Endpoint != "" {
		a.S3, err = storage.NewS3Client(ctx, cfg.S3)
		if err != nil {
			a.Close()
			return nil, err
		}
		routes.S3 = s3loader.NewS3LoaderWithClient(cfg.S3.Bucket, a.S3)
		a.Results = storage.NewResultStore(a.S3, cfg.S3.Bucket, cfg.S3.PublicEndpoint)
	}
	a.Loader = loader.NewRouter(routes)

	return a, nil
}

// NewProvider opens the configured store. File and postgres stores are
// fronted by an in-memory read-through cache.
func NewProvider(ctx context.Context, cfg config.StoreConfig) (store.Provider, error) {
	switch cfg.Backend {
	case "", "memory":
		return memory.NewProvider(), nil
	case "file":
		logger.Debug("[Store] Using file store", "path", cfg.Path)
		return memory.NewCachedProvider(file.NewProvider(cfg.Path)), nil
	case "postgres":
		if cfg.Migrate {
			if err := pgx.Migrate(cfg.DatabaseURL); err != nil {
				return nil, err
			}
		}
		p, err := pgx.NewProvider(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return memory.NewCachedProvider(p), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// NewCache opens the oracle response cache.
func NewCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Backend {
	case "", "none":
		return cache.NewNullCache(), nil
	case "badger":
		return cache.NewBadgerCache(cache.BadgerConfig{Path: cfg.Path})
	case "redis":
		return cache.NewRedisCache(ctx, cache.RedisOptions{
			URL:    cfg.RedisURL,
			Prefix: cfg.Prefix,
		})
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

func NewAIClient(cfg config.AIConfig) (ai.Client, error) {
	switch cfg.Adapter {
	case "ollama":
		client, err := oai.NewOllamaClient(oai.NewOllamaClientParams{
			Model:                 cfg.Model,
			Temperature:           cfg.Temperature,
			BaseURL:               cfg.ChatURL,
			ApiKey:                cfg.ChatKey,
			MaxConcurrentRequests: int64(cfg.MaxConcurrent),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		return client, nil
	case "", "openai":
		if cfg.ChatKey == "" {
			logger.Warn("[AI] No API key set, oracle requests will fail", "adapter", "openai")
		}
		return gai.NewOpenAIClient(gai.NewOpenAIClientParams{
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			ChatURL:     cfg.ChatURL,
			ChatKey:     cfg.ChatKey,
		}), nil
	default:
		return nil, fmt.Errorf("unknown ai adapter %q", cfg.Adapter)
	}
}

// Load reads the raw text at location through the loader router.
func (a *App) Load(ctx context.Context, location string) (string, error) {
	b, err := a.Loader.GetDocumentText(ctx, loader.Source{ID: location, Location: location})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// AnalyzeText parses text and runs one analysis over it.
func (a *App) AnalyzeText(ctx context.Context, text string, format document.Format, sourceURL string) (*analysis.Result, error) {
	doc, err := document.Parse(text, format, sourceURL)
	if err != nil {
		return nil, err
	}
	return a.Analysis.Analyze(ctx, doc)
}

// FlushModelMetrics moves the model usage accumulated since the last flush
// into the Prometheus collectors and returns it. Usage recorded by a
// concurrent run between snapshot and reset is dropped.
func (a *App) FlushModelMetrics() ai.ModelMetrics {
	if a.AI == nil {
		return ai.ModelMetrics{}
	}
	m := a.AI.GetMetrics()
	a.AI.ResetMetrics()
	a.Metrics.ObserveModel(m)
	return m
}

// LogModelMetrics flushes the model metrics and logs them.
func (a *App) LogModelMetrics() {
	m := a.FlushModelMetrics()
	if m.Requests == 0 && m.CacheHits == 0 {
		return
	}
	d := time.Duration(m.DurationMs) * time.Millisecond
	logger.Info(
		"AI Metrics",
		"requests", m.Requests,
		"cache_hits", m.CacheHits,
		"input_tokens", m.InputTokens,
		"output_tokens", m.OutputTokens,
		"total_tokens", m.TotalTokens,
		"duration", FormatDuration(d),
	)
}

// FormatDuration renders d as hh:mm:ss.
func FormatDuration(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
}

func (a *App) Close() error {
	var errs []error
	if a.Provider != nil {
		errs = append(errs, a.Provider.Close())
	}
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	return errors.Join(errs...)
}
