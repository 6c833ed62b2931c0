package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/parversion/pkg/cache"
	"github.com/OFFIS-RIT/parversion/pkg/logger"
)

// ErrRejectedResponse marks a response refused by a WithValidator check.
var ErrRejectedResponse = errors.New("response rejected")

// CachingClient answers structured requests from a cache keyed by the
// prompts, the model and the response schema. Misses are forwarded to the
// wrapped Client and the decoded response is stored once it passes the
// request's validator.
type CachingClient struct {
	MetricsRecorder

	client Client
	cache  cache.Cache
	ttl    time.Duration
}

type NewCachingClientParams struct {
	Client Client
	Cache  cache.Cache
	// TTL of zero keeps entries forever.
	TTL time.Duration
}

func NewCachingClient(params NewCachingClientParams) *CachingClient {
	c := params.Cache
	if c == nil {
		c = cache.NewNullCache()
	}
	return &CachingClient{client: params.Client, cache: c, ttl: params.TTL}
}

// RequestKey derives the cache key for one structured request.
func RequestKey(name, prompt string, schema any, opts GenerateOptions) (string, error) {
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return "", fmt.Errorf("failed to encode schema: %w", err)
	}
	parts := append([]string{opts.Model, opts.Thinking, name}, opts.SystemPrompts...)
	parts = append(parts, prompt, string(schemaJSON))
	return cache.Key("completion", parts...), nil
}

func (c *CachingClient) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...GenerateOption,
) error {
	options := ApplyOptions(GenerateOptions{}, opts...)
	key, err := RequestKey(name, prompt, GenerateSchema(out), options)
	if err != nil {
		return err
	}

	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		logger.Warn("[AI] Cache read failed", "err", err)
	}
	if ok {
		if c.accept(string(data), out, options) {
			logger.Debug("[AI] Cache hit", "name", name)
			c.AddMetrics(ModelMetrics{CacheHits: 1})
			return nil
		}
		logger.Warn("[AI] Dropping unusable cache entry", "name", name)
		if err := c.cache.Delete(ctx, key); err != nil {
			logger.Warn("[AI] Cache delete failed", "err", err)
		}
	}

	if err := c.client.GenerateCompletionWithFormat(ctx, name, description, prompt, out, opts...); err != nil {
		return err
	}
	c.AddMetrics(ModelMetrics{Requests: 1})

	if options.Validate != nil {
		if err := options.Validate(out); err != nil {
			return fmt.Errorf("%w: %w", ErrRejectedResponse, err)
		}
	}

	encoded, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	if err := c.cache.Set(ctx, key, encoded, c.ttl); err != nil {
		logger.Warn("[AI] Cache write failed", "err", err)
	}
	return nil
}

// accept decodes a cached entry into out. Entries are written with
// json.Marshal, so anything that needs unwrapping or repair is corrupt.
func (c *CachingClient) accept(data string, out any, options GenerateOptions) bool {
	path, err := DecodeResponse(data, out)
	if err != nil || path != DecodedDirect {
		return false
	}
	return options.Validate == nil || options.Validate(out) == nil
}

// GetMetrics merges the cache counters with the wrapped client's usage.
func (c *CachingClient) GetMetrics() ModelMetrics {
	own := c.MetricsRecorder.GetMetrics()
	inner := c.client.GetMetrics()
	inner.CacheHits += own.CacheHits
	if inner.Requests == 0 {
		inner.Requests = own.Requests
	}
	return inner
}

func (c *CachingClient) ResetMetrics() {
	c.MetricsRecorder.ResetMetrics()
	c.client.ResetMetrics()
}

var _ Client = (*CachingClient)(nil)
