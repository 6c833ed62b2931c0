// Package loader fetches the raw text of documents from local files, S3
// objects and web URLs.
package loader

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/OFFIS-RIT/parversion/pkg/common"
)

type SourceKind string

const (
	SourceFile SourceKind = "file"
	SourceS3   SourceKind = "s3"
	SourceWeb  SourceKind = "web"
)

// Source names one document. Location is a file path, an s3://bucket/key
// location or an http(s) URL.
type Source struct {
	ID       string
	Location string
}

// Kind classifies the location of s.
func (s Source) Kind() SourceKind {
	lower := strings.ToLower(s.Location)
	switch {
	case strings.HasPrefix(lower, "s3://"):
		return SourceS3
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return SourceWeb
	default:
		return SourceFile
	}
}

// DocumentLoader loads the raw bytes of a Source.
// Implementations may load files from disk, cloud storage, or other sources.
type DocumentLoader interface {
	GetDocumentText(ctx context.Context, src Source) ([]byte, error)
}

// CacheKey returns the key under which loaders memoize src.
func CacheKey(src Source) string {
	return src.ID + ":" + src.Location
}

// Memo caches loaded documents and collapses concurrent loads of one key.
// The zero value is ready to use.
type Memo struct {
	cache   map[string][]byte
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// Do returns the cached bytes for key or calls fn once to load them. Errors
// are not cached.
func (m *Memo) Do(key string, fn func() ([]byte, error)) ([]byte, error) {
	if cached, ok := m.get(key); ok {
		return cached, nil
	}

	result, err, _ := m.group.Do(key, func() (any, error) {
		if cached, ok := m.get(key); ok {
			return cached, nil
		}

		result, err := fn()
		if err != nil {
			return nil, err
		}

		m.cacheMu.Lock()
		if m.cache == nil {
			m.cache = make(map[string][]byte)
		}
		m.cache[key] = result
		m.cacheMu.Unlock()

		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (m *Memo) get(key string) ([]byte, bool) {
	m.cacheMu.RLock()
	defer m.cacheMu.RUnlock()
	b, ok := m.cache[key]
	return b, ok
}

// Router dispatches a Source to the loader registered for its kind.
type Router struct {
	loaders map[SourceKind]DocumentLoader
}

// NewRouterParams lists the loader per source kind. Nil loaders leave the
// kind unsupported.
type NewRouterParams struct {
	File DocumentLoader
	S3   DocumentLoader
	Web  DocumentLoader
}

func NewRouter(params NewRouterParams) *Router {
	r := &Router{loaders: make(map[SourceKind]DocumentLoader, 3)}
	if params.File != nil {
		r.loaders[SourceFile] = params.File
	}
	if params.S3 != nil {
		r.loaders[SourceS3] = params.S3
	}
	if params.Web != nil {
		r.loaders[SourceWeb] = params.Web
	}
	return r
}

// GetDocumentText loads src with the loader for its kind. Load failures are
// wrapped with common.ErrInputIO.
func (r *Router) GetDocumentText(ctx context.Context, src Source) ([]byte, error) {
	l, ok := r.loaders[src.Kind()]
	if !ok {
		return nil, fmt.Errorf("%w: no loader for %s source %q", common.ErrInputIO, src.Kind(), src.Location)
	}
	b, err := l.GetDocumentText(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load %s: %w", common.ErrInputIO, src.Location, err)
	}
	return b, nil
}
