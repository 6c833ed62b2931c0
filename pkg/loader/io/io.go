package io

import (
	"context"
	"os"

	"github.com/OFFIS-RIT/parversion/pkg/loader"
)

// IOLoader loads documents directly from the local filesystem with caching.
type IOLoader struct {
	memo loader.Memo
}

// NewIOLoader creates a new filesystem-based document loader.
func NewIOLoader() *IOLoader {
	return &IOLoader{}
}

// GetDocumentText reads the file at src.Location. Results are cached.
func (l *IOLoader) GetDocumentText(_ context.Context, src loader.Source) ([]byte, error) {
	return l.memo.Do(loader.CacheKey(src), func() ([]byte, error) {
		return os.ReadFile(src.Location)
	})
}
