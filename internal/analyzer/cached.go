package analyzer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/docextract/internal/cache"
	"github.com/kiranshivaraju/docextract/pkg/models"
)

// CachedAnalyzer serves repeat uploads of the same document from the cache
// instead of calling the remote service again. Cache failures never fail an
// analysis; they are logged and the wrapped analyzer is used.
type CachedAnalyzer struct {
	next  models.DocumentAnalyzer
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedAnalyzer wraps next with a result cache.
func NewCachedAnalyzer(next models.DocumentAnalyzer, c cache.Cache, ttl time.Duration) *CachedAnalyzer {
	return &CachedAnalyzer{next: next, cache: c, ttl: ttl}
}

// modeler is implemented by analyzers whose output depends on a
// configurable model.
type modeler interface {
	Model() string
}

func (a *CachedAnalyzer) Name() string { return a.next.Name() }

// cacheScope names the analyzer and, when it has one, its model, so results
// from different models never share a cache entry.
func (a *CachedAnalyzer) cacheScope() string {
	if m, ok := a.next.(modeler); ok && m.Model() != "" {
		return a.next.Name() + ":" + m.Model()
	}
	return a.next.Name()
}

func (a *CachedAnalyzer) Analyze(ctx context.Context, document []byte) (*models.AnalysisResult, error) {
	key := cache.AnalysisKey(a.cacheScope(), cache.DocumentDigest(document))

	raw, found, err := a.cache.Get(ctx, key)
	switch {
	case err != nil:
		slog.Warn("analysis cache read failed", "error", err)
	case found:
		var cached models.AnalysisResult
		if err := json.Unmarshal(raw, &cached); err == nil {
			slog.Debug("analysis cache hit", "key", key)
			return &cached, nil
		}
		slog.Warn("evicting undecodable cache entry", "key", key)
		if err := a.cache.Delete(ctx, key); err != nil {
			slog.Warn("analysis cache delete failed", "error", err)
		}
	}

	result, err := a.next.Analyze(ctx, document)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(result); err == nil {
		if err := a.cache.Set(ctx, key, raw, a.ttl); err != nil {
			slog.Warn("analysis cache write failed", "error", err)
		}
	}
	return result, nil
}

var _ models.DocumentAnalyzer = (*CachedAnalyzer)(nil)
