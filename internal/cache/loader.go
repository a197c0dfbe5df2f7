package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/metrics"
)

// loadTimeout bounds a collapsed load once it is detached from its callers.
const loadTimeout = 30 * time.Second

// Loader serves JSON-serializable values from a Cache, loading misses once
// per key even when many requests miss concurrently.
type Loader struct {
	backend Cache
	ttl     time.Duration
	prefix  string
	group   singleflight.Group
}

// NewLoader creates a Loader. A non-positive ttl disables caching but keeps
// concurrent loads collapsed.
func NewLoader(backend Cache, prefix string, ttl time.Duration) *Loader {
	return &Loader{backend: backend, ttl: ttl, prefix: prefix}
}

// Invalidate drops the cached entries for keys in namespace.
func (l *Loader) Invalidate(ctx context.Context, namespace string, keys ...string) {
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, l.key(namespace, k))
	}
	if err := l.backend.Del(ctx, full...); err != nil {
		slog.Warn("cache invalidation failed", "namespace", namespace, "error", err)
	}
}

func (l *Loader) key(namespace, key string) string {
	return l.prefix + ":" + namespace + ":" + key
}

// Fetch returns the cached value for key, or calls load and caches its result.
// Backend failures degrade to calling load; load errors are never cached.
// A caller whose ctx ends stops waiting without failing the others.
func Fetch[T any](ctx context.Context, l *Loader, namespace, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T
	full := l.key(namespace, key)

	if l.ttl > 0 {
		raw, err := l.backend.Get(ctx, full)
		switch {
		case err == nil:
			var v T
			if jsonErr := json.Unmarshal(raw, &v); jsonErr == nil {
				metrics.CacheLookup(namespace, true)
				return v, nil
			}
			slog.Warn("discarding undecodable cache entry", "key", full)
		case !errors.Is(err, ErrMiss):
			slog.Warn("cache read failed", "key", full, "error", err)
		}
		metrics.CacheLookup(namespace, false)
	}

	ch := l.group.DoChan(full, func() (any, error) {
		// Shared by every collapsed caller, so no single caller may cancel it.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		v, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		if l.ttl > 0 {
			if raw, jsonErr := json.Marshal(v); jsonErr == nil {
				if setErr := l.backend.Set(loadCtx, full, raw, l.ttl); setErr != nil {
					slog.Warn("cache write failed", "key", full, "error", setErr)
				}
			}
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
