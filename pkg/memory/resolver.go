package memory

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// ProjectResolver maps a store or retrieve request without an explicit
// project onto a default project name.
type ProjectResolver interface {
	Resolve(ctx context.Context) string
}

// StaticResolver always answers with a fixed project name.
type StaticResolver struct {
	Project string
}

func (r StaticResolver) Resolve(ctx context.Context) string {
	return r.Project
}

// DetectFunc produces the current default project, typically by inspecting
// the deployment environment. It may be slow; CachedResolver amortizes it.
type DetectFunc func(ctx context.Context) (string, error)

/*
CachedResolver wraps a detection function with a TTL cache so per-request
resolution stays cheap. Detection failures fall back to the last known
value, or to the configured default when nothing was ever detected.
*/
type CachedResolver struct {
	detect DetectFunc
	ttl    time.Duration
	deflt  string

	mu      sync.Mutex
	value   string
	expires time.Time
}

// NewCachedResolver builds a resolver around detect with the given cache
// lifetime and fallback default.
func NewCachedResolver(detect DetectFunc, ttl time.Duration, deflt string) *CachedResolver {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedResolver{detect: detect, ttl: ttl, deflt: deflt}
}

func (r *CachedResolver) Resolve(ctx context.Context) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.value != "" && time.Now().Before(r.expires) {
		return r.value
	}

	value, err := r.detect(ctx)
	if err != nil || value == "" {
		if err != nil {
			log.Warn("project detection failed", "error", err)
		}
		if r.value != "" {
			return r.value
		}
		return r.deflt
	}

	r.value = value
	r.expires = time.Now().Add(r.ttl)
	return value
}

// Refresh drops the cached value so the next Resolve re-detects.
func (r *CachedResolver) Refresh() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value = ""
	r.expires = time.Time{}
}
