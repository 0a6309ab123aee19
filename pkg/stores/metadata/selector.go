package metadata

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/blueshiftlabs-ai/bedrock-agent-system-sub000/pkg/errors"
)

// DefaultRecheckInterval gates how often primary health is re-evaluated,
// so a flapping backend cannot cause a health check per request.
const DefaultRecheckInterval = 30 * time.Second

/*
Selector fails over between a primary and a fallback metadata backend. It
starts on whichever is healthy, retries a failed operation exactly once on
the fallback, and promotes the primary back once its health check passes
again. Selector itself implements Store, so callers never know which
backend served them.
*/
type Selector struct {
	primary  Store
	fallback Store
	recheck  time.Duration

	mu         sync.Mutex
	onFallback bool
	lastCheck  time.Time
}

// NewSelector probes the primary once and picks the starting backend.
func NewSelector(ctx context.Context, primary, fallback Store, recheck time.Duration) *Selector {
	if recheck <= 0 {
		recheck = DefaultRecheckInterval
	}

	selector := &Selector{
		primary:   primary,
		fallback:  fallback,
		recheck:   recheck,
		lastCheck: time.Now(),
	}

	if err := primary.Health(ctx); err != nil {
		log.Warn("primary metadata store unhealthy at startup, using fallback",
			"primary", primary.Name(), "fallback", fallback.Name(), "error", err)
		selector.onFallback = true
	}

	return selector
}

// Execute runs op against the active backend. On a backend failure while
// on primary it switches to the fallback and retries op once; a fallback
// failure propagates. Logical errors (not found, validation) never trigger
// failover.
func (selector *Selector) Execute(ctx context.Context, op func(Store) error) error {
	store := selector.active(ctx)

	err := op(store)
	if err == nil || isLogical(err) {
		return err
	}

	if store != selector.primary {
		return errors.ErrStoreUnavailable.WithMessagef(
			"fallback metadata store failed: %v", err)
	}

	log.Error("primary metadata store failed, switching to fallback",
		"primary", selector.primary.Name(), "error", err)

	selector.mu.Lock()
	selector.onFallback = true
	selector.lastCheck = time.Now()
	selector.mu.Unlock()

	if err := op(selector.fallback); err != nil {
		if isLogical(err) {
			return err
		}
		return errors.ErrStoreUnavailable.WithMessagef(
			"fallback metadata store failed: %v", err)
	}
	return nil
}

// active returns the current backend, re-probing the primary no more than
// once per recheck interval while on fallback.
func (selector *Selector) active(ctx context.Context) Store {
	selector.mu.Lock()
	defer selector.mu.Unlock()

	if !selector.onFallback {
		return selector.primary
	}

	if time.Since(selector.lastCheck) >= selector.recheck {
		selector.lastCheck = time.Now()
		if err := selector.primary.Health(ctx); err == nil {
			log.Info("primary metadata store recovered, promoting",
				"primary", selector.primary.Name())
			selector.onFallback = false
			return selector.primary
		}
	}

	return selector.fallback
}

// UsingFallback reports whether the selector is currently degraded.
func (selector *Selector) UsingFallback() bool {
	selector.mu.Lock()
	defer selector.mu.Unlock()
	return selector.onFallback
}

// StartHealthLoop promotes the primary in the background, independent of
// request traffic. Stops when ctx is done.
func (selector *Selector) StartHealthLoop(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(selector.recheck)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				selector.active(ctx)
			}
		}
	}()
}

// isLogical reports whether err is a per-record condition rather than a
// backend failure.
func isLogical(err error) bool {
	return goerrors.Is(err, errors.ErrNotFound) || goerrors.Is(err, errors.ErrValidation)
}

// Store interface delegation.

func (selector *Selector) Name() string {
	selector.mu.Lock()
	defer selector.mu.Unlock()
	if selector.onFallback {
		return selector.fallback.Name()
	}
	return selector.primary.Name()
}

func (selector *Selector) Put(ctx context.Context, table, key string, doc any) error {
	return selector.Execute(ctx, func(store Store) error {
		return store.Put(ctx, table, key, doc)
	})
}

func (selector *Selector) Get(ctx context.Context, table, key string, out any) error {
	return selector.Execute(ctx, func(store Store) error {
		return store.Get(ctx, table, key, out)
	})
}

func (selector *Selector) Delete(ctx context.Context, table, key string) error {
	return selector.Execute(ctx, func(store Store) error {
		return store.Delete(ctx, table, key)
	})
}

func (selector *Selector) List(ctx context.Context, table string) (map[string]json.RawMessage, error) {
	var records map[string]json.RawMessage
	err := selector.Execute(ctx, func(store Store) error {
		var listErr error
		records, listErr = store.List(ctx, table)
		return listErr
	})
	return records, err
}

func (selector *Selector) Health(ctx context.Context) error {
	return selector.Execute(ctx, func(store Store) error {
		return store.Health(ctx)
	})
}
