package providerregistry

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/moltis/gateway/internal/credentials"
	"github.com/moltis/gateway/internal/metrics"
)

// SourceFunc produces a fresh Sources snapshot by re-reading every
// credential input (env, in-memory config, key-store files, oauth tokens,
// local-llm.json). The gateway supplies this closure; the rebuilder only
// orchestrates scheduling.
type SourceFunc func(ctx context.Context) (Sources, error)

// Rebuilder schedules provider registry rebuilds off the request path
// (§4.3: "Rebuilds are scheduled, not inline"). Concurrent triggers within
// the same window collapse onto a single in-flight rebuild via singleflight;
// a rebuild that finishes after a newer trigger has already started is
// discarded rather than installed, so writes never race backwards.
type Rebuilder struct {
	reg     *Registry
	sources SourceFunc
	log     *zap.Logger
	metrics *metrics.Collector

	group   singleflight.Group
	counter atomic.Uint64
}

// NewRebuilder wires a Rebuilder to reg, using sources to compute each
// fresh snapshot.
func NewRebuilder(reg *Registry, sources SourceFunc, log *zap.Logger) *Rebuilder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Rebuilder{reg: reg, sources: sources, log: log}
}

// SetMetrics wires a Collector so every installed rebuild is counted and
// timed. Safe to leave unset.
func (rb *Rebuilder) SetMetrics(c *metrics.Collector) {
	rb.metrics = c
}

// Trigger schedules a rebuild and blocks until it (or a newer, collapsed
// trigger) completes. Safe to call concurrently from many goroutines; they
// share one in-flight rebuild via singleflight and all observe its result.
func (rb *Rebuilder) Trigger(ctx context.Context) error {
	seq := rb.counter.Add(1)
	for {
		_, err, _ := rb.group.Do("rebuild", func() (any, error) {
			return nil, rb.runOnce(ctx, seq)
		})
		// A flight started by an older trigger is discarded once seq exists;
		// if no newer trigger has arrived, run again so seq gets installed.
		if err != nil || rb.counter.Load() != seq || rb.reg.Version() == seq {
			return err
		}
	}
}

// TriggerAsync schedules a rebuild without waiting for it, logging failures.
// Used by credential-mutating handlers that must return before the rebuild
// completes (§4.3 "spawns a background task").
func (rb *Rebuilder) TriggerAsync(ctx context.Context) {
	go func() {
		if err := rb.Trigger(ctx); err != nil {
			rb.log.Warn("provider registry rebuild failed", zap.Error(err))
		}
	}()
}

func (rb *Rebuilder) runOnce(ctx context.Context, seq uint64) error {
	start := time.Now()
	src, err := rb.sources(ctx)
	if err != nil {
		return err
	}
	fresh := Build(src)

	// Re-check the sequence counter: if a newer trigger arrived while this
	// rebuild was computing, drop the result silently (§4.3 step 5).
	if rb.counter.Load() != seq {
		rb.log.Debug("discarding stale provider registry rebuild", zap.Uint64("seq", seq))
		return nil
	}
	rb.reg.snapshot(fresh, seq)
	if rb.metrics != nil {
		rb.metrics.RebuildTotal.Inc()
		rb.metrics.RebuildDuration.Observe(time.Since(start).Seconds())
	}
	return nil
}

// DefaultSources builds a SourceFunc from a credentials.HomeStore plus the
// caller-owned in-memory overrides (offered list, disabled names, local
// model ids, deploy platform). It is the composition root's standard wiring
// for cmd/moltisgw.
func DefaultSources(hs *credentials.HomeStore, inMemory credentials.ProviderKeyStore, envOverrides map[string]string, localModelIDs []string, disabledNames map[string]bool, deployPlatform string, offered []string) SourceFunc {
	return func(ctx context.Context) (Sources, error) {
		keys, err := hs.MergedKeys()
		if err != nil {
			return Sources{}, err
		}
		oauth, err := hs.MergedOAuthTokens()
		if err != nil {
			return Sources{}, err
		}
		return Sources{
			Env:            EnvLookup{Overrides: envOverrides},
			InMemoryConfig: inMemory,
			KeyStore:       keys,
			OAuthTokens:    oauth,
			LocalModelIDs:  localModelIDs,
			DisabledNames:  disabledNames,
			DeployPlatform: deployPlatform,
			Offered:        offered,
		}, nil
	}
}
