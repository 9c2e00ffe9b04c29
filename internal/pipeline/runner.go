package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/geosalud/acceso/internal/config"
	"github.com/geosalud/acceso/internal/model"
)

// BundleStore is the cache the Runner reads through. Satisfied by
// store.Store; nil-able for uncached operation.
type BundleStore interface {
	GetBundle(ctx context.Context, fingerprint string) (*model.Bundle, error)
	PutBundle(ctx context.Context, fingerprint string, bundle *model.Bundle, ttl time.Duration) error
}

// Runner memoizes LoadAll. The cache key fingerprints the input files, so an
// unchanged data directory is a cache hit and a touched file recomputes.
// Concurrent requests for the same fingerprint are collapsed to a single
// computation via singleflight.
type Runner struct {
	cfg   *config.Config
	cache BundleStore
	group singleflight.Group
}

// NewRunner builds a Runner. cache may be nil to disable persistence; the
// singleflight collapse still applies.
func NewRunner(cfg *config.Config, cache BundleStore) *Runner {
	return &Runner{cfg: cfg, cache: cache}
}

// Bundle returns the pipeline output, from cache when possible.
func (r *Runner) Bundle(ctx context.Context) (*model.Bundle, error) {
	key := Fingerprint(
		r.cfg.Data.FacilityPath(),
		r.cfg.Data.BoundaryPath(),
		r.cfg.Data.CentersPath(),
	)

	v, err, shared := r.group.Do(key, func() (interface{}, error) {
		return r.compute(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		zap.L().Debug("bundle request coalesced", zap.String("fingerprint", key))
	}
	return v.(*model.Bundle), nil
}

func (r *Runner) compute(ctx context.Context, key string) (*model.Bundle, error) {
	log := zap.L().With(zap.String("component", "pipeline.runner"))

	if r.cache != nil {
		cached, err := r.cache.GetBundle(ctx, key)
		if err != nil {
			log.Warn("bundle cache read failed, recomputing", zap.Error(err))
		} else if cached != nil {
			log.Info("bundle served from cache", zap.String("fingerprint", key))
			return cached, nil
		}
	}

	bundle, err := LoadAll(ctx, r.cfg)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		ttl := time.Duration(r.cfg.Cache.TTLHours) * time.Hour
		if err := r.cache.PutBundle(ctx, key, bundle, ttl); err != nil {
			// A failed cache write costs a recompute next session, nothing more.
			log.Warn("bundle cache write failed", zap.Error(err))
		}
	}
	return bundle, nil
}
