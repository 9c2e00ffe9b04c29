package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geosalud/acceso/internal/pipeline"
	"github.com/geosalud/acceso/internal/store"
)

// newRunner builds the cached pipeline runner. With caching disabled the
// runner still works, it just recomputes every time. The returned closer is
// always safe to call.
func newRunner(ctx context.Context) (*pipeline.Runner, func(), error) {
	if cfg.Cache.Disabled {
		return pipeline.NewRunner(cfg, nil), func() {}, nil
	}

	st, err := store.Open(cfg.Cache.Path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "open bundle cache")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, nil, eris.Wrap(err, "migrate bundle cache")
	}
	if purged, err := st.Purge(ctx); err != nil {
		zap.L().Warn("cache purge failed", zap.Error(err))
	} else if purged > 0 {
		zap.L().Debug("purged expired cache entries", zap.Int64("count", purged))
	}

	closer := func() {
		if err := st.Close(); err != nil {
			zap.L().Warn("close bundle cache", zap.Error(err))
		}
	}
	return pipeline.NewRunner(cfg, st), closer, nil
}
