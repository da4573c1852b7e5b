package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ivlev/carousel/internal/analyzer"
	"github.com/ivlev/carousel/internal/assets"
	"github.com/ivlev/carousel/internal/config"
	"github.com/ivlev/carousel/internal/engine"
	"github.com/ivlev/carousel/internal/fonts"
	"github.com/ivlev/carousel/internal/layout"
)

func fontTransport(c config.FontsConfig) fonts.Transport {
	var next fonts.Transport
	switch c.Source {
	case "google":
		g := fonts.NewGoogleTransport(c.Timeout, c.Subset)
		if c.CSSURL != "" {
			g.CSSURL = c.CSSURL
		}
		next = g
	case "dir":
		next = &fonts.DirTransport{Dir: c.Dir}
	}
	// The Go family is always available offline.
	return &fonts.EmbeddedTransport{Next: next}
}

// fontStore is the in-process cache, backed by Redis when configured. The
// returned close func releases the Redis client.
func fontStore(ctx context.Context, c config.RedisConfig, log *zap.Logger) (fonts.Store, func(), error) {
	local := fonts.NewMemoryStore()
	if c.Addr == "" {
		return local, func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: c.Addr, DB: c.DB})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis %s: %w", c.Addr, err)
	}
	log.Info("shared font store enabled", zap.String("redis", c.Addr))

	shared := fonts.NewRedisStore(rdb, c.Prefix, c.TTL)
	return &fonts.TieredStore{Local: local, Shared: shared}, func() { _ = shared.Close() }, nil
}

func newLayout() *layout.Renderer {
	r := layout.New()
	r.QRCode = cfg.Render.QRCode
	return r
}

// buildExporter wires the pipeline from cfg. A nil lay uses the configured
// layout renderer.
func buildExporter(ctx context.Context, lay engine.Layout, progress func(done, total int)) (*engine.Exporter, func(), error) {
	store, closeStore, err := fontStore(ctx, cfg.Fonts.Redis, logger)
	if err != nil {
		return nil, nil, err
	}
	if lay == nil {
		lay = newLayout()
	}
	checker, err := analyzer.NewChecker(cfg.Render.Legibility)
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	svc := fonts.NewService(fontTransport(cfg.Fonts), store, logger.Named("fonts"))
	svc.FetchTimeout = cfg.Fonts.Timeout

	exp := engine.New(engine.Options{
		Fonts: svc,
		Assets: assets.NewHTTPLoader(assets.Options{
			Timeout:  cfg.Assets.Timeout,
			MaxBytes: cfg.Assets.MaxBytes,
			Rate:     cfg.Assets.Rate,
			Burst:    cfg.Assets.Burst,
			CacheTTL: cfg.Assets.CacheTTL,
		}),
		Layout:   lay,
		Logger:   logger.Named("engine"),
		Workers:  cfg.Render.Workers,
		Checker:  checker,
		Progress: progress,
	})
	return exp, closeStore, nil
}
