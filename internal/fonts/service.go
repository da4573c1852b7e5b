package fonts

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Service resolves fonts through a Transport, optionally backed by a Store.
type Service struct {
	// FetchTimeout bounds one shared transport fetch.
	FetchTimeout time.Duration

	transport Transport
	store     Store
	logger    *zap.Logger
	flight    singleflight.Group
}

const defaultFetchTimeout = 30 * time.Second

// NewService creates a Service. store may be nil, in which case every job
// fetches its fonts again (still once per key per job).
func NewService(transport Transport, store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{FetchTimeout: defaultFetchTimeout, transport: transport, store: store, logger: logger}
}

// Load fetches and parses every key once and returns the job's font set.
// Any failure aborts the whole load with a *FontResolutionError.
func (s *Service) Load(ctx context.Context, keys []Key, text string) (*Set, error) {
	keys = Dedupe(keys)
	glyphs := Glyphs(text)

	parsed := make([]*sfnt.Font, len(keys))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, k := range keys {
		i, k := i, k
		eg.Go(func() error {
			f, err := s.resolve(egCtx, k, glyphs)
			if err != nil {
				return &FontResolutionError{Key: k, Err: err}
			}
			parsed[i] = f
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	set := &Set{faces: make(map[Key]*sfnt.Font, len(keys)), text: glyphs}
	for i, k := range keys {
		set.faces[k] = parsed[i]
	}
	return set, nil
}

func (s *Service) resolve(ctx context.Context, k Key, glyphs string) (*sfnt.Font, error) {
	ck := s.cacheKey(k, glyphs)

	data, err := s.bytes(ctx, k, ck, glyphs)
	if err != nil {
		return nil, err
	}
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return f, nil
}

func (s *Service) bytes(ctx context.Context, k Key, ck, glyphs string) ([]byte, error) {
	if s.store != nil {
		data, ok, err := s.store.Get(ctx, ck)
		if err != nil {
			s.logger.Warn("font store read failed", zap.String("key", ck), zap.Error(err))
		} else if ok {
			s.logger.Debug("font store hit", zap.String("key", ck))
			return data, nil
		}
	}

	// The fetch is shared by every job waiting on ck, so it runs detached from
	// the caller that started it. Each caller still stops at its own ctx.
	ch := s.flight.DoChan(ck, func() (interface{}, error) {
		timeout := s.FetchTimeout
		if timeout <= 0 {
			timeout = defaultFetchTimeout
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		data, err := s.transport.Fetch(fetchCtx, Request{Key: k, Text: glyphs})
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("empty font resource")
		}
		if s.store != nil {
			if err := s.store.Set(fetchCtx, ck, data); err != nil {
				s.logger.Warn("font store write failed", zap.String("key", ck), zap.Error(err))
			}
		}
		return data, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		s.logger.Debug("font fetched", zap.String("key", ck), zap.Bool("shared", res.Shared))
		return res.Val.([]byte), nil
	}
}

// cacheKey includes a digest of the glyph set only when the transport subsets;
// otherwise the font for (family, weight) is the same for every job.
func (s *Service) cacheKey(k Key, glyphs string) string {
	sub, ok := s.transport.(Subsetter)
	if !ok || !sub.Subsets() || glyphs == "" {
		return k.String()
	}
	sum := sha1.Sum([]byte(glyphs))
	return k.String() + ":" + hex.EncodeToString(sum[:8])
}
