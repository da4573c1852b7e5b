// Package assets loads the raster images referenced by slides.
package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	_ "golang.org/x/image/webp"
)

// Loader returns a decoded image for a URL.
type Loader interface {
	Load(ctx context.Context, rawURL string) (image.Image, error)
}

// ImageAssetError is slide-local: the image region is omitted and the export
// continues.
type ImageAssetError struct {
	URL string
	Err error
}

func (e *ImageAssetError) Error() string {
	return fmt.Sprintf("image %s could not be loaded: %v", shorten(e.URL), e.Err)
}

func (e *ImageAssetError) Unwrap() error {
	return e.Err
}

// Images maps an image URL to its decoded image. Missing keys mean the image
// failed to load.
type Images map[string]image.Image

type Options struct {
	Timeout  time.Duration
	MaxBytes int64
	Rate     float64 // requests per second, 0 = unlimited
	Burst    int
	CacheTTL time.Duration
}

// HTTPLoader fetches images over HTTP(S) and decodes data: URLs in place.
type HTTPLoader struct {
	client   *http.Client
	limiter  *rate.Limiter
	cache    *cache.Cache
	maxBytes int64
}

func NewHTTPLoader(opts Options) *HTTPLoader {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 10 << 20
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.Rate > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), burst)
	}
	var c *cache.Cache
	if opts.CacheTTL > 0 {
		c = cache.New(opts.CacheTTL, 0)
	}
	return &HTTPLoader{
		client:   &http.Client{Timeout: opts.Timeout},
		limiter:  limiter,
		cache:    c,
		maxBytes: opts.MaxBytes,
	}
}

func (l *HTTPLoader) Load(ctx context.Context, rawURL string) (image.Image, error) {
	if strings.HasPrefix(rawURL, "data:") {
		return decodeDataURL(rawURL)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	if l.cache != nil {
		if v, ok := l.cache.Get(rawURL); ok {
			return v.(image.Image), nil
		}
	}

	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", l.maxBytes)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if l.cache != nil {
		l.cache.SetDefault(rawURL, img)
	}
	return img, nil
}

func decodeDataURL(raw string) (image.Image, error) {
	comma := strings.IndexByte(raw, ',')
	if comma < 0 {
		return nil, fmt.Errorf("malformed data URL")
	}
	meta, payload := raw[len("data:"):comma], raw[comma+1:]

	var data []byte
	if strings.HasSuffix(meta, ";base64") {
		b, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("data URL: %w", err)
		}
		data = b
	} else {
		s, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("data URL: %w", err)
		}
		data = []byte(s)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return img, nil
}

// Resolve loads every distinct URL. Failures come back as *ImageAssetError
// values in URL order and leave the URL out of the returned Images.
func Resolve(ctx context.Context, loader Loader, urls []string, logger *zap.Logger) (Images, []error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	distinct := dedupe(urls)
	out := make(Images, len(distinct))
	if len(distinct) == 0 || loader == nil {
		return out, nil
	}

	imgs := make([]image.Image, len(distinct))
	errs := make([]error, len(distinct))

	var eg errgroup.Group
	eg.SetLimit(4)
	for i, u := range distinct {
		i, u := i, u
		eg.Go(func() error {
			img, err := loader.Load(ctx, u)
			if err != nil {
				errs[i] = &ImageAssetError{URL: u, Err: err}
				return nil
			}
			imgs[i] = img
			return nil
		})
	}
	_ = eg.Wait()

	var failed []error
	for i, u := range distinct {
		if errs[i] != nil {
			logger.Warn("image omitted", zap.String("url", shorten(u)), zap.Error(errs[i]))
			failed = append(failed, errs[i])
			continue
		}
		out[u] = imgs[i]
	}
	return out, failed
}

func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	var out []string
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

func shorten(u string) string {
	if len(u) > 80 {
		return u[:77] + "..."
	}
	return u
}
