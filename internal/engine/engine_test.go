package engine

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ivlev/carousel/internal/analyzer"
	"github.com/ivlev/carousel/internal/assets"
	"github.com/ivlev/carousel/internal/document"
	"github.com/ivlev/carousel/internal/fonts"
	"github.com/ivlev/carousel/internal/layout"
	"github.com/ivlev/carousel/internal/model"
	"github.com/ivlev/carousel/internal/raster"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// countingTransport counts font fetches per key.
type countingTransport struct {
	next  fonts.Transport
	mu    sync.Mutex
	calls map[fonts.Key]int
}

func newCounting() *countingTransport {
	return &countingTransport{next: &fonts.EmbeddedTransport{}, calls: map[fonts.Key]int{}}
}

func (c *countingTransport) Fetch(ctx context.Context, req fonts.Request) ([]byte, error) {
	c.mu.Lock()
	c.calls[req.Key]++
	c.mu.Unlock()
	return c.next.Fetch(ctx, req)
}

func (c *countingTransport) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}

var markers = []string{"#ff0000", "#00ff00", "#0000ff", "#ffff00", "#00ffff", "#ff00ff", "#808080", "#ffffff", "#000000", "#800000"}

func project(n int, ratio string) *model.Project {
	p := &model.Project{
		Design: &model.DesignSpec{
			ColorPalette: model.Palette{
				Background: "#f5f5f5",
				Primary:    "#111111",
				Secondary:  "#333333",
				Accent:     "#0055ff",
				Text:       "#222222",
			},
			Fonts:       model.Fonts{Heading: "Go", Body: "Go"},
			AspectRatio: ratio,
		},
		Author: model.Author{Handle: "tester", Name: "Test Author"},
	}
	for i := 0; i < n; i++ {
		p.Slides = append(p.Slides, model.Slide{
			ID:   fmt.Sprintf("s%d", i+1),
			Type: model.SlideContent,
			Content: model.Content{
				Title: fmt.Sprintf("Slide %d", i+1),
				Body:  "Body text that is long enough to wrap across more than one line on the canvas.",
			},
		})
	}
	return p
}

// withMarkers gives every slide a distinct background so page order can be
// read back from the PDF.
func withMarkers(p *model.Project) *model.Project {
	for i := range p.Slides {
		p.Slides[i].DesignOverrides = &model.DesignOverrides{BackgroundColor: markers[i]}
	}
	return p
}

func newExporter(ct *countingTransport, opts Options) *Exporter {
	opts.Fonts = fonts.NewService(ct, fonts.NewMemoryStore(), nil)
	if opts.Workers == 0 {
		opts.Workers = 4
	}
	return New(opts)
}

func pagePixel(t *testing.T, pdf []byte, page int) color.RGBA {
	t.Helper()
	img, err := document.RenderPage(pdf, page, 72)
	require.NoError(t, err)
	return color.RGBAModel.Convert(img.At(5, 5)).(color.RGBA)
}

func assertColor(t *testing.T, hex string, got color.RGBA, msg string) {
	t.Helper()
	r, g, b := model.MustParseColor(hex).RGB255()
	assert.InDelta(t, r, got.R, 3, msg)
	assert.InDelta(t, g, got.G, 3, msg)
	assert.InDelta(t, b, got.B, 3, msg)
}

func TestExportIsDeterministic(t *testing.T) {
	e := newExporter(newCounting(), Options{})

	var sums [2][32]byte
	for i := range sums {
		res, err := e.Export(context.Background(), Request{Project: project(3, "1:1")})
		require.NoError(t, err)
		sums[i] = sha256.Sum256(res.Body)
	}
	assert.Equal(t, sums[0], sums[1])
}

func TestPageOrderMatchesSlides(t *testing.T) {
	e := newExporter(newCounting(), Options{Workers: 5})
	res, err := e.Export(context.Background(), Request{Project: withMarkers(project(5, "1:1"))})
	require.NoError(t, err)
	require.Equal(t, 5, res.Pages)

	for i := 0; i < 5; i++ {
		assertColor(t, markers[i], pagePixel(t, res.Body, i), fmt.Sprintf("page %d", i+1))
	}
}

func TestPageSizeFollowsAspectRatio(t *testing.T) {
	tests := []struct {
		ratio string
		w, h  int
	}{
		{"1:1", 1080, 1080},
		{"4:5", 1080, 1350},
		{"9:16", 1080, 1920},
		{"16:9", 1080, 1080},
	}
	e := newExporter(newCounting(), Options{})
	for _, tt := range tests {
		t.Run(tt.ratio, func(t *testing.T) {
			res, err := e.Export(context.Background(), Request{Project: project(2, tt.ratio)})
			require.NoError(t, err)

			info, err := document.Inspect(res.Body)
			require.NoError(t, err)
			require.Len(t, info, 2)
			for _, p := range info {
				assert.Equal(t, tt.w, p.Width)
				assert.Equal(t, tt.h, p.Height)
			}
		})
	}
}

func TestOverridePrecedence(t *testing.T) {
	p := project(2, "1:1")
	p.Slides[1].DesignOverrides = &model.DesignOverrides{BackgroundColor: "#ff0000"}

	res, err := newExporter(newCounting(), Options{}).Export(context.Background(), Request{Project: p})
	require.NoError(t, err)
	assertColor(t, "#f5f5f5", pagePixel(t, res.Body, 0), "project background")
	assertColor(t, "#ff0000", pagePixel(t, res.Body, 1), "override background")
}

func TestValidationShortCircuits(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		kind Kind
	}{
		{"no slides", Request{Project: &model.Project{Design: project(1, "1:1").Design}}, KindValidation},
		{"no design", Request{Project: &model.Project{Slides: project(1, "1:1").Slides}}, KindValidation},
		{"nil project", Request{}, KindValidation},
		{"zip format", Request{Project: project(1, "1:1"), Format: "zip"}, KindUnsupported},
		{"unknown format", Request{Project: project(1, "1:1"), Format: "gif"}, KindUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct := newCounting()
			res, err := newExporter(ct, Options{}).Export(context.Background(), tt.req)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, tt.kind, Classify(err))
			assert.Equal(t, 0, ct.total(), "no font fetch before validation passes")
			if tt.kind == KindUnsupported {
				var aerr *document.AssemblyError
				assert.True(t, errors.As(err, &aerr))
			}
		})
	}
}

// corruptLayout breaks the SVG of one slide.
type corruptLayout struct {
	next  Layout
	index int
}

func (c corruptLayout) Render(in layout.Input) (*layout.Artwork, error) {
	art, err := c.next.Render(in)
	if err == nil && in.Index == c.index {
		art.Layers[0].SVG = []byte(`<svg viewBox="0 0 1080 1080"><rect`)
	}
	return art, err
}

func TestMalformedSlideAbortsExport(t *testing.T) {
	e := newExporter(newCounting(), Options{Layout: corruptLayout{next: layout.New(), index: 2}})

	res, err := e.Export(context.Background(), Request{Project: project(5, "1:1")})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, KindRaster, Classify(err))

	var serr *SlideError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, 2, serr.Index)
	assert.Equal(t, "s3", serr.ID)
}

func TestFontsFetchedOncePerJob(t *testing.T) {
	ct := newCounting()
	p := project(10, "1:1")
	p.Slides[4].DesignOverrides = &model.DesignOverrides{Fonts: &model.Fonts{Heading: "Go", Body: "Go"}}

	_, err := newExporter(ct, Options{}).Export(context.Background(), Request{Project: p})
	require.NoError(t, err)
	assert.Equal(t, map[fonts.Key]int{
		{Family: "Go", Weight: layout.WeightRegular}: 1,
		{Family: "Go", Weight: layout.WeightBold}:    1,
	}, ct.calls)
}

func TestUnknownFontFails(t *testing.T) {
	p := project(2, "1:1")
	p.Slides[1].DesignOverrides = &model.DesignOverrides{Fonts: &model.Fonts{Heading: "Nope", Body: "Go"}}

	_, err := newExporter(newCounting(), Options{}).Export(context.Background(), Request{Project: p})
	require.Error(t, err)
	assert.Equal(t, KindFont, Classify(err))
}

type mapLoader map[string]image.Image

func (m mapLoader) Load(_ context.Context, u string) (image.Image, error) {
	if img, ok := m[u]; ok {
		return img, nil
	}
	return nil, errors.New("404")
}

func TestBrokenImageDegrades(t *testing.T) {
	p := project(2, "1:1")
	p.Slides[0].Content.ImageURL = "https://img/ok.png"
	p.Slides[1].Content.ImageURL = "https://img/missing.png"

	loader := mapLoader{"https://img/ok.png": image.NewRGBA(image.Rect(0, 0, 16, 9))}
	res, err := newExporter(newCounting(), Options{Assets: loader}).Export(context.Background(), Request{Project: p})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
	require.Len(t, res.Warnings, 1)

	var aerr *assets.ImageAssetError
	require.True(t, errors.As(res.Warnings[0], &aerr))
	assert.Equal(t, "https://img/missing.png", aerr.URL)
}

func TestLegibilityWarnings(t *testing.T) {
	p := project(3, "1:1")
	p.Slides[1].DesignOverrides = &model.DesignOverrides{TextColor: "#eeeeee"}

	res, err := newExporter(newCounting(), Options{Checker: analyzer.NewContrastChecker()}).
		Export(context.Background(), Request{Project: p})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Pages)
	require.Len(t, res.Warnings, 1)

	var f *analyzer.Finding
	require.True(t, errors.As(res.Warnings[0], &f))
	assert.Equal(t, "text", f.Role)
	assert.Equal(t, []int{1}, f.Slides)

	res, err = newExporter(newCounting(), Options{}).Export(context.Background(), Request{Project: p})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
}

// slowRaster blocks until the context ends.
type slowRaster struct{}

func (slowRaster) Rasterize(ctx context.Context, _ *layout.Artwork) (*raster.Page, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestTimeoutReturnsNoDocument(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res, err := newExporter(newCounting(), Options{Raster: slowRaster{}}).Export(ctx, Request{Project: project(3, "1:1")})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, KindTimeout, Classify(err))
}

func TestResultMetadata(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []int
	)
	e := newExporter(newCounting(), Options{Progress: func(done, total int) {
		mu.Lock()
		seen = append(seen, done)
		mu.Unlock()
		assert.Equal(t, 3, total)
	}})

	res, err := e.Export(context.Background(), Request{Project: project(3, "1:1"), Title: "Launch Notes"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.JobID)
	assert.Equal(t, "launch-notes.pdf", res.Filename)
	assert.Equal(t, "application/pdf", res.ContentType)
	assert.ElementsMatch(t, []int{1, 2, 3}, seen)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{&model.ValidationError{Problems: []string{"x"}}, KindValidation},
		{fmt.Errorf("wrapped: %w", &fonts.FontResolutionError{Err: errors.New("x")}), KindFont},
		{&SlideError{Err: &raster.RasterizationError{Err: errors.New("x")}}, KindRaster},
		{&document.AssemblyError{Err: errors.New("x")}, KindAssembly},
		{&SlideError{Err: context.DeadlineExceeded}, KindTimeout},
		{context.Canceled, KindCanceled},
		{errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.err), tt.err.Error())
	}
	assert.Equal(t, "rasterization", KindRaster.String())
}
