package engine

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/carousel/internal/analyzer"
	"github.com/ivlev/carousel/internal/assets"
	"github.com/ivlev/carousel/internal/document"
	"github.com/ivlev/carousel/internal/fonts"
	"github.com/ivlev/carousel/internal/layout"
	"github.com/ivlev/carousel/internal/model"
	"github.com/ivlev/carousel/internal/raster"
	"github.com/ivlev/carousel/internal/system"
)

// FontLoader resolves every font of one job in a single call.
type FontLoader interface {
	Load(ctx context.Context, keys []fonts.Key, text string) (*fonts.Set, error)
}

type Layout interface {
	Render(in layout.Input) (*layout.Artwork, error)
}

type Rasterizer interface {
	Rasterize(ctx context.Context, art *layout.Artwork) (*raster.Page, error)
}

type Options struct {
	Fonts   FontLoader
	Assets  assets.Loader // nil: images are never loaded and their regions are omitted
	Layout  Layout
	Raster  Rasterizer
	Logger  *zap.Logger
	Workers int
	// Checker reports legibility findings as warnings. nil skips the check.
	Checker analyzer.Checker

	// Formats resolves Request.Format. Defaults to document.ForFormat.
	Formats func(format string) (document.Assembler, error)
	// Progress is called after each slide is rasterized, from worker goroutines.
	Progress func(done, total int)
}

// Exporter runs export jobs. It keeps no per-job state and is safe for
// concurrent use.
type Exporter struct {
	fonts    FontLoader
	assets   assets.Loader
	layout   Layout
	raster   Rasterizer
	logger   *zap.Logger
	workers  int
	checker  analyzer.Checker
	formats  func(string) (document.Assembler, error)
	progress func(done, total int)
}

func New(opts Options) *Exporter {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	e := &Exporter{
		fonts:    opts.Fonts,
		assets:   opts.Assets,
		layout:   opts.Layout,
		raster:   opts.Raster,
		logger:   opts.Logger,
		workers:  opts.Workers,
		checker:  opts.Checker,
		formats:  opts.Formats,
		progress: opts.Progress,
	}
	if e.fonts == nil {
		e.fonts = fonts.NewService(&fonts.EmbeddedTransport{}, fonts.NewMemoryStore(), e.logger)
	}
	if e.layout == nil {
		e.layout = layout.New()
	}
	if e.raster == nil {
		e.raster = raster.New()
	}
	if e.workers < 1 {
		e.workers = system.DefaultWorkers()
	}
	if e.formats == nil {
		e.formats = document.ForFormat
	}
	return e
}

type Request struct {
	Project *model.Project
	Format  string
	Title   string
}

// Stats are the phase timings of one job.
type Stats struct {
	Fonts    time.Duration
	Render   time.Duration
	Assemble time.Duration
	Total    time.Duration
}

type Result struct {
	JobID string
	*document.Output
	// Warnings are slide-local failures that degraded the output, such as
	// images that could not be loaded, followed by legibility findings.
	Warnings []error
	Stats    Stats
}

// SlideError ties a layout or rasterization failure to its slide.
type SlideError struct {
	Index int
	ID    string
	Err   error
}

func (e *SlideError) Error() string {
	return fmt.Sprintf("slide %d (%s): %v", e.Index+1, e.ID, e.Err)
}

func (e *SlideError) Unwrap() error {
	return e.Err
}

// State is a step of an export job.
type State string

const (
	StateReceived    State = "received"
	StateValidated   State = "validated"
	StateFontsLoaded State = "fonts_loaded"
	StateRendered    State = "rendered"
	StateAssembled   State = "assembled"
	StateFailed      State = "failed"
)

// Export runs one job. It returns either the complete document or an error,
// never a partial document.
func (e *Exporter) Export(ctx context.Context, req Request) (*Result, error) {
	startTime := time.Now()
	res := &Result{JobID: uuid.NewString()}
	log := e.logger.With(zap.String("job", res.JobID))
	log.Info("export", zap.String("state", string(StateReceived)))

	p := req.Project
	if err := p.Validate(); err != nil {
		return nil, e.fail(ctx, log, StateReceived, err)
	}
	assembler, err := e.formats(req.Format)
	if err != nil {
		return nil, e.fail(ctx, log, StateReceived, err)
	}
	total := len(p.Slides)
	log.Info("export", zap.String("state", string(StateValidated)), zap.Int("slides", total))

	fontStart := time.Now()
	keys := layout.ProjectFonts(p)
	set, err := e.fonts.Load(ctx, keys, layout.GlyphText(p))
	if err != nil {
		return nil, e.fail(ctx, log, StateValidated, err)
	}
	var images assets.Images
	images, res.Warnings = assets.Resolve(ctx, e.assets, layout.ImageURLs(p), log)
	for _, f := range analyzer.Project(e.checker, p) {
		log.Warn("legibility", zap.Error(f))
		res.Warnings = append(res.Warnings, f)
	}
	res.Stats.Fonts = time.Since(fontStart)
	log.Info("export", zap.String("state", string(StateFontsLoaded)),
		zap.Int("fonts", len(keys)), zap.Int("images", len(images)))

	renderStart := time.Now()
	pages, err := e.render(ctx, log, p, set, images)
	if err != nil {
		return nil, e.fail(ctx, log, StateFontsLoaded, err)
	}
	res.Stats.Render = time.Since(renderStart)
	log.Info("export", zap.String("state", string(StateRendered)), zap.Duration("took", res.Stats.Render))

	assembleStart := time.Now()
	title := exportTitle(req.Title, p)
	meta := document.Meta{
		Title:  title,
		Author: authorName(p.Author),
		Slug:   model.Slug(title, "carousel"),
	}
	res.Output, err = assembler.Assemble(ctx, pages, meta)
	if err != nil {
		return nil, e.fail(ctx, log, StateRendered, err)
	}
	res.Stats.Assemble = time.Since(assembleStart)
	res.Stats.Total = time.Since(startTime)

	log.Info("export", zap.String("state", string(StateAssembled)),
		zap.Int("pages", res.Pages),
		zap.Int("bytes", len(res.Body)),
		zap.Int("warnings", len(res.Warnings)),
		zap.Duration("total", res.Stats.Total))
	return res, nil
}

// render lays out and rasterizes every slide on a bounded pool. Results are
// stored by index so page order matches slide order; the first failure
// cancels the remaining slides.
func (e *Exporter) render(ctx context.Context, log *zap.Logger, p *model.Project, set *fonts.Set, images assets.Images) ([]raster.Page, error) {
	total := len(p.Slides)
	pages := make([]raster.Page, total)

	var done atomic.Int32
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.workers)
	for i := range p.Slides {
		i := i
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			slide := p.Slides[i]
			art, err := e.layout.Render(layout.Input{
				Slide:  slide,
				Design: p.EffectiveDesign(i),
				Author: p.Author,
				Fonts:  set,
				Images: images,
				Index:  i,
				Total:  total,
			})
			if err != nil {
				return &SlideError{Index: i, ID: slide.ID, Err: err}
			}
			page, err := e.raster.Rasterize(egCtx, art)
			if err != nil {
				return &SlideError{Index: i, ID: slide.ID, Err: err}
			}
			pages[i] = *page

			n := int(done.Add(1))
			log.Debug("slide ready", zap.Int("slide", i+1), zap.Int("done", n), zap.Int("total", total))
			if e.progress != nil {
				e.progress(n, total)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for i := range pages {
		if len(pages[i].PNG) == 0 {
			return nil, &SlideError{Index: i, ID: p.Slides[i].ID, Err: fmt.Errorf("page was not produced")}
		}
	}
	return pages, nil
}

// fail logs the failure. When the caller's context ended, the context error
// is returned so callers see a timeout rather than whichever slide noticed it.
func (e *Exporter) fail(ctx context.Context, log *zap.Logger, last State, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("export aborted after %s: %w", last, ctxErr)
	}
	log.Warn("export", zap.String("state", string(StateFailed)),
		zap.String("after", string(last)),
		zap.String("kind", Classify(err).String()),
		zap.Error(err))
	return err
}

func exportTitle(title string, p *model.Project) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	for _, s := range p.Slides {
		if t := strings.TrimSpace(s.Content.Title); t != "" {
			return t
		}
	}
	return "carousel"
}

func authorName(a model.Author) string {
	if n := strings.TrimSpace(a.Name); n != "" {
		return n
	}
	return layout.Handle(a)
}
