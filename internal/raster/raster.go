// Package raster paints layout artwork into PNG pages at its exact canvas
// size.
package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"math"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/ivlev/carousel/internal/layout"
	"github.com/ivlev/carousel/internal/system"
)

// RasterizationError is fatal to the export.
type RasterizationError struct {
	Layer int // -1 when the artwork as a whole is invalid
	Err   error
}

func (e *RasterizationError) Error() string {
	if e.Layer < 0 {
		return fmt.Sprintf("rasterization failed: %v", e.Err)
	}
	return fmt.Sprintf("rasterization failed at layer %d: %v", e.Layer, e.Err)
}

func (e *RasterizationError) Unwrap() error {
	return e.Err
}

// Page is one rasterized slide.
type Page struct {
	Width  int
	Height int
	PNG    []byte
}

// Rasterizer is safe for concurrent use.
type Rasterizer struct {
	pool    *system.CanvasPool
	encoder png.Encoder
}

func New() *Rasterizer {
	return &Rasterizer{
		pool:    system.NewCanvasPool(),
		encoder: png.Encoder{CompressionLevel: png.BestSpeed},
	}
}

// Rasterize paints art at 1x and encodes it as PNG.
func (r *Rasterizer) Rasterize(ctx context.Context, art *layout.Artwork) (*Page, error) {
	img, err := r.Draw(ctx, art)
	if err != nil {
		return nil, err
	}
	defer r.pool.Put(img)

	var buf bytes.Buffer
	if err := r.encoder.Encode(&buf, img); err != nil {
		return nil, &RasterizationError{Layer: -1, Err: fmt.Errorf("png: %w", err)}
	}
	return &Page{Width: art.Width, Height: art.Height, PNG: buf.Bytes()}, nil
}

// Draw paints every layer onto a fresh canvas. The caller owns the result.
func (r *Rasterizer) Draw(ctx context.Context, art *layout.Artwork) (*image.RGBA, error) {
	if art == nil || art.Width <= 0 || art.Height <= 0 {
		return nil, &RasterizationError{Layer: -1, Err: fmt.Errorf("empty canvas")}
	}
	w, h := art.Width, art.Height
	img := r.pool.Get(image.Rect(0, 0, w, h))

	for i, l := range art.Layers {
		if err := ctx.Err(); err != nil {
			r.pool.Put(img)
			return nil, err
		}
		var err error
		if l.IsImage() {
			drawImage(img, l)
		} else {
			err = drawSVG(img, l.SVG, w, h)
		}
		if err != nil {
			r.pool.Put(img)
			return nil, &RasterizationError{Layer: i, Err: err}
		}
	}
	return img, nil
}

func drawSVG(dst *image.RGBA, data []byte, w, h int) error {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("svg: %w", err)
	}
	vb := icon.ViewBox
	if vb.W <= 0 || vb.H <= 0 {
		return fmt.Errorf("svg has no size")
	}
	if vb.W != float64(w) || vb.H != float64(h) {
		return fmt.Errorf("svg viewBox %gx%g does not match canvas %dx%d", vb.W, vb.H, w, h)
	}

	icon.SetTarget(0, 0, float64(w), float64(h))
	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	raster := rasterx.NewDasher(w, h, scanner)
	icon.Draw(raster, 1.0)
	return nil
}

// drawImage scales the layer image to cover its rect, cropping the overflow
// around the center, and clips it to rounded corners.
func drawImage(dst *image.RGBA, l layout.Layer) {
	rect := l.Rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	tw, th := l.Rect.Dx(), l.Rect.Dy()

	src := l.Image.Bounds()
	sw, sh := float64(src.Dx()), float64(src.Dy())
	if sw == 0 || sh == 0 {
		return
	}
	scale := math.Max(float64(tw)/sw, float64(th)/sh)
	cw, ch := float64(tw)/scale, float64(th)/scale
	cx := src.Min.X + int(math.Round((sw-cw)/2))
	cy := src.Min.Y + int(math.Round((sh-ch)/2))
	crop := image.Rect(cx, cy, cx+int(math.Round(cw)), cy+int(math.Round(ch)))

	tile := image.NewRGBA(image.Rect(0, 0, tw, th))
	xdraw.CatmullRom.Scale(tile, tile.Bounds(), l.Image, crop, xdraw.Src, nil)

	if l.Radius <= 0 {
		draw.Draw(dst, l.Rect, tile, image.Point{}, draw.Over)
		return
	}
	mask := roundedMask(tw, th, l.Radius)
	draw.DrawMask(dst, l.Rect, tile, image.Point{}, mask, image.Point{}, draw.Over)
}

func roundedMask(w, h int, radius float64) *image.Alpha {
	W, H := float32(w), float32(h)
	R := float32(math.Min(radius, math.Min(float64(w), float64(h))/2))

	z := vector.NewRasterizer(w, h)
	z.MoveTo(R, 0)
	z.LineTo(W-R, 0)
	z.QuadTo(W, 0, W, R)
	z.LineTo(W, H-R)
	z.QuadTo(W, H, W-R, H)
	z.LineTo(R, H)
	z.QuadTo(0, H, 0, H-R)
	z.LineTo(0, R)
	z.QuadTo(0, 0, R, 0)
	z.ClosePath()

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask
}
