package document

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/carousel/internal/raster"
)

func solidPage(t *testing.T, w, h int, c color.RGBA) raster.Page {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return raster.Page{Width: w, Height: h, PNG: buf.Bytes()}
}

func TestForFormat(t *testing.T) {
	for _, f := range []string{"", "pdf", "PDF"} {
		a, err := ForFormat(f)
		require.NoError(t, err, f)
		assert.IsType(t, &PDFAssembler{}, a)
	}

	_, err := ForFormat("zip")
	var aerr *AssemblyError
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, FormatZip, aerr.Format)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = ForFormat("docx")
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, "docx", aerr.Format)
	assert.ErrorIs(t, err, ErrUnknownFormat)
	assert.False(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestPDFPagesInOrder(t *testing.T) {
	colors := []color.RGBA{
		{255, 0, 0, 255},
		{0, 255, 0, 255},
		{0, 0, 255, 255},
	}
	var pages []raster.Page
	for _, c := range colors {
		pages = append(pages, solidPage(t, 108, 135, c))
	}

	out, err := NewPDFAssembler().Assemble(context.Background(), pages, Meta{Title: "Demo", Author: "@me", Slug: "demo"})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", out.ContentType)
	assert.Equal(t, "demo.pdf", out.Filename)
	assert.Equal(t, 3, out.Pages)
	assert.True(t, bytes.HasPrefix(out.Body, []byte("%PDF-")))

	info, err := Inspect(out.Body)
	require.NoError(t, err)
	require.Len(t, info, 3)
	for _, p := range info {
		assert.Equal(t, 108, p.Width)
		assert.Equal(t, 135, p.Height)
	}

	for i, want := range colors {
		img, err := RenderPage(out.Body, i, 72)
		require.NoError(t, err)
		got := color.RGBAModel.Convert(img.At(54, 67)).(color.RGBA)
		assert.InDelta(t, want.R, got.R, 2, "page %d", i+1)
		assert.InDelta(t, want.G, got.G, 2, "page %d", i+1)
		assert.InDelta(t, want.B, got.B, 2, "page %d", i+1)
	}
}

func TestPDFIsReproducible(t *testing.T) {
	pages := []raster.Page{solidPage(t, 50, 50, color.RGBA{10, 20, 30, 255})}
	a, err := NewPDFAssembler().Assemble(context.Background(), pages, Meta{Title: "x"})
	require.NoError(t, err)
	b, err := NewPDFAssembler().Assemble(context.Background(), pages, Meta{Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, a.Body, b.Body)
	assert.Equal(t, "carousel.pdf", a.Filename)
}

func TestPDFRejectsMixedSizes(t *testing.T) {
	pages := []raster.Page{
		solidPage(t, 50, 50, color.RGBA{A: 255}),
		solidPage(t, 50, 60, color.RGBA{A: 255}),
	}
	_, err := NewPDFAssembler().Assemble(context.Background(), pages, Meta{})
	var aerr *AssemblyError
	require.True(t, errors.As(err, &aerr))

	_, err = NewPDFAssembler().Assemble(context.Background(), nil, Meta{})
	assert.True(t, errors.As(err, &aerr))
}

func TestRenderPageOutOfRange(t *testing.T) {
	out, err := NewPDFAssembler().Assemble(context.Background(),
		[]raster.Page{solidPage(t, 20, 20, color.RGBA{A: 255})}, Meta{})
	require.NoError(t, err)
	_, err = RenderPage(out.Body, 3, 72)
	assert.Error(t, err)
}
