package document

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// PageInfo describes one page of a produced PDF, in points.
type PageInfo struct {
	Index  int
	Width  int
	Height int
}

// Inspect reads a PDF back and reports its pages.
func Inspect(pdf []byte) ([]PageInfo, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	pages := make([]PageInfo, doc.NumPage())
	for i := range pages {
		rect, err := doc.Bound(i)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		pages[i] = PageInfo{Index: i, Width: rect.Dx(), Height: rect.Dy()}
	}
	return pages, nil
}

// RenderPage renders page index of a PDF at the given DPI. At 72 DPI one
// point becomes one pixel, which reproduces the rasterized slide size.
func RenderPage(pdf []byte, index int, dpi float64) (image.Image, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	if index < 0 || index >= doc.NumPage() {
		return nil, fmt.Errorf("page %d out of range (document has %d)", index+1, doc.NumPage())
	}
	return doc.ImageDPI(index, dpi)
}
