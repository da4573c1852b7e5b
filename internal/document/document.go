// Package document packages rasterized slides into the downloadable export.
package document

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ivlev/carousel/internal/raster"
)

// ErrUnsupportedFormat is returned for formats that are known but not built.
var ErrUnsupportedFormat = errors.New("export format is not supported")

// ErrUnknownFormat is wrapped in an *AssemblyError for unrecognized formats.
var ErrUnknownFormat = errors.New("unknown export format")

// AssemblyError is fatal to the export.
type AssemblyError struct {
	Format string
	Err    error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("%s assembly failed: %v", e.Format, e.Err)
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}

// Meta is document metadata. Fields are written verbatim so that equal
// inputs produce equal documents.
type Meta struct {
	Title  string
	Author string
	Slug   string // base of the suggested filename
}

// Output is the finished payload handed to the caller.
type Output struct {
	Body        []byte
	ContentType string
	Filename    string
	Pages       int
}

// Assembler turns ordered pages into one payload.
type Assembler interface {
	Assemble(ctx context.Context, pages []raster.Page, meta Meta) (*Output, error)
}

const (
	FormatPDF = "pdf"
	FormatZip = "zip"
)

// ForFormat resolves a requested format. An empty format means PDF.
func ForFormat(format string) (Assembler, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatPDF:
		return NewPDFAssembler(), nil
	case FormatZip:
		return nil, &AssemblyError{Format: FormatZip, Err: ErrUnsupportedFormat}
	default:
		return nil, &AssemblyError{Format: format, Err: ErrUnknownFormat}
	}
}
