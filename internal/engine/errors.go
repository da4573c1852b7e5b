package engine

import (
	"context"
	"errors"

	"github.com/ivlev/carousel/internal/document"
	"github.com/ivlev/carousel/internal/fonts"
	"github.com/ivlev/carousel/internal/model"
	"github.com/ivlev/carousel/internal/raster"
)

// Kind is the category of an export failure, for callers that map errors to
// responses.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnsupported
	KindFont
	KindRaster
	KindAssembly
	KindTimeout
	KindCanceled
)

var kindNames = [...]string{
	KindInternal:    "internal",
	KindValidation:  "validation",
	KindUnsupported: "unsupported_format",
	KindFont:        "font_resolution",
	KindRaster:      "rasterization",
	KindAssembly:    "assembly",
	KindTimeout:     "timeout",
	KindCanceled:    "canceled",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Classify maps an error returned by Export to its Kind. Context errors win
// over the component error that surfaced them.
func Classify(err error) Kind {
	var (
		verr *model.ValidationError
		ferr *fonts.FontResolutionError
		rerr *raster.RasterizationError
		aerr *document.AssemblyError
	)
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.As(err, &verr):
		return KindValidation
	case errors.Is(err, document.ErrUnsupportedFormat), errors.Is(err, document.ErrUnknownFormat):
		return KindUnsupported
	case errors.As(err, &ferr):
		return KindFont
	case errors.As(err, &rerr):
		return KindRaster
	case errors.As(err, &aerr):
		return KindAssembly
	default:
		return KindInternal
	}
}
