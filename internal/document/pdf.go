package document

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/ivlev/carousel/internal/raster"
)

const creator = "carousel"

// PDFAssembler writes one page per slide, 1px = 1pt, image edge to edge.
type PDFAssembler struct {
	// CreationDate is stamped into every document. The zero value uses a
	// fixed epoch so output is reproducible.
	CreationDate time.Time
}

func NewPDFAssembler() *PDFAssembler {
	return &PDFAssembler{}
}

func (a *PDFAssembler) Assemble(ctx context.Context, pages []raster.Page, meta Meta) (*Output, error) {
	if len(pages) == 0 {
		return nil, &AssemblyError{Format: FormatPDF, Err: fmt.Errorf("no pages")}
	}
	w, h := pages[0].Width, pages[0].Height
	for i, p := range pages {
		if p.Width != w || p.Height != h {
			return nil, &AssemblyError{Format: FormatPDF,
				Err: fmt.Errorf("page %d is %dx%d, document is %dx%d", i+1, p.Width, p.Height, w, h)}
		}
		if len(p.PNG) == 0 {
			return nil, &AssemblyError{Format: FormatPDF, Err: fmt.Errorf("page %d is empty", i+1)}
		}
	}

	size := gofpdf.SizeType{Wd: float64(w), Ht: float64(h)}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           size,
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCompression(true)

	created := a.CreationDate
	if created.IsZero() {
		created = time.Unix(0, 0).UTC()
	}
	pdf.SetCreationDate(created)
	pdf.SetCreator(creator, true)
	if meta.Title != "" {
		pdf.SetTitle(meta.Title, true)
	}
	if meta.Author != "" {
		pdf.SetAuthor(meta.Author, true)
	}

	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	for i, p := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := "slide" + strconv.Itoa(i+1)
		pdf.AddPage()
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(p.PNG))
		pdf.ImageOptions(name, 0, 0, float64(w), float64(h), false, opts, 0, "")
		if err := pdf.Error(); err != nil {
			return nil, &AssemblyError{Format: FormatPDF, Err: fmt.Errorf("page %d: %w", i+1, err)}
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &AssemblyError{Format: FormatPDF, Err: err}
	}

	slug := meta.Slug
	if slug == "" {
		slug = "carousel"
	}
	return &Output{
		Body:        buf.Bytes(),
		ContentType: "application/pdf",
		Filename:    slug + ".pdf",
		Pages:       len(pages),
	}, nil
}
