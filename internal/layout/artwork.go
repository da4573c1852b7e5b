package layout

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"strconv"
)

// Box is a laid-out region in canvas pixels.
type Box struct {
	X, Y, W, H float64
}

func (b Box) Bottom() float64 {
	return b.Y + b.H
}

// Layer is one step of the paint order: either a full-canvas SVG document or
// a raster image placed into Rect, cover-fitted and clipped to rounded
// corners of the given Radius.
type Layer struct {
	SVG []byte

	Image  image.Image
	Rect   image.Rectangle
	Radius float64
}

func (l Layer) IsImage() bool {
	return l.Image != nil
}

// Artwork is the vector description of one slide. Layers are painted in
// order onto a Width x Height canvas.
type Artwork struct {
	Width  int
	Height int
	Layers []Layer
	Boxes  map[string]Box
}

// SVG flattens the artwork into one self-contained SVG document, inlining
// image layers as PNG data URIs.
func (a *Artwork) SVG() ([]byte, error) {
	var b bytes.Buffer
	w, h := strconv.Itoa(a.Width), strconv.Itoa(a.Height)
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="` + w + `" height="` + h +
		`" viewBox="0 0 ` + w + " " + h + `">`)

	for i, l := range a.Layers {
		if !l.IsImage() {
			b.Write(l.SVG)
			continue
		}
		var enc bytes.Buffer
		if err := png.Encode(&enc, l.Image); err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		r := l.Rect
		x, y := strconv.Itoa(r.Min.X), strconv.Itoa(r.Min.Y)
		rw, rh := strconv.Itoa(r.Dx()), strconv.Itoa(r.Dy())
		clip := "clip" + strconv.Itoa(i)
		fmt.Fprintf(&b, `<clipPath id="%s"><rect x="%s" y="%s" width="%s" height="%s" rx="%s"/></clipPath>`,
			clip, x, y, rw, rh, num(l.Radius))
		fmt.Fprintf(&b, `<image x="%s" y="%s" width="%s" height="%s" preserveAspectRatio="xMidYMid slice" clip-path="url(#%s)" href="data:image/png;base64,%s"/>`,
			x, y, rw, rh, clip, base64.StdEncoding.EncodeToString(enc.Bytes()))
	}

	b.WriteString("</svg>")
	return b.Bytes(), nil
}
