// Package layout turns one slide and its effective design into vector
// artwork at the slide's canvas size.
package layout

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"

	"github.com/ivlev/carousel/internal/assets"
	"github.com/ivlev/carousel/internal/fonts"
	"github.com/ivlev/carousel/internal/model"
)

var errNotLoaded = errors.New("font was not loaded for this job")

// Font weights used by the layout. Element weights snap to one of them.
const (
	WeightRegular = 400
	WeightBold    = 700
)

const defaultPatternOpacity = 0.15

// Renderer holds the fixed layout metrics. The zero value is not usable;
// use New.
type Renderer struct {
	Padding      float64
	Gap          float64
	FooterHeight float64
	DotTile      float64
	DotRadius    float64
	ImageRadius  float64
	QRCode       bool
}

func New() *Renderer {
	return &Renderer{
		Padding:      60,
		Gap:          32,
		FooterHeight: 64,
		DotTile:      40,
		DotRadius:    3,
		ImageRadius:  24,
		QRCode:       true,
	}
}

// Input is everything needed to lay out one slide. Fonts must already hold
// every key RequiredFonts returns for Design; Images holds whatever loaded.
type Input struct {
	Slide  model.Slide
	Design model.DesignSpec
	Author model.Author
	Fonts  *fonts.Set
	Images assets.Images
	Index  int // zero based
	Total  int
}

type palette struct {
	background, primary, secondary, accent, text model.Color
}

func parsePalette(p model.Palette) (palette, error) {
	var out palette
	fields := []struct {
		dst  *model.Color
		name string
		v    string
	}{
		{&out.background, "background", p.Background},
		{&out.primary, "primary", p.Primary},
		{&out.secondary, "secondary", p.Secondary},
		{&out.accent, "accent", p.Accent},
		{&out.text, "text", p.Text},
	}
	for _, f := range fields {
		c, err := model.ParseColor(f.v)
		if err != nil {
			return out, fmt.Errorf("palette %s: %w", f.name, err)
		}
		*f.dst = c
	}
	return out, nil
}

// block is one entry of the content stack.
type block struct {
	name string
	text *textBlock
	img  image.Image
	h    float64
}

// Render lays out one slide. It performs no I/O.
func (r *Renderer) Render(in Input) (*Artwork, error) {
	canvas := model.CanvasFor(in.Design.AspectRatio)
	W, H := float64(canvas.Width), float64(canvas.Height)

	pal, err := parsePalette(in.Design.ColorPalette)
	if err != nil {
		return nil, err
	}
	heading := fonts.Key{Family: strings.TrimSpace(in.Design.Fonts.Heading), Weight: WeightBold}
	body := fonts.Key{Family: strings.TrimSpace(in.Design.Fonts.Body), Weight: WeightRegular}
	faces := newFaceCache(in.Fonts)

	art := &Artwork{
		Width:  canvas.Width,
		Height: canvas.Height,
		Boxes:  make(map[string]Box),
	}

	// Background: flat color, then the pattern.
	base := newSVG(canvas.Width, canvas.Height)
	base.rect(0, 0, W, H, 0, pal.background)
	bg := in.Design.Background
	switch bg.PatternType {
	case model.PatternDots:
		c := pal.text
		if bg.PatternColor != "" {
			if c, err = model.ParseColor(bg.PatternColor); err != nil {
				return nil, fmt.Errorf("pattern color: %w", err)
			}
		}
		opacity := defaultPatternOpacity
		if bg.PatternOpacity != nil {
			opacity = *bg.PatternOpacity
		}
		r.dots(base, W, H, c, opacity)
	}
	art.Layers = append(art.Layers, Layer{SVG: base.bytes()})
	if bg.PatternType == model.PatternImage {
		if img, ok := in.Images[bg.Value]; ok {
			art.Layers = append(art.Layers, Layer{Image: img, Rect: image.Rect(0, 0, canvas.Width, canvas.Height)})
		}
	}

	pad := r.Padding
	footer := Box{X: pad, Y: H - pad - r.FooterHeight, W: W - 2*pad, H: r.FooterHeight}
	area := Box{X: pad, Y: pad, W: W - 2*pad, H: footer.Y - r.Gap - pad}

	intro := in.Slide.Type == model.SlideIntro
	al := alignLeft
	if intro {
		al = alignCenter
	}

	blocks, err := r.stack(in, faces, heading, body, pal, area.W)
	if err != nil {
		return nil, err
	}

	total := 0.0
	for i, b := range blocks {
		if i > 0 {
			total += r.Gap
		}
		total += b.h
	}
	y := area.Y
	if intro && total < area.H {
		y += (area.H - total) / 2
	}
	art.Boxes["content"] = Box{X: area.X, Y: y, W: area.W, H: total}

	fg := newSVG(canvas.Width, canvas.Height)
	for i, b := range blocks {
		if i > 0 {
			y += r.Gap
		}
		box := Box{X: area.X, Y: y, W: area.W, H: b.h}
		art.Boxes[b.name] = box
		if b.img != nil {
			rect := image.Rect(round(box.X), round(box.Y), round(box.X+box.W), round(box.Y+box.H))
			art.Layers = append(art.Layers, Layer{Image: b.img, Rect: rect, Radius: r.ImageRadius})
		} else if _, err := b.text.draw(fg, box.X, box.Y, box.W, al); err != nil {
			return nil, fmt.Errorf("%s: %w", b.name, err)
		}
		y += b.h
	}

	art.Boxes["footer"] = footer
	if err := r.footer(fg, in, faces, heading, body, pal, footer); err != nil {
		return nil, fmt.Errorf("footer: %w", err)
	}

	if err := r.elements(fg, art, in, faces, heading, body, pal); err != nil {
		return nil, err
	}

	art.Layers = append(art.Layers, Layer{SVG: fg.bytes()})
	return art, nil
}

// stack builds the content blocks in order. Empty fields and images that
// failed to load produce no block.
func (r *Renderer) stack(in Input, faces *faceCache, heading, body fonts.Key, pal palette, width float64) ([]block, error) {
	c := in.Slide.Content
	titleSize := 56.0
	if in.Slide.Type == model.SlideIntro {
		titleSize = 72
	}

	texts := []struct {
		name  string
		text  string
		key   fonts.Key
		size  float64
		lh    float64
		color model.Color
	}{
		{"title", c.Title, heading, titleSize, 1.15, pal.primary},
		{"subtitle", c.Subtitle, body, 36, 1.3, pal.secondary},
		{"image", "", fonts.Key{}, 0, 0, model.Color{}},
		{"body", c.Body, body, 34, 1.4, pal.text},
		{"cta", c.CTAText, heading, 36, 1.3, pal.accent},
	}

	var blocks []block
	for _, t := range texts {
		if t.name == "image" {
			if c.ImageURL == "" {
				continue
			}
			img, ok := in.Images[c.ImageURL]
			if !ok {
				continue
			}
			blocks = append(blocks, block{name: "image", img: img, h: math.Round(width * 9 / 16)})
			continue
		}
		text := strings.TrimSpace(t.text)
		if text == "" {
			continue
		}
		fc, err := faces.get(t.key, t.size)
		if err != nil {
			return nil, err
		}
		tb := &textBlock{face: fc, color: t.color, lines: fc.wrap(text, width), lineHeight: t.size * t.lh}
		blocks = append(blocks, block{name: t.name, text: tb, h: tb.height()})
	}
	return blocks, nil
}

func (r *Renderer) dots(d *svgDoc, W, H float64, c model.Color, opacity float64) {
	if opacity <= 0 || r.DotTile <= 0 {
		return
	}
	d.openGroup(c, opacity)
	for y := r.DotTile / 2; y < H; y += r.DotTile {
		for x := r.DotTile / 2; x < W; x += r.DotTile {
			d.circle(x, y, r.DotRadius)
		}
	}
	d.closeGroup()
}

// Handle returns the author handle as displayed, with a single leading @.
func Handle(a model.Author) string {
	h := strings.TrimSpace(a.Handle)
	if h == "" {
		return ""
	}
	return "@" + strings.TrimLeft(h, "@")
}

// Counter is the slide position shown in the footer.
func Counter(index, total int) string {
	return strconv.Itoa(index+1) + "/" + strconv.Itoa(total)
}

func (r *Renderer) footer(d *svgDoc, in Input, faces *faceCache, heading, body fonts.Key, pal palette, box Box) error {
	right := box.X + box.W

	if r.QRCode && in.Author.ProfileURL != "" {
		side, err := qrModules(d, in.Author.ProfileURL, right, box.Y, box.H, pal.text)
		if err != nil {
			return err
		}
		right -= side + 24
	}

	if in.Total > 0 {
		fc, err := faces.get(body, 22)
		if err != nil {
			return err
		}
		tb := &textBlock{face: fc, color: pal.text, lines: []string{Counter(in.Index, in.Total)}, lineHeight: box.H}
		if _, err := tb.draw(d, box.X, box.Y, right-box.X, alignRight); err != nil {
			return err
		}
	}

	var lines []*textBlock
	if name := strings.TrimSpace(in.Author.Name); name != "" {
		fc, err := faces.get(heading, 26)
		if err != nil {
			return err
		}
		lines = append(lines, &textBlock{face: fc, color: pal.text, lines: []string{name}, lineHeight: 32})
	}
	if h := Handle(in.Author); h != "" {
		fc, err := faces.get(body, 22)
		if err != nil {
			return err
		}
		lines = append(lines, &textBlock{face: fc, color: pal.secondary, lines: []string{h}, lineHeight: 28})
	}
	total := 0.0
	for _, l := range lines {
		total += l.lineHeight
	}
	y := box.Y + (box.H-total)/2
	for _, l := range lines {
		if _, err := l.draw(d, box.X, y, right-box.X, alignLeft); err != nil {
			return err
		}
		y += l.lineHeight
	}
	return nil
}

// elements draws the free-form overlays last. Their y is the top of the
// first line.
func (r *Renderer) elements(d *svgDoc, art *Artwork, in Input, faces *faceCache, heading, body fonts.Key, pal palette) error {
	for i, el := range in.Slide.Elements {
		if el.Type != model.ElementText || strings.TrimSpace(el.Content) == "" {
			continue
		}
		size := el.Style.FontSize
		if size <= 0 {
			size = 32
		}
		key := body
		if el.Style.FontWeight >= 600 {
			key = heading
		}
		c := pal.text
		if el.Style.Color != "" {
			var err error
			if c, err = model.ParseColor(el.Style.Color); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		fc, err := faces.get(key, size)
		if err != nil {
			return err
		}
		tb := &textBlock{
			face:       fc,
			color:      c,
			lines:      strings.Split(strings.ReplaceAll(el.Content, "\r\n", "\n"), "\n"),
			lineHeight: fc.ascent + fc.descent,
		}
		w, err := tb.draw(d, el.Style.X, el.Style.Y, 0, alignLeft)
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		name := "element:" + strconv.Itoa(i)
		if el.ID != "" {
			name = "element:" + el.ID
		}
		art.Boxes[name] = Box{X: el.Style.X, Y: el.Style.Y, W: w, H: tb.height()}
	}
	return nil
}

func round(v float64) int {
	return int(math.Round(v))
}
