package layout

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/carousel/internal/fonts"
	"github.com/ivlev/carousel/internal/model"
)

// face shapes text in one font at one pixel size. A face owns its sfnt.Buffer
// and must not be shared between goroutines.
type face struct {
	font    *sfnt.Font
	buf     sfnt.Buffer
	ppem    fixed.Int26_6
	ascent  float64
	descent float64
}

func newFace(f *sfnt.Font, size float64) (*face, error) {
	fc := &face{font: f, ppem: fixed.Int26_6(math.Round(size * 64))}
	m, err := f.Metrics(&fc.buf, fc.ppem, font.HintingNone)
	if err != nil {
		return nil, err
	}
	fc.ascent = fix(m.Ascent)
	fc.descent = fix(m.Descent)
	return fc, nil
}

func fix(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

func (fc *face) glyph(r rune) sfnt.GlyphIndex {
	gi, err := fc.font.GlyphIndex(&fc.buf, r)
	if err != nil {
		return 0
	}
	return gi
}

// walk visits each glyph of s with its pen position, applying kerning
// between pairs, and returns the total advance.
func (fc *face) walk(s string, fn func(gi sfnt.GlyphIndex, pen fixed.Int26_6) error) (fixed.Int26_6, error) {
	var (
		pen   fixed.Int26_6
		prev  sfnt.GlyphIndex
		first = true
	)
	for _, r := range s {
		gi := fc.glyph(r)
		if !first {
			if k, err := fc.font.Kern(&fc.buf, prev, gi, fc.ppem, font.HintingNone); err == nil {
				pen += k
			}
		}
		if fn != nil {
			if err := fn(gi, pen); err != nil {
				return pen, err
			}
		}
		adv, err := fc.font.GlyphAdvance(&fc.buf, gi, fc.ppem, font.HintingNone)
		if err != nil {
			return pen, err
		}
		pen += adv
		prev, first = gi, false
	}
	return pen, nil
}

func (fc *face) width(s string) float64 {
	w, _ := fc.walk(s, nil)
	return fix(w)
}

// outline appends the glyph outlines of s to p, with the pen starting at x
// on the given baseline.
func (fc *face) outline(p *pathData, s string, x, baseline float64) error {
	_, err := fc.walk(s, func(gi sfnt.GlyphIndex, pen fixed.Int26_6) error {
		segs, err := fc.font.LoadGlyph(&fc.buf, gi, fc.ppem, nil)
		if err != nil {
			return fmt.Errorf("glyph %d: %w", gi, err)
		}
		ox := x + fix(pen)
		open := false
		for _, seg := range segs {
			a := seg.Args
			switch seg.Op {
			case sfnt.SegmentOpMoveTo:
				if open {
					p.close()
				}
				p.moveTo(ox+fix(a[0].X), baseline+fix(a[0].Y))
				open = true
			case sfnt.SegmentOpLineTo:
				p.lineTo(ox+fix(a[0].X), baseline+fix(a[0].Y))
			case sfnt.SegmentOpQuadTo:
				p.quadTo(ox+fix(a[0].X), baseline+fix(a[0].Y), ox+fix(a[1].X), baseline+fix(a[1].Y))
			case sfnt.SegmentOpCubeTo:
				p.cubeTo(ox+fix(a[0].X), baseline+fix(a[0].Y), ox+fix(a[1].X), baseline+fix(a[1].Y), ox+fix(a[2].X), baseline+fix(a[2].Y))
			}
		}
		if open {
			p.close()
		}
		return nil
	})
	return err
}

// wrap breaks text into lines no wider than max using greedy word wrap.
// Explicit newlines always break; a word wider than max is split by runes.
func (fc *face) wrap(text string, max float64) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := ""
		for _, w := range words {
			if line != "" {
				if cand := line + " " + w; fc.width(cand) <= max {
					line = cand
					continue
				}
				lines = append(lines, line)
				line = ""
			}
			pieces := fc.split(w, max)
			lines = append(lines, pieces[:len(pieces)-1]...)
			line = pieces[len(pieces)-1]
		}
		lines = append(lines, line)
	}
	return lines
}

func (fc *face) split(word string, max float64) []string {
	if fc.width(word) <= max {
		return []string{word}
	}
	var (
		out []string
		cur []rune
	)
	for _, r := range word {
		if len(cur) > 0 && fc.width(string(append(cur, r))) > max {
			out = append(out, string(cur))
			cur = cur[:0]
		}
		cur = append(cur, r)
	}
	return append(out, string(cur))
}

// faceCache hands out faces for one Render call.
type faceCache struct {
	set   *fonts.Set
	faces map[faceKey]*face
}

type faceKey struct {
	key  fonts.Key
	size float64
}

func newFaceCache(set *fonts.Set) *faceCache {
	return &faceCache{set: set, faces: make(map[faceKey]*face)}
}

func (c *faceCache) get(k fonts.Key, size float64) (*face, error) {
	fk := faceKey{k, size}
	if fc, ok := c.faces[fk]; ok {
		return fc, nil
	}
	f, ok := c.set.Face(k)
	if !ok {
		return nil, &fonts.FontResolutionError{Key: k, Err: errNotLoaded}
	}
	fc, err := newFace(f, size)
	if err != nil {
		return nil, &fonts.FontResolutionError{Key: k, Err: err}
	}
	c.faces[fk] = fc
	return fc, nil
}

type align int

const (
	alignLeft align = iota
	alignCenter
	alignRight
)

// textBlock is a wrapped run of text in one face and color.
type textBlock struct {
	face       *face
	color      model.Color
	lines      []string
	lineHeight float64
}

func (b *textBlock) height() float64 {
	return float64(len(b.lines)) * b.lineHeight
}

// draw lays the lines out top-down from y inside [x, x+w] and returns the
// widest line.
func (b *textBlock) draw(d *svgDoc, x, y, w float64, al align) (float64, error) {
	var (
		p      pathData
		widest float64
	)
	// Center the glyph box inside each line box.
	inset := (b.lineHeight - (b.face.ascent + b.face.descent)) / 2
	for i, line := range b.lines {
		if line == "" {
			continue
		}
		lw := b.face.width(line)
		if lw > widest {
			widest = lw
		}
		lx := x
		switch al {
		case alignCenter:
			lx = x + (w-lw)/2
		case alignRight:
			lx = x + w - lw
		}
		baseline := y + float64(i)*b.lineHeight + inset + b.face.ascent
		if err := b.face.outline(&p, line, lx, baseline); err != nil {
			return 0, err
		}
	}
	d.path(&p, b.color)
	return widest, nil
}
