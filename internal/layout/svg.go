package layout

import (
	"math"
	"strconv"
	"strings"

	"github.com/ivlev/carousel/internal/model"
)

// num formats a coordinate with at most two decimals. Output never depends on
// float printing quirks, which keeps equal inputs byte-identical.
func num(v float64) string {
	v = math.Round(v*100) / 100
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// svgDoc writes one full-canvas SVG layer.
type svgDoc struct {
	b strings.Builder
}

func newSVG(w, h int) *svgDoc {
	d := &svgDoc{}
	d.b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="`)
	d.b.WriteString(strconv.Itoa(w))
	d.b.WriteString(`" height="`)
	d.b.WriteString(strconv.Itoa(h))
	d.b.WriteString(`" viewBox="0 0 `)
	d.b.WriteString(strconv.Itoa(w))
	d.b.WriteString(" ")
	d.b.WriteString(strconv.Itoa(h))
	d.b.WriteString(`">`)
	return d
}

func fillAttrs(c model.Color, opacity float64) string {
	s := `fill="` + c.Hex() + `"`
	if a := c.Opacity() * opacity; a < 1 {
		s += ` fill-opacity="` + num(a) + `"`
	}
	return s
}

func (d *svgDoc) rect(x, y, w, h, r float64, c model.Color) {
	d.b.WriteString(`<rect x="` + num(x) + `" y="` + num(y) + `" width="` + num(w) + `" height="` + num(h) + `"`)
	if r > 0 {
		d.b.WriteString(` rx="` + num(r) + `" ry="` + num(r) + `"`)
	}
	d.b.WriteString(" " + fillAttrs(c, 1) + "/>")
}

func (d *svgDoc) openGroup(c model.Color, opacity float64) {
	d.b.WriteString("<g " + fillAttrs(c, opacity) + ">")
}

func (d *svgDoc) closeGroup() {
	d.b.WriteString("</g>")
}

// circle inherits its fill from the enclosing group.
func (d *svgDoc) circle(cx, cy, r float64) {
	d.b.WriteString(`<circle cx="` + num(cx) + `" cy="` + num(cy) + `" r="` + num(r) + `"/>`)
}

func (d *svgDoc) path(p *pathData, c model.Color) {
	if p.empty() {
		return
	}
	d.b.WriteString(`<path d="` + p.String() + `" fill-rule="nonzero" ` + fillAttrs(c, 1) + "/>")
}

func (d *svgDoc) bytes() []byte {
	d.b.WriteString("</svg>")
	return []byte(d.b.String())
}

// pathData accumulates SVG path commands in absolute coordinates.
type pathData struct {
	b strings.Builder
}

func (p *pathData) empty() bool {
	return p.b.Len() == 0
}

func (p *pathData) cmd(c byte, pts ...float64) {
	if p.b.Len() > 0 {
		p.b.WriteByte(' ')
	}
	p.b.WriteByte(c)
	for i, v := range pts {
		if i > 0 {
			p.b.WriteByte(' ')
		}
		p.b.WriteString(num(v))
	}
}

func (p *pathData) moveTo(x, y float64) { p.cmd('M', x, y) }
func (p *pathData) lineTo(x, y float64) { p.cmd('L', x, y) }
func (p *pathData) quadTo(x1, y1, x, y float64) {
	p.cmd('Q', x1, y1, x, y)
}
func (p *pathData) cubeTo(x1, y1, x2, y2, x, y float64) {
	p.cmd('C', x1, y1, x2, y2, x, y)
}
func (p *pathData) close() { p.cmd('Z') }

// square adds a closed axis-aligned square.
func (p *pathData) square(x, y, s float64) {
	p.moveTo(x, y)
	p.lineTo(x+s, y)
	p.lineTo(x+s, y+s)
	p.lineTo(x, y+s)
	p.close()
}

func (p *pathData) String() string {
	return p.b.String()
}
