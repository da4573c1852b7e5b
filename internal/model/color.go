package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is a parsed design color: an sRGB color plus straight alpha in [0,1].
type Color struct {
	colorful.Color
	Alpha float64
}

var namedColors = map[string]string{
	"black":   "#000000",
	"white":   "#ffffff",
	"red":     "#ff0000",
	"green":   "#008000",
	"blue":    "#0000ff",
	"yellow":  "#ffff00",
	"orange":  "#ffa500",
	"purple":  "#800080",
	"gray":    "#808080",
	"grey":    "#808080",
	"silver":  "#c0c0c0",
	"navy":    "#000080",
	"teal":    "#008080",
	"maroon":  "#800000",
	"olive":   "#808000",
	"lime":    "#00ff00",
	"aqua":    "#00ffff",
	"cyan":    "#00ffff",
	"fuchsia": "#ff00ff",
	"magenta": "#ff00ff",
	"pink":    "#ffc0cb",
}

// ParseColor accepts #rgb, #rrggbb, #rrggbbaa, rgb(), rgba() and basic CSS names.
func ParseColor(s string) (Color, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case v == "":
		return Color{}, fmt.Errorf("empty color")
	case v == "transparent":
		return Color{}, nil
	case namedColors[v] != "":
		return parseHex(namedColors[v][1:], s)
	case strings.HasPrefix(v, "#"):
		return parseHex(v[1:], s)
	case strings.HasPrefix(v, "rgb(") || strings.HasPrefix(v, "rgba("):
		return parseFunc(v, s)
	}
	return Color{}, fmt.Errorf("unsupported color %q", s)
}

// MustParseColor is ParseColor for literals known to be valid. It panics
// otherwise.
func MustParseColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

func parseHex(h, orig string) (Color, error) {
	if _, err := strconv.ParseUint(h, 16, 32); err != nil {
		return Color{}, fmt.Errorf("invalid hex color %q", orig)
	}
	alpha := 1.0
	switch len(h) {
	case 3, 6:
	case 8:
		a, err := strconv.ParseUint(h[6:], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("invalid hex color %q", orig)
		}
		h, alpha = h[:6], float64(a)/255
	default:
		return Color{}, fmt.Errorf("invalid hex color %q", orig)
	}
	c, err := colorful.Hex("#" + h)
	if err != nil {
		return Color{}, fmt.Errorf("invalid hex color %q", orig)
	}
	return Color{Color: c, Alpha: alpha}, nil
}

func parseFunc(v, orig string) (Color, error) {
	open := strings.IndexByte(v, '(')
	if !strings.HasSuffix(v, ")") {
		return Color{}, fmt.Errorf("invalid color %q", orig)
	}
	parts := strings.Split(v[open+1:len(v)-1], ",")
	if len(parts) != 3 && len(parts) != 4 {
		return Color{}, fmt.Errorf("invalid color %q", orig)
	}

	var ch [3]float64
	for i := range ch {
		n, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil || n < 0 || n > 255 {
			return Color{}, fmt.Errorf("invalid color channel in %q", orig)
		}
		ch[i] = n / 255
	}

	alpha := 1.0
	if len(parts) == 4 {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || a < 0 || a > 1 {
			return Color{}, fmt.Errorf("invalid alpha in %q", orig)
		}
		alpha = a
	}
	return Color{Color: colorful.Color{R: ch[0], G: ch[1], B: ch[2]}, Alpha: alpha}, nil
}

// Opacity returns alpha in [0,1]. Hex, inherited from colorful.Color,
// returns #rrggbb without it.
func (c Color) Opacity() float64 {
	return c.Alpha
}

// Over composites c onto an opaque background.
func (c Color) Over(bg Color) Color {
	return Color{Color: bg.Color.BlendRgb(c.Color, c.Alpha), Alpha: 1}
}
