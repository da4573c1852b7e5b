package analyzer

import (
	"math"

	"github.com/ivlev/carousel/internal/model"
)

// ContrastChecker compares palette colors against the background using the
// WCAG 2 relative luminance contrast ratio.
type ContrastChecker struct {
	MinBody  float64 // body and subtitle text
	MinLarge float64 // titles and the call to action
}

func NewContrastChecker() *ContrastChecker {
	return &ContrastChecker{
		MinBody:  4.5,
		MinLarge: 3.0,
	}
}

func (c *ContrastChecker) Check(d model.DesignSpec) []Finding {
	bg, err := model.ParseColor(d.ColorPalette.Background)
	if err != nil {
		return nil
	}
	// Backgrounds are composited onto white paper.
	bg = bg.Over(model.MustParseColor("#ffffff"))

	roles := []struct {
		name, value string
		min         float64
	}{
		{"primary", d.ColorPalette.Primary, c.MinLarge},
		{"secondary", d.ColorPalette.Secondary, c.MinBody},
		{"text", d.ColorPalette.Text, c.MinBody},
		{"accent", d.ColorPalette.Accent, c.MinLarge},
	}

	var out []Finding
	for _, r := range roles {
		fg, err := model.ParseColor(r.value)
		if err != nil {
			continue
		}
		ratio := ContrastRatio(fg.Over(bg), bg)
		if ratio < r.min {
			out = append(out, Finding{
				Role:       r.name,
				Foreground: r.value,
				Background: d.ColorPalette.Background,
				Ratio:      math.Round(ratio*100) / 100,
				Minimum:    r.min,
			})
		}
	}
	return out
}

// ContrastRatio returns (L1+0.05)/(L2+0.05) for the lighter L1 and darker L2
// of two opaque colors. It ranges from 1 to 21.
func ContrastRatio(a, b model.Color) float64 {
	la, lb := luminance(a), luminance(b)
	if la < lb {
		la, lb = lb, la
	}
	return (la + 0.05) / (lb + 0.05)
}

func luminance(c model.Color) float64 {
	r, g, b := c.Clamped().LinearRgb()
	return 0.2126*r + 0.7152*g + 0.0722*b
}
