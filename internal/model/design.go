package model

// Canvas is the output pixel size of every slide in a project.
type Canvas struct {
	Width  int
	Height int
}

// DefaultAspectRatio is used for empty and unrecognized ratios.
const DefaultAspectRatio = "1:1"

var canvasSizes = map[string]Canvas{
	"1:1":  {Width: 1080, Height: 1080},
	"4:5":  {Width: 1080, Height: 1350},
	"9:16": {Width: 1080, Height: 1920},
}

// CanvasFor maps an aspect ratio to its canvas. Unknown values fall back to 1:1.
func CanvasFor(aspectRatio string) Canvas {
	if c, ok := canvasSizes[aspectRatio]; ok {
		return c
	}
	return canvasSizes[DefaultAspectRatio]
}

// Effective returns the design for one slide: the project design with the
// slide's overrides merged on top. Each override struct that is present
// replaces the project value as a whole; the flat color fields are applied
// afterwards and replace single palette entries. AspectRatio and ThemeID are
// never overridden so that all pages of a document share one size.
func (d DesignSpec) Effective(o *DesignOverrides) DesignSpec {
	out := d
	if o == nil {
		return out
	}
	if o.ColorPalette != nil {
		out.ColorPalette = *o.ColorPalette
	}
	if o.Fonts != nil {
		out.Fonts = *o.Fonts
	}
	if o.Background != nil {
		out.Background = *o.Background
	}
	if o.BackgroundColor != "" {
		out.ColorPalette.Background = o.BackgroundColor
	}
	if o.TextColor != "" {
		out.ColorPalette.Text = o.TextColor
	}
	if o.PrimaryColor != "" {
		out.ColorPalette.Primary = o.PrimaryColor
	}
	if o.AccentColor != "" {
		out.ColorPalette.Accent = o.AccentColor
	}
	return out
}

// EffectiveDesign resolves the design of slide i of the project.
func (p *Project) EffectiveDesign(i int) DesignSpec {
	return p.Design.Effective(p.Slides[i].DesignOverrides)
}

// Canvas returns the canvas shared by all slides of the project.
func (p *Project) Canvas() Canvas {
	if p.Design == nil {
		return CanvasFor(DefaultAspectRatio)
	}
	return CanvasFor(p.Design.AspectRatio)
}
