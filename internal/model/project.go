package model

// Project is an immutable snapshot of a carousel handed to the export pipeline.
type Project struct {
	Slides []Slide     `json:"slides" yaml:"slides"`
	Design *DesignSpec `json:"design" yaml:"design"`
	Author Author      `json:"author" yaml:"author"`
}

// Author is stamped onto the footer of every slide.
type Author struct {
	Handle     string `json:"handle" yaml:"handle"`
	Name       string `json:"name,omitempty" yaml:"name,omitempty"`
	ProfileURL string `json:"profile_url,omitempty" yaml:"profile_url,omitempty"`
}

// DesignSpec holds the visual tokens shared by all slides of a project.
type DesignSpec struct {
	ColorPalette Palette    `json:"colorPalette" yaml:"colorPalette"`
	Fonts        Fonts      `json:"fonts" yaml:"fonts"`
	Background   Background `json:"background" yaml:"background"`
	AspectRatio  string     `json:"aspectRatio" yaml:"aspectRatio"`
	ThemeID      string     `json:"themeId,omitempty" yaml:"themeId,omitempty"`
}

type Palette struct {
	Background string `json:"background" yaml:"background"`
	Primary    string `json:"primary" yaml:"primary"`
	Secondary  string `json:"secondary" yaml:"secondary"`
	Accent     string `json:"accent" yaml:"accent"`
	Text       string `json:"text" yaml:"text"`
}

type Fonts struct {
	Heading string `json:"heading" yaml:"heading"`
	Body    string `json:"body" yaml:"body"`
}

// Pattern types for Background.PatternType. An empty value means PatternNone.
const (
	PatternNone  = "none"
	PatternDots  = "dots"
	PatternImage = "image"
)

type Background struct {
	PatternType    string   `json:"patternType" yaml:"patternType"`
	PatternColor   string   `json:"patternColor,omitempty" yaml:"patternColor,omitempty"`
	PatternOpacity *float64 `json:"patternOpacity,omitempty" yaml:"patternOpacity,omitempty"`
	Value          string   `json:"value,omitempty" yaml:"value,omitempty"` // image url for PatternImage
}

// SlideType affects layout emphasis. Unknown values lay out like SlideContent.
type SlideType string

const (
	SlideIntro   SlideType = "intro"
	SlideContent SlideType = "content"
	SlideOutro   SlideType = "outro"
)

type Slide struct {
	ID              string           `json:"id" yaml:"id"`
	Type            SlideType        `json:"type" yaml:"type"`
	Content         Content          `json:"content" yaml:"content"`
	DesignOverrides *DesignOverrides `json:"design_overrides,omitempty" yaml:"design_overrides,omitempty"`
	Elements        []Element        `json:"elements,omitempty" yaml:"elements,omitempty"`
}

// Content fields are all optional; an empty field omits its region.
type Content struct {
	Title    string `json:"title,omitempty" yaml:"title,omitempty"`
	Subtitle string `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Body     string `json:"body,omitempty" yaml:"body,omitempty"`
	ImageURL string `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	CTAText  string `json:"cta_text,omitempty" yaml:"cta_text,omitempty"`
}

// DesignOverrides are per-slide replacements for project design tokens.
type DesignOverrides struct {
	BackgroundColor string `json:"background_color,omitempty" yaml:"background_color,omitempty"`
	TextColor       string `json:"text_color,omitempty" yaml:"text_color,omitempty"`
	PrimaryColor    string `json:"primary_color,omitempty" yaml:"primary_color,omitempty"`
	AccentColor     string `json:"accent_color,omitempty" yaml:"accent_color,omitempty"`

	ColorPalette *Palette    `json:"colorPalette,omitempty" yaml:"colorPalette,omitempty"`
	Fonts        *Fonts      `json:"fonts,omitempty" yaml:"fonts,omitempty"`
	Background   *Background `json:"background,omitempty" yaml:"background,omitempty"`
}

// ElementText is the only overlay element type rendered today.
const ElementText = "text"

// Element is a free-form overlay object placed by the user above the content.
type Element struct {
	ID      string       `json:"id,omitempty" yaml:"id,omitempty"`
	Type    string       `json:"type" yaml:"type"`
	Content string       `json:"content" yaml:"content"`
	Style   ElementStyle `json:"style" yaml:"style"`
}

type ElementStyle struct {
	FontSize   float64 `json:"fontSize" yaml:"fontSize"`
	Color      string  `json:"color,omitempty" yaml:"color,omitempty"`
	X          float64 `json:"x" yaml:"x"`
	Y          float64 `json:"y" yaml:"y"`
	FontWeight int     `json:"fontWeight,omitempty" yaml:"fontWeight,omitempty"`
}
