package layout

import (
	"strings"

	"github.com/ivlev/carousel/internal/fonts"
	"github.com/ivlev/carousel/internal/model"
)

// RequiredFonts lists the font resources a slide with design d draws with:
// the heading family in bold and the body family in regular.
func RequiredFonts(d model.DesignSpec) []fonts.Key {
	return []fonts.Key{
		{Family: strings.TrimSpace(d.Fonts.Heading), Weight: WeightBold},
		{Family: strings.TrimSpace(d.Fonts.Body), Weight: WeightRegular},
	}
}

// ProjectFonts is RequiredFonts over every slide's effective design, deduped.
func ProjectFonts(p *model.Project) []fonts.Key {
	var keys []fonts.Key
	for i := range p.Slides {
		keys = append(keys, RequiredFonts(p.EffectiveDesign(i))...)
	}
	return fonts.Dedupe(keys)
}

// GlyphText returns every glyph the project will draw, for font subsetting.
func GlyphText(p *model.Project) string {
	texts := []string{p.Author.Name, Handle(p.Author)}
	for i, s := range p.Slides {
		c := s.Content
		texts = append(texts, c.Title, c.Subtitle, c.Body, c.CTAText, Counter(i, len(p.Slides)))
		for _, el := range s.Elements {
			texts = append(texts, el.Content)
		}
	}
	// Word wrap joins words with a single space.
	texts = append(texts, " ")
	return fonts.Glyphs(texts...)
}

// ImageURLs lists every image the project references, in slide order.
func ImageURLs(p *model.Project) []string {
	var urls []string
	for i, s := range p.Slides {
		if s.Content.ImageURL != "" {
			urls = append(urls, s.Content.ImageURL)
		}
		if bg := p.EffectiveDesign(i).Background; bg.PatternType == model.PatternImage && bg.Value != "" {
			urls = append(urls, bg.Value)
		}
	}
	return urls
}
