package layout

import (
	"bytes"
	"encoding/xml"
	"errors"
	"image"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"

	"github.com/ivlev/carousel/internal/assets"
	"github.com/ivlev/carousel/internal/fonts"
	"github.com/ivlev/carousel/internal/model"
)

func goFonts(t *testing.T) *fonts.Set {
	t.Helper()
	reg, err := sfnt.Parse(goregular.TTF)
	require.NoError(t, err)
	bold, err := sfnt.Parse(gobold.TTF)
	require.NoError(t, err)
	return fonts.NewSet(map[fonts.Key]*sfnt.Font{
		{Family: "Go", Weight: WeightRegular}: reg,
		{Family: "Go", Weight: WeightBold}:    bold,
	})
}

func design() model.DesignSpec {
	return model.DesignSpec{
		ColorPalette: model.Palette{
			Background: "#ffffff",
			Primary:    "#112233",
			Secondary:  "#445566",
			Accent:     "#ff5500",
			Text:       "#000000",
		},
		Fonts:       model.Fonts{Heading: "Go", Body: "Go"},
		AspectRatio: "1:1",
	}
}

func input(t *testing.T, s model.Slide) Input {
	return Input{
		Slide:  s,
		Design: design(),
		Author: model.Author{Handle: "carol", Name: "Carol"},
		Fonts:  goFonts(t),
		Index:  0,
		Total:  3,
	}
}

func TestEmptyBodyReflows(t *testing.T) {
	r := New()
	full, err := r.Render(input(t, model.Slide{ID: "a", Content: model.Content{
		Title: "Title", Body: "Some body text", CTAText: "Follow",
	}}))
	require.NoError(t, err)
	noBody, err := r.Render(input(t, model.Slide{ID: "a", Content: model.Content{
		Title: "Title", CTAText: "Follow",
	}}))
	require.NoError(t, err)

	_, ok := noBody.Boxes["body"]
	assert.False(t, ok)
	assert.Contains(t, full.Boxes, "body")

	title, cta := noBody.Boxes["title"], noBody.Boxes["cta"]
	assert.InDelta(t, title.Bottom()+r.Gap, cta.Y, 0.001)
	assert.Less(t, cta.Y, full.Boxes["cta"].Y)
}

func TestIntroIsCentered(t *testing.T) {
	r := New()
	s := model.Slide{ID: "a", Type: model.SlideIntro, Content: model.Content{Title: "Hello", Subtitle: "World"}}
	art, err := r.Render(input(t, s))
	require.NoError(t, err)

	content := art.Boxes["content"]
	areaTop := r.Padding
	areaBottom := art.Boxes["footer"].Y - r.Gap
	assert.InDelta(t, content.Y-areaTop, areaBottom-content.Bottom(), 0.001)

	s.Type = model.SlideContent
	art, err = r.Render(input(t, s))
	require.NoError(t, err)
	assert.Equal(t, r.Padding, art.Boxes["content"].Y)
}

func TestRenderIsDeterministic(t *testing.T) {
	r := New()
	in := input(t, model.Slide{ID: "a", Content: model.Content{
		Title: "Deterministic", Body: "Same input gives the same bytes, every time.",
	}, Elements: []model.Element{{Type: model.ElementText, Content: "tag", Style: model.ElementStyle{X: 700, Y: 80, FontSize: 28}}}})
	in.Author.ProfileURL = "https://example.com/carol"

	a, err := r.Render(in)
	require.NoError(t, err)
	b, err := r.Render(in)
	require.NoError(t, err)

	sa, err := a.SVG()
	require.NoError(t, err)
	sb, err := b.SVG()
	require.NoError(t, err)
	assert.Equal(t, sa, sb)
}

func TestOverrideBackground(t *testing.T) {
	in := input(t, model.Slide{ID: "a", Content: model.Content{Title: "x"}})
	in.Design = design().Effective(&model.DesignOverrides{BackgroundColor: "#abcdef"})

	art, err := New().Render(in)
	require.NoError(t, err)
	base := string(art.Layers[0].SVG)
	assert.Contains(t, base, `fill="#abcdef"`)
	assert.NotContains(t, base, `fill="#ffffff"`)
}

func TestDotsPattern(t *testing.T) {
	in := input(t, model.Slide{ID: "a"})
	in.Design.Background = model.Background{PatternType: model.PatternDots}

	art, err := New().Render(in)
	require.NoError(t, err)
	base := string(art.Layers[0].SVG)
	assert.Equal(t, 27*27, strings.Count(base, "<circle"))
	assert.Contains(t, base, `<g fill="#000000" fill-opacity="0.15">`)
}

func TestImageRegion(t *testing.T) {
	url := "https://example.com/a.png"
	s := model.Slide{ID: "a", Content: model.Content{Title: "t", ImageURL: url, Body: "b"}}

	t.Run("loaded", func(t *testing.T) {
		in := input(t, s)
		in.Images = assets.Images{url: image.NewRGBA(image.Rect(0, 0, 32, 32))}
		art, err := New().Render(in)
		require.NoError(t, err)

		box, ok := art.Boxes["image"]
		require.True(t, ok)
		assert.InDelta(t, box.W*9/16, box.H, 0.5)

		var layer *Layer
		for i := range art.Layers {
			if art.Layers[i].IsImage() {
				layer = &art.Layers[i]
			}
		}
		require.NotNil(t, layer)
		assert.Equal(t, 24.0, layer.Radius)
		assert.Equal(t, int(box.W+0.5), layer.Rect.Dx())
	})

	t.Run("failed to load", func(t *testing.T) {
		art, err := New().Render(input(t, s))
		require.NoError(t, err)
		_, ok := art.Boxes["image"]
		assert.False(t, ok)
		assert.InDelta(t, art.Boxes["title"].Bottom()+New().Gap, art.Boxes["body"].Y, 0.001)
		for _, l := range art.Layers {
			assert.False(t, l.IsImage())
		}
	})
}

func TestMissingFont(t *testing.T) {
	in := input(t, model.Slide{ID: "a", Content: model.Content{Title: "x"}})
	in.Design.Fonts.Heading = "Inter"

	_, err := New().Render(in)
	var ferr *fonts.FontResolutionError
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, fonts.Key{Family: "Inter", Weight: WeightBold}, ferr.Key)
}

func TestElementsAreAbsolute(t *testing.T) {
	s := model.Slide{ID: "a", Elements: []model.Element{
		{ID: "badge", Type: model.ElementText, Content: "NEW", Style: model.ElementStyle{X: 900, Y: 20, FontSize: 40, FontWeight: 700, Color: "#ff0000"}},
		{Type: "shape", Content: "ignored"},
	}}
	art, err := New().Render(input(t, s))
	require.NoError(t, err)

	box, ok := art.Boxes["element:badge"]
	require.True(t, ok)
	assert.Equal(t, 900.0, box.X)
	assert.Equal(t, 20.0, box.Y)
	assert.Greater(t, box.W, 0.0)
	assert.NotContains(t, art.Boxes, "element:1")

	fg := string(art.Layers[len(art.Layers)-1].SVG)
	assert.Contains(t, fg, `fill="#ff0000"`)
}

func TestSVGIsWellFormed(t *testing.T) {
	in := input(t, model.Slide{ID: "a", Content: model.Content{Title: "Hi", ImageURL: "u"}})
	in.Images = assets.Images{"u": image.NewRGBA(image.Rect(0, 0, 4, 4))}
	in.Author.ProfileURL = "https://example.com"

	art, err := New().Render(in)
	require.NoError(t, err)
	doc, err := art.SVG()
	require.NoError(t, err)
	assert.Contains(t, string(doc), "data:image/png;base64,")

	dec := xml.NewDecoder(bytes.NewReader(doc))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
}

func TestWrap(t *testing.T) {
	fc, err := newFaceCache(goFonts(t)).get(fonts.Key{Family: "Go", Weight: WeightRegular}, 20)
	require.NoError(t, err)

	w := fc.width("hello world")
	assert.Equal(t, []string{"hello world"}, fc.wrap("hello world", w))
	assert.Equal(t, []string{"hello", "world"}, fc.wrap("hello world", w-1))
	assert.Equal(t, []string{"a", "", "b"}, fc.wrap("a\n\nb", 1000))

	long := fc.wrap("abcdefghij", fc.width("abcd"))
	assert.Greater(t, len(long), 1)
	assert.Equal(t, "abcdefghij", strings.Join(long, ""))
}

func TestProjectRequirements(t *testing.T) {
	d := design()
	p := &model.Project{
		Design: &d,
		Author: model.Author{Handle: "@zed"},
		Slides: []model.Slide{
			{ID: "1", Content: model.Content{Title: "Ab", ImageURL: "https://x/1.png"}},
			{ID: "2", DesignOverrides: &model.DesignOverrides{
				Fonts:      &model.Fonts{Heading: "Inter", Body: "Go"},
				Background: &model.Background{PatternType: model.PatternImage, Value: "https://x/bg.png"},
			}},
		},
	}

	assert.Equal(t, []fonts.Key{
		{Family: "Go", Weight: 400}, {Family: "Go", Weight: 700}, {Family: "Inter", Weight: 700},
	}, ProjectFonts(p))
	assert.Equal(t, []string{"https://x/1.png", "https://x/bg.png"}, ImageURLs(p))
	assert.Equal(t, " /12@Abdez", GlyphText(p))
	assert.Equal(t, "@zed", Handle(p.Author))
	assert.Equal(t, "2/2", Counter(1, 2))
}
