package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ivlev/carousel/internal/config"
	"github.com/ivlev/carousel/internal/engine"
	"github.com/ivlev/carousel/internal/fonts"
	"github.com/ivlev/carousel/internal/model"
)

func TestFontTransport(t *testing.T) {
	tests := []struct {
		name   string
		cfg    config.FontsConfig
		assert func(t *testing.T, next fonts.Transport)
	}{
		{"embedded only", config.FontsConfig{Source: "embedded"}, func(t *testing.T, next fonts.Transport) {
			assert.Nil(t, next)
		}},
		{"google with css override", config.FontsConfig{Source: "google", CSSURL: "http://fonts.local/css2"}, func(t *testing.T, next fonts.Transport) {
			g, ok := next.(*fonts.GoogleTransport)
			require.True(t, ok)
			assert.Equal(t, "http://fonts.local/css2", g.CSSURL)
		}},
		{"dir", config.FontsConfig{Source: "dir", Dir: "/srv/fonts"}, func(t *testing.T, next fonts.Transport) {
			d, ok := next.(*fonts.DirTransport)
			require.True(t, ok)
			assert.Equal(t, "/srv/fonts", d.Dir)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := fontTransport(tt.cfg).(*fonts.EmbeddedTransport)
			require.True(t, ok)
			tt.assert(t, e.Next)
		})
	}
}

func TestFontStoreWithoutRedis(t *testing.T) {
	store, closeStore, err := fontStore(context.Background(), config.RedisConfig{}, zap.NewNop())
	require.NoError(t, err)
	defer closeStore()
	assert.IsType(t, &fonts.MemoryStore{}, store)
}

func TestSVGDumpWritesEverySlide(t *testing.T) {
	cfg = config.Default()
	cfg.Fonts.Source = "embedded"
	cfg.Render.Workers = 2
	logger = zap.NewNop()

	dir := t.TempDir()
	exp, closeStore, err := buildExporter(context.Background(), svgDump{next: newLayout(), dir: dir}, nil)
	require.NoError(t, err)
	defer closeStore()

	p := &model.Project{
		Design: &model.DesignSpec{
			ColorPalette: model.Palette{Background: "#ffffff", Primary: "#111111", Secondary: "#444444", Accent: "#0044cc", Text: "#000000"},
			Fonts:        model.Fonts{Heading: "Go", Body: "Go"},
			AspectRatio:  "4:5",
		},
		Author: model.Author{Handle: "dev"},
		Slides: []model.Slide{
			{ID: "a", Type: model.SlideIntro, Content: model.Content{Title: "Hello"}},
			{ID: "b", Type: model.SlideContent, Content: model.Content{Title: "World", Body: "Some words"}},
		},
	}
	res, err := exp.Export(context.Background(), engine.Request{Project: p})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
	assert.Empty(t, res.Warnings)

	for _, name := range []string{"slide-01.svg", "slide-02.svg"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.True(t, bytes.HasPrefix(data, []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="1080" height="1350"`)), name)
	}
}
