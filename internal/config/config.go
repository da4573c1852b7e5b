package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/carousel/internal/analyzer"
	"github.com/ivlev/carousel/internal/system"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Render RenderConfig `yaml:"render"`
	Fonts  FontsConfig  `yaml:"fonts"`
	Assets AssetsConfig `yaml:"assets"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	AllowOrigin  string        `yaml:"allow_origin"`
}

type RenderConfig struct {
	Workers    int    `yaml:"workers"`
	ProjectDir string `yaml:"project_dir"`
	OutputDir  string `yaml:"output_dir"`
	QRCode     bool   `yaml:"qr_code"`
	// Legibility is the palette check run per export: contrast or none.
	Legibility string `yaml:"legibility"`
}

type FontsConfig struct {
	// Source is one of google, dir, embedded.
	Source  string        `yaml:"source"`
	Dir     string        `yaml:"dir"`
	CSSURL  string        `yaml:"css_url"`
	Subset  bool          `yaml:"subset"`
	Timeout time.Duration `yaml:"timeout"`
	Redis   RedisConfig   `yaml:"redis"`
}

type RedisConfig struct {
	Addr   string        `yaml:"addr"`
	DB     int           `yaml:"db"`
	Prefix string        `yaml:"prefix"`
	TTL    time.Duration `yaml:"ttl"`
}

type AssetsConfig struct {
	Timeout  time.Duration `yaml:"timeout"`
	MaxBytes int64         `yaml:"max_bytes"`
	Rate     float64       `yaml:"rate"`
	Burst    int           `yaml:"burst"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the built-in configuration. Workers is sized from the host.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			Timeout:      60 * time.Second,
			MaxBodyBytes: 8 << 20,
			AllowOrigin:  "*",
		},
		Render: RenderConfig{
			Workers:    system.DefaultWorkers(),
			ProjectDir: "input/projects",
			OutputDir:  "output",
			QRCode:     true,
			Legibility: "contrast",
		},
		Fonts: FontsConfig{
			Source:  "google",
			Subset:  false,
			Timeout: 20 * time.Second,
			Redis:   RedisConfig{Prefix: "carousel:font:"},
		},
		Assets: AssetsConfig{
			Timeout:  15 * time.Second,
			MaxBytes: 10 << 20,
			Rate:     8,
			Burst:    4,
			CacheTTL: 10 * time.Minute,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults (a missing path is allowed when empty)
// and applies CAROUSEL_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := []struct {
		env string
		dst *string
	}{
		{"CAROUSEL_ADDR", &c.Server.Addr},
		{"CAROUSEL_FONT_SOURCE", &c.Fonts.Source},
		{"CAROUSEL_FONT_DIR", &c.Fonts.Dir},
		{"CAROUSEL_REDIS_ADDR", &c.Fonts.Redis.Addr},
		{"CAROUSEL_LOG_LEVEL", &c.Log.Level},
	}
	for _, s := range strs {
		if v, ok := lookup(s.env); ok {
			*s.dst = v
		}
	}
	if v, ok := lookup("CAROUSEL_WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CAROUSEL_WORKERS: %w", err)
		}
		c.Render.Workers = n
	}
	if v, ok := lookup("CAROUSEL_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CAROUSEL_TIMEOUT: %w", err)
		}
		c.Server.Timeout = d
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Fonts.Source {
	case "google", "dir", "embedded":
	default:
		return fmt.Errorf("fonts.source %q is not one of google, dir, embedded", c.Fonts.Source)
	}
	if c.Fonts.Source == "dir" && c.Fonts.Dir == "" {
		return fmt.Errorf("fonts.dir is required for fonts.source dir")
	}
	if _, err := analyzer.NewChecker(c.Render.Legibility); err != nil {
		return fmt.Errorf("render.legibility: %w", err)
	}
	if c.Render.Workers < 1 {
		c.Render.Workers = 1
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive")
	}
	return nil
}
