package fonts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/goregular"
)

// Transport fetches the raw bytes of a TrueType/OpenType font.
type Transport interface {
	Fetch(ctx context.Context, req Request) ([]byte, error)
}

// Subsetter is implemented by transports whose result depends on Request.Text.
type Subsetter interface {
	Subsets() bool
}

var (
	ErrUnknownFamily = errors.New("unknown font family")
	ErrUnknownWeight = errors.New("font weight not available")
)

const (
	DefaultGoogleCSSURL = "https://fonts.googleapis.com/css2"

	maxStylesheetBytes = 1 << 20
	maxFontBytes       = 16 << 20
)

// srcURL matches the first src declaration of a @font-face block.
var srcURL = regexp.MustCompile(`src:\s*url\(([^)]+)\)(?:\s*format\(['"]?([a-z0-9-]+)['"]?\))?`)

// GoogleTransport resolves families through the Google Fonts CSS2 API. The
// stylesheet is requested without a browser User-Agent so the API answers with
// TrueType sources rather than WOFF2.
type GoogleTransport struct {
	Client *http.Client
	CSSURL string
	Subset bool
}

func NewGoogleTransport(timeout time.Duration, subset bool) *GoogleTransport {
	return &GoogleTransport{
		Client: &http.Client{Timeout: timeout},
		CSSURL: DefaultGoogleCSSURL,
		Subset: subset,
	}
}

func (g *GoogleTransport) Subsets() bool {
	return g.Subset
}

func (g *GoogleTransport) Fetch(ctx context.Context, req Request) ([]byte, error) {
	base := g.CSSURL
	if base == "" {
		base = DefaultGoogleCSSURL
	}
	q := url.Values{}
	q.Set("family", fmt.Sprintf("%s:wght@%d", req.Family, req.Weight))
	if g.Subset && req.Text != "" {
		q.Set("text", req.Text)
	}

	css, err := g.get(ctx, base+"?"+q.Encode(), maxStylesheetBytes)
	if err != nil {
		return nil, fmt.Errorf("stylesheet: %w", err)
	}

	m := srcURL.FindSubmatch(css)
	if m == nil {
		return nil, fmt.Errorf("%w: no font source in stylesheet", ErrUnknownFamily)
	}
	fontURL := strings.Trim(string(m[1]), `'"`)
	if format := string(m[2]); format != "" && format != "truetype" && format != "opentype" {
		return nil, fmt.Errorf("unsupported font format %q", format)
	}

	data, err := g.get(ctx, fontURL, maxFontBytes)
	if err != nil {
		return nil, fmt.Errorf("font file: %w", err)
	}
	return data, nil
}

func (g *GoogleTransport) get(ctx context.Context, rawURL string, limit int64) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s returned %d", ErrUnknownFamily, rawURL, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%s returned %d", rawURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s exceeds %d bytes", rawURL, limit)
	}
	return data, nil
}

var weightNames = map[int][]string{
	100: {"Thin"},
	200: {"ExtraLight"},
	300: {"Light"},
	400: {"Regular"},
	500: {"Medium"},
	600: {"SemiBold"},
	700: {"Bold"},
	800: {"ExtraBold"},
	900: {"Black"},
}

// DirTransport reads fonts from a local directory. Files are looked up as
// <Family>-<Weight>.ttf or <Family>-<WeightName>.ttf (also .otf), with and
// without spaces in the family name.
type DirTransport struct {
	Dir string
}

func (d *DirTransport) Fetch(_ context.Context, req Request) ([]byte, error) {
	for _, name := range d.candidates(req.Key) {
		data, err := os.ReadFile(filepath.Join(d.Dir, name))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s not found in %s", ErrUnknownFamily, req.Key, d.Dir)
}

func (d *DirTransport) candidates(k Key) []string {
	families := []string{k.Family}
	if compact := strings.ReplaceAll(k.Family, " ", ""); compact != k.Family {
		families = append(families, compact)
	}
	suffixes := append([]string{fmt.Sprint(k.Weight)}, weightNames[k.Weight]...)

	var out []string
	for _, f := range families {
		for _, s := range suffixes {
			out = append(out, f+"-"+s+".ttf", f+"-"+s+".otf")
		}
	}
	return out
}

// EmbeddedFamily is served from the Go fonts compiled into the binary.
const EmbeddedFamily = "Go"

var embedded = map[int][]byte{
	400: goregular.TTF,
	500: gomedium.TTF,
	700: gobold.TTF,
}

// EmbeddedTransport answers for EmbeddedFamily and routes every other family
// to Next. It never substitutes the Go font for another family.
type EmbeddedTransport struct {
	Next Transport
}

func (e *EmbeddedTransport) Subsets() bool {
	if s, ok := e.Next.(Subsetter); ok {
		return s.Subsets()
	}
	return false
}

func (e *EmbeddedTransport) Fetch(ctx context.Context, req Request) ([]byte, error) {
	if strings.EqualFold(req.Family, EmbeddedFamily) {
		data, ok := embedded[req.Weight]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownWeight, req.Key)
		}
		return data, nil
	}
	if e.Next == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFamily, req.Family)
	}
	return e.Next.Fetch(ctx, req)
}
