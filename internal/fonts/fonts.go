// Package fonts resolves font binaries for a family and weight, once per
// export job, and parses them for text shaping.
package fonts

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/image/font/sfnt"
)

// Key identifies one font resource.
type Key struct {
	Family string
	Weight int
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.Family, k.Weight)
}

// Request is what a Transport is asked to fetch. Text lists the glyphs that
// will be drawn; transports that subset use it, others ignore it.
type Request struct {
	Key
	Text string
}

// FontResolutionError aborts an export. There is no fallback font.
type FontResolutionError struct {
	Key Key
	Err error
}

func (e *FontResolutionError) Error() string {
	return fmt.Sprintf("font %s could not be resolved: %v", e.Key, e.Err)
}

func (e *FontResolutionError) Unwrap() error {
	return e.Err
}

// Set holds the parsed fonts of one export job. It is filled by Service.Load
// before any slide is rendered and is read-only afterwards, so concurrent
// readers need no locking. sfnt.Font methods are safe for concurrent use as
// long as each goroutine brings its own sfnt.Buffer.
type Set struct {
	faces map[Key]*sfnt.Font
	text  string
}

// NewSet builds a Set from already parsed fonts.
func NewSet(faces map[Key]*sfnt.Font) *Set {
	m := make(map[Key]*sfnt.Font, len(faces))
	for k, f := range faces {
		m[k] = f
	}
	return &Set{faces: m}
}

// Face returns the parsed font for k.
func (s *Set) Face(k Key) (*sfnt.Font, bool) {
	if s == nil {
		return nil, false
	}
	f, ok := s.faces[k]
	return f, ok
}

// Keys returns the loaded keys in a stable order.
func (s *Set) Keys() []Key {
	keys := make([]Key, 0, len(s.faces))
	for k := range s.faces {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

// Text is the glyph set the fonts were requested for.
func (s *Set) Text() string {
	return s.text
}

// Glyphs normalizes text into its sorted set of distinct runes, which is the
// form subsetting transports and cache keys expect.
func Glyphs(texts ...string) string {
	seen := make(map[rune]struct{})
	for _, t := range texts {
		for _, r := range t {
			if r == '\n' || r == '\r' || r == '\t' {
				continue
			}
			seen[r] = struct{}{}
		}
	}
	runes := make([]rune, 0, len(seen))
	for r := range seen {
		runes = append(runes, r)
	}
	sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })
	return string(runes)
}

// Dedupe drops repeated keys, keeping a stable order.
func Dedupe(keys []Key) []Key {
	seen := make(map[Key]struct{}, len(keys))
	out := make([]Key, 0, len(keys))
	for _, k := range keys {
		k.Family = strings.TrimSpace(k.Family)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sortKeys(out)
	return out
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Family != keys[j].Family {
			return keys[i].Family < keys[j].Family
		}
		return keys[i].Weight < keys[j].Weight
	})
}
