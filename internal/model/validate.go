package model

import (
	"fmt"
	"strings"
)

// ValidationError lists every problem found in a project. No rendering work
// is started for a project that fails validation.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid project: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid project: %s (and %d more)", e.Problems[0], len(e.Problems)-1)
}

func (e *ValidationError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// Validate checks the invariants the pipeline relies on. Missing slides or
// design are reported, never defaulted.
func (p *Project) Validate() error {
	verr := &ValidationError{}

	if p == nil {
		verr.add("request body is empty")
		return verr
	}
	if len(p.Slides) == 0 {
		verr.add("slides must be a non-empty list")
	}
	if p.Design == nil {
		verr.add("design is required")
	} else {
		validateDesign(verr, "design", p.Design)
	}

	seen := make(map[string]int, len(p.Slides))
	for i, s := range p.Slides {
		where := fmt.Sprintf("slides[%d]", i)
		if strings.TrimSpace(s.ID) == "" {
			verr.add("%s.id is required", where)
		} else if j, dup := seen[s.ID]; dup {
			verr.add("%s.id %q duplicates slides[%d]", where, s.ID, j)
		} else {
			seen[s.ID] = i
		}

		if o := s.DesignOverrides; o != nil {
			flat := []struct {
				name, value string
			}{
				{"background_color", o.BackgroundColor},
				{"text_color", o.TextColor},
				{"primary_color", o.PrimaryColor},
				{"accent_color", o.AccentColor},
			}
			for _, f := range flat {
				if f.value == "" {
					continue
				}
				if _, err := ParseColor(f.value); err != nil {
					verr.add("%s.design_overrides.%s: %v", where, f.name, err)
				}
			}
			if o.ColorPalette != nil {
				validatePalette(verr, where+".design_overrides.colorPalette", *o.ColorPalette)
			}
			if o.Fonts != nil {
				validateFonts(verr, where+".design_overrides.fonts", *o.Fonts)
			}
			if o.Background != nil {
				validateBackground(verr, where+".design_overrides.background", *o.Background)
			}
		}

		for k, el := range s.Elements {
			if el.Style.Color == "" {
				continue
			}
			if _, err := ParseColor(el.Style.Color); err != nil {
				verr.add("%s.elements[%d].style.color: %v", where, k, err)
			}
		}
	}

	if len(verr.Problems) > 0 {
		return verr
	}
	return nil
}

func validateDesign(verr *ValidationError, where string, d *DesignSpec) {
	validatePalette(verr, where+".colorPalette", d.ColorPalette)
	validateFonts(verr, where+".fonts", d.Fonts)
	validateBackground(verr, where+".background", d.Background)
}

func validatePalette(verr *ValidationError, where string, p Palette) {
	fields := []struct {
		name, value string
	}{
		{"background", p.Background},
		{"primary", p.Primary},
		{"secondary", p.Secondary},
		{"accent", p.Accent},
		{"text", p.Text},
	}
	for _, f := range fields {
		if _, err := ParseColor(f.value); err != nil {
			verr.add("%s.%s: %v", where, f.name, err)
		}
	}
}

func validateFonts(verr *ValidationError, where string, f Fonts) {
	if strings.TrimSpace(f.Heading) == "" {
		verr.add("%s.heading is required", where)
	}
	if strings.TrimSpace(f.Body) == "" {
		verr.add("%s.body is required", where)
	}
}

func validateBackground(verr *ValidationError, where string, b Background) {
	switch b.PatternType {
	case "", PatternNone, PatternDots:
	case PatternImage:
		if b.Value == "" {
			verr.add("%s.value is required for patternType %q", where, PatternImage)
		}
	default:
		verr.add("%s.patternType %q is not one of none, dots, image", where, b.PatternType)
	}
	if b.PatternColor != "" {
		if _, err := ParseColor(b.PatternColor); err != nil {
			verr.add("%s.patternColor: %v", where, err)
		}
	}
	if b.PatternOpacity != nil && (*b.PatternOpacity < 0 || *b.PatternOpacity > 1) {
		verr.add("%s.patternOpacity must be within [0, 1]", where)
	}
}
