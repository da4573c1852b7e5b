// Package analyzer checks slide designs for legibility problems. Findings
// are advisory: an export never fails because of them.
package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ivlev/carousel/internal/model"
)

// Finding is one foreground/background pair below its minimum contrast.
type Finding struct {
	Role       string // palette role of the foreground, e.g. "text"
	Foreground string
	Background string
	Ratio      float64
	Minimum    float64
	Slides     []int // zero-based indices of the affected slides
}

func (f *Finding) Error() string {
	slides := make([]string, len(f.Slides))
	for i, s := range f.Slides {
		slides[i] = fmt.Sprint(s + 1)
	}
	return fmt.Sprintf("low contrast: %s %s on %s is %.2f:1, want at least %.1f:1 (slides %s)",
		f.Role, f.Foreground, f.Background, f.Ratio, f.Minimum, strings.Join(slides, ","))
}

// Checker inspects the effective design of one slide.
type Checker interface {
	Check(d model.DesignSpec) []Finding
}

// Project runs c over every slide's effective design. Identical findings
// on several slides are merged into one.
func Project(c Checker, p *model.Project) []*Finding {
	if c == nil || p == nil || p.Design == nil {
		return nil
	}

	byKey := map[string]*Finding{}
	var out []*Finding
	for i := range p.Slides {
		for _, f := range c.Check(p.EffectiveDesign(i)) {
			key := f.Role + "|" + f.Foreground + "|" + f.Background
			if have, ok := byKey[key]; ok {
				have.Slides = append(have.Slides, i)
				continue
			}
			nf := f
			nf.Slides = []int{i}
			byKey[key] = &nf
			out = append(out, &nf)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Slides[0] < out[b].Slides[0] })
	return out
}
