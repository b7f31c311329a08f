// Package classify turns a column selection and a color choice into
// deterministic per-row or per-feature colors, and groups values into the
// labeled bands used by charts.
package classify

import (
	"sort"
	"strings"

	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/dataset"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/errs"
)

// Spec is the classification input for one entry.
type Spec struct {
	Column   string
	Mode     dataset.ColorMode
	Solid    dataset.RGBA
	Colormap string
}

// SpecFromConfig derives a Spec from an entry configuration. A zero Solid
// falls back to dataset.DefaultColor.
func SpecFromConfig(cfg dataset.Config) Spec {
	s := Spec{Mode: cfg.Color.Mode, Solid: cfg.Color.Solid, Colormap: cfg.Color.Colormap}
	if cfg.ClassificationColumn != nil {
		s.Column = strings.TrimSpace(*cfg.ClassificationColumn)
	}
	if s.Solid == (dataset.RGBA{}) {
		s.Solid = dataset.DefaultColor
	}
	return s
}

// solidOnly reports whether the spec never consults a column.
func (s Spec) solidOnly() bool {
	return s.Mode == dataset.ColorSolid || s.Column == "" || strings.EqualFold(s.Column, "none")
}

// Assignment is the color of every element of a view, in view order.
type Assignment struct {
	Colors []dataset.RGBA `json:"colors"`
	// Uniform is true when every element received Solid.
	Uniform bool `json:"uniform"`
	// Numeric is true when the column was classified as numeric.
	Numeric    bool     `json:"numeric"`
	Min        float64  `json:"min,omitempty"`
	Max        float64  `json:"max,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// AssignTable colors every row of t. Missing numeric cells map to the
// bottom of the colormap, missing categorical cells get the solid color.
func AssignTable(t *dataset.Table, spec Spec) (Assignment, error) {
	return assign(t, spec, false)
}

// AssignFeatures colors every feature of g. A feature missing the attribute
// always gets the solid color.
func AssignFeatures(g *dataset.GeometryCollection, spec Spec) (Assignment, error) {
	return assign(g, spec, true)
}

func assign(view dataset.View, spec Spec, missingSolid bool) (Assignment, error) {
	n := view.Len()
	if spec.solidOnly() {
		return uniform(n, spec.Solid), nil
	}
	if !view.HasKey(spec.Column) {
		return Assignment{}, errs.Configurationf("classify", "", "%w: %q", errs.ErrColumnNotFound, spec.Column)
	}
	cmap, err := Lookup(spec.Colormap)
	if err != nil {
		return Assignment{}, err
	}

	colors := make([]dataset.RGBA, n)
	out := Assignment{Colors: colors}

	if IsNumeric(view, spec.Column) {
		values, present := Numbers(view, spec.Column)
		lo, hi := bounds(values, present)
		out.Numeric, out.Min, out.Max = true, lo, hi
		for i := range colors {
			switch {
			case !present[i] && missingSolid:
				colors[i] = spec.Solid
			case !present[i]:
				colors[i] = cmap.At(0)
			default:
				colors[i] = cmap.At(Normalize(values[i], lo, hi))
			}
		}
		return out, nil
	}

	cats := Categories(view, spec.Column)
	pos := make(map[string]float64, len(cats))
	for i, c := range cats {
		pos[c] = categoryPosition(i, len(cats))
	}
	out.Categories = cats
	for i := range colors {
		v, ok := view.Value(i, spec.Column)
		if !ok {
			colors[i] = spec.Solid
			continue
		}
		colors[i] = cmap.At(pos[v])
	}
	return out, nil
}

func uniform(n int, c dataset.RGBA) Assignment {
	colors := make([]dataset.RGBA, n)
	for i := range colors {
		colors[i] = c
	}
	return Assignment{Colors: colors, Uniform: true}
}

// Normalize maps v into [0,1] over [lo,hi]. A degenerate range maps to 0.5.
func Normalize(v, lo, hi float64) float64 {
	if hi <= lo {
		return 0.5
	}
	t := (v - lo) / (hi - lo)
	switch {
	case t < 0:
		return 0
	case t > 1:
		return 1
	}
	return t
}

// Categories returns the sorted unique present values of key.
func Categories(view dataset.View, key string) []string {
	seen := make(map[string]struct{})
	for i := 0; i < view.Len(); i++ {
		if v, ok := view.Value(i, key); ok {
			seen[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func categoryPosition(i, n int) float64 {
	if n <= 1 {
		return 0.5
	}
	return float64(i) / float64(n-1)
}

func bounds(values []float64, present []bool) (lo, hi float64) {
	first := true
	for i, v := range values {
		if !present[i] {
			continue
		}
		if first {
			lo, hi, first = v, v, false
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
