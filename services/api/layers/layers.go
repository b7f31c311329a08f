// Package layers builds the sampled, colored render layers and the viewport
// for the visible entries of a registry snapshot.
package layers

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/classify"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/dataset"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/errs"
)

// Kind is the render style of a layer.
type Kind string

const (
	KindScatter Kind = "scatter"
	KindShape   Kind = "shape"
)

// Options tune composition. Zero values are replaced by DefaultOptions.
type Options struct {
	TableSampleThreshold    int          `yaml:"table_sample_threshold" json:"table_sample_threshold"`
	GeometrySampleThreshold int          `yaml:"geometry_sample_threshold" json:"geometry_sample_threshold"`
	Seed                    int64        `yaml:"seed" json:"seed"`
	LatColumn               string       `yaml:"lat_column" json:"lat_column"`
	LonColumn               string       `yaml:"lon_column" json:"lon_column"`
	DefaultColor            dataset.RGBA `yaml:"-" json:"default_color"`
	Fallback                Viewport     `yaml:"fallback" json:"fallback"`
}

// DefaultOptions returns the stock composer options.
func DefaultOptions() Options {
	return Options{
		TableSampleThreshold:    110000,
		GeometrySampleThreshold: 50000,
		Seed:                    42,
		LatColumn:               "lat",
		LonColumn:               "lon",
		DefaultColor:            dataset.DefaultColor,
		Fallback:                Viewport{CenterLat: 35.6812, CenterLon: 139.7671, Zoom: 5},
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TableSampleThreshold <= 0 {
		o.TableSampleThreshold = d.TableSampleThreshold
	}
	if o.GeometrySampleThreshold <= 0 {
		o.GeometrySampleThreshold = d.GeometrySampleThreshold
	}
	if o.LatColumn == "" {
		o.LatColumn = d.LatColumn
	}
	if o.LonColumn == "" {
		o.LonColumn = d.LonColumn
	}
	if o.DefaultColor == (dataset.RGBA{}) {
		o.DefaultColor = d.DefaultColor
	}
	if o.Fallback == (Viewport{}) {
		o.Fallback = d.Fallback
	}
	return o
}

// Layer is one renderable unit. Positions are [lon, lat]. Color is set when
// every element shares one color, Colors otherwise.
type Layer struct {
	ID            string              `json:"id"`
	Entry         string              `json:"entry"`
	Kind          Kind                `json:"kind"`
	Positions     [][2]float64        `json:"positions,omitempty"`
	Shapes        []*geojson.Geometry `json:"shapes,omitempty"`
	Color         *dataset.RGBA       `json:"color,omitempty"`
	Colors        []dataset.RGBA      `json:"colors,omitempty"`
	Radius        float64             `json:"radius,omitempty"`
	Sampled       bool                `json:"sampled"`
	Pickable      bool                `json:"pickable"`
	AutoHighlight bool                `json:"auto_highlight"`
}

// Len returns the element count of the layer.
func (l Layer) Len() int {
	if l.Kind == KindShape {
		return len(l.Shapes)
	}
	return len(l.Positions)
}

// Result is the output of one composition pass.
type Result struct {
	Layers      []Layer              `json:"layers"`
	Viewport    Viewport             `json:"viewport"`
	Diagnostics []dataset.Diagnostic `json:"diagnostics"`
}

// Composer builds layers from registry snapshots. It holds no per-pass state.
type Composer struct {
	opts Options
}

// New returns a Composer using opts.
func New(opts Options) *Composer {
	return &Composer{opts: opts.withDefaults()}
}

// Options returns the effective options.
func (c *Composer) Options() Options { return c.opts }

// Compose builds layers for every visible entry in snap and the viewport
// over them. Per-entry problems become diagnostics.
func (c *Composer) Compose(snap dataset.Snapshot) Result {
	res := Result{Layers: []Layer{}, Diagnostics: []dataset.Diagnostic{}}
	var pts points

	for _, e := range snap.Visible() {
		if !c.loaded(e, &res) {
			continue
		}
		switch e.Payload.Kind {
		case dataset.PayloadTable:
			c.composeTable(e, &res, &pts)
		case dataset.PayloadGeometry:
			c.composeGeometry(e, &res, &pts)
		case dataset.PayloadRaster:
			res.note(e.Name, dataset.LevelInfo, "", "raster entries are not rendered as map layers")
		}
	}
	res.Viewport = computeViewport(pts, c.opts.Fallback)
	return res
}

func (c *Composer) loaded(e dataset.Entry, res *Result) bool {
	switch e.State.Phase {
	case dataset.PhaseLoaded:
		if e.Payload == nil {
			res.note(e.Name, dataset.LevelError, "", "loaded entry has no payload")
			return false
		}
		return true
	case dataset.PhaseFailed:
		res.note(e.Name, dataset.LevelError, errs.KindAcquisition.String(), "load failed: "+e.State.Reason)
	default:
		res.note(e.Name, dataset.LevelInfo, "", "not loaded yet ("+e.State.Phase.String()+")")
	}
	return false
}

func (c *Composer) composeTable(e dataset.Entry, res *Result, pts *points) {
	t := e.Payload.Table
	latCol, lonCol := c.opts.LatColumn, c.opts.LonColumn
	if p := e.Config.Position; p != nil {
		if p.Lat != "" {
			latCol = p.Lat
		}
		if p.Lon != "" {
			lonCol = p.Lon
		}
	}
	if !t.HasKey(latCol) || !t.HasKey(lonCol) {
		res.note(e.Name, dataset.LevelWarning, errs.KindConfiguration.String(),
			fmt.Sprintf("position columns %q/%q not found; entry skipped", latCol, lonCol))
		return
	}

	// viewport sees every row, the layer only the sample
	for i := 0; i < t.Len(); i++ {
		if lat, lon, ok := coordinate(t, i, latCol, lonCol); ok {
			pts.add(lat, lon)
		}
	}

	sampled := false
	if idx, ok := Sample(t.Len(), c.opts.TableSampleThreshold, c.opts.Seed); ok {
		t = t.Subset(idx)
		sampled = true
		res.note(e.Name, dataset.LevelInfo, "", fmt.Sprintf("sampled %d of %d rows", len(idx), e.Payload.Table.Len()))
	}

	assignment := c.assign(e, res, func(spec classify.Spec) (classify.Assignment, error) {
		return classify.AssignTable(t, spec)
	}, t.Len())

	layer := c.newLayer(e, KindScatter, "points", sampled)
	keep := make([]int, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		lat, lon, ok := coordinate(t, i, latCol, lonCol)
		if !ok {
			continue
		}
		layer.Positions = append(layer.Positions, [2]float64{lon, lat})
		keep = append(keep, i)
	}
	if dropped := t.Len() - len(keep); dropped > 0 {
		res.note(e.Name, dataset.LevelWarning, "", fmt.Sprintf("dropped %d rows with invalid coordinates", dropped))
	}
	applyColors(&layer, assignment, keep)
	res.Layers = append(res.Layers, layer)
}

func (c *Composer) composeGeometry(e dataset.Entry, res *Result, pts *points) {
	g := e.Payload.Geometry
	if b, ok := g.Bound(); ok {
		center := b.Center()
		pts.add(center.Lat(), center.Lon())
	}

	sampled := false
	if idx, ok := Sample(g.Len(), c.opts.GeometrySampleThreshold, c.opts.Seed); ok {
		g = g.Subset(idx)
		sampled = true
		res.note(e.Name, dataset.LevelInfo, "", fmt.Sprintf("sampled %d of %d features", len(idx), e.Payload.Geometry.Len()))
	}

	assignment := c.assign(e, res, func(spec classify.Spec) (classify.Assignment, error) {
		return classify.AssignFeatures(g, spec)
	}, g.Len())

	scatter := c.newLayer(e, KindScatter, "points", sampled)
	shapes := c.newLayer(e, KindShape, "shapes", sampled)
	var pointIdx, shapeIdx []int
	empty := 0
	for i, f := range g.Features {
		switch geom := f.Geometry.(type) {
		case nil:
			empty++
		case orb.Point:
			scatter.Positions = append(scatter.Positions, [2]float64{geom.Lon(), geom.Lat()})
			pointIdx = append(pointIdx, i)
		default:
			shapes.Shapes = append(shapes.Shapes, geojson.NewGeometry(geom))
			shapeIdx = append(shapeIdx, i)
		}
	}
	if empty > 0 {
		res.note(e.Name, dataset.LevelWarning, "", fmt.Sprintf("skipped %d features without geometry", empty))
	}
	if len(pointIdx) > 0 {
		applyColors(&scatter, assignment, pointIdx)
		res.Layers = append(res.Layers, scatter)
	}
	if len(shapeIdx) > 0 {
		applyColors(&shapes, assignment, shapeIdx)
		res.Layers = append(res.Layers, shapes)
	}
}

func (c *Composer) newLayer(e dataset.Entry, kind Kind, suffix string, sampled bool) Layer {
	l := Layer{
		ID:            e.ID + "-" + suffix,
		Entry:         e.Name,
		Kind:          kind,
		Sampled:       sampled,
		Pickable:      true,
		AutoHighlight: true,
	}
	if kind == KindScatter {
		l.Radius = e.Config.PointRadius
	}
	return l
}

// assign runs classification and degrades to the solid color on error.
func (c *Composer) assign(e dataset.Entry, res *Result, run func(classify.Spec) (classify.Assignment, error), n int) classify.Assignment {
	spec := classify.SpecFromConfig(e.Config)
	if e.Config.Color.Solid == (dataset.RGBA{}) {
		spec.Solid = c.opts.DefaultColor
	}
	a, err := run(spec)
	if err == nil {
		return a
	}
	kind := ""
	if k, ok := errs.KindOf(err); ok {
		kind = k.String()
	}
	res.note(e.Name, dataset.LevelError, kind, err.Error()+"; using solid color")
	colors := make([]dataset.RGBA, n)
	for i := range colors {
		colors[i] = spec.Solid
	}
	return classify.Assignment{Colors: colors, Uniform: true}
}

func applyColors(l *Layer, a classify.Assignment, idx []int) {
	if a.Uniform && len(a.Colors) > 0 {
		c := a.Colors[0]
		l.Color = &c
		return
	}
	l.Colors = make([]dataset.RGBA, len(idx))
	for j, i := range idx {
		l.Colors[j] = a.Colors[i]
	}
}

func coordinate(t *dataset.Table, i int, latCol, lonCol string) (lat, lon float64, ok bool) {
	rawLat, ok1 := t.Value(i, latCol)
	rawLon, ok2 := t.Value(i, lonCol)
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	lat, ok1 = classify.ParseNumber(rawLat)
	lon, ok2 = classify.ParseNumber(rawLon)
	if !ok1 || !ok2 || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}

// Sample returns sorted row indices of a fixed-seed random sample of size
// threshold, and false when n does not exceed threshold.
func Sample(n, threshold int, seed int64) ([]int, bool) {
	if threshold <= 0 || n <= threshold {
		return nil, false
	}
	idx := rand.New(rand.NewSource(seed)).Perm(n)[:threshold]
	sort.Ints(idx)
	return idx, true
}

func (r *Result) note(entry string, level dataset.Level, kind, msg string) {
	r.Diagnostics = append(r.Diagnostics, dataset.Diagnostic{Entry: entry, Level: level, Kind: kind, Message: msg})
}
