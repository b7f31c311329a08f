package chart

import (
	"errors"
	"fmt"
	"strings"

	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/classify"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/dataset"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/errs"
)

// NothingToRender is the Reason of a result with no charts.
const NothingToRender = "nothing to render"

// Options hold chart defaults.
type Options struct {
	MaxBands int `yaml:"max_bands" json:"max_bands"`
	TopN     int `yaml:"top_n" json:"top_n"`
}

// DefaultOptions returns the stock chart options.
func DefaultOptions() Options {
	return Options{MaxBands: classify.DefaultMaxBands, TopN: classify.DefaultTopN}
}

// Composer builds chart specs from registry snapshots.
type Composer struct {
	opts Options
}

// New returns a Composer; zero options take defaults.
func New(opts Options) *Composer {
	d := DefaultOptions()
	if opts.MaxBands < 1 {
		opts.MaxBands = d.MaxBands
	}
	if opts.TopN < 1 {
		opts.TopN = d.TopN
	}
	return &Composer{opts: opts}
}

// Compose builds the chart(s) described by req. It never fails: problems are
// reported as diagnostics next to an empty result.
func (c *Composer) Compose(snap dataset.Snapshot, req Request) Result {
	res := Result{Charts: []Config{}, Diagnostics: []dataset.Diagnostic{}}
	if req.MaxBands < 1 {
		req.MaxBands = c.opts.MaxBands
	}
	if req.TopN < 1 {
		req.TopN = c.opts.TopN
	}

	cols := columns(req.X, req.Y)
	if len(cols) == 0 {
		return res.nothing()
	}

	e, ok := snap.Find(req.Entry)
	if !ok {
		res.fail(req.Entry, errs.Configuration("chart", req.Entry, errs.ErrNotFound))
		return res.nothing()
	}
	if e.State.Phase != dataset.PhaseLoaded || e.Payload == nil {
		res.note(e.Name, dataset.LevelInfo, "", "entry is not loaded")
		return res.nothing()
	}
	view, ok := e.Payload.View()
	if !ok {
		res.note(e.Name, dataset.LevelInfo, "", fmt.Sprintf("%s entries have no columns to chart", e.Payload.Kind))
		return res.nothing()
	}
	for _, col := range cols {
		if !view.HasKey(col) {
			res.fail(e.Name, errs.Configurationf("chart", e.Name, "%w: %q", errs.ErrColumnNotFound, col))
			return res.nothing()
		}
	}

	var err error
	switch req.Kind {
	case KindCorrelation:
		err = c.correlation(&res, e.Name, view, cols)
	case KindDistribution, "":
		err = c.distribution(&res, e.Name, view, cols, req)
	case KindProportion:
		err = c.proportion(&res, e.Name, view, cols, req)
	default:
		err = errs.Configurationf("chart", e.Name, "unknown chart kind %q", req.Kind)
	}
	if err != nil {
		res.fail(e.Name, err)
	}
	if len(res.Charts) == 0 {
		return res.nothing()
	}
	return res
}

func columns(x, y string) []string {
	var out []string
	for _, c := range []string{x, y} {
		c = strings.TrimSpace(c)
		if c == "" || strings.EqualFold(c, "none") {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (c *Composer) correlation(res *Result, entry string, view dataset.View, cols []string) error {
	if len(cols) < 2 {
		res.note(entry, dataset.LevelInfo, "", "correlation needs two columns")
		return nil
	}
	xs, xok := classify.Numbers(view, cols[0])
	ys, yok := classify.Numbers(view, cols[1])
	points := make([]XY, 0, len(xs))
	for i := range xs {
		if xok[i] && yok[i] {
			points = append(points, XY{X: xs[i], Y: ys[i]})
		}
	}
	if dropped := len(xs) - len(points); dropped > 0 {
		res.note(entry, dataset.LevelWarning, "", fmt.Sprintf("dropped %d rows without numeric values in both columns", dropped))
	}
	if len(points) == 0 {
		return errs.Computation("correlation", entry, errs.ErrNoNumericValues)
	}
	res.Charts = append(res.Charts, Config{
		ChartType:  "scatter",
		Title:      cols[0] + " vs " + cols[1],
		XAxis:      cols[0],
		YAxis:      cols[1],
		Series:     []Series{{Name: entry, Points: points}},
		Colors:     assignColors(1),
		ShowLegend: false,
		ShowGrid:   true,
	})
	return nil
}

func (c *Composer) distribution(res *Result, entry string, view dataset.View, cols []string, req Request) error {
	x, err := group(view, cols[0], req)
	if err != nil {
		return err
	}
	if len(cols) == 1 {
		res.Charts = append(res.Charts, Config{
			ChartType:  "bar",
			Title:      "Distribution of " + cols[0],
			XAxis:      cols[0],
			YAxis:      "Count",
			Series:     []Series{{Name: "Count", Data: x.counts()}},
			Colors:     assignColors(1),
			ShowLegend: false,
			ShowGrid:   true,
		})
		return nil
	}

	y, err := group(view, cols[1], req)
	if err != nil {
		return err
	}
	series := make([]Series, 0, len(y.labels))
	for _, yl := range y.labels {
		data := make([]Point, len(x.labels))
		for j, xl := range x.labels {
			data[j].Label = xl
		}
		series = append(series, Series{Name: yl, Data: data})
	}
	xIndex, yIndex := x.index(), y.index()
	for i := range x.rows {
		if !x.present[i] || !y.present[i] {
			continue
		}
		series[yIndex[y.rows[i]]].Data[xIndex[x.rows[i]]].Value++
	}
	res.Charts = append(res.Charts, Config{
		ChartType:  "bar",
		Title:      cols[0] + " by " + cols[1],
		XAxis:      cols[0],
		YAxis:      "Count",
		Series:     series,
		Colors:     assignColors(len(series)),
		Stacked:    true,
		ShowLegend: true,
		ShowGrid:   true,
	})
	return nil
}

func (c *Composer) proportion(res *Result, entry string, view dataset.View, cols []string, req Request) error {
	var errList []error
	for _, col := range cols {
		g, err := group(view, col, req)
		if err != nil {
			errList = append(errList, err)
			continue
		}
		data := g.counts()
		res.Charts = append(res.Charts, Config{
			ChartType:  "pie",
			Title:      "Share of " + col,
			Series:     []Series{{Name: col, Data: data}},
			Colors:     assignColors(len(data)),
			ShowLegend: true,
			ShowGrid:   false,
		})
	}
	return errors.Join(errList...)
}

// grouped holds per-row labels for one column.
type grouped struct {
	labels  []string
	rows    []string
	present []bool
}

// group bands numeric columns and long-tail groups categorical ones.
func group(view dataset.View, col string, req Request) (grouped, error) {
	b, err := classify.BandColumn(view, col, req.MaxBands)
	if err != nil {
		return grouped{}, err
	}
	if b.Numeric {
		return grouped{labels: b.Labels, rows: b.Rows, present: b.Present}, nil
	}

	values := make([]string, 0, len(b.Rows))
	for i, v := range b.Rows {
		if b.Present[i] {
			values = append(values, v)
		}
	}
	collapsed, kept := classify.GroupLongTail(values, req.TopN)
	rows := make([]string, len(b.Rows))
	j := 0
	for i := range b.Rows {
		if b.Present[i] {
			rows[i] = collapsed[j]
			j++
		}
	}
	return grouped{labels: kept, rows: rows, present: b.Present}, nil
}

func (g grouped) index() map[string]int {
	idx := make(map[string]int, len(g.labels))
	for i, l := range g.labels {
		idx[l] = i
	}
	return idx
}

func (g grouped) counts() []Point {
	data := make([]Point, len(g.labels))
	idx := g.index()
	for i, l := range g.labels {
		data[i].Label = l
	}
	for i, r := range g.rows {
		if g.present[i] {
			data[idx[r]].Value++
		}
	}
	return data
}

func (r Result) nothing() Result {
	r.Charts = []Config{}
	r.Reason = NothingToRender
	return r
}

func (r *Result) note(entry string, level dataset.Level, kind, msg string) {
	r.Diagnostics = append(r.Diagnostics, dataset.Diagnostic{Entry: entry, Level: level, Kind: kind, Message: msg})
}

func (r *Result) fail(entry string, err error) {
	kind := ""
	if k, ok := errs.KindOf(err); ok {
		kind = k.String()
	}
	r.note(entry, dataset.LevelError, kind, err.Error())
}
