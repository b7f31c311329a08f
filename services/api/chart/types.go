// Package chart builds correlation, distribution and proportion chart specs
// from one registry entry and up to two columns.
package chart

import "github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/dataset"

// ============================================================================
// CHART TYPES
// ============================================================================

// Kind selects the chart family.
type Kind string

const (
	KindCorrelation  Kind = "correlation"
	KindDistribution Kind = "distribution"
	KindProportion   Kind = "proportion"
)

// Valid reports whether k is a known chart kind.
func (k Kind) Valid() bool {
	switch k {
	case KindCorrelation, KindDistribution, KindProportion:
		return true
	}
	return false
}

// Config defines how to render a chart.
type Config struct {
	ChartType  string   `json:"chartType"`
	Title      string   `json:"title"`
	XAxis      string   `json:"xAxis,omitempty"`
	YAxis      string   `json:"yAxis,omitempty"`
	Series     []Series `json:"series"`
	Colors     []string `json:"colors,omitempty"`
	Stacked    bool     `json:"stacked,omitempty"`
	ShowLegend bool     `json:"showLegend"`
	ShowGrid   bool     `json:"showGrid"`
}

// Series is one data series. Categorical charts fill Data, scatter charts
// fill Points.
type Series struct {
	Name   string  `json:"name"`
	Data   []Point `json:"data,omitempty"`
	Points []XY    `json:"points,omitempty"`
	Color  string  `json:"color,omitempty"`
}

// Point is a labeled value.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// XY is a numeric pair.
type XY struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Request selects what to chart. Columns set to "" or "none" are ignored.
type Request struct {
	Entry    string `json:"entry" form:"entry"`
	Kind     Kind   `json:"kind" form:"kind"`
	X        string `json:"x" form:"x"`
	Y        string `json:"y" form:"y"`
	MaxBands int    `json:"max_bands" form:"max_bands"`
	TopN     int    `json:"top_n" form:"top_n"`
}

// Result is the chart output. Reason is set when there is nothing to render.
type Result struct {
	Charts      []Config             `json:"charts"`
	Reason      string               `json:"reason,omitempty"`
	Diagnostics []dataset.Diagnostic `json:"diagnostics"`
}

// Empty reports whether nothing is rendered.
func (r Result) Empty() bool { return len(r.Charts) == 0 }

// Default color palette for chart series.
var defaultColors = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

func assignColors(n int) []string {
	colors := make([]string, n)
	for i := range colors {
		colors[i] = defaultColors[i%len(defaultColors)]
	}
	return colors
}
