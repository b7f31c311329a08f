package dataset

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// ============================================================================
// VIEW: indexed attribute access shared by tables and geometry collections
// ============================================================================

// View provides indexed access to the attributes of a payload.
// Composers read rows and features through this interface only.
type View interface {
	Len() int
	// Value returns the raw value of key at index i; ok is false when the
	// value is missing (absent key or empty cell).
	Value(i int, key string) (string, bool)
	Keys() []string
	HasKey(key string) bool
}

// PayloadKind tags the variant held by a Payload.
type PayloadKind int

const (
	PayloadTable PayloadKind = iota + 1
	PayloadGeometry
	PayloadRaster
)

// String returns the lowercase name of the kind.
func (k PayloadKind) String() string {
	switch k {
	case PayloadTable:
		return "table"
	case PayloadGeometry:
		return "geometry"
	case PayloadRaster:
		return "raster"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k PayloadKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Payload is a tagged union; exactly one pointer matching Kind is set.
type Payload struct {
	Kind     PayloadKind
	Table    *Table
	Geometry *GeometryCollection
	Raster   *RasterSummary
}

// TablePayload wraps a Table.
func TablePayload(t *Table) *Payload { return &Payload{Kind: PayloadTable, Table: t} }

// GeometryPayload wraps a GeometryCollection.
func GeometryPayload(g *GeometryCollection) *Payload {
	return &Payload{Kind: PayloadGeometry, Geometry: g}
}

// RasterPayload wraps a RasterSummary.
func RasterPayload(r *RasterSummary) *Payload { return &Payload{Kind: PayloadRaster, Raster: r} }

// View returns the attribute view of tabular and geometric payloads.
func (p *Payload) View() (View, bool) {
	if p == nil {
		return nil, false
	}
	switch p.Kind {
	case PayloadTable:
		return p.Table, p.Table != nil
	case PayloadGeometry:
		return p.Geometry, p.Geometry != nil
	default:
		return nil, false
	}
}

// Size returns the number of rows, features or raster cells.
func (p *Payload) Size() int {
	if p == nil {
		return 0
	}
	switch p.Kind {
	case PayloadTable:
		return p.Table.Len()
	case PayloadGeometry:
		return p.Geometry.Len()
	case PayloadRaster:
		return len(p.Raster.Band)
	}
	return 0
}

// ============================================================================
// TABLE
// ============================================================================

// Table is an ordered set of named columns holding raw cell strings.
// Column types are not decided here; classification infers them on demand.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// NewTable builds a Table. Duplicate column names get a ".N" suffix and
// short rows are padded with empty (missing) cells.
func NewTable(columns []string, rows [][]string) *Table {
	t := &Table{index: make(map[string]int, len(columns))}
	seen := make(map[string]int, len(columns))
	for _, c := range columns {
		name := c
		if n, dup := seen[c]; dup {
			name = fmt.Sprintf("%s.%d", c, n)
		}
		seen[c]++
		t.index[name] = len(t.columns)
		t.columns = append(t.columns, name)
	}
	t.rows = make([][]string, len(rows))
	for i, r := range rows {
		row := make([]string, len(t.columns))
		copy(row, r)
		t.rows[i] = row
	}
	return t
}

// Columns returns the column names in order.
func (t *Table) Columns() []string { return t.columns }

// Len returns the row count.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Keys returns the column names.
func (t *Table) Keys() []string { return t.columns }

// HasKey reports whether a column exists.
func (t *Table) HasKey(key string) bool {
	_, ok := t.index[key]
	return ok
}

// Value returns the trimmed cell at row i; empty cells are missing.
func (t *Table) Value(i int, key string) (string, bool) {
	c, ok := t.index[key]
	if !ok || i < 0 || i >= len(t.rows) {
		return "", false
	}
	v := strings.TrimSpace(t.rows[i][c])
	return v, v != ""
}

// Subset returns a table holding the given rows in order.
func (t *Table) Subset(indices []int) *Table {
	out := &Table{columns: t.columns, index: t.index, rows: make([][]string, 0, len(indices))}
	for _, i := range indices {
		out.rows = append(out.rows, t.rows[i])
	}
	return out
}

// MarshalJSON renders a preview-friendly shape.
func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Columns []string   `json:"columns"`
		Rows    [][]string `json:"rows"`
	}{t.columns, t.rows})
}

// ============================================================================
// GEOMETRY COLLECTION
// ============================================================================

// Feature is a geometry with its attributes. Attribute keys vary per feature.
type Feature struct {
	Geometry   orb.Geometry
	Attributes map[string]any
}

// GeometryCollection is an ordered sequence of features.
type GeometryCollection struct {
	Features []Feature
	keys     []string
	keySet   map[string]bool
}

// NewGeometryCollection builds a collection and caches the union of
// attribute keys in first-seen order.
func NewGeometryCollection(features []Feature) *GeometryCollection {
	g := &GeometryCollection{Features: features, keySet: make(map[string]bool)}
	for _, f := range features {
		for _, k := range sortedKeys(f.Attributes) {
			if !g.keySet[k] {
				g.keySet[k] = true
				g.keys = append(g.keys, k)
			}
		}
	}
	return g
}

// Len returns the feature count.
func (g *GeometryCollection) Len() int {
	if g == nil {
		return 0
	}
	return len(g.Features)
}

// Keys returns the union of attribute keys.
func (g *GeometryCollection) Keys() []string { return g.keys }

// HasKey reports whether any feature carries key.
func (g *GeometryCollection) HasKey(key string) bool { return g.keySet[key] }

// Value returns the attribute of feature i as a string.
func (g *GeometryCollection) Value(i int, key string) (string, bool) {
	if i < 0 || i >= len(g.Features) {
		return "", false
	}
	v, ok := g.Features[i].Attributes[key]
	if !ok {
		return "", false
	}
	return AttributeString(v)
}

// Subset returns a collection holding the given features in order.
func (g *GeometryCollection) Subset(indices []int) *GeometryCollection {
	out := &GeometryCollection{keys: g.keys, keySet: g.keySet, Features: make([]Feature, 0, len(indices))}
	for _, i := range indices {
		out.Features = append(out.Features, g.Features[i])
	}
	return out
}

// Bound returns the bounding box of all non-nil geometries.
func (g *GeometryCollection) Bound() (orb.Bound, bool) {
	var b orb.Bound
	found := false
	for _, f := range g.Features {
		if f.Geometry == nil {
			continue
		}
		fb := f.Geometry.Bound()
		if !found {
			b = fb
			found = true
			continue
		}
		b = b.Union(fb)
	}
	return b, found
}

// AttributeString renders a decoded attribute value for classification.
// nil and empty strings are missing.
func AttributeString(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(x)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case json.Number:
		return x.String(), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return fmt.Sprint(x), true
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ============================================================================
// RASTER
// ============================================================================

// Bounds is a spatial extent in the raster's coordinate reference system.
type Bounds struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// RasterSummary is the first band of a raster plus its spatial bounds.
// When the source carries no georeferencing, Bounds is in pixel space.
type RasterSummary struct {
	Width         int       `json:"width"`
	Height        int       `json:"height"`
	Band          []float64 `json:"-"`
	Min           float64   `json:"min"`
	Max           float64   `json:"max"`
	Mean          float64   `json:"mean"`
	Bounds        Bounds    `json:"bounds"`
	Georeferenced bool      `json:"georeferenced"`
}
