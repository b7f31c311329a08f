package chart

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/classify"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/dataset"
)

func snapshotOf(name string, p *dataset.Payload) dataset.Snapshot {
	return dataset.Snapshot{Entries: []dataset.Entry{{
		ID: "id", Name: name, State: dataset.Loaded(), Payload: p, Config: dataset.DefaultConfig(),
	}}}
}

func weatherTable() *dataset.Table {
	return dataset.NewTable([]string{"rain", "temp", "kind"}, [][]string{
		{"1", "10", "drizzle"},
		{"2", "11", "drizzle"},
		{"3", "", "storm"},
		{"10", "20", "storm"},
		{"11", "21", "storm"},
		{"", "22", "fog"},
	})
}

func TestCompose_NothingToRender(t *testing.T) {
	c := New(Options{})
	snap := snapshotOf("w.csv", dataset.TablePayload(weatherTable()))

	for _, req := range []Request{
		{Entry: "w.csv", Kind: KindDistribution, X: "none"},
		{Entry: "w.csv", Kind: KindProportion},
		{Entry: "w.csv", Kind: KindCorrelation, X: "NONE", Y: " "},
	} {
		res := c.Compose(snap, req)
		assert.True(t, res.Empty())
		assert.Equal(t, NothingToRender, res.Reason)
		assert.Empty(t, res.Diagnostics, "no column is not an error")
	}
}

func TestCompose_MissingColumn(t *testing.T) {
	res := New(Options{}).Compose(snapshotOf("w.csv", dataset.TablePayload(weatherTable())),
		Request{Entry: "w.csv", Kind: KindDistribution, X: "humidity"})
	assert.True(t, res.Empty())
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, dataset.LevelError, res.Diagnostics[0].Level)
	assert.Equal(t, "configuration", res.Diagnostics[0].Kind)
}

func TestCompose_RasterAndUnknownEntry(t *testing.T) {
	c := New(Options{})
	res := c.Compose(snapshotOf("dem.tif", dataset.RasterPayload(&dataset.RasterSummary{})),
		Request{Entry: "dem.tif", X: "band"})
	assert.True(t, res.Empty())
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, dataset.LevelInfo, res.Diagnostics[0].Level)

	res = c.Compose(dataset.Snapshot{}, Request{Entry: "ghost.csv", X: "a"})
	assert.True(t, res.Empty())
	assert.Equal(t, dataset.LevelError, res.Diagnostics[0].Level)
}

func TestCompose_Correlation(t *testing.T) {
	res := New(Options{}).Compose(snapshotOf("w.csv", dataset.TablePayload(weatherTable())),
		Request{Entry: "w.csv", Kind: KindCorrelation, X: "rain", Y: "temp"})

	require.Len(t, res.Charts, 1)
	ch := res.Charts[0]
	assert.Equal(t, "scatter", ch.ChartType)
	assert.Equal(t, "rain", ch.XAxis)
	assert.Equal(t, []XY{{1, 10}, {2, 11}, {10, 20}, {11, 21}}, ch.Series[0].Points)
	require.Len(t, res.Diagnostics, 1)
	assert.Contains(t, res.Diagnostics[0].Message, "dropped 2 rows")
}

func TestCompose_CorrelationNeedsTwoColumns(t *testing.T) {
	res := New(Options{}).Compose(snapshotOf("w.csv", dataset.TablePayload(weatherTable())),
		Request{Entry: "w.csv", Kind: KindCorrelation, X: "rain", Y: "none"})
	assert.True(t, res.Empty())
	assert.Equal(t, NothingToRender, res.Reason)
}

func TestCompose_DistributionSingleNumeric(t *testing.T) {
	res := New(Options{}).Compose(snapshotOf("w.csv", dataset.TablePayload(weatherTable())),
		Request{Entry: "w.csv", Kind: KindDistribution, X: "rain", MaxBands: 2})

	require.Len(t, res.Charts, 1)
	assert.Equal(t, []Point{{Label: "1–3", Value: 3}, {Label: "10–11", Value: 2}}, res.Charts[0].Series[0].Data)
	assert.False(t, res.Charts[0].Stacked)
}

func TestCompose_DistributionCrossTab(t *testing.T) {
	res := New(Options{}).Compose(snapshotOf("w.csv", dataset.TablePayload(weatherTable())),
		Request{Entry: "w.csv", Kind: KindDistribution, X: "rain", Y: "kind", MaxBands: 2})

	require.Len(t, res.Charts, 1)
	ch := res.Charts[0]
	assert.True(t, ch.Stacked)
	require.Len(t, ch.Series, 3)
	// kind ranked by frequency: storm(3), drizzle(2), fog(1)
	assert.Equal(t, "storm", ch.Series[0].Name)
	assert.Equal(t, []Point{{Label: "1–3", Value: 1}, {Label: "10–11", Value: 2}}, ch.Series[0].Data)
	assert.Equal(t, []Point{{Label: "1–3", Value: 2}, {Label: "10–11", Value: 0}}, ch.Series[1].Data)
	assert.Equal(t, []Point{{Label: "1–3", Value: 0}, {Label: "10–11", Value: 0}}, ch.Series[2].Data)
	assert.Len(t, ch.Colors, 3)
}

func TestCompose_ProportionTwoCharts(t *testing.T) {
	res := New(Options{}).Compose(snapshotOf("w.csv", dataset.TablePayload(weatherTable())),
		Request{Entry: "w.csv", Kind: KindProportion, X: "kind", Y: "temp"})

	require.Len(t, res.Charts, 2)
	assert.Equal(t, "pie", res.Charts[0].ChartType)
	assert.Equal(t, []Point{{Label: "storm", Value: 3}, {Label: "drizzle", Value: 2}, {Label: "fog", Value: 1}},
		res.Charts[0].Series[0].Data)

	var total float64
	for _, p := range res.Charts[1].Series[0].Data {
		total += p.Value
	}
	assert.Equal(t, 5.0, total, "missing temp is dropped")
}

func TestCompose_ProportionLongTail(t *testing.T) {
	rows := make([][]string, 0, 9)
	for i := 0; i < 9; i++ {
		rows = append(rows, []string{fmt.Sprintf("c%d", i)})
	}
	rows = append(rows, []string{"c0"})
	tbl := dataset.NewTable([]string{"cat"}, rows)

	res := New(Options{}).Compose(snapshotOf("c.csv", dataset.TablePayload(tbl)),
		Request{Entry: "c.csv", Kind: KindProportion, X: "cat"})

	require.Len(t, res.Charts, 1)
	data := res.Charts[0].Series[0].Data
	require.Len(t, data, 6)
	assert.Equal(t, Point{Label: "c0", Value: 2}, data[0])
	assert.Equal(t, Point{Label: classify.OtherLabel, Value: 4}, data[5])
}

func TestCompose_ProportionRealOtherCategoryKeepsItsRows(t *testing.T) {
	var rows [][]string
	for _, v := range []string{"Other", "Other", "Other", "a", "a", "b", "b", "c", "c", "d", "d", "e", "f", "g"} {
		rows = append(rows, []string{v})
	}
	tbl := dataset.NewTable([]string{"cat"}, rows)

	res := New(Options{}).Compose(snapshotOf("o.csv", dataset.TablePayload(tbl)),
		Request{Entry: "o.csv", Kind: KindProportion, X: "cat"})

	require.Len(t, res.Charts, 1)
	assert.Equal(t, []Point{
		{Label: "Other", Value: 3},
		{Label: "a", Value: 2},
		{Label: "b", Value: 2},
		{Label: "c", Value: 2},
		{Label: "d", Value: 2},
		{Label: "Other (grouped)", Value: 3},
	}, res.Charts[0].Series[0].Data)
}

func TestCompose_GeometryAttributes(t *testing.T) {
	g := dataset.NewGeometryCollection([]dataset.Feature{
		{Attributes: map[string]any{"zone": "a"}},
		{Attributes: map[string]any{"zone": "b"}},
		{Attributes: map[string]any{}},
	})
	res := New(Options{}).Compose(snapshotOf("z.geojson", dataset.GeometryPayload(g)),
		Request{Entry: "z.geojson", Kind: KindDistribution, X: "zone"})

	require.Len(t, res.Charts, 1)
	assert.Equal(t, []Point{{Label: "a", Value: 1}, {Label: "b", Value: 1}}, res.Charts[0].Series[0].Data)
}
