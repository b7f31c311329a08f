package parse

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/dataset"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/errs"
)

var stationsCSV = []byte("\xEF\xBB\xBFlat, lon ,val,name\n35.0,139.0,10,a\n35.1,139.1,90\n")

var pointsGeoJSON = []byte(`{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [139.0, 35.0]}, "properties": {"val": 1, "kind": "x"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [139.5, 35.5]}, "properties": {"kind": "y"}},
    {"type": "Feature", "geometry": {"type": "Polygon", "coordinates": [[[139,35],[140,35],[140,36],[139,35]]]}, "properties": {"val": 3}}
  ]
}`)

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		expected Format
	}{
		{"a.csv", FormatCSV},
		{"A.CSV", FormatCSV},
		{"zones.GeoJSON", FormatGeoJSON},
		{"dem.tif", FormatGeoTIFF},
		{"dem.TIFF", FormatGeoTIFF},
		{"https://host/data/x.csv?token=1", FormatCSV},
		{"notes.txt", FormatUnknown},
		{"noext", FormatUnknown},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, Detect(test.name))
		})
	}
}

func TestCSV_ParseTable(t *testing.T) {
	tbl, err := CSV{}.ParseTable(stationsCSV)
	require.NoError(t, err)

	assert.Equal(t, []string{"lat", "lon", "val", "name"}, tbl.Columns())
	assert.Equal(t, 2, tbl.Len())

	v, ok := tbl.Value(1, "val")
	assert.True(t, ok)
	assert.Equal(t, "90", v)

	_, ok = tbl.Value(1, "name")
	assert.False(t, ok, "short row is padded with missing cells")
}

func TestCSV_Empty(t *testing.T) {
	_, err := CSV{}.ParseTable([]byte("  \n"))
	assert.ErrorIs(t, err, errs.ErrEmptyPayload)
}

func TestGeoJSON_FeatureCollection(t *testing.T) {
	gc, err := GeoJSON{}.ParseGeometry(pointsGeoJSON)
	require.NoError(t, err)
	require.Equal(t, 3, gc.Len())

	_, isPoint := gc.Features[0].Geometry.(orb.Point)
	assert.True(t, isPoint)
	_, isPoly := gc.Features[2].Geometry.(orb.Polygon)
	assert.True(t, isPoly)

	assert.ElementsMatch(t, []string{"kind", "val"}, gc.Keys())

	v, ok := gc.Value(0, "val")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	_, ok = gc.Value(1, "val")
	assert.False(t, ok)

	b, ok := gc.Bound()
	require.True(t, ok)
	assert.Equal(t, 139.0, b.Min.Lon())
	assert.Equal(t, 36.0, b.Max.Lat())
}

func TestGeoJSON_SingleFeatureAndGeometry(t *testing.T) {
	gc, err := GeoJSON{}.ParseGeometry([]byte(`{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":null}`))
	require.NoError(t, err)
	assert.Equal(t, 1, gc.Len())

	gc, err = GeoJSON{}.ParseGeometry([]byte(`{"type":"LineString","coordinates":[[1,2],[3,4]]}`))
	require.NoError(t, err)
	require.Equal(t, 1, gc.Len())
	_, isLine := gc.Features[0].Geometry.(orb.LineString)
	assert.True(t, isLine)
}

func TestGeoJSON_Malformed(t *testing.T) {
	_, err := GeoJSON{}.ParseGeometry([]byte(`{"type":`))
	assert.Error(t, err)

	_, err = GeoJSON{}.ParseGeometry([]byte(`{}`))
	assert.ErrorIs(t, err, errs.ErrEmptyPayload)
}

func TestGeoTIFF_PixelBounds(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.SetGray(0, 0, color.Gray{Y: 0})
	img.SetGray(1, 0, color.Gray{Y: 50})
	img.SetGray(0, 1, color.Gray{Y: 100})
	img.SetGray(1, 1, color.Gray{Y: 250})

	var buf bytes.Buffer
	require.NoError(t, tiff.Encode(&buf, img, nil))

	r, err := GeoTIFF{}.ParseRaster(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 2, r.Width)
	assert.Equal(t, 2, r.Height)
	assert.Equal(t, []float64{0, 50, 100, 250}, r.Band)
	assert.Equal(t, 0.0, r.Min)
	assert.Equal(t, 250.0, r.Max)
	assert.Equal(t, 100.0, r.Mean)
	assert.False(t, r.Georeferenced)
	assert.Equal(t, dataset.Bounds{MaxX: 2, MaxY: 2}, r.Bounds)
}

func TestReadGeoTags(t *testing.T) {
	le := binary.LittleEndian
	data := make([]byte, 112)
	copy(data, "II")
	le.PutUint16(data[2:], 42)
	le.PutUint32(data[4:], 8)
	le.PutUint16(data[8:], 2)

	entry := func(at int, tag uint16, count, offset uint32) {
		le.PutUint16(data[at:], tag)
		le.PutUint16(data[at+2:], tiffTypeDouble)
		le.PutUint32(data[at+4:], count)
		le.PutUint32(data[at+8:], offset)
	}
	entry(10, tagModelPixelScale, 3, 40)
	entry(22, tagModelTiepoint, 6, 64)

	for i, v := range []float64{0.5, 0.25, 0} {
		le.PutUint64(data[40+i*8:], math.Float64bits(v))
	}
	for i, v := range []float64{0, 0, 0, 139.0, 36.0, 0} {
		le.PutUint64(data[64+i*8:], math.Float64bits(v))
	}

	scale, tie, err := readGeoTags(data)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.25, 0}, scale)
	assert.Equal(t, 139.0, tie[3])
	assert.Equal(t, 36.0, tie[4])
}

func TestDispatcher_Parse(t *testing.T) {
	d := NewDispatcher()

	p, err := d.Parse("a.CSV", stationsCSV)
	require.NoError(t, err)
	assert.Equal(t, dataset.PayloadTable, p.Kind)

	p, err = d.Parse("z.geojson", pointsGeoJSON)
	require.NoError(t, err)
	assert.Equal(t, dataset.PayloadGeometry, p.Kind)

	_, err = d.Parse("notes.txt", []byte("x"))
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindAcquisition))
	assert.Equal(t, "unsupported format", FailureReason(err))

	_, err = d.Parse("bad.geojson", []byte("{"))
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindParse))
}
