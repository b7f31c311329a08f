// Package parse decodes raw dataset bytes into registry payloads.
// Format is chosen by file extension, case-insensitively.
package parse

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/dataset"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/errs"
)

// Format is a supported dataset file format.
type Format string

const (
	FormatUnknown Format = ""
	FormatCSV     Format = "csv"
	FormatGeoJSON Format = "geojson"
	FormatGeoTIFF Format = "geotiff"
)

var extensions = map[string]Format{
	".csv":     FormatCSV,
	".geojson": FormatGeoJSON,
	".tif":     FormatGeoTIFF,
	".tiff":    FormatGeoTIFF,
}

// SupportedExtensions lists the recognised extensions.
func SupportedExtensions() []string {
	return []string{".csv", ".geojson", ".tiff", ".tif"}
}

// Detect returns the format implied by a file name or URL path.
func Detect(name string) Format {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	return extensions[strings.ToLower(path.Ext(name))]
}

// Supported reports whether name has a recognised extension.
func Supported(name string) bool {
	return Detect(name) != FormatUnknown
}

// TableParser decodes bytes into a Table.
type TableParser interface {
	ParseTable(data []byte) (*dataset.Table, error)
}

// GeometryParser decodes bytes into a GeometryCollection.
type GeometryParser interface {
	ParseGeometry(data []byte) (*dataset.GeometryCollection, error)
}

// RasterReader decodes bytes into a single-band RasterSummary.
type RasterReader interface {
	ParseRaster(data []byte) (*dataset.RasterSummary, error)
}

// Dispatcher routes bytes to the parser for their format.
type Dispatcher struct {
	Tables   TableParser
	Geometry GeometryParser
	Rasters  RasterReader
}

// NewDispatcher returns a dispatcher wired to the default parsers.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		Tables:   CSV{},
		Geometry: GeoJSON{},
		Rasters:  GeoTIFF{},
	}
}

// Parse decodes data according to the extension of name. Unknown
// extensions fail with errs.ErrUnsupportedFormat.
func (d *Dispatcher) Parse(name string, data []byte) (*dataset.Payload, error) {
	switch Detect(name) {
	case FormatCSV:
		t, err := d.Tables.ParseTable(data)
		if err != nil {
			return nil, errs.Parse("parse csv", name, err)
		}
		return dataset.TablePayload(t), nil
	case FormatGeoJSON:
		g, err := d.Geometry.ParseGeometry(data)
		if err != nil {
			return nil, errs.Parse("parse geojson", name, err)
		}
		return dataset.GeometryPayload(g), nil
	case FormatGeoTIFF:
		r, err := d.Rasters.ParseRaster(data)
		if err != nil {
			return nil, errs.Parse("parse geotiff", name, err)
		}
		return dataset.RasterPayload(r), nil
	default:
		return nil, errs.Acquisition("dispatch", name, errs.ErrUnsupportedFormat)
	}
}

// FailureReason renders err as the reason stored on a Failed entry.
// Unsupported formats use the bare cause text.
func FailureReason(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, errs.ErrUnsupportedFormat) {
		return errs.ErrUnsupportedFormat.Error()
	}
	return err.Error()
}

func emptyErr(what string) error {
	return fmt.Errorf("%w: %s", errs.ErrEmptyPayload, what)
}
