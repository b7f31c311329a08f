package parse

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/dataset"
)

// GeoJSON parses a FeatureCollection, a single Feature or a bare geometry.
type GeoJSON struct{}

// ParseGeometry implements GeometryParser.
func (GeoJSON) ParseGeometry(data []byte) (*dataset.GeometryCollection, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}

	switch strings.ToLower(head.Type) {
	case "featurecollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("decode feature collection: %w", err)
		}
		features := make([]dataset.Feature, 0, len(fc.Features))
		for _, f := range fc.Features {
			features = append(features, toFeature(f))
		}
		return dataset.NewGeometryCollection(features), nil
	case "feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("decode feature: %w", err)
		}
		return dataset.NewGeometryCollection([]dataset.Feature{toFeature(f)}), nil
	case "":
		return nil, emptyErr("geojson has no type")
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("decode geometry: %w", err)
		}
		return dataset.NewGeometryCollection([]dataset.Feature{{Geometry: g.Geometry()}}), nil
	}
}

func toFeature(f *geojson.Feature) dataset.Feature {
	attrs := make(map[string]any, len(f.Properties))
	for k, v := range f.Properties {
		attrs[k] = v
	}
	return dataset.Feature{Geometry: f.Geometry, Attributes: attrs}
}
