package layers

import "math"

// Viewport is the derived map center and zoom.
type Viewport struct {
	CenterLat float64 `yaml:"center_lat" json:"center_lat"`
	CenterLon float64 `yaml:"center_lon" json:"center_lon"`
	Zoom      int     `yaml:"zoom" json:"zoom"`
}

// Zoom tiers by the larger of the latitude and longitude extents.
const (
	zoomClose  = 15
	zoomRegion = 10
	zoomWide   = 5
)

// ZoomForExtent maps a coordinate extent in degrees to a zoom tier.
func ZoomForExtent(extent float64) int {
	switch {
	case extent < 0.1:
		return zoomClose
	case extent < 1:
		return zoomRegion
	default:
		return zoomWide
	}
}

type points struct {
	n              int
	sumLat, sumLon float64
	minLat, maxLat float64
	minLon, maxLon float64
}

func (p *points) add(lat, lon float64) {
	if p.n == 0 {
		p.minLat, p.maxLat, p.minLon, p.maxLon = lat, lat, lon, lon
	}
	p.minLat = math.Min(p.minLat, lat)
	p.maxLat = math.Max(p.maxLat, lat)
	p.minLon = math.Min(p.minLon, lon)
	p.maxLon = math.Max(p.maxLon, lon)
	p.sumLat += lat
	p.sumLon += lon
	p.n++
}

func computeViewport(p points, fallback Viewport) Viewport {
	if p.n == 0 {
		return fallback
	}
	extent := math.Max(p.maxLat-p.minLat, p.maxLon-p.minLon)
	return Viewport{
		CenterLat: p.sumLat / float64(p.n),
		CenterLon: p.sumLon / float64(p.n),
		Zoom:      ZoomForExtent(extent),
	}
}
