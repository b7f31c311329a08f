package classify

import (
	"math"
	"sort"
	"strings"

	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/dataset"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/errs"
)

// Alpha is the fixed opacity of colormap-derived colors.
const Alpha = 160

// Colormap maps [0,1] onto colors by linear interpolation between evenly
// spaced stops.
type Colormap struct {
	Name  string
	stops [][3]float64
}

// ============================================================================
// COLORMAP TABLES: evenly spaced samples of the matplotlib maps
// ============================================================================

var colormaps = map[string][][3]float64{
	"viridis": {
		{0.267004, 0.004874, 0.329415},
		{0.282623, 0.140926, 0.457517},
		{0.229739, 0.322361, 0.545706},
		{0.172719, 0.448791, 0.557885},
		{0.127568, 0.566949, 0.550556},
		{0.157851, 0.683765, 0.501686},
		{0.369214, 0.788888, 0.382914},
		{0.678489, 0.863742, 0.189503},
		{0.993248, 0.906157, 0.143936},
	},
	"plasma": {
		{0.050383, 0.029803, 0.527975},
		{0.494877, 0.011990, 0.657865},
		{0.798216, 0.280197, 0.469538},
		{0.973416, 0.585761, 0.251540},
		{0.940015, 0.975158, 0.131326},
	},
	"inferno": {
		{0.001462, 0.000466, 0.013866},
		{0.341500, 0.062325, 0.429425},
		{0.735683, 0.215906, 0.330245},
		{0.978422, 0.557937, 0.034931},
		{0.988362, 0.998364, 0.644924},
	},
	"magma": {
		{0.001462, 0.000466, 0.013866},
		{0.316654, 0.071690, 0.485380},
		{0.716387, 0.214982, 0.475290},
		{0.986700, 0.535582, 0.382210},
		{0.987053, 0.991438, 0.749504},
	},
	"cividis": {
		{0.000000, 0.135112, 0.304751},
		{0.274191, 0.350563, 0.431554},
		{0.487026, 0.489100, 0.468930},
		{0.735683, 0.652534, 0.413568},
		{0.995737, 0.909344, 0.217772},
	},
	"greys": {
		{1, 1, 1},
		{0, 0, 0},
	},
	"blues": {
		{0.968627, 0.984314, 1.000000},
		{0.419608, 0.682353, 0.839216},
		{0.031373, 0.188235, 0.419608},
	},
	"reds": {
		{1.000000, 0.960784, 0.941176},
		{0.984314, 0.415686, 0.290196},
		{0.403922, 0.000000, 0.050980},
	},
	"coolwarm": {
		{0.229806, 0.298718, 0.753683},
		{0.865003, 0.865003, 0.865003},
		{0.705673, 0.015556, 0.150233},
	},
}

// Names returns the known colormap names, sorted.
func Names() []string {
	out := make([]string, 0, len(colormaps))
	for name := range colormaps {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Lookup resolves a colormap by case-insensitive name. A "_r" suffix
// reverses the map.
func Lookup(name string) (Colormap, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	reversed := strings.HasSuffix(key, "_r")
	base := strings.TrimSuffix(key, "_r")

	stops, ok := colormaps[base]
	if !ok {
		return Colormap{}, errs.Configurationf("colormap", "", "%w: %q", errs.ErrUnknownColormap, name)
	}
	if reversed {
		rev := make([][3]float64, len(stops))
		for i, s := range stops {
			rev[len(stops)-1-i] = s
		}
		stops = rev
	}
	return Colormap{Name: key, stops: stops}, nil
}

// At returns the color at position t, clamped to [0,1], quantized to 8 bits
// with the fixed Alpha.
func (c Colormap) At(t float64) dataset.RGBA {
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	n := len(c.stops) - 1
	pos := t * float64(n)
	i := int(math.Floor(pos))
	if i >= n {
		i = n - 1
	}
	f := pos - float64(i)
	a, b := c.stops[i], c.stops[i+1]
	return dataset.RGBA{
		quantize(a[0] + (b[0]-a[0])*f),
		quantize(a[1] + (b[1]-a[1])*f),
		quantize(a[2] + (b[2]-a[2])*f),
		Alpha,
	}
}

func quantize(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}
