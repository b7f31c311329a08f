package classify

import (
	"math"
	"sort"
	"strconv"

	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/dataset"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/errs"
)

// DefaultMaxBands is the band count used by charts when none is configured.
const DefaultMaxBands = 5

const maxIterations = 100

// Bands is the banding of one column.
type Bands struct {
	// Labels in display order: ascending group mean for numeric columns,
	// sorted values otherwise.
	Labels []string
	// Rows holds the label of each row; Present is false for missing rows.
	Rows    []string
	Present []bool
	Numeric bool
}

// BandColumn groups the values of key. Numeric columns are clustered into at
// most min(k, distinct) ranges labeled "min–max"; other columns use their raw
// values as labels. Missing values are dropped.
func BandColumn(view dataset.View, key string, k int) (Bands, error) {
	if k < 1 {
		return Bands{}, errs.Computation("band", "", errs.ErrInvalidBandCount)
	}
	if !view.HasKey(key) {
		return Bands{}, errs.Configurationf("band", "", "%w: %q", errs.ErrColumnNotFound, key)
	}
	n := view.Len()
	b := Bands{Rows: make([]string, n), Present: make([]bool, n)}

	if !IsNumeric(view, key) {
		for i := 0; i < n; i++ {
			b.Rows[i], b.Present[i] = view.Value(i, key)
		}
		b.Labels = Categories(view, key)
		if len(b.Labels) == 0 {
			return Bands{}, errs.Computation("band", "", errs.ErrNoValues)
		}
		return b, nil
	}

	values, present := Numbers(view, key)
	var members []float64
	for i, v := range values {
		if present[i] {
			members = append(members, v)
		}
	}
	if len(members) == 0 {
		return Bands{}, errs.Computation("band", "", errs.ErrNoNumericValues)
	}

	centroids := kmeans1D(members, k)
	type group struct {
		min, max, sum float64
		count        int
	}
	groups := make([]group, len(centroids))
	assign := make([]int, n)
	for i, v := range values {
		if !present[i] {
			continue
		}
		c := nearest(centroids, v)
		assign[i] = c
		g := &groups[c]
		if g.count == 0 || v < g.min {
			g.min = v
		}
		if g.count == 0 || v > g.max {
			g.max = v
		}
		g.sum += v
		g.count++
	}

	type labeled struct {
		label string
		mean  float64
	}
	mins := make([]float64, len(groups))
	maxs := make([]float64, len(groups))
	used := make([]bool, len(groups))
	for c, g := range groups {
		mins[c], maxs[c], used[c] = g.min, g.max, g.count > 0
	}
	labelOf := rangeLabels(mins, maxs, used)

	var ordered []labeled
	for c, g := range groups {
		if g.count == 0 {
			continue
		}
		ordered = append(ordered, labeled{label: labelOf[c], mean: g.sum / float64(g.count)})
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].mean < ordered[j].mean })

	seen := make(map[string]bool, len(ordered))
	for _, o := range ordered {
		if !seen[o.label] {
			seen[o.label] = true
			b.Labels = append(b.Labels, o.label)
		}
	}
	for i := range values {
		if present[i] {
			b.Rows[i], b.Present[i] = labelOf[assign[i]], true
		}
	}
	b.Numeric = true
	return b, nil
}

// maxLabelDecimals bounds the precision search of rangeLabels; beyond it
// labels fall back to the shortest exact representation.
const maxLabelDecimals = 12

// rangeLabels labels each used group "min–max" with the fewest decimals (two
// at least) that keep every group's label distinct.
func rangeLabels(mins, maxs []float64, used []bool) []string {
	labels := make([]string, len(mins))
	for d := 2; d <= maxLabelDecimals+1; d++ {
		seen := make(map[string]bool, len(mins))
		distinct := true
		for c := range mins {
			if !used[c] {
				continue
			}
			if d > maxLabelDecimals {
				labels[c] = strconv.FormatFloat(mins[c], 'g', -1, 64) + "–" + strconv.FormatFloat(maxs[c], 'g', -1, 64)
			} else {
				labels[c] = FormatDecimals(mins[c], d) + "–" + FormatDecimals(maxs[c], d)
			}
			if seen[labels[c]] {
				distinct = false
			}
			seen[labels[c]] = true
		}
		if distinct {
			break
		}
	}
	return labels
}

// kmeans1D runs Lloyd's algorithm over values with centroids seeded at evenly
// spaced distinct values, so the result depends only on the input.
func kmeans1D(values []float64, k int) []float64 {
	distinct := uniqueSorted(values)
	if k > len(distinct) {
		k = len(distinct)
	}
	centroids := make([]float64, k)
	if k == 1 {
		centroids[0] = mean(values)
		return centroids
	}
	for i := range centroids {
		idx := int(math.Round(float64(i) * float64(len(distinct)-1) / float64(k-1)))
		centroids[i] = distinct[idx]
	}

	assign := make([]int, len(values))
	for i := range assign {
		assign[i] = -1
	}
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, v := range values {
			c := nearest(centroids, v)
			if c != assign[i] {
				assign[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}
		sums := make([]float64, k)
		counts := make([]int, k)
		for i, v := range values {
			sums[assign[i]] += v
			counts[assign[i]]++
		}
		for c := range centroids {
			if counts[c] > 0 {
				centroids[c] = sums[c] / float64(counts[c])
			}
		}
	}
	return centroids
}

// nearest returns the closest centroid index; ties go to the lower index.
func nearest(centroids []float64, v float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, c := range centroids {
		if d := math.Abs(v - c); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func uniqueSorted(values []float64) []float64 {
	s := make([]float64, len(values))
	copy(s, values)
	sort.Float64s(s)
	out := s[:0]
	for i, v := range s {
		if i == 0 || v != s[i-1] {
			out = append(out, v)
		}
	}
	return out
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
