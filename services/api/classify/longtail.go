package classify

import "sort"

// OtherLabel collects the categories dropped by GroupLongTail. When a kept
// category already carries this name, the bucket is suffixed until unique.
const OtherLabel = "Other"

const otherSuffix = " (grouped)"

// DefaultTopN is the number of categories kept by long-tail grouping.
const DefaultTopN = 5

// GroupLongTail keeps the n most frequent values (ties broken by first
// occurrence) and relabels the rest into one tail bucket, normally
// OtherLabel. The returned slice is
// parallel to values; kept lists the retained labels in rank order.
func GroupLongTail(values []string, n int) (grouped []string, kept []string) {
	if n < 1 {
		n = DefaultTopN
	}
	counts := make(map[string]int)
	var order []string
	for _, v := range values {
		if _, ok := counts[v]; !ok {
			order = append(order, v)
		}
		counts[v]++
	}

	ranked := make([]string, len(order))
	copy(ranked, order)
	sort.SliceStable(ranked, func(i, j int) bool { return counts[ranked[i]] > counts[ranked[j]] })

	if len(ranked) <= n {
		grouped = make([]string, len(values))
		copy(grouped, values)
		return grouped, ranked
	}

	kept = ranked[:n]
	keep := make(map[string]bool, n)
	for _, k := range kept {
		keep[k] = true
	}
	other := OtherLabel
	for keep[other] {
		other += otherSuffix
	}
	grouped = make([]string, len(values))
	for i, v := range values {
		if keep[v] {
			grouped[i] = v
		} else {
			grouped[i] = other
		}
	}
	return grouped, append(kept[:n:n], other)
}
