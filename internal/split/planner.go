// Package split plans which time ranges of a timeline survive a set of
// delete intervals and cuts the surviving ranges into separate files.
package split

import "sort"

// Interval is a half-open [Start, End) range in seconds.
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// RetainedSegments computes the ranges of [0, duration) left over after
// removing every delete interval. Deletes may arrive unsorted or
// overlapping; the sweep absorbs both. Segments that collapse to zero or
// negative length are dropped.
func RetainedSegments(duration float64, deletes []Interval) []Interval {
	if len(deletes) == 0 {
		if duration <= 0 {
			return nil
		}
		return []Interval{{Start: 0, End: duration}}
	}

	sorted := append([]Interval(nil), deletes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	var retained []Interval
	cursor := 0.0
	for _, del := range sorted {
		if cursor < del.Start {
			retained = append(retained, Interval{Start: cursor, End: del.Start})
		}
		if del.End > cursor {
			cursor = del.End
		}
	}
	if cursor < duration {
		retained = append(retained, Interval{Start: cursor, End: duration})
	}

	kept := retained[:0]
	for _, seg := range retained {
		if seg.End > seg.Start {
			kept = append(kept, seg)
		}
	}
	return kept
}
