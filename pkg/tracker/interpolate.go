package tracker

import (
	"github.com/chenBenjamin97/football-analyzer/pkg/geom"
	"github.com/chenBenjamin97/football-analyzer/pkg/tracks"
)

// InterpolateBall fills every frame without a ball record. Each bbox coordinate is treated as
// an independent series over the frame index: gaps between two detections are linearly
// interpolated, leading and trailing gaps hold the nearest detection. A table with no ball
// at all is left untouched.
func InterpolateBall(table *tracks.Table) int {
	known := make([]int, 0)
	for frame := 0; frame < table.Len(); frame++ {
		if table.Has(frame, tracks.BallID) {
			known = append(known, frame)
		}
	}
	if len(known) == 0 {
		return 0
	}

	box := func(frame int) geom.Rect {
		r, _ := table.Get(frame, tracks.BallID)
		return r.BBox
	}
	fill := func(frame int, b geom.Rect) {
		table.Set(frame, tracks.BallID, tracks.Record{BBox: b, Interpolated: true})
	}

	filled := 0
	first, last := known[0], known[len(known)-1]
	firstBox, lastBox := box(first), box(last)
	for frame := 0; frame < first; frame++ {
		fill(frame, firstBox)
		filled++
	}
	for k := 0; k+1 < len(known); k++ {
		from, to := known[k], known[k+1]
		a, b := box(from), box(to)
		for frame := from + 1; frame < to; frame++ {
			fill(frame, geom.Lerp(a, b, float64(frame-from)/float64(to-from)))
			filled++
		}
	}
	for frame := last + 1; frame < table.Len(); frame++ {
		fill(frame, lastBox)
		filled++
	}
	return filled
}
