package tracker

import (
	"github.com/chenBenjamin97/football-analyzer/pkg/geom"
)

// identity is the tracker's memory of one physical object
type identity struct {
	id        int
	last      geom.Rect
	lastFrame int
	prev      geom.Rect
	prevFrame int
	hasPrev   bool
	missed    int // consecutive frames without a match
}

func (ident *identity) predict(frame int) geom.Rect {
	if !ident.hasPrev {
		return ident.last
	}
	return PredictBox(ident.prev, ident.last, ident.prevFrame, ident.lastFrame, frame)
}

// update moves the identity to its newly matched box
func (ident *identity) update(box geom.Rect, frame int) {
	ident.prev, ident.prevFrame = ident.last, ident.lastFrame
	ident.hasPrev = true
	ident.last, ident.lastFrame = box, frame
	ident.missed = 0
}

// registry hands out identity numbers for one category.
// Numbers start at 1 and are never reused, so a terminated identity cannot come back.
type registry struct {
	next int
}

func (r *registry) newIdentity(box geom.Rect, frame int) *identity {
	r.next++
	return &identity{id: r.next, last: box, lastFrame: frame}
}
