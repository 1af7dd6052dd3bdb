package tracker

import (
	"github.com/chenBenjamin97/football-analyzer/pkg/detection"
	"github.com/chenBenjamin97/football-analyzer/pkg/geom"
)

// PredictBox assumes constant velocity between the two last matched boxes of an identity
// (seen on frames prevFrame and lastFrame) and extrapolates the box to frame.
func PredictBox(prev, last geom.Rect, prevFrame, lastFrame, frame int) geom.Rect {
	if lastFrame <= prevFrame {
		return last
	}
	steps := float64(lastFrame - prevFrame)
	velocity := last.Center().Sub(prev.Center()).Scale(1 / steps)
	return last.Translate(velocity.Scale(float64(frame - lastFrame)))
}

// BuildMatchingMatrix sets up a cost matrix for the Hungarian algorithm.
// Rows are active identities, columns are this frame's detections.
// Cost is -IoU between the identity's predicted box and the detection (solver finds min).
func BuildMatchingMatrix(active []*identity, dets []detection.Detection, frame int) [][]float64 {
	matchMtx := make([][]float64, len(active))
	for i, ident := range active {
		pred := ident.predict(frame)
		row := make([]float64, len(dets))
		for j, d := range dets {
			row[j] = -geom.IoU(pred, d.BBox())
		}
		matchMtx[i] = row
	}
	return matchMtx
}
