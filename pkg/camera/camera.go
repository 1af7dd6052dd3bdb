// Package camera estimates the apparent camera pan of a broadcast from sparse optical flow
// of background features, and compensates tracked positions for it.
package camera

import (
	"context"

	"github.com/chenBenjamin97/football-analyzer/pkg/geom"
	"github.com/chenBenjamin97/football-analyzer/pkg/tracks"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

//ErrNoFrames is returned when there is nothing to estimate on
var ErrNoFrames = errors.New("no frames")

//FlowSource gives the estimator access to the decoded frames without tying it to a video library
type FlowSource interface {
	//Frames returns the number of frames
	Frames() int
	//Features detects trackable corners on frame, restricted to the static mask
	Features(frame int) ([]geom.Point, error)
	//Track follows features from frame-1 into frame. It returns the feature pairs that were
	//tracked successfully, in the order of features.
	Track(frame int, features []geom.Point) (prev, next []geom.Point, err error)
}

//Movement is the per-frame camera displacement and its running sum
type Movement struct {
	PerFrame   []geom.Point `json:"per_frame"`
	Cumulative []geom.Point `json:"cumulative"`
}

//NewMovement builds a Movement from per-frame displacements
func NewMovement(perFrame []geom.Point) *Movement {
	m := &Movement{
		PerFrame:   perFrame,
		Cumulative: make([]geom.Point, len(perFrame)),
	}
	var sum geom.Point
	for i, d := range perFrame {
		sum = sum.Add(d)
		m.Cumulative[i] = sum
	}
	return m
}

//Frames returns the number of frames covered
func (m *Movement) Frames() int {
	return len(m.PerFrame)
}

//Adjust removes the camera pan accumulated up to frame from a pixel position
func (m *Movement) Adjust(p geom.Point, frame int) geom.Point {
	if frame < 0 || frame >= len(m.Cumulative) {
		return p
	}
	return p.Sub(m.Cumulative[frame])
}

//AdjustTracks sets PositionAdjusted on every record of the store
func (m *Movement) AdjustTracks(store *tracks.Store) {
	for _, c := range tracks.Categories {
		table := store.Table(c)
		for frame := 0; frame < table.Len(); frame++ {
			table.Each(frame, func(_ int, r *tracks.Record) {
				r.PositionAdjusted = m.Adjust(r.Position, frame)
			})
		}
	}
}

//Estimator measures the camera displacement frame by frame
type Estimator struct {
	cfg    Config
	logger zerolog.Logger
}

func NewEstimator(cfg Config, logger zerolog.Logger) (*Estimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Estimator{cfg: cfg, logger: logger.With().Str("component", "camera").Logger()}, nil
}

//Estimate walks the frames in order. Features are selected on the first frame and followed
//into every next frame; per-feature movements not above MinMovement are noise. The frame's
//displacement is the movement of the feature that moved most (the first one on ties), and
//when the frame moved, features are selected again on it.
func (e *Estimator) Estimate(ctx context.Context, src FlowSource) (*Movement, error) {
	n := src.Frames()
	if n == 0 {
		return nil, ErrNoFrames
	}

	perFrame := make([]geom.Point, n)
	features, err := src.Features(0)
	if err != nil {
		return nil, errors.Wrap(err, "Estimate: features on first frame")
	}

	moved := 0
	for frame := 1; frame < n; frame++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if len(features) == 0 {
			if features, err = src.Features(frame); err != nil {
				return nil, errors.Wrapf(err, "Estimate: features on frame %d", frame)
			}
			continue
		}

		prev, next, err := src.Track(frame, features)
		if err != nil {
			return nil, errors.Wrapf(err, "Estimate: flow into frame %d", frame)
		}

		d, ok := e.dominantMovement(prev, next)
		if !ok {
			continue
		}
		perFrame[frame] = d
		moved++

		if features, err = src.Features(frame); err != nil {
			return nil, errors.Wrapf(err, "Estimate: features on frame %d", frame)
		}
	}

	e.logger.Info().Int("frames", n).Int("moved", moved).Msg("camera movement estimated")
	return NewMovement(perFrame), nil
}

func (e *Estimator) dominantMovement(prev, next []geom.Point) (geom.Point, bool) {
	maxDistance := 0.0
	var best geom.Point
	for i := range prev {
		if i >= len(next) {
			break
		}
		if dist := geom.Distance(prev[i], next[i]); dist > maxDistance {
			maxDistance = dist
			best = next[i].Sub(prev[i])
		}
	}
	if maxDistance <= e.cfg.MinMovement {
		return geom.Point{}, false
	}
	return best, true
}
