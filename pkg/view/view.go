// Package view projects stabilized pixel positions onto the pitch plane, in meters,
// through a homography fixed once for the whole video.
package view

import (
	"context"

	"github.com/chenBenjamin97/football-analyzer/pkg/geom"
	"github.com/chenBenjamin97/football-analyzer/pkg/tracks"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

//Config is the four point correspondence between the broadcast framing and the pitch
type Config struct {
	PixelVertices []geom.Point `mapstructure:"pixel_vertices"`
	PitchVertices []geom.Point `mapstructure:"pitch_vertices"`
}

//DefaultConfig maps the trapezoid of the reference framing onto a 23.32m x 68m slice of the
//pitch (four of the mowing stripes between the penalty area and the halfway line)
func DefaultConfig() Config {
	return Config{
		PixelVertices: []geom.Point{{X: 110, Y: 1035}, {X: 265, Y: 275}, {X: 910, Y: 260}, {X: 1640, Y: 915}},
		PitchVertices: []geom.Point{{X: 0, Y: 68}, {X: 0, Y: 0}, {X: 23.32, Y: 0}, {X: 23.32, Y: 68}},
	}
}

//Transformer holds the pixel quadrilateral and the homography computed from it
type Transformer struct {
	pixel geom.Polygon
	h     *mat.Dense
}

//New solves the homography mapping cfg.PixelVertices onto cfg.PitchVertices
func New(cfg Config) (*Transformer, error) {
	if len(cfg.PixelVertices) != 4 || len(cfg.PitchVertices) != 4 {
		return nil, errors.Errorf("view needs exactly 4 pixel and 4 pitch vertices, got %d and %d", len(cfg.PixelVertices), len(cfg.PitchVertices))
	}

	h, err := solveHomography(cfg.PixelVertices, cfg.PitchVertices)
	if err != nil {
		return nil, err
	}

	pixel := make(geom.Polygon, len(cfg.PixelVertices))
	copy(pixel, cfg.PixelVertices)
	return &Transformer{pixel: pixel, h: h}, nil
}

//solveHomography fixes h33 = 1 and solves the 8 remaining entries from the linear system
//given by the four correspondences (direct linear transform).
func solveHomography(src, dst []geom.Point) (*mat.Dense, error) {
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y
		a.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -x * u, -y * u})
		a.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -x * v, -y * v})
		b.SetVec(2*i, u)
		b.SetVec(2*i+1, v)
	}

	var sol mat.VecDense
	if err := sol.SolveVec(a, b); err != nil {
		return nil, errors.Wrap(err, "view: degenerate vertices, cannot solve homography")
	}

	h := mat.NewDense(3, 3, []float64{
		sol.AtVec(0), sol.AtVec(1), sol.AtVec(2),
		sol.AtVec(3), sol.AtVec(4), sol.AtVec(5),
		sol.AtVec(6), sol.AtVec(7), 1,
	})
	return h, nil
}

//Transform projects p onto the pitch. ok is false when p lies outside the calibrated
//quadrilateral, such points are never extrapolated.
func (t *Transformer) Transform(p geom.Point) (geom.Point, bool) {
	if !t.pixel.Contains(p) {
		return geom.Point{}, false
	}
	return t.project(p)
}

func (t *Transformer) project(p geom.Point) (geom.Point, bool) {
	var out mat.VecDense
	out.MulVec(t.h, mat.NewVecDense(3, []float64{p.X, p.Y, 1}))
	w := out.AtVec(2)
	if w == 0 {
		return geom.Point{}, false
	}
	return geom.Pt(out.AtVec(0)/w, out.AtVec(1)/w), true
}

//TransformTracks sets PositionTransformed on every record from its PositionAdjusted and clears
//it for records outside the quadrilateral. Frames are spread over at most workers goroutines,
//each goroutine only touches the records of its own frame.
func (t *Transformer) TransformTracks(ctx context.Context, store *tracks.Store, workers int) error {
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for frame := 0; frame < store.Frames(); frame++ {
		frame := frame
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for _, c := range tracks.Categories {
				store.Table(c).Each(frame, func(_ int, r *tracks.Record) {
					r.PositionTransformed = nil
					if p, ok := t.Transform(r.PositionAdjusted); ok {
						r.PositionTransformed = &p
					}
				})
			}
			return nil
		})
	}
	return g.Wait()
}
