// Package team splits players into two teams by shirt colour.
//
// Calibration runs once, on the first frame with players whose shirts can be sampled, and
// fixes the two team colours. Classification then labels every player identity with the
// nearest team colour the first time it can, and keeps that label for the rest of the video.
package team

import (
	"context"
	"sync"

	"github.com/chenBenjamin97/football-analyzer/pkg/geom"
	"github.com/chenBenjamin97/football-analyzer/pkg/tracks"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

//Assigner holds the calibrated team colours and the sticky team of every player identity
type Assigner struct {
	sampler   Sampler
	clusterer Clusterer
	logger    zerolog.Logger

	calibrated bool
	colors     [2]tracks.Color
	teams      map[int]tracks.Team
}

func NewAssigner(sampler Sampler, clusterer Clusterer, logger zerolog.Logger) *Assigner {
	return &Assigner{
		sampler:   sampler,
		clusterer: clusterer,
		logger:    logger.With().Str("component", "team").Logger(),
		teams:     make(map[int]tracks.Team),
	}
}

//Calibrated reports whether the team colours are known
func (a *Assigner) Calibrated() bool {
	return a.calibrated
}

//Colors returns the calibrated colour of each team
func (a *Assigner) Colors() map[tracks.Team]tracks.Color {
	if !a.calibrated {
		return nil
	}
	return map[tracks.Team]tracks.Color{tracks.Team1: a.colors[0], tracks.Team2: a.colors[1]}
}

//Team returns the cached team of a player identity
func (a *Assigner) Team(id int) (tracks.Team, bool) {
	t, ok := a.teams[id]
	return t, ok
}

//Calibrate clusters the shirt colours of the given boxes of one frame into the two team colours.
//Boxes whose crop is degenerate are left out. Fewer than two usable shirts leaves the assigner
//uncalibrated and returns ErrDegenerateCrop.
func (a *Assigner) Calibrate(frame int, boxes []geom.Rect) error {
	shirts := make([]tracks.Color, 0, len(boxes))
	for _, box := range boxes {
		c, err := a.shirt(frame, box)
		if err != nil {
			a.logger.Debug().Err(err).Int("frame", frame).Msg("skipping crop for calibration")
			continue
		}
		shirts = append(shirts, c)
	}
	if len(shirts) < 2 {
		return errors.Wrapf(ErrDegenerateCrop, "frame %d: %d usable shirts", frame, len(shirts))
	}

	_, centers, err := a.clusterer.Cluster(shirts, 2)
	if err != nil {
		return errors.Wrapf(ErrDegenerateCrop, "frame %d: clustering shirts: %v", frame, err)
	}
	if len(centers) != 2 || centers[0] == centers[1] {
		return errors.Wrapf(ErrDegenerateCrop, "frame %d: shirts do not split in two colours", frame)
	}

	a.colors = [2]tracks.Color{centers[0], centers[1]}
	a.calibrated = true
	a.logger.Info().Int("frame", frame).Int("shirts", len(shirts)).
		Floats64("team1", centers[0][:]).Floats64("team2", centers[1][:]).
		Msg("team colours calibrated")
	return nil
}

func (a *Assigner) shirt(frame int, box geom.Rect) (tracks.Color, error) {
	crop, err := a.sampler.Crop(frame, box)
	if err != nil {
		return tracks.Color{}, errors.Wrapf(ErrDegenerateCrop, "sampling: %v", err)
	}
	return ShirtColor(crop, a.clusterer)
}

//nearest returns the team whose colour is closest to c, Team1 on a tie
func (a *Assigner) nearest(c tracks.Color) tracks.Team {
	if ColorDistance(c, a.colors[1]) < ColorDistance(c, a.colors[0]) {
		return tracks.Team2
	}
	return tracks.Team1
}

//Classify returns the team of player id seen with box in frame. A cached team is returned as
//is. Otherwise the shirt is sampled and, unless the crop is degenerate, the result is cached
//for good.
func (a *Assigner) Classify(frame, id int, box geom.Rect) (tracks.Team, error) {
	if t, ok := a.teams[id]; ok {
		return t, nil
	}
	if !a.calibrated {
		return tracks.NoTeam, errors.New("team colours are not calibrated")
	}

	c, err := a.shirt(frame, box)
	if err != nil {
		return tracks.NoTeam, err
	}
	t := a.nearest(c)
	a.teams[id] = t
	return t, nil
}

//AssignTracks walks the player table in frame order and sets Team and TeamColor on every
//record it can. Within a frame the shirts of identities without a cached team are sampled on
//at most workers goroutines. A degenerate crop leaves that record without a team; the
//identity is tried again on its next frame.
func (a *Assigner) AssignTracks(ctx context.Context, players *tracks.Table, workers int) error {
	for frame := 0; frame < players.Len(); frame++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if players.Count(frame) == 0 {
			continue
		}

		if !a.calibrated {
			boxes := make([]geom.Rect, 0, players.Count(frame))
			players.Each(frame, func(_ int, r *tracks.Record) {
				boxes = append(boxes, r.BBox)
			})
			if err := a.Calibrate(frame, boxes); err != nil {
				a.logger.Warn().Err(err).Int("frame", frame).Msg("calibration postponed")
				continue
			}
		}

		if err := a.assignFrame(ctx, players, frame, workers); err != nil {
			return err
		}
	}
	return nil
}

func (a *Assigner) assignFrame(ctx context.Context, players *tracks.Table, frame, workers int) error {
	type sample struct {
		id    int
		box   geom.Rect
		color tracks.Color
		err   error
	}

	pending := make([]*sample, 0)
	players.Each(frame, func(id int, r *tracks.Record) {
		if _, ok := a.teams[id]; !ok {
			pending = append(pending, &sample{id: id, box: r.BBox})
		}
	})

	g, _ := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	var mu sync.Mutex
	degenerate := 0
	for _, s := range pending {
		s := s
		g.Go(func() error {
			s.color, s.err = a.shirt(frame, s.box)
			if s.err != nil {
				if !errors.Is(s.err, ErrDegenerateCrop) {
					return s.err
				}
				mu.Lock()
				degenerate++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrapf(err, "frame %d", frame)
	}

	for _, s := range pending {
		if s.err == nil {
			a.teams[s.id] = a.nearest(s.color)
		}
	}
	if degenerate > 0 {
		a.logger.Debug().Int("frame", frame).Int("crops", degenerate).Msg("degenerate crops left without team")
	}

	players.Each(frame, func(id int, r *tracks.Record) {
		t, ok := a.teams[id]
		if !ok {
			return
		}
		color := a.colors[t-1]
		r.Team = t
		r.TeamColor = &color
	})
	return nil
}
