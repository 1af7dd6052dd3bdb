// Package speed derives per-identity speed and covered distance from pitch positions,
// one fixed window of frames at a time.
package speed

import (
	"github.com/chenBenjamin97/football-analyzer/pkg/geom"
	"github.com/chenBenjamin97/football-analyzer/pkg/tracks"
	"github.com/chenBenjamin97/football-analyzer/pkg/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	DefaultFrameWindow = 5
	DefaultFrameRate   = 24.0
)

type Config struct {
	FrameWindow int     `mapstructure:"frame_window"`
	FrameRate   float64 `mapstructure:"frame_rate"`
}

func DefaultConfig() Config {
	return Config{FrameWindow: DefaultFrameWindow, FrameRate: DefaultFrameRate}
}

func (c Config) Validate() error {
	if c.FrameWindow <= 0 {
		return errors.New("speed frame_window must be positive")
	}
	if c.FrameRate <= 0 {
		return errors.New("speed frame_rate must be positive")
	}
	return nil
}

//Estimator stamps Speed (km/h) and Distance (m) on players and referees
type Estimator struct {
	cfg    Config
	logger zerolog.Logger
}

func NewEstimator(cfg Config, logger zerolog.Logger) (*Estimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Estimator{cfg: cfg, logger: logger.With().Str("component", "speed").Logger()}, nil
}

//AddSpeedAndDistance cuts the video in windows [start, start+FrameWindow), the last one ending
//on the last frame. For every identity present with a pitch position on both the first frame
//of a window and its end frame, the straight distance between the two is added to the
//identity's total, and speed and total are written to every frame of the window where the
//identity is present. Windows missing either position are skipped, not counted as standing.
func (e *Estimator) AddSpeedAndDistance(store *tracks.Store) {
	for _, c := range []tracks.Category{tracks.Players, tracks.Referees} {
		e.addTable(store.Table(c), c)
	}
}

func (e *Estimator) addTable(table *tracks.Table, c tracks.Category) {
	n := table.Len()
	total := make(map[int]float64)
	skipped := 0

	for start := 0; start < n; start += e.cfg.FrameWindow {
		end := start + e.cfg.FrameWindow
		if end > n-1 {
			end = n - 1
		}
		if end <= start {
			break
		}
		elapsed := float64(end-start) / e.cfg.FrameRate

		table.Each(start, func(id int, first *tracks.Record) {
			last, ok := table.Get(end, id)
			if !ok || first.PositionTransformed == nil || last.PositionTransformed == nil {
				skipped++
				return
			}

			covered := geom.Distance(*first.PositionTransformed, *last.PositionTransformed)
			total[id] += covered
			kmh := covered / elapsed * utils.KmhPerMps
			distance := total[id]

			for frame := start; frame < end; frame++ {
				r, ok := table.Get(frame, id)
				if !ok {
					continue
				}
				speed, dist := kmh, distance
				r.Speed = &speed
				r.Distance = &dist
			}
		})
	}

	e.logger.Debug().Str("category", string(c)).Int("identities", len(total)).Int("skipped_windows", skipped).Msg("speed and distance added")
}
