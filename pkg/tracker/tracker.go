// Package tracker turns per-frame detections into stable identities per category
// (players, referees, ball) and derives the pixel anchor of every record.
package tracker

import (
	hg "github.com/charles-haynes/munkres"
	"github.com/chenBenjamin97/football-analyzer/pkg/detection"
	"github.com/chenBenjamin97/football-analyzer/pkg/tracks"
	"github.com/chenBenjamin97/football-analyzer/pkg/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var (
	DefaultMaxAge        = 30
	DefaultMinIoU        = 0.2
	DefaultMinConfidence = 0.1
)

// Config holds the association parameters
type Config struct {
	// MaxAge is how many consecutive frames an unmatched identity survives
	MaxAge int `mapstructure:"max_age"`
	// MinIoU is the minimum overlap for a detection to continue an identity
	MinIoU float64 `mapstructure:"min_iou"`
	// MinConfidence drops weaker detections before association
	MinConfidence float64 `mapstructure:"min_confidence"`
}

func DefaultConfig() Config {
	return Config{
		MaxAge:        DefaultMaxAge,
		MinIoU:        DefaultMinIoU,
		MinConfidence: DefaultMinConfidence,
	}
}

// Validate checks the parameters are usable
func (c Config) Validate() error {
	if c.MaxAge < 0 {
		return errors.New("max_age must not be negative")
	}
	if c.MinIoU <= 0 || c.MinIoU > 1 {
		return errors.New("min_iou must be in (0, 1]")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return errors.New("minimum confidence must be between 0.0 and 1.0")
	}
	return nil
}

// categoryTracker associates detections of one category across frames
type categoryTracker struct {
	cfg      Config
	active   []*identity
	registry registry
}

// step matches dets against the active identities and returns the identity of each detection
func (ct *categoryTracker) step(dets []detection.Detection, frame int) ([]int, error) {
	assigned := make([]int, len(dets))
	matched := make([]bool, len(ct.active))

	if len(ct.active) > 0 && len(dets) > 0 {
		matchMtx := BuildMatchingMatrix(ct.active, dets, frame)
		HA, err := hg.NewHungarianAlgorithm(matchMtx)
		if err != nil {
			return nil, errors.Wrapf(err, "frame %d: building assignment", frame)
		}
		matches := HA.Execute()
		for oldIdx, newIdx := range matches {
			if newIdx < 0 || newIdx >= len(dets) || oldIdx >= len(ct.active) {
				continue
			}
			// the solver may pair rows and columns that do not overlap at all
			if -matchMtx[oldIdx][newIdx] < ct.cfg.MinIoU {
				continue
			}
			ident := ct.active[oldIdx]
			ident.update(dets[newIdx].BBox(), frame)
			matched[oldIdx] = true
			assigned[newIdx] = ident.id
		}
	}

	survivors := make([]*identity, 0, len(ct.active)+len(dets))
	for i, ident := range ct.active {
		if !matched[i] {
			ident.missed++
			if ident.missed > ct.cfg.MaxAge {
				continue
			}
		}
		survivors = append(survivors, ident)
	}

	for j, d := range dets {
		if assigned[j] != 0 {
			continue
		}
		ident := ct.registry.newIdentity(d.BBox(), frame)
		survivors = append(survivors, ident)
		assigned[j] = ident.id
	}

	ct.active = survivors
	return assigned, nil
}

// Tracker holds one association state machine per tracked category
type Tracker struct {
	cfg      Config
	players  *categoryTracker
	referees *categoryTracker
	logger   zerolog.Logger
}

func New(cfg Config, logger zerolog.Logger) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Tracker{
		cfg:      cfg,
		players:  &categoryTracker{cfg: cfg},
		referees: &categoryTracker{cfg: cfg},
		logger:   logger.With().Str("component", "tracker").Logger(),
	}, nil
}

// Track consumes every frame's detections in order and fills a new Store with bounding boxes.
// Frames must be given in increasing order, the tracker state carries from one to the next.
func (t *Tracker) Track(frames [][]detection.Detection) (*tracks.Store, error) {
	store := tracks.NewStore(len(frames))
	frames = detection.Filter(frames, t.cfg.MinConfidence)

	for frame, dets := range frames {
		var players, referees []detection.Detection
		var ball *detection.Detection

		for i := range dets {
			d := dets[i]
			switch detection.NormalizeClass(d.Class) {
			case utils.PlayerClass, utils.GoalkeeperClass:
				d.Class = utils.PlayerClass
				players = append(players, d)
			case utils.RefereeClass:
				referees = append(referees, d)
			case utils.BallClass:
				if ball == nil || d.Confidence > ball.Confidence {
					ball = &dets[i]
				}
			}
		}

		if err := t.record(store.Players, t.players, players, frame); err != nil {
			return nil, err
		}
		if err := t.record(store.Referees, t.referees, referees, frame); err != nil {
			return nil, err
		}
		if ball != nil {
			store.Ball.Set(frame, tracks.BallID, tracks.Record{BBox: ball.BBox()})
		}
	}

	t.logger.Info().
		Int("frames", len(frames)).
		Int("players", t.players.registry.next).
		Int("referees", t.referees.registry.next).
		Msg("tracking done")
	return store, nil
}

func (t *Tracker) record(table *tracks.Table, ct *categoryTracker, dets []detection.Detection, frame int) error {
	ids, err := ct.step(dets, frame)
	if err != nil {
		return err
	}
	for j, id := range ids {
		table.Set(frame, id, tracks.Record{BBox: dets[j].BBox()})
	}
	return nil
}

// AddPositions derives every record's anchor point: bottom-center for players and referees,
// center for the ball.
func AddPositions(store *tracks.Store) {
	for _, c := range tracks.Categories {
		table := store.Table(c)
		for frame := 0; frame < table.Len(); frame++ {
			table.Each(frame, func(_ int, r *tracks.Record) {
				if c == tracks.Ball {
					r.Position = r.BBox.Center()
				} else {
					r.Position = r.BBox.BottomCenter()
				}
			})
		}
	}
}
