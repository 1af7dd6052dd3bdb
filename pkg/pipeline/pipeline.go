// Package pipeline runs the enrichment stages over one video in their required order:
// tracking, ball interpolation, positions, camera compensation, pitch projection,
// speed and distance, teams and possession.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"time"

	"github.com/chenBenjamin97/football-analyzer/pkg/cache"
	"github.com/chenBenjamin97/football-analyzer/pkg/camera"
	"github.com/chenBenjamin97/football-analyzer/pkg/config"
	"github.com/chenBenjamin97/football-analyzer/pkg/detection"
	"github.com/chenBenjamin97/football-analyzer/pkg/geom"
	"github.com/chenBenjamin97/football-analyzer/pkg/possession"
	"github.com/chenBenjamin97/football-analyzer/pkg/speed"
	"github.com/chenBenjamin97/football-analyzer/pkg/team"
	"github.com/chenBenjamin97/football-analyzer/pkg/tracker"
	"github.com/chenBenjamin97/football-analyzer/pkg/tracks"
	"github.com/chenBenjamin97/football-analyzer/pkg/view"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

//ErrNoFrames is returned when the input has no frames
var ErrNoFrames = camera.ErrNoFrames

//Settings are the parameters of every stage
type Settings struct {
	Tracker     tracker.Config
	Camera      camera.Config
	View        view.Config
	MaxDistance float64
	Speed       speed.Config
	Workers     int
}

func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Tracker:     cfg.Tracker,
		Camera:      cfg.Camera,
		View:        cfg.View,
		MaxDistance: cfg.Possession.MaxDistance,
		Speed:       cfg.Speed,
		Workers:     cfg.Pipeline.Workers,
	}
}

//Cache stores tracker and camera outputs between runs. A Load error of any kind is a miss.
type Cache interface {
	Load(key string, kind cache.Kind, contentHash string, out interface{}) error
	Save(key string, kind cache.Kind, contentHash string, v interface{}) error
}

//Input is everything one run needs. Cache is optional; it is only used with a CacheKey.
//ContentHash identifies the video; cache entries are also bound to the detections and settings.
type Input struct {
	Detections  [][]detection.Detection
	Flow        camera.FlowSource
	Sampler     team.Sampler
	Clusterer   team.Clusterer
	Cache       Cache
	CacheKey    string
	ContentHash string
}

//Result is the enriched track store plus the per-frame series derived from it
type Result struct {
	Tracks         *tracks.Store                `json:"tracks"`
	CameraMovement *camera.Movement             `json:"camera_movement"`
	Control        *possession.Control          `json:"team_control"`
	TeamColors     map[tracks.Team]tracks.Color `json:"team_colors"`
}

//Frames returns the number of frames of the result
func (r *Result) Frames() int {
	return r.Tracks.Frames()
}

type Pipeline struct {
	settings   Settings
	view       *view.Transformer
	camera     *camera.Estimator
	speed      *speed.Estimator
	possession *possession.Assigner
	logger     zerolog.Logger
}

//New checks every stage's settings up front so a bad configuration fails before any video work
func New(s Settings, logger zerolog.Logger) (*Pipeline, error) {
	if err := s.Tracker.Validate(); err != nil {
		return nil, errors.Wrap(err, "tracker")
	}
	vt, err := view.New(s.View)
	if err != nil {
		return nil, err
	}
	ce, err := camera.NewEstimator(s.Camera, logger)
	if err != nil {
		return nil, errors.Wrap(err, "camera")
	}
	se, err := speed.NewEstimator(s.Speed, logger)
	if err != nil {
		return nil, errors.Wrap(err, "speed")
	}
	pa, err := possession.NewAssigner(s.MaxDistance)
	if err != nil {
		return nil, err
	}
	if s.Workers <= 0 {
		s.Workers = 1
	}

	return &Pipeline{
		settings:   s,
		view:       vt,
		camera:     ce,
		speed:      se,
		possession: pa,
		logger:     logger.With().Str("component", "pipeline").Logger(),
	}, nil
}

//Run enriches one video. Stages run one after the other; the view and team stages spread
//work within a frame over the configured workers.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	n := len(in.Detections)
	if n == 0 {
		return nil, ErrNoFrames
	}
	if in.Flow != nil && in.Flow.Frames() != n {
		return nil, errors.Errorf("detections cover %d frames, video has %d", n, in.Flow.Frames())
	}
	started := time.Now()
	logger := p.logger.With().Str("key", in.CacheKey).Int("frames", n).Logger()

	store, err := p.loadOrTrack(in, logger)
	if err != nil {
		return nil, err
	}

	filled := tracker.InterpolateBall(store.Ball)
	logger.Debug().Int("frames", filled).Msg("ball interpolated")
	tracker.AddPositions(store)

	movement, err := p.cameraMovement(ctx, in, n, logger)
	if err != nil {
		return nil, err
	}
	movement.AdjustTracks(store)

	if err := p.view.TransformTracks(ctx, store, p.settings.Workers); err != nil {
		return nil, errors.Wrap(err, "view")
	}

	p.speed.AddSpeedAndDistance(store)

	var colors map[tracks.Team]tracks.Color
	if in.Sampler != nil && in.Clusterer != nil {
		assigner := team.NewAssigner(in.Sampler, in.Clusterer, p.logger)
		if err := assigner.AssignTracks(ctx, store.Players, p.settings.Workers); err != nil {
			return nil, errors.Wrap(err, "team")
		}
		colors = assigner.Colors()
	} else {
		logger.Warn().Msg("no pixels to sample shirts from, teams left unassigned")
	}

	control := p.possession.AssignTracks(store)

	logger.Info().
		Dur("took", time.Since(started)).
		Float64("team1_control", control.Share(tracks.Team1)).
		Float64("team2_control", control.Share(tracks.Team2)).
		Msg("video enriched")

	return &Result{
		Tracks:         store,
		CameraMovement: movement,
		Control:        control,
		TeamColors:     colors,
	}, nil
}

func (p *Pipeline) useCache(in Input) bool {
	return in.Cache != nil && in.CacheKey != ""
}

//entryHash binds a cache entry to everything its stage output depends on: the video content
//plus the tracker settings and detections for tracks, or the camera settings for camera movement
func (p *Pipeline) entryHash(kind cache.Kind, in Input) (string, error) {
	h := sha256.New()
	io.WriteString(h, string(kind)+"\n"+in.ContentHash+"\n")

	enc := json.NewEncoder(h)
	var err error
	switch kind {
	case cache.KindTracks:
		if err = enc.Encode(p.settings.Tracker); err == nil {
			err = enc.Encode(in.Detections)
		}
	case cache.KindCamera:
		err = enc.Encode(p.settings.Camera)
	default:
		err = errors.Errorf("unknown cache kind %q", kind)
	}
	if err != nil {
		return "", errors.Wrap(err, "hashing cache inputs")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

//cacheHash returns the entry hash, or false when the cache should be skipped for this kind
func (p *Pipeline) cacheHash(kind cache.Kind, in Input, logger zerolog.Logger) (string, bool) {
	if !p.useCache(in) {
		return "", false
	}
	hash, err := p.entryHash(kind, in)
	if err != nil {
		logger.Warn().Err(err).Str("kind", string(kind)).Msg("cache disabled for this stage")
		return "", false
	}
	return hash, true
}

//loadOrTrack returns the tracker output, from the cache when a valid entry exists
func (p *Pipeline) loadOrTrack(in Input, logger zerolog.Logger) (*tracks.Store, error) {
	n := len(in.Detections)
	hash, withCache := p.cacheHash(cache.KindTracks, in, logger)
	if withCache {
		cached := &tracks.Store{}
		err := in.Cache.Load(in.CacheKey, cache.KindTracks, hash, cached)
		if err == nil {
			err = cached.Validate(n)
		}
		if err == nil {
			logger.Info().Msg("tracks loaded from cache")
			return cached, nil
		}
		logger.Info().Err(err).Msg("tracks cache miss")
	}

	t, err := tracker.New(p.settings.Tracker, p.logger)
	if err != nil {
		return nil, err
	}
	store, err := t.Track(in.Detections)
	if err != nil {
		return nil, errors.Wrap(err, "tracker")
	}

	if withCache {
		if err := in.Cache.Save(in.CacheKey, cache.KindTracks, hash, store); err != nil {
			logger.Warn().Err(err).Msg("could not cache tracks")
		}
	}
	return store, nil
}

//cameraMovement returns the per-frame camera displacement, from the cache when a valid entry exists.
//Without a flow source the camera is assumed static.
func (p *Pipeline) cameraMovement(ctx context.Context, in Input, n int, logger zerolog.Logger) (*camera.Movement, error) {
	hash, withCache := p.cacheHash(cache.KindCamera, in, logger)
	if withCache {
		var perFrame []geom.Point
		err := in.Cache.Load(in.CacheKey, cache.KindCamera, hash, &perFrame)
		if err == nil && len(perFrame) != n {
			err = errors.Errorf("cached camera movement covers %d frames, want %d", len(perFrame), n)
		}
		if err == nil {
			logger.Info().Msg("camera movement loaded from cache")
			return camera.NewMovement(perFrame), nil
		}
		logger.Info().Err(err).Msg("camera cache miss")
	}

	if in.Flow == nil {
		logger.Warn().Msg("no frames for optical flow, assuming a static camera")
		return camera.NewMovement(make([]geom.Point, n)), nil
	}

	movement, err := p.camera.Estimate(ctx, in.Flow)
	if err != nil {
		return nil, errors.Wrap(err, "camera")
	}

	if withCache {
		if err := in.Cache.Save(in.CacheKey, cache.KindCamera, hash, movement.PerFrame); err != nil {
			logger.Warn().Err(err).Msg("could not cache camera movement")
		}
	}
	return movement, nil
}
