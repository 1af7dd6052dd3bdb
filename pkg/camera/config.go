package camera

import (
	"github.com/chenBenjamin97/football-analyzer/pkg/geom"
	"github.com/pkg/errors"
)

//ReferenceWidth is the frame width the default mask bands were measured on
const ReferenceWidth = 1920

//Band is a vertical strip [From, To) of the frame, in pixels at ReferenceWidth
type Band struct {
	From float64 `mapstructure:"from" json:"from"`
	To   float64 `mapstructure:"to" json:"to"`
}

//Config holds the feature detection and movement parameters
type Config struct {
	MaxCorners   int     `mapstructure:"max_corners"`
	QualityLevel float64 `mapstructure:"quality_level"`
	MinDistance  float64 `mapstructure:"min_distance"`
	MinMovement  float64 `mapstructure:"min_movement"`
	MaskBands    []Band  `mapstructure:"mask_bands"`
}

//DefaultConfig looks for features on the left edge and on the strip around the halfway line
//banners, which rarely contain players in the reference framing
func DefaultConfig() Config {
	return Config{
		MaxCorners:   100,
		QualityLevel: 0.3,
		MinDistance:  3,
		MinMovement:  5,
		MaskBands:    []Band{{From: 0, To: 20}, {From: 900, To: 1050}},
	}
}

func (c Config) Validate() error {
	if c.MaxCorners <= 0 {
		return errors.New("camera max_corners must be positive")
	}
	if c.QualityLevel <= 0 || c.QualityLevel > 1 {
		return errors.New("camera quality_level must be in (0, 1]")
	}
	if c.MinMovement < 0 {
		return errors.New("camera min_movement must not be negative")
	}
	if len(c.MaskBands) == 0 {
		return errors.New("camera mask_bands must not be empty")
	}
	for _, b := range c.MaskBands {
		if b.From < 0 || b.To <= b.From {
			return errors.Errorf("camera mask band [%v, %v) is invalid", b.From, b.To)
		}
	}
	return nil
}

//ScaledBands returns the mask bands for a frame of the given width, clipped to it
func (c Config) ScaledBands(width int) []Band {
	scale := float64(width) / ReferenceWidth
	out := make([]Band, 0, len(c.MaskBands))
	for _, b := range c.MaskBands {
		from, to := b.From*scale, b.To*scale
		if to > float64(width) {
			to = float64(width)
		}
		if from >= to {
			continue
		}
		out = append(out, Band{From: from, To: to})
	}
	return out
}

//InMask reports whether p falls inside one of the bands, given bands already scaled
func InMask(bands []Band, p geom.Point) bool {
	for _, b := range bands {
		if p.X >= b.From && p.X < b.To {
			return true
		}
	}
	return false
}
