// Package config loads config.yaml through viper and exposes it as a typed Config.
package config

import (
	"path/filepath"

	"github.com/chenBenjamin97/football-analyzer/pkg/camera"
	"github.com/chenBenjamin97/football-analyzer/pkg/geom"
	"github.com/chenBenjamin97/football-analyzer/pkg/possession"
	"github.com/chenBenjamin97/football-analyzer/pkg/speed"
	"github.com/chenBenjamin97/football-analyzer/pkg/tracker"
	"github.com/chenBenjamin97/football-analyzer/pkg/view"
	"github.com/spf13/viper"
)

//FileName is the config file name looked up in the config directory, without extension
const FileName = "config"

type HTTPConfig struct {
	Port string `mapstructure:"port"`
}

//LogConfig sets the console level; File, when set, also receives every line
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type FrontendConfig struct {
	StaticFilesPath string `mapstructure:"static_files_path"`
}

//DirectoryConfig is where videos and results live
type DirectoryConfig struct {
	Root    string `mapstructure:"root"`
	Source  string `mapstructure:"source"`
	Ready   string `mapstructure:"ready"`
	Temp    string `mapstructure:"temp"`
	Cache   string `mapstructure:"cache"`
	Results string `mapstructure:"results"`
}

//All returns every directory, root first
func (d DirectoryConfig) All() []string {
	return []string{d.Root, d.Source, d.Ready, d.Temp, d.Cache, d.Results}
}

type VideoConfig struct {
	ProdFormat string `mapstructure:"prod_format"`
}

//DetectorConfig is the external detector process, run as "<command> <script> --video <path>"
type DetectorConfig struct {
	Command string `mapstructure:"command"`
	Script  string `mapstructure:"script"`
}

type PossessionConfig struct {
	MaxDistance float64 `mapstructure:"max_distance"`
}

type TeamConfig struct {
	Attempts int `mapstructure:"attempts"`
}

type PipelineConfig struct {
	Workers int    `mapstructure:"workers"`
	Version string `mapstructure:"version"`
}

type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type Config struct {
	HTTP       HTTPConfig       `mapstructure:"http"`
	Log        LogConfig        `mapstructure:"log"`
	Frontend   FrontendConfig   `mapstructure:"frontend"`
	Directory  DirectoryConfig  `mapstructure:"directory"`
	Video      VideoConfig      `mapstructure:"video"`
	Detector   DetectorConfig   `mapstructure:"detector"`
	Tracker    tracker.Config   `mapstructure:"tracker"`
	Camera     camera.Config    `mapstructure:"camera"`
	View       view.Config      `mapstructure:"view"`
	Possession PossessionConfig `mapstructure:"possession"`
	Speed      speed.Config     `mapstructure:"speed"`
	Team       TeamConfig       `mapstructure:"team"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Cache      CacheConfig      `mapstructure:"cache"`
}

//CachePath is the SQLite file holding cached tracks and camera movement
func (c *Config) CachePath() string {
	return filepath.Join(c.Directory.Cache, "analysis.db")
}

func setDefaults() {
	viper.SetDefault("http.port", "8080")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.file", "")
	viper.SetDefault("frontend.static_files_path", "")

	viper.SetDefault("directory.root", "./data")
	viper.SetDefault("directory.source", "./data/source")
	viper.SetDefault("directory.ready", "./data/ready")
	viper.SetDefault("directory.temp", "./data/temp")
	viper.SetDefault("directory.cache", "./data/cache")
	viper.SetDefault("directory.results", "./data/results")

	viper.SetDefault("video.prod_format", "mp4")

	viper.SetDefault("detector.command", "python3")
	viper.SetDefault("detector.script", "./detector/detect.py")

	viper.SetDefault("tracker.max_age", tracker.DefaultMaxAge)
	viper.SetDefault("tracker.min_iou", tracker.DefaultMinIoU)
	viper.SetDefault("tracker.min_confidence", tracker.DefaultMinConfidence)

	cam := camera.DefaultConfig()
	viper.SetDefault("camera.max_corners", cam.MaxCorners)
	viper.SetDefault("camera.quality_level", cam.QualityLevel)
	viper.SetDefault("camera.min_distance", cam.MinDistance)
	viper.SetDefault("camera.min_movement", cam.MinMovement)
	bands := make([]map[string]interface{}, 0, len(cam.MaskBands))
	for _, b := range cam.MaskBands {
		bands = append(bands, map[string]interface{}{"from": b.From, "to": b.To})
	}
	viper.SetDefault("camera.mask_bands", bands)

	v := view.DefaultConfig()
	viper.SetDefault("view.pixel_vertices", points(v.PixelVertices))
	viper.SetDefault("view.pitch_vertices", points(v.PitchVertices))

	viper.SetDefault("possession.max_distance", possession.DefaultMaxDistance)

	viper.SetDefault("speed.frame_window", speed.DefaultFrameWindow)
	viper.SetDefault("speed.frame_rate", speed.DefaultFrameRate)

	viper.SetDefault("team.attempts", 10)

	viper.SetDefault("pipeline.workers", 4)
	viper.SetDefault("pipeline.version", "1")

	viper.SetDefault("cache.enabled", true)
}

func points(ps []geom.Point) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(ps))
	for _, p := range ps {
		out = append(out, map[string]interface{}{"x": p.X, "y": p.Y})
	}
	return out
}
