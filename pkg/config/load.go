package config

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

//Load reads config.yaml from configDir on top of the defaults and decodes it.
//The global viper instance keeps the values, as the rest of the service reads a few keys directly.
func Load(configDir string) (*Config, error) {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "could not read config file")
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "could not decode config file")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

//Validate reports the first missing critical key or invalid component setting
func (c *Config) Validate() error {
	if c.Video.ProdFormat == "" || c.Detector.Command == "" || c.Detector.Script == "" {
		return errors.New("missing critical configurations: video.prod_format, detector.command and detector.script are required")
	}
	for _, dir := range c.Directory.All() {
		if dir == "" {
			return errors.New("missing critical configurations: every directory.* key is required")
		}
	}
	if c.Pipeline.Version == "" {
		return errors.New("pipeline.version must not be empty")
	}
	if c.Pipeline.Workers <= 0 {
		return errors.Errorf("pipeline.workers must be positive, got %d", c.Pipeline.Workers)
	}
	if c.Team.Attempts <= 0 {
		return errors.Errorf("team.attempts must be positive, got %d", c.Team.Attempts)
	}
	if c.Possession.MaxDistance <= 0 {
		return errors.Errorf("possession.max_distance must be positive, got %v", c.Possession.MaxDistance)
	}
	if len(c.View.PixelVertices) != 4 || len(c.View.PitchVertices) != 4 {
		return errors.New("view.pixel_vertices and view.pitch_vertices need exactly 4 points each")
	}

	if err := c.Tracker.Validate(); err != nil {
		return errors.Wrap(err, "tracker")
	}
	if err := c.Camera.Validate(); err != nil {
		return errors.Wrap(err, "camera")
	}
	if err := c.Speed.Validate(); err != nil {
		return errors.Wrap(err, "speed")
	}
	return nil
}
