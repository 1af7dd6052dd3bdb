package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/chenBenjamin97/football-analyzer/pkg/api"
	"github.com/chenBenjamin97/football-analyzer/pkg/cache"
	"github.com/chenBenjamin97/football-analyzer/pkg/config"
	"github.com/chenBenjamin97/football-analyzer/pkg/logging"
	"github.com/chenBenjamin97/football-analyzer/pkg/pipeline"
	"github.com/chenBenjamin97/football-analyzer/pkg/utils"
	"github.com/chenBenjamin97/football-analyzer/pkg/video"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

func main() {
	configDir := flag.String("config", ".", "directory holding config.yaml")
	analyze := flag.String("analyze", "", "analyze this video from the source directory and exit, instead of serving")
	flag.Parse()

	if err := run(*configDir, *analyze); err != nil {
		log.Fatal().Err(err).Msg("Error")
	}
}

func run(configDir, analyze string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}

	var files []io.Writer
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return errors.Wrap(err, "could not open log file")
		}
		defer f.Close()
		files = append(files, f)
	}
	logger := logging.New(cfg.Log.Level, os.Stdout, files...)

	//create missing directories from config file
	if err := utils.EnsureDirs(cfg.Directory.All()...); err != nil {
		return err
	}

	var resultCache pipeline.Cache
	if cfg.Cache.Enabled {
		c, err := cache.Open(cfg.CachePath(), cfg.Pipeline.Version, logger)
		if err != nil {
			return err
		}
		defer c.Close()
		resultCache = c
	}

	analyzer := video.NewAnalyzer(cfg, resultCache, logger)

	if analyze != "" {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		_, err := analyzer.Analyze(ctx, analyze)
		return errors.Wrapf(err, "analyze '%s'", analyze)
	}

	r := api.SetRouter(cfg, analyzer, logger)
	logger.Info().Str("port", cfg.HTTP.Port).Msg("serving")
	return r.Run(":" + cfg.HTTP.Port)
}
