package video

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/chenBenjamin97/football-analyzer/pkg/cache"
	"github.com/chenBenjamin97/football-analyzer/pkg/config"
	"github.com/chenBenjamin97/football-analyzer/pkg/detection"
	"github.com/chenBenjamin97/football-analyzer/pkg/pipeline"
	"github.com/chenBenjamin97/football-analyzer/pkg/report"
	"github.com/chenBenjamin97/football-analyzer/pkg/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

//Analyzer runs the whole job for one uploaded video: detection, enrichment, and every output
//file (JSON result, summary, chart and annotated video)
type Analyzer struct {
	cfg    *config.Config
	cache  pipeline.Cache
	logger zerolog.Logger
}

//NewAnalyzer returns an Analyzer; c may be nil to always recompute
func NewAnalyzer(cfg *config.Config, c pipeline.Cache, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		cfg:    cfg,
		cache:  c,
		logger: logger.With().Str("component", "analyzer").Logger(),
	}
}

//Tag analyzes srcVideoName in the background job identified by job and logs the outcome.
//srcVideoName should include file's extension ('.mp4', etc.)
func (a *Analyzer) Tag(job, srcVideoName string) {
	logger := a.logger.With().Str("job", job).Str("video", srcVideoName).Logger()
	res, err := a.analyze(context.Background(), srcVideoName, logger)
	if err != nil {
		logger.Error().Err(err).Msg("analysis failed")
		return
	}
	logger.Info().Int("frames", res.Frames()).Msg("analysis done")
}

//Analyze reads srcVideoName from the source directory and writes its outputs. The annotated
//video (XVID (== MPEG-4 codec) '.avi', converted by ffmpeg) is saved in the ready directory.
func (a *Analyzer) Analyze(ctx context.Context, srcVideoName string) (*pipeline.Result, error) {
	return a.analyze(ctx, srcVideoName, a.logger.With().Str("video", srcVideoName).Logger())
}

func (a *Analyzer) analyze(ctx context.Context, srcVideoName string, logger zerolog.Logger) (*pipeline.Result, error) {
	dirs := a.cfg.Directory
	srcVideoPath := filepath.Join(dirs.Source, srcVideoName)
	base := utils.BaseName(srcVideoName)

	frames, err := ReadFrames(srcVideoPath)
	if err != nil {
		return nil, err
	}
	defer frames.Close()
	logger.Info().Int("frames", frames.Len()).Float64("fps", frames.FPS()).Msg("video decoded")

	detections, err := a.detections(ctx, srcVideoPath, base, frames.Len(), logger)
	if err != nil {
		return nil, err
	}

	settings := pipeline.SettingsFromConfig(a.cfg)
	if fps := frames.FPS(); fps > 0 {
		settings.Speed.FrameRate = fps
	}
	p, err := pipeline.New(settings, logger)
	if err != nil {
		return nil, err
	}

	in := pipeline.Input{
		Detections: detections,
		Sampler:    NewShirtSampler(frames),
		Clusterer:  KMeans{Attempts: a.cfg.Team.Attempts},
	}
	flow := NewFlowTracker(frames, a.cfg.Camera)
	defer flow.Close()
	in.Flow = flow

	if a.cache != nil {
		hash, err := cache.HashFile(srcVideoPath)
		if err != nil {
			logger.Warn().Err(err).Msg("could not hash video, cache disabled for this run")
		} else {
			in.Cache, in.CacheKey, in.ContentHash = a.cache, base, hash
		}
	}

	res, err := p.Run(ctx, in)
	if err != nil {
		return nil, err
	}

	if err := writeJSON(filepath.Join(dirs.Results, base+utils.ResultSuffix), res); err != nil {
		return nil, err
	}
	if err := writeJSON(filepath.Join(dirs.Results, base+utils.SummarySuffix), report.Summarize(res)); err != nil {
		return nil, err
	}
	if err := report.DistanceChart(res, filepath.Join(dirs.Results, base+utils.ChartSuffix)); err != nil {
		logger.Warn().Err(err).Msg("could not draw distance chart")
	}

	outputVideoPath := filepath.Join(dirs.Ready, base+"."+a.cfg.Video.ProdFormat)
	if err := a.writeAnnotated(ctx, frames, res, base, outputVideoPath, settings.Speed.FrameRate); err != nil {
		return nil, err
	}
	return res, nil
}

//detections prefers a detections file uploaded next to the video and runs the detector otherwise
func (a *Analyzer) detections(ctx context.Context, srcVideoPath, base string, frames int, logger zerolog.Logger) ([][]detection.Detection, error) {
	detectionsPath := filepath.Join(a.cfg.Directory.Source, base+utils.DetectionsSuffix)
	if _, err := os.Stat(detectionsPath); err == nil {
		logger.Info().Str("path", detectionsPath).Msg("using stored detections")
		return detection.LoadFile(detectionsPath, frames, logger)
	}
	return detection.RunDetector(ctx, a.cfg.Detector.Command, a.cfg.Detector.Script, srcVideoPath, frames, logger)
}

//writeAnnotated plots the result over every frame into a temporary '.avi' and converts it
//with ffmpeg into outputVideoPath
func (a *Analyzer) writeAnnotated(ctx context.Context, frames *Frames, res *pipeline.Result, base, outputVideoPath string, fps float64) error {
	tmpVideoPath := filepath.Join(a.cfg.Directory.Temp, base+".avi")
	width, height := frames.Size()

	videoWriter, err := gocv.VideoWriterFile(tmpVideoPath, "XVID", fps, width, height, true)
	if err != nil {
		return errors.Wrap(err, "writeAnnotated")
	}
	defer os.Remove(tmpVideoPath) //remove '.avi' temp file at the end of this function

	shares := controlShares(res.Control)
	for i := 0; i < frames.Len(); i++ {
		if err := ctx.Err(); err != nil {
			videoWriter.Close()
			return err
		}
		frame := frames.At(i).Clone()
		plotFrame(&frame, res, shares, i)
		err := videoWriter.Write(frame)
		frame.Close()
		if err != nil {
			videoWriter.Close()
			return errors.Wrapf(err, "writeAnnotated: frame %d", i)
		}
	}
	if err := videoWriter.Close(); err != nil {
		return errors.Wrap(err, "writeAnnotated")
	}

	//Convert to from 'avi' to the production format. example: ffmpeg -y -i match.avi match.mp4
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y", "-i", tmpVideoPath, outputVideoPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return errors.Wrapf(err, "ffmpeg: %s", lastLine(out))
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "writeJSON")
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(v); err != nil {
		return errors.Wrapf(err, "writeJSON: %s", path)
	}
	return nil
}

//lastLine returns the last non empty line of a process output, usually its error message
func lastLine(out []byte) string {
	end := len(out)
	for end > 0 && (out[end-1] == '\n' || out[end-1] == '\r') {
		end--
	}
	start := end
	for start > 0 && out[start-1] != '\n' {
		start--
	}
	return string(out[start:end])
}
