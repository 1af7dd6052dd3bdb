package detection

import (
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

//ErrDetectorMissing is returned when the configured detector script cannot be found
var ErrDetectorMissing = errors.New("detector script not found")

//RunDetector executes the external detector (e.g. "python3 detect.py --video <path>") and parses
//its standard output while it runs. A missing script or a failing process is fatal for the run.
func RunDetector(ctx context.Context, command, script, videoPath string, frames int, logger zerolog.Logger) ([][]Detection, error) {
	if _, err := os.Stat(script); err != nil {
		return nil, errors.Wrapf(ErrDetectorMissing, "%s: %v", script, err)
	}

	cmd := exec.CommandContext(ctx, command, script, "--video", videoPath)
	cmd.Stderr = logger.With().Str("component", "detector").Logger()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "RunDetector: stdout pipe")
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "RunDetector: start")
	}

	dets, parseErr := Parse(stdout, frames, logger)
	//anything printed after "EOF" must still be read or the detector blocks on a full pipe
	if _, err := io.Copy(io.Discard, stdout); err != nil {
		logger.Warn().Err(err).Msg("could not drain detector output")
	}
	if err := cmd.Wait(); err != nil {
		return nil, errors.Wrap(err, "RunDetector: detector exited")
	}
	if parseErr != nil {
		return nil, parseErr
	}

	logger.Info().Str("video", videoPath).Int("frames", len(dets)).Msg("detections received")
	return dets, nil
}

//LoadFile reads detections previously written by the detector to a JSON lines file
func LoadFile(path string, frames int, logger zerolog.Logger) ([][]Detection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "LoadFile: %s", path)
	}
	defer f.Close()

	return Parse(f, frames, logger)
}
