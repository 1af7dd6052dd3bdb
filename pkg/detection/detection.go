// Package detection reads per-frame object detections produced by the external
// detector (a python YOLO script) and prepares them for tracking.
package detection

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/chenBenjamin97/football-analyzer/pkg/geom"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

//Detection is one bounding box reported by the detector for one frame
type Detection struct {
	Frame      int     `json:"Frame"`
	Class      string  `json:"Class"`
	Confidence float64 `json:"Confidence"`
	Xmin       float64 `json:"Xmin"`
	Ymin       float64 `json:"Ymin"`
	Xmax       float64 `json:"Xmax"`
	Ymax       float64 `json:"Ymax"`
}

func (d Detection) BBox() geom.Rect {
	return geom.R(d.Xmin, d.Ymin, d.Xmax, d.Ymax)
}

//NormalizeClass lower cases and trims a detector class name
func NormalizeClass(class string) string {
	return strings.ToLower(strings.TrimSpace(class))
}

const detectionLinePrefix = `{"Frame":`

//Parse reads the detector's line oriented output and groups detections by frame.
//Lines that are not detections (progress, FPS prints) are skipped, "EOF" ends the stream.
//frames is the video length; zero means size the result from the highest frame seen.
func Parse(r io.Reader, frames int, logger zerolog.Logger) ([][]Detection, error) {
	var all []Detection
	maxFrame := -1

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "EOF" {
			break
		}
		if !strings.HasPrefix(line, detectionLinePrefix) {
			continue
		}

		var d Detection
		if err := json.Unmarshal([]byte(line), &d); err != nil {
			logger.Warn().Err(err).Str("line", line).Msg("skipping malformed detection")
			continue
		}
		if d.Frame < 0 || (frames > 0 && d.Frame >= frames) {
			logger.Warn().Int("frame", d.Frame).Int("frames", frames).Msg("skipping detection outside video")
			continue
		}
		d.Class = NormalizeClass(d.Class)
		all = append(all, d)
		if d.Frame > maxFrame {
			maxFrame = d.Frame
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading detections")
	}

	if frames <= 0 {
		frames = maxFrame + 1
	}
	out := make([][]Detection, frames)
	for _, d := range all {
		out[d.Frame] = append(out[d.Frame], d)
	}
	return out, nil
}

//Filter drops detections under minConfidence and degenerate boxes
func Filter(frames [][]Detection, minConfidence float64) [][]Detection {
	out := make([][]Detection, len(frames))
	for i, dets := range frames {
		kept := make([]Detection, 0, len(dets))
		for _, d := range dets {
			if d.Confidence < minConfidence || d.BBox().Empty() {
				continue
			}
			kept = append(kept, d)
		}
		out[i] = kept
	}
	return out
}
