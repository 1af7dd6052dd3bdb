package video

import (
	"image"
	"sync"

	"github.com/chenBenjamin97/football-analyzer/pkg/camera"
	"github.com/chenBenjamin97/football-analyzer/pkg/geom"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

//FlowTracker runs corner detection and Lucas-Kanade optical flow over grayscale frames.
//Frames are visited in order, so only the two most recent gray frames are kept.
type FlowTracker struct {
	frames *Frames
	cfg    camera.Config
	bands  []camera.Band

	mu   sync.Mutex
	gray map[int]gocv.Mat
}

func NewFlowTracker(frames *Frames, cfg camera.Config) *FlowTracker {
	width, _ := frames.Size()
	return &FlowTracker{
		frames: frames,
		cfg:    cfg,
		bands:  cfg.ScaledBands(width),
		gray:   make(map[int]gocv.Mat),
	}
}

func (t *FlowTracker) Frames() int {
	return t.frames.Len()
}

//grayFrame converts frame i once and drops conversions older than i-1
func (t *FlowTracker) grayFrame(i int) (gocv.Mat, error) {
	if i < 0 || i >= t.frames.Len() {
		return gocv.Mat{}, errors.Errorf("frame %d out of range", i)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if m, ok := t.gray[i]; ok {
		return m, nil
	}
	for k, m := range t.gray {
		if k < i-1 {
			m.Close()
			delete(t.gray, k)
		}
	}

	m := gocv.NewMat()
	gocv.CvtColor(t.frames.At(i), &m, gocv.ColorBGRToGray)
	t.gray[i] = m
	return m, nil
}

//Features looks for corners inside every mask band; each band is searched on its own region
//and the corners are shifted back to frame coordinates
func (t *FlowTracker) Features(frame int) ([]geom.Point, error) {
	gray, err := t.grayFrame(frame)
	if err != nil {
		return nil, errors.Wrap(err, "Features")
	}
	_, height := t.frames.Size()

	features := make([]geom.Point, 0, t.cfg.MaxCorners)
	for _, band := range t.bands {
		from, to := int(band.From), int(band.To)
		if to-from < 1 {
			continue
		}

		region := gray.Region(image.Rect(from, 0, to, height))
		corners := gocv.NewMat()
		gocv.GoodFeaturesToTrack(region, &corners, t.cfg.MaxCorners, t.cfg.QualityLevel, t.cfg.MinDistance)

		for i := 0; i < corners.Rows(); i++ {
			v := corners.GetVecfAt(i, 0)
			features = append(features, geom.Pt(float64(v[0])+float64(from), float64(v[1])))
		}
		corners.Close()
		region.Close()
	}

	if len(features) > t.cfg.MaxCorners {
		features = features[:t.cfg.MaxCorners]
	}
	return features, nil
}

//Track follows features from frame-1 into frame and keeps the pairs whose status is found
func (t *FlowTracker) Track(frame int, features []geom.Point) ([]geom.Point, []geom.Point, error) {
	if len(features) == 0 {
		return nil, nil, nil
	}
	prevGray, err := t.grayFrame(frame - 1)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Track")
	}
	gray, err := t.grayFrame(frame)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Track")
	}

	prevPoints := gocv.NewMatWithSize(len(features), 2, gocv.MatTypeCV32F)
	defer prevPoints.Close()
	for i, p := range features {
		prevPoints.SetFloatAt(i, 0, float32(p.X))
		prevPoints.SetFloatAt(i, 1, float32(p.Y))
	}

	nextPoints := gocv.NewMat()
	defer nextPoints.Close()
	status := gocv.NewMat()
	defer status.Close()
	errMat := gocv.NewMat()
	defer errMat.Close()

	gocv.CalcOpticalFlowPyrLK(prevGray, gray, prevPoints, nextPoints, &status, &errMat)

	prev := make([]geom.Point, 0, len(features))
	next := make([]geom.Point, 0, len(features))
	for i := 0; i < status.Rows() && i < len(features); i++ {
		if status.GetUCharAt(i, 0) != 1 {
			continue
		}

		var x, y float32
		if nextPoints.Channels() == 2 {
			v := nextPoints.GetVecfAt(i, 0)
			x, y = v[0], v[1]
		} else {
			x, y = nextPoints.GetFloatAt(i, 0), nextPoints.GetFloatAt(i, 1)
		}
		prev = append(prev, features[i])
		next = append(next, geom.Pt(float64(x), float64(y)))
	}
	return prev, next, nil
}

//Close frees the cached gray frames
func (t *FlowTracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, m := range t.gray {
		m.Close()
		delete(t.gray, k)
	}
}
