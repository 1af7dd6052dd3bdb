package video

import (
	"image"

	"github.com/chenBenjamin97/football-analyzer/pkg/geom"
	"github.com/chenBenjamin97/football-analyzer/pkg/team"
	"github.com/chenBenjamin97/football-analyzer/pkg/tracks"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

//ShirtSampler crops bounding boxes out of decoded frames. Reads only, so concurrent use is safe.
type ShirtSampler struct {
	frames *Frames
}

func NewShirtSampler(frames *Frames) *ShirtSampler {
	return &ShirtSampler{frames: frames}
}

//Crop copies the box's BGR pixels; a box outside the frame gives an empty crop
func (s *ShirtSampler) Crop(frame int, box geom.Rect) (team.Crop, error) {
	if frame < 0 || frame >= s.frames.Len() {
		return team.Crop{}, errors.Errorf("Crop: frame %d out of range", frame)
	}
	width, height := s.frames.Size()
	box = box.Clamp(float64(width), float64(height))

	rect := image.Rect(int(box.X1), int(box.Y1), int(box.X2), int(box.Y2))
	if rect.Empty() {
		return team.Crop{}, nil
	}

	region := s.frames.At(frame).Region(rect)
	defer region.Close()

	crop := team.Crop{
		Width:  rect.Dx(),
		Height: rect.Dy(),
		Pixels: make([]tracks.Color, 0, rect.Dx()*rect.Dy()),
	}
	for y := 0; y < crop.Height; y++ {
		for x := 0; x < crop.Width; x++ {
			v := region.GetVecbAt(y, x)
			crop.Pixels = append(crop.Pixels, tracks.Color{float64(v[0]), float64(v[1]), float64(v[2])})
		}
	}
	return crop, nil
}

//KMeans clusters colors with OpenCV's k-means++ seeding
type KMeans struct {
	Attempts int
}

func (k KMeans) Cluster(samples []tracks.Color, n int) ([]int, []tracks.Color, error) {
	if n <= 0 || len(samples) < n {
		return nil, nil, errors.Errorf("Cluster: %d samples for %d clusters", len(samples), n)
	}
	attempts := k.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	data := gocv.NewMatWithSize(len(samples), 3, gocv.MatTypeCV32F)
	defer data.Close()
	for i, s := range samples {
		for c := 0; c < 3; c++ {
			data.SetFloatAt(i, c, float32(s[c]))
		}
	}

	labelsMat := gocv.NewMat()
	defer labelsMat.Close()
	centersMat := gocv.NewMat()
	defer centersMat.Close()

	criteria := gocv.NewTermCriteria(gocv.Count|gocv.EPS, 10, 1.0)
	gocv.KMeans(data, n, &labelsMat, criteria, attempts, gocv.KMeansPPCenters, &centersMat)

	if labelsMat.Rows() != len(samples) || centersMat.Rows() != n {
		return nil, nil, errors.New("Cluster: k-means returned an unexpected shape")
	}

	labels := make([]int, len(samples))
	for i := range labels {
		labels[i] = int(labelsMat.GetIntAt(i, 0))
	}
	centers := make([]tracks.Color, n)
	for i := range centers {
		for c := 0; c < 3; c++ {
			centers[i][c] = float64(centersMat.GetFloatAt(i, c))
		}
	}
	return labels, centers, nil
}
