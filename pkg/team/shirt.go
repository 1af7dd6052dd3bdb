package team

import (
	"math"

	"github.com/chenBenjamin97/football-analyzer/pkg/geom"
	"github.com/chenBenjamin97/football-analyzer/pkg/tracks"
	"github.com/pkg/errors"
)

//ErrDegenerateCrop is returned when a crop cannot be split into shirt and background
var ErrDegenerateCrop = errors.New("degenerate crop")

//Crop is a rectangle of BGR pixels, row major
type Crop struct {
	Width  int
	Height int
	Pixels []tracks.Color
}

//At returns the pixel at column x, row y
func (c Crop) At(x, y int) tracks.Color {
	return c.Pixels[y*c.Width+x]
}

//Sampler cuts the pixels of a bounding box out of a frame. Implementations must be safe
//for concurrent use.
type Sampler interface {
	Crop(frame int, box geom.Rect) (Crop, error)
}

//Clusterer groups samples into k clusters, returning each sample's label and the centers.
//Implementations must be safe for concurrent use.
type Clusterer interface {
	Cluster(samples []tracks.Color, k int) (labels []int, centers []tracks.Color, err error)
}

//ShirtColor clusters the top half of a player crop in two and returns the center of the cluster
//that is not the background. The background cluster is the one most of the four corners of
//the top half belong to, cluster 0 on a tie.
func ShirtColor(crop Crop, clusterer Clusterer) (tracks.Color, error) {
	rows := crop.Height / 2
	if crop.Width <= 0 || rows <= 0 || len(crop.Pixels) < rows*crop.Width {
		return tracks.Color{}, errors.Wrapf(ErrDegenerateCrop, "%dx%d crop", crop.Width, crop.Height)
	}

	top := crop.Pixels[:rows*crop.Width]
	if uniform(top) {
		return tracks.Color{}, errors.Wrap(ErrDegenerateCrop, "uniform crop")
	}

	labels, centers, err := clusterer.Cluster(top, 2)
	if err != nil {
		return tracks.Color{}, errors.Wrapf(ErrDegenerateCrop, "clustering: %v", err)
	}
	if len(labels) != len(top) || len(centers) != 2 {
		return tracks.Color{}, errors.Wrapf(ErrDegenerateCrop, "clustering returned %d labels and %d centers", len(labels), len(centers))
	}

	w := crop.Width
	corners := []int{
		labels[0],
		labels[w-1],
		labels[(rows-1)*w],
		labels[(rows-1)*w+w-1],
	}
	votes := [2]int{}
	for _, l := range corners {
		if l == 0 || l == 1 {
			votes[l]++
		}
	}

	background := 0
	if votes[1] > votes[0] {
		background = 1
	}
	return centers[1-background], nil
}

func uniform(pixels []tracks.Color) bool {
	for _, p := range pixels[1:] {
		if p != pixels[0] {
			return false
		}
	}
	return true
}

//ColorDistance is the euclidean distance between two colours
func ColorDistance(a, b tracks.Color) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
