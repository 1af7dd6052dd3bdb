package video

import (
	"image"
	"image/color"
	"testing"

	"github.com/chenBenjamin97/football-analyzer/pkg/camera"
	"github.com/chenBenjamin97/football-analyzer/pkg/geom"
	"github.com/chenBenjamin97/football-analyzer/pkg/possession"
	"github.com/chenBenjamin97/football-analyzer/pkg/team"
	"github.com/chenBenjamin97/football-analyzer/pkg/tracks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

//syntheticFrames builds BGR frames of a white square on black, shifted right by shift px per frame
func syntheticFrames(n, shift int) *Frames {
	f := &Frames{fps: 25, width: 200, height: 200}
	for i := 0; i < n; i++ {
		m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 200, 200, gocv.MatTypeCV8UC3)
		x := 60 + i*shift
		gocv.Rectangle(&m, image.Rect(x, 60, x+60, 120), color.RGBA{255, 255, 255, 0}, -1)
		f.mats = append(f.mats, m)
	}
	return f
}

func TestFlowTrackerFollowsShift(t *testing.T) {
	frames := syntheticFrames(2, 4)
	defer frames.Close()

	cfg := camera.DefaultConfig()
	cfg.MaskBands = []camera.Band{{From: 0, To: camera.ReferenceWidth}}
	flow := NewFlowTracker(frames, cfg)
	defer flow.Close()

	assert.Equal(t, 2, flow.Frames())

	features, err := flow.Features(0)
	require.NoError(t, err)
	require.NotEmpty(t, features)
	assert.LessOrEqual(t, len(features), cfg.MaxCorners)

	prev, next, err := flow.Track(1, features)
	require.NoError(t, err)
	require.NotEmpty(t, prev)
	require.Len(t, next, len(prev))

	var dx, dy float64
	for i := range prev {
		dx += next[i].X - prev[i].X
		dy += next[i].Y - prev[i].Y
	}
	dx /= float64(len(prev))
	dy /= float64(len(prev))
	assert.InDelta(t, 4, dx, 1)
	assert.InDelta(t, 0, dy, 1)

	_, _, err = flow.Track(2, features)
	assert.Error(t, err, "frame out of range")
}

func TestShirtSamplerCrop(t *testing.T) {
	frames := syntheticFrames(1, 0)
	defer frames.Close()
	sampler := NewShirtSampler(frames)

	crop, err := sampler.Crop(0, geom.R(50, 50, 70, 70))
	require.NoError(t, err)
	require.Equal(t, 20, crop.Width)
	require.Equal(t, 20, crop.Height)
	assert.Equal(t, tracks.Color{0, 0, 0}, crop.At(0, 0))
	assert.Equal(t, tracks.Color{255, 255, 255}, crop.At(15, 15))

	clipped, err := sampler.Crop(0, geom.R(190, 190, 260, 260))
	require.NoError(t, err)
	assert.Equal(t, 10, clipped.Width)

	outside, err := sampler.Crop(0, geom.R(300, 300, 400, 400))
	require.NoError(t, err)
	assert.Empty(t, outside.Pixels)

	_, err = sampler.Crop(1, geom.R(0, 0, 10, 10))
	assert.Error(t, err)
}

func TestKMeansCluster(t *testing.T) {
	red := tracks.Color{0, 0, 220}
	blue := tracks.Color{220, 0, 0}
	samples := []tracks.Color{red, blue, {2, 1, 218}, {218, 2, 1}, red, blue}

	labels, centers, err := KMeans{Attempts: 3}.Cluster(samples, 2)
	require.NoError(t, err)
	require.Len(t, labels, len(samples))
	require.Len(t, centers, 2)

	for i := 2; i < len(samples); i++ {
		assert.Equal(t, labels[i%2], labels[i], "sample %d", i)
	}
	assert.NotEqual(t, labels[0], labels[1])
	assert.Less(t, team.ColorDistance(centers[labels[0]], red), 5.0)

	_, _, err = KMeans{}.Cluster(samples[:1], 2)
	assert.Error(t, err)
}

func TestShirtColorOnFrame(t *testing.T) {
	f := &Frames{fps: 25, width: 40, height: 80}
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 140, 30, 0), 80, 40, gocv.MatTypeCV8UC3)
	gocv.Rectangle(&m, image.Rect(10, 0, 30, 80), color.RGBA{R: 200, G: 0, B: 0}, -1)
	f.mats = append(f.mats, m)
	defer f.Close()

	crop, err := NewShirtSampler(f).Crop(0, geom.R(0, 0, 40, 80))
	require.NoError(t, err)

	shirt, err := team.ShirtColor(crop, KMeans{Attempts: 2})
	require.NoError(t, err)
	assert.Less(t, team.ColorDistance(shirt, tracks.Color{0, 0, 200}), 1.0)
}

func TestControlShares(t *testing.T) {
	control := &possession.Control{
		Teams: []tracks.Team{tracks.NoTeam, tracks.Team1, tracks.Team1, tracks.Team2, tracks.Team2},
	}
	want := [][2]float64{{0, 0}, {100, 0}, {100, 0}, {200.0 / 3, 100.0 / 3}, {50, 50}}

	got := controlShares(control)
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i][0], got[i][0], 1e-9, "frame %d", i)
		assert.InDelta(t, want[i][1], got[i][1], 1e-9, "frame %d", i)
	}
	assert.Nil(t, controlShares(nil))
}

func TestBgrToRGBA(t *testing.T) {
	assert.Equal(t, unassignedRGB, bgrToRGBA(nil))
	c := tracks.Color{10, 20, 30}
	assert.Equal(t, color.RGBA{R: 30, G: 20, B: 10}, bgrToRGBA(&c))
}

func TestLastLine(t *testing.T) {
	assert.Equal(t, "boom", lastLine([]byte("ffmpeg version\nboom\n\n")))
	assert.Equal(t, "", lastLine(nil))
}
