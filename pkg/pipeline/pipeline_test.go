package pipeline

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/chenBenjamin97/football-analyzer/pkg/cache"
	"github.com/chenBenjamin97/football-analyzer/pkg/camera"
	"github.com/chenBenjamin97/football-analyzer/pkg/detection"
	"github.com/chenBenjamin97/football-analyzer/pkg/geom"
	"github.com/chenBenjamin97/football-analyzer/pkg/possession"
	"github.com/chenBenjamin97/football-analyzer/pkg/speed"
	"github.com/chenBenjamin97/football-analyzer/pkg/team"
	"github.com/chenBenjamin97/football-analyzer/pkg/tracker"
	"github.com/chenBenjamin97/football-analyzer/pkg/tracks"
	"github.com/chenBenjamin97/football-analyzer/pkg/view"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFrames = 30

var (
	red   = tracks.Color{0, 0, 200}
	blue  = tracks.Color{200, 0, 0}
	grass = tracks.Color{30, 140, 40}
)

//staticFlow is a camera that never moves
type staticFlow struct {
	frames   int
	mu       sync.Mutex
	features int
}

func (f *staticFlow) Frames() int { return f.frames }

func (f *staticFlow) Features(int) ([]geom.Point, error) {
	f.mu.Lock()
	f.features++
	f.mu.Unlock()
	return []geom.Point{geom.Pt(5, 100)}, nil
}

func (f *staticFlow) Track(_ int, features []geom.Point) ([]geom.Point, []geom.Point, error) {
	return features, features, nil
}

//shirtSampler dresses everyone left of x=800 in red and the others in blue
type shirtSampler struct{}

func (shirtSampler) Crop(_ int, box geom.Rect) (team.Crop, error) {
	shirt := blue
	if box.X1 < 800 {
		shirt = red
	}
	c := team.Crop{Width: 4, Height: 8, Pixels: make([]tracks.Color, 32)}
	for i := range c.Pixels {
		c.Pixels[i] = grass
		if x := i % c.Width; x == 1 || x == 2 {
			c.Pixels[i] = shirt
		}
	}
	return c, nil
}

//nearestSeed clusters in two around the first sample and the sample farthest from it
type nearestSeed struct{}

func (nearestSeed) Cluster(samples []tracks.Color, k int) ([]int, []tracks.Color, error) {
	if len(samples) < 2 {
		return nil, nil, errors.New("not enough samples")
	}
	centers := []tracks.Color{samples[0], samples[0]}
	far := 0.0
	for _, s := range samples {
		if d := team.ColorDistance(s, samples[0]); d > far {
			far, centers[1] = d, s
		}
	}
	labels := make([]int, len(samples))
	for i, s := range samples {
		if team.ColorDistance(s, centers[1]) < team.ColorDistance(s, centers[0]) {
			labels[i] = 1
		}
	}
	return labels, centers, nil
}

//memCache keeps JSON payloads in memory, like the SQLite cache does on disk
type memCache struct {
	entries map[string]memEntry
	saves   int
}

type memEntry struct {
	hash    string
	payload []byte
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]memEntry)}
}

func (c *memCache) Load(key string, kind cache.Kind, hash string, out interface{}) error {
	e, ok := c.entries[key+"/"+string(kind)]
	if !ok || e.hash != hash {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(e.payload, out)
}

func (c *memCache) Save(key string, kind cache.Kind, hash string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.saves++
	c.entries[key+"/"+string(kind)] = memEntry{hash: hash, payload: payload}
	return nil
}

func testSettings() Settings {
	return Settings{
		Tracker:     tracker.DefaultConfig(),
		Camera:      camera.DefaultConfig(),
		View:        view.DefaultConfig(),
		MaxDistance: possession.DefaultMaxDistance,
		Speed:       speed.DefaultConfig(),
		Workers:     3,
	}
}

//testDetections: player A runs right at 2px per frame with the ball at his feet (seen every
//third frame), player B stands still, a referee stands still
func testDetections() [][]detection.Detection {
	frames := make([][]detection.Detection, testFrames)
	for f := 0; f < testFrames; f++ {
		x := 600 + 2*float64(f)
		frames[f] = []detection.Detection{
			{Frame: f, Class: "player", Confidence: 0.9, Xmin: x, Ymin: 500, Xmax: x + 40, Ymax: 600},
			{Frame: f, Class: "player", Confidence: 0.9, Xmin: 900, Ymin: 500, Xmax: 940, Ymax: 600},
			{Frame: f, Class: "referee", Confidence: 0.9, Xmin: 300, Ymin: 400, Xmax: 330, Ymax: 480},
		}
		if f%3 == 0 {
			frames[f] = append(frames[f], detection.Detection{Frame: f, Class: "ball", Confidence: 0.5, Xmin: x + 15, Ymin: 595, Xmax: x + 25, Ymax: 605})
		}
	}
	return frames
}

func newTestPipeline(t *testing.T) *Pipeline {
	p, err := New(testSettings(), zerolog.Nop())
	require.NoError(t, err)
	return p
}

func TestRun(t *testing.T) {
	p := newTestPipeline(t)
	res, err := p.Run(context.Background(), Input{
		Detections: testDetections(),
		Flow:       &staticFlow{frames: testFrames},
		Sampler:    shirtSampler{},
		Clusterer:  nearestSeed{},
	})
	require.NoError(t, err)
	require.Equal(t, testFrames, res.Frames())

	for f := 0; f < testFrames; f++ {
		ball, ok := res.Tracks.Ball.Get(f, tracks.BallID)
		require.True(t, ok, "frame %d has a ball", f)
		assert.Equal(t, f%3 != 0, ball.Interpolated)
		assert.NotNil(t, ball.PositionTransformed)
	}

	a, ok := res.Tracks.Players.Get(0, 1)
	require.True(t, ok)
	b, ok := res.Tracks.Players.Get(0, 2)
	require.True(t, ok)
	assert.Equal(t, tracks.Team1, a.Team)
	assert.Equal(t, tracks.Team2, b.Team)
	assert.Equal(t, red, res.TeamColors[tracks.Team1])
	assert.True(t, a.HasBall)
	assert.False(t, b.HasBall)

	for f, team := range res.Control.Teams {
		assert.Equal(t, tracks.Team1, team, "frame %d", f)
	}
	assert.Equal(t, 1.0, res.Control.Share(tracks.Team1))

	previous := 0.0
	for f := 0; f < testFrames-1; f++ {
		r, _ := res.Tracks.Players.Get(f, 1)
		require.NotNil(t, r.Distance, "frame %d", f)
		assert.GreaterOrEqual(t, *r.Distance, previous)
		assert.Greater(t, *r.Speed, 0.0)
		previous = *r.Distance

		still, _ := res.Tracks.Players.Get(f, 2)
		require.NotNil(t, still.Speed)
		assert.Equal(t, 0.0, *still.Speed)
	}

	ref, ok := res.Tracks.Referees.Get(5, 1)
	require.True(t, ok)
	assert.Equal(t, tracks.NoTeam, ref.Team, "referees get no team")
	assert.Equal(t, ref.Position, ref.PositionAdjusted, "static camera")
}

func TestRunUsesCache(t *testing.T) {
	p := newTestPipeline(t)
	c := newMemCache()
	in := Input{
		Detections:  testDetections(),
		Sampler:     shirtSampler{},
		Clusterer:   nearestSeed{},
		Cache:       c,
		CacheKey:    "match",
		ContentHash: "abc",
	}

	first := &staticFlow{frames: testFrames}
	in.Flow = first
	want, err := p.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 2, c.saves)
	assert.Greater(t, first.features, 0)

	second := &staticFlow{frames: testFrames}
	in.Flow = second
	got, err := p.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 2, c.saves, "nothing recomputed")
	assert.Equal(t, 0, second.features)
	assert.Equal(t, want.Control.Teams, got.Control.Teams)

	third := &staticFlow{frames: testFrames}
	in.Flow = third
	in.ContentHash = "other video"
	_, err = p.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 4, c.saves, "different content is recomputed")
	assert.Greater(t, third.features, 0)
}

func TestRunRejectsBadCacheShape(t *testing.T) {
	p := newTestPipeline(t)
	c := newMemCache()
	in := Input{
		Detections:  testDetections(),
		Cache:       c,
		CacheKey:    "match",
		ContentHash: "abc",
	}

	tracksHash, err := p.entryHash(cache.KindTracks, in)
	require.NoError(t, err)
	cameraHash, err := p.entryHash(cache.KindCamera, in)
	require.NoError(t, err)
	require.NoError(t, c.Save("match", cache.KindTracks, tracksHash, tracks.NewStore(3)))
	require.NoError(t, c.Save("match", cache.KindCamera, cameraHash, make([]geom.Point, 3)))

	flow := &staticFlow{frames: testFrames}
	in.Flow = flow
	res, err := p.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, testFrames, res.Frames())
	assert.Greater(t, flow.features, 0)
	assert.True(t, res.Tracks.Players.Has(0, 1))
}

//shiftDetections moves every detection right by dx pixels
func shiftDetections(frames [][]detection.Detection, dx float64) [][]detection.Detection {
	out := make([][]detection.Detection, len(frames))
	for f, dets := range frames {
		for _, d := range dets {
			d.Xmin += dx
			d.Xmax += dx
			out[f] = append(out[f], d)
		}
	}
	return out
}

func TestRunCacheFollowsDetections(t *testing.T) {
	p := newTestPipeline(t)
	c := newMemCache()
	in := Input{
		Detections:  testDetections(),
		Flow:        &staticFlow{frames: testFrames},
		Cache:       c,
		CacheKey:    "match",
		ContentHash: "videohash",
	}

	first, err := p.Run(context.Background(), in)
	require.NoError(t, err)
	a, ok := first.Tracks.Players.Get(0, 1)
	require.True(t, ok)
	assert.Equal(t, 600.0, a.BBox.X1)

	//same video, new detections file
	in.Detections = shiftDetections(testDetections(), 100)
	second, err := p.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 3, c.saves, "tracks recomputed, camera movement reused")
	a, ok = second.Tracks.Players.Get(0, 1)
	require.True(t, ok)
	assert.Equal(t, 700.0, a.BBox.X1)
}

func TestRunCacheFollowsSettings(t *testing.T) {
	c := newMemCache()
	in := Input{
		Detections:  testDetections(),
		Flow:        &staticFlow{frames: testFrames},
		Cache:       c,
		CacheKey:    "match",
		ContentHash: "videohash",
	}

	_, err := newTestPipeline(t).Run(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, 2, c.saves)

	s := testSettings()
	s.Tracker.MinIoU = 0.5
	p, err := New(s, zerolog.Nop())
	require.NoError(t, err)
	_, err = p.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 3, c.saves, "tracker settings invalidate tracks only")

	s.Camera.MinMovement = 2
	p, err = New(s, zerolog.Nop())
	require.NoError(t, err)
	_, err = p.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 4, c.saves, "camera settings invalidate camera movement only")
}

func TestEntryHashPerKind(t *testing.T) {
	p := newTestPipeline(t)
	in := Input{Detections: testDetections(), ContentHash: "videohash"}

	tracksHash, err := p.entryHash(cache.KindTracks, in)
	require.NoError(t, err)
	cameraHash, err := p.entryHash(cache.KindCamera, in)
	require.NoError(t, err)
	assert.NotEqual(t, tracksHash, cameraHash)

	again, err := p.entryHash(cache.KindTracks, in)
	require.NoError(t, err)
	assert.Equal(t, tracksHash, again)

	in.ContentHash = "other video"
	otherVideo, err := p.entryHash(cache.KindCamera, in)
	require.NoError(t, err)
	assert.NotEqual(t, cameraHash, otherVideo)

	_, err = p.entryHash(cache.Kind("bogus"), in)
	assert.Error(t, err)
}

func TestRunErrors(t *testing.T) {
	p := newTestPipeline(t)

	_, err := p.Run(context.Background(), Input{})
	assert.True(t, errors.Is(err, ErrNoFrames))

	_, err = p.Run(context.Background(), Input{Detections: testDetections(), Flow: &staticFlow{frames: 3}})
	assert.Error(t, err)

	bad := testSettings()
	bad.MaxDistance = 0
	_, err = New(bad, zerolog.Nop())
	assert.Error(t, err)
}
