package view

import (
	"context"
	"testing"

	"github.com/chenBenjamin97/football-analyzer/pkg/geom"
	"github.com/chenBenjamin97/football-analyzer/pkg/tracks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-6

func newTestTransformer(t *testing.T) *Transformer {
	tr, err := New(DefaultConfig())
	require.NoError(t, err)
	return tr
}

func TestTransformVertices(t *testing.T) {
	tr := newTestTransformer(t)
	cfg := DefaultConfig()

	for i, p := range cfg.PixelVertices {
		got, ok := tr.Transform(p)
		require.True(t, ok, "vertex %d is on the boundary and therefore inside", i)
		assert.InDelta(t, cfg.PitchVertices[i].X, got.X, tolerance)
		assert.InDelta(t, cfg.PitchVertices[i].Y, got.Y, tolerance)
	}
}

func TestTransformInsideAndOutside(t *testing.T) {
	tr := newTestTransformer(t)

	got, ok := tr.Transform(geom.Pt(700, 600))
	require.True(t, ok)
	assert.True(t, got.X > 0 && got.X < 23.32, "x=%v inside the pitch slice", got.X)
	assert.True(t, got.Y > 0 && got.Y < 68, "y=%v inside the pitch slice", got.Y)

	for _, p := range []geom.Point{{X: 0, Y: 0}, {X: 1900, Y: 500}, {X: 500, Y: 1070}} {
		_, ok := tr.Transform(p)
		assert.False(t, ok, "%v is outside", p)
	}
}

func TestNewRejectsBadVertices(t *testing.T) {
	_, err := New(Config{PixelVertices: []geom.Point{{X: 1, Y: 1}}, PitchVertices: DefaultConfig().PitchVertices})
	assert.Error(t, err)

	collinear := []geom.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}}
	_, err = New(Config{PixelVertices: collinear, PitchVertices: collinear})
	assert.Error(t, err)
}

func TestTransformTracks(t *testing.T) {
	tr := newTestTransformer(t)
	store := tracks.NewStore(20)
	for frame := 0; frame < 20; frame++ {
		store.Players.Set(frame, 1, tracks.Record{PositionAdjusted: geom.Pt(265, 275)})
		store.Players.Set(frame, 2, tracks.Record{PositionAdjusted: geom.Pt(5, 5)})
	}
	stale := geom.Pt(1, 1)
	r, _ := store.Players.Get(3, 2)
	r.PositionTransformed = &stale

	require.NoError(t, tr.TransformTracks(context.Background(), store, 4))

	for frame := 0; frame < 20; frame++ {
		in, _ := store.Players.Get(frame, 1)
		require.NotNil(t, in.PositionTransformed)
		assert.InDelta(t, 0, in.PositionTransformed.X, tolerance)
		assert.InDelta(t, 0, in.PositionTransformed.Y, tolerance)

		out, _ := store.Players.Get(frame, 2)
		assert.Nil(t, out.PositionTransformed)
	}
}
