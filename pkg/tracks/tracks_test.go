package tracks

import (
	"encoding/json"
	"testing"

	"github.com/chenBenjamin97/football-analyzer/pkg/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableSetGetEach(t *testing.T) {
	table := NewTable(3)
	table.Set(0, 7, Record{BBox: geom.R(0, 0, 10, 10)})
	table.Set(0, 2, Record{BBox: geom.R(5, 5, 10, 10)})

	r, ok := table.Get(0, 7)
	require.True(t, ok)
	assert.Equal(t, geom.R(0, 0, 10, 10), r.BBox)

	_, ok = table.Get(0, 3)
	assert.False(t, ok, "gap inside the arena is absent")
	_, ok = table.Get(1, 7)
	assert.False(t, ok)
	_, ok = table.Get(5, 1)
	assert.False(t, ok)

	assert.Equal(t, []int{2, 7}, table.IDs(0))
	assert.Equal(t, 2, table.Count(0))
	assert.Empty(t, table.IDs(1))

	// records are mutated in place
	r.HasBall = true
	again, _ := table.Get(0, 7)
	assert.True(t, again.HasBall)

	table.Delete(0, 7)
	assert.False(t, table.Has(0, 7))
	assert.Equal(t, []int{2}, table.IDs(0))
}

func TestTableJSONRoundTrip(t *testing.T) {
	store := NewStore(2)
	speed := 12.5
	store.Players.Set(1, 4, Record{BBox: geom.R(1, 2, 3, 4), Team: Team2, Speed: &speed})
	store.Ball.Set(0, BallID, Record{BBox: geom.R(9, 9, 11, 11)})

	data, err := json.Marshal(store)
	require.NoError(t, err)

	var decoded Store
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.NoError(t, decoded.Validate(2))

	r, ok := decoded.Players.Get(1, 4)
	require.True(t, ok)
	assert.Equal(t, Team2, r.Team)
	assert.Equal(t, 12.5, *r.Speed)
	assert.True(t, decoded.Ball.Has(0, BallID))
	assert.Equal(t, 0, decoded.Referees.Count(1))
}

func TestTableUnmarshalRejectsBadIdentity(t *testing.T) {
	var table Table
	err := json.Unmarshal([]byte(`[{"0":{"bbox":{"x1":0,"y1":0,"x2":1,"y2":1}}}]`), &table)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`[{"99999999":{}}]`), &table)
	assert.Error(t, err)
}

func TestStoreValidate(t *testing.T) {
	store := NewStore(3)
	assert.NoError(t, store.Validate(3))
	assert.Error(t, store.Validate(4))

	store.Ball.Set(1, 2, Record{})
	assert.Error(t, store.Validate(3))

	var partial Store
	require.NoError(t, json.Unmarshal([]byte(`{"players":[{},{},{}]}`), &partial))
	assert.Error(t, partial.Validate(3))
}
