package tracks

import (
	"encoding/json"

	"github.com/pkg/errors"
)

//MarshalJSON writes a table as a list of frames, each an object keyed by identity
func (t *Table) MarshalJSON() ([]byte, error) {
	out := make([]map[int]Record, len(t.frames))
	for frame := range t.frames {
		m := make(map[int]Record)
		t.Each(frame, func(id int, r *Record) {
			m[id] = *r
		})
		out[frame] = m
	}
	return json.Marshal(out)
}

//UnmarshalJSON rebuilds a table, rejecting identities outside [1, MaxIdentity]
func (t *Table) UnmarshalJSON(data []byte) error {
	var in []map[int]Record
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	t.frames = make([][]cell, len(in))
	for frame, m := range in {
		for id, r := range m {
			if id < 1 || id > MaxIdentity {
				return errors.Errorf("frame %d: identity %d out of range", frame, id)
			}
			t.Set(frame, id, r)
		}
	}
	return nil
}

//Validate checks that a decoded store has every category and exactly frames frames.
//Cached stores are untrusted, a failed validation means the cache entry must be ignored.
func (s *Store) Validate(frames int) error {
	for _, c := range Categories {
		table := s.Table(c)
		if table == nil {
			return errors.Errorf("missing category %q", c)
		}
		if table.Len() != frames {
			return errors.Errorf("category %q has %d frames, expected %d", c, table.Len(), frames)
		}
	}

	for frame := 0; frame < frames; frame++ {
		for _, id := range s.Ball.IDs(frame) {
			if id != BallID {
				return errors.Errorf("frame %d: unexpected ball identity %d", frame, id)
			}
		}
	}
	return nil
}
