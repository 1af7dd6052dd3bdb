// Package tracks is the per-frame track store shared by every pipeline stage.
//
// A Store holds one Table per category. A Table is indexed by frame and then by
// identity; identities are small positive integers so each frame is a dense slice
// of cells with a presence flag, rather than a map.
package tracks

import (
	"github.com/chenBenjamin97/football-analyzer/pkg/geom"
)

//Category is one of the tracked object kinds
type Category string

const (
	Players  Category = "players"
	Referees Category = "referees"
	Ball     Category = "ball"
)

//Categories lists every category in pipeline order
var Categories = []Category{Players, Referees, Ball}

//BallID is the single identity used for the ball in every frame
const BallID = 1

//MaxIdentity bounds identities accepted from untrusted input (cache payloads)
const MaxIdentity = 1 << 16

//Team is a team label, NoTeam until assigned
type Team int

const (
	NoTeam Team = 0
	Team1  Team = 1
	Team2  Team = 2
)

//Color is a BGR colour with float channels, as produced by clustering
type Color [3]float64

//Record is everything known about one identity in one frame
type Record struct {
	BBox                geom.Rect   `json:"bbox"`
	Position            geom.Point  `json:"position"`
	PositionAdjusted    geom.Point  `json:"position_adjusted"`
	PositionTransformed *geom.Point `json:"position_transformed,omitempty"`
	Team                Team        `json:"team,omitempty"`
	TeamColor           *Color      `json:"team_color,omitempty"`
	HasBall             bool        `json:"has_ball,omitempty"`
	Speed               *float64    `json:"speed,omitempty"`
	Distance            *float64    `json:"distance,omitempty"`
	Interpolated        bool        `json:"interpolated,omitempty"`
}

type cell struct {
	rec     Record
	present bool
}

//Table holds the records of one category, frame by frame
type Table struct {
	frames [][]cell
}

//NewTable allocates a table for n frames
func NewTable(n int) *Table {
	return &Table{frames: make([][]cell, n)}
}

//Len returns the number of frames
func (t *Table) Len() int {
	return len(t.frames)
}

//Set stores r for identity id in frame, growing the frame's arena if needed
func (t *Table) Set(frame, id int, r Record) {
	cells := t.frames[frame]
	if id >= len(cells) {
		grown := make([]cell, id+1, 2*(id+1))
		copy(grown, cells)
		cells = grown
	}
	cells[id] = cell{rec: r, present: true}
	t.frames[frame] = cells
}

//Get returns a pointer to the record so stages can mutate it in place.
//The pointer stays valid until the next Set on the same frame.
func (t *Table) Get(frame, id int) (*Record, bool) {
	if frame < 0 || frame >= len(t.frames) || id < 0 || id >= len(t.frames[frame]) {
		return nil, false
	}
	c := &t.frames[frame][id]
	if !c.present {
		return nil, false
	}
	return &c.rec, true
}

//Has reports whether id was observed or interpolated in frame
func (t *Table) Has(frame, id int) bool {
	_, ok := t.Get(frame, id)
	return ok
}

//Delete removes id from frame
func (t *Table) Delete(frame, id int) {
	if frame < 0 || frame >= len(t.frames) || id < 0 || id >= len(t.frames[frame]) {
		return
	}
	t.frames[frame][id] = cell{}
}

//Each calls fn for every present identity of frame in ascending identity order
func (t *Table) Each(frame int, fn func(id int, r *Record)) {
	cells := t.frames[frame]
	for id := range cells {
		if cells[id].present {
			fn(id, &cells[id].rec)
		}
	}
}

//IDs returns the present identities of frame in ascending order
func (t *Table) IDs(frame int) []int {
	ids := make([]int, 0)
	t.Each(frame, func(id int, _ *Record) {
		ids = append(ids, id)
	})
	return ids
}

//Count returns how many identities are present in frame
func (t *Table) Count(frame int) int {
	n := 0
	for _, c := range t.frames[frame] {
		if c.present {
			n++
		}
	}
	return n
}

//Store maps every category to its table
type Store struct {
	Players  *Table `json:"players"`
	Referees *Table `json:"referees"`
	Ball     *Table `json:"ball"`
}

//NewStore allocates empty tables for n frames
func NewStore(n int) *Store {
	return &Store{
		Players:  NewTable(n),
		Referees: NewTable(n),
		Ball:     NewTable(n),
	}
}

//Table returns the table of category c, nil for an unknown category
func (s *Store) Table(c Category) *Table {
	switch c {
	case Players:
		return s.Players
	case Referees:
		return s.Referees
	case Ball:
		return s.Ball
	}
	return nil
}

//Frames returns the number of frames covered by the store
func (s *Store) Frames() int {
	if s.Players == nil {
		return 0
	}
	return s.Players.Len()
}
