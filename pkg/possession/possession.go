// Package possession decides, frame by frame, which player has the ball and which team
// controls it.
package possession

import (
	"math"

	"github.com/chenBenjamin97/football-analyzer/pkg/geom"
	"github.com/chenBenjamin97/football-analyzer/pkg/tracks"
	"github.com/pkg/errors"
)

//NoPlayer is returned by Assign when the ball is loose
const NoPlayer = -1

//DefaultMaxDistance is the pixel distance between ball and feet above which nobody has the ball
const DefaultMaxDistance = 70.0

//Assigner picks the ball holder among the players of a frame
type Assigner struct {
	MaxDistance float64
}

func NewAssigner(maxDistance float64) (*Assigner, error) {
	if maxDistance <= 0 {
		return nil, errors.Errorf("possession max_distance must be positive, got %v", maxDistance)
	}
	return &Assigner{MaxDistance: maxDistance}, nil
}

//Assign returns the identity of the player whose nearer bottom corner is closest to the ball's
//center, or NoPlayer when that distance exceeds MaxDistance (or there are no players).
func (a *Assigner) Assign(players *tracks.Table, frame int, ball geom.Rect) int {
	center := ball.Center()
	best, bestDistance := NoPlayer, math.Inf(1)

	players.Each(frame, func(id int, r *tracks.Record) {
		left := geom.Distance(r.BBox.BottomLeft(), center)
		right := geom.Distance(r.BBox.BottomRight(), center)
		if d := math.Min(left, right); d < bestDistance {
			best, bestDistance = id, d
		}
	})

	if bestDistance > a.MaxDistance {
		return NoPlayer
	}
	return best
}

//Control is the team in possession for every frame plus how many frames each team had it
type Control struct {
	Teams  []tracks.Team       `json:"teams"`
	Frames map[tracks.Team]int `json:"frames"`
}

//Share returns the fraction of frames team t controlled the ball, among frames where some
//team did
func (c *Control) Share(t tracks.Team) float64 {
	total := c.Frames[tracks.Team1] + c.Frames[tracks.Team2]
	if total == 0 {
		return 0
	}
	return float64(c.Frames[t]) / float64(total)
}

//AssignTracks sets HasBall on the holder of every frame and builds the team in possession
//series. Frames where nobody holds the ball, or where the holder has no team yet, repeat the
//previous frame's team. Before the first possession the series holds tracks.NoTeam.
func (a *Assigner) AssignTracks(store *tracks.Store) *Control {
	n := store.Frames()
	control := &Control{
		Teams:  make([]tracks.Team, n),
		Frames: make(map[tracks.Team]int),
	}

	current := tracks.NoTeam
	for frame := 0; frame < n; frame++ {
		store.Players.Each(frame, func(_ int, r *tracks.Record) {
			r.HasBall = false
		})

		if ball, ok := store.Ball.Get(frame, tracks.BallID); ok {
			if id := a.Assign(store.Players, frame, ball.BBox); id != NoPlayer {
				holder, _ := store.Players.Get(frame, id)
				holder.HasBall = true
				if holder.Team != tracks.NoTeam {
					current = holder.Team
				}
			}
		}

		control.Teams[frame] = current
		if current != tracks.NoTeam {
			control.Frames[current]++
		}
	}
	return control
}
