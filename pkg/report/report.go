// Package report turns an enriched video into the figures shown to users: a per-player
// summary and a chart of the distance every player covered.
package report

import (
	"fmt"
	"image/color"
	"sort"

	"github.com/chenBenjamin97/football-analyzer/pkg/pipeline"
	"github.com/chenBenjamin97/football-analyzer/pkg/tracks"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

//PlayerSummary aggregates one player identity over the video
type PlayerSummary struct {
	ID             int         `json:"id"`
	Team           tracks.Team `json:"team"`
	Frames         int         `json:"frames"`
	FramesWithBall int         `json:"frames_with_ball"`
	MaxSpeed       float64     `json:"max_speed_kmh"`
	Distance       float64     `json:"distance_m"`
}

type Summary struct {
	Frames     int                     `json:"frames"`
	Possession map[tracks.Team]float64 `json:"possession"`
	Players    []PlayerSummary         `json:"players"`
}

//Summarize collects possession shares and per-player totals, players sorted by identity
func Summarize(res *pipeline.Result) *Summary {
	players := make(map[int]*PlayerSummary)
	table := res.Tracks.Players
	for frame := 0; frame < table.Len(); frame++ {
		table.Each(frame, func(id int, r *tracks.Record) {
			p, ok := players[id]
			if !ok {
				p = &PlayerSummary{ID: id}
				players[id] = p
			}
			p.Frames++
			if r.Team != tracks.NoTeam {
				p.Team = r.Team
			}
			if r.HasBall {
				p.FramesWithBall++
			}
			if r.Speed != nil && *r.Speed > p.MaxSpeed {
				p.MaxSpeed = *r.Speed
			}
			if r.Distance != nil && *r.Distance > p.Distance {
				p.Distance = *r.Distance
			}
		})
	}

	s := &Summary{
		Frames:     res.Frames(),
		Possession: make(map[tracks.Team]float64),
		Players:    make([]PlayerSummary, 0, len(players)),
	}
	if res.Control != nil {
		s.Possession[tracks.Team1] = res.Control.Share(tracks.Team1)
		s.Possession[tracks.Team2] = res.Control.Share(tracks.Team2)
	}
	for _, p := range players {
		s.Players = append(s.Players, *p)
	}
	sort.Slice(s.Players, func(i, j int) bool { return s.Players[i].ID < s.Players[j].ID })
	return s
}

var teamLineColors = map[tracks.Team]color.Color{
	tracks.NoTeam: color.RGBA{R: 128, G: 128, B: 128, A: 255},
	tracks.Team1:  color.RGBA{R: 220, G: 40, B: 40, A: 255},
	tracks.Team2:  color.RGBA{R: 40, G: 80, B: 220, A: 255},
}

//DistanceChart plots the cumulative distance of every player against the frame index and
//saves it to path; the image format follows the extension
func DistanceChart(res *pipeline.Result, path string) error {
	p := plot.New()
	p.Title.Text = "Distance covered"
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Meters"

	table := res.Tracks.Players
	series := make(map[int]plotter.XYs)
	teams := make(map[int]tracks.Team)
	for frame := 0; frame < table.Len(); frame++ {
		table.Each(frame, func(id int, r *tracks.Record) {
			if r.Team != tracks.NoTeam {
				teams[id] = r.Team
			}
			if r.Distance == nil {
				return
			}
			series[id] = append(series[id], plotter.XY{X: float64(frame), Y: *r.Distance})
		})
	}

	ids := make([]int, 0, len(series))
	for id := range series {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		line, err := plotter.NewLine(series[id])
		if err != nil {
			return errors.Wrapf(err, "DistanceChart: player %d", id)
		}
		line.Width = vg.Points(1)
		line.Color = teamLineColors[teams[id]]
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("#%d", id), line)
	}
	p.Legend.Top = true
	p.Legend.Left = true

	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "DistanceChart: save %s", path)
	}
	return nil
}
