package video

import (
	"fmt"
	"image"
	"image/color"

	"github.com/chenBenjamin97/football-analyzer/pkg/geom"
	"github.com/chenBenjamin97/football-analyzer/pkg/pipeline"
	"github.com/chenBenjamin97/football-analyzer/pkg/possession"
	"github.com/chenBenjamin97/football-analyzer/pkg/tracks"
	"gocv.io/x/gocv"
)

var (
	whiteRGB       = color.RGBA{255, 255, 255, 0}
	blackRGB       = color.RGBA{0, 0, 0, 0}
	refereeRGB     = color.RGBA{255, 255, 0, 0}
	ballRGB        = color.RGBA{0, 255, 0, 0}
	possessionRGB  = color.RGBA{255, 0, 0, 0}
	unassignedRGB  = color.RGBA{200, 200, 200, 0}
	panelAlpha     = 0.4
	textFont       = gocv.FontHersheySimplex
	overlayPadding = 10
)

//bgrToRGBA turns a shirt color (BGR) into a drawing color
func bgrToRGBA(c *tracks.Color) color.RGBA {
	if c == nil {
		return unassignedRGB
	}
	return color.RGBA{R: uint8(c[2]), G: uint8(c[1]), B: uint8(c[0])}
}

func pt(p geom.Point) image.Point {
	return image.Pt(int(p.X), int(p.Y))
}

//plotEllipse draws the half ellipse under a person's feet, with the id in a box below it
func plotEllipse(frame *gocv.Mat, box geom.Rect, plotColor color.RGBA, id int) {
	center := pt(box.BottomCenter())
	width := int(box.Width())
	gocv.Ellipse(frame, center, image.Pt(width, int(0.35*float64(width))), 0, -45, 235, plotColor, 2)

	if id <= 0 {
		return
	}
	label := image.Rect(center.X-20, center.Y+5, center.X+20, center.Y+25)
	gocv.Rectangle(frame, label, plotColor, -1) //thickness -1 == filled rectangle
	gocv.PutText(frame, fmt.Sprintf("%d", id), image.Pt(label.Min.X+6, label.Max.Y-5), textFont, 0.5, blackRGB, 2)
}

//plotTriangle draws a filled marker pointing down at the top of box
func plotTriangle(frame *gocv.Mat, box geom.Rect, plotColor color.RGBA) {
	tip := image.Pt(int(box.Center().X), int(box.Y1))
	points := [][]image.Point{{tip, image.Pt(tip.X-10, tip.Y-20), image.Pt(tip.X+10, tip.Y-20)}}

	pv := gocv.NewPointsVectorFromPoints(points)
	defer pv.Close()
	gocv.FillPoly(frame, pv, plotColor)
	gocv.Polylines(frame, pv, true, blackRGB, 2)
}

//plotStats writes speed and distance under a person, when known
func plotStats(frame *gocv.Mat, r *tracks.Record) {
	if r.Speed == nil || r.Distance == nil {
		return
	}
	origin := pt(r.BBox.BottomCenter()).Add(image.Pt(-30, 45))
	gocv.PutText(frame, fmt.Sprintf("%.2f km/h", *r.Speed), origin, textFont, 0.5, blackRGB, 2)
	gocv.PutText(frame, fmt.Sprintf("%.2f m", *r.Distance), origin.Add(image.Pt(0, 20)), textFont, 0.5, blackRGB, 2)
}

//plotPanel draws a translucent white panel and writes lines inside it
func plotPanel(frame *gocv.Mat, rect image.Rectangle, lines []string) {
	overlay := frame.Clone()
	defer overlay.Close()
	gocv.Rectangle(&overlay, rect, whiteRGB, -1)
	gocv.AddWeighted(overlay, panelAlpha, *frame, 1-panelAlpha, 0, frame)

	for i, line := range lines {
		origin := image.Pt(rect.Min.X+overlayPadding, rect.Min.Y+30+35*i)
		gocv.PutText(frame, line, origin, textFont, 1, blackRGB, 3)
	}
}

//controlShares returns, for every frame, the percentage of possession of team 1 and team 2
//from the first frame up to that one. Frames nobody controlled are left out.
func controlShares(control *possession.Control) [][2]float64 {
	if control == nil {
		return nil
	}
	shares := make([][2]float64, len(control.Teams))
	var team1, team2 int
	for i, t := range control.Teams {
		switch t {
		case tracks.Team1:
			team1++
		case tracks.Team2:
			team2++
		}
		if total := team1 + team2; total > 0 {
			shares[i] = [2]float64{100 * float64(team1) / float64(total), 100 * float64(team2) / float64(total)}
		}
	}
	return shares
}

//plotTeamControl shows each team's share of possession up to this frame
func plotTeamControl(frame *gocv.Mat, shares [][2]float64, index int) {
	if index >= len(shares) {
		return
	}

	width, height := frame.Cols(), frame.Rows()
	rect := image.Rect(width-width/3, height-height/7, width-overlayPadding, height-overlayPadding)
	plotPanel(frame, rect, []string{
		fmt.Sprintf("Team 1 Ball Control: %.2f%%", shares[index][0]),
		fmt.Sprintf("Team 2 Ball Control: %.2f%%", shares[index][1]),
	})
}

//plotCameraMovement shows the camera displacement of this frame
func plotCameraMovement(frame *gocv.Mat, res *pipeline.Result, index int) {
	if res.CameraMovement == nil || index >= res.CameraMovement.Frames() {
		return
	}
	d := res.CameraMovement.PerFrame[index]
	plotPanel(frame, image.Rect(0, 0, 500, 100), []string{
		fmt.Sprintf("Camera Movement X: %.2f", d.X),
		fmt.Sprintf("Camera Movement Y: %.2f", d.Y),
	})
}

//plotFrame draws every annotation of frame index on frame; shares comes from controlShares
func plotFrame(frame *gocv.Mat, res *pipeline.Result, shares [][2]float64, index int) {
	res.Tracks.Players.Each(index, func(id int, r *tracks.Record) {
		plotEllipse(frame, r.BBox, bgrToRGBA(r.TeamColor), id)
		if r.HasBall {
			plotTriangle(frame, r.BBox, possessionRGB)
		}
		plotStats(frame, r)
	})
	res.Tracks.Referees.Each(index, func(_ int, r *tracks.Record) {
		plotEllipse(frame, r.BBox, refereeRGB, 0)
	})
	res.Tracks.Ball.Each(index, func(_ int, r *tracks.Record) {
		plotTriangle(frame, r.BBox, ballRGB)
	})

	plotTeamControl(frame, shares, index)
	plotCameraMovement(frame, res, index)
}
