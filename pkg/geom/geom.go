// Package geom holds the small float geometry used across the analysis pipeline:
// pixel/pitch points, bounding boxes and the calibrated pitch polygon.
package geom

import "math"

//Point is a 2-D point, either in pixels or in pitch meters depending on the stage
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

//Pt is shorthand for Point{X: x, Y: y}
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

func (p Point) Scale(f float64) Point {
	return Point{X: p.X * f, Y: p.Y * f}
}

//Distance returns the euclidean distance between p and q
func Distance(p, q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

//Rect is an axis aligned bounding box, (X1,Y1) top-left and (X2,Y2) bottom-right
type Rect struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

func R(x1, y1, x2, y2 float64) Rect {
	return Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

func (r Rect) Width() float64  { return r.X2 - r.X1 }
func (r Rect) Height() float64 { return r.Y2 - r.Y1 }

//Empty reports whether the rectangle has no area
func (r Rect) Empty() bool {
	return r.X1 >= r.X2 || r.Y1 >= r.Y2
}

func (r Rect) Area() float64 {
	if r.Empty() {
		return 0
	}
	return r.Width() * r.Height()
}

func (r Rect) Center() Point {
	return Point{X: (r.X1 + r.X2) / 2, Y: (r.Y1 + r.Y2) / 2}
}

//BottomCenter is the foot point used for objects standing on the pitch
func (r Rect) BottomCenter() Point {
	return Point{X: (r.X1 + r.X2) / 2, Y: r.Y2}
}

func (r Rect) BottomLeft() Point  { return Point{X: r.X1, Y: r.Y2} }
func (r Rect) BottomRight() Point { return Point{X: r.X2, Y: r.Y2} }

//Translate moves the rectangle by d
func (r Rect) Translate(d Point) Rect {
	return Rect{X1: r.X1 + d.X, Y1: r.Y1 + d.Y, X2: r.X2 + d.X, Y2: r.Y2 + d.Y}
}

//Intersect returns the overlap of r and s, an empty Rect if they do not overlap
func (r Rect) Intersect(s Rect) Rect {
	out := Rect{
		X1: math.Max(r.X1, s.X1),
		Y1: math.Max(r.Y1, s.Y1),
		X2: math.Min(r.X2, s.X2),
		Y2: math.Min(r.Y2, s.Y2),
	}
	if out.Empty() {
		return Rect{}
	}
	return out
}

//Clamp limits the rectangle to [0,width]x[0,height]
func (r Rect) Clamp(width, height float64) Rect {
	clamp := func(v, hi float64) float64 { return math.Max(0, math.Min(v, hi)) }
	return Rect{
		X1: clamp(r.X1, width),
		Y1: clamp(r.Y1, height),
		X2: clamp(r.X2, width),
		Y2: clamp(r.Y2, height),
	}
}

//IoU returns the intersection over union of r and s
func IoU(r, s Rect) float64 {
	inter := r.Intersect(s).Area()
	if inter == 0 {
		return 0
	}
	union := r.Area() + s.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

//Lerp interpolates every coordinate of a and b, t=0 gives a and t=1 gives b
func Lerp(a, b Rect, t float64) Rect {
	l := func(x, y float64) float64 { return x + (y-x)*t }
	return Rect{X1: l(a.X1, b.X1), Y1: l(a.Y1, b.Y1), X2: l(a.X2, b.X2), Y2: l(a.Y2, b.Y2)}
}

//Polygon is a closed polygon, the last vertex connects back to the first
type Polygon []Point

//Contains reports whether p lies inside the polygon or on its boundary
func (poly Polygon) Contains(p Point) bool {
	n := len(poly)
	if n < 3 {
		return false
	}

	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := poly[j], poly[i]
		if onSegment(a, b, p) {
			return true
		}
		if (b.Y > p.Y) != (a.Y > p.Y) {
			xCross := (a.X-b.X)*(p.Y-b.Y)/(a.Y-b.Y) + b.X
			if p.X < xCross {
				inside = !inside
			}
		}
	}
	return inside
}

const collinearEpsilon = 1e-9

func onSegment(a, b, p Point) bool {
	cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
	if math.Abs(cross) > collinearEpsilon*math.Max(1, Distance(a, b)) {
		return false
	}
	return p.X >= math.Min(a.X, b.X)-collinearEpsilon && p.X <= math.Max(a.X, b.X)+collinearEpsilon &&
		p.Y >= math.Min(a.Y, b.Y)-collinearEpsilon && p.Y <= math.Max(a.Y, b.Y)+collinearEpsilon
}
