// Package polygon holds the planar contour model shared by the parsers,
// the clipping engine and the toolpath planner. All values are in mm.
package polygon

import (
	"math"
	"sort"
	"strconv"
)

type Point struct {
	X, Y float64
}

func (p Point) Add(q Point) Point {
	return Point{p.X + q.X, p.Y + q.Y}
}

func (p Point) Sub(q Point) Point {
	return Point{p.X - q.X, p.Y - q.Y}
}

func (p Point) Scale(k float64) Point {
	return Point{p.X * k, p.Y * k}
}

func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Equals reports whether q lies inside the circle of radius tol around p
func (p Point) Equals(q Point, tol float64) bool {
	return p.Dist(q) <= tol
}

func (p Point) String() string {
	return "(" + strconv.FormatFloat(p.X, 'f', 4, 64) + "," +
		strconv.FormatFloat(p.Y, 'f', 4, 64) + ")"
}

// Contour is an ordered point list. Closed contours have implicit closure,
// the last point is not repeated.
type Contour struct {
	Points []Point
	Hole   bool
	Open   bool // open path (trace centre line), never normalized
}

// SignedArea returns the shoelace area, positive for counter-clockwise order
func SignedArea(pts []Point) float64 {
	n := len(pts)
	if n < 3 {
		return 0
	}
	var a float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		a += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return a / 2
}

func (c Contour) SignedArea() float64 {
	return SignedArea(c.Points)
}

func (c Contour) Area() float64 {
	return math.Abs(c.SignedArea())
}

func (c Contour) IsCCW() bool {
	return c.SignedArea() > 0
}

func (c Contour) Len() int {
	return len(c.Points)
}

// Reverse reverses the point order in place
func (c *Contour) Reverse() {
	for i, j := 0, len(c.Points)-1; i < j; i, j = i+1, j-1 {
		c.Points[i], c.Points[j] = c.Points[j], c.Points[i]
	}
}

// Normalize forces solids counter-clockwise and holes clockwise.
// Open paths and degenerate contours are left untouched.
func (c *Contour) Normalize() {
	if c.Open {
		return
	}
	a := c.SignedArea()
	if a == 0 {
		return
	}
	if (c.Hole && a > 0) || (!c.Hole && a < 0) {
		c.Reverse()
	}
}

func (c Contour) Clone() Contour {
	retVal := c
	retVal.Points = make([]Point, len(c.Points))
	copy(retVal.Points, c.Points)
	return retVal
}

// Normalized returns the normalized copy of c
func (c Contour) Normalized() Contour {
	retVal := c.Clone()
	retVal.Normalize()
	return retVal
}

// Contains tests p against the contour with even-odd ray casting.
// Points exactly on the boundary may fall either way.
func (c Contour) Contains(p Point) bool {
	inside := false
	n := len(c.Points)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := c.Points[i], c.Points[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
			if p.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// Bounds returns lower left and upper right corners
func (c Contour) Bounds() (Point, Point) {
	if len(c.Points) == 0 {
		return Point{}, Point{}
	}
	ll, ur := c.Points[0], c.Points[0]
	for _, p := range c.Points[1:] {
		ll.X = math.Min(ll.X, p.X)
		ll.Y = math.Min(ll.Y, p.Y)
		ur.X = math.Max(ur.X, p.X)
		ur.Y = math.Max(ur.Y, p.Y)
	}
	return ll, ur
}

// Length is the path length, closing edge included for closed contours
func (c Contour) Length() float64 {
	var l float64
	n := len(c.Points)
	for i := 1; i < n; i++ {
		l += c.Points[i-1].Dist(c.Points[i])
	}
	if !c.Open && n > 2 {
		l += c.Points[n-1].Dist(c.Points[0])
	}
	return l
}

// Closed returns points with the first point repeated at the end
func (c Contour) Closed() []Point {
	retVal := make([]Point, 0, len(c.Points)+1)
	retVal = append(retVal, c.Points...)
	if !c.Open && len(c.Points) > 0 {
		retVal = append(retVal, c.Points[0])
	}
	return retVal
}

// ContourSet is a flat list of contours, the input and the flat output of
// boolean and offset operations
type ContourSet []Contour

func (cs ContourSet) Normalize() {
	for i := range cs {
		cs[i].Normalize()
	}
}

func (cs ContourSet) Clone() ContourSet {
	retVal := make(ContourSet, len(cs))
	for i := range cs {
		retVal[i] = cs[i].Clone()
	}
	return retVal
}

// Area is the net area: solids minus holes
func (cs ContourSet) Area() float64 {
	var a float64
	for _, c := range cs {
		if c.Open {
			continue
		}
		if c.Hole {
			a -= c.Area()
		} else {
			a += c.Area()
		}
	}
	return a
}

func (cs ContourSet) Bounds() (Point, Point) {
	if len(cs) == 0 {
		return Point{}, Point{}
	}
	ll, ur := cs[0].Bounds()
	for _, c := range cs[1:] {
		l, u := c.Bounds()
		ll.X = math.Min(ll.X, l.X)
		ll.Y = math.Min(ll.Y, l.Y)
		ur.X = math.Max(ur.X, u.X)
		ur.Y = math.Max(ur.Y, u.Y)
	}
	return ll, ur
}

// Rect returns a counter-clockwise rectangle contour
func Rect(ll, ur Point) Contour {
	return Contour{Points: []Point{ll, {ur.X, ll.Y}, ur, {ll.X, ur.Y}}}
}

// Circle approximates a circle so that the chord deviation stays below tol
func Circle(c Point, r, tol float64) Contour {
	n := Segments(r, 2*math.Pi, tol)
	pts := make([]Point, n)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = Point{c.X + r*math.Cos(a), c.Y + r*math.Sin(a)}
	}
	return Contour{Points: pts}
}

// Segments returns the number of chords for an arc of radius r and
// sweep angle so that the sagitta does not exceed tol, at least 4 per circle
func Segments(r, sweep, tol float64) int {
	sweep = math.Abs(sweep)
	if r <= tol || tol <= 0 {
		return int(math.Max(1, math.Ceil(sweep/(math.Pi/2))))
	}
	step := 2 * math.Acos(1-tol/r)
	n := int(math.Ceil(sweep / step))
	minN := int(math.Ceil(sweep / (math.Pi / 2)))
	if n < minN {
		n = minN
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Arc flattens the arc from start around centre to the sweep angle
// (positive is counter-clockwise). Start point is not included, the end point is.
func Arc(start, centre Point, sweep, tol float64) []Point {
	r := start.Dist(centre)
	a0 := math.Atan2(start.Y-centre.Y, start.X-centre.X)
	n := Segments(r, sweep, tol)
	retVal := make([]Point, 0, n)
	for i := 1; i <= n; i++ {
		a := a0 + sweep*float64(i)/float64(n)
		retVal = append(retVal, Point{centre.X + r*math.Cos(a), centre.Y + r*math.Sin(a)})
	}
	return retVal
}

// ConvexHull returns the counter-clockwise convex hull of pts (monotone chain)
func ConvexHull(pts []Point) Contour {
	ps := make([]Point, len(pts))
	copy(ps, pts)
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].X != ps[j].X {
			return ps[i].X < ps[j].X
		}
		return ps[i].Y < ps[j].Y
	})
	if len(ps) < 3 {
		return Contour{Points: ps}
	}
	cross := func(o, a, b Point) float64 {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}
	hull := make([]Point, 0, 2*len(ps))
	for _, p := range ps {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(ps) - 2; i >= 0; i-- {
		p := ps[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return Contour{Points: hull[:len(hull)-1]}
}
