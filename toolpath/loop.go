package toolpath

import (
	"math"

	"github.com/VasiliyTurchenko/gerber2gcode/polygon"
)

const lengthEps = 1e-9

// loop is a closed contour addressed by arc length
type loop struct {
	pts   []polygon.Point
	cum   []float64 // arc length at each vertex, cum[0] == 0
	perim float64
}

func newLoop(pts []polygon.Point) *loop {
	l := &loop{pts: pts, cum: make([]float64, len(pts))}
	for i := 1; i < len(pts); i++ {
		l.cum[i] = l.cum[i-1] + pts[i].Dist(pts[i-1])
	}
	if len(pts) > 0 {
		l.perim = l.cum[len(pts)-1] + pts[0].Dist(pts[len(pts)-1])
	}
	return l
}

// at returns the point at arc length s, s is taken modulo the perimeter
func (l *loop) at(s float64) polygon.Point {
	if l.perim == 0 {
		return l.pts[0]
	}
	s = math.Mod(s, l.perim)
	if s < 0 {
		s += l.perim
	}
	n := len(l.pts)
	for i := 0; i < n; i++ {
		end := l.perim
		if i+1 < n {
			end = l.cum[i+1]
		}
		if s <= end {
			seg := end - l.cum[i]
			if seg == 0 {
				return l.pts[i]
			}
			k := (s - l.cum[i]) / seg
			a, b := l.pts[i], l.pts[(i+1)%n]
			return a.Add(b.Sub(a).Scale(k))
		}
	}
	return l.pts[0]
}

// walk returns the vertices passed going from s0 to s1 (s1 > s0) and
// the point at s1, the point at s0 itself is not included
func (l *loop) walk(s0, s1 float64) []polygon.Point {
	retVal := make([]polygon.Point, 0)
	if l.perim == 0 || s1 <= s0 {
		return retVal
	}
	lap := math.Floor(s0 / l.perim)
	for {
		for i := range l.pts {
			s := lap*l.perim + l.cum[i]
			if s <= s0+lengthEps {
				continue
			}
			if s >= s1-lengthEps {
				return append(retVal, l.at(s1))
			}
			retVal = append(retVal, l.pts[i])
		}
		lap++
	}
}

// marks returns the arc lengths strictly between s0 and s1 where the loop has
// a vertex or a span edge
func (l *loop) marks(s0, s1 float64, spans [][2]float64) []float64 {
	retVal := make([]float64, 0)
	if l.perim == 0 {
		return retVal
	}
	keep := func(s float64) {
		if s > s0+lengthEps && s < s1-lengthEps {
			retVal = append(retVal, s)
		}
	}
	for lap := math.Floor(s0 / l.perim); lap*l.perim < s1; lap++ {
		off := lap * l.perim
		for _, c := range l.cum {
			keep(off + c)
		}
		for _, sp := range spans {
			keep(off + sp[0])
			keep(off + sp[1])
		}
	}
	return retVal
}

// inTab tells whether arc length s lies inside one of the spans
func inTab(l *loop, s float64, spans [][2]float64) bool {
	if l.perim == 0 {
		return false
	}
	s = math.Mod(s, l.perim)
	if s < 0 {
		s += l.perim
	}
	for _, sp := range spans {
		if s > sp[0]+lengthEps && s < sp[1]-lengthEps {
			return true
		}
	}
	return false
}
