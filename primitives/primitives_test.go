package primitives

import (
	"errors"
	"math"
	"testing"

	"github.com/VasiliyTurchenko/gerber2gcode/apertures"
	. "github.com/VasiliyTurchenko/gerber2gcode/gerberbasetypes"
	"github.com/VasiliyTurchenko/gerber2gcode/polygon"
)

type counter struct {
	flashes, traces, regions, holes int
}

func (c *counter) VisitFlash(*Flash) error   { c.flashes++; return nil }
func (c *counter) VisitTrace(*Trace) error   { c.traces++; return nil }
func (c *counter) VisitRegion(*Region) error { c.regions++; return nil }
func (c *counter) VisitHole(*Hole) error {
	c.holes++
	return errors.New("stop")
}

func TestWalk(t *testing.T) {
	ap := &apertures.Aperture{Code: 10, Type: AptypeCircle, Diameter: 0.2}
	prims := []Primitive{
		NewFlash(polygon.Point{}, ap, PolTypeDark, 1),
		NewTrace(polygon.Point{}, polygon.Point{X: 1}, ap, PolTypeClear, 2),
		NewRegion(polygon.Rect(polygon.Point{}, polygon.Point{X: 1, Y: 1}), 1, PolTypeDark, 3),
		NewHole(polygon.Point{}, 0.8, "T01", 4),
		NewFlash(polygon.Point{}, ap, PolTypeDark, 5),
	}
	c := new(counter)
	if err := Walk(prims, c); err == nil {
		t.Fatal("visitor error must stop the walk")
	}
	if c.flashes != 1 || c.traces != 1 || c.regions != 1 || c.holes != 1 {
		t.Fatal("every kind must be visited once before the error")
	}
	if prims[1].Polarity() != PolTypeClear || prims[1].Line() != 2 {
		t.Fatal("bad trace attributes")
	}
	if (&Hole{}).Polarity() != PolTypeDark {
		t.Fatal("zero polarity must read as dark")
	}
}

func TestArcSweep(t *testing.T) {
	c := polygon.Point{}
	s := polygon.Point{X: 1}
	e := polygon.Point{Y: 1}
	cases := []struct {
		ccw, full bool
		end       polygon.Point
		want      float64
	}{
		{true, false, e, math.Pi / 2},
		{false, false, e, -3 * math.Pi / 2},
		{true, true, s, 2 * math.Pi},
		{false, true, s, -2 * math.Pi},
		{true, false, s, 0},
	}
	for _, tc := range cases {
		if got := ArcSweep(s, tc.end, c, tc.ccw, tc.full); math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("sweep %f expected %f", got, tc.want)
		}
	}
}

func TestTrace_PathAndLength(t *testing.T) {
	ap := &apertures.Aperture{Code: 10, Type: AptypeCircle, Diameter: 0.2}
	arc := NewArc(polygon.Point{X: 1}, polygon.Point{Y: 1}, polygon.Point{}, true, false, ap, PolTypeDark, 1)
	if !arc.IsArc() || math.Abs(arc.Length()-math.Pi/2) > 1e-12 {
		t.Fatal("bad arc length")
	}
	pts := arc.Path(0.001)
	last := pts[len(pts)-1]
	if math.Abs(last.X) > 1e-9 || math.Abs(last.Y-1) > 1e-9 {
		t.Fatal("arc path must end at the end point")
	}
	line := NewTrace(polygon.Point{}, polygon.Point{X: 3, Y: 4}, ap, PolTypeDark, 1)
	if line.Length() != 5 || len(line.Path(0.01)) != 2 {
		t.Fatal("bad linear trace")
	}
}

func TestTranslate(t *testing.T) {
	ap := &apertures.Aperture{Code: 10, Type: AptypeCircle, Diameter: 0.2}
	d := polygon.Point{X: 1, Y: 2}
	reg := NewRegion(polygon.Rect(polygon.Point{}, polygon.Point{X: 1, Y: 1}), 3, PolTypeClear, 7)
	moved := Translate(reg, d).(*Region)
	if moved.Contour.Points[0] != d || reg.Contour.Points[0] != (polygon.Point{}) {
		t.Fatal("region must be copied and moved")
	}
	if moved.Group != 3 || moved.Polarity() != PolTypeClear || moved.Line() != 7 {
		t.Fatal("attributes must be kept")
	}
	arc := NewArc(polygon.Point{X: 1}, polygon.Point{Y: 1}, polygon.Point{}, true, false, ap, PolTypeDark, 1)
	ma := Translate(arc, d).(*Trace)
	if ma.Centre != d || ma.Start != (polygon.Point{X: 2, Y: 2}) {
		t.Fatal("arc must be moved with its centre")
	}
	h := Translate(NewHole(polygon.Point{}, 1, "T01", 1), d).(*Hole)
	if h.At != d {
		t.Fatal("hole must be moved")
	}
	f := Translate(NewFlash(polygon.Point{}, ap, PolTypeDark, 1), d).(*Flash)
	if f.At != d || f.Aperture != ap {
		t.Fatal("flash must be moved")
	}
}
