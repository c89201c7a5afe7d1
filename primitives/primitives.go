// Package primitives holds the geometric objects produced by the gerber and
// drill parsers. The set of kinds is closed: Flash, Trace, Region and Hole.
// Consumers handle them through Visitor, one method per kind.
package primitives

import (
	"fmt"

	"github.com/VasiliyTurchenko/gerber2gcode/apertures"
	. "github.com/VasiliyTurchenko/gerber2gcode/gerberbasetypes"
	"github.com/VasiliyTurchenko/gerber2gcode/polygon"
)

type Primitive interface {
	Polarity() PolType
	// source line number
	Line() int
	Accept(v Visitor) error
	String() string
	// only the kinds of this package implement Primitive
	primitive()
}

type Visitor interface {
	VisitFlash(*Flash) error
	VisitTrace(*Trace) error
	VisitRegion(*Region) error
	VisitHole(*Hole) error
}

// Walk applies v to every primitive in order and stops on the first error
func Walk(prims []Primitive, v Visitor) error {
	for _, p := range prims {
		if err := p.Accept(v); err != nil {
			return err
		}
	}
	return nil
}

type base struct {
	Pol     PolType
	SrcLine int
}

func (b base) Polarity() PolType {
	if b.Pol == 0 {
		return PolTypeDark
	}
	return b.Pol
}

func (b base) Line() int {
	return b.SrcLine
}

func (base) primitive() {}

/*
############################## flash ##############################
*/

type Flash struct {
	base
	At       polygon.Point
	Aperture *apertures.Aperture
}

func NewFlash(at polygon.Point, apert *apertures.Aperture, pol PolType, line int) *Flash {
	return &Flash{base: base{pol, line}, At: at, Aperture: apert}
}

func (f *Flash) Accept(v Visitor) error {
	return v.VisitFlash(f)
}

func (f *Flash) String() string {
	return fmt.Sprintf("flash D%d at %v, %v", f.Aperture.Code, f.At, f.Polarity())
}

/*
############################## trace ##############################
*/

// Trace is a linear or circular draw with an aperture
type Trace struct {
	base
	Start, End polygon.Point
	// arc centre, meaningful for circular interpolation
	Centre     polygon.Point
	Interp     IPmode
	FullCircle bool
	Aperture   *apertures.Aperture
}

func NewTrace(start, end polygon.Point, apert *apertures.Aperture, pol PolType, line int) *Trace {
	return &Trace{base: base{pol, line}, Start: start, End: end, Interp: IPModeLinear, Aperture: apert}
}

func NewArc(start, end, centre polygon.Point, ccw, full bool, apert *apertures.Aperture, pol PolType, line int) *Trace {
	t := NewTrace(start, end, apert, pol, line)
	t.Centre = centre
	t.FullCircle = full
	t.Interp = IPModeCwC
	if ccw {
		t.Interp = IPModeCCwC
	}
	return t
}

func (t *Trace) IsArc() bool {
	return t.Interp == IPModeCwC || t.Interp == IPModeCCwC
}

// Sweep returns the signed arc angle, positive counter-clockwise
func (t *Trace) Sweep() float64 {
	return ArcSweep(t.Start, t.End, t.Centre, t.Interp == IPModeCCwC, t.FullCircle)
}

// Path returns the centre line of the trace, arcs flattened with tol
func (t *Trace) Path(tol float64) []polygon.Point {
	retVal := []polygon.Point{t.Start}
	if !t.IsArc() {
		return append(retVal, t.End)
	}
	return append(retVal, polygon.Arc(t.Start, t.Centre, t.Sweep(), tol)...)
}

func (t *Trace) Length() float64 {
	if !t.IsArc() {
		return t.Start.Dist(t.End)
	}
	s := t.Sweep()
	if s < 0 {
		s = -s
	}
	return s * t.Start.Dist(t.Centre)
}

func (t *Trace) Accept(v Visitor) error {
	return v.VisitTrace(t)
}

func (t *Trace) String() string {
	return fmt.Sprintf("trace D%d %v -> %v, %v, %v", t.Aperture.Code, t.Start, t.End, t.Interp, t.Polarity())
}

/*
############################## region ##############################
*/

// Region is one closed contour of a G36/G37 statement. Contours of the same
// statement share Group.
type Region struct {
	base
	Contour polygon.Contour
	Group   int
}

func NewRegion(c polygon.Contour, group int, pol PolType, line int) *Region {
	return &Region{base: base{pol, line}, Contour: c, Group: group}
}

func (r *Region) Accept(v Visitor) error {
	return v.VisitRegion(r)
}

func (r *Region) String() string {
	return fmt.Sprintf("region #%d, %d points, %v", r.Group, r.Contour.Len(), r.Polarity())
}

/*
############################## drill hole ##############################
*/

// Hole is a drilled hole or, when Slot is set, a routed slot from At to End
type Hole struct {
	base
	At, End  polygon.Point
	Slot     bool
	Diameter float64
	Tool     string
}

func NewHole(at polygon.Point, diameter float64, tool string, line int) *Hole {
	return &Hole{base: base{PolTypeDark, line}, At: at, Diameter: diameter, Tool: tool}
}

func (h *Hole) Accept(v Visitor) error {
	return v.VisitHole(h)
}

func (h *Hole) String() string {
	if h.Slot {
		return fmt.Sprintf("slot %s %v -> %v, d=%.4f", h.Tool, h.At, h.End, h.Diameter)
	}
	return fmt.Sprintf("hole %s at %v, d=%.4f", h.Tool, h.At, h.Diameter)
}

/*
############################## translation ##############################
*/

type translator struct {
	d      polygon.Point
	invert bool
	out    Primitive
}

func (tr *translator) placed(b base) base {
	if tr.invert {
		if b.Polarity() == PolTypeDark {
			b.Pol = PolTypeClear
		} else {
			b.Pol = PolTypeDark
		}
	}
	return b
}

func (tr *translator) VisitFlash(f *Flash) error {
	c := *f
	c.base = tr.placed(f.base)
	c.At = f.At.Add(tr.d)
	tr.out = &c
	return nil
}

func (tr *translator) VisitTrace(t *Trace) error {
	c := *t
	c.base = tr.placed(t.base)
	c.Start, c.End, c.Centre = t.Start.Add(tr.d), t.End.Add(tr.d), t.Centre.Add(tr.d)
	tr.out = &c
	return nil
}

func (tr *translator) VisitRegion(r *Region) error {
	c := *r
	c.base = tr.placed(r.base)
	c.Contour = r.Contour.Clone()
	for i := range c.Contour.Points {
		c.Contour.Points[i] = c.Contour.Points[i].Add(tr.d)
	}
	tr.out = &c
	return nil
}

func (tr *translator) VisitHole(h *Hole) error {
	c := *h
	c.At, c.End = h.At.Add(tr.d), h.End.Add(tr.d)
	tr.out = &c
	return nil
}

// Translate returns a copy of p moved by d
func Translate(p Primitive, d polygon.Point) Primitive {
	return Place(p, d, false)
}

// Place returns a copy of p moved by d with the polarity toggled when invert is set
func Place(p Primitive, d polygon.Point, invert bool) Primitive {
	tr := &translator{d: d, invert: invert}
	_ = p.Accept(tr)
	return tr.out
}
