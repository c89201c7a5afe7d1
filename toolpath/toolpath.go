/*
Package toolpath turns contours and holes into ordered 3D motion
*/
package toolpath

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/glog"

	"github.com/VasiliyTurchenko/gerber2gcode/polygon"
)

type MoveKind int

const (
	MoveRapid MoveKind = iota + 1
	MovePlunge
	MoveCut
	MoveRetract
	MoveTabRapid
	MoveArcCW
	MoveArcCCW
	MoveDwell
)

func (mk MoveKind) String() string {
	switch mk {
	case MoveRapid:
		return "rapid"
	case MovePlunge:
		return "plunge"
	case MoveCut:
		return "cut"
	case MoveRetract:
		return "retract"
	case MoveTabRapid:
		return "tab-rapid"
	case MoveArcCW:
		return "arc-cw"
	case MoveArcCCW:
		return "arc-ccw"
	case MoveDwell:
		return "dwell"
	default:
	}
	return "unknown move"
}

// Move is one motion command. Arcs carry the absolute XY of their centre.
type Move struct {
	Kind   MoveKind
	To     mgl64.Vec3
	Centre mgl64.Vec2
	Feed   float64
	Dwell  float64 // seconds
}

func (m Move) IsArc() bool {
	return m.Kind == MoveArcCW || m.Kind == MoveArcCCW
}

func (m Move) String() string {
	s := fmt.Sprintf("%s X%.4f Y%.4f Z%.4f", m.Kind, m.To.X(), m.To.Y(), m.To.Z())
	if m.IsArc() {
		s += fmt.Sprintf(" C(%.4f,%.4f)", m.Centre.X(), m.Centre.Y())
	}
	if m.Feed > 0 {
		s += fmt.Sprintf(" F%.1f", m.Feed)
	}
	return s
}

type Toolpath struct {
	Name         string
	ToolDiameter float64
	Moves        []Move
	// canned cycle equivalent of Moves, drilling only
	Cycle *DrillCycle
}

// Start returns the XY of the first move
func (tp *Toolpath) Start() mgl64.Vec2 {
	if len(tp.Moves) == 0 {
		return mgl64.Vec2{}
	}
	return tp.Moves[0].To.Vec2()
}

// End returns the XY of the last move
func (tp *Toolpath) End() mgl64.Vec2 {
	if len(tp.Moves) == 0 {
		return mgl64.Vec2{}
	}
	return tp.Moves[len(tp.Moves)-1].To.Vec2()
}

// CutLength sums the straight length of feed moves, arcs count as chords
func (tp *Toolpath) CutLength() float64 {
	var retVal float64
	var prev mgl64.Vec3
	for i, m := range tp.Moves {
		if i > 0 && m.Kind != MoveRapid && m.Kind != MoveRetract && m.Kind != MoveDwell {
			retVal += m.To.Sub(prev).Len()
		}
		prev = m.To
	}
	return retVal
}

// RapidLength sums the length of rapid moves and retracts
func (tp *Toolpath) RapidLength() float64 {
	var retVal float64
	var prev mgl64.Vec3
	for i, m := range tp.Moves {
		if i > 0 && (m.Kind == MoveRapid || m.Kind == MoveRetract) {
			retVal += m.To.Sub(prev).Len()
		}
		prev = m.To
	}
	return retVal
}

// MinZ is the deepest point of the path
func (tp *Toolpath) MinZ() float64 {
	retVal := math.Inf(1)
	for _, m := range tp.Moves {
		retVal = math.Min(retVal, m.To.Z())
	}
	return retVal
}

/* ############################## depth leveling ############################## */

// DepthLevels returns the pass depths down to final (negative). The last level
// is clamped to final exactly.
func DepthLevels(final float64, multi bool, step float64) []float64 {
	if final >= 0 {
		return nil
	}
	if !multi || step <= 0 || step >= -final {
		return []float64{final}
	}
	retVal := make([]float64, 0)
	for i := 1; ; i++ {
		z := -float64(i) * step
		if z <= final+lengthEps {
			return append(retVal, final)
		}
		retVal = append(retVal, z)
	}
}

/* ############################## contours ############################## */

type builder struct {
	p     Params
	moves []Move
	pos   mgl64.Vec3
}

func (b *builder) add(kind MoveKind, to mgl64.Vec3, feed float64) {
	b.moves = append(b.moves, Move{Kind: kind, To: to, Feed: feed})
	b.pos = to
}

func (b *builder) arc(kind MoveKind, to mgl64.Vec3, centre mgl64.Vec2, feed float64) {
	b.moves = append(b.moves, Move{Kind: kind, To: to, Centre: centre, Feed: feed})
	b.pos = to
}

func vec3(p polygon.Point, z float64) mgl64.Vec3 {
	return mgl64.Vec3{p.X, p.Y, z}
}

// orient returns the loop points in the cutting direction. Climb milling with
// a clockwise spindle runs clockwise around solids and counter-clockwise
// inside holes.
func orient(c polygon.Contour, dir Direction) []polygon.Point {
	n := c.Normalized()
	if dir == Climb {
		n.Reverse()
	}
	return n.Points
}

// ContourPath cuts the closed contour at every depth level using the entry
// strategy of the params. Tabs are left when withTabs is set.
func ContourPath(c polygon.Contour, p Params, withTabs bool) (Toolpath, error) {
	retVal := Toolpath{ToolDiameter: p.ToolDiameter}
	if len(c.Points) < 3 {
		return retVal, fmt.Errorf("contour with %d points can not be cut", len(c.Points))
	}
	levels := DepthLevels(p.CutDepth, p.MultiDepth, p.DepthPerPass)
	if len(levels) == 0 {
		return retVal, fmt.Errorf("cut depth %g is not below the surface", p.CutDepth)
	}
	l := newLoop(orient(c, p.Direction))
	var spans [][2]float64
	if withTabs {
		spans = tabSpans(l.perim, p)
	}
	b := &builder{p: p}
	start := l.pts[0]
	b.add(MoveRapid, vec3(start, p.TravelZ), 0)
	top := 0.0
	s := 0.0
	for _, z := range levels {
		switch p.Entry {
		case EntryRamp:
			entry := top
			if inTab(l, s, spans) {
				entry = math.Max(top, p.CutDepth+p.Tabs.Height)
			}
			b.add(MovePlunge, vec3(l.at(s), entry), p.PlungeFeed)
			s = b.ramp(l, s, top, z, spans)
		case EntryHelix:
			b.helix(l.at(s), top, z)
		default:
			b.add(MovePlunge, vec3(l.at(s), z), p.PlungeFeed)
		}
		b.level(l, s, z, spans)
		top = z
	}
	b.add(MoveRetract, vec3(l.at(s), p.TravelZ), 0)
	retVal.Moves = b.moves
	return retVal, nil
}

// ramp descends from top to z along the loop starting at s and returns the
// arc length where the ramp ends. Inside the tab spans the ramp does not go
// below the tab top.
func (b *builder) ramp(l *loop, s, top, z float64, spans [][2]float64) float64 {
	dz := top - z
	angle := b.p.RampAngle
	if angle <= 0 || angle >= 90 {
		angle = DefaultParams().RampAngle
	}
	run := dz / math.Tan(mgl64.DegToRad(angle))
	n := int(math.Ceil(run))
	if n < 3 {
		n = 3
	}
	end := s + run
	marks := l.marks(s, end, spans)
	for i := 1; i <= n; i++ {
		marks = append(marks, s+run*float64(i)/float64(n))
	}
	sort.Float64s(marks)

	tabTop := b.p.CutDepth + b.p.Tabs.Height
	prev := s
	for _, t := range marks {
		if t <= prev+lengthEps {
			continue
		}
		zz := top - dz*(t-s)/run
		if inTab(l, (prev+t)/2, spans) && zz < tabTop {
			zz = tabTop
			if b.pos.Z() < tabTop-lengthEps {
				b.add(MoveRetract, vec3(l.at(prev), tabTop), b.p.PlungeFeed)
			}
		}
		b.add(MoveCut, vec3(l.at(t), zz), b.p.PlungeFeed)
		prev = t
	}
	return end
}

// helix descends from top to z on quarter turn arcs around start, the
// closing segment returns to start
func (b *builder) helix(start polygon.Point, top, z float64) {
	b.helixAround(start, 0.75*b.p.ToolDiameter, top, z)
	b.add(MoveCut, vec3(start, z), b.p.PlungeFeed)
}

func (b *builder) helixAround(centre polygon.Point, r, top, z float64) {
	pitch := b.p.HelixPitch
	if pitch <= 0 {
		pitch = DefaultParams().HelixPitch
	}
	quarters := int(math.Ceil(4*(top-z)/pitch - lengthEps))
	if quarters < 1 {
		quarters = 1
	}
	c := mgl64.Vec2{centre.X, centre.Y}
	b.add(MovePlunge, vec3(centre, top), b.p.PlungeFeed)
	b.add(MoveCut, mgl64.Vec3{centre.X + r, centre.Y, top}, b.p.PlungeFeed)
	for i := 1; i <= quarters; i++ {
		a := float64(i) * math.Pi / 2
		zz := top - (top-z)*float64(i)/float64(quarters)
		b.arc(MoveArcCCW, mgl64.Vec3{centre.X + r*math.Cos(a), centre.Y + r*math.Sin(a), zz}, c, b.p.PlungeFeed)
	}
}

func (b *builder) cut(l *loop, from, to, z float64) {
	for _, pt := range l.walk(from, to) {
		b.add(MoveCut, vec3(pt, z), b.p.CutFeed)
	}
}

// level cuts one full lap at z starting at arc length s. Below the tab top
// the tab spans are passed at the tab top.
func (b *builder) level(l *loop, s, z float64, spans [][2]float64) {
	tabTop := b.p.CutDepth + b.p.Tabs.Height
	end := s + l.perim
	pos := s
	if len(spans) > 0 && z < tabTop {
		base := math.Floor(s/l.perim) * l.perim
		for _, off := range []float64{base, base + l.perim} {
			for _, sp := range spans {
				a, c := math.Max(sp[0]+off, pos), math.Min(sp[1]+off, end)
				if c <= a+lengthEps {
					continue
				}
				b.cut(l, pos, a, z)
				if b.pos.Z() < tabTop-lengthEps {
					b.add(MoveRetract, vec3(l.at(a), tabTop), b.p.PlungeFeed)
				}
				for _, pt := range l.walk(a, c) {
					b.add(MoveTabRapid, vec3(pt, tabTop), b.p.CutFeed)
				}
				if c < sp[1]+off-lengthEps {
					// the lap ends inside the tab
					pos = c
					continue
				}
				b.add(MovePlunge, vec3(l.at(c), z), b.p.PlungeFeed)
				pos = c
			}
		}
	}
	b.cut(l, pos, end, z)
}

// tabSpans returns the arc length intervals of the tabs, centred at evenly
// spaced positions and widened by the tool diameter
func tabSpans(perim float64, p Params) [][2]float64 {
	if p.Tabs.Count <= 0 || p.Tabs.Height <= 0 {
		return nil
	}
	span := p.Tabs.Width + p.ToolDiameter
	if span*float64(p.Tabs.Count) >= perim {
		glog.Warningf("%d tabs of %.3fmm do not fit the contour of %.3fmm, tabs dropped", p.Tabs.Count, span, perim)
		return nil
	}
	retVal := make([][2]float64, 0, p.Tabs.Count)
	for k := 0; k < p.Tabs.Count; k++ {
		centre := (float64(k) + 0.5) * perim / float64(p.Tabs.Count)
		retVal = append(retVal, [2]float64{centre - span/2, centre + span/2})
	}
	return retVal
}
