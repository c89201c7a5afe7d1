package toolpath

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/VasiliyTurchenko/gerber2gcode/polygon"
)

type CycleKind int

const (
	CycleSimple CycleKind = iota + 1 // G81
	CycleDwell                       // G82
	CyclePeck                        // G83
)

func (ck CycleKind) String() string {
	switch ck {
	case CycleSimple:
		return "simple"
	case CycleDwell:
		return "dwell"
	case CyclePeck:
		return "peck"
	default:
	}
	return "unknown cycle"
}

// DrillCycle describes a drilling toolpath for dialects having canned cycles
type DrillCycle struct {
	Kind     CycleKind
	Holes    []mgl64.Vec2
	Depth    float64
	RetractZ float64 // R plane
	Peck     float64
	Dwell    float64
	Feed     float64
}

func cycleOf(holes []polygon.Point, p Params) *DrillCycle {
	retVal := &DrillCycle{
		Kind:     CycleSimple,
		Depth:    p.CutDepth,
		RetractZ: p.Clearance,
		Dwell:    p.Dwell,
		Feed:     p.PlungeFeed,
	}
	if p.PeckDepth > 0 && p.PeckDepth < -p.CutDepth {
		retVal.Kind = CyclePeck
		retVal.Peck = p.PeckDepth
	} else if p.Dwell > 0 {
		retVal.Kind = CycleDwell
	}
	for _, h := range holes {
		retVal.Holes = append(retVal.Holes, mgl64.Vec2{h.X, h.Y})
	}
	return retVal
}

// DrillPath drills the holes in the given order with pecking when the peck
// depth is shorter than the hole
func DrillPath(holes []polygon.Point, p Params) (Toolpath, error) {
	retVal := Toolpath{ToolDiameter: p.ToolDiameter}
	if p.CutDepth >= 0 {
		return retVal, fmt.Errorf("drill depth %g is not below the surface", p.CutDepth)
	}
	b := &builder{p: p}
	for _, h := range holes {
		b.add(MoveRapid, vec3(h, p.TravelZ), 0)
		b.peck(h)
		b.add(MoveRapid, vec3(h, p.TravelZ), 0)
	}
	retVal.Moves = b.moves
	retVal.Cycle = cycleOf(holes, p)
	return retVal, nil
}

// peck drills one hole from the R plane. Between pecks the tool rapids up to
// the R plane and rapids back down to the previous depth plus clearance.
func (b *builder) peck(h polygon.Point) {
	final := b.p.CutDepth
	r := b.p.Clearance
	b.add(MoveRapid, vec3(h, r), 0)
	if b.p.PeckDepth <= 0 || b.p.PeckDepth >= -final {
		b.add(MovePlunge, vec3(h, final), b.p.PlungeFeed)
		b.dwell()
		return
	}
	depth := 0.0
	for depth > final {
		target := math.Max(depth-b.p.PeckDepth, final)
		resume := depth + b.p.Clearance
		if depth < 0 && b.pos.Z() > resume {
			b.add(MoveRapid, vec3(h, resume), 0)
		}
		b.add(MovePlunge, vec3(h, target), b.p.PlungeFeed)
		depth = target
		if depth <= final {
			b.dwell()
			break
		}
		b.add(MoveRapid, vec3(h, r), 0)
	}
}

func (b *builder) dwell() {
	if b.p.Dwell > 0 {
		b.moves = append(b.moves, Move{Kind: MoveDwell, To: b.pos, Dwell: b.p.Dwell})
	}
}

// HoleMillPath mills a hole wider than the tool: a helix down to the depth on
// the radius reduced by the tool radius, then a full circle at the bottom
func HoleMillPath(centre polygon.Point, diameter float64, p Params) (Toolpath, error) {
	retVal := Toolpath{ToolDiameter: p.ToolDiameter}
	r := (diameter - p.ToolDiameter) / 2
	if r <= 0 {
		return retVal, fmt.Errorf("hole of %.3fmm is not wider than the tool of %.3fmm", diameter, p.ToolDiameter)
	}
	if p.CutDepth >= 0 {
		return retVal, fmt.Errorf("cut depth %g is not below the surface", p.CutDepth)
	}
	b := &builder{p: p}
	b.add(MoveRapid, vec3(centre, p.TravelZ), 0)
	b.helixAround(centre, r, 0, p.CutDepth)
	c := mgl64.Vec2{centre.X, centre.Y}
	for i := 1; i <= 4; i++ {
		a := float64(i) * math.Pi / 2
		b.arc(MoveArcCCW, mgl64.Vec3{centre.X + r*math.Cos(a), centre.Y + r*math.Sin(a), p.CutDepth}, c, p.CutFeed)
	}
	b.add(MoveCut, vec3(centre, p.CutDepth), p.CutFeed)
	b.add(MoveRetract, vec3(centre, p.TravelZ), 0)
	retVal.Moves = b.moves
	return retVal, nil
}

// SlotPath routes a slot back and forth at every depth level
func SlotPath(start, end polygon.Point, p Params) (Toolpath, error) {
	retVal := Toolpath{ToolDiameter: p.ToolDiameter}
	levels := DepthLevels(p.CutDepth, p.MultiDepth, p.DepthPerPass)
	if len(levels) == 0 {
		return retVal, fmt.Errorf("cut depth %g is not below the surface", p.CutDepth)
	}
	b := &builder{p: p}
	b.add(MoveRapid, vec3(start, p.TravelZ), 0)
	from, to := start, end
	for _, z := range levels {
		b.add(MovePlunge, vec3(from, z), p.PlungeFeed)
		b.add(MoveCut, vec3(to, z), p.CutFeed)
		from, to = to, from
	}
	b.add(MoveRetract, vec3(from, p.TravelZ), 0)
	retVal.Moves = b.moves
	return retVal, nil
}
