/*
Package operations binds one input layer to machining parameters and derives
its offset passes and toolpaths
*/
package operations

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/glog"

	"github.com/VasiliyTurchenko/gerber2gcode/clipengine"
	"github.com/VasiliyTurchenko/gerber2gcode/polygon"
	"github.com/VasiliyTurchenko/gerber2gcode/primitives"
	"github.com/VasiliyTurchenko/gerber2gcode/toolpath"
)

type Kind int

const (
	KindIsolation Kind = iota + 1
	KindCutout
	KindDrill
)

func (k Kind) String() string {
	switch k {
	case KindIsolation:
		return "isolation"
	case KindCutout:
		return "cutout"
	case KindDrill:
		return "drill"
	default:
	}
	return "unknown operation kind"
}

func ParseKind(s string) (Kind, error) {
	switch s {
	case "isolation":
		return KindIsolation, nil
	case "cutout":
		return KindCutout, nil
	case "drill":
		return KindDrill, nil
	default:
	}
	return 0, fmt.Errorf("unknown operation kind %q", s)
}

var ErrNoGeometry = errors.New("operation has no input geometry")

// Params extends the toolpath parameters with the pass layout
type Params struct {
	toolpath.Params
	ToolNumber int
	ToolType   string // "endmill", "vbit", "drill"
	Passes     int
	Overlap    float64 // fraction of the tool diameter, 0..1
}

// OffsetPass is one contour set at a fixed distance from the copper
type OffsetPass struct {
	Index  int
	Offset float64
	Tree   *polygon.Tree
}

// Generator carries what the planning needs besides the operation itself
type Generator struct {
	Engine *clipengine.Engine
	// where the tool sits before the operation
	Origin polygon.Point
}

// Operation is one input file bound to machining parameters. Passes and
// Toolpaths are derived and rebuilt wholesale by Generate.
type Operation struct {
	ID     string
	Kind   Kind
	File   string
	Params Params

	Copper *polygon.Tree
	Holes  []*primitives.Hole

	Passes    []OffsetPass
	Toolpaths []toolpath.Toolpath
	Warnings  []string
}

func New(id string, kind Kind, file string, params Params) *Operation {
	return &Operation{ID: id, Kind: kind, File: file, Params: params}
}

// SetParams replaces the parameters and drops everything derived from them
func (op *Operation) SetParams(p Params) {
	op.Params = p
	op.reset()
}

// SetCopper binds the fused layer geometry
func (op *Operation) SetCopper(t *polygon.Tree) {
	op.Copper = t
	op.reset()
}

// SetHoles binds the drill holes
func (op *Operation) SetHoles(holes []*primitives.Hole) {
	op.Holes = holes
	op.reset()
}

func (op *Operation) reset() {
	op.Passes = nil
	op.Toolpaths = nil
	op.Warnings = nil
}

func (op *Operation) warn(format string, args ...interface{}) {
	s := fmt.Sprintf(format, args...)
	glog.Warningln(op.ID + ": " + s)
	op.Warnings = append(op.Warnings, s)
}

func (op *Operation) String() string {
	return op.Kind.String() + " " + strconv.Quote(op.ID) + " (" + op.File + ")"
}

// Generate rebuilds offset passes and toolpaths from the bound input
func (op *Operation) Generate(g Generator) error {
	op.reset()
	if op.Params.ToolDiameter <= 0 {
		return fmt.Errorf("%s: tool diameter %g is not positive", op, op.Params.ToolDiameter)
	}
	var err error
	switch op.Kind {
	case KindIsolation:
		err = op.isolation(g)
	case KindCutout:
		err = op.cutout(g)
	case KindDrill:
		err = op.drill(g)
	default:
		err = fmt.Errorf("unsupported operation kind %d", op.Kind)
	}
	if err != nil {
		op.reset()
		return fmt.Errorf("%s: %w", op, err)
	}
	glog.V(2).Infof("%s: %d passes, %d toolpaths, %d warnings", op, len(op.Passes), len(op.Toolpaths), len(op.Warnings))
	return nil
}

// PassOffsets returns the outward distances of isolation passes: the first at
// the tool radius, the next ones stepped by the tool diameter less the overlap
func PassOffsets(p Params) []float64 {
	n := p.Passes
	if n < 1 {
		n = 1
	}
	overlap := math.Min(math.Max(p.Overlap, 0), 0.99)
	step := p.ToolDiameter * (1 - overlap)
	retVal := make([]float64, n)
	for i := range retVal {
		retVal[i] = p.ToolDiameter/2 + float64(i)*step
	}
	return retVal
}

func (op *Operation) isolation(g Generator) error {
	if op.Copper == nil || len(op.Copper.Roots) == 0 {
		return ErrNoGeometry
	}
	copper := op.Copper.Flatten()
	for i, d := range PassOffsets(op.Params) {
		tree, err := g.Engine.OffsetTree(copper, d, clipengine.JoinRound, clipengine.EndClosedPolygon, 0)
		if err != nil {
			return err
		}
		op.Passes = append(op.Passes, OffsetPass{Index: i, Offset: d, Tree: tree})
	}
	paths := make([]toolpath.Toolpath, 0)
	for _, pass := range op.Passes {
		for j, c := range pass.Tree.Flatten() {
			tp, err := toolpath.ContourPath(c, op.Params.Params, false)
			if err != nil {
				op.warn("pass %d contour %d skipped: %v", pass.Index, j, err)
				continue
			}
			tp.Name = fmt.Sprintf("%s pass %d contour %d", op.ID, pass.Index, j)
			paths = append(paths, tp)
		}
	}
	op.Toolpaths = toolpath.Order(paths, vec2(g.Origin))
	return nil
}

// cutout follows the outside of the outer board contours
func (op *Operation) cutout(g Generator) error {
	if op.Copper == nil || len(op.Copper.Roots) == 0 {
		return ErrNoGeometry
	}
	outer := make(polygon.ContourSet, 0, len(op.Copper.Roots))
	for _, n := range op.Copper.Roots {
		outer = append(outer, n.Contour)
	}
	d := op.Params.ToolDiameter / 2
	tree, err := g.Engine.OffsetTree(outer, d, clipengine.JoinRound, clipengine.EndClosedPolygon, 0)
	if err != nil {
		return err
	}
	op.Passes = append(op.Passes, OffsetPass{Offset: d, Tree: tree})
	paths := make([]toolpath.Toolpath, 0)
	for j, n := range tree.Roots {
		tp, err := toolpath.ContourPath(n.Contour, op.Params.Params, true)
		if err != nil {
			op.warn("outline %d skipped: %v", j, err)
			continue
		}
		tp.Name = fmt.Sprintf("%s outline %d", op.ID, j)
		paths = append(paths, tp)
	}
	op.Toolpaths = toolpath.Order(paths, vec2(g.Origin))
	return nil
}

// drillTolerance is how much a hole may exceed the tool before it is milled
const drillTolerance = 0.01

func (op *Operation) drill(g Generator) error {
	if len(op.Holes) == 0 {
		return ErrNoGeometry
	}
	p := op.Params.Params
	points := make([]polygon.Point, 0, len(op.Holes))
	milled := make([]toolpath.Toolpath, 0)
	seen := make(map[polygon.Point]*primitives.Hole, len(op.Holes))
	for _, h := range op.Holes {
		if !h.Slot {
			key := polygon.Point{X: math.Round(h.At.X/drillTolerance) * drillTolerance, Y: math.Round(h.At.Y/drillTolerance) * drillTolerance}
			if prev, ok := seen[key]; ok && prev.Diameter >= h.Diameter-drillTolerance {
				op.warn("hole %s is drilled twice, the second one is skipped", h.At)
				continue
			}
			seen[key] = h
		}
		var tp toolpath.Toolpath
		var err error
		switch {
		case h.Slot:
			tp, err = toolpath.SlotPath(h.At, h.End, p)
			tp.Name = fmt.Sprintf("%s slot %s", op.ID, h.At)
		case h.Diameter > p.ToolDiameter+drillTolerance:
			tp, err = toolpath.HoleMillPath(h.At, h.Diameter, p)
			tp.Name = fmt.Sprintf("%s milled hole %s", op.ID, h.At)
		default:
			if h.Diameter < p.ToolDiameter-drillTolerance {
				op.warn("hole %s of %.3fmm is drilled with a %.3fmm tool", h.At, h.Diameter, p.ToolDiameter)
			}
			points = append(points, h.At)
			continue
		}
		if err != nil {
			op.warn("hole %s skipped: %v", h.At, err)
			continue
		}
		milled = append(milled, tp)
	}
	if len(points) > 0 {
		tp, err := toolpath.DrillPath(toolpath.OrderPoints(points, g.Origin), p)
		if err != nil {
			return err
		}
		tp.Name = fmt.Sprintf("%s drill", op.ID)
		op.Toolpaths = append(op.Toolpaths, tp)
	}
	from := vec2(g.Origin)
	if len(op.Toolpaths) > 0 {
		from = op.Toolpaths[0].End()
	}
	op.Toolpaths = append(op.Toolpaths, toolpath.Order(milled, from)...)
	return nil
}

func vec2(p polygon.Point) mgl64.Vec2 {
	return mgl64.Vec2{p.X, p.Y}
}
