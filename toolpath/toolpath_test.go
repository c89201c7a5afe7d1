package toolpath

import (
	"flag"
	"math"
	"os"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VasiliyTurchenko/gerber2gcode/polygon"
)

func TestMain(m *testing.M) {
	_ = flag.Set("logtostderr", "true")
	_ = flag.Set("stderrthreshold", "ERROR")
	flag.Parse()
	os.Exit(m.Run())
}

func pt(x, y float64) polygon.Point {
	return polygon.Point{X: x, Y: y}
}

func square(side float64) polygon.Contour {
	return polygon.Rect(pt(0, 0), pt(side, side))
}

func kinds(tp Toolpath, kind MoveKind) []Move {
	retVal := make([]Move, 0)
	for _, m := range tp.Moves {
		if m.Kind == kind {
			retVal = append(retVal, m)
		}
	}
	return retVal
}

func TestDepthLevels(t *testing.T) {
	var tests = []struct {
		name  string
		final float64
		multi bool
		step  float64
		want  []float64
	}{
		{"clamped", -2.0, true, 0.6, []float64{-0.6, -1.2, -1.8, -2.0}},
		{"exact", -1.0, true, 0.5, []float64{-0.5, -1.0}},
		{"single", -2.0, false, 0.6, []float64{-2.0}},
		{"step too deep", -0.3, true, 0.5, []float64{-0.3}},
		{"no step", -0.3, true, 0, []float64{-0.3}},
		{"above surface", 0.5, true, 0.1, nil},
	}
	for _, tt := range tests {
		got := DepthLevels(tt.final, tt.multi, tt.step)
		if diff := cmp.Diff(tt.want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
			t.Errorf("%s: DepthLevels() mismatch (-want +got):\n%s", tt.name, diff)
		}
	}
}

func TestContourPath_Plunge(t *testing.T) {
	p := DefaultParams()
	tp, err := ContourPath(square(10), p, false)
	require.NoError(t, err)
	require.Len(t, tp.Moves, 7)
	assert.Equal(t, MoveRapid, tp.Moves[0].Kind)
	assert.InDelta(t, p.TravelZ, tp.Moves[0].To.Z(), 1e-9)
	assert.Equal(t, MovePlunge, tp.Moves[1].Kind)
	assert.Equal(t, MoveRetract, tp.Moves[len(tp.Moves)-1].Kind)
	assert.InDelta(t, p.CutDepth, tp.MinZ(), 1e-9)
	assert.InDelta(t, 40+p.TravelZ-p.CutDepth, tp.CutLength(), 1e-9)
	assert.Equal(t, tp.Start(), tp.End())
}

func TestContourPath_Direction(t *testing.T) {
	var tests = []struct {
		dir  Direction
		hole bool
		ccw  bool
	}{
		{Climb, false, false},
		{Climb, true, true},
		{Conventional, false, true},
		{Conventional, true, false},
	}
	for _, tt := range tests {
		p := DefaultParams()
		p.Direction = tt.dir
		c := square(10)
		c.Hole = tt.hole
		tp, err := ContourPath(c, p, false)
		require.NoError(t, err)
		pts := make([]polygon.Point, 0)
		for _, m := range kinds(tp, MoveCut) {
			pts = append(pts, pt(m.To.X(), m.To.Y()))
		}
		assert.Equal(t, tt.ccw, polygon.SignedArea(pts) > 0, "%s hole=%v", tt.dir, tt.hole)
	}
}

func TestContourPath_Errors(t *testing.T) {
	_, err := ContourPath(polygon.Contour{Points: []polygon.Point{pt(0, 0), pt(1, 1)}}, DefaultParams(), false)
	assert.Error(t, err)

	p := DefaultParams()
	p.CutDepth = 0
	_, err = ContourPath(square(10), p, false)
	assert.Error(t, err)
}

func TestContourPath_Ramp(t *testing.T) {
	var tests = []struct {
		depth    float64
		segments int
	}{
		{-0.1, 3},
		{-1.0, 6},
	}
	for _, tt := range tests {
		p := DefaultParams()
		p.Entry = EntryRamp
		p.CutDepth = tt.depth
		tp, err := ContourPath(square(10), p, false)
		require.NoError(t, err)

		run := -tt.depth / math.Tan(mgl64.DegToRad(p.RampAngle))
		prev := tp.Moves[1].To
		assert.InDelta(t, 0, prev.Z(), 1e-9)
		var travel float64
		ramp := 0
		for _, m := range tp.Moves[2:] {
			if m.Kind != MoveCut || m.To.Z() <= tt.depth+1e-9 && ramp > 0 && prev.Z() <= tt.depth+1e-9 {
				break
			}
			step := m.To.Vec2().Sub(prev.Vec2()).Len()
			assert.LessOrEqual(t, step, 1+1e-9)
			assert.Less(t, m.To.Z(), prev.Z())
			travel += step
			ramp++
			prev = m.To
		}
		assert.GreaterOrEqual(t, ramp, tt.segments)
		assert.InDelta(t, run, travel, 1e-6)
		assert.InDelta(t, tt.depth, prev.Z(), 1e-9)
	}
}

func TestContourPath_Helix(t *testing.T) {
	p := DefaultParams()
	p.Entry = EntryHelix
	tp, err := ContourPath(square(10), p, false)
	require.NoError(t, err)

	// 0.1 mm on a 0.5 mm pitch is a fifth of a turn, one quarter arc
	start := tp.Moves[0].To.Vec2()
	arcs := kinds(tp, MoveArcCCW)
	require.Len(t, arcs, 1)
	r := 0.75 * p.ToolDiameter
	assert.Equal(t, start, arcs[0].Centre)
	assert.InDelta(t, r, arcs[0].To.Vec2().Sub(arcs[0].Centre).Len(), 1e-9)
	assert.InDelta(t, p.CutDepth, arcs[0].To.Z(), 1e-9)

	var tests = []struct {
		depth    float64
		multi    bool
		pitch    float64
		quarters int
	}{
		{-1, true, 0.5, 8},
		{-1, false, 0.5, 8},
		{-1, false, 0.2, 20},
		{-0.3, false, 0.5, 3},
	}
	for _, tt := range tests {
		p.CutDepth = tt.depth
		p.MultiDepth = tt.multi
		p.DepthPerPass = 0.5
		p.HelixPitch = tt.pitch
		tp, err = ContourPath(square(10), p, false)
		require.NoError(t, err)
		arcs = kinds(tp, MoveArcCCW)
		assert.Len(t, arcs, tt.quarters, "depth %g pitch %g", tt.depth, tt.pitch)
		for _, a := range arcs {
			assert.InDelta(t, r, a.To.Vec2().Sub(a.Centre).Len(), 1e-9)
		}
		assert.InDelta(t, tt.depth, tp.MinZ(), 1e-9)
	}
}

func TestContourPath_Tabs(t *testing.T) {
	p := DefaultParams()
	p.CutDepth = -1
	p.MultiDepth = true
	p.DepthPerPass = 0.5
	p.Tabs = Tabs{Count: 4, Width: 2, Height: 0.4}
	tp, err := ContourPath(square(40), p, true)
	require.NoError(t, err)

	tabs := kinds(tp, MoveTabRapid)
	require.Len(t, tabs, 4)
	for _, m := range tabs {
		assert.InDelta(t, -0.6, m.To.Z(), 1e-9)
	}
	// one retract per tab plus the final one
	assert.Len(t, kinds(tp, MoveRetract), 5)
	assert.InDelta(t, -1, tp.MinZ(), 1e-9)

	untabbed, err := ContourPath(square(40), p, false)
	require.NoError(t, err)
	assert.Empty(t, kinds(untabbed, MoveTabRapid))

	p.Tabs.Count = 100
	tp, err = ContourPath(square(40), p, true)
	require.NoError(t, err)
	assert.Empty(t, kinds(tp, MoveTabRapid))
}

func TestDrillPath_Peck(t *testing.T) {
	p := DefaultParams()
	p.CutDepth = -1.6
	p.PeckDepth = 0.5
	p.Dwell = 0.2
	tp, err := DrillPath([]polygon.Point{pt(3, 4)}, p)
	require.NoError(t, err)

	type step struct {
		Kind MoveKind
		Z    float64
	}
	want := []step{
		{MoveRapid, 2}, {MoveRapid, 0.5}, {MovePlunge, -0.5},
		{MoveRapid, 0.5}, {MoveRapid, 0}, {MovePlunge, -1.0},
		{MoveRapid, 0.5}, {MoveRapid, -0.5}, {MovePlunge, -1.5},
		{MoveRapid, 0.5}, {MoveRapid, -1.0}, {MovePlunge, -1.6},
		{MoveDwell, -1.6}, {MoveRapid, 2},
	}
	got := make([]step, 0, len(tp.Moves))
	for _, m := range tp.Moves {
		got = append(got, step{m.Kind, m.To.Z()})
		assert.Equal(t, mgl64.Vec2{3, 4}, m.To.Vec2())
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("peck sequence mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 0.2, tp.Moves[12].Dwell, 1e-9)

	require.NotNil(t, tp.Cycle)
	assert.Equal(t, CyclePeck, tp.Cycle.Kind)
	assert.Equal(t, 0.5, tp.Cycle.Peck)
	assert.Equal(t, []mgl64.Vec2{{3, 4}}, tp.Cycle.Holes)
}

func TestDrillPath_Simple(t *testing.T) {
	p := DefaultParams()
	p.CutDepth = -1.6
	tp, err := DrillPath([]polygon.Point{pt(0, 0), pt(5, 0)}, p)
	require.NoError(t, err)
	assert.Len(t, tp.Moves, 8)
	assert.Len(t, kinds(tp, MovePlunge), 2)
	assert.Empty(t, kinds(tp, MoveDwell))
	assert.Equal(t, CycleSimple, tp.Cycle.Kind)

	p.Dwell = 0.5
	tp, err = DrillPath([]polygon.Point{pt(0, 0)}, p)
	require.NoError(t, err)
	assert.Equal(t, CycleDwell, tp.Cycle.Kind)
	assert.Len(t, kinds(tp, MoveDwell), 1)

	p.CutDepth = 0.1
	_, err = DrillPath([]polygon.Point{pt(0, 0)}, p)
	assert.Error(t, err)
}

func TestHoleMillPath(t *testing.T) {
	p := DefaultParams()
	p.ToolDiameter = 1
	p.CutDepth = -0.5
	tp, err := HoleMillPath(pt(10, 10), 2, p)
	require.NoError(t, err)
	arcs := kinds(tp, MoveArcCCW)
	require.Len(t, arcs, 8)
	for _, a := range arcs {
		assert.InDelta(t, 0.5, a.To.Vec2().Sub(mgl64.Vec2{10, 10}).Len(), 1e-9)
	}
	assert.InDelta(t, -0.5, tp.MinZ(), 1e-9)
	assert.Equal(t, MoveRetract, tp.Moves[len(tp.Moves)-1].Kind)

	_, err = HoleMillPath(pt(0, 0), 0.8, p)
	assert.Error(t, err)
}

func TestSlotPath(t *testing.T) {
	p := DefaultParams()
	tp, err := SlotPath(pt(0, 0), pt(10, 0), p)
	require.NoError(t, err)
	require.Len(t, tp.Moves, 4)
	assert.Equal(t, mgl64.Vec2{10, 0}, tp.End())
	assert.InDelta(t, 10+p.TravelZ-p.CutDepth, tp.CutLength(), 1e-9)

	p.CutDepth = -1
	p.MultiDepth = true
	p.DepthPerPass = 0.5
	tp, err = SlotPath(pt(0, 0), pt(10, 0), p)
	require.NoError(t, err)
	assert.Len(t, kinds(tp, MoveCut), 2)
	assert.Equal(t, mgl64.Vec2{0, 0}, tp.End())
}

func TestOrder(t *testing.T) {
	mk := func(name string, x float64) Toolpath {
		return Toolpath{Name: name, Moves: []Move{{Kind: MoveRapid, To: mgl64.Vec3{x, 0, 0}}}}
	}
	got := Order([]Toolpath{mk("far", 10), mk("near", 1), mk("mid", 5)}, mgl64.Vec2{})
	names := make([]string, 0)
	for _, tp := range got {
		names = append(names, tp.Name)
	}
	assert.Equal(t, []string{"near", "mid", "far"}, names)

	pts := OrderPoints([]polygon.Point{pt(10, 0), pt(0, 1), pt(4, 0)}, pt(0, 0))
	assert.Equal(t, []polygon.Point{pt(0, 1), pt(4, 0), pt(10, 0)}, pts)
	assert.Empty(t, Order(nil, mgl64.Vec2{}))
}

func TestParseEnums(t *testing.T) {
	e, ok := ParseEntry("helix")
	assert.True(t, ok)
	assert.Equal(t, EntryHelix, e)
	_, ok = ParseEntry("spiral")
	assert.False(t, ok)

	d, ok := ParseDirection("conventional")
	assert.True(t, ok)
	assert.Equal(t, Conventional, d)
	assert.Equal(t, "tab-rapid", MoveTabRapid.String())
	assert.Equal(t, "peck", CyclePeck.String())
}

// arcLength returns the arc length of pt along l, -1 when pt is off the loop
func arcLength(l *loop, p polygon.Point) float64 {
	n := len(l.pts)
	for i := 0; i < n; i++ {
		a, b := l.pts[i], l.pts[(i+1)%n]
		if math.Abs(a.Dist(p)+p.Dist(b)-a.Dist(b)) < 1e-6 {
			return l.cum[i] + a.Dist(p)
		}
	}
	return -1
}

func TestContourPath_RampTabs(t *testing.T) {
	var tests = []struct {
		name  string
		angle float64
		depth float64
		step  float64
	}{
		{"ramp through a tab", 2, -1, 0.5},
		// the second level ramp ends at the centre of a tab
		{"lap ends in a tab", mgl64.RadToDeg(math.Atan(0.4 / 30)), -1, 0.4},
	}
	for _, tt := range tests {
		p := DefaultParams()
		p.CutDepth = tt.depth
		p.MultiDepth = true
		p.DepthPerPass = tt.step
		p.Entry = EntryRamp
		p.RampAngle = tt.angle
		p.Tabs = Tabs{Count: 4, Width: 2, Height: 0.4}
		tp, err := ContourPath(square(40), p, true)
		require.NoError(t, err, tt.name)

		l := newLoop(orient(square(40), p.Direction))
		spans := tabSpans(l.perim, p)
		require.Len(t, spans, 4)
		tabTop := p.CutDepth + p.Tabs.Height
		for i, m := range tp.Moves {
			if m.Kind == MoveRapid || m.Kind == MoveRetract {
				continue
			}
			s := arcLength(l, pt(m.To.X(), m.To.Y()))
			require.GreaterOrEqual(t, s, 0.0, "%s: move %d %v is off the contour", tt.name, i, m)
			if inTab(l, s, spans) {
				assert.GreaterOrEqual(t, m.To.Z(), tabTop-1e-9, "%s: move %d %v cuts the tab", tt.name, i, m)
			}
		}
		assert.NotEmpty(t, kinds(tp, MoveTabRapid), tt.name)
		assert.InDelta(t, tt.depth, tp.MinZ(), 1e-9, tt.name)
	}
}
