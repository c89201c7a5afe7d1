package clipengine

import (
	"errors"
	"flag"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VasiliyTurchenko/gerber2gcode/polygon"
)

func TestMain(m *testing.M) {
	_ = flag.Set("logtostderr", "true")
	flag.Parse()
	os.Exit(m.Run())
}

func square(x, y, size float64, hole bool) polygon.Contour {
	c := polygon.Rect(polygon.Point{X: x, Y: y}, polygon.Point{X: x + size, Y: y + size})
	c.Hole = hole
	c.Normalize()
	return c
}

func newEngine(t *testing.T, backend string) *Engine {
	cfg := DefaultConfig()
	cfg.Backend = backend
	e, err := New(cfg)
	require.NoError(t, err)
	return e
}

func TestDefaultFill(t *testing.T) {
	assert.Equal(t, EvenOdd, DefaultFill(OpXor))
	for _, op := range []Op{OpUnion, OpIntersect, OpDifference} {
		assert.Equal(t, NonZero, DefaultFill(op), op.String())
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(Config{Backend: "gpc"})
	assert.Error(t, err)
}

func TestBoolean(t *testing.T) {
	a := polygon.ContourSet{square(0, 0, 10, false)}
	b := polygon.ContourSet{square(5, 5, 10, false)}
	cases := []struct {
		name string
		op   Op
		area float64
	}{
		{"union", OpUnion, 175},
		{"intersect", OpIntersect, 25},
		{"difference", OpDifference, 75},
		{"xor", OpXor, 150},
	}
	for _, backend := range []string{BackendClipper, BackendPolyclip} {
		e := newEngine(t, backend)
		for _, c := range cases {
			res, err := e.boolean(c.op, a, b, DefaultFill(c.op))
			require.NoError(t, err, backend+" "+c.name)
			assert.InDelta(t, c.area, res.Area(), 1e-6, backend+" "+c.name)
		}
		assert.Equal(t, LeaseStats{Acquired: len(cases), Released: len(cases)}, e.Leases())
	}
}

func TestBoolean_PublicOps(t *testing.T) {
	e := newEngine(t, BackendClipper)
	a := polygon.ContourSet{square(0, 0, 10, false)}
	b := polygon.ContourSet{square(2, 2, 2, false)}
	u, err := e.Union(a, b, NonZero)
	require.NoError(t, err)
	assert.InDelta(t, 100, u.Area(), 1e-6)
	i, err := e.Intersect(a, b, NonZero)
	require.NoError(t, err)
	assert.InDelta(t, 4, i.Area(), 1e-6)
	d, err := e.Difference(a, b, NonZero)
	require.NoError(t, err)
	assert.InDelta(t, 96, d.Area(), 1e-6)
	x, err := e.Xor(a, b, EvenOdd)
	require.NoError(t, err)
	assert.InDelta(t, 96, x.Area(), 1e-6)
}

func TestScaling_RoundTrip(t *testing.T) {
	e := newEngine(t, BackendClipper)
	c := polygon.Contour{Points: []polygon.Point{{X: 0.0004, Y: 0}, {X: 1.2346, Y: 0.0001}, {X: 0.5, Y: 3.3333}}}
	back := e.fromPath(e.toPath(c))
	for i := range c.Points {
		assert.LessOrEqual(t, math.Abs(back.Points[i].X-c.Points[i].X), 0.5/e.Config().Scale)
		assert.LessOrEqual(t, math.Abs(back.Points[i].Y-c.Points[i].Y), 0.5/e.Config().Scale)
	}
}

func TestOffset_RoundTrip(t *testing.T) {
	e := newEngine(t, BackendClipper)
	src := polygon.ContourSet{square(0, 0, 10, false)}
	grown, err := e.Offset(src, 1, JoinRound, EndClosedPolygon, 0)
	require.NoError(t, err)
	require.Len(t, grown, 1)
	// square plus four sides plus a full circle of radius 1
	assert.InDelta(t, 100+40+math.Pi, grown.Area(), 0.05)
	back, err := e.Offset(grown, -1, JoinRound, EndClosedPolygon, 0)
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.InDelta(t, 100, back.Area(), 0.1)
}

func TestOffset_OpenPath(t *testing.T) {
	e := newEngine(t, BackendClipper)
	line := polygon.Contour{Points: []polygon.Point{{X: 0, Y: 0}, {X: 10, Y: 0}}, Open: true}
	res, err := e.Offset(polygon.ContourSet{line}, 0.5, JoinRound, EndOpenRound, 0)
	require.NoError(t, err)
	assert.InDelta(t, 10+math.Pi*0.25, res.Area(), 0.05)
}

func TestOffset_Polyclip(t *testing.T) {
	e := newEngine(t, BackendPolyclip)
	_, err := e.Offset(polygon.ContourSet{square(0, 0, 1, false)}, 1, JoinRound, EndClosedPolygon, 0)
	assert.True(t, errors.Is(err, ErrUnsupported))
	assert.Equal(t, LeaseStats{1, 1}, e.Leases())
}

func islandSet() polygon.ContourSet {
	return polygon.ContourSet{
		square(0, 0, 30, false),
		square(2, 2, 10, true),
		square(18, 2, 10, true),
		square(4, 4, 4, false),
	}
}

func TestUnionTree_Islands(t *testing.T) {
	for _, backend := range []string{BackendClipper, BackendPolyclip} {
		e := newEngine(t, backend)
		tree, err := e.UnionTree(islandSet(), nil, NonZero)
		require.NoError(t, err, backend)
		polys := tree.Polygons()
		require.Len(t, polys, 1, backend)
		require.Len(t, polys[0].Holes, 2, backend)
		islands := 0
		for _, h := range polys[0].Holes {
			islands += len(h.Islands)
			assert.False(t, h.Contour.IsCCW(), "holes are clockwise")
		}
		assert.Equal(t, 1, islands, backend)
		assert.Len(t, polys[0].Islands, 1, backend)
		odd := 0
		tree.Walk(func(n *polygon.Node) bool {
			if n.Level%2 == 1 {
				odd++
			}
			return true
		})
		assert.Equal(t, odd, tree.HoleCount(), backend)
		assert.Equal(t, 2, odd, backend)
	}
}

func TestOffsetTree(t *testing.T) {
	e := newEngine(t, BackendClipper)
	tree, err := e.OffsetTree(islandSet(), -0.5, JoinMiter, EndClosedPolygon, 0)
	require.NoError(t, err)
	// holes grow, solids shrink, the nesting stays the same
	assert.Equal(t, 4, tree.NodeCount())
	assert.Equal(t, 2, tree.HoleCount())
}

type failingSession struct {
	panics   bool
	released *int
}

func (s failingSession) Boolean(op Op, subject, clip Paths, fill FillRule) (Paths, error) {
	if s.panics {
		panic("corrupted edge list")
	}
	return nil, ErrKernel
}

func (s failingSession) BooleanTree(op Op, subject, clip Paths, fill FillRule) ([]*KernelNode, error) {
	return nil, ErrKernel
}

func (s failingSession) Offset(paths Paths, delta float64, jt JoinType, et EndType, miterLimit, arcTolerance float64) (Paths, error) {
	return s.Boolean(OpUnion, paths, nil, NonZero)
}

func (s failingSession) Release() {
	*s.released++
}

type failingKernel struct {
	panics   bool
	released int
}

func (k *failingKernel) Name() string {
	return "failing"
}

func (k *failingKernel) Acquire() Session {
	return failingSession{panics: k.panics, released: &k.released}
}

func TestLease_Failures(t *testing.T) {
	for _, panics := range []bool{false, true} {
		k := &failingKernel{panics: panics}
		e := NewWithKernel(DefaultConfig(), k)
		a := polygon.ContourSet{square(0, 0, 1, false)}
		res, err := e.Union(a, nil, NonZero)
		assert.Nil(t, res)
		assert.True(t, errors.Is(err, ErrKernel))
		_, err = e.OffsetTree(a, 1, JoinRound, EndClosedPolygon, 0)
		assert.True(t, errors.Is(err, ErrKernel))
		_, err = e.DifferenceTree(a, a, NonZero)
		assert.True(t, errors.Is(err, ErrKernel))
		assert.Equal(t, LeaseStats{Acquired: 3, Released: 3}, e.Leases())
		assert.Equal(t, 3, k.released)
	}
}
