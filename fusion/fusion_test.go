package fusion

import (
	"flag"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VasiliyTurchenko/gerber2gcode/apertures"
	"github.com/VasiliyTurchenko/gerber2gcode/clipengine"
	. "github.com/VasiliyTurchenko/gerber2gcode/gerberbasetypes"
	"github.com/VasiliyTurchenko/gerber2gcode/polygon"
	"github.com/VasiliyTurchenko/gerber2gcode/primitives"
)

func TestMain(m *testing.M) {
	_ = flag.Set("logtostderr", "true")
	flag.Parse()
	os.Exit(m.Run())
}

func newFuser(t *testing.T, cfg Config) *Fuser {
	e, err := clipengine.New(clipengine.DefaultConfig())
	require.NoError(t, err)
	return New(e, cfg)
}

var (
	round = &apertures.Aperture{Code: 10, Type: AptypeCircle, Diameter: 1}
	rect  = &apertures.Aperture{Code: 11, Type: AptypeRectangle, XSize: 10, YSize: 10}
	small = &apertures.Aperture{Code: 12, Type: AptypeRectangle, XSize: 2, YSize: 2}
)

func pt(x, y float64) polygon.Point {
	return polygon.Point{X: x, Y: y}
}

func area(tree *polygon.Tree) float64 {
	var a float64
	for _, p := range tree.Polygons() {
		a += p.Area()
	}
	return a
}

func TestFuse_OverlappingFlashes(t *testing.T) {
	f := newFuser(t, DefaultConfig())
	tree, err := f.Fuse([]primitives.Primitive{
		primitives.NewFlash(pt(0, 0), small, PolTypeDark, 1),
		primitives.NewFlash(pt(1, 0), small, PolTypeDark, 2),
	})
	require.NoError(t, err)
	require.Len(t, tree.Roots, 1)
	assert.InDelta(t, 6, area(tree), 1e-6)
	assert.Equal(t, 1, f.Stats.DarkBatches)
}

func TestFuse_ClearPolarity(t *testing.T) {
	f := newFuser(t, DefaultConfig())
	tree, err := f.Fuse([]primitives.Primitive{
		primitives.NewFlash(pt(0, 0), rect, PolTypeDark, 1),
		primitives.NewFlash(pt(0, 0), small, PolTypeClear, 2),
		primitives.NewFlash(pt(20, 0), small, PolTypeDark, 3),
	})
	require.NoError(t, err)
	polys := tree.Polygons()
	require.Len(t, polys, 2)
	assert.Equal(t, 1, tree.HoleCount())
	assert.InDelta(t, 100, area(tree), 1e-6)
	assert.Equal(t, 2, f.Stats.DarkBatches)
	assert.Equal(t, 1, f.Stats.ClearBatches)
}

func TestFuse_Trace(t *testing.T) {
	f := newFuser(t, DefaultConfig())
	tree, err := f.Fuse([]primitives.Primitive{
		primitives.NewTrace(pt(0, 0), pt(10, 0), round, PolTypeDark, 1),
		primitives.NewTrace(pt(0, 5), pt(10, 5), small, PolTypeDark, 2),
	})
	require.NoError(t, err)
	require.Len(t, tree.Roots, 2)
	assert.InDelta(t, 10+math.Pi/4+24, area(tree), 0.05)
}

func glyph() []primitives.Primitive {
	outer := polygon.Rect(pt(0, 0), pt(1, 1))
	inner := polygon.Rect(pt(0.25, 0.25), pt(0.75, 0.75))
	return []primitives.Primitive{
		primitives.NewRegion(outer, 1, PolTypeDark, 1),
		primitives.NewRegion(inner, 1, PolTypeDark, 1),
	}
}

func TestFuse_TextHeuristic(t *testing.T) {
	f := newFuser(t, DefaultConfig())
	tree, err := f.Fuse(glyph())
	require.NoError(t, err)
	assert.Equal(t, 1, tree.HoleCount())
	assert.InDelta(t, 0.75, area(tree), 1e-6)
	assert.Equal(t, 1, f.Stats.EvenOddGroups)

	cfg := DefaultConfig()
	cfg.TextHeuristic = false
	f = newFuser(t, cfg)
	tree, err = f.Fuse(glyph())
	require.NoError(t, err)
	assert.Equal(t, 0, tree.HoleCount())
	assert.InDelta(t, 1, area(tree), 1e-6)
}

func TestFuse_Holes(t *testing.T) {
	f := newFuser(t, DefaultConfig())
	slot := primitives.NewHole(pt(0, 10), 2, "T01", 1)
	slot.Slot, slot.End = true, pt(10, 10)
	tree, err := f.Fuse([]primitives.Primitive{
		primitives.NewHole(pt(0, 0), 2, "T01", 1),
		slot,
	})
	require.NoError(t, err)
	assert.Len(t, tree.Roots, 2)
	assert.InDelta(t, 2*math.Pi+20, area(tree), 0.1)
}
