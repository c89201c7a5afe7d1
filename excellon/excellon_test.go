package excellon

import (
	"flag"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/VasiliyTurchenko/gerber2gcode/gerberbasetypes"
	"github.com/VasiliyTurchenko/gerber2gcode/polygon"
)

func TestMain(m *testing.M) {
	_ = flag.Set("logtostderr", "true")
	flag.Parse()
	os.Exit(m.Run())
}

func TestParse_NoTools(t *testing.T) {
	res := Parse([]byte("X100Y200\nM30\n"), DefaultOptions())
	require.Len(t, res.Holes, 1)
	require.Len(t, res.Errors, 1)
	tool := res.Tools[DefaultToolCode]
	require.NotNil(t, tool)
	assert.True(t, tool.Synthetic)
	assert.Equal(t, DefaultToolDiameter, tool.Diameter)
	assert.Equal(t, DefaultToolCode, res.Holes[0].Tool)
}

func TestParse_Metric(t *testing.T) {
	src := `M48
; DRILL file
METRIC,TZ
T1C0.800
T02C1.000
%
G90
G05
T01
X1000Y2000
X1500
T2
X-12.5Y3.25
T0
M30
`
	res := Parse([]byte(src), DefaultOptions())
	require.Empty(t, res.Errors)
	require.Len(t, res.Holes, 3)
	assert.Equal(t, []string{"T01", "T02"}, res.ToolCodes())
	assert.Equal(t, polygon.Point{X: 1, Y: 2}, res.Holes[0].At)
	// modal Y
	assert.Equal(t, polygon.Point{X: 1.5, Y: 2}, res.Holes[1].At)
	assert.Equal(t, polygon.Point{X: -12.5, Y: 3.25}, res.Holes[2].At)
	assert.Equal(t, 1.0, res.Holes[2].Diameter)
	assert.Len(t, res.HolesOf("T01"), 2)
	assert.Equal(t, UnitsMM, res.Units)
}

func TestParse_InchLeadingZeros(t *testing.T) {
	src := "M48\nINCH,LZ\nT001C0.0394\n%\nT01\nX01Y02\nM30\n"
	res := Parse([]byte(src), DefaultOptions())
	require.Empty(t, res.Errors)
	require.Len(t, res.Holes, 1)
	// LZ pads on the right: 01 -> 01.0000 inch
	assert.InDelta(t, 25.4, res.Holes[0].At.X, 1e-9)
	assert.InDelta(t, 50.8, res.Holes[0].At.Y, 1e-9)
	assert.InDelta(t, 1.00076, res.Tools["T01"].Diameter, 1e-9)
}

func TestParse_Template(t *testing.T) {
	src := "M48\nMETRIC,LZ,000.00\nT3C1.2\n%\nT3\nX01234Y005\nM30\n"
	res := Parse([]byte(src), DefaultOptions())
	require.Empty(t, res.Errors)
	require.Len(t, res.Holes, 1)
	assert.InDelta(t, 12.34, res.Holes[0].At.X, 1e-9)
	assert.InDelta(t, 5, res.Holes[0].At.Y, 1e-9)
}

func TestParse_UndefinedTool(t *testing.T) {
	res := Parse([]byte("M48\nMETRIC\n%\nT5\nX1.0Y1.0\nM30\n"), DefaultOptions())
	require.Len(t, res.Errors, 1)
	require.Len(t, res.Holes, 1)
	assert.Equal(t, "T05", res.Holes[0].Tool)
	assert.True(t, res.Tools["T05"].Synthetic)
}

func TestParse_Slot(t *testing.T) {
	res := Parse([]byte("M48\nMETRIC\nT1C2.0\n%\nT1\nX1.0Y1.0G85X5.0Y1.0\nM30\n"), DefaultOptions())
	require.Len(t, res.Holes, 1)
	h := res.Holes[0]
	assert.True(t, h.Slot)
	assert.Equal(t, polygon.Point{X: 5, Y: 1}, h.End)
	assert.Equal(t, 1, res.Stats.Slots)
}

func TestParse_StopsAtEnd(t *testing.T) {
	res := Parse([]byte("M48\nM72\nT1C0.04\n%\nT1\nX1.0Y1.0\nM30\nX2.0Y2.0\n"), DefaultOptions())
	require.Len(t, res.Holes, 1)
	assert.True(t, math.Abs(res.Holes[0].At.X-25.4) < 1e-9)
}

func TestCanonicalToolCode(t *testing.T) {
	for _, c := range []struct {
		n    int
		want string
	}{{1, "T01"}, {12, "T12"}, {123, "T123"}} {
		assert.Equal(t, c.want, CanonicalToolCode(c.n))
	}
}
