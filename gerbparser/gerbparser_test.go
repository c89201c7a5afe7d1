package gerbparser

import (
	"flag"
	"math"
	"os"
	"testing"

	. "github.com/VasiliyTurchenko/gerber2gcode/gerberbasetypes"
	"github.com/VasiliyTurchenko/gerber2gcode/polygon"
	"github.com/VasiliyTurchenko/gerber2gcode/primitives"
)

func TestMain(m *testing.M) {
	_ = flag.Set("logtostderr", "true")
	_ = flag.Set("v", "0")
	flag.Parse()
	os.Exit(m.Run())
}

const header = "G04 test*\n%FSLAX26Y26*%\n%MOMM*%\n%ADD10C,0.5*%\n%ADD11R,1X2*%\n"

type counter struct {
	flashes, traces, arcs, regions int
	last                           primitives.Primitive
}

func (c *counter) VisitFlash(f *primitives.Flash) error {
	c.flashes++
	c.last = f
	return nil
}

func (c *counter) VisitTrace(t *primitives.Trace) error {
	if t.IsArc() {
		c.arcs++
	} else {
		c.traces++
	}
	c.last = t
	return nil
}

func (c *counter) VisitRegion(r *primitives.Region) error {
	c.regions++
	c.last = r
	return nil
}

func (c *counter) VisitHole(h *primitives.Hole) error {
	return nil
}

func count(t *testing.T, res *Result) *counter {
	c := new(counter)
	if err := primitives.Walk(res.Primitives, c); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestParse_FlashAndDraw(t *testing.T) {
	src := header +
		"D10*\nX0Y0D02*\nX10000000Y0D01*\nY5000000*\nD11*\nX1000000Y1000000D03*\nM02*\n"
	res := Parse([]byte(src), DefaultOptions())
	if len(res.Errors) != 0 {
		t.Fatal(res.Errors)
	}
	c := count(t, res)
	if c.traces != 2 || c.flashes != 1 {
		t.Fatalf("2 traces and 1 flash expected, got %+v", *c)
	}
	f := c.last.(*primitives.Flash)
	if f.At != (polygon.Point{X: 1, Y: 1}) || f.Aperture.Code != 11 {
		t.Fatal("bad flash " + f.String())
	}
	if res.Units != UnitsMM || res.Stats.Apertures != 2 {
		t.Fatal("bad result " + res.Stats.String())
	}
}

func TestParse_InchUnits(t *testing.T) {
	src := "%FSLAX24Y24*%\n%MOIN*%\n%ADD10C,0.01*%\nD10*\nX10000Y0D03*\nM02*\n"
	res := Parse([]byte(src), DefaultOptions())
	c := count(t, res)
	f := c.last.(*primitives.Flash)
	if math.Abs(f.At.X-25.4) > 1e-9 || math.Abs(f.Aperture.Diameter-0.254) > 1e-9 {
		t.Fatal("inches must be converted to mm: " + f.String())
	}
}

func TestParse_Region(t *testing.T) {
	src := header +
		"G36*\nX0Y0D02*\nG01X10000000Y0D01*\nX10000000Y10000000D01*\nX0Y10000000D01*\nX0Y0D01*\nG37*\nM02*\n"
	res := Parse([]byte(src), DefaultOptions())
	if len(res.Errors) != 0 {
		t.Fatal(res.Errors)
	}
	c := count(t, res)
	if c.regions != 1 || c.traces != 0 {
		t.Fatalf("one region without traces expected, got %+v", *c)
	}
	r := c.last.(*primitives.Region)
	if r.Contour.Len() != 5 || math.Abs(r.Contour.Area()-100) > 1e-9 {
		t.Fatalf("bad region contour %v", r.Contour)
	}
}

func TestParse_UnclosedRegion(t *testing.T) {
	src := header + "G36*\nX0Y0D02*\nX1000000Y0D01*\nX1000000Y1000000D01*\nM02*\n"
	res := Parse([]byte(src), DefaultOptions())
	if len(res.Errors) != 1 || len(res.Primitives) != 0 {
		t.Fatal("an unterminated region must be reported and dropped")
	}
}

func TestParse_RegionMisuse(t *testing.T) {
	src := header + "D10*\nG36*\nG36*\nX0Y0D02*\nX1000000Y0D01*\nX1000000Y1000000D01*\nX5Y5D03*\nX0Y0D01*\nG37*\nM02*\n"
	res := Parse([]byte(src), DefaultOptions())
	if len(res.Errors) != 2 {
		t.Fatalf("nested G36 and the flash inside a region must be reported: %v", res.Errors)
	}
	if res.Stats.Regions != 1 || res.Stats.Flashes != 0 {
		t.Fatal("the region must survive the misuse " + res.Stats.String())
	}
}

func TestParse_DegenerateDraw(t *testing.T) {
	src := header + "D10*\nX0Y0D02*\nX0Y0D01*\nX100Y0D01*\nM02*\n"
	res := Parse([]byte(src), DefaultOptions())
	if len(res.Primitives) != 0 || res.Stats.Degenerate != 2 {
		t.Fatal("zero length draws must be dropped " + res.Stats.String())
	}
}

func TestParse_UnknownAperture(t *testing.T) {
	src := header + "D99*\nX0Y0D03*\nD10*\nX0Y0D03*\nM02*\n"
	res := Parse([]byte(src), DefaultOptions())
	if len(res.Errors) != 2 {
		t.Fatalf("undefined aperture and the flash with it must be reported: %v", res.Errors)
	}
	if c := count(t, res); c.flashes != 1 {
		t.Fatal("the flash after a good selection must survive")
	}
}

func TestParse_DuplicateAperture(t *testing.T) {
	src := header + "%ADD10C,2*%\nD10*\nX0Y0D03*\nM02*\n"
	res := Parse([]byte(src), DefaultOptions())
	if len(res.Errors) != 1 {
		t.Fatal("duplicate aperture must be reported")
	}
	f := count(t, res).last.(*primitives.Flash)
	if f.Aperture.Diameter != 0.5 {
		t.Fatal("the first definition must win")
	}
}

func TestParse_Arcs(t *testing.T) {
	// full circle in multi quadrant mode
	src := header + "D10*\nG75*\nX1000000Y0D02*\nG03X1000000Y0I-1000000J0D01*\nM02*\n"
	res := Parse([]byte(src), DefaultOptions())
	c := count(t, res)
	if c.arcs != 1 {
		t.Fatal("full circle must be kept")
	}
	tr := c.last.(*primitives.Trace)
	if !tr.FullCircle || math.Abs(tr.Length()-2*math.Pi) > 1e-6 {
		t.Fatal("bad full circle " + tr.String())
	}

	// quarter in single quadrant mode, unsigned offsets
	src = header + "D10*\nG74*\nX1000000Y0D02*\nG03X0Y1000000I1000000J0D01*\nM02*\n"
	res = Parse([]byte(src), DefaultOptions())
	c = count(t, res)
	if c.arcs != 1 {
		t.Fatal("single quadrant arc expected")
	}
	tr = c.last.(*primitives.Trace)
	if tr.Centre.Dist(polygon.Point{}) > 1e-9 || math.Abs(tr.Sweep()-math.Pi/2) > 1e-9 {
		t.Fatal("bad single quadrant arc " + tr.String())
	}
}

func TestParse_StepRepeat(t *testing.T) {
	src := header + "%SRX2Y2I5J5*%\nD10*\nX0Y0D03*\n%SR*%\nX20000000Y0D03*\nM02*\n"
	res := Parse([]byte(src), DefaultOptions())
	c := count(t, res)
	if c.flashes != 5 {
		t.Fatalf("4 copies plus one flash expected, got %d", c.flashes)
	}
}

func TestParse_Polarity(t *testing.T) {
	src := header + "D10*\n%LPC*%\nX0Y0D03*\n%LPD*%\nX0Y0D03*\nM02*\n"
	res := Parse([]byte(src), DefaultOptions())
	if len(res.Primitives) != 2 ||
		res.Primitives[0].Polarity() != PolTypeClear ||
		res.Primitives[1].Polarity() != PolTypeDark {
		t.Fatal("polarity is not applied")
	}
}

func TestParse_Macro(t *testing.T) {
	src := "%FSLAX26Y26*%\n%MOMM*%\n%AMBOX*0 square*21,1,$1,$1,0,0,0*%\n%ADD12BOX,2*%\nD12*\nX0Y0D03*\nM02*\n"
	res := Parse([]byte(src), DefaultOptions())
	if len(res.Errors) != 0 || res.Stats.Macros != 1 {
		t.Fatal(res.Errors)
	}
	f := count(t, res).last.(*primitives.Flash)
	parts, err := f.Aperture.Outline(f.At, 0.01)
	if err != nil {
		t.Fatal(err)
	}
	if len(parts) != 1 || math.Abs(parts[0].Contour.Area()-4) > 1e-9 {
		t.Fatal("bad macro outline")
	}
}

func TestParse_MissingUnits(t *testing.T) {
	res := Parse([]byte("%FSLAX26Y26*%\nM02*\n"), DefaultOptions())
	if res.Units != UnitsMM || len(res.Errors) != 1 {
		t.Fatal("missing units must be reported, mm assumed")
	}
}

func TestParse_ApertureBlock(t *testing.T) {
	src := header +
		"%ABD20*%\nD10*\nX0Y0D03*\nX1000000Y0D03*\n%AB*%\n" +
		"D20*\nX5000000Y5000000D03*\n%LPC*%\nX10000000Y0D03*\nM02*\n"
	res := Parse([]byte(src), DefaultOptions())
	if len(res.Errors) != 0 || res.Stats.ABlocks != 1 {
		t.Fatal(res.Errors)
	}
	want := []struct {
		at  polygon.Point
		pol PolType
	}{
		{polygon.Point{X: 5, Y: 5}, PolTypeDark},
		{polygon.Point{X: 6, Y: 5}, PolTypeDark},
		{polygon.Point{X: 10, Y: 0}, PolTypeClear},
		{polygon.Point{X: 11, Y: 0}, PolTypeClear},
	}
	if len(res.Primitives) != len(want) {
		t.Fatalf("%d primitives expected, got %d", len(want), len(res.Primitives))
	}
	for i, w := range want {
		f := res.Primitives[i].(*primitives.Flash)
		if math.Abs(f.At.X-w.at.X) > 1e-9 || math.Abs(f.At.Y-w.at.Y) > 1e-9 || f.Polarity() != w.pol {
			t.Errorf("flash %d: got %v %v, want %v %v", i, f.At, f.Polarity(), w.at, w.pol)
		}
		if f.Aperture.Code != 10 {
			t.Errorf("flash %d: aperture D%d", i, f.Aperture.Code)
		}
	}
}

func TestParse_ApertureBlockErrors(t *testing.T) {
	var tests = []struct {
		name string
		body string
	}{
		{"code taken", "%ABD10*%\nD11*\nX0Y0D03*\n%AB*%\n"},
		{"not closed", "%ABD21*%\nD11*\nX0Y0D03*\n"},
		{"no beginning", "%AB*%\n"},
		{"bad code", "%ABD2*%\n%AB*%\n"},
	}
	for _, tt := range tests {
		res := Parse([]byte(header+tt.body+"M02*\n"), DefaultOptions())
		if len(res.Errors) == 0 {
			t.Errorf("%s: error expected", tt.name)
		}
		if len(res.Primitives) != 0 {
			t.Errorf("%s: no primitives expected, got %d", tt.name, len(res.Primitives))
		}
	}
}
