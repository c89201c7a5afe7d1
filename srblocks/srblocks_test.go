package srblocks

import (
	"math"
	"testing"

	"github.com/VasiliyTurchenko/gerber2gcode/apertures"
	. "github.com/VasiliyTurchenko/gerber2gcode/gerberbasetypes"
	"github.com/VasiliyTurchenko/gerber2gcode/polygon"
	"github.com/VasiliyTurchenko/gerber2gcode/primitives"
)

func TestExtractLetterDelimitedFloats(t *testing.T) {
	res, err := ExtractLetterDelimitedFloats("Y2X3J4.5I-1", "XYIJ")
	if err != nil {
		t.Fatal(err)
	}
	if res['X'] != 3 || res['Y'] != 2 || res['I'] != -1 || res['J'] != 4.5 {
		t.Fatal("bad values")
	}
	if _, err = ExtractLetterDelimitedFloats("X3Q1", "XYIJ"); err == nil {
		t.Fatal("unexpected letter must fail")
	}
	if _, err = ExtractLetterDelimitedFloats("X", "XYIJ"); err == nil {
		t.Fatal("empty value must fail")
	}
}

func TestSRBlock_Init(t *testing.T) {
	sr := new(SRBlock)
	if err := sr.Init("%SRX3Y2I0.1J0.2*%", UnitsInch); err != nil {
		t.Fatal(err)
	}
	if sr.NumX() != 3 || sr.NumY() != 2 || math.Abs(sr.DX()-2.54) > 1e-9 || math.Abs(sr.DY()-5.08) > 1e-9 {
		t.Fatal("bad block " + sr.String())
	}
	if err := sr.Init("%SRX0Y2I1J1*%", UnitsMM); err == nil {
		t.Fatal("zero repeats must fail")
	}
	if !IsClosing("%SR*%") || IsClosing("%SRX1Y1I0J0*%") {
		t.Fatal("IsClosing error")
	}
}

func TestSRBlock_Expand(t *testing.T) {
	sr := new(SRBlock)
	if err := sr.Init("%SRX2Y3I10J20*%", UnitsMM); err != nil {
		t.Fatal(err)
	}
	ap := &apertures.Aperture{Code: 10, Type: AptypeCircle, Diameter: 1}
	sr.Add(primitives.NewFlash(polygon.Point{X: 1, Y: 1}, ap, PolTypeDark, 1))
	sr.Add(primitives.NewFlash(polygon.Point{X: 2, Y: 2}, ap, PolTypeClear, 2))
	out := sr.Expand()
	if len(out) != 12 {
		t.Fatal("2x3 copies of 2 primitives expected")
	}
	last := out[len(out)-1].(*primitives.Flash)
	if last.At != (polygon.Point{X: 12, Y: 42}) || last.Polarity() != PolTypeClear {
		t.Fatal("bad last copy " + last.String())
	}
}
