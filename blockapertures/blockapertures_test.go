package blockapertures

import (
	"testing"

	. "github.com/VasiliyTurchenko/gerber2gcode/gerberbasetypes"
	"github.com/VasiliyTurchenko/gerber2gcode/polygon"
	"github.com/VasiliyTurchenko/gerber2gcode/primitives"
)

func TestInit(t *testing.T) {
	var tests = []struct {
		in   string
		code int
		ok   bool
	}{
		{"%ABD12*%", 12, true},
		{"%ABD100*%", 100, true},
		{"%ABD5*%", 0, false},
		{"%ABX12*%", 0, false},
		{"%ABDXX*%", 0, false},
	}
	for _, tt := range tests {
		ba := new(BlockAperture)
		err := ba.Init(tt.in, 3)
		if (err == nil) != tt.ok {
			t.Errorf("Init(%q) error = %v", tt.in, err)
			continue
		}
		if tt.ok && (ba.Code != tt.code || ba.StartStringNum != 3) {
			t.Errorf("Init(%q) = %+v", tt.in, *ba)
		}
	}
	if !IsClosing("%AB*%") || IsClosing("%ABD10*%") {
		t.Error("IsClosing")
	}
}

func TestFlash(t *testing.T) {
	ba := new(BlockAperture)
	if err := ba.Init("%ABD10*%", 1); err != nil {
		t.Fatal(err)
	}
	ba.Add(primitives.NewFlash(polygon.Point{X: 1, Y: 0}, nil, PolTypeDark, 2))
	ba.Add(primitives.NewFlash(polygon.Point{X: 0, Y: 1}, nil, PolTypeClear, 4))

	got := ba.Flash(polygon.Point{X: 10, Y: 10}, PolTypeDark)
	if len(got) != 2 {
		t.Fatalf("2 primitives expected, got %d", len(got))
	}
	f := got[0].(*primitives.Flash)
	if f.At != (polygon.Point{X: 11, Y: 10}) || f.Polarity() != PolTypeDark {
		t.Errorf("bad first flash at %v, %v", f.At, f.Polarity())
	}
	if got[1].Polarity() != PolTypeClear {
		t.Error("second flash must stay clear")
	}

	got = ba.Flash(polygon.Point{}, PolTypeClear)
	if got[0].Polarity() != PolTypeClear || got[1].Polarity() != PolTypeDark {
		t.Error("clear flash must toggle polarities")
	}
	// the block itself is not changed
	if ba.prims[0].(*primitives.Flash).At != (polygon.Point{X: 1, Y: 0}) || ba.prims[0].Polarity() != PolTypeDark {
		t.Error("block contents changed")
	}
}
