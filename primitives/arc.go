package primitives

import (
	"math"

	"github.com/VasiliyTurchenko/gerber2gcode/polygon"
)

// ArcSweep returns the signed angle of the arc from start to end around centre,
// positive counter-clockwise. A full circle sweeps 2*Pi.
func ArcSweep(start, end, centre polygon.Point, ccw, full bool) float64 {
	if full {
		if ccw {
			return 2 * math.Pi
		}
		return -2 * math.Pi
	}
	a0 := math.Atan2(start.Y-centre.Y, start.X-centre.X)
	a1 := math.Atan2(end.Y-centre.Y, end.X-centre.X)
	d := a1 - a0
	if ccw {
		for d < 0 {
			d += 2 * math.Pi
		}
	} else {
		for d > 0 {
			d -= 2 * math.Pi
		}
	}
	return d
}
