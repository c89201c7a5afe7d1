package toolpath

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/VasiliyTurchenko/gerber2gcode/polygon"
)

// Order sorts the toolpaths greedily: the next one is the one starting closest
// to the end of the previous one
func Order(paths []Toolpath, from mgl64.Vec2) []Toolpath {
	retVal := make([]Toolpath, 0, len(paths))
	used := make([]bool, len(paths))
	pos := from
	for range paths {
		best := -1
		bestDist := 0.0
		for i := range paths {
			if used[i] {
				continue
			}
			d := paths[i].Start().Sub(pos).Len()
			if best < 0 || d < bestDist {
				best, bestDist = i, d
			}
		}
		used[best] = true
		retVal = append(retVal, paths[best])
		pos = paths[best].End()
	}
	return retVal
}

// OrderPoints sorts drill points by nearest neighbour starting at from
func OrderPoints(pts []polygon.Point, from polygon.Point) []polygon.Point {
	retVal := make([]polygon.Point, 0, len(pts))
	used := make([]bool, len(pts))
	pos := from
	for range pts {
		best := -1
		bestDist := 0.0
		for i := range pts {
			if used[i] {
				continue
			}
			d := pts[i].Dist(pos)
			if best < 0 || d < bestDist {
				best, bestDist = i, d
			}
		}
		used[best] = true
		retVal = append(retVal, pts[best])
		pos = pts[best]
	}
	return retVal
}
