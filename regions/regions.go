package regions

import (
	"errors"
	"strconv"

	"github.com/VasiliyTurchenko/gerber2gcode/polygon"
)

// tolerance of the contour closure check, mm
const closeTolerance = 1e-6

/*####################  regions ##################################
 */

// Region accumulates the contours of one G36/G37 statement
type Region struct {
	Group           int
	G36StringNumber int // number of the string with G36 cmd
	G37StringNumber int // number of the string with G37 cmd
	contours        []polygon.Contour
	current         []polygon.Point
}

func (region *Region) String() string {
	if region == nil {
		return "<nil>"
	}
	return "Region #" + strconv.Itoa(region.Group) + ":\n" +
		"\t\tcontains " + strconv.Itoa(len(region.contours)) + " closed contours\n" +
		"\t\tG36 command is at line " + strconv.Itoa(region.G36StringNumber) + "\n" +
		"\t\tG37 command is at line " + strconv.Itoa(region.G37StringNumber)
}

// creates and initialises a region object
func NewRegion(group, strNum int) *Region {
	retVal := new(Region)
	retVal.Group = group
	retVal.G36StringNumber = strNum
	retVal.G37StringNumber = -1
	return retVal
}

// returns true if region is opened
func (region *Region) IsRegionOpened() (bool, error) {
	if region == nil {
		return false, errors.New("bad region referenced (by nil ptr)")
	}
	return region.G37StringNumber == -1, nil
}

// MoveTo finishes the current contour (D02 inside a region) and starts
// a new one at p
func (region *Region) MoveTo(p polygon.Point) error {
	err := region.finish()
	region.current = []polygon.Point{p}
	return err
}

// LineTo appends a vertex; the first vertex of a contour may come from
// the current point of the parser
func (region *Region) LineTo(from, p polygon.Point) {
	if len(region.current) == 0 {
		region.current = append(region.current, from)
	}
	region.current = append(region.current, p)
}

// ArcTo appends the flattened arc vertices
func (region *Region) ArcTo(from polygon.Point, pts []polygon.Point) {
	for _, p := range pts {
		region.LineTo(from, p)
	}
}

// finish closes the contour being built. A contour with fewer than 3 vertices
// is discarded with an error. A contour not returning to its start point is
// closed by appending the start point.
func (region *Region) finish() error {
	pts := region.current
	region.current = nil
	if len(pts) <= 1 {
		// a bare move
		return nil
	}
	if len(pts) < 3 {
		return errors.New("region contour at line " + strconv.Itoa(region.G36StringNumber) +
			" has " + strconv.Itoa(len(pts)) + " points, at least 3 expected")
	}
	if !pts[0].Equals(pts[len(pts)-1], closeTolerance) {
		pts = append(pts, pts[0])
	}
	region.contours = append(region.contours, polygon.Contour{Points: pts})
	return nil
}

// Close processes G37 and returns the contours of the region
func (region *Region) Close(strnum int) ([]polygon.Contour, error) {
	if region == nil {
		return nil, errors.New("can not close the contour referenced by null pointer")
	}
	err := region.finish()
	region.G37StringNumber = strnum
	return region.contours, err
}
