//
// functions related to parsing gerber files
// Apertures support
package apertures

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/VasiliyTurchenko/gerber2gcode/amprocessor"
	. "github.com/VasiliyTurchenko/gerber2gcode/gerberbasetypes"
	"github.com/VasiliyTurchenko/gerber2gcode/polygon"
)

var ErrDuplicate = errors.New("aperture is already defined")

type Aperture struct {
	Code         int
	SourceString string
	Type         GerberApType
	XSize        float64
	YSize        float64
	Diameter     float64
	HoleDiameter float64
	Vertices     int
	RotAngle     float64
	Macro        *amprocessor.ApertureMacro
	MacroParams  []float64
	scale        float64
}

func (apert *Aperture) GetCode() int {
	return apert.Code
}

func (apert *Aperture) String() string {
	return "D" + strconv.Itoa(apert.Code) + " " + apert.Type.String() + " " + apert.SourceString
}

// Init parses the aperture definition, e.g. %ADD10C,0.1*% or %ADD12DONUT,2X1*%.
// Sizes are converted to mm.
func (apert *Aperture) Init(sourceString string, units Units, macros map[string]*amprocessor.ApertureMacro) error {
	sourceString = strings.TrimSpace(sourceString)
	apert.SourceString = sourceString
	apert.scale = units.Scale()
	body := strings.TrimPrefix(sourceString, GerberApertureDef)
	body = strings.TrimSuffix(strings.TrimSuffix(body, "%"), "*")

	codeEnd := 0
	for codeEnd < len(body) && body[codeEnd] >= '0' && body[codeEnd] <= '9' {
		codeEnd++
	}
	var err error
	if apert.Code, err = strconv.Atoi(body[:codeEnd]); err != nil {
		return errors.New("bad aperture number in " + sourceString)
	}
	if apert.Code < 10 {
		return errors.New("aperture number less than 10 in " + sourceString)
	}
	name := body[codeEnd:]
	params := ""
	if comma := strings.IndexByte(name, ','); comma != -1 {
		params = name[comma+1:]
		name = name[:comma]
	}
	values := make([]float64, 0)
	if len(params) > 0 {
		for _, s := range strings.Split(params, "X") {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return fmt.Errorf("bad aperture parameter %q in %s", s, sourceString)
			}
			values = append(values, v)
		}
	}

	switch name {
	case "C":
		apert.Type = AptypeCircle
		if len(values) < 1 || len(values) > 2 {
			return errors.New("bad number of parameters for circle aperture")
		}
		apert.Diameter = values[0]
		if len(values) == 2 {
			apert.HoleDiameter = values[1]
		}
	case "R", "O":
		apert.Type = AptypeRectangle
		if name == "O" {
			apert.Type = AptypeObround
		}
		if len(values) < 2 || len(values) > 3 {
			return errors.New("bad number of parameters for " + apert.Type.String())
		}
		apert.XSize, apert.YSize = values[0], values[1]
		if len(values) == 3 {
			apert.HoleDiameter = values[2]
		}
	case "P":
		apert.Type = AptypePoly
		if len(values) < 2 || len(values) > 4 {
			return errors.New("bad number of parameters for polygon aperture")
		}
		apert.Diameter = values[0] // outer diameter
		apert.Vertices = int(values[1])
		if apert.Vertices < 3 || apert.Vertices > 12 {
			return errors.New("polygon aperture vertices must be 3..12")
		}
		if len(values) > 2 {
			apert.RotAngle = values[2]
		}
		if len(values) > 3 {
			apert.HoleDiameter = values[3]
		}
	default:
		m, ok := macros[name]
		if !ok {
			return errors.New("undefined aperture macro " + name)
		}
		apert.Type = AptypeMacro
		apert.Macro = m
		apert.MacroParams = values
		return nil
	}

	apert.HoleDiameter *= apert.scale
	apert.Diameter *= apert.scale
	apert.YSize *= apert.scale
	apert.XSize *= apert.scale
	if apert.Diameter < 0 || apert.XSize < 0 || apert.YSize < 0 || apert.HoleDiameter < 0 {
		return errors.New("negative aperture size in " + sourceString)
	}
	return nil
}

// Width is the width of a trace drawn with the aperture
func (apert *Aperture) Width() float64 {
	switch apert.Type {
	case AptypeCircle, AptypePoly:
		return apert.Diameter
	case AptypeRectangle, AptypeObround:
		return math.Min(apert.XSize, apert.YSize)
	default:
	}
	return 0
}

// Outline returns the parts of the aperture flashed at the point.
// Holes come as clear parts after the dark ones.
func (apert *Aperture) Outline(at polygon.Point, tol float64) ([]amprocessor.Part, error) {
	var retVal []amprocessor.Part
	switch apert.Type {
	case AptypeCircle:
		if apert.Diameter == 0 {
			return nil, nil
		}
		retVal = append(retVal, dark(polygon.Circle(at, apert.Diameter/2, tol)))
	case AptypeRectangle:
		half := polygon.Point{X: apert.XSize / 2, Y: apert.YSize / 2}
		retVal = append(retVal, dark(polygon.Rect(at.Sub(half), at.Add(half))))
	case AptypeObround:
		retVal = append(retVal, dark(obround(at, apert.XSize, apert.YSize, tol)))
	case AptypePoly:
		retVal = append(retVal, dark(regularPolygon(at, apert.Diameter/2, apert.Vertices, apert.RotAngle)))
	case AptypeMacro:
		parts, err := apert.Macro.Instantiate(apert.MacroParams, apert.scale, tol)
		if err != nil {
			return nil, err
		}
		for i := range parts {
			for j := range parts[i].Contour.Points {
				parts[i].Contour.Points[j] = parts[i].Contour.Points[j].Add(at)
			}
		}
		return parts, nil
	default:
		return nil, errors.New("unknown aperture type")
	}
	if apert.HoleDiameter > 0 {
		retVal = append(retVal, amprocessor.Part{Contour: polygon.Circle(at, apert.HoleDiameter/2, tol)})
	}
	return retVal, nil
}

// Sweep returns the convex area covered by the aperture moved from start to end.
// Holes are ignored.
func (apert *Aperture) Sweep(start, end polygon.Point, tol float64) (polygon.Contour, error) {
	a, err := apert.Outline(start, tol)
	if err != nil {
		return polygon.Contour{}, err
	}
	b, err := apert.Outline(end, tol)
	if err != nil {
		return polygon.Contour{}, err
	}
	pts := make([]polygon.Point, 0)
	for _, parts := range [][]amprocessor.Part{a, b} {
		for _, p := range parts {
			if p.Exposure {
				pts = append(pts, p.Contour.Points...)
			}
		}
	}
	if len(pts) < 3 {
		return polygon.Contour{}, errors.New("empty aperture " + apert.String())
	}
	return polygon.ConvexHull(pts), nil
}

func dark(c polygon.Contour) amprocessor.Part {
	return amprocessor.Part{Contour: c, Exposure: true}
}

func obround(at polygon.Point, xs, ys, tol float64) polygon.Contour {
	if xs == ys {
		return polygon.Circle(at, xs/2, tol)
	}
	r := math.Min(xs, ys) / 2
	// centres of the two end caps
	var c1, c2 polygon.Point
	var a0 float64
	if xs > ys {
		c1 = polygon.Point{X: at.X + xs/2 - r, Y: at.Y}
		c2 = polygon.Point{X: at.X - xs/2 + r, Y: at.Y}
		a0 = -math.Pi / 2
	} else {
		c1 = polygon.Point{X: at.X, Y: at.Y + ys/2 - r}
		c2 = polygon.Point{X: at.X, Y: at.Y - ys/2 + r}
		a0 = 0
	}
	pts := make([]polygon.Point, 0)
	for _, c := range []polygon.Point{c1, c2} {
		start := polygon.Point{X: c.X + r*math.Cos(a0), Y: c.Y + r*math.Sin(a0)}
		pts = append(pts, start)
		pts = append(pts, polygon.Arc(start, c, math.Pi, tol)...)
		a0 += math.Pi
	}
	return polygon.Contour{Points: pts}
}

func regularPolygon(at polygon.Point, r float64, n int, rotDeg float64) polygon.Contour {
	pts := make([]polygon.Point, n)
	rot := mgl64.DegToRad(rotDeg)
	for i := 0; i < n; i++ {
		a := rot + 2*math.Pi*float64(i)/float64(n)
		pts[i] = polygon.Point{X: at.X + r*math.Cos(a), Y: at.Y + r*math.Sin(a)}
	}
	return polygon.Contour{Points: pts}
}

// Dictionary holds apertures by D code. The first definition wins.
type Dictionary map[int]*Aperture

func (d Dictionary) Add(apert *Aperture) error {
	if _, ok := d[apert.Code]; ok {
		return fmt.Errorf("D%d: %w", apert.Code, ErrDuplicate)
	}
	d[apert.Code] = apert
	return nil
}

func (d Dictionary) Get(code int) (*Aperture, bool) {
	a, ok := d[code]
	return a, ok
}
