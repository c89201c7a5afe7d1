//Aperture Macros support
package amprocessor

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/VasiliyTurchenko/gerber2gcode/calculator"
	"github.com/VasiliyTurchenko/gerber2gcode/polygon"
)

type AMPrimitiveType int

func (amp AMPrimitiveType) String() string {
	var retVal string
	switch amp {
	case AMPrimitive_Comment:
		retVal = "comment"
	case AMPrimitive_Circle:
		retVal = "circle"
	case AMPrimitive_VectLine:
		retVal = "vector line"
	case AMPrimitive_CenterLine:
		retVal = "center line"
	case AMPrimitive_OutLine:
		retVal = "outline"
	case AMPrimitive_Polygon:
		retVal = "polygon"
	case AMPrimitive_Moire:
		retVal = "moire"
	case AMPrimitive_Thermal:
		retVal = "thermal"
	case AMPrimitive_Assignment:
		retVal = "variable definition"
	default:
		retVal = "unknown"
	}
	return retVal
}

const (
	AMPrimitive_Comment    AMPrimitiveType = 0
	AMPrimitive_Circle     AMPrimitiveType = 1
	AMPrimitive_VectLine   AMPrimitiveType = 20
	AMPrimitive_CenterLine AMPrimitiveType = 21
	AMPrimitive_OutLine    AMPrimitiveType = 4
	AMPrimitive_Polygon    AMPrimitiveType = 5
	AMPrimitive_Moire      AMPrimitiveType = 6
	AMPrimitive_Thermal    AMPrimitiveType = 7
	// not a primitive, $n=expr statement
	AMPrimitive_Assignment AMPrimitiveType = -1
)

var ErrUnsupportedPrimitive = errors.New("unsupported aperture macro primitive")

// Statement is one '*' terminated statement of the macro body
type Statement struct {
	Type      AMPrimitiveType
	Modifiers []string // unevaluated expressions
	Text      string
}

type ApertureMacro struct {
	Name       string
	Statements []Statement
}

func (am *ApertureMacro) String() string {
	retVal := "Aperture macro name:\t" + am.Name + "\n"
	for _, s := range am.Statements {
		retVal = retVal + "\t" + s.Type.String() + "\t" + strings.Join(s.Modifiers, ",") + "\n"
	}
	return retVal
}

// Part is one exposed (dark) or erased (clear) contour of a flashed macro.
// Parts are applied in order.
type Part struct {
	Contour  polygon.Contour
	Exposure bool
}

// NewApertureMacro parses the statements of %AM block, the first one being "AM<name>"
func NewApertureMacro(statements []string) (*ApertureMacro, error) {
	if len(statements) == 0 || !strings.HasPrefix(statements[0], "AM") || len(statements[0]) < 3 {
		return nil, errors.New("bad aperture macro header")
	}
	retVal := &ApertureMacro{Name: statements[0][2:]}
	for _, s := range statements[1:] {
		s = strings.TrimSpace(s)
		if s == "0" || strings.HasPrefix(s, "0 ") {
			continue // comment
		}
		if strings.HasPrefix(s, "$") {
			retVal.Statements = append(retVal.Statements, Statement{Type: AMPrimitive_Assignment, Text: s})
			continue
		}
		fields := strings.Split(s, ",")
		code, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, fmt.Errorf("macro %s: bad primitive %q", retVal.Name, s)
		}
		st := Statement{Type: AMPrimitiveType(code), Modifiers: fields[1:], Text: s}
		switch st.Type {
		case AMPrimitive_Circle, AMPrimitive_VectLine, AMPrimitive_CenterLine,
			AMPrimitive_OutLine, AMPrimitive_Polygon, AMPrimitive_Moire, AMPrimitive_Thermal:
		default:
			return nil, fmt.Errorf("macro %s: unknown primitive code %d", retVal.Name, code)
		}
		retVal.Statements = append(retVal.Statements, st)
	}
	return retVal, nil
}

// Instantiate evaluates the macro with the aperture parameters ($1, $2...).
// scale converts file units to mm, tol is the arc flattening tolerance.
func (am *ApertureMacro) Instantiate(params []float64, scale, tol float64) ([]Part, error) {
	vars := make(calculator.Variables)
	for i, p := range params {
		vars[i+1] = p
	}
	retVal := make([]Part, 0, len(am.Statements))
	for _, st := range am.Statements {
		if st.Type == AMPrimitive_Assignment {
			if err := calculator.Assign(st.Text, vars); err != nil {
				return nil, fmt.Errorf("macro %s: %w", am.Name, err)
			}
			continue
		}
		mods := make([]float64, len(st.Modifiers))
		for i, m := range st.Modifiers {
			v, err := calculator.CalcExpression(m, vars)
			if err != nil {
				return nil, fmt.Errorf("macro %s, %s: %w", am.Name, st.Type, err)
			}
			mods[i] = v
		}
		part, err := buildPart(st.Type, mods, scale, tol)
		if err != nil {
			return nil, fmt.Errorf("macro %s: %w", am.Name, err)
		}
		retVal = append(retVal, part)
	}
	return retVal, nil
}

func need(t AMPrimitiveType, mods []float64, n int) error {
	if len(mods) < n {
		return fmt.Errorf("%s needs %d modifiers, got %d", t, n, len(mods))
	}
	return nil
}

// rotation is optional, default 0
func rotation(mods []float64, idx int) float64 {
	if idx < len(mods) {
		return mods[idx]
	}
	return 0
}

// rotate turns points counter-clockwise around the macro origin
func rotate(pts []polygon.Point, deg float64) {
	if deg == 0 {
		return
	}
	m := mgl64.Rotate2D(mgl64.DegToRad(deg))
	for i, p := range pts {
		v := m.Mul2x1(mgl64.Vec2{p.X, p.Y})
		pts[i] = polygon.Point{X: v[0], Y: v[1]}
	}
}

func buildPart(t AMPrimitiveType, mods []float64, scale, tol float64) (Part, error) {
	var pts []polygon.Point
	var rot float64
	switch t {
	case AMPrimitive_Circle:
		// Exposure, Diameter, Center X, Center Y[, Rotation]
		if err := need(t, mods, 4); err != nil {
			return Part{}, err
		}
		c := polygon.Point{X: mods[2] * scale, Y: mods[3] * scale}
		pts = polygon.Circle(c, mods[1]*scale/2, tol).Points
		rot = rotation(mods, 4)
	case AMPrimitive_VectLine:
		// Exposure, Width, Start X, Start Y, End X, End Y, Rotation
		if err := need(t, mods, 6); err != nil {
			return Part{}, err
		}
		w := mods[1] * scale / 2
		s := polygon.Point{X: mods[2] * scale, Y: mods[3] * scale}
		e := polygon.Point{X: mods[4] * scale, Y: mods[5] * scale}
		l := s.Dist(e)
		if l == 0 {
			return Part{}, errors.New("vector line of zero length")
		}
		n := polygon.Point{X: -(e.Y - s.Y) / l * w, Y: (e.X - s.X) / l * w}
		pts = []polygon.Point{s.Sub(n), e.Sub(n), e.Add(n), s.Add(n)}
		rot = rotation(mods, 6)
	case AMPrimitive_CenterLine:
		// Exposure, Width, Height, Center X, Center Y, Rotation
		if err := need(t, mods, 5); err != nil {
			return Part{}, err
		}
		w, h := mods[1]*scale/2, mods[2]*scale/2
		cx, cy := mods[3]*scale, mods[4]*scale
		pts = polygon.Rect(polygon.Point{X: cx - w, Y: cy - h}, polygon.Point{X: cx + w, Y: cy + h}).Points
		rot = rotation(mods, 5)
	case AMPrimitive_OutLine:
		// Exposure, # vertices, Start X, Start Y, Subsequent points..., Rotation
		if err := need(t, mods, 2); err != nil {
			return Part{}, err
		}
		nv := int(mods[1])
		if nv < 3 {
			return Part{}, fmt.Errorf("outline with %d vertices", nv)
		}
		if err := need(t, mods, 2+2*(nv+1)); err != nil {
			return Part{}, err
		}
		// the last vertex repeats the start point
		for i := 0; i < nv; i++ {
			pts = append(pts, polygon.Point{X: mods[2+2*i] * scale, Y: mods[3+2*i] * scale})
		}
		rot = rotation(mods, 2+2*(nv+1))
	case AMPrimitive_Polygon:
		// Exposure, # vertices, Center X, Center Y, Diameter, Rotation
		if err := need(t, mods, 5); err != nil {
			return Part{}, err
		}
		nv := int(mods[1])
		if nv < 3 || nv > 12 {
			return Part{}, fmt.Errorf("polygon with %d vertices", nv)
		}
		c := polygon.Point{X: mods[2] * scale, Y: mods[3] * scale}
		r := mods[4] * scale / 2
		for i := 0; i < nv; i++ {
			a := 2 * math.Pi * float64(i) / float64(nv)
			pts = append(pts, polygon.Point{X: c.X + r*math.Cos(a), Y: c.Y + r*math.Sin(a)})
		}
		rot = rotation(mods, 5)
	case AMPrimitive_Moire, AMPrimitive_Thermal:
		return Part{}, fmt.Errorf("%s: %w", t, ErrUnsupportedPrimitive)
	default:
		return Part{}, fmt.Errorf("%s: %w", t, ErrUnsupportedPrimitive)
	}
	rotate(pts, rot)
	c := polygon.Contour{Points: pts}
	c.Normalize()
	return Part{Contour: c, Exposure: mods[0] > 0.5}, nil
}
