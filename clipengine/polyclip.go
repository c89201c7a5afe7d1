package clipengine

import (
	"fmt"
	"math"

	"github.com/akavel/polyclip-go"
	"github.com/golang/glog"

	"github.com/VasiliyTurchenko/gerber2gcode/polygon"
)

// polyclipKernel works on floats with the even-odd rule only and has
// neither offsetting nor hierarchical output
type polyclipKernel struct{}

func (polyclipKernel) Name() string {
	return BackendPolyclip
}

func (polyclipKernel) Acquire() Session {
	return &polyclipSession{}
}

type polyclipSession struct {
	released bool
}

func (s *polyclipSession) Release() {
	s.released = true
}

func toPolyclip(ps Paths) polyclip.Polygon {
	retVal := make(polyclip.Polygon, 0, len(ps))
	for _, p := range ps {
		c := make(polyclip.Contour, 0, len(p))
		for _, q := range p {
			c.Add(polyclip.Point{X: float64(q.X), Y: float64(q.Y)})
		}
		retVal = append(retVal, c)
	}
	return retVal
}

// fromPolyclip orients the result by nesting, polyclip does not keep
// the winding of its output
func fromPolyclip(poly polyclip.Polygon) Paths {
	cs := make(polygon.ContourSet, 0, len(poly))
	for _, c := range poly {
		pts := make([]polygon.Point, 0, len(c))
		for _, q := range c {
			pts = append(pts, polygon.Point{X: math.Round(q.X), Y: math.Round(q.Y)})
		}
		cs = append(cs, polygon.Contour{Points: pts})
	}
	flat := polygon.BuildTree(cs).Flatten()
	retVal := make(Paths, 0, len(flat))
	for _, c := range flat {
		p := make(Path, 0, len(c.Points))
		for _, q := range c.Points {
			p = append(p, Point64{X: int64(q.X), Y: int64(q.Y)})
		}
		retVal = append(retVal, p)
	}
	return retVal
}

func (s *polyclipSession) Boolean(op Op, subject, clip Paths, fill FillRule) (Paths, error) {
	var pop polyclip.Op
	switch op {
	case OpUnion:
		pop = polyclip.UNION
	case OpIntersect:
		pop = polyclip.INTERSECTION
	case OpDifference:
		pop = polyclip.DIFFERENCE
	case OpXor:
		pop = polyclip.XOR
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, op)
	}
	if fill != EvenOdd {
		glog.V(2).Infoln("polyclip uses even-odd fill instead of " + fill.String())
	}
	res := toPolyclip(subject).Construct(pop, toPolyclip(clip))
	return fromPolyclip(res), nil
}

func (s *polyclipSession) BooleanTree(op Op, subject, clip Paths, fill FillRule) ([]*KernelNode, error) {
	return nil, ErrUnsupported
}

func (s *polyclipSession) Offset(paths Paths, delta float64, jt JoinType, et EndType, miterLimit, arcTolerance float64) (Paths, error) {
	return nil, ErrUnsupported
}
