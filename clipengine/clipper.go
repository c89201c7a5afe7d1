package clipengine

import (
	"fmt"

	clipper "github.com/ctessum/go.clipper"
)

type clipperKernel struct{}

func (clipperKernel) Name() string {
	return BackendClipper
}

func (clipperKernel) Acquire() Session {
	return &clipperSession{c: clipper.NewClipper(clipper.IoNone), o: clipper.NewClipperOffset()}
}

type clipperSession struct {
	c *clipper.Clipper
	o *clipper.ClipperOffset
}

func (s *clipperSession) Release() {
	s.c.Clear()
	s.o.Clear()
	s.c, s.o = nil, nil
}

func toClipper(ps Paths) clipper.Paths {
	retVal := make(clipper.Paths, 0, len(ps))
	for _, p := range ps {
		cp := make(clipper.Path, 0, len(p))
		for _, q := range p {
			cp = append(cp, &clipper.IntPoint{X: clipper.CInt(q.X), Y: clipper.CInt(q.Y)})
		}
		retVal = append(retVal, cp)
	}
	return retVal
}

func fromClipperPath(cp clipper.Path) Path {
	retVal := make(Path, 0, len(cp))
	for _, q := range cp {
		retVal = append(retVal, Point64{X: int64(q.X), Y: int64(q.Y)})
	}
	return retVal
}

func fromClipper(cps clipper.Paths) Paths {
	retVal := make(Paths, 0, len(cps))
	for _, cp := range cps {
		retVal = append(retVal, fromClipperPath(cp))
	}
	return retVal
}

func clipType(op Op) (clipper.ClipType, error) {
	switch op {
	case OpUnion:
		return clipper.CtUnion, nil
	case OpIntersect:
		return clipper.CtIntersection, nil
	case OpDifference:
		return clipper.CtDifference, nil
	case OpXor:
		return clipper.CtXor, nil
	default:
	}
	return clipper.CtUnion, fmt.Errorf("%w: %s", ErrUnsupported, op)
}

func fillType(fr FillRule) clipper.PolyFillType {
	switch fr {
	case EvenOdd:
		return clipper.PftEvenOdd
	case Positive:
		return clipper.PftPositive
	case Negative:
		return clipper.PftNegative
	default:
	}
	return clipper.PftNonZero
}

func (s *clipperSession) load(subject, clip Paths) {
	s.c.AddPaths(toClipper(subject), clipper.PtSubject, true)
	if len(clip) > 0 {
		s.c.AddPaths(toClipper(clip), clipper.PtClip, true)
	}
}

func (s *clipperSession) Boolean(op Op, subject, clip Paths, fill FillRule) (Paths, error) {
	ct, err := clipType(op)
	if err != nil {
		return nil, err
	}
	s.load(subject, clip)
	sol, ok := s.c.Execute1(ct, fillType(fill), fillType(fill))
	if !ok {
		return nil, ErrKernel
	}
	return fromClipper(sol), nil
}

func (s *clipperSession) BooleanTree(op Op, subject, clip Paths, fill FillRule) ([]*KernelNode, error) {
	ct, err := clipType(op)
	if err != nil {
		return nil, err
	}
	s.load(subject, clip)
	tree, ok := s.c.Execute2(ct, fillType(fill), fillType(fill))
	if !ok || tree == nil {
		return nil, ErrKernel
	}
	var conv func(n *clipper.PolyNode) *KernelNode
	conv = func(n *clipper.PolyNode) *KernelNode {
		kn := &KernelNode{Path: fromClipperPath(n.Contour())}
		for _, ch := range n.Childs() {
			kn.Children = append(kn.Children, conv(ch))
		}
		return kn
	}
	retVal := make([]*KernelNode, 0)
	for _, n := range tree.Childs() {
		retVal = append(retVal, conv(n))
	}
	return retVal, nil
}

func (s *clipperSession) Offset(paths Paths, delta float64, jt JoinType, et EndType, miterLimit, arcTolerance float64) (Paths, error) {
	var j clipper.JoinType
	switch jt {
	case JoinSquare:
		j = clipper.JtSquare
	case JoinMiter:
		j = clipper.JtMiter
	default:
		j = clipper.JtRound
	}
	var e clipper.EndType
	switch et {
	case EndClosedLine:
		e = clipper.EtClosedLine
	case EndOpenRound:
		e = clipper.EtOpenRound
	case EndOpenSquare:
		e = clipper.EtOpenSquare
	case EndOpenButt:
		e = clipper.EtOpenButt
	default:
		e = clipper.EtClosedPolygon
	}
	s.o.MiterLimit = miterLimit
	s.o.ArcTolerance = arcTolerance
	s.o.AddPaths(toClipper(paths), j, e)
	return fromClipper(s.o.Execute(delta)), nil
}
