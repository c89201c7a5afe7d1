/*
Package clipengine runs boolean and offset operations on contour sets through
an integer polygon kernel
*/
package clipengine

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/glog"

	"github.com/VasiliyTurchenko/gerber2gcode/polygon"
)

var (
	ErrKernel      = errors.New("polygon kernel failure")
	ErrUnsupported = errors.New("operation is not supported by the kernel")
)

const (
	BackendClipper  = "clipper"
	BackendPolyclip = "polyclip"
)

type Config struct {
	// integer units per mm
	Scale      float64
	MiterLimit float64
	// max deviation of round joins, mm
	ArcTolerance float64
	Backend      string
}

func DefaultConfig() Config {
	return Config{Scale: 1000, MiterLimit: 2, ArcTolerance: 0.005, Backend: BackendClipper}
}

// Session is one acquired kernel object. Results are returned as engine owned
// slices, nothing returned refers to kernel memory.
type Session interface {
	Boolean(op Op, subject, clip Paths, fill FillRule) (Paths, error)
	BooleanTree(op Op, subject, clip Paths, fill FillRule) ([]*KernelNode, error)
	Offset(paths Paths, delta float64, jt JoinType, et EndType, miterLimit, arcTolerance float64) (Paths, error)
	Release()
}

type Kernel interface {
	Name() string
	Acquire() Session
}

// LeaseStats counts acquired and released kernel sessions
type LeaseStats struct {
	Acquired int
	Released int
}

type Engine struct {
	cfg    Config
	kernel Kernel
	leases LeaseStats
}

func NewKernel(name string) (Kernel, error) {
	switch name {
	case BackendClipper, "":
		return clipperKernel{}, nil
	case BackendPolyclip:
		return polyclipKernel{}, nil
	default:
	}
	return nil, fmt.Errorf("unknown polygon kernel %q", name)
}

func New(cfg Config) (*Engine, error) {
	k, err := NewKernel(cfg.Backend)
	if err != nil {
		return nil, err
	}
	return NewWithKernel(cfg, k), nil
}

// NewWithKernel creates the engine over an arbitrary kernel
func NewWithKernel(cfg Config, k Kernel) *Engine {
	def := DefaultConfig()
	if cfg.Scale <= 0 {
		cfg.Scale = def.Scale
	}
	if cfg.MiterLimit <= 0 {
		cfg.MiterLimit = def.MiterLimit
	}
	if cfg.ArcTolerance <= 0 {
		cfg.ArcTolerance = def.ArcTolerance
	}
	cfg.Backend = k.Name()
	return &Engine{cfg: cfg, kernel: k}
}

func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) Leases() LeaseStats {
	return e.leases
}

// lease runs fn with a freshly acquired session. The session is released
// exactly once whatever fn does, a panic inside the kernel becomes ErrKernel.
func (e *Engine) lease(what string, fn func(Session) error) (err error) {
	s := e.kernel.Acquire()
	e.leases.Acquired++
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s panicked: %v", ErrKernel, what, r)
		}
		s.Release()
		e.leases.Released++
		if err != nil {
			glog.Warningln(e.kernel.Name() + " " + what + ": " + err.Error())
		}
	}()
	return fn(s)
}

/* ############################## scaling ############################## */

func (e *Engine) toPath(c polygon.Contour) Path {
	retVal := make(Path, 0, len(c.Points))
	for _, p := range c.Points {
		retVal = append(retVal, Point64{
			X: int64(math.Round(p.X * e.cfg.Scale)),
			Y: int64(math.Round(p.Y * e.cfg.Scale)),
		})
	}
	return retVal
}

// toPaths normalizes closed contours and scales them to the integer domain.
// Open paths are skipped unless keepOpen is set.
func (e *Engine) toPaths(cs polygon.ContourSet, keepOpen bool) Paths {
	retVal := make(Paths, 0, len(cs))
	for _, c := range cs {
		if c.Open && !keepOpen {
			glog.V(2).Infoln("open path skipped in boolean operation")
			continue
		}
		retVal = append(retVal, e.toPath(c.Normalized()))
	}
	return retVal
}

func (e *Engine) fromPath(p Path) polygon.Contour {
	pts := make([]polygon.Point, 0, len(p))
	for _, q := range p {
		pts = append(pts, polygon.Point{X: float64(q.X) / e.cfg.Scale, Y: float64(q.Y) / e.cfg.Scale})
	}
	c := polygon.Contour{Points: pts}
	c.Hole = c.SignedArea() < 0
	return c
}

func (e *Engine) fromPaths(ps Paths) polygon.ContourSet {
	retVal := make(polygon.ContourSet, 0, len(ps))
	for _, p := range ps {
		if len(p) < 3 {
			continue
		}
		retVal = append(retVal, e.fromPath(p))
	}
	return retVal
}

func (e *Engine) toTree(nodes []*KernelNode) *polygon.Tree {
	var conv func(kn *KernelNode, level int) *polygon.Node
	conv = func(kn *KernelNode, level int) *polygon.Node {
		n := &polygon.Node{Contour: e.fromPath(kn.Path), Level: level}
		n.Contour.Hole = n.Role() == polygon.RoleHole
		n.Contour.Normalize()
		for _, ch := range kn.Children {
			n.Children = append(n.Children, conv(ch, level+1))
		}
		return n
	}
	retVal := new(polygon.Tree)
	for _, kn := range nodes {
		retVal.Roots = append(retVal.Roots, conv(kn, 0))
	}
	return retVal
}

/* ############################## operations ############################## */

func (e *Engine) boolean(op Op, subject, clip polygon.ContourSet, fill FillRule) (polygon.ContourSet, error) {
	var out Paths
	err := e.lease(op.String(), func(s Session) error {
		var err error
		out, err = s.Boolean(op, e.toPaths(subject, false), e.toPaths(clip, false), fill)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return e.fromPaths(out), nil
}

func (e *Engine) booleanTree(op Op, subject, clip polygon.ContourSet, fill FillRule) (*polygon.Tree, error) {
	var nodes []*KernelNode
	err := e.lease(op.String()+" tree", func(s Session) error {
		var err error
		nodes, err = s.BooleanTree(op, e.toPaths(subject, false), e.toPaths(clip, false), fill)
		return err
	})
	if errors.Is(err, ErrUnsupported) {
		// rebuild the nesting from the flat result
		flat, err := e.boolean(op, subject, clip, fill)
		if err != nil {
			return nil, err
		}
		return polygon.BuildTree(flat), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return e.toTree(nodes), nil
}

func (e *Engine) Union(subject, clip polygon.ContourSet, fill FillRule) (polygon.ContourSet, error) {
	return e.boolean(OpUnion, subject, clip, fill)
}

func (e *Engine) Intersect(subject, clip polygon.ContourSet, fill FillRule) (polygon.ContourSet, error) {
	return e.boolean(OpIntersect, subject, clip, fill)
}

func (e *Engine) Difference(subject, clip polygon.ContourSet, fill FillRule) (polygon.ContourSet, error) {
	return e.boolean(OpDifference, subject, clip, fill)
}

func (e *Engine) Xor(subject, clip polygon.ContourSet, fill FillRule) (polygon.ContourSet, error) {
	return e.boolean(OpXor, subject, clip, fill)
}

func (e *Engine) UnionTree(subject, clip polygon.ContourSet, fill FillRule) (*polygon.Tree, error) {
	return e.booleanTree(OpUnion, subject, clip, fill)
}

func (e *Engine) IntersectTree(subject, clip polygon.ContourSet, fill FillRule) (*polygon.Tree, error) {
	return e.booleanTree(OpIntersect, subject, clip, fill)
}

func (e *Engine) DifferenceTree(subject, clip polygon.ContourSet, fill FillRule) (*polygon.Tree, error) {
	return e.booleanTree(OpDifference, subject, clip, fill)
}

func (e *Engine) XorTree(subject, clip polygon.ContourSet, fill FillRule) (*polygon.Tree, error) {
	return e.booleanTree(OpXor, subject, clip, fill)
}

// Offset grows (delta > 0) or shrinks the contours, delta in mm.
// A non positive miterLimit takes the configured one.
func (e *Engine) Offset(paths polygon.ContourSet, delta float64, jt JoinType, et EndType, miterLimit float64) (polygon.ContourSet, error) {
	if miterLimit <= 0 {
		miterLimit = e.cfg.MiterLimit
	}
	var out Paths
	err := e.lease("offset", func(s Session) error {
		var err error
		out, err = s.Offset(e.toPaths(paths, true), delta*e.cfg.Scale, jt, et, miterLimit, e.cfg.ArcTolerance*e.cfg.Scale)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("offset by %g: %w", delta, err)
	}
	return e.fromPaths(out), nil
}

// OffsetTree offsets and returns the nesting of the result
func (e *Engine) OffsetTree(paths polygon.ContourSet, delta float64, jt JoinType, et EndType, miterLimit float64) (*polygon.Tree, error) {
	flat, err := e.Offset(paths, delta, jt, et, miterLimit)
	if err != nil {
		return nil, err
	}
	return e.UnionTree(flat, nil, NonZero)
}
