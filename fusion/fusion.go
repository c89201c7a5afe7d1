/*
Package fusion merges the primitives of a layer into copper polygons
*/
package fusion

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/VasiliyTurchenko/gerber2gcode/amprocessor"
	"github.com/VasiliyTurchenko/gerber2gcode/clipengine"
	. "github.com/VasiliyTurchenko/gerber2gcode/gerberbasetypes"
	"github.com/VasiliyTurchenko/gerber2gcode/polygon"
	"github.com/VasiliyTurchenko/gerber2gcode/primitives"
)

type Config struct {
	// chord deviation of arcs and circles, mm
	ArcTolerance float64
	// regions made of several contours with the largest one smaller than
	// TextAreaThreshold are filled with the even-odd rule (text glyphs with holes)
	TextHeuristic     bool
	TextAreaThreshold float64
}

func DefaultConfig() Config {
	return Config{ArcTolerance: 0.005, TextHeuristic: true, TextAreaThreshold: 4}
}

type Stats struct {
	Shapes        int
	DarkBatches   int
	ClearBatches  int
	EvenOddGroups int
}

type Fuser struct {
	engine *clipengine.Engine
	cfg    Config
	Stats  Stats

	acc      polygon.ContourSet
	batch    polygon.ContourSet
	batchPol PolType
	group    int
	groupPol PolType
	groupCs  polygon.ContourSet
}

func New(engine *clipengine.Engine, cfg Config) *Fuser {
	if cfg.ArcTolerance <= 0 {
		cfg.ArcTolerance = DefaultConfig().ArcTolerance
	}
	return &Fuser{engine: engine, cfg: cfg}
}

// Fuse returns the nesting of the copper drawn by the primitives
func (f *Fuser) Fuse(prims []primitives.Primitive) (*polygon.Tree, error) {
	f.acc, f.batch, f.groupCs = nil, nil, nil
	f.batchPol, f.group = 0, 0
	if err := primitives.Walk(prims, f); err != nil {
		return nil, err
	}
	if err := f.flushGroup(); err != nil {
		return nil, err
	}
	if err := f.flush(); err != nil {
		return nil, err
	}
	glog.V(2).Infof("fusion: %d shapes, %d dark and %d clear batches", f.Stats.Shapes, f.Stats.DarkBatches, f.Stats.ClearBatches)
	return f.engine.UnionTree(f.acc, nil, clipengine.NonZero)
}

// add puts a shape into the current batch, a polarity change applies the batch first
func (f *Fuser) add(pol PolType, cs polygon.ContourSet) error {
	if len(cs) == 0 {
		return nil
	}
	if pol != f.batchPol && len(f.batch) > 0 {
		if err := f.flush(); err != nil {
			return err
		}
	}
	f.batchPol = pol
	f.batch = append(f.batch, cs...)
	f.Stats.Shapes++
	return nil
}

func (f *Fuser) flush() error {
	if len(f.batch) == 0 {
		return nil
	}
	var err error
	if f.batchPol == PolTypeClear {
		f.Stats.ClearBatches++
		if len(f.acc) > 0 {
			f.acc, err = f.engine.Difference(f.acc, f.batch, clipengine.NonZero)
		}
	} else {
		f.Stats.DarkBatches++
		f.acc, err = f.engine.Union(f.acc, f.batch, clipengine.NonZero)
	}
	f.batch = nil
	return err
}

// flushGroup merges the contours of one G36/G37 region
func (f *Fuser) flushGroup() error {
	if len(f.groupCs) == 0 {
		return nil
	}
	cs := f.groupCs
	f.groupCs = nil
	fill := clipengine.NonZero
	if f.mightBeTextWithHoles(cs) {
		fill = clipengine.EvenOdd
		f.Stats.EvenOddGroups++
	}
	merged, err := f.engine.Union(cs, nil, fill)
	if err != nil {
		return err
	}
	return f.add(f.groupPol, merged)
}

func (f *Fuser) mightBeTextWithHoles(cs polygon.ContourSet) bool {
	if !f.cfg.TextHeuristic || len(cs) < 2 {
		return false
	}
	for _, c := range cs {
		if c.Area() >= f.cfg.TextAreaThreshold {
			return false
		}
	}
	return true
}

func (f *Fuser) VisitRegion(r *primitives.Region) error {
	if r.Group != f.group || r.Polarity() != f.groupPol {
		if err := f.flushGroup(); err != nil {
			return err
		}
		f.group, f.groupPol = r.Group, r.Polarity()
	}
	c := r.Contour.Clone()
	c.Hole = false
	f.groupCs = append(f.groupCs, c)
	return nil
}

func (f *Fuser) VisitFlash(fl *primitives.Flash) error {
	if err := f.flushGroup(); err != nil {
		return err
	}
	parts, err := fl.Aperture.Outline(fl.At, f.cfg.ArcTolerance)
	if err != nil {
		return fmt.Errorf("line %d: %w", fl.Line(), err)
	}
	shape, err := f.partsToShape(parts)
	if err != nil {
		return err
	}
	return f.add(fl.Polarity(), shape)
}

// partsToShape applies the exposure of aperture parts in their order
func (f *Fuser) partsToShape(parts []amprocessor.Part) (polygon.ContourSet, error) {
	var retVal polygon.ContourSet
	for _, p := range parts {
		c := p.Contour.Clone()
		c.Hole = false
		c.Normalize()
		if p.Exposure {
			if len(parts) == 1 {
				return polygon.ContourSet{c}, nil
			}
			var err error
			if retVal, err = f.engine.Union(retVal, polygon.ContourSet{c}, clipengine.NonZero); err != nil {
				return nil, err
			}
			continue
		}
		if len(retVal) == 0 {
			continue
		}
		var err error
		if retVal, err = f.engine.Difference(retVal, polygon.ContourSet{c}, clipengine.NonZero); err != nil {
			return nil, err
		}
	}
	return retVal, nil
}

func (f *Fuser) VisitTrace(t *primitives.Trace) error {
	if err := f.flushGroup(); err != nil {
		return err
	}
	ap := t.Aperture
	path := t.Path(f.cfg.ArcTolerance)
	switch ap.Type {
	case AptypeCircle, AptypePoly:
		if ap.Width() <= 0 {
			return nil
		}
		shape, err := f.engine.Offset(polygon.ContourSet{{Points: path, Open: true}},
			ap.Width()/2, clipengine.JoinRound, clipengine.EndOpenRound, 0)
		if err != nil {
			return fmt.Errorf("line %d: %w", t.Line(), err)
		}
		return f.add(t.Polarity(), shape)
	default:
	}
	// rectangular and other apertures: convex hulls swept along each segment
	var shape polygon.ContourSet
	for i := 1; i < len(path); i++ {
		c, err := ap.Sweep(path[i-1], path[i], f.cfg.ArcTolerance)
		if err != nil {
			return fmt.Errorf("line %d: %w", t.Line(), err)
		}
		shape = append(shape, c)
	}
	if len(shape) > 1 {
		var err error
		if shape, err = f.engine.Union(shape, nil, clipengine.NonZero); err != nil {
			return err
		}
	}
	return f.add(t.Polarity(), shape)
}

func (f *Fuser) VisitHole(h *primitives.Hole) error {
	if err := f.flushGroup(); err != nil {
		return err
	}
	if !h.Slot {
		return f.add(h.Polarity(), polygon.ContourSet{polygon.Circle(h.At, h.Diameter/2, f.cfg.ArcTolerance)})
	}
	shape, err := f.engine.Offset(polygon.ContourSet{{Points: []polygon.Point{h.At, h.End}, Open: true}},
		h.Diameter/2, clipengine.JoinRound, clipengine.EndOpenRound, 0)
	if err != nil {
		return err
	}
	return f.add(h.Polarity(), shape)
}
