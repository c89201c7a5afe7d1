/*
Package gerber2gcode runs a job through the parse, fuse, plan and post stages
and collects a report of every stage
*/
package gerber2gcode

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/VasiliyTurchenko/gerber2gcode/clipengine"
	"github.com/VasiliyTurchenko/gerber2gcode/configurator"
	"github.com/VasiliyTurchenko/gerber2gcode/excellon"
	"github.com/VasiliyTurchenko/gerber2gcode/fusion"
	"github.com/VasiliyTurchenko/gerber2gcode/gcode"
	"github.com/VasiliyTurchenko/gerber2gcode/gerbparser"
	"github.com/VasiliyTurchenko/gerber2gcode/job"
	"github.com/VasiliyTurchenko/gerber2gcode/operations"
	"github.com/VasiliyTurchenko/gerber2gcode/polygon"
	"github.com/VasiliyTurchenko/gerber2gcode/primitives"
)

type Stage int

const (
	StageRead Stage = iota + 1
	StageParse
	StageFuse
	StagePlan
	StagePost
)

func (s Stage) String() string {
	switch s {
	case StageRead:
		return "read"
	case StageParse:
		return "parse"
	case StageFuse:
		return "fuse"
	case StagePlan:
		return "plan"
	case StagePost:
		return "post"
	default:
	}
	return "unknown stage"
}

// ErrWarnings halts the pipeline on warnings when strict mode is on
var ErrWarnings = errors.New("stage finished with warnings")

type StageReport struct {
	Stage     Stage
	Operation string
	OK        bool
	Warnings  []string
	Err       error
}

func (sr StageReport) String() string {
	var retVal string
	if len(sr.Operation) > 0 {
		retVal = sr.Operation + ": "
	}
	retVal = retVal + sr.Stage.String()
	switch {
	case sr.Err != nil:
		retVal = retVal + " failed: " + sr.Err.Error()
	case len(sr.Warnings) > 0:
		retVal = retVal + fmt.Sprintf(" ok, %d warnings", len(sr.Warnings))
	default:
		retVal = retVal + " ok"
	}
	return retVal
}

type Result struct {
	Reports []StageReport
	Program string
	Post    gcode.Stats
	// totals over all toolpaths, mm
	CutLength   float64
	RapidLength float64
	Estimate    time.Duration
}

func (r *Result) OK() bool {
	for _, rep := range r.Reports {
		if !rep.OK {
			return false
		}
	}
	return len(r.Reports) > 0
}

func (r *Result) Warnings() []string {
	retVal := make([]string, 0)
	for _, rep := range r.Reports {
		for _, w := range rep.Warnings {
			retVal = append(retVal, rep.Operation+": "+rep.Stage.String()+": "+w)
		}
	}
	return retVal
}

// Pipeline holds what is shared by all operations of a run
type Pipeline struct {
	cfg    configurator.Config
	engine *clipengine.Engine
	// overrides the configured dialect when not empty
	Dialect string
	// diagnostics, memory and statistics output
	Log io.Writer
	// where intermediate files go when enabled
	IntermediateDir string

	readFile func(string) ([]byte, error)
	start    time.Time
}

func New(cfg configurator.Config) (*Pipeline, error) {
	engine, err := clipengine.New(cfg.EngineConfig())
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:             cfg,
		engine:          engine,
		Log:             os.Stderr,
		IntermediateDir: ".",
		readFile:        os.ReadFile,
	}, nil
}

func (p *Pipeline) Engine() *clipengine.Engine {
	return p.engine
}

// Run processes the operations in job order and emits one program. The
// returned error is the one that halted the run, the reports say where.
func (p *Pipeline) Run(j *job.Job) (*Result, error) {
	p.start = time.Now()
	retVal := new(Result)
	if err := j.Validate(); err != nil {
		return retVal, err
	}

	origin := polygon.Point{}
	for _, op := range j.Operations() {
		p.printMemUsage("Memory usage before " + op.ID + ":")
		if err := p.runOperation(j, op, origin, retVal); err != nil {
			return retVal, err
		}
		if n := len(op.Toolpaths); n > 0 {
			end := op.Toolpaths[n-1].End()
			origin = polygon.Point{X: end[0], Y: end[1]}
		}
	}

	dialect := p.Dialect
	if len(dialect) == 0 {
		dialect = j.Dialect
	}
	rep := StageReport{Stage: StagePost}
	post, err := gcode.New(p.cfg.PostOptions(dialect))
	if err != nil {
		rep.Err = err
		retVal.Reports = append(retVal.Reports, rep)
		return retVal, err
	}
	retVal.Program = post.Program(j.Title, blocks(j))
	retVal.Post = post.Stats
	rep.OK = true
	retVal.Reports = append(retVal.Reports, rep)
	p.logf("post: %d lines, %d moves, %d suppressed, %d tool changes, %d cycles",
		post.Stats.Lines, post.Stats.Moves, post.Stats.Suppressed, post.Stats.ToolChanges, post.Stats.Cycles)

	p.estimate(j, retVal)
	p.printStatistic(retVal)
	return retVal, nil
}

// report appends rep and decides whether the run goes on
func (p *Pipeline) report(res *Result, rep StageReport) error {
	rep.OK = rep.Err == nil
	if rep.OK && len(rep.Warnings) > 0 && p.cfg.Common.StrictWarnings {
		rep.OK = false
		rep.Err = fmt.Errorf("%s: %s: %w", rep.Operation, rep.Stage, ErrWarnings)
	}
	res.Reports = append(res.Reports, rep)
	for _, w := range rep.Warnings {
		glog.Warningln(rep.Operation + ": " + w)
	}
	p.logf("%v", rep)
	return rep.Err
}

func (p *Pipeline) runOperation(j *job.Job, op *operations.Operation, origin polygon.Point, res *Result) error {
	path := j.Path(op)
	src, err := p.readFile(path)
	if err != nil {
		return p.report(res, StageReport{Stage: StageRead, Operation: op.ID, Err: err})
	}
	if err := p.report(res, StageReport{Stage: StageRead, Operation: op.ID}); err != nil {
		return err
	}

	shift := polygon.Point{X: -p.cfg.Machine.XOrigin, Y: -p.cfg.Machine.YOrigin}
	if op.Kind == operations.KindDrill {
		parsed := excellon.Parse(src, p.cfg.ExcellonOptions())
		rep := StageReport{Stage: StageParse, Operation: op.ID, Warnings: parsed.Errors}
		if len(parsed.Holes) == 0 {
			rep.Err = fmt.Errorf("%s: no holes", path)
		}
		if err := p.report(res, rep); err != nil {
			return err
		}
		holes := make([]*primitives.Hole, 0, len(parsed.Holes))
		for _, h := range parsed.Holes {
			holes = append(holes, primitives.Translate(h, shift).(*primitives.Hole))
		}
		op.SetHoles(holes)
	} else {
		parsed := gerbparser.Parse(src, p.cfg.ParserOptions())
		rep := StageReport{Stage: StageParse, Operation: op.ID, Warnings: parsed.Errors}
		if len(parsed.Primitives) == 0 {
			rep.Err = fmt.Errorf("%s: nothing is drawn", path)
		}
		if err := p.report(res, rep); err != nil {
			return err
		}
		prims := make([]primitives.Primitive, 0, len(parsed.Primitives))
		for _, pr := range parsed.Primitives {
			prims = append(prims, primitives.Translate(pr, shift))
		}
		tree, err := fusion.New(p.engine, p.cfg.FusionConfig()).Fuse(prims)
		if err := p.report(res, StageReport{Stage: StageFuse, Operation: op.ID, Err: err}); err != nil {
			return err
		}
		op.SetCopper(tree)
	}

	err = op.Generate(operations.Generator{Engine: p.engine, Origin: origin})
	if err := p.report(res, StageReport{Stage: StagePlan, Operation: op.ID, Warnings: op.Warnings, Err: err}); err != nil {
		return err
	}
	p.saveIntermediate(op)
	return nil
}

func blocks(j *job.Job) []gcode.Block {
	retVal := make([]gcode.Block, 0, j.Len())
	for _, op := range j.Operations() {
		if len(op.Toolpaths) == 0 {
			continue
		}
		label := op.Params.ToolType
		if len(label) == 0 {
			label = "tool"
		}
		retVal = append(retVal, gcode.Block{
			Title:        op.String(),
			Tool:         op.Params.ToolNumber,
			ToolLabel:    fmt.Sprintf("%s %gmm", label, op.Params.ToolDiameter),
			SpindleSpeed: op.Params.SpindleSpeed,
			Toolpaths:    op.Toolpaths,
		})
	}
	return retVal
}

// estimate adds up the machining time, cuts at their feed and rapids at the
// machine rapid feed
func (p *Pipeline) estimate(j *job.Job, res *Result) {
	minutes := 0.0
	for _, op := range j.Operations() {
		for i := range op.Toolpaths {
			tp := &op.Toolpaths[i]
			cut, rapid := tp.CutLength(), tp.RapidLength()
			res.CutLength += cut
			res.RapidLength += rapid
			if op.Params.CutFeed > 0 {
				minutes += cut / op.Params.CutFeed
			}
			if p.cfg.Machine.RapidFeed > 0 {
				minutes += rapid / p.cfg.Machine.RapidFeed
			}
			for _, m := range tp.Moves {
				minutes += m.Dwell / 60
			}
		}
	}
	res.Estimate = time.Duration(minutes * float64(time.Minute))
}

func (p *Pipeline) logf(format string, args ...interface{}) {
	if p.Log == nil {
		return
	}
	fmt.Fprint(p.Log, timeInfo(time.Now(), p.start))
	fmt.Fprintf(p.Log, format+"\n", args...)
}

func (p *Pipeline) printStatistic(res *Result) {
	if !p.cfg.Common.PrintStatistic {
		return
	}
	p.logf("total cut length = %.0f mm, rapid length = %.0f mm", res.CutLength, res.RapidLength)
	p.logf("estimated machining time %v", res.Estimate.Round(time.Second))
	if w := res.Warnings(); len(w) > 0 {
		p.logf("%d warnings:\n%s", len(w), strings.Join(w, "\n"))
	}
}
