/*
Package gerbparser turns gerber RS-274X source into primitives and apertures
*/
package gerbparser

import (
	"fmt"
	"strconv"

	"github.com/golang/glog"

	"github.com/VasiliyTurchenko/gerber2gcode/amprocessor"
	"github.com/VasiliyTurchenko/gerber2gcode/apertures"
	"github.com/VasiliyTurchenko/gerber2gcode/blockapertures"
	. "github.com/VasiliyTurchenko/gerber2gcode/gerberbasetypes"
	"github.com/VasiliyTurchenko/gerber2gcode/polygon"
	"github.com/VasiliyTurchenko/gerber2gcode/primitives"
	"github.com/VasiliyTurchenko/gerber2gcode/regions"
	"github.com/VasiliyTurchenko/gerber2gcode/srblocks"
	. "github.com/VasiliyTurchenko/gerber2gcode/xy"
)

type Options struct {
	// chord deviation of flattened arcs, mm
	ArcTolerance float64
	// draws shorter than this are dropped, mm
	MinDrawLength float64
}

func DefaultOptions() Options {
	return Options{ArcTolerance: 0.005, MinDrawLength: MinDrawLength}
}

type Stats struct {
	Blocks     int
	Flashes    int
	Traces     int
	Arcs       int
	Regions    int
	Apertures  int
	Macros     int
	Skipped    int
	Degenerate int // dropped zero length draws
	// aperture blocks
	ABlocks int
}

func (s Stats) String() string {
	return fmt.Sprintf("blocks %d, flashes %d, traces %d, arcs %d, regions %d, apertures %d, aperture blocks %d, macros %d, skipped %d, dropped degenerate %d",
		s.Blocks, s.Flashes, s.Traces, s.Arcs, s.Regions, s.Apertures, s.ABlocks, s.Macros, s.Skipped, s.Degenerate)
}

type Result struct {
	Primitives []primitives.Primitive
	Apertures  apertures.Dictionary
	Blocks     map[int]*blockapertures.BlockAperture
	Macros     map[string]*amprocessor.ApertureMacro
	Errors     []string
	Stats      Stats
	Units      Units
	Format     *FormatSpec
}

// Context is the running state of one parse
type Context struct {
	opts     Options
	Format   *FormatSpec
	Units    Units
	Aperture *apertures.Aperture
	// selected block aperture, Aperture is nil then
	Block    *blockapertures.BlockAperture
	Pos      polygon.Point
	IpMode   IPmode
	QMode    QuadMode
	Polarity PolType
	// last D01/D02/D03 for coordinate blocks without an operation code
	LastOp ActType
	Region *regions.Region
	SR     *srblocks.SRBlock
	// open aperture blocks, innermost last
	ABlocks []*blockapertures.BlockAperture
	Result  *Result
	line    int
	groups  int
}

func newContext(opts Options) *Context {
	ctx := new(Context)
	ctx.opts = opts
	ctx.IpMode = IPModeLinear
	ctx.QMode = QuadModeMulti
	ctx.Polarity = PolTypeDark
	ctx.Result = &Result{
		Apertures:  make(apertures.Dictionary),
		Blocks:     make(map[int]*blockapertures.BlockAperture),
		Macros:     make(map[string]*amprocessor.ApertureMacro),
		Primitives: make([]primitives.Primitive, 0),
		Errors:     make([]string, 0),
	}
	return ctx
}

// errorf records a recoverable error of the current block
func (ctx *Context) errorf(format string, args ...interface{}) {
	s := "line " + strconv.Itoa(ctx.line) + ": " + fmt.Sprintf(format, args...)
	glog.Warningln(s)
	ctx.Result.Errors = append(ctx.Result.Errors, s)
}

// emit stores the primitive, inside an aperture block or a step and repeat
// block it goes to the block
func (ctx *Context) emit(p primitives.Primitive) {
	if n := len(ctx.ABlocks); n > 0 {
		ctx.ABlocks[n-1].Add(p)
		return
	}
	if ctx.SR != nil {
		ctx.SR.Add(p)
		return
	}
	ctx.Result.Primitives = append(ctx.Result.Primitives, p)
}

func (ctx *Context) closeSR() {
	if ctx.SR == nil {
		return
	}
	sr := ctx.SR
	ctx.SR = nil
	glog.V(2).Infoln(sr.String()+"ends at line", ctx.line)
	for _, p := range sr.Expand() {
		ctx.emit(p)
	}
}

// codeInUse tells whether a D code is taken by an aperture or an aperture block
func (ctx *Context) codeInUse(code int) bool {
	if _, ok := ctx.Result.Apertures.Get(code); ok {
		return true
	}
	_, ok := ctx.Result.Blocks[code]
	return ok
}
