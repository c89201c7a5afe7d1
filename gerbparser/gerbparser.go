package gerbparser

import (
	"math"
	"strconv"
	"strings"

	"github.com/golang/glog"

	"github.com/VasiliyTurchenko/gerber2gcode/amprocessor"
	"github.com/VasiliyTurchenko/gerber2gcode/apertures"
	"github.com/VasiliyTurchenko/gerber2gcode/blockapertures"
	"github.com/VasiliyTurchenko/gerber2gcode/gerberlexer"
	. "github.com/VasiliyTurchenko/gerber2gcode/gerberbasetypes"
	"github.com/VasiliyTurchenko/gerber2gcode/polygon"
	"github.com/VasiliyTurchenko/gerber2gcode/primitives"
	"github.com/VasiliyTurchenko/gerber2gcode/regions"
	"github.com/VasiliyTurchenko/gerber2gcode/srblocks"
	. "github.com/VasiliyTurchenko/gerber2gcode/xy"
)

type GerberStringProcessingResult int

const (
	SCResultNextString GerberStringProcessingResult = iota + 1 // block is processed
	SCResultSkipString                                         // block was skipped
	SCResultStop
)

// Parse parses the whole gerber source. Recoverable problems go to Result.Errors,
// the parse never fails as a whole.
func Parse(src []byte, opts Options) *Result {
	if opts.ArcTolerance <= 0 {
		opts.ArcTolerance = DefaultOptions().ArcTolerance
	}
	if opts.MinDrawLength <= 0 {
		opts.MinDrawLength = MinDrawLength
	}
	ctx := newContext(opts)
	storage := gerberlexer.Tokenize(src)
	for b, ok := storage.Next(); ok; b, ok = storage.Next() {
		ctx.line = b.Line
		ctx.Result.Stats.Blocks++
		res := ctx.handleBlock(b.Text)
		if res == SCResultSkipString {
			ctx.Result.Stats.Skipped++
		}
		if res == SCResultStop {
			glog.V(2).Infoln("Stop found at line", ctx.line)
			break
		}
	}
	ctx.finish()
	glog.Infoln("gerber: " + ctx.Result.Stats.String())
	return ctx.Result
}

func (ctx *Context) finish() {
	if ctx.Region != nil {
		ctx.errorf("region opened at line %d is not closed", ctx.Region.G36StringNumber)
		ctx.Region = nil
	}
	for _, ba := range ctx.ABlocks {
		ctx.errorf("aperture block D%d opened at line %d is not closed", ba.Code, ba.StartStringNum)
	}
	ctx.ABlocks = nil
	ctx.closeSR()
	if ctx.Units == 0 {
		ctx.errorf("units are not defined, mm assumed")
		ctx.Units = UnitsMM
	}
	ctx.Result.Units = ctx.Units
	ctx.Result.Format = ctx.Format
}

func (ctx *Context) handleBlock(s string) GerberStringProcessingResult {
	if strings.HasPrefix(s, "%") {
		if strings.HasPrefix(s, GerberApertureMacroDef) {
			return ctx.handleMacro(s)
		}
		retVal := SCResultNextString
		for _, st := range gerberlexer.SplitExtended(s) {
			if r := ctx.handleExtended("%" + st + "*%"); r != SCResultNextString {
				retVal = r
			}
		}
		return retVal
	}
	s = strings.TrimSuffix(s, "*")
	// G codes may precede the data in the same block, e.g. G01X100Y100D01
	for strings.HasPrefix(s, "G") {
		end := 1
		for end < len(s) && s[end] >= '0' && s[end] <= '9' {
			end++
		}
		code, err := strconv.Atoi(s[1:end])
		if err != nil {
			ctx.errorf("bad G code in %q", s)
			return SCResultSkipString
		}
		if code == 4 {
			return SCResultNextString // comment
		}
		if r := ctx.handleG(code); r != SCResultNextString {
			return r
		}
		s = s[end:]
	}
	switch {
	case len(s) == 0:
		return SCResultNextString
	case s == "M02" || s == "M00":
		ctx.closeSR()
		return SCResultStop
	case s == "M01":
		return SCResultNextString
	case strings.HasPrefix(s, "D"):
		n, err := strconv.Atoi(s[1:])
		if err != nil {
			ctx.errorf("bad D code %q", s)
			return SCResultSkipString
		}
		if n >= 10 {
			return ctx.selectAperture(n)
		}
		return ctx.operation(s, "", ActType(n))
	case strings.IndexByte("XYIJ", s[0]) != -1:
		dpos := strings.LastIndexByte(s, 'D')
		if dpos == -1 {
			if ctx.LastOp == 0 {
				glog.Warningln("Implicit DRAW command found in " + s)
				ctx.LastOp = OpcodeD01_DRAW
			}
			return ctx.operation(s, s, ctx.LastOp)
		}
		n, err := strconv.Atoi(s[dpos+1:])
		if err != nil || n < 1 || n > 3 {
			ctx.errorf("bad operation code in %q", s)
			return SCResultSkipString
		}
		return ctx.operation(s, s[:dpos], ActType(n))
	default:
	}
	glog.Warningln("skipped: " + s)
	return SCResultSkipString
}

func (ctx *Context) handleG(code int) GerberStringProcessingResult {
	switch code {
	case 1:
		ctx.IpMode = IPModeLinear
	case 2:
		ctx.IpMode = IPModeCwC
	case 3:
		ctx.IpMode = IPModeCCwC
	case 74:
		ctx.QMode = QuadModeSingle
	case 75:
		ctx.QMode = QuadModeMulti
	case 36:
		if open, _ := ctx.Region.IsRegionOpened(); open {
			ctx.errorf("G36 inside an open region")
			return SCResultSkipString
		}
		ctx.groups++
		ctx.Region = regions.NewRegion(ctx.groups, ctx.line)
	case 37:
		ctx.closeRegion()
	case 54, 55:
		// aperture select / prepare for flash prefixes
	case 70:
		ctx.setUnits(UnitsInch)
	case 71:
		ctx.setUnits(UnitsMM)
	case 90, 91:
		if ctx.Format == nil {
			ctx.errorf("G%d before format specification", code)
			return SCResultSkipString
		}
		ctx.Format.Incremental = code == 91
	default:
		ctx.errorf("unsupported G%02d", code)
		return SCResultSkipString
	}
	return SCResultNextString
}

func (ctx *Context) setUnits(u Units) {
	ctx.Units = u
	if ctx.Format != nil {
		ctx.Format.Units = u
	}
}

func (ctx *Context) handleExtended(s string) GerberStringProcessingResult {
	switch {
	case strings.HasPrefix(s, GerberFormatSpec):
		fs := new(FormatSpec)
		if err := fs.Init(s); err != nil {
			ctx.errorf("%v", err)
			return SCResultSkipString
		}
		fs.Units = ctx.Units
		ctx.Format = fs
	case s == GerberMOMM:
		ctx.setUnits(UnitsMM)
	case s == GerberMOIN:
		ctx.setUnits(UnitsInch)
	case strings.HasPrefix(s, GerberApertureDef):
		ap := new(apertures.Aperture)
		if ctx.Units == 0 {
			ctx.setUnits(UnitsMM)
			ctx.errorf("aperture defined before units, mm assumed")
		}
		if err := ap.Init(s, ctx.Units, ctx.Result.Macros); err != nil {
			ctx.errorf("%v", err)
			return SCResultSkipString
		}
		if _, ok := ctx.Result.Blocks[ap.Code]; ok {
			ctx.errorf("D%d is already defined as an aperture block", ap.Code)
			return SCResultSkipString
		}
		if err := ctx.Result.Apertures.Add(ap); err != nil {
			ctx.errorf("%v", err)
			return SCResultSkipString
		}
		ctx.Result.Stats.Apertures++
	case strings.HasPrefix(s, GerberApertureBlockDef):
		return ctx.apertureBlock(s)
	case s == GerberPolarityDark:
		ctx.Polarity = PolTypeDark
	case s == GerberPolarityClear:
		ctx.Polarity = PolTypeClear
	case strings.HasPrefix(s, GerberStepRepeat):
		ctx.closeSR()
		if srblocks.IsClosing(s) {
			return SCResultNextString
		}
		sr := new(srblocks.SRBlock)
		if err := sr.Init(s, ctx.Units); err != nil {
			ctx.errorf("%v", err)
			return SCResultSkipString
		}
		if sr.NumX() == 1 && sr.NumY() == 1 {
			return SCResultNextString
		}
		glog.V(2).Infoln("Step and repeat block found at line", ctx.line)
		ctx.SR = sr
	case strings.HasPrefix(s, "%TF"), strings.HasPrefix(s, "%TA"),
		strings.HasPrefix(s, "%TO"), strings.HasPrefix(s, "%TD"),
		strings.HasPrefix(s, "%IP"), strings.HasPrefix(s, "%LN"),
		strings.HasPrefix(s, "%IN"):
		glog.V(2).Infoln("ignored: " + s)
	default:
		glog.Warningln("skipped: " + s)
		return SCResultSkipString
	}
	return SCResultNextString
}

func (ctx *Context) handleMacro(s string) GerberStringProcessingResult {
	am, err := amprocessor.NewApertureMacro(gerberlexer.SplitExtended(s))
	if err != nil {
		ctx.errorf("%v", err)
		return SCResultSkipString
	}
	if _, ok := ctx.Result.Macros[am.Name]; ok {
		ctx.errorf("aperture macro %s is already defined", am.Name)
		return SCResultSkipString
	}
	ctx.Result.Macros[am.Name] = am
	ctx.Result.Stats.Macros++
	return SCResultNextString
}

// apertureBlock opens or closes an aperture block, blocks may be nested
func (ctx *Context) apertureBlock(s string) GerberStringProcessingResult {
	if blockapertures.IsClosing(s) {
		n := len(ctx.ABlocks)
		if n == 0 {
			ctx.errorf("aperture block end without a beginning")
			return SCResultSkipString
		}
		ba := ctx.ABlocks[n-1]
		ctx.ABlocks = ctx.ABlocks[:n-1]
		if ctx.codeInUse(ba.Code) {
			ctx.errorf("aperture block D%d is already defined", ba.Code)
			return SCResultSkipString
		}
		ctx.Result.Blocks[ba.Code] = ba
		ctx.Result.Stats.ABlocks++
		glog.V(2).Infoln(ba)
		return SCResultNextString
	}
	ba := new(blockapertures.BlockAperture)
	if err := ba.Init(s, ctx.line); err != nil {
		ctx.errorf("%v", err)
		return SCResultSkipString
	}
	ctx.ABlocks = append(ctx.ABlocks, ba)
	return SCResultNextString
}

func (ctx *Context) selectAperture(code int) GerberStringProcessingResult {
	if ba, ok := ctx.Result.Blocks[code]; ok {
		ctx.Aperture, ctx.Block = nil, ba
		return SCResultNextString
	}
	ctx.Block = nil
	ap, ok := ctx.Result.Apertures.Get(code)
	if !ok {
		ctx.Aperture = nil
		ctx.errorf("the aperture D%d does not exist", code)
		return SCResultSkipString
	}
	ctx.Aperture = ap
	return SCResultNextString
}

// operation processes D01, D02 and D03 with the coordinate data
func (ctx *Context) operation(block, coords string, op ActType) GerberStringProcessingResult {
	if ctx.Format == nil {
		ctx.errorf("coordinate data before format specification: %q", block)
		return SCResultSkipString
	}
	xy := new(XY)
	if err := xy.Init(coords, ctx.Format, ctx.Pos.X, ctx.Pos.Y); err != nil {
		ctx.errorf("%v", err)
		return SCResultSkipString
	}
	to := polygon.Point{X: xy.X, Y: xy.Y}
	ctx.LastOp = op
	retVal := SCResultNextString
	switch op {
	case OpcodeD02_MOVE:
		if ctx.Region != nil {
			if err := ctx.Region.MoveTo(to); err != nil {
				ctx.errorf("%v", err)
			}
		}
	case OpcodeD01_DRAW:
		retVal = ctx.interpolate(to, xy)
	case OpcodeD03_FLASH:
		retVal = ctx.flash(to)
	default:
		ctx.errorf("bad operation code in %q", block)
		return SCResultSkipString
	}
	ctx.Pos = to
	return retVal
}

func (ctx *Context) flash(at polygon.Point) GerberStringProcessingResult {
	if open, _ := ctx.Region.IsRegionOpened(); open {
		ctx.errorf("flash inside a region")
		return SCResultSkipString
	}
	if ctx.Block != nil {
		for _, p := range ctx.Block.Flash(at, ctx.Polarity) {
			ctx.emit(p)
		}
		ctx.Result.Stats.Flashes++
		return SCResultNextString
	}
	if ctx.Aperture == nil {
		ctx.errorf("flash with undefined aperture")
		return SCResultSkipString
	}
	ctx.emit(primitives.NewFlash(at, ctx.Aperture, ctx.Polarity, ctx.line))
	ctx.Result.Stats.Flashes++
	return SCResultNextString
}

func (ctx *Context) interpolate(to polygon.Point, xy *XY) GerberStringProcessingResult {
	from := ctx.Pos
	if ctx.IpMode == IPModeLinear {
		if ctx.Region != nil {
			ctx.Region.LineTo(from, to)
			return SCResultNextString
		}
		if ctx.Aperture == nil {
			ctx.errorf("draw with undefined aperture")
			return SCResultSkipString
		}
		if from.Dist(to) < ctx.opts.MinDrawLength {
			ctx.Result.Stats.Degenerate++
			return SCResultNextString
		}
		ctx.emit(primitives.NewTrace(from, to, ctx.Aperture, ctx.Polarity, ctx.line))
		ctx.Result.Stats.Traces++
		return SCResultNextString
	}

	ccw := ctx.IpMode == IPModeCCwC
	centre, full, ok := ctx.arcCentre(from, to, xy.I, xy.J, ccw)
	if !ok {
		ctx.Result.Stats.Degenerate++
		return SCResultNextString
	}
	if ctx.Region != nil {
		sweep := primitives.ArcSweep(from, to, centre, ccw, full)
		pts := polygon.Arc(from, centre, sweep, ctx.opts.ArcTolerance)
		if len(pts) > 0 {
			pts[len(pts)-1] = to
		}
		ctx.Region.ArcTo(from, pts)
		return SCResultNextString
	}
	if ctx.Aperture == nil {
		ctx.errorf("arc with undefined aperture")
		return SCResultSkipString
	}
	ctx.emit(primitives.NewArc(from, to, centre, ccw, full, ctx.Aperture, ctx.Polarity, ctx.line))
	ctx.Result.Stats.Arcs++
	return SCResultNextString
}

// arcCentre finds the arc centre. In single quadrant mode I and J are unsigned
// and the centre is the candidate giving an arc not exceeding 90 degrees with
// the closest start and end radii.
func (ctx *Context) arcCentre(from, to polygon.Point, i, j float64, ccw bool) (polygon.Point, bool, bool) {
	closed := from.Dist(to) < ctx.opts.MinDrawLength
	if i == 0 && j == 0 {
		return polygon.Point{}, false, false
	}
	if ctx.QMode != QuadModeSingle {
		return polygon.Point{X: from.X + i, Y: from.Y + j}, closed, true
	}
	if closed {
		return polygon.Point{}, false, false
	}
	i, j = math.Abs(i), math.Abs(j)
	best := math.Inf(1)
	var retVal polygon.Point
	for _, sx := range []float64{1, -1} {
		for _, sy := range []float64{1, -1} {
			c := polygon.Point{X: from.X + sx*i, Y: from.Y + sy*j}
			sweep := math.Abs(primitives.ArcSweep(from, to, c, ccw, false))
			if sweep > math.Pi/2+1e-6 {
				continue
			}
			if d := math.Abs(from.Dist(c) - to.Dist(c)); d < best {
				best, retVal = d, c
			}
		}
	}
	if math.IsInf(best, 1) {
		ctx.errorf("no centre found for single quadrant arc %v -> %v", from, to)
		return polygon.Point{}, false, false
	}
	return retVal, false, true
}

func (ctx *Context) closeRegion() {
	if ctx.Region == nil {
		ctx.errorf("G37 without G36")
		return
	}
	contours, err := ctx.Region.Close(ctx.line)
	if err != nil {
		ctx.errorf("%v", err)
	}
	for _, c := range contours {
		ctx.emit(primitives.NewRegion(c, ctx.Region.Group, ctx.Polarity, ctx.Region.G36StringNumber))
	}
	if len(contours) > 0 {
		ctx.Result.Stats.Regions++
	}
	ctx.Region = nil
}
