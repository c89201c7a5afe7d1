/*
Package excellon reads Excellon drill files into tools and holes
*/
package excellon

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/golang/glog"

	"github.com/VasiliyTurchenko/gerber2gcode/gerberlexer"
	. "github.com/VasiliyTurchenko/gerber2gcode/gerberbasetypes"
	"github.com/VasiliyTurchenko/gerber2gcode/polygon"
	"github.com/VasiliyTurchenko/gerber2gcode/primitives"
	. "github.com/VasiliyTurchenko/gerber2gcode/xy"
)

const (
	DefaultToolCode = "T00"
	// mm
	DefaultToolDiameter = 1.0
)

type Tool struct {
	Code     string // canonical, T01
	Diameter float64
	Feed     float64 // as given by F word, source units
	Speed    float64 // as given by S word
	// created by the parser for a hole without a defined tool
	Synthetic bool
}

func (t *Tool) String() string {
	retVal := t.Code + " D=" + strconv.FormatFloat(t.Diameter, 'f', 3, 64) + "mm"
	if t.Synthetic {
		retVal += " (default)"
	}
	return retVal
}

type Options struct {
	// diameter of the tools created for undefined references, mm
	DefaultDiameter float64
	// units assumed when the file has none
	DefaultUnits Units
}

func DefaultOptions() Options {
	return Options{DefaultDiameter: DefaultToolDiameter, DefaultUnits: UnitsMM}
}

type Stats struct {
	Lines   int
	Holes   int
	Slots   int
	Tools   int
	Skipped int
}

func (s Stats) String() string {
	return fmt.Sprintf("lines %d, holes %d, slots %d, tools %d, skipped %d",
		s.Lines, s.Holes, s.Slots, s.Tools, s.Skipped)
}

type Result struct {
	Holes  []*primitives.Hole
	Tools  map[string]*Tool
	Errors []string
	Stats  Stats
	Units  Units
}

// ToolCodes returns the tool codes in ascending order
func (r *Result) ToolCodes() []string {
	retVal := make([]string, 0, len(r.Tools))
	for k := range r.Tools {
		retVal = append(retVal, k)
	}
	sort.Strings(retVal)
	return retVal
}

// HolesOf returns the holes drilled by the tool
func (r *Result) HolesOf(code string) []*primitives.Hole {
	retVal := make([]*primitives.Hole, 0)
	for _, h := range r.Holes {
		if h.Tool == code {
			retVal = append(retVal, h)
		}
	}
	return retVal
}

type context struct {
	opts     Options
	format   *FormatSpec
	digits   bool // explicit digit template seen
	inHeader bool
	current  *Tool
	pos      polygon.Point
	result   *Result
	line     int
}

// CanonicalToolCode converts T1, T01, T001 into T01
func CanonicalToolCode(n int) string {
	return fmt.Sprintf("T%02d", n)
}

func Parse(src []byte, opts Options) *Result {
	if opts.DefaultDiameter <= 0 {
		opts.DefaultDiameter = DefaultToolDiameter
	}
	if opts.DefaultUnits == 0 {
		opts.DefaultUnits = UnitsMM
	}
	ctx := &context{
		opts: opts,
		result: &Result{
			Holes:  make([]*primitives.Hole, 0),
			Tools:  make(map[string]*Tool),
			Errors: make([]string, 0),
		},
	}
	ctx.setUnits(opts.DefaultUnits)
	lines := gerberlexer.TokenizeLines(src)
	for b, ok := lines.Next(); ok; b, ok = lines.Next() {
		ctx.line = b.Line
		ctx.result.Stats.Lines++
		if stop := ctx.handleLine(b.Text); stop {
			break
		}
	}
	ctx.result.Units = ctx.format.Units
	ctx.result.Stats.Tools = len(ctx.result.Tools)
	glog.Infoln("excellon: " + ctx.result.Stats.String())
	return ctx.result
}

func (ctx *context) errorf(format string, args ...interface{}) {
	s := "line " + strconv.Itoa(ctx.line) + ": " + fmt.Sprintf(format, args...)
	glog.Warningln(s)
	ctx.result.Errors = append(ctx.result.Errors, s)
}

// setUnits switches units and, unless the file gave a template, the default digit split
func (ctx *context) setUnits(u Units) {
	if ctx.format == nil {
		ctx.format = NewFormatSpec(3, 3, u, OmitLeading)
	}
	ctx.format.Units = u
	if ctx.digits {
		return
	}
	if u == UnitsInch {
		ctx.format.XI, ctx.format.XD, ctx.format.YI, ctx.format.YD = 2, 4, 2, 4
	} else {
		ctx.format.XI, ctx.format.XD, ctx.format.YI, ctx.format.YD = 3, 3, 3, 3
	}
}

// returns true on the end of file
func (ctx *context) handleLine(s string) bool {
	s = strings.ToUpper(s)
	switch {
	case strings.HasPrefix(s, ";"):
		glog.V(2).Infoln("comment: " + s)
	case s == "M48":
		ctx.inHeader = true
	case s == "M95" || s == "%":
		ctx.inHeader = false
	case s == "M30" || s == "M00":
		return true
	case strings.HasPrefix(s, "METRIC") || strings.HasPrefix(s, "INCH"):
		ctx.unitsLine(s)
	case s == "M71":
		ctx.setUnits(UnitsMM)
	case s == "M72":
		ctx.setUnits(UnitsInch)
	case s == "G90":
		ctx.format.Incremental = false
	case s == "G91":
		ctx.format.Incremental = true
	case strings.HasPrefix(s, "FMAT"), strings.HasPrefix(s, "VER"), strings.HasPrefix(s, "ICI"),
		s == "G05", s == "G81", s == "M47", strings.HasPrefix(s, "ATC"):
		glog.V(2).Infoln("ignored: " + s)
	case strings.HasPrefix(s, "T"):
		ctx.toolLine(s)
	case strings.HasPrefix(s, "X"), strings.HasPrefix(s, "Y"):
		ctx.holeLine(s)
	default:
		glog.Warningln("skipped: " + s)
		ctx.result.Stats.Skipped++
	}
	return false
}

// METRIC,LZ,000.000 or INCH,TZ
func (ctx *context) unitsLine(s string) {
	fields := strings.Split(s, ",")
	for _, f := range fields[1:] {
		f = strings.TrimSpace(f)
		switch {
		case f == "LZ":
			// leading zeros are present, trailing ones may be omitted
			ctx.format.Omission = OmitTrailing
		case f == "TZ":
			ctx.format.Omission = OmitLeading
		case strings.Contains(f, "."):
			parts := strings.SplitN(f, ".", 2)
			ctx.format.XI, ctx.format.XD = len(parts[0]), len(parts[1])
			ctx.format.YI, ctx.format.YD = ctx.format.XI, ctx.format.XD
			ctx.digits = true
		default:
			ctx.errorf("unknown units modifier %q", f)
		}
	}
	if fields[0] == "INCH" {
		ctx.setUnits(UnitsInch)
	} else {
		ctx.setUnits(UnitsMM)
	}
}

// T01C0.8, T1F200S3C0.8 define a tool, T01 selects one, T0 unloads
func (ctx *context) toolLine(s string) {
	words, err := splitWords(s)
	if err != nil {
		ctx.errorf("%v", err)
		ctx.result.Stats.Skipped++
		return
	}
	n, err := strconv.Atoi(words['T'])
	if err != nil {
		ctx.errorf("bad tool number in %q", s)
		ctx.result.Stats.Skipped++
		return
	}
	if n == 0 {
		ctx.current = nil
		return
	}
	code := CanonicalToolCode(n)
	if d, ok := words['C']; ok {
		v, err := strconv.ParseFloat(d, 64)
		if err != nil || v <= 0 {
			ctx.errorf("bad tool diameter in %q", s)
			ctx.result.Stats.Skipped++
			return
		}
		if _, ok := ctx.result.Tools[code]; ok {
			ctx.errorf("tool %s is already defined", code)
			ctx.result.Stats.Skipped++
			return
		}
		tool := &Tool{Code: code, Diameter: v * ctx.format.Scale()}
		tool.Feed, _ = strconv.ParseFloat(words['F'], 64)
		tool.Speed, _ = strconv.ParseFloat(words['S'], 64)
		ctx.result.Tools[code] = tool
		glog.V(2).Infoln("tool defined: " + tool.String())
		if ctx.inHeader {
			return
		}
	}
	tool, ok := ctx.result.Tools[code]
	if !ok {
		ctx.errorf("tool %s is not defined, diameter %.3fmm assumed", code, ctx.opts.DefaultDiameter)
		tool = &Tool{Code: code, Diameter: ctx.opts.DefaultDiameter, Synthetic: true}
		ctx.result.Tools[code] = tool
	}
	ctx.current = tool
}

// splits T1F200S3C0.8 into letter:value
func splitWords(s string) (map[byte]string, error) {
	retVal := make(map[byte]string)
	pos := 0
	for pos < len(s) {
		letter := s[pos]
		if letter < 'A' || letter > 'Z' {
			return nil, fmt.Errorf("unexpected %q in %q", letter, s)
		}
		end := pos + 1
		for end < len(s) && (s[end] < 'A' || s[end] > 'Z') {
			end++
		}
		retVal[letter] = s[pos+1 : end]
		pos = end
	}
	return retVal, nil
}

// X..Y.. hole or X..Y..G85X..Y.. slot
func (ctx *context) holeLine(s string) {
	var start, end string
	slot := false
	if i := strings.Index(s, "G85"); i != -1 {
		start, end, slot = s[:i], s[i+3:], true
	} else {
		start = s
	}
	xy := new(XY)
	if err := xy.Init(start, ctx.format, ctx.pos.X, ctx.pos.Y); err != nil {
		ctx.errorf("%v", err)
		ctx.result.Stats.Skipped++
		return
	}
	at := polygon.Point{X: xy.X, Y: xy.Y}
	ctx.pos = at
	if ctx.current == nil {
		tool, ok := ctx.result.Tools[DefaultToolCode]
		if !ok {
			tool = &Tool{Code: DefaultToolCode, Diameter: ctx.opts.DefaultDiameter, Synthetic: true}
			ctx.result.Tools[DefaultToolCode] = tool
		}
		ctx.errorf("hole before tool selection, default tool %s", tool.String())
		ctx.current = tool
	}
	hole := primitives.NewHole(at, ctx.current.Diameter, ctx.current.Code, ctx.line)
	if slot {
		if err := xy.Init(end, ctx.format, at.X, at.Y); err != nil {
			ctx.errorf("%v", err)
			ctx.result.Stats.Skipped++
			return
		}
		hole.End = polygon.Point{X: xy.X, Y: xy.Y}
		hole.Slot = true
		ctx.pos = hole.End
		ctx.result.Stats.Slots++
	} else {
		ctx.result.Stats.Holes++
	}
	ctx.result.Holes = append(ctx.result.Holes, hole)
}
