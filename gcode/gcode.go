/*
Package gcode generates G-code programs from toolpaths through a modal state
machine
*/
package gcode

import (
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/glog"

	"github.com/VasiliyTurchenko/gerber2gcode/toolpath"
)

// positions closer than epsilon mm are the same
const epsilon = 1e-6

type Options struct {
	Dialect          string
	ModalSuppression bool
	// full circles are emitted with the motion word and all coordinates
	FullCircleDetection bool
	SafeZ               float64
	SpindleDwell        float64 // seconds of spin-up after M3
	CoordinateSystem    string
	PathTolerance       float64 // G64 P
	ReturnToOrigin      bool
	StartMacro          []string
	EndMacro            []string
}

func DefaultOptions() Options {
	return Options{
		Dialect:             "grbl",
		ModalSuppression:    true,
		FullCircleDetection: true,
		SafeZ:               10,
		SpindleDwell:        2,
		CoordinateSystem:    "G54",
		PathTolerance:       0.01,
		ReturnToOrigin:      true,
	}
}

type Stats struct {
	Lines       int
	Moves       int
	Suppressed  int
	ToolChanges int
	Cycles      int
}

// Block is one operation of the program
type Block struct {
	Title        string
	Tool         int
	ToolLabel    string
	SpindleSpeed float64
	Toolpaths    []toolpath.Toolpath
}

/*
	Post processor current status and statistic
*/
type Post struct {
	opts            Options
	dialect         Dialect
	state           ModalState
	Stats           Stats
	outStringBuffer []string
}

func New(opts Options) (*Post, error) {
	d, err := LookupDialect(opts.Dialect)
	if err != nil {
		return nil, err
	}
	return NewWithDialect(opts, d), nil
}

func NewWithDialect(opts Options, d Dialect) *Post {
	retVal := &Post{opts: opts, dialect: d}
	retVal.Reset()
	return retVal
}

func (post *Post) Dialect() Dialect {
	return post.dialect
}

func (post *Post) State() ModalState {
	return post.state
}

// Reset drops the emitted text and the modal state
func (post *Post) Reset() {
	post.state.Reset()
	post.Stats = Stats{}
	post.outStringBuffer = make([]string, 0)
}

func (post *Post) String() string {
	return strings.Join(post.outStringBuffer, "")
}

func (post *Post) WriteTo(w io.Writer) (int64, error) {
	var retVal int64
	for _, s := range post.outStringBuffer {
		n, err := io.WriteString(w, s)
		retVal += int64(n)
		if err != nil {
			return retVal, err
		}
	}
	return retVal, nil
}

func (post *Post) emit(s string) string {
	if len(s) == 0 {
		return s
	}
	post.outStringBuffer = append(post.outStringBuffer, s+"\n")
	post.Stats.Lines++
	return s
}

func formatNumber(v float64, prec int) string {
	s := strconv.FormatFloat(v, 'f', prec, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		s = "0"
	}
	return s
}

func (post *Post) coord(v float64) string {
	return formatNumber(v, post.dialect.CoordPrecision)
}

var commentReplacer = strings.NewReplacer("(", "[", ")", "]", "\n", " ")

func (post *Post) Comment(s string) string {
	if len(s) == 0 {
		return ""
	}
	return post.emit("(" + commentReplacer.Replace(s) + ")")
}

func (post *Post) modal(field *string, word string) string {
	if post.opts.ModalSuppression && *field == word {
		return ""
	}
	*field = word
	return post.emit(word)
}

/* ############################## program layout ############################## */

// Header sets units, distance mode, plane, feed mode and the coordinate system
func (post *Post) Header(title string) {
	post.Comment(title)
	post.modal(&post.state.Units, "G21")
	post.modal(&post.state.Distance, "G90")
	post.modal(&post.state.Plane, "G17")
	post.modal(&post.state.FeedMode, "G94")
	coords := post.opts.CoordinateSystem
	if len(coords) == 0 {
		coords = "G54"
	}
	post.modal(&post.state.Coords, coords)
	if post.dialect.PathBlending && post.opts.PathTolerance > 0 {
		post.emit("G64 P" + post.coord(post.opts.PathTolerance))
	}
	for _, s := range post.opts.StartMacro {
		post.emit(s)
	}
}

// Footer retracts, stops the spindle, returns to the origin and ends the program
func (post *Post) Footer() {
	post.RapidZ(post.opts.SafeZ)
	post.Spindle(0)
	if post.opts.ReturnToOrigin {
		post.safeRapid(mgl64.Vec3{0, 0, post.opts.SafeZ})
	}
	for _, s := range post.opts.EndMacro {
		post.emit(s)
	}
	post.emit(post.dialect.ProgramEnd)
}

// Block emits one operation: tool change, spindle and its toolpaths
func (post *Post) Block(b Block) {
	post.Comment(b.Title)
	post.ToolChange(b.Tool, b.ToolLabel)
	if !post.state.Known[axisZ] {
		post.RapidZ(post.opts.SafeZ)
	}
	post.Spindle(b.SpindleSpeed)
	for i := range b.Toolpaths {
		post.Toolpath(b.Toolpaths[i])
	}
}

// Program resets the post processor and returns the complete program text
func (post *Post) Program(title string, blocks []Block) string {
	post.Reset()
	post.Header(title)
	for _, b := range blocks {
		post.Block(b)
	}
	post.Footer()
	glog.V(2).Infof("%s program: %d lines, %d moves, %d suppressed", post.dialect.Name, post.Stats.Lines, post.Stats.Moves, post.Stats.Suppressed)
	return post.String()
}

/* ############################## motion ############################## */

func (post *Post) Rapid(to mgl64.Vec3) string {
	return post.motion(MotionRapid, to, [3]bool{true, true, true}, 0, nil)
}

func (post *Post) RapidZ(z float64) string {
	return post.motion(MotionRapid, mgl64.Vec3{post.state.Pos[axisX], post.state.Pos[axisY], z}, [3]bool{false, false, true}, 0, nil)
}

func (post *Post) Linear(to mgl64.Vec3, feed float64) string {
	return post.motion(MotionLinear, to, [3]bool{true, true, true}, feed, nil)
}

// Arc moves along a circle around the absolute centre
func (post *Post) Arc(cw bool, to mgl64.Vec3, centre mgl64.Vec2, feed float64) string {
	mode := MotionArcCCW
	if cw {
		mode = MotionArcCW
	}
	if !post.state.Known[axisX] || !post.state.Known[axisY] {
		glog.Errorln("arc from an unknown position to " + post.coord(to.X()) + "," + post.coord(to.Y()))
	}
	if post.dialect.Arcs == ArcR && post.isFullCircle(to) {
		// R can not describe a full circle, split it at the opposite point
		start := mgl64.Vec2{post.state.Pos[axisX], post.state.Pos[axisY]}
		mid := centre.Mul(2).Sub(start)
		z := (post.state.Pos[axisZ] + to.Z()) / 2
		post.motion(mode, mgl64.Vec3{mid.X(), mid.Y(), z}, [3]bool{true, true, true}, feed, &centre)
		return post.motion(mode, to, [3]bool{true, true, true}, feed, &centre)
	}
	return post.motion(mode, to, [3]bool{true, true, true}, feed, &centre)
}

func (post *Post) isFullCircle(to mgl64.Vec3) bool {
	return post.state.Known[axisX] && post.state.Known[axisY] &&
		math.Abs(to.X()-post.state.Pos[axisX]) <= epsilon &&
		math.Abs(to.Y()-post.state.Pos[axisY]) <= epsilon
}

// motion emits one move. Words of unchanged axes are dropped unless the
// motion mode changes or the move is a full circle.
func (post *Post) motion(mode MotionMode, to mgl64.Vec3, use [3]bool, feed float64, centre *mgl64.Vec2) string {
	post.Stats.Moves++
	suppress := post.opts.ModalSuppression
	isArc := centre != nil
	full := isArc && post.opts.FullCircleDetection && post.isFullCircle(to)
	force := post.state.Motion != mode || full || !suppress

	words := make([]string, 0, 7)
	if force {
		words = append(words, mode.String())
	}
	for i := 0; i < 3; i++ {
		switch {
		case use[i]:
			if force || !post.state.Known[i] || math.Abs(to[i]-post.state.Pos[i]) > epsilon {
				words = append(words, axisNames[i]+post.coord(to[i]))
			}
		case force && post.state.Known[i]:
			words = append(words, axisNames[i]+post.coord(post.state.Pos[i]))
		default:
		}
	}
	if isArc {
		words = append(words, post.arcWords(mode, to, *centre)...)
	}
	if feed > 0 && (!suppress || !post.state.FeedKnown || math.Abs(feed-post.state.Feed) > epsilon) {
		words = append(words, "F"+formatNumber(feed, post.dialect.FeedPrecision))
		post.state.Feed = feed
		post.state.FeedKnown = true
	}
	post.state.Motion = mode
	for i := 0; i < 3; i++ {
		if use[i] {
			post.state.Pos[i] = to[i]
			post.state.Known[i] = true
		}
	}
	if len(words) == 0 {
		post.Stats.Suppressed++
		return ""
	}
	return post.emit(strings.Join(words, " "))
}

func (post *Post) arcWords(mode MotionMode, to mgl64.Vec3, centre mgl64.Vec2) []string {
	x, y := post.state.Pos[axisX], post.state.Pos[axisY]
	if post.dialect.Arcs == ArcIJ {
		return []string{"I" + post.coord(centre.X()-x), "J" + post.coord(centre.Y()-y)}
	}
	r := math.Hypot(x-centre.X(), y-centre.Y())
	a0 := math.Atan2(y-centre.Y(), x-centre.X())
	a1 := math.Atan2(to.Y()-centre.Y(), to.X()-centre.X())
	sweep := a1 - a0
	if mode == MotionArcCW {
		sweep = -sweep
	}
	if sweep <= 0 {
		sweep += 2 * math.Pi
	}
	if sweep > math.Pi+epsilon {
		r = -r
	}
	return []string{"R" + post.coord(r)}
}

// safeRapid goes up before moving sideways and moves sideways before going down
func (post *Post) safeRapid(to mgl64.Vec3) {
	st := &post.state
	xyMoves := !st.Known[axisX] || !st.Known[axisY] ||
		math.Abs(to.X()-st.Pos[axisX]) > epsilon || math.Abs(to.Y()-st.Pos[axisY]) > epsilon
	zMoves := !st.Known[axisZ] || math.Abs(to.Z()-st.Pos[axisZ]) > epsilon
	if !xyMoves || !zMoves {
		post.Rapid(to)
		return
	}
	if !st.Known[axisZ] || to.Z() > st.Pos[axisZ] {
		post.RapidZ(to.Z())
		post.Rapid(to)
		return
	}
	post.Rapid(mgl64.Vec3{to.X(), to.Y(), st.Pos[axisZ]})
	post.RapidZ(to.Z())
}

func (post *Post) Dwell(seconds float64) string {
	if seconds <= 0 {
		return ""
	}
	return post.emit("G4 P" + formatNumber(seconds, 3))
}

/* ############################## spindle and tools ############################## */

// Spindle is idempotent: the same speed twice emits nothing
func (post *Post) Spindle(rpm float64) string {
	st := &post.state
	if rpm < 0 {
		rpm = 0
	}
	if st.SpindleKnown && math.Abs(rpm-st.Spindle) <= epsilon {
		return ""
	}
	var retVal string
	switch {
	case rpm == 0:
		retVal = post.emit("M5")
	case !st.SpindleKnown || st.Spindle == 0:
		retVal = post.emit("M3 S" + formatNumber(rpm, post.dialect.SpindlePrecision))
		post.Dwell(post.opts.SpindleDwell)
	default:
		retVal = post.emit("S" + formatNumber(rpm, post.dialect.SpindlePrecision))
	}
	st.Spindle = rpm
	st.SpindleKnown = true
	return retVal
}

// ToolChange stops the spindle and raises to the safe height before the tool
// word. Dialects without a tool changer pause for a manual change.
func (post *Post) ToolChange(tool int, label string) {
	if tool <= 0 || tool == post.state.Tool {
		return
	}
	post.Spindle(0)
	post.RapidZ(post.opts.SafeZ)
	t := "T" + strconv.Itoa(tool)
	if post.dialect.ToolChange {
		post.Comment(label)
		post.emit(t + " M6")
	} else {
		post.emit("M0 (" + commentReplacer.Replace(strings.TrimSpace(t+" "+label)) + ")")
	}
	post.state.Tool = tool
	// the machine may have been jogged or the length offset changed
	post.state.forgetPosition()
	post.Stats.ToolChanges++
}

/* ############################## toolpaths ############################## */

// Toolpath emits the moves, or the canned cycle if the dialect has one
func (post *Post) Toolpath(tp toolpath.Toolpath) {
	post.Comment(tp.Name)
	if tp.Cycle != nil && post.dialect.CannedCycles {
		post.Cycle(tp.Cycle)
		return
	}
	for _, m := range tp.Moves {
		switch m.Kind {
		case toolpath.MoveRapid, toolpath.MoveRetract:
			post.safeRapid(m.To)
		case toolpath.MovePlunge, toolpath.MoveCut, toolpath.MoveTabRapid:
			post.Linear(m.To, m.Feed)
		case toolpath.MoveArcCW:
			post.Arc(true, m.To, m.Centre, m.Feed)
		case toolpath.MoveArcCCW:
			post.Arc(false, m.To, m.Centre, m.Feed)
		case toolpath.MoveDwell:
			post.Dwell(m.Dwell)
		default:
			glog.Warningln("move skipped: " + m.String())
		}
	}
}

// Cycle emits a G81/G82/G83 canned cycle retracting to the initial level
func (post *Post) Cycle(c *toolpath.DrillCycle) {
	if len(c.Holes) == 0 {
		return
	}
	if !post.state.Known[axisZ] {
		post.RapidZ(post.opts.SafeZ)
	}
	first := c.Holes[0]
	post.safeRapid(mgl64.Vec3{first.X(), first.Y(), post.state.Pos[axisZ]})

	var word string
	extra := make([]string, 0, 2)
	switch c.Kind {
	case toolpath.CyclePeck:
		word = "G83"
		extra = append(extra, "Q"+post.coord(c.Peck))
	case toolpath.CycleDwell:
		word = "G82"
		extra = append(extra, "P"+formatNumber(c.Dwell, 3))
	default:
		word = "G81"
	}
	post.emit("G98")
	for _, h := range c.Holes {
		words := make([]string, 0, 8)
		if post.state.Motion != MotionCycle || !post.opts.ModalSuppression {
			words = append(words, word, "X"+post.coord(h.X()), "Y"+post.coord(h.Y()),
				"Z"+post.coord(c.Depth), "R"+post.coord(c.RetractZ))
			words = append(words, extra...)
			words = append(words, "F"+formatNumber(c.Feed, post.dialect.FeedPrecision))
		} else {
			if math.Abs(h.X()-post.state.Pos[axisX]) > epsilon {
				words = append(words, "X"+post.coord(h.X()))
			}
			if math.Abs(h.Y()-post.state.Pos[axisY]) > epsilon {
				words = append(words, "Y"+post.coord(h.Y()))
			}
		}
		if len(words) == 0 {
			// a lone axis word repeats the cycle at the same hole
			words = append(words, "X"+post.coord(h.X()))
		}
		post.Stats.Moves++
		post.state.Motion = MotionCycle
		post.state.Pos[axisX], post.state.Pos[axisY] = h.X(), h.Y()
		post.emit(strings.Join(words, " "))
	}
	post.emit("G80")
	post.state.Motion = MotionNone
	post.state.Feed = c.Feed
	post.state.FeedKnown = true
	post.Stats.Cycles++
}
