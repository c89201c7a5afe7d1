package clipengine

// FillRule selects which regions of overlapping contours are inside
type FillRule int

const (
	NonZero FillRule = iota
	EvenOdd
	Positive
	Negative
)

func (fr FillRule) String() string {
	switch fr {
	case NonZero:
		return "NonZero"
	case EvenOdd:
		return "EvenOdd"
	case Positive:
		return "Positive"
	case Negative:
		return "Negative"
	default:
	}
	return "unknown fill rule"
}

// ParseFillRule accepts the names used in the configuration file
func ParseFillRule(s string) (FillRule, bool) {
	switch s {
	case "nonzero", "NonZero":
		return NonZero, true
	case "evenodd", "EvenOdd":
		return EvenOdd, true
	case "positive", "Positive":
		return Positive, true
	case "negative", "Negative":
		return Negative, true
	default:
	}
	return NonZero, false
}

type Op int

const (
	OpUnion Op = iota + 1
	OpIntersect
	OpDifference
	OpXor
)

func (op Op) String() string {
	switch op {
	case OpUnion:
		return "union"
	case OpIntersect:
		return "intersect"
	case OpDifference:
		return "difference"
	case OpXor:
		return "xor"
	default:
	}
	return "unknown operation"
}

// DefaultFill is even-odd for XOR and non-zero for everything else
func DefaultFill(op Op) FillRule {
	if op == OpXor {
		return EvenOdd
	}
	return NonZero
}

type JoinType int

const (
	JoinRound JoinType = iota
	JoinSquare
	JoinMiter
)

func (jt JoinType) String() string {
	switch jt {
	case JoinRound:
		return "round"
	case JoinSquare:
		return "square"
	case JoinMiter:
		return "miter"
	default:
	}
	return "unknown join"
}

type EndType int

const (
	EndClosedPolygon EndType = iota
	EndClosedLine
	EndOpenRound
	EndOpenSquare
	EndOpenButt
)

func (et EndType) String() string {
	switch et {
	case EndClosedPolygon:
		return "closed polygon"
	case EndClosedLine:
		return "closed line"
	case EndOpenRound:
		return "open round"
	case EndOpenSquare:
		return "open square"
	case EndOpenButt:
		return "open butt"
	default:
	}
	return "unknown end"
}

// Point64 is a point of the integer domain of the kernel
type Point64 struct {
	X, Y int64
}

type Path []Point64

type Paths []Path

// KernelNode is one contour of a hierarchical kernel result
type KernelNode struct {
	Path     Path
	Children []*KernelNode
}
