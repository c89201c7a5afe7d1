package gcode

type MotionMode int

const (
	MotionNone MotionMode = iota
	MotionRapid
	MotionLinear
	MotionArcCW
	MotionArcCCW
	MotionCycle
)

func (mm MotionMode) String() string {
	switch mm {
	case MotionNone:
		return "none"
	case MotionRapid:
		return "G0"
	case MotionLinear:
		return "G1"
	case MotionArcCW:
		return "G2"
	case MotionArcCCW:
		return "G3"
	case MotionCycle:
		return "cycle"
	default:
	}
	return "unknown motion mode"
}

const (
	axisX = iota
	axisY
	axisZ
)

var axisNames = [3]string{"X", "Y", "Z"}

// ModalState is what the controller is known to have in effect
type ModalState struct {
	Motion   MotionMode
	Units    string // G20/G21
	Distance string // G90/G91
	Plane    string
	Coords   string
	FeedMode string

	Feed         float64
	FeedKnown    bool
	Spindle      float64
	SpindleKnown bool

	Pos   [3]float64
	Known [3]bool
	Tool  int
}

// Reset forgets everything, used between programs
func (ms *ModalState) Reset() {
	*ms = ModalState{}
}

func (ms *ModalState) forgetPosition() {
	ms.Known = [3]bool{}
}
