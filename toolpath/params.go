package toolpath

type Entry int

const (
	EntryPlunge Entry = iota
	EntryRamp
	EntryHelix
)

func (e Entry) String() string {
	switch e {
	case EntryPlunge:
		return "plunge"
	case EntryRamp:
		return "ramp"
	case EntryHelix:
		return "helix"
	default:
	}
	return "unknown entry"
}

func ParseEntry(s string) (Entry, bool) {
	switch s {
	case "plunge", "":
		return EntryPlunge, true
	case "ramp":
		return EntryRamp, true
	case "helix":
		return EntryHelix, true
	default:
	}
	return EntryPlunge, false
}

// Direction of contour cutting with a clockwise spindle
type Direction int

const (
	Climb Direction = iota
	Conventional
)

func (d Direction) String() string {
	switch d {
	case Climb:
		return "climb"
	case Conventional:
		return "conventional"
	default:
	}
	return "unknown direction"
}

func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "climb", "":
		return Climb, true
	case "conventional":
		return Conventional, true
	default:
	}
	return Climb, false
}

type Tabs struct {
	Count  int
	Width  float64
	Height float64 // above the final depth
}

// Params are the machining parameters of one operation, lengths in mm,
// feeds in mm/min, depths negative below the stock surface
type Params struct {
	ToolDiameter float64
	CutDepth     float64
	MultiDepth   bool
	DepthPerPass float64
	CutFeed      float64
	PlungeFeed   float64
	SpindleSpeed float64
	SafeZ        float64
	TravelZ      float64
	Entry        Entry
	RampAngle    float64 // degrees
	HelixPitch   float64
	Direction    Direction
	Tabs         Tabs
	PeckDepth    float64
	Dwell        float64 // seconds at the bottom of a hole
	// above the previous peck depth where the rapid down stops
	Clearance    float64
	ArcTolerance float64
}

func DefaultParams() Params {
	return Params{
		ToolDiameter: 0.2,
		CutDepth:     -0.1,
		DepthPerPass: 0.1,
		CutFeed:      120,
		PlungeFeed:   60,
		SpindleSpeed: 10000,
		SafeZ:        10,
		TravelZ:      2,
		RampAngle:    10,
		HelixPitch:   0.5,
		Clearance:    0.5,
		ArcTolerance: 0.005,
	}
}
