package gcode

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrUnknownDialect = errors.New("unknown G-code dialect")

type ArcFormat int

const (
	ArcIJ ArcFormat = iota
	ArcR
)

func (af ArcFormat) String() string {
	switch af {
	case ArcIJ:
		return "IJ"
	case ArcR:
		return "R"
	default:
	}
	return "unknown arc format"
}

// Dialect is what differs between controller flavours
type Dialect struct {
	Name             string
	CoordPrecision   int
	FeedPrecision    int
	SpindlePrecision int
	Arcs             ArcFormat
	ToolChange       bool // T<n> M6, otherwise a M0 pause
	CannedCycles     bool // G81 G82 G83
	PathBlending     bool // G64 in the header
	ProgramEnd       string
}

var dialects = map[string]Dialect{
	"grbl": {
		Name:           "grbl",
		CoordPrecision: 3,
		Arcs:           ArcIJ,
		ProgramEnd:     "M2",
	},
	"grblhal": {
		Name:           "grblhal",
		CoordPrecision: 3,
		Arcs:           ArcIJ,
		ToolChange:     true,
		CannedCycles:   true,
		ProgramEnd:     "M2",
	},
	"linuxcnc": {
		Name:           "linuxcnc",
		CoordPrecision: 4,
		FeedPrecision:  1,
		Arcs:           ArcIJ,
		ToolChange:     true,
		CannedCycles:   true,
		PathBlending:   true,
		ProgramEnd:     "M30",
	},
}

// LookupDialect returns the dialect by its case insensitive name
func LookupDialect(name string) (Dialect, error) {
	d, ok := dialects[strings.ToLower(name)]
	if !ok {
		return Dialect{}, fmt.Errorf("%w %q, known are %s", ErrUnknownDialect, name, strings.Join(DialectNames(), ", "))
	}
	return d, nil
}

func DialectNames() []string {
	retVal := make([]string, 0, len(dialects))
	for k := range dialects {
		retVal = append(retVal, k)
	}
	sort.Strings(retVal)
	return retVal
}
