// Base types for Gerber and Excellon parsing and processing
package gerberbasetypes

// Gerber command prefixes
const (
	GerberApertureDef      = "%ADD"
	GerberApertureMacroDef = "%AM"
	GerberFormatSpec       = "%FS"
	GerberMOIN             = "%MOIN*%"
	GerberMOMM             = "%MOMM*%"
	GerberPolarityDark     = "%LPD*%"
	GerberPolarityClear    = "%LPC*%"
	GerberStepRepeat       = "%SR"
	GerberApertureBlockDef = "%AB"
)

const InchesToMM float64 = 25.4

// MinDrawLength is the shortest draw kept by the parser, mm.
const MinDrawLength float64 = 0.001

type GerberApType int

const (
	AptypeCircle GerberApType = iota + 1
	AptypeRectangle
	AptypeObround
	AptypePoly
	AptypeMacro
	AptypeBlock
)

func (ga GerberApType) String() string {
	switch ga {
	case AptypeCircle:
		return "circle aperture"
	case AptypeRectangle:
		return "rectangle aperture"
	case AptypeObround:
		return "obround (box) aperture"
	case AptypePoly:
		return "polygon aperture"
	case AptypeMacro:
		return "macro aperture"
	case AptypeBlock:
		return "block aperture"
	default:
	}
	return "Unknown aperture type"
}

type PolType int

const (
	PolTypeDark PolType = iota + 1
	PolTypeClear
)

func (p PolType) String() string {
	switch p {
	case PolTypeDark:
		return "Polarity: dark"
	case PolTypeClear:
		return "Polarity: clear"
	default:
	}
	return "Unknown polarity"
}

type ActType int

const (
	OpcodeD01_DRAW ActType = iota + 1
	OpcodeD02_MOVE
	OpcodeD03_FLASH
	OpcodeStop
)

func (act ActType) String() string {
	switch act {
	case OpcodeD01_DRAW:
		return "Opcode D01 (DRAW)"
	case OpcodeD02_MOVE:
		return "Opcode D02 (MOVE)"
	case OpcodeD03_FLASH:
		return "Opcode D03 (FLASH)"
	case OpcodeStop:
		return "Opcode Stop"
	default:
	}
	return "Unknown OpCode"
}

type QuadMode int

const (
	QuadModeSingle QuadMode = iota + 1
	QuadModeMulti
)

func (q QuadMode) String() string {
	switch q {
	case QuadModeSingle:
		return "QuadMode: Single"
	case QuadModeMulti:
		return "QuadMode: Multi"
	default:
	}
	return "Unknown QuadMode"
}

type IPmode int

const (
	IPModeLinear IPmode = iota + 1
	IPModeCwC
	IPModeCCwC
)

func (ipm IPmode) String() string {
	switch ipm {
	case IPModeLinear:
		return "Linear interpolation"
	case IPModeCwC:
		return "Clockwise interpolation"
	case IPModeCCwC:
		return "Counter-clockwise interpolation"
	default:
	}
	return "Unknown interpolation"
}

// Units of the source file. All the parsers convert to mm.
type Units int

const (
	UnitsMM Units = iota + 1
	UnitsInch
)

func (u Units) String() string {
	switch u {
	case UnitsMM:
		return "mm"
	case UnitsInch:
		return "inch"
	default:
	}
	return "unknown units"
}

// Scale returns the multiplier converting the units to mm
func (u Units) Scale() float64 {
	if u == UnitsInch {
		return InchesToMM
	}
	return 1.0
}

// ZeroOmission tells which zeros are omitted in coordinate data without a decimal point
type ZeroOmission int

const (
	OmitLeading ZeroOmission = iota + 1
	OmitTrailing
)

func (z ZeroOmission) String() string {
	switch z {
	case OmitLeading:
		return "leading zeros omitted"
	case OmitTrailing:
		return "trailing zeros omitted"
	default:
	}
	return "unknown zero omission"
}
