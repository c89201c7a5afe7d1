package xy

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	. "github.com/VasiliyTurchenko/gerber2gcode/gerberbasetypes"
)

// Function checks against non-number characters in the string
func isNumString(ins string) bool {
	if len(ins) == 0 {
		return false
	}
	for _, c := range []byte(ins) {
		if (c < 0x30) || (c > 0x39) {
			return false
		}
	}
	return true
}

/*
############################ format specification #####################
*/

// Format specification object
type FormatSpec struct {
	Head        string
	XI          int // digits in the integer part
	XD          int // digits in the fractional part
	YI          int
	YD          int
	Units       Units
	Omission    ZeroOmission
	Incremental bool
}

// NewFormatSpec creates the format with equal X and Y digit split.
func NewFormatSpec(intDigits, decDigits int, units Units, omission ZeroOmission) *FormatSpec {
	return &FormatSpec{
		XI:       intDigits,
		XD:       decDigits,
		YI:       intDigits,
		YD:       decDigits,
		Units:    units,
		Omission: omission,
	}
}

// Init parses %FS command, e.g. %FSLAX26Y26*%
// Units are not a part of FS and must be set separately.
func (fs *FormatSpec) Init(ins string) error {
	fs.Head = strings.ToUpper(strings.TrimSpace(ins))
	body := strings.TrimSuffix(strings.TrimPrefix(fs.Head, "%"), "%")
	body = strings.TrimSuffix(body, "*")
	if !strings.HasPrefix(body, "FS") {
		return errors.New("not a format specification: " + ins)
	}
	body = body[2:]

	Xpos := strings.IndexByte(body, 'X')
	Ypos := strings.IndexByte(body, 'Y')
	if Xpos == -1 || Ypos == -1 || Xpos > Ypos {
		return errors.New("bad format specification: " + ins)
	}
	// modes are placed before X: L|T and A|I
	fs.Omission = OmitLeading
	fs.Incremental = false
	for _, c := range body[:Xpos] {
		switch c {
		case 'L':
			fs.Omission = OmitLeading
		case 'T':
			fs.Omission = OmitTrailing
		case 'A':
			fs.Incremental = false
		case 'I':
			fs.Incremental = true
		default:
			// N and G/D/M digit counts of the old spec are ignored
		}
	}
	xs := body[Xpos+1 : Ypos]
	ys := body[Ypos+1:]
	if len(xs) != 2 || len(ys) < 2 {
		return errors.New("bad coordinate digits in " + ins)
	}
	ys = ys[:2]
	var err error
	if fs.XI, err = strconv.Atoi(xs[0:1]); err != nil {
		return err
	}
	if fs.XD, err = strconv.Atoi(xs[1:2]); err != nil {
		return err
	}
	if fs.YI, err = strconv.Atoi(ys[0:1]); err != nil {
		return err
	}
	if fs.YD, err = strconv.Atoi(ys[1:2]); err != nil {
		return err
	}
	if fs.XD == 0 || fs.YD == 0 {
		return errors.New("zero decimal digits in " + ins)
	}
	return nil
}

// Scale returns mm per source unit
func (fs *FormatSpec) Scale() float64 {
	return fs.Units.Scale()
}

func (fs *FormatSpec) String() string {
	return fmt.Sprintf("format X%d.%d Y%d.%d, %s, %s, incremental=%v",
		fs.XI, fs.XD, fs.YI, fs.YD, fs.Units, fs.Omission, fs.Incremental)
}

/*
######################### coordinates #########################################
*/

// ParseAxis converts a coordinate word value (without the axis letter) into mm.
// n and m are the number of places for integer and fractional parts.
func (fs *FormatSpec) ParseAxis(ins string, n, m int) (float64, error) {
	var neg = false
	ws := ins
	if strings.HasPrefix(ws, "-") {
		neg = true
		ws = ws[1:]
	} else if strings.HasPrefix(ws, "+") {
		ws = ws[1:]
	}
	var retVal float64
	if strings.ContainsRune(ws, '.') {
		// explicit decimal point overrides the format
		v, err := strconv.ParseFloat(ws, 64)
		if err != nil {
			return 0, fmt.Errorf("bad coordinate %q: %w", ins, err)
		}
		retVal = v
	} else {
		if !isNumString(ws) {
			return 0, fmt.Errorf("bad coordinate %q", ins)
		}
		if len(ws) > (n + m) {
			return 0, fmt.Errorf("coordinate %q does not fit format %d.%d", ins, n, m)
		}
		ps := make([]byte, n+m)
		for i := range ps {
			ps[i] = '0'
		}
		if fs.Omission == OmitTrailing {
			// pad on the right
			copy(ps, ws)
		} else {
			copy(ps[len(ps)-len(ws):], ws)
		}
		ipart := 0
		var err error
		if n > 0 {
			if ipart, err = strconv.Atoi(string(ps[0:n])); err != nil {
				return 0, err
			}
		}
		fpart, err := strconv.Atoi(string(ps[n : n+m]))
		if err != nil {
			return 0, err
		}
		retVal = float64(ipart) + float64(fpart)/math.Pow10(m)
	}
	if neg {
		retVal = -retVal
	}
	return retVal * fs.Scale(), nil
}

// XY holds one coordinate data block
type XY struct {
	coordString string
	X, Y        float64
	// offsets, not modal
	I, J float64
	// which words were present in the block
	HasX, HasY, HasI, HasJ bool
}

func (xy *XY) String() string {
	return "x,y=(" +
		strconv.FormatFloat(xy.X, 'f', 5, 64) + "," +
		strconv.FormatFloat(xy.Y, 'f', 5, 64) + ") i,j=(" +
		strconv.FormatFloat(xy.I, 'f', 5, 64) + "," +
		strconv.FormatFloat(xy.J, 'f', 5, 64) + ")"
}

// tolerance is the radius of the circle around first point
// inside of which another point will be treated as equal to the first one
func (xy *XY) Equals(another *XY, tolerance float64) bool {
	return math.Hypot(xy.X-another.X, xy.Y-another.Y) < tolerance
}

// Init parses "X...Y...I...J..." with the D code already stripped.
// Missing X or Y are taken from prev (modal), I and J default to zero.
func (xy *XY) Init(sc string, fs *FormatSpec, prevX, prevY float64) error {
	*xy = XY{coordString: strings.ToUpper(sc), X: prevX, Y: prevY}
	s := xy.coordString
	pos := 0
	for pos < len(s) {
		letter := s[pos]
		end := pos + 1
		for end < len(s) && strings.IndexByte("XYIJ", s[end]) == -1 {
			end++
		}
		word := s[pos+1 : end]
		switch letter {
		case 'X':
			v, err := fs.ParseAxis(word, fs.XI, fs.XD)
			if err != nil {
				return err
			}
			if fs.Incremental {
				v += prevX
			}
			xy.X, xy.HasX = v, true
		case 'Y':
			v, err := fs.ParseAxis(word, fs.YI, fs.YD)
			if err != nil {
				return err
			}
			if fs.Incremental {
				v += prevY
			}
			xy.Y, xy.HasY = v, true
		case 'I':
			v, err := fs.ParseAxis(word, fs.XI, fs.XD)
			if err != nil {
				return err
			}
			xy.I, xy.HasI = v, true
		case 'J':
			v, err := fs.ParseAxis(word, fs.YI, fs.YD)
			if err != nil {
				return err
			}
			xy.J, xy.HasJ = v, true
		default:
			return fmt.Errorf("unexpected %q in coordinate block %q", letter, sc)
		}
		pos = end
	}
	return nil
}
