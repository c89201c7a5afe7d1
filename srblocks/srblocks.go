/*
Step and repeat blocks of gerber files
*/
package srblocks

import (
	"errors"
	"strconv"
	"strings"

	. "github.com/VasiliyTurchenko/gerber2gcode/gerberbasetypes"
	"github.com/VasiliyTurchenko/gerber2gcode/polygon"
	"github.com/VasiliyTurchenko/gerber2gcode/primitives"
)

/*
############################## step and repeat blocks #################################
*/
type SRBlock struct {
	srString string
	numX     int
	numY     int
	dX       float64
	dY       float64
	prims    []primitives.Primitive
}

func (srblock *SRBlock) String() string {
	if srblock == nil {
		return "<nil>"
	}
	return "Step and repeat block:\n" +
		"\tsource string: " + srblock.srString + "\n" +
		"\tcontains " + strconv.Itoa(srblock.numX) + " repeats along X axis and " + strconv.Itoa(srblock.numY) + " repeats along Y axis\n" +
		"\tnumber of primitives in each repetition: " + strconv.Itoa(len(srblock.prims)) + "\n" +
		"\tdX=" + strconv.FormatFloat(srblock.dX, 'f', 5, 64) +
		", dY=" + strconv.FormatFloat(srblock.dY, 'f', 5, 64) + "\n"
}

func (srblock *SRBlock) NumX() int {
	return srblock.numX
}

func (srblock *SRBlock) NumY() int {
	return srblock.numY
}

func (srblock *SRBlock) DX() float64 {
	return srblock.dX
}

func (srblock *SRBlock) DY() float64 {
	return srblock.dY
}

func (srblock *SRBlock) NSteps() int {
	return len(srblock.prims)
}

// IsClosing tells whether the block is the %SR*% closing the current block
func IsClosing(ins string) bool {
	return strings.TrimSpace(ins) == GerberStepRepeat+"*%"
}

// Init parses %SRX3Y2I5.0J4.0*%. Missing words default to 1 repeat and zero step.
func (srblock *SRBlock) Init(ins string, units Units) error {
	ins = strings.TrimSpace(ins)
	body := strings.TrimPrefix(ins, GerberStepRepeat)
	body = strings.TrimSuffix(strings.TrimSuffix(body, "%"), "*")
	res, err := ExtractLetterDelimitedFloats(body, "XYIJ")
	if err != nil {
		return err
	}
	srblock.numX, srblock.numY = 1, 1
	if v, ok := res['X']; ok {
		srblock.numX = int(v)
	}
	if v, ok := res['Y']; ok {
		srblock.numY = int(v)
	}
	if srblock.numX < 1 {
		return errors.New("SRBlock.Init: X count < 1")
	}
	if srblock.numY < 1 {
		return errors.New("SRBlock.Init: Y count < 1")
	}
	srblock.dX = res['I'] * units.Scale() // take into account inches or millimeters
	srblock.dY = res['J'] * units.Scale()
	srblock.srString = ins
	return nil
}

func (srblock *SRBlock) Add(p primitives.Primitive) {
	srblock.prims = append(srblock.prims, p)
}

// Expand returns numX*numY copies of the block contents, column by column
func (srblock *SRBlock) Expand() []primitives.Primitive {
	retVal := make([]primitives.Primitive, 0, len(srblock.prims)*srblock.numX*srblock.numY)
	for i := 0; i < srblock.numX; i++ {
		for j := 0; j < srblock.numY; j++ {
			d := polygon.Point{X: float64(i) * srblock.dX, Y: float64(j) * srblock.dY}
			for _, p := range srblock.prims {
				if i == 0 && j == 0 {
					retVal = append(retVal, p)
					continue
				}
				retVal = append(retVal, primitives.Translate(p, d))
			}
		}
	}
	return retVal
}

// ExtractLetterDelimitedFloats splits the input string by the letters of the
// template and returns a map letter:value. Letters may come in any order.
func ExtractLetterDelimitedFloats(ins, template string) (map[byte]float64, error) {
	out := make(map[byte]float64)
	pos := 0
	for pos < len(ins) {
		letter := ins[pos]
		if strings.IndexByte(template, letter) == -1 {
			return nil, errors.New("unexpected " + strconv.Quote(string(letter)) + " in " + ins)
		}
		end := pos + 1
		for end < len(ins) && strings.IndexByte(template, ins[end]) == -1 {
			end++
		}
		fv, err := strconv.ParseFloat(ins[pos+1:end], 64)
		if err != nil {
			return nil, err
		}
		out[letter] = fv
		pos = end
	}
	return out, nil
}
