/*
Aperture blocks of gerber files, %ABD<n>*% ... %AB*%
*/
package blockapertures

import (
	"errors"
	"strconv"
	"strings"

	. "github.com/VasiliyTurchenko/gerber2gcode/gerberbasetypes"
	"github.com/VasiliyTurchenko/gerber2gcode/polygon"
	"github.com/VasiliyTurchenko/gerber2gcode/primitives"
)

type BlockAperture struct {
	StartStringNum int
	Code           int
	prims          []primitives.Primitive
}

func (ba *BlockAperture) String() string {
	if ba == nil {
		return "<nil>"
	}
	return "Block aperture D" + strconv.Itoa(ba.Code) +
		" opened at line " + strconv.Itoa(ba.StartStringNum) +
		", " + strconv.Itoa(len(ba.prims)) + " primitives"
}

// IsClosing tells whether the block is the %AB*% closing the innermost block
func IsClosing(ins string) bool {
	return strings.TrimSpace(ins) == GerberApertureBlockDef+"*%"
}

// Init parses %ABD12*%
func (ba *BlockAperture) Init(ins string, line int) error {
	body := strings.TrimPrefix(strings.TrimSpace(ins), GerberApertureBlockDef)
	body = strings.TrimSuffix(strings.TrimSuffix(body, "%"), "*")
	if !strings.HasPrefix(body, "D") {
		return errors.New("BlockAperture.Init: no D code in " + ins)
	}
	code, err := strconv.Atoi(body[1:])
	if err != nil {
		return errors.New("BlockAperture.Init: bad D code in " + ins)
	}
	if code < 10 {
		return errors.New("BlockAperture.Init: D code < 10 in " + ins)
	}
	ba.Code = code
	ba.StartStringNum = line
	return nil
}

func (ba *BlockAperture) Add(p primitives.Primitive) {
	ba.prims = append(ba.prims, p)
}

func (ba *BlockAperture) Len() int {
	return len(ba.prims)
}

// Flash returns the block contents with the block origin placed at at. Flashing
// with clear polarity toggles the polarity of every object of the block.
func (ba *BlockAperture) Flash(at polygon.Point, pol PolType) []primitives.Primitive {
	retVal := make([]primitives.Primitive, 0, len(ba.prims))
	for _, p := range ba.prims {
		retVal = append(retVal, primitives.Place(p, at, pol == PolTypeClear))
	}
	return retVal
}
