/*
Splits gerber and drill sources into command blocks.

FS Format specification. Sets the coordinate format, e.g. the number of decimals.
MO Mode. Sets the unit to inch or mm.
AD Aperture define. Defines a template based aperture and assigns a D code to it.
AM Aperture macro. Defines a macro aperture template.
Dnn (nn≥10) Sets the current aperture to D code nn.
D01 Interpolate operation. Outside a region statement D01 creates a draw or arc
object using the current aperture. Inside it creates a linear or circular contour
segment.
D02 Move operation. D02 does not create a graphics object but moves the current
point to the coordinate in the D02 command.
D03 Flash operation. Creates a flash object with the current aperture.
G01, G02, G03 Set the interpolation mode.
G74, G75 Set quadrant mode.
LP Load polarity.
G36, G37 Start and end a region statement.
SR Step and repeat.
G04 Comment.
TF, TA, TO, TD Attributes.
M02 End of file.
*/
package gerberlexer

import (
	"strings"
	"unicode"
)

// Block is one command block of the source
type Block struct {
	Text string
	Line int // 1-based line number where the block starts
}

// Tokenize splits the gerber source into blocks.
//  1. if we met '%', all the bytes until next '%' stay unchanged.
//     Leading and trailing '%' are included in the out string
//  2. spaces and new lines between blocks are skipped
//  3. each stream of bytes with trailing '*' is treated as separate block
func Tokenize(buf []byte) *Storage {
	retVal := NewStorage()
	line := 1
	a := 0
	b := len(buf)
	for a < b {
		c := buf[a]
		if c == '\n' {
			line++
			a++
			continue
		}
		if c == '%' {
			start, startLine := a, line
			a++
			for a < b && buf[a] != '%' {
				if buf[a] == '\n' {
					line++
				}
				a++
			}
			if a < b {
				a++ // trailing '%'
			}
			retVal.Accept(Block{Text: filterNewLines(string(buf[start:a])), Line: startLine})
			continue
		}
		if unicode.IsSpace(rune(c)) || c == '*' {
			a++
			continue
		}
		start, startLine := a, line
		for a < b && buf[a] != '*' && buf[a] != '%' {
			if buf[a] == '\n' {
				line++
			}
			a++
		}
		if a < b && buf[a] == '*' {
			a++
		}
		retVal.Accept(Block{Text: filterNewLines(string(buf[start:a])), Line: startLine})
	}
	return retVal
}

// TokenizeLines splits line oriented sources (Excellon) into blocks,
// empty lines are skipped
func TokenizeLines(buf []byte) *Storage {
	retVal := NewStorage()
	for i, s := range strings.Split(string(buf), "\n") {
		s = strings.TrimSpace(s)
		if len(s) == 0 {
			continue
		}
		retVal.Accept(Block{Text: s, Line: i + 1})
	}
	return retVal
}

// removes CR, LF and upper-cases the block
func filterNewLines(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' {
			return -1
		}
		return r
	}, s)
	return strings.ToUpper(strings.TrimSpace(s))
}

// SplitExtended splits the body of extended command %...% into
// '*' terminated statements, e.g. %AMDONUT*1,1,$1,0,0*1,0,$2,0,0*% gives
// "AMDONUT", "1,1,$1,0,0", "1,0,$2,0,0"
func SplitExtended(block string) []string {
	body := strings.TrimSuffix(strings.TrimPrefix(block, "%"), "%")
	retVal := make([]string, 0)
	for _, s := range strings.Split(body, "*") {
		s = strings.TrimSpace(s)
		if len(s) > 0 {
			retVal = append(retVal, s)
		}
	}
	return retVal
}
