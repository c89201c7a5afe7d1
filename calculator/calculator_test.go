package calculator

import (
	"errors"
	"math"
	"strconv"
	"testing"
)

type testCase struct {
	src string
	ans float64
}

var src = []testCase{
	{"-2x3", -2 * 3},
	{"-2X-3", -2 * -3},
	{"2x3", 2 * 3},
	{"(((-2)))", -2},
	{"2--3", 2 - -3},
	{"2/-3.0", 2 / -3.0},
	{"-2--3", -2 - (-3)},
	{"-2+1-1", -2 + 1 - 1},
	{"-2+1--3", -2 + 1 - (-3)},
	{"-6x9/8", -6 * 9 / 8.0},
	{"1+2x3", 7},
	{"(1+2)x3", 9},
	{"-1", -1},
	{".5", 0.5},
	{"(-2x(333+444x4343)/555)-(666-(-777x(888x(-999--1000))))+(11-12)", -697593},
}

func TestCalcExpression(t *testing.T) {
	for _, s := range src {
		result, err := CalcExpression(s.src, nil)
		if err != nil {
			t.Fatal(s.src + " unexpected error: " + err.Error())
		}
		if math.Abs(result-s.ans) > 1e-9 {
			t.Fatal(s.src + " calculation error! got " +
				strconv.FormatFloat(result, 'f', 10, 64) +
				" expected " + strconv.FormatFloat(s.ans, 'f', 10, 64))
		}
	}
}

func TestCalcExpression_Variables(t *testing.T) {
	vars := Variables{1: 1.5, 2: 0.25}
	result, err := CalcExpression("$1x2-$2", vars)
	if err != nil {
		t.Fatal(err)
	}
	if result != 2.75 {
		t.Fatal("got " + strconv.FormatFloat(result, 'f', 5, 64))
	}
	if result, _ = CalcExpression("$9", vars); result != 0 {
		t.Fatal("undefined variable must be zero")
	}
}

func TestCalcExpression_Errors(t *testing.T) {
	for _, s := range []string{"", "1+", "(1+2", "2x$", "1a", "1..2"} {
		if _, err := CalcExpression(s, nil); err == nil {
			t.Fatal(s + " must fail")
		}
	}
	if _, err := CalcExpression("1/0", nil); !errors.Is(err, ErrDivByZero) {
		t.Fatal("division by zero expected")
	}
}

func TestAssign(t *testing.T) {
	vars := Variables{1: 2}
	if err := Assign("$3=$1x1.5", vars); err != nil {
		t.Fatal(err)
	}
	if vars[3] != 3 {
		t.Fatal("bad assignment result")
	}
	if err := Assign("3=1", vars); err == nil {
		t.Fatal("bad assignment must fail")
	}
}
