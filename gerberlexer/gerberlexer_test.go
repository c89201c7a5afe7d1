package gerberlexer

import (
	"strings"
	"testing"
)

type testdata struct {
	input  string
	answer []string
}

var td = []testdata{
	{"X4794700Y2202900D01*\n", []string{"X4794700Y2202900D01*"}},
	{"\n\t\t   0000****%1111*******%\n22222", []string{"0000*", "%1111*******%", "22222"}},
	{"%11\n\r\tkkkkkkk%\n", []string{"%11\tKKKKKKK%"}},
	{"G01*X100Y200D01*D03*", []string{"G01*", "X100Y200D01*", "D03*"}},
	{"%FSLAX26Y26*%%MOMM*%", []string{"%FSLAX26Y26*%", "%MOMM*%"}},
	{"g04 comment*\r\nm02*", []string{"G04 COMMENT*", "M02*"}},
}

func TestTokenize(t *testing.T) {
	for _, tc := range td {
		st := Tokenize([]byte(tc.input))
		got := make([]string, 0)
		for b, ok := st.Next(); ok; b, ok = st.Next() {
			got = append(got, b.Text)
		}
		if strings.Join(got, "|") != strings.Join(tc.answer, "|") {
			t.Fatalf("%q: got %q expected %q", tc.input, got, tc.answer)
		}
	}
}

func TestTokenize_LineNumbers(t *testing.T) {
	st := Tokenize([]byte("G04 a*\n\nD10*\n%ADD10C,\n0.1*%\nX0Y0D03*"))
	lines := []int{1, 3, 4, 6}
	for i, want := range lines {
		b, ok := st.Next()
		if !ok {
			t.Fatalf("block %d is missing", i)
		}
		if b.Line != want {
			t.Fatalf("block %q: line %d expected %d", b.Text, b.Line, want)
		}
	}
}

func TestSplitExtended(t *testing.T) {
	got := SplitExtended("%AMDONUT*1,1,$1,0,0*1,0,$2,0,0*%")
	want := []string{"AMDONUT", "1,1,$1,0,0", "1,0,$2,0,0"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("got %q expected %q", got, want)
	}
}

func TestTokenizeLines(t *testing.T) {
	st := TokenizeLines([]byte("M48\r\n\nMETRIC\nT1C0.8\n"))
	if st.Len() != 3 {
		t.Fatalf("got %d blocks", st.Len())
	}
	b, _ := st.Next()
	if b.Text != "M48" || b.Line != 1 {
		t.Fatalf("bad first block %+v", b)
	}
}

func TestStorage(t *testing.T) {
	st := NewStorage()
	if _, ok := st.Next(); ok {
		t.Fatal("reading from the empty storage error")
	}
	st.Accept(Block{Text: ""})
	if st.Len() != 0 {
		t.Fatal("empty blocks must be discarded")
	}
	st.Accept(Block{Text: "A"})
	st.Accept(Block{Text: "B"})
	st.Next()
	if st.PeekPos() != 1 {
		t.Fatal("bad position")
	}
	st.ResetPos()
	b, _ := st.Next()
	if b.Text != "A" {
		t.Fatal("ResetPos error")
	}
	arr := st.ToArray()
	arr[0].Text = "changed"
	st.ResetPos()
	if b, _ = st.Next(); b.Text != "A" {
		t.Fatal("ToArray must copy")
	}
	st.Empty()
	if st.Len() != 0 {
		t.Fatal("Empty error")
	}
}
