package heuristics

import (
	"reflect"
	"testing"

	lserrors "langsift/internal/errors"
	"langsift/internal/languages"
	"langsift/internal/sample"
)

var (
	forth   = languages.Language{Name: "Forth"}
	fortran = languages.Language{Name: "Fortran"}
	wml     = languages.Language{Name: "Filebench WML"}
)

func forthChain(t *testing.T) *Chain {
	t.Helper()
	c, err := NewChain(
		Clause{Predicate: MustRegex(`^: `, ""), Outcome: Single(forth)},
		Clause{Predicate: MustRegex(`flowop`, ""), Outcome: Single(wml)},
		Clause{Predicate: MustRegex(`^([c*][^abd-z]|      (subroutine|program|end|data)\s|\s*!)`, "i"), Outcome: Single(fortran)},
	)
	if err != nil {
		t.Fatalf("NewChain() error = %v", err)
	}
	return c
}

func TestOutcome(t *testing.T) {
	if !Indeterminate.IsIndeterminate() || Indeterminate.Decided() {
		t.Error("Indeterminate should carry nothing")
	}
	if got := Indeterminate.String(); got != "indeterminate" {
		t.Errorf("Indeterminate.String() = %q", got)
	}

	s := Single(forth)
	if !s.Decided() || s.IsIndeterminate() {
		t.Error("Single should be decided")
	}
	if got := s.String(); got != "language:Forth" {
		t.Errorf("Single.String() = %q", got)
	}

	c := Candidates(forth, fortran, forth)
	if c.Decided() {
		t.Error("Candidates should be undecided")
	}
	if got := c.Languages(); !reflect.DeepEqual(got, []languages.Language{forth, fortran}) {
		t.Errorf("Candidates languages = %v", got)
	}
	if got := c.String(); got != "languages:[Forth,Fortran]" {
		t.Errorf("Candidates.String() = %q", got)
	}
}

func TestChain_FirstMatchWins(t *testing.T) {
	c := forthChain(t)

	tests := []struct {
		name    string
		content string
		want    string
		index   int
	}{
		{"forth definition", ": square dup * ;", "Forth", 0},
		{"wml flowop", "define flowop name=x", "Filebench WML", 1},
		{"fortran comment", "C     THIS IS A COMMENT\n      PROGRAM HELLO", "Fortran", 2},
		{"forth before fortran", ": x ;\n      program hello", "Forth", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, idx := c.Evaluate(sample.New([]byte(tt.content)))
			if idx != tt.index {
				t.Errorf("index = %d, want %d", idx, tt.index)
			}
			if !out.Decided() || out.Languages()[0].Name != tt.want {
				t.Errorf("outcome = %s, want language:%s", out, tt.want)
			}
		})
	}
}

func TestChain_Exhausted(t *testing.T) {
	out, idx := forthChain(t).Evaluate(sample.New([]byte("nothing to see")))
	if idx != -1 {
		t.Errorf("index = %d, want -1", idx)
	}
	if !out.IsIndeterminate() {
		t.Errorf("outcome = %s, want indeterminate", out)
	}
}

func TestChain_StopsAtFirstMatch(t *testing.T) {
	later := &countingPredicate{result: true}
	c, err := NewChain(
		Clause{Predicate: Always(), Outcome: Single(forth)},
		Clause{Predicate: later, Outcome: Single(fortran)},
	)
	if err != nil {
		t.Fatalf("NewChain() error = %v", err)
	}

	c.Evaluate(sample.New([]byte("x")))
	if later.calls != 0 {
		t.Errorf("later clause evaluated %d times", later.calls)
	}
}

func TestChain_OrderMatters(t *testing.T) {
	content := sample.New([]byte(": x ;\nflowop"))

	ab, _ := NewChain(
		Clause{Predicate: MustRegex(`^: `, ""), Outcome: Single(forth)},
		Clause{Predicate: MustRegex(`flowop`, ""), Outcome: Single(wml)},
	)
	ba, _ := NewChain(
		Clause{Predicate: MustRegex(`flowop`, ""), Outcome: Single(wml)},
		Clause{Predicate: MustRegex(`^: `, ""), Outcome: Single(forth)},
	)

	first, _ := ab.Evaluate(content)
	second, _ := ba.Evaluate(content)
	if first.Languages()[0].Name != "Forth" || second.Languages()[0].Name != "Filebench WML" {
		t.Errorf("got %s and %s", first, second)
	}
}

func TestNewChain_Errors(t *testing.T) {
	if _, err := NewChain(); !lserrors.HasCode(err, lserrors.EmptyChain) {
		t.Errorf("NewChain() error = %v, want %s", err, lserrors.EmptyChain)
	}
	if _, err := NewChain(Clause{Outcome: Single(forth)}); !lserrors.HasCode(err, lserrors.InvalidRule) {
		t.Errorf("nil predicate error = %v, want %s", err, lserrors.InvalidRule)
	}
	if _, err := NewChain(Clause{Predicate: Always()}); !lserrors.HasCode(err, lserrors.InvalidRule) {
		t.Errorf("missing outcome error = %v, want %s", err, lserrors.InvalidRule)
	}
}

func TestTable_AddLookup(t *testing.T) {
	tbl := NewTable()
	if err := tbl.Add("F", forthChain(t)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := tbl.Add(".for", forthChain(t)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	tbl.Seal()

	if !tbl.Sealed() {
		t.Error("table should be sealed")
	}
	if _, ok := tbl.Lookup(".f"); !ok {
		t.Error("Lookup(.f) should find the chain")
	}
	if _, ok := tbl.Lookup("FOR"); !ok {
		t.Error("Lookup(FOR) should normalize the extension")
	}
	if _, ok := tbl.Lookup(".xyz"); ok {
		t.Error("Lookup(.xyz) should miss")
	}
	if got := tbl.Extensions(); !reflect.DeepEqual(got, []string{".f", ".for"}) {
		t.Errorf("Extensions() = %v", got)
	}
	if tbl.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tbl.Len())
	}
}

func TestTable_AddErrors(t *testing.T) {
	tbl := NewTable()
	if err := tbl.Add(".f", forthChain(t)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	tests := []struct {
		name  string
		ext   string
		chain *Chain
		code  lserrors.ErrorCode
	}{
		{"duplicate extension", ".F", forthChain(t), lserrors.DuplicateExtension},
		{"empty extension", "", forthChain(t), lserrors.InvalidRule},
		{"nil chain", ".g", nil, lserrors.EmptyChain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tbl.Add(tt.ext, tt.chain)
			if !lserrors.HasCode(err, tt.code) {
				t.Errorf("Add() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestTable_AddAfterSealPanics(t *testing.T) {
	tbl := NewTable().Seal()
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	_ = tbl.Add(".f", forthChain(t))
}
