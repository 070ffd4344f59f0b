package heuristics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	lserrors "langsift/internal/errors"
	"langsift/internal/languages"
	"langsift/internal/sample"
)

// Outcome is what a clause yields when its predicate matches: either one
// language (a final answer) or an ordered set of candidates that is still
// ambiguous. The zero Outcome is Indeterminate.
type Outcome struct {
	langs   []languages.Language
	decided bool
}

// Indeterminate is returned for a clause whose predicate did not match.
var Indeterminate = Outcome{}

// Single returns a decided outcome naming lang.
func Single(lang languages.Language) Outcome {
	return Outcome{langs: []languages.Language{lang}, decided: true}
}

// Candidates returns an undecided outcome narrowing to langs, in order.
// Duplicates are dropped, keeping the first occurrence.
func Candidates(langs ...languages.Language) Outcome {
	seen := make(map[string]bool, len(langs))
	out := make([]languages.Language, 0, len(langs))
	for _, l := range langs {
		if !seen[l.Name] {
			seen[l.Name] = true
			out = append(out, l)
		}
	}
	return Outcome{langs: out}
}

// Languages returns a copy of the outcome's languages.
func (o Outcome) Languages() []languages.Language {
	return append([]languages.Language(nil), o.langs...)
}

// Decided reports whether the outcome names a single final language.
func (o Outcome) Decided() bool { return o.decided }

// IsIndeterminate reports whether the outcome carries no languages.
func (o Outcome) IsIndeterminate() bool { return len(o.langs) == 0 }

// String renders the outcome as it appears in rule sources.
func (o Outcome) String() string {
	if o.IsIndeterminate() {
		return "indeterminate"
	}
	names := make([]string, len(o.langs))
	for i, l := range o.langs {
		names[i] = l.Name
	}
	if o.decided {
		return "language:" + names[0]
	}
	return "languages:[" + strings.Join(names, ",") + "]"
}

// Clause pairs a predicate with the outcome it yields on a match.
type Clause struct {
	Predicate Predicate
	Outcome   Outcome
}

// Chain is the ordered clause list for one extension. The first clause whose
// predicate matches decides; later clauses are never evaluated.
type Chain struct {
	clauses []Clause
}

// NewChain validates clauses and returns a chain evaluating them in order.
func NewChain(clauses ...Clause) (*Chain, error) {
	if len(clauses) == 0 {
		return nil, lserrors.Newf(lserrors.EmptyChain, "chain has no clauses")
	}
	for i, c := range clauses {
		if c.Predicate == nil {
			return nil, lserrors.Newf(lserrors.InvalidRule, "clause %d has no predicate", i)
		}
		if c.Outcome.IsIndeterminate() {
			return nil, lserrors.Newf(lserrors.InvalidRule, "clause %d has no outcome", i)
		}
	}
	return &Chain{clauses: append([]Clause(nil), clauses...)}, nil
}

// Evaluate walks the chain against s. It returns the outcome of the first
// matching clause and that clause's index, or (Indeterminate, -1) once the
// chain is exhausted.
func (c *Chain) Evaluate(s sample.Sample) (Outcome, int) {
	content := s.Bytes()
	for i, clause := range c.clauses {
		if clause.Predicate.Match(content) {
			return clause.Outcome, i
		}
	}
	return Indeterminate, -1
}

// Clauses returns a copy of the chain's clauses.
func (c *Chain) Clauses() []Clause {
	return append([]Clause(nil), c.clauses...)
}

// Len returns the number of clauses.
func (c *Chain) Len() int { return len(c.clauses) }

// Table maps normalized extensions to their chains. It is filled during
// construction, sealed, and only read afterwards.
type Table struct {
	chains map[string]*Chain
	sealed bool
}

// NewTable creates an empty, unsealed table.
func NewTable() *Table {
	return &Table{chains: make(map[string]*Chain)}
}

// Add registers chain for ext. It fails on an invalid or duplicate
// extension and panics if the table is already sealed.
func (t *Table) Add(ext string, chain *Chain) error {
	if t.sealed {
		panic("heuristics: Add on sealed table")
	}
	norm := languages.NormalizeExtension(ext)
	if norm == "" {
		return lserrors.Newf(lserrors.InvalidRule, "invalid extension %q", ext)
	}
	if chain == nil || chain.Len() == 0 {
		return lserrors.Newf(lserrors.EmptyChain, "extension %s has no clauses", norm)
	}
	if _, ok := t.chains[norm]; ok {
		return lserrors.Newf(lserrors.DuplicateExtension, "extension %s already has a chain", norm)
	}
	t.chains[norm] = chain
	return nil
}

// Seal freezes the table. Lookups are safe from any goroutine once the
// sealed table has been published.
func (t *Table) Seal() *Table {
	t.sealed = true
	return t
}

// Sealed reports whether Seal was called.
func (t *Table) Sealed() bool { return t.sealed }

// Lookup returns the chain for ext, normalizing it first.
func (t *Table) Lookup(ext string) (*Chain, bool) {
	c, ok := t.chains[languages.NormalizeExtension(ext)]
	return c, ok
}

// Extensions returns the extensions with a chain, sorted.
func (t *Table) Extensions() []string {
	exts := make([]string, 0, len(t.chains))
	for ext := range t.chains {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Len returns the number of extensions in the table.
func (t *Table) Len() int { return len(t.chains) }

// Describe renders a predicate tree in a compact, rule-like notation.
func Describe(p Predicate) string {
	switch v := p.(type) {
	case *regexPredicate:
		return "regex(/" + v.pattern + "/" + v.flags + ")"
	case *substringPredicate:
		return "substring(" + strconv.Quote(string(v.needle)) + ")"
	case *allOfPredicate:
		return string(KindAllOf) + "(" + describeAll(v.preds) + ")"
	case *anyOfPredicate:
		return string(KindAnyOf) + "(" + describeAll(v.preds) + ")"
	case *stripThenRegexPredicate:
		return fmt.Sprintf("strip-then-regex(/%s/, /%s/)", v.stripPattern, v.pattern)
	case *notPredicate:
		return "not(" + Describe(v.pred) + ")"
	case alwaysPredicate:
		return "always"
	case nil:
		return "<nil>"
	default:
		return string(p.Kind())
	}
}

func describeAll(preds []Predicate) string {
	parts := make([]string, len(preds))
	for i, p := range preds {
		parts[i] = Describe(p)
	}
	return strings.Join(parts, ", ")
}
