// Package heuristics implements the content predicates and the ordered
// clause chains used to tell apart languages that share a file extension.
//
// Predicates form a tree of plain data interpreted by Match. Every regex is
// compiled with Go's RE2 engine, so matching time is linear in the sample
// size whatever the pattern or content.
package heuristics

import (
	"bytes"
	"regexp"
	"strings"

	lserrors "langsift/internal/errors"
	"langsift/internal/sample"
)

// Kind names a predicate variant.
type Kind string

const (
	KindRegex          Kind = "regex"
	KindSubstring      Kind = "substring"
	KindAllOf          Kind = "all-of"
	KindAnyOf          Kind = "any-of"
	KindStripThenRegex Kind = "strip-then-regex"
	KindNot            Kind = "not"
	KindAlways         Kind = "always"
)

// multilinePrefix makes ^ and $ match at every line boundary.
const multilinePrefix = "(?m"

// allowedFlags are the regex flags a rule may add on top of multi-line mode.
const allowedFlags = "is"

// Predicate is a pure test over sample content.
type Predicate interface {
	// Match reports whether content satisfies the predicate.
	Match(content []byte) bool
	// Kind returns the predicate variant.
	Kind() Kind
}

// Evaluate applies p to s.
func Evaluate(p Predicate, s sample.Sample) bool {
	return p.Match(s.Bytes())
}

type regexPredicate struct {
	pattern string
	flags   string
	re      *regexp.Regexp
}

// Regex builds a predicate matching pattern anywhere in the content, with ^
// and $ anchored at line boundaries. flags may add "i" (case-insensitive)
// and "s" (dot matches newline).
func Regex(pattern, flags string) (Predicate, error) {
	re, err := compile(pattern, flags)
	if err != nil {
		return nil, err
	}
	return &regexPredicate{pattern: pattern, flags: flags, re: re}, nil
}

func (p *regexPredicate) Match(content []byte) bool { return p.re.Match(content) }
func (p *regexPredicate) Kind() Kind                { return KindRegex }

type substringPredicate struct {
	needle []byte
}

// Substring builds a predicate checking literal containment of needle.
func Substring(needle string) (Predicate, error) {
	if needle == "" {
		return nil, lserrors.Newf(lserrors.InvalidRule, "substring predicate needs a non-empty needle")
	}
	return &substringPredicate{needle: []byte(needle)}, nil
}

func (p *substringPredicate) Match(content []byte) bool { return bytes.Contains(content, p.needle) }
func (p *substringPredicate) Kind() Kind                { return KindSubstring }

type allOfPredicate struct {
	preds []Predicate
}

// AllOf matches when every predicate matches, checked left to right and
// stopping at the first miss.
func AllOf(preds ...Predicate) (Predicate, error) {
	if err := checkOperands(KindAllOf, preds); err != nil {
		return nil, err
	}
	return &allOfPredicate{preds: preds}, nil
}

func (p *allOfPredicate) Match(content []byte) bool {
	for _, sub := range p.preds {
		if !sub.Match(content) {
			return false
		}
	}
	return true
}

func (p *allOfPredicate) Kind() Kind { return KindAllOf }

type anyOfPredicate struct {
	preds []Predicate
}

// AnyOf matches when some predicate matches, checked left to right and
// stopping at the first hit.
func AnyOf(preds ...Predicate) (Predicate, error) {
	if err := checkOperands(KindAnyOf, preds); err != nil {
		return nil, err
	}
	return &anyOfPredicate{preds: preds}, nil
}

func (p *anyOfPredicate) Match(content []byte) bool {
	for _, sub := range p.preds {
		if sub.Match(content) {
			return true
		}
	}
	return false
}

func (p *anyOfPredicate) Kind() Kind { return KindAnyOf }

type stripThenRegexPredicate struct {
	stripPattern string
	pattern      string
	strip        *regexp.Regexp
	re           *regexp.Regexp
}

// StripThenRegex removes every match of stripPattern from the content, then
// matches pattern against what is left. Both patterns are multi-line.
// The stripped text lives only for the duration of one Match call.
func StripThenRegex(stripPattern, pattern string) (Predicate, error) {
	strip, err := compile(stripPattern, "")
	if err != nil {
		return nil, err
	}
	re, err := compile(pattern, "")
	if err != nil {
		return nil, err
	}
	return &stripThenRegexPredicate{
		stripPattern: stripPattern,
		pattern:      pattern,
		strip:        strip,
		re:           re,
	}, nil
}

func (p *stripThenRegexPredicate) Match(content []byte) bool {
	return p.re.Match(p.strip.ReplaceAll(content, nil))
}

func (p *stripThenRegexPredicate) Kind() Kind { return KindStripThenRegex }

type notPredicate struct {
	pred Predicate
}

// Not negates pred.
func Not(pred Predicate) (Predicate, error) {
	if pred == nil {
		return nil, lserrors.Newf(lserrors.InvalidRule, "not predicate needs an operand")
	}
	return &notPredicate{pred: pred}, nil
}

func (p *notPredicate) Match(content []byte) bool { return !p.pred.Match(content) }
func (p *notPredicate) Kind() Kind                { return KindNot }

type alwaysPredicate struct{}

// Always matches any content. It is used for a chain's fallback clause.
func Always() Predicate { return alwaysPredicate{} }

func (alwaysPredicate) Match([]byte) bool { return true }
func (alwaysPredicate) Kind() Kind        { return KindAlways }

// MustRegex is like Regex but panics on error.
func MustRegex(pattern, flags string) Predicate {
	return must(Regex(pattern, flags))
}

// MustSubstring is like Substring but panics on error.
func MustSubstring(needle string) Predicate {
	return must(Substring(needle))
}

// MustAllOf is like AllOf but panics on error.
func MustAllOf(preds ...Predicate) Predicate {
	return must(AllOf(preds...))
}

// MustAnyOf is like AnyOf but panics on error.
func MustAnyOf(preds ...Predicate) Predicate {
	return must(AnyOf(preds...))
}

// MustStripThenRegex is like StripThenRegex but panics on error.
func MustStripThenRegex(stripPattern, pattern string) Predicate {
	return must(StripThenRegex(stripPattern, pattern))
}

// MustNot is like Not but panics on error.
func MustNot(pred Predicate) Predicate {
	return must(Not(pred))
}

func must(p Predicate, err error) Predicate {
	if err != nil {
		panic(err)
	}
	return p
}

func compile(pattern, flags string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, lserrors.Newf(lserrors.InvalidPattern, "empty regex pattern")
	}
	for _, f := range flags {
		if !strings.ContainsRune(allowedFlags, f) {
			return nil, lserrors.Newf(lserrors.InvalidPattern, "unsupported regex flag %q in %q", f, pattern)
		}
	}

	re, err := regexp.Compile(multilinePrefix + flags + ")" + pattern)
	if err != nil {
		return nil, lserrors.New(lserrors.InvalidPattern, "cannot compile "+pattern, err)
	}
	return re, nil
}

func checkOperands(kind Kind, preds []Predicate) error {
	if len(preds) == 0 {
		return lserrors.Newf(lserrors.InvalidRule, "%s predicate needs at least one operand", kind)
	}
	for i, p := range preds {
		if p == nil {
			return lserrors.Newf(lserrors.InvalidRule, "%s operand %d is nil", kind, i)
		}
	}
	return nil
}
