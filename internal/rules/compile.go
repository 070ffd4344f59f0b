package rules

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"

	lserrors "langsift/internal/errors"
	"langsift/internal/heuristics"
	"langsift/internal/languages"
)

// Compiled is a rule set turned into its runtime form. Registry and Table
// are immutable and safe to share between goroutines.
type Compiled struct {
	Set         *Set
	Registry    *languages.Registry
	Table       *heuristics.Table
	Fingerprint string
}

// Compile validates set and builds the registry and the sealed table.
//
// Every configuration error found is reported, joined with errors.Join, so a
// rule author sees all problems at once. No partial result is returned.
func Compile(set *Set) (*Compiled, error) {
	if set == nil {
		return nil, lserrors.Newf(lserrors.RuleSource, "no rule set")
	}

	reg, err := languages.NewRegistry(set.Languages...)
	if err != nil {
		return nil, fmt.Errorf("languages: %w", err)
	}

	c := &compiler{set: set, reg: reg, named: make(map[string]heuristics.Predicate)}
	c.compileNamed()

	table := heuristics.NewTable()
	owner := make(map[string]int)
	for i, d := range set.Disambiguations {
		label := disambiguationLabel(i, d)
		if len(d.Extensions) == 0 {
			c.fail(lserrors.Newf(lserrors.InvalidRule, "%s: no extensions", label))
			continue
		}

		chain, ok := c.chain(label, d.Rules)
		if !ok {
			continue
		}
		for _, ext := range d.Extensions {
			norm := languages.NormalizeExtension(ext)
			if prev, dup := owner[norm]; dup {
				c.fail(lserrors.Newf(lserrors.DuplicateExtension,
					"%s: extension %s is already disambiguated by %s", label, norm, disambiguationLabel(prev, set.Disambiguations[prev])))
				continue
			}
			if err := table.Add(ext, chain); err != nil {
				c.fail(fmt.Errorf("%s: %w", label, err))
				continue
			}
			owner[norm] = i
		}
	}

	if len(c.errs) > 0 {
		return nil, errors.Join(c.errs...)
	}

	fp, err := set.Fingerprint()
	if err != nil {
		return nil, err
	}
	return &Compiled{Set: set, Registry: reg, Table: table.Seal(), Fingerprint: fp}, nil
}

// Fingerprint returns a stable hash of the set's canonical YAML form. Two
// sets with the same fingerprint classify identically.
func (s *Set) Fingerprint() (string, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return "", lserrors.New(lserrors.InternalError, "failed to encode rule set", err)
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

type compiler struct {
	set   *Set
	reg   *languages.Registry
	named map[string]heuristics.Predicate
	// broken holds named lists that failed to compile, so references to them
	// are not reported a second time.
	broken map[string]bool
	errs   []error
}

func (c *compiler) fail(err error) {
	c.errs = append(c.errs, err)
}

func (c *compiler) compileNamed() {
	c.broken = make(map[string]bool)

	names := make([]string, 0, len(c.set.NamedPatterns))
	for name := range c.set.NamedPatterns {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		patterns := c.set.NamedPatterns[name]
		if len(patterns) == 0 {
			c.broken[name] = true
			c.fail(lserrors.Newf(lserrors.InvalidRule, "named pattern %q is empty", name))
			continue
		}

		preds := make([]heuristics.Predicate, 0, len(patterns))
		for i, p := range patterns {
			pred, err := heuristics.Regex(p, "")
			if err != nil {
				c.broken[name] = true
				c.fail(fmt.Errorf("named pattern %q[%d]: %w", name, i, err))
				continue
			}
			preds = append(preds, pred)
		}
		if c.broken[name] {
			continue
		}

		if len(preds) == 1 {
			c.named[name] = preds[0]
		} else {
			c.named[name] = heuristics.MustAnyOf(preds...)
		}
	}
}

func (c *compiler) chain(label string, rules []Rule) (*heuristics.Chain, bool) {
	if len(rules) == 0 {
		c.fail(lserrors.Newf(lserrors.EmptyChain, "%s: no rules", label))
		return nil, false
	}

	clauses := make([]heuristics.Clause, 0, len(rules))
	ok := true
	for i, r := range rules {
		where := fmt.Sprintf("%s rule %d", label, i)

		outcome, err := c.outcome(r)
		if err != nil {
			c.fail(fmt.Errorf("%s: %w", where, err))
			ok = false
		}
		if r.Match == nil {
			c.fail(lserrors.Newf(lserrors.InvalidRule, "%s: missing match", where))
			ok = false
			continue
		}
		pred, good := c.predicate(where, r.Match)
		if !good {
			ok = false
			continue
		}
		if err == nil {
			clauses = append(clauses, heuristics.Clause{Predicate: pred, Outcome: outcome})
		}
	}
	if !ok {
		return nil, false
	}

	chain, err := heuristics.NewChain(clauses...)
	if err != nil {
		c.fail(fmt.Errorf("%s: %w", label, err))
		return nil, false
	}
	return chain, true
}

func (c *compiler) outcome(r Rule) (heuristics.Outcome, error) {
	switch {
	case r.Language != "" && len(r.Languages) > 0:
		return heuristics.Indeterminate, lserrors.Newf(lserrors.InvalidRule, "both language and languages set")
	case r.Language != "":
		lang, err := c.reg.Resolve(r.Language)
		if err != nil {
			return heuristics.Indeterminate, err
		}
		return heuristics.Single(lang), nil
	case len(r.Languages) > 0:
		langs := make([]languages.Language, 0, len(r.Languages))
		var errs []error
		for _, name := range r.Languages {
			lang, err := c.reg.Resolve(name)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			langs = append(langs, lang)
		}
		if len(errs) > 0 {
			return heuristics.Indeterminate, errors.Join(errs...)
		}
		return heuristics.Candidates(langs...), nil
	default:
		return heuristics.Indeterminate, lserrors.Newf(lserrors.InvalidRule, "no language or languages set")
	}
}

// predicate builds the predicate tree for p. Errors are recorded on c; the
// boolean reports whether the whole subtree compiled.
func (c *compiler) predicate(where string, p *Predicate) (heuristics.Predicate, bool) {
	keys := p.keys()
	if len(keys) != 1 {
		if len(keys) == 0 {
			c.fail(lserrors.Newf(lserrors.InvalidRule, "%s: predicate has no key", where))
		} else {
			c.fail(lserrors.Newf(lserrors.InvalidRule, "%s: predicate has several keys (%s)", where, strings.Join(keys, ", ")))
		}
		return nil, false
	}
	if p.Flags != "" && p.Regex == "" {
		c.fail(lserrors.Newf(lserrors.InvalidRule, "%s: flags without regex", where))
		return nil, false
	}

	var (
		pred heuristics.Predicate
		err  error
	)
	switch keys[0] {
	case "regex":
		pred, err = heuristics.Regex(p.Regex, p.Flags)
	case "substring":
		pred, err = heuristics.Substring(p.Substring)
	case "all-of", "any-of":
		operands := p.AllOf
		if keys[0] == "any-of" {
			operands = p.AnyOf
		}
		subs := make([]heuristics.Predicate, 0, len(operands))
		ok := true
		for i := range operands {
			sub, good := c.predicate(fmt.Sprintf("%s %s[%d]", where, keys[0], i), &operands[i])
			ok = ok && good
			subs = append(subs, sub)
		}
		if !ok {
			return nil, false
		}
		if keys[0] == "all-of" {
			pred, err = heuristics.AllOf(subs...)
		} else {
			pred, err = heuristics.AnyOf(subs...)
		}
	case "strip-then-regex":
		pred, err = heuristics.StripThenRegex(p.StripThenRegex.Strip, p.StripThenRegex.Pattern)
	case "not":
		sub, good := c.predicate(where+" not", p.Not)
		if !good {
			return nil, false
		}
		pred, err = heuristics.Not(sub)
	case "always":
		pred = heuristics.Always()
	case "named":
		if c.broken[p.Named] {
			return nil, false
		}
		named, ok := c.named[p.Named]
		if !ok {
			c.fail(lserrors.Newf(lserrors.InvalidRule, "%s: unknown named pattern %q", where, p.Named))
			return nil, false
		}
		pred = named
	}

	if err != nil {
		c.fail(fmt.Errorf("%s: %w", where, err))
		return nil, false
	}
	return pred, true
}

// keys lists the predicate keys set on p.
func (p *Predicate) keys() []string {
	var keys []string
	if p.Regex != "" {
		keys = append(keys, "regex")
	}
	if p.Substring != "" {
		keys = append(keys, "substring")
	}
	if len(p.AllOf) > 0 {
		keys = append(keys, "all-of")
	}
	if len(p.AnyOf) > 0 {
		keys = append(keys, "any-of")
	}
	if p.StripThenRegex != nil {
		keys = append(keys, "strip-then-regex")
	}
	if p.Not != nil {
		keys = append(keys, "not")
	}
	if p.Always {
		keys = append(keys, "always")
	}
	if p.Named != "" {
		keys = append(keys, "named")
	}
	return keys
}

func disambiguationLabel(i int, d Disambiguation) string {
	if len(d.Extensions) == 0 {
		return fmt.Sprintf("disambiguation %d", i)
	}
	return fmt.Sprintf("disambiguation %d [%s]", i, strings.Join(d.Extensions, " "))
}
