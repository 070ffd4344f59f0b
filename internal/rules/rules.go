// Package rules loads declarative disambiguation rules and compiles them
// into a language registry and a sealed heuristics table.
//
// Rule sources are YAML (.yaml, .yml) or TOML (.toml). A source lists the
// known languages, optional named pattern lists, and one ordered rule list
// per group of extensions:
//
//	languages:
//	  - name: C++
//	    aliases: [cpp]
//	    extensions: [.h, .cpp]
//	named_patterns:
//	  cpp: ['^\s*template\s*<', 'std::\w+']
//	disambiguations:
//	  - extensions: [.h]
//	    rules:
//	      - language: Objective-C
//	        match: {regex: '^\s*@interface'}
//	      - language: C++
//	        match: {named: cpp}
package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	lserrors "langsift/internal/errors"
	"langsift/internal/languages"
)

// Format identifies a rule source encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", lserrors.Newf(lserrors.RuleSource, "unsupported rule file %q (want .yaml, .yml or .toml)", path)
	}
}

// Set is a complete rule source.
type Set struct {
	Languages       []languages.Language `yaml:"languages" toml:"languages"`
	NamedPatterns   map[string][]string  `yaml:"named_patterns,omitempty" toml:"named_patterns,omitempty"`
	Disambiguations []Disambiguation     `yaml:"disambiguations" toml:"disambiguations"`
}

// Disambiguation is the ordered rule list shared by a group of extensions.
type Disambiguation struct {
	Extensions []string `yaml:"extensions" toml:"extensions"`
	Rules      []Rule   `yaml:"rules" toml:"rules"`
}

// Rule is one heuristic clause. Exactly one of Language and Languages is set.
type Rule struct {
	// Language decides the classification.
	Language string `yaml:"language,omitempty" toml:"language,omitempty"`
	// Languages narrows the classification to several candidates.
	Languages []string   `yaml:"languages,omitempty" toml:"languages,omitempty"`
	Match     *Predicate `yaml:"match" toml:"match"`
}

// Predicate is a predicate node. Exactly one of its keys is set, except that
// Flags accompanies Regex.
type Predicate struct {
	Regex          string      `yaml:"regex,omitempty" toml:"regex,omitempty"`
	Flags          string      `yaml:"flags,omitempty" toml:"flags,omitempty"`
	Substring      string      `yaml:"substring,omitempty" toml:"substring,omitempty"`
	AllOf          []Predicate `yaml:"all-of,omitempty" toml:"all-of,omitempty"`
	AnyOf          []Predicate `yaml:"any-of,omitempty" toml:"any-of,omitempty"`
	StripThenRegex *Strip      `yaml:"strip-then-regex,omitempty" toml:"strip-then-regex,omitempty"`
	Not            *Predicate  `yaml:"not,omitempty" toml:"not,omitempty"`
	Always         bool        `yaml:"always,omitempty" toml:"always,omitempty"`
	// Named refers to a list in Set.NamedPatterns; it matches when any
	// pattern of the list does.
	Named string `yaml:"named,omitempty" toml:"named,omitempty"`
}

// Strip holds the operands of a strip-then-regex predicate.
type Strip struct {
	Strip   string `yaml:"strip" toml:"strip"`
	Pattern string `yaml:"pattern" toml:"pattern"`
}

// Load reads a rule file, choosing the decoder from its extension.
func Load(path string) (*Set, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, lserrors.New(lserrors.RuleSource, "failed to read rule file "+path, err)
	}
	set, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// Parse decodes a rule source. Unknown keys are rejected so that a typo in a
// predicate key cannot silently drop a rule.
func Parse(data []byte, format Format) (*Set, error) {
	var set Set
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&set); err != nil && !errors.Is(err, io.EOF) {
			return nil, lserrors.New(lserrors.RuleSource, "failed to parse YAML rules", err)
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), &set)
		if err != nil {
			return nil, lserrors.New(lserrors.RuleSource, "failed to parse TOML rules", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, lserrors.Newf(lserrors.RuleSource, "unknown keys in TOML rules: %s", strings.Join(keys, ", "))
		}
	default:
		return nil, lserrors.Newf(lserrors.RuleSource, "unknown rule format %q", format)
	}
	return &set, nil
}

// Extensions returns every extension the set disambiguates, in source order.
func (s *Set) Extensions() []string {
	var exts []string
	for _, d := range s.Disambiguations {
		exts = append(exts, d.Extensions...)
	}
	return exts
}
