package rules

import (
	_ "embed"
	"sync"
)

//go:embed default.yaml
var defaultRules []byte

var (
	defaultOnce     sync.Once
	defaultCompiled *Compiled
	defaultErr      error
)

// DefaultSource returns the raw embedded default rule source.
func DefaultSource() []byte {
	return append([]byte(nil), defaultRules...)
}

// DefaultSet parses the embedded default rules.
func DefaultSet() (*Set, error) {
	return Parse(defaultRules, FormatYAML)
}

// LoadDefault compiles the embedded default rules once per process. Every
// caller receives the same immutable result.
func LoadDefault() (*Compiled, error) {
	defaultOnce.Do(func() {
		set, err := DefaultSet()
		if err != nil {
			defaultErr = err
			return
		}
		defaultCompiled, defaultErr = Compile(set)
	})
	return defaultCompiled, defaultErr
}

// LoadOrDefault compiles the rule file at path, or the embedded default rules
// when path is empty.
func LoadOrDefault(path string) (*Compiled, error) {
	if path == "" {
		return LoadDefault()
	}
	set, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Compile(set)
}
