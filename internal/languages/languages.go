// Package languages holds the immutable registry of canonical language
// identifiers referenced by disambiguation rules.
package languages

import (
	"sort"
	"strings"

	lserrors "langsift/internal/errors"
)

// Language is a canonical language identity. Two languages are the same
// language when their Name is equal.
type Language struct {
	Name       string   `json:"name" yaml:"name" toml:"name"`
	Aliases    []string `json:"aliases,omitempty" yaml:"aliases,omitempty" toml:"aliases,omitempty"`
	Extensions []string `json:"extensions,omitempty" yaml:"extensions,omitempty" toml:"extensions,omitempty"`
}

// String returns the canonical name.
func (l Language) String() string { return l.Name }

// Registry resolves names and aliases to languages. It is built once and
// never mutated, so it is safe for concurrent readers.
type Registry struct {
	byName  map[string]Language   // lower-cased name or alias -> language
	byExt   map[string][]Language // normalized extension -> languages, sorted by name
	ordered []Language
}

// NewRegistry validates and registers langs.
func NewRegistry(langs ...Language) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]Language, len(langs)*2),
		byExt:  make(map[string][]Language),
	}

	for _, l := range langs {
		lang, err := normalize(l)
		if err != nil {
			return nil, err
		}

		keys := lookupKeys(lang)
		for _, key := range keys {
			if prev, ok := r.byName[key]; ok {
				if prev.Name == lang.Name {
					return nil, lserrors.Newf(lserrors.DuplicateLanguage, "language %q registered twice", lang.Name)
				}
				return nil, lserrors.Newf(lserrors.DuplicateLanguage,
					"%q of language %q is already registered for %q", key, lang.Name, prev.Name)
			}
		}
		for _, key := range keys {
			r.byName[key] = lang
		}
		for _, ext := range lang.Extensions {
			r.byExt[ext] = append(r.byExt[ext], lang)
		}
		r.ordered = append(r.ordered, lang)
	}

	for ext := range r.byExt {
		list := r.byExt[ext]
		sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	}
	sort.Slice(r.ordered, func(i, j int) bool { return r.ordered[i].Name < r.ordered[j].Name })

	return r, nil
}

func normalize(l Language) (Language, error) {
	name := strings.TrimSpace(l.Name)
	if name == "" {
		return Language{}, lserrors.Newf(lserrors.InvalidRule, "language with empty name")
	}

	lang := Language{Name: name}
	for _, a := range l.Aliases {
		a = strings.TrimSpace(a)
		if a == "" {
			return Language{}, lserrors.Newf(lserrors.InvalidRule, "language %q has an empty alias", name)
		}
		lang.Aliases = append(lang.Aliases, a)
	}
	for _, ext := range l.Extensions {
		norm := NormalizeExtension(ext)
		if norm == "" {
			return Language{}, lserrors.Newf(lserrors.InvalidRule, "language %q declares invalid extension %q", name, ext)
		}
		lang.Extensions = append(lang.Extensions, norm)
	}
	return lang, nil
}

// lookupKeys returns the distinct lower-cased name and aliases of lang.
func lookupKeys(lang Language) []string {
	seen := make(map[string]bool, len(lang.Aliases)+1)
	keys := make([]string, 0, len(lang.Aliases)+1)
	for _, k := range append([]string{lang.Name}, lang.Aliases...) {
		k = strings.ToLower(k)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

// Resolve returns the language registered under nameOrAlias, compared
// case-insensitively. It fails with UNKNOWN_LANGUAGE otherwise.
func (r *Registry) Resolve(nameOrAlias string) (Language, error) {
	if l, ok := r.byName[strings.ToLower(strings.TrimSpace(nameOrAlias))]; ok {
		return l, nil
	}
	return Language{}, lserrors.Newf(lserrors.UnknownLanguage, "language %q is not registered", nameOrAlias)
}

// ByExtension returns every language declaring ext, sorted by name.
func (r *Registry) ByExtension(ext string) []Language {
	list := r.byExt[NormalizeExtension(ext)]
	if len(list) == 0 {
		return nil
	}
	return append([]Language(nil), list...)
}

// All returns every registered language, sorted by name.
func (r *Registry) All() []Language {
	return append([]Language(nil), r.ordered...)
}

// Names returns the canonical names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, len(r.ordered))
	for i, l := range r.ordered {
		names[i] = l.Name
	}
	return names
}

// Len returns the number of registered languages.
func (r *Registry) Len() int { return len(r.ordered) }

// NormalizeExtension lower-cases ext and ensures a leading dot.
// It returns "" for an empty extension or a lone dot.
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
