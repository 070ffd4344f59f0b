package rules

import (
	"io"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	lserrors "langsift/internal/errors"
)

// Encode writes set to w in the given format.
func Encode(w io.Writer, set *Set, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(set); err != nil {
			return lserrors.New(lserrors.RuleSource, "failed to encode YAML rules", err)
		}
		return enc.Close()
	case FormatTOML:
		enc := toml.NewEncoder(w)
		enc.SetIndentTables(true)
		if err := enc.Encode(set); err != nil {
			return lserrors.New(lserrors.RuleSource, "failed to encode TOML rules", err)
		}
		return nil
	default:
		return lserrors.Newf(lserrors.RuleSource, "unknown rule format %q", format)
	}
}
