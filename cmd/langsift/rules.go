package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	lserrors "langsift/internal/errors"
	"langsift/internal/heuristics"
	"langsift/internal/languages"
	"langsift/internal/rules"
)

func newRulesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and validate heuristic rules",
		Long: `Inspect, validate and export the heuristic rule set.

Without --rules or rules.path in the config, the built-in rules are used.`,
	}
	cmd.AddCommand(
		newRulesValidateCmd(a),
		newRulesListCmd(a),
		newRulesExportCmd(a),
	)
	return cmd
}

func newRulesValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a rule file and report every problem",
		Long: `Compile a rule file and report every configuration error found: unknown
languages, invalid patterns, empty chains and duplicate extensions.

Examples:
  langsift rules validate
  langsift rules validate my-rules.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.rulesFile()
			if len(args) == 1 {
				path = args[0]
			}
			return runRulesValidate(cmd.OutOrStdout(), path)
		},
	}
}

func runRulesValidate(w io.Writer, path string) error {
	set, err := loadSet(path)
	if err != nil {
		return err
	}

	compiled, err := rules.Compile(set)
	if err != nil {
		problems := flatten(err)
		for _, p := range problems {
			fmt.Fprintf(w, "✗ %v\n", p)
			if code, ok := lserrors.CodeOf(p); ok {
				for _, fix := range lserrors.GetSuggestedFixes(code) {
					fmt.Fprintf(w, "    fix: %s\n", fix.Description)
				}
			}
		}
		return fmt.Errorf("rule validation failed: %d problem(s)", len(problems))
	}

	name := path
	if name == "" {
		name = "built-in rules"
	}
	fmt.Fprintf(w, "✓ %s: %d languages, %d extensions (fingerprint %s)\n",
		name, compiled.Registry.Len(), compiled.Table.Len(), shortFingerprint(compiled.Fingerprint))
	return nil
}

// flatten expands errors.Join trees into their leaves.
func flatten(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []error{err}
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

func loadSet(path string) (*rules.Set, error) {
	if path == "" {
		return rules.DefaultSet()
	}
	return rules.Load(path)
}

// ChainListing is one extension's chain as printed by rules list.
type ChainListing struct {
	Extension string          `json:"extension"`
	Clauses   []ClauseListing `json:"clauses"`
}

// ClauseListing is one clause of a chain.
type ClauseListing struct {
	Outcome   string `json:"outcome"`
	Predicate string `json:"predicate"`
}

func newRulesListCmd(a *app) *cobra.Command {
	var format string
	var ext string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the heuristic chain for each extension",
		Long: `List every extension with a heuristic chain and its clauses in evaluation
order.

Examples:
  langsift rules list
  langsift rules list --ext .h
  langsift rules list --format=json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFormat(format)
			if err != nil {
				return err
			}
			compiled, err := a.loadRules()
			if err != nil {
				return err
			}
			listing, err := listChains(compiled.Table, ext)
			if err != nil {
				return err
			}
			if f == FormatJSON {
				return writeJSON(cmd.OutOrStdout(), listing)
			}
			writeChainsHuman(cmd.OutOrStdout(), listing)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "human", "Output format (json, human)")
	cmd.Flags().StringVar(&ext, "ext", "", "Only list this extension")
	return cmd
}

func listChains(table *heuristics.Table, only string) ([]ChainListing, error) {
	exts := table.Extensions()
	if only != "" {
		if _, ok := table.Lookup(only); !ok {
			return nil, fmt.Errorf("no heuristic chain for extension %q", only)
		}
		exts = []string{languages.NormalizeExtension(only)}
	}

	listing := make([]ChainListing, 0, len(exts))
	for _, ext := range exts {
		chain, _ := table.Lookup(ext)
		cl := ChainListing{Extension: ext}
		for _, c := range chain.Clauses() {
			cl.Clauses = append(cl.Clauses, ClauseListing{
				Outcome:   c.Outcome.String(),
				Predicate: heuristics.Describe(c.Predicate),
			})
		}
		listing = append(listing, cl)
	}
	return listing, nil
}

func writeChainsHuman(w io.Writer, listing []ChainListing) {
	for i, cl := range listing {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s\n", cl.Extension)
		for j, c := range cl.Clauses {
			fmt.Fprintf(w, "  %d. %s\n     when %s\n", j+1, c.Outcome, c.Predicate)
		}
	}
}

func newRulesExportCmd(a *app) *cobra.Command {
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the rule set as YAML or TOML",
		Long: `Write the active rule set (built-in unless --rules is given) in YAML or
TOML. The output is a valid rule file and a starting point for custom rules.

Examples:
  langsift rules export > rules.yaml
  langsift rules export --format=toml -o rules.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := loadSet(a.rulesFile())
			if err != nil {
				return err
			}

			f := rules.Format(format)
			if output == "" {
				return rules.Encode(cmd.OutOrStdout(), set, f)
			}

			if dir := filepath.Dir(output); dir != "." {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return err
				}
			}
			file, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := rules.Encode(file, set, f); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}
			a.logger.Info("Rules exported", "path", output, "format", format)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", string(rules.FormatYAML), "Output format (yaml, toml)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}
