package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"langsift/internal/config"
	"langsift/internal/rules"
	"langsift/internal/slogutil"
	"langsift/internal/version"
)

// app carries what PersistentPreRunE resolved for the running command.
type app struct {
	root      string
	rulesPath string
	verbosity int
	quiet     bool

	cfg     *config.Config
	logger  *slog.Logger
	factory *slogutil.LoggerFactory
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "langsift",
		Short: "langsift - content-based language disambiguation",
		Long: `langsift decides which programming language a file is written in when its
extension is shared by several languages (.h, .pl, .md, .inc, ...). It walks an
ordered chain of content heuristics per extension and stops at the first match.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.factory != nil {
				return a.factory.Close()
			}
			return nil
		},
	}
	cmd.SetVersionTemplate("langsift version {{.Version}}\n")

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.root, "root", ".", "Project root holding .langsift/config.json")
	flags.StringVar(&a.rulesPath, "rules", "", "Rule file (YAML or TOML); overrides rules.path")
	flags.CountVarP(&a.verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "Suppress all log output")

	cmd.AddCommand(
		newClassifyCmd(a),
		newRulesCmd(a),
		newCacheCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	root, err := filepath.Abs(a.root)
	if err != nil {
		return fmt.Errorf("invalid root: %w", err)
	}
	a.root = root

	cfg, err := config.LoadConfig(root)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if a.rulesPath != "" {
		cfg.Rules.Path = a.rulesPath
	}
	a.cfg = cfg

	a.factory = slogutil.NewLoggerFactory(cfg, a.verbosity, a.quiet)
	a.logger = a.factory.Logger(cmd.ErrOrStderr())
	return nil
}

// rulesFile resolves the configured rule file against the root. Empty means
// the built-in rules.
func (a *app) rulesFile() string {
	p := a.cfg.Rules.Path
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.root, p)
}

// loadRules compiles the configured rule set.
func (a *app) loadRules() (*rules.Compiled, error) {
	path := a.rulesFile()
	compiled, err := rules.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	source := path
	if source == "" {
		source = "built-in"
	}
	a.logger.Debug("Rules loaded",
		"source", source,
		"languages", compiled.Registry.Len(),
		"extensions", compiled.Table.Len(),
		"fingerprint", compiled.Fingerprint,
	)
	return compiled, nil
}
