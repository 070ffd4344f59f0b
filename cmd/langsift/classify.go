package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"langsift/internal/disambiguate"
	"langsift/internal/sample"
	"langsift/internal/scan"
	"langsift/internal/storage"
)

type classifyOptions struct {
	format  string
	ext     string
	noCache bool
	workers int
}

func newClassifyCmd(a *app) *cobra.Command {
	opts := &classifyOptions{}

	cmd := &cobra.Command{
		Use:   "classify [paths...]",
		Short: "Classify files by content",
		Long: `Classify files whose extension is shared by several languages.

Directories are walked recursively. With --ext and no paths, content is read
from stdin and classified as if it had that extension.

Examples:
  langsift classify src/
  langsift classify include/foo.h lib/util.pl
  langsift classify --format=json .
  langsift classify --ext .h < header.h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd, a, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.format, "format", "human", "Output format (json, human)")
	cmd.Flags().StringVar(&opts.ext, "ext", "", "Extension to classify stdin content as")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "Bypass the classification cache")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Concurrent workers (default: scan.workers)")
	return cmd
}

func runClassify(cmd *cobra.Command, a *app, opts *classifyOptions, args []string) error {
	format, err := parseFormat(opts.format)
	if err != nil {
		return err
	}

	compiled, err := a.loadRules()
	if err != nil {
		return err
	}
	d := disambiguate.New(compiled.Table, a.logger)
	sampler := sample.NewSampler(a.cfg.Sample.MaxBytes)

	if len(args) == 0 {
		if opts.ext == "" {
			return fmt.Errorf("no paths given (use --ext to classify stdin)")
		}
		return classifyStdin(cmd, a, d, sampler, opts.ext, format)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var cache *storage.Cache
	if a.cfg.Cache.Enabled && !opts.noCache {
		db, err := storage.Open(a.root, a.logger)
		if err != nil {
			// The cache is an optimization; classify without it.
			a.logger.Warn("Cache unavailable", "error", err)
		} else {
			defer db.Close()
			cache = storage.NewCache(db, compiled.Fingerprint, time.Duration(a.cfg.Cache.TtlSeconds)*time.Second)
			if n, err := cache.Purge(ctx); err != nil {
				a.logger.Warn("Cache purge failed", "error", err)
			} else if n > 0 {
				a.logger.Debug("Purged stale cache entries", "count", n)
			}
		}
	}

	workers := opts.workers
	if workers <= 0 {
		workers = a.cfg.Scan.Workers
	}

	scanner := scan.New(d, compiled.Registry, sampler, cache, a.logger)
	res, err := scanner.Scan(ctx, scan.Options{
		Paths:           args,
		Root:            a.root,
		Workers:         workers,
		ClassifyTimeout: time.Duration(a.cfg.Scan.ClassifyTimeoutMs) * time.Millisecond,
		SkipBinary:      a.cfg.Scan.SkipBinary,
		Fallback:        a.cfg.Fallback.Enabled,
	})
	if err != nil {
		return err
	}

	if format == FormatJSON {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	return writeScanHuman(cmd.OutOrStdout(), res)
}

func classifyStdin(cmd *cobra.Command, a *app, d *disambiguate.Disambiguator, sampler *sample.Sampler, ext string, format OutputFormat) error {
	raw, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), int64(2*sampler.MaxBytes())))
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}

	ctx := cmd.Context()
	if ms := a.cfg.Scan.ClassifyTimeoutMs; ms > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(ms)*time.Millisecond)
		defer cancel()
	}

	res, err := d.ClassifyContext(ctx, ext, sampler.Sample(raw))
	if err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}

	if format == FormatJSON {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), describeResult(res.Language(), res.Names()))
	return err
}

func describeResult(language string, candidates []string) string {
	switch {
	case language != "":
		return language
	case len(candidates) > 0:
		return "ambiguous: " + strings.Join(candidates, ", ")
	default:
		return "undetermined"
	}
}

func writeScanHuman(w io.Writer, res *scan.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tRESULT\tSOURCE")
	for _, f := range res.Files {
		result := describeResult(f.Language, f.Candidates)
		switch f.Status {
		case scan.StatusSkipped:
			result = "skipped (binary)"
		case scan.StatusError:
			result = "error: " + f.Error
		}
		source := string(f.Source)
		if source == "" {
			source = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Path, result, source)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := res.Summary
	fmt.Fprintf(w, "\n%d files: %d decided, %d ambiguous, %d undetermined, %d skipped, %d errors (cache hits: %d)\n",
		s.Files, s.Decided, s.Ambiguous, s.Undetermined, s.Skipped, s.Errors, s.CacheHits)
	for _, lang := range s.Languages() {
		fmt.Fprintf(w, "  %-28s %d\n", lang, s.ByLanguage[lang])
	}
	return nil
}
