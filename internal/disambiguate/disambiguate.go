// Package disambiguate decides which of the languages sharing an extension a
// file is written in, by walking that extension's heuristic chain against a
// content sample.
package disambiguate

import (
	"context"
	"log/slog"

	"langsift/internal/heuristics"
	"langsift/internal/languages"
	"langsift/internal/sample"
	"langsift/internal/slogutil"
)

// Result is the outcome of one classification.
type Result struct {
	Extension  string               `json:"extension"`
	Candidates []languages.Language `json:"candidates"`
	Decided    bool                 `json:"decided"`
	// Clause is the index of the clause that matched, or -1.
	Clause int `json:"clause"`
}

// Language returns the decided language name, or "" when undecided.
func (r Result) Language() string {
	if !r.Decided || len(r.Candidates) == 0 {
		return ""
	}
	return r.Candidates[0].Name
}

// Names returns the candidate names in order.
func (r Result) Names() []string {
	names := make([]string, len(r.Candidates))
	for i, l := range r.Candidates {
		names[i] = l.Name
	}
	return names
}

// Disambiguator classifies samples against a sealed table. It keeps no
// per-call state and may be shared by any number of goroutines.
type Disambiguator struct {
	table  *heuristics.Table
	logger *slog.Logger
}

// New creates a Disambiguator over table. The table must be sealed.
func New(table *heuristics.Table, logger *slog.Logger) *Disambiguator {
	if !table.Sealed() {
		panic("disambiguate: table is not sealed")
	}
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Disambiguator{table: table, logger: logger}
}

// Classify evaluates the chain registered for ext against s.
//
// An unknown extension, an exhausted chain and an unavailable sample all
// yield an undecided result with no candidates. A matching clause with a
// single language yields a decided result; one with several languages
// yields an undecided, narrowed result.
func (d *Disambiguator) Classify(ext string, s sample.Sample) Result {
	norm := languages.NormalizeExtension(ext)
	res := Result{Extension: norm, Clause: -1}

	chain, ok := d.table.Lookup(norm)
	if !ok {
		d.logger.Debug("No chain for extension", "ext", norm)
		return res
	}
	if !s.Available() {
		d.logger.Debug("No content available", "ext", norm)
		return res
	}

	outcome, idx := chain.Evaluate(s)
	if idx < 0 {
		d.logger.Debug("Chain exhausted", "ext", norm, "clauses", chain.Len())
		return res
	}

	res.Candidates = outcome.Languages()
	res.Decided = outcome.Decided()
	res.Clause = idx
	d.logger.Debug("Clause matched",
		"ext", norm,
		"clause", idx,
		"outcome", outcome.String())
	return res
}

// ClassifyContext is Classify bounded by ctx. If ctx ends before the chain
// has been evaluated it returns ctx.Err(); the evaluation goroutine finishes
// in the background and its result is discarded.
func (d *Disambiguator) ClassifyContext(ctx context.Context, ext string, s sample.Sample) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	done := make(chan Result, 1)
	go func() {
		done <- d.Classify(ext, s)
	}()

	select {
	case res := <-done:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Table returns the table the disambiguator reads from.
func (d *Disambiguator) Table() *heuristics.Table { return d.table }
