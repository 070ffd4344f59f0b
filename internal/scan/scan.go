// Package scan classifies many files concurrently: it samples each file,
// consults the classification cache, runs the disambiguator under a per-file
// deadline and falls back to extension-only detection when the heuristics
// have no opinion.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"langsift/internal/disambiguate"
	"langsift/internal/languages"
	"langsift/internal/paths"
	"langsift/internal/sample"
	"langsift/internal/slogutil"
	"langsift/internal/storage"
)

// TracerName names the tracer used for scan spans.
const TracerName = "langsift/internal/scan"

// Status is the per-file outcome.
type Status string

const (
	StatusDecided      Status = "decided"
	StatusAmbiguous    Status = "ambiguous"
	StatusUndetermined Status = "undetermined"
	StatusSkipped      Status = "skipped"
	StatusError        Status = "error"
)

// Source says which stage produced a file's languages.
type Source string

const (
	SourceHeuristic Source = "heuristic"
	SourceCache     Source = "cache"
	SourceRegistry  Source = "registry"
	SourceEnry      Source = "enry"
)

// Options controls a scan.
type Options struct {
	// Paths are files or directories. Directories are walked recursively.
	Paths []string
	// Root, when set, makes reported paths relative to it.
	Root            string
	Workers         int
	ClassifyTimeout time.Duration
	SkipBinary      bool
	Fallback        bool
}

// FileResult is the classification of one file.
type FileResult struct {
	Path       string   `json:"path"`
	Extension  string   `json:"extension"`
	Status     Status   `json:"status"`
	Language   string   `json:"language,omitempty"`
	Candidates []string `json:"candidates"`
	Clause     int      `json:"clause"`
	Source     Source   `json:"source,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Summary aggregates a scan.
type Summary struct {
	Files        int            `json:"files"`
	Decided      int            `json:"decided"`
	Ambiguous    int            `json:"ambiguous"`
	Undetermined int            `json:"undetermined"`
	Skipped      int            `json:"skipped"`
	Errors       int            `json:"errors"`
	CacheHits    int            `json:"cacheHits"`
	ByLanguage   map[string]int `json:"byLanguage"`
}

// Result is a completed scan. Files are in walk order of the inputs.
type Result struct {
	RunID     string        `json:"runId"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"durationNs"`
	Files     []FileResult  `json:"files"`
	Summary   Summary       `json:"summary"`
}

// Scanner runs scans. It is safe for concurrent use.
type Scanner struct {
	disambiguator *disambiguate.Disambiguator
	registry      *languages.Registry
	sampler       *sample.Sampler
	cache         *storage.Cache
	logger        *slog.Logger
	tracer        trace.Tracer
}

// New creates a Scanner. cache may be nil to disable caching.
func New(d *disambiguate.Disambiguator, registry *languages.Registry, sampler *sample.Sampler, cache *storage.Cache, logger *slog.Logger) *Scanner {
	if sampler == nil {
		sampler = sample.NewSampler(sample.DefaultMaxBytes)
	}
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Scanner{
		disambiguator: d,
		registry:      registry,
		sampler:       sampler,
		cache:         cache,
		logger:        logger,
		tracer:        otel.Tracer(TracerName),
	}
}

// Scan classifies every file under opts.Paths. Per-file problems are
// reported in the file's result; the returned error is non-nil only when an
// input path cannot be walked or ctx is cancelled.
func (s *Scanner) Scan(ctx context.Context, opts Options) (*Result, error) {
	runID := uuid.New().String()
	started := time.Now()

	ctx, span := s.tracer.Start(ctx, "scan.Scan",
		trace.WithAttributes(
			attribute.String("scan.run_id", runID),
			attribute.Int("scan.inputs", len(opts.Paths)),
		),
	)
	defer span.End()

	files, err := collect(opts.Paths)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	results := make([]FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = s.scanFile(gctx, path, opts)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("scan cancelled: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scan cancelled: %w", err)
	}

	for i := range results {
		results[i].Path = paths.DisplayPath(results[i].Path, opts.Root)
	}

	res := &Result{
		RunID:     runID,
		StartedAt: started,
		Duration:  time.Since(started),
		Files:     results,
		Summary:   summarize(results),
	}

	span.SetAttributes(
		attribute.Int("scan.files", res.Summary.Files),
		attribute.Int("scan.decided", res.Summary.Decided),
	)
	s.logger.Info("Scan complete",
		"run_id", runID,
		"files", res.Summary.Files,
		"decided", res.Summary.Decided,
		"ambiguous", res.Summary.Ambiguous,
		"duration", res.Duration,
	)
	return res, nil
}

// ClassifyFile classifies a single file with the same pipeline as Scan.
func (s *Scanner) ClassifyFile(ctx context.Context, path string, opts Options) FileResult {
	r := s.scanFile(ctx, path, opts)
	r.Path = paths.DisplayPath(r.Path, opts.Root)
	return r
}

func (s *Scanner) scanFile(ctx context.Context, path string, opts Options) FileResult {
	ext := languages.NormalizeExtension(filepath.Ext(path))
	res := FileResult{Path: path, Extension: ext, Clause: -1, Candidates: []string{}}

	ctx, span := s.tracer.Start(ctx, "scan.File",
		trace.WithAttributes(
			attribute.String("file.path", path),
			attribute.String("file.extension", ext),
		),
	)
	defer func() {
		span.SetAttributes(attribute.String("file.status", string(res.Status)))
		span.End()
	}()

	raw, err := s.read(path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		res.Status = StatusError
		res.Error = err.Error()
		s.logger.Warn("Cannot read file", "path", path, "error", err)
		return res
	}
	if opts.SkipBinary && sample.IsBinary(raw) {
		res.Status = StatusSkipped
		return res
	}

	smp := s.sampler.Sample(raw)
	if err := s.classify(ctx, ext, smp, opts, &res); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		res.Status = StatusError
		res.Error = err.Error()
		s.logger.Warn("Classification failed", "path", path, "error", err)
		return res
	}

	if opts.Fallback && res.Clause < 0 && len(res.Candidates) == 0 {
		s.fallback(path, ext, &res)
	}
	res.Status = status(res)
	return res
}

// read returns up to twice the sample budget. The slack lets the sampler
// keep an overlong first line whole.
func (s *Scanner) read(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, int64(2*s.sampler.MaxBytes())))
}

func (s *Scanner) classify(ctx context.Context, ext string, smp sample.Sample, opts Options, res *FileResult) error {
	_, hasChain := s.disambiguator.Table().Lookup(ext)
	useCache := s.cache != nil && hasChain

	if useCache {
		cached, ok, err := s.cache.Get(ctx, ext, smp.Bytes())
		if err != nil {
			s.logger.Warn("Cache lookup failed", "error", err)
		} else if ok {
			res.Candidates = cached.Candidates
			res.Clause = cached.Clause
			if cached.Decided && len(cached.Candidates) > 0 {
				res.Language = cached.Candidates[0]
			}
			res.Source = SourceCache
			return nil
		}
	}

	cctx := ctx
	if opts.ClassifyTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, opts.ClassifyTimeout)
		defer cancel()
	}
	result, err := s.disambiguator.ClassifyContext(cctx, ext, smp)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("classification timed out after %s", opts.ClassifyTimeout)
		}
		return err
	}

	res.Candidates = result.Names()
	res.Clause = result.Clause
	res.Language = result.Language()
	if result.Clause >= 0 {
		res.Source = SourceHeuristic
	}

	if useCache {
		entry := storage.CachedResult{Candidates: res.Candidates, Decided: result.Decided, Clause: result.Clause}
		if err := s.cache.Put(ctx, ext, smp.Bytes(), entry); err != nil {
			s.logger.Warn("Cache store failed", "error", err)
		}
	}
	return nil
}

// fallback applies extension-only detection: the registry first, then
// go-enry's extension table.
func (s *Scanner) fallback(path, ext string, res *FileResult) {
	if ext == "" {
		return
	}
	if s.registry != nil {
		if langs := s.registry.ByExtension(ext); len(langs) > 0 {
			res.Candidates = make([]string, len(langs))
			for i, l := range langs {
				res.Candidates[i] = l.Name
			}
			if len(langs) == 1 {
				res.Language = langs[0].Name
			}
			res.Source = SourceRegistry
			return
		}
	}
	if names := enryCandidates(path); len(names) > 0 {
		res.Candidates = names
		if len(names) == 1 {
			res.Language = names[0]
		}
		res.Source = SourceEnry
	}
}

func status(r FileResult) Status {
	switch {
	case r.Language != "":
		return StatusDecided
	case len(r.Candidates) > 0:
		return StatusAmbiguous
	default:
		return StatusUndetermined
	}
}

func summarize(files []FileResult) Summary {
	sum := Summary{Files: len(files), ByLanguage: map[string]int{}}
	for _, f := range files {
		switch f.Status {
		case StatusDecided:
			sum.Decided++
			sum.ByLanguage[f.Language]++
		case StatusAmbiguous:
			sum.Ambiguous++
		case StatusUndetermined:
			sum.Undetermined++
		case StatusSkipped:
			sum.Skipped++
		case StatusError:
			sum.Errors++
		}
		if f.Source == SourceCache {
			sum.CacheHits++
		}
	}
	return sum
}

// collect expands inputs into a file list. Directories are walked in lexical
// order and their .git and .langsift subdirectories are skipped.
func collect(inputs []string) ([]string, error) {
	var files []string
	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", in, err)
		}
		if !info.IsDir() {
			files = append(files, in)
			continue
		}
		err = filepath.WalkDir(in, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != in && (d.Name() == ".git" || d.Name() == paths.DirName) {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", in, err)
		}
	}
	return files, nil
}

// Languages returns the decided languages of a summary ordered by count,
// then name.
func (s Summary) Languages() []string {
	names := make([]string, 0, len(s.ByLanguage))
	for name := range s.ByLanguage {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if s.ByLanguage[names[i]] != s.ByLanguage[names[j]] {
			return s.ByLanguage[names[i]] > s.ByLanguage[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}
