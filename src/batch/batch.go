// Package batch drives the scanner over many subjects in fixed-size
// chunks, checking time and memory budgets between chunks.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/config"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/scan"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/store"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/threat"
)

// Reader loads the content of a subject.
type Reader interface {
	Read(ctx context.Context, subj scan.Subject) ([]byte, error)
}

// ReaderFunc adapts a function to Reader.
type ReaderFunc func(ctx context.Context, subj scan.Subject) ([]byte, error)

func (f ReaderFunc) Read(ctx context.Context, subj scan.Subject) ([]byte, error) {
	return f(ctx, subj)
}

// Scanner is the part of *scan.Scanner the orchestrator needs.
type Scanner interface {
	Scan(ctx context.Context, subj scan.Subject, content []byte, opts scan.Options) (scan.Result, error)
}

type Options struct {
	Force     bool
	BatchSize int
	// Workers bounds how many subjects of one chunk are scanned at once.
	Workers int
	// MaxDuration and MemoryLimit are checked between chunks. Zero
	// disables the check.
	MaxDuration time.Duration
	MemoryLimit uint64
}

const (
	DefaultBatchSize = 25
	DefaultWorkers   = 1
)

// FromConfig converts a resolved config profile into Options.
func FromConfig(c config.BatchConfig) Options {
	var o Options
	if c.BatchSize != nil {
		o.BatchSize = *c.BatchSize
	}
	if c.Workers != nil {
		o.Workers = *c.Workers
	}
	if c.MaxDuration != nil {
		o.MaxDuration = c.MaxDuration.Std()
	}
	if c.MemoryLimitMB != nil && *c.MemoryLimitMB > 0 {
		o.MemoryLimit = uint64(*c.MemoryLimitMB) << 20
	}
	if c.Force != nil {
		o.Force = *c.Force
	}
	return o
}

// ScanError is a failure isolated to one subject.
type ScanError struct {
	SubjectID string
	Err       error
}

func (e *ScanError) Error() string { return fmt.Sprintf("%s: %v", e.SubjectID, e.Err) }
func (e *ScanError) Unwrap() error { return e.Err }

// Flagged is a subject whose scan produced at least one finding.
type Flagged struct {
	SubjectID string           `json:"subjectId"`
	Path      string           `json:"path"`
	Severity  threat.Severity  `json:"severity"`
	Findings  []threat.Finding `json:"findings"`
}

// Summary describes one run. Scanned plus len(Errors) always equals
// Attempted.
type Summary struct {
	RunID           string        `json:"runId"`
	StartedAt       time.Time     `json:"startedAt"`
	Eligible        int           `json:"eligible"`
	Attempted       int           `json:"attempted"`
	Scanned         int           `json:"scanned"`
	Cached          int           `json:"cached"`
	Findings        int           `json:"findings"`
	Flagged         []Flagged     `json:"flagged"`
	Duration        time.Duration `json:"duration"`
	PeakMemoryDelta uint64        `json:"peakMemoryDelta"`
	Chunks          int           `json:"chunks"`
	Errors          []string      `json:"errors"`
	Warnings        []string      `json:"warnings"`
	StoppedEarly    bool          `json:"stoppedEarly"`
	StopReason      string        `json:"stopReason,omitempty"`
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMemoryProbe replaces the heap usage probe, for tests.
func WithMemoryProbe(probe func() uint64) Option {
	return func(o *Orchestrator) { o.memory = probe }
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator runs batches. Runs may overlap; Last reports whichever
// finished most recently.
type Orchestrator struct {
	logger  *slog.Logger
	scanner Scanner
	memory  func() uint64
	now     func() time.Time

	mu   sync.Mutex
	last *Summary
}

func New(logger *slog.Logger, scanner Scanner, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:  logger.With("area", "batch"),
		scanner: scanner,
		memory:  heapAlloc,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func heapAlloc() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapAlloc
}

// Last returns the summary of the most recent completed run.
func (o *Orchestrator) Last() (Summary, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last == nil {
		return Summary{}, false
	}
	return *o.last, true
}

type outcome struct {
	subject scan.Subject
	result  scan.Result
	err     error
	warning error
}

// Run scans subjects chunk by chunk. It never fails as a whole: per-subject
// errors land in Summary.Errors and an exceeded budget or cancelled context
// stops the run after the current chunk.
func (o *Orchestrator) Run(ctx context.Context, subjects []scan.Subject, r Reader, opts Options) Summary {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}

	start := o.now()
	baseline := o.memory()
	sum := Summary{
		RunID:     uuid.NewString(),
		StartedAt: start.UTC(),
		Eligible:  len(subjects),
		Flagged:   []Flagged{},
		Errors:    []string{},
		Warnings:  []string{},
	}
	log := o.logger.With("run", sum.RunID)
	log.Info("batch scan started", "subjects", len(subjects), "batchSize", opts.BatchSize, "workers", opts.Workers)

	for lo := 0; lo < len(subjects); lo += opts.BatchSize {
		if lo > 0 {
			if reason := o.checkpoint(ctx, opts, start, baseline, lo, len(subjects)); reason != "" {
				sum.StoppedEarly = true
				sum.StopReason = reason
				log.Warn("batch scan stopped early", "reason", reason)
				break
			}
		}

		hi := min(lo+opts.BatchSize, len(subjects))
		for _, out := range o.runChunk(ctx, subjects[lo:hi], r, opts) {
			sum.add(out)
		}
		sum.Chunks++

		if used := o.memory(); used > baseline {
			sum.PeakMemoryDelta = max(sum.PeakMemoryDelta, used-baseline)
		}
	}

	sum.Duration = o.now().Sub(start)
	log.Info("batch scan finished",
		"scanned", sum.Scanned,
		"cached", sum.Cached,
		"errors", len(sum.Errors),
		"flagged", len(sum.Flagged),
		"duration", sum.Duration,
	)

	o.mu.Lock()
	o.last = &sum
	o.mu.Unlock()
	return sum
}

// checkpoint returns a non-empty reason when the run must stop before the
// subject at index next.
func (o *Orchestrator) checkpoint(ctx context.Context, opts Options, start time.Time, baseline uint64, next, total int) string {
	if err := ctx.Err(); err != nil {
		return fmt.Sprintf("cancelled after %d of %d subjects: %v", next, total, err)
	}
	if opts.MaxDuration > 0 {
		if elapsed := o.now().Sub(start); elapsed >= opts.MaxDuration {
			return fmt.Sprintf("time budget of %s exceeded after %d of %d subjects", opts.MaxDuration, next, total)
		}
	}
	if opts.MemoryLimit > 0 {
		if used := o.memory(); used > baseline && used-baseline >= opts.MemoryLimit {
			return fmt.Sprintf("memory budget of %d MiB exceeded after %d of %d subjects", opts.MemoryLimit>>20, next, total)
		}
	}
	return ""
}

// runChunk scans one chunk with at most opts.Workers in flight and
// returns outcomes in subject order.
func (o *Orchestrator) runChunk(ctx context.Context, chunk []scan.Subject, r Reader, opts Options) []outcome {
	outcomes := make([]outcome, len(chunk))
	guard := make(chan struct{}, opts.Workers)
	var wg sync.WaitGroup
	for i, subj := range chunk {
		guard <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-guard }()
			outcomes[i] = o.scanOne(ctx, subj, r, opts)
		}()
	}
	wg.Wait()
	return outcomes
}

func (o *Orchestrator) scanOne(ctx context.Context, subj scan.Subject, r Reader, opts Options) (out outcome) {
	out.subject = subj
	defer func() {
		if p := recover(); p != nil {
			out.err = &ScanError{SubjectID: subj.ID, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	content, err := r.Read(ctx, subj)
	if err != nil {
		out.err = &ScanError{SubjectID: subj.ID, Err: fmt.Errorf("reading: %w", err)}
		return out
	}

	res, err := o.scanner.Scan(ctx, subj, content, scan.Options{Force: opts.Force})
	var storeErr *store.Error
	switch {
	case err == nil:
	case errors.As(err, &storeErr):
		out.warning = err
	default:
		out.err = &ScanError{SubjectID: subj.ID, Err: err}
		return out
	}
	out.result = res
	return out
}

func (s *Summary) add(out outcome) {
	s.Attempted++
	if out.err != nil {
		s.Errors = append(s.Errors, out.err.Error())
		return
	}
	if out.warning != nil {
		s.Warnings = append(s.Warnings, fmt.Sprintf("%s: %v", out.subject.ID, out.warning))
	}

	s.Scanned++
	if out.result.Cached {
		s.Cached++
	}
	rec := out.result.Record
	s.Findings += len(rec.Findings)
	if len(rec.Findings) > 0 {
		s.Flagged = append(s.Flagged, Flagged{
			SubjectID: out.subject.ID,
			Path:      out.subject.Path,
			Severity:  rec.Severity,
			Findings:  rec.Findings,
		})
	}
}
