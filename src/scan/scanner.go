// Package scan runs the detectors over one document, classifies the
// result and persists it, reusing a fresh cached record when the content
// has not changed.
package scan

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/detect"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/store"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/svgdoc"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/threat"
)

// Version is stamped on every record this scanner produces.
const Version = "1.0.0"

// ErrDocumentTooLarge is returned for content above the configured size
// limit. Such content is never scanned and must be treated as unsafe.
var ErrDocumentTooLarge = errors.New("document exceeds size limit")

// Subject identifies the document being scanned.
type Subject struct {
	ID   string
	Path string
}

type Options struct {
	// Force bypasses the freshness cache.
	Force bool
}

// Result is the outcome of Scan. Cached is true when Record came from the
// store without running the detectors.
type Result struct {
	Record store.Record
	Cached bool
}

// Runner produces findings for an input. *detect.Engine satisfies it.
type Runner interface {
	Run(in detect.Input) []threat.Finding
}

// Scanner is safe for concurrent use when its Store is.
type Scanner struct {
	logger    *slog.Logger
	store     store.Store
	runner    Runner
	limits    svgdoc.Limits
	freshness time.Duration
}

func New(logger *slog.Logger, st store.Store, runner Runner, limits svgdoc.Limits, freshness time.Duration) *Scanner {
	return &Scanner{
		logger:    logger.With("area", "scanner"),
		store:     st,
		runner:    runner,
		limits:    limits,
		freshness: freshness,
	}
}

// Hash is the content identity used for caching.
func Hash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Scan inspects content for subj. A failed Put still returns the computed
// record together with the store error, so callers can act on the verdict.
func (s *Scanner) Scan(ctx context.Context, subj Subject, content []byte, opts Options) (Result, error) {
	if s.limits.MaxBytes > 0 && len(content) > s.limits.MaxBytes {
		return Result{}, fmt.Errorf("%s: %w (%d > %d bytes)", subj.ID, ErrDocumentTooLarge, len(content), s.limits.MaxBytes)
	}

	hash := Hash(content)
	if !opts.Force && s.freshness > 0 {
		rec, ok, err := s.store.FindRecent(ctx, subj.ID, hash, s.freshness)
		switch {
		case err != nil:
			s.logger.Warn("cache lookup failed, rescanning", "subject", subj.ID, "err", err)
		case ok:
			s.logger.Debug("cache hit", "subject", subj.ID, "record", rec.ID)
			return Result{Record: rec, Cached: true}, nil
		}
	}

	findings := s.runner.Run(detect.NewInput(content, s.limits))
	rec := store.Record{
		SubjectID:      subj.ID,
		Path:           subj.Path,
		Size:           int64(len(content)),
		Hash:           hash,
		Findings:       findings,
		Severity:       threat.Classify(findings),
		ScannerVersion: Version,
		Status:         store.StatusActive,
	}

	stored, err := s.store.Put(ctx, rec)
	if err != nil {
		s.logger.Error("failed to persist scan", "subject", subj.ID, "err", err)
		rec.ScannedAt = time.Now().UTC()
		return Result{Record: rec}, err
	}

	s.logger.Debug("scanned", "subject", subj.ID, "severity", stored.Severity, "findings", len(findings))
	return Result{Record: stored}, nil
}

// Verdict is the upload-time decision from Check.
type Verdict struct {
	Safe     bool             `json:"safe"`
	Severity threat.Severity  `json:"severity"`
	Findings []threat.Finding `json:"findings"`
}

// Check runs only the direct-code patterns. It neither parses nor
// persists, and is meant for gating uploads.
func (s *Scanner) Check(content []byte) (Verdict, error) {
	if s.limits.MaxBytes > 0 && len(content) > s.limits.MaxBytes {
		return Verdict{Severity: threat.SeverityCritical}, ErrDocumentTooLarge
	}
	findings := detect.Quick(content)
	return Verdict{
		Safe:     len(findings) == 0,
		Severity: threat.Classify(findings),
		Findings: findings,
	}, nil
}
