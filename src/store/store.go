// Package store persists scan records. Records are append-only per
// subject; only status and notes change after creation.
package store

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/threat"
)

// Status is the lifecycle state of a record.
type Status string

const (
	StatusActive      Status = "active"
	StatusQuarantined Status = "quarantined"
	StatusDeleted     Status = "deleted"
	StatusResolved    Status = "resolved"
)

// Statuses lists every status.
func Statuses() []Status {
	return []Status{StatusActive, StatusQuarantined, StatusDeleted, StatusResolved}
}

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusQuarantined, StatusDeleted, StatusResolved:
		return true
	}
	return false
}

// RecentWindow is the age below which Statistics counts a record as recent.
const RecentWindow = 7 * 24 * time.Hour

var (
	ErrNotFound          = errors.New("no record for subject")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Error wraps a persistence failure with the operation that hit it.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Record is one scan of one subject.
type Record struct {
	ID             int64            `json:"id"`
	SubjectID      string           `json:"subjectId"`
	Path           string           `json:"path"`
	Size           int64            `json:"size"`
	Hash           string           `json:"hash"`
	Findings       []threat.Finding `json:"findings"`
	Severity       threat.Severity  `json:"severity"`
	ScannedAt      time.Time        `json:"scannedAt"`
	ScannerVersion string           `json:"scannerVersion"`
	Status         Status           `json:"status"`
	Notes          string           `json:"notes,omitempty"`
}

// OrderField selects the primary sort key for Query. Ties always break on
// record ID in the same direction.
type OrderField string

const (
	OrderScannedAt OrderField = "scanned_at"
	OrderSeverity  OrderField = "severity"
	OrderSize      OrderField = "size"
	OrderSubject   OrderField = "subject_id"
	OrderID        OrderField = "id"
)

// Filter narrows Query. Zero values mean "any".
type Filter struct {
	Severity  threat.Severity
	Status    Status
	SubjectID string
	Limit     int
	Offset    int
	OrderBy   OrderField
	Desc      bool
}

// Statistics aggregates over every stored record.
type Statistics struct {
	Total      int                     `json:"total"`
	BySeverity map[threat.Severity]int `json:"bySeverity"`
	ByStatus   map[Status]int          `json:"byStatus"`
	Recent     int                     `json:"recent"`
}

func newStatistics() Statistics {
	st := Statistics{
		BySeverity: make(map[threat.Severity]int),
		ByStatus:   make(map[Status]int),
	}
	for _, s := range threat.Severities() {
		st.BySeverity[s] = 0
	}
	for _, s := range Statuses() {
		st.ByStatus[s] = 0
	}
	return st
}

// Store is implemented by every backend. Implementations serialize Put and
// SetStatus; Query and Statistics may run alongside writes and see either
// the state before or after each write.
type Store interface {
	// Put appends rec, assigning ID and defaults, and returns the stored copy.
	Put(ctx context.Context, rec Record) (Record, error)

	// FindRecent returns the newest record for subjectID with exactly hash
	// if it is no older than window.
	FindRecent(ctx context.Context, subjectID, hash string, window time.Duration) (Record, bool, error)

	// Latest returns the newest record for subjectID, or ErrNotFound.
	Latest(ctx context.Context, subjectID string) (Record, error)

	// SetStatus transitions the newest record for subjectID.
	SetStatus(ctx context.Context, subjectID string, status Status, notes string) (Record, error)

	Query(ctx context.Context, f Filter) ([]Record, error)
	Statistics(ctx context.Context) (Statistics, error)
	Close() error
}

// ValidateTransition enforces the status lifecycle: deleted is terminal and
// a record never transitions to the status it already has.
func ValidateTransition(from, to Status) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if from == StatusDeleted {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, from)
	}
	if from == to {
		return fmt.Errorf("%w: already %s", ErrInvalidTransition, to)
	}
	return nil
}

var notesPolicy = bluemonday.StrictPolicy()

// maxNoteRounds bounds how many layers of entity encoding CleanNotes peels.
const maxNoteRounds = 4

// CleanNotes strips markup from operator-supplied notes. Entities are
// decoded only when the decoded text no longer contains markup, so encoded
// tags cannot come back to life; notes still changing after maxNoteRounds
// are kept in their escaped form.
func CleanNotes(notes string) string {
	for range maxNoteRounds {
		plain := html.UnescapeString(notesPolicy.Sanitize(notes))
		if plain == notes {
			return plain
		}
		notes = plain
	}
	return notesPolicy.Sanitize(notes)
}

// Option configures a backend.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// prepare fills the defaults Put applies to every new record.
func prepare(rec Record, now time.Time) Record {
	if rec.ScannedAt.IsZero() {
		rec.ScannedAt = now
	}
	rec.ScannedAt = rec.ScannedAt.UTC()
	if rec.Status == "" {
		rec.Status = StatusActive
	}
	if rec.Severity == "" {
		rec.Severity = threat.Classify(rec.Findings)
	}
	rec.Notes = CleanNotes(rec.Notes)
	return rec
}
