package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"
)

// Memory is an in-process Store.
type Memory struct {
	mu      sync.RWMutex
	records []Record
	nextID  int64
	now     func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory(opts ...Option) *Memory {
	o := buildOptions(opts)
	return &Memory{nextID: 1, now: o.now}
}

func (m *Memory) Put(_ context.Context, rec Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec = prepare(rec, m.now())
	rec.ID = m.nextID
	rec.Findings = slices.Clone(rec.Findings)
	m.nextID++
	m.records = append(m.records, rec)
	return clone(rec), nil
}

func (m *Memory) FindRecent(_ context.Context, subjectID, hash string, window time.Duration) (Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.newest(func(r Record) bool { return r.SubjectID == subjectID && r.Hash == hash })
	if i < 0 {
		return Record{}, false, nil
	}
	rec := m.records[i]
	if m.now().Sub(rec.ScannedAt) > window {
		return Record{}, false, nil
	}
	return clone(rec), true, nil
}

func (m *Memory) Latest(_ context.Context, subjectID string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.newest(func(r Record) bool { return r.SubjectID == subjectID })
	if i < 0 {
		return Record{}, ErrNotFound
	}
	return clone(m.records[i]), nil
}

func (m *Memory) SetStatus(_ context.Context, subjectID string, status Status, notes string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.newest(func(r Record) bool { return r.SubjectID == subjectID })
	if i < 0 {
		return Record{}, ErrNotFound
	}
	rec := &m.records[i]
	if err := ValidateTransition(rec.Status, status); err != nil {
		return Record{}, err
	}
	rec.Status = status
	rec.Notes = CleanNotes(notes)
	return clone(*rec), nil
}

func (m *Memory) Query(_ context.Context, f Filter) ([]Record, error) {
	m.mu.RLock()
	var out []Record
	for _, r := range m.records {
		if matches(r, f) {
			out = append(out, clone(r))
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(out, compareBy(f.OrderBy, f.Desc))
	return page(out, f.Offset, f.Limit), nil
}

func (m *Memory) Statistics(_ context.Context) (Statistics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := newStatistics()
	cutoff := m.now().Add(-RecentWindow)
	for _, r := range m.records {
		st.Total++
		st.BySeverity[r.Severity]++
		st.ByStatus[r.Status]++
		if !r.ScannedAt.Before(cutoff) {
			st.Recent++
		}
	}
	return st, nil
}

func (m *Memory) Close() error { return nil }

// newest returns the index of the latest matching record by scan time,
// then ID, or -1.
func (m *Memory) newest(match func(Record) bool) int {
	best := -1
	for i, r := range m.records {
		if !match(r) {
			continue
		}
		if best < 0 || !r.ScannedAt.Before(m.records[best].ScannedAt) {
			best = i
		}
	}
	return best
}

func matches(r Record, f Filter) bool {
	if f.Severity != "" && r.Severity != f.Severity {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.SubjectID != "" && r.SubjectID != f.SubjectID {
		return false
	}
	return true
}

func compareBy(field OrderField, desc bool) func(a, b Record) int {
	return func(a, b Record) int {
		var c int
		switch field {
		case OrderSeverity:
			c = cmp.Compare(a.Severity.Rank(), b.Severity.Rank())
		case OrderSize:
			c = cmp.Compare(a.Size, b.Size)
		case OrderSubject:
			c = cmp.Compare(a.SubjectID, b.SubjectID)
		case OrderID:
		default:
			c = a.ScannedAt.Compare(b.ScannedAt)
		}
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if desc {
			return -c
		}
		return c
	}
}

func page(rs []Record, offset, limit int) []Record {
	if offset > 0 {
		if offset >= len(rs) {
			return nil
		}
		rs = rs[offset:]
	}
	if limit > 0 && limit < len(rs) {
		rs = rs[:limit]
	}
	return rs
}

func clone(r Record) Record {
	r.Findings = slices.Clone(r.Findings)
	return r
}
