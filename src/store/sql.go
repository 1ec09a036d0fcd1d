package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/threat"
)

// scanRow is the relational layout of a Record. Findings are stored as a
// JSON array.
type scanRow struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	SubjectID      string    `gorm:"not null;index;index:idx_subject_hash,priority:1"`
	Path           string    `gorm:"not null"`
	Size           int64     `gorm:"not null"`
	Hash           string    `gorm:"not null;size:64;index:idx_subject_hash,priority:2"`
	Findings       string    `gorm:"type:text;not null"`
	Severity       string    `gorm:"not null;size:16;index"`
	ScannedAt      time.Time `gorm:"not null;index"`
	ScannerVersion string    `gorm:"not null;size:32"`
	Status         string    `gorm:"not null;size:16;index"`
	Notes          string    `gorm:"type:text"`
}

func (scanRow) TableName() string { return "svg_scan_results" }

// severityRankExpr orders by threat rank rather than alphabetically.
const severityRankExpr = "CASE severity WHEN 'low' THEN 0 WHEN 'medium' THEN 1 " +
	"WHEN 'high' THEN 2 WHEN 'critical' THEN 3 ELSE -1 END"

var orderColumns = map[OrderField]string{
	OrderScannedAt: "scanned_at",
	OrderSeverity:  severityRankExpr,
	OrderSize:      "size",
	OrderSubject:   "subject_id",
	OrderID:        "id",
}

// SQL is a Store backed by GORM on SQLite.
type SQL struct {
	db  *gorm.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) a SQLite database at dsn and
// migrates the schema.
func OpenSQLite(dsn string, opts ...Option) (*SQL, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, &Error{Op: "open", Err: err}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, &Error{Op: "open", Err: err}
	}
	// SQLite allows one writer; a single connection serializes Put and
	// SetStatus without busy errors.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&scanRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, &Error{Op: "migrate", Err: err}
	}

	o := buildOptions(opts)
	return &SQL{db: db, now: o.now}, nil
}

func (s *SQL) Put(ctx context.Context, rec Record) (Record, error) {
	rec = prepare(rec, s.now())
	row, err := toRow(rec)
	if err != nil {
		return Record{}, &Error{Op: "put", Err: err}
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return Record{}, &Error{Op: "put", Err: err}
	}
	rec.ID = row.ID
	return clone(rec), nil
}

func (s *SQL) FindRecent(ctx context.Context, subjectID, hash string, window time.Duration) (Record, bool, error) {
	var rows []scanRow
	err := s.db.WithContext(ctx).
		Where("subject_id = ? AND hash = ?", subjectID, hash).
		Order("scanned_at DESC, id DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return Record{}, false, &Error{Op: "find recent", Err: err}
	}
	if len(rows) == 0 {
		return Record{}, false, nil
	}
	rec, err := fromRow(rows[0])
	if err != nil {
		return Record{}, false, &Error{Op: "find recent", Err: err}
	}
	if s.now().Sub(rec.ScannedAt) > window {
		return Record{}, false, nil
	}
	return rec, true, nil
}

func (s *SQL) Latest(ctx context.Context, subjectID string) (Record, error) {
	row, err := latestRow(s.db.WithContext(ctx), subjectID)
	if err != nil {
		return Record{}, err
	}
	rec, err := fromRow(row)
	if err != nil {
		return Record{}, &Error{Op: "latest", Err: err}
	}
	return rec, nil
}

func (s *SQL) SetStatus(ctx context.Context, subjectID string, status Status, notes string) (Record, error) {
	var updated scanRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := latestRow(tx, subjectID)
		if err != nil {
			return err
		}
		if err := ValidateTransition(Status(row.Status), status); err != nil {
			return err
		}
		row.Status = string(status)
		row.Notes = CleanNotes(notes)
		if err := tx.Model(&scanRow{}).Where("id = ?", row.ID).
			Updates(map[string]any{"status": row.Status, "notes": row.Notes}).Error; err != nil {
			return &Error{Op: "set status", Err: err}
		}
		updated = row
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	rec, err := fromRow(updated)
	if err != nil {
		return Record{}, &Error{Op: "set status", Err: err}
	}
	return rec, nil
}

func (s *SQL) Query(ctx context.Context, f Filter) ([]Record, error) {
	q := s.db.WithContext(ctx).Model(&scanRow{})
	if f.Severity != "" {
		q = q.Where("severity = ?", string(f.Severity))
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if f.SubjectID != "" {
		q = q.Where("subject_id = ?", f.SubjectID)
	}

	col, ok := orderColumns[f.OrderBy]
	if !ok {
		col = orderColumns[OrderScannedAt]
	}
	dir := "ASC"
	if f.Desc {
		dir = "DESC"
	}
	q = q.Order(fmt.Sprintf("%s %s, id %s", col, dir, dir))

	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	} else if f.Offset > 0 {
		// SQLite requires a LIMIT before OFFSET.
		q = q.Limit(math.MaxInt32)
	}

	var rows []scanRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, &Error{Op: "query", Err: err}
	}

	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := fromRow(row)
		if err != nil {
			return nil, &Error{Op: "query", Err: err}
		}
		out = append(out, rec)
	}
	return out, nil
}

type groupCount struct {
	Bucket string
	N      int
}

func (s *SQL) Statistics(ctx context.Context) (Statistics, error) {
	st := newStatistics()
	db := s.db.WithContext(ctx)

	var bySeverity, byStatus []groupCount
	if err := db.Model(&scanRow{}).Select("severity AS bucket, COUNT(*) AS n").Group("severity").Scan(&bySeverity).Error; err != nil {
		return Statistics{}, &Error{Op: "statistics", Err: err}
	}
	if err := db.Model(&scanRow{}).Select("status AS bucket, COUNT(*) AS n").Group("status").Scan(&byStatus).Error; err != nil {
		return Statistics{}, &Error{Op: "statistics", Err: err}
	}

	var recent int64
	cutoff := s.now().Add(-RecentWindow).UTC()
	if err := db.Model(&scanRow{}).Where("scanned_at >= ?", cutoff).Count(&recent).Error; err != nil {
		return Statistics{}, &Error{Op: "statistics", Err: err}
	}

	for _, g := range bySeverity {
		st.BySeverity[threat.Severity(g.Bucket)] = g.N
		st.Total += g.N
	}
	for _, g := range byStatus {
		st.ByStatus[Status(g.Bucket)] = g.N
	}
	st.Recent = int(recent)
	return st, nil
}

func (s *SQL) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return &Error{Op: "close", Err: err}
	}
	return sqlDB.Close()
}

func latestRow(db *gorm.DB, subjectID string) (scanRow, error) {
	var rows []scanRow
	err := db.Where("subject_id = ?", subjectID).
		Order("scanned_at DESC, id DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return scanRow{}, &Error{Op: "latest", Err: err}
	}
	if len(rows) == 0 {
		return scanRow{}, ErrNotFound
	}
	return rows[0], nil
}

func toRow(rec Record) (scanRow, error) {
	findings := rec.Findings
	if findings == nil {
		findings = []threat.Finding{}
	}
	data, err := json.Marshal(findings)
	if err != nil {
		return scanRow{}, fmt.Errorf("encoding findings: %w", err)
	}
	return scanRow{
		SubjectID:      rec.SubjectID,
		Path:           rec.Path,
		Size:           rec.Size,
		Hash:           rec.Hash,
		Findings:       string(data),
		Severity:       string(rec.Severity),
		ScannedAt:      rec.ScannedAt,
		ScannerVersion: rec.ScannerVersion,
		Status:         string(rec.Status),
		Notes:          rec.Notes,
	}, nil
}

func fromRow(row scanRow) (Record, error) {
	var findings []threat.Finding
	if err := json.Unmarshal([]byte(row.Findings), &findings); err != nil {
		return Record{}, fmt.Errorf("decoding findings for record %d: %w", row.ID, err)
	}
	if len(findings) == 0 {
		findings = nil
	}
	return Record{
		ID:             row.ID,
		SubjectID:      row.SubjectID,
		Path:           row.Path,
		Size:           row.Size,
		Hash:           row.Hash,
		Findings:       findings,
		Severity:       threat.Severity(row.Severity),
		ScannedAt:      row.ScannedAt.UTC(),
		ScannerVersion: row.ScannerVersion,
		Status:         Status(row.Status),
		Notes:          row.Notes,
	}, nil
}

// Open returns the backend for driver: "memory" or "sqlite".
func Open(driver, dsn string, opts ...Option) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemory(opts...), nil
	case "sqlite":
		return OpenSQLite(dsn, opts...)
	default:
		return nil, &Error{Op: "open", Err: errors.New("unknown driver " + driver)}
	}
}
