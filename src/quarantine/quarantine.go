// Package quarantine applies operator decisions to flagged files: move
// them out of reach, delete them, or mark them resolved.
package quarantine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/store"
)

const htaccess = "deny from all\n"

// ErrOutsideRoot is returned when a record's file does not sit under the
// managed root, or no root is configured.
var ErrOutsideRoot = errors.New("file outside the managed root")

// Manager moves files and records the resulting status in the store. It
// only touches the file stored on the subject's latest record, and only
// when that file lives under root.
type Manager struct {
	logger *slog.Logger
	store  store.Store
	dir    string
	root   string
	now    func() time.Time
}

func New(logger *slog.Logger, st store.Store, dir, root string) *Manager {
	return &Manager{
		logger: logger.With("area", "quarantine"),
		store:  st,
		dir:    dir,
		root:   root,
		now:    time.Now,
	}
}

// Dir returns the quarantine directory.
func (m *Manager) Dir() string { return m.dir }

// Quarantine moves the subject's file into the quarantine directory and
// marks its latest record quarantined. The file is moved back if the
// status update fails. A record without a file only changes status.
// Operator notes follow the generated note.
func (m *Manager) Quarantine(ctx context.Context, subjectID, notes string) (store.Record, error) {
	latest, err := m.latest(ctx, subjectID, store.StatusQuarantined)
	if err != nil {
		return store.Record{}, err
	}
	path, err := m.locate(latest.Path)
	if err != nil {
		return store.Record{}, err
	}
	if path == "" {
		return m.store.SetStatus(ctx, subjectID, store.StatusQuarantined, withNotes("No file on record", notes))
	}
	if err := m.ensureDir(); err != nil {
		return store.Record{}, err
	}

	dest := m.target(path)
	if err := move(path, dest); err != nil {
		return store.Record{}, fmt.Errorf("moving %s to quarantine: %w", path, err)
	}

	rec, err := m.store.SetStatus(ctx, subjectID, store.StatusQuarantined, withNotes("Moved to: "+dest, notes))
	if err != nil {
		if rerr := move(dest, path); rerr != nil {
			m.logger.Error("failed to restore quarantined file", "from", dest, "to", path, "err", rerr)
		}
		return store.Record{}, err
	}

	m.logger.Info("file quarantined", "subject", subjectID, "from", path, "to", dest)
	return rec, nil
}

// Delete removes the subject's file and marks it deleted. A file that is
// already gone is not an error.
func (m *Manager) Delete(ctx context.Context, subjectID, notes string) (store.Record, error) {
	latest, err := m.latest(ctx, subjectID, store.StatusDeleted)
	if err != nil {
		return store.Record{}, err
	}
	path, err := m.locate(latest.Path)
	if err != nil {
		return store.Record{}, err
	}
	if path == "" {
		return m.store.SetStatus(ctx, subjectID, store.StatusDeleted, withNotes("No file on record", notes))
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return store.Record{}, fmt.Errorf("deleting %s: %w", path, err)
	}

	rec, err := m.store.SetStatus(ctx, subjectID, store.StatusDeleted, withNotes("Deleted: "+path, notes))
	if err != nil {
		return store.Record{}, err
	}
	m.logger.Info("file deleted", "subject", subjectID, "path", path)
	return rec, nil
}

// Resolve marks the subject reviewed and safe to keep.
func (m *Manager) Resolve(ctx context.Context, subjectID, notes string) (store.Record, error) {
	rec, err := m.store.SetStatus(ctx, subjectID, store.StatusResolved, notes)
	if err != nil {
		return store.Record{}, err
	}
	m.logger.Info("finding resolved", "subject", subjectID)
	return rec, nil
}

func (m *Manager) latest(ctx context.Context, subjectID string, to store.Status) (store.Record, error) {
	latest, err := m.store.Latest(ctx, subjectID)
	if err != nil {
		return store.Record{}, err
	}
	if err := store.ValidateTransition(latest.Status, to); err != nil {
		return store.Record{}, err
	}
	return latest, nil
}

// locate maps a stored path to a file under root. Relative paths are taken
// relative to root. Symlinks are resolved before the containment check.
func (m *Manager) locate(stored string) (string, error) {
	if stored == "" {
		return "", nil
	}
	if m.root == "" {
		return "", fmt.Errorf("%w: no root configured for %s", ErrOutsideRoot, stored)
	}
	root, err := filepath.Abs(m.root)
	if err != nil {
		return "", fmt.Errorf("resolving root: %w", err)
	}
	path := stored
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	path = filepath.Clean(path)
	if !within(root, path) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, stored)
	}

	resolved, err := filepath.EvalSymlinks(path)
	if errors.Is(err, fs.ErrNotExist) {
		return path, nil
	}
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", stored, err)
	}
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", fmt.Errorf("resolving root: %w", err)
	}
	if !within(realRoot, resolved) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, stored)
	}
	return path, nil
}

func withNotes(action, notes string) string {
	if notes == "" {
		return action
	}
	return action + "; " + notes
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (m *Manager) ensureDir() error {
	if err := os.MkdirAll(m.dir, 0o700); err != nil {
		return fmt.Errorf("creating quarantine dir: %w", err)
	}
	guard := filepath.Join(m.dir, ".htaccess")
	if _, err := os.Stat(guard); errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(guard, []byte(htaccess), 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", guard, err)
		}
	}
	return nil
}

// target names the quarantined copy <base>_<unix>.svg, adding a counter
// if that name is taken.
func (m *Manager) target(path string) string {
	base := filepath.Base(path)
	if ext := filepath.Ext(base); strings.EqualFold(ext, ".svg") {
		base = strings.TrimSuffix(base, ext)
	}
	stamp := strconv.FormatInt(m.now().Unix(), 10)

	dest := filepath.Join(m.dir, base+"_"+stamp+".svg")
	for n := 1; ; n++ {
		if _, err := os.Lstat(dest); errors.Is(err, fs.ErrNotExist) {
			return dest
		}
		dest = filepath.Join(m.dir, fmt.Sprintf("%s_%s_%d.svg", base, stamp, n))
	}
}

// move renames src to dst, copying across filesystems when rename fails.
func move(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return os.Remove(src)
}
