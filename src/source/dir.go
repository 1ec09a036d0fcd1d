package source

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/scan"
)

// Dir is a directory tree of SVG files. Subject IDs are slash-separated
// paths relative to Root, so they are stable across machines.
type Dir struct {
	Root     string
	MaxBytes int64
}

// List returns subjects whose Path is absolute, so records can be traced
// back to their file from any working directory.
func (d Dir) List(ctx context.Context) ([]scan.Subject, error) {
	root, err := filepath.Abs(d.Root)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", d.Root, err)
	}
	var out []scan.Subject
	err = filepath.WalkDir(root, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.IsDir() || !e.Type().IsRegular() || !isSVG(e.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out = append(out, scan.Subject{ID: filepath.ToSlash(rel), Path: path})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", d.Root, err)
	}
	return out, nil
}

func (d Dir) Read(_ context.Context, subj scan.Subject) ([]byte, error) {
	path := subj.Path
	if path == "" {
		path = filepath.Join(d.Root, filepath.FromSlash(subj.ID))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readCapped(f, d.MaxBytes)
}
