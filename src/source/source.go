// Package source enumerates SVG documents for batch scans and reads their
// content with a size cap.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/scan"
)

// ErrTooLarge is returned by Read when a document exceeds the cap.
var ErrTooLarge = errors.New("document exceeds size limit")

// Source lists subjects and reads them. Every Source also satisfies
// batch.Reader.
type Source interface {
	List(ctx context.Context) ([]scan.Subject, error)
	Read(ctx context.Context, subj scan.Subject) ([]byte, error)
}

func isSVG(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".svg")
}

// readCapped reads r fully unless it holds more than max bytes.
func readCapped(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, max)
	}
	return data, nil
}
