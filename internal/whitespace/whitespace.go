// Package whitespace removes trailing whitespace from source files.
package whitespace

import (
	"bytes"
	"context"
	"os"
	"runtime"

	"github.com/google/renameio"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// Normalize removes trailing whitespace from every line of b and terminates
// every line, including the last one, with \n. \r\n line endings become \n.
// Blank lines are kept, so an empty file stays empty.
func Normalize(b []byte) []byte {
	if len(b) == 0 {
		return b
	}
	var out bytes.Buffer
	out.Grow(len(b))
	for _, line := range bytes.SplitAfter(b, []byte("\n")) {
		if len(line) == 0 {
			break // b ended in \n
		}
		out.Write(bytes.TrimRight(line, " \t\r\n\v\f"))
		out.WriteByte('\n')
	}
	return out.Bytes()
}

// File normalizes the file at path, rewriting it only if its content changes.
// It reports whether the file was rewritten.
func File(path string) (bool, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	n := Normalize(b)
	if bytes.Equal(b, n) {
		return false, nil
	}
	if err := renameio.WriteFile(path, n, fi.Mode().Perm()); err != nil {
		return false, xerrors.Errorf("%s: %w", path, err)
	}
	return true, nil
}

// Strip normalizes all paths concurrently. It returns the paths which were
// rewritten, in the order given.
func Strip(ctx context.Context, paths []string) ([]string, error) {
	changed := make([]bool, len(paths))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.NumCPU())
	for idx, path := range paths {
		idx, path := idx, path // copy
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c, err := File(path)
			changed[idx] = c
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	var rewritten []string
	for idx, c := range changed {
		if c {
			rewritten = append(rewritten, paths[idx])
		}
	}
	return rewritten, nil
}
