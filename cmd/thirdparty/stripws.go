package main

import (
	"context"
	"flag"
	"log"
	"path/filepath"

	"github.com/yact/thirdparty/internal/whitespace"
	"golang.org/x/xerrors"
)

const stripwsHelp = `thirdparty stripws [-flags] <glob>...

Remove trailing whitespace from every line of the matching files and end
each file with a single newline. Only files whose content changes are
rewritten.

Example:
  % thirdparty stripws 'src/*.cc' 'src/*.h'
`

func stripws(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("stripws", flag.ExitOnError)
	fset.Usage = usage(fset, stripwsHelp)
	fset.Parse(args)
	if fset.NArg() < 1 {
		return xerrors.Errorf("syntax: stripws <glob>...")
	}

	var paths []string
	for _, pattern := range fset.Args() {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return xerrors.Errorf("%s: %w", pattern, err)
		}
		if len(matches) == 0 {
			log.Printf("WARNING: %s matched no files", pattern)
		}
		paths = append(paths, matches...)
	}
	rewritten, err := whitespace.Strip(ctx, paths)
	if err != nil {
		return err
	}
	for _, path := range rewritten {
		log.Printf("stripped %s", path)
	}
	return nil
}
