package main

import (
	"context"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/yact/thirdparty"
)

const statusHelp = `thirdparty status [-flags]

List the dependencies of the manifest and whether they are built. Directories
below -root which look like dependencies but are not in the manifest are
listed as stale.

Example:
  % thirdparty status
`

func status(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("status", flag.ExitOnError)
	var f flags
	f.register(fset)
	fset.Usage = usage(fset, statusHelp)
	fset.Parse(args)

	builders, _, err := f.builders(log.New(ioutil.Discard, "", 0))
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	known := make(map[string]bool)
	for _, b := range builders {
		dir := filepath.Base(b.Root())
		known[dir] = true
		state := "missing"
		if b.HasStamp() {
			state = "built"
		} else if _, err := os.Stat(b.Root()); err == nil {
			state = "incomplete"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", b.Name(), dir, state)
	}

	fis, err := ioutil.ReadDir(f.root)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, fi := range fis {
		if !fi.IsDir() || known[fi.Name()] {
			continue
		}
		v := thirdparty.ParseVersion(fi.Name())
		if v.Upstream == "" {
			continue // not a dependency root
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", v.Name, fi.Name(), "stale")
	}
	return tw.Flush()
}
