package main

import (
	"flag"
	"fmt"
	"io"
	"os"
)

const verbsHelp = `Verbs:
	build   - build all dependencies which are not up to date
	rebuild - remove and build all dependencies
	clean   - remove all dependencies
	status  - list dependencies and whether they are built
	stripws - remove trailing whitespace from files
	env     - print the environment
`

// usage returns a FlagSet.Usage func printing helpText, followed by the flags
// of the verb if it has any.
func usage(fset *flag.FlagSet, helpText string) func() {
	return func() {
		printUsage(os.Stderr, fset, helpText)
	}
}

func printUsage(w io.Writer, fset *flag.FlagSet, helpText string) {
	fmt.Fprint(w, helpText)
	var n int
	fset.VisitAll(func(*flag.Flag) { n++ })
	if n == 0 {
		return
	}
	fmt.Fprintf(w, "\nFlags of thirdparty %s:\n", fset.Name())
	fset.SetOutput(w)
	fset.PrintDefaults()
}
