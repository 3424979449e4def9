// Program thirdparty fetches, patches and builds the third-party
// dependencies of the host project.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/yact/thirdparty"
)

func main() {
	flag.Parse()

	type cmd struct {
		helpText string
		fn       func(ctx context.Context, args []string) error
	}
	verbs := map[string]cmd{
		"build":   {buildHelp, bootstrapVerb("build")},
		"rebuild": {rebuildHelp, bootstrapVerb("rebuild")},
		"clean":   {cleanHelp, bootstrapVerb("clean")},
		"status":  {statusHelp, status},
		"stripws": {stripwsHelp, stripws},
		"env":     {envHelp, printenv},
	}

	args := flag.Args()
	verb := "build"
	if len(args) > 0 {
		verb, args = args[0], args[1:]
	}

	if verb == "help" {
		if len(args) != 1 {
			fmt.Fprintf(os.Stderr, "syntax: thirdparty help <verb>\n")
			fmt.Fprintf(os.Stderr, "\n")
			fmt.Fprint(os.Stderr, verbsHelp)
			os.Exit(2)
		}
		verb = args[0]
		args = []string{"-help"}
	}
	v, ok := verbs[verb]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", verb)
		fmt.Fprintf(os.Stderr, "syntax: thirdparty <command> [options]\n")
		os.Exit(2)
	}
	ctx, canc := thirdparty.InterruptibleContext(context.Background(), log.Default())
	defer canc()
	if err := v.fn(ctx, args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %+v\n", verb, err)
		canc()
		os.Exit(1)
	}
}
