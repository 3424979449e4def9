package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/yact/thirdparty/internal/env"
)

const envHelp = `thirdparty env [-flags]

Print the environment thirdparty runs in.

Example:
  % thirdparty env
`

func printenv(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("env", flag.ExitOnError)
	fset.Usage = usage(fset, envHelp)
	fset.Parse(args)
	fmt.Printf("THIRDPARTYROOT=%q\n", env.Root)
	fmt.Printf("BUILDTOOL=%q\n", env.DefaultBuildTool)
	fmt.Printf("UPGRADETOOL=%q\n", env.DefaultUpgradeTool())
	return nil
}
