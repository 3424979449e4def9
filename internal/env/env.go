// Package env captures details about the bootstrap environment. Inspect the
// environment using `thirdparty env`.
package env

import (
	"os"
	"path/filepath"
	"runtime"
)

// Root is the directory holding the dependency roots and the cached archives.
var Root = findRoot()

func findRoot() string {
	env := os.Getenv("THIRDPARTYROOT")
	if env != "" {
		return env
	}
	wd, err := os.Getwd()
	if err != nil {
		return "third_party" // default
	}
	return filepath.Join(wd, "third_party")
}

// DefaultBuildTool is the build tool invoked once per (dependency,
// configuration) pair.
const DefaultBuildTool = "msbuild"

// DefaultUpgradeTool returns the command that converts legacy project files
// in place. Only Visual Studio ships one, so it is empty on other hosts.
func DefaultUpgradeTool() string {
	if runtime.GOOS == "windows" {
		return "devenv"
	}
	return ""
}
