// Package vcproj edits Visual Studio project files: it forces the C runtime
// library linkage of the compiler tool and upgrades legacy project formats.
package vcproj

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/yact/thirdparty/internal/xmldoc"
	"golang.org/x/xerrors"
)

// RuntimeLibrary codes of the VCCLCompilerTool element.
const (
	MultiThreaded         = "0" // /MT
	MultiThreadedDebug    = "1" // /MTd
	MultiThreadedDLL      = "2" // /MD
	MultiThreadedDebugDLL = "3" // /MDd
)

const compilerTool = "VCCLCompilerTool"

var (
	toStatic = map[string]string{
		MultiThreadedDLL:      MultiThreaded,
		MultiThreadedDebugDLL: MultiThreadedDebug,
	}
	toDynamic = map[string]string{
		MultiThreaded:      MultiThreadedDLL,
		MultiThreadedDebug: MultiThreadedDebugDLL,
	}
)

// isProjectFile reports whether fn can carry compiler tool settings.
func isProjectFile(fn string) bool {
	return strings.HasSuffix(fn, ".vcproj") || strings.HasSuffix(fn, ".vsprops")
}

// ApplyRuntimePolicy rewrites the RuntimeLibrary of every compiler tool in
// path to static (/MT, /MTd) or dynamic (/MD, /MDd) linkage. If path is a
// directory, every .vcproj and .vsprops file below it is patched. Codes
// which are already in the requested mode are left alone, so applying the
// same policy twice is a no-op.
func ApplyRuntimePolicy(path string, static bool, logger *log.Logger) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return applyRuntimePolicy(path, static, logger)
	}
	return filepath.Walk(path, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isProjectFile(path) {
			return nil
		}
		return applyRuntimePolicy(path, static, logger)
	})
}

func applyRuntimePolicy(fn string, static bool, logger *log.Logger) error {
	logf(logger, "[setruntime] %s", fn)
	doc, err := xmldoc.Open(fn)
	if err != nil {
		return err
	}
	mapping := toDynamic
	if static {
		mapping = toStatic
	}
	for _, tool := range doc.Elements("Tool") {
		if tool.Attr("Name") != compilerTool {
			continue
		}
		if to, ok := mapping[tool.Attr("RuntimeLibrary")]; ok {
			tool.SetAttr("RuntimeLibrary", to)
		}
	}
	if err := doc.Save(); err != nil {
		return xerrors.Errorf("saving %s: %w", fn, err)
	}
	return nil
}

// RenameOutput replaces old with new in the OutputFile attribute of every
// tool element named toolName in the project file fn, e.g. to keep debug and
// release libraries from colliding.
func RenameOutput(fn, toolName, old, new string) error {
	doc, err := xmldoc.Open(fn)
	if err != nil {
		return err
	}
	for _, tool := range doc.Elements("Tool") {
		if tool.Attr("Name") != toolName {
			continue
		}
		tool.SetAttr("OutputFile", strings.Replace(tool.Attr("OutputFile"), old, new, -1))
	}
	return doc.Save()
}

func logf(logger *log.Logger, format string, v ...interface{}) {
	if logger != nil {
		logger.Printf(format, v...)
		return
	}
	log.Printf(format, v...)
}
