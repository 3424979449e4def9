package vcproj

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yact/thirdparty/internal/xmldoc"
	"golang.org/x/xerrors"
)

// Upgrader converts a project or solution file to the current format in
// place (devenv /upgrade).
type Upgrader interface {
	Upgrade(ctx context.Context, fn string) error
}

// currentVersion is the first project format version which needs no upgrade.
const currentVersion = 10.0

// Upgrade upgrades every .vcproj file below root whose format is older than
// the current one. Files which cannot be parsed are upgraded regardless.
func Upgrade(ctx context.Context, root string, u Upgrader, logger *log.Logger) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".vcproj") {
			return nil
		}
		return UpgradeFile(ctx, path, u, logger)
	})
}

// UpgradeFile upgrades a single .vcproj or .sln file if necessary. Solution
// files are always upgraded.
func UpgradeFile(ctx context.Context, fn string, u Upgrader, logger *log.Logger) error {
	if strings.HasSuffix(fn, ".sln") {
		return upgrade(ctx, fn, u, logger)
	}
	doc, err := xmldoc.Open(fn)
	if err != nil {
		var pe *xmldoc.ParseError
		if !xerrors.As(err, &pe) {
			return err
		}
		logf(logger, "WARNING: cannot parse XML, upgrading anyway: %v", err)
		return upgrade(ctx, fn, u, logger)
	}
	for _, el := range doc.Elements("VisualStudioProject") {
		v, err := strconv.ParseFloat(el.Attr("Version"), 64)
		if err == nil && v >= currentVersion {
			continue
		}
		return upgrade(ctx, fn, u, logger)
	}
	return nil
}

func upgrade(ctx context.Context, fn string, u Upgrader, logger *log.Logger) error {
	logf(logger, "[upgrade] %s", fn)
	fi, err := os.Stat(fn)
	if err != nil {
		return err
	}
	if err := os.Chmod(fn, fi.Mode().Perm()|0200); err != nil {
		return err
	}
	if err := u.Upgrade(ctx, fn); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// devenv exits non-zero for warnings, too. A project which really
		// was not converted fails loudly in the build phase.
		logf(logger, "WARNING: upgrading %s: %v", fn, err)
	}
	return nil
}
