package deps

import (
	"context"
	"path/filepath"

	"github.com/yact/thirdparty/internal/vcproj"
)

// gtest names its debug library gtestd.lib, which the host project does not
// link against; both configurations produce gtest.lib in their own output
// directory instead.
type gtest struct {
	*Dep
}

func newGtest(d *Dep) Builder {
	g := &gtest{Dep: d}
	d.fixup = g.fixup
	return g
}

func (g *gtest) fixup(ctx context.Context) error {
	fn := filepath.Join(g.path(g.ProjectDir), "gtest.vcproj")
	return vcproj.RenameOutput(fn, "VCLibrarianTool", "gtestd.lib", "gtest.lib")
}

// gmock builds as shipped.
type gmock struct {
	*Dep
}

func newGmock(d *Dep) Builder { return &gmock{Dep: d} }
