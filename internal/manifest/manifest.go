// Package manifest reads the list of dependencies from a textproto file.
package manifest

import (
	_ "embed"
	"os"
	"strconv"

	"github.com/protocolbuffers/txtpbfmt/ast"
	"github.com/protocolbuffers/txtpbfmt/parser"
	"github.com/yact/thirdparty/internal/deps"
	"golang.org/x/xerrors"
)

//go:embed default.textproto
var defaultManifest []byte

// Default returns the built-in dependencies (gtest and gmock).
func Default() ([]deps.Descriptor, error) {
	return Parse("default.textproto", defaultManifest)
}

// Load reads the manifest at path.
func Load(path string) ([]deps.Descriptor, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, b)
}

// Parse parses the manifest b, which was read from path. Dependencies are
// returned in file order.
func Parse(path string, b []byte) ([]deps.Descriptor, error) {
	nodes, err := parser.Parse(b)
	if err != nil {
		return nil, xerrors.Errorf("%s: %w", path, err)
	}
	var descs []deps.Descriptor
	seen := make(map[string]bool)
	for _, n := range nodes {
		if n.Name == "" {
			continue // trailing comments and blank lines
		}
		if n.Name != "dependency" {
			return nil, xerrors.Errorf("%s: unexpected field %q", path, n.Name)
		}
		d, err := descriptor(n.Children)
		if err != nil {
			return nil, xerrors.Errorf("%s: dependency %d: %w", path, len(descs)+1, err)
		}
		if seen[d.DirName()] {
			return nil, xerrors.Errorf("%s: duplicate dependency %s", path, d.DirName())
		}
		seen[d.DirName()] = true
		descs = append(descs, d)
	}
	return descs, nil
}

func descriptor(children []*ast.Node) (deps.Descriptor, error) {
	var d deps.Descriptor
	for _, f := range []struct {
		name     string
		val      *string
		optional bool
	}{
		{"kind", &d.Kind, false},
		{"name", &d.Name, false},
		{"version", &d.Version, false},
		{"source", &d.Source, false},
		{"hash", &d.Hash, false},
		{"project", &d.Project, false},
		{"project_dir", &d.ProjectDir, true},
	} {
		val, err := stringVal(children, f.name)
		if err != nil {
			return d, err
		}
		if val == "" && !f.optional {
			return d, xerrors.Errorf("missing required field %q", f.name)
		}
		*f.val = val
	}
	return d, nil
}

// stringVal returns the value of the string field name, or the empty string
// if the field is not set.
func stringVal(nodes []*ast.Node, name string) (string, error) {
	found := ast.GetFromPath(nodes, []string{name})
	if len(found) == 0 {
		return "", nil
	}
	if got, want := len(found), 1; got != want {
		return "", xerrors.Errorf("got %d %s keys, want %d", got, name, want)
	}
	values := found[0].Values
	if got, want := len(values), 1; got != want {
		return "", xerrors.Errorf("%s: got %d values, want %d", name, got, want)
	}
	return strconv.Unquote(values[0].Value)
}
