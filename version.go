package thirdparty

import (
	"strings"

	"golang.org/x/xerrors"
)

// Version identifies one release of a third-party dependency. Its String form
// (e.g. gtest-1.5.0) names the directory the dependency is extracted into, so
// it must be identical across runs.
type Version struct {
	Name string

	// Upstream is the upstream version number. It is never parsed or compared,
	// and is meant for human consumption only.
	Upstream string
}

func (v Version) String() string {
	return v.Name + "-" + v.Upstream
}

// Valid returns an error if v cannot be used as a directory name.
func (v Version) Valid() error {
	if v.Name == "" {
		return xerrors.Errorf("empty name")
	}
	if v.Upstream == "" {
		return xerrors.Errorf("%s: empty version", v.Name)
	}
	for _, s := range []string{v.Name, v.Upstream} {
		if strings.ContainsAny(s, `/\:`) || s == "." || s == ".." {
			return xerrors.Errorf("%q: must not contain path separators", s)
		}
	}
	return nil
}

// ParseVersion constructs a Version from a directory name such as
// gtest-1.5.0 or google-gflags-2.0. The upstream version starts at the first
// minus-separated part that begins with a digit.
func ParseVersion(dirname string) Version {
	parts := strings.Split(dirname, "-")
	for i := 1; i < len(parts); i++ {
		if parts[i] == "" || parts[i][0] < '0' || parts[i][0] > '9' {
			continue
		}
		return Version{
			Name:     strings.Join(parts[:i], "-"),
			Upstream: strings.Join(parts[i:], "-"),
		}
	}
	return Version{Name: dirname}
}
