//go:build unix

package rm

import (
	"os"

	"golang.org/x/sys/unix"
)

func makeWritable(path string, fi os.FileInfo) error {
	if fi.Mode()&os.ModeSymlink != 0 {
		return nil // chmod would follow the link
	}
	mode := fi.Mode().Perm() | 0200
	if fi.IsDir() {
		mode |= 0700
	}
	if mode == fi.Mode().Perm() {
		return nil
	}
	return unix.Chmod(path, uint32(mode))
}
