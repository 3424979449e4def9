//go:build !unix && !windows

package rm

import "os"

func makeWritable(path string, fi os.FileInfo) error {
	return os.Chmod(path, fi.Mode().Perm()|0200)
}
