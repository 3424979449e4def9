// Package rm deletes file system trees on a best-effort basis. Read-only
// entries are made writable first, and entries held open by virus scanners or
// indexers are retried a bounded number of times.
package rm

import (
	"log"
	"os"
	"path/filepath"
)

// DefaultAttempts is how often an entry is tried before giving up. The value
// is not tuned; it is what the bootstrap always used.
const DefaultAttempts = 10

// Remover removes paths. The zero value is ready to use.
type Remover struct {
	// Attempts bounds the removal attempts per entry (DefaultAttempts if 0).
	Attempts int

	// Log receives progress and warnings about entries which could not be
	// removed. If nil, the standard logger is used.
	Log *log.Logger
}

func (r *Remover) attempts() int {
	if r.Attempts > 0 {
		return r.Attempts
	}
	return DefaultAttempts
}

func (r *Remover) logf(format string, v ...interface{}) {
	if r.Log != nil {
		r.Log.Printf(format, v...)
		return
	}
	log.Printf(format, v...)
}

// Remove deletes path and everything below it. A missing path is not an
// error. Entries which cannot be removed within the attempt budget are logged
// and skipped: callers must not assume path is gone afterwards, only that a
// best effort was made.
func (r *Remover) Remove(path string) {
	fi, err := os.Lstat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logf("WARNING: rm %s: %v", path, err)
		}
		return
	}
	if fi.IsDir() {
		r.removeDir(path, fi)
		return
	}
	r.logf("[rm] %s", path)
	if err := makeWritable(path, fi); err != nil {
		r.logf("WARNING: clearing read-only attribute of %s: %v", path, err)
	}
	r.retry(path)
}

func (r *Remover) removeDir(path string, fi os.FileInfo) {
	// A read-only directory can neither be listed reliably nor have its
	// entries unlinked.
	if err := makeWritable(path, fi); err != nil {
		r.logf("WARNING: clearing read-only attribute of %s: %v", path, err)
	}
	f, err := os.Open(path)
	if err != nil {
		r.logf("WARNING: rm %s: %v", path, err)
		return
	}
	names, err := f.Readdirnames(-1)
	f.Close()
	if err != nil {
		r.logf("WARNING: rm %s: %v", path, err)
	}
	for _, name := range names {
		r.Remove(filepath.Join(path, name))
	}
	r.logf("[rm] %s", path)
	r.retry(path)
}

func (r *Remover) retry(path string) {
	var err error
	for i := 0; i < r.attempts(); i++ {
		err = os.Remove(path)
		if err == nil || os.IsNotExist(err) {
			return
		}
	}
	r.logf("WARNING: giving up on %s after %d attempts: %v", path, r.attempts(), err)
}
