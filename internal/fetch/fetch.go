// Package fetch downloads source archives into a local cache directory and
// verifies them against an expected checksum.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/google/renameio"
	"github.com/mattn/go-isatty"
	"golang.org/x/xerrors"
)

// IntegrityError is returned when the content of a cached or freshly
// downloaded archive does not hash to the expected checksum. It is never
// retried: a human needs to look at the manifest or the mirror.
type IntegrityError struct {
	URL  string
	Path string
	Got  string
	Want string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("hash mismatch for %s (%s): got %s, want %s", e.URL, e.Path, e.Got, e.Want)
}

// Fetcher downloads archives into Dir. The zero value is not usable; Dir must
// be set.
type Fetcher struct {
	Dir string

	// Client is used for downloads. If nil, a client with transparent
	// compression disabled is used.
	Client *http.Client

	// Log receives one line per cache hit or download. If nil, the standard
	// logger is used.
	Log *log.Logger

	// Progress receives download progress. If nil, progress is printed to
	// stderr when stderr is a terminal.
	Progress io.Writer
}

func (f *Fetcher) logf(format string, v ...interface{}) {
	if f.Log != nil {
		f.Log.Printf(format, v...)
		return
	}
	log.Printf(format, v...)
}

// CachePath returns where the archive at rawurl is cached: the last path
// segment of the URL, inside Dir.
func (f *Fetcher) CachePath(rawurl string) (string, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return "", xerrors.Errorf("url.Parse: %v", err)
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." || base == ".." {
		return "", xerrors.Errorf("%s: URL has no file name", rawurl)
	}
	return filepath.Join(f.Dir, base), nil
}

// Fetch makes sure the archive at rawurl is cached with the expected checksum
// and returns its path. A cached file with a matching checksum is used without
// any network access. A download whose content does not match is discarded
// and reported as *IntegrityError.
func (f *Fetcher) Fetch(ctx context.Context, rawurl, checksum string) (string, error) {
	want, err := ParseChecksum(checksum)
	if err != nil {
		return "", err
	}
	fn, err := f.CachePath(rawurl)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(fn); err == nil {
		got, err := want.Hash(fn)
		if err != nil {
			return "", err
		}
		if got == want.Hex {
			f.logf("[  ok  ] %s", rawurl)
			return fn, nil
		}
		f.logf("cached %s does not match %s, downloading again", fn, want)
	} else if !os.IsNotExist(err) {
		return "", err // file exists, but can’t access it?
	}

	if err := f.download(ctx, rawurl, fn, want); err != nil {
		return "", err
	}
	return fn, nil
}

func (f *Fetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	// We need to disable compression: with some web servers,
	// http.DefaultTransport’s default compression handling results in an
	// unwanted gunzip step, storing a .tar.gz as an uncompressed tar file.
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DisableCompression = true
	return &http.Client{Transport: t}
}

func (f *Fetcher) progress() io.Writer {
	if f.Progress != nil {
		return f.Progress
	}
	if fd := os.Stderr.Fd(); isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return os.Stderr
	}
	return nil
}

func (f *Fetcher) download(ctx context.Context, rawurl, fn string, want Checksum) error {
	if err := os.MkdirAll(filepath.Dir(fn), 0755); err != nil {
		return err
	}
	f.logf("[download] %s", rawurl)
	req, err := http.NewRequestWithContext(ctx, "GET", rawurl, nil)
	if err != nil {
		return err
	}
	resp, err := f.client().Do(req)
	if err != nil {
		return xerrors.Errorf("download %s: %w", rawurl, err)
	}
	defer resp.Body.Close()
	if got, want := resp.StatusCode, http.StatusOK; got != want {
		return xerrors.Errorf("download %s: unexpected HTTP status: got %d (%v), want %d", rawurl, got, resp.Status, want)
	}

	h, err := want.newHash()
	if err != nil {
		return err
	}
	pf, err := renameio.TempFile("", fn)
	if err != nil {
		return err
	}
	defer pf.Cleanup()
	var body io.Reader = resp.Body
	if w := f.progress(); w != nil {
		pr := &progressReader{r: resp.Body, w: w, name: path.Base(fn), total: resp.ContentLength}
		defer pr.done()
		body = pr
	}
	if _, err := io.Copy(io.MultiWriter(pf, h), body); err != nil {
		return xerrors.Errorf("download %s: %w", rawurl, err)
	}
	if got := fmt.Sprintf("%x", h.Sum(nil)); got != want.Hex {
		// The pending file is discarded by Cleanup, so a corrupt download
		// never ends up at fn.
		return &IntegrityError{URL: rawurl, Path: fn, Got: got, Want: want.Hex}
	}
	return pf.CloseAtomicallyReplace()
}
