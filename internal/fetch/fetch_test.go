package fetch

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/sha256"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/zeebo/blake3"
	"golang.org/x/xerrors"
)

var archive = []byte("pretend this is gtest-1.5.0.tar.gz")

func md5sum(b []byte) string    { return fmt.Sprintf("%x", md5.Sum(b)) }
func sha256sum(b []byte) string { return fmt.Sprintf("%x", sha256.Sum256(b)) }

// serve returns a server handing out content for every request, and a
// counter of requests served.
func serve(t *testing.T, content []byte) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write(content)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newFetcher(t *testing.T) *Fetcher {
	return &Fetcher{
		Dir:      t.TempDir(),
		Log:      log.New(io.Discard, "", 0),
		Progress: io.Discard,
	}
}

func TestFetchDownloads(t *testing.T) {
	srv, hits := serve(t, archive)
	f := newFetcher(t)
	fn, err := f.Fetch(context.Background(), srv.URL+"/files/gtest-1.5.0.tar.gz", md5sum(archive))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := fn, filepath.Join(f.Dir, "gtest-1.5.0.tar.gz"); got != want {
		t.Errorf("Fetch() = %q, want %q", got, want)
	}
	b, err := os.ReadFile(fn)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, archive) {
		t.Errorf("cached content differs from served content")
	}
	if got, want := atomic.LoadInt32(hits), int32(1); got != want {
		t.Errorf("server hits = %d, want %d", got, want)
	}
}

func TestFetchCachedSkipsNetwork(t *testing.T) {
	srv, hits := serve(t, archive)
	f := newFetcher(t)
	if err := os.WriteFile(filepath.Join(f.Dir, "gtest-1.5.0.tar.gz"), archive, 0444); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Fetch(context.Background(), srv.URL+"/gtest-1.5.0.tar.gz", md5sum(archive)); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(hits); got != 0 {
		t.Errorf("server hits = %d, want 0 for a valid cached archive", got)
	}
}

func TestFetchMismatch(t *testing.T) {
	srv, _ := serve(t, []byte("corrupted"))
	f := newFetcher(t)
	rawurl := srv.URL + "/gmock-1.5.0.tar.gz"
	for i := 0; i < 2; i++ {
		_, err := f.Fetch(context.Background(), rawurl, sha256sum(archive))
		var ie *IntegrityError
		if !xerrors.As(err, &ie) {
			t.Fatalf("Fetch() = %v, want *IntegrityError", err)
		}
		if got, want := ie.Got, sha256sum([]byte("corrupted")); got != want {
			t.Errorf("IntegrityError.Got = %s, want %s", got, want)
		}
		if _, err := os.Stat(filepath.Join(f.Dir, "gmock-1.5.0.tar.gz")); !os.IsNotExist(err) {
			t.Errorf("corrupted download was left in the cache (stat: %v)", err)
		}
	}
}

func TestFetchReplacesStaleCache(t *testing.T) {
	srv, hits := serve(t, archive)
	f := newFetcher(t)
	fn := filepath.Join(f.Dir, "gtest-1.5.0.tar.gz")
	if err := os.WriteFile(fn, []byte("truncated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Fetch(context.Background(), srv.URL+"/gtest-1.5.0.tar.gz", "blake3:"+fmt.Sprintf("%x", blake3.Sum256(archive))); err != nil {
		t.Fatal(err)
	}
	if got, want := atomic.LoadInt32(hits), int32(1); got != want {
		t.Errorf("server hits = %d, want %d", got, want)
	}
	b, err := os.ReadFile(fn)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, archive) {
		t.Errorf("stale cache file was not replaced")
	}
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	f := newFetcher(t)
	if _, err := f.Fetch(context.Background(), srv.URL+"/gone.zip", md5sum(archive)); err == nil {
		t.Fatal("Fetch() = nil, want error for HTTP 404")
	}
}

func TestCachePath(t *testing.T) {
	f := &Fetcher{Dir: "/cache"}
	got, err := f.CachePath("http://googlemock.googlecode.com/files/gmock-1.5.0.tar.gz?x=1")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("/cache", "gmock-1.5.0.tar.gz"); got != want {
		t.Errorf("CachePath() = %q, want %q", got, want)
	}
	if _, err := f.CachePath("http://example.com/"); err == nil {
		t.Errorf("CachePath(no file name) = nil error, want error")
	}
}

func TestParseChecksum(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want Checksum
	}{
		{
			in:   "7E27F5F3B79DD1CE9092E159CDBD0635",
			want: Checksum{Algo: "md5", Hex: "7e27f5f3b79dd1ce9092e159cdbd0635"},
		},
		{
			in:   sha256sum(archive),
			want: Checksum{Algo: "sha256", Hex: sha256sum(archive)},
		},
		{
			in:   "sha256:" + sha256sum(archive),
			want: Checksum{Algo: "sha256", Hex: sha256sum(archive)},
		},
	} {
		got, err := ParseChecksum(tt.in)
		if err != nil {
			t.Fatalf("ParseChecksum(%q): %v", tt.in, err)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("ParseChecksum(%q): diff (-want +got):\n%s", tt.in, diff)
		}
	}

	for _, in := range []string{
		"",
		"xyz",
		"abc",
		"crc32:deadbeef",
		"md5:" + sha256sum(archive),
	} {
		if _, err := ParseChecksum(in); err == nil {
			t.Errorf("ParseChecksum(%q) = nil error, want error", in)
		}
	}
}
