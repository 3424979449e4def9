package archive

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
)

var files = map[string]string{
	"gtest-1.5.0/README":            "Google C++ Testing Framework",
	"gtest-1.5.0/msvc/gtest.sln":    "Microsoft Visual Studio Solution File",
	"gtest-1.5.0/msvc/gtest.vcproj": "<VisualStudioProject/>",
}

func names(m map[string]string) []string {
	var n []string
	for name := range m {
		n = append(n, name)
	}
	sort.Strings(n)
	return n
}

func writeTar(t *testing.T, w *tar.Writer, m map[string]string) {
	t.Helper()
	for _, name := range names(m) {
		if err := w.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0444,
			Size:     int64(len(m[name])),
			Typeflag: tar.TypeReg,
		}); err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(m[name])); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func tarGz(t *testing.T, m map[string]string) []byte {
	var buf bytes.Buffer
	zw := pgzip.NewWriter(&buf)
	writeTar(t, tar.NewWriter(zw), m)
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func tarZst(t *testing.T, m map[string]string) []byte {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	writeTar(t, tar.NewWriter(zw), m)
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func zipped(t *testing.T, m map[string]string) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names(m) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(m[name])); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func readTree(t *testing.T, dir string) map[string]string {
	t.Helper()
	got := make(map[string]string)
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		got[filepath.ToSlash(rel)] = string(b)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return got
}

func TestExtract(t *testing.T) {
	for _, tt := range []struct {
		name    string
		content func(*testing.T, map[string]string) []byte
	}{
		{"gtest-1.5.0.tar.gz", tarGz},
		{"gtest-1.5.0.tar.zst", tarZst},
		{"gtest-1.5.0.zip", zipped},
	} {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			fn := filepath.Join(dir, tt.name)
			if err := os.WriteFile(fn, tt.content(t, files), 0644); err != nil {
				t.Fatal(err)
			}
			dest := filepath.Join(dir, "out")
			if err := Extract(fn, dest); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(files, readTree(t, dest)); diff != "" {
				t.Errorf("Extract(%s): diff (-want +got):\n%s", tt.name, diff)
			}
		})
	}
}

func TestExtractRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "evil.tar.gz")
	if err := os.WriteFile(fn, tarGz(t, map[string]string{"../evil": "x"}), 0644); err != nil {
		t.Fatal(err)
	}
	err := Extract(fn, filepath.Join(dir, "out"))
	if err == nil {
		t.Fatalf("Extract(evil) = nil, want error")
	}
	if _, err := os.Stat(filepath.Join(dir, "evil")); !os.IsNotExist(err) {
		t.Errorf("evil entry was written (stat: %v)", err)
	}
}

func TestExtractUnsupported(t *testing.T) {
	if err := Extract("gtest-1.5.0.rar", t.TempDir()); err == nil {
		t.Errorf("Extract(.rar) = nil, want error")
	}
}

func TestTarget(t *testing.T) {
	dest := filepath.Join("third_party", "out")
	for _, name := range []string{"../evil", "gtest/../../evil", "/../../evil"} {
		if _, err := target(dest, name); err == nil {
			t.Errorf("target(%q) = nil error, want error", name)
		}
	}
	got, err := target(dest, "gtest-1.5.0/msvc/gtest.sln")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dest, "gtest-1.5.0", "msvc", "gtest.sln"); got != want {
		t.Errorf("target() = %q, want %q", got, want)
	}
}

func TestExtractHardLink(t *testing.T) {
	var buf bytes.Buffer
	zw := pgzip.NewWriter(&buf)
	tw := tar.NewWriter(zw)
	const content = "Google C++ Testing Framework"
	for _, hdr := range []*tar.Header{
		{Name: "gtest-1.5.0/README", Mode: 0444, Size: int64(len(content)), Typeflag: tar.TypeReg},
		{Name: "gtest-1.5.0/README.txt", Linkname: "gtest-1.5.0/README", Mode: 0444, Typeflag: tar.TypeLink},
	} {
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(content)); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	fn := filepath.Join(dir, "gtest-1.5.0.tar.gz")
	if err := os.WriteFile(fn, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(dir, "out")
	if err := Extract(fn, dest); err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"gtest-1.5.0/README":     content,
		"gtest-1.5.0/README.txt": content,
	}
	if diff := cmp.Diff(want, readTree(t, dest)); diff != "" {
		t.Errorf("Extract(hard link): diff (-want +got):\n%s", diff)
	}
}

func TestExtractHardLinkOutside(t *testing.T) {
	var buf bytes.Buffer
	zw := pgzip.NewWriter(&buf)
	tw := tar.NewWriter(zw)
	if err := tw.WriteHeader(&tar.Header{Name: "gtest-1.5.0/passwd", Linkname: "../../etc/passwd", Typeflag: tar.TypeLink}); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	fn := filepath.Join(dir, "evil.tar.gz")
	if err := os.WriteFile(fn, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	if err := Extract(fn, filepath.Join(dir, "out")); err == nil {
		t.Errorf("Extract(hard link outside) = nil, want error")
	}
}
