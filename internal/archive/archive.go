// Package archive extracts source archives (.tar.gz, .tgz, .tar.zst, .zip).
package archive

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"golang.org/x/xerrors"
)

// Extract unpacks the archive fn into the directory dest, which is created if
// needed. Entries keep their archive paths; no components are stripped.
func Extract(fn, dest string) error {
	if err := os.MkdirAll(dest, 0755); err != nil {
		return err
	}
	switch {
	case strings.HasSuffix(fn, ".zip"):
		return extractZip(fn, dest)
	case strings.HasSuffix(fn, ".tar.gz"), strings.HasSuffix(fn, ".tgz"):
		f, err := os.Open(fn)
		if err != nil {
			return err
		}
		defer f.Close()
		zr, err := pgzip.NewReader(f)
		if err != nil {
			return xerrors.Errorf("%s: %w", fn, err)
		}
		defer zr.Close()
		return extractTar(fn, zr, dest)
	case strings.HasSuffix(fn, ".tar.zst"):
		f, err := os.Open(fn)
		if err != nil {
			return err
		}
		defer f.Close()
		zr, err := zstd.NewReader(f)
		if err != nil {
			return xerrors.Errorf("%s: %w", fn, err)
		}
		defer zr.Close()
		return extractTar(fn, zr, dest)
	case strings.HasSuffix(fn, ".tar"):
		f, err := os.Open(fn)
		if err != nil {
			return err
		}
		defer f.Close()
		return extractTar(fn, f, dest)
	default:
		return xerrors.Errorf("%s: unsupported archive format", fn)
	}
}

// target returns the extraction path of the archive entry name, refusing
// entries which would end up outside of dest.
func target(dest, name string) (string, error) {
	d := filepath.Clean(dest)
	p := filepath.Join(d, filepath.FromSlash(name))
	if p != d && !strings.HasPrefix(p, d+string(os.PathSeparator)) {
		return "", xerrors.Errorf("archive entry %q points outside of %s", name, dest)
	}
	return p, nil
}

func writeFile(path string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		return err
	}
	return out.Close()
}

func copyFile(dst, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	fi, err := in.Stat()
	if err != nil {
		return err
	}
	if !fi.Mode().IsRegular() {
		return xerrors.Errorf("%s is not a regular file", src)
	}
	return writeFile(dst, in, fi.Mode().Perm())
}

func extractTar(fn string, r io.Reader, dest string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return xerrors.Errorf("%s: %w", fn, err)
		}
		path, err := target(dest, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(path, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(path, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if filepath.IsAbs(hdr.Linkname) {
				return xerrors.Errorf("archive entry %q links to absolute path %q", hdr.Name, hdr.Linkname)
			}
			if _, err := target(dest, filepath.Join(filepath.Dir(hdr.Name), hdr.Linkname)); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return err
			}
			if err := os.Symlink(hdr.Linkname, path); err != nil {
				return err
			}
		case tar.TypeLink:
			// Hard links refer to an earlier entry of the same archive. A
			// copy keeps the tree independent of the file system's link
			// support.
			src, err := target(dest, hdr.Linkname)
			if err != nil {
				return err
			}
			if err := copyFile(path, src); err != nil {
				return xerrors.Errorf("%s: hard link %s: %w", fn, hdr.Name, err)
			}
		default:
			// pax headers are consumed by archive/tar; devices and fifos do
			// not occur in source archives.
		}
	}
}

func extractZip(fn, dest string) error {
	zr, err := zip.OpenReader(fn)
	if err != nil {
		return xerrors.Errorf("%s: %w", fn, err)
	}
	defer zr.Close()
	for _, f := range zr.File {
		path, err := target(dest, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(path, 0755); err != nil {
				return err
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return xerrors.Errorf("%s: %s: %w", fn, f.Name, err)
		}
		mode := f.Mode().Perm()
		if mode == 0 {
			mode = 0644 // zip files written on Windows carry no permissions
		}
		err = writeFile(path, rc, mode)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
