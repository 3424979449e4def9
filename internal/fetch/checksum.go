package fetch

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/xerrors"
)

// Checksum is an expected content hash, written as algo:hex or as bare hex.
// Bare hex is interpreted by length: 32 digits are md5 (as found in older
// manifests), 64 digits are sha256.
type Checksum struct {
	Algo string // md5, sha256 or blake3
	Hex  string // lower case
}

func (c Checksum) String() string { return c.Algo + ":" + c.Hex }

// ParseChecksum parses s, e.g. 7e27f5f3b79dd1ce9092e159cdbd0635 or
// blake3:af1349b9....
func ParseChecksum(s string) (Checksum, error) {
	algo, sum := "", strings.ToLower(strings.TrimSpace(s))
	if idx := strings.IndexByte(sum, ':'); idx > -1 {
		algo, sum = sum[:idx], sum[idx+1:]
	}
	if _, err := hex.DecodeString(sum); err != nil || sum == "" {
		return Checksum{}, xerrors.Errorf("malformed checksum %q", s)
	}
	if algo == "" {
		switch len(sum) {
		case 2 * md5.Size:
			algo = "md5"
		case 2 * sha256.Size:
			algo = "sha256"
		default:
			return Checksum{}, xerrors.Errorf("cannot infer hash algorithm of %d-digit checksum %q", len(sum), s)
		}
	}
	c := Checksum{Algo: algo, Hex: sum}
	h, err := c.newHash()
	if err != nil {
		return Checksum{}, err
	}
	if got, want := len(sum), 2*h.Size(); got != want {
		return Checksum{}, xerrors.Errorf("%s checksum %q: got %d digits, want %d", algo, s, got, want)
	}
	return c, nil
}

func (c Checksum) newHash() (hash.Hash, error) {
	switch c.Algo {
	case "md5":
		return md5.New(), nil
	case "sha256":
		return sha256.New(), nil
	case "blake3":
		return blake3.New(), nil
	default:
		return nil, xerrors.Errorf("unknown hash algorithm %q", c.Algo)
	}
}

// Hash returns the hex digest of fn using the algorithm of c.
func (c Checksum) Hash(fn string) (string, error) {
	h, err := c.newHash()
	if err != nil {
		return "", err
	}
	f, err := os.Open(fn)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
