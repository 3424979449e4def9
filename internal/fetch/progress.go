package fetch

import (
	"fmt"
	"io"
)

// progressReader prints a single, continuously overwritten status line.
type progressReader struct {
	r     io.Reader
	w     io.Writer
	name  string
	total int64 // -1 if unknown

	read    int64
	lastPct int64
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.total > 0 {
		if pct := p.read * 100 / p.total; pct != p.lastPct {
			p.lastPct = pct
			fmt.Fprintf(p.w, "\r%s: %3d%% (%d of %d KiB)", p.name, pct, p.read/1024, p.total/1024)
		}
	} else if n > 0 {
		fmt.Fprintf(p.w, "\r%s: %d KiB", p.name, p.read/1024)
	}
	return n, err
}

func (p *progressReader) done() {
	fmt.Fprintln(p.w)
}
