// Package bootstrap drives a set of dependency builders through their
// lifecycle: fetch, patch, build and stamp.
package bootstrap

import (
	"context"
	"log"

	"github.com/yact/thirdparty/internal/deps"
	"github.com/yact/thirdparty/internal/rm"
	"golang.org/x/xerrors"
)

// Mode selects what Run does.
type Mode int

const (
	// Build brings every dependency without a completion stamp up to date.
	Build Mode = iota

	// Rebuild removes all dependency roots, then builds.
	Rebuild

	// Clean removes all dependency roots.
	Clean
)

func (m Mode) String() string {
	switch m {
	case Build:
		return "build"
	case Rebuild:
		return "rebuild"
	case Clean:
		return "clean"
	}
	return "unknown"
}

// Ctx is a bootstrap context, containing configuration and state.
type Ctx struct {
	// Configuration
	Log      *log.Logger
	Builders []deps.Builder
	Remover  *rm.Remover
}

func (c *Ctx) logf(format string, v ...interface{}) {
	if c.Log != nil {
		c.Log.Printf(format, v...)
		return
	}
	log.Printf(format, v...)
}

func (c *Ctx) remover() *rm.Remover {
	if c.Remover != nil {
		return c.Remover
	}
	return &rm.Remover{Log: c.Log}
}

// PhaseError is returned when a builder fails; it names the builder and the
// lifecycle phase.
type PhaseError struct {
	Name  string
	Phase string
	Err   error
}

func (e *PhaseError) Error() string { return e.Name + ": " + e.Phase + ": " + e.Err.Error() }

func (e *PhaseError) Unwrap() error { return e.Err }

// Run processes all builders sequentially. All fetches complete before the
// first patch, so that a download failure leaves no half-patched trees
// behind. The first error ends the run.
func (c *Ctx) Run(ctx context.Context, mode Mode) error {
	if mode == Clean || mode == Rebuild {
		for _, b := range c.Builders {
			c.logf("[%s] removing %s", b.Name(), b.Root())
			c.remover().Remove(b.Root())
		}
		if mode == Clean {
			return nil
		}
	}

	var pending []deps.Builder
	for _, b := range c.Builders {
		if b.HasStamp() {
			c.logf("[%s] up to date", b.Name())
			continue
		}
		pending = append(pending, b)
	}
	if len(pending) == 0 {
		return nil
	}

	for _, phase := range []struct {
		name string
		fn   func(deps.Builder) error
	}{
		{"fetch", func(b deps.Builder) error { return b.Fetch(ctx) }},
		{"patch", func(b deps.Builder) error { return b.Patch(ctx) }},
	} {
		for _, b := range pending {
			if err := ctx.Err(); err != nil {
				return err
			}
			c.logf("[%s] %s", b.Name(), phase.name)
			if err := phase.fn(b); err != nil {
				return &PhaseError{Name: b.Name(), Phase: phase.name, Err: err}
			}
		}
	}

	for _, b := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.logf("[%s] build", b.Name())
		if err := b.Build(ctx); err != nil {
			return &PhaseError{Name: b.Name(), Phase: "build", Err: err}
		}
		if err := b.WriteStamp(); err != nil {
			return &PhaseError{Name: b.Name(), Phase: "stamp", Err: xerrors.Errorf("writing stamp: %w", err)}
		}
		c.logf("[%s] done", b.Name())
	}
	return nil
}
