package thirdparty

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
)

// interruptSignals end a run early.
var interruptSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// InterruptibleContext returns a child of parent which is canceled on SIGINT
// or SIGTERM. Running downloads and build tool invocations are aborted; a
// dependency interrupted mid-pipeline has no stamp and is redone on the next
// run. The signal is reported to logger, if non-nil.
func InterruptibleContext(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, canc := context.WithCancel(parent)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, interruptSignals...)
	go func() {
		defer signal.Stop(sig)
		select {
		case s := <-sig:
			if logger != nil {
				logger.Printf("received %v, aborting; unfinished dependencies are rebuilt on the next run", s)
			}
			// A second signal terminates immediately, e.g. when a build tool
			// ignores cancellation.
			canc()
		case <-ctx.Done():
		}
	}()
	return ctx, canc
}
