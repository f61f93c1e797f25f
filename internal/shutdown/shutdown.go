// Package shutdown converts process termination signals into a
// cooperative flag the lifecycle loop polls each cycle.
package shutdown

import (
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
)

// Flag is an atomic stop indicator with a monotonic false-to-true
// transition. Signal handlers only set it; nothing clears it. A signal
// landing between two polls is observed on the next cycle, which delays
// reaction by at most one poll interval and is never a correctness
// problem.
//
// The flag is an explicit handle passed to the lifecycle driver rather
// than a package-level singleton, so multiple graphs can coexist in one
// process under test.
type Flag struct {
	v atomic.Bool
}

// Set marks the flag. Idempotent.
func (f *Flag) Set() {
	f.v.Store(true)
}

// Requested reports whether shutdown has been requested. Non-blocking.
func (f *Flag) Requested() bool {
	return f.v.Load()
}

// Install registers sigs to set the flag upon delivery. Call it before
// starting the lifecycle loop. If log is nil, slog.Default() is used.
func Install(log *slog.Logger, f *Flag, sigs ...os.Signal) {
	if log == nil {
		log = slog.Default()
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	go func() {
		for sig := range ch {
			log.Info("received signal", "signal", sig.String())
			f.Set()
		}
	}()
}
