// Package control implements the single-byte reverse channel by which
// the receiver asks the producer to stop capturing.
//
// Producer and receiver may run under different privilege boundaries and
// cannot signal each other directly, so the stop request travels in-band
// on the reverse direction of the media pipe. One byte is sufficient;
// its presence, not its value, carries the request.
package control

import (
	"fmt"
	"io"
	"sync/atomic"
)

// StopByte is the sentinel written on the receiver-to-producer
// direction of the pipe.
const StopByte byte = 0x0A

// Send writes the stop sentinel to w. Best effort: callers log a failure
// and move on, since a producer whose peer died observes EOF on its own.
func Send(w io.Writer) error {
	if _, err := w.Write([]byte{StopByte}); err != nil {
		return fmt.Errorf("control: send stop byte: %w", err)
	}
	return nil
}

// Watcher observes the reverse pipe for a stop request without ever
// blocking the lifecycle loop.
type Watcher struct {
	requested atomic.Bool
}

// Watch starts reading r in the background. One delivered byte marks the
// stop request; so does EOF or any read error, because a closed
// descriptor means the receiver is gone and capturing should stop
// either way.
func Watch(r io.Reader) *Watcher {
	w := &Watcher{}
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := r.Read(buf)
			if n > 0 || err != nil {
				w.requested.Store(true)
				return
			}
		}
	}()
	return w
}

// Requested reports whether a stop request has arrived. Non-blocking;
// absence of data is "not yet requested", not an error.
func (w *Watcher) Requested() bool {
	return w.requested.Load()
}
