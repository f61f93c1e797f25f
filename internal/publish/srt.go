// Package publish delivers the receiver's muxed transport stream to the
// network sink. The graph's appsink branch hands it muxed data; a
// background goroutine owns the SRT socket so a stalled link never
// blocks the streaming threads.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	srtgo "github.com/zsiec/srtgo"
)

// payloadSize is 7 MPEG-TS packets (188 * 7), the standard SRT payload.
const payloadSize = 1316

// queueDepth bounds in-flight chunks between the graph callback and the
// socket writer. A full queue drops rather than stalls the pipeline.
const queueDepth = 256

// dialTimeout bounds the synchronous connect to the SRT listener.
const dialTimeout = 10 * time.Second

// srtLatencyNs is the SRT latency setting in nanoseconds (120ms).
const srtLatencyNs = 120_000_000

// SRT publishes muxed MPEG-TS chunks to a remote SRT listener.
type SRT struct {
	log      *slog.Logger
	addr     string
	streamID string

	conn    *srtgo.Conn
	queue   chan []byte
	closed  atomic.Bool
	failed  atomic.Bool
	dropped atomic.Int64
}

// NewSRT creates a publisher targeting addr with the given stream ID.
// If log is nil, slog.Default() is used.
func NewSRT(addr, streamID string, log *slog.Logger) *SRT {
	if log == nil {
		log = slog.Default()
	}
	return &SRT{
		log:      log.With("component", "srt-publish"),
		addr:     addr,
		streamID: streamID,
		queue:    make(chan []byte, queueDepth),
	}
}

// Connect dials the remote SRT listener synchronously, bounded by a
// timeout. Run must not be called before Connect succeeds.
func (p *SRT) Connect(ctx context.Context) error {
	cfg := srtgo.DefaultConfig()
	cfg.Latency = srtLatencyNs
	cfg.StreamID = p.streamID

	type dialResult struct {
		conn *srtgo.Conn
		err  error
	}
	ch := make(chan dialResult, 1)
	go func() {
		conn, err := srtgo.Dial(p.addr, cfg)
		ch <- dialResult{conn, err}
	}()

	timer := time.NewTimer(dialTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			return fmt.Errorf("publish: SRT dial %s: %w", p.addr, res.err)
		}
		p.conn = res.conn
		p.log.Info("connected", "addr", p.addr, "stream_id", p.streamID)
		return nil
	case <-timer.C:
		// Drain the dial result in the background and close any leaked
		// connection.
		go func() {
			if res := <-ch; res.conn != nil {
				res.conn.Close()
			}
		}()
		return fmt.Errorf("publish: SRT dial %s timed out after %s", p.addr, dialTimeout)
	case <-ctx.Done():
		go func() {
			if res := <-ch; res.conn != nil {
				res.conn.Close()
			}
		}()
		return ctx.Err()
	}
}

// Run drains the queue and writes payload-size chunks to the socket. It
// returns nil once the queue is closed or the context is cancelled, and
// an error on a socket failure, after which Write reports false so the
// graph can surface the sink loss as a pipeline error.
func (p *SRT) Run(ctx context.Context) error {
	defer p.conn.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case buf, ok := <-p.queue:
			if !ok {
				return nil
			}
			for _, pkt := range chunks(buf, payloadSize) {
				if _, err := p.conn.Write(pkt); err != nil {
					p.failed.Store(true)
					return fmt.Errorf("publish: SRT write: %w", err)
				}
			}
		}
	}
}

// Write queues one muxed chunk for transmission. It never blocks the
// caller: a full queue drops the chunk and counts it. The data is
// copied, so the caller may reuse b. It reports false once the socket
// has failed or the publisher is closed.
func (p *SRT) Write(b []byte) bool {
	if p.failed.Load() || p.closed.Load() {
		return false
	}
	buf := make([]byte, len(b))
	copy(buf, b)

	select {
	case p.queue <- buf:
	default:
		p.dropped.Add(1)
		p.log.Debug("dropping chunk, queue full")
	}
	return true
}

// Close stops the writer once the queued chunks have flushed.
// Idempotent.
func (p *SRT) Close() {
	if p.closed.CompareAndSwap(false, true) {
		close(p.queue)
	}
}

// Dropped returns the number of chunks discarded because the queue was
// full.
func (p *SRT) Dropped() int64 {
	return p.dropped.Load()
}

// chunks splits b into payload-size slices; the final chunk carries the
// remainder.
func chunks(b []byte, size int) [][]byte {
	if len(b) == 0 {
		return nil
	}
	out := make([][]byte, 0, (len(b)+size-1)/size)
	for len(b) > size {
		out = append(out, b[:size])
		b = b[size:]
	}
	return append(out, b)
}
