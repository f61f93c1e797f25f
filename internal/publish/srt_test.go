package publish

import (
	"bytes"
	"testing"
)

func TestChunksExactMultiple(t *testing.T) {
	t.Parallel()
	data := make([]byte, payloadSize*3)
	got := chunks(data, payloadSize)
	if len(got) != 3 {
		t.Fatalf("chunk count: got %d, want 3", len(got))
	}
	for i, c := range got {
		if len(c) != payloadSize {
			t.Errorf("chunk %d: got %d bytes, want %d", i, len(c), payloadSize)
		}
	}
}

func TestChunksRemainder(t *testing.T) {
	t.Parallel()
	data := make([]byte, payloadSize+188)
	got := chunks(data, payloadSize)
	if len(got) != 2 {
		t.Fatalf("chunk count: got %d, want 2", len(got))
	}
	if len(got[0]) != payloadSize || len(got[1]) != 188 {
		t.Errorf("chunk sizes: got %d and %d", len(got[0]), len(got[1]))
	}
}

func TestChunksSmallAndEmpty(t *testing.T) {
	t.Parallel()
	if got := chunks(nil, payloadSize); got != nil {
		t.Errorf("empty input: got %d chunks, want none", len(got))
	}
	got := chunks([]byte{1, 2, 3}, payloadSize)
	if len(got) != 1 || !bytes.Equal(got[0], []byte{1, 2, 3}) {
		t.Errorf("small input not passed through: %v", got)
	}
}

func TestWriteNeverBlocks(t *testing.T) {
	t.Parallel()
	p := NewSRT("127.0.0.1:6000", "live/test", nil)

	// Nothing drains the queue; overfilling it must drop, not stall.
	chunk := make([]byte, 188)
	for i := 0; i < queueDepth+10; i++ {
		if !p.Write(chunk) {
			t.Fatal("write reported failure without a socket error")
		}
	}
	if p.Dropped() == 0 {
		t.Error("expected dropped chunks once the queue filled")
	}
}

func TestWriteCopiesData(t *testing.T) {
	t.Parallel()
	p := NewSRT("127.0.0.1:6000", "live/test", nil)

	buf := []byte{1, 2, 3, 4}
	p.Write(buf)
	buf[0] = 99

	queued := <-p.queue
	if !bytes.Equal(queued, []byte{1, 2, 3, 4}) {
		t.Errorf("queued chunk aliases caller buffer: %v", queued)
	}
}

func TestWriteAfterCloseReportsFailure(t *testing.T) {
	t.Parallel()
	p := NewSRT("127.0.0.1:6000", "live/test", nil)
	p.Close()
	p.Close() // idempotent

	if p.Write([]byte{1}) {
		t.Error("write after close must report failure")
	}
}
