// Package handshake implements the one-shot frame-geometry exchange
// performed over the producer-to-receiver media pipe before any raw
// frame bytes flow.
//
// Wire layout, fixed-then-variable, all big-endian: 4-byte signed width,
// 4-byte signed height, 8-byte unsigned byte-length of the pixel-format
// name, then exactly that many bytes of UTF-8 name. No padding, no
// version byte. After a successful Decode the stream cursor sits on the
// first byte of frame data.
package handshake

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// fixedHeaderSize covers the width, height, and name-length fields.
const fixedHeaderSize = 16

// MaxFormatLen bounds the declared pixel-format name length so a corrupt
// header cannot drive an unbounded allocation. Real format names
// ("BGRx", "I420", ...) are a handful of bytes.
const MaxFormatLen = 64 * 1024

// FrameGeometry describes the captured frame layout. The producer probes
// it once from the capture source; the receiver consumes it exactly once
// before assembling its decode chain.
type FrameGeometry struct {
	Width  int32
	Height int32
	Format string
}

// Validate checks the geometry invariants: positive dimensions and a
// non-empty, valid-UTF-8 format name.
func (g FrameGeometry) Validate() error {
	if g.Width <= 0 {
		return fmt.Errorf("non-positive width %d", g.Width)
	}
	if g.Height <= 0 {
		return fmt.Errorf("non-positive height %d", g.Height)
	}
	if g.Format == "" {
		return errors.New("empty format name")
	}
	if !utf8.ValidString(g.Format) {
		return errors.New("format name is not valid UTF-8")
	}
	return nil
}

// DecodeError indicates a malformed or truncated geometry header. It is
// fatal to the receiver: the decode chain cannot be assembled without a
// trustworthy geometry.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("handshake: decode %s: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Encode writes the geometry header to w in a single write, so an
// unbuffered pipe carries it immediately. It must be called at most once
// per producer lifetime, strictly before any frame bytes are written to
// the same stream.
func Encode(w io.Writer, g FrameGeometry) error {
	if err := g.Validate(); err != nil {
		return fmt.Errorf("handshake: encode: %w", err)
	}

	buf := make([]byte, 0, fixedHeaderSize+len(g.Format))
	buf = binary.BigEndian.AppendUint32(buf, uint32(g.Width))
	buf = binary.BigEndian.AppendUint32(buf, uint32(g.Height))
	buf = binary.BigEndian.AppendUint64(buf, uint64(len(g.Format)))
	buf = append(buf, g.Format...)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("handshake: write header: %w", err)
	}
	return nil
}

// Decode reads exactly one geometry header from r: 16 fixed bytes, then
// the declared number of name bytes, and nothing more. It fails with a
// *DecodeError if the stream ends early, the declared length is absurd,
// or the decoded fields violate the geometry invariants.
func Decode(r io.Reader) (FrameGeometry, error) {
	var hdr [fixedHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return FrameGeometry{}, &DecodeError{Field: "header", Err: eofToUnexpected(err)}
	}

	width := int32(binary.BigEndian.Uint32(hdr[0:4]))
	height := int32(binary.BigEndian.Uint32(hdr[4:8]))
	nameLen := binary.BigEndian.Uint64(hdr[8:16])

	if width <= 0 {
		return FrameGeometry{}, &DecodeError{Field: "width", Err: fmt.Errorf("non-positive width %d", width)}
	}
	if height <= 0 {
		return FrameGeometry{}, &DecodeError{Field: "height", Err: fmt.Errorf("non-positive height %d", height)}
	}
	if nameLen == 0 {
		return FrameGeometry{}, &DecodeError{Field: "format", Err: errors.New("empty format name")}
	}
	if nameLen > MaxFormatLen {
		return FrameGeometry{}, &DecodeError{Field: "format", Err: fmt.Errorf("declared name length %d exceeds %d", nameLen, MaxFormatLen)}
	}

	name := make([]byte, nameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return FrameGeometry{}, &DecodeError{Field: "format", Err: eofToUnexpected(err)}
	}
	if !utf8.Valid(name) {
		return FrameGeometry{}, &DecodeError{Field: "format", Err: errors.New("format name is not valid UTF-8")}
	}

	return FrameGeometry{Width: width, Height: height, Format: string(name)}, nil
}

// eofToUnexpected normalizes a bare EOF mid-header to ErrUnexpectedEOF:
// a stream that ends inside a declared field is truncated either way.
func eofToUnexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
