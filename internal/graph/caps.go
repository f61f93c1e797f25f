package graph

import (
	"fmt"

	"github.com/yanmarques/qubes-streaming/internal/handshake"
)

// bytesPerPixel maps the packed pixel formats the X11 capture source
// emits to their per-pixel byte count.
func bytesPerPixel(format string) int {
	switch format {
	case "RGB", "BGR":
		return 3
	default:
		// BGRx and friends; also the safe default for unknown packed
		// formats, since over-reading a frame boundary is worse than
		// an extra read.
		return 4
	}
}

// frameBlockSize is the byte count of one whole raw frame, used to size
// fdsrc reads.
func frameBlockSize(g handshake.FrameGeometry) uint {
	return uint(int(g.Width) * int(g.Height) * bytesPerPixel(g.Format))
}

// rawVideoCaps describes the raw frames arriving on stdin: geometry
// from the handshake, framerate and square pixels from configuration.
func rawVideoCaps(g handshake.FrameGeometry, framerate int) string {
	return fmt.Sprintf(
		"video/x-raw,format=%s,width=%d,height=%d,pixel-aspect-ratio=1/1,framerate=%d/1",
		g.Format, g.Width, g.Height, framerate,
	)
}

// audioCaps pins the audio chain to 48 kHz stereo ahead of the AAC
// encoder.
func audioCaps() string {
	return "audio/x-raw,rate=48000,channels=2"
}
