package graph

import (
	"fmt"
	"log/slog"

	"github.com/tinyzimmer/go-gst/gst"
)

// NewProducer assembles the capture graph: the X11 screen grab feeding
// raw frames to stdout, where the receiver picks them up.
//
//	ximagesrc → queue → fdsink(fd=1)
//
// The pipeline is configured but not started; the lifecycle driver
// issues the Playing command.
func NewProducer(log *slog.Logger) (*Pipeline, error) {
	pipe, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("graph: new pipeline: %w", err)
	}

	src, err := makeElement("ximagesrc")
	if err != nil {
		return nil, err
	}
	// Full-frame capture only: damage tracking emits partial updates
	// the downstream raw-frame parser cannot reassemble.
	src.SetProperty("use-damage", false)

	queue, err := makeElement("queue")
	if err != nil {
		return nil, err
	}

	sink, err := makeElement("fdsink")
	if err != nil {
		return nil, err
	}
	sink.SetProperty("fd", 1)

	if err := pipe.AddMany(src, queue, sink); err != nil {
		return nil, fmt.Errorf("graph: add producer elements: %w", err)
	}
	if err := gst.ElementLinkMany(src, queue, sink); err != nil {
		return nil, fmt.Errorf("graph: link producer elements: %w", err)
	}

	return newPipeline(pipe, log), nil
}
