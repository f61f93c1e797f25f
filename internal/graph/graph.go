// Package graph assembles the GStreamer processing graphs for both
// roles and adapts them to the lifecycle.Graph contract. Everything
// GStreamer-specific lives here; the lifecycle driver sees only the
// contract.
package graph

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/yanmarques/qubes-streaming/internal/lifecycle"
)

// Init initializes GStreamer. Safe to call multiple times.
func Init() {
	gst.Init(nil)
}

// Pipeline adapts a *gst.Pipeline to the lifecycle.Graph contract.
type Pipeline struct {
	log  *slog.Logger
	pipe *gst.Pipeline
	bus  *gst.Bus
}

func newPipeline(pipe *gst.Pipeline, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		log:  log.With("component", "graph"),
		pipe: pipe,
		bus:  pipe.GetPipelineBus(),
	}
}

// SetState commands the whole pipeline into the requested state.
func (g *Pipeline) SetState(s lifecycle.GraphState) error {
	switch s {
	case lifecycle.GraphPlaying:
		if err := g.pipe.SetState(gst.StatePlaying); err != nil {
			return fmt.Errorf("graph: set playing: %w", err)
		}
	case lifecycle.GraphNull:
		if err := g.pipe.SetState(gst.StateNull); err != nil {
			return fmt.Errorf("graph: set null: %w", err)
		}
	default:
		return fmt.Errorf("graph: unsupported state command %v", s)
	}
	return nil
}

// RequestEOS injects end-of-stream at the pipeline's sources; the bus
// reports EOS once it has propagated through every stage to the
// terminal sinks.
func (g *Pipeline) RequestEOS() {
	g.pipe.SendEvent(gst.NewEOSEvent())
}

// PollBus waits up to timeout for the next EOS or Error bus message and
// translates it to a lifecycle.Event. Other message kinds arriving
// within the window are consumed without ending the wait.
func (g *Pipeline) PollBus(timeout time.Duration) *lifecycle.Event {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}

		msg := g.bus.TimedPop(remaining)
		if msg == nil {
			return nil
		}

		switch msg.Type() {
		case gst.MessageEOS:
			return &lifecycle.Event{Kind: lifecycle.EventEOS, Source: msg.Source()}

		case gst.MessageError:
			gerr := msg.ParseError()
			return &lifecycle.Event{
				Kind:    lifecycle.EventError,
				Source:  msg.Source(),
				Message: gerr.Error(),
				Debug:   gerr.DebugString(),
			}

		case gst.MessageStateChanged:
			if msg.Source() == g.pipe.GetName() {
				old, next := msg.ParseStateChanged()
				g.log.Debug("pipeline state changed", "from", old, "to", next)
			}
		}
	}
}

// makeElement creates a named GStreamer element, wrapping the factory
// name into the error for reporting.
func makeElement(factory string) (*gst.Element, error) {
	e, err := gst.NewElement(factory)
	if err != nil {
		return nil, fmt.Errorf("graph: create %s: %w", factory, err)
	}
	return e, nil
}
