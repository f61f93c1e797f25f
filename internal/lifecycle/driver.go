// Package lifecycle drives an assembled processing graph from idle
// through playing, draining, and terminated states, reacting to the
// shutdown flag, the peer's stop request, and the graph's event bus.
// The same driver serves both the producer and the receiver role; the
// roles differ only in which optional hooks they wire.
package lifecycle

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/yanmarques/qubes-streaming/internal/shutdown"
)

// GraphState is a state command accepted by a Graph.
type GraphState int

const (
	// GraphPlaying starts media flow through every stage.
	GraphPlaying GraphState = iota
	// GraphNull stops the graph and releases the external resources
	// (display handles, audio devices, sockets) its stages hold.
	GraphNull
)

func (s GraphState) String() string {
	switch s {
	case GraphPlaying:
		return "playing"
	case GraphNull:
		return "null"
	}
	return "unknown"
}

// Graph is the contract an assembled processing graph exposes to the
// driver: a single start/stop control surface, end-of-stream injection,
// and a pollable event bus. The driver imposes nothing on how stages
// are wired internally. The GStreamer adapter lives in internal/graph;
// tests use a fake.
type Graph interface {
	// SetState commands the whole graph into the given state.
	SetState(GraphState) error
	// RequestEOS injects end-of-stream at the graph's sources so every
	// stage flushes and finalizes.
	RequestEOS()
	// PollBus waits up to timeout for the next bus event, returning nil
	// if none arrived. It must not block past the timeout.
	PollBus(timeout time.Duration) *Event
}

// DefaultPollTimeout bounds each bus poll and therefore the worst-case
// latency between an external stop request and the driver noticing it.
const DefaultPollTimeout = time.Second

// Config assembles a Driver.
type Config struct {
	// Graph is the assembled processing graph. Required.
	Graph Graph
	// Stop is the process-wide shutdown flag handle. Required.
	Stop *shutdown.Flag
	// StopRequested, when non-nil, is polled each cycle for a
	// downstream stop request. The producer wires the control-byte
	// watcher here.
	StopRequested func() bool
	// Notify, when non-nil, is invoked best-effort whenever the
	// upstream peer should stop capturing. The receiver wires the
	// control-byte send here.
	Notify func()
	// PollTimeout bounds each bus poll. Defaults to DefaultPollTimeout.
	PollTimeout time.Duration
	// Log defaults to slog.Default().
	Log *slog.Logger
}

// Driver owns one graph's lifecycle. It runs a single-threaded
// cooperative polling loop; the only value mutated from an asynchronous
// context is the shutdown flag.
type Driver struct {
	log           *slog.Logger
	graph         Graph
	stop          *shutdown.Flag
	stopRequested func() bool
	notify        func()
	pollTimeout   time.Duration

	state   State
	stopped bool
	failure *StageError
}

// New creates a Driver in the idle state.
func New(cfg Config) *Driver {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	return &Driver{
		log:           log.With("component", "lifecycle"),
		graph:         cfg.Graph,
		stop:          cfg.Stop,
		stopRequested: cfg.StopRequested,
		notify:        cfg.Notify,
		pollTimeout:   timeout,
		state:         StateIdle,
	}
}

// State returns the driver's current lifecycle state.
func (d *Driver) State() State {
	return d.state
}

// Run commands the graph to Playing and loops until a terminal state is
// reached: check the shutdown flag, check the peer stop request, poll
// the bus with a bounded wait, react. It returns nil on a clean drain,
// a *StageError if a stage failed mid-stream, or a setup error if the
// graph refused to start. The graph is commanded to its null state
// exactly once before Run returns, on every path.
func (d *Driver) Run() error {
	if err := d.graph.SetState(GraphPlaying); err != nil {
		d.stopGraph()
		return fmt.Errorf("lifecycle: start graph: %w", err)
	}
	d.state = StatePlaying
	d.log.Debug("graph playing")

	for !d.state.Terminal() {
		if d.stop.Requested() {
			d.apply(Trigger{Kind: TriggerSignal})
		}
		if d.stopRequested != nil && d.stopRequested() {
			d.apply(Trigger{Kind: TriggerStopRequest})
		}
		if d.state.Terminal() {
			break
		}
		if ev := d.graph.PollBus(d.pollTimeout); ev != nil {
			d.apply(triggerFor(ev))
		}
	}

	d.stopGraph()
	d.log.Info("graph terminated", "state", d.state)

	if d.failure != nil {
		return d.failure
	}
	return nil
}

// apply feeds one trigger through the pure transition function and
// executes the resulting side effects. Triggers that produce no
// transition and no actions are silent no-ops, which makes repeated
// flag observations idempotent.
func (d *Driver) apply(t Trigger) {
	next, actions := Next(d.state, t)
	if next == d.state && len(actions) == 0 {
		return
	}

	if t.Kind == TriggerError {
		d.failure = &StageError{Source: t.Source, Message: t.Message, Debug: t.Debug}
		d.log.Error("pipeline error",
			"source", t.Source,
			"error", t.Message,
			"debug", t.Debug,
		)
	}
	d.log.Info("state transition", "from", d.state, "to", next, "trigger", t.Kind)

	for _, a := range actions {
		switch a {
		case ActionRequestEOS:
			d.log.Debug("requesting end-of-stream")
			d.graph.RequestEOS()
		case ActionStopGraph:
			d.stopGraph()
		case ActionNotifyUpstream:
			if d.notify != nil {
				d.notify()
			}
		}
	}

	d.state = next
}

// stopGraph commands the graph to null at most once per Driver.
func (d *Driver) stopGraph() {
	if d.stopped {
		return
	}
	d.stopped = true
	if err := d.graph.SetState(GraphNull); err != nil {
		d.log.Warn("failed to stop graph", "error", err)
	}
}

func triggerFor(ev *Event) Trigger {
	if ev.Kind == EventError {
		return Trigger{Kind: TriggerError, Source: ev.Source, Message: ev.Message, Debug: ev.Debug}
	}
	return Trigger{Kind: TriggerEOS, Source: ev.Source}
}
