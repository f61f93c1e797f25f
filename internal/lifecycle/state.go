package lifecycle

// State is the lifecycle position of one running graph. Exactly one
// driver owns a graph's state; terminal states are absorbing.
type State int

const (
	// StateIdle precedes the first Playing command.
	StateIdle State = iota
	// StatePlaying means media is flowing through every stage.
	StatePlaying
	// StateDraining means end-of-stream has been requested and is
	// propagating toward the terminal sinks.
	StateDraining
	// StateDone is normal termination: the drain completed and the bus
	// reported end-of-stream.
	StateDone
	// StateFailed is error termination: a stage reported a fatal error
	// and the graph was stopped without waiting for end-of-stream.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether s is absorbing.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// EventKind classifies bus messages the driver reacts to.
type EventKind int

const (
	// EventEOS: end-of-stream reached the graph's terminal sinks.
	EventEOS EventKind = iota
	// EventError: a stage raised a fatal error.
	EventError
)

// Event is a message observed on the graph's bus.
type Event struct {
	Kind    EventKind
	Source  string
	Message string
	Debug   string
}

// TriggerKind tags the observations that drive state transitions.
type TriggerKind int

const (
	// TriggerSignal: the process-wide shutdown flag was set.
	TriggerSignal TriggerKind = iota
	// TriggerStopRequest: the downstream peer sent the control byte.
	TriggerStopRequest
	// TriggerEOS: the bus reported end-of-stream.
	TriggerEOS
	// TriggerError: the bus reported a fatal stage error.
	TriggerError
)

func (k TriggerKind) String() string {
	switch k {
	case TriggerSignal:
		return "signal"
	case TriggerStopRequest:
		return "stop-request"
	case TriggerEOS:
		return "eos"
	case TriggerError:
		return "error"
	}
	return "unknown"
}

// Trigger is a single observation, produced by one loop iteration and
// consumed immediately by Next. Source, Message, and Debug are populated
// for TriggerError only.
type Trigger struct {
	Kind    TriggerKind
	Source  string
	Message string
	Debug   string
}

// Action is a side effect Next asks the driver to perform.
type Action int

const (
	// ActionRequestEOS injects end-of-stream into the graph.
	ActionRequestEOS Action = iota
	// ActionStopGraph commands the graph to its null state immediately.
	ActionStopGraph
	// ActionNotifyUpstream tells the upstream producer to stop, best
	// effort. Only the receiver role wires a notifier.
	ActionNotifyUpstream
)

// Next is the pure transition function: given the current state and one
// trigger it returns the successor state and the side effects to
// perform, in order. Keeping it free of I/O makes every transition
// exercisable without a real bus or OS signal.
func Next(s State, t Trigger) (State, []Action) {
	if s.Terminal() {
		return s, nil
	}

	switch t.Kind {
	case TriggerSignal, TriggerStopRequest:
		if s == StatePlaying {
			return StateDraining, []Action{ActionRequestEOS, ActionNotifyUpstream}
		}
		// Already draining: end-of-stream has been requested once and
		// must propagate undisturbed.
		return s, nil

	case TriggerEOS:
		// EOS without a prior drain request is unexpected but harmless:
		// the graph quiesced on its own.
		return StateDone, nil

	case TriggerError:
		// Downstream stages may never deliver end-of-stream after a
		// mid-pipeline error, so stop the graph instead of draining it.
		return StateFailed, []Action{ActionStopGraph, ActionNotifyUpstream}
	}

	return s, nil
}
