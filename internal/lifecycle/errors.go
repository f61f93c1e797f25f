package lifecycle

import "fmt"

// StageError reports a fatal mid-stream failure raised by one stage of
// the graph. Pipeline errors are not selectively recoverable: a failure
// in any stage invalidates the whole graph's ability to deliver a
// consistent stream, so the driver tears everything down and surfaces
// the originating stage for reporting.
type StageError struct {
	// Source identifies the stage that raised the error.
	Source string
	// Message is the human-readable error description.
	Message string
	// Debug is an optional framework-provided detail string.
	Debug string
}

func (e *StageError) Error() string {
	if e.Debug != "" {
		return fmt.Sprintf("lifecycle: stage %s: %s (%s)", e.Source, e.Message, e.Debug)
	}
	return fmt.Sprintf("lifecycle: stage %s: %s", e.Source, e.Message)
}
