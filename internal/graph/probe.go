package graph

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/yanmarques/qubes-streaming/internal/handshake"
)

// probePollInterval paces the caps checks while the probe pipeline
// negotiates.
const probePollInterval = 100 * time.Millisecond

// ProbeCapture determines the captured frame geometry by bringing a
// short-lived capture pipeline to PAUSED and reading the negotiated
// caps off the sink pad. The probe is torn down before the real capture
// graph is built, so it is a strict one-shot: probe, then handshake,
// then capture.
func ProbeCapture(timeout time.Duration, log *slog.Logger) (handshake.FrameGeometry, error) {
	if log == nil {
		log = slog.Default()
	}

	pipe, err := gst.NewPipelineFromString("ximagesrc use-damage=false ! fakesink name=probesink")
	if err != nil {
		return handshake.FrameGeometry{}, fmt.Errorf("graph: create probe pipeline: %w", err)
	}
	defer pipe.SetState(gst.StateNull)

	// PAUSED triggers caps negotiation without consuming frames.
	if err := pipe.SetState(gst.StatePaused); err != nil {
		return handshake.FrameGeometry{}, fmt.Errorf("graph: pause probe pipeline: %w", err)
	}

	sink, err := pipe.GetElementByName("probesink")
	if err != nil {
		return handshake.FrameGeometry{}, fmt.Errorf("graph: probe sink lookup: %w", err)
	}

	bus := pipe.GetPipelineBus()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if msg := bus.TimedPop(probePollInterval); msg != nil && msg.Type() == gst.MessageError {
			gerr := msg.ParseError()
			return handshake.FrameGeometry{}, fmt.Errorf("graph: probe error from %s: %s", msg.Source(), gerr.Error())
		}

		if g, ok := padGeometry(sink); ok {
			log.Info("capture geometry probed",
				"width", g.Width,
				"height", g.Height,
				"format", g.Format,
			)
			return g, nil
		}
	}

	return handshake.FrameGeometry{}, fmt.Errorf("graph: capture caps not negotiated within %s", timeout)
}

// padGeometry reads the negotiated raw-video caps from the element's
// sink pad, reporting false until negotiation has completed.
func padGeometry(sink *gst.Element) (handshake.FrameGeometry, bool) {
	pads, err := sink.GetSinkPads()
	if err != nil || len(pads) == 0 {
		return handshake.FrameGeometry{}, false
	}

	caps := pads[0].GetCurrentCaps()
	if caps == nil || caps.GetSize() == 0 {
		return handshake.FrameGeometry{}, false
	}

	s := caps.GetStructureAt(0)
	if s == nil || s.Name() != "video/x-raw" {
		return handshake.FrameGeometry{}, false
	}

	width, okW := intField(s, "width")
	height, okH := intField(s, "height")
	format, okF := stringField(s, "format")
	if !okW || !okH || !okF || width <= 0 || height <= 0 || format == "" {
		return handshake.FrameGeometry{}, false
	}

	return handshake.FrameGeometry{
		Width:  int32(width),
		Height: int32(height),
		Format: format,
	}, true
}

func intField(s *gst.Structure, name string) (int, bool) {
	v, err := s.GetValue(name)
	if err != nil {
		return 0, false
	}
	i, ok := v.(int)
	return i, ok
}

func stringField(s *gst.Structure, name string) (string, bool) {
	v, err := s.GetValue(name)
	if err != nil {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}
