package graph

import (
	"fmt"
	"log/slog"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/yanmarques/qubes-streaming/internal/config"
	"github.com/yanmarques/qubes-streaming/internal/handshake"
	"github.com/yanmarques/qubes-streaming/internal/publish"
)

// NewReceiver assembles the encode/publish graph. Raw frames arrive on
// stdin with the handshake geometry, live audio comes from PulseAudio,
// and the muxed result fans out to the network sink and the local
// archive simultaneously:
//
//	fdsrc(fd=0) → capsfilter → rawvideoparse → queue → videoconvert →
//	  encoder → h264parse ─┐
//	pulsesrc → audioconvert → audioresample → capsfilter → queue →
//	  fdkaacenc ───────────┤
//	                       mux → tee → queue → network sink
//	                                 → queue → filesink
//
// In rtmp mode the muxer is flvmux and the network sink is rtmpsink (or
// absent when no URL is configured). In srt mode the muxer is mpegtsmux
// and the network branch is an appsink feeding sink; a sink write
// failure surfaces as a pipeline error so the lifecycle driver tears
// the graph down and notifies the upstream producer.
func NewReceiver(cfg config.Receiver, geo handshake.FrameGeometry, sink *publish.SRT, log *slog.Logger) (*Pipeline, error) {
	if log == nil {
		log = slog.Default()
	}

	pipe, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("graph: new pipeline: %w", err)
	}

	// Video chain: parse raw frames using the handshake geometry.
	videosrc, err := makeElement("fdsrc")
	if err != nil {
		return nil, err
	}
	videosrc.SetProperty("fd", 0)
	// Whole frames per read, so the parser never sees a torn frame.
	videosrc.SetProperty("blocksize", frameBlockSize(geo))

	videocaps, err := makeElement("capsfilter")
	if err != nil {
		return nil, err
	}
	videocaps.SetProperty("caps", gst.NewCapsFromString(rawVideoCaps(geo, cfg.Framerate)))

	videoparse, err := makeElement("rawvideoparse")
	if err != nil {
		return nil, err
	}
	videoparse.SetProperty("use-sink-caps", true)

	videoqueue, err := makeElement("queue")
	if err != nil {
		return nil, err
	}

	videoconvert, err := makeElement("videoconvert")
	if err != nil {
		return nil, err
	}

	videoenc, err := makeElement(cfg.Encoder)
	if err != nil {
		return nil, err
	}

	videoparse2, err := makeElement("h264parse")
	if err != nil {
		return nil, err
	}

	// Audio chain: live desktop audio, resampled and AAC encoded.
	audiosrc, err := makeElement("pulsesrc")
	if err != nil {
		return nil, err
	}

	audioconvert, err := makeElement("audioconvert")
	if err != nil {
		return nil, err
	}

	audioresample, err := makeElement("audioresample")
	if err != nil {
		return nil, err
	}

	audiocaps, err := makeElement("capsfilter")
	if err != nil {
		return nil, err
	}
	audiocaps.SetProperty("caps", gst.NewCapsFromString(audioCaps()))

	audioqueue, err := makeElement("queue")
	if err != nil {
		return nil, err
	}

	audioenc, err := makeElement("fdkaacenc")
	if err != nil {
		return nil, err
	}
	audioenc.SetProperty("bitrate", cfg.AudioBitrate)

	mux, netsink, err := muxAndNetworkSink(cfg, sink, log)
	if err != nil {
		return nil, err
	}

	archivequeue, err := makeElement("queue")
	if err != nil {
		return nil, err
	}

	filesink, err := makeElement("filesink")
	if err != nil {
		return nil, err
	}
	filesink.SetProperty("location", cfg.Output)

	elements := []*gst.Element{
		videosrc, videocaps, videoparse, videoqueue, videoconvert, videoenc, videoparse2,
		audiosrc, audioconvert, audioresample, audiocaps, audioqueue, audioenc,
		mux, archivequeue, filesink,
	}

	var netqueue *gst.Element
	if netsink != nil {
		netqueue, err = makeElement("queue")
		if err != nil {
			return nil, err
		}
		elements = append(elements, netqueue, netsink)
	}

	if err := pipe.AddMany(elements...); err != nil {
		return nil, fmt.Errorf("graph: add receiver elements: %w", err)
	}

	if err := gst.ElementLinkMany(videosrc, videocaps, videoparse, videoqueue, videoconvert, videoenc, videoparse2, mux); err != nil {
		return nil, fmt.Errorf("graph: link video chain: %w", err)
	}
	if err := gst.ElementLinkMany(audiosrc, audioconvert, audioresample, audiocaps, audioqueue, audioenc, mux); err != nil {
		return nil, fmt.Errorf("graph: link audio chain: %w", err)
	}

	if netsink == nil {
		// Archive only: no fan-out needed.
		if err := gst.ElementLinkMany(mux, archivequeue, filesink); err != nil {
			return nil, fmt.Errorf("graph: link archive branch: %w", err)
		}
		return newPipeline(pipe, log), nil
	}

	tee, err := makeElement("tee")
	if err != nil {
		return nil, err
	}
	if err := pipe.Add(tee); err != nil {
		return nil, fmt.Errorf("graph: add tee: %w", err)
	}
	if err := mux.Link(tee); err != nil {
		return nil, fmt.Errorf("graph: link mux to tee: %w", err)
	}
	if err := gst.ElementLinkMany(tee, archivequeue, filesink); err != nil {
		return nil, fmt.Errorf("graph: link archive branch: %w", err)
	}
	if err := gst.ElementLinkMany(tee, netqueue, netsink); err != nil {
		return nil, fmt.Errorf("graph: link network branch: %w", err)
	}

	return newPipeline(pipe, log), nil
}

// muxAndNetworkSink picks the container and network sink for the
// configured publish mode. A nil network sink means archive-only.
func muxAndNetworkSink(cfg config.Receiver, sink *publish.SRT, log *slog.Logger) (*gst.Element, *gst.Element, error) {
	switch cfg.Publish {
	case config.PublishRTMP:
		mux, err := makeElement("flvmux")
		if err != nil {
			return nil, nil, err
		}
		mux.SetProperty("streamable", true)

		if cfg.RTMPURL == "" {
			log.Info("no RTMP URL configured, archiving only")
			return mux, nil, nil
		}

		rtmpsink, err := makeElement("rtmpsink")
		if err != nil {
			return nil, nil, err
		}
		rtmpsink.SetProperty("location", cfg.RTMPURL)
		return mux, rtmpsink, nil

	case config.PublishSRT:
		mux, err := makeElement("mpegtsmux")
		if err != nil {
			return nil, nil, err
		}

		appsink, err := newPublishSink(sink)
		if err != nil {
			return nil, nil, err
		}
		return mux, appsink, nil
	}

	return nil, nil, fmt.Errorf("graph: unknown publish mode %q", cfg.Publish)
}

// newPublishSink builds the appsink that hands muxed transport-stream
// data to the SRT publisher.
func newPublishSink(sink *publish.SRT) (*gst.Element, error) {
	appsink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("graph: create appsink: %w", err)
	}
	appsink.SetProperty("sync", false)

	appsink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(s *app.Sink) gst.FlowReturn {
			sample := s.PullSample()
			if sample == nil {
				return gst.FlowEOS
			}
			buffer := sample.GetBuffer()
			if buffer == nil {
				return gst.FlowOK
			}

			mapInfo := buffer.Map(gst.MapRead)
			data := mapInfo.Bytes()
			ok := true
			if len(data) > 0 {
				// The publisher copies the data before queuing.
				ok = sink.Write(data)
			}
			buffer.Unmap()

			if !ok {
				// Socket gone: surface the sink loss as a pipeline
				// error so the driver tears the graph down and the
				// upstream producer is told to stop.
				return gst.FlowError
			}
			return gst.FlowOK
		},
	})

	return appsink.Element, nil
}
