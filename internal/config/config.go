// Package config collects the environment-derived settings for both
// roles. The role itself is chosen on the command line; everything else
// is configuration layered outside the core protocol.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Publish modes for the receiver's network sink.
const (
	PublishRTMP = "rtmp"
	PublishSRT  = "srt"
)

// Producer holds capture-side settings.
type Producer struct {
	// ProbeTimeout bounds the one-shot geometry probe of the capture
	// source.
	ProbeTimeout time.Duration
}

// Receiver holds encode/publish-side settings.
type Receiver struct {
	// Framerate of the incoming raw frames, frames per second.
	Framerate int
	// Encoder is the H.264 encoder element factory, e.g. x264enc or
	// nvh264enc.
	Encoder string
	// AudioBitrate for the AAC encoder, bits per second.
	AudioBitrate int
	// Publish selects the network sink: PublishRTMP or PublishSRT.
	Publish string
	// RTMPURL is the publish destination in rtmp mode. Empty means
	// archive-only.
	RTMPURL string
	// SRTAddr is the host:port of the SRT listener in srt mode.
	SRTAddr string
	// SRTStreamID identifies this stream to the SRT listener.
	SRTStreamID string
	// Output is the local archive path.
	Output string
}

// LoadProducer reads producer settings from the environment.
func LoadProducer() (Producer, error) {
	timeout, err := envDurationOr("PROBE_TIMEOUT", 10*time.Second)
	if err != nil {
		return Producer{}, err
	}
	if timeout <= 0 {
		return Producer{}, fmt.Errorf("config: PROBE_TIMEOUT must be positive")
	}
	return Producer{ProbeTimeout: timeout}, nil
}

// LoadReceiver reads receiver settings from the environment. The session
// ID seeds the default SRT stream ID.
func LoadReceiver(session string) (Receiver, error) {
	framerate, err := envIntOr("FRAMERATE", 25)
	if err != nil {
		return Receiver{}, err
	}
	if framerate <= 0 {
		return Receiver{}, fmt.Errorf("config: FRAMERATE must be positive, got %d", framerate)
	}

	audioBitrate, err := envIntOr("AUDIO_BITRATE", 160000)
	if err != nil {
		return Receiver{}, err
	}
	if audioBitrate <= 0 {
		return Receiver{}, fmt.Errorf("config: AUDIO_BITRATE must be positive, got %d", audioBitrate)
	}

	cfg := Receiver{
		Framerate:    framerate,
		Encoder:      envOr("VIDEO_ENCODER", "x264enc"),
		AudioBitrate: audioBitrate,
		Publish:      envOr("PUBLISH", PublishRTMP),
		RTMPURL:      os.Getenv("RTMP_URL"),
		SRTAddr:      os.Getenv("SRT_ADDR"),
		SRTStreamID:  envOr("SRT_STREAM_ID", "live/"+session),
	}

	switch cfg.Publish {
	case PublishRTMP:
		cfg.Output = envOr("OUTPUT", "out.flv")
	case PublishSRT:
		if cfg.SRTAddr == "" {
			return Receiver{}, fmt.Errorf("config: PUBLISH=srt requires SRT_ADDR")
		}
		cfg.Output = envOr("OUTPUT", "out.ts")
	default:
		return Receiver{}, fmt.Errorf("config: unknown publish mode %q", cfg.Publish)
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func envDurationOr(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
