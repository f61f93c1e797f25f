package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PROBE_TIMEOUT", "FRAMERATE", "VIDEO_ENCODER", "AUDIO_BITRATE",
		"PUBLISH", "RTMP_URL", "SRT_ADDR", "SRT_STREAM_ID", "OUTPUT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadReceiverDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadReceiver("abc123")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Framerate != 25 {
		t.Errorf("framerate: got %d, want 25", cfg.Framerate)
	}
	if cfg.Encoder != "x264enc" {
		t.Errorf("encoder: got %q, want x264enc", cfg.Encoder)
	}
	if cfg.AudioBitrate != 160000 {
		t.Errorf("audio bitrate: got %d, want 160000", cfg.AudioBitrate)
	}
	if cfg.Publish != PublishRTMP {
		t.Errorf("publish: got %q, want rtmp", cfg.Publish)
	}
	if cfg.Output != "out.flv" {
		t.Errorf("output: got %q, want out.flv", cfg.Output)
	}
	if cfg.SRTStreamID != "live/abc123" {
		t.Errorf("stream id: got %q, want live/abc123", cfg.SRTStreamID)
	}
}

func TestLoadReceiverSRTMode(t *testing.T) {
	clearEnv(t)
	t.Setenv("PUBLISH", "srt")
	t.Setenv("SRT_ADDR", "127.0.0.1:6000")

	cfg, err := LoadReceiver("abc123")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Output != "out.ts" {
		t.Errorf("output: got %q, want out.ts", cfg.Output)
	}
}

func TestLoadReceiverSRTRequiresAddr(t *testing.T) {
	clearEnv(t)
	t.Setenv("PUBLISH", "srt")

	if _, err := LoadReceiver("abc123"); err == nil {
		t.Fatal("expected error for srt mode without SRT_ADDR")
	}
}

func TestLoadReceiverRejectsUnknownMode(t *testing.T) {
	clearEnv(t)
	t.Setenv("PUBLISH", "carrier-pigeon")

	if _, err := LoadReceiver("abc123"); err == nil {
		t.Fatal("expected error for unknown publish mode")
	}
}

func TestLoadReceiverOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("FRAMERATE", "60")
	t.Setenv("VIDEO_ENCODER", "nvh264enc")
	t.Setenv("RTMP_URL", "rtmp://live.twitch.tv/app/key")
	t.Setenv("OUTPUT", "/tmp/archive.flv")

	cfg, err := LoadReceiver("abc123")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Framerate != 60 || cfg.Encoder != "nvh264enc" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.RTMPURL != "rtmp://live.twitch.tv/app/key" {
		t.Errorf("rtmp url: got %q", cfg.RTMPURL)
	}
	if cfg.Output != "/tmp/archive.flv" {
		t.Errorf("output: got %q", cfg.Output)
	}
}

func TestLoadReceiverRejectsBadInts(t *testing.T) {
	clearEnv(t)
	t.Setenv("FRAMERATE", "fast")
	if _, err := LoadReceiver("abc123"); err == nil {
		t.Fatal("expected error for non-numeric FRAMERATE")
	}

	clearEnv(t)
	t.Setenv("FRAMERATE", "0")
	if _, err := LoadReceiver("abc123"); err == nil {
		t.Fatal("expected error for zero FRAMERATE")
	}
}

func TestLoadProducer(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadProducer()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ProbeTimeout != 10*time.Second {
		t.Errorf("probe timeout: got %v, want 10s", cfg.ProbeTimeout)
	}

	t.Setenv("PROBE_TIMEOUT", "2s")
	cfg, err = LoadProducer()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ProbeTimeout != 2*time.Second {
		t.Errorf("probe timeout: got %v, want 2s", cfg.ProbeTimeout)
	}

	t.Setenv("PROBE_TIMEOUT", "soon")
	if _, err := LoadProducer(); err == nil {
		t.Fatal("expected error for invalid PROBE_TIMEOUT")
	}
}
