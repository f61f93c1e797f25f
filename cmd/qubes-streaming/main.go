// Command qubes-streaming runs one half of a two-process screen
// streaming pair. The producer captures the display and writes raw
// frames to stdout behind a one-shot geometry handshake; the receiver
// reads the handshake and the frames from stdin, encodes and muxes them
// with live audio, and fans the result out to the network sink and a
// local archive. The two processes coordinate shutdown through OS
// signals, a reverse-direction control byte, and end-of-stream
// propagation.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yanmarques/qubes-streaming/internal/config"
	"github.com/yanmarques/qubes-streaming/internal/control"
	"github.com/yanmarques/qubes-streaming/internal/graph"
	"github.com/yanmarques/qubes-streaming/internal/handshake"
	"github.com/yanmarques/qubes-streaming/internal/lifecycle"
	"github.com/yanmarques/qubes-streaming/internal/publish"
	"github.com/yanmarques/qubes-streaming/internal/shutdown"
)

func main() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	// All logging goes to stderr; stdout belongs to the media pipe.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if len(os.Args) != 2 {
		usage()
		os.Exit(2)
	}

	var run func(*slog.Logger, string) error
	switch os.Args[1] {
	case "--produce":
		run = runProducer
	case "--receive":
		run = runReceiver
	default:
		fmt.Fprintf(os.Stderr, "ERROR: unknown argument %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	graph.Init()

	session := uuid.NewString()
	log := slog.With("session", session)

	if err := run(log, session); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: qubes-streaming [--produce|--receive]

Arguments:
    --produce       Capture the first monitor and send raw video to stdout
    --receive       Receive raw video on stdin, encode and publish it
`)
}

func runProducer(log *slog.Logger, _ string) error {
	log = log.With("role", "producer")

	cfg, err := config.LoadProducer()
	if err != nil {
		return err
	}

	stop := &shutdown.Flag{}
	shutdown.Install(log, stop, syscall.SIGINT, syscall.SIGTERM)

	geo, err := graph.ProbeCapture(cfg.ProbeTimeout, log)
	if err != nil {
		return err
	}

	// The geometry header must be on the wire before the first frame
	// byte; the receiver blocks on it before assembling its graph.
	if err := handshake.Encode(os.Stdout, geo); err != nil {
		return err
	}

	g, err := graph.NewProducer(log)
	if err != nil {
		return err
	}

	// The receiver requests producer shutdown on the reverse direction
	// of the pipe.
	watcher := control.Watch(os.Stdin)

	driver := lifecycle.New(lifecycle.Config{
		Graph:         g,
		Stop:          stop,
		StopRequested: watcher.Requested,
		Log:           log,
	})
	return driver.Run()
}

func runReceiver(log *slog.Logger, session string) error {
	log = log.With("role", "receiver")

	cfg, err := config.LoadReceiver(session)
	if err != nil {
		return err
	}

	stop := &shutdown.Flag{}
	// SIGUSR1 gives the operator an out-of-band graceful stop.
	shutdown.Install(log, stop, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)

	// The producer's geometry header leads the stream; the decode chain
	// cannot be assembled without it. A malformed header aborts here,
	// before any pipeline resources are claimed.
	geo, err := handshake.Decode(os.Stdin)
	if err != nil {
		return err
	}
	log.Info("handshake complete",
		"width", geo.Width,
		"height", geo.Height,
		"format", geo.Format,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	grp, ctx := errgroup.WithContext(ctx)

	var sink *publish.SRT
	if cfg.Publish == config.PublishSRT {
		sink = publish.NewSRT(cfg.SRTAddr, cfg.SRTStreamID, log)
		if err := sink.Connect(ctx); err != nil {
			return err
		}
		grp.Go(func() error { return sink.Run(ctx) })
	}

	g, err := graph.NewReceiver(cfg, geo, sink, log)
	if err != nil {
		return err
	}

	notify := func() {
		// Best effort: a producer whose peer died observes EOF on its
		// own, so a failed send is logged and forgotten.
		if err := control.Send(os.Stdout); err != nil {
			log.Warn("failed to notify producer", "error", err)
		}
	}

	driver := lifecycle.New(lifecycle.Config{
		Graph:  g,
		Stop:   stop,
		Notify: notify,
		Log:    log,
	})

	grp.Go(func() error {
		defer cancel()
		if sink != nil {
			defer sink.Close()
		}
		return driver.Run()
	})

	return grp.Wait()
}
