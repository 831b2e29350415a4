// Command heliumd is the application shell around the normalizer core:
// it resolves configuration, wires stdin/file input to a Normalizer, and
// routes the amplified output to a WAV-wrapped file/stdout or an
// external encoder process, logging progress and shutting down cleanly
// on SIGINT.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"

	flag "github.com/spf13/pflag"

	"github.com/meinders/helium/encoder"
	"github.com/meinders/helium/helium"
	"github.com/meinders/helium/normalize"
	"github.com/meinders/helium/wavfile"
)

func main() {
	configPath := flag.StringP("config", "c", "config.yaml", "path to heliumd config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := helium.LoadConfig(*configPath)
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	level := parseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	in, err := openInput(cfg.Input)
	if err != nil {
		logger.Error("input error", "error", err)
		os.Exit(1)
	}
	defer in.Close()

	sink, err := openSink(cfg, logger)
	if err != nil {
		logger.Error("output error", "error", err)
		os.Exit(1)
	}

	normCfg := normalize.Config{
		Format:          cfg.Format,
		Channels:        cfg.Channels,
		SampleRate:      cfg.SampleRate,
		WindowSeconds:   cfg.WindowSeconds,
		MaxGain:         cfg.MaxGain,
		PerChannel:      cfg.PerChannel,
		DCOffsetEnabled: cfg.DCOffsetEnabled,
	}
	n, err := normalize.NewNormalizer(normCfg, sink)
	if err != nil {
		logger.Error("normalizer init failed", "error", err)
		os.Exit(1)
	}

	n.OnAmplitude(func(channel int, amplitude float64) {
		logger.Debug("amplitude", "channel", channel, "amplitude", amplitude)
	})
	n.OnGain(func(channel int, gain float64) {
		logger.Debug("gain", "channel", channel, "gain", gain)
	})

	logger.Info("heliumd starting",
		"format", cfg.Format.String(),
		"channels", cfg.Channels,
		"sample_rate", cfg.SampleRate,
		"window_seconds", cfg.WindowSeconds,
		"max_gain", cfg.MaxGain,
		"per_channel", cfg.PerChannel,
	)

	runErr := pump(ctx, in, n)

	logger.Info("shutting down...")
	// n.Close() flushes the pipeline and, since sink implements
	// io.Closer (wavfile.Writer or encoder.Process), closes it too —
	// there is nothing left for main to close on top of that.
	closeErr := n.Close()

	if runErr != nil {
		logger.Error("stream ended with error", "error", runErr)
		os.Exit(1)
	}
	if closeErr != nil {
		logger.Error("close failed", "error", closeErr)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// pump copies bytes from r into n until EOF, cancellation, or error.
func pump(ctx context.Context, r io.Reader, n *normalize.Normalizer) error {
	buf := make([]byte, 32*1024)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		nr, readErr := r.Read(buf)
		if nr > 0 {
			if _, err := n.Write(buf[:nr]); err != nil {
				return err
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" || path == "" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

// openSink builds the downstream collaborator: an external encoder
// process if configured, otherwise a WAV-wrapped file or stdout. The
// returned io.Writer is the sole owner of whatever underlying file or
// process it wraps — the Normalizer closes it exactly once via its own
// Close, so nothing here keeps a second handle to close.
func openSink(cfg helium.Config, logger *slog.Logger) (io.Writer, error) {
	if cfg.EncoderCommand != "" {
		proc, err := encoder.Start(cfg.EncoderCommand, cfg.EncoderArgs, func(line string) {
			logger.Info("encoder", "line", line)
		})
		if err != nil {
			return nil, err
		}
		return proc, nil
	}

	var out io.Writer
	if cfg.Output == "-" || cfg.Output == "" {
		// Wrapped as a bare io.Writer so wavfile.Writer's io.Closer type
		// assertion misses it: stdout must survive past this process's
		// normalizer, not get closed along with the WAV wrapper.
		out = struct{ io.Writer }{os.Stdout}
	} else {
		f, err := os.Create(cfg.Output)
		if err != nil {
			return nil, err
		}
		out = f
	}

	return wavfile.NewWriter(out, cfg.Format, cfg.Channels, cfg.SampleRate)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
