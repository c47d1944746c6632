// Command matrixclock drives a 64x32 LED matrix clock from Lua modules.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/phanxgames/matrixclock"
	"github.com/phanxgames/matrixclock/builtin"
	"github.com/phanxgames/matrixclock/config"
	"github.com/phanxgames/matrixclock/connector"
	"github.com/phanxgames/matrixclock/display/ebitendisplay"
	"github.com/phanxgames/matrixclock/display/termdisplay"
	"github.com/phanxgames/matrixclock/internal/cli"
	"github.com/phanxgames/matrixclock/internal/ctxlog"
	"github.com/phanxgames/matrixclock/script"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run wires the engine and blocks until the display closes, a signal
// arrives or the connector stops on a fatal error.
func run(outW io.Writer, args []string) error {
	opts, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	cfg := config.Default()
	if opts.ConfigPath != "" {
		if cfg, err = config.Load(opts.ConfigPath); err != nil {
			return &cli.ExitError{Code: 2, Message: err.Error()}
		}
	}
	if opts.Display != "" {
		cfg.Display.Backend = opts.Display
	}

	logW := outW
	if opts.LogFile != "" {
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logW = f
	} else if cfg.Display.Backend == config.BackendTerminal {
		logW = io.Discard
	}
	logger := cli.NewLogger(opts.LogLevel, opts.LogFormat, logW)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = ctxlog.WithLogger(ctx, logger)

	return runEngine(ctx, cfg)
}

func runEngine(ctx context.Context, cfg *config.Config) error {
	logger := ctxlog.FromContext(ctx)

	assets := os.DirFS(cfg.AssetsDir)
	fonts := matrixclock.DefaultFonts
	if err := fonts.Init(assets); err != nil {
		return fmt.Errorf("load fonts from %s: %w", cfg.AssetsDir, err)
	}
	defer fonts.Deinit()

	running := new(atomic.Bool)
	running.Store(true)
	fb := matrixclock.NewFramebuffer()

	rt := script.NewRuntime(os.DirFS(cfg.ScriptsDir), script.Options{
		Fonts:      fonts,
		ArenaLimit: cfg.ArenaLimit,
		Timeout:    cfg.ScriptTimeout,
	})
	conn := connector.New(fb, rt, connector.Options{
		FPS:           cfg.FPS,
		ReloadEvery:   cfg.ReloadEvery,
		IdleBackoff:   cfg.IdleBackoff,
		ConfigScript:  cfg.ConfigScript,
		Defaults:      cfg.Defaults,
		SnapshotDir:   cfg.SnapshotDir,
		SnapshotScale: cfg.SnapshotScale,
		Fonts:         fonts,
		Images:        matrixclock.NewImageStore(assets),
		Builtins:      builtin.Registry(builtin.Options{FPS: cfg.FPS}),
		Running:       running,
	})

	logger.Info("Starting matrix clock.",
		"backend", cfg.Display.Backend,
		"assets", cfg.AssetsDir,
		"scripts", cfg.ScriptsDir,
		"fps", cfg.FPS,
	)

	connErr := make(chan error, 1)
	go func() {
		err := conn.Run(ctx)
		running.Store(false)
		connErr <- err
	}()

	switch cfg.Display.Backend {
	case config.BackendEbiten:
		w := ebitendisplay.New(fb, running, cfg.Display.Scale, "matrixclock")
		if err := w.Run(); err != nil {
			running.Store(false)
			<-connErr
			return fmt.Errorf("display: %w", err)
		}
	case config.BackendTerminal:
		term, err := termdisplay.New(fb, running)
		if err == nil {
			err = term.Init()
		}
		if err != nil {
			running.Store(false)
			<-connErr
			return err
		}
		err = term.Run(ctx, cfg.FPS)
		term.Fini()
		if err != nil {
			running.Store(false)
			<-connErr
			return fmt.Errorf("display: %w", err)
		}
	}

	// The display has closed or there is none; wait for the rotation to end.
	if err := <-connErr; err != nil {
		return fmt.Errorf("connector: %w", err)
	}
	logger.Info("Matrix clock stopped.", "frames", fb.Frames())
	return nil
}
