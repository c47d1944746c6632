// Package connector runs the module-selection loop: it polls the config script,
// picks the next module in rotation, loads its resources and renders it until
// its time limit, then moves on.
package connector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/phanxgames/matrixclock"
	"github.com/phanxgames/matrixclock/internal/ctxlog"
	"github.com/phanxgames/matrixclock/script"
)

var (
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("connector: already running")
	// ErrNoConfig is returned when no config has ever loaded successfully.
	ErrNoConfig = errors.New("connector: no valid config loaded")
)

// Default option values.
const (
	DefaultFPS          = 30
	DefaultReloadEvery  = 5
	DefaultConfigScript = "config.lua"
)

// Snapshotter is implemented by displays that can save their presented frame.
type Snapshotter interface {
	Snapshot(dir, label string, scale int) (string, error)
}

// Options configures a Connector.
type Options struct {
	FPS int
	// ReloadEvery is the number of module switches between config polls.
	ReloadEvery int
	// IdleBackoff is waited after a pass in which every module failed.
	IdleBackoff  time.Duration
	ConfigScript string
	// Defaults seeds the config values visible to scripts.
	Defaults map[string]string
	// SnapshotDir, when set, receives a PNG of the last frame of every module.
	SnapshotDir   string
	SnapshotScale int

	Fonts    *matrixclock.FontStore
	Images   *matrixclock.ImageStore
	Builtins map[string]*matrixclock.ClockModule
	// Running is shared with the presentation surface; clearing it stops the
	// current render session and the selection loop.
	Running *atomic.Bool
}

// Connector owns the module rotation. It is not safe for concurrent use; Run
// is called once on the worker goroutine.
type Connector struct {
	display matrixclock.Display
	runtime *script.Runtime
	opts    Options

	started atomic.Bool
	config  *script.ClockConfig
	// switches counts module selections, successful or not.
	switches int

	idle func(ctx context.Context, d time.Duration)
}

// New returns a connector rendering to d with modules built by rt.
func New(d matrixclock.Display, rt *script.Runtime, opts Options) *Connector {
	if opts.FPS <= 0 {
		opts.FPS = DefaultFPS
	}
	if opts.ReloadEvery <= 0 {
		opts.ReloadEvery = DefaultReloadEvery
	}
	if opts.ConfigScript == "" {
		opts.ConfigScript = DefaultConfigScript
	}
	if opts.Running == nil {
		opts.Running = new(atomic.Bool)
		opts.Running.Store(true)
	}
	if opts.Images == nil {
		opts.Images = matrixclock.NewImageStore(nil)
	}
	return &Connector{display: d, runtime: rt, opts: opts, idle: sleepCtx}
}

// Config returns the config currently in effect, or nil before the first
// successful poll.
func (c *Connector) Config() *script.ClockConfig {
	return c.config
}

// Run drives the rotation until Running is cleared or ctx is done, which both
// end it with a nil error. A module that fails to load or render is skipped
// for the rest of the current pass over the rotation. Run returns an error for
// fatal conditions: arena exhaustion, an uninitialized font store, or no
// config ever loading.
func (c *Connector) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	if c.opts.Fonts != nil && !c.opts.Fonts.Initialized() {
		return matrixclock.ErrFontsNotInitialized
	}
	stop := context.AfterFunc(ctx, func() { c.opts.Running.Store(false) })
	defer stop()

	logger := ctxlog.FromContext(ctx)
	var (
		next      int
		attempted int
		failed    int
	)
	for c.opts.Running.Load() {
		if c.switches%c.opts.ReloadEvery == 0 {
			if err := c.reloadConfig(ctx); err != nil {
				return err
			}
		}
		sources := c.config.Sources

		if next >= len(sources) || attempted >= len(sources) {
			if attempted > 0 && failed == attempted {
				logger.Warn("Every module in the rotation failed; backing off.",
					"modules", attempted, "backoff", c.opts.IdleBackoff)
				c.idle(ctx, c.opts.IdleBackoff)
			}
			next, attempted, failed = 0, 0, 0
		}
		if len(sources) == 0 {
			logger.Warn("Config lists no modules; backing off.", "backoff", c.opts.IdleBackoff)
			c.switches++
			c.idle(ctx, c.opts.IdleBackoff)
			continue
		}

		src := sources[next]
		next++
		attempted++
		c.switches++

		err := c.runSource(ctx, src)
		if err == nil {
			continue
		}
		if isFatal(err) {
			logger.Error("Fatal module error.", "module", src.String(), "error", err)
			return err
		}
		failed++
		logger.Warn("Skipping module for this pass.", "module", src.String(), "error", err)
	}
	return nil
}

func isFatal(err error) bool {
	return script.IsFatal(err) || errors.Is(err, matrixclock.ErrFontsNotInitialized)
}

// reloadConfig polls the config script, keeping the previous config when the
// poll fails. Without any config to fall back on the failure is fatal.
func (c *Connector) reloadConfig(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	cfg, err := c.runtime.LoadConfig(ctx, c.opts.ConfigScript, c.opts.Builtins, c.opts.Defaults)
	if err != nil {
		if c.config == nil {
			return fmt.Errorf("%w: %w", ErrNoConfig, err)
		}
		logger.Warn("Config reload failed; keeping previous config.", "error", err)
		return nil
	}
	c.config = cfg
	if bs, ok := c.display.(matrixclock.BrightnessSetter); ok {
		bs.SetBrightness(cfg.Brightness)
	}
	logger.Info("Config loaded.", "modules", cfg.Modules, "brightness", cfg.Brightness)
	return nil
}

// runSource loads and renders one module. Images and the arena are released
// before it returns, whatever the outcome.
func (c *Connector) runSource(ctx context.Context, src matrixclock.ClockModuleSource) error {
	m := src.Module
	if !src.IsBuiltin() {
		defer c.runtime.Arena().Reset()
		var err error
		if m, err = c.runtime.LoadModule(ctx, src.File, c.config.Values); err != nil {
			return err
		}
	}
	defer c.opts.Images.DeinitAll()

	for _, name := range m.ImageNames {
		if err := c.opts.Images.Add(name); err != nil {
			return fmt.Errorf("module %q: %w", m.Name, err)
		}
	}

	logger := ctxlog.FromContext(ctx).With(slog.String("module", m.Name))
	logger.Debug("Rendering module.", "time_limit", m.TimeLimit, "images", len(m.ImageNames))
	err := m.Render(c.display, matrixclock.RenderOptions{
		FPS:     c.opts.FPS,
		Running: c.opts.Running,
		Fonts:   c.opts.Fonts,
		Images:  c.opts.Images,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	if c.opts.SnapshotDir != "" {
		if s, ok := c.display.(Snapshotter); ok {
			path, err := s.Snapshot(c.opts.SnapshotDir, m.Name, c.opts.SnapshotScale)
			if err != nil {
				logger.Warn("Snapshot failed.", "error", err)
			} else {
				logger.Debug("Snapshot written.", "path", path)
			}
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
