package matrixclock

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"
)

// ErrInvalidFPS is returned by Render for a non-positive frame rate.
var ErrInvalidFPS = errors.New("matrixclock: fps must be positive")

// RootComponent owns every component and timeline animation of one module.
type RootComponent struct {
	Components []AnyComponent
	Animations []*CustomAnimation
}

// RenderOptions configures one render session.
type RenderOptions struct {
	// Name labels the session in logs.
	Name      string
	FPS       int
	TimeLimit time.Duration
	// Running is the shared cancellation flag; the loop exits once it reads
	// false. A nil flag never cancels.
	Running *atomic.Bool
	Fonts   *FontStore
	Images  *ImageStore
	Logger  *slog.Logger

	now   func() time.Time
	sleep func(time.Duration)
}

// Validate checks every component entry and every timeline target.
func (r *RootComponent) Validate() error {
	for i, c := range r.Components {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("component %d: %w", i, err)
		}
	}
	for i, a := range r.Animations {
		if err := a.Validate(len(r.Components)); err != nil {
			return fmt.Errorf("animation %d: %w", i, err)
		}
	}
	return nil
}

// timedAnimations builds the per-session animation state, slowest first so
// the faster animations draw last, and returns the smallest nonzero speed.
func (r *RootComponent) timedAnimations() []*TimedAnimation {
	var timed []*TimedAnimation
	for _, c := range r.Components {
		if c.Animated == nil {
			continue
		}
		timed = append(timed, &TimedAnimation{AnimationComponent: c.Animated})
	}
	sort.SliceStable(timed, func(i, j int) bool { return timed[i].Speed > timed[j].Speed })
	return timed
}

// Render runs the frame loop until the time limit elapses or Running is
// cleared. At least one frame is always presented. Each frame clears the
// display, steps the timelines, advances and draws the timed animations, draws
// the static components, presents, and sleeps to hold the frame rate.
//
// Any draw error ends the session and is returned.
func (r *RootComponent) Render(d Display, opts RenderOptions) error {
	if opts.FPS <= 0 {
		return ErrInvalidFPS
	}
	if err := r.Validate(); err != nil {
		return err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.now
	if now == nil {
		now = time.Now
	}

	for _, a := range r.Animations {
		a.Reset()
	}
	timed := r.timedAnimations()
	ctx := &DrawContext{Fonts: opts.Fonts, Images: opts.Images}
	p := newPacer(opts.FPS, now, opts.sleep)

	var (
		stats sessionStats
		frame uint64
	)
	start := now()
	for {
		frameStart := now()
		if err := r.drawFrame(ctx, d, frame, timed); err != nil {
			return err
		}
		if err := d.Present(); err != nil {
			return fmt.Errorf("matrixclock: present: %w", err)
		}
		frame++
		stats.record(now().Sub(frameStart), p.budget)

		if opts.Running != nil && !opts.Running.Load() {
			break
		}
		if now().Sub(start) >= opts.TimeLimit {
			break
		}
		p.wait(frameStart)
	}

	stats.log(logger, opts.Name, now().Sub(start))
	return nil
}

// drawFrame produces one frame into the back buffer. The buffer is cleared
// before anything is drawn, so a moving component never leaves a trail.
func (r *RootComponent) drawFrame(ctx *DrawContext, d Display, frame uint64, timed []*TimedAnimation) error {
	d.Clear()

	for _, a := range r.Animations {
		a.Step(frame, r.Components)
	}

	for _, t := range timed {
		t.Advance(frame)
		if err := t.Component.Draw(ctx, d); err != nil {
			return err
		}
	}

	for _, c := range r.Components {
		if c.Normal == nil {
			continue
		}
		if err := c.Normal.Draw(ctx, d); err != nil {
			return err
		}
	}
	return nil
}
