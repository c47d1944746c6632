package matrixclock

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock advances only when the render loop sleeps.
type fakeClock struct {
	t      time.Time
	sleeps []time.Duration
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.t = c.t.Add(d)
}

func (c *fakeClock) options(fps int, limit time.Duration) RenderOptions {
	return RenderOptions{FPS: fps, TimeLimit: limit, now: c.now, sleep: c.sleep}
}

func TestRender_SingleTileZeroTimeLimit(t *testing.T) {
	root := &RootComponent{Components: []AnyComponent{
		Normal(&Tile{Pos: Position{X: 5, Y: 5}, Color: red}),
	}}
	fb := NewFramebuffer()
	clock := &fakeClock{}

	if err := root.Render(fb, clock.options(30, 0)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if fb.Frames() != 1 {
		t.Errorf("Frames = %d, want exactly one", fb.Frames())
	}
	if fb.At(5, 5) != red || litCount(fb) != 1 {
		t.Errorf("At(5,5) = %v, lit = %d", fb.At(5, 5), litCount(fb))
	}
	if len(clock.sleeps) != 0 {
		t.Errorf("slept %v after the last frame", clock.sleeps)
	}
}

func TestRender_FrameCountAndPacing(t *testing.T) {
	tile := &Tile{Color: red}
	move := func(c Component, frame int) {
		c.(*Tile).Pos.X = uint8(frame)
	}
	root := &RootComponent{Components: []AnyComponent{
		Animated(NewAnimation(tile, AnimationParams{Duration: 100, Speed: 1}, move)),
	}}
	fb := NewFramebuffer()
	clock := &fakeClock{}

	if err := root.Render(fb, clock.options(10, time.Second)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if fb.Frames() != 11 {
		t.Errorf("Frames = %d, want 11", fb.Frames())
	}
	for _, d := range clock.sleeps {
		if d != 100*time.Millisecond {
			t.Fatalf("sleep = %v, want the full 100ms budget", d)
		}
	}
	if fb.At(10, 0) != red || litCount(fb) != 1 {
		t.Errorf("last frame should show the tile at x=10; At(10,0) = %v, lit = %d", fb.At(10, 0), litCount(fb))
	}
}

func TestRender_RunningFlagStopsAfterOneFrame(t *testing.T) {
	root := &RootComponent{Components: []AnyComponent{Normal(&Tile{Color: red})}}
	fb := NewFramebuffer()
	var running atomic.Bool

	opts := (&fakeClock{}).options(30, time.Hour)
	opts.Running = &running
	if err := root.Render(fb, opts); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if fb.Frames() != 1 {
		t.Errorf("Frames = %d, want 1", fb.Frames())
	}
}

func TestRender_FasterAnimationsDrawLast(t *testing.T) {
	slow := &Tile{Color: green}
	fast := &Tile{Color: blue}
	root := &RootComponent{Components: []AnyComponent{
		Animated(NewAnimation(fast, AnimationParams{Loop: true, Speed: 1}, nil)),
		Animated(NewAnimation(slow, AnimationParams{Loop: true, Speed: 2}, nil)),
		Normal(&Tile{Pos: Position{X: 1}, Color: red}),
	}}
	fb := NewFramebuffer()

	if err := root.Render(fb, (&fakeClock{}).options(30, 0)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if fb.At(0, 0) != blue {
		t.Errorf("At(0,0) = %v, want the faster animation's %v", fb.At(0, 0), blue)
	}
	if fb.At(1, 0) != red {
		t.Errorf("static component missing")
	}
}

func TestRender_MixedSpeedsLeaveNoTrail(t *testing.T) {
	moveX := func(c Component, frame int) { c.(*Tile).Pos.X = uint8(frame) }
	slow := &Tile{Pos: Position{Y: 1}, Color: green}
	fast := &Tile{Pos: Position{Y: 2}, Color: blue}
	root := &RootComponent{Components: []AnyComponent{
		Animated(NewAnimation(slow, AnimationParams{Duration: 100, Speed: 3}, moveX)),
		Animated(NewAnimation(fast, AnimationParams{Duration: 100, Speed: 1}, moveX)),
	}}
	fb := NewFramebuffer()
	clock := &fakeClock{}

	if err := root.Render(fb, clock.options(10, 700*time.Millisecond)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if litCount(fb) != 2 {
		t.Fatalf("lit = %d, want only the two current tiles", litCount(fb))
	}
	sx, fx := int(slow.Pos.X), int(fast.Pos.X)
	if fb.At(sx, 1) != green || fb.At(fx, 2) != blue {
		t.Errorf("slow at %d = %v, fast at %d = %v", sx, fb.At(sx, 1), fx, fb.At(fx, 2))
	}
	if slow.Pos.X == fast.Pos.X {
		t.Errorf("slow and fast tiles both at x=%d; speeds not applied", slow.Pos.X)
	}
}

func TestRender_TimelineAppliesBeforeDraw(t *testing.T) {
	a, err := NewCustomAnimation([]int{0}, []CustomAnimationState{{Timestamp: 0, Color: &green}}, false, 1)
	if err != nil {
		t.Fatalf("NewCustomAnimation: %v", err)
	}
	root := &RootComponent{
		Components: []AnyComponent{Normal(&Tile{Color: red})},
		Animations: []*CustomAnimation{a},
	}
	fb := NewFramebuffer()

	if err := root.Render(fb, (&fakeClock{}).options(30, 0)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if fb.At(0, 0) != green {
		t.Errorf("At(0,0) = %v, want the keyframe color on the first frame", fb.At(0, 0))
	}
}

func TestRender_Errors(t *testing.T) {
	fb := NewFramebuffer()
	clock := &fakeClock{}

	root := &RootComponent{}
	if err := root.Render(fb, clock.options(0, 0)); !errors.Is(err, ErrInvalidFPS) {
		t.Errorf("fps 0: err = %v, want ErrInvalidFPS", err)
	}

	root = &RootComponent{Components: []AnyComponent{Normal(&Tile{Pos: Position{X: 70}, Color: red})}}
	if err := root.Render(fb, clock.options(30, time.Second)); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("off-grid tile: err = %v, want ErrOutOfBounds", err)
	}

	a, _ := NewCustomAnimation([]int{4}, []CustomAnimationState{{}}, false, 1)
	root = &RootComponent{Components: []AnyComponent{Normal(&Tile{})}, Animations: []*CustomAnimation{a}}
	if err := root.Render(fb, clock.options(30, 0)); !errors.Is(err, ErrAnimationTarget) {
		t.Errorf("bad target: err = %v, want ErrAnimationTarget", err)
	}
}

func TestRender_LogsSessionStats(t *testing.T) {
	var buf bytes.Buffer
	root := &RootComponent{Components: []AnyComponent{Normal(&Tile{Color: red})}}
	opts := (&fakeClock{}).options(30, 0)
	opts.Name = "stats"
	opts.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if err := root.Render(NewFramebuffer(), opts); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Render session finished.") || !strings.Contains(out, "module=stats") || !strings.Contains(out, "frames=1") {
		t.Errorf("log = %q", out)
	}
}

// --- ClockModule ---

func TestClockModule_Render(t *testing.T) {
	var calls []string
	m := &ClockModule{
		Name: "hooks",
		Root: &RootComponent{Components: []AnyComponent{Normal(&Tile{Color: red})}},
		Init: func() error {
			calls = append(calls, "init")
			return nil
		},
		Deinit: func() { calls = append(calls, "deinit") },
	}
	// The module time limit replaces the one in the options.
	if err := m.Render(NewFramebuffer(), (&fakeClock{}).options(30, time.Hour)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Join(calls, ",") != "init,deinit" {
		t.Errorf("calls = %v", calls)
	}

	boom := errors.New("boom")
	m.Init = func() error { return boom }
	if err := m.Render(NewFramebuffer(), (&fakeClock{}).options(30, 0)); !errors.Is(err, boom) {
		t.Errorf("init failure: err = %v", err)
	}

	if err := (&ClockModule{Name: "empty"}).Render(NewFramebuffer(), (&fakeClock{}).options(30, 0)); err == nil {
		t.Error("a module without a root must fail")
	}
}

func TestClockModuleSource(t *testing.T) {
	m := &ClockModule{Name: "clock"}
	if s := Builtin(m); !s.IsBuiltin() || s.String() != "builtin:clock" {
		t.Errorf("Builtin = %v", s)
	}
	if s := Custom("w.lua"); s.IsBuiltin() || s.String() != "custom:w.lua" {
		t.Errorf("Custom = %v", s)
	}
}
