// Package termdisplay shows a framebuffer in a terminal. Each terminal cell
// carries two matrix rows: the upper half block takes the top pixel as its
// foreground and the bottom pixel as its background.
package termdisplay

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/phanxgames/matrixclock"
)

const upperHalf = '▀'

// Terminal mirrors a framebuffer's presented frame onto a tcell screen.
type Terminal struct {
	screen  tcell.Screen
	fb      *matrixclock.Framebuffer
	running *atomic.Bool
}

// New opens the controlling terminal.
func New(fb *matrixclock.Framebuffer, running *atomic.Bool) (*Terminal, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("termdisplay: open screen: %w", err)
	}
	return NewWithScreen(s, fb, running), nil
}

// NewWithScreen uses an existing, not yet initialized screen.
func NewWithScreen(s tcell.Screen, fb *matrixclock.Framebuffer, running *atomic.Bool) *Terminal {
	return &Terminal{screen: s, fb: fb, running: running}
}

// Init prepares the screen for drawing.
func (t *Terminal) Init() error {
	if err := t.screen.Init(); err != nil {
		return fmt.Errorf("termdisplay: init screen: %w", err)
	}
	t.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack))
	t.screen.HideCursor()
	t.screen.Clear()
	return nil
}

// Fini restores the terminal.
func (t *Terminal) Fini() {
	t.screen.Fini()
}

func cellColor(c matrixclock.Color) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

// Draw copies the presented frame to the screen.
func (t *Terminal) Draw() {
	front := t.fb.Front()
	for row := 0; row < matrixclock.Height/2; row++ {
		for x := 0; x < matrixclock.Width; x++ {
			style := tcell.StyleDefault.
				Foreground(cellColor(front[2*row][x])).
				Background(cellColor(front[2*row+1][x]))
			t.screen.SetContent(x, row, upperHalf, nil, style)
		}
	}
	t.screen.Show()
}

// HandleEvent reacts to one input event. q, Escape and Ctrl-C clear the
// running flag; a resize repaints.
func (t *Terminal) HandleEvent(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch {
		case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC:
			t.running.Store(false)
		case ev.Key() == tcell.KeyRune && (ev.Rune() == 'q' || ev.Rune() == 'Q'):
			t.running.Store(false)
		}
	case *tcell.EventResize:
		t.screen.Sync()
	}
}

// Run repaints at fps and handles input until the running flag clears or ctx
// is done. It owns the screen for its duration; call Fini afterwards.
func (t *Terminal) Run(ctx context.Context, fps int) error {
	if fps <= 0 {
		return matrixclock.ErrInvalidFPS
	}
	done := make(chan struct{})
	defer close(done)

	events := make(chan tcell.Event)
	go func() {
		for {
			ev := t.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()
	for t.running.Load() {
		select {
		case <-ctx.Done():
			t.running.Store(false)
		case ev := <-events:
			t.HandleEvent(ev)
		case <-ticker.C:
			t.Draw()
		}
	}
	return nil
}
