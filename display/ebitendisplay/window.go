// Package ebitendisplay shows a framebuffer in a desktop window. ebiten owns
// the main goroutine, so the render loop runs on a worker and the window only
// uploads the latest presented frame.
package ebitendisplay

import (
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/phanxgames/matrixclock"
)

// DefaultScale is the on-screen size of one matrix pixel.
const DefaultScale = 12

// Window is an ebiten.Game mirroring a framebuffer.
type Window struct {
	fb      *matrixclock.Framebuffer
	running *atomic.Bool
	scale   int
	title   string

	img *ebiten.Image
	pix []byte
}

// New returns a window for fb; scale values below 1 select DefaultScale.
func New(fb *matrixclock.Framebuffer, running *atomic.Bool, scale int, title string) *Window {
	if scale < 1 {
		scale = DefaultScale
	}
	return &Window{
		fb:      fb,
		running: running,
		scale:   scale,
		title:   title,
		pix:     make([]byte, matrixclock.Width*matrixclock.Height*4),
	}
}

// Run opens the window and blocks until it closes. It must be called from
// the main goroutine.
func (w *Window) Run() error {
	ebiten.SetWindowTitle(w.title)
	ebiten.SetWindowSize(matrixclock.Width*w.scale, matrixclock.Height*w.scale)
	ebiten.SetWindowClosingHandled(true)
	return ebiten.RunGame(w)
}

// shouldStop clears the running flag on a quit request and reports whether
// the window must close.
func (w *Window) shouldStop(escape, closing bool) bool {
	if escape || closing {
		w.running.Store(false)
	}
	return !w.running.Load()
}

func (w *Window) Update() error {
	if w.shouldStop(inpututil.IsKeyJustPressed(ebiten.KeyEscape), ebiten.IsWindowBeingClosed()) {
		return ebiten.Termination
	}
	return nil
}

func (w *Window) Draw(screen *ebiten.Image) {
	if w.img == nil {
		w.img = ebiten.NewImage(matrixclock.Width, matrixclock.Height)
	}
	w.fb.CopyRGBA(w.pix)
	w.img.WritePixels(w.pix)

	var op ebiten.DrawImageOptions
	op.GeoM.Scale(float64(w.scale), float64(w.scale))
	screen.DrawImage(w.img, &op)
}

func (w *Window) Layout(_, _ int) (int, int) {
	return matrixclock.Width * w.scale, matrixclock.Height * w.scale
}
