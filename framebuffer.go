package matrixclock

import (
	"image"
	"sync"
)

// Framebuffer is an in-memory Display with a back buffer for drawing and a front
// buffer holding the last presented frame. Present copies back to front and
// applies brightness. Front-buffer reads are safe from other goroutines, which is
// how presentation surfaces pick up frames from the render worker.
type Framebuffer struct {
	back  [Height][Width]Color
	front [Height][Width]Color

	mu         sync.RWMutex
	brightness uint8
	presented  uint64
	onPresent  func()
}

// NewFramebuffer returns a cleared framebuffer at full brightness.
func NewFramebuffer() *Framebuffer {
	return &Framebuffer{brightness: 100}
}

// SetPixel writes c into the back buffer.
func (f *Framebuffer) SetPixel(x, y int, c Color) error {
	if !inBounds(x, y) {
		return ErrOutOfBounds
	}
	f.back[y][x] = c
	return nil
}

// Clear resets the back buffer to transparent.
func (f *Framebuffer) Clear() {
	f.back = [Height][Width]Color{}
}

// Present flips the back buffer into the front buffer.
func (f *Framebuffer) Present() error {
	f.mu.Lock()
	if f.brightness >= 100 {
		f.front = f.back
	} else {
		for y := range f.back {
			for x, c := range f.back[y] {
				f.front[y][x] = c.Scale(f.brightness)
			}
		}
	}
	f.presented++
	hook := f.onPresent
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

// OnPresent registers a callback invoked after every Present, outside the lock.
func (f *Framebuffer) OnPresent(fn func()) {
	f.mu.Lock()
	f.onPresent = fn
	f.mu.Unlock()
}

// SetBrightness sets the output brightness percentage applied at Present.
func (f *Framebuffer) SetBrightness(percent uint8) {
	f.mu.Lock()
	f.brightness = min(percent, 100)
	f.mu.Unlock()
}

// Brightness returns the current brightness percentage.
func (f *Framebuffer) Brightness() uint8 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.brightness
}

// At returns the presented color at (x, y), or transparent off-grid.
func (f *Framebuffer) At(x, y int) Color {
	if !inBounds(x, y) {
		return ColorTransparent
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.front[y][x]
}

// Frames returns how many frames have been presented.
func (f *Framebuffer) Frames() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.presented
}

// Front returns a copy of the presented frame.
func (f *Framebuffer) Front() [Height][Width]Color {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.front
}

// CopyRGBA writes the presented frame into dst as opaque RGBA, one byte quad per
// pixel. dst must hold at least Width*Height*4 bytes.
func (f *Framebuffer) CopyRGBA(dst []byte) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	i := 0
	for y := range f.front {
		for _, c := range f.front[y] {
			dst[i] = c.R
			dst[i+1] = c.G
			dst[i+2] = c.B
			dst[i+3] = 0xff
			i += 4
		}
	}
}

// Image returns the presented frame as an *image.RGBA.
func (f *Framebuffer) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	f.CopyRGBA(img.Pix)
	return img
}
