package matrixclock

import (
	"errors"
	"fmt"
	"image/color"
)

// Width and Height are the fixed dimensions of the pixel matrix.
const (
	Width  = 64
	Height = 32
)

// ErrOutOfBounds is returned by a Display when a pixel write falls outside the grid.
var ErrOutOfBounds = errors.New("matrixclock: pixel out of bounds")

// Color is an 8-bit RGB triple. The zero value is reserved as transparent and is
// never written to a display.
type Color struct {
	R, G, B uint8
}

// ColorTransparent is the background value. Components skip pixels of this color.
var ColorTransparent = Color{}

// IsTransparent reports whether c is the reserved background color.
func (c Color) IsTransparent() bool {
	return c == ColorTransparent
}

// Scale returns c with every channel multiplied by percent/100.
func (c Color) Scale(percent uint8) Color {
	if percent >= 100 {
		return c
	}
	p := uint16(percent)
	return Color{
		R: uint8(uint16(c.R) * p / 100),
		G: uint8(uint16(c.G) * p / 100),
		B: uint8(uint16(c.B) * p / 100),
	}
}

// RGBA converts c to an opaque image/color value.
func (c Color) RGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}

func (c Color) String() string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

// Position is a cell on the grid. The origin is the top-left corner with Y
// increasing downward.
type Position struct {
	X, Y uint8
}

// InBounds reports whether the position lies on the grid.
func (p Position) InBounds() bool {
	return inBounds(int(p.X), int(p.Y))
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

func inBounds(x, y int) bool {
	return x >= 0 && x < Width && y >= 0 && y < Height
}

// Display is the presentation surface the render loop draws into. Implementations
// reject out-of-grid writes with ErrOutOfBounds.
type Display interface {
	SetPixel(x, y int, c Color) error
	Clear()
	Present() error
}

// BrightnessSetter is implemented by displays that can dim their output.
// Percent is clamped to [0, 100].
type BrightnessSetter interface {
	SetBrightness(percent uint8)
}

// Update is the partial state delta pushed into a component by an animation.
// Nil fields are left unchanged.
type Update struct {
	Color *Color
	Pos   *Position
	Text  *string
}

// IsEmpty reports whether the update carries no fields.
func (u Update) IsEmpty() bool {
	return u.Color == nil && u.Pos == nil && u.Text == nil
}
