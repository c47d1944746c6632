package matrixclock

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidCircle is returned for circles with a non-positive radius or thickness.
	ErrInvalidCircle = errors.New("matrixclock: circle radius and thickness must be positive")
	// ErrInvalidComponent is returned for an AnyComponent that is not exactly one variant.
	ErrInvalidComponent = errors.New("matrixclock: component must be exactly one of normal or animated")
)

// DrawContext carries the resource stores components resolve fonts and images from.
type DrawContext struct {
	Fonts  *FontStore
	Images *ImageStore
}

func (ctx *DrawContext) font(id FontID) (*Font, error) {
	if ctx == nil || ctx.Fonts == nil {
		return nil, ErrFontsNotInitialized
	}
	return ctx.Fonts.Font(id)
}

// Component is one drawable primitive. The set of implementations is closed:
// Tile, Box, Circle, Char, Text, WrappedText, Image, HorizontalScrollingText and
// VerticalScrollingText.
type Component interface {
	// Draw renders the component into d.
	Draw(ctx *DrawContext, d Display) error
	// Apply merges an animation delta into the component's state.
	Apply(u Update)

	component()
}

// AnyComponent is one entry of a root's component list: either a plain
// component or one wrapped in a timed animation.
type AnyComponent struct {
	Normal   Component
	Animated *AnimationComponent
}

// Normal wraps a static component.
func Normal(c Component) AnyComponent {
	return AnyComponent{Normal: c}
}

// Animated wraps a timed animation.
func Animated(a *AnimationComponent) AnyComponent {
	return AnyComponent{Animated: a}
}

// Component returns the underlying drawable of either variant.
func (a AnyComponent) Component() Component {
	if a.Animated != nil {
		return a.Animated.Component
	}
	return a.Normal
}

// Validate checks that exactly one variant is set.
func (a AnyComponent) Validate() error {
	if (a.Normal == nil) == (a.Animated == nil) {
		return ErrInvalidComponent
	}
	if a.Animated != nil && a.Animated.Component == nil {
		return ErrInvalidComponent
	}
	return nil
}

// setPixel writes one pixel, skipping transparent colors. With clip set,
// off-grid pixels are dropped instead of reaching the display.
func setPixel(d Display, x, y int, c Color, clip bool) error {
	if c.IsTransparent() {
		return nil
	}
	if clip && !inBounds(x, y) {
		return nil
	}
	return d.SetPixel(x, y, c)
}

func applyCommon(u Update, pos *Position, color *Color) {
	if u.Pos != nil && pos != nil {
		*pos = *u.Pos
	}
	if u.Color != nil && color != nil {
		*color = *u.Color
	}
}

// --- Tile ---

// Tile is a single pixel.
type Tile struct {
	Pos   Position
	Color Color
}

func (t *Tile) Draw(_ *DrawContext, d Display) error {
	return setPixel(d, int(t.Pos.X), int(t.Pos.Y), t.Color, false)
}

func (t *Tile) Apply(u Update) { applyCommon(u, &t.Pos, &t.Color) }

func (*Tile) component() {}

// --- Box ---

// Box is an axis-aligned rectangle, either filled or drawn as its border only.
// Cells outside the grid are skipped.
type Box struct {
	Pos    Position
	Width  uint8
	Height uint8
	Color  Color
	Fill   bool
}

func (b *Box) Draw(_ *DrawContext, d Display) error {
	x0, y0 := int(b.Pos.X), int(b.Pos.Y)
	x1, y1 := x0+int(b.Width)-1, y0+int(b.Height)-1
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if !b.Fill && y != y0 && y != y1 && x != x0 && x != x1 {
				continue
			}
			if err := setPixel(d, x, y, b.Color, true); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Box) Apply(u Update) { applyCommon(u, &b.Pos, &b.Color) }

func (*Box) component() {}

// --- Circle ---

// Circle is a ring: a cell is lit when its distance from Center lies in
// [Radius-Thickness, Radius). The whole grid is scanned on every draw.
type Circle struct {
	Center    Position
	Radius    int
	Thickness int
	Color     Color
}

// Validate rejects degenerate circles.
func (c *Circle) Validate() error {
	if c.Radius <= 0 || c.Thickness <= 0 {
		return fmt.Errorf("%w (radius %d, thickness %d)", ErrInvalidCircle, c.Radius, c.Thickness)
	}
	return nil
}

// Covers reports whether the cell (x, y) belongs to the ring.
func (c *Circle) Covers(x, y int) bool {
	dist := math.Hypot(float64(x-int(c.Center.X)), float64(y-int(c.Center.Y)))
	return float64(c.Radius-c.Thickness) <= dist && dist < float64(c.Radius)
}

func (c *Circle) Draw(_ *DrawContext, d Display) error {
	if err := c.Validate(); err != nil {
		return err
	}
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if !c.Covers(x, y) {
				continue
			}
			if err := setPixel(d, x, y, c.Color, true); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Circle) Apply(u Update) { applyCommon(u, &c.Center, &c.Color) }

func (*Circle) component() {}

// --- Image ---

// Image blits a named bitmap from the image store, skipping transparent pixels.
// The name EmptyImage draws nothing; animations set it through the text field.
type Image struct {
	Pos  Position
	Name string
}

func (im *Image) Draw(ctx *DrawContext, d Display) error {
	if im.Name == EmptyImage {
		return nil
	}
	if ctx == nil || ctx.Images == nil {
		return fmt.Errorf("%w: %q", ErrImageNotInStore, im.Name)
	}
	bm, err := ctx.Images.Get(im.Name)
	if err != nil {
		return err
	}
	for y := 0; y < bm.Height; y++ {
		for x := 0; x < bm.Width; x++ {
			if err := setPixel(d, int(im.Pos.X)+x, int(im.Pos.Y)+y, bm.At(x, y), false); err != nil {
				return fmt.Errorf("image %q: %w", im.Name, err)
			}
		}
	}
	return nil
}

func (im *Image) Apply(u Update) {
	applyCommon(u, &im.Pos, nil)
	if u.Text != nil {
		im.Name = *u.Text
	}
}

func (*Image) component() {}
