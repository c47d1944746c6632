package matrixclock

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidScroll is returned for a horizontal scroller whose start column does
// not lie right of its cutoff column.
var ErrInvalidScroll = errors.New("matrixclock: scroll start x must be greater than cutoff x")

// drawGlyph blits g with its top-left corner at (x, y).
func drawGlyph(d Display, g *Glyph, x, y int, c Color, clip bool) error {
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			if !g.Set(col, row) {
				continue
			}
			if err := setPixel(d, x+col, y+row, c, clip); err != nil {
				return err
			}
		}
	}
	return nil
}

// --- Char ---

// Char is a single glyph.
type Char struct {
	Pos   Position
	Char  rune
	Font  FontID
	Color Color
}

func (ch *Char) Draw(ctx *DrawContext, d Display) error {
	f, err := ctx.font(ch.Font)
	if err != nil {
		return err
	}
	g, err := f.Glyph(ch.Char)
	if err != nil {
		return err
	}
	return drawGlyph(d, g, int(ch.Pos.X), int(ch.Pos.Y), ch.Color, false)
}

func (ch *Char) Apply(u Update) {
	applyCommon(u, &ch.Pos, &ch.Color)
	if u.Text != nil {
		for _, r := range *u.Text {
			ch.Char = r
			break
		}
	}
}

func (*Char) component() {}

// --- Text ---

// Text is a single line advancing one font cell per character.
type Text struct {
	Pos   Position
	Text  string
	Font  FontID
	Color Color
}

func (t *Text) Draw(ctx *DrawContext, d Display) error {
	f, err := ctx.font(t.Font)
	if err != nil {
		return err
	}
	x := int(t.Pos.X)
	for _, r := range t.Text {
		g, err := f.Glyph(r)
		if err != nil {
			return err
		}
		if err := drawGlyph(d, g, x, int(t.Pos.Y), t.Color, false); err != nil {
			return fmt.Errorf("text %q: %w", t.Text, err)
		}
		x += f.Width
	}
	return nil
}

func (t *Text) Apply(u Update) {
	applyCommon(u, &t.Pos, &t.Color)
	if u.Text != nil {
		t.Text = *u.Text
	}
}

func (*Text) component() {}

// --- WrappedText ---

// WrappedText breaks onto a new line when the next glyph would cross the right
// edge of the grid or on '\n'. The line pitch is the font height plus
// LineSpacing, never below zero. Drawing stops once a line would start below
// the last row.
type WrappedText struct {
	Pos         Position
	Text        string
	Font        FontID
	Color       Color
	LineSpacing int
}

// Pitch returns the vertical advance between lines for a font of height h.
func (t *WrappedText) Pitch(h int) int {
	return max(0, h+t.LineSpacing)
}

func (t *WrappedText) Draw(ctx *DrawContext, d Display) error {
	f, err := ctx.font(t.Font)
	if err != nil {
		return err
	}
	pitch := t.Pitch(f.Height)
	x, y := int(t.Pos.X), int(t.Pos.Y)
	for _, r := range t.Text {
		if r == '\n' {
			x, y = int(t.Pos.X), y+pitch
			continue
		}
		if x+f.Width > Width {
			x, y = int(t.Pos.X), y+pitch
		}
		if y >= Height {
			return nil
		}
		g, err := f.Glyph(r)
		if err != nil {
			return err
		}
		if err := drawGlyph(d, g, x, y, t.Color, true); err != nil {
			return err
		}
		x += f.Width
	}
	return nil
}

func (t *WrappedText) Apply(u Update) {
	applyCommon(u, &t.Pos, &t.Color)
	if u.Text != nil {
		t.Text = *u.Text
	}
}

func (*WrappedText) component() {}

// --- HorizontalScrollingText ---

// HorizontalScrollingText is a marquee. The text is one strip of
// len(text)*cellWidth pixel columns; screen column sx in [CutoffX, StartPos.X)
// shows strip column sx+TextPos. Scroll advances TextPos and wraps it back to
// -StartPos.X once the strip has fully left the window.
//
// Animation updates move the window vertically only: Apply takes Pos.Y and
// ignores Pos.X, so the window stays right of CutoffX.
type HorizontalScrollingText struct {
	StartPos Position
	CutoffX  uint8
	Text     string
	Font     FontID
	Color    Color
	TextPos  int

	runes     []rune
	cellWidth int
}

// NewHorizontalScrollingText returns a scroller positioned so the text enters
// from StartPos.X.
func NewHorizontalScrollingText(start Position, cutoffX uint8, text string, font FontID, color Color) *HorizontalScrollingText {
	return &HorizontalScrollingText{
		StartPos: start,
		CutoffX:  cutoffX,
		Text:     text,
		Font:     font,
		Color:    color,
		TextPos:  -int(start.X),
		runes:    []rune(text),
	}
}

// Validate checks the window is non-empty.
func (h *HorizontalScrollingText) Validate() error {
	if h.StartPos.X <= h.CutoffX {
		return fmt.Errorf("%w (start x %d, cutoff x %d)", ErrInvalidScroll, h.StartPos.X, h.CutoffX)
	}
	return nil
}

// StripWidth returns the width of the text strip in pixels, or 0 before the
// font cell width is known.
func (h *HorizontalScrollingText) StripWidth() int {
	return len(h.runes) * h.cellWidth
}

// Scroll moves the strip one column left, wrapping when it has scrolled past.
func (h *HorizontalScrollingText) Scroll() {
	h.TextPos++
	if h.cellWidth > 0 && int(h.CutoffX)+h.TextPos >= h.StripWidth() {
		h.TextPos = -int(h.StartPos.X)
	}
}

func (h *HorizontalScrollingText) Draw(ctx *DrawContext, d Display) error {
	f, err := ctx.font(h.Font)
	if err != nil {
		return err
	}
	if h.runes == nil && h.Text != "" {
		h.runes = []rune(h.Text)
	}
	h.cellWidth = f.Width
	if h.cellWidth == 0 {
		return nil
	}
	strip := h.StripWidth()
	for sx := int(h.CutoffX); sx < int(h.StartPos.X); sx++ {
		col := sx + h.TextPos
		if col < 0 || col >= strip {
			continue
		}
		g, err := f.Glyph(h.runes[col/h.cellWidth])
		if err != nil {
			return err
		}
		gc := col % h.cellWidth
		for row := 0; row < g.Height; row++ {
			if !g.Set(gc, row) {
				continue
			}
			if err := setPixel(d, sx, int(h.StartPos.Y)+row, h.Color, true); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *HorizontalScrollingText) Apply(u Update) {
	if u.Pos != nil {
		h.StartPos.Y = u.Pos.Y
	}
	if u.Color != nil {
		h.Color = *u.Color
	}
	if u.Text != nil {
		h.Text = *u.Text
		h.runes = []rune(h.Text)
	}
}

func (*HorizontalScrollingText) component() {}

// --- VerticalScrollingText ---

// VerticalScrollingText scrolls pre-wrapped lines upward through a Width x Height
// window at Pos. Line i sits at window row i*fontHeight-TextPos; only lines
// overlapping [0, Height) are drawn. Scroll wraps TextPos back to StartOffset
// once the text has fully passed.
type VerticalScrollingText struct {
	Pos         Position
	Width       uint8
	Height      uint8
	Text        string
	Font        FontID
	Color       Color
	TextPos     int
	StartOffset int
	Lines       []string

	lineHeight int
}

// NewVerticalScrollingText returns a scroller whose text enters from the bottom
// of the window. lines may be nil; they are then wrapped on first draw.
func NewVerticalScrollingText(pos Position, width, height uint8, text string, font FontID, color Color, lines []string) *VerticalScrollingText {
	return &VerticalScrollingText{
		Pos:         pos,
		Width:       width,
		Height:      height,
		Text:        text,
		Font:        font,
		Color:       color,
		TextPos:     -int(height),
		StartOffset: -int(height),
		Lines:       lines,
	}
}

// WrapLines greedily fills lines of at most width pixels with cells of
// cellWidth pixels, breaking on '\n'.
func WrapLines(text string, width, cellWidth int) []string {
	perLine := 1
	if cellWidth > 0 {
		perLine = max(1, width/cellWidth)
	}
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		runes := []rune(para)
		if len(runes) == 0 {
			lines = append(lines, "")
			continue
		}
		for len(runes) > 0 {
			n := min(perLine, len(runes))
			lines = append(lines, string(runes[:n]))
			runes = runes[n:]
		}
	}
	return lines
}

// TotalHeight returns the pixel height of all wrapped lines, or 0 before the
// font is known.
func (v *VerticalScrollingText) TotalHeight() int {
	return len(v.Lines) * v.lineHeight
}

// Scroll moves the text up one row, wrapping once it has scrolled past.
func (v *VerticalScrollingText) Scroll() {
	v.TextPos++
	if v.lineHeight > 0 && v.TextPos >= v.TotalHeight() {
		v.TextPos = v.StartOffset
	}
}

func (v *VerticalScrollingText) Draw(ctx *DrawContext, d Display) error {
	f, err := ctx.font(v.Font)
	if err != nil {
		return err
	}
	v.lineHeight = f.Height
	if v.Lines == nil {
		v.Lines = WrapLines(v.Text, int(v.Width), f.Width)
	}
	for i, line := range v.Lines {
		top := i*f.Height - v.TextPos
		if top+f.Height <= 0 || top >= int(v.Height) {
			continue
		}
		x := int(v.Pos.X)
		for _, r := range line {
			g, err := f.Glyph(r)
			if err != nil {
				return err
			}
			for row := 0; row < g.Height; row++ {
				wy := top + row
				if wy < 0 || wy >= int(v.Height) {
					continue
				}
				for col := 0; col < g.Width; col++ {
					if x+col >= int(v.Pos.X)+int(v.Width) || !g.Set(col, row) {
						continue
					}
					if err := setPixel(d, x+col, int(v.Pos.Y)+wy, v.Color, true); err != nil {
						return err
					}
				}
			}
			x += f.Width
		}
	}
	return nil
}

func (v *VerticalScrollingText) Apply(u Update) {
	applyCommon(u, &v.Pos, &v.Color)
	if u.Text != nil {
		v.Text = *u.Text
		v.Lines = nil
	}
}

func (*VerticalScrollingText) component() {}
