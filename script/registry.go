package script

import (
	"fmt"
	"sort"

	"github.com/phanxgames/matrixclock"
)

// buildContext carries what constructors need beyond their arguments.
type buildContext struct {
	arena *Arena
	fonts *matrixclock.FontStore
}

// Constructor turns one builder entry's positional arguments into a validated
// component. Variable-length data is copied through the arena.
type Constructor func(bc *buildContext, args Args) (matrixclock.AnyComponent, error)

// constructors maps builder type ids to their constructors.
var constructors = map[string]Constructor{
	"tile":                      newTile,
	"box":                       newBox,
	"circle":                    newCircle,
	"char":                      newChar,
	"text":                      newText,
	"wrapped_text":              newWrappedText,
	"image":                     newImage,
	"horizontal_scrolling_text": newHorizontalScrollingText,
	"vertical_scrolling_text":   newVerticalScrollingText,
}

// TypeIDs returns the registered component type ids in sorted order.
func TypeIDs() []string {
	ids := make([]string, 0, len(constructors))
	for id := range constructors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func lookupConstructor(typeID string) (Constructor, error) {
	c, ok := constructors[typeID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownComponent, typeID)
	}
	return c, nil
}

func newTile(_ *buildContext, args Args) (matrixclock.AnyComponent, error) {
	pos, err := args.Position(1)
	if err != nil {
		return matrixclock.AnyComponent{}, err
	}
	c, err := args.Color(2)
	if err != nil {
		return matrixclock.AnyComponent{}, err
	}
	return matrixclock.Normal(&matrixclock.Tile{Pos: pos, Color: c}), nil
}

func newBox(_ *buildContext, args Args) (matrixclock.AnyComponent, error) {
	var b matrixclock.Box
	var err error
	if b.Pos, err = args.Position(1); err != nil {
		return matrixclock.AnyComponent{}, err
	}
	w, err := args.IntRange(2, 0, 255)
	if err != nil {
		return matrixclock.AnyComponent{}, err
	}
	h, err := args.IntRange(3, 0, 255)
	if err != nil {
		return matrixclock.AnyComponent{}, err
	}
	b.Width, b.Height = uint8(w), uint8(h)
	if b.Color, err = args.Color(4); err != nil {
		return matrixclock.AnyComponent{}, err
	}
	if b.Fill, err = args.Bool(5); err != nil {
		return matrixclock.AnyComponent{}, err
	}
	return matrixclock.Normal(&b), nil
}

func newCircle(_ *buildContext, args Args) (matrixclock.AnyComponent, error) {
	var c matrixclock.Circle
	var err error
	if c.Center, err = args.Position(1); err != nil {
		return matrixclock.AnyComponent{}, err
	}
	r, err := args.IntRange(2, 0, 255)
	if err != nil {
		return matrixclock.AnyComponent{}, err
	}
	t, err := args.IntRange(3, 0, 255)
	if err != nil {
		return matrixclock.AnyComponent{}, err
	}
	c.Radius, c.Thickness = int(r), int(t)
	if c.Color, err = args.Color(4); err != nil {
		return matrixclock.AnyComponent{}, err
	}
	if err := c.Validate(); err != nil {
		return matrixclock.AnyComponent{}, err
	}
	return matrixclock.Normal(&c), nil
}

func newChar(_ *buildContext, args Args) (matrixclock.AnyComponent, error) {
	var ch matrixclock.Char
	var err error
	if ch.Pos, err = args.Position(1); err != nil {
		return matrixclock.AnyComponent{}, err
	}
	if ch.Char, err = args.Char(2); err != nil {
		return matrixclock.AnyComponent{}, err
	}
	if ch.Font, err = args.Font(3); err != nil {
		return matrixclock.AnyComponent{}, err
	}
	if ch.Color, err = args.Color(4); err != nil {
		return matrixclock.AnyComponent{}, err
	}
	return matrixclock.Normal(&ch), nil
}

// textArgs fetches the position, text, font and color arguments shared by
// the text types. at holds their 1-based positions.
func textArgs(bc *buildContext, args Args, at [4]int) (pos matrixclock.Position, text string, font matrixclock.FontID, c matrixclock.Color, err error) {
	if pos, err = args.Position(at[0]); err != nil {
		return
	}
	if text, err = args.String(at[1]); err != nil {
		return
	}
	if font, err = args.Font(at[2]); err != nil {
		return
	}
	if c, err = args.Color(at[3]); err != nil {
		return
	}
	text, err = bc.arena.String(text)
	return
}

func newText(bc *buildContext, args Args) (matrixclock.AnyComponent, error) {
	pos, text, font, c, err := textArgs(bc, args, [4]int{1, 2, 3, 4})
	if err != nil {
		return matrixclock.AnyComponent{}, err
	}
	return matrixclock.Normal(&matrixclock.Text{Pos: pos, Text: text, Font: font, Color: c}), nil
}

func newWrappedText(bc *buildContext, args Args) (matrixclock.AnyComponent, error) {
	pos, text, font, c, err := textArgs(bc, args, [4]int{1, 2, 3, 4})
	if err != nil {
		return matrixclock.AnyComponent{}, err
	}
	spacing, err := args.IntRange(5, -matrixclock.Height, matrixclock.Height)
	if err != nil {
		return matrixclock.AnyComponent{}, err
	}
	return matrixclock.Normal(&matrixclock.WrappedText{
		Pos:         pos,
		Text:        text,
		Font:        font,
		Color:       c,
		LineSpacing: int(spacing),
	}), nil
}

func newImage(bc *buildContext, args Args) (matrixclock.AnyComponent, error) {
	pos, err := args.Position(1)
	if err != nil {
		return matrixclock.AnyComponent{}, err
	}
	name, err := args.String(2)
	if err != nil {
		return matrixclock.AnyComponent{}, err
	}
	if name != matrixclock.EmptyImage {
		if _, err := matrixclock.ImagePath(name); err != nil {
			return matrixclock.AnyComponent{}, err
		}
	}
	if name, err = bc.arena.String(name); err != nil {
		return matrixclock.AnyComponent{}, err
	}
	return matrixclock.Normal(&matrixclock.Image{Pos: pos, Name: name}), nil
}

func newHorizontalScrollingText(bc *buildContext, args Args) (matrixclock.AnyComponent, error) {
	start, text, font, c, err := textArgs(bc, args, [4]int{1, 3, 4, 5})
	if err != nil {
		return matrixclock.AnyComponent{}, err
	}
	cutoff, err := args.IntRange(2, 0, 255)
	if err != nil {
		return matrixclock.AnyComponent{}, err
	}
	anim, err := args.Animation(6)
	if err != nil {
		return matrixclock.AnyComponent{}, err
	}
	h := matrixclock.NewHorizontalScrollingText(start, uint8(cutoff), text, font, c)
	if err := h.Validate(); err != nil {
		return matrixclock.AnyComponent{}, err
	}
	return matrixclock.Animated(matrixclock.NewAnimation(h, anim, matrixclock.ScrollUpdate)), nil
}

func newVerticalScrollingText(bc *buildContext, args Args) (matrixclock.AnyComponent, error) {
	w, err := args.IntRange(2, 1, 255)
	if err != nil {
		return matrixclock.AnyComponent{}, err
	}
	h, err := args.IntRange(3, 1, 255)
	if err != nil {
		return matrixclock.AnyComponent{}, err
	}
	pos, text, font, c, err := textArgs(bc, args, [4]int{1, 4, 5, 6})
	if err != nil {
		return matrixclock.AnyComponent{}, err
	}
	anim, err := args.Animation(7)
	if err != nil {
		return matrixclock.AnyComponent{}, err
	}

	var lines []string
	if bc.fonts != nil {
		f, err := bc.fonts.Font(font)
		if err != nil {
			return matrixclock.AnyComponent{}, err
		}
		if lines, err = bc.arena.Lines(matrixclock.WrapLines(text, int(w), f.Width)); err != nil {
			return matrixclock.AnyComponent{}, err
		}
	}
	v := matrixclock.NewVerticalScrollingText(pos, uint8(w), uint8(h), text, font, c, lines)
	return matrixclock.Animated(matrixclock.NewAnimation(v, anim, matrixclock.ScrollUpdate)), nil
}
