package matrixclock

import (
	"encoding/hex"
	"fmt"
	"strings"
	"testing"
	"testing/fstest"
)

// fixtureRunes are the glyphs present in every test font.
const fixtureRunes = " #|.:0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

var fixtureSizes = map[FontID][2]int{
	Font4x6:  {4, 6},
	Font5x7:  {5, 7},
	Font5x8:  {5, 8},
	Font6x10: {6, 10},
	Font6x13: {6, 13},
	Font8x13: {8, 13},
}

// fixtureLit defines the test glyph shapes: '#' fills the cell, '|' is the
// left column, '.' the bottom-left pixel, ' ' is blank and every other glyph
// lights only its top-left pixel.
func fixtureLit(r rune, col, row, w, h int) bool {
	switch r {
	case ' ':
		return false
	case '#':
		return true
	case '|':
		return col == 0
	case '.':
		return col == 0 && row == h-1
	default:
		return col == 0 && row == 0
	}
}

// fixtureBDF renders a fixed-cell BDF font of the given cell size.
func fixtureBDF(name string, w, h int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "STARTFONT 2.1\nFONT %s\nSIZE %d 75 75\nFONTBOUNDINGBOX %d %d 0 -2\n", name, h, w, h)
	b.WriteString("STARTPROPERTIES 1\nDEFAULT_CHAR 32\nENDPROPERTIES\n")
	fmt.Fprintf(&b, "CHARS %d\n", len(fixtureRunes))
	stride := (w + 7) / 8
	for _, r := range fixtureRunes {
		fmt.Fprintf(&b, "STARTCHAR U+%04X\nENCODING %d\nSWIDTH 500 0\nDWIDTH %d 0\nBBX %d %d 0 -2\nBITMAP\n", r, r, w, w, h)
		for row := 0; row < h; row++ {
			line := make([]byte, stride)
			for col := 0; col < w; col++ {
				if fixtureLit(r, col, row, w, h) {
					line[col/8] |= 0x80 >> (col % 8)
				}
			}
			b.WriteString(strings.ToUpper(hex.EncodeToString(line)))
			b.WriteByte('\n')
		}
		b.WriteString("ENDCHAR\n")
	}
	b.WriteString("ENDFONT\n")
	return b.String()
}

// fixtureFS holds every font of the enumeration.
func fixtureFS() fstest.MapFS {
	fsys := fstest.MapFS{}
	for id, size := range fixtureSizes {
		p, _ := FontFile(id)
		fsys[p] = &fstest.MapFile{Data: []byte(fixtureBDF(string(id), size[0], size[1]))}
	}
	return fsys
}

func newTestFonts(t *testing.T) *FontStore {
	t.Helper()
	fonts := NewFontStore()
	if err := fonts.Init(fixtureFS()); err != nil {
		t.Fatalf("FontStore.Init: %v", err)
	}
	return fonts
}

// litCount returns how many presented pixels are not transparent.
func litCount(fb *Framebuffer) int {
	n := 0
	front := fb.Front()
	for y := range front {
		for _, c := range front[y] {
			if !c.IsTransparent() {
				n++
			}
		}
	}
	return n
}

// drawOnce draws c into a fresh framebuffer and presents it.
func drawOnce(t *testing.T, ctx *DrawContext, c Component) (*Framebuffer, error) {
	t.Helper()
	fb := NewFramebuffer()
	err := c.Draw(ctx, fb)
	if perr := fb.Present(); perr != nil {
		t.Fatalf("Present: %v", perr)
	}
	return fb, err
}

var (
	red   = Color{R: 255}
	green = Color{G: 255}
	blue  = Color{B: 255}
)
