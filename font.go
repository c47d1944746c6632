package matrixclock

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"
	"sync"
)

var (
	// ErrFontsInitialized is returned by FontStore.Init when the store is already loaded.
	ErrFontsInitialized = errors.New("matrixclock: font store already initialized")
	// ErrFontsNotInitialized is returned by lookups or Deinit before Init.
	ErrFontsNotInitialized = errors.New("matrixclock: font store not initialized")
	// ErrGlyphNotFound is returned when neither a glyph nor the font's default glyph exists.
	ErrGlyphNotFound = errors.New("matrixclock: glyph not found")
	// ErrUnknownFont is returned for identifiers outside the font enumeration.
	ErrUnknownFont = errors.New("matrixclock: unknown font")
)

// FontID names one of the fixed fonts shipped with the asset directory.
type FontID string

const (
	Font4x6  FontID = "Font4x6"
	Font5x7  FontID = "Font5x7"
	Font5x8  FontID = "Font5x8"
	Font6x10 FontID = "Font6x10"
	Font6x13 FontID = "Font6x13"
	Font8x13 FontID = "Font8x13"
)

// fontFiles maps every FontID to its BDF file in the asset filesystem.
var fontFiles = map[FontID]string{
	Font4x6:  "fonts/4x6.bdf",
	Font5x7:  "fonts/5x7.bdf",
	Font5x8:  "fonts/5x8.bdf",
	Font6x10: "fonts/6x10.bdf",
	Font6x13: "fonts/6x13.bdf",
	Font8x13: "fonts/8x13.bdf",
}

// FontIDs returns the font enumeration in a stable order.
func FontIDs() []FontID {
	return []FontID{Font4x6, Font5x7, Font5x8, Font6x10, Font6x13, Font8x13}
}

// FontFile returns the asset path of the font's BDF file.
func FontFile(id FontID) (string, bool) {
	p, ok := fontFiles[id]
	return p, ok
}

// ParseFontID validates a font name.
func ParseFontID(s string) (FontID, error) {
	id := FontID(s)
	if _, ok := fontFiles[id]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFont, s)
	}
	return id, nil
}

// --- Font ---

// Glyph is a row-major 1-bit bitmap, Stride bytes per row, most significant
// bit first.
type Glyph struct {
	Encoding rune
	Width    int
	Height   int
	Stride   int
	Bitmap   []byte
}

// Set reports whether the pixel at (col, row) is lit.
func (g *Glyph) Set(col, row int) bool {
	if col < 0 || row < 0 || col >= g.Width || row >= g.Height {
		return false
	}
	return g.Bitmap[row*g.Stride+col/8]&(0x80>>(col%8)) != 0
}

// Font is a parsed BDF glyph table. Every glyph occupies a Width x Height cell.
type Font struct {
	Name        string
	Width       int
	Height      int
	DefaultChar rune
	// Declared is the glyph count announced by the CHARS directive.
	Declared int
	glyphs   map[rune]*Glyph
}

// Glyph returns the glyph for r, falling back to the font's default character.
func (f *Font) Glyph(r rune) (*Glyph, error) {
	if g, ok := f.glyphs[r]; ok {
		return g, nil
	}
	if g, ok := f.glyphs[f.DefaultChar]; ok {
		return g, nil
	}
	return nil, fmt.Errorf("%w: %q (default %q) in font %s", ErrGlyphNotFound, r, f.DefaultChar, f.Name)
}

// GlyphCount returns the number of parsed glyphs.
func (f *Font) GlyphCount() int {
	return len(f.glyphs)
}

// ParseBDF parses a BDF font. Only the directives needed for fixed-cell
// rendering are interpreted; everything else is skipped.
func ParseBDF(r io.Reader) (*Font, error) {
	f := &Font{DefaultChar: ' ', glyphs: make(map[rune]*Glyph)}

	scanner := bufio.NewScanner(r)
	var (
		cur       *Glyph
		inBitmap  bool
		row       int
		lineNo    int
		sawBounds bool
	)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if inBitmap {
			if line == "ENDCHAR" {
				if cur.Encoding >= 0 {
					f.glyphs[cur.Encoding] = cur
				}
				cur, inBitmap = nil, false
				continue
			}
			if row < cur.Height {
				b, err := hex.DecodeString(line)
				if err != nil {
					return nil, fmt.Errorf("matrixclock: bdf line %d: bitmap row: %w", lineNo, err)
				}
				copy(cur.Bitmap[row*cur.Stride:(row+1)*cur.Stride], b)
			}
			row++
			continue
		}

		tag, rest := splitTag(line)
		switch tag {
		case "FONT":
			f.Name = rest
		case "FONTBOUNDINGBOX":
			nums, err := parseInts(rest, 4)
			if err != nil {
				return nil, fmt.Errorf("matrixclock: bdf line %d: FONTBOUNDINGBOX: %w", lineNo, err)
			}
			if err := checkGlyphSize(nums[0], nums[1], 1); err != nil {
				return nil, fmt.Errorf("matrixclock: bdf line %d: FONTBOUNDINGBOX: %w", lineNo, err)
			}
			f.Width, f.Height = nums[0], nums[1]
			sawBounds = true
		case "DEFAULT_CHAR":
			n, err := strconv.Atoi(rest)
			if err != nil {
				return nil, fmt.Errorf("matrixclock: bdf line %d: DEFAULT_CHAR: %w", lineNo, err)
			}
			f.DefaultChar = rune(n)
		case "CHARS":
			n, err := strconv.Atoi(rest)
			if err != nil {
				return nil, fmt.Errorf("matrixclock: bdf line %d: CHARS: %w", lineNo, err)
			}
			f.Declared = n
		case "STARTCHAR":
			if !sawBounds {
				return nil, fmt.Errorf("matrixclock: bdf line %d: STARTCHAR before FONTBOUNDINGBOX", lineNo)
			}
			cur = newGlyph(f.Width, f.Height)
		case "ENCODING":
			if cur == nil {
				return nil, fmt.Errorf("matrixclock: bdf line %d: ENCODING outside STARTCHAR", lineNo)
			}
			nums, err := parseInts(rest, 1)
			if err != nil {
				return nil, fmt.Errorf("matrixclock: bdf line %d: ENCODING: %w", lineNo, err)
			}
			cur.Encoding = rune(nums[0])
		case "BBX":
			if cur == nil {
				return nil, fmt.Errorf("matrixclock: bdf line %d: BBX outside STARTCHAR", lineNo)
			}
			nums, err := parseInts(rest, 4)
			if err != nil {
				return nil, fmt.Errorf("matrixclock: bdf line %d: BBX: %w", lineNo, err)
			}
			if err := checkGlyphSize(nums[0], nums[1], 0); err != nil {
				return nil, fmt.Errorf("matrixclock: bdf line %d: BBX: %w", lineNo, err)
			}
			enc := cur.Encoding
			cur = newGlyph(nums[0], nums[1])
			cur.Encoding = enc
		case "BITMAP":
			if cur == nil {
				return nil, fmt.Errorf("matrixclock: bdf line %d: BITMAP outside STARTCHAR", lineNo)
			}
			inBitmap, row = true, 0
		case "ENDFONT":
			if !sawBounds {
				return nil, fmt.Errorf("matrixclock: bdf data missing FONTBOUNDINGBOX")
			}
			return f, nil
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("matrixclock: error reading bdf data: %w", err)
	}
	if !sawBounds {
		return nil, fmt.Errorf("matrixclock: bdf data missing FONTBOUNDINGBOX")
	}
	if inBitmap {
		return nil, fmt.Errorf("matrixclock: bdf data ends inside BITMAP")
	}
	return f, nil
}

// maxGlyphSide bounds bounding-box dimensions.
const maxGlyphSide = 256

// checkGlyphSize rejects bounding boxes outside lo..maxGlyphSide. Empty glyph
// boxes (lo 0) are legal for blank characters such as space.
func checkGlyphSize(w, h, lo int) error {
	if w < lo || h < lo || w > maxGlyphSide || h > maxGlyphSide {
		return fmt.Errorf("size %dx%d outside %d..%d", w, h, lo, maxGlyphSide)
	}
	return nil
}

func newGlyph(w, h int) *Glyph {
	stride := (w + 7) / 8
	return &Glyph{Width: w, Height: h, Stride: stride, Bitmap: make([]byte, stride*h)}
}

// splitTag splits a directive line into its keyword and the rest of the line.
func splitTag(line string) (string, string) {
	idx := strings.IndexByte(line, ' ')
	if idx == -1 {
		return line, ""
	}
	return line[:idx], strings.TrimSpace(line[idx+1:])
}

func parseInts(s string, want int) ([]int, error) {
	fields := strings.Fields(s)
	if len(fields) < want {
		return nil, fmt.Errorf("want %d fields, got %d", want, len(fields))
	}
	out := make([]int, want)
	for i := range out {
		n, err := strconv.Atoi(fields[i])
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// --- FontStore ---

// FontStore is the process-wide font registry. It is loaded once with Init,
// read concurrently afterwards, and released with Deinit.
type FontStore struct {
	mu          sync.RWMutex
	fonts       map[FontID]*Font
	initialized bool
}

// DefaultFonts is the process singleton used by the command.
var DefaultFonts = NewFontStore()

// NewFontStore returns an uninitialized store.
func NewFontStore() *FontStore {
	return &FontStore{}
}

// Init parses every font in the enumeration from fsys. A second Init without
// Deinit returns ErrFontsInitialized and leaves the loaded tables untouched.
func (s *FontStore) Init(fsys fs.FS) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return ErrFontsInitialized
	}

	fonts := make(map[FontID]*Font, len(fontFiles))
	for _, id := range FontIDs() {
		path := fontFiles[id]
		file, err := fsys.Open(path)
		if err != nil {
			return fmt.Errorf("matrixclock: open font %s: %w", path, err)
		}
		f, err := ParseBDF(file)
		file.Close()
		if err != nil {
			return fmt.Errorf("matrixclock: parse font %s: %w", path, err)
		}
		if f.Name == "" {
			f.Name = string(id)
		}
		fonts[id] = f
	}

	s.fonts = fonts
	s.initialized = true
	return nil
}

// Font returns the parsed font for id.
func (s *FontStore) Font(id FontID) (*Font, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, ErrFontsNotInitialized
	}
	f, ok := s.fonts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFont, id)
	}
	return f, nil
}

// Initialized reports whether Init has completed.
func (s *FontStore) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Deinit drops every glyph table.
func (s *FontStore) Deinit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrFontsNotInitialized
	}
	s.fonts = nil
	s.initialized = false
	return nil
}
