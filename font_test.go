package matrixclock

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

// --- ParseBDF ---

func TestParseBDF_Metrics(t *testing.T) {
	f, err := ParseBDF(strings.NewReader(fixtureBDF("test-6x10", 6, 10)))
	if err != nil {
		t.Fatalf("ParseBDF: %v", err)
	}
	if f.Name != "test-6x10" {
		t.Errorf("Name = %q, want %q", f.Name, "test-6x10")
	}
	if f.Width != 6 || f.Height != 10 {
		t.Errorf("cell = %dx%d, want 6x10", f.Width, f.Height)
	}
	if f.DefaultChar != ' ' {
		t.Errorf("DefaultChar = %q, want ' '", f.DefaultChar)
	}
	if f.Declared != len(fixtureRunes) || f.GlyphCount() != len(fixtureRunes) {
		t.Errorf("Declared = %d, GlyphCount = %d, want %d", f.Declared, f.GlyphCount(), len(fixtureRunes))
	}
}

func TestParseBDF_GlyphBits(t *testing.T) {
	f, err := ParseBDF(strings.NewReader(fixtureBDF("bits", 8, 13)))
	if err != nil {
		t.Fatalf("ParseBDF: %v", err)
	}

	full, _ := f.Glyph('#')
	bar, _ := f.Glyph('|')
	for row := 0; row < 13; row++ {
		for col := 0; col < 8; col++ {
			if !full.Set(col, row) {
				t.Fatalf("'#' (%d,%d) unset", col, row)
			}
			if got, want := bar.Set(col, row), col == 0; got != want {
				t.Fatalf("'|' (%d,%d) = %v, want %v", col, row, got, want)
			}
		}
	}
	if full.Set(8, 0) || full.Set(-1, 0) {
		t.Error("Set outside the cell should report false")
	}
}

func TestParseBDF_Deterministic(t *testing.T) {
	src := fixtureBDF("again", 5, 7)
	a, err := ParseBDF(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseBDF: %v", err)
	}
	b, err := ParseBDF(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseBDF: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("parsing the same data twice gave different fonts")
	}
}

func TestFontGlyph_FallsBackToDefault(t *testing.T) {
	f, err := ParseBDF(strings.NewReader(fixtureBDF("fallback", 4, 6)))
	if err != nil {
		t.Fatalf("ParseBDF: %v", err)
	}
	g, err := f.Glyph('€')
	if err != nil {
		t.Fatalf("Glyph: %v", err)
	}
	if g.Encoding != ' ' {
		t.Errorf("fallback glyph = %q, want ' '", g.Encoding)
	}

	f.DefaultChar = '€'
	if _, err := f.Glyph('~'); !errors.Is(err, ErrGlyphNotFound) {
		t.Errorf("err = %v, want ErrGlyphNotFound", err)
	}
}

func TestParseBDF_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing bounding box", "STARTFONT 2.1\nCHARS 0\nENDFONT\n"},
		{"char before bounding box", "STARTFONT 2.1\nSTARTCHAR A\nENCODING 65\n"},
		{"bad bitmap row", "FONTBOUNDINGBOX 4 1 0 0\nSTARTCHAR A\nENCODING 65\nBBX 4 1 0 0\nBITMAP\nZZ\nENDCHAR\nENDFONT\n"},
		{"ends inside bitmap", "FONTBOUNDINGBOX 4 1 0 0\nSTARTCHAR A\nENCODING 65\nBBX 4 1 0 0\nBITMAP\nF0\n"},
		{"short bounding box", "FONTBOUNDINGBOX 4 1\nENDFONT\n"},
		{"zero bounding box", "FONTBOUNDINGBOX 0 6 0 0\nENDFONT\n"},
		{"negative bounding box", "FONTBOUNDINGBOX -4 6 0 0\nENDFONT\n"},
		{"huge bounding box", "FONTBOUNDINGBOX 4 100000000 0 0\nENDFONT\n"},
		{"negative glyph box", "FONTBOUNDINGBOX 4 6 0 0\nSTARTCHAR A\nENCODING 65\nBBX -20 7 0 0\nBITMAP\nENDCHAR\nENDFONT\n"},
		{"huge glyph box", "FONTBOUNDINGBOX 4 6 0 0\nSTARTCHAR A\nENCODING 65\nBBX 4 100000000 0 0\nBITMAP\nENDCHAR\nENDFONT\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseBDF(strings.NewReader(tt.src)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestParseBDF_EmptyGlyphBox(t *testing.T) {
	src := "FONTBOUNDINGBOX 4 6 0 0\nSTARTCHAR space\nENCODING 32\nBBX 0 0 0 0\nBITMAP\nENDCHAR\nENDFONT\n"
	f, err := ParseBDF(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseBDF: %v", err)
	}
	g, err := f.Glyph(' ')
	if err != nil {
		t.Fatalf("Glyph(' '): %v", err)
	}
	if g.Width != 0 || g.Height != 0 {
		t.Errorf("Glyph(' ') size = %dx%d, want 0x0", g.Width, g.Height)
	}
}

// --- FontStore ---

func TestFontStore_Lifecycle(t *testing.T) {
	s := NewFontStore()
	if _, err := s.Font(Font4x6); !errors.Is(err, ErrFontsNotInitialized) {
		t.Fatalf("Font before Init: err = %v, want ErrFontsNotInitialized", err)
	}

	if err := s.Init(fixtureFS()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !s.Initialized() {
		t.Fatal("Initialized = false after Init")
	}
	if err := s.Init(fixtureFS()); !errors.Is(err, ErrFontsInitialized) {
		t.Errorf("second Init: err = %v, want ErrFontsInitialized", err)
	}

	for id, size := range fixtureSizes {
		f, err := s.Font(id)
		if err != nil {
			t.Fatalf("Font(%s): %v", id, err)
		}
		if f.Width != size[0] || f.Height != size[1] {
			t.Errorf("Font(%s) cell = %dx%d, want %dx%d", id, f.Width, f.Height, size[0], size[1])
		}
	}
	if _, err := s.Font("Font9x9"); !errors.Is(err, ErrUnknownFont) {
		t.Errorf("unknown id: err = %v, want ErrUnknownFont", err)
	}

	if err := s.Deinit(); err != nil {
		t.Fatalf("Deinit: %v", err)
	}
	if err := s.Deinit(); !errors.Is(err, ErrFontsNotInitialized) {
		t.Errorf("second Deinit: err = %v, want ErrFontsNotInitialized", err)
	}
	if err := s.Init(fixtureFS()); err != nil {
		t.Errorf("Init after Deinit: %v", err)
	}
}

func TestFontStore_InitMissingFile(t *testing.T) {
	fsys := fixtureFS()
	p, _ := FontFile(Font8x13)
	delete(fsys, p)

	s := NewFontStore()
	if err := s.Init(fsys); err == nil {
		t.Fatal("expected an error for a missing font file")
	}
	if s.Initialized() {
		t.Error("a failed Init must leave the store uninitialized")
	}
}

func TestParseFontID(t *testing.T) {
	for _, id := range FontIDs() {
		got, err := ParseFontID(string(id))
		if err != nil || got != id {
			t.Errorf("ParseFontID(%q) = %q, %v", id, got, err)
		}
	}
	if _, err := ParseFontID("font4x6"); !errors.Is(err, ErrUnknownFont) {
		t.Errorf("names are case sensitive: err = %v", err)
	}
}
