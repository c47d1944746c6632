package matrixclock

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sync"

	"github.com/spakin/netpbm"
)

var (
	// ErrImageNotInStore is returned by ImageStore.Get for names that were never added.
	ErrImageNotInStore = errors.New("matrixclock: image not in store")
	// ErrPathEscape is returned for asset names that would leave the asset directory.
	ErrPathEscape = errors.New("matrixclock: path escapes asset directory")
)

// EmptyImage is the reserved image name that draws nothing.
const EmptyImage = "empty"

// Bitmap is a decoded RGB raster.
type Bitmap struct {
	Width  int
	Height int
	Pix    []Color
}

// At returns the pixel at (x, y). Out-of-range reads are transparent.
func (b *Bitmap) At(x, y int) Color {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return ColorTransparent
	}
	return b.Pix[y*b.Width+x]
}

// MaxImageSide bounds the width and height of a decoded image.
const MaxImageSide = 1024

// ppmHeaderSlack covers the header and any comments in it.
const ppmHeaderSlack = 64 << 10

// ParsePPM decodes a binary (P6) portable pixmap. The maximum channel value
// must not exceed 255 and neither side may exceed MaxImageSide.
func ParsePPM(r io.Reader) (*Bitmap, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSide*MaxImageSide*3+ppmHeaderSlack+1))
	if err != nil {
		return nil, fmt.Errorf("matrixclock: read ppm: %w", err)
	}
	if len(data) > MaxImageSide*MaxImageSide*3+ppmHeaderSlack {
		return nil, errors.New("matrixclock: ppm file too large")
	}
	if !bytes.HasPrefix(data, []byte("P6")) {
		return nil, fmt.Errorf("matrixclock: ppm magic %q, want \"P6\"", data[:min(len(data), 2)])
	}

	cfg, err := netpbm.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("matrixclock: ppm header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > MaxImageSide || cfg.Height > MaxImageSide {
		return nil, fmt.Errorf("matrixclock: ppm size %dx%d outside 1..%d", cfg.Width, cfg.Height, MaxImageSide)
	}

	img, err := netpbm.Decode(bytes.NewReader(data), &netpbm.DecodeOptions{Target: netpbm.PPM, Exact: true})
	if err != nil {
		return nil, fmt.Errorf("matrixclock: ppm: %w", err)
	}
	if img.MaxValue() > 255 {
		return nil, fmt.Errorf("matrixclock: ppm max value %d exceeds 255", img.MaxValue())
	}

	b := img.Bounds()
	bm := &Bitmap{Width: b.Dx(), Height: b.Dy(), Pix: make([]Color, b.Dx()*b.Dy())}
	for y := 0; y < bm.Height; y++ {
		for x := 0; x < bm.Width; x++ {
			cr, cg, cb, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			bm.Pix[y*bm.Width+x] = Color{R: uint8(cr >> 8), G: uint8(cg >> 8), B: uint8(cb >> 8)}
		}
	}
	return bm, nil
}

// --- ImageStore ---

// ImageStore holds the bitmaps of the module currently rendering. It is filled
// from the module's declared image names before a render session and drained
// right after it.
type ImageStore struct {
	fsys fs.FS

	mu     sync.RWMutex
	images map[string]*Bitmap
}

// NewImageStore returns a store reading images/<name>.ppm from fsys.
func NewImageStore(fsys fs.FS) *ImageStore {
	return &ImageStore{fsys: fsys, images: make(map[string]*Bitmap)}
}

// ImagePath returns the asset path for an image name.
func ImagePath(name string) (string, error) {
	p := path.Join("images", name+".ppm")
	if name == "" || !fs.ValidPath(p) || path.Dir(p) != "images" {
		return "", fmt.Errorf("%w: %q", ErrPathEscape, name)
	}
	return p, nil
}

// Add parses images/<name>.ppm and stores it under name, replacing any
// previous entry.
func (s *ImageStore) Add(name string) error {
	if name == EmptyImage {
		return nil
	}
	p, err := ImagePath(name)
	if err != nil {
		return err
	}
	if s.fsys == nil {
		return fmt.Errorf("matrixclock: open image %s: %w", p, fs.ErrNotExist)
	}
	f, err := s.fsys.Open(p)
	if err != nil {
		return fmt.Errorf("matrixclock: open image %s: %w", p, err)
	}
	defer f.Close()

	bm, err := ParsePPM(f)
	if err != nil {
		return fmt.Errorf("matrixclock: parse image %s: %w", p, err)
	}
	s.Put(name, bm)
	return nil
}

// Put stores an already decoded bitmap.
func (s *ImageStore) Put(name string, bm *Bitmap) {
	s.mu.Lock()
	s.images[name] = bm
	s.mu.Unlock()
}

// Get returns the bitmap stored under name.
func (s *ImageStore) Get(name string) (*Bitmap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bm, ok := s.images[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrImageNotInStore, name)
	}
	return bm, nil
}

// Len returns the number of resident images.
func (s *ImageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images)
}

// DeinitAll releases every bitmap and empties the store.
func (s *ImageStore) DeinitAll() {
	s.mu.Lock()
	clear(s.images)
	s.mu.Unlock()
}
