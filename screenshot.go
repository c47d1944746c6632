package matrixclock

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	xdraw "golang.org/x/image/draw"
)

// Snapshot writes the presented frame as a PNG into dir, upscaled by scale with
// nearest-neighbor sampling so every matrix pixel stays a crisp square. The file
// name is a timestamp plus the sanitized label. It returns the written path.
func (f *Framebuffer) Snapshot(dir, label string, scale int) (string, error) {
	if scale < 1 {
		scale = 1
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("matrixclock: snapshot: mkdir %s: %w", dir, err)
	}

	src := f.Image()
	dst := image.NewRGBA(image.Rect(0, 0, Width*scale, Height*scale))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	stamp := time.Now().Format("20060102_150405.000")
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.png", stamp, sanitizeLabel(label)))
	if err := writePNG(path, dst); err != nil {
		return "", fmt.Errorf("matrixclock: snapshot: write %s: %w", path, err)
	}
	return path, nil
}

func writePNG(path string, img image.Image) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	return png.Encode(out, img)
}

// sanitizeLabel keeps module names readable in file names: letters, digits,
// '-' and '.' pass through and everything else becomes '_'.
func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "unlabeled"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r <= unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, label)
}
