// Package imagestore keeps uploaded still images on local disk under opaque ids.
package imagestore

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/kozaktomas/face-animator/internal/constants"
)

var (
	// ErrNotFound is returned for unknown or malformed image ids.
	ErrNotFound = errors.New("image not found")
	// ErrUnsupportedImage is returned when the upload cannot be decoded.
	ErrUnsupportedImage = errors.New("unsupported image")
)

// Image describes a stored still.
type Image struct {
	ID          string `json:"imageId"`
	Name        string `json:"name"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Fingerprint string `json:"fingerprint"` // hex difference hash of the stored pixels
	Duplicate   bool   `json:"duplicate,omitempty"`
}

// Store writes JPEGs into a single directory.
type Store struct {
	dir     string
	maxSize int

	mu   sync.Mutex
	seen map[fingerprintKey]Image // uploads since start, for re-upload detection
}

// New creates the directory if needed.
func New(dir string, maxSize int) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating image directory: %w", err)
	}
	return &Store{dir: dir, maxSize: maxSize, seen: make(map[fingerprintKey]Image)}, nil
}

// Save decodes data, downsizes it to fit maxSize and stores it as JPEG.
// Re-uploading the same picture returns the earlier image with Duplicate set.
func (s *Store) Save(name string, data []byte) (Image, error) {
	if err := checkDimensions(data); err != nil {
		return Image{}, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	img = fit(img, s.maxSize)
	hash := differenceHash(img)
	key := fingerprintKey{hash: hash, width: img.Bounds().Dx(), height: img.Bounds().Dy()}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.seen[key]; ok && s.Exists(prev.ID) {
		prev.Duplicate = true
		return prev, nil
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: constants.JPEGQuality}); err != nil {
		return Image{}, fmt.Errorf("encoding image: %w", err)
	}

	id := uuid.New().String()
	if err := os.WriteFile(s.path(id), buf.Bytes(), 0o640); err != nil {
		return Image{}, fmt.Errorf("writing image: %w", err)
	}

	bounds := img.Bounds()
	stored := Image{
		ID:          id,
		Name:        DisplayName(name),
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		Fingerprint: fmt.Sprintf("%016x", hash),
	}
	s.seen[key] = stored
	return stored, nil
}

// checkDimensions reads only the image header so oversized pictures are
// rejected before their pixels are allocated.
func checkDimensions(data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: empty image", ErrUnsupportedImage)
	}
	if int64(cfg.Width)*int64(cfg.Height) > constants.MaxImagePixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels",
			ErrUnsupportedImage, cfg.Width, cfg.Height, constants.MaxImagePixels)
	}
	return nil
}

// Open returns a reader for the stored JPEG.
func (s *Store) Open(id string) (io.ReadCloser, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	f, err := os.Open(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	return f, nil
}

// Exists reports whether id refers to a stored image.
func (s *Store) Exists(id string) bool {
	if !validID(id) {
		return false
	}
	_, err := os.Stat(s.path(id))
	return err == nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".jpg")
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// fit scales img down so neither edge exceeds maxSize, keeping aspect ratio.
func fit(img image.Image, maxSize int) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if maxSize <= 0 || (width <= maxSize && height <= maxSize) {
		return img
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = maxSize
		newHeight = max(1, int(float64(height)*float64(maxSize)/float64(width)))
	} else {
		newHeight = maxSize
		newWidth = max(1, int(float64(width)*float64(maxSize)/float64(height)))
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
	return resized
}

// DisplayName turns an uploaded file name into a plain display label
// (e.g., "Jiří na horách.JPG" -> "Jiri na horach").
func DisplayName(filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, base)
	if err != nil {
		return base
	}
	result = strings.TrimSpace(result)
	if result == "" || result == "." || result == string(filepath.Separator) {
		return "image"
	}
	return result
}
