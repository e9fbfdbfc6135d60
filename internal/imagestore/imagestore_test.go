package imagestore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

func TestSaveAndOpen(t *testing.T) {
	store, err := New(t.TempDir(), 1920)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	img, err := store.Save("portrait.png", pngBytes(t, 40, 30))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if img.Width != 40 || img.Height != 30 {
		t.Errorf("expected 40x30, got %dx%d", img.Width, img.Height)
	}
	if img.Name != "portrait" {
		t.Errorf("expected name 'portrait', got %q", img.Name)
	}
	if !store.Exists(img.ID) {
		t.Fatal("expected stored image to exist")
	}

	rc, err := store.Open(img.ID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	if _, err := jpeg.Decode(bytes.NewReader(data)); err != nil {
		t.Errorf("stored file is not a JPEG: %v", err)
	}
}

func TestSave_Downsizes(t *testing.T) {
	store, err := New(t.TempDir(), 50)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	img, err := store.Save("wide.png", pngBytes(t, 200, 100))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if img.Width != 50 || img.Height != 25 {
		t.Errorf("expected 50x25, got %dx%d", img.Width, img.Height)
	}
}

func TestSave_RejectsNonImage(t *testing.T) {
	store, err := New(t.TempDir(), 1920)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = store.Save("notes.txt", []byte("definitely not an image"))
	if !errors.Is(err, ErrUnsupportedImage) {
		t.Errorf("expected ErrUnsupportedImage, got %v", err)
	}
}

// pngHeader returns a PNG signature and IHDR chunk declaring w x h pixels,
// with no pixel data behind it.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 0, 17)
	ihdr = append(ihdr, "IHDR"...)
	ihdr = binary.BigEndian.AppendUint32(ihdr, w)
	ihdr = binary.BigEndian.AppendUint32(ihdr, h)
	ihdr = append(ihdr, 8, 2, 0, 0, 0) // 8-bit RGB

	out := []byte("\x89PNG\r\n\x1a\n")
	out = binary.BigEndian.AppendUint32(out, 13)
	out = append(out, ihdr...)
	return binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(ihdr))
}

func TestSave_RejectsOversizedDimensions(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, 1920)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		name string
		w, h uint32
	}{
		{"square", 60000, 60000},
		{"strip", 1, 50_000_000},
		{"zero width", 0, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Save("huge.png", pngHeader(tt.w, tt.h))
			if !errors.Is(err, ErrUnsupportedImage) {
				t.Errorf("expected ErrUnsupportedImage, got %v", err)
			}
		})
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected nothing stored, found %d files", len(entries))
	}
}

func TestCheckDimensions_AcceptsNormalImage(t *testing.T) {
	if err := checkDimensions(pngBytes(t, 640, 480)); err != nil {
		t.Errorf("checkDimensions() error = %v", err)
	}
}

func TestOpen_UnknownIDs(t *testing.T) {
	store, err := New(t.TempDir(), 1920)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, id := range []string{"", "../etc/passwd", "not-a-uuid", "0b6f3c1e-8d4a-4f2e-9c1b-2a3d4e5f6a7b"} {
		if _, err := store.Open(id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Open(%q): expected ErrNotFound, got %v", id, err)
		}
		if store.Exists(id) {
			t.Errorf("Exists(%q): expected false", id)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Jiří na horách.JPG", "Jiri na horach"},
		{"/tmp/upload/Žluťoučký kůň.png", "Zlutoucky kun"},
		{"plain", "plain"},
		{".jpg", "image"},
		{"", "image"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := DisplayName(tt.input); got != tt.expected {
				t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSave_DetectsReupload(t *testing.T) {
	store, err := New(t.TempDir(), 1920)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	first, err := store.Save("a.png", gradientPNG(t, 64, 48, false))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if first.Duplicate {
		t.Error("first upload flagged as duplicate")
	}
	if len(first.Fingerprint) != 16 {
		t.Errorf("expected 16 hex digit fingerprint, got %q", first.Fingerprint)
	}

	again, err := store.Save("b.png", gradientPNG(t, 64, 48, false))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !again.Duplicate || again.ID != first.ID {
		t.Errorf("expected duplicate of %s, got %+v", first.ID, again)
	}

	mirrored, err := store.Save("c.png", gradientPNG(t, 64, 48, true))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if mirrored.Duplicate || mirrored.ID == first.ID {
		t.Errorf("mirrored picture treated as duplicate: %+v", mirrored)
	}
}

func TestDifferenceHash(t *testing.T) {
	decode := func(data []byte) image.Image {
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("decoding png: %v", err)
		}
		return img
	}

	// Brightness falls left to right, so every pixel beats its neighbour
	if got := differenceHash(decode(gradientPNG(t, 90, 80, false))); got != ^uint64(0) {
		t.Errorf("expected all bits set, got %016x", got)
	}
	if got := differenceHash(decode(gradientPNG(t, 90, 80, true))); got != 0 {
		t.Errorf("expected no bits set, got %016x", got)
	}
}

// gradientPNG draws a horizontal grey ramp, bright on the left unless rising.
func gradientPNG(t *testing.T, w, h int, rising bool) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for x := range w {
		v := uint8(255 - x*255/(w-1))
		if rising {
			v = uint8(x * 255 / (w - 1))
		}
		for y := range h {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}
