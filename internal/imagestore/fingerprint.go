package imagestore

import (
	"image"

	"golang.org/x/image/draw"
)

// fingerprintKey identifies a stored picture. Dimensions are part of the key
// so flat images of different sizes do not collide.
type fingerprintKey struct {
	hash          uint64
	width, height int
}

// differenceHash computes a 64-bit dHash: the image is shrunk to 9x8 grey
// pixels and each bit records whether a pixel is brighter than its right
// neighbour.
func differenceHash(img image.Image) uint64 {
	small := image.NewGray(image.Rect(0, 0, 9, 8))
	draw.BiLinear.Scale(small, small.Bounds(), img, img.Bounds(), draw.Src, nil)

	var hash uint64
	bit := 63
	for y := range 8 {
		for x := range 8 {
			if small.GrayAt(x, y).Y > small.GrayAt(x+1, y).Y {
				hash |= 1 << bit
			}
			bit--
		}
	}
	return hash
}
