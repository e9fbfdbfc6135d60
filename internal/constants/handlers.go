package constants

// File upload constants
const (
	// MaxUploadSize is the maximum still image upload size in bytes (20MB)
	MaxUploadSize = 20 << 20

	// MaxImagePixels bounds decoded upload dimensions (40 megapixels)
	MaxImagePixels = 40_000_000

	// JPEGQuality is used when re-encoding uploaded stills
	JPEGQuality = 85
)

// Request body constants
const (
	// MaxJSONBodySize bounds JSON request bodies (one frame of landmarks is ~40 KiB)
	MaxJSONBodySize = 1 << 20
)
