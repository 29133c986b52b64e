package imaging

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
)

// ErrInvalidImage indicates the input bytes could not be decoded as an image
var ErrInvalidImage = errors.New("invalid or unsupported image data")

// Options controls thumbnail generation
type Options struct {
	// MaxDimension bounds both width and height of the thumbnail.
	// Images already within the bound are re-encoded at their
	// original size, never upscaled.
	MaxDimension int
	// JPEGQuality is the encoding quality from 1 to 100
	JPEGQuality int
}

// DefaultOptions returns the default thumbnail settings
func DefaultOptions() Options {
	return Options{
		MaxDimension: 800,
		JPEGQuality:  85,
	}
}

// Validate checks the thumbnail options
func (o Options) Validate() error {
	if o.MaxDimension <= 0 {
		return fmt.Errorf("max dimension must be greater than 0, got %d", o.MaxDimension)
	}
	if o.JPEGQuality < 1 || o.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality must be between 1 and 100, got %d", o.JPEGQuality)
	}
	return nil
}

// Thumbnail decodes the image, applies EXIF orientation, scales it down
// to fit within opts.MaxDimension on both axes preserving aspect ratio,
// and encodes the result as JPEG. It returns the encoded bytes together
// with the final pixel dimensions.
func Thumbnail(data []byte, opts Options) ([]byte, int, int, error) {
	if err := opts.Validate(); err != nil {
		return nil, 0, 0, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > opts.MaxDimension || bounds.Dy() > opts.MaxDimension {
		img = imaging.Fit(img, opts.MaxDimension, opts.MaxDimension, imaging.Lanczos)
		bounds = img.Bounds()
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(opts.JPEGQuality)); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return buf.Bytes(), bounds.Dx(), bounds.Dy(), nil
}
