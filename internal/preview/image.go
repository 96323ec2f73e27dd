package preview

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"

	"github.com/minidrive/minidrive/internal/drive"
)

const imageQuality = 80

// renderImage decodes an image, corrects EXIF orientation, scales it to fit
// the configured bounding box preserving aspect ratio, and re-encodes JPEG.
func (d *Dispatcher) renderImage(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("preview %s: %v: %w", path, err, drive.ErrPreviewUnavailable)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("preview %s: decode: %v: %w", path, err, drive.ErrPreviewUnavailable)
	}

	img = applyOrientation(img, orientationOf(data))
	scaled := imaging.Fit(img, d.imageSize, d.imageSize, imaging.Lanczos)

	bounds := scaled.Bounds()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: imageQuality}); err != nil {
		return nil, fmt.Errorf("preview %s: encode: %v: %w", path, err, drive.ErrPreviewUnavailable)
	}

	return &Result{
		Strategy: StrategyImage,
		Image:    buf.Bytes(),
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
	}, nil
}

// orientationOf extracts the EXIF orientation tag. Missing EXIF means the
// identity orientation.
func orientationOf(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return orientation
}

// applyOrientation transforms an image according to EXIF orientation value.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
