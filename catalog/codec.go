package catalog

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

const (
	maxImageDim  = 800 // longest side after compression
	thumbnailDim = 200 // longest side of a cover-grid thumbnail

	startQuality     = 90
	qualityStep      = 10
	qualityFloor     = 10
	thumbnailQuality = 60

	// base64 inflates the payload by 4/3, so persisted length times this
	// factor approximates the raw encoded byte count.
	encodedSizeFactor = 0.75
)

// DefaultImageBudget is the per-image byte ceiling applied by the repository.
// It is a configuration constant, not negotiated per call.
const DefaultImageBudget = 500 << 10

// Compressed is a size-bounded, quality-degraded encoding of an image blob.
type Compressed struct {
	Data         string // base64 JPEG
	Width        int
	Height       int
	SizeBytes    int // estimated raw byte count of the encoding
	WithinBudget bool
}

// Ref converts a compression result into an owned image reference.
func (c Compressed) Ref() ImageRef {
	return ImageRef{
		Data:         c.Data,
		MimeType:     "image/jpeg",
		Width:        c.Width,
		Height:       c.Height,
		SizeBytes:    c.SizeBytes,
		WithinBudget: c.WithinBudget,
	}
}

// Compress decodes blob, scales it down so the longer dimension is at most
// 800px (never upscaling), and JPEG-encodes it, stepping the quality down from
// 90 until the estimated persisted size fits maxBytes or the quality floor is
// reached. It is best-effort: for a decodable non-empty input it always
// returns the last attempt and records whether the budget was honored.
func Compress(blob []byte, maxBytes int) (Compressed, error) {
	img, err := decodeScaled(blob, maxImageDim)
	if err != nil {
		return Compressed{}, err
	}

	quality := startQuality
	for {
		data, est, err := encodeJPEG(img, quality)
		if err != nil {
			return Compressed{}, err
		}
		if est <= maxBytes {
			return compressed(img, data, est, true), nil
		}
		if quality <= qualityFloor {
			// Budget unreachable even at the floor; return the attempt anyway.
			return compressed(img, data, est, false), nil
		}
		quality -= qualityStep
	}
}

// Thumbnail produces a small fixed-dimension preview at a fixed quality.
// Thumbnails back the cover-photo grid and must be cheap: same scale/encode
// path as Compress but no quality search.
func Thumbnail(blob []byte) (Compressed, error) {
	img, err := decodeScaled(blob, thumbnailDim)
	if err != nil {
		return Compressed{}, err
	}
	data, est, err := encodeJPEG(img, thumbnailQuality)
	if err != nil {
		return Compressed{}, err
	}
	return compressed(img, data, est, true), nil
}

func compressed(img image.Image, data string, est int, withinBudget bool) Compressed {
	b := img.Bounds()
	return Compressed{
		Data:         data,
		Width:        b.Dx(),
		Height:       b.Dy(),
		SizeBytes:    est,
		WithinBudget: withinBudget,
	}
}

// decodeScaled decodes blob and scales it down (preserving aspect ratio) so
// the longer dimension is at most maxDim. Images already within bounds are
// returned as-is.
func decodeScaled(blob []byte, maxDim int) (image.Image, error) {
	if len(blob) == 0 {
		return nil, ErrInvalidInput
	}
	img, _, err := image.Decode(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img, nil
	}

	newW, newH := maxDim, h*maxDim/w
	if h > w {
		newW, newH = w*maxDim/h, maxDim
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst, nil
}

// encodeJPEG encodes img at the given quality and returns the base64 payload
// plus the estimated raw byte count of the persisted form.
func encodeJPEG(img image.Image, quality int) (string, int, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return "", 0, fmt.Errorf("encode jpeg: %w", err)
	}
	data := base64.StdEncoding.EncodeToString(buf.Bytes())
	est := int(float64(len(data)) * encodedSizeFactor)
	return data, est, nil
}
