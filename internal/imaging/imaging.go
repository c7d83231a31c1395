// Package imaging normalizes uploaded campaign and institution pictures.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"

	"github.com/elderaid/elderaid/internal/model"
)

// MaxDimension bounds the longer side of a stored picture.
const MaxDimension = 1600

// MaxUploadBytes is the largest accepted upload.
const MaxUploadBytes = 8 << 20

// JPEGQuality is used for every stored picture.
const JPEGQuality = 85

// accepted maps sniffed content types to decoders.
var accepted = map[string]func(io.Reader) (image.Image, error){
	"image/jpeg": jpeg.Decode,
	"image/png":  png.Decode,
	"image/webp": webp.Decode,
}

// Picture is a normalized JPEG ready to store.
type Picture struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// Process sniffs the upload, rejects anything that is not a JPEG, PNG or
// WebP picture, shrinks it to fit MaxDimension and re-encodes it as JPEG.
// Rejections wrap model.ErrInvalidArgument.
func Process(r io.Reader) (*Picture, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, fmt.Errorf("%w: image larger than %d bytes", model.ErrInvalidArgument, MaxUploadBytes)
	}

	detected := http.DetectContentType(data)
	decode, ok := accepted[detected]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported image type %s", model.ErrInvalidArgument, detected)
	}

	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", model.ErrInvalidArgument, detected, err)
	}
	img = fit(img, MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	b := img.Bounds()
	return &Picture{Data: buf.Bytes(), MIME: "image/jpeg", Width: b.Dx(), Height: b.Dy()}, nil
}

// fit scales img down so neither side exceeds maxDim, keeping the aspect
// ratio. Smaller pictures are returned as is.
func fit(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := maxDim, maxDim
	if w > h {
		newH = max(1, h*maxDim/w)
	} else {
		newW = max(1, w*maxDim/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
