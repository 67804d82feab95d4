package crop

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"time"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

const MIMEType = "image/jpeg"

// Result is the output of a successful commit.
type Result struct {
	Blob           []byte
	MIMEType       string
	PreviewDataURL string
	Filename       string
	Width          int
	Height         int
}

// Rasterize draws the square r of src scaled onto a size x size canvas.
// Canvas pixels that map outside src are left opaque black.
func Rasterize(src image.Image, r Rect, size int) (*image.RGBA, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: no source image", ErrRasterizationFailed)
	}
	sb := src.Bounds()
	if sb.Empty() {
		return nil, fmt.Errorf("%w: source image is empty", ErrRasterizationFailed)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: output size %d", ErrRasterizationFailed, size)
	}
	if !(r.Side > 0) || math.IsInf(r.Side, 0) || math.IsNaN(r.X) || math.IsNaN(r.Y) {
		return nil, fmt.Errorf("%w: invalid source rect %+v", ErrRasterizationFailed, r)
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, xdraw.Src)

	// Source-to-destination transform: translate the rect origin to zero,
	// then scale the rect side to the output size.
	k := float64(size) / r.Side
	s2d := f64.Aff3{
		k, 0, -(r.X + float64(sb.Min.X)) * k,
		0, k, -(r.Y + float64(sb.Min.Y)) * k,
	}
	xdraw.BiLinear.Transform(dst, s2d, src, sb, xdraw.Over, nil)

	return dst, nil
}

// Encode JPEG-encodes img and builds the preview data URL from the same bytes.
func Encode(img image.Image, quality int, now time.Time) (*Result, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRasterizationFailed, err)
	}
	b := img.Bounds()
	blob := buf.Bytes()
	return &Result{
		Blob:           blob,
		MIMEType:       MIMEType,
		PreviewDataURL: "data:" + MIMEType + ";base64," + base64.StdEncoding.EncodeToString(blob),
		Filename:       AvatarFilename(now),
		Width:          b.Dx(),
		Height:         b.Dy(),
	}, nil
}

// AvatarFilename returns the suggested name avatar-<unix-epoch-ms>.jpg.
func AvatarFilename(now time.Time) string {
	return fmt.Sprintf("avatar-%d.jpg", now.UnixMilli())
}
