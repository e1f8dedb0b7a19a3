package service

import (
	"bytes"
	"context"
	"fmt"
	"image"

	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder

	"grapevine/internal/models"
	"grapevine/internal/storage"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	maxImageBytes = 10 << 20
	maxDimension  = 1600
	webpQuality   = 82
)

// ImageService normalizes uploaded images: decode, downscale, re-encode as
// WebP and hand the result to the object store.
type ImageService struct {
	store storage.ObjectStore
}

// NewImageService returns an image service writing to the given store.
func NewImageService(store storage.ObjectStore) *ImageService {
	return &ImageService{store: store}
}

// Process validates, normalizes and stores an uploaded image, returning the
// storage reference.
func (s *ImageService) Process(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", models.NewValidationError("Image is empty")
	}
	if len(data) > maxImageBytes {
		return "", models.NewValidationError("Image exceeds the 10MB limit")
	}

	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", models.NewValidationError("Unsupported or corrupt image")
	}

	resized := resizeToFit(decoded, maxDimension, maxDimension)

	buf := new(bytes.Buffer)
	if err := webp.Encode(buf, resized, &webp.Options{Quality: webpQuality}); err != nil {
		return "", models.NewInternalError(fmt.Errorf("webp encode: %w", err))
	}

	ref, err := s.store.Store(ctx, buf.Bytes(), "image/webp")
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return ref, nil
}

// Remove deletes a stored image. Best effort; callers log failures.
func (s *ImageService) Remove(ctx context.Context, ref string) error {
	return s.store.Remove(ctx, ref)
}

// URLFor resolves a storage reference to its public URL.
func (s *ImageService) URLFor(ref string) string {
	return s.store.URLFor(ref)
}

// resizeToFit scales src down to fit within the given bounds, preserving
// aspect ratio. Images already within bounds are returned unchanged.
func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}

	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}
