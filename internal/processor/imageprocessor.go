// imageprocessor.go - Screenshot preparation before upload to the OCR provider

package processor

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// OCR.space free tier rejects files over 1 MB.
const (
	DefaultMaxUploadBytes = 1 << 20
	DefaultMaxDimension   = 2000
)

// minDimension stops the downscale loop before text becomes unreadable.
const minDimension = 600

var jpegQualities = []int{90, 80, 70, 60}

// UploadOptions controls how local screenshots are shrunk before upload.
type UploadOptions struct {
	Enabled      bool
	MaxBytes     int
	MaxDimension int
}

// DefaultUploadOptions returns the settings used when nothing is configured.
func DefaultUploadOptions() UploadOptions {
	return UploadOptions{
		Enabled:      true,
		MaxBytes:     DefaultMaxUploadBytes,
		MaxDimension: DefaultMaxDimension,
	}
}

// PreparedImage is the payload sent to the provider.
type PreparedImage struct {
	Data []byte
	// Original is the content as read, before any re-encoding.
	Original     []byte
	FileName     string
	MIMEType     string
	OriginalSize int
	Resized      bool
	Width        int
	Height       int
	// Note explains why an oversized image was sent unchanged.
	Note string
}

// PrepareUpload reads the screenshot at path and, when it exceeds opts.MaxBytes,
// downscales and re-encodes it as JPEG. Read errors are returned as-is so
// callers can detect os.ErrNotExist.
func PrepareUpload(path string, opts UploadOptions) (*PreparedImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return PrepareUploadBytes(filepath.Base(path), data, opts), nil
}

// PrepareUploadBytes is PrepareUpload for content already in memory.
// Images that cannot be decoded are passed through unchanged.
func PrepareUploadBytes(name string, data []byte, opts UploadOptions) *PreparedImage {
	prepared := &PreparedImage{
		Data:         data,
		Original:     data,
		FileName:     name,
		MIMEType:     detectMIMEType(name, data),
		OriginalSize: len(data),
	}
	if !opts.Enabled || opts.MaxBytes <= 0 || len(data) <= opts.MaxBytes {
		return prepared
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		prepared.Note = fmt.Sprintf("image not decodable, sent unchanged: %v", err)
		return prepared
	}

	maxDim := opts.MaxDimension
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}

	encoded, bounds, err := shrink(img, maxDim, opts.MaxBytes)
	if err != nil {
		prepared.Note = fmt.Sprintf("re-encode failed, sent unchanged: %v", err)
		return prepared
	}
	if len(encoded) >= len(data) {
		prepared.Note = "re-encoded image was not smaller, sent unchanged"
		return prepared
	}

	prepared.Data = encoded
	prepared.MIMEType = "image/jpeg"
	prepared.FileName = strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg"
	prepared.Resized = true
	prepared.Width = bounds.Dx()
	prepared.Height = bounds.Dy()
	return prepared
}

// shrink fits img into maxDim, then steps JPEG quality down and halves the
// dimension until the encoding fits maxBytes or minDimension is reached.
// The smallest encoding produced is returned either way.
func shrink(img image.Image, maxDim, maxBytes int) ([]byte, image.Rectangle, error) {
	var best []byte
	var bestBounds image.Rectangle

	for dim := maxDim; ; dim /= 2 {
		resized := image.Image(img)
		b := img.Bounds()
		if b.Dx() > dim || b.Dy() > dim {
			resized = imaging.Fit(img, dim, dim, imaging.Lanczos)
		}

		for _, quality := range jpegQualities {
			var buf bytes.Buffer
			if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: quality}); err != nil {
				return nil, image.Rectangle{}, fmt.Errorf("failed to encode image: %w", err)
			}
			if best == nil || buf.Len() < len(best) {
				best = buf.Bytes()
				bestBounds = resized.Bounds()
			}
			if buf.Len() <= maxBytes {
				return best, bestBounds, nil
			}
		}

		if dim/2 < minDimension {
			return best, bestBounds, nil
		}
	}
}

func detectMIMEType(name string, data []byte) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".bmp":
		return "image/bmp"
	}
	return http.DetectContentType(data)
}
