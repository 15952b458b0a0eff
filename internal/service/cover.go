package service

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	coverMaxWidth    = 600
	coverMaxHeight   = 900
	coverJPEGQuality = 82
	coverWebPQuality = 75
	coverDir         = "covers"
)

// processedCover holds both encodings of a resized cover.
type processedCover struct {
	WebP []byte
	JPEG []byte
}

func processCover(content []byte) (*processedCover, error) {
	if !isAllowedImageMIME(http.DetectContentType(content)) {
		return nil, errInvalidImage
	}
	decoded, format, err := image.Decode(bytes.NewReader(content))
	if err != nil || !isSupportedDecodedFormat(format) {
		return nil, errInvalidImage
	}

	resized := resizeToFit(decoded, coverMaxWidth, coverMaxHeight)
	webpBytes, err := encodeWebP(resized, coverWebPQuality)
	if err != nil {
		return nil, err
	}
	jpegBytes, err := encodeJPEG(resized, coverJPEGQuality)
	if err != nil {
		return nil, err
	}
	return &processedCover{WebP: webpBytes, JPEG: jpegBytes}, nil
}

// coverName is content addressed so a new upload never reuses a cached URL.
func coverName(bookID uint, content []byte) string {
	sum := sha256.Sum256(content)
	return fmt.Sprintf("book-%d-%s", bookID, hex.EncodeToString(sum[:6]))
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 || (w <= maxWidth && h <= maxHeight) {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(mediaType)
}

func isSupportedDecodedFormat(format string) bool {
	switch format {
	case "jpeg", "png", "webp":
		return true
	default:
		return false
	}
}

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
