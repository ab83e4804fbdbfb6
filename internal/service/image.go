// Package service orchestrates repositories, blob storage, and caching
// behind the account and directory surfaces.
package service

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // register decoders for the allowed upload formats
	"image/jpeg"
	_ "image/png"
	"net/http"
	"strings"

	"localmade/internal/models"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	maxImageDimension = 2048
	jpegQuality       = 82
	webpQuality       = 70
	maxUploadBytes    = 10 * 1024 * 1024
)

// normalizedImage is the stored form of an upload: a bounded JPEG master plus
// a WebP rendition for display.
type normalizedImage struct {
	JPEG []byte
	WebP []byte
	Ext  string
}

// normalizeImage validates the upload and re-encodes it. Re-encoding strips
// whatever the original container carried and bounds the dimensions.
func normalizeImage(content []byte, ext string) (*normalizedImage, error) {
	if len(content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if len(content) > maxUploadBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", maxUploadBytes/(1024*1024)))
	}

	if !isAllowedImageMIME(http.DetectContentType(content)) {
		return nil, models.NewValidationError("Invalid image type")
	}

	decoded, format, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	if !isSupportedFormat(format) {
		return nil, models.NewValidationError("Unsupported image format")
	}
	if e := strings.ToLower(strings.TrimPrefix(ext, ".")); e != "" && !isSupportedFormat(e) {
		return nil, models.NewValidationError("Unsupported image extension")
	}

	master := resizeToFit(decoded, maxImageDimension, maxImageDimension)

	jpegBytes, err := encodeJPEG(master, jpegQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	webpBytes, err := encodeWebP(master, webpQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	return &normalizedImage{JPEG: jpegBytes, WebP: webpBytes, Ext: "jpg"}, nil
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
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
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}
