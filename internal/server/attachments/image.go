package attachments

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"net/http"

	"github.com/dmitrijs2005/shipledger/internal/common"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// MaxAttachmentSize is the largest accepted upload, before normalization.
const MaxAttachmentSize = 5 << 20

// MaxPixels caps width*height as declared in the image header. Decoding
// allocates for the declared size, not the compressed one.
const MaxPixels = 50_000_000

const jpegQuality = 85

// extensions maps the accepted sniffed content types to object key suffixes.
var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// Normalized is an image ready to be stored.
type Normalized struct {
	Data        []byte
	ContentType string
	Ext         string
	Width       int
	Height      int
}

// Normalize validates data as an accepted image and downscales it so that
// neither side exceeds maxDim (0 disables resizing). The content type is
// sniffed from the bytes; whatever the client declared is ignored.
// Downscaled WebP is re-encoded as PNG since there is no WebP encoder.
func Normalize(data []byte, maxDim int) (*Normalized, error) {
	if len(data) > MaxAttachmentSize {
		return nil, common.ErrAttachmentTooLarge
	}
	if len(data) == 0 {
		return nil, common.ErrUnsupportedMediaType
	}

	contentType := http.DetectContentType(data)
	ext, ok := extensions[contentType]
	if !ok {
		return nil, common.ErrUnsupportedMediaType
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, common.ErrUnsupportedMediaType
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, common.ErrUnsupportedMediaType
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, common.ErrImageDimensions
	}

	n := &Normalized{Data: data, ContentType: contentType, Ext: ext, Width: cfg.Width, Height: cfg.Height}
	if maxDim <= 0 || (cfg.Width <= maxDim && cfg.Height <= maxDim) {
		return n, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, common.ErrUnsupportedMediaType
	}

	w, h := fitWithin(cfg.Width, cfg.Height, maxDim)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	switch contentType {
	case "image/jpeg":
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality})
	case "image/gif":
		err = gif.Encode(&buf, dst, nil)
	default:
		err = png.Encode(&buf, dst)
		n.ContentType, n.Ext = "image/png", "png"
	}
	if err != nil {
		return nil, err
	}

	n.Data, n.Width, n.Height = buf.Bytes(), w, h
	return n, nil
}

// fitWithin scales w×h down so the longer side equals maxDim.
func fitWithin(w, h, maxDim int) (int, int) {
	if w >= h {
		nh := h * maxDim / w
		if nh < 1 {
			nh = 1
		}
		return maxDim, nh
	}
	nw := w * maxDim / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxDim
}
