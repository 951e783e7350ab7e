package imaging

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	domain "github.com/fredericlb/BespokeSynthPatches/internal/domain/patch"
	"github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/metrics"
)

const (
	ThumbnailWidth  = 500
	ThumbnailHeight = 250
	CoverWidth      = 2000
	CoverHeight     = 1000
	jpegQuality     = 80
)

// Deriver renders the thumbnail and cover JPEGs of a patch image.
type Deriver struct {
	log zerolog.Logger
}

func NewDeriver(log zerolog.Logger) *Deriver {
	return &Deriver{log: log.With().Str("component", "image-deriver").Logger()}
}

// Derive decodes the image once and renders both renditions concurrently.
// Each rendition fails on its own and only leaves its field nil.
func (d *Deriver) Derive(ctx context.Context, imagePath string) domain.Renditions {
	var out domain.Renditions

	src, err := imaging.Open(imagePath, imaging.AutoOrientation(true))
	if err != nil {
		d.log.Warn().Err(err).Str("path", imagePath).Msg("could not decode image; no renditions")
		metrics.RecordRendition("thumbnail", "error")
		metrics.RecordRendition("cover", "error")
		return out
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		out.Thumbnail = d.render("thumbnail", imagePath, func() image.Image {
			return Thumbnail(src)
		})
	}()
	go func() {
		defer wg.Done()
		out.Cover = d.render("cover", imagePath, func() image.Image {
			return Cover(src)
		})
	}()
	wg.Wait()

	return out
}

func (d *Deriver) render(kind, imagePath string, draw func() image.Image) (data []byte) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Warn().Interface("panic", r).Str("path", imagePath).Str("rendition", kind).Msg("rendition failed")
			metrics.RecordRendition(kind, "error")
			data = nil
		}
	}()

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, draw(), imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		d.log.Warn().Err(err).Str("path", imagePath).Str("rendition", kind).Msg("rendition failed")
		metrics.RecordRendition(kind, "error")
		return nil
	}
	metrics.RecordRendition(kind, "success")
	return buf.Bytes()
}

// Thumbnail crops src to fill 500x250.
func Thumbnail(src image.Image) image.Image {
	return imaging.Fill(src, ThumbnailWidth, ThumbnailHeight, imaging.Center, imaging.Lanczos)
}

// Cover scales src up or down to fit inside 2000x1000 and letterboxes it on
// black.
func Cover(src image.Image) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	canvas := imaging.New(CoverWidth, CoverHeight, color.Black)
	if w == 0 || h == 0 {
		return canvas
	}

	scale := math.Min(float64(CoverWidth)/float64(w), float64(CoverHeight)/float64(h))
	fw := max(1, int(math.Round(float64(w)*scale)))
	fh := max(1, int(math.Round(float64(h)*scale)))
	fitted := imaging.Resize(src, fw, fh, imaging.Lanczos)
	return imaging.PasteCenter(canvas, fitted)
}
