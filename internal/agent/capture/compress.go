package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"

	// registered decoders for the formats cameras hand us
	_ "image/png"
)

// CompressOptions bound the photo payload so it fits constrained on-device
// quotas. Zero values are replaced by defaults.
type CompressOptions struct {
	// TargetBytes is the size ceiling the encoder converges to.
	TargetBytes int

	// MaxDimension is the bounding box (longest side) the photo is scaled
	// into before encoding.
	MaxDimension int

	// InitialQuality, MinQuality and QualityStep drive the quality descent.
	InitialQuality int
	MinQuality     int
	QualityStep    int

	// ScaleStep is the resolution reduction factor applied once the quality
	// floor is reached.
	ScaleStep float64

	// MaxIterations caps the encode loop.
	MaxIterations int

	// ThumbDimension is the bounding box for the preview thumbnail.
	ThumbDimension int
}

func (o CompressOptions) withDefaults() CompressOptions {
	if o.TargetBytes == 0 {
		o.TargetBytes = 300 << 10
	}
	if o.MaxDimension == 0 {
		o.MaxDimension = 1600
	}
	if o.InitialQuality == 0 {
		o.InitialQuality = 85
	}
	if o.MinQuality == 0 {
		o.MinQuality = 40
	}
	if o.QualityStep == 0 {
		o.QualityStep = 10
	}
	if o.ScaleStep == 0 {
		o.ScaleStep = 0.75
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = 12
	}
	if o.ThumbDimension == 0 {
		o.ThumbDimension = 200
	}
	return o
}

// Compress decodes raw camera bytes and re-encodes them as a JPEG at or below
// the target size: scale into the bounding box, walk quality down to the
// floor, then reduce resolution. If the loop cap is reached without meeting
// the target, the smallest result seen is returned rather than failing the
// capture. A small preview thumbnail is produced alongside.
func Compress(raw []byte, opts CompressOptions) (photo, thumb []byte, err error) {
	opts = opts.withDefaults()

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode image: %w", err)
	}

	scaled := scaleToFit(src, opts.MaxDimension)
	quality := opts.InitialQuality

	var best []byte
	for i := 0; i < opts.MaxIterations; i++ {
		encoded, err := encodeJPEG(scaled, quality)
		if err != nil {
			return nil, nil, err
		}
		if best == nil || len(encoded) < len(best) {
			best = encoded
		}
		if len(encoded) <= opts.TargetBytes {
			photo = encoded
			break
		}

		if quality-opts.QualityStep >= opts.MinQuality {
			quality -= opts.QualityStep
			continue
		}

		// quality floor reached: drop resolution instead
		b := scaled.Bounds()
		w := int(float64(b.Dx()) * opts.ScaleStep)
		h := int(float64(b.Dy()) * opts.ScaleStep)
		if w < 1 || h < 1 {
			break
		}
		scaled = resample(scaled, w, h)
	}

	if photo == nil {
		photo = best
	}

	thumbImg := scaleToFit(src, opts.ThumbDimension)
	thumb, err = encodeJPEG(thumbImg, 75)
	if err != nil {
		return nil, nil, err
	}

	return photo, thumb, nil
}

// scaleToFit scales img so its longest side is at most maxDim, preserving
// aspect ratio. Images already inside the box are returned unchanged.
func scaleToFit(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	if w >= h {
		h = h * maxDim / w
		w = maxDim
	} else {
		w = w * maxDim / h
		h = maxDim
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return resample(img, w, h)
}

func resample(img image.Image, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
