package books

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/jpeg"

	// Decoders for cover formats found in EPUBs.
	_ "image/gif"
	_ "image/png"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

const (
	coverMaxWidth  = 240
	coverMaxHeight = 360
)

// coverDataURL decodes an image, shrinks it to fit the thumbnail bounds and
// returns it as an inline JPEG data URL.
func coverDataURL(data []byte) (string, error) {
	srcImg, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", errors.WithStack(err)
	}

	srcBounds := srcImg.Bounds()
	targetW, targetH := fitDimensions(srcBounds.Dx(), srcBounds.Dy(), coverMaxWidth, coverMaxHeight)

	dstImg := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.BiLinear.Scale(dstImg, dstImg.Bounds(), srcImg, srcBounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dstImg, &jpeg.Options{Quality: 80}); err != nil {
		return "", errors.WithStack(err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// fitDimensions scales (w, h) down to fit within (maxW, maxH), keeping the
// aspect ratio. Images that already fit are left alone.
func fitDimensions(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return 1, 1
	}
	if w <= maxW && h <= maxH {
		return w, h
	}
	ratio := float64(maxW) / float64(w)
	if hr := float64(maxH) / float64(h); hr < ratio {
		ratio = hr
	}
	tw := int(float64(w) * ratio)
	th := int(float64(h) * ratio)
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}
	return tw, th
}
