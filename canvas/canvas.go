// canvas/canvas.go
package canvas

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/draw"
	"image/png"
	"strings"

	"github.com/wfunc/drawserver/logger"
)

const dataURLPrefix = "data:image/png;base64,"

// Compositor combines, overlays, and crops player canvases. Implementations
// must never fail a gameplay transition: a broken input image is replaced
// by a blank frame and the composite continues.
type Compositor interface {
	Combine(images []string) string
	Overlay(images []string, width, height int) string
	Peek(img string, height int) string
	Blank(width, height int) string
}

// PNGCompositor is the stdlib PNG implementation of Compositor. Width and
// Height define the frame used when an input cannot be decoded.
type PNGCompositor struct {
	Width  int
	Height int
}

func NewPNGCompositor(width, height int) *PNGCompositor {
	return &PNGCompositor{Width: width, Height: height}
}

// Blank returns a fully transparent frame of the given size.
func (c *PNGCompositor) Blank(width, height int) string {
	return encode(image.NewRGBA(image.Rect(0, 0, width, height)))
}

// Combine stacks the images vertically in order into one taller composite.
// Inputs that fail to decode contribute a blank frame of the default size.
func (c *PNGCompositor) Combine(images []string) string {
	frames := make([]image.Image, 0, len(images))
	totalHeight, maxWidth := 0, 0
	for _, src := range images {
		frame := c.decodeOrBlank(src)
		frames = append(frames, frame)
		b := frame.Bounds()
		totalHeight += b.Dy()
		if b.Dx() > maxWidth {
			maxWidth = b.Dx()
		}
	}
	if maxWidth == 0 {
		maxWidth, totalHeight = c.Width, c.Height
	}

	out := image.NewRGBA(image.Rect(0, 0, maxWidth, totalHeight))
	y := 0
	for _, frame := range frames {
		b := frame.Bounds()
		dst := image.Rect(0, y, b.Dx(), y+b.Dy())
		draw.Draw(out, dst, frame, b.Min, draw.Over)
		y += b.Dy()
	}
	return encode(out)
}

// Overlay renders all inputs scaled to width x height, composited
// transparently in order.
func (c *PNGCompositor) Overlay(images []string, width, height int) string {
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	for _, src := range images {
		frame := c.decodeOrBlank(src)
		drawScaled(out, frame)
	}
	return encode(out)
}

// Peek returns a frame of the source canvas size containing only the
// bottom height pixels of the source, transparent elsewhere. The strip is
// kept at the top of the output frame so the next drawer continues
// directly below it.
func (c *PNGCompositor) Peek(img string, height int) string {
	frame := c.decodeOrBlank(img)
	b := frame.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	if height > b.Dy() {
		height = b.Dy()
	}
	srcRect := image.Rect(b.Min.X, b.Max.Y-height, b.Max.X, b.Max.Y)
	dstRect := image.Rect(0, 0, b.Dx(), height)
	draw.Draw(out, dstRect, frame, srcRect.Min, draw.Over)
	return encode(out)
}

func (c *PNGCompositor) decodeOrBlank(src string) image.Image {
	frame, err := Decode(src)
	if err != nil {
		if logger.Log != nil {
			logger.Log.Warnf("Canvas decode failed, substituting blank frame: %v", err)
		}
		return image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	}
	return frame
}

// Decode parses a base64 PNG data URL into an image.
func Decode(src string) (image.Image, error) {
	if src == "" {
		return nil, errors.New("empty image data")
	}
	payload := src
	if idx := strings.Index(src, ","); strings.HasPrefix(src, "data:") && idx >= 0 {
		payload = src[idx+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, err
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	return img, nil
}

func encode(img image.Image) string {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		// png.Encode on an in-memory RGBA only fails if the writer does.
		return dataURLPrefix
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes())
}

// drawScaled draws src onto dst stretched to fill dst, nearest neighbour.
func drawScaled(dst *image.RGBA, src image.Image) {
	db, sb := dst.Bounds(), src.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 {
		return
	}
	if db.Dx() == sb.Dx() && db.Dy() == sb.Dy() {
		draw.Draw(dst, db, src, sb.Min, draw.Over)
		return
	}
	for y := 0; y < db.Dy(); y++ {
		sy := sb.Min.Y + y*sb.Dy()/db.Dy()
		for x := 0; x < db.Dx(); x++ {
			sx := sb.Min.X + x*sb.Dx()/db.Dx()
			_, _, _, a := src.At(sx, sy).RGBA()
			if a == 0 {
				continue
			}
			dst.Set(db.Min.X+x, db.Min.Y+y, src.At(sx, sy))
		}
	}
}
