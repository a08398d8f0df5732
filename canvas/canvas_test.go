package canvas

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// opaqueFrame builds a solid data URL frame for peek geometry tests.
func opaqueFrame(w, h int) string {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestBlank_Dimensions(t *testing.T) {
	c := NewPNGCompositor(100, 80)

	img, err := Decode(c.Blank(100, 80))
	if err != nil {
		t.Fatalf("Blank produced undecodable image: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 80 {
		t.Errorf("Expected 100x80 blank, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}

	_, _, _, a := img.At(50, 40).RGBA()
	if a != 0 {
		t.Error("Blank frame should be fully transparent")
	}
}

func TestCombine_StacksVertically(t *testing.T) {
	c := NewPNGCompositor(100, 80)
	blank := c.Blank(100, 80)

	composite := c.Combine([]string{blank, blank, blank, blank})

	img, err := Decode(composite)
	if err != nil {
		t.Fatalf("Combine produced undecodable image: %v", err)
	}
	if img.Bounds().Dx() != 100 {
		t.Errorf("Expected composite width 100, got %d", img.Bounds().Dx())
	}
	if img.Bounds().Dy() != 320 {
		t.Errorf("Expected composite height 320 (4 stacked frames), got %d", img.Bounds().Dy())
	}

	_, _, _, a := img.At(10, 200).RGBA()
	if a != 0 {
		t.Error("Combining blank frames should yield a blank composite")
	}
}

func TestCombine_BrokenInputUsesBlankFrame(t *testing.T) {
	c := NewPNGCompositor(100, 80)

	composite := c.Combine([]string{"not-a-png", c.Blank(100, 80)})

	img, err := Decode(composite)
	if err != nil {
		t.Fatalf("Combine with a broken input must still produce an image: %v", err)
	}
	if img.Bounds().Dy() != 160 {
		t.Errorf("Broken input should contribute a default-size frame; got height %d", img.Bounds().Dy())
	}
}

func TestOverlay_FrameSize(t *testing.T) {
	c := NewPNGCompositor(100, 80)

	out := c.Overlay([]string{c.Blank(50, 40), opaqueFrame(100, 80)}, 200, 160)

	img, err := Decode(out)
	if err != nil {
		t.Fatalf("Overlay produced undecodable image: %v", err)
	}
	if img.Bounds().Dx() != 200 || img.Bounds().Dy() != 160 {
		t.Errorf("Expected 200x160 overlay, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}

	_, _, _, a := img.At(100, 80).RGBA()
	if a == 0 {
		t.Error("Opaque input should be visible in the overlay")
	}
}

func TestPeek_KeepsOnlyBottomStrip(t *testing.T) {
	c := NewPNGCompositor(10, 10)

	peeked := c.Peek(opaqueFrame(10, 10), 3)

	img, err := Decode(peeked)
	if err != nil {
		t.Fatalf("Peek produced undecodable image: %v", err)
	}
	if img.Bounds().Dx() != 10 || img.Bounds().Dy() != 10 {
		t.Errorf("Peek must keep the source frame size, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}

	_, _, _, topAlpha := img.At(5, 1).RGBA()
	if topAlpha == 0 {
		t.Error("Peek strip should be visible at the top of the frame")
	}
	_, _, _, bottomAlpha := img.At(5, 8).RGBA()
	if bottomAlpha != 0 {
		t.Error("Pixels outside the peek strip should be transparent")
	}
}

func TestPeek_BrokenInputYieldsBlank(t *testing.T) {
	c := NewPNGCompositor(10, 10)

	img, err := Decode(c.Peek("garbage", 3))
	if err != nil {
		t.Fatalf("Peek on broken input must still produce an image: %v", err)
	}
	if img.Bounds().Dx() != 10 || img.Bounds().Dy() != 10 {
		t.Errorf("Expected default frame size, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}
