package application_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// pngOf encodes a w×h uniform PNG padded with trailing zeros to size bytes.
// The decoder stops at IEND, so the padding only changes the byte count.
func pngOf(t *testing.T, w, h, size int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 60, G: 60, B: 60, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	if buf.Len() > size {
		t.Fatalf("encoded %dx%d png is %d bytes, larger than requested %d", w, h, buf.Len(), size)
	}
	return append(buf.Bytes(), make([]byte, size-buf.Len())...)
}
