package inference

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
)

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestGridFeaturesHalves(t *testing.T) {
	img := solid(4, 4, color.Black)
	for y := 0; y < 4; y++ {
		for x := 2; x < 4; x++ {
			img.Set(x, y, color.White)
		}
	}
	got := gridFeatures(img, 2)
	want := []float64{0, 0, 0, 1, 1, 1, 0, 0, 0, 1, 1, 1}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("feature %d = %v, want %v (all: %v)", i, got[i], want[i], got)
		}
	}
}

func TestResizeKeepsSolidColor(t *testing.T) {
	src := solid(37, 19, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	dst := resize(src, 8, 8)
	if dst.Bounds().Dx() != 8 || dst.Bounds().Dy() != 8 {
		t.Fatalf("unexpected bounds %v", dst.Bounds())
	}
	f := gridFeatures(dst, 1)
	for i, want := range []float64{200.0 / 255, 100.0 / 255, 50.0 / 255} {
		if math.Abs(f[i]-want) > 0.01 {
			t.Fatalf("channel %d = %v, want ~%v", i, f[i], want)
		}
	}
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	_, _, err := decodeImage(bytes.NewReader([]byte("definitely not an image")), 0)
	if !errors.Is(err, ErrMalformedImage) {
		t.Fatalf("want ErrMalformedImage, got %v", err)
	}
}

func TestDecodeImageMaxPixels(t *testing.T) {
	data := encodePNG(t, solid(20, 20, color.White))
	if _, _, err := decodeImage(bytes.NewReader(data), 100); !errors.Is(err, ErrMalformedImage) {
		t.Fatalf("want oversize rejection, got %v", err)
	}
	img, format, err := decodeImage(bytes.NewReader(data), 400)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if format != "png" || img.Bounds().Dx() != 20 {
		t.Fatalf("unexpected decode result %s %v", format, img.Bounds())
	}
}
