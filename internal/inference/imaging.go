package inference

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultMaxPixels caps decoded image area.
const DefaultMaxPixels = 40_000_000

// ErrMalformedImage is wrapped when an upload is not a decodable image.
var ErrMalformedImage = errors.New("malformed image")

// decodeImage decodes rs, rejecting images above maxPixels before any pixel
// data is allocated.
func decodeImage(rs io.ReadSeeker, maxPixels int) (image.Image, string, error) {
	cfg, format, err := image.DecodeConfig(rs)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrMalformedImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", fmt.Errorf("%w: empty %s image", ErrMalformedImage, format)
	}
	if maxPixels > 0 && cfg.Width*cfg.Height > maxPixels {
		return nil, "", fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrMalformedImage, cfg.Width, cfg.Height, maxPixels)
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, "", err
	}
	img, format, err := image.Decode(rs)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrMalformedImage, err)
	}
	return img, format, nil
}

// resize scales img to w x h with bilinear interpolation into an NRGBA
// canvas, dropping any alpha premultiplication.
func resize(img image.Image, w, h int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// gridFeatures averages the normalized RGB channels of img over a
// grid x grid lattice. Cells are emitted row-major with channels
// interleaved, so the result has grid*grid*3 entries.
func gridFeatures(img *image.NRGBA, grid int) []float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]float64, 0, grid*grid*3)
	for cy := 0; cy < grid; cy++ {
		y0, y1 := b.Min.Y+cy*h/grid, b.Min.Y+(cy+1)*h/grid
		for cx := 0; cx < grid; cx++ {
			x0, x1 := b.Min.X+cx*w/grid, b.Min.X+(cx+1)*w/grid
			var r, g, bl float64
			for y := y0; y < y1; y++ {
				row := img.Pix[img.PixOffset(x0, y):img.PixOffset(x1, y)]
				for i := 0; i < len(row); i += 4 {
					r += float64(row[i])
					g += float64(row[i+1])
					bl += float64(row[i+2])
				}
			}
			n := float64((x1 - x0) * (y1 - y0) * 255)
			out = append(out, r/n, g/n, bl/n)
		}
	}
	return out
}
