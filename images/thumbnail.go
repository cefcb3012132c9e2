package images

import (
	"image"
	"image/color"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Thumbnail renders a CHW float32 tensor back into an image.Image and
// downscales it so that neither side exceeds maxSide. Aspect ratio is
// preserved; images already within bounds are returned at full size.
//
// Arguments:
// - t: A [3, H, W] RGB or [1, H, W] grayscale tensor with 0-255 values.
// - maxSide: Maximum width/height of the result in pixels.
//
// Returns:
// - image.Image: The rendered thumbnail.
// - error: Error if the tensor shape or element type is unsupported.
func Thumbnail(t *tensor.Dense, maxSide int) (image.Image, error) {
	shape := t.Shape()
	if len(shape) != 3 {
		return nil, errors.Errorf("expected a CHW tensor, got shape %v", shape)
	}
	channels, height, width := shape[0], shape[1], shape[2]
	if channels != 1 && channels != 3 {
		return nil, errors.Errorf("unsupported channel count %d", channels)
	}
	if maxSide <= 0 {
		return nil, errors.Errorf("invalid thumbnail size %d", maxSide)
	}

	data, ok := t.Data().([]float32)
	if !ok {
		return nil, errors.New("expected a float32 tensor")
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	plane := height * width
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var r, g, b uint8
			if channels == 1 {
				v := clampByte(data[y*width+x])
				r, g, b = v, v, v
			} else {
				r = clampByte(data[0*plane+y*width+x])
				g = clampByte(data[1*plane+y*width+x])
				b = clampByte(data[2*plane+y*width+x])
			}
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}

	return resize.Thumbnail(uint(maxSide), uint(maxSide), img, resize.Lanczos3), nil
}

func clampByte(v float32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
