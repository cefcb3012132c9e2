// Package images - decoding of dataset image files into dense tensors.
package images

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	"gorgonia.org/tensor"
)

// ReadMode selects how an image file is decoded.
type ReadMode int

const (
	// ReadColor decodes into a 3-channel RGB tensor.
	ReadColor ReadMode = iota
	// ReadGrayscale decodes into a single-channel tensor.
	ReadGrayscale
)

// ReadTensor decodes the image file at path into a CHW float32 tensor holding
// raw 0-255 pixel values.
//
// Arguments:
// - path: Path to the image file.
// - mode: ReadColor for a [3, H, W] RGB tensor, ReadGrayscale for [1, H, W].
//
// Returns:
// - *tensor.Dense: The decoded tensor.
// - error: Error if the file is missing or cannot be decoded.
func ReadTensor(path string, mode ReadMode) (*tensor.Dense, error) {
	flag := gocv.IMReadColor
	if mode == ReadGrayscale {
		flag = gocv.IMReadGrayScale
	}

	mat := gocv.IMRead(path, flag)
	if mat.Empty() {
		return nil, errors.Errorf("failed to decode image %q", path)
	}
	defer mat.Close()

	if mode == ReadColor {
		// IMRead yields BGR; the dataset contract is RGB.
		gocv.CvtColor(mat, &mat, gocv.ColorBGRToRGB)
	}

	return matToCHW(mat), nil
}

// matToCHW converts an interleaved HWC Mat into a planar CHW float32 tensor.
func matToCHW(mat gocv.Mat) *tensor.Dense {
	height := mat.Rows()
	width := mat.Cols()
	channels := mat.Channels()

	data := mat.ToBytes()
	out := make([]float32, channels*height*width)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			for c := 0; c < channels; c++ {
				out[c*height*width+y*width+x] = float32(data[(y*width+x)*channels+c])
			}
		}
	}

	return tensor.New(tensor.WithShape(channels, height, width), tensor.WithBacking(out))
}

// FileDecoder decodes image files from the local filesystem using ReadTensor.
// It is the default decode collaborator of the dataset package.
type FileDecoder struct{}

// Decode implements the dataset decode contract.
func (FileDecoder) Decode(path string, mode ReadMode) (*tensor.Dense, error) {
	return ReadTensor(path, mode)
}
