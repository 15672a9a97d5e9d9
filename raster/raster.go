// Package raster holds single-channel integer images and splits them into
// fixed-size tiles for block coding.
package raster

import (
	"github.com/pkg/errors"

	"github.com/egonelbre/exp-raster-compression/arithcode"
)

// Fill is the value of tile cells that fall outside the raster.
const Fill = 0

// Raster is a grid of intensities in row-major order.
type Raster struct {
	Width    int
	Height   int
	MaxValue int
	Pix      []int
}

// New returns a zero raster.
func New(width, height, maxValue int) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(arithcode.ErrConfiguration, "raster size %dx%d", width, height)
	}
	if maxValue < 0 || maxValue > arithcode.MaxSymbol {
		return nil, errors.Errorf("max value %d outside [0, %d]", maxValue, arithcode.MaxSymbol)
	}
	return &Raster{
		Width:    width,
		Height:   height,
		MaxValue: maxValue,
		Pix:      make([]int, width*height),
	}, nil
}

func (r *Raster) At(x, y int) int {
	return r.Pix[y*r.Width+x]
}

func (r *Raster) Set(x, y, v int) {
	r.Pix[y*r.Width+x] = v
}

// Check verifies that the pixel buffer matches the size and that every value
// is within [0, MaxValue].
func (r *Raster) Check() error {
	if len(r.Pix) != r.Width*r.Height {
		return errors.Errorf("raster %dx%d holds %d pixels", r.Width, r.Height, len(r.Pix))
	}
	for i, v := range r.Pix {
		if v < 0 || v > r.MaxValue {
			return errors.Errorf("pixel (%d, %d) = %d outside [0, %d]", i%r.Width, i/r.Width, v, r.MaxValue)
		}
	}
	return nil
}

// Equal reports whether both rasters have the same size and pixels.
func (r *Raster) Equal(other *Raster) bool {
	if r.Width != other.Width || r.Height != other.Height || len(r.Pix) != len(other.Pix) {
		return false
	}
	for i := range r.Pix {
		if r.Pix[i] != other.Pix[i] {
			return false
		}
	}
	return true
}
