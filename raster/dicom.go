package raster

import (
	"os"

	"github.com/pkg/errors"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// ReadDICOM reads the first frame of a single-channel, uncompressed DICOM
// image. The max value is derived from BitsStored.
func ReadDICOM(path string) (*Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open image")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "stat image")
	}

	ds, err := dicom.Parse(f, info.Size(), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "parse DICOM %s", path)
	}

	rows := intValue(ds, tag.Rows)
	cols := intValue(ds, tag.Columns)
	if samples := intValue(ds, tag.SamplesPerPixel); samples > 1 {
		return nil, errors.Errorf("%s: %d samples per pixel, expected 1", path, samples)
	}
	bits := intValue(ds, tag.BitsStored)
	if bits == 0 {
		bits = intValue(ds, tag.BitsAllocated)
	}
	if bits == 0 {
		bits = 8
	}
	if bits > 16 {
		return nil, errors.Errorf("%s: %d bits per sample, at most 16 supported", path, bits)
	}

	img, err := New(cols, rows, 1<<uint(bits)-1)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}

	pixelElem, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: no pixel data", path)
	}
	pdi, ok := pixelElem.Value.GetValue().(dicom.PixelDataInfo)
	if !ok || len(pdi.Frames) == 0 {
		return nil, errors.Errorf("%s: no pixel frames", path)
	}
	fr := pdi.Frames[0]
	if fr.Encapsulated {
		return nil, errors.Errorf("%s: encapsulated pixel data is not supported", path)
	}
	if len(fr.NativeData.Data) != len(img.Pix) {
		return nil, errors.Errorf("%s: %d pixels for a %dx%d image", path, len(fr.NativeData.Data), cols, rows)
	}

	for i, px := range fr.NativeData.Data {
		if len(px) == 0 {
			continue
		}
		v := px[0]
		if v < 0 || v > img.MaxValue {
			return nil, errors.Errorf("%s: pixel %d = %d outside [0, %d]", path, i, v, img.MaxValue)
		}
		img.Pix[i] = v
	}
	return img, nil
}

// intValue returns the first integer of the element with tag t, or 0.
func intValue(ds dicom.Dataset, t tag.Tag) int {
	elem, err := ds.FindElementByTag(t)
	if err != nil || elem == nil || elem.Value == nil {
		return 0
	}

	switch v := elem.Value.GetValue().(type) {
	case []int:
		if len(v) > 0 {
			return v[0]
		}
	case int:
		return v
	case []uint16:
		if len(v) > 0 {
			return int(v[0])
		}
	case uint16:
		return int(v)
	}
	return 0
}
