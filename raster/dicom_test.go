package raster_test

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/egonelbre/exp-raster-compression/blockcodec"
	"github.com/egonelbre/exp-raster-compression/raster"
)

// writeDICOM writes a 12 bit monochrome image with explicit little endian
// native pixel data.
func writeDICOM(t *testing.T, path string, cols, rows int, pix []int) {
	t.Helper()

	data := make([][]int, len(pix))
	for i, v := range pix {
		data[i] = []int{v}
	}
	pixelData := dicom.PixelDataInfo{
		Frames: []*frame.Frame{{
			NativeData: frame.NativeFrame{
				Data:          data,
				Rows:          rows,
				Cols:          cols,
				BitsPerSample: 16,
			},
		}},
	}

	values := []struct {
		tag   tag.Tag
		value any
	}{
		{tag.FileMetaInformationVersion, []byte{0, 1}},
		{tag.MediaStorageSOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.7"}},
		{tag.MediaStorageSOPInstanceUID, []string{"1.2.3.4.5.6.7.8.9"}},
		{tag.TransferSyntaxUID, []string{"1.2.840.10008.1.2.1"}},
		{tag.SamplesPerPixel, []int{1}},
		{tag.PhotometricInterpretation, []string{"MONOCHROME2"}},
		{tag.Rows, []int{rows}},
		{tag.Columns, []int{cols}},
		{tag.BitsAllocated, []int{16}},
		{tag.BitsStored, []int{12}},
		{tag.HighBit, []int{11}},
		{tag.PixelRepresentation, []int{0}},
		{tag.PixelData, pixelData},
	}

	var ds dicom.Dataset
	for _, v := range values {
		elem, err := dicom.NewElement(v.tag, v.value)
		if err != nil {
			t.Fatalf("NewElement(%v) failed: %v", v.tag, err)
		}
		ds.Elements = append(ds.Elements, elem)
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer f.Close()

	if err := dicom.Write(f, ds,
		dicom.SkipVRVerification(),
		dicom.SkipValueTypeVerification(),
	); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestReadDICOM(t *testing.T) {
	const cols, rows = 7, 5
	rng := rand.New(rand.NewSource(12))
	pix := make([]int, cols*rows)
	for i := range pix {
		pix[i] = rng.Intn(4096)
	}
	pix[0], pix[1] = 0, 4095

	dir := t.TempDir()
	path := filepath.Join(dir, "scan.dcm")
	writeDICOM(t, path, cols, rows, pix)

	img, err := raster.ReadDICOM(path)
	if err != nil {
		t.Fatalf("ReadDICOM failed: %+v", err)
	}
	want := &raster.Raster{Width: cols, Height: rows, MaxValue: 4095, Pix: pix}
	if !img.Equal(want) || img.MaxValue != want.MaxValue {
		t.Fatalf("ReadDICOM = %dx%d max %d, expected %dx%d max %d",
			img.Width, img.Height, img.MaxValue, cols, rows, want.MaxValue)
	}

	// files without an extension are recognized by the magic bytes
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	noext := filepath.Join(dir, "scan")
	if err := os.WriteFile(noext, raw, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	for _, p := range []string{path, noext} {
		loaded, err := raster.Load(p)
		if err != nil {
			t.Fatalf("Load(%s) failed: %+v", p, err)
		}
		if !loaded.Equal(want) {
			t.Errorf("Load(%s) differs from ReadDICOM", p)
		}
	}

	cfg := blockcodec.Config{Width: img.Width, Height: img.Height, Tile: raster.Square(3), MaxValue: img.MaxValue}
	encoded, err := blockcodec.Encode(img, cfg)
	if err != nil {
		t.Fatalf("Encode failed: %+v", err)
	}
	decoded, err := blockcodec.Decode(encoded, cfg)
	if err != nil {
		t.Fatalf("Decode failed: %+v", err)
	}
	if !decoded.Equal(img) || decoded.MaxValue != img.MaxValue {
		t.Errorf("Decode(Encode(dicom)) differs from the image")
	}
}
