package raster

import (
	"bytes"
	"errors"
	"io/fs"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadPGM(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"separate max value", "P2\n# made by hand\n3 2\n255\n0 1 2\n253 254 255\n"},
		{"max value on size line", "P2\n3 2 255\n0 1 2\n253 254 255\n"},
		{"comments between rows", "P2\n3 2\n# max\n255\n0 1 2 # first row\n# second row\n253 254 255"},
		{"single line", "P2 3 2 255 0 1 2 253 254 255"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := ReadPGM(strings.NewReader(tt.in))
			if err != nil {
				t.Fatalf("ReadPGM failed: %v", err)
			}
			if img.Width != 3 || img.Height != 2 || img.MaxValue != 255 {
				t.Errorf("header = %dx%d/%d, expected 3x2/255", img.Width, img.Height, img.MaxValue)
			}
			want := &Raster{Width: 3, Height: 2, MaxValue: 255, Pix: []int{0, 1, 2, 253, 254, 255}}
			if !img.Equal(want) {
				t.Errorf("pixels = %v, expected %v", img.Pix, want.Pix)
			}
		})
	}
}

func TestReadPGMErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"binary format", "P5\n1 1\n255\n\x00"},
		{"missing pixels", "P2\n2 2\n255\n1 2 3\n"},
		{"pixel above max", "P2\n1 1\n15\n16\n"},
		{"negative pixel", "P2\n1 1\n15\n-1\n"},
		{"bad token", "P2\n1 x\n15\n1\n"},
		{"zero width", "P2\n0 1\n15\n"},
		{"max value too large", "P2\n1 1\n70000\n1\n"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadPGM(strings.NewReader(tt.in)); err == nil {
				t.Errorf("ReadPGM succeeded, expected an error")
			}
		})
	}
}

func TestPGMRoundtrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	img := randomRaster(t, rng, 17, 5, 65535)

	var buf bytes.Buffer
	if err := WritePGM(&buf, img); err != nil {
		t.Fatalf("WritePGM failed: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "P2\n17 5\n65535\n") {
		t.Errorf("unexpected header %q", buf.String()[:16])
	}

	got, err := ReadPGM(&buf)
	if err != nil {
		t.Fatalf("ReadPGM failed: %v", err)
	}
	if !got.Equal(img) || got.MaxValue != img.MaxValue {
		t.Errorf("round trip differs")
	}
}

func TestPGMFiles(t *testing.T) {
	img := randomRaster(t, rand.New(rand.NewSource(4)), 4, 3, 9)
	path := filepath.Join(t.TempDir(), "img.pgm")

	if err := WritePGMFile(path, img); err != nil {
		t.Fatalf("WritePGMFile failed: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !got.Equal(img) {
		t.Errorf("Load returned a different image")
	}

	if _, err := ReadPGMFile(filepath.Join(t.TempDir(), "missing.pgm")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadPGMFile(missing) = %v, expected a not-exist error", err)
	}
}
