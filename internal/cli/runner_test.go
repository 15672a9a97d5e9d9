package cli

import (
	"bytes"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/egonelbre/exp-raster-compression/arithcode"
	"github.com/egonelbre/exp-raster-compression/blockcodec"
	"github.com/egonelbre/exp-raster-compression/codestore"
	"github.com/egonelbre/exp-raster-compression/raster"
)

func writeImage(t *testing.T, path string, seed int64, width, height, maxValue int) *raster.Raster {
	t.Helper()
	img, err := raster.New(width, height, maxValue)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	rng := rand.New(rand.NewSource(seed))
	for i := range img.Pix {
		img.Pix[i] = rng.Intn(maxValue + 1)
	}
	if err := raster.WritePGMFile(path, img); err != nil {
		t.Fatalf("WritePGMFile failed: %v", err)
	}
	return img
}

func TestRunRoundtrip(t *testing.T) {
	for _, c := range codestore.Containers {
		t.Run(string(c), func(t *testing.T) {
			dir := t.TempDir()
			img := writeImage(t, filepath.Join(dir, "in.pgm"), 1, 9, 7, 255)

			var out bytes.Buffer
			err := Run(Options{
				Path:        filepath.Join(dir, "in.pgm"),
				CodedPath:   filepath.Join(dir, "coded.txt"),
				DecodedPath: filepath.Join(dir, "out.pgm"),
				Tile:        raster.Square(2),
				Container:   c,
				Output:      &out,
			})
			if err != nil {
				t.Fatalf("Run failed: %+v", err)
			}

			got, err := raster.ReadPGMFile(filepath.Join(dir, "out.pgm"))
			if err != nil {
				t.Fatalf("ReadPGMFile failed: %v", err)
			}
			if !got.Equal(img) || got.MaxValue != img.MaxValue {
				t.Errorf("decoded image differs from the original")
			}
			if !strings.Contains(out.String(), "compression ratio") {
				t.Errorf("report %q has no compression ratio", out.String())
			}
		})
	}
}

func TestRunEncodeThenDecode(t *testing.T) {
	dir := t.TempDir()
	img := writeImage(t, filepath.Join(dir, "in.pgm"), 2, 10, 5, 1023)
	coded := filepath.Join(dir, "coded.txt")

	base := Options{
		CodedPath:   coded,
		DecodedPath: filepath.Join(dir, "out.pgm"),
		Tile:        raster.TileSize{Width: 4, Height: 3},
		Precision:   120,
		Container:   codestore.Zstd,
		Output:      &bytes.Buffer{},
	}

	enc := base
	enc.Mode = EncodeOnly
	enc.Path = filepath.Join(dir, "in.pgm")
	if err := Run(enc); err != nil {
		t.Fatalf("encode failed: %+v", err)
	}
	if _, err := os.Stat(base.DecodedPath); !os.IsNotExist(err) {
		t.Errorf("encode mode wrote a decoded image")
	}

	dec := base
	dec.Mode = DecodeOnly
	dec.Path = coded
	dec.Width, dec.Height, dec.MaxValue = img.Width, img.Height, img.MaxValue
	if err := Run(dec); err != nil {
		t.Fatalf("decode failed: %+v", err)
	}

	got, err := raster.ReadPGMFile(base.DecodedPath)
	if err != nil {
		t.Fatalf("ReadPGMFile failed: %v", err)
	}
	if !got.Equal(img) || got.MaxValue != img.MaxValue {
		t.Errorf("decoded image differs from the original")
	}

	dec.Width = 20
	if err := Run(dec); !errors.Is(err, arithcode.ErrConfiguration) {
		t.Errorf("decode with wrong width = %v, expected ErrConfiguration", err)
	}
	dec.Width = 0
	if err := Run(dec); !errors.Is(err, arithcode.ErrConfiguration) {
		t.Errorf("decode without width = %v, expected ErrConfiguration", err)
	}
}

func TestRunDirectory(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "a.pgm"), 3, 4, 4, 15)
	writeImage(t, filepath.Join(dir, "b.pgm"), 4, 5, 3, 255)
	writeImage(t, filepath.Join(dir, "b.PGM"), 5, 2, 6, 7)
	if err := os.WriteFile(filepath.Join(dir, "broken.pgm"), []byte("P5\n1 1\n255\n\x00"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	var out bytes.Buffer
	err := Run(Options{Dir: dir, Tile: raster.Square(2), Container: codestore.Gzip, Output: &out})
	if err == nil || !strings.Contains(err.Error(), "1 of 4 images failed") {
		t.Fatalf("Run = %v, expected one failed image", err)
	}

	// images sharing a base name keep separate streams
	for _, name := range []string{"a.pgm", "b.pgm", "b.PGM"} {
		coded := filepath.Join(dir, name+CodedExt)
		if _, err := os.Stat(coded); err != nil {
			t.Errorf("missing %s: %v", coded, err)
			continue
		}
		img, err := raster.ReadPGMFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("ReadPGMFile failed: %v", err)
		}
		cfg := blockcodec.Config{Width: img.Width, Height: img.Height, Tile: raster.Square(2), MaxValue: img.MaxValue}
		encoded, err := codestore.ReadFile(coded, codestore.Layout{
			Blocks:     cfg.BlockCount(),
			BlockArea:  cfg.Tile.Area(),
			MaxCodeLen: cfg.MaxCodeLen(),
		})
		if err != nil {
			t.Fatalf("%s: ReadFile failed: %v", name, err)
		}
		got, err := blockcodec.Decode(encoded, cfg)
		if err != nil {
			t.Fatalf("%s: Decode failed: %v", name, err)
		}
		if !got.Equal(img) {
			t.Errorf("%s: stream decodes to another image", name)
		}
	}
	if got := strings.Count(out.String(), "compression ratio"); got != 3 {
		t.Errorf("report has %d ratios, expected 3:\n%s", got, out.String())
	}
}

func TestRunInvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"no path", Options{Tile: raster.Square(2)}},
		{"empty tile", Options{Path: "in.pgm"}},
		{"unknown mode", Options{Path: "in.pgm", Tile: raster.Square(2), Mode: "compress"}},
		{"decode directory", Options{Dir: ".", Tile: raster.Square(2), Mode: DecodeOnly}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Run(tt.opts); !errors.Is(err, arithcode.ErrConfiguration) {
				t.Errorf("Run = %v, expected ErrConfiguration", err)
			}
		})
	}
}

func TestCompressionRatio(t *testing.T) {
	dir := t.TempDir()
	original := filepath.Join(dir, "original")
	coded := filepath.Join(dir, "coded")
	empty := filepath.Join(dir, "empty")

	if err := os.WriteFile(original, make([]byte, 300), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := os.WriteFile(coded, make([]byte, 120), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	ratio, err := CompressionRatio(original, coded)
	if err != nil {
		t.Fatalf("CompressionRatio failed: %v", err)
	}
	if ratio != 2.5 {
		t.Errorf("CompressionRatio = %v, expected 2.5", ratio)
	}

	if _, err := CompressionRatio(original, empty); err == nil {
		t.Errorf("CompressionRatio of an empty coded file succeeded")
	}
	if _, err := CompressionRatio(original, filepath.Join(dir, "missing")); err == nil {
		t.Errorf("CompressionRatio of a missing file succeeded")
	}
}
