// Package cli drives the raster codec from the command line.
package cli

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/pkg/errors"

	"github.com/egonelbre/exp-raster-compression/arithcode"
	"github.com/egonelbre/exp-raster-compression/blockcodec"
	"github.com/egonelbre/exp-raster-compression/codestore"
	"github.com/egonelbre/exp-raster-compression/raster"
)

// Mode selects what Run does with its input.
type Mode string

const (
	// Roundtrip encodes an image, decodes the stream again and reports the
	// compression ratio.
	Roundtrip Mode = "roundtrip"
	// EncodeOnly writes the code stream of an image.
	EncodeOnly Mode = "encode"
	// DecodeOnly rebuilds an image from a code stream.
	DecodeOnly Mode = "decode"
)

// CodedExt is appended to the full name of images coded in directory mode,
// so a.pgm and a.dcm get separate streams.
const CodedExt = ".coded"

// Options holds CLI configuration options
type Options struct {
	// Path is the image to encode, or the code stream in DecodeOnly mode.
	Path        string
	CodedPath   string
	DecodedPath string

	Mode      Mode
	Tile      raster.TileSize
	Precision uint // decimal digits, 0 selects the renormalizing coder
	Container codestore.Container
	Workers   int

	// Raster geometry for DecodeOnly.
	Width, Height, MaxValue int

	// Dir codes every image below it instead of Path.
	Dir       string
	Recursive bool

	// Output receives the report, os.Stdout when nil.
	Output io.Writer
}

func (opts *Options) coder() arithcode.Coder {
	if opts.Precision == 0 {
		return arithcode.Renormalizing{}
	}
	return arithcode.FixedPrecision{Digits: opts.Precision}
}

func (opts *Options) config(width, height, maxValue int) blockcodec.Config {
	return blockcodec.Config{
		Width:    width,
		Height:   height,
		Tile:     opts.Tile,
		MaxValue: maxValue,
		Coder:    opts.coder(),
		Workers:  opts.Workers,
	}
}

// Run executes the configured mode.
func Run(opts Options) error {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Mode == "" {
		opts.Mode = Roundtrip
	}
	if err := opts.Tile.Check(); err != nil {
		return err
	}

	if opts.Dir != "" {
		return runDir(&opts)
	}
	if opts.Path == "" {
		return errors.Wrap(arithcode.ErrConfiguration, "no input path")
	}

	switch opts.Mode {
	case Roundtrip:
		return roundtrip(&opts)
	case EncodeOnly:
		return encode(&opts)
	case DecodeOnly:
		return decode(&opts)
	}
	return errors.Wrapf(arithcode.ErrConfiguration, "unknown mode %q", string(opts.Mode))
}

func roundtrip(opts *Options) error {
	img, err := encodeFile(opts, opts.Path, opts.CodedPath)
	if err != nil {
		return err
	}

	decoded, err := decodeFile(opts, opts.CodedPath, opts.config(img.Width, img.Height, img.MaxValue))
	if err != nil {
		return err
	}
	if !decoded.Equal(img) {
		return errors.Wrapf(arithcode.ErrDecode, "%s: decoded raster differs from the original", opts.Path)
	}
	if err := raster.WritePGMFile(opts.DecodedPath, decoded); err != nil {
		return errors.WithMessage(err, "write decoded image")
	}

	return report(opts, opts.Path, opts.CodedPath)
}

func encode(opts *Options) error {
	if _, err := encodeFile(opts, opts.Path, opts.CodedPath); err != nil {
		return err
	}
	return report(opts, opts.Path, opts.CodedPath)
}

func decode(opts *Options) error {
	cfg := opts.config(opts.Width, opts.Height, opts.MaxValue)
	img, err := decodeFile(opts, opts.Path, cfg)
	if err != nil {
		return err
	}
	return errors.WithMessage(raster.WritePGMFile(opts.DecodedPath, img), "write decoded image")
}

// runDir codes every image found below opts.Dir to a stream next to it.
// Failing images are logged and counted; the rest are still coded.
func runDir(opts *Options) error {
	if opts.Mode == DecodeOnly {
		return errors.Wrap(arithcode.ErrConfiguration, "directory mode cannot decode")
	}

	paths, err := raster.FindImages(opts.Dir, opts.Recursive)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.Errorf("no images in %s", opts.Dir)
	}

	failed := 0
	for _, path := range paths {
		if err := codeInPlace(opts, path); err != nil {
			log.Printf("%s: %v", path, err)
			failed++
		}
	}
	if failed > 0 {
		return errors.Errorf("%d of %d images failed", failed, len(paths))
	}
	return nil
}

func codeInPlace(opts *Options, path string) error {
	coded := path + CodedExt

	img, err := encodeFile(opts, path, coded)
	if err != nil {
		return err
	}
	if opts.Mode == Roundtrip {
		decoded, err := decodeFile(opts, coded, opts.config(img.Width, img.Height, img.MaxValue))
		if err != nil {
			return err
		}
		if !decoded.Equal(img) {
			return errors.Wrap(arithcode.ErrDecode, "decoded raster differs from the original")
		}
	}
	return report(opts, path, coded)
}

func encodeFile(opts *Options, imagePath, codedPath string) (*raster.Raster, error) {
	img, err := raster.Load(imagePath)
	if err != nil {
		return nil, err
	}
	encoded, err := blockcodec.Encode(img, opts.config(img.Width, img.Height, img.MaxValue))
	if err != nil {
		return nil, errors.WithMessage(err, imagePath)
	}
	if err := codestore.WriteFile(codedPath, encoded, opts.Container); err != nil {
		return nil, errors.WithMessage(err, codedPath)
	}
	return img, nil
}

func decodeFile(opts *Options, codedPath string, cfg blockcodec.Config) (*raster.Raster, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	encoded, err := codestore.ReadFile(codedPath, codestore.Layout{
		Blocks:     cfg.BlockCount(),
		BlockArea:  cfg.Tile.Area(),
		MaxCodeLen: cfg.MaxCodeLen(),
	})
	if err != nil {
		return nil, errors.WithMessage(err, codedPath)
	}
	img, err := blockcodec.Decode(encoded, cfg)
	if err != nil {
		return nil, errors.WithMessage(err, codedPath)
	}
	return img, nil
}

func report(opts *Options, imagePath, codedPath string) error {
	ratio, err := CompressionRatio(imagePath, codedPath)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(opts.Output, "%s: compression ratio %.4f\n", imagePath, ratio)
	return err
}

// CompressionRatio returns the size of the original file divided by the
// size of the coded file.
func CompressionRatio(original, coded string) (float64, error) {
	originalInfo, err := os.Stat(original)
	if err != nil {
		return 0, errors.Wrap(err, "stat original")
	}
	codedInfo, err := os.Stat(coded)
	if err != nil {
		return 0, errors.Wrap(err, "stat coded")
	}
	if codedInfo.Size() == 0 {
		return 0, errors.Errorf("coded file %s is empty", coded)
	}
	return float64(originalInfo.Size()) / float64(codedInfo.Size()), nil
}
