package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/egonelbre/exp-raster-compression/codestore"
	"github.com/egonelbre/exp-raster-compression/internal/cli"
	"github.com/egonelbre/exp-raster-compression/raster"
)

var (
	codedPath   = flag.String("coded-path", "coded.txt", "save path of the code stream")
	decodedPath = flag.String("decoded-path", "out.pgm", "path to save the decoded image")
	blockSize   = flag.Int("block-size", 2, "width and height of the coded blocks")
	blockWidth  = flag.Int("block-width", 0, "block width, overrides -block-size")
	blockHeight = flag.Int("block-height", 0, "block height, overrides -block-size")
	precision   = flag.Uint("precision", 0, "decimal digits of the fixed precision coder, 0 uses the renormalizing coder")
	container   = flag.String("container", "none", "compression around the code stream: none, gzip, zstd, xz or bzip2")
	mode        = flag.String("mode", "roundtrip", "roundtrip, encode or decode")
	width       = flag.Int("width", 0, "raster width when decoding")
	height      = flag.Int("height", 0, "raster height when decoding")
	maxValue    = flag.Int("maxval", 0, "raster max value when decoding, 0 uses the largest decoded value")
	dir         = flag.String("dir", "", "code every image in this directory")
	recursive   = flag.Bool("recursive", false, "search subdirectories of -dir")
	workers     = flag.Int("workers", 0, "number of blocks coded in parallel, 0 uses all CPUs")
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] path\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s [flags] -dir directory\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	path := flag.Arg(0)
	if path == "" && *dir == "" {
		flag.Usage()
		os.Exit(1)
	}

	c, err := codestore.ParseContainer(*container)
	if err != nil {
		log.Fatalf("%+v", err)
	}

	tile := raster.Square(*blockSize)
	if *blockWidth > 0 {
		tile.Width = *blockWidth
	}
	if *blockHeight > 0 {
		tile.Height = *blockHeight
	}

	opts := cli.Options{
		Path:        path,
		CodedPath:   *codedPath,
		DecodedPath: *decodedPath,
		Mode:        cli.Mode(*mode),
		Tile:        tile,
		Precision:   *precision,
		Container:   c,
		Workers:     *workers,
		Width:       *width,
		Height:      *height,
		MaxValue:    *maxValue,
		Dir:         *dir,
		Recursive:   *recursive,
	}
	if err := cli.Run(opts); err != nil {
		log.Fatalf("%+v", err)
	}
}
