// Package blockcodec codes whole rasters as independent tiles.
//
// A raster is split with raster.Split and every tile is coded under its own
// frequency table. Tiles share no state, so they are coded in parallel and
// a failure in one tile does not affect the others.
package blockcodec

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/pkg/errors"

	"github.com/egonelbre/exp-raster-compression/arithcode"
	"github.com/egonelbre/exp-raster-compression/raster"
)

// Config is the contract shared by the encoding and decoding side. None of
// it is stored in the code stream.
type Config struct {
	// Width and Height are the raster size. Encode takes them from the raster.
	Width, Height int
	Tile          raster.TileSize
	// MaxValue is the declared maximum intensity of the decoded raster.
	// Zero uses the largest decoded value.
	MaxValue int

	// Coder defaults to arithcode.Renormalizing.
	Coder arithcode.Coder
	// Workers defaults to runtime.GOMAXPROCS(0).
	Workers int
}

// Validate checks the settings needed for decoding.
func (cfg *Config) Validate() error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return errors.Wrapf(arithcode.ErrConfiguration, "raster size %dx%d", cfg.Width, cfg.Height)
	}
	if err := cfg.Tile.Check(); err != nil {
		return err
	}
	if cfg.MaxValue < 0 || cfg.MaxValue > arithcode.MaxSymbol {
		return errors.Wrapf(arithcode.ErrConfiguration, "max value %d outside [0, %d]", cfg.MaxValue, arithcode.MaxSymbol)
	}
	if cfg.Workers < 0 {
		return errors.Wrapf(arithcode.ErrConfiguration, "%d workers", cfg.Workers)
	}
	return nil
}

// BlockCount returns the number of records a stream for cfg holds.
func (cfg *Config) BlockCount() int {
	return cfg.Tile.Count(cfg.Width, cfg.Height)
}

// MaxCodeLen bounds the code length of one block coded under cfg.
func (cfg *Config) MaxCodeLen() int {
	return cfg.coder().MaxCodeLen(cfg.Tile.Area())
}

func (cfg *Config) coder() arithcode.Coder {
	if cfg.Coder == nil {
		return arithcode.Renormalizing{}
	}
	return cfg.Coder
}

func (cfg *Config) workers(jobs int) int {
	n := cfg.Workers
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return max(min(n, jobs), 1)
}

// BlockError reports the tile that failed.
type BlockError struct {
	Index int
	X, Y  int
	Err   error
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("block %d at (%d, %d): %v", e.Index, e.X, e.Y, e.Err)
}

func (e *BlockError) Unwrap() error { return e.Err }

// Format prints the stack of the wrapped error with %+v.
func (e *BlockError) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "block %d at (%d, %d): %+v", e.Index, e.X, e.Y, e.Err)
		return
	}
	fmt.Fprint(s, e.Error())
}

// Encode codes every tile of r. The result is in raster.Split order.
func Encode(r *raster.Raster, cfg Config) ([]arithcode.EncodedBlock, error) {
	if err := r.Check(); err != nil {
		return nil, errors.Wrap(arithcode.ErrConfiguration, err.Error())
	}
	blocks, err := raster.Split(r, cfg.Tile)
	if err != nil {
		return nil, err
	}

	coder := cfg.coder()
	encoded := make([]arithcode.EncodedBlock, len(blocks))
	err = parallel(len(blocks), cfg.workers(len(blocks)), func(i int) error {
		eb, err := coder.Encode(blocks[i].Symbols)
		if err != nil {
			return &BlockError{Index: i, X: blocks[i].X, Y: blocks[i].Y, Err: err}
		}
		encoded[i] = eb
		return nil
	})
	if err != nil {
		return nil, err
	}
	return encoded, nil
}

// Decode rebuilds the raster described by cfg from coded tiles in
// raster.Split order.
func Decode(encoded []arithcode.EncodedBlock, cfg Config) (*raster.Raster, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := checkLayout(encoded, &cfg); err != nil {
		return nil, err
	}

	cols, _ := cfg.Tile.Grid(cfg.Width, cfg.Height)
	area := cfg.Tile.Area()
	coder := cfg.coder()

	blocks := make([]raster.Block, len(encoded))
	err := parallel(len(encoded), cfg.workers(len(encoded)), func(i int) error {
		x, y := (i%cols)*cfg.Tile.Width, (i/cols)*cfg.Tile.Height
		symbols, err := coder.Decode(encoded[i].Code, encoded[i].Table, area)
		if err != nil {
			return &BlockError{Index: i, X: x, Y: y, Err: err}
		}
		blocks[i] = raster.Block{X: x, Y: y, Size: cfg.Tile, Symbols: symbols}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r, err := raster.Combine(blocks, cfg.Width, cfg.Height, cfg.Tile)
	if err != nil {
		return nil, err
	}
	if cfg.MaxValue > 0 {
		if r.MaxValue > cfg.MaxValue {
			return nil, errors.Wrapf(arithcode.ErrConfiguration,
				"decoded value %d exceeds max value %d", r.MaxValue, cfg.MaxValue)
		}
		r.MaxValue = cfg.MaxValue
	}
	return r, nil
}

// checkLayout compares the stream against the configured geometry. When
// every table agrees on a total other than the tile area the stream was
// written with another tile size; a single disagreeing table is left to the
// coder, which reports it as a model error.
func checkLayout(encoded []arithcode.EncodedBlock, cfg *Config) error {
	if want := cfg.BlockCount(); len(encoded) != want {
		return errors.Wrapf(arithcode.ErrConfiguration,
			"%d coded blocks for %d tiles of %dx%d", len(encoded), want, cfg.Tile.Width, cfg.Tile.Height)
	}

	cols, _ := cfg.Tile.Grid(cfg.Width, cfg.Height)
	var total uint64
	for i, eb := range encoded {
		if eb.Table == nil {
			x, y := (i%cols)*cfg.Tile.Width, (i/cols)*cfg.Tile.Height
			return &BlockError{Index: i, X: x, Y: y, Err: errors.Wrap(arithcode.ErrModel, "missing table")}
		}
		if i == 0 {
			total = eb.Table.TotalFreq()
		} else if eb.Table.TotalFreq() != total {
			return nil
		}
	}
	if total != uint64(cfg.Tile.Area()) {
		return errors.Wrapf(arithcode.ErrConfiguration,
			"tables hold %d symbols, tile %dx%d holds %d", total, cfg.Tile.Width, cfg.Tile.Height, cfg.Tile.Area())
	}
	return nil
}

// parallel runs fn for every index in [0, n) on workers goroutines, each
// handling a contiguous range. The error of the lowest failing index is
// returned.
func parallel(n, workers int, fn func(i int) error) error {
	if n == 0 {
		return nil
	}
	errs := make([]error, n)
	perWorker := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < n; start += perWorker {
		end := min(start+perWorker, n)

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				errs[i] = fn(i)
			}
		}(start, end)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
