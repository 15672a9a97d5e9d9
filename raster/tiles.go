package raster

import (
	"github.com/pkg/errors"

	"github.com/egonelbre/exp-raster-compression/arithcode"
)

// TileSize is the size of one block.
type TileSize struct {
	Width, Height int
}

// Square returns an n×n tile size.
func Square(n int) TileSize { return TileSize{Width: n, Height: n} }

// Area returns the number of cells in a tile.
func (t TileSize) Area() int { return t.Width * t.Height }

// Check rejects empty tiles.
func (t TileSize) Check() error {
	if t.Width <= 0 || t.Height <= 0 {
		return errors.Wrapf(arithcode.ErrConfiguration, "tile size %dx%d", t.Width, t.Height)
	}
	return nil
}

// Grid returns the number of tile columns and rows covering a width×height raster.
func (t TileSize) Grid(width, height int) (cols, rows int) {
	return (width + t.Width - 1) / t.Width, (height + t.Height - 1) / t.Height
}

// Count returns the number of tiles covering a width×height raster.
func (t TileSize) Count(width, height int) int {
	cols, rows := t.Grid(width, height)
	return cols * rows
}

// Block is one tile of a raster. Symbols are in row-major order and cells
// outside the raster hold Fill.
type Block struct {
	X, Y    int // origin in the raster
	Size    TileSize
	Symbols []int
}

// Split cuts r into tiles. Tiles are ordered row-major: all tiles of the
// first tile row from left to right, then the next row.
func Split(r *Raster, tile TileSize) ([]Block, error) {
	if err := tile.Check(); err != nil {
		return nil, err
	}

	cols, rows := tile.Grid(r.Width, r.Height)
	blocks := make([]Block, 0, cols*rows)
	for y := 0; y < r.Height; y += tile.Height {
		for x := 0; x < r.Width; x += tile.Width {
			block := Block{X: x, Y: y, Size: tile, Symbols: make([]int, tile.Area())}
			for by := 0; by < tile.Height; by++ {
				for bx := 0; bx < tile.Width; bx++ {
					v := Fill
					if x+bx < r.Width && y+by < r.Height {
						v = r.At(x+bx, y+by)
					}
					block.Symbols[by*tile.Width+bx] = v
				}
			}
			blocks = append(blocks, block)
		}
	}
	return blocks, nil
}

// Combine reassembles a width×height raster from blocks in the order Split
// produced them. Cells outside the raster are dropped. Blocks in a different
// order produce a scrambled raster.
func Combine(blocks []Block, width, height int, tile TileSize) (*Raster, error) {
	if err := tile.Check(); err != nil {
		return nil, err
	}
	r, err := New(width, height, 0)
	if err != nil {
		return nil, err
	}
	if want := tile.Count(width, height); len(blocks) != want {
		return nil, errors.Wrapf(arithcode.ErrConfiguration, "%d blocks for %d tiles", len(blocks), want)
	}

	index := 0
	for y := 0; y < height; y += tile.Height {
		for x := 0; x < width; x += tile.Width {
			block := blocks[index]
			if len(block.Symbols) != tile.Area() {
				return nil, errors.Wrapf(arithcode.ErrConfiguration,
					"block %d holds %d symbols, tile area is %d", index, len(block.Symbols), tile.Area())
			}
			for by := 0; by < tile.Height && y+by < height; by++ {
				for bx := 0; bx < tile.Width && x+bx < width; bx++ {
					v := block.Symbols[by*tile.Width+bx]
					r.Set(x+bx, y+by, v)
					if v > r.MaxValue {
						r.MaxValue = v
					}
				}
			}
			index++
		}
	}
	return r, nil
}
