// Package codestore persists coded blocks as text.
//
// Each block is two lines: the code as an exact decimal fraction, then the
// frequency table as protobuf text,
//
//	0.3671875
//	entries:{symbol:1 count:1} entries:{symbol:2 count:2} entries:{symbol:3 count:1}
//
// Records follow the tile order of raster.Split. Tile and raster sizes are
// not stored and must be supplied again when reading.
package codestore

import (
	"bufio"
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/egonelbre/exp-raster-compression/arithcode"
)

// Write writes blocks to w.
func Write(w io.Writer, blocks []arithcode.EncodedBlock) error {
	bw := bufio.NewWriter(w)
	for i, b := range blocks {
		if b.Table == nil {
			return errors.Wrapf(arithcode.ErrModel, "block %d has no table", i)
		}
		table, err := marshalTable(b.Table)
		if err != nil {
			return errors.Wrapf(err, "block %d", i)
		}

		bw.WriteString(b.Code.String())
		bw.WriteByte('\n')
		bw.Write(table)
		if err := bw.WriteByte('\n'); err != nil {
			return errors.Wrapf(err, "block %d", i)
		}
	}
	return errors.Wrap(bw.Flush(), "flush")
}

// Layout describes the records Read expects. Lines longer than the layout
// allows are rejected before they are parsed.
type Layout struct {
	Blocks     int // number of records
	BlockArea  int // symbols per block
	MaxCodeLen int // longest code line, see arithcode.Coder.MaxCodeLen
}

// maxTableLen bounds a table line: at most one entry per symbol of the block.
func (l Layout) maxTableLen() int {
	const entryLen = len("entries:{symbol:65535  count:18446744073709551615} ")
	return l.BlockArea*entryLen + 64
}

func (l Layout) check() error {
	if l.Blocks <= 0 || l.BlockArea <= 0 || l.MaxCodeLen <= 0 {
		return errors.Wrapf(arithcode.ErrConfiguration,
			"layout of %d blocks, %d symbols, %d code characters", l.Blocks, l.BlockArea, l.MaxCodeLen)
	}
	return nil
}

var errLineTooLong = errors.New("line too long")

// Read reads exactly layout.Blocks blocks from r.
func Read(r io.Reader, layout Layout) ([]arithcode.EncodedBlock, error) {
	if err := layout.check(); err != nil {
		return nil, err
	}

	br := bufio.NewReader(r)
	blocks := make([]arithcode.EncodedBlock, 0, layout.Blocks)
	for i := 0; i < layout.Blocks; i++ {
		codeLine, err := readLine(br, layout.MaxCodeLen)
		if err == errLineTooLong {
			return nil, errors.Wrapf(arithcode.ErrDecode, "block %d: code longer than %d characters", i, layout.MaxCodeLen)
		}
		if err != nil {
			return nil, recordError(err, i, layout.Blocks)
		}
		tableLine, err := readLine(br, layout.maxTableLen())
		if err == errLineTooLong {
			return nil, errors.Wrapf(arithcode.ErrModel, "block %d: table longer than %d characters", i, layout.maxTableLen())
		}
		if err != nil {
			return nil, recordError(err, i, layout.Blocks)
		}

		code, err := arithcode.ParseCode(codeLine)
		if err != nil {
			return nil, errors.WithMessagef(err, "block %d", i)
		}
		table, err := unmarshalTable([]byte(tableLine))
		if err != nil {
			return nil, errors.WithMessagef(err, "block %d", i)
		}
		blocks = append(blocks, arithcode.EncodedBlock{Code: code, Table: table})
	}

	limit := max(layout.MaxCodeLen, layout.maxTableLen())
	for {
		line, err := readLine(br, limit)
		if err == io.EOF {
			break
		}
		if err != nil && err != errLineTooLong {
			return nil, errors.Wrap(err, "read")
		}
		if err == errLineTooLong || line != "" {
			return nil, errors.Wrapf(arithcode.ErrConfiguration, "stream holds more than %d blocks", layout.Blocks)
		}
	}
	return blocks, nil
}

// readLine returns the next line without its terminator. A final line
// without a newline is returned as is; io.EOF is returned only when no
// bytes remain. Reading stops with errLineTooLong once the line exceeds
// limit characters.
func readLine(br *bufio.Reader, limit int) (string, error) {
	var line []byte
	for {
		chunk, err := br.ReadSlice('\n')
		line = append(line, chunk...)
		if len(bytes.TrimRight(line, "\r\n")) > limit {
			return "", errLineTooLong
		}
		switch {
		case err == bufio.ErrBufferFull:
			continue
		case err == io.EOF && len(line) > 0:
		case err != nil:
			return "", err
		}
		return string(bytes.TrimRight(line, "\r\n")), nil
	}
}

func recordError(err error, index, blockCount int) error {
	if err == io.EOF {
		return errors.Wrapf(arithcode.ErrConfiguration, "stream ends at block %d of %d", index, blockCount)
	}
	return errors.Wrapf(err, "read block %d", index)
}

// WriteFile writes blocks to path, wrapped in container.
func WriteFile(path string, blocks []arithcode.EncodedBlock, container Container) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create code stream")
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, "close code stream")
		}
	}()

	cw, err := NewWriter(f, container)
	if err != nil {
		return err
	}
	if err := Write(cw, blocks); err != nil {
		cw.Close()
		return err
	}
	return errors.Wrap(cw.Close(), "close container")
}

// ReadFile reads the blocks of layout from path. The container is detected
// from the stream.
func ReadFile(path string, layout Layout) ([]arithcode.EncodedBlock, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open code stream")
	}
	defer f.Close()

	cr, err := NewReader(f)
	if err != nil {
		return nil, err
	}
	defer cr.Close()

	return Read(cr, layout)
}
