package arithcode

import (
	"bytes"
	"math/bits"

	"github.com/pkg/errors"
)

// EncodedBlock is one coded block: the code together with the model it was
// coded under. The symbol count and block dimensions are not part of it.
type EncodedBlock struct {
	Code  Code
	Table *FrequencyTable
}

// Coder codes whole blocks. Encoder and decoder must use the same Coder.
type Coder interface {
	// Encode codes block under its own frequency table.
	Encode(block []int) (EncodedBlock, error)
	// Decode recovers exactly n symbols from code and table.
	Decode(code Code, table *FrequencyTable, n int) ([]int, error)
	// MaxCodeLen bounds the length of Code.String for any block of area
	// symbols.
	MaxCodeLen(area int) int
}

// Encode codes block with the Renormalizing coder.
func Encode(block []int) (EncodedBlock, error) {
	return Renormalizing{}.Encode(block)
}

// Decode decodes n symbols with the Renormalizing coder.
func Decode(code Code, table *FrequencyTable, n int) ([]int, error) {
	return Renormalizing{}.Decode(code, table, n)
}

// Renormalizing is the default Coder. It narrows 32-bit integer registers and
// rescales them whenever the interval settles in one half or straddles the
// middle, so the working precision does not depend on the block length.
// The code is the binary fraction formed by the emitted bits.
type Renormalizing struct{}

// MaxCodeLen allows every symbol the bits of the rarest possible symbol plus
// the rounding of the integer registers, and the final 32 bits.
func (Renormalizing) MaxCodeLen(area int) int {
	return intervalDigits(area)
}

// intervalDigits bounds the binary digits needed to address an interval
// narrowed by area symbols. A binary fraction of k digits has exactly k
// decimal digits.
func intervalDigits(area int) int {
	if area <= 0 {
		return 0
	}
	return area*(bits.Len(uint(area))+3) + 64
}

func (Renormalizing) Encode(block []int) (EncodedBlock, error) {
	table, err := CountSymbols(block)
	if err != nil {
		return EncodedBlock{}, err
	}

	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for i, s := range block {
		index, _ := table.Index(s)
		if err := enc.Encode(index, table); err != nil {
			return EncodedBlock{}, errors.WithMessagef(err, "symbol %d", i)
		}
	}
	if err := enc.Close(); err != nil {
		return EncodedBlock{}, errors.Wrap(err, "flush")
	}

	return EncodedBlock{Code: codeFromBits(buf.Bytes()), Table: table}, nil
}

func (Renormalizing) Decode(code Code, table *FrequencyTable, n int) ([]int, error) {
	if err := checkDecodeArgs(code, table, n); err != nil {
		return nil, err
	}

	dec, err := NewDecoder(code.expansion())
	if err != nil {
		return nil, errors.Wrap(err, "read code")
	}

	block := make([]int, n)
	for i := range block {
		index, err := dec.Decode(table)
		if err != nil {
			return nil, errors.WithMessagef(err, "symbol %d", i)
		}
		block[i] = table.Symbol(index)
	}

	if err := checkHistogram(block, table); err != nil {
		return nil, err
	}
	return block, nil
}

func checkDecodeArgs(code Code, table *FrequencyTable, n int) error {
	if n <= 0 {
		return errors.Wrapf(ErrConfiguration, "symbol count %d", n)
	}
	if table == nil {
		return errors.Wrap(ErrModel, "missing frequency table")
	}
	if err := table.Validate(n); err != nil {
		return err
	}
	if r := code.Rat(); r.Sign() < 0 || r.Cmp(one) >= 0 {
		return errors.Wrapf(ErrDecode, "code %s outside [0, 1)", code)
	}
	return nil
}

// checkHistogram rejects a decoded block whose symbol counts differ from the
// table it was decoded under.
func checkHistogram(block []int, table *FrequencyTable) error {
	got, err := CountSymbols(block)
	if err != nil {
		return err
	}
	if !got.Equal(table) {
		return errors.Wrap(ErrDecode, "decoded symbols do not match the frequency table")
	}
	return nil
}
