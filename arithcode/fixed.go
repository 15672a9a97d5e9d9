package arithcode

import (
	"math"
	"math/big"
	"slices"
	"sort"

	"github.com/pkg/errors"
)

// DefaultDigits is the working precision of FixedPrecision when Digits is zero.
const DefaultDigits = 50

// FixedPrecision is a Coder that narrows [0,1) in binary floating point with
// a mantissa of Digits decimal digits and never renormalizes. The code is the
// midpoint of the final interval.
//
// Each symbol shrinks the interval by its probability, so long or
// high-entropy blocks outgrow the mantissa; Encode then fails with
// ErrPrecision rather than producing a code that decodes differently.
type FixedPrecision struct {
	Digits uint
}

func (p FixedPrecision) prec() uint {
	digits := p.Digits
	if digits == 0 {
		digits = DefaultDigits
	}
	return uint(math.Ceil(float64(digits) * math.Log2(10)))
}

// MaxCodeLen adds the mantissa to the digits below the final interval.
func (p FixedPrecision) MaxCodeLen(area int) int {
	if area <= 0 {
		return 0
	}
	return int(p.prec()) + intervalDigits(area)
}

func (p FixedPrecision) Encode(block []int) (EncodedBlock, error) {
	table, err := CountSymbols(block)
	if err != nil {
		return EncodedBlock{}, err
	}

	fi := newFixedInterval(table, p.prec())
	for i, s := range block {
		index, _ := table.Index(s)
		if err := fi.narrow(index); err != nil {
			return EncodedBlock{}, errors.WithMessagef(err, "symbol %d", i)
		}
	}

	mid := new(big.Float).SetPrec(fi.prec).Add(fi.low, fi.high)
	mid.SetMantExp(mid, -1)
	if mid.Cmp(fi.low) < 0 || mid.Cmp(fi.high) >= 0 {
		return EncodedBlock{}, errors.Wrapf(ErrPrecision, "midpoint outside final interval at %d bits", fi.prec)
	}

	r, _ := mid.Rat(nil)
	code, err := NewCode(r)
	if err != nil {
		return EncodedBlock{}, err
	}

	decoded, err := p.Decode(code, table, len(block))
	if err != nil || !slices.Equal(decoded, block) {
		return EncodedBlock{}, errors.Wrapf(ErrPrecision, "code does not reproduce the block at %d bits", fi.prec)
	}
	return EncodedBlock{Code: code, Table: table}, nil
}

func (p FixedPrecision) Decode(code Code, table *FrequencyTable, n int) ([]int, error) {
	if err := checkDecodeArgs(code, table, n); err != nil {
		return nil, err
	}

	fi := newFixedInterval(table, p.prec())
	x := new(big.Float).SetPrec(fi.prec).SetRat(code.Rat())
	count := table.SymbolCount()

	block := make([]int, n)
	for i := range block {
		index := sort.Search(count, func(k int) bool {
			return fi.boundary(k+1).Cmp(x) > 0
		})
		if index == count || fi.boundary(index).Cmp(x) > 0 {
			return nil, errors.Wrapf(ErrDecode, "symbol %d: code outside every sub-interval", i)
		}
		if err := fi.narrow(index); err != nil {
			return nil, errors.WithMessagef(err, "symbol %d", i)
		}
		block[i] = table.Symbol(index)
	}

	if err := checkHistogram(block, table); err != nil {
		return nil, err
	}
	return block, nil
}

// fixedInterval is the working interval of FixedPrecision. All arithmetic is
// rounded to prec bits; encoder and decoder share this type so they round
// identically.
type fixedInterval struct {
	prec      uint
	low, high *big.Float
	cum       []*big.Float // cum[i] = cumFreqs[i] / total
}

func newFixedInterval(table *FrequencyTable, prec uint) *fixedInterval {
	fi := &fixedInterval{
		prec: prec,
		low:  new(big.Float).SetPrec(prec),
		high: new(big.Float).SetPrec(prec).SetInt64(1),
		cum:  make([]*big.Float, len(table.cumFreqs)),
	}
	total := new(big.Float).SetPrec(prec).SetUint64(table.TotalFreq())
	for i, c := range table.cumFreqs {
		f := new(big.Float).SetPrec(prec).SetUint64(c)
		fi.cum[i] = f.Quo(f, total)
	}
	return fi
}

// boundary returns low + (high-low)*cum[k].
func (fi *fixedInterval) boundary(k int) *big.Float {
	width := new(big.Float).SetPrec(fi.prec).Sub(fi.high, fi.low)
	b := new(big.Float).SetPrec(fi.prec).Mul(width, fi.cum[k])
	return b.Add(fi.low, b)
}

// narrow replaces the interval with the sub-interval of the symbol at index.
func (fi *fixedInterval) narrow(index int) error {
	lo, hi := fi.boundary(index), fi.boundary(index+1)
	if lo.Cmp(hi) >= 0 {
		return errors.Wrapf(ErrPrecision, "interval collapsed at %d bits", fi.prec)
	}
	fi.low, fi.high = lo, hi
	return nil
}
