// Package arithcode implements arithmetic coding of bounded integer symbols
// in independent blocks. Every block is coded under its own frequency table,
// so a block decodes from its code and table alone.
package arithcode

import (
	"sort"

	"github.com/pkg/errors"
)

// MaxSymbol is the largest symbol value a FrequencyTable accepts.
const MaxSymbol = 65535

// Model defines the interface for probability models used in arithmetic coding.
// Symbols are addressed by their index in the model, not by their value.
type Model interface {
	// SymbolCount returns the total number of possible symbols in this model.
	SymbolCount() int

	// Freq returns the cumulative frequency range [low, high) for the symbol
	// at the given index, relative to TotalFreq().
	Freq(index int) (low, high uint64)

	// TotalFreq returns the sum of all symbol frequencies.
	TotalFreq() uint64

	// Find returns the index of the symbol whose range holds cumFreq.
	// The cumFreq must be in range [0, TotalFreq()).
	Find(cumFreq uint64) int
}

// Entry is one (symbol, count) pair of a FrequencyTable.
type Entry struct {
	Symbol int
	Count  uint64
}

// Interval is the cumulative sub-range [Low, High) of one symbol, measured
// in units of the table's TotalFreq.
type Interval struct {
	Symbol    int
	Low, High uint64
}

// FrequencyTable counts the symbols of one block. Symbols are kept in
// ascending numeric order, which fixes the cumulative layout for both the
// encoder and the decoder.
type FrequencyTable struct {
	symbols  []int    // ascending symbol values
	cumFreqs []uint64 // cumFreqs[i] = sum of counts of symbols[0..i-1]
	total    uint64
}

// CountSymbols builds the frequency table of block.
func CountSymbols(block []int) (*FrequencyTable, error) {
	if len(block) == 0 {
		return nil, errors.Wrap(ErrConfiguration, "empty block")
	}

	counts := make(map[int]uint64)
	for _, s := range block {
		counts[s]++
	}

	entries := make([]Entry, 0, len(counts))
	for s, c := range counts {
		entries = append(entries, Entry{Symbol: s, Count: c})
	}
	return NewFrequencyTable(entries)
}

// NewFrequencyTable creates a table from entries given in any order.
func NewFrequencyTable(entries []Entry) (*FrequencyTable, error) {
	if len(entries) == 0 {
		return nil, errors.Wrap(ErrModel, "no symbols")
	}

	sorted := append([]Entry(nil), entries...)
	sort.Slice(sorted, func(i, k int) bool { return sorted[i].Symbol < sorted[k].Symbol })

	ft := &FrequencyTable{
		symbols:  make([]int, len(sorted)),
		cumFreqs: make([]uint64, len(sorted)+1),
	}
	for i, e := range sorted {
		if e.Symbol < 0 || e.Symbol > MaxSymbol {
			return nil, errors.Wrapf(ErrModel, "symbol %d out of range [0, %d]", e.Symbol, MaxSymbol)
		}
		if e.Count == 0 {
			return nil, errors.Wrapf(ErrModel, "symbol %d has zero count", e.Symbol)
		}
		if i > 0 && sorted[i-1].Symbol == e.Symbol {
			return nil, errors.Wrapf(ErrModel, "symbol %d listed twice", e.Symbol)
		}
		if ft.total+e.Count < ft.total {
			return nil, errors.Wrap(ErrModel, "total count overflows")
		}
		ft.total += e.Count
		ft.symbols[i] = e.Symbol
		ft.cumFreqs[i+1] = ft.total
	}
	return ft, nil
}

func (ft *FrequencyTable) SymbolCount() int {
	return len(ft.symbols)
}

func (ft *FrequencyTable) Freq(index int) (low, high uint64) {
	if index < 0 || index >= ft.SymbolCount() {
		panic("symbol index out of range")
	}
	return ft.cumFreqs[index], ft.cumFreqs[index+1]
}

func (ft *FrequencyTable) TotalFreq() uint64 {
	return ft.total
}

func (ft *FrequencyTable) Find(cumFreq uint64) int {
	if cumFreq >= ft.total {
		panic("cumFreq out of range")
	}

	// Binary search for the symbol
	left, right := 0, len(ft.cumFreqs)-1
	for left < right-1 {
		mid := (left + right) / 2
		if ft.cumFreqs[mid] <= cumFreq {
			left = mid
		} else {
			right = mid
		}
	}
	return left
}

// Symbol returns the symbol value at index.
func (ft *FrequencyTable) Symbol(index int) int {
	return ft.symbols[index]
}

// Index returns the index of symbol in the table.
func (ft *FrequencyTable) Index(symbol int) (int, bool) {
	i := sort.SearchInts(ft.symbols, symbol)
	if i < len(ft.symbols) && ft.symbols[i] == symbol {
		return i, true
	}
	return 0, false
}

// Count returns the number of occurrences of symbol.
func (ft *FrequencyTable) Count(symbol int) uint64 {
	i, ok := ft.Index(symbol)
	if !ok {
		return 0
	}
	return ft.cumFreqs[i+1] - ft.cumFreqs[i]
}

// Entries returns the (symbol, count) pairs in ascending symbol order.
func (ft *FrequencyTable) Entries() []Entry {
	entries := make([]Entry, len(ft.symbols))
	for i, s := range ft.symbols {
		entries[i] = Entry{Symbol: s, Count: ft.cumFreqs[i+1] - ft.cumFreqs[i]}
	}
	return entries
}

// Intervals returns the cumulative partition of [0, TotalFreq()).
func (ft *FrequencyTable) Intervals() []Interval {
	intervals := make([]Interval, len(ft.symbols))
	for i, s := range ft.symbols {
		intervals[i] = Interval{Symbol: s, Low: ft.cumFreqs[i], High: ft.cumFreqs[i+1]}
	}
	return intervals
}

// Validate checks that the table describes a block of area symbols.
func (ft *FrequencyTable) Validate(area int) error {
	if area <= 0 {
		return errors.Wrapf(ErrConfiguration, "block area %d", area)
	}
	if ft.total != uint64(area) {
		return errors.Wrapf(ErrModel, "counts sum to %d, block area is %d", ft.total, area)
	}
	return nil
}

// Equal reports whether both tables hold the same symbols and counts.
func (ft *FrequencyTable) Equal(other *FrequencyTable) bool {
	if ft == nil || other == nil {
		return ft == other
	}
	if len(ft.symbols) != len(other.symbols) {
		return false
	}
	for i := range ft.symbols {
		if ft.symbols[i] != other.symbols[i] || ft.cumFreqs[i+1] != other.cumFreqs[i+1] {
			return false
		}
	}
	return true
}
