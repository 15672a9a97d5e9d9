package arithcode

import (
	"io"

	"github.com/pkg/errors"
)

const (
	// stateBits defines the precision of the arithmetic coding state.
	// We use 32 bits to balance precision and performance.
	stateBits = 32
	// stateMax is the maximum value of the state (2^32 - 1).
	stateMax uint64 = (1 << stateBits) - 1
	// half is the midpoint of the state range.
	half uint64 = 1 << (stateBits - 1)
	// quarter is one quarter of the state range.
	quarter uint64 = 1 << (stateBits - 2)

	// maxTotal is the largest model total that keeps every symbol's range
	// non-empty: after normalization the interval spans more than a quarter.
	maxTotal = quarter
)

// Encoder compresses data using arithmetic coding.
type Encoder struct {
	output      *bitWriter
	low         uint64 // Lower bound of the current interval
	high        uint64 // Upper bound of the current interval
	pendingBits int    // Number of pending underflow bits
}

// NewEncoder creates a new arithmetic encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		output: newBitWriter(w),
		low:    0,
		high:   stateMax,
	}
}

// Encode writes the symbol at index using the given model.
func (e *Encoder) Encode(index int, model Model) error {
	// Get the symbol's frequency range
	symLow, symHigh := model.Freq(index)
	total := model.TotalFreq()
	if total > maxTotal {
		return errors.Wrapf(ErrPrecision, "model total %d exceeds %d", total, maxTotal)
	}

	// Calculate the new interval
	rangeSize := e.high - e.low + 1
	newHigh := e.low + (rangeSize*symHigh)/total
	newLow := e.low + (rangeSize*symLow)/total
	if newHigh <= newLow {
		return errors.Wrapf(ErrPrecision, "interval collapsed at [%d, %d)", newLow, newHigh)
	}
	e.high = newHigh - 1
	e.low = newLow

	// Normalize the interval
	for {
		if e.high < half {
			// High is in lower half, output 0
			if err := e.emit(0); err != nil {
				return err
			}
		} else if e.low >= half {
			// Low is in upper half, output 1
			if err := e.emit(1); err != nil {
				return err
			}
			e.low -= half
			e.high -= half
		} else if e.low >= quarter && e.high < 3*quarter {
			// Underflow: interval straddles the middle
			e.pendingBits++
			e.low -= quarter
			e.high -= quarter
		} else {
			break
		}

		// Scale up the interval
		e.low = (e.low << 1) & stateMax
		e.high = ((e.high << 1) & stateMax) | 1
	}

	return nil
}

// emit writes bit followed by the pending underflow bits, which take the
// opposite value.
func (e *Encoder) emit(bit byte) error {
	if err := e.output.WriteBit(bit); err != nil {
		return err
	}
	for e.pendingBits > 0 {
		if err := e.output.WriteBit(bit ^ 1); err != nil {
			return err
		}
		e.pendingBits--
	}
	return nil
}

// Close writes the midpoint of the final interval and flushes the output.
// Trailing zero bits are implied and may be dropped by the caller.
func (e *Encoder) Close() error {
	mid := e.low + (e.high-e.low+1)/2

	if err := e.emit(byte(mid >> (stateBits - 1))); err != nil {
		return err
	}
	for i := stateBits - 2; i >= 0; i-- {
		if err := e.output.WriteBit(byte(mid>>uint(i)) & 1); err != nil {
			return err
		}
	}

	return e.output.Flush()
}

// bitWriter writes individual bits to an io.Writer.
type bitWriter struct {
	output      io.Writer
	accumulator byte
	numBits     int
}

func newBitWriter(w io.Writer) *bitWriter {
	return &bitWriter{output: w}
}

func (bw *bitWriter) WriteBit(bit byte) error {
	bw.accumulator = (bw.accumulator << 1) | (bit & 1)
	bw.numBits++

	if bw.numBits == 8 {
		if _, err := bw.output.Write([]byte{bw.accumulator}); err != nil {
			return err
		}
		bw.accumulator = 0
		bw.numBits = 0
	}

	return nil
}

func (bw *bitWriter) Flush() error {
	if bw.numBits > 0 {
		// Pad with zeros to complete the byte
		bw.accumulator <<= (8 - bw.numBits)
		if _, err := bw.output.Write([]byte{bw.accumulator}); err != nil {
			return err
		}
		bw.accumulator = 0
		bw.numBits = 0
	}
	return nil
}
