package arithcode

import (
	"io"
	"math"
	"math/big"
	"strings"

	"github.com/pkg/errors"
)

var one = big.NewRat(1, 1)

// Code is the position in [0,1) that identifies the symbol sequence of one
// block. A Code always has a terminating decimal expansion, which is its
// persisted form.
type Code struct {
	r *big.Rat
}

// NewCode returns the code at r.
func NewCode(r *big.Rat) (Code, error) {
	if r.Sign() < 0 || r.Cmp(one) >= 0 {
		return Code{}, errors.Wrapf(ErrDecode, "code %s outside [0, 1)", r.RatString())
	}
	if _, ok := decimalDigits(r.Denom()); !ok {
		return Code{}, errors.Wrapf(ErrDecode, "code %s has no finite decimal form", r.RatString())
	}
	return Code{r: new(big.Rat).Set(r)}, nil
}

// ParseCode parses the exact decimal form written by Code.String.
// Signs, exponents and fractions are rejected.
func ParseCode(s string) (Code, error) {
	s = strings.TrimSpace(s)
	if !isDecimal(s) {
		return Code{}, errors.Wrapf(ErrDecode, "malformed code %.32q", s)
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return Code{}, errors.Wrapf(ErrDecode, "malformed code %.32q", s)
	}
	// a plain decimal always terminates, only the range needs checking
	if r.Cmp(one) >= 0 {
		return Code{}, errors.Wrapf(ErrDecode, "code %.32s outside [0, 1)", s)
	}
	return Code{r: r}, nil
}

// isDecimal accepts digits with at most one decimal point.
func isDecimal(s string) bool {
	digits, point := 0, false
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.' && !point:
			point = true
		default:
			return false
		}
	}
	return digits > 0
}

// codeFromBits interprets buf as the binary fraction 0.b1b2b3...
func codeFromBits(buf []byte) Code {
	num := new(big.Int).SetBytes(buf)
	den := new(big.Int).Lsh(big.NewInt(1), uint(8*len(buf)))
	return Code{r: new(big.Rat).SetFrac(num, den)}
}

// Rat returns the exact value of the code.
func (c Code) Rat() *big.Rat {
	if c.r == nil {
		return new(big.Rat)
	}
	return new(big.Rat).Set(c.r)
}

// Cmp compares two codes.
func (c Code) Cmp(other Code) int {
	return c.Rat().Cmp(other.Rat())
}

// BitLen returns the number of binary digits after the point needed to
// write the code.
func (c Code) BitLen() int {
	return c.Rat().Denom().BitLen() - 1
}

// String returns the exact decimal form of the code.
func (c Code) String() string {
	r := c.Rat()
	digits, ok := decimalDigits(r.Denom())
	if !ok {
		return r.RatString()
	}
	if digits == 0 {
		return r.FloatString(0)
	}
	return r.FloatString(digits)
}

// decimalDigits returns the number of decimal places needed to write 1/den
// exactly, which exists only when den = 2^a * 5^b.
func decimalDigits(den *big.Int) (int, bool) {
	if den.Sign() <= 0 {
		return 0, false
	}
	twos := int(den.TrailingZeroBits())
	d := new(big.Int).Rsh(den, uint(twos))

	// 5^b has floor(b*log2(5))+1 bits, which pins b down to a neighbourhood
	// of the guess.
	guess := int(float64(d.BitLen()-1) / math.Log2(5))
	five := big.NewInt(5)
	for _, fives := range []int{guess - 1, guess, guess + 1} {
		if fives < 0 {
			continue
		}
		if d.Cmp(new(big.Int).Exp(five, big.NewInt(int64(fives)), nil)) == 0 {
			return max(twos, fives), true
		}
	}
	return 0, false
}

// expansion returns a reader producing the binary expansion of the code,
// most significant bit first. It ends once the remaining digits are all zero.
func (c Code) expansion() io.Reader {
	r := c.Rat()
	return &expansionReader{
		num: new(big.Int).Set(r.Num()),
		den: new(big.Int).Set(r.Denom()),
	}
}

type expansionReader struct {
	num, den *big.Int
}

func (er *expansionReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if er.num.Sign() == 0 {
			if n == 0 {
				return 0, io.EOF
			}
			break
		}
		var b byte
		for i := 0; i < 8; i++ {
			er.num.Lsh(er.num, 1)
			b <<= 1
			if er.num.Cmp(er.den) >= 0 {
				er.num.Sub(er.num, er.den)
				b |= 1
			}
		}
		p[n] = b
		n++
	}
	return n, nil
}
