package arithcode

// Error is a failure class of the block coder. Failures returned by this
// module wrap one of the constants below and can be matched with errors.Is.
type Error string

func (e Error) Error() string { return "arithcode: " + string(e) }

const (
	// ErrConfiguration reports block or raster sizes that do not agree
	// between encoding and decoding, or sizes that cannot describe a block.
	ErrConfiguration Error = "configuration mismatch"

	// ErrModel reports a frequency table that does not describe a block.
	ErrModel Error = "invalid frequency model"

	// ErrPrecision reports that the working precision ran out before all
	// symbols of a block were coded.
	ErrPrecision Error = "precision exhausted"

	// ErrDecode reports a code that does not decode under its model.
	ErrDecode Error = "undecodable code"
)
