package raster

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// pgmMagic is the marker of the plain (ASCII) PGM format.
const pgmMagic = "P2"

// ReadPGM reads a plain PGM image. Comments start with '#' and run to the
// end of the line.
func ReadPGM(r io.Reader) (*Raster, error) {
	tr := &tokenReader{r: bufio.NewReader(r)}

	magic, err := tr.next()
	if err != nil {
		return nil, errors.Wrap(err, "read magic")
	}
	if magic != pgmMagic {
		return nil, errors.Errorf("unsupported image type %q", magic)
	}

	var header [3]int
	for i, name := range []string{"width", "height", "max value"} {
		if header[i], err = tr.nextInt(); err != nil {
			return nil, errors.Wrapf(err, "read %s", name)
		}
	}
	width, height, maxValue := header[0], header[1], header[2]

	img, err := New(width, height, maxValue)
	if err != nil {
		return nil, err
	}
	for i := range img.Pix {
		v, err := tr.nextInt()
		if err != nil {
			return nil, errors.Wrapf(err, "read pixel (%d, %d)", i%width, i/width)
		}
		if v < 0 || v > maxValue {
			return nil, errors.Errorf("pixel (%d, %d) = %d outside [0, %d]", i%width, i/width, v, maxValue)
		}
		img.Pix[i] = v
	}
	return img, nil
}

// WritePGM writes img as a plain PGM image, one raster row per line.
func WritePGM(w io.Writer, img *Raster) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\n%d %d\n%d\n", pgmMagic, img.Width, img.Height, img.MaxValue)

	var num []byte
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			if x > 0 {
				bw.WriteByte(' ')
			}
			num = strconv.AppendInt(num[:0], int64(img.At(x, y)), 10)
			bw.Write(num)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// ReadPGMFile reads the PGM image at path.
func ReadPGMFile(path string) (*Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open image")
	}
	defer f.Close()

	img, err := ReadPGM(f)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	return img, nil
}

// WritePGMFile writes img to path.
func WritePGMFile(path string, img *Raster) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create image")
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, "close image")
		}
	}()

	return WritePGM(f, img)
}

// tokenReader splits a PGM stream into whitespace separated tokens.
type tokenReader struct {
	r   *bufio.Reader
	buf []byte
}

func (tr *tokenReader) next() (string, error) {
	tr.buf = tr.buf[:0]
	for {
		c, err := tr.r.ReadByte()
		if err == io.EOF && len(tr.buf) > 0 {
			return string(tr.buf), nil
		}
		if err != nil {
			if err == io.EOF {
				return "", io.ErrUnexpectedEOF
			}
			return "", err
		}

		switch {
		case c == '#':
			if _, err := tr.r.ReadString('\n'); err != nil && err != io.EOF {
				return "", err
			}
			if len(tr.buf) > 0 {
				return string(tr.buf), nil
			}
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f':
			if len(tr.buf) > 0 {
				return string(tr.buf), nil
			}
		default:
			tr.buf = append(tr.buf, c)
		}
	}
}

func (tr *tokenReader) nextInt() (int, error) {
	tok, err := tr.next()
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, errors.Wrapf(err, "token %q", tok)
	}
	return v, nil
}
