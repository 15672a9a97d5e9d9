package codestore

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"

	"github.com/egonelbre/exp-raster-compression/arithcode"
)

// Container is the compression wrapped around a code stream.
type Container string

const (
	None  Container = "none"
	Gzip  Container = "gzip"
	Zstd  Container = "zstd"
	XZ    Container = "xz"
	Bzip2 Container = "bzip2"
)

// Containers lists the supported containers.
var Containers = []Container{None, Gzip, Zstd, XZ, Bzip2}

var magics = []struct {
	container Container
	magic     []byte
}{
	{Gzip, []byte{0x1f, 0x8b}},
	{Zstd, []byte{0x28, 0xb5, 0x2f, 0xfd}},
	{XZ, []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}},
	{Bzip2, []byte("BZh")},
}

// ParseContainer parses a container name. An empty name means None.
func ParseContainer(name string) (Container, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return None, nil
	}
	for _, c := range Containers {
		if string(c) == name {
			return c, nil
		}
	}
	return "", errors.Wrapf(arithcode.ErrConfiguration, "unknown container %q", name)
}

// NewWriter wraps w so that everything written is compressed with c.
// Closing the returned writer does not close w.
func NewWriter(w io.Writer, c Container) (io.WriteCloser, error) {
	switch c {
	case None, "":
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriter(w), nil
	case Zstd:
		enc, err := zstd.NewWriter(w)
		return enc, errors.Wrap(err, "zstd")
	case XZ:
		xw, err := xz.NewWriter(w)
		return xw, errors.Wrap(err, "xz")
	case Bzip2:
		bw, err := bzip2.NewWriter(w, nil)
		return bw, errors.Wrap(err, "bzip2")
	}
	return nil, errors.Wrapf(arithcode.ErrConfiguration, "unknown container %q", string(c))
}

// NewReader detects the container of r from its leading bytes and returns
// a reader of the decompressed stream. Streams without a known signature
// are read as plain text.
func NewReader(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	c, err := detect(br)
	if err != nil {
		return nil, err
	}

	switch c {
	case Gzip:
		gr, err := gzip.NewReader(br)
		return gr, errors.Wrap(err, "gzip")
	case Zstd:
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "zstd")
		}
		return dec.IOReadCloser(), nil
	case XZ:
		xr, err := xz.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "xz")
		}
		return io.NopCloser(xr), nil
	case Bzip2:
		bz, err := bzip2.NewReader(br, nil)
		return bz, errors.Wrap(err, "bzip2")
	}
	return io.NopCloser(br), nil
}

func detect(br *bufio.Reader) (Container, error) {
	for _, m := range magics {
		head, err := br.Peek(len(m.magic))
		if err != nil && err != io.EOF {
			return "", errors.Wrap(err, "detect container")
		}
		if bytes.Equal(head, m.magic) {
			return m.container, nil
		}
	}
	return None, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
