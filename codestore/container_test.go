package codestore

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/egonelbre/exp-raster-compression/arithcode"
)

func TestContainerDetection(t *testing.T) {
	payload := []byte("0.5\nentries:{symbol:1 count:4}\n")

	for _, c := range Containers {
		var buf bytes.Buffer
		w, err := NewWriter(&buf, c)
		if err != nil {
			t.Fatalf("%s: NewWriter failed: %v", c, err)
		}
		if _, err := w.Write(payload); err != nil {
			t.Fatalf("%s: Write failed: %v", c, err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("%s: Close failed: %v", c, err)
		}
		if c != None && bytes.Equal(buf.Bytes(), payload) {
			t.Errorf("%s: stream was not compressed", c)
		}

		r, err := NewReader(&buf)
		if err != nil {
			t.Fatalf("%s: NewReader failed: %v", c, err)
		}
		got, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("%s: ReadAll failed: %v", c, err)
		}
		r.Close()
		if !bytes.Equal(got, payload) {
			t.Errorf("%s: got %q, expected %q", c, got, payload)
		}
	}
}

func TestNewReaderShortStream(t *testing.T) {
	r, err := NewReader(bytes.NewReader([]byte{0x1f}))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	got, _ := io.ReadAll(r)
	if !bytes.Equal(got, []byte{0x1f}) {
		t.Errorf("got %q, expected the single byte back", got)
	}
}

func TestParseContainer(t *testing.T) {
	tests := []struct {
		in   string
		want Container
	}{
		{"", None},
		{"none", None},
		{"GZIP", Gzip},
		{" zstd ", Zstd},
		{"xz", XZ},
		{"bzip2", Bzip2},
	}
	for _, tt := range tests {
		got, err := ParseContainer(tt.in)
		if err != nil {
			t.Errorf("ParseContainer(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseContainer(%q) = %q, expected %q", tt.in, got, tt.want)
		}
	}

	if _, err := ParseContainer("lz4"); !errors.Is(err, arithcode.ErrConfiguration) {
		t.Errorf("ParseContainer(lz4) = %v, expected ErrConfiguration", err)
	}
	if _, err := NewWriter(io.Discard, Container("lz4")); !errors.Is(err, arithcode.ErrConfiguration) {
		t.Errorf("NewWriter(lz4) = %v, expected ErrConfiguration", err)
	}
}
