// Package stream is a chunk-at-a-time interface to the codecs: feed input
// with Append, collect the output buffers it returns, and call Finish at the
// end.
package stream

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// OutputChunkSize is the size of the buffers Append and Finish return.
const OutputChunkSize = 16 << 10

// Container selects the wrapping around the DEFLATE data.
type Container int

const (
	Raw Container = iota
	Zlib
	Gzip
)

var containerNames = [...]string{Raw: "raw", Zlib: "zlib", Gzip: "gzip"}

func (c Container) String() string {
	if c >= 0 && int(c) < len(containerNames) {
		return containerNames[c]
	}
	return "unknown"
}

// Ext is the file name extension conventionally used for the container.
func (c Container) Ext() string {
	switch c {
	case Zlib:
		return ".zz"
	case Gzip:
		return ".gz"
	}
	return ".deflate"
}

// ParseContainer parses "raw", "deflate", "zlib" or "gzip".
func ParseContainer(s string) (Container, error) {
	switch strings.ToLower(s) {
	case "raw", "deflate":
		return Raw, nil
	case "zlib", "zz":
		return Zlib, nil
	case "gzip", "gz":
		return Gzip, nil
	}
	return 0, errors.Errorf("unknown container %q", s)
}

// Detect guesses the container of a stream from its first bytes: the gzip
// magic number, or a valid zlib header. Anything else is taken to be raw
// DEFLATE.
func Detect(b []byte) Container {
	if len(b) < 2 {
		return Raw
	}
	if b[0] == 0x1f && b[1] == 0x8b {
		return Gzip
	}
	if b[0]&0x0f == 8 && b[0]>>4 <= 7 && (uint(b[0])<<8|uint(b[1]))%31 == 0 {
		return Zlib
	}
	return Raw
}

// Check is the outcome of comparing a trailer field with the data.
type Check int

const (
	Unchecked Check = iota
	Match
	Mismatch
)

func (c Check) String() string {
	switch c {
	case Match:
		return "match"
	case Mismatch:
		return "mismatch"
	}
	return "unchecked"
}

// Result summarizes a decompression.
type Result struct {
	Success  bool  // complete and without error
	Complete bool  // the end of the stream was reached
	Checksum Check // Adler-32 (zlib) or CRC-32 (gzip)
	Size     Check // ISIZE (gzip)
	Err      error

	Container Container
	FileName  string    // gzip only
	ModTime   time.Time // gzip only
}
