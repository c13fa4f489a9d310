// Package compare measures this module's DEFLATE codec against other
// compressors on the same input.
package compare

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/golang/snappy"
	multierror "github.com/hashicorp/go-multierror"
	kflate "github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/pierrec/xxHash/xxHash32"
	"github.com/pkg/errors"

	"github.com/deflatekit/pack/flate"
	"github.com/deflatekit/pack/stream"
)

// A Codec is a named pair of one-shot compress and decompress functions.
type Codec struct {
	Name       string
	Compress   func([]byte) ([]byte, error)
	Decompress func([]byte) ([]byte, error)
}

// Result is the outcome of running one Codec over the input.
type Result struct {
	Codec      string
	In, Out    int
	Compress   time.Duration
	Decompress time.Duration
	Verified   bool // the round trip reproduced the input's digest
}

// Ratio is In/Out.
func (r Result) Ratio() float64 {
	if r.Out == 0 {
		return 0
	}
	return float64(r.In) / float64(r.Out)
}

// Digest is the xxHash32 of data, used to check round trips.
func Digest(data []byte) uint32 {
	return xxHash32.Checksum(data, 0)
}

// Levels returns a Codec for each of the given DEFLATE levels of this
// module, producing raw streams.
func Levels(levels ...int) []Codec {
	var codecs []Codec
	for _, level := range levels {
		level := level
		codecs = append(codecs, Codec{
			Name: fmt.Sprintf("deflate-%d", level),
			Compress: func(b []byte) ([]byte, error) {
				return stream.Deflate(b, stream.Raw, level)
			},
			Decompress: inflateRaw,
		})
	}
	return codecs
}

func inflateRaw(b []byte) ([]byte, error) {
	out, res := stream.Inflate(b, nil)
	return out, res.Err
}

// BlockMode returns a Codec that compresses through the pack.Writer
// pipeline at the given level.
func BlockMode(level int) Codec {
	return Codec{
		Name: fmt.Sprintf("deflate-block-%d", level),
		Compress: func(b []byte) ([]byte, error) {
			buf := new(bytes.Buffer)
			w := flate.NewBlockWriter(buf, level)
			if _, err := w.Write(b); err != nil {
				return nil, err
			}
			if err := w.Close(); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
		Decompress: inflateRaw,
	}
}

// References returns the third-party codecs: klauspost's flate at its
// fastest, default and best levels, zstd, brotli, snappy and LZ4.
func References() []Codec {
	var codecs []Codec
	for _, level := range []int{1, 6, 9} {
		level := level
		codecs = append(codecs, Codec{
			Name: fmt.Sprintf("klauspost-flate-%d", level),
			Compress: func(b []byte) ([]byte, error) {
				return compressWith(b, func(w io.Writer) (io.WriteCloser, error) {
					return kflate.NewWriter(w, level)
				})
			},
			Decompress: func(b []byte) ([]byte, error) {
				return io.ReadAll(kflate.NewReader(bytes.NewReader(b)))
			},
		})
	}
	return append(codecs,
		Codec{
			Name: "zstd",
			Compress: func(b []byte) ([]byte, error) {
				enc, err := zstd.NewWriter(nil)
				if err != nil {
					return nil, err
				}
				defer enc.Close()
				return enc.EncodeAll(b, nil), nil
			},
			Decompress: func(b []byte) ([]byte, error) {
				dec, err := zstd.NewReader(nil)
				if err != nil {
					return nil, err
				}
				defer dec.Close()
				return dec.DecodeAll(b, nil)
			},
		},
		Codec{
			Name: "brotli",
			Compress: func(b []byte) ([]byte, error) {
				return compressWith(b, func(w io.Writer) (io.WriteCloser, error) {
					return brotli.NewWriterLevel(w, brotli.DefaultCompression), nil
				})
			},
			Decompress: func(b []byte) ([]byte, error) {
				return io.ReadAll(brotli.NewReader(bytes.NewReader(b)))
			},
		},
		Codec{
			Name: "snappy",
			Compress: func(b []byte) ([]byte, error) {
				return snappy.Encode(nil, b), nil
			},
			Decompress: func(b []byte) ([]byte, error) {
				return snappy.Decode(nil, b)
			},
		},
		Codec{
			Name: "lz4",
			Compress: func(b []byte) ([]byte, error) {
				return compressWith(b, func(w io.Writer) (io.WriteCloser, error) {
					return lz4.NewWriter(w), nil
				})
			},
			Decompress: func(b []byte) ([]byte, error) {
				return io.ReadAll(lz4.NewReader(bytes.NewReader(b)))
			},
		},
	)
}

func compressWith(b []byte, newWriter func(io.Writer) (io.WriteCloser, error)) ([]byte, error) {
	buf := new(bytes.Buffer)
	w, err := newWriter(buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(b); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Run compresses and decompresses data with each codec in turn. Codecs that
// fail are left out of the results and their errors aggregated.
func Run(ctx context.Context, data []byte, codecs []Codec) ([]Result, error) {
	want := Digest(data)
	var results []Result
	var errs *multierror.Error

	for _, c := range codecs {
		if err := ctx.Err(); err != nil {
			errs = multierror.Append(errs, err)
			break
		}

		start := time.Now()
		comp, err := c.Compress(data)
		if err != nil {
			errs = multierror.Append(errs, errors.Wrapf(err, "%s: compress", c.Name))
			continue
		}
		r := Result{Codec: c.Name, In: len(data), Out: len(comp), Compress: time.Since(start)}

		start = time.Now()
		back, err := c.Decompress(comp)
		if err != nil {
			errs = multierror.Append(errs, errors.Wrapf(err, "%s: decompress", c.Name))
			continue
		}
		r.Decompress = time.Since(start)
		r.Verified = len(back) == len(data) && Digest(back) == want

		results = append(results, r)
	}

	return results, errs.ErrorOrNil()
}
