package gzip

import (
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/deflatekit/pack"
	"github.com/deflatekit/pack/flate"
)

// A Reader decompresses a gzip member read from an io.Reader.
type Reader struct {
	*flate.StepReader
	z *Inflater
}

// NewReader returns a Reader for the gzip member in r.
func NewReader(r io.Reader) *Reader {
	z := NewInflater()
	return &Reader{StepReader: flate.NewStepReader(r, z), z: z}
}

// Header returns the member header once a Read has got past it.
func (r *Reader) Header() (Header, bool) {
	return r.z.Header()
}

// NewWriter returns a writer that compresses into w at the default level,
// starting the member with h.
func NewWriter(w io.Writer, h Header) *flate.StepWriter {
	z, _ := NewWriterLevel(w, flate.DefaultCompression, h)
	return z
}

// NewWriterLevel is like NewWriter with an explicit level.
func NewWriterLevel(w io.Writer, level int, h Header) (*flate.StepWriter, error) {
	z, err := NewDeflater(level, flate.DefaultStrategy)
	if err != nil {
		return nil, err
	}
	z.Header = h
	return flate.NewStepWriter(w, z), nil
}

// NewEncoder returns a pack.Encoder that wraps the blocks of
// flate.NewEncoder in a gzip member with header h.
func NewEncoder(h Header) pack.Encoder {
	return &encoder{
		f:   flate.NewEncoder(),
		hdr: h,
	}
}

// NewBlockWriter returns a pack.Writer that writes a gzip member to w,
// finding matches with flate.NewMatchFinder(level).
func NewBlockWriter(w io.Writer, level int, h Header) *pack.Writer {
	return &pack.Writer{
		Dest:        w,
		MatchFinder: flate.NewMatchFinder(level),
		Encoder:     NewEncoder(h),
		BlockSize:   1 << 16,
	}
}

type encoder struct {
	f      pack.Encoder
	hdr    Header
	length uint32
	crc    uint32
}

func (g *encoder) Reset() {
	g.f.Reset()
	g.length = 0
	g.crc = 0
}

// Header falls back to a bare header if g.hdr cannot be encoded.
func (g *encoder) Header(dst []byte) []byte {
	out, err := g.hdr.appendHeader(dst, flate.DefaultCompression)
	if err != nil {
		bare := Header{ModTime: g.hdr.ModTime, OS: g.hdr.OS}
		out, _ = bare.appendHeader(dst, flate.DefaultCompression)
	}
	return out
}

func (g *encoder) Encode(dst []byte, src []byte, matches []pack.Match, lastBlock bool) []byte {
	dst = g.f.Encode(dst, src, matches, lastBlock)

	g.length += uint32(len(src))
	g.crc = crc32.Update(g.crc, crc32.IEEETable, src)

	if lastBlock {
		dst = binary.LittleEndian.AppendUint32(dst, g.crc)
		dst = binary.LittleEndian.AppendUint32(dst, g.length)
	}
	return dst
}
