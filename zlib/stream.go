package zlib

import (
	"encoding/binary"
	"hash"
	"hash/adler32"
	"io"

	"github.com/deflatekit/pack"
	"github.com/deflatekit/pack/flate"
)

// NewReader returns a reader that decompresses the zlib stream in r. A
// stream that needs a preset dictionary fails with flate.ErrNeedDict.
func NewReader(r io.Reader) *flate.StepReader {
	z, _ := NewInflater(maxWindowBits)
	return flate.NewStepReader(r, z)
}

// NewReaderDict is like NewReader, supplying dict when the stream asks for
// a preset dictionary.
func NewReaderDict(r io.Reader, dict []byte) *flate.StepReader {
	return flate.NewStepReader(r, NewInflaterDict(dict))
}

// NewWriter returns a writer that compresses into w at the default level.
func NewWriter(w io.Writer) *flate.StepWriter {
	z, _ := NewWriterLevel(w, flate.DefaultCompression)
	return z
}

// NewWriterLevel is like NewWriter with an explicit level.
func NewWriterLevel(w io.Writer, level int) (*flate.StepWriter, error) {
	return NewWriterLevelDict(w, level, nil)
}

// NewWriterLevelDict is like NewWriterLevel, compressing with dict as the
// preset dictionary. Reset on the returned writer drops the dictionary.
func NewWriterLevelDict(w io.Writer, level int, dict []byte) (*flate.StepWriter, error) {
	z, err := NewDeflater(level, flate.DefaultStrategy)
	if err != nil {
		return nil, err
	}
	if dict != nil {
		if err := z.SetDictionary(dict); err != nil {
			return nil, err
		}
	}
	return flate.NewStepWriter(w, z), nil
}

// NewEncoder returns a pack.Encoder that wraps the blocks of
// flate.NewEncoder in a zlib header and Adler-32 trailer.
func NewEncoder() pack.Encoder {
	return &encoder{f: flate.NewEncoder(), digest: adler32.New()}
}

// NewBlockWriter returns a pack.Writer that writes a zlib stream to w,
// finding matches with flate.NewMatchFinder(level).
func NewBlockWriter(w io.Writer, level int) *pack.Writer {
	return &pack.Writer{
		Dest:        w,
		MatchFinder: flate.NewMatchFinder(level),
		Encoder:     NewEncoder(),
		BlockSize:   1 << 16,
	}
}

type encoder struct {
	f      pack.Encoder
	digest hash.Hash32
}

func (e *encoder) Reset() {
	e.f.Reset()
	e.digest.Reset()
}

func (e *encoder) Header(dst []byte) []byte {
	return append(dst, header(6, flate.DefaultStrategy, false)...)
}

func (e *encoder) Encode(dst []byte, src []byte, matches []pack.Match, lastBlock bool) []byte {
	dst = e.f.Encode(dst, src, matches, lastBlock)
	e.digest.Write(src)
	if lastBlock {
		dst = binary.BigEndian.AppendUint32(dst, e.digest.Sum32())
	}
	return dst
}
