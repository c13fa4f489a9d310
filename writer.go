package pack

import (
	"io"

	"github.com/pkg/errors"
)

// DefaultBlockSize is the block size a Writer uses when BlockSize is 0.
const DefaultBlockSize = 1 << 16

// A Writer compresses data with a MatchFinder and an Encoder and writes the
// result to Dest. Input is collected into blocks of BlockSize bytes; each
// block goes through the MatchFinder and then the Encoder.
type Writer struct {
	Dest        io.Writer
	MatchFinder MatchFinder
	Encoder     Encoder
	BlockSize   int

	inBuf       []byte
	outBuf      []byte
	matches     []Match
	wroteHeader bool
	closed      bool
	err         error
}

func (w *Writer) blockSize() int {
	if w.BlockSize <= 0 {
		return DefaultBlockSize
	}
	return w.BlockSize
}

func (w *Writer) Write(p []byte) (n int, err error) {
	if w.err != nil {
		return 0, w.err
	}
	if w.closed {
		return 0, errors.New("pack: write after close")
	}
	size := w.blockSize()
	for len(p) > 0 {
		if w.inBuf == nil {
			w.inBuf = make([]byte, 0, size)
		}
		c := copy(w.inBuf[len(w.inBuf):size], p)
		w.inBuf = w.inBuf[:len(w.inBuf)+c]
		p = p[c:]
		n += c
		if len(w.inBuf) == size {
			if err := w.encodeBlock(false); err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

func (w *Writer) encodeBlock(lastBlock bool) error {
	w.outBuf = w.outBuf[:0]
	if !w.wroteHeader {
		w.outBuf = w.Encoder.Header(w.outBuf)
		w.wroteHeader = true
	}
	w.matches = w.MatchFinder.FindMatches(w.matches[:0], w.inBuf)
	w.outBuf = w.Encoder.Encode(w.outBuf, w.inBuf, w.matches, lastBlock)
	w.inBuf = w.inBuf[:0]
	if len(w.outBuf) == 0 {
		return nil
	}
	if _, err := w.Dest.Write(w.outBuf); err != nil {
		w.err = errors.Wrap(err, "pack: writing block")
		return w.err
	}
	return nil
}

// Close compresses any buffered data and ends the stream. It does not close
// Dest.
func (w *Writer) Close() error {
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return nil
	}
	w.closed = true
	return w.encodeBlock(true)
}

// Reset discards the Writer's state and makes it write a new stream to
// newDest.
func (w *Writer) Reset(newDest io.Writer) {
	w.Dest = newDest
	w.MatchFinder.Reset()
	w.Encoder.Reset()
	w.inBuf = w.inBuf[:0]
	w.matches = w.matches[:0]
	w.wroteHeader = false
	w.closed = false
	w.err = nil
}
