package flate

import (
	"io"

	"github.com/pkg/errors"
)

// A Decompressor is a resumable decoder, such as *Inflater or the zlib and
// gzip engines built on it.
type Decompressor interface {
	Step(dst, src []byte) (nDst, nSrc int, status Status, err error)
	Reset()
}

// A Compressor is a resumable encoder, such as *Deflater.
type Compressor interface {
	Step(dst, src []byte, flush Flush) (nDst, nSrc int, status Status, err error)
	Reset()
}

const stepBufferSize = 32 << 10

// A StepReader decompresses the data read from an io.Reader by feeding it
// to a Decompressor.
type StepReader struct {
	r     io.Reader
	d     Decompressor
	in    []byte
	start int
	end   int
	eof   bool
	err   error
}

// NewStepReader returns a reader that decodes r with d.
func NewStepReader(r io.Reader, d Decompressor) *StepReader {
	return &StepReader{r: r, d: d, in: make([]byte, stepBufferSize)}
}

// NewReader returns a reader that decompresses the raw DEFLATE stream in r.
func NewReader(r io.Reader) io.ReadCloser {
	f, _ := NewInflater(logWindowSize)
	return NewStepReader(r, f)
}

// NewReaderDict is like NewReader, with dict as the preset dictionary.
func NewReaderDict(r io.Reader, dict []byte) io.ReadCloser {
	return NewStepReader(r, NewInflaterDict(dict))
}

func (z *StepReader) Read(p []byte) (int, error) {
	if z.err != nil {
		return 0, z.err
	}
	if len(p) == 0 {
		return 0, nil
	}
	for {
		nDst, nSrc, status, err := z.d.Step(p, z.in[z.start:z.end])
		z.start += nSrc
		if err != nil {
			z.err = err
			return nDst, err
		}
		switch status {
		case StatusStreamEnd:
			z.err = io.EOF
			if nDst > 0 {
				return nDst, nil
			}
			return 0, io.EOF
		case StatusNeedDict:
			z.err = ErrNeedDict
			return nDst, z.err
		}
		if nDst > 0 {
			return nDst, nil
		}
		if status == StatusOK && z.start < z.end {
			continue
		}
		if err := z.refill(); err != nil {
			z.err = err
			return 0, err
		}
	}
}

func (z *StepReader) refill() error {
	if z.eof {
		return io.ErrUnexpectedEOF
	}
	if z.start > 0 {
		z.end = copy(z.in, z.in[z.start:z.end])
		z.start = 0
	}
	n, err := z.r.Read(z.in[z.end:])
	z.end += n
	switch {
	case err == io.EOF:
		z.eof = true
	case err != nil:
		return errors.Wrap(err, "flate: reading input")
	}
	return nil
}

// Close stops further reads. It does not close the underlying reader.
func (z *StepReader) Close() error {
	if z.err == nil || z.err == io.EOF {
		z.err = errors.New("flate: read after close")
	}
	return nil
}

// Reset discards all state and reads a new stream from r.
func (z *StepReader) Reset(r io.Reader) {
	z.r = r
	z.d.Reset()
	z.start, z.end = 0, 0
	z.eof = false
	z.err = nil
}

// A StepWriter compresses data written to it with a Compressor and writes
// the result to an io.Writer.
type StepWriter struct {
	w   io.Writer
	c   Compressor
	buf []byte
	err error
}

// NewStepWriter returns a writer that encodes with c into w.
func NewStepWriter(w io.Writer, c Compressor) *StepWriter {
	return &StepWriter{w: w, c: c, buf: make([]byte, stepBufferSize)}
}

// NewWriter returns a writer that compresses into w as raw DEFLATE at the
// given level.
func NewWriter(w io.Writer, level int) (*StepWriter, error) {
	d, err := NewDeflater(level, DefaultStrategy)
	if err != nil {
		return nil, err
	}
	return NewStepWriter(w, d), nil
}

// NewWriterDict is like NewWriter, with dict as the preset dictionary.
func NewWriterDict(w io.Writer, level int, dict []byte) (*StepWriter, error) {
	d, err := NewDeflater(level, DefaultStrategy)
	if err != nil {
		return nil, err
	}
	if err := d.SetDictionary(dict); err != nil {
		return nil, err
	}
	return NewStepWriter(w, d), nil
}

func (z *StepWriter) Write(p []byte) (int, error) {
	if z.err != nil {
		return 0, z.err
	}
	n := 0
	for {
		nDst, nSrc, _, err := z.c.Step(z.buf, p[n:], NoFlush)
		n += nSrc
		if werr := z.emit(nDst); werr != nil {
			return n, werr
		}
		if err != nil {
			z.err = err
			return n, err
		}
		if n == len(p) && nDst < len(z.buf) {
			return n, nil
		}
	}
}

func (z *StepWriter) emit(n int) error {
	if n == 0 {
		return nil
	}
	if _, err := z.w.Write(z.buf[:n]); err != nil {
		z.err = errors.Wrap(err, "flate: writing output")
		return z.err
	}
	return nil
}

func (z *StepWriter) flush(mode Flush) error {
	if z.err != nil {
		return z.err
	}
	for {
		nDst, _, status, err := z.c.Step(z.buf, nil, mode)
		if werr := z.emit(nDst); werr != nil {
			return werr
		}
		if err != nil {
			z.err = err
			return err
		}
		if status == StatusStreamEnd || (mode != Finish && nDst < len(z.buf)) {
			return nil
		}
	}
}

// Flush writes out everything written so far, ending on a byte boundary.
func (z *StepWriter) Flush() error {
	return z.flush(SyncFlush)
}

// FlushMode is like Flush with an explicit flush mode.
func (z *StepWriter) FlushMode(mode Flush) error {
	if mode == Finish {
		return z.Close()
	}
	return z.flush(mode)
}

// Close finishes the stream. It does not close the underlying writer.
func (z *StepWriter) Close() error {
	if z.err == errClosed {
		return nil
	}
	if err := z.flush(Finish); err != nil {
		return err
	}
	z.err = errClosed
	return nil
}

// Reset discards all state and writes a new stream to w.
func (z *StepWriter) Reset(w io.Writer) {
	z.w = w
	z.c.Reset()
	z.err = nil
}

var errClosed = errors.New("flate: write after close")
