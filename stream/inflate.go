package stream

import (
	"io"

	"github.com/pkg/errors"

	"github.com/deflatekit/pack/flate"
	"github.com/deflatekit/pack/gzip"
	"github.com/deflatekit/pack/zlib"
)

// An Inflater decompresses a stream delivered in chunks. Unless Raw is set,
// the container (zlib or gzip) is recognized from the first two bytes.
//
// The zero value is ready to use.
type Inflater struct {
	Raw bool
	// Dictionary answers a zlib stream's request for a preset dictionary,
	// or primes the window of a raw stream.
	Dictionary []byte

	engine    flate.Decompressor
	container Container
	head      []byte
	done      bool
	err       error
}

func (z *Inflater) start(src []byte) ([]byte, bool) {
	if z.Raw {
		z.container = Raw
		if z.Dictionary != nil {
			z.engine = flate.NewInflaterDict(z.Dictionary)
		} else {
			z.engine, _ = flate.NewInflater(15)
		}
		return src, true
	}
	if len(z.head)+len(src) < 2 {
		z.head = append(z.head, src...)
		return nil, false
	}
	if len(z.head) > 0 {
		src = append(z.head, src...)
		z.head = nil
	}
	if Detect(src) == Gzip {
		z.container = Gzip
		z.engine = gzip.NewInflater()
	} else {
		z.container = Zlib
		if z.Dictionary != nil {
			z.engine = zlib.NewInflaterDict(z.Dictionary)
		} else {
			z.engine, _ = zlib.NewInflater(15)
		}
	}
	return src, true
}

// Append decompresses chunk and returns the output it produced, in buffers
// of at most OutputChunkSize bytes. Input after the end of the stream is
// ignored. Errors are sticky: corrupt data comes back as a wrapped
// *flate.DataError, and a stream asking for a dictionary that was not given
// as a wrapped flate.ErrNeedDict.
func (z *Inflater) Append(chunk []byte) ([][]byte, error) {
	if z.err != nil {
		return nil, z.err
	}
	if z.done {
		return nil, nil
	}
	src := chunk
	if z.engine == nil {
		var ok bool
		if src, ok = z.start(src); !ok {
			return nil, nil
		}
	}

	var out [][]byte
	var buf []byte
	for {
		if buf == nil {
			buf = make([]byte, OutputChunkSize)
		}
		n, m, status, err := z.engine.Step(buf, src)
		src = src[m:]
		if n > 0 {
			out = append(out, buf[:n:n])
			buf = nil
		}
		if err != nil {
			z.err = errors.Wrapf(err, "%s stream", z.container)
			return out, z.err
		}
		switch status {
		case flate.StatusStreamEnd:
			z.done = true
			return out, nil
		case flate.StatusNeedDict:
			z.err = errors.Wrapf(flate.ErrNeedDict, "%s stream", z.container)
			return out, z.err
		case flate.StatusNeedInput:
			return out, nil
		}
	}
}

// Finish reports how decompression went. It does not reset z.
func (z *Inflater) Finish() Result {
	r := Result{
		Complete:  z.done,
		Container: z.container,
		Err:       z.err,
	}
	if g, ok := z.engine.(*gzip.Inflater); ok {
		if h, ok := g.Header(); ok {
			r.FileName = h.Name
			r.ModTime = h.ModTime
		}
	}
	if z.done {
		switch z.container {
		case Zlib:
			r.Checksum = Match
		case Gzip:
			r.Checksum, r.Size = Match, Match
		}
	}
	var de *flate.DataError
	if errors.As(z.err, &de) {
		switch de.Reason {
		case zlib.ReasonChecksum:
			r.Checksum = Mismatch
		case gzip.ReasonLength:
			// The CRC is checked first, so it matched.
			r.Checksum, r.Size = Match, Mismatch
		}
	}
	if r.Err == nil && !r.Complete {
		r.Err = io.ErrUnexpectedEOF
	}
	r.Success = r.Err == nil
	return r
}

// Reset prepares z for a new stream, keeping Raw and Dictionary.
func (z *Inflater) Reset() {
	z.engine = nil
	z.container = Raw
	z.head = nil
	z.done = false
	z.err = nil
}

// Inflate decompresses data in one call, recognizing zlib and gzip
// wrappers and treating anything else as raw DEFLATE.
func Inflate(data, dict []byte) ([]byte, Result) {
	z := Inflater{Raw: Detect(data) == Raw, Dictionary: dict}
	chunks, _ := z.Append(data)
	res := z.Finish()
	return join(chunks), res
}

func join(chunks [][]byte) []byte {
	n := 0
	for _, c := range chunks {
		n += len(c)
	}
	out := make([]byte, 0, n)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}
