package stream

import (
	"github.com/pkg/errors"

	"github.com/deflatekit/pack/flate"
	"github.com/deflatekit/pack/gzip"
	"github.com/deflatekit/pack/zlib"
)

// A Deflater compresses a stream delivered in chunks. The settings are read
// when the first chunk arrives. Level follows package flate, so the zero
// value stores without compressing; use flate.DefaultCompression for the
// usual tradeoff.
type Deflater struct {
	Container  Container
	Level      int
	Strategy   flate.Strategy
	Dictionary []byte      // raw and zlib only
	Header     gzip.Header // gzip only

	engine flate.Compressor
	done   bool
	err    error
}

func (z *Deflater) start() error {
	if z.Dictionary != nil && z.Container == Gzip {
		return errors.New("stream: gzip has no preset dictionary")
	}
	switch z.Container {
	case Raw:
		f, err := flate.NewDeflater(z.Level, z.Strategy)
		if err != nil {
			return err
		}
		if z.Dictionary != nil {
			if err := f.SetDictionary(z.Dictionary); err != nil {
				return err
			}
		}
		z.engine = f
	case Zlib:
		f, err := zlib.NewDeflater(z.Level, z.Strategy)
		if err != nil {
			return err
		}
		if z.Dictionary != nil {
			if err := f.SetDictionary(z.Dictionary); err != nil {
				return err
			}
		}
		z.engine = f
	case Gzip:
		f, err := gzip.NewDeflater(z.Level, z.Strategy)
		if err != nil {
			return err
		}
		f.Header = z.Header
		z.engine = f
	default:
		return errors.Errorf("stream: unknown container %d", z.Container)
	}
	return nil
}

// Append compresses chunk and returns whatever output is ready. Most of the
// output may be held back until Flush or Finish.
func (z *Deflater) Append(chunk []byte) ([][]byte, error) {
	return z.step(chunk, flate.NoFlush)
}

// Flush returns all output for the input so far, ending on a byte boundary.
func (z *Deflater) Flush() ([][]byte, error) {
	return z.step(nil, flate.SyncFlush)
}

// Finish ends the stream and returns the rest of the output.
func (z *Deflater) Finish() ([][]byte, error) {
	if z.done && z.err == nil {
		return nil, nil
	}
	out, err := z.step(nil, flate.Finish)
	if err == nil {
		z.done = true
	}
	return out, err
}

func (z *Deflater) step(src []byte, flush flate.Flush) ([][]byte, error) {
	if z.err != nil {
		return nil, z.err
	}
	if z.done {
		z.err = errors.Wrap(flate.ErrStream, "stream: deflate after Finish")
		return nil, z.err
	}
	if z.engine == nil {
		if err := z.start(); err != nil {
			z.err = err
			return nil, err
		}
	}

	var out [][]byte
	var buf []byte
	for {
		if buf == nil {
			buf = make([]byte, OutputChunkSize)
		}
		n, m, status, err := z.engine.Step(buf, src, flush)
		src = src[m:]
		if n > 0 {
			out = append(out, buf[:n:n])
			buf = nil
		}
		if err != nil {
			z.err = errors.Wrapf(err, "%s stream", z.Container)
			return out, z.err
		}
		if status == flate.StatusStreamEnd {
			return out, nil
		}
		// Flushing is done once the output stops filling whole buffers.
		if len(src) == 0 && (flush == flate.NoFlush || n < OutputChunkSize) && flush != flate.Finish {
			return out, nil
		}
		if status == flate.StatusNeedInput && len(src) == 0 {
			return out, nil
		}
	}
}

// Reset prepares z for a new stream with the current settings.
func (z *Deflater) Reset() {
	z.engine = nil
	z.done = false
	z.err = nil
}

// Deflate compresses data in one call.
func Deflate(data []byte, container Container, level int) ([]byte, error) {
	z := Deflater{Container: container, Level: level}
	head, err := z.Append(data)
	if err != nil {
		return nil, err
	}
	tail, err := z.Finish()
	if err != nil {
		return nil, err
	}
	return join(append(head, tail...)), nil
}
