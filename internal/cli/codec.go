package cli

import (
	"bufio"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/deflatekit/pack/flate"
	"github.com/deflatekit/pack/gzip"
	"github.com/deflatekit/pack/stream"
	"github.com/deflatekit/pack/zlib"
)

type options struct {
	level       int
	strategy    flate.Strategy
	container   stream.Container
	dict        []byte
	blockMode   bool
	verify      bool
	force       bool
	progress    bool
	concurrency int
}

// member describes the file being compressed, for the gzip header.
type member struct {
	name    string
	modTime time.Time
}

// newCompressor returns a writer compressing into w as o describes.
func newCompressor(w io.Writer, o *options, m member) (io.WriteCloser, error) {
	if o.dict != nil && o.container == stream.Gzip {
		return nil, errors.New("gzip has no preset dictionary")
	}
	hdr := gzip.Header{Name: m.name, ModTime: m.modTime}

	if o.blockMode {
		if o.dict != nil {
			return nil, errors.New("block mode does not support a preset dictionary")
		}
		switch o.container {
		case stream.Zlib:
			return zlib.NewBlockWriter(w, o.level), nil
		case stream.Gzip:
			return gzip.NewBlockWriter(w, o.level, hdr), nil
		}
		return flate.NewBlockWriter(w, o.level), nil
	}

	switch o.container {
	case stream.Zlib:
		z, err := zlib.NewDeflater(o.level, o.strategy)
		if err != nil {
			return nil, err
		}
		if o.dict != nil {
			if err := z.SetDictionary(o.dict); err != nil {
				return nil, err
			}
		}
		return flate.NewStepWriter(w, z), nil
	case stream.Gzip:
		z, err := gzip.NewDeflater(o.level, o.strategy)
		if err != nil {
			return nil, err
		}
		z.Header = hdr
		return flate.NewStepWriter(w, z), nil
	}

	f, err := flate.NewDeflater(o.level, o.strategy)
	if err != nil {
		return nil, err
	}
	if o.dict != nil {
		if err := f.SetDictionary(o.dict); err != nil {
			return nil, err
		}
	}
	return flate.NewStepWriter(w, f), nil
}

// newDecompressor recognizes the container from the first bytes of r.
func newDecompressor(r io.Reader, dict []byte) (io.Reader, stream.Container, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, stream.Raw, errors.Wrap(err, "reading header")
	}

	c := stream.Detect(head)
	switch c {
	case stream.Gzip:
		return gzip.NewReader(br), c, nil
	case stream.Zlib:
		if dict != nil {
			return zlib.NewReaderDict(br, dict), c, nil
		}
		return zlib.NewReader(br), c, nil
	}
	if dict != nil {
		return flate.NewReaderDict(br, dict), c, nil
	}
	return flate.NewReader(br), c, nil
}

// decompressedName strips the container extension, or appends ".out" when
// there is none to strip.
func decompressedName(name string) string {
	for _, ext := range []string{".gz", ".zz", ".deflate", ".z"} {
		if strings.HasSuffix(name, ext) && len(name) > len(ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name + ".out"
}

func createOutput(name string, force bool) (*os.File, error) {
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(name, flags, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, errors.Errorf("%s already exists (use --force to overwrite)", name)
		}
		return nil, errors.Wrap(err, "creating output")
	}
	return f, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func ratio(in, out int64) float64 {
	if out == 0 {
		return 0
	}
	return float64(in) / float64(out)
}
