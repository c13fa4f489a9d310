package flate

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	kflate "github.com/klauspost/compress/flate"

	"github.com/deflatekit/pack/internal/corpus"
)

type sample struct {
	name string
	data []byte
}

func samples() []sample {
	return []sample{
		{"empty", nil},
		{"one", []byte("a")},
		{"hello", []byte("HelloHelloHelloHelloHelloHelloHelloHelloHelloHello, world")},
		{"text", corpus.Text(100000, 1)},
		{"random", corpus.Random(40000, 2)},
		{"runs", corpus.Runs(100000, 3)},
		{"mixed", corpus.Mixed(150000, 4)},
	}
}

// inflateChunks decodes comp with f, offering at most inStep input bytes
// and outStep output bytes per Step.
func inflateChunks(f *Inflater, comp []byte, inStep, outStep int) ([]byte, Status, error) {
	var out []byte
	buf := make([]byte, outStep)
	pos := 0
	stalled := 0
	for {
		end := pos + inStep
		if end > len(comp) {
			end = len(comp)
		}
		nDst, nSrc, status, err := f.Step(buf, comp[pos:end])
		out = append(out, buf[:nDst]...)
		pos += nSrc
		if err != nil || status == StatusStreamEnd || status == StatusNeedDict {
			return out, status, err
		}
		if status == StatusNeedInput && pos == len(comp) {
			return out, status, nil
		}
		if nDst == 0 && nSrc == 0 {
			stalled++
			if stalled > 2 {
				return out, status, fmt.Errorf("no progress at input offset %d: %v", pos, status)
			}
		} else {
			stalled = 0
		}
	}
}

// deflateChunks compresses data with d, then finishes the stream.
func deflateChunks(d *Deflater, data []byte, inStep, outStep int) ([]byte, error) {
	var out []byte
	buf := make([]byte, outStep)
	pos := 0
	for pos < len(data) {
		end := pos + inStep
		if end > len(data) {
			end = len(data)
		}
		nDst, nSrc, _, err := d.Step(buf, data[pos:end], NoFlush)
		out = append(out, buf[:nDst]...)
		pos += nSrc
		if err != nil {
			return out, err
		}
		if nDst == 0 && nSrc == 0 {
			return out, fmt.Errorf("no progress at offset %d", pos)
		}
	}
	for {
		nDst, _, status, err := d.Step(buf, nil, Finish)
		out = append(out, buf[:nDst]...)
		if err != nil {
			return out, err
		}
		if status == StatusStreamEnd {
			return out, nil
		}
		if nDst == 0 {
			return out, fmt.Errorf("finish stalled: %v", status)
		}
	}
}

func mustDeflate(t testing.TB, level int, strategy Strategy, data []byte) []byte {
	t.Helper()
	d, err := NewDeflater(level, strategy)
	if err != nil {
		t.Fatal(err)
	}
	comp, err := deflateChunks(d, data, 1<<14, 1<<14)
	if err != nil {
		t.Fatal(err)
	}
	return comp
}

func mustInflate(t testing.TB, comp []byte) []byte {
	t.Helper()
	f, err := NewInflater(15)
	if err != nil {
		t.Fatal(err)
	}
	out, status, err := inflateChunks(f, comp, 1<<14, 1<<14)
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusStreamEnd {
		t.Fatalf("stream did not end: %v", status)
	}
	return out
}

func referenceInflate(comp, dict []byte) ([]byte, error) {
	var r io.ReadCloser
	if dict != nil {
		r = kflate.NewReaderDict(bytes.NewReader(comp), dict)
	} else {
		r = kflate.NewReader(bytes.NewReader(comp))
	}
	defer r.Close()
	return io.ReadAll(r)
}

func referenceDeflate(t testing.TB, level int, data, dict []byte) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	var w *kflate.Writer
	var err error
	if dict != nil {
		w, err = kflate.NewWriterDict(buf, level, dict)
	} else {
		w, err = kflate.NewWriter(buf, level)
	}
	if err != nil {
		t.Fatal(err)
	}
	w.Write(data)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// A token is the literal byte val when dist is 0, otherwise a match of
// length val.
type token struct {
	val  int
	dist int
}

// staticBlock writes tokens as a single static block.
func staticBlock(final bool, tokens []token) []byte {
	var bw blockWriter
	bw.init()
	var eof uint32
	if final {
		eof = 1
	}
	for _, t := range tokens {
		if t.dist == 0 {
			bw.tallyLit(byte(t.val))
		} else {
			bw.tallyMatch(t.dist, t.val-minMatchLength)
		}
	}
	bw.writeBits(staticTrees<<1+eof, 3)
	bw.compressBlock(staticLTree[:], staticDTree[:])
	bw.windup()
	return bw.out
}

// expand applies tokens to history, the way a decoder would.
func expand(history []byte, tokens []token) []byte {
	out := history
	for _, t := range tokens {
		if t.dist == 0 {
			out = append(out, byte(t.val))
			continue
		}
		for i := 0; i < t.val; i++ {
			out = append(out, out[len(out)-t.dist])
		}
	}
	return out
}
