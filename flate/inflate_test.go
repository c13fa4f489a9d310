package flate

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func TestInflateKnownStreams(t *testing.T) {
	tests := []struct {
		name string
		comp []byte
		want string
	}{
		{"empty static", []byte{0x03, 0x00}, ""},
		{"empty stored", []byte{0x01, 0x00, 0x00, 0xff, 0xff}, ""},
		{"static a", []byte{0x4b, 0x04, 0x00}, "a"},
		{"static hello", []byte{0xcb, 0x48, 0xcd, 0xc9, 0xc9, 0x07, 0x00}, "hello"},
		{"stored hello", []byte{0x01, 0x05, 0x00, 0xfa, 0xff, 'h', 'e', 'l', 'l', 'o'}, "hello"},
		{"stored then static", []byte{0x00, 0x02, 0x00, 0xfd, 0xff, 'h', 'i', 0x03, 0x00}, "hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, step := range []int{1, 3, len(tt.comp)} {
				f, _ := NewInflater(15)
				out, status, err := inflateChunks(f, tt.comp, step, step)
				if err != nil {
					t.Fatal(err)
				}
				if status != StatusStreamEnd {
					t.Fatalf("step %d: status %v", step, status)
				}
				if string(out) != tt.want {
					t.Fatalf("step %d: got %q, want %q", step, out, tt.want)
				}
				if f.TotalIn() != int64(len(tt.comp)) || f.TotalOut() != int64(len(tt.want)) {
					t.Errorf("step %d: totals %d/%d", step, f.TotalIn(), f.TotalOut())
				}
			}
		})
	}
}

// Streams from the reference encoder at every level must decode the same
// whatever the buffer sizes.
func TestInflateReferenceStreams(t *testing.T) {
	chunkings := []struct{ in, out int }{
		{1 << 16, 1 << 16},
		{4096, 300},
		{7, 1 << 15},
		{1 << 15, 1},
		{1, 1},
	}
	for _, s := range samples() {
		for _, level := range []int{-2, 0, 1, 5, 9} {
			comp := referenceDeflate(t, level, s.data, nil)
			for _, c := range chunkings {
				data := s.data
				if c.in*c.out < 100 && len(data) > 20000 {
					continue
				}
				f, _ := NewInflater(15)
				out, status, err := inflateChunks(f, comp, c.in, c.out)
				if err != nil {
					t.Fatalf("%s level %d chunks %v: %v", s.name, level, c, err)
				}
				if status != StatusStreamEnd {
					t.Fatalf("%s level %d chunks %v: status %v", s.name, level, c, status)
				}
				if !bytes.Equal(out, data) {
					t.Fatalf("%s level %d chunks %v: output mismatch", s.name, level, c)
				}
			}
		}
	}
}

// geometric returns bytes where value k has probability 2^-(k+1), so the
// dynamic literal codes run past the 9-bit root table.
func geometric(n int, seed int64) []byte {
	r := rand.New(rand.NewSource(seed))
	b := make([]byte, n)
	for i := range b {
		k := byte(0)
		for k < 40 && r.Intn(2) == 0 {
			k++
		}
		b[i] = k
	}
	return b
}

// Small input steps stop the decoder inside long codes, and each resume
// has enough input for the fast loop.
func TestInflateResumeInsideLongCode(t *testing.T) {
	data := geometric(200000, 21)
	comp := referenceDeflate(t, 9, data, nil)
	for _, in := range []int{10, 11, 12, 13, 17, 23, 31, 64} {
		f, _ := NewInflater(15)
		out, status, err := inflateChunks(f, comp, in, 1<<16)
		if err != nil {
			t.Fatalf("input step %d: %v", in, err)
		}
		if status != StatusStreamEnd {
			t.Fatalf("input step %d: status %v", in, status)
		}
		if !bytes.Equal(out, data) {
			t.Fatalf("input step %d: output mismatch", in)
		}
	}
}

func TestInflateSmallWindow(t *testing.T) {
	var tokens []token
	for i := 0; i < 256; i++ {
		tokens = append(tokens, token{val: i})
	}
	for i := 0; i < 5; i++ {
		tokens = append(tokens, token{val: 258, dist: 256})
	}
	tokens = append(tokens, token{val: 'x'}, token{val: 100, dist: 1}, token{val: 40, dist: 97})
	comp := staticBlock(true, tokens)
	want := expand(nil, tokens)

	for _, outStep := range []int{1, 7, 300, 4096} {
		f, err := NewInflater(8)
		if err != nil {
			t.Fatal(err)
		}
		out, status, err := inflateChunks(f, comp, 5, outStep)
		if err != nil {
			t.Fatalf("out step %d: %v", outStep, err)
		}
		if status != StatusStreamEnd || !bytes.Equal(out, want) {
			t.Fatalf("out step %d: status %v, %d bytes, want %d", outStep, status, len(out), len(want))
		}
	}

	// The same kind of stream with a distance beyond 256 bytes does not
	// fit an 8-bit window.
	tokens = append(tokens[:256:256], token{val: 3, dist: 256}, token{val: 3, dist: 257})
	f, _ := NewInflater(8)
	_, status, err := inflateChunks(f, staticBlock(true, tokens), 64, 64)
	if status != StatusDataError || !strings.Contains(err.Error(), "too far back") {
		t.Fatalf("got %v, %v; want a too far back error", status, err)
	}
}

func TestInflateInvalidWindowBits(t *testing.T) {
	for _, bits := range []int{0, 7, 16} {
		if _, err := NewInflater(bits); errors.Cause(err) != ErrStream {
			t.Errorf("NewInflater(%d): got %v, want %v", bits, err, ErrStream)
		}
	}
}

func dynamicHeader(hlit, hdist, hclen int) bitWriter {
	var w bitWriter
	w.writeBits(1, 1)
	w.writeBits(dynTrees, 2)
	w.writeBits(uint32(hlit), 5)
	w.writeBits(uint32(hdist), 5)
	w.writeBits(uint32(hclen), 4)
	return w
}

// missingEOB builds a dynamic header whose literal/length code has only the
// symbols 0 and 1.
func missingEOB() []byte {
	w := dynamicHeader(0, 0, 14)
	// Code length code: symbols 1 and 18, one bit each (1 is 0, 18 is 1).
	for i := 0; i < 18; i++ {
		var l uint32
		if codeOrder[i] == 1 || codeOrder[i] == repz11to138 {
			l = 1
		}
		w.writeBits(l, 3)
	}
	w.writeBits(0, 1) // literal 0: length 1
	w.writeBits(0, 1) // literal 1: length 1
	w.writeBits(1, 1) // 138 zeros
	w.writeBits(127, 7)
	w.writeBits(1, 1) // 117 zeros
	w.writeBits(106, 7)
	w.writeBits(0, 1) // distance 0: length 1
	w.windup()
	return w.out
}

func oversubscribedCodeLengths() []byte {
	w := dynamicHeader(0, 0, 0)
	for i := 0; i < 4; i++ {
		w.writeBits(1, 3)
	}
	w.windup()
	return w.out
}

func tooManySymbols() []byte {
	w := dynamicHeader(30, 0, 0)
	w.windup()
	return w.out
}

func TestInflateErrors(t *testing.T) {
	lits := func(s string) []token {
		var tokens []token
		for i := 0; i < len(s); i++ {
			tokens = append(tokens, token{val: int(s[i])})
		}
		return tokens
	}

	var badDist bitWriter
	badDist.writeBits(1, 1)
	badDist.writeBits(staticTrees, 2)
	badDist.writeBits(uint32(staticLTree['a'].code), uint(staticLTree['a'].len))
	badDist.writeBits(uint32(staticLTree[257].code), uint(staticLTree[257].len))
	badDist.writeBits(uint32(reverseBits(30, 5)), 5)
	badDist.writeBits(0, 16)
	badDist.windup()

	var badLit bitWriter
	badLit.writeBits(1, 1)
	badLit.writeBits(staticTrees, 2)
	badLit.writeBits(uint32(staticLTree[287].code), uint(staticLTree[287].len))
	badLit.writeBits(0, 16)
	badLit.windup()

	tests := []struct {
		name   string
		comp   []byte
		reason string
		prefix string
	}{
		{"block type", []byte{0x07, 0x00}, "invalid block type", ""},
		{"stored lengths", []byte{0x01, 0x05, 0x00, 0x00, 0x00, 'h'}, "invalid stored block lengths", ""},
		{"too far back", staticBlock(true, append(lits("ab"), token{val: 3, dist: 3})), "invalid distance too far back", "ab"},
		{"distance code", badDist.out, "invalid distance code", "a"},
		{"literal code", badLit.out, "invalid literal/length code", ""},
		{"missing end of block", missingEOB(), "invalid code -- missing end-of-block", ""},
		{"code lengths", oversubscribedCodeLengths(), "invalid code lengths set", ""},
		{"too many symbols", tooManySymbols(), "too many length or distance symbols", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, step := range []int{1, 1 << 10} {
				f, _ := NewInflater(15)
				out, status, err := inflateChunks(f, tt.comp, step, step)
				if status != StatusDataError {
					t.Fatalf("step %d: status %v, err %v", step, status, err)
				}
				de, ok := err.(*DataError)
				if !ok {
					t.Fatalf("step %d: error %T is not a *DataError", step, err)
				}
				if de.Reason != tt.reason {
					t.Errorf("step %d: reason %q, want %q", step, de.Reason, tt.reason)
				}
				if string(out) != tt.prefix {
					t.Errorf("step %d: output before the error %q, want %q", step, out, tt.prefix)
				}

				// The error sticks.
				_, _, status2, err2 := f.Step(make([]byte, 10), []byte{0x03, 0x00})
				if status2 != StatusDataError || err2 != err {
					t.Errorf("step %d: second Step gave %v, %v", step, status2, err2)
				}
			}
		})
	}
}

func TestInflateTruncated(t *testing.T) {
	data := samples()[3].data
	comp := referenceDeflate(t, 6, data, nil)
	f, _ := NewInflater(15)
	out, status, err := inflateChunks(f, comp[:len(comp)/2], 1000, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusNeedInput {
		t.Fatalf("status %v, want %v", status, StatusNeedInput)
	}
	if !bytes.HasPrefix(data, out) {
		t.Fatal("partial output is not a prefix of the input")
	}
}

func TestInflateTrailingData(t *testing.T) {
	comp := referenceDeflate(t, 6, []byte("some text, some text, some text"), nil)
	stream := append(append([]byte{}, comp...), "TRAILER"...)
	f, _ := NewInflater(15)
	dst := make([]byte, 100)
	n, nSrc, status, err := f.Step(dst, stream)
	if err != nil || status != StatusStreamEnd {
		t.Fatalf("got %v, %v", status, err)
	}
	if string(dst[:n]) != "some text, some text, some text" {
		t.Fatalf("got %q", dst[:n])
	}
	if string(stream[nSrc:]) != "TRAILER" {
		t.Fatalf("left over %q, want %q", stream[nSrc:], "TRAILER")
	}
}

func TestInflateDictionary(t *testing.T) {
	dict := []byte("the quick brown fox jumps over the lazy dog")
	data := []byte("the lazy dog and the quick brown fox")
	comp := referenceDeflate(t, 9, data, dict)

	f := NewInflaterDict(dict)
	out, status, err := inflateChunks(f, comp, 3, 5)
	if err != nil || status != StatusStreamEnd || !bytes.Equal(out, data) {
		t.Fatalf("NewInflaterDict: %q, %v, %v", out, status, err)
	}

	f, _ = NewInflater(15)
	if err := f.SetDictionary(dict); err != nil {
		t.Fatal(err)
	}
	out, _, err = inflateChunks(f, comp, 1<<10, 1<<10)
	if err != nil || !bytes.Equal(out, data) {
		t.Fatalf("SetDictionary: %q, %v", out, err)
	}

	// Without the dictionary the first match points before the start.
	f, _ = NewInflater(15)
	if _, status, _ := inflateChunks(f, comp, 1<<10, 1<<10); status != StatusDataError {
		t.Fatalf("without dictionary: status %v", status)
	}

	f, _ = NewInflater(15)
	f.Step(make([]byte, 10), comp[:1])
	if err := f.SetDictionary(dict); err != ErrDictionary {
		t.Errorf("SetDictionary after input: got %v, want %v", err, ErrDictionary)
	}
}

func TestInflateReset(t *testing.T) {
	comp := referenceDeflate(t, 6, samples()[3].data, nil)
	f, _ := NewInflater(15)
	inflateChunks(f, []byte{0x07}, 1, 1)
	f.Reset()
	out, status, err := inflateChunks(f, comp, 1<<12, 1<<12)
	if err != nil || status != StatusStreamEnd || !bytes.Equal(out, samples()[3].data) {
		t.Fatalf("after Reset: %v, %v", status, err)
	}
}

func TestInflateEmptyBuffers(t *testing.T) {
	f, _ := NewInflater(15)
	if _, _, status, err := f.Step(make([]byte, 10), nil); status != StatusNeedInput || err != nil {
		t.Errorf("no input: %v, %v", status, err)
	}
	comp := referenceDeflate(t, 6, []byte("hello hello hello"), nil)
	n, _, status, err := f.Step(nil, comp)
	if err != nil || n != 0 || status == StatusStreamEnd {
		t.Errorf("no output space: %d, %v, %v", n, status, err)
	}
}
