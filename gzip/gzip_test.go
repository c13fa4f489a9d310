package gzip

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	kgzip "github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deflatekit/pack/flate"
	"github.com/deflatekit/pack/internal/corpus"
)

func compress(t *testing.T, level int, data []byte, h Header) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w, err := NewWriterLevel(buf, level, h)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func referenceDecompress(t *testing.T, comp []byte) ([]byte, *kgzip.Reader) {
	t.Helper()
	r, err := kgzip.NewReader(bytes.NewReader(comp))
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	return got, r
}

func TestRoundTrip(t *testing.T) {
	inputs := [][]byte{nil, []byte("x"), corpus.Text(70000, 11), corpus.Mixed(110000, 12)}
	for level := 0; level <= 9; level++ {
		for _, data := range inputs {
			comp := compress(t, level, data, Header{})
			ref, _ := referenceDecompress(t, comp)
			assert.True(t, bytes.Equal(ref, data), "reference decoder, level %d", level)

			got, err := io.ReadAll(NewReader(iotest.OneByteReader(bytes.NewReader(comp))))
			require.NoError(t, err, "level %d", level)
			assert.True(t, bytes.Equal(got, data), "level %d", level)
		}
	}
}

func TestReadReference(t *testing.T) {
	data := corpus.Mixed(150000, 13)
	mtime := time.Unix(1500000000, 0)

	buf := new(bytes.Buffer)
	w, err := kgzip.NewWriterLevel(buf, 6)
	require.NoError(t, err)
	w.Name = "naïve.txt"
	w.Comment = "café au lait"
	w.Extra = []byte{'A', 'B', 2, 0, 'h', 'i'}
	w.ModTime = mtime
	w.OS = 3
	w.Write(data)
	require.NoError(t, w.Close())

	r := NewReader(bytes.NewReader(buf.Bytes()))
	_, ok := r.Header()
	assert.False(t, ok)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(got, data))

	h, ok := r.Header()
	require.True(t, ok)
	assert.Equal(t, "naïve.txt", h.Name)
	assert.Equal(t, "café au lait", h.Comment)
	assert.Equal(t, []byte{'A', 'B', 2, 0, 'h', 'i'}, h.Extra)
	assert.True(t, mtime.Equal(h.ModTime))
	assert.Equal(t, byte(3), h.OS)
}

func TestWriteHeader(t *testing.T) {
	data := corpus.Text(10000, 14)
	mtime := time.Unix(1234567890, 0)
	h := Header{
		Name:    "résumé.txt",
		Comment: "a comment",
		Extra:   []byte{'X', 'Y', 1, 0, 'z'},
		ModTime: mtime,
		OS:      3,
		HdrCrc:  true,
	}
	comp := compress(t, 9, data, h)
	assert.Equal(t, []byte{id1, id2, methodDeflate}, comp[:3])
	assert.Equal(t, byte(flagHdrCrc|flagExtra|flagName|flagComment), comp[3])
	assert.Equal(t, byte(2), comp[8], "XFL for best compression")
	assert.Equal(t, byte(3), comp[9])

	got, r := referenceDecompress(t, comp)
	assert.True(t, bytes.Equal(got, data))
	assert.Equal(t, h.Name, r.Name)
	assert.Equal(t, h.Comment, r.Comment)
	assert.Equal(t, h.Extra, r.Extra)
	assert.True(t, mtime.Equal(r.ModTime))

	z := NewReader(bytes.NewReader(comp))
	got, err := io.ReadAll(z)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(got, data))
	back, ok := z.Header()
	require.True(t, ok)
	assert.Equal(t, h.Name, back.Name)
	assert.Equal(t, h.Comment, back.Comment)
	assert.Equal(t, h.Extra, back.Extra)
	assert.True(t, back.HdrCrc)

	plain := compress(t, 1, data, Header{})
	assert.Equal(t, byte(0), plain[3])
	assert.Equal(t, []byte{0, 0, 0, 0}, plain[4:8])
	assert.Equal(t, byte(4), plain[8], "XFL for best speed")
	assert.Equal(t, byte(OSUnknown), plain[9])
}

func TestBadHeaderString(t *testing.T) {
	w, err := NewWriterLevel(io.Discard, 6, Header{Name: "日本"})
	require.NoError(t, err)
	_, err = w.Write([]byte("data"))
	assert.ErrorIs(t, err, flate.ErrStream)
	assert.Error(t, w.Close())
}

func TestCorrupt(t *testing.T) {
	data := corpus.Text(4000, 15)
	good := compress(t, 6, data, Header{})
	withCrc := compress(t, 6, data, Header{HdrCrc: true})
	n := len(good)

	corrupt := func(b []byte, i int, v byte) []byte {
		c := append([]byte{}, b...)
		c[i] = v
		return c
	}
	for _, tc := range []struct {
		name   string
		data   []byte
		reason string
		offset int64
	}{
		{"magic", corrupt(good, 1, 0x8c), ReasonMagic, 10},
		{"method", corrupt(good, 2, 7), ReasonMethod, 10},
		{"reserved flag", corrupt(good, 3, 0x20), ReasonFlags, 10},
		{"header crc", corrupt(withCrc, 10, withCrc[10]^0xff), ReasonHeaderCRC, 12},
		{"data crc", corrupt(good, n-8, good[n-8]^1), ReasonChecksum, int64(n)},
		{"length", corrupt(good, n-1, good[n-1]^1), ReasonLength, int64(n)},
		{"deflate data", append(good[:10:10], 0x07, 0x00), "invalid block type", 11},
	} {
		t.Run(tc.name, func(t *testing.T) {
			z := NewInflater()
			out := make([]byte, 2*len(data))
			_, _, status, err := z.Step(out, tc.data)
			assert.Equal(t, flate.StatusDataError, status)
			var de *flate.DataError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tc.reason, de.Reason)
			assert.Equal(t, tc.offset, de.Offset)

			_, _, _, err2 := z.Step(out, tc.data)
			assert.Equal(t, err, err2)
		})
	}

	_, err := io.ReadAll(NewReader(bytes.NewReader(good[:n-3])))
	assert.Equal(t, io.ErrUnexpectedEOF, err)
}

func TestLongName(t *testing.T) {
	data := corpus.Text(5000, 14)
	h := Header{
		Name:    strings.Repeat("n", MaxStringLen+1000),
		Comment: strings.Repeat("c", 3*MaxStringLen),
		HdrCrc:  true,
	}
	comp := compress(t, 6, data, h)

	r := NewReader(iotest.HalfReader(bytes.NewReader(comp)))
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	hdr, ok := r.Header()
	require.True(t, ok)
	assert.Equal(t, h.Name[:MaxStringLen], hdr.Name)
	assert.Equal(t, h.Comment[:MaxStringLen], hdr.Comment)
}

func TestTrailingData(t *testing.T) {
	comp := compress(t, 6, []byte("member"), Header{Name: "m"})
	src := append(append([]byte{}, comp...), "TRAILER"...)
	z := NewInflater()
	out := make([]byte, 64)
	nDst, nSrc, status, err := z.Step(out, src)
	require.NoError(t, err)
	assert.Equal(t, flate.StatusStreamEnd, status)
	assert.Equal(t, "member", string(out[:nDst]))
	assert.Equal(t, "TRAILER", string(src[nSrc:]))
	assert.Equal(t, int64(len(comp)), z.TotalIn())

	z.Reset()
	nDst, _, status, err = z.Step(out, comp)
	require.NoError(t, err)
	assert.Equal(t, flate.StatusStreamEnd, status)
	assert.Equal(t, "member", string(out[:nDst]))
}

func TestBlockWriter(t *testing.T) {
	data := corpus.Mixed(150000, 16)
	buf := new(bytes.Buffer)
	w := NewBlockWriter(buf, 6, Header{Name: "block.bin"})
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	got, r := referenceDecompress(t, buf.Bytes())
	assert.True(t, bytes.Equal(got, data))
	assert.Equal(t, "block.bin", r.Name)

	got, err = io.ReadAll(NewReader(bytes.NewReader(buf.Bytes())))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(got, data))
}
