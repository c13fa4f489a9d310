package stream

import (
	"bytes"
	"io"
	"testing"
	"time"

	kflate "github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deflatekit/pack/flate"
	"github.com/deflatekit/pack/gzip"
	"github.com/deflatekit/pack/internal/corpus"
)

func inflateChunks(t *testing.T, z *Inflater, data []byte, size int) []byte {
	t.Helper()
	var out []byte
	for len(data) > 0 {
		n := min(size, len(data))
		chunks, err := z.Append(data[:n])
		require.NoError(t, err)
		for _, c := range chunks {
			require.LessOrEqual(t, len(c), OutputChunkSize)
			out = append(out, c...)
		}
		data = data[n:]
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	data := corpus.Mixed(200000, 21)
	for _, c := range []Container{Raw, Zlib, Gzip} {
		for _, level := range []int{0, 1, flate.DefaultCompression, 9} {
			comp, err := Deflate(data, c, level)
			require.NoError(t, err)
			assert.Equal(t, c, Detect(comp), "container %v", c)

			z := &Inflater{Raw: c == Raw}
			got := inflateChunks(t, z, comp, 999)
			assert.True(t, bytes.Equal(got, data), "%v level %d", c, level)
			res := z.Finish()
			assert.True(t, res.Success)
			assert.True(t, res.Complete)
			assert.NoError(t, res.Err)
			assert.Equal(t, c, res.Container)

			got, res = Inflate(comp, nil)
			assert.True(t, res.Success, "%v level %d: %v", c, level, res.Err)
			assert.True(t, bytes.Equal(got, data))
			switch c {
			case Raw:
				assert.Equal(t, Unchecked, res.Checksum)
				assert.Equal(t, Unchecked, res.Size)
			case Zlib:
				assert.Equal(t, Match, res.Checksum)
				assert.Equal(t, Unchecked, res.Size)
			case Gzip:
				assert.Equal(t, Match, res.Checksum)
				assert.Equal(t, Match, res.Size)
			}
		}
	}
}

func TestDeflaterChunks(t *testing.T) {
	data := corpus.Text(100000, 22)
	z := &Deflater{Container: Gzip, Level: 6, Header: gzip.Header{Name: "words.txt", ModTime: time.Unix(1600000000, 0)}}
	var comp []byte
	for i := 0; i < len(data); i += 7000 {
		chunks, err := z.Append(data[i:min(i+7000, len(data))])
		require.NoError(t, err)
		comp = append(comp, join(chunks)...)
	}
	chunks, err := z.Finish()
	require.NoError(t, err)
	comp = append(comp, join(chunks)...)

	chunks, err = z.Finish()
	assert.NoError(t, err)
	assert.Empty(t, chunks)
	_, err = z.Append([]byte("late"))
	assert.ErrorIs(t, err, flate.ErrStream)

	got, res := Inflate(comp, nil)
	require.True(t, res.Success, "%v", res.Err)
	assert.True(t, bytes.Equal(got, data))
	assert.Equal(t, "words.txt", res.FileName)
	assert.True(t, time.Unix(1600000000, 0).Equal(res.ModTime))
}

func TestDeflaterFlush(t *testing.T) {
	z := &Deflater{Container: Raw, Level: 6}
	_, err := z.Append([]byte("hello, "))
	require.NoError(t, err)
	chunks, err := z.Flush()
	require.NoError(t, err)
	flushed := join(chunks)
	require.True(t, bytes.HasSuffix(flushed, []byte{0, 0, 0xff, 0xff}))

	r := kflate.NewReader(bytes.NewReader(flushed))
	p := make([]byte, 20)
	n, _ := io.ReadAtLeast(r, p, 7)
	assert.Equal(t, "hello, ", string(p[:n]))

	inf := &Inflater{Raw: true}
	out, err := inf.Append(flushed)
	require.NoError(t, err)
	assert.Equal(t, "hello, ", string(join(out)))
	assert.False(t, inf.Finish().Complete)
}

func TestDetect(t *testing.T) {
	assert.Equal(t, Gzip, Detect([]byte{0x1f, 0x8b, 8}))
	assert.Equal(t, Zlib, Detect([]byte{0x78, 0x9c}))
	assert.Equal(t, Zlib, Detect([]byte{0x78, 0x01}))
	assert.Equal(t, Raw, Detect([]byte{0x78, 0x9d}))
	assert.Equal(t, Raw, Detect([]byte{0x4b, 0x04, 0x00}))
	assert.Equal(t, Raw, Detect([]byte{0x1f}))

	for _, s := range []string{"raw", "deflate", "zlib", "GZIP", "gz"} {
		_, err := ParseContainer(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseContainer("zip")
	assert.Error(t, err)
	assert.Equal(t, ".gz", Gzip.Ext())
	assert.Equal(t, "zlib", Zlib.String())
}

// The container is recognized even when its first two bytes arrive in
// separate chunks.
func TestSplitMagic(t *testing.T) {
	data := []byte("split magic number")
	comp, err := Deflate(data, Gzip, 6)
	require.NoError(t, err)
	z := &Inflater{}
	assert.Equal(t, data, inflateChunks(t, z, comp, 1))
	assert.True(t, z.Finish().Success)
}

func TestDictionary(t *testing.T) {
	dict := []byte("common words common phrases common words")
	data := []byte("common phrases and common words")
	z := &Deflater{Container: Zlib, Level: 9, Dictionary: dict}
	head, err := z.Append(data)
	require.NoError(t, err)
	tail, err := z.Finish()
	require.NoError(t, err)
	comp := join(append(head, tail...))

	got, res := Inflate(comp, dict)
	require.True(t, res.Success, "%v", res.Err)
	assert.Equal(t, data, got)

	_, res = Inflate(comp, nil)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, flate.ErrNeedDict)

	_, res = Inflate(comp, []byte("wrong"))
	var de *flate.DataError
	assert.ErrorAs(t, res.Err, &de)

	raw := &Deflater{Container: Raw, Level: 9, Dictionary: dict}
	head, err = raw.Append(data)
	require.NoError(t, err)
	tail, err = raw.Finish()
	require.NoError(t, err)
	inf := &Inflater{Raw: true, Dictionary: dict}
	assert.Equal(t, data, inflateChunks(t, inf, join(append(head, tail...)), 5))
	assert.True(t, inf.Finish().Success)

	_, err = (&Deflater{Container: Gzip, Dictionary: dict}).Append(data)
	assert.Error(t, err)
}

func TestCorrupt(t *testing.T) {
	data := corpus.Text(20000, 23)

	zl, err := Deflate(data, Zlib, 6)
	require.NoError(t, err)
	zl[len(zl)-1] ^= 1
	_, res := Inflate(zl, nil)
	assert.False(t, res.Success)
	assert.True(t, res.Complete == false)
	assert.Equal(t, Mismatch, res.Checksum)

	gz, err := Deflate(data, Gzip, 6)
	require.NoError(t, err)
	bad := append([]byte{}, gz...)
	bad[len(bad)-5] ^= 1
	_, res = Inflate(bad, nil)
	assert.Equal(t, Mismatch, res.Checksum)
	assert.Equal(t, Unchecked, res.Size)

	bad = append([]byte{}, gz...)
	bad[len(bad)-1] ^= 1
	_, res = Inflate(bad, nil)
	assert.Equal(t, Match, res.Checksum)
	assert.Equal(t, Mismatch, res.Size)

	got, res := Inflate(gz[:len(gz)/2], nil)
	assert.False(t, res.Complete)
	assert.Equal(t, io.ErrUnexpectedEOF, res.Err)
	assert.True(t, bytes.HasPrefix(data, got))

	z := &Inflater{}
	_, err = z.Append([]byte{0x78, 0x9c, 0x07, 0x00})
	assert.ErrorAs(t, err, new(*flate.DataError))
	_, err2 := z.Append([]byte("more"))
	assert.Equal(t, err, err2)
	z.Reset()
	assert.Equal(t, data, inflateChunks(t, z, gz, 4096))
}
