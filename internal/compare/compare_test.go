package compare

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deflatekit/pack/internal/corpus"
)

func TestRun(t *testing.T) {
	data := corpus.Mixed(100000, 51)
	codecs := append(Levels(0, 1, 6, 9), BlockMode(6))
	codecs = append(codecs, References()...)

	results, err := Run(context.Background(), data, codecs)
	require.NoError(t, err)
	require.Len(t, results, len(codecs))

	byName := map[string]Result{}
	for _, r := range results {
		assert.True(t, r.Verified, r.Codec)
		assert.Equal(t, len(data), r.In)
		byName[r.Codec] = r
	}
	assert.Less(t, byName["deflate-9"].Out, byName["deflate-0"].Out)
	assert.Greater(t, byName["deflate-6"].Ratio(), 1.0)
	assert.Greater(t, byName["deflate-block-6"].Ratio(), 1.0)
}

func TestRunFailures(t *testing.T) {
	broken := Codec{
		Name:       "broken",
		Compress:   func(b []byte) ([]byte, error) { return nil, errors.New("no") },
		Decompress: func(b []byte) ([]byte, error) { return b, nil },
	}
	lossy := Codec{
		Name:       "lossy",
		Compress:   func(b []byte) ([]byte, error) { return b[:len(b)/2], nil },
		Decompress: func(b []byte) ([]byte, error) { return b, nil },
	}
	results, err := Run(context.Background(), []byte("some input"), []Codec{broken, lossy})
	assert.Error(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Verified)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err = Run(ctx, []byte("x"), Levels(6))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

func TestDigest(t *testing.T) {
	assert.Equal(t, uint32(0x02cc5d05), Digest(nil))
	assert.NotEqual(t, Digest([]byte("a")), Digest([]byte("b")))
}
