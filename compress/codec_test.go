package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func testPayload() []byte {
	// Repetitive enough to compress, long enough to span internal buffers.
	var buf bytes.Buffer
	for i := 0; i < 2048; i++ {
		buf.WriteString("chunk payload segment ")
		buf.WriteByte(byte(i))
	}

	return buf.Bytes()
}

func TestZlibRoundTrip(t *testing.T) {
	data := testPayload()

	t.Run("Default level", func(t *testing.T) {
		codec := NewZlibCodec()
		compressed, err := codec.Compress(data)
		require.NoError(t, err)
		require.Less(t, len(compressed), len(data))

		restored, err := codec.Decompress(compressed)
		require.NoError(t, err)
		require.Equal(t, data, restored)
	})

	t.Run("Explicit levels", func(t *testing.T) {
		for _, level := range []int{0, 1, 6, 9} {
			compressed, err := CompressZlib(data, level)
			require.NoError(t, err)

			restored, err := DecompressZlib(compressed)
			require.NoError(t, err)
			require.Equal(t, data, restored)
		}
	})

	t.Run("Corrupt stream", func(t *testing.T) {
		_, err := DecompressZlib([]byte{0xde, 0xad, 0xbe, 0xef})
		require.Error(t, err)
	})
}

func TestZstdRoundTrip(t *testing.T) {
	data := testPayload()

	t.Run("Codec", func(t *testing.T) {
		codec := NewZstdCodec()
		compressed, err := codec.Compress(data)
		require.NoError(t, err)
		require.Less(t, len(compressed), len(data))

		restored, err := codec.Decompress(compressed)
		require.NoError(t, err)
		require.Equal(t, data, restored)
	})

	t.Run("Explicit levels", func(t *testing.T) {
		for _, level := range []int{1, 3, 6, 19} {
			compressed, err := CompressZstd(data, level)
			require.NoError(t, err)

			restored, err := DecompressZstd(compressed)
			require.NoError(t, err)
			require.Equal(t, data, restored)
		}
	})

	t.Run("Bounded", func(t *testing.T) {
		compressed, err := CompressZstd(data, 3)
		require.NoError(t, err)

		restored, err := DecompressZstdBounded(compressed, 64<<20)
		require.NoError(t, err)
		require.Equal(t, data, restored)

		_, err = DecompressZstdBounded(compressed, 0)
		require.Error(t, err)
	})

	t.Run("Streaming", func(t *testing.T) {
		compressed, err := CompressZstd(data, 3)
		require.NoError(t, err)

		restored, err := DecompressZstdStream(compressed)
		require.NoError(t, err)
		require.Equal(t, data, restored)
	})

	t.Run("Corrupt frame", func(t *testing.T) {
		_, err := DecompressZstd([]byte{0x01, 0x02, 0x03, 0x04})
		require.Error(t, err)
	})

	t.Run("Empty input", func(t *testing.T) {
		restored, err := DecompressZstd(nil)
		require.NoError(t, err)
		require.Empty(t, restored)
	})
}

func TestNoOpCodec(t *testing.T) {
	codec := NewNoOpCodec()
	data := []byte{1, 2, 3}

	compressed, err := codec.Compress(data)
	require.NoError(t, err)
	require.Equal(t, data, compressed)

	restored, err := codec.Decompress(compressed)
	require.NoError(t, err)
	require.Equal(t, data, restored)
}
