package region

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/regionfile/errs"
)

func TestParseFilename(t *testing.T) {
	t.Run("Origin region", func(t *testing.T) {
		x, z, err := ParseFilename("r.0.0.mca")
		require.NoError(t, err)
		require.Equal(t, int32(0), x)
		require.Equal(t, int32(0), z)
	})

	t.Run("Negative coordinates", func(t *testing.T) {
		x, z, err := ParseFilename("r.-1.-1.mca")
		require.NoError(t, err)
		require.Equal(t, int32(-1), x)
		require.Equal(t, int32(-1), z)
	})

	t.Run("Linear extension", func(t *testing.T) {
		x, z, err := ParseFilename("r.12.-34.linear")
		require.NoError(t, err)
		require.Equal(t, int32(12), x)
		require.Equal(t, int32(-34), z)
	})

	t.Run("Empty coordinate part", func(t *testing.T) {
		_, _, err := ParseFilename("r..5.mca")
		require.ErrorIs(t, err, errs.ErrInvalidFormat)
	})

	t.Run("Too few parts", func(t *testing.T) {
		_, _, err := ParseFilename("region")
		require.ErrorIs(t, err, errs.ErrInvalidFormat)

		_, _, err = ParseFilename("r.0")
		require.ErrorIs(t, err, errs.ErrInvalidFormat)
	})

	t.Run("Non-numeric coordinate", func(t *testing.T) {
		_, _, err := ParseFilename("r.zero.0.mca")
		require.ErrorIs(t, err, errs.ErrInvalidFormat)
	})
}

func TestChunkCoords(t *testing.T) {
	x, z := ChunkCoords(0, 0, 0)
	require.Equal(t, int32(0), x)
	require.Equal(t, int32(0), z)

	x, z = ChunkCoords(0, 0, 33)
	require.Equal(t, int32(1), x)
	require.Equal(t, int32(1), z)

	x, z = ChunkCoords(-1, 2, 1023)
	require.Equal(t, int32(-1*32+31), x)
	require.Equal(t, int32(2*32+31), z)
}

func TestRegionChunkAccess(t *testing.T) {
	r := New(0, 0)
	require.Equal(t, 0, r.ChunkCount())
	require.Nil(t, r.Chunk(5))

	chunk := NewChunk([]byte{1, 2, 3}, 5, 0)
	require.NoError(t, r.SetChunk(5, chunk, 1_700_000_000))
	require.Equal(t, 1, r.ChunkCount())
	require.Equal(t, chunk, r.Chunk(5))
	require.Equal(t, uint32(1_700_000_000), r.Timestamp(5))

	r.RemoveChunk(5)
	require.Equal(t, 0, r.ChunkCount())
	require.Nil(t, r.Chunk(5))
	require.Equal(t, uint32(0), r.Timestamp(5))
}

func TestRegionChunkIndexBounds(t *testing.T) {
	r := New(0, 0)

	err := r.SetChunk(-1, NewChunk(nil, 0, 0), 0)
	require.ErrorIs(t, err, errs.ErrInvalidChunkIndex)

	err = r.SetChunk(ChunksPerRegion, NewChunk(nil, 0, 0), 0)
	require.ErrorIs(t, err, errs.ErrInvalidChunkIndex)
}

func TestRegionChunkAt(t *testing.T) {
	r := New(1, -1)

	// Chunk (33, -31) lives in region (1, -1) at local (1, 1), index 33.
	chunk := NewChunk([]byte{9}, 33, -31)
	require.NoError(t, r.SetChunkAt(33, -31, chunk, 7))

	require.Equal(t, chunk, r.Chunk(33))
	require.Equal(t, chunk, r.ChunkAt(33, -31))
}

func TestTimestampWithoutChunk(t *testing.T) {
	r := New(0, 0)
	r.SetTimestamp(10, 42)

	require.Nil(t, r.Chunk(10))
	require.Equal(t, uint32(42), r.Timestamp(10))
	require.Equal(t, 0, r.ChunkCount())
}

func TestPayloadDigest(t *testing.T) {
	a := New(0, 0)
	b := New(0, 0)
	require.Equal(t, a.PayloadDigest(), b.PayloadDigest())

	require.NoError(t, a.SetChunk(0, NewChunk([]byte{1, 2, 3}, 0, 0), 1))
	require.NotEqual(t, a.PayloadDigest(), b.PayloadDigest())

	require.NoError(t, b.SetChunk(0, NewChunk([]byte{1, 2, 3}, 0, 0), 99))
	require.Equal(t, a.PayloadDigest(), b.PayloadDigest())

	// Same bytes in a different slot must not collide.
	c := New(0, 0)
	require.NoError(t, c.SetChunk(1, NewChunk([]byte{1, 2, 3}, 1, 0), 1))
	require.NotEqual(t, a.PayloadDigest(), c.PayloadDigest())
}

func TestCounters(t *testing.T) {
	c := NewCounters()
	c.AddFile()
	c.AddBytesRead(100)
	c.AddBytesWritten(50)
	c.AddChunks(3)
	c.AddChunks(2)

	stats := c.Snapshot()
	require.Equal(t, uint64(1), stats.FilesProcessed)
	require.Equal(t, uint64(100), stats.BytesRead)
	require.Equal(t, uint64(50), stats.BytesWritten)
	require.Equal(t, uint64(5), stats.ChunksProcessed)
}
