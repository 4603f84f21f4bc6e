package anvil

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/regionfile/errs"
	"github.com/arloliu/regionfile/region"
)

func writeTempRegion(t *testing.T, r *region.Region, level int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "r.0.0.mca")
	require.NoError(t, WriteRegion(path, r, level, nil))

	return path
}

// randomPayload returns incompressible bytes so compressed sizes track the
// input size closely.
func randomPayload(t *testing.T, n int) []byte {
	t.Helper()

	rng := rand.New(rand.NewSource(42))
	payload := make([]byte, n)
	_, err := rng.Read(payload)
	require.NoError(t, err)

	return payload
}

func TestWriteEmptyRegion(t *testing.T) {
	r := region.New(0, 0)
	r.Mtime = 1_650_000_000

	path := writeTempRegion(t, r, 6)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, headerSectors*SectorSize)

	for i, b := range data {
		require.Zero(t, b, "byte %d", i)
	}

	back, err := ReadRegion(path, nil)
	require.NoError(t, err)
	require.Equal(t, 0, back.ChunkCount())
	require.Equal(t, int64(1_650_000_000), back.Mtime)

	for i := 0; i < region.ChunksPerRegion; i++ {
		require.Zero(t, back.Timestamp(i))
	}
}

func TestSingleChunkLayout(t *testing.T) {
	r := region.New(0, 0)
	r.Mtime = 1_650_000_000
	payload := []byte{0x0A, 0x00, 0x00, 0x00}
	require.NoError(t, r.SetChunk(0, region.NewChunk(payload, 0, 0), 1_700_000_000))

	path := writeTempRegion(t, r, 6)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, 3*SectorSize)

	// Location entry 0: offset 2 sectors, count 1.
	loc := parseChunkLocation(data[0:4])
	require.Equal(t, uint32(2), loc.Offset)
	require.Equal(t, uint8(1), loc.SectorCount)

	// Timestamp 0, big-endian.
	require.Equal(t, uint32(1_700_000_000), engine.Uint32(data[SectorSize:]))

	// Chunk header: length counts the code byte, code is inline zlib.
	header := parseChunkHeader(data[2*SectorSize:])
	require.Equal(t, uint8(CompressionZlib), header.Compression)

	compressedLen := int(header.Length) - 1
	require.Greater(t, compressedLen, 0)
	require.LessOrEqual(t, ChunkHeaderSize+compressedLen, SectorSize)

	back, err := ReadRegion(path, nil)
	require.NoError(t, err)
	require.Equal(t, 1, back.ChunkCount())
	require.Equal(t, payload, back.Chunk(0).Data)
	require.Equal(t, uint32(1_700_000_000), back.Timestamp(0))
}

func TestRoundTripSemantics(t *testing.T) {
	r := region.New(-1, 3)
	r.Mtime = 1_600_000_000

	payloads := map[int][]byte{
		0:    {1},
		31:   randomPayload(t, 10_000),
		32:   {0xFF, 0x00, 0xFF},
		1023: randomPayload(t, 100_000),
	}

	for index, payload := range payloads {
		x, z := region.ChunkCoords(-1, 3, index)
		require.NoError(t, r.SetChunk(index, region.NewChunk(payload, x, z), uint32(1_000+index)))
	}

	path := filepath.Join(t.TempDir(), "r.-1.3.mca")
	require.NoError(t, WriteRegion(path, r, 6, nil))

	back, err := ReadRegion(path, nil)
	require.NoError(t, err)
	require.Equal(t, len(payloads), back.ChunkCount())
	require.Equal(t, r.PayloadDigest(), back.PayloadDigest())

	for index, payload := range payloads {
		chunk := back.Chunk(index)
		require.NotNil(t, chunk, "chunk %d", index)
		require.Equal(t, payload, chunk.Data)
		require.Equal(t, uint32(1_000+index), back.Timestamp(index))

		x, z := region.ChunkCoords(-1, 3, index)
		require.Equal(t, x, chunk.X)
		require.Equal(t, z, chunk.Z)
	}

	// Write-then-read must be stable under a second pass.
	path2 := filepath.Join(t.TempDir(), "r.-1.3.mca")
	require.NoError(t, WriteRegion(path2, back, 6, nil))

	again, err := ReadRegion(path2, nil)
	require.NoError(t, err)
	require.Equal(t, back.PayloadDigest(), again.PayloadDigest())
}

func TestMtimePreserved(t *testing.T) {
	r := region.New(0, 0)
	r.Mtime = 1_444_000_000
	require.NoError(t, r.SetChunk(1, region.NewChunk([]byte{1, 2}, 1, 0), 5))

	path := writeTempRegion(t, r, 6)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(1_444_000_000), info.ModTime().Unix())

	back, err := ReadRegion(path, nil)
	require.NoError(t, err)
	require.Equal(t, int64(1_444_000_000), back.Mtime)
}

func TestSectorCountMatchesCompressedSize(t *testing.T) {
	// Large but under the 255-sector limit: stays inline, and the location
	// entry's sector count matches the header's declared length.
	r := region.New(0, 0)
	payload := randomPayload(t, 800_000)
	require.NoError(t, r.SetChunk(0, region.NewChunk(payload, 0, 0), 1))

	path := writeTempRegion(t, r, 6)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	loc := parseChunkLocation(data[0:4])
	require.Equal(t, uint32(2), loc.Offset)

	header := parseChunkHeader(data[2*SectorSize:])
	require.Equal(t, uint8(CompressionZlib), header.Compression)

	dataSize := ChunkHeaderSize + int(header.Length) - 1
	expectedSectors := (dataSize + SectorSize - 1) / SectorSize
	require.Equal(t, uint8(expectedSectors), loc.SectorCount)
	require.LessOrEqual(t, expectedSectors, MaxSectorCount)

	require.Len(t, data, (headerSectors+expectedSectors)*SectorSize)
}

func TestSectorCountBoundaries(t *testing.T) {
	// Level 0 stores the payload uncompressed inside the zlib framing, so
	// the compressed size tracks the payload size within a few dozen bytes
	// of block overhead. That pins each payload below to a known sector
	// count with a wide margin.
	t.Run("Exactly 255 sectors stays inline", func(t *testing.T) {
		r := region.New(0, 0)
		payload := make([]byte, MaxSectorCount*SectorSize-ChunkHeaderSize-2148)
		require.NoError(t, r.SetChunk(0, region.NewChunk(payload, 0, 0), 1))

		dir := t.TempDir()
		path := filepath.Join(dir, "r.0.0.mca")
		require.NoError(t, WriteRegion(path, r, 0, nil))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Len(t, data, (headerSectors+MaxSectorCount)*SectorSize)

		loc := parseChunkLocation(data[0:4])
		require.Equal(t, uint8(MaxSectorCount), loc.SectorCount)

		header := parseChunkHeader(data[2*SectorSize:])
		require.Equal(t, uint8(CompressionZlib), header.Compression)

		back, err := ReadRegion(path, nil)
		require.NoError(t, err)
		require.Equal(t, payload, back.Chunk(0).Data)
	})

	t.Run("256 sectors routes through the external file", func(t *testing.T) {
		r := region.New(0, 0)
		payload := make([]byte, MaxSectorCount*SectorSize+2048)
		require.NoError(t, r.SetChunk(0, region.NewChunk(payload, 0, 0), 1))

		dir := t.TempDir()
		path := filepath.Join(dir, "r.0.0.mca")
		require.NoError(t, WriteRegion(path, r, 0, nil))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Len(t, data, 3*SectorSize)

		header := parseChunkHeader(data[2*SectorSize:])
		require.Equal(t, uint8(CompressionExternal), header.Compression)

		_, err = os.Stat(filepath.Join(dir, ExternalFileName(0, 0)))
		require.NoError(t, err)

		back, err := ReadRegion(path, nil)
		require.NoError(t, err)
		require.Equal(t, payload, back.Chunk(0).Data)
	})
}

func TestOverflowChunk(t *testing.T) {
	// Incompressible payload past 255 sectors must route to an external
	// file and leave a one-sector placeholder behind.
	r := region.New(0, 0)
	r.Mtime = 1_650_000_000
	payload := randomPayload(t, (MaxSectorCount+10)*SectorSize)
	require.NoError(t, r.SetChunk(0, region.NewChunk(payload, 0, 0), 9))

	dir := t.TempDir()
	path := filepath.Join(dir, "r.0.0.mca")
	require.NoError(t, WriteRegion(path, r, 6, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, 3*SectorSize)

	loc := parseChunkLocation(data[0:4])
	require.Equal(t, uint32(2), loc.Offset)
	require.Equal(t, uint8(1), loc.SectorCount)

	header := parseChunkHeader(data[2*SectorSize:])
	require.Equal(t, uint32(1), header.Length)
	require.Equal(t, uint8(CompressionExternal), header.Compression)

	externalPath := filepath.Join(dir, ExternalFileName(0, 0))
	externalInfo, err := os.Stat(externalPath)
	require.NoError(t, err)
	require.Equal(t, int64(1_650_000_000), externalInfo.ModTime().Unix())

	back, err := ReadRegion(path, nil)
	require.NoError(t, err)
	require.Equal(t, 1, back.ChunkCount())
	require.Equal(t, payload, back.Chunk(0).Data)
}

func TestBytesRejectsOverflow(t *testing.T) {
	r := region.New(0, 0)
	payload := randomPayload(t, (MaxSectorCount+10)*SectorSize)
	require.NoError(t, r.SetChunk(0, region.NewChunk(payload, 0, 0), 1))

	_, err := Bytes(r, 6)
	require.ErrorIs(t, err, errs.ErrRegionOverflow)
}

func TestBytesMatchesWrittenFile(t *testing.T) {
	r := region.New(0, 0)
	require.NoError(t, r.SetChunk(3, region.NewChunk([]byte("payload"), 3, 0), 77))

	image, err := Bytes(r, 6)
	require.NoError(t, err)

	path := writeTempRegion(t, r, 6)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	require.Equal(t, data, image)
}

func TestReadShortFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.0.0.mca")
	require.NoError(t, os.WriteFile(path, make([]byte, 100), 0o644))

	_, err := ReadRegion(path, nil)
	require.ErrorIs(t, err, errs.ErrInvalidFormat)
}

func TestReadSkipsOutOfBoundsEntries(t *testing.T) {
	r := region.New(0, 0)
	require.NoError(t, r.SetChunk(0, region.NewChunk([]byte{1, 2, 3}, 0, 0), 1))

	path := writeTempRegion(t, r, 6)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// Point slot 1 far past the end of the file.
	bogus := chunkLocation{Offset: 100, SectorCount: 10}.bytes()
	copy(data[LocationEntrySize:], bogus[:])
	require.NoError(t, os.WriteFile(path, data, 0o644))

	back, err := ReadRegion(path, nil)
	require.NoError(t, err)
	require.Equal(t, 1, back.ChunkCount())
	require.NotNil(t, back.Chunk(0))
	require.Nil(t, back.Chunk(1))
}

func TestReadUnknownCompressionCode(t *testing.T) {
	r := region.New(0, 0)
	require.NoError(t, r.SetChunk(0, region.NewChunk([]byte{1, 2, 3}, 0, 0), 1))

	path := writeTempRegion(t, r, 6)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// Overwrite the compression code with an unknown value.
	data[2*SectorSize+4] = 7
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = ReadRegion(path, nil)
	require.ErrorIs(t, err, errs.ErrUnsupportedCompression)
	require.ErrorIs(t, err, errs.ErrInvalidFormat)
}

func TestReadCountsChunks(t *testing.T) {
	r := region.New(0, 0)
	require.NoError(t, r.SetChunk(0, region.NewChunk([]byte{1}, 0, 0), 1))
	require.NoError(t, r.SetChunk(7, region.NewChunk([]byte{2}, 7, 0), 2))

	path := writeTempRegion(t, r, 6)

	counters := region.NewCounters()
	_, err := ReadRegion(path, counters)
	require.NoError(t, err)

	stats := counters.Snapshot()
	require.Equal(t, uint64(1), stats.FilesProcessed)
	require.Equal(t, uint64(2), stats.ChunksProcessed)
	require.NotZero(t, stats.BytesRead)
}

func TestLocationEntryPacking(t *testing.T) {
	loc := chunkLocation{Offset: 0x0102_03, SectorCount: 0xFA}
	packed := loc.bytes()
	require.Equal(t, [LocationEntrySize]byte{0x01, 0x02, 0x03, 0xFA}, packed)
	require.Equal(t, loc, parseChunkLocation(packed[:]))

	require.True(t, chunkLocation{}.isEmpty())
	require.False(t, chunkLocation{Offset: 2, SectorCount: 0}.isEmpty())
	require.False(t, chunkLocation{Offset: 0, SectorCount: 1}.isEmpty())
}
